package batchsig

import (
	"context"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/henryaspegren/fastsig/historytree"
)

// MerkleQueue builds a fresh merkle tree per flush and signs its root once.
// Batches are independent; there is no splicing.
type MerkleQueue struct {
	queueBase
}

func NewMerkleQueue(log logger.Logger, prims SignaturePrimitives, opts ...QueueOption) (*MerkleQueue, error) {
	o, err := newQueueOptions(opts...)
	if err != nil {
		return nil, err
	}
	return &MerkleQueue{queueBase: newQueueBase(log, prims, o)}, nil
}

func (q *MerkleQueue) Flush(ctx context.Context) error {
	return q.flush(ctx, q.process)
}

func (q *MerkleQueue) process(batch []Message) error {
	tree := historytree.NewMerkleTree(q.aggobj, historytree.NewArrayStore())
	for _, msg := range batch {
		tree.Append(msg.Data())
	}
	tree.Freeze()

	sig, err := q.signRoot(historytree.TreeTypeMerkle, tree.Version(), tree.Agg())
	if err != nil {
		return err
	}

	blobs := make([]*SignatureBlob, len(batch))
	for i := range batch {
		pruned := tree.MakePruned(historytree.NewHashStore())
		if err := pruned.CopyV(tree, i, false); err != nil {
			return err
		}
		wire := pruned.Wire()
		blobs[i] = newSignatureBlob(sig, historytree.TreeTypeMerkle)
		blobs[i].Leaf = uint64(i)
		blobs[i].Tree = &wire
	}
	for i, msg := range batch {
		msg.SignatureResult(blobs[i])
	}
	q.log.Debugf("merkle batch: signed %d messages with one signature", len(batch))
	return nil
}
