package batchsig

import (
	"context"
	"fmt"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/henryaspegren/fastsig/historytree"
)

type contact struct {
	version int
	batch   int
}

// HistoryQueue appends every batch to one long lived history tree and signs
// the new root once per flush.
//
// A message whose recipient was also sent messages in a recent batch carries
// a splice hint: the last version of that batch, whose path is added to the
// message's proof. A verifier holding messages from both batches can then
// establish both roots with a single signature check.
type HistoryQueue struct {
	queueBase
	tree         *historytree.HistoryTree
	spliceWindow int
	batches      int
	lastContact  map[string]contact

	// appended counts the leading messages of the pending batch already in
	// the tree from a flush that failed before delivering.
	appended int
}

// NewHistoryQueue creates a queue over an in memory AppendOnlyStore unless
// WithStore provides another.
func NewHistoryQueue(log logger.Logger, prims SignaturePrimitives, opts ...QueueOption) (*HistoryQueue, error) {
	o, err := newQueueOptions(opts...)
	if err != nil {
		return nil, err
	}
	store := o.store
	if store == nil {
		store = historytree.NewAppendOnlyStore()
	}
	return &HistoryQueue{
		queueBase:    newQueueBase(log, prims, o),
		tree:         historytree.NewHistoryTree(o.aggobj, store),
		spliceWindow: o.spliceWindow,
		lastContact:  make(map[string]contact),
	}, nil
}

// Tree exposes the live log. It must not be modified.
func (q *HistoryQueue) Tree() *historytree.HistoryTree { return q.tree }

func (q *HistoryQueue) Flush(ctx context.Context) error {
	return q.flush(ctx, q.process)
}

func (q *HistoryQueue) process(batch []Message) error {
	// A failed flush is retried with the same messages at the front of the
	// batch. Their leaves are signed now rather than appended twice.
	start := q.tree.Version() + 1 - q.appended
	for _, msg := range batch[q.appended:] {
		q.tree.Append(msg.Data())
	}
	q.appended = len(batch)
	if err := storeErr(q.tree.Store()); err != nil {
		return err
	}
	version := q.tree.Version()
	root, err := q.tree.Agg()
	if err != nil {
		return err
	}
	sig, err := q.signRoot(historytree.TreeTypeHistory, version, root)
	if err != nil {
		return err
	}
	batchNo := q.batches + 1

	blobs := make([]*SignatureBlob, len(batch))
	spliced := 0
	for i, msg := range batch {
		leaf := start + i
		pruned, err := q.tree.MakePruned(historytree.NewHashStore())
		if err != nil {
			return err
		}
		if err := pruned.CopyV(q.tree, leaf, false); err != nil {
			return err
		}
		blob := newSignatureBlob(sig, historytree.TreeTypeHistory)
		blob.Leaf = uint64(leaf)

		if c, ok := q.lastContact[msg.Recipient()]; ok && q.inWindow(batchNo, c) {
			if err := pruned.CopyV(q.tree, c.version, false); err != nil {
				return err
			}
			blob.SpliceHints = append(blob.SpliceHints, uint64(c.version))
			spliced++
		}
		wire := pruned.Wire()
		blob.Tree = &wire
		blobs[i] = blob
	}

	q.batches = batchNo
	q.appended = 0
	for _, msg := range batch {
		q.lastContact[msg.Recipient()] = contact{version: version, batch: batchNo}
	}
	for i, msg := range batch {
		msg.SignatureResult(blobs[i])
	}
	q.log.Debugf("history batch %d: %d messages, version %d, %d spliced", batchNo, len(batch), version, spliced)
	return nil
}

func (q *HistoryQueue) inWindow(batchNo int, c contact) bool {
	return q.spliceWindow == 0 || batchNo-c.batch <= q.spliceWindow
}

// storeErr surfaces the sticky error of stores that do I/O.
func storeErr(store historytree.Store) error {
	s, ok := store.(interface{ Err() error })
	if !ok || s.Err() == nil {
		return nil
	}
	return fmt.Errorf("history store: %w", s.Err())
}
