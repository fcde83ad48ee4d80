package batchsig

import (
	"context"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/henryaspegren/fastsig/historytree"
)

// SimpleQueue signs every message individually. It is the baseline the
// tree queues are measured against.
type SimpleQueue struct {
	queueBase
}

func NewSimpleQueue(log logger.Logger, prims SignaturePrimitives, opts ...QueueOption) (*SimpleQueue, error) {
	o, err := newQueueOptions(opts...)
	if err != nil {
		return nil, err
	}
	return &SimpleQueue{queueBase: newQueueBase(log, prims, o)}, nil
}

func (q *SimpleQueue) Flush(ctx context.Context) error {
	return q.flush(ctx, q.process)
}

func (q *SimpleQueue) process(batch []Message) error {
	blobs := make([]*SignatureBlob, len(batch))
	for i, msg := range batch {
		sig, err := q.prims.Sign(msg.Data())
		if err != nil {
			return err
		}
		blobs[i] = newSignatureBlob(sig, historytree.TreeTypeNone)
	}
	for i, msg := range batch {
		msg.SignatureResult(blobs[i])
	}
	q.log.Debugf("simple batch: signed %d messages", len(batch))
	return nil
}
