package batchsig

import (
	"context"
	"sync"

	"github.com/datatrails/go-datatrails-common/cbor"
	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/henryaspegren/fastsig/aggs"
	"github.com/henryaspegren/fastsig/historytree"
)

// SigningQueue buffers messages and signs them in batches.
type SigningQueue interface {
	Add(msg Message)
	// Flush signs everything added before the call. Results are delivered
	// to the messages only once the whole batch is signed.
	Flush(ctx context.Context) error
	Pending() int
}

// queueBase is the buffering shared by the signing and verifying queues.
// Adds never wait for a flush in progress.
type queueBase struct {
	mu      sync.Mutex
	pending []Message

	flushMu sync.Mutex

	log    logger.Logger
	prims  SignaturePrimitives
	codec  cbor.CBORCodec
	aggobj aggs.Aggregator
}

func newQueueBase(log logger.Logger, prims SignaturePrimitives, o QueueOptions) queueBase {
	return queueBase{
		log:    log,
		prims:  prims,
		codec:  *o.codec,
		aggobj: o.aggobj,
	}
}

func (q *queueBase) Add(msg Message) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, msg)
}

func (q *queueBase) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *queueBase) take() []Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	batch := q.pending
	q.pending = nil
	return batch
}

// requeue puts a batch that failed to process back ahead of anything added
// since, so the next flush retries it in the same order.
func (q *queueBase) requeue(batch []Message) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(append(make([]Message, 0, len(batch)+len(q.pending)), batch...), q.pending...)
}

// flush serializes batches and hands each non empty one to process. process
// must deliver no results when it fails; the batch is then requeued.
func (q *queueBase) flush(ctx context.Context, process func([]Message) error) error {
	q.flushMu.Lock()
	defer q.flushMu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	batch := q.take()
	if len(batch) == 0 {
		return nil
	}
	if err := process(batch); err != nil {
		q.requeue(batch)
		return err
	}
	return nil
}

// rootPayload is the exact byte string signed for a tree root.
func rootPayload(codec cbor.CBORCodec, tt historytree.TreeType, version int, root []byte, aggobj aggs.Aggregator) ([]byte, error) {
	return codec.MarshalCBOR(RootState{
		TreeType:   tt,
		Version:    uint64(version),
		Root:       root,
		Aggregator: aggobj.Name(),
	})
}

func (q *queueBase) signRoot(tt historytree.TreeType, version int, root []byte) (Signature, error) {
	payload, err := rootPayload(q.codec, tt, version, root, q.aggobj)
	if err != nil {
		return Signature{}, err
	}
	return q.prims.Sign(payload)
}
