package batchsig

import (
	"github.com/datatrails/go-datatrails-common/cbor"
	"github.com/henryaspegren/fastsig/aggs"
	"github.com/henryaspegren/fastsig/historytree"
)

// QueueOptions configures signing and verifying queues. Not every option
// applies to every queue.
type QueueOptions struct {
	aggobj       aggs.Aggregator
	codec        *cbor.CBORCodec
	store        historytree.Store
	spliceWindow int
	registry     aggs.Registry
}

type QueueOption func(*QueueOptions)

// WithAggregator selects the aggregator for trees built by signing queues.
// The default is SHA-256.
func WithAggregator(aggobj aggs.Aggregator) QueueOption {
	return func(o *QueueOptions) { o.aggobj = aggobj }
}

func WithCodec(codec cbor.CBORCodec) QueueOption {
	return func(o *QueueOptions) { o.codec = &codec }
}

// WithStore sets the store backing a HistoryQueue's live log, eg a
// historytree.LevelDBStore to survive restarts.
func WithStore(store historytree.Store) QueueOption {
	return func(o *QueueOptions) { o.store = store }
}

// WithSpliceWindow sets how many flushes back a recipient's previous batch
// may be and still be spliced. Zero removes the limit.
func WithSpliceWindow(batches int) QueueOption {
	return func(o *QueueOptions) { o.spliceWindow = batches }
}

// WithRegistry sets the aggregators a VerifyQueue accepts.
func WithRegistry(registry aggs.Registry) QueueOption {
	return func(o *QueueOptions) { o.registry = registry }
}

func newQueueOptions(opts ...QueueOption) (QueueOptions, error) {
	o := QueueOptions{
		spliceWindow: 1,
		registry:     aggs.DefaultRegistry(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.aggobj == nil {
		o.aggobj = aggs.NewSHA256Agg()
	}
	if o.codec == nil {
		codec, err := historytree.NewCodec()
		if err != nil {
			return QueueOptions{}, err
		}
		o.codec = &codec
	}
	return o, nil
}
