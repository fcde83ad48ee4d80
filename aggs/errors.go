package aggs

import "errors"

var (
	ErrUnknownAggregator = errors.New("no aggregator is registered for the tag")
	ErrAggregateFormat   = errors.New("the serialized aggregate is malformed")
)
