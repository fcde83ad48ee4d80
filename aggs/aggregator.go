// Package aggs provides the aggregation functions used to combine tree nodes.
//
// An aggregate is an opaque byte string. A nil aggregate means "absent" and is
// deliberately distinct from the aggregator's EmptyAgg: history trees combine
// a left child with an absent right child, merkle trees pad the missing right
// child with EmptyAgg.
package aggs

// Aggregator combines leaf values and child aggregates into parent aggregates.
// Implementations must be pure and safe for concurrent use.
type Aggregator interface {
	// Name is the tag carried on the wire so a reader can select the
	// matching aggregator from a Registry.
	Name() string
	LeafAgg(value []byte) []byte
	// AggChildren combines left then right. Either side may be nil (absent).
	AggChildren(left, right []byte) []byte
	EmptyAgg() []byte
	SerializeAgg(agg []byte) []byte
	ParseAgg(data []byte) ([]byte, error)
}
