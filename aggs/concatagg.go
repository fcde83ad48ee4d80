package aggs

const ConcatAggName = "ConcatAgg"

// ConcatAgg renders the tree shape as text, eg "[[A,B],[C,]]". It has no
// security properties and exists so that tests can read aggregates.
type ConcatAgg struct{}

func NewConcatAgg() ConcatAgg { return ConcatAgg{} }

func (ConcatAgg) Name() string { return ConcatAggName }

func (ConcatAgg) LeafAgg(value []byte) []byte {
	out := make([]byte, len(value))
	copy(out, value)
	return out
}

func (ConcatAgg) AggChildren(left, right []byte) []byte {
	out := make([]byte, 0, len(left)+len(right)+3)
	out = append(out, '[')
	out = append(out, left...)
	out = append(out, ',')
	out = append(out, right...)
	return append(out, ']')
}

func (ConcatAgg) EmptyAgg() []byte { return []byte{} }

func (ConcatAgg) SerializeAgg(agg []byte) []byte { return agg }

func (ConcatAgg) ParseAgg(data []byte) ([]byte, error) { return data, nil }
