package historytree

import (
	"github.com/bits-and-blooms/bitset"
)

// ArrayStore is a dense store indexed by in-order position. Entries may be
// overwritten, which merkle trees rely on when they pad on freeze.
type ArrayStore struct {
	time   int
	aggs   [][]byte
	vals   [][]byte
	hasVal *bitset.BitSet
	valid  *bitset.BitSet
}

func NewArrayStore() *ArrayStore {
	return &ArrayStore{
		time:   -1,
		hasVal: bitset.New(0),
		valid:  bitset.New(0),
	}
}

func (s *ArrayStore) Time() int           { return s.time }
func (s *ArrayStore) UpdateTime(time int) { s.time = time }

func (s *ArrayStore) IsValid(a Address) bool {
	return s.valid.Test(uint(a.InOrder()))
}

func (s *ArrayStore) MarkValid(a Address) {
	s.valid.Set(uint(a.InOrder()))
}

func (s *ArrayStore) Agg(a Address) []byte {
	pos := a.InOrder()
	if pos >= len(s.aggs) {
		return nil
	}
	return s.aggs[pos]
}

func (s *ArrayStore) SetAgg(a Address, agg []byte) {
	pos := a.InOrder()
	s.grow(pos)
	s.aggs[pos] = agg
}

func (s *ArrayStore) Val(a Address) []byte {
	pos := a.InOrder()
	if pos >= len(s.vals) {
		return nil
	}
	return s.vals[pos]
}

func (s *ArrayStore) HasVal(a Address) bool {
	return s.hasVal.Test(uint(a.InOrder()))
}

func (s *ArrayStore) SetVal(a Address, value []byte) {
	pos := a.InOrder()
	s.grow(pos)
	s.vals[pos] = value
	s.hasVal.Set(uint(pos))
}

func (s *ArrayStore) grow(pos int) {
	if pos < len(s.aggs) {
		return
	}
	n := max(pos+1, 2*len(s.aggs))
	s.aggs = append(s.aggs, make([][]byte, n-len(s.aggs))...)
	s.vals = append(s.vals, make([][]byte, n-len(s.vals))...)
}
