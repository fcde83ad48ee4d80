package historytree

import (
	"bytes"
	"fmt"
)

// AppendOnlyStore backs a live history log. Validity is implied by time: a
// node exists once its first leaf has been appended. Aggregates and values
// are write once, which matches history tree semantics where only frozen
// nodes are assigned aggregates.
type AppendOnlyStore struct {
	time int
	aggs [][]byte
	vals [][]byte
}

func NewAppendOnlyStore() *AppendOnlyStore {
	return &AppendOnlyStore{time: -1}
}

func (s *AppendOnlyStore) Time() int { return s.time }

func (s *AppendOnlyStore) UpdateTime(time int) {
	if time < s.time {
		panic(fmt.Errorf("%w: time %d is before %d", ErrStoreOverwrite, time, s.time))
	}
	s.time = time
	// every leaf position up to time is now addressable
	s.grow(2 * time)
}

func (s *AppendOnlyStore) IsValid(a Address) bool {
	return a.Index >= 0 && a.FirstLeaf() <= s.time
}

func (s *AppendOnlyStore) MarkValid(a Address) {
	if !s.IsValid(a) {
		panic(fmt.Errorf("%w: %v at time %d", ErrStoreBounds, a, s.time))
	}
}

func (s *AppendOnlyStore) Agg(a Address) []byte {
	pos := a.InOrder()
	if pos >= len(s.aggs) {
		return nil
	}
	return s.aggs[pos]
}

func (s *AppendOnlyStore) SetAgg(a Address, agg []byte) {
	s.MarkValid(a)
	pos := a.InOrder()
	s.grow(pos)
	if cur := s.aggs[pos]; cur != nil && !bytes.Equal(cur, agg) {
		panic(fmt.Errorf("%w: aggregate at %v", ErrStoreOverwrite, a))
	}
	s.aggs[pos] = agg
}

func (s *AppendOnlyStore) Val(a Address) []byte {
	pos := a.InOrder()
	if pos >= len(s.vals) {
		return nil
	}
	return s.vals[pos]
}

func (s *AppendOnlyStore) HasVal(a Address) bool {
	return s.Val(a) != nil
}

func (s *AppendOnlyStore) SetVal(a Address, value []byte) {
	s.MarkValid(a)
	pos := a.InOrder()
	s.grow(pos)
	if cur := s.vals[pos]; cur != nil && !bytes.Equal(cur, value) {
		panic(fmt.Errorf("%w: value at %v", ErrStoreOverwrite, a))
	}
	if value == nil {
		value = []byte{}
	}
	s.vals[pos] = value
}

func (s *AppendOnlyStore) grow(pos int) {
	if pos < len(s.aggs) {
		return
	}
	n := max(pos+1, 2*len(s.aggs))
	s.aggs = append(s.aggs, make([][]byte, n-len(s.aggs))...)
	s.vals = append(s.vals, make([][]byte, n-len(s.vals))...)
}
