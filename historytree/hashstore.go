package historytree

type hashNode struct {
	agg    []byte
	val    []byte
	hasVal bool
}

// HashStore is a sparse store. Pruned trees use it because they only hold the
// nodes on the paths they authenticate.
type HashStore struct {
	time  int
	nodes map[Address]*hashNode
}

func NewHashStore() *HashStore {
	return &HashStore{time: -1, nodes: make(map[Address]*hashNode)}
}

func (s *HashStore) Time() int           { return s.time }
func (s *HashStore) UpdateTime(time int) { s.time = time }

// Len is the number of materialized nodes.
func (s *HashStore) Len() int { return len(s.nodes) }

func (s *HashStore) IsValid(a Address) bool {
	_, ok := s.nodes[a]
	return ok
}

func (s *HashStore) MarkValid(a Address) { s.node(a) }

func (s *HashStore) Agg(a Address) []byte {
	if n, ok := s.nodes[a]; ok {
		return n.agg
	}
	return nil
}

func (s *HashStore) SetAgg(a Address, agg []byte) { s.node(a).agg = agg }

func (s *HashStore) Val(a Address) []byte {
	if n, ok := s.nodes[a]; ok {
		return n.val
	}
	return nil
}

func (s *HashStore) HasVal(a Address) bool {
	n, ok := s.nodes[a]
	return ok && n.hasVal
}

func (s *HashStore) SetVal(a Address, value []byte) {
	n := s.node(a)
	n.val = value
	n.hasVal = true
}

func (s *HashStore) node(a Address) *hashNode {
	n, ok := s.nodes[a]
	if !ok {
		n = &hashNode{}
		s.nodes[a] = n
	}
	return n
}
