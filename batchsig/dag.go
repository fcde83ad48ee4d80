package batchsig

// Dag is a small directed acyclic graph keyed by K. The verify queue uses it
// to link each batch root to the earlier roots its proofs splice over.
type Dag[K comparable] struct {
	nodes map[K]*DagNode[K]
	order []*DagNode[K]
}

type DagNode[K comparable] struct {
	Key      K
	parents  []*DagNode[K]
	children []*DagNode[K]
}

func NewDag[K comparable]() *Dag[K] {
	return &Dag[K]{nodes: make(map[K]*DagNode[K])}
}

func (d *Dag[K]) Len() int { return len(d.nodes) }

func (d *Dag[K]) Get(key K) (*DagNode[K], bool) {
	n, ok := d.nodes[key]
	return n, ok
}

// MakeOrGet returns the node for key, creating it on first use.
func (d *Dag[K]) MakeOrGet(key K) *DagNode[K] {
	if n, ok := d.nodes[key]; ok {
		return n
	}
	n := &DagNode[K]{Key: key}
	d.nodes[key] = n
	d.order = append(d.order, n)
	return n
}

// AddEdge links parent to child. Repeated edges are ignored. The caller is
// responsible for not creating cycles.
func (d *Dag[K]) AddEdge(parent, child *DagNode[K]) {
	for _, c := range parent.children {
		if c == child {
			return
		}
	}
	parent.children = append(parent.children, child)
	child.parents = append(child.parents, parent)
}

func (n *DagNode[K]) Children() []*DagNode[K] { return n.children }
func (n *DagNode[K]) Parents() []*DagNode[K]  { return n.parents }

// Sources returns the nodes without parents in creation order.
func (d *Dag[K]) Sources() []*DagNode[K] {
	var out []*DagNode[K]
	for _, n := range d.order {
		if len(n.parents) == 0 {
			out = append(out, n)
		}
	}
	return out
}

// Reachable returns from and every node reachable from it, depth first.
func (d *Dag[K]) Reachable(from *DagNode[K]) []*DagNode[K] {
	seen := map[*DagNode[K]]bool{from: true}
	out := []*DagNode[K]{from}
	stack := []*DagNode[K]{from}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, c := range n.children {
			if seen[c] {
				continue
			}
			seen[c] = true
			out = append(out, c)
			stack = append(stack, c)
		}
	}
	return out
}
