package historytree

// Address identifies a node in the virtual complete binary tree. Layer 0
// holds the leaves, and the leaf index is the version at which it was
// appended.
//
//	layer
//	3                      (3,0)
//	                 /               \
//	2          (2,0)                   (2,1)
//	          /     \                 /     \
//	1     (1,0)     (1,1)         (1,2)     (1,3)
//	      /  \      /  \          /  \      /  \
//	0   (0,0)(0,1)(0,2)(0,3)   (0,4)(0,5)(0,6)(0,7)
type Address struct {
	Layer int
	Index int
}

func (a Address) Parent() Address  { return Address{Layer: a.Layer + 1, Index: a.Index >> 1} }
func (a Address) Left() Address    { return Address{Layer: a.Layer - 1, Index: a.Index << 1} }
func (a Address) Right() Address   { return Address{Layer: a.Layer - 1, Index: a.Index<<1 + 1} }
func (a Address) Sibling() Address { return Address{Layer: a.Layer, Index: a.Index ^ 1} }

func (a Address) IsLeaf() bool       { return a.Layer == 0 }
func (a Address) IsRightChild() bool { return a.Index&1 == 1 }

// FirstLeaf is the version of the leftmost leaf beneath the node.
func (a Address) FirstLeaf() int { return a.Index << a.Layer }

// LastLeaf is the version of the rightmost leaf beneath the node.
func (a Address) LastLeaf() int { return (a.Index+1)<<a.Layer - 1 }

// IsFrozen reports whether the node's aggregate is final as of version. A
// frozen node has every leaf beneath it appended, so no later append can
// change it.
func (a Address) IsFrozen(version int) bool {
	return version >= a.LastLeaf()
}

// InOrder is the position of the node in an in-order walk of the infinite
// tree. Positions never move as the tree grows, so dense stores can index by
// it directly: leaves land on even positions and a node sits between its two
// subtrees.
func (a Address) InOrder() int {
	return a.Index<<(a.Layer+1) + 1<<a.Layer - 1
}
