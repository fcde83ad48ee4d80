package historytree

import (
	"bytes"
	"fmt"
)

// NodeCursor resolves an Address against a Store. Cursors are cheap values
// computed on demand; a tree never holds pointers between nodes.
type NodeCursor struct {
	store Store
	addr  Address
}

func newCursor(store Store, addr Address) *NodeCursor {
	return &NodeCursor{store: store, addr: addr}
}

func (n *NodeCursor) Address() Address { return n.addr }
func (n *NodeCursor) Layer() int       { return n.addr.Layer }
func (n *NodeCursor) Index() int       { return n.addr.Index }
func (n *NodeCursor) IsLeaf() bool     { return n.addr.IsLeaf() }

func (n *NodeCursor) IsFrozen(version int) bool { return n.addr.IsFrozen(version) }

// Parent returns nil at the root.
func (n *NodeCursor) Parent(root *NodeCursor) *NodeCursor {
	if root == nil || n.addr.Layer >= root.addr.Layer {
		return nil
	}
	return newCursor(n.store, n.addr.Parent())
}

// Sibling returns the other child of the parent, or nil if it is not
// materialized.
func (n *NodeCursor) Sibling(root *NodeCursor) *NodeCursor {
	if n.Parent(root) == nil {
		return nil
	}
	return n.existing(n.addr.Sibling())
}

// Left returns nil for leaves and when the left child is not materialized.
func (n *NodeCursor) Left() *NodeCursor {
	if n.IsLeaf() {
		return nil
	}
	return n.existing(n.addr.Left())
}

func (n *NodeCursor) Right() *NodeCursor {
	if n.IsLeaf() {
		return nil
	}
	return n.existing(n.addr.Right())
}

// ForceLeft materializes the left child.
func (n *NodeCursor) ForceLeft() *NodeCursor {
	return n.force(n.addr.Left())
}

func (n *NodeCursor) ForceRight() *NodeCursor {
	return n.force(n.addr.Right())
}

// IsStub reports whether the node stands in for an omitted subtree.
func (n *NodeCursor) IsStub() bool {
	return !n.IsLeaf() && n.Left() == nil && n.Right() == nil
}

func (n *NodeCursor) IsValid() bool { return n.store.IsValid(n.addr) }
func (n *NodeCursor) MarkValid()    { n.store.MarkValid(n.addr) }

func (n *NodeCursor) Agg() []byte       { return n.store.Agg(n.addr) }
func (n *NodeCursor) SetAgg(agg []byte) { n.store.SetAgg(n.addr, agg) }

func (n *NodeCursor) Val() []byte         { return n.store.Val(n.addr) }
func (n *NodeCursor) HasVal() bool        { return n.store.HasVal(n.addr) }
func (n *NodeCursor) SetVal(value []byte) { n.store.SetVal(n.addr, value) }

// copyAgg takes the aggregate of src, which must agree with any aggregate
// already held for this node.
func (n *NodeCursor) copyAgg(src *NodeCursor) error {
	agg := src.Agg()
	if agg == nil {
		return fmt.Errorf("%w: no aggregate to copy at %v", ErrProof, src.addr)
	}
	if n.IsValid() {
		if cur := n.Agg(); cur != nil && !bytes.Equal(cur, agg) {
			return fmt.Errorf("%w: mismatched aggregates at %v", ErrProof, n.addr)
		}
	}
	n.MarkValid()
	n.SetAgg(agg)
	return nil
}

func (n *NodeCursor) existing(a Address) *NodeCursor {
	if !n.store.IsValid(a) {
		return nil
	}
	return newCursor(n.store, a)
}

func (n *NodeCursor) force(a Address) *NodeCursor {
	n.store.MarkValid(a)
	return newCursor(n.store, a)
}

func (n *NodeCursor) String() string {
	return fmt.Sprintf("(%d,%d)", n.addr.Layer, n.addr.Index)
}
