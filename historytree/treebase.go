package historytree

import (
	"fmt"

	"github.com/henryaspegren/fastsig/aggs"
)

// treeBase holds the state and algorithms shared by history and merkle trees.
type treeBase struct {
	aggobj aggs.Aggregator
	store  Store
	time   int
	root   *NodeCursor

	// sealed is set once a merkle tree is frozen. Every node of a sealed tree
	// is final regardless of the frozen predicate.
	sealed bool
}

func newTreeBase(aggobj aggs.Aggregator, store Store) treeBase {
	t := treeBase{aggobj: aggobj, store: store, time: -1}
	if store.Time() >= 0 {
		t.updateTime(store.Time())
	}
	return t
}

// Version is the index of the most recent leaf, -1 when empty.
func (t *treeBase) Version() int { return t.time }

func (t *treeBase) Aggregator() aggs.Aggregator { return t.aggobj }
func (t *treeBase) Store() Store                { return t.store }

// Root returns nil for an empty tree.
func (t *treeBase) Root() *NodeCursor { return t.root }

func (t *treeBase) cursor(a Address) *NodeCursor { return newCursor(t.store, a) }

func (t *treeBase) updateTime(time int) {
	t.time = time
	t.store.UpdateTime(time)
	t.root = t.cursor(Address{Layer: RootLayer(time)})
}

// settled reports whether the aggregate at a is final for this tree.
func (t *treeBase) settled(a Address) bool {
	return t.sealed || a.IsFrozen(t.time)
}

// appendValue adds a leaf and caches the aggregate of every ancestor the new
// leaf completes.
func (t *treeBase) appendValue(value []byte) {
	t.updateTime(t.time + 1)
	leaf := t.forceLeaf(t.time)
	leaf.SetVal(value)
	leaf.SetAgg(t.aggobj.LeafAgg(value))

	for p := leaf.Parent(t.root); p != nil && p.IsFrozen(t.time); p = p.Parent(t.root) {
		p.SetAgg(t.aggobj.AggChildren(p.Left().Agg(), p.Right().Agg()))
	}
}

// forceLeaf materializes the path from the root to the leaf at version. The
// bits of version, most significant first, select right (1) or left (0).
func (t *treeBase) forceLeaf(version int) *NodeCursor {
	node := t.root
	node.MarkValid()
	for layer := node.Layer() - 1; layer >= 0; layer-- {
		if (version>>layer)&1 == 1 {
			node = node.ForceRight()
		} else {
			node = node.ForceLeft()
		}
	}
	return node
}

// Leaf returns the leaf appended at version. A pruned tree may not hold it,
// in which case ErrProof is returned.
func (t *treeBase) Leaf(version int) (*NodeCursor, error) {
	if version < 0 || version > t.time {
		return nil, fmt.Errorf("%w: leaf %d, time %d", ErrOutOfRange, version, t.time)
	}
	node := t.root
	if !node.IsValid() {
		return nil, fmt.Errorf("%w: tree has no root", ErrProof)
	}
	for layer := node.Layer() - 1; layer >= 0; layer-- {
		if (version>>layer)&1 == 1 {
			node = node.Right()
		} else {
			node = node.Left()
		}
		if node == nil {
			return nil, fmt.Errorf("%w: leaf %d is not present", ErrProof, version)
		}
	}
	return node, nil
}

// copyV adds the authentication path for version in src to this tree.
func (t *treeBase) copyV(src *treeBase, version int, includeValue bool) error {
	if version > t.time {
		return fmt.Errorf("%w: can not copy leaf %d after the current version %d", ErrProof, version, t.time)
	}
	if src.time < t.time {
		return fmt.Errorf("%w: source at version %d is older than %d", ErrProof, src.time, t.time)
	}
	srcLeaf, err := src.Leaf(version)
	if err != nil {
		return err
	}
	return t.copySiblingAggs(srcLeaf, t.forceLeaf(version), includeValue)
}

// copySiblingAggs walks from the leaf to the root of this tree. Each sibling
// off the path that is final at this tree's time becomes a stub holding the
// source aggregate, and path nodes are materialized with their aggregate when
// it is final. Any disagreement with aggregates already held is an ErrProof.
//
// The source may be taller than this tree, as it is when pruning to an older
// version, so the walk is bounded by this tree's root.
//
// On error the tree is left partially updated and should be discarded.
func (t *treeBase) copySiblingAggs(srcLeaf, leaf *NodeCursor, includeValues bool) error {
	if includeValues && srcLeaf.HasVal() {
		leaf.SetVal(srcLeaf.Val())
	}
	if err := leaf.copyAgg(srcLeaf); err != nil {
		return err
	}

	src := srcLeaf.store
	node := leaf
	for node.Layer() < t.root.Layer() {
		sib := node.addr.Sibling()
		srcSib := newCursor(src, sib)
		if srcSib.IsValid() && t.settled(sib) {
			dstSib := t.cursor(sib)
			if err := dstSib.copyAgg(srcSib); err != nil {
				return err
			}
			if includeValues && sib.IsLeaf() && srcSib.HasVal() {
				dstSib.SetVal(srcSib.Val())
			}
		}

		parent := node.addr.Parent()
		node = t.cursor(parent)
		node.MarkValid()
		if t.settled(parent) {
			if err := node.copyAgg(newCursor(src, parent)); err != nil {
				return err
			}
		}
	}
	return nil
}

// CheckStubs reports whether every stub aggregate satisfies pred. Verifiers
// use it to confirm that everything a proof omits is something they already
// trust.
func (t *treeBase) CheckStubs(pred func(agg []byte) bool) bool {
	return checkStubs(t.root, pred)
}

func checkStubs(node *NodeCursor, pred func([]byte) bool) bool {
	if node == nil || !node.IsValid() || node.IsLeaf() {
		return true
	}
	left, right := node.Left(), node.Right()
	if left == nil && right == nil {
		return pred(node.Agg())
	}
	return checkStubs(left, pred) && checkStubs(right, pred)
}

// ValueIndices returns, in ascending order, the indices of the materialized
// leaves whose value satisfies pred.
func (t *treeBase) ValueIndices(pred func(value []byte) bool) []int {
	if t.root == nil || !t.root.IsValid() {
		return nil
	}
	return valueIndices(t.root, pred, nil)
}

func valueIndices(node *NodeCursor, pred func([]byte) bool, out []int) []int {
	if node == nil {
		return out
	}
	if node.IsLeaf() {
		if node.HasVal() && pred(node.Val()) {
			out = append(out, node.Index())
		}
		return out
	}
	out = valueIndices(node.Left(), pred, out)
	return valueIndices(node.Right(), pred, out)
}
