package historytree

import (
	"fmt"

	"github.com/datatrails/go-datatrails-common/cbor"
	"github.com/henryaspegren/fastsig/aggs"
)

// HistoryTree is an append only authenticated log. Every past version keeps
// a stable aggregate that can be proven against any later version.
type HistoryTree struct {
	treeBase
}

// NewHistoryTree creates a tree over store. A store that already holds a log
// (eg a reopened LevelDBStore) resumes at its recorded time.
func NewHistoryTree(aggobj aggs.Aggregator, store Store) *HistoryTree {
	return &HistoryTree{treeBase: newTreeBase(aggobj, store)}
}

// Append adds value as the leaf at Version()+1.
func (t *HistoryTree) Append(value []byte) {
	t.appendValue(value)
}

// Agg is the aggregate of the current version.
func (t *HistoryTree) Agg() ([]byte, error) {
	return t.AggV(t.time)
}

// AggV computes the aggregate the tree had when version was its most recent
// leaf. Walking up from the leaf, a node reached from its left child has no
// right subtree yet at version, and one reached from the right combines with
// its (necessarily frozen) left sibling. The walk stops below the first
// ancestor whose left half already covers version.
func (t *HistoryTree) AggV(version int) ([]byte, error) {
	r, err := t.AggVWithChildren(version)
	if err != nil {
		return nil, err
	}
	return r.Agg, nil
}

// AggWithChildren is a version aggregate together with the two child
// aggregates that produced it. Left and Right are nil for a single leaf tree,
// and Right is nil when the version has no right subtree.
type AggWithChildren struct {
	Agg   []byte
	Left  []byte
	Right []byte
}

func (t *HistoryTree) AggVWithChildren(version int) (AggWithChildren, error) {
	leaf, err := t.Leaf(version)
	if err != nil {
		return AggWithChildren{}, err
	}
	r := AggWithChildren{Agg: leaf.Agg()}
	if r.Agg == nil {
		return AggWithChildren{}, fmt.Errorf("%w: leaf %d has no aggregate", ErrProof, version)
	}
	node := leaf
	for {
		parent := node.Parent(t.root)
		if parent == nil || version < 1<<(parent.Layer()-1) {
			return r, nil
		}
		if node.addr.IsRightChild() {
			left := parent.Left()
			if left == nil || left.Agg() == nil {
				return AggWithChildren{}, fmt.Errorf("%w: missing left sibling of %v", ErrProof, node)
			}
			r.Left, r.Right = left.Agg(), r.Agg
		} else {
			r.Left, r.Right = r.Agg, nil
		}
		r.Agg = t.aggobj.AggChildren(r.Left, r.Right)
		node = parent
	}
}

// AggAtVersion computes the aggregate node had at version by recursion over
// whatever the tree holds beneath it. Absent subtrees, including leaves not
// yet appended at version, are nil. Merkle trees use EmptyAgg instead; the
// two conventions are kept deliberately distinct.
func (t *HistoryTree) AggAtVersion(node *NodeCursor, version int) []byte {
	if node == nil {
		return nil
	}
	if node.IsFrozen(version) {
		return node.Agg()
	}
	if node.IsLeaf() {
		return nil
	}
	left := t.AggAtVersion(node.Left(), version)
	right := t.AggAtVersion(node.Right(), version)
	if left == nil && right == nil {
		return nil
	}
	return t.aggobj.AggChildren(left, right)
}

// MakePruned returns a tree over store that authenticates only the current
// version: the path to the newest leaf, its value, and a stub for every
// sibling subtree.
func (t *HistoryTree) MakePruned(store Store) (*HistoryTree, error) {
	return t.MakePrunedAt(store, t.time)
}

// MakePrunedAt is MakePruned for an older version. The result has time
// version, so it proves exactly the commitment made when version was the
// newest leaf.
func (t *HistoryTree) MakePrunedAt(store Store, version int) (*HistoryTree, error) {
	if version < 0 || version > t.time {
		return nil, fmt.Errorf("%w: prune to %d, time %d", ErrOutOfRange, version, t.time)
	}
	srcLeaf, err := t.Leaf(version)
	if err != nil {
		return nil, err
	}
	out := NewHistoryTree(t.aggobj, store)
	out.updateTime(version)
	if err := out.copySiblingAggs(srcLeaf, out.forceLeaf(version), true); err != nil {
		return nil, err
	}
	return out, nil
}

// CopyV adds the proof for version, taken from src, to this pruned tree. src
// must be at least as new as this tree. A disagreement with any aggregate
// already held fails with ErrProof.
func (t *HistoryTree) CopyV(src *HistoryTree, version int, includeValue bool) error {
	return t.copyV(&src.treeBase, version, includeValue)
}

func (t *HistoryTree) Wire() WireTree {
	return t.wireTree(TreeTypeHistory)
}

func (t *HistoryTree) Serialize(codec cbor.CBORCodec) ([]byte, error) {
	return codec.MarshalCBOR(t.Wire())
}

// ParseWire rebuilds a tree from w. The receiving tree must be empty; its
// aggregator must match the one named by w. Aggregates of frozen expanded
// nodes are recomputed from their children rather than trusted.
func (t *HistoryTree) ParseWire(w WireTree) error {
	if err := t.prepareParse(w, TreeTypeHistory); err != nil {
		return err
	}
	return t.parseSubtree(t.root, w.Root)
}

func (t *HistoryTree) parseSubtree(node *NodeCursor, w *WireNode) error {
	leafOrStub, err := t.parseNode(node, w)
	if err != nil {
		return err
	}
	if leafOrStub {
		if node.Agg() == nil {
			return fmt.Errorf("%w: %v has no aggregate", ErrInvalidProof, node)
		}
		if !node.IsFrozen(t.time) {
			return fmt.Errorf("%w: stub %v is not frozen at version %d", ErrInvalidProof, node, t.time)
		}
		return nil
	}

	left := node.ForceLeft()
	if err := t.parseSubtree(left, w.Left); err != nil {
		return err
	}
	if w.Right == nil {
		if node.IsFrozen(t.time) {
			return fmt.Errorf("%w: frozen node %v is missing its right child", ErrInvalidProof, node)
		}
		return nil
	}
	if node.addr.Right().FirstLeaf() > t.time {
		return fmt.Errorf("%w: right child of %v lies after version %d", ErrInvalidProof, node, t.time)
	}
	right := node.ForceRight()
	if err := t.parseSubtree(right, w.Right); err != nil {
		return err
	}
	if node.IsFrozen(t.time) {
		node.SetAgg(t.aggobj.AggChildren(left.Agg(), right.Agg()))
	}
	return nil
}

// ParseHistoryTree decodes data into a new tree over store, selecting the
// aggregator named on the wire from registry.
func ParseHistoryTree(codec cbor.CBORCodec, registry aggs.Registry, store Store, data []byte) (*HistoryTree, error) {
	w, aggobj, err := DecodeWireTree(codec, registry, data)
	if err != nil {
		return nil, err
	}
	t := NewHistoryTree(aggobj, store)
	if err := t.ParseWire(w); err != nil {
		return nil, err
	}
	return t, nil
}
