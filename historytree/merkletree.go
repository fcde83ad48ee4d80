package historytree

import (
	"fmt"

	"github.com/datatrails/go-datatrails-common/cbor"
	"github.com/henryaspegren/fastsig/aggs"
)

// MerkleTree is a fixed set authenticated tree. It is appended to while
// building, then frozen, after which it is immutable and can produce proofs.
// Freezing pads the right edge with EmptyAgg so every interior node has two
// children.
type MerkleTree struct {
	treeBase
}

// NewMerkleTree panics if store is an *AppendOnlyStore, because freezing
// writes padding nodes beyond the last leaf.
func NewMerkleTree(aggobj aggs.Aggregator, store Store) *MerkleTree {
	if _, ok := store.(*AppendOnlyStore); ok {
		panic(ErrAppendOnlyMerkle)
	}
	return &MerkleTree{treeBase: newTreeBase(aggobj, store)}
}

func (t *MerkleTree) IsFrozen() bool { return t.sealed }

func (t *MerkleTree) Append(value []byte) {
	if t.sealed {
		panic(ErrFrozen)
	}
	t.appendValue(value)
}

// Freeze seals the tree. Every ancestor of the last leaf gets a right child,
// padded with EmptyAgg where none was appended, and its final aggregate.
func (t *MerkleTree) Freeze() {
	if t.sealed {
		panic(ErrDoubleFreeze)
	}
	t.sealed = true
	if t.time <= 0 {
		return
	}
	leaf := t.root
	for layer := leaf.Layer() - 1; layer >= 0; layer-- {
		if (t.time>>layer)&1 == 1 {
			leaf = leaf.Right()
		} else {
			leaf = leaf.Left()
		}
	}
	for node := leaf.Parent(t.root); node != nil; node = node.Parent(t.root) {
		node.MarkValid()
		right := node.Right()
		if right == nil {
			right = node.ForceRight()
			right.SetAgg(t.aggobj.EmptyAgg())
		}
		node.SetAgg(t.aggobj.AggChildren(node.Left().Agg(), right.Agg()))
	}
}

// Agg panics if the tree is not frozen. An empty tree has EmptyAgg.
func (t *MerkleTree) Agg() []byte {
	if !t.sealed {
		panic(ErrNotFrozen)
	}
	if t.root == nil {
		return t.aggobj.EmptyAgg()
	}
	return t.root.Agg()
}

// AggAtVersion mirrors HistoryTree.AggAtVersion, except that leaves not yet
// appended at version, and subtrees with nothing beneath them, count as
// EmptyAgg rather than absent.
func (t *MerkleTree) AggAtVersion(node *NodeCursor, version int) []byte {
	if node == nil {
		return nil
	}
	if node.IsFrozen(version) {
		return node.Agg()
	}
	if node.IsLeaf() {
		return t.aggobj.EmptyAgg()
	}
	left := t.AggAtVersion(node.Left(), version)
	right := t.AggAtVersion(node.Right(), version)
	if left == nil && right == nil {
		return t.aggobj.EmptyAgg()
	}
	return t.aggobj.AggChildren(left, right)
}

// MakePruned returns a frozen tree over store holding only the root
// aggregate. Proofs for individual leaves are added with CopyV.
func (t *MerkleTree) MakePruned(store Store) *MerkleTree {
	if !t.sealed {
		panic(ErrNotFrozen)
	}
	out := NewMerkleTree(t.aggobj, store)
	out.sealed = true
	if t.time < 0 {
		return out
	}
	out.updateTime(t.time)
	out.root.MarkValid()
	out.root.SetAgg(t.root.Agg())
	return out
}

// CopyV adds the proof for the leaf at version, taken from src.
func (t *MerkleTree) CopyV(src *MerkleTree, version int, includeValue bool) error {
	if !src.sealed {
		panic(ErrNotFrozen)
	}
	return t.copyV(&src.treeBase, version, includeValue)
}

func (t *MerkleTree) Wire() WireTree {
	if !t.sealed {
		panic(ErrNotFrozen)
	}
	return t.wireTree(TreeTypeMerkle)
}

func (t *MerkleTree) Serialize(codec cbor.CBORCodec) ([]byte, error) {
	return codec.MarshalCBOR(t.Wire())
}

// ParseWire rebuilds a frozen tree from w. Every expanded node must have both
// children and its aggregate is recomputed from them.
func (t *MerkleTree) ParseWire(w WireTree) error {
	if err := t.prepareParse(w, TreeTypeMerkle); err != nil {
		return err
	}
	t.sealed = true
	return t.parseSubtree(t.root, w.Root)
}

func (t *MerkleTree) parseSubtree(node *NodeCursor, w *WireNode) error {
	leafOrStub, err := t.parseNode(node, w)
	if err != nil {
		return err
	}
	if leafOrStub {
		// An empty aggregate does not survive omitempty on the wire. The only
		// childless node that may carry one is right edge padding.
		if node.Agg() == nil {
			node.SetAgg(t.aggobj.EmptyAgg())
		}
		return nil
	}
	if w.Right == nil {
		return fmt.Errorf("%w: merkle node %v is missing its right child", ErrInvalidProof, node)
	}
	left := node.ForceLeft()
	if err := t.parseSubtree(left, w.Left); err != nil {
		return err
	}
	right := node.ForceRight()
	if err := t.parseSubtree(right, w.Right); err != nil {
		return err
	}
	node.SetAgg(t.aggobj.AggChildren(left.Agg(), right.Agg()))
	return nil
}

// ParseMerkleTree decodes data into a new frozen tree over store.
func ParseMerkleTree(codec cbor.CBORCodec, registry aggs.Registry, store Store, data []byte) (*MerkleTree, error) {
	w, aggobj, err := DecodeWireTree(codec, registry, data)
	if err != nil {
		return nil, err
	}
	t := NewMerkleTree(aggobj, store)
	if err := t.ParseWire(w); err != nil {
		return nil, err
	}
	return t, nil
}
