package historytree

import (
	"fmt"

	commoncbor "github.com/datatrails/go-datatrails-common/cbor"
	"github.com/fxamacker/cbor/v2"
	"github.com/henryaspegren/fastsig/aggs"
)

type TreeType uint8

const (
	TreeTypeNone TreeType = iota
	TreeTypeHistory
	TreeTypeMerkle
)

func (tt TreeType) String() string {
	switch tt {
	case TreeTypeNone:
		return "none"
	case TreeTypeHistory:
		return "history"
	case TreeTypeMerkle:
		return "merkle"
	default:
		return fmt.Sprintf("TreeType(%d)", uint8(tt))
	}
}

// WireNode is the serialized form of one node. A node with neither child is a
// leaf or a stub. A right child without a left child is malformed.
type WireNode struct {
	IsLeaf bool      `cbor:"1,keyasint,omitempty"`
	Value  []byte    `cbor:"2,keyasint,omitempty"`
	Agg    []byte    `cbor:"3,keyasint,omitempty"`
	Left   *WireNode `cbor:"4,keyasint,omitempty"`
	Right  *WireNode `cbor:"5,keyasint,omitempty"`
	// EmptyValue marks a leaf whose value is present but zero length, which
	// omitempty would otherwise drop.
	EmptyValue bool `cbor:"6,keyasint,omitempty"`
}

// WireTree is the envelope for a serialized (usually pruned) tree. The
// aggregator tag selects the aggregator from a Registry when parsing.
type WireTree struct {
	Version    int64     `cbor:"1,keyasint"`
	Aggregator string    `cbor:"2,keyasint"`
	TreeType   TreeType  `cbor:"3,keyasint"`
	Root       *WireNode `cbor:"4,keyasint,omitempty"`
}

// The wire node nests once per tree layer. The default decoder limit of 32
// would reject trees of more than a couple of billion leaves once wrapped
// in a signature blob.
const maxWireNesting = 256

// wireDecOptions rejects duplicate map keys, so a node can not carry two
// conflicting aggregates.
func wireDecOptions() cbor.DecOptions {
	decOpts := commoncbor.NewDeterministicDecOpts()
	decOpts.MaxNestedLevels = maxWireNesting
	decOpts.DupMapKey = cbor.DupMapKeyEnforcedAPF
	return decOpts
}

// NewCodec returns the deterministic CBOR codec used for wire trees and the
// structures that embed them.
func NewCodec() (commoncbor.CBORCodec, error) {
	codec, err := commoncbor.NewCBORCodec(commoncbor.NewDeterministicEncOpts(), wireDecOptions())
	if err != nil {
		return commoncbor.CBORCodec{}, err
	}
	return codec, nil
}

// DecodeWireTree decodes a serialized tree and resolves its aggregator.
func DecodeWireTree(codec commoncbor.CBORCodec, registry aggs.Registry, data []byte) (WireTree, aggs.Aggregator, error) {
	var w WireTree
	if err := codec.UnmarshalInto(data, &w); err != nil {
		return WireTree{}, nil, fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}
	aggobj, err := registry.Lookup(w.Aggregator)
	if err != nil {
		return WireTree{}, nil, err
	}
	return w, aggobj, nil
}

func (t *treeBase) wireTree(tt TreeType) WireTree {
	w := WireTree{
		Version:    int64(t.time),
		Aggregator: t.aggobj.Name(),
		TreeType:   tt,
	}
	if t.root != nil && t.root.IsValid() {
		w.Root = t.serializeNode(t.root)
	}
	return w
}

func (t *treeBase) serializeNode(node *NodeCursor) *WireNode {
	w := &WireNode{IsLeaf: node.IsLeaf()}
	if node.HasVal() {
		w.Value = node.Val()
		w.EmptyValue = len(w.Value) == 0
	}
	if agg := node.Agg(); agg != nil {
		w.Agg = t.aggobj.SerializeAgg(agg)
	}
	if left := node.Left(); left != nil {
		w.Left = t.serializeNode(left)
	}
	if right := node.Right(); right != nil {
		w.Right = t.serializeNode(right)
	}
	return w
}

// prepareParse checks the envelope and positions the tree at its version.
func (t *treeBase) prepareParse(w WireTree, tt TreeType) error {
	if w.TreeType != tt {
		return fmt.Errorf("%w: expected a %v tree, got %v", ErrInvalidProof, tt, w.TreeType)
	}
	if w.Aggregator != t.aggobj.Name() {
		return fmt.Errorf("%w: tree aggregator %q, expected %q", ErrInvalidProof, w.Aggregator, t.aggobj.Name())
	}
	if w.Version < 0 || w.Root == nil {
		return fmt.Errorf("%w: empty tree", ErrInvalidProof)
	}
	if t.time >= 0 {
		return fmt.Errorf("%w: can only parse into an empty tree", ErrInvalidProof)
	}
	t.updateTime(int(w.Version))
	return nil
}

// parseNode reads the node's own fields and reports whether it has no
// children, ie it is a leaf or a stub.
func (t *treeBase) parseNode(node *NodeCursor, w *WireNode) (bool, error) {
	if w.IsLeaf != node.IsLeaf() {
		return false, fmt.Errorf("%w: leaf flag disagrees with position %v", ErrInvalidProof, node)
	}
	if w.Left == nil && w.Right != nil {
		return false, fmt.Errorf("%w: right child without left at %v", ErrInvalidProof, node)
	}
	if node.IsLeaf() && w.Left != nil {
		return false, fmt.Errorf("%w: leaf with children at %v", ErrInvalidProof, node)
	}
	node.MarkValid()
	if w.Agg != nil {
		agg, err := t.aggobj.ParseAgg(w.Agg)
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrInvalidProof, err)
		}
		node.SetAgg(agg)
	}
	switch {
	case len(w.Value) > 0:
		node.SetVal(w.Value)
	case w.EmptyValue:
		node.SetVal([]byte{})
	}
	// A missing leaf aggregate can only have been an empty one dropped on
	// the wire, which is consistent only if the aggregator maps the value to
	// an empty aggregate.
	if w.Agg == nil && node.IsLeaf() {
		if agg := t.aggobj.LeafAgg(w.Value); len(agg) == 0 {
			node.SetAgg(agg)
		}
	}
	return w.Left == nil, nil
}
