package batchsig

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/henryaspegren/fastsig/aggs"
	"github.com/henryaspegren/fastsig/historytree"
)

// VerifyQueue checks a batch of received messages while spending as few
// signature verifications as it can.
//
// Messages signed under the same root share one verification. For history
// tree messages, splice hints link a root to earlier roots by the same
// signer, so verifying the newest root of a chain establishes all of them.
type VerifyQueue struct {
	queueBase
	registry aggs.Registry
}

func NewVerifyQueue(log logger.Logger, prims SignaturePrimitives, opts ...QueueOption) (*VerifyQueue, error) {
	o, err := newQueueOptions(opts...)
	if err != nil {
		return nil, err
	}
	return &VerifyQueue{queueBase: newQueueBase(log, prims, o), registry: o.registry}, nil
}

// Flush reports a validity to every message added before the call, exactly
// once.
func (q *VerifyQueue) Flush(ctx context.Context) error {
	return q.flush(ctx, q.process)
}

// rootGroup is every message claiming one signature over one root.
type rootGroup struct {
	signer  []byte
	sig     Signature
	tt      historytree.TreeType
	version int
	root    []byte
	aggobj  aggs.Aggregator
	msgs    []Message
	valid   bool
}

func (g *rootGroup) payload(q *VerifyQueue) ([]byte, error) {
	return rootPayload(q.codec, g.tt, g.version, g.root, g.aggobj)
}

// rootID names a signed root independently of the signature bytes.
func rootID(signer []byte, aggName string, version int, root []byte) string {
	return fmt.Sprintf("%x/%s/%d/%x", signer, aggName, version, root)
}

func groupKey(id string, sig Signature) string {
	return id + "/" + hex.EncodeToString(sig.Bytes) + "/" + sig.Algorithm.String()
}

// parsedMessage is a tree message that passed the local checks.
type parsedMessage struct {
	key   string
	group *rootGroup
	hints []string
}

func (q *VerifyQueue) process(batch []Message) error {
	groups := make(map[string]*rootGroup)
	byRoot := make(map[string][]string)
	var parsed []parsedMessage
	simple, rejected := 0, 0

	for _, msg := range batch {
		blob := msg.SignatureBlob()
		if blob == nil {
			q.log.Debugf("rejecting message: %v", ErrMissingProof)
			msg.SignatureValidity(false)
			rejected++
			continue
		}
		if blob.TreeType == historytree.TreeTypeNone {
			msg.SignatureValidity(q.prims.Verify(msg.Data(), blob.signature()))
			simple++
			continue
		}
		p, err := q.check(msg, blob)
		if err != nil {
			q.log.Debugf("rejecting message: %v", err)
			msg.SignatureValidity(false)
			rejected++
			continue
		}
		key := groupKey(p.group.rootIDOf(), blob.signature())
		p.key = key
		g, ok := groups[key]
		if !ok {
			g = p.group
			groups[key] = g
			if g.tt == historytree.TreeTypeHistory {
				id := g.rootIDOf()
				byRoot[id] = append(byRoot[id], key)
			}
		}
		g.msgs = append(g.msgs, msg)
		p.group = g
		parsed = append(parsed, p)
	}

	dag := NewDag[string]()
	for key := range groups {
		dag.MakeOrGet(key)
	}
	for _, p := range parsed {
		from := dag.MakeOrGet(p.key)
		for _, id := range p.hints {
			for _, key := range byRoot[id] {
				to, _ := dag.Get(key)
				dag.AddEdge(from, to)
			}
		}
	}

	// Roots are checked newest first, so sources come before the roots they
	// vouch for. A valid root validates everything it reaches. A root left
	// unvouched for, including one reachable only from failed roots, is
	// checked on its own signature.
	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		gi, gj := groups[keys[i]], groups[keys[j]]
		if gi.version != gj.version {
			return gi.version > gj.version
		}
		return keys[i] < keys[j]
	})

	verifies := 0
	for _, key := range keys {
		g := groups[key]
		if g.valid {
			continue
		}
		payload, err := g.payload(q)
		if err != nil {
			return err
		}
		verifies++
		if !q.prims.Verify(payload, g.sig) {
			continue
		}
		node, _ := dag.Get(key)
		for _, n := range dag.Reachable(node) {
			groups[n.Key].valid = true
		}
	}

	for _, g := range groups {
		for _, msg := range g.msgs {
			msg.SignatureValidity(g.valid)
		}
	}
	q.log.Debugf("verified %d messages: %d roots, %d root verifications, %d simple, %d rejected",
		len(batch), len(groups), verifies, simple, rejected)
	return nil
}

func (g *rootGroup) rootIDOf() string {
	return rootID(g.signer, g.aggobj.Name(), g.version, g.root)
}

// check parses the message's proof and confirms the message is the leaf it
// claims to be. It does not verify any signature.
func (q *VerifyQueue) check(msg Message, blob *SignatureBlob) (parsedMessage, error) {
	if blob.Tree == nil {
		return parsedMessage{}, ErrMissingProof
	}
	aggobj, err := q.registry.Lookup(blob.Tree.Aggregator)
	if err != nil {
		return parsedMessage{}, err
	}
	g := &rootGroup{
		signer:  blob.SignerID,
		sig:     blob.signature(),
		tt:      blob.TreeType,
		version: int(blob.Tree.Version),
		aggobj:  aggobj,
	}
	p := parsedMessage{group: g}

	var leaf *historytree.NodeCursor
	switch blob.TreeType {
	case historytree.TreeTypeHistory:
		tree := historytree.NewHistoryTree(aggobj, historytree.NewHashStore())
		if err := tree.ParseWire(*blob.Tree); err != nil {
			return parsedMessage{}, err
		}
		if g.root, err = tree.Agg(); err != nil {
			return parsedMessage{}, err
		}
		if leaf, err = tree.Leaf(int(blob.Leaf)); err != nil {
			return parsedMessage{}, err
		}
		for _, hint := range blob.SpliceHints {
			if int(hint) >= g.version {
				return parsedMessage{}, fmt.Errorf("%w: hint %d is not before version %d", ErrSpliceHint, hint, g.version)
			}
			agg, err := tree.AggV(int(hint))
			if err != nil {
				return parsedMessage{}, fmt.Errorf("%w: %v", ErrSpliceHint, err)
			}
			p.hints = append(p.hints, rootID(g.signer, aggobj.Name(), int(hint), agg))
		}
	case historytree.TreeTypeMerkle:
		tree := historytree.NewMerkleTree(aggobj, historytree.NewHashStore())
		if err := tree.ParseWire(*blob.Tree); err != nil {
			return parsedMessage{}, err
		}
		g.root = tree.Agg()
		if leaf, err = tree.Leaf(int(blob.Leaf)); err != nil {
			return parsedMessage{}, err
		}
	default:
		return parsedMessage{}, fmt.Errorf("%w: %v", ErrUnknownTreeType, blob.TreeType)
	}

	if !bytes.Equal(leaf.Agg(), aggobj.LeafAgg(msg.Data())) {
		return parsedMessage{}, fmt.Errorf("%w: leaf %d", ErrLeafMismatch, blob.Leaf)
	}
	return p, nil
}
