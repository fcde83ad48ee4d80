package aggs

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"hash"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/sha3"
)

const (
	SHA256AggName    = "SHA256Agg"
	SHA256AggB64Name = "SHA256AggB64"
	SHA3AggName      = "SHA3Agg"
	Blake3AggName    = "Blake3Agg"
)

// Domain separation prefixes. Without them a leaf value could be crafted to
// collide with an interior node.
const (
	prefixLeaf      byte = 0x00
	prefixInterior  byte = 0x01
	prefixLeftOnly  byte = 0x02
	prefixEmptyNode byte = 0x03
)

// HashAgg is an Aggregator over any hash.Hash constructor.
//
//	leaf     = H(0x00 || value)
//	interior = H(0x01 || left || right)
//	partial  = H(0x02 || left)          right absent
//	empty    = H(0x03)
type HashAgg struct {
	name    string
	newHash func() hash.Hash
	b64     bool
}

func NewHashAgg(name string, newHash func() hash.Hash) HashAgg {
	return HashAgg{name: name, newHash: newHash}
}

func NewSHA256Agg() HashAgg { return NewHashAgg(SHA256AggName, sha256.New) }

// NewSHA256AggB64 has the same aggregates as NewSHA256Agg but serializes them
// as base64 text, for transports that only carry strings.
func NewSHA256AggB64() HashAgg {
	a := NewHashAgg(SHA256AggB64Name, sha256.New)
	a.b64 = true
	return a
}

func NewSHA3Agg() HashAgg { return NewHashAgg(SHA3AggName, sha3.New256) }

func NewBlake3Agg() HashAgg {
	return NewHashAgg(Blake3AggName, func() hash.Hash { return blake3.New() })
}

func (a HashAgg) Name() string { return a.name }

func (a HashAgg) sum(prefix byte, parts ...[]byte) []byte {
	hasher := a.newHash()
	hasher.Write([]byte{prefix})
	for _, p := range parts {
		hasher.Write(p)
	}
	return hasher.Sum(nil)
}

func (a HashAgg) LeafAgg(value []byte) []byte {
	return a.sum(prefixLeaf, value)
}

func (a HashAgg) AggChildren(left, right []byte) []byte {
	if right == nil {
		return a.sum(prefixLeftOnly, left)
	}
	return a.sum(prefixInterior, left, right)
}

func (a HashAgg) EmptyAgg() []byte {
	return a.sum(prefixEmptyNode)
}

func (a HashAgg) SerializeAgg(agg []byte) []byte {
	if !a.b64 {
		return agg
	}
	out := make([]byte, base64.StdEncoding.EncodedLen(len(agg)))
	base64.StdEncoding.Encode(out, agg)
	return out
}

func (a HashAgg) ParseAgg(data []byte) ([]byte, error) {
	size := a.newHash().Size()
	agg := data
	if a.b64 {
		agg = make([]byte, base64.StdEncoding.DecodedLen(len(data)))
		n, err := base64.StdEncoding.Decode(agg, data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrAggregateFormat, err)
		}
		agg = agg[:n]
	}
	if len(agg) != size {
		return nil, fmt.Errorf("%w: %s expects %d bytes, got %d", ErrAggregateFormat, a.name, size, len(agg))
	}
	return agg, nil
}
