package batchsig

import (
	"crypto/sha256"
	"encoding/binary"

	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultVerifyCacheSize = 100

// CachingSigner remembers verified (data, signature) pairs so that repeated
// verification of the same root costs nothing. Failures are not cached.
type CachingSigner struct {
	prims SignaturePrimitives
	cache *lru.Cache[[sha256.Size]byte, struct{}]
}

func NewCachingSigner(prims SignaturePrimitives, size int) (*CachingSigner, error) {
	if size <= 0 {
		size = DefaultVerifyCacheSize
	}
	cache, err := lru.New[[sha256.Size]byte, struct{}](size)
	if err != nil {
		return nil, err
	}
	return &CachingSigner{prims: prims, cache: cache}, nil
}

func (c *CachingSigner) Sign(data []byte) (Signature, error) {
	return c.prims.Sign(data)
}

func (c *CachingSigner) Verify(data []byte, sig Signature) bool {
	key := cacheKey(data, sig)
	if c.cache.Contains(key) {
		return true
	}
	if !c.prims.Verify(data, sig) {
		return false
	}
	c.cache.Add(key, struct{}{})
	return true
}

// Reset forgets every verified pair.
func (c *CachingSigner) Reset() { c.cache.Purge() }

func (c *CachingSigner) Len() int { return c.cache.Len() }

// cacheKey digests the length prefixed fields so that no two distinct pairs
// share a key.
func cacheKey(data []byte, sig Signature) [sha256.Size]byte {
	h := sha256.New()
	var b [8]byte
	for _, field := range [][]byte{sig.SignerID, sig.Bytes, data} {
		binary.BigEndian.PutUint64(b[:], uint64(len(field)))
		h.Write(b[:])
		h.Write(field)
	}
	binary.BigEndian.PutUint64(b[:], uint64(sig.Algorithm))
	h.Write(b[:])
	var key [sha256.Size]byte
	h.Sum(key[:0])
	return key
}
