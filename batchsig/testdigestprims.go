package batchsig

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"sync/atomic"
)

// DigestPrimitive is a stand in signer for tests and benchmarks. A signature
// is the base64 SHA-256 of the signer id and the data, so it is cheap and
// anyone can forge one. It counts the operations it performs.
type DigestPrimitive struct {
	signerID []byte
	signs    atomic.Int64
	verifies atomic.Int64
}

func NewDigestPrimitive(signerID string) *DigestPrimitive {
	return &DigestPrimitive{signerID: []byte(signerID)}
}

func (p *DigestPrimitive) digest(data []byte) []byte {
	h := sha256.New()
	h.Write(p.signerID)
	h.Write(data)
	sum := h.Sum(nil)
	out := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(out, sum)
	return out
}

func (p *DigestPrimitive) Sign(data []byte) (Signature, error) {
	p.signs.Add(1)
	return Signature{
		SignerID:  p.signerID,
		Algorithm: AlgorithmTestDigest,
		Bytes:     p.digest(data),
	}, nil
}

func (p *DigestPrimitive) Verify(data []byte, sig Signature) bool {
	p.verifies.Add(1)
	return sig.Algorithm == AlgorithmTestDigest &&
		bytes.Equal(sig.SignerID, p.signerID) &&
		bytes.Equal(sig.Bytes, p.digest(data))
}

func (p *DigestPrimitive) SignCount() int64   { return p.signs.Load() }
func (p *DigestPrimitive) VerifyCount() int64 { return p.verifies.Load() }

func (p *DigestPrimitive) Reset() {
	p.signs.Store(0)
	p.verifies.Store(0)
}
