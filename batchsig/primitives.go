package batchsig

import (
	"fmt"

	"github.com/veraison/go-cose"
)

// SignatureAlgorithm uses the COSE algorithm identifiers. Test only
// algorithms take values from the COSE private use range.
type SignatureAlgorithm int64

const (
	AlgorithmES256   = SignatureAlgorithm(cose.AlgorithmES256)
	AlgorithmES384   = SignatureAlgorithm(cose.AlgorithmES384)
	AlgorithmES512   = SignatureAlgorithm(cose.AlgorithmES512)
	AlgorithmPS256   = SignatureAlgorithm(cose.AlgorithmPS256)
	AlgorithmEd25519 = SignatureAlgorithm(cose.AlgorithmEd25519)

	AlgorithmTestDigest SignatureAlgorithm = -65537
)

func (a SignatureAlgorithm) String() string {
	if a == AlgorithmTestDigest {
		return "TEST_DIGEST"
	}
	return cose.Algorithm(a).String()
}

// Signature is the output of a signing primitive together with what a
// verifier needs to select the key.
type Signature struct {
	SignerID  []byte
	Algorithm SignatureAlgorithm
	Bytes     []byte
}

func (s Signature) String() string {
	return fmt.Sprintf("%v/%x", s.Algorithm, s.SignerID)
}

// SignaturePrimitives is the cryptographic capability the queues amortize.
// Verification failure is a result, not an error.
type SignaturePrimitives interface {
	Sign(data []byte) (Signature, error)
	Verify(data []byte, sig Signature) bool
}
