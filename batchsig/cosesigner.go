package batchsig

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/veraison/go-cose"
)

var ErrVerifyOnly = errors.New("signer has no private key")

// CoseSigner produces COSE Sign1 signatures with a detached payload. The
// payload is always rebuilt by the verifier, so only the protected headers
// and signature travel.
type CoseSigner struct {
	alg      cose.Algorithm
	keyID    []byte
	signer   cose.Signer
	verifier cose.Verifier
	public   crypto.PublicKey
}

// NewCoseSigner creates a signer for key. keyID is carried in the protected
// header and as the signer id of every signature.
func NewCoseSigner(alg cose.Algorithm, key crypto.Signer, keyID uuid.UUID) (*CoseSigner, error) {
	signer, err := cose.NewSigner(alg, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownAlgorithm, err)
	}
	s, err := NewCoseVerifier(alg, key.Public(), keyID)
	if err != nil {
		return nil, err
	}
	s.signer = signer
	return s, nil
}

// NewCoseVerifier creates a CoseSigner that can only verify.
func NewCoseVerifier(alg cose.Algorithm, public crypto.PublicKey, keyID uuid.UUID) (*CoseSigner, error) {
	verifier, err := cose.NewVerifier(alg, public)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownAlgorithm, err)
	}
	kid := keyID[:]
	return &CoseSigner{
		alg:      alg,
		keyID:    kid,
		verifier: verifier,
		public:   public,
	}, nil
}

func (s *CoseSigner) Algorithm() cose.Algorithm   { return s.alg }
func (s *CoseSigner) KeyID() []byte               { return s.keyID }
func (s *CoseSigner) PublicKey() crypto.PublicKey { return s.public }

func (s *CoseSigner) Sign(data []byte) (Signature, error) {
	if s.signer == nil {
		return Signature{}, ErrVerifyOnly
	}
	msg := cose.NewSign1Message()
	msg.Headers.Protected.SetAlgorithm(s.alg)
	msg.Headers.Protected[cose.HeaderLabelKeyID] = s.keyID
	msg.Payload = data
	if err := msg.Sign(rand.Reader, nil, s.signer); err != nil {
		return Signature{}, err
	}
	msg.Payload = nil
	encoded, err := msg.MarshalCBOR()
	if err != nil {
		return Signature{}, err
	}
	return Signature{
		SignerID:  s.keyID,
		Algorithm: SignatureAlgorithm(s.alg),
		Bytes:     encoded,
	}, nil
}

func (s *CoseSigner) Verify(data []byte, sig Signature) bool {
	if sig.Algorithm != SignatureAlgorithm(s.alg) || !bytes.Equal(sig.SignerID, s.keyID) {
		return false
	}
	var msg cose.Sign1Message
	if err := msg.UnmarshalCBOR(sig.Bytes); err != nil {
		return false
	}
	kid, ok := msg.Headers.Protected[cose.HeaderLabelKeyID].([]byte)
	if !ok || !bytes.Equal(kid, s.keyID) {
		return false
	}
	msg.Payload = data
	return msg.Verify(nil, s.verifier) == nil
}

// GenerateCoseSigner creates a signer with a fresh key. algo is one of
// "ecdsa" (bits 256, 384 or 521), "rsa" (bits of at least 2048, signing
// with PS256) or "ed25519" (bits ignored).
func GenerateCoseSigner(algo string, bits int) (*CoseSigner, error) {
	var alg cose.Algorithm
	var key crypto.Signer
	var err error

	switch algo {
	case "ecdsa":
		var curve elliptic.Curve
		switch bits {
		case 256:
			curve, alg = elliptic.P256(), cose.AlgorithmES256
		case 384:
			curve, alg = elliptic.P384(), cose.AlgorithmES384
		case 521:
			curve, alg = elliptic.P521(), cose.AlgorithmES512
		default:
			return nil, fmt.Errorf("%w: ecdsa %d", ErrKeySize, bits)
		}
		key, err = ecdsa.GenerateKey(curve, rand.Reader)
	case "rsa":
		if bits < 2048 {
			return nil, fmt.Errorf("%w: rsa %d", ErrKeySize, bits)
		}
		alg = cose.AlgorithmPS256
		key, err = rsa.GenerateKey(rand.Reader, bits)
	case "ed25519":
		alg = cose.AlgorithmEd25519
		_, key, err = ed25519.GenerateKey(rand.Reader)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algo)
	}
	if err != nil {
		return nil, err
	}
	return NewCoseSigner(alg, key, uuid.New())
}
