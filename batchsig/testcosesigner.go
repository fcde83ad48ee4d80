package batchsig

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/veraison/go-cose"
)

func TestGenerateECKey(t *testing.T, curve elliptic.Curve) *ecdsa.PrivateKey {
	key, err := ecdsa.GenerateKey(curve, rand.Reader)
	require.NoError(t, err)
	return key
}

func TestNewCoseSigner(t *testing.T) *CoseSigner {
	s, err := NewCoseSigner(cose.AlgorithmES256, TestGenerateECKey(t, elliptic.P256()), uuid.New())
	require.NoError(t, err)
	return s
}
