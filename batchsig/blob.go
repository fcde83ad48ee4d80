package batchsig

import (
	"github.com/datatrails/go-datatrails-common/cbor"
	"github.com/henryaspegren/fastsig/historytree"
)

// SignatureBlob is what a signing queue hands back for each message and what
// a verifier needs to check it.
type SignatureBlob struct {
	SignerID  []byte             `cbor:"1,keyasint"`
	Algorithm SignatureAlgorithm `cbor:"2,keyasint"`
	Signature []byte             `cbor:"3,keyasint"`
	// Leaf is the message's leaf index. It is zero for simple signatures.
	Leaf uint64 `cbor:"4,keyasint"`
	// SpliceHints are last versions of earlier batches that the proof also
	// authenticates. A verifier that trusts one of those roots can link this
	// batch to it.
	SpliceHints []uint64              `cbor:"5,keyasint,omitempty"`
	TreeType    historytree.TreeType  `cbor:"6,keyasint"`
	Tree        *historytree.WireTree `cbor:"7,keyasint,omitempty"`
}

func (b *SignatureBlob) signature() Signature {
	return Signature{SignerID: b.SignerID, Algorithm: b.Algorithm, Bytes: b.Signature}
}

func newSignatureBlob(sig Signature, tt historytree.TreeType) *SignatureBlob {
	return &SignatureBlob{
		SignerID:  sig.SignerID,
		Algorithm: sig.Algorithm,
		Signature: sig.Bytes,
		TreeType:  tt,
	}
}

// RootState is the payload actually signed for a batch. Deterministic CBOR
// lets a verifier rebuild the exact signed bytes from a reconstructed root.
type RootState struct {
	TreeType   historytree.TreeType `cbor:"1,keyasint"`
	Version    uint64               `cbor:"2,keyasint"`
	Root       []byte               `cbor:"3,keyasint"`
	Aggregator string               `cbor:"4,keyasint"`
}

func EncodeSignatureBlob(codec cbor.CBORCodec, blob *SignatureBlob) ([]byte, error) {
	return codec.MarshalCBOR(blob)
}

func DecodeSignatureBlob(codec cbor.CBORCodec, data []byte) (*SignatureBlob, error) {
	var blob SignatureBlob
	if err := codec.UnmarshalInto(data, &blob); err != nil {
		return nil, err
	}
	return &blob, nil
}
