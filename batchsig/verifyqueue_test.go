package batchsig

import (
	"testing"

	"github.com/henryaspegren/fastsig/aggs"
	"github.com/henryaspegren/fastsig/historytree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// signTwoHistoryBatches signs the two batches used by the splice tests. Every
// batch 2 recipient except D also received a message in batch 1.
func signTwoHistoryBatches(t *testing.T, prims SignaturePrimitives) ([]*BasicMessage, []*BasicMessage) {
	t.Helper()
	q, err := NewHistoryQueue(testLogger(), prims)
	require.NoError(t, err)
	batch1 := newTestMessages(1, "A", "B", "C", "A", "B", "C")
	flushAll(t, q, batch1)
	batch2 := newTestMessages(2, "C", "B", "D", "B")
	flushAll(t, q, batch2)
	return batch1, batch2
}

func concat(batches ...[]*BasicMessage) []*BasicMessage {
	var out []*BasicMessage
	for _, b := range batches {
		out = append(out, b...)
	}
	return out
}

func TestVerifyHistorySpliced(t *testing.T) {
	tests := []struct {
		name     string
		pick     func(b1, b2 []*BasicMessage) []*BasicMessage
		verifies int64
	}{
		{"both batches", func(b1, b2 []*BasicMessage) []*BasicMessage { return concat(b1, b2) }, 1},
		{"batch one only", func(b1, _ []*BasicMessage) []*BasicMessage { return b1 }, 1},
		{"batch two only", func(_, b2 []*BasicMessage) []*BasicMessage { return b2 }, 1},
		{"unhinted recipient with batch one", func(b1, b2 []*BasicMessage) []*BasicMessage {
			return concat(b1, b2[2:3])
		}, 2},
		{"hinted recipient with batch one", func(b1, b2 []*BasicMessage) []*BasicMessage {
			return concat(b1[:1], b2[:1])
		}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prims := NewDigestPrimitive("alice")
			b1, b2 := signTwoHistoryBatches(t, prims)
			msgs := tt.pick(b1, b2)

			v, err := NewVerifyQueue(testLogger(), prims)
			require.NoError(t, err)
			prims.Reset()
			flushAll(t, v, msgs)

			assert.Equal(t, tt.verifies, prims.VerifyCount())
			requireValidity(t, msgs, true)
		})
	}
}

func TestVerifyCorruptedMessage(t *testing.T) {
	tests := []struct {
		name    string
		corrupt func(b1, b2 []*BasicMessage) *BasicMessage
	}{
		{"batch one message", func(b1, _ []*BasicMessage) *BasicMessage { return b1[2] }},
		{"hinted batch two message", func(_, b2 []*BasicMessage) *BasicMessage { return b2[0] }},
		{"unhinted batch two message", func(_, b2 []*BasicMessage) *BasicMessage { return b2[2] }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prims := NewDigestPrimitive("alice")
			b1, b2 := signTwoHistoryBatches(t, prims)
			bad := tt.corrupt(b1, b2)
			bad.SetData([]byte("forged"))

			v, err := NewVerifyQueue(testLogger(), prims)
			require.NoError(t, err)
			all := concat(b1, b2)
			flushAll(t, v, all)

			for i, m := range all {
				valid, checked := m.Validity()
				require.True(t, checked, "message %d", i)
				assert.Equal(t, m != bad, valid, "message %d", i)
			}
		})
	}
}

func TestVerifyBadSignature(t *testing.T) {
	prims := NewDigestPrimitive("alice")
	b1, b2 := signTwoHistoryBatches(t, prims)
	bad := b2[1]
	bad.SignatureBlob().Signature = []byte("not a signature")

	v, err := NewVerifyQueue(testLogger(), prims)
	require.NoError(t, err)
	prims.Reset()
	all := concat(b1, b2)
	flushAll(t, v, all)

	// One check for the genuine root, which vouches for batch one, and one
	// for the forged signature.
	assert.Equal(t, int64(2), prims.VerifyCount())
	for i, m := range all {
		valid, _ := m.Validity()
		assert.Equal(t, m != bad, valid, "message %d", i)
	}
}

func TestVerifyWrongSigner(t *testing.T) {
	b1, _ := signTwoHistoryBatches(t, NewDigestPrimitive("alice"))

	v, err := NewVerifyQueue(testLogger(), NewDigestPrimitive("mallory"))
	require.NoError(t, err)
	flushAll(t, v, b1)
	requireValidity(t, b1, false)
}

func TestVerifyRejectsMalformed(t *testing.T) {
	tests := []struct {
		name   string
		mangle func(m *BasicMessage)
	}{
		{"no blob", func(m *BasicMessage) { m.SignatureResult(nil) }},
		{"no tree", func(m *BasicMessage) { m.SignatureBlob().Tree = nil }},
		{"unknown tree type", func(m *BasicMessage) { m.SignatureBlob().TreeType = 9 }},
		{"unknown aggregator", func(m *BasicMessage) { m.SignatureBlob().Tree.Aggregator = "md5" }},
		{"leaf out of range", func(m *BasicMessage) { m.SignatureBlob().Leaf = 100 }},
		{"wrong leaf", func(m *BasicMessage) { m.SignatureBlob().Leaf = 7 }},
		{"hint not before version", func(m *BasicMessage) { m.SignatureBlob().SpliceHints = []uint64{9} }},
		{"hint not in proof", func(m *BasicMessage) { m.SignatureBlob().SpliceHints = []uint64{2} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prims := NewDigestPrimitive("alice")
			b1, b2 := signTwoHistoryBatches(t, prims)
			bad := b2[0]
			tt.mangle(bad)

			v, err := NewVerifyQueue(testLogger(), prims)
			require.NoError(t, err)
			all := concat(b1, b2)
			flushAll(t, v, all)

			for i, m := range all {
				valid, checked := m.Validity()
				require.True(t, checked, "message %d", i)
				assert.Equal(t, m != bad, valid, "message %d", i)
			}
		})
	}
}

func TestVerifyMerkle(t *testing.T) {
	prims := NewDigestPrimitive("alice")
	q, err := NewMerkleQueue(testLogger(), prims, WithAggregator(aggs.NewSHA3Agg()))
	require.NoError(t, err)
	b1 := newTestMessages(1, "A", "B", "C", "D", "E")
	flushAll(t, q, b1)
	b2 := newTestMessages(2, "A", "B")
	flushAll(t, q, b2)

	prims.Reset()
	v, err := NewVerifyQueue(testLogger(), prims)
	require.NoError(t, err)
	all := concat(b1, b2)
	flushAll(t, v, all)

	// Merkle batches are independent, so one check per batch.
	assert.Equal(t, int64(2), prims.VerifyCount())
	requireValidity(t, all, true)

	resetValidity(all)
	b1[3].SetData([]byte("forged"))
	flushAll(t, v, all)
	for i, m := range all {
		valid, _ := m.Validity()
		assert.Equal(t, m != b1[3], valid, "message %d", i)
	}
}

func TestVerifySimple(t *testing.T) {
	prims := NewDigestPrimitive("alice")
	q, err := NewSimpleQueue(testLogger(), prims)
	require.NoError(t, err)
	msgs := newTestMessages(1, "A", "B", "C")
	flushAll(t, q, msgs)
	msgs[1].SetData([]byte("forged"))

	prims.Reset()
	v, err := NewVerifyQueue(testLogger(), prims)
	require.NoError(t, err)
	flushAll(t, v, msgs)

	assert.Equal(t, int64(3), prims.VerifyCount())
	valid, _ := msgs[0].Validity()
	assert.True(t, valid)
	valid, _ = msgs[1].Validity()
	assert.False(t, valid)
	valid, _ = msgs[2].Validity()
	assert.True(t, valid)
}

func TestVerifyWithCachingSigner(t *testing.T) {
	prims := NewDigestPrimitive("alice")
	b1, b2 := signTwoHistoryBatches(t, prims)
	all := concat(b1, b2)

	cache, err := NewCachingSigner(prims, 0)
	require.NoError(t, err)
	v, err := NewVerifyQueue(testLogger(), cache)
	require.NoError(t, err)

	prims.Reset()
	flushAll(t, v, all)
	assert.Equal(t, int64(1), prims.VerifyCount())
	requireValidity(t, all, true)

	// A second pass is answered from the cache.
	resetValidity(all)
	prims.Reset()
	flushAll(t, v, all)
	assert.Equal(t, int64(0), prims.VerifyCount())
	requireValidity(t, all, true)

	cache.Reset()
	resetValidity(all)
	prims.Reset()
	flushAll(t, v, all)
	assert.Equal(t, int64(1), prims.VerifyCount())
	requireValidity(t, all, true)
}

func TestVerifyCoseSigned(t *testing.T) {
	signer := TestNewCoseSigner(t)
	q, err := NewHistoryQueue(testLogger(), signer)
	require.NoError(t, err)
	b1 := newTestMessages(1, "A", "B")
	flushAll(t, q, b1)
	b2 := newTestMessages(2, "A")
	flushAll(t, q, b2)

	assert.Equal(t, historytree.TreeTypeHistory, b2[0].SignatureBlob().TreeType)
	assert.Equal(t, []uint64{1}, b2[0].SignatureBlob().SpliceHints)

	v, err := NewVerifyQueue(testLogger(), signer)
	require.NoError(t, err)
	all := concat(b1, b2)
	flushAll(t, v, all)
	requireValidity(t, all, true)
}

func TestVerifyForgedRootDoesNotTaintSplicedRoots(t *testing.T) {
	prims := NewDigestPrimitive("alice")
	b1, b2 := signTwoHistoryBatches(t, prims)
	bad := b2[1]
	bad.SignatureBlob().Signature = []byte("not a signature")

	v, err := NewVerifyQueue(testLogger(), prims)
	require.NoError(t, err)
	prims.Reset()
	msgs := concat(b1, b2[1:2])
	flushAll(t, v, msgs)

	// The forged root vouches for nothing, so batch one is checked on its
	// own signature.
	assert.Equal(t, int64(2), prims.VerifyCount())
	requireValidity(t, b1, true)
	valid, checked := bad.Validity()
	assert.True(t, checked)
	assert.False(t, valid)
}
