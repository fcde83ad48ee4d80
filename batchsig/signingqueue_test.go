package batchsig

import (
	"context"
	"sync"
	"testing"

	"github.com/henryaspegren/fastsig/aggs"
	"github.com/henryaspegren/fastsig/historytree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

func TestSimpleQueueSignsEachMessage(t *testing.T) {
	prims := NewDigestPrimitive("alice")
	q, err := NewSimpleQueue(testLogger(), prims)
	require.NoError(t, err)

	msgs := newTestMessages(1, "A", "B", "C")
	flushAll(t, q, msgs)

	assert.Equal(t, int64(3), prims.SignCount())
	assert.Equal(t, 0, q.Pending())
	for _, m := range msgs {
		blob := m.SignatureBlob()
		require.NotNil(t, blob)
		assert.Equal(t, historytree.TreeTypeNone, blob.TreeType)
		assert.Nil(t, blob.Tree)
		assert.True(t, prims.Verify(m.Data(), blob.signature()))
	}
}

func TestMerkleQueueSignsOncePerBatch(t *testing.T) {
	prims := NewDigestPrimitive("alice")
	q, err := NewMerkleQueue(testLogger(), prims)
	require.NoError(t, err)

	msgs := newTestMessages(1, "A", "B", "C", "D", "E")
	flushAll(t, q, msgs)

	assert.Equal(t, int64(1), prims.SignCount())
	for i, m := range msgs {
		blob := m.SignatureBlob()
		require.NotNil(t, blob)
		assert.Equal(t, historytree.TreeTypeMerkle, blob.TreeType)
		assert.Equal(t, uint64(i), blob.Leaf)
		assert.Empty(t, blob.SpliceHints)
		require.NotNil(t, blob.Tree)
		assert.Equal(t, int64(4), blob.Tree.Version)
	}
}

func TestHistoryQueueSignsOncePerBatch(t *testing.T) {
	prims := NewDigestPrimitive("alice")
	q, err := NewHistoryQueue(testLogger(), prims)
	require.NoError(t, err)

	msgs := newTestMessages(1, "A", "B", "C", "D")
	flushAll(t, q, msgs)

	assert.Equal(t, int64(1), prims.SignCount())
	for i, m := range msgs {
		blob := m.SignatureBlob()
		require.NotNil(t, blob)
		assert.Equal(t, historytree.TreeTypeHistory, blob.TreeType)
		assert.Equal(t, uint64(i), blob.Leaf)
		assert.Empty(t, blob.SpliceHints)
		assert.Equal(t, int64(3), blob.Tree.Version)
	}
}

func TestHistoryQueueSpliceHints(t *testing.T) {
	prims := NewDigestPrimitive("alice")
	q, err := NewHistoryQueue(testLogger(), prims)
	require.NoError(t, err)

	batch1 := newTestMessages(1, "A", "B", "C", "A", "B", "C")
	flushAll(t, q, batch1)
	batch2 := newTestMessages(2, "C", "B", "D", "B")
	flushAll(t, q, batch2)

	assert.Equal(t, int64(2), prims.SignCount())
	for _, m := range batch1 {
		assert.Empty(t, m.SignatureBlob().SpliceHints)
	}
	wantHints := [][]uint64{{5}, {5}, nil, {5}}
	for i, m := range batch2 {
		blob := m.SignatureBlob()
		assert.Equal(t, uint64(6+i), blob.Leaf)
		if wantHints[i] == nil {
			assert.Empty(t, blob.SpliceHints, "message %d", i)
		} else {
			assert.Equal(t, wantHints[i], blob.SpliceHints, "message %d", i)
		}
	}

	// The hinted proof reproduces the root signed for batch 1.
	pruned := historytree.NewHistoryTree(aggs.NewSHA256Agg(), historytree.NewHashStore())
	require.NoError(t, pruned.ParseWire(*batch2[0].SignatureBlob().Tree))
	agg, err := pruned.AggV(5)
	require.NoError(t, err)
	want, err := q.Tree().AggV(5)
	require.NoError(t, err)
	assert.Equal(t, want, agg)
}

func TestHistoryQueueSpliceWindow(t *testing.T) {
	tests := []struct {
		name   string
		window int
		want   []uint64
	}{
		{"adjacent only", 1, nil},
		{"two batches back", 2, []uint64{0}},
		{"unlimited", 0, []uint64{0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := NewHistoryQueue(testLogger(), NewDigestPrimitive("alice"), WithSpliceWindow(tt.window))
			require.NoError(t, err)

			flushAll(t, q, newTestMessages(1, "A"))
			flushAll(t, q, newTestMessages(2, "B"))
			last := newTestMessages(3, "A")
			flushAll(t, q, last)

			hints := last[0].SignatureBlob().SpliceHints
			if tt.want == nil {
				assert.Empty(t, hints)
			} else {
				assert.Equal(t, tt.want, hints)
			}
		})
	}
}

func TestHistoryQueueLevelDBStore(t *testing.T) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	require.NoError(t, err)
	defer db.Close()
	store, err := historytree.NewLevelDBStore(db, testLogger())
	require.NoError(t, err)

	q, err := NewHistoryQueue(testLogger(), NewDigestPrimitive("alice"), WithStore(store))
	require.NoError(t, err)
	flushAll(t, q, newTestMessages(1, "A", "B", "C"))
	require.NoError(t, store.Err())

	// A queue over the same database resumes the log.
	store2, err := historytree.NewLevelDBStore(db, testLogger())
	require.NoError(t, err)
	q2, err := NewHistoryQueue(testLogger(), NewDigestPrimitive("alice"), WithStore(store2))
	require.NoError(t, err)
	assert.Equal(t, 2, q2.Tree().Version())

	msgs := newTestMessages(2, "D")
	flushAll(t, q2, msgs)
	assert.Equal(t, uint64(3), msgs[0].SignatureBlob().Leaf)
}

func TestFlushEmptyAndCancelled(t *testing.T) {
	prims := NewDigestPrimitive("alice")
	q, err := NewHistoryQueue(testLogger(), prims)
	require.NoError(t, err)

	require.NoError(t, q.Flush(context.Background()))
	assert.Equal(t, int64(0), prims.SignCount())

	addAll(q, newTestMessages(1, "A"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, q.Flush(ctx), context.Canceled)
	assert.Equal(t, 1, q.Pending())
	assert.Equal(t, int64(0), prims.SignCount())

	require.NoError(t, q.Flush(context.Background()))
	assert.Equal(t, 0, q.Pending())
	assert.Equal(t, int64(1), prims.SignCount())
}

func TestSignatureBlobRoundTrip(t *testing.T) {
	q, err := NewHistoryQueue(testLogger(), NewDigestPrimitive("alice"))
	require.NoError(t, err)
	flushAll(t, q, newTestMessages(1, "A", "B"))
	msgs := newTestMessages(2, "A")
	flushAll(t, q, msgs)

	codec, err := historytree.NewCodec()
	require.NoError(t, err)
	blob := msgs[0].SignatureBlob()
	data, err := EncodeSignatureBlob(codec, blob)
	require.NoError(t, err)
	decoded, err := DecodeSignatureBlob(codec, data)
	require.NoError(t, err)

	assert.Equal(t, blob.SignerID, decoded.SignerID)
	assert.Equal(t, blob.Signature, decoded.Signature)
	assert.Equal(t, blob.Leaf, decoded.Leaf)
	assert.Equal(t, blob.SpliceHints, decoded.SpliceHints)
	assert.Equal(t, blob.TreeType, decoded.TreeType)

	// The decoded proof still establishes the same root.
	a := historytree.NewHistoryTree(aggs.NewSHA256Agg(), historytree.NewHashStore())
	require.NoError(t, a.ParseWire(*decoded.Tree))
	root, err := a.Agg()
	require.NoError(t, err)
	want, err := q.Tree().Agg()
	require.NoError(t, err)
	assert.Equal(t, want, root)

	_, err = DecodeSignatureBlob(codec, []byte{0xff})
	assert.Error(t, err)
}

func TestFlushFailureRequeuesBatch(t *testing.T) {
	tests := []struct {
		name     string
		newQueue func(prims SignaturePrimitives) (SigningQueue, error)
	}{
		{"simple", func(p SignaturePrimitives) (SigningQueue, error) { return NewSimpleQueue(testLogger(), p) }},
		{"merkle", func(p SignaturePrimitives) (SigningQueue, error) { return NewMerkleQueue(testLogger(), p) }},
		{"history", func(p SignaturePrimitives) (SigningQueue, error) { return NewHistoryQueue(testLogger(), p) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prims := NewDigestPrimitive("alice")
			q, err := tt.newQueue(&failingSigner{DigestPrimitive: prims, failures: 1})
			require.NoError(t, err)

			first := newTestMessages(1, "A", "B", "C")
			addAll(q, first)
			require.ErrorIs(t, q.Flush(context.Background()), errSignerUnavailable)
			assert.Equal(t, 3, q.Pending())
			for _, m := range first {
				assert.Nil(t, m.SignatureBlob())
			}

			late := newTestMessages(2, "D")
			flushAll(t, q, late)
			assert.Equal(t, 0, q.Pending())

			all := concat(first, late)
			v, err := NewVerifyQueue(testLogger(), prims)
			require.NoError(t, err)
			flushAll(t, v, all)
			requireValidity(t, all, true)
		})
	}
}

func TestHistoryQueueRetrySignsAppendedLeaves(t *testing.T) {
	prims := NewDigestPrimitive("alice")
	q, err := NewHistoryQueue(testLogger(), &failingSigner{DigestPrimitive: prims, failures: 1})
	require.NoError(t, err)

	first := newTestMessages(1, "A", "B", "C")
	addAll(q, first)
	require.Error(t, q.Flush(context.Background()))
	assert.Equal(t, 2, q.Tree().Version())

	late := newTestMessages(2, "D")
	flushAll(t, q, late)

	// The failed batch is signed where it was appended, not appended again.
	assert.Equal(t, 3, q.Tree().Version())
	assert.Equal(t, int64(1), prims.SignCount())
	for i, m := range concat(first, late) {
		blob := m.SignatureBlob()
		require.NotNil(t, blob, "message %d", i)
		assert.Equal(t, uint64(i), blob.Leaf)
		assert.Equal(t, int64(3), blob.Tree.Version)
	}
}

func TestAddDuringFlush(t *testing.T) {
	const writers, perWriter = 8, 50

	prims := NewDigestPrimitive("alice")
	q, err := NewHistoryQueue(testLogger(), prims)
	require.NoError(t, err)

	msgs := make([][]*BasicMessage, writers)
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		msgs[w] = newTestMessages(w, make([]string, perWriter)...)
		wg.Add(1)
		go func(batch []*BasicMessage) {
			defer wg.Done()
			for _, m := range batch {
				q.Add(m)
			}
		}(msgs[w])
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	flushes := 0
	for running := true; running; {
		select {
		case <-done:
			running = false
		default:
		}
		require.NoError(t, q.Flush(context.Background()))
		flushes++
	}
	require.NoError(t, q.Flush(context.Background()))
	assert.Equal(t, 0, q.Pending())
	assert.LessOrEqual(t, prims.SignCount(), int64(flushes+1))

	// Every message lands in exactly one batch, at its own leaf.
	seen := make(map[uint64]bool)
	for _, batch := range msgs {
		for _, m := range batch {
			blob := m.SignatureBlob()
			require.NotNil(t, blob)
			require.False(t, seen[blob.Leaf], "leaf %d issued twice", blob.Leaf)
			seen[blob.Leaf] = true
		}
	}
	assert.Len(t, seen, writers*perWriter)
	assert.Equal(t, writers*perWriter-1, q.Tree().Version())
}
