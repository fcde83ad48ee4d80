package historytree

import (
	"testing"

	"github.com/datatrails/go-datatrails-common/cbor"
	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/henryaspegren/fastsig/aggs"
	"github.com/stretchr/testify/require"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

var testNames = []string{
	"Alan", "Bob", "Charlie", "Dan", "Elen", "Frank",
	"Gordon", "Helen", "Isis", "Jon", "Kevin", "Laura",
}

// concatResults[i] is the aggregate after appending the first letters of
// testNames[0..i]
var concatResults = []string{
	"A",
	"[A,B]",
	"[[A,B],[C,]]",
	"[[A,B],[C,D]]",
	"[[[A,B],[C,D]],[[E,],]]",
	"[[[A,B],[C,D]],[[E,F],]]",
	"[[[A,B],[C,D]],[[E,F],[G,]]]",
	"[[[A,B],[C,D]],[[E,F],[G,H]]]",
	"[[[[A,B],[C,D]],[[E,F],[G,H]]],[[[I,],],]]",
	"[[[[A,B],[C,D]],[[E,F],[G,H]]],[[[I,J],],]]",
	"[[[[A,B],[C,D]],[[E,F],[G,H]]],[[[I,J],[K,]],]]",
	"[[[[A,B],[C,D]],[[E,F],[G,H]]],[[[I,J],[K,L]],]]",
}

func testValue(i int) []byte { return []byte(testNames[i][:1]) }

func newTestLevelDBStore(t *testing.T) *LevelDBStore {
	logger.New("NOOP")
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	s, err := NewLevelDBStore(db, logger.Sugar)
	require.NoError(t, err)
	return s
}

type storeCase struct {
	name     string
	newStore func(t *testing.T) Store
}

func historyStores() []storeCase {
	return []storeCase{
		{"appendonly", func(*testing.T) Store { return NewAppendOnlyStore() }},
		{"array", func(*testing.T) Store { return NewArrayStore() }},
		{"hash", func(*testing.T) Store { return NewHashStore() }},
		{"leveldb", func(t *testing.T) Store { return newTestLevelDBStore(t) }},
	}
}

func newConcatHistory(t *testing.T, store Store, n int) *HistoryTree {
	tree := NewHistoryTree(aggs.NewConcatAgg(), store)
	for i := range n {
		tree.Append(testValue(i))
	}
	require.Equal(t, n-1, tree.Version())
	return tree
}

func newConcatMerkle(t *testing.T, store Store, n int) *MerkleTree {
	tree := NewMerkleTree(aggs.NewConcatAgg(), store)
	for i := range n {
		tree.Append(testValue(i))
	}
	tree.Freeze()
	require.Equal(t, n-1, tree.Version())
	return tree
}

func newTestCodec(t *testing.T) cbor.CBORCodec {
	codec, err := NewCodec()
	require.NoError(t, err)
	return codec
}

func mustAggV(t *testing.T, tree *HistoryTree, version int) []byte {
	agg, err := tree.AggV(version)
	require.NoError(t, err)
	return agg
}
