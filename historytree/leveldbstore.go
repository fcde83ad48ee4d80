package historytree

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

const (
	levelKeyValid byte = 'n'
	levelKeyAgg   byte = 'a'
	levelKeyVal   byte = 'v'
)

var levelKeyTime = []byte("time")

// LevelDBStore persists a tree in leveldb so a history log survives restarts.
//
// The Store interface has no error returns, so the first I/O error is kept
// and reported by Err. Reads after a failure return nothing and writes are
// dropped; callers check Err after each batch.
type LevelDBStore struct {
	db   *leveldb.DB
	wo   *opt.WriteOptions
	log  logger.Logger
	time int
	err  error
}

type LevelDBStoreOption func(*LevelDBStore)

// WithSync makes every write durable before it returns.
func WithSync(sync bool) LevelDBStoreOption {
	return func(s *LevelDBStore) { s.wo = &opt.WriteOptions{Sync: sync} }
}

// OpenLevelDBStore opens (or creates) the database at path.
func OpenLevelDBStore(path string, log logger.Logger, opts ...LevelDBStoreOption) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	s, err := NewLevelDBStore(db, log, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewLevelDBStore wraps an already open database and recovers the time of
// the log it holds.
func NewLevelDBStore(db *leveldb.DB, log logger.Logger, opts ...LevelDBStoreOption) (*LevelDBStore, error) {
	s := &LevelDBStore{db: db, wo: &opt.WriteOptions{}, log: log, time: -1}
	for _, o := range opts {
		o(s)
	}
	b, err := db.Get(levelKeyTime, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	s.time, err = strconv.Atoi(string(b))
	if err != nil {
		return nil, fmt.Errorf("corrupt time record %q: %w", b, err)
	}
	log.Debugf("leveldb store reopened at time %d", s.time)
	return s, nil
}

// Err returns the first I/O error encountered.
func (s *LevelDBStore) Err() error { return s.err }

func (s *LevelDBStore) Close() error { return s.db.Close() }

func (s *LevelDBStore) Time() int { return s.time }

func (s *LevelDBStore) UpdateTime(time int) {
	s.time = time
	s.put(levelKeyTime, []byte(strconv.Itoa(time)))
}

func (s *LevelDBStore) IsValid(a Address) bool {
	if s.err != nil {
		return false
	}
	ok, err := s.db.Has(levelKey(levelKeyValid, a), nil)
	if err != nil {
		s.fail(err)
		return false
	}
	return ok
}

func (s *LevelDBStore) MarkValid(a Address) { s.put(levelKey(levelKeyValid, a), []byte{}) }

func (s *LevelDBStore) Agg(a Address) []byte { return s.get(levelKey(levelKeyAgg, a)) }

func (s *LevelDBStore) SetAgg(a Address, agg []byte) {
	if agg == nil {
		s.del(levelKey(levelKeyAgg, a))
		return
	}
	s.put(levelKey(levelKeyAgg, a), agg)
}

func (s *LevelDBStore) Val(a Address) []byte { return s.get(levelKey(levelKeyVal, a)) }

func (s *LevelDBStore) HasVal(a Address) bool {
	if s.err != nil {
		return false
	}
	ok, err := s.db.Has(levelKey(levelKeyVal, a), nil)
	if err != nil {
		s.fail(err)
		return false
	}
	return ok
}

func (s *LevelDBStore) SetVal(a Address, value []byte) {
	s.put(levelKey(levelKeyVal, a), value)
}

func (s *LevelDBStore) get(key []byte) []byte {
	if s.err != nil {
		return nil
	}
	b, err := s.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil
	}
	if err != nil {
		s.fail(err)
		return nil
	}
	if b == nil {
		b = []byte{}
	}
	return b
}

func (s *LevelDBStore) put(key, value []byte) {
	if s.err != nil {
		return
	}
	if err := s.db.Put(key, value, s.wo); err != nil {
		s.fail(err)
	}
}

func (s *LevelDBStore) del(key []byte) {
	if s.err != nil {
		return
	}
	if err := s.db.Delete(key, s.wo); err != nil {
		s.fail(err)
	}
}

func (s *LevelDBStore) fail(err error) {
	s.log.Infof("leveldb store failed: %v", err)
	s.err = err
}

// levelKey is kind || layer || big endian index
func levelKey(kind byte, a Address) []byte {
	k := make([]byte, 10)
	k[0] = kind
	k[1] = byte(a.Layer)
	binary.BigEndian.PutUint64(k[2:], uint64(a.Index))
	return k
}
