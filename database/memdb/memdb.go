// Package memdb provides an in-memory database.Database, used by the
// chain core's unit tests in place of a real leveldb instance. It
// implements the same database.Database interface as
// database/leveldbstore, but its transactions are not isolated: they
// write straight through to the shared store (see Begin).
package memdb

import (
	"bytes"
	"sort"
	"sync"

	"github.com/ledgerforge/chaincore/database"
	"github.com/pkg/errors"
)

var errTxClosed = errors.New("memdb: transaction already closed")

type entry struct {
	key   []byte
	value []byte
}

// store is the shared mutable state behind a Database and every
// Transaction begun from it. A single global mutex is enough for the
// small data volumes chain-core unit tests deal with.
type store struct {
	mu      sync.Mutex
	buckets map[string]map[string][]byte
}

func newStore() *store {
	return &store{buckets: make(map[string]map[string][]byte)}
}

func (s *store) bucket(name []byte) map[string][]byte {
	b, ok := s.buckets[string(name)]
	if !ok {
		b = make(map[string][]byte)
		s.buckets[string(name)] = b
	}
	return b
}

// MemDB is an in-memory implementation of database.Database.
type MemDB struct {
	store *store
}

// New creates an empty in-memory database.
func New() *MemDB {
	return &MemDB{store: newStore()}
}

// Put implements database.DataAccessor.
func (db *MemDB) Put(bucket, key, value []byte) error {
	db.store.mu.Lock()
	defer db.store.mu.Unlock()
	valueCopy := append([]byte(nil), value...)
	db.store.bucket(bucket)[string(key)] = valueCopy
	return nil
}

// Get implements database.DataAccessor.
func (db *MemDB) Get(bucket, key []byte) ([]byte, bool, error) {
	db.store.mu.Lock()
	defer db.store.mu.Unlock()
	v, ok := db.store.bucket(bucket)[string(key)]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Has implements database.DataAccessor.
func (db *MemDB) Has(bucket, key []byte) (bool, error) {
	db.store.mu.Lock()
	defer db.store.mu.Unlock()
	_, ok := db.store.bucket(bucket)[string(key)]
	return ok, nil
}

// Delete implements database.DataAccessor.
func (db *MemDB) Delete(bucket, key []byte) error {
	db.store.mu.Lock()
	defer db.store.mu.Unlock()
	delete(db.store.bucket(bucket), string(key))
	return nil
}

// Cursor implements database.DataAccessor.
func (db *MemDB) Cursor(bucket []byte) (database.Cursor, error) {
	db.store.mu.Lock()
	defer db.store.mu.Unlock()
	b := db.store.bucket(bucket)
	entries := make([]entry, 0, len(b))
	for k, v := range b {
		entries = append(entries, entry{key: []byte(k), value: v})
	}
	sort.Slice(entries, func(i, j int) bool { return bytes.Compare(entries[i].key, entries[j].key) < 0 })
	return &cursor{entries: entries, pos: -1}, nil
}

// Begin implements database.Database. memdb transactions are not
// isolated from the parent store the way leveldbstore's are — they
// write straight through — since unit tests only need the Commit/
// Rollback call shape, not true snapshot isolation.
func (db *MemDB) Begin() (database.Transaction, error) {
	return &transaction{db: db}, nil
}

// Close implements database.Database.
func (db *MemDB) Close() error {
	return nil
}

type transaction struct {
	db     *MemDB
	closed bool
}

func (tx *transaction) Put(bucket, key, value []byte) error {
	if tx.closed {
		return errTxClosed
	}
	return tx.db.Put(bucket, key, value)
}

func (tx *transaction) Get(bucket, key []byte) ([]byte, bool, error) {
	if tx.closed {
		return nil, false, errTxClosed
	}
	return tx.db.Get(bucket, key)
}

func (tx *transaction) Has(bucket, key []byte) (bool, error) {
	if tx.closed {
		return false, errTxClosed
	}
	return tx.db.Has(bucket, key)
}

func (tx *transaction) Delete(bucket, key []byte) error {
	if tx.closed {
		return errTxClosed
	}
	return tx.db.Delete(bucket, key)
}

func (tx *transaction) Cursor(bucket []byte) (database.Cursor, error) {
	if tx.closed {
		return nil, errTxClosed
	}
	return tx.db.Cursor(bucket)
}

func (tx *transaction) Commit() error {
	if tx.closed {
		return errTxClosed
	}
	tx.closed = true
	return nil
}

func (tx *transaction) Rollback() error {
	if tx.closed {
		return errTxClosed
	}
	tx.closed = true
	return nil
}

func (tx *transaction) RollbackUnlessClosed() error {
	if tx.closed {
		return nil
	}
	return tx.Rollback()
}

type cursor struct {
	entries []entry
	pos     int
}

func (c *cursor) Next() bool {
	if c.pos+1 >= len(c.entries) {
		c.pos = len(c.entries)
		return false
	}
	c.pos++
	return true
}

func (c *cursor) First() bool {
	if len(c.entries) == 0 {
		return false
	}
	c.pos = 0
	return true
}

func (c *cursor) Seek(key []byte) bool {
	idx := sort.Search(len(c.entries), func(i int) bool {
		return bytes.Compare(c.entries[i].key, key) >= 0
	})
	if idx >= len(c.entries) {
		c.pos = len(c.entries)
		return false
	}
	c.pos = idx
	return true
}

func (c *cursor) Key() []byte {
	if c.pos < 0 || c.pos >= len(c.entries) {
		return nil
	}
	return c.entries[c.pos].key
}

func (c *cursor) Value() []byte {
	if c.pos < 0 || c.pos >= len(c.entries) {
		return nil
	}
	return c.entries[c.pos].value
}

func (c *cursor) Error() error {
	return nil
}

func (c *cursor) Close() error {
	c.entries = nil
	return nil
}
