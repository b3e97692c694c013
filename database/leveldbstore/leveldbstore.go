// Package leveldbstore is the production database.Database driver,
// backed by github.com/syndtr/goleveldb — the same underlying engine
// the teacher's database2/ffldb driver wraps (by way of its internal
// ldb package), used here directly rather than through the flat-file
// layer since the chain core stores block bytes and UTXO entries as
// ordinary key/value pairs rather than append-only flat files.
package leveldbstore

import (
	"bytes"

	"github.com/ledgerforge/chaincore/database"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// bloomFilterBits is the number of bits per key the bloom filter guarding
// reads is built with, the same figure the teacher's database2/ffldb
// driver configures its own underlying leveldb handle with: wide enough
// to make negative lookups (HasBlock/HasTransaction against an unknown
// hash) cheap without inflating the filter block size noticeably.
const bloomFilterBits = 10

const bucketSeparator = 0x00

var errTxClosed = errors.New("leveldbstore: transaction already closed")

// bucketKey prepends bucket and a separator byte to key, giving every
// bucket its own contiguous key range within the single leveldb
// keyspace. Buckets must not themselves contain bucketSeparator.
func bucketKey(bucket, key []byte) []byte {
	out := make([]byte, 0, len(bucket)+1+len(key))
	out = append(out, bucket...)
	out = append(out, bucketSeparator)
	out = append(out, key...)
	return out
}

// LevelDBStore is a database.Database backed by a single goleveldb
// instance.
type LevelDBStore struct {
	ldb *leveldb.DB
}

// Open opens (or creates) a leveldb database at path, with a bloom
// filter attached so the frequent "is this hash already known" probes
// every putBlock/putTransaction call makes don't walk an SST table on
// every miss.
func Open(path string) (*LevelDBStore, error) {
	options := &opt.Options{
		Filter: filter.NewBloomFilter(bloomFilterBits),
	}
	ldb, err := leveldb.OpenFile(path, options)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open leveldb at %s", path)
	}
	return &LevelDBStore{ldb: ldb}, nil
}

// Put implements database.DataAccessor.
func (s *LevelDBStore) Put(bucket, key, value []byte) error {
	return s.ldb.Put(bucketKey(bucket, key), value, nil)
}

// Get implements database.DataAccessor.
func (s *LevelDBStore) Get(bucket, key []byte) ([]byte, bool, error) {
	v, err := s.ldb.Get(bucketKey(bucket, key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// Has implements database.DataAccessor.
func (s *LevelDBStore) Has(bucket, key []byte) (bool, error) {
	return s.ldb.Has(bucketKey(bucket, key), nil)
}

// Delete implements database.DataAccessor.
func (s *LevelDBStore) Delete(bucket, key []byte) error {
	return s.ldb.Delete(bucketKey(bucket, key), nil)
}

// Cursor implements database.DataAccessor.
func (s *LevelDBStore) Cursor(bucket []byte) (database.Cursor, error) {
	prefix := append(append([]byte(nil), bucket...), bucketSeparator)
	it := s.ldb.NewIterator(util.BytesPrefix(prefix), nil)
	return &dbCursor{it: it, prefix: prefix}, nil
}

// Begin implements database.Database, opening a goleveldb batch-backed
// transaction. goleveldb has no native multi-op transaction, so writes
// accumulate in a leveldb.Batch and are applied atomically on Commit;
// reads within the transaction fall through to the underlying database,
// matching the teacher's documented "a Put within a transaction is not
// guaranteed visible to a Get in the same transaction" caveat.
func (s *LevelDBStore) Begin() (database.Transaction, error) {
	return &transaction{store: s, batch: new(leveldb.Batch)}, nil
}

// Close implements database.Database.
func (s *LevelDBStore) Close() error {
	return s.ldb.Close()
}

type transaction struct {
	store  *LevelDBStore
	batch  *leveldb.Batch
	closed bool
}

func (tx *transaction) Put(bucket, key, value []byte) error {
	if tx.closed {
		return errTxClosed
	}
	tx.batch.Put(bucketKey(bucket, key), value)
	return nil
}

func (tx *transaction) Get(bucket, key []byte) ([]byte, bool, error) {
	if tx.closed {
		return nil, false, errTxClosed
	}
	return tx.store.Get(bucket, key)
}

func (tx *transaction) Has(bucket, key []byte) (bool, error) {
	if tx.closed {
		return false, errTxClosed
	}
	return tx.store.Has(bucket, key)
}

func (tx *transaction) Delete(bucket, key []byte) error {
	if tx.closed {
		return errTxClosed
	}
	tx.batch.Delete(bucketKey(bucket, key))
	return nil
}

func (tx *transaction) Cursor(bucket []byte) (database.Cursor, error) {
	if tx.closed {
		return nil, errTxClosed
	}
	return tx.store.Cursor(bucket)
}

func (tx *transaction) Commit() error {
	if tx.closed {
		return errTxClosed
	}
	tx.closed = true
	return tx.store.ldb.Write(tx.batch, nil)
}

func (tx *transaction) Rollback() error {
	if tx.closed {
		return errTxClosed
	}
	tx.closed = true
	tx.batch.Reset()
	return nil
}

func (tx *transaction) RollbackUnlessClosed() error {
	if tx.closed {
		return nil
	}
	return tx.Rollback()
}

type dbCursor struct {
	it     iterator.Iterator
	prefix []byte
	began  bool
}

func (c *dbCursor) Next() bool {
	c.began = true
	return c.it.Next()
}

func (c *dbCursor) First() bool {
	c.began = true
	return c.it.First()
}

func (c *dbCursor) Seek(key []byte) bool {
	c.began = true
	return c.it.Seek(bucketKey(c.prefix[:len(c.prefix)-1], key))
}

func (c *dbCursor) Key() []byte {
	k := c.it.Key()
	if k == nil || !bytes.HasPrefix(k, c.prefix) {
		return nil
	}
	return append([]byte(nil), k[len(c.prefix):]...)
}

func (c *dbCursor) Value() []byte {
	v := c.it.Value()
	if v == nil {
		return nil
	}
	return append([]byte(nil), v...)
}

func (c *dbCursor) Error() error {
	return c.it.Error()
}

func (c *dbCursor) Close() error {
	c.it.Release()
	return nil
}
