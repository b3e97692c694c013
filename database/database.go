// Package database defines the key/value storage abstraction the chain
// core's storage layer is built on, grounded on the teacher's
// database2.Database/Transaction/Cursor interfaces. blockstore is the
// only package that talks to a database.Database directly; every other
// package reaches storage through blockstore's BlockStorage interface.
package database

// DataAccessor is the common read/write surface shared by Database and
// Transaction: put, get, and iterate key/value pairs scoped to a bucket.
type DataAccessor interface {
	// Put sets the value for the given key in the given bucket. It
	// overwrites any previous value for that key.
	Put(bucket, key, value []byte) error

	// Get gets the value for the given key in the given bucket. It
	// returns found=false if the key does not exist.
	Get(bucket, key []byte) (value []byte, found bool, err error)

	// Has returns true if the bucket contains the given key.
	Has(bucket, key []byte) (bool, error)

	// Delete deletes the value for the given key in the given bucket.
	// It does not return an error if the key doesn't exist.
	Delete(bucket, key []byte) error

	// Cursor begins a new cursor over the given bucket.
	Cursor(bucket []byte) (Cursor, error)
}

// Database is a handle to a key/value store that can begin atomic
// transactions and can be closed.
type Database interface {
	DataAccessor

	// Begin begins a new database transaction. How far the returned
	// Transaction is isolated depends on the driver: leveldbstore holds
	// writes back until Commit while its reads see the committed store,
	// and memdb writes straight through (see each driver's Begin).
	Begin() (Transaction, error)

	// Close closes the database and releases all associated resources.
	Close() error
}

// Transaction is an atomic, isolated view over a Database. Every write
// blockstore performs against storage — a new block, a spent outpoint,
// a pool entry — happens inside exactly one Transaction, satisfying
// spec.md §5's "one putBlock/putTransaction is one storage transaction"
// contract.
type Transaction interface {
	DataAccessor

	// Commit commits whatever changes were made to the database within
	// this transaction.
	Commit() error

	// Rollback rolls back whatever changes were made to the database
	// within this transaction.
	Rollback() error

	// RollbackUnlessClosed rolls back changes made within the
	// transaction, unless it was already closed by Commit or Rollback.
	// Callers defer this immediately after Begin so an early return or
	// panic never leaves a transaction open.
	RollbackUnlessClosed() error
}

// Cursor iterates over the key/value pairs of a single bucket in key
// order.
type Cursor interface {
	// Next moves the iterator to the next key/value pair. It returns
	// whether such a pair exists (false once the iterator is exhausted).
	// Returns false if the cursor is closed.
	Next() bool

	// First moves the iterator to the first key/value pair. It returns
	// whether such a pair exists.
	First() bool

	// Seek moves the iterator to the first key/value pair whose key is
	// greater than or equal to the given key. It returns whether such a
	// pair exists.
	Seek(key []byte) bool

	// Key returns the key of the current key/value pair, or nil if
	// done. The caller should not modify the returned slice.
	Key() []byte

	// Value returns the value of the current key/value pair, or nil if
	// done. The caller should not modify the returned slice.
	Value() []byte

	// Error returns any accumulated error. Exhausting all key/value
	// pairs is not considered to be an error.
	Error() error

	// Close releases resources associated with the cursor.
	Close() error
}
