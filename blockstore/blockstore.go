// Package blockstore is the concrete, database-backed implementation of
// chainstate.BlockStorage (spec.md's C1), grounded on the teacher's
// dagio.go/utxoio.go bucket layout and on-disk conventions, generalized
// from the teacher's multi-parent DAG index to the linear best-chain
// model spec.md §3 describes.
package blockstore

import (
	"github.com/ledgerforge/chaincore/chainhash"
	"github.com/ledgerforge/chaincore/chainstate"
	"github.com/ledgerforge/chaincore/database"
	"github.com/ledgerforge/chaincore/logger"
	"github.com/ledgerforge/chaincore/wire"
	"github.com/pkg/errors"
)

var log, _ = logger.Get(logger.SubsystemTags.STOR)

// Store is a database.Database-backed chainstate.BlockStorage.
type Store struct {
	db database.Database
}

// New wraps db as a chainstate.BlockStorage.
func New(db database.Database) *Store {
	return &Store{db: db}
}

// HasBlock implements chainstate.BlockStorage.
func (s *Store) HasBlock(hash chainhash.Hash) (bool, error) {
	return s.db.Has(bucketBlockInfo, hash[:])
}

// GetBlockInfo implements chainstate.BlockStorage.
func (s *Store) GetBlockInfo(hash chainhash.Hash) (*chainstate.BlockInfo, bool, error) {
	data, found, err := s.db.Get(bucketBlockInfo, hash[:])
	if err != nil || !found {
		return nil, found, err
	}
	info, err := deserializeBlockInfo(data)
	if err != nil {
		return nil, false, err
	}
	return info, true, nil
}

// GetBlockHeader implements chainstate.BlockStorage.
func (s *Store) GetBlockHeader(hash chainhash.Hash) (*wire.BlockHeader, bool, error) {
	info, found, err := s.GetBlockInfo(hash)
	if err != nil || !found {
		return nil, found, err
	}
	header := info.Header
	return &header, true, nil
}

// GetBlock implements chainstate.BlockStorage.
func (s *Store) GetBlock(hash chainhash.Hash) (*chainstate.BlockInfo, *wire.MsgBlock, bool, error) {
	info, found, err := s.GetBlockInfo(hash)
	if err != nil || !found {
		return nil, nil, found, err
	}
	data, found, err := s.db.Get(bucketBlockBytes, hash[:])
	if err != nil {
		return nil, nil, false, err
	}
	if !found {
		return nil, nil, false, errors.Errorf("block info present but bytes missing for %s", hash)
	}
	block, err := deserializeBlock(data)
	if err != nil {
		return nil, nil, false, err
	}
	return info, block, true, nil
}

// GetBestBlockHash implements chainstate.BlockStorage.
func (s *Store) GetBestBlockHash() (chainhash.Hash, bool, error) {
	data, found, err := s.db.Get(bucketMeta, metaBestBlockKey)
	if err != nil || !found {
		return chainhash.Hash{}, found, err
	}
	var hash chainhash.Hash
	if err := hash.SetBytes(data); err != nil {
		return chainhash.Hash{}, false, err
	}
	return hash, true, nil
}

// GetBlockHashByHeight implements chainstate.BlockStorage.
func (s *Store) GetBlockHashByHeight(height uint32) (chainhash.Hash, bool, error) {
	data, found, err := s.db.Get(bucketHeights, heightKey(height))
	if err != nil || !found {
		return chainhash.Hash{}, found, err
	}
	var hash chainhash.Hash
	if err := hash.SetBytes(data); err != nil {
		return chainhash.Hash{}, false, err
	}
	return hash, true, nil
}

// GetTransaction implements chainstate.BlockStorage.
func (s *Store) GetTransaction(hash chainhash.Hash) (*wire.MsgTx, bool, error) {
	desc, found, err := s.GetTransactionDescriptor(hash)
	if err != nil || !found {
		return nil, found, err
	}
	if desc.InPool() {
		data, found, err := s.db.Get(bucketPoolTx, hash[:])
		if err != nil || !found {
			return nil, found, err
		}
		tx, err := deserializeTx(data)
		return tx, true, err
	}

	_, block, found, err := s.GetBlock(desc.OnChain.BlockHash)
	if err != nil || !found {
		return nil, found, err
	}
	if int(desc.OnChain.Offset) >= len(block.Transactions) {
		return nil, false, errors.Errorf("tx descriptor offset %d out of range for block %s", desc.OnChain.Offset, desc.OnChain.BlockHash)
	}
	return block.Transactions[desc.OnChain.Offset], true, nil
}

// HasTransaction implements chainstate.BlockStorage.
func (s *Store) HasTransaction(hash chainhash.Hash) (bool, error) {
	return s.db.Has(bucketTxDesc, hash[:])
}

// GetTransactionDescriptor implements chainstate.BlockStorage.
func (s *Store) GetTransactionDescriptor(hash chainhash.Hash) (*chainstate.TransactionDescriptor, bool, error) {
	data, found, err := s.db.Get(bucketTxDesc, hash[:])
	if err != nil || !found {
		return nil, found, err
	}
	desc, err := deserializeTransactionDescriptor(data)
	if err != nil {
		return nil, false, err
	}
	return desc, true, nil
}

// GetOldestPoolTransactions implements chainstate.BlockStorage.
func (s *Store) GetOldestPoolTransactions(count int) ([]chainhash.Hash, error) {
	cur, err := s.db.Cursor(bucketPoolSeq)
	if err != nil {
		return nil, err
	}
	defer cur.Close()

	hashes := make([]chainhash.Hash, 0, count)
	for ok := cur.First(); ok && len(hashes) < count; ok = cur.Next() {
		var hash chainhash.Hash
		if err := hash.SetBytes(cur.Value()); err != nil {
			return nil, err
		}
		hashes = append(hashes, hash)
	}
	if err := cur.Error(); err != nil {
		return nil, err
	}
	return hashes, nil
}

// Update implements chainstate.BlockStorage. Every write is staged in
// an in-memory overlay (so later reads in the same fn see earlier
// writes in the same fn, which a raw database.Transaction does not
// guarantee — see leveldbstore's documented batch-read caveat) and
// flushed to a single database.Transaction only once fn returns nil.
func (s *Store) Update(fn func(chainstate.StorageBatch) error) error {
	dbTx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err := dbTx.RollbackUnlessClosed(); err != nil {
			log.Errorf("failed to roll back abandoned transaction: %s", err)
		}
	}()

	batch := newBatch(s, dbTx)
	if err := fn(batch); err != nil {
		return err
	}
	if err := batch.flush(); err != nil {
		return err
	}
	return dbTx.Commit()
}
