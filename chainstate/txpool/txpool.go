// Package txpool implements the TransactionPool (spec.md §4.3): the
// disk-pool of unconfirmed transactions waiting to be mined. Grounded
// on the teacher's domain/mempool/mempool.go TxPool, adapted from an
// in-memory pool/outpoints/depends set of maps to the persisted
// BlockStorage pool namespace — every transaction this package accepts
// is immediately durable, and "tentatively spent" bookkeeping is done
// through the same TransactionDescriptor.SpentBy table txmagnet uses
// for on-chain transactions, via the shared Magnet.SpendInputs /
// UnspendInputs helpers. Orphan handling (transactions with inputs
// that resolve to nothing at all, on-chain or in-pool) is out of
// scope for this package; see chainstate/txorphanage.
package txpool

import (
	"github.com/ledgerforge/chaincore/chainerr"
	"github.com/ledgerforge/chaincore/chainhash"
	"github.com/ledgerforge/chaincore/chainstate"
	"github.com/ledgerforge/chaincore/chainstate/txmagnet"
	"github.com/ledgerforge/chaincore/logger"
	"github.com/ledgerforge/chaincore/wire"
)

var log, _ = logger.Get(logger.SubsystemTags.POOL)

// Pool is the stateless TransactionPool: all of its state lives in the
// chainstate.BlockStorage it's handed, so a Pool is safe to share
// across goroutines (the facade still serializes callers).
type Pool struct {
	magnet *txmagnet.Magnet
}

// New creates a TransactionPool.
func New() *Pool {
	return &Pool{magnet: txmagnet.New()}
}

// AddTransactionToPool validates tx against the current chain/pool
// state and, on success, durably adds it to the disk-pool. A
// transaction may only enter the pool if every input resolves to an
// output that is itself on-chain or already in the pool, and unspent;
// a coinbase transaction is never poolable, per spec.md §3.
//
// This function MUST be called with the facade's exclusivity held (the
// caller passes a chainstate.StorageBatch, so this is one storage
// transaction).
func (p *Pool) AddTransactionToPool(batch chainstate.StorageBatch, txHash chainhash.Hash, tx *wire.MsgTx) error {
	if tx.IsCoinbase() {
		return chainerr.NewRuleError(chainerr.ErrMissingInputs, "coinbase transactions are not poolable")
	}

	if _, found, err := batch.GetTransactionDescriptor(txHash); err != nil {
		return err
	} else if found {
		return chainerr.NewRuleError(chainerr.ErrDuplicateTransaction, "transaction "+txHash.String()+" already known")
	}

	if err := p.magnet.SpendInputs(batch, txHash, tx, false); err != nil {
		return err
	}

	sequence, err := batch.NextPoolSequence()
	if err != nil {
		return err
	}
	if err := batch.PutTransactionToPool(txHash, tx, sequence); err != nil {
		return err
	}
	if err := batch.PutTransactionDescriptor(txHash, &chainstate.TransactionDescriptor{
		PoolSequence: sequence,
		SpentBy:      make(map[uint32]wire.OutPoint),
	}); err != nil {
		return err
	}

	log.Debugf("Added transaction %s to pool (sequence %d)", txHash, sequence)
	return nil
}

// RemoveTransactionFromPool releases tx's inputs and removes it from
// the disk-pool and the transaction index. It is a no-op if tx is not
// currently in the pool (e.g. it was already removed by a prior
// reorganize step).
func (p *Pool) RemoveTransactionFromPool(batch chainstate.StorageBatch, txHash chainhash.Hash, tx *wire.MsgTx) error {
	desc, found, err := batch.GetTransactionDescriptor(txHash)
	if err != nil {
		return err
	}
	if !found || !desc.InPool() {
		return nil
	}

	if err := p.magnet.UnspendInputs(batch, tx); err != nil {
		return err
	}
	if err := batch.DelTransactionFromPool(txHash); err != nil {
		return err
	}
	return batch.DelTransactionDescriptor(txHash)
}

// GetOldestTransactions returns up to count pool transaction hashes,
// ordered by insertion sequence (oldest first). Used when building
// candidate blocks, which is out of core scope.
func (p *Pool) GetOldestTransactions(storage chainstate.BlockStorage, count int) ([]chainhash.Hash, error) {
	return storage.GetOldestPoolTransactions(count)
}

// Exists reports whether txHash currently sits in the disk-pool
// (as opposed to on the best chain, or unknown).
func (p *Pool) Exists(batch chainstate.StorageBatch, txHash chainhash.Hash) (bool, error) {
	desc, found, err := batch.GetTransactionDescriptor(txHash)
	if err != nil || !found {
		return false, err
	}
	return desc.InPool(), nil
}
