// Package chainstate defines the shared types and storage interfaces
// that the Blockchain facade (package blockchain) and the
// magnet/pool/orphanage/inventory subpackages are built on. It is grounded on the teacher's domain/consensus
// scaffold (consensus.go wiring a facade out of constructor-injected
// collaborators) generalized from a DAG to a linear best-chain model.
package chainstate

import (
	"math/big"

	"github.com/ledgerforge/chaincore/chainhash"
	"github.com/ledgerforge/chaincore/wire"
)

// BlockInfo is the metadata kept per known block, whether it sits on
// the best chain or on a fork.
type BlockInfo struct {
	Height           uint32
	Header           wire.BlockHeader
	ChainWork        *big.Int
	NextBlockHash    *chainhash.Hash
	TransactionCount uint32
	BlockSize        uint32
}

// Clone returns a deep copy of the BlockInfo, so callers holding a
// pointer returned from storage never observe a later in-place mutation.
func (bi *BlockInfo) Clone() *BlockInfo {
	clone := *bi
	if bi.ChainWork != nil {
		clone.ChainWork = new(big.Int).Set(bi.ChainWork)
	}
	if bi.NextBlockHash != nil {
		next := *bi.NextBlockHash
		clone.NextBlockHash = &next
	}
	return &clone
}

// TxLocation pinpoints a transaction stored on the best chain: the
// block it lives in and its index within that block's transaction list.
type TxLocation struct {
	BlockHash chainhash.Hash
	Offset    uint32
}

// TransactionDescriptor records where a transaction's bytes live — on
// the best chain (OnChain set) or in the disk-pool (PoolSequence set,
// OnChain nil) — plus, for each of its output indices, the outpoint of
// the best-chain input currently spending it, if any. A transaction
// hash appears in at most one location, per spec.md §3 invariant 3.
type TransactionDescriptor struct {
	OnChain      *TxLocation
	PoolSequence uint64
	SpentBy      map[uint32]wire.OutPoint
}

// InPool reports whether the descriptor represents a disk-pool entry.
func (d *TransactionDescriptor) InPool() bool {
	return d.OnChain == nil
}

// IsOutputSpent reports whether output index is marked spent, and by
// which outpoint.
func (d *TransactionDescriptor) IsOutputSpent(index uint32) (wire.OutPoint, bool) {
	spender, ok := d.SpentBy[index]
	return spender, ok
}

// StorageBatch is the atomic write surface blockstore hands to exactly
// one call of BlockStorage.Update per putBlock/putTransaction/reorg, per
// spec.md §5's transactional-boundary contract. Reads made through a
// StorageBatch observe every write made earlier in the same batch.
type StorageBatch interface {
	// HasBlock reports whether hash is known, including writes staged
	// earlier in this batch.
	HasBlock(hash chainhash.Hash) (bool, error)

	// GetBlockInfo returns the metadata for hash, including writes
	// staged earlier in this batch.
	GetBlockInfo(hash chainhash.Hash) (*BlockInfo, bool, error)

	// GetBlock returns the metadata and full block for hash.
	GetBlock(hash chainhash.Hash) (*BlockInfo, *wire.MsgBlock, bool, error)

	// PutBlock persists a new block's bytes and metadata together.
	PutBlock(hash chainhash.Hash, info *BlockInfo, block *wire.MsgBlock) error

	// PutBlockInfo rewrites the metadata of an already-stored block,
	// used to update NextBlockHash pointers during attach/detach.
	PutBlockInfo(hash chainhash.Hash, info *BlockInfo) error

	// GetBestBlockHash returns the current best-block hash.
	GetBestBlockHash() (chainhash.Hash, bool, error)

	// PutBestBlockHash sets the best-block hash.
	PutBestBlockHash(hash chainhash.Hash) error

	// GetBlockHashByHeight returns the hash registered for height on
	// the best chain.
	GetBlockHashByHeight(height uint32) (chainhash.Hash, bool, error)

	// PutBlockHashByHeight registers hash as the best-chain block at
	// height.
	PutBlockHashByHeight(height uint32, hash chainhash.Hash) error

	// DelBlockHashByHeight removes the height→hash registration,
	// used when a branch is detached past the current best height.
	DelBlockHashByHeight(height uint32) error

	// GetTransaction returns the transaction bytes for hash, searching
	// both the best chain and the disk-pool.
	GetTransaction(hash chainhash.Hash) (*wire.MsgTx, bool, error)

	// GetTransactionDescriptor returns the descriptor for hash.
	GetTransactionDescriptor(hash chainhash.Hash) (*TransactionDescriptor, bool, error)

	// PutTransactionDescriptor persists the descriptor for hash.
	PutTransactionDescriptor(hash chainhash.Hash, desc *TransactionDescriptor) error

	// DelTransactionDescriptor removes every trace of hash's
	// descriptor, used when a transaction is fully evicted.
	DelTransactionDescriptor(hash chainhash.Hash) error

	// PutTransactionToPool stores tx's serialized bytes under hash in
	// the disk-pool namespace, indexed under sequence for ordering by
	// GetOldestPoolTransactions.
	PutTransactionToPool(hash chainhash.Hash, tx *wire.MsgTx, sequence uint64) error

	// DelTransactionFromPool removes hash's bytes, and its ordering
	// index entry, from the disk-pool namespace.
	DelTransactionFromPool(hash chainhash.Hash) error

	// NextPoolSequence allocates the next disk-pool insertion sequence
	// number, used to order GetOldestPoolTransactions.
	NextPoolSequence() (uint64, error)
}

// BlockStorage is the abstract contract the chain core depends on
// (spec.md §6, "BlockStorage (consumed)"). blockstore.Store is its
// concrete, database-backed implementation; chainstate's magnets and
// pools are written against this interface only, so they can be tested
// against an in-memory fake.
type BlockStorage interface {
	HasBlock(hash chainhash.Hash) (bool, error)
	GetBlock(hash chainhash.Hash) (*BlockInfo, *wire.MsgBlock, bool, error)
	GetBlockInfo(hash chainhash.Hash) (*BlockInfo, bool, error)
	GetBlockHeader(hash chainhash.Hash) (*wire.BlockHeader, bool, error)
	GetBestBlockHash() (chainhash.Hash, bool, error)
	GetBlockHashByHeight(height uint32) (chainhash.Hash, bool, error)
	GetTransaction(hash chainhash.Hash) (*wire.MsgTx, bool, error)
	HasTransaction(hash chainhash.Hash) (bool, error)
	GetTransactionDescriptor(hash chainhash.Hash) (*TransactionDescriptor, bool, error)

	// GetOldestPoolTransactions returns up to count disk-pool entries
	// ordered by ascending insertion sequence, used when building
	// candidate blocks (the candidate-building logic itself is outside
	// this core's scope; see spec.md §4.3).
	GetOldestPoolTransactions(count int) ([]chainhash.Hash, error)

	// Update runs fn against a fresh StorageBatch and, if fn returns
	// nil, commits every write fn made atomically; if fn returns an
	// error, none of those writes become visible.
	Update(fn func(StorageBatch) error) error
}

// ChainBlock pairs a block with the height it was attached or detached
// at, the payload of onAttachBlock/onDetachBlock.
type ChainBlock struct {
	Height uint32
	Block  *wire.MsgBlock
}

// ChainEventListener receives notifications for every best-chain
// mutation, fired synchronously while the facade's lock is held (see
// spec.md §5's ordering guarantee). Implementations must not block.
type ChainEventListener interface {
	OnAttachBlock(block ChainBlock)
	OnDetachBlock(block ChainBlock)
	OnNewTransaction(tx *wire.MsgTx)
	OnRemoveTransaction(hash chainhash.Hash)
}
