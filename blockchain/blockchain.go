// Package blockchain implements the Blockchain facade (spec.md §4.1,
// component C7): the single serialization point that routes putBlock
// and putTransaction to BlockMagnet/TransactionPool and emits
// ChainEventListener callbacks. Grounded on the teacher's
// domain/consensus/consensus.go + domain/consensus/factory.go
// constructor-injected wiring (no global singleton, per spec.md §9's
// design note) and blockdag/process.go's ProcessBlock control flow.
//
// It cannot live in package chainstate itself: chainstate/blockmagnet,
// chainstate/txmagnet and chainstate/txpool all import chainstate for
// its StorageBatch/BlockInfo types, so a facade built from those
// collaborators and residing in chainstate would form an import cycle.
// The teacher has the identical split — interfaces in
// domain/consensus/model, the facade in domain/consensus — so this
// package plays the role of domain/consensus while chainstate plays
// the role of domain/consensus/model.
package blockchain

import (
	"math/big"
	"sync"

	"github.com/ledgerforge/chaincore/chainerr"
	"github.com/ledgerforge/chaincore/chainhash"
	"github.com/ledgerforge/chaincore/chainstate"
	"github.com/ledgerforge/chaincore/chainstate/blockmagnet"
	"github.com/ledgerforge/chaincore/chainstate/blockorphanage"
	"github.com/ledgerforge/chaincore/chainstate/txmagnet"
	"github.com/ledgerforge/chaincore/chainstate/txorphanage"
	"github.com/ledgerforge/chaincore/chainstate/txpool"
	"github.com/ledgerforge/chaincore/logger"
	"github.com/ledgerforge/chaincore/pow"
	"github.com/ledgerforge/chaincore/wire"
)

var log, _ = logger.Get(logger.SubsystemTags.CHAIN)

// Stats holds the monotonic counters Blockchain.Stats exposes (spec.md
// extension, SPEC_FULL.md §13): a plain Go struct any future RPC layer
// can read, since RPC itself is out of this core's scope.
type Stats struct {
	DuplicateBlocksRejected uint64
	ReorgsPerformed         uint64
	OrphanBlocksHeld        int
	OrphanTransactionsHeld  int
}

// Blockchain is the chain core's facade: the single mutual-exclusion
// point spec.md §5 requires around every mutating operation.
type Blockchain struct {
	mu sync.Mutex

	storage      chainstate.BlockStorage
	blockMagnet  *blockmagnet.Magnet
	txPool       *txpool.Pool
	blockOrphans *blockorphanage.Orphanage
	txOrphans    *txorphanage.Orphanage

	listeners []chainstate.ChainEventListener

	duplicateBlocksRejected uint64
	reorgsPerformed         uint64
}

// New constructs a Blockchain over storage, with its own BlockOrphanage
// and TransactionOrphanage collaborators (shared with chainstate/ingest
// and chainstate/inventory, which need direct orphanage access the
// facade does not expose read-only equivalents of).
func New(storage chainstate.BlockStorage, blockOrphans *blockorphanage.Orphanage, txOrphans *txorphanage.Orphanage) *Blockchain {
	txMagnet := txmagnet.New()
	txPool := txpool.New()
	return &Blockchain{
		storage:      storage,
		blockMagnet:  blockmagnet.New(txMagnet, txPool),
		txPool:       txPool,
		blockOrphans: blockOrphans,
		txOrphans:    txOrphans,
	}
}

// SetEventListener registers listener as the sole ChainEventListener,
// replacing any previously registered one. This is the literal
// single-listener signature spec.md §4.1 names; internally the
// facade holds a slice so AddEventListener can register more without
// changing this method's contract (SPEC_FULL.md §14 decision 4).
func (bc *Blockchain) SetEventListener(listener chainstate.ChainEventListener) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	if listener == nil {
		bc.listeners = nil
		return
	}
	bc.listeners = []chainstate.ChainEventListener{listener}
}

// AddEventListener appends an additional ChainEventListener without
// disturbing listeners already registered via SetEventListener or a
// prior AddEventListener call.
func (bc *Blockchain) AddEventListener(listener chainstate.ChainEventListener) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	bc.listeners = append(bc.listeners, listener)
}

func (bc *Blockchain) fireAttach(cb chainstate.ChainBlock) {
	for _, l := range bc.listeners {
		l.OnAttachBlock(cb)
	}
}

func (bc *Blockchain) fireDetach(cb chainstate.ChainBlock) {
	for _, l := range bc.listeners {
		l.OnDetachBlock(cb)
	}
}

func (bc *Blockchain) fireNewTransaction(tx *wire.MsgTx) {
	for _, l := range bc.listeners {
		l.OnNewTransaction(tx)
	}
}

func describeBlock(info *chainstate.BlockInfo, block *wire.MsgBlock) *chainstate.BlockInfo {
	info.TransactionCount = uint32(len(block.Transactions))
	info.BlockSize = uint32(block.SerializeSize())
	return info
}

// PutBlock implements spec.md §4.1's putBlock algorithm. It returns
// true if hash became the new best block, false for a
// duplicate or a fork candidate that did not overtake the best chain.
func (bc *Blockchain) PutBlock(hash chainhash.Hash, block *wire.MsgBlock) (bool, error) {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	has, err := bc.storage.HasBlock(hash)
	if err != nil {
		return false, err
	}
	if has {
		bc.duplicateBlocksRejected++
		return false, nil
	}

	if block.Header.IsGenesis() {
		return bc.putGenesis(hash, block)
	}

	parentInfo, found, err := bc.storage.GetBlockInfo(block.Header.HashPrevBlock)
	if err != nil {
		return false, err
	}
	if !found {
		return false, chainerr.NewRuleError(chainerr.ErrParentBlockMissing,
			"putBlock reached with missing parent "+block.Header.HashPrevBlock.String()+"; caller must route to the orphanage")
	}

	bestHash, found, err := bc.storage.GetBestBlockHash()
	if err != nil {
		return false, err
	}
	if !found {
		return false, chainerr.NewRuleError(chainerr.ErrParentBlockMissing, "no best block recorded but a non-genesis block was submitted")
	}
	bestInfo, found, err := bc.storage.GetBlockInfo(bestHash)
	if err != nil {
		return false, err
	}
	if !found {
		return false, chainerr.NewRuleError(chainerr.ErrStorageFailure, "best block hash recorded but its BlockInfo is missing")
	}

	height := parentInfo.Height + 1
	chainWork := new(big.Int).Add(parentInfo.ChainWork, pow.CalcWork(block.Header.Bits))
	info := describeBlock(&chainstate.BlockInfo{Height: height, Header: block.Header, ChainWork: chainWork}, block)

	if block.Header.HashPrevBlock == bestHash {
		return bc.putSimpleExtension(hash, block, info, height)
	}
	return bc.putForkCandidate(hash, block, info, bestInfo, bestHash, chainWork)
}

func (bc *Blockchain) putGenesis(hash chainhash.Hash, block *wire.MsgBlock) (bool, error) {
	if _, found, err := bc.storage.GetBestBlockHash(); err != nil {
		return false, err
	} else if found {
		return false, chainerr.NewRuleError(chainerr.ErrDuplicateBlock, "a best block already exists; only one genesis may ever be accepted")
	}

	info := describeBlock(&chainstate.BlockInfo{Height: 0, Header: block.Header, ChainWork: pow.CalcWork(block.Header.Bits)}, block)

	err := bc.storage.Update(func(b chainstate.StorageBatch) error {
		if err := b.PutBlock(hash, info, block); err != nil {
			return err
		}
		if err := bc.blockMagnet.Attach(b, hash, block, 0); err != nil {
			return err
		}
		if err := b.PutBlockHashByHeight(0, hash); err != nil {
			return err
		}
		return b.PutBestBlockHash(hash)
	})
	if err != nil {
		return false, err
	}

	bc.fireAttach(chainstate.ChainBlock{Height: 0, Block: block})
	log.Infof("Accepted genesis block %s", hash)
	return true, nil
}

func (bc *Blockchain) putSimpleExtension(hash chainhash.Hash, block *wire.MsgBlock, info *chainstate.BlockInfo, height uint32) (bool, error) {
	err := bc.storage.Update(func(b chainstate.StorageBatch) error {
		if err := b.PutBlock(hash, info, block); err != nil {
			return err
		}
		if err := bc.blockMagnet.Attach(b, hash, block, height); err != nil {
			return err
		}
		if err := b.PutBlockHashByHeight(height, hash); err != nil {
			return err
		}
		return b.PutBestBlockHash(hash)
	})
	if err != nil {
		return false, err
	}

	bc.fireAttach(chainstate.ChainBlock{Height: height, Block: block})
	log.Debugf("Extended best chain with block %s at height %d", hash, height)
	return true, nil
}

func (bc *Blockchain) putForkCandidate(hash chainhash.Hash, block *wire.MsgBlock, info, bestInfo *chainstate.BlockInfo, bestHash chainhash.Hash, chainWork *big.Int) (bool, error) {
	if chainWork.Cmp(bestInfo.ChainWork) <= 0 {
		err := bc.storage.Update(func(b chainstate.StorageBatch) error {
			return b.PutBlock(hash, info, block)
		})
		if err != nil {
			return false, err
		}
		log.Debugf("Recorded fork candidate %s (work %s <= best work %s)", hash, chainWork, bestInfo.ChainWork)
		return false, nil
	}

	var detached, attached []chainstate.ChainBlock
	err := bc.storage.Update(func(b chainstate.StorageBatch) error {
		if err := b.PutBlock(hash, info, block); err != nil {
			return err
		}
		d, a, err := bc.blockMagnet.Reorganize(b, bestHash, hash)
		detached, attached = d, a
		return err
	})
	if err != nil {
		return false, err
	}

	bc.reorgsPerformed++
	for _, d := range detached {
		bc.fireDetach(d)
	}
	for _, a := range attached {
		bc.fireAttach(a)
	}
	log.Infof("Reorganized to new best block %s (work %s)", hash, chainWork)
	return true, nil
}

// PutTransaction implements spec.md §4.1's putTransaction algorithm.
func (bc *Blockchain) PutTransaction(hash chainhash.Hash, tx *wire.MsgTx) error {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	err := bc.storage.Update(func(b chainstate.StorageBatch) error {
		return bc.txPool.AddTransactionToPool(b, hash, tx)
	})
	if err != nil {
		return err
	}

	bc.fireNewTransaction(tx)
	log.Debugf("Added transaction %s to pool", hash)
	return nil
}

// GetBestBlockHash returns the current best-block hash.
func (bc *Blockchain) GetBestBlockHash() (chainhash.Hash, bool, error) {
	return bc.storage.GetBestBlockHash()
}

// GetBestBlockHeight returns the height of the current best block.
func (bc *Blockchain) GetBestBlockHeight() (uint32, bool, error) {
	bestHash, found, err := bc.storage.GetBestBlockHash()
	if err != nil || !found {
		return 0, found, err
	}
	info, found, err := bc.storage.GetBlockInfo(bestHash)
	if err != nil || !found {
		return 0, found, err
	}
	return info.Height, true, nil
}

// GetBlockHash returns the hash registered at height on the best
// chain, or ErrInvalidBlockHeight if height is outside [0, bestHeight].
func (bc *Blockchain) GetBlockHash(height uint32) (chainhash.Hash, error) {
	hash, found, err := bc.storage.GetBlockHashByHeight(height)
	if err != nil {
		return chainhash.Hash{}, err
	}
	if !found {
		return chainhash.Hash{}, chainerr.NewRuleError(chainerr.ErrInvalidBlockHeight, "no best-chain block registered at that height")
	}
	return hash, nil
}

// GetBlockInfo returns the metadata for hash.
func (bc *Blockchain) GetBlockInfo(hash chainhash.Hash) (*chainstate.BlockInfo, bool, error) {
	return bc.storage.GetBlockInfo(hash)
}

// GetBlock returns the metadata and full block for hash.
func (bc *Blockchain) GetBlock(hash chainhash.Hash) (*chainstate.BlockInfo, *wire.MsgBlock, bool, error) {
	return bc.storage.GetBlock(hash)
}

// GetBlockHeader returns the header for hash.
func (bc *Blockchain) GetBlockHeader(hash chainhash.Hash) (*wire.BlockHeader, bool, error) {
	return bc.storage.GetBlockHeader(hash)
}

// GetTransaction returns the transaction for hash, searching both the
// best chain and the disk-pool.
func (bc *Blockchain) GetTransaction(hash chainhash.Hash) (*wire.MsgTx, bool, error) {
	return bc.storage.GetTransaction(hash)
}

// HasBlock reports whether hash is known.
func (bc *Blockchain) HasBlock(hash chainhash.Hash) (bool, error) {
	return bc.storage.HasBlock(hash)
}

// HasTransaction reports whether hash is known, on-chain or pooled.
func (bc *Blockchain) HasTransaction(hash chainhash.Hash) (bool, error) {
	return bc.storage.HasTransaction(hash)
}

// GetTransactionOutput returns the output op refers to, or
// ErrInvalidOutPoint if the referenced transaction is unknown or the
// output index is out of range.
func (bc *Blockchain) GetTransactionOutput(op wire.OutPoint) (*wire.TxOut, error) {
	tx, found, err := bc.storage.GetTransaction(op.TxHash)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, chainerr.NewRuleError(chainerr.ErrInvalidOutPoint, "referenced transaction "+op.TxHash.String()+" not found")
	}
	if int(op.OutputIndex) >= len(tx.TxOut) {
		return nil, chainerr.NewRuleError(chainerr.ErrInvalidOutPoint, "output index out of range for "+op.String())
	}
	return tx.TxOut[op.OutputIndex], nil
}

// Stats returns a snapshot of the facade's monotonic counters.
func (bc *Blockchain) Stats() Stats {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return Stats{
		DuplicateBlocksRejected: bc.duplicateBlocksRejected,
		ReorgsPerformed:         bc.reorgsPerformed,
		OrphanBlocksHeld:        bc.blockOrphans.Count(),
		OrphanTransactionsHeld:  bc.txOrphans.Count(),
	}
}

// ChainIterator walks the best chain forward from a starting height,
// answering spec.md §9's open question about getIterator(height).
type ChainIterator struct {
	storage    chainstate.BlockStorage
	next       uint32
	bestHeight uint32
	hasBest    bool
}

// NewChainIterator returns a ChainIterator that yields ChainBlocks from
// height to the current best tip, inclusive. Calling Next on an
// iterator built before any block is accepted always reports done.
func (bc *Blockchain) NewChainIterator(height uint32) (*ChainIterator, error) {
	bestHash, found, err := bc.storage.GetBestBlockHash()
	if err != nil {
		return nil, err
	}
	if !found {
		return &ChainIterator{storage: bc.storage, next: height}, nil
	}
	bestInfo, found, err := bc.storage.GetBlockInfo(bestHash)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, chainerr.NewRuleError(chainerr.ErrStorageFailure, "best block hash recorded but its BlockInfo is missing")
	}
	return &ChainIterator{storage: bc.storage, next: height, bestHeight: bestInfo.Height, hasBest: true}, nil
}

// Next returns the next ChainBlock in ascending height order. The
// second return value is false once the iterator has passed the best
// tip (or the chain is still empty).
func (it *ChainIterator) Next() (chainstate.ChainBlock, bool, error) {
	if !it.hasBest || it.next > it.bestHeight {
		return chainstate.ChainBlock{}, false, nil
	}
	hash, found, err := it.storage.GetBlockHashByHeight(it.next)
	if err != nil || !found {
		return chainstate.ChainBlock{}, false, err
	}
	info, block, found, err := it.storage.GetBlock(hash)
	if err != nil || !found {
		return chainstate.ChainBlock{}, false, err
	}
	it.next++
	return chainstate.ChainBlock{Height: info.Height, Block: block}, true, nil
}
