// Package ingest implements BlockProcessor and TransactionProcessor
// (spec.md §4.8 "external interfaces", component C9): the entry points
// a peer-to-peer or mining layer calls with freshly received blocks
// and transactions, responsible for routing unattachable items to the
// orphanages and promoting their dependents once the missing piece
// arrives. Grounded on the teacher's blockdag/process.go ProcessBlock
// (accept-or-orphan branch, processOrphans recursive promotion) and
// domain/miningmanager/mempool/mempool.go's orphan re-evaluation on
// ProcessTransaction.
package ingest

import (
	"github.com/ledgerforge/chaincore/chainerr"
	"github.com/ledgerforge/chaincore/chainhash"
	"github.com/ledgerforge/chaincore/chainstate"
	"github.com/ledgerforge/chaincore/chainstate/blockorphanage"
	"github.com/ledgerforge/chaincore/chainstate/txorphanage"
	"github.com/ledgerforge/chaincore/logger"
	"github.com/ledgerforge/chaincore/wire"

	"github.com/ledgerforge/chaincore/blockchain"
)

var log, _ = logger.Get(logger.SubsystemTags.INGS)

// BlockProcessor accepts freshly received blocks, routing ones with an
// unknown parent to the BlockOrphanage and, once a block is
// successfully put, promoting every orphan that was waiting on it —
// recursively, since promoting one orphan may unblock another.
type BlockProcessor struct {
	storage chainstate.BlockStorage
	chain   *blockchain.Blockchain
	orphans *blockorphanage.Orphanage
}

// NewBlockProcessor constructs a BlockProcessor over chain's storage
// and the given BlockOrphanage, normally the same orphanage instance
// passed to chainstate/inventory so an orphan block is invisible to
// neither or both.
func NewBlockProcessor(storage chainstate.BlockStorage, chain *blockchain.Blockchain, orphans *blockorphanage.Orphanage) *BlockProcessor {
	return &BlockProcessor{storage: storage, chain: chain, orphans: orphans}
}

// AcceptBlock is spec.md §4.8's acceptBlock: the parent-known check
// gating whether block reaches the facade directly or is held as an
// orphan. It returns true only if block ended up on the best chain.
func (p *BlockProcessor) AcceptBlock(hash chainhash.Hash, block *wire.MsgBlock) (bool, error) {
	if !block.Header.IsGenesis() {
		parentKnown, err := p.storage.HasBlock(block.Header.HashPrevBlock)
		if err != nil {
			return false, err
		}
		if !parentKnown {
			p.orphans.PutOrphan(block)
			if depth, ok := p.orphans.ChainDepth(hash); ok {
				log.Debugf("Orphaned block %s awaiting parent %s (chain depth %d)", hash, block.Header.HashPrevBlock, depth)
			}
			return false, nil
		}
	}

	accepted, err := p.chain.PutBlock(hash, block)
	if err != nil {
		return false, err
	}
	if accepted {
		p.promoteOrphansOf(hash)
	}
	return accepted, nil
}

// promoteOrphansOf resubmits every orphan directly waiting on
// parentHash, recursing into each newly-accepted block's own
// dependents so an entire chain of orphans unwinds in one call.
func (p *BlockProcessor) promoteOrphansOf(parentHash chainhash.Hash) {
	for _, childHash := range p.orphans.GetOrphansDependingOn(parentHash) {
		childBlock, ok := p.orphans.GetOrphan(childHash)
		if !ok {
			continue
		}
		p.orphans.RemoveOrphan(childHash)

		accepted, err := p.chain.PutBlock(childHash, childBlock)
		if err != nil {
			log.Warnf("Failed to promote orphan block %s: %s", childHash, err)
			continue
		}
		if accepted {
			p.promoteOrphansOf(childHash)
		}
	}
}

// TransactionProcessor accepts freshly received transactions, routing
// ones with an unresolvable input to the TransactionOrphanage and
// promoting every orphan waiting on one of a newly-pooled
// transaction's outputs.
type TransactionProcessor struct {
	storage chainstate.BlockStorage
	chain   *blockchain.Blockchain
	orphans *txorphanage.Orphanage
}

// NewTransactionProcessor constructs a TransactionProcessor over
// chain's storage and the given TransactionOrphanage.
func NewTransactionProcessor(storage chainstate.BlockStorage, chain *blockchain.Blockchain, orphans *txorphanage.Orphanage) *TransactionProcessor {
	return &TransactionProcessor{storage: storage, chain: chain, orphans: orphans}
}

// AddTransactionToPool is spec.md §4.8's addTransactionToPool: it
// submits tx to the facade and, if the facade reports a missing input,
// recomputes exactly which outpoints are unresolved and routes tx to
// the TransactionOrphanage instead of surfacing the error.
func (p *TransactionProcessor) AddTransactionToPool(hash chainhash.Hash, tx *wire.MsgTx) error {
	err := p.chain.PutTransaction(hash, tx)
	if err == nil {
		p.promoteOrphansOf(hash, tx)
		return nil
	}
	if !chainerr.Is(err, chainerr.ErrInputMissing) {
		return err
	}

	missing := p.missingOutpoints(tx)
	if len(missing) == 0 {
		return err
	}
	if orphanErr := p.orphans.PutOrphan(tx, missing); orphanErr != nil {
		return orphanErr
	}
	log.Debugf("Orphaned transaction %s awaiting %d input(s)", hash, len(missing))
	return nil
}

// missingOutpoints reports which of tx's inputs reference a
// transaction not currently known to storage, mirroring txmagnet's own
// existence check but evaluating every input instead of stopping at
// the first failure, since the orphanage needs the complete set to
// index tx against each of its blockers.
func (p *TransactionProcessor) missingOutpoints(tx *wire.MsgTx) []wire.OutPoint {
	if tx.IsCoinbase() {
		return nil
	}
	var missing []wire.OutPoint
	for _, in := range tx.TxIn {
		op := in.PreviousOutPoint
		has, err := p.storage.HasTransaction(op.TxHash)
		if err != nil || !has {
			missing = append(missing, op)
		}
	}
	return missing
}

// promoteOrphansOf resubmits every orphan transaction that named one
// of tx's outputs among its missing inputs, recursing through
// AddTransactionToPool so a chain of dependent orphan transactions
// unwinds in one call.
func (p *TransactionProcessor) promoteOrphansOf(hash chainhash.Hash, tx *wire.MsgTx) {
	for index := range tx.TxOut {
		op := wire.NewOutPoint(&hash, uint32(index))
		for _, childHash := range p.orphans.GetOrphansDependingOn(op) {
			childTx, ok := p.orphans.GetOrphan(childHash)
			if !ok {
				continue
			}
			p.orphans.RemoveOrphan(childHash)
			if err := p.AddTransactionToPool(childHash, childTx); err != nil {
				log.Warnf("Failed to promote orphan transaction %s: %s", childHash, err)
			}
		}
	}
}
