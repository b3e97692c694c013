// Package blockmagnet implements BlockMagnet (spec.md §4.4): attaching
// and detaching whole blocks, and reorganizing the best chain across
// arbitrary fork depth. Grounded on the teacher's blockdag/dag.go
// connectBlock/applyDAGChanges structure (validate, mutate storage,
// report events) for the attach/detach idiom, generalized from GHOSTDAG
// blue-set selection to the two-cursor linear ancestor walk spec.md
// §4.4 describes directly — the teacher's DAG has no reorg of its own
// kind to ground against, since it never un-selects a block once
// ordered.
package blockmagnet

import (
	"github.com/pkg/errors"

	"github.com/ledgerforge/chaincore/chainerr"
	"github.com/ledgerforge/chaincore/chainhash"
	"github.com/ledgerforge/chaincore/chainstate"
	"github.com/ledgerforge/chaincore/chainstate/txmagnet"
	"github.com/ledgerforge/chaincore/chainstate/txpool"
	"github.com/ledgerforge/chaincore/logger"
	"github.com/ledgerforge/chaincore/wire"
)

var log, _ = logger.Get(logger.SubsystemTags.CHAIN)

// Magnet is the stateless BlockMagnet: all of its state lives in the
// chainstate.StorageBatch passed to each call, so a Magnet is safe to
// share across goroutines (the facade still serializes callers).
type Magnet struct {
	txMagnet *txmagnet.Magnet
	txPool   *txpool.Pool
}

// New creates a BlockMagnet built from the given TransactionMagnet and
// TransactionPool collaborators.
func New(txMagnet *txmagnet.Magnet, txPool *txpool.Pool) *Magnet {
	return &Magnet{txMagnet: txMagnet, txPool: txPool}
}

// Attach processes block's transactions in order against the best
// chain: a transaction already sitting in the disk-pool is removed
// from it first (its tentative spend marks and pool-sequence index
// entry are reclaimed before the transaction is re-recorded as an
// on-chain descriptor), then TransactionMagnet attaches it for real.
// Finally the block's parent is pointed at it via NextBlockHash.
//
// Attach does not update the height→hash index or the best-block
// pointer; those are the caller's responsibility (the facade for a
// simple extension, Reorganize for a branch swap), since a reorg needs
// to apply them only after every block in the new branch has attached
// successfully.
func (m *Magnet) Attach(batch chainstate.StorageBatch, hash chainhash.Hash, block *wire.MsgBlock, height uint32) error {
	for _, tx := range block.Transactions {
		txHash := tx.TxHash()
		if !tx.IsCoinbase() {
			if err := m.txPool.RemoveTransactionFromPool(batch, txHash, tx); err != nil {
				return errors.Wrapf(err, "removing transaction %s from pool before attach", txHash)
			}
		}
	}

	for i, tx := range block.Transactions {
		txHash := tx.TxHash()
		loc := chainstate.TxLocation{BlockHash: hash, Offset: uint32(i)}
		if err := m.txMagnet.AttachTransaction(batch, txHash, tx, loc, false); err != nil {
			return err
		}
	}

	if err := m.setNextBlockHash(batch, block.Header.HashPrevBlock, &hash); err != nil {
		return err
	}

	log.Debugf("Attached block %s at height %d", hash, height)
	return nil
}

// Detach reverses Attach: every transaction's spend marks are released
// in reverse block order, non-coinbase transactions are returned to
// the disk-pool (coinbases are discarded — they are unspendable
// outside their own block), and the parent's NextBlockHash pointer is
// cleared.
func (m *Magnet) Detach(batch chainstate.StorageBatch, hash chainhash.Hash, block *wire.MsgBlock, height uint32) error {
	for i := len(block.Transactions) - 1; i >= 0; i-- {
		tx := block.Transactions[i]
		txHash := tx.TxHash()
		if err := m.txMagnet.DetachTransaction(batch, txHash, tx); err != nil {
			return err
		}
		if !tx.IsCoinbase() {
			if err := m.txPool.AddTransactionToPool(batch, txHash, tx); err != nil {
				return errors.Wrapf(err, "re-pooling transaction %s after detach", txHash)
			}
		}
	}

	if err := m.setNextBlockHash(batch, block.Header.HashPrevBlock, nil); err != nil {
		return err
	}
	// The detached block itself is no longer a best-chain block and so
	// has no best-chain child of its own.
	if err := m.setNextBlockHash(batch, hash, nil); err != nil {
		return err
	}

	log.Debugf("Detached block %s at height %d", hash, height)
	return nil
}

func (m *Magnet) setNextBlockHash(batch chainstate.StorageBatch, of chainhash.Hash, next *chainhash.Hash) error {
	info, found, err := batch.GetBlockInfo(of)
	if err != nil {
		return err
	}
	if !found {
		// Genesis's parent (the all-zero hash) is never itself a
		// stored block; there is nothing to point.
		return nil
	}
	info.NextBlockHash = next
	return batch.PutBlockInfo(of, info)
}

type branchBlock struct {
	hash   chainhash.Hash
	height uint32
	block  *wire.MsgBlock
}

// Reorganize walks back from originalBestHash and newBestHash to their
// common ancestor, detaches every block on the original branch (newest
// to oldest), attaches every block on the new branch (oldest to
// newest), and republishes the height→hash index and best-block
// pointer. It returns the blocks detached and attached, in the order
// Attach/Detach processed them, so the caller can fire
// ChainEventListener callbacks once the whole reorganize has committed
// — see the no-manual-undo note below.
//
// Deviates from a literal reading of spec.md §4.4 step 4 ("undo all
// attaches performed so far and re-attach the original branch"): since
// the entire reorganize runs inside one chainstate.StorageBatch, an
// error returned here propagates to blockstore.Store.Update, which
// never commits the underlying database transaction — the storage
// side effects of a partial reorg are already atomically discarded.
// The only state that a partial reorg could leak is a
// ChainEventListener notification for a block that ends up not on the
// best chain; Reorganize avoids that by returning its event lists only
// on full success, so the facade never fires a callback for a reorg
// that failed. This achieves the same all-or-nothing guarantee with no
// compensating-transaction logic.
func (m *Magnet) Reorganize(batch chainstate.StorageBatch, originalBestHash, newBestHash chainhash.Hash) (detached, attached []chainstate.ChainBlock, err error) {
	originalBranch, newBranch, err := m.findFork(batch, originalBestHash, newBestHash)
	if err != nil {
		return nil, nil, errors.Wrap(err, "locating reorganize fork point")
	}

	for _, b := range originalBranch {
		if err := m.Detach(batch, b.hash, b.block, b.height); err != nil {
			return nil, nil, errors.Wrapf(err, "detaching block %s during reorganize", b.hash)
		}
		detached = append(detached, chainstate.ChainBlock{Height: b.height, Block: b.block})
	}

	for _, b := range originalBranch {
		if err := batch.DelBlockHashByHeight(b.height); err != nil {
			return nil, nil, err
		}
	}

	ordered := make([]branchBlock, len(newBranch))
	for i, b := range newBranch {
		ordered[len(newBranch)-1-i] = b
	}

	for _, b := range ordered {
		if err := m.Attach(batch, b.hash, b.block, b.height); err != nil {
			return nil, nil, chainerr.NewRuleError(chainerr.ErrReorgFailed, "attach of "+b.hash.String()+" failed during reorganize: "+err.Error())
		}
		if err := batch.PutBlockHashByHeight(b.height, b.hash); err != nil {
			return nil, nil, chainerr.NewRuleError(chainerr.ErrReorgFailed, "height index update for "+b.hash.String()+" failed during reorganize: "+err.Error())
		}
		attached = append(attached, chainstate.ChainBlock{Height: b.height, Block: b.block})
	}

	if err := batch.PutBestBlockHash(newBestHash); err != nil {
		return nil, nil, err
	}

	log.Infof("Reorganized best chain: detached %d block(s), attached %d block(s), new best %s",
		len(detached), len(attached), newBestHash)
	return detached, attached, nil
}

// findFork walks back from originalHash and newHash using parent
// links, collecting the blocks unique to each branch, until both
// cursors reach the same block — the fork point. At each step the
// cursor with the greater height moves; when heights match, both move.
// Each returned slice is ordered newest to oldest. Termination is
// guaranteed because both branches descend from the same genesis
// block.
func (m *Magnet) findFork(batch chainstate.StorageBatch, originalHash, newHash chainhash.Hash) (originalBranch, newBranch []branchBlock, err error) {
	oHash, oInfo, oBlock, err := m.getBranchBlock(batch, originalHash)
	if err != nil {
		return nil, nil, err
	}
	nHash, nInfo, nBlock, err := m.getBranchBlock(batch, newHash)
	if err != nil {
		return nil, nil, err
	}

	for oHash != nHash {
		oHeight, nHeight := oInfo.Height, nInfo.Height
		if oHeight >= nHeight {
			originalBranch = append(originalBranch, branchBlock{oHash, oInfo.Height, oBlock})
			oHash, oInfo, oBlock, err = m.getBranchBlock(batch, oBlock.Header.HashPrevBlock)
			if err != nil {
				return nil, nil, err
			}
		}
		if nHeight >= oHeight {
			newBranch = append(newBranch, branchBlock{nHash, nInfo.Height, nBlock})
			nHash, nInfo, nBlock, err = m.getBranchBlock(batch, nBlock.Header.HashPrevBlock)
			if err != nil {
				return nil, nil, err
			}
		}
	}
	return originalBranch, newBranch, nil
}

func (m *Magnet) getBranchBlock(batch chainstate.StorageBatch, hash chainhash.Hash) (chainhash.Hash, *chainstate.BlockInfo, *wire.MsgBlock, error) {
	info, block, found, err := batch.GetBlock(hash)
	if err != nil {
		return chainhash.Hash{}, nil, nil, err
	}
	if !found {
		return chainhash.Hash{}, nil, nil, chainerr.NewRuleError(chainerr.ErrStorageFailure, "reorganize: block "+hash.String()+" missing from storage")
	}
	return hash, info, block, nil
}
