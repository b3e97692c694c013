// Package txmagnet implements TransactionMagnet (spec.md §4.2): the
// attach/detach logic that keeps each output's spent/unspent status
// current as transactions join or leave the best chain. Grounded on the
// teacher's blockdag/utxoset.go UTXO bookkeeping, adapted from an
// in-memory utxoCollection to the descriptor-table model BlockStorage
// persists directly (chainstate.TransactionDescriptor.SpentBy).
package txmagnet

import (
	"github.com/ledgerforge/chaincore/chainerr"
	"github.com/ledgerforge/chaincore/chainhash"
	"github.com/ledgerforge/chaincore/chainstate"
	"github.com/ledgerforge/chaincore/wire"
)

// Magnet is the stateless TransactionMagnet: all of its state lives in
// the chainstate.StorageBatch passed to each call, so a Magnet is safe
// to share across goroutines (the facade still serializes callers).
type Magnet struct{}

// New creates a TransactionMagnet.
func New() *Magnet {
	return &Magnet{}
}

// AttachTransaction resolves tx's inputs against already-indexed
// outputs, marks them spent, and eagerly indexes tx's own outputs as
// unspent so a later transaction in the same block may reference them.
// When checkOnly is true, no writes occur — AttachTransaction only
// validates that attaching would succeed.
func (m *Magnet) AttachTransaction(batch chainstate.StorageBatch, txHash chainhash.Hash, tx *wire.MsgTx, loc chainstate.TxLocation, checkOnly bool) error {
	if err := m.SpendInputs(batch, txHash, tx, checkOnly); err != nil {
		return err
	}

	if checkOnly {
		return nil
	}

	return batch.PutTransactionDescriptor(txHash, &chainstate.TransactionDescriptor{
		OnChain: &loc,
		SpentBy: make(map[uint32]wire.OutPoint),
	})
}

// SpendInputs validates tx's inputs against already-indexed outputs and,
// unless checkOnly is set, marks them spent by txHash. Coinbase
// transactions have no real inputs and are a no-op. This is the shared
// core of AttachTransaction, exported so other components that persist
// their own descriptor shape (txpool's disk-pool entries, which carry a
// PoolSequence rather than a TxLocation) can reuse the same validation
// and spend-marking without going through AttachTransaction's on-chain
// descriptor write.
func (m *Magnet) SpendInputs(batch chainstate.StorageBatch, txHash chainhash.Hash, tx *wire.MsgTx, checkOnly bool) error {
	if tx.IsCoinbase() {
		return nil
	}
	for i, in := range tx.TxIn {
		if err := m.spendInput(batch, txHash, uint32(i), in, checkOnly); err != nil {
			return err
		}
	}
	return nil
}

func (m *Magnet) spendInput(batch chainstate.StorageBatch, spenderHash chainhash.Hash, inputIndex uint32, in *wire.TxIn, checkOnly bool) error {
	op := in.PreviousOutPoint

	referencedTx, found, err := batch.GetTransaction(op.TxHash)
	if err != nil {
		return err
	}
	if !found {
		return chainerr.NewRuleError(chainerr.ErrInputMissing, "referenced transaction "+op.TxHash.String()+" not found")
	}
	if int(op.OutputIndex) >= len(referencedTx.TxOut) {
		return chainerr.NewRuleError(chainerr.ErrInvalidOutPoint, "output index out of range for referenced transaction")
	}

	desc, found, err := batch.GetTransactionDescriptor(op.TxHash)
	if err != nil {
		return err
	}
	if !found {
		return chainerr.NewRuleError(chainerr.ErrInputMissing, "referenced transaction "+op.TxHash.String()+" has no descriptor")
	}
	if spender, spent := desc.IsOutputSpent(op.OutputIndex); spent {
		if spender.TxHash != spenderHash || spender.OutputIndex != inputIndex {
			return chainerr.NewRuleError(chainerr.ErrInputAlreadySpent, "output "+op.String()+" is already spent")
		}
		return nil
	}

	if checkOnly {
		return nil
	}

	desc.SpentBy[op.OutputIndex] = wire.NewOutPoint(&spenderHash, inputIndex)
	return batch.PutTransactionDescriptor(op.TxHash, desc)
}

// DetachTransaction undoes AttachTransaction: every output tx's inputs
// reference is marked unspent again, and tx's own descriptor is
// removed so it is no longer claimed by a best-chain block. The caller
// (blockmagnet) is responsible for re-inserting a non-coinbase tx into
// the disk-pool after detachment.
func (m *Magnet) DetachTransaction(batch chainstate.StorageBatch, txHash chainhash.Hash, tx *wire.MsgTx) error {
	if err := m.UnspendInputs(batch, tx); err != nil {
		return err
	}
	return batch.DelTransactionDescriptor(txHash)
}

// UnspendInputs reverses SpendInputs: every referenced output's spend
// mark is cleared. Coinbase transactions have no real inputs and are a
// no-op. Exported for the same reason as SpendInputs: txpool needs to
// release a pool transaction's inputs without touching its own
// descriptor deletion, which it handles via DelTransactionFromPool.
func (m *Magnet) UnspendInputs(batch chainstate.StorageBatch, tx *wire.MsgTx) error {
	if tx.IsCoinbase() {
		return nil
	}
	for _, in := range tx.TxIn {
		op := in.PreviousOutPoint
		desc, found, err := batch.GetTransactionDescriptor(op.TxHash)
		if err != nil {
			return err
		}
		if !found {
			continue
		}
		delete(desc.SpentBy, op.OutputIndex)
		if err := batch.PutTransactionDescriptor(op.TxHash, desc); err != nil {
			return err
		}
	}
	return nil
}
