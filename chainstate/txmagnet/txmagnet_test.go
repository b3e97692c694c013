package txmagnet

import (
	"testing"

	"github.com/ledgerforge/chaincore/blockstore"
	"github.com/ledgerforge/chaincore/chainerr"
	"github.com/ledgerforge/chaincore/chainhash"
	"github.com/ledgerforge/chaincore/chainstate"
	"github.com/ledgerforge/chaincore/database/memdb"
	"github.com/ledgerforge/chaincore/wire"
)

func newTestStore() *blockstore.Store {
	return blockstore.New(memdb.New())
}

func coinbaseTx(value uint64) *wire.MsgTx {
	return &wire.MsgTx{
		Version: 1,
		TxIn: []*wire.TxIn{
			{PreviousOutPoint: wire.NewOutPoint(&chainhash.ZeroHash, wire.CoinbaseOutputIndex)},
		},
		TxOut: []*wire.TxOut{{Value: value, LockingScript: []byte{0x51}}},
	}
}

func spendingTx(prevHash chainhash.Hash, prevIndex uint32, value uint64) *wire.MsgTx {
	return &wire.MsgTx{
		Version: 1,
		TxIn: []*wire.TxIn{
			{PreviousOutPoint: wire.NewOutPoint(&prevHash, prevIndex)},
		},
		TxOut: []*wire.TxOut{{Value: value, LockingScript: []byte{0x51}}},
	}
}

func TestAttachCoinbaseIndexesOutputsWithoutProcessingInputs(t *testing.T) {
	store := newTestStore()
	magnet := New()

	cb := coinbaseTx(5_000_000_000)
	cbHash := cb.TxHash()
	blockHash := chainhash.HashData([]byte("block1"))

	err := store.Update(func(b chainstate.StorageBatch) error {
		return magnet.AttachTransaction(b, cbHash, cb, chainstate.TxLocation{BlockHash: blockHash, Offset: 0}, false)
	})
	if err != nil {
		t.Fatalf("AttachTransaction: %v", err)
	}

	desc, found, err := store.GetTransactionDescriptor(cbHash)
	if err != nil || !found {
		t.Fatalf("GetTransactionDescriptor: found=%v err=%v", found, err)
	}
	if desc.InPool() {
		t.Fatal("expected coinbase descriptor to be on-chain")
	}
	if _, spent := desc.IsOutputSpent(0); spent {
		t.Fatal("expected freshly attached coinbase output to be unspent")
	}
}

func TestAttachSpendingTxMarksPreviousOutputSpent(t *testing.T) {
	store := newTestStore()
	magnet := New()
	blockHash := chainhash.HashData([]byte("block1"))

	cb := coinbaseTx(5_000_000_000)
	cbHash := cb.TxHash()
	spend := spendingTx(cbHash, 0, 4_999_000_000)
	spendHash := spend.TxHash()

	err := store.Update(func(b chainstate.StorageBatch) error {
		if err := magnet.AttachTransaction(b, cbHash, cb, chainstate.TxLocation{BlockHash: blockHash, Offset: 0}, false); err != nil {
			return err
		}
		return magnet.AttachTransaction(b, spendHash, spend, chainstate.TxLocation{BlockHash: blockHash, Offset: 1}, false)
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	cbDesc, _, err := store.GetTransactionDescriptor(cbHash)
	if err != nil {
		t.Fatalf("GetTransactionDescriptor: %v", err)
	}
	spender, spent := cbDesc.IsOutputSpent(0)
	if !spent {
		t.Fatal("expected coinbase output 0 to be marked spent")
	}
	if spender.TxHash != spendHash || spender.OutputIndex != 0 {
		t.Fatalf("unexpected spender: %+v", spender)
	}
}

func TestAttachFailsOnDoubleSpend(t *testing.T) {
	store := newTestStore()
	magnet := New()
	blockHash := chainhash.HashData([]byte("block1"))

	cb := coinbaseTx(5_000_000_000)
	cbHash := cb.TxHash()
	spendA := spendingTx(cbHash, 0, 1)
	spendB := spendingTx(cbHash, 0, 2)

	err := store.Update(func(b chainstate.StorageBatch) error {
		if err := magnet.AttachTransaction(b, cbHash, cb, chainstate.TxLocation{BlockHash: blockHash, Offset: 0}, false); err != nil {
			return err
		}
		if err := magnet.AttachTransaction(b, spendA.TxHash(), spendA, chainstate.TxLocation{BlockHash: blockHash, Offset: 1}, false); err != nil {
			return err
		}
		return magnet.AttachTransaction(b, spendB.TxHash(), spendB, chainstate.TxLocation{BlockHash: blockHash, Offset: 2}, false)
	})
	if !chainerr.Is(err, chainerr.ErrInputAlreadySpent) {
		t.Fatalf("expected ErrInputAlreadySpent, got %v", err)
	}
}

func TestAttachFailsOnMissingInput(t *testing.T) {
	store := newTestStore()
	magnet := New()

	spend := spendingTx(chainhash.HashData([]byte("nonexistent")), 0, 1)

	err := store.Update(func(b chainstate.StorageBatch) error {
		return magnet.AttachTransaction(b, spend.TxHash(), spend, chainstate.TxLocation{}, false)
	})
	if !chainerr.Is(err, chainerr.ErrInputMissing) {
		t.Fatalf("expected ErrInputMissing, got %v", err)
	}
}

func TestDetachReversesAttach(t *testing.T) {
	store := newTestStore()
	magnet := New()
	blockHash := chainhash.HashData([]byte("block1"))

	cb := coinbaseTx(5_000_000_000)
	cbHash := cb.TxHash()
	spend := spendingTx(cbHash, 0, 1)
	spendHash := spend.TxHash()

	err := store.Update(func(b chainstate.StorageBatch) error {
		if err := magnet.AttachTransaction(b, cbHash, cb, chainstate.TxLocation{BlockHash: blockHash, Offset: 0}, false); err != nil {
			return err
		}
		return magnet.AttachTransaction(b, spendHash, spend, chainstate.TxLocation{BlockHash: blockHash, Offset: 1}, false)
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	err = store.Update(func(b chainstate.StorageBatch) error {
		if err := magnet.DetachTransaction(b, spendHash, spend); err != nil {
			return err
		}
		return magnet.DetachTransaction(b, cbHash, cb)
	})
	if err != nil {
		t.Fatalf("Update (detach): %v", err)
	}

	if _, found, err := store.GetTransactionDescriptor(spendHash); err != nil || found {
		t.Fatalf("expected spend descriptor removed, found=%v err=%v", found, err)
	}
	if _, found, err := store.GetTransactionDescriptor(cbHash); err != nil || found {
		t.Fatalf("expected coinbase descriptor removed, found=%v err=%v", found, err)
	}
}

func TestAttachCheckOnlyDoesNotMutate(t *testing.T) {
	store := newTestStore()
	magnet := New()
	blockHash := chainhash.HashData([]byte("block1"))

	cb := coinbaseTx(5_000_000_000)
	cbHash := cb.TxHash()
	spend := spendingTx(cbHash, 0, 1)

	err := store.Update(func(b chainstate.StorageBatch) error {
		return magnet.AttachTransaction(b, cbHash, cb, chainstate.TxLocation{BlockHash: blockHash, Offset: 0}, false)
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	err = store.Update(func(b chainstate.StorageBatch) error {
		return magnet.AttachTransaction(b, spend.TxHash(), spend, chainstate.TxLocation{BlockHash: blockHash, Offset: 1}, true)
	})
	if err != nil {
		t.Fatalf("checkOnly attach should succeed validation: %v", err)
	}

	cbDesc, _, err := store.GetTransactionDescriptor(cbHash)
	if err != nil {
		t.Fatalf("GetTransactionDescriptor: %v", err)
	}
	if _, spent := cbDesc.IsOutputSpent(0); spent {
		t.Fatal("checkOnly attach must not mark the output spent")
	}
	if has, _ := store.HasTransaction(spend.TxHash()); has {
		t.Fatal("checkOnly attach must not persist the spending tx's descriptor")
	}
}
