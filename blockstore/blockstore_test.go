package blockstore

import (
	"math/big"
	"testing"
	"time"

	"github.com/ledgerforge/chaincore/chainhash"
	"github.com/ledgerforge/chaincore/chainstate"
	"github.com/ledgerforge/chaincore/database/memdb"
	"github.com/ledgerforge/chaincore/wire"
)

func sampleBlock(prevHash chainhash.Hash, nonce uint64) *wire.MsgBlock {
	coinbase := &wire.MsgTx{
		Version: 1,
		TxIn: []*wire.TxIn{
			{PreviousOutPoint: wire.NewOutPoint(&chainhash.ZeroHash, wire.CoinbaseOutputIndex)},
		},
		TxOut: []*wire.TxOut{{Value: 5_000_000_000, LockingScript: []byte{0x51}}},
	}
	block := &wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:       1,
			HashPrevBlock: prevHash,
			Timestamp:     time.Unix(1_700_000_000, 0),
			Bits:          0x207fffff,
			Nonce:         nonce,
		},
		Transactions: []*wire.MsgTx{coinbase},
	}
	block.Header.MerkleRoot = block.BuildMerkleRoot()
	return block
}

func TestPutAndGetBlock(t *testing.T) {
	store := New(memdb.New())
	block := sampleBlock(chainhash.ZeroHash, 1)
	hash := block.BlockHash()

	info := &chainstate.BlockInfo{
		Height:           0,
		Header:           block.Header,
		ChainWork:        big.NewInt(100),
		TransactionCount: uint32(len(block.Transactions)),
	}

	err := store.Update(func(b chainstate.StorageBatch) error {
		if err := b.PutBlock(hash, info, block); err != nil {
			return err
		}
		return b.PutBlockHashByHeight(0, hash)
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	has, err := store.HasBlock(hash)
	if err != nil || !has {
		t.Fatalf("HasBlock = %v, %v, want true, nil", has, err)
	}

	gotInfo, gotBlock, found, err := store.GetBlock(hash)
	if err != nil || !found {
		t.Fatalf("GetBlock error=%v found=%v", err, found)
	}
	if gotInfo.Height != 0 || gotInfo.ChainWork.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("unexpected BlockInfo: %+v", gotInfo)
	}
	if gotBlock.BlockHash() != hash {
		t.Fatalf("round-tripped block hash mismatch")
	}

	byHeight, found, err := store.GetBlockHashByHeight(0)
	if err != nil || !found || byHeight != hash {
		t.Fatalf("GetBlockHashByHeight(0) = %v, %v, %v", byHeight, found, err)
	}
}

func TestUpdateRollsBackOnError(t *testing.T) {
	store := New(memdb.New())
	hash := chainhash.HashData([]byte("never committed"))

	err := store.Update(func(b chainstate.StorageBatch) error {
		if err := b.PutBestBlockHash(hash); err != nil {
			return err
		}
		return errAbort
	})
	if err == nil {
		t.Fatal("expected Update to propagate the batch function's error")
	}

	_, found, err := store.GetBestBlockHash()
	if err != nil {
		t.Fatalf("GetBestBlockHash: %v", err)
	}
	if found {
		t.Fatal("expected best-block write to be discarded when the batch function fails")
	}
}

var errAbort = &abortError{}

type abortError struct{}

func (*abortError) Error() string { return "aborted" }

func TestBatchReadsOwnWrites(t *testing.T) {
	store := New(memdb.New())
	block := sampleBlock(chainhash.ZeroHash, 2)
	hash := block.BlockHash()
	info := &chainstate.BlockInfo{Height: 0, Header: block.Header, ChainWork: big.NewInt(1)}

	err := store.Update(func(b chainstate.StorageBatch) error {
		if err := b.PutBlock(hash, info, block); err != nil {
			return err
		}
		has, err := b.HasBlock(hash)
		if err != nil {
			return err
		}
		if !has {
			t.Fatal("expected batch to observe its own PutBlock before flush")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
}

func TestPoolLifecycle(t *testing.T) {
	store := New(memdb.New())
	tx := &wire.MsgTx{
		Version: 1,
		TxIn:    []*wire.TxIn{{PreviousOutPoint: wire.NewOutPoint(&chainhash.ZeroHash, 0)}},
		TxOut:   []*wire.TxOut{{Value: 1, LockingScript: []byte{0x51}}},
	}
	hash := tx.TxHash()

	err := store.Update(func(b chainstate.StorageBatch) error {
		seq, err := b.NextPoolSequence()
		if err != nil {
			return err
		}
		if err := b.PutTransactionToPool(hash, tx, seq); err != nil {
			return err
		}
		return b.PutTransactionDescriptor(hash, &chainstate.TransactionDescriptor{PoolSequence: seq})
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	has, err := store.HasTransaction(hash)
	if err != nil || !has {
		t.Fatalf("HasTransaction = %v, %v", has, err)
	}

	oldest, err := store.GetOldestPoolTransactions(10)
	if err != nil {
		t.Fatalf("GetOldestPoolTransactions: %v", err)
	}
	if len(oldest) != 1 || oldest[0] != hash {
		t.Fatalf("GetOldestPoolTransactions = %v, want [%s]", oldest, hash)
	}

	err = store.Update(func(b chainstate.StorageBatch) error {
		if err := b.DelTransactionFromPool(hash); err != nil {
			return err
		}
		return b.DelTransactionDescriptor(hash)
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	oldest, err = store.GetOldestPoolTransactions(10)
	if err != nil {
		t.Fatalf("GetOldestPoolTransactions: %v", err)
	}
	if len(oldest) != 0 {
		t.Fatalf("expected pool to be empty after removal, got %v", oldest)
	}
}
