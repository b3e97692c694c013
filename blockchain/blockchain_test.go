package blockchain

import (
	"testing"

	"github.com/ledgerforge/chaincore/blockstore"
	"github.com/ledgerforge/chaincore/chainerr"
	"github.com/ledgerforge/chaincore/chainhash"
	"github.com/ledgerforge/chaincore/chainstate"
	"github.com/ledgerforge/chaincore/chainstate/blockorphanage"
	"github.com/ledgerforge/chaincore/chainstate/txorphanage"
	"github.com/ledgerforge/chaincore/database/memdb"
	"github.com/ledgerforge/chaincore/wire"
)

// lowWorkBits and highWorkBits are compact difficulty encodings chosen
// so CalcWork(highWorkBits) > CalcWork(lowWorkBits); see pow.CalcWork.
const (
	lowWorkBits  = 0x207fffff
	highWorkBits = 0x1e0fffff
)

type recorder struct {
	attached []chainstate.ChainBlock
	detached []chainstate.ChainBlock
	newTx    []*wire.MsgTx
	removed  []chainhash.Hash
}

func (r *recorder) OnAttachBlock(cb chainstate.ChainBlock)        { r.attached = append(r.attached, cb) }
func (r *recorder) OnDetachBlock(cb chainstate.ChainBlock)        { r.detached = append(r.detached, cb) }
func (r *recorder) OnNewTransaction(tx *wire.MsgTx)               { r.newTx = append(r.newTx, tx) }
func (r *recorder) OnRemoveTransaction(hash chainhash.Hash)       { r.removed = append(r.removed, hash) }

func newTestChain() (*Blockchain, *recorder) {
	storage := blockstore.New(memdb.New())
	bc := New(storage, blockorphanage.New(), txorphanage.New())
	rec := &recorder{}
	bc.SetEventListener(rec)
	return bc, rec
}

func coinbaseBlock(parent chainhash.Hash, bits uint32, nonce uint64) *wire.MsgBlock {
	cb := &wire.MsgTx{
		Version: 1,
		TxIn: []*wire.TxIn{
			{PreviousOutPoint: wire.NewOutPoint(&chainhash.ZeroHash, wire.CoinbaseOutputIndex)},
		},
		// LockingScript carries nonce so distinct calls never produce the
		// same coinbase transaction hash, even when nonce is otherwise
		// irrelevant to the block under test.
		TxOut: []*wire.TxOut{{Value: 5_000_000_000, LockingScript: []byte{0x51, byte(nonce), byte(nonce >> 8)}}},
	}
	return &wire.MsgBlock{
		Header:       wire.BlockHeader{Version: 1, HashPrevBlock: parent, Bits: bits, Nonce: nonce},
		Transactions: []*wire.MsgTx{cb},
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

func mustPut(t *testing.T, bc *Blockchain, block *wire.MsgBlock) bool {
	t.Helper()
	accepted, err := bc.PutBlock(block.BlockHash(), block)
	if err != nil {
		t.Fatalf("PutBlock(%s): %v", block.BlockHash(), err)
	}
	return accepted
}

// Scenario 1 (spec.md §8): accept genesis then a short linear chain.
func TestPutBlockAcceptsLinearChain(t *testing.T) {
	bc, rec := newTestChain()

	genesis := coinbaseBlock(chainhash.Hash{}, lowWorkBits, 0)
	if !mustPut(t, bc, genesis) {
		t.Fatal("expected genesis to be accepted")
	}
	block1 := coinbaseBlock(genesis.BlockHash(), lowWorkBits, 1)
	if !mustPut(t, bc, block1) {
		t.Fatal("expected block1 to extend the best chain")
	}
	block2 := coinbaseBlock(block1.BlockHash(), lowWorkBits, 2)
	if !mustPut(t, bc, block2) {
		t.Fatal("expected block2 to extend the best chain")
	}

	height, found, err := bc.GetBestBlockHeight()
	if err != nil || !found || height != 2 {
		t.Fatalf("GetBestBlockHeight = %d, found=%v err=%v, want 2", height, found, err)
	}
	for _, block := range []*wire.MsgBlock{genesis, block1, block2} {
		has, err := bc.HasBlock(block.BlockHash())
		if err != nil || !has {
			t.Fatalf("HasBlock(%s) = %v, err=%v", block.BlockHash(), has, err)
		}
	}
	if len(rec.attached) != 3 {
		t.Fatalf("expected 3 attach events, got %d", len(rec.attached))
	}
}

// Scenario 2 (spec.md §8): an orphan candidate (unknown parent) must be
// routed to the orphanage by the caller, not accepted directly — PutBlock
// rejects it as a precondition violation.
func TestPutBlockRejectsBlockWithUnknownParent(t *testing.T) {
	bc, _ := newTestChain()

	genesis := coinbaseBlock(chainhash.Hash{}, lowWorkBits, 0)
	mustPut(t, bc, genesis)

	orphan := coinbaseBlock(chainhash.HashData([]byte("nonexistent-parent")), lowWorkBits, 99)
	_, err := bc.PutBlock(orphan.BlockHash(), orphan)
	if !chainerr.Is(err, chainerr.ErrParentBlockMissing) {
		t.Fatalf("expected ErrParentBlockMissing, got %v", err)
	}

	height, _, err := bc.GetBestBlockHeight()
	if err != nil || height != 0 {
		t.Fatalf("expected best height to remain 0, got %d err=%v", height, err)
	}
}

// Scenario 3 (spec.md §8): a fork candidate of lesser-or-equal work never
// displaces the incumbent; a fork of greater work triggers a reorg.
func TestPutBlockForkCandidateAndReorg(t *testing.T) {
	bc, rec := newTestChain()

	genesis := coinbaseBlock(chainhash.Hash{}, lowWorkBits, 0)
	mustPut(t, bc, genesis)
	a1 := coinbaseBlock(genesis.BlockHash(), lowWorkBits, 1)
	mustPut(t, bc, a1)
	a2 := coinbaseBlock(a1.BlockHash(), lowWorkBits, 2)
	mustPut(t, bc, a2)

	// Lesser-work fork candidate: must not displace a2.
	b1Low := coinbaseBlock(genesis.BlockHash(), lowWorkBits, 10)
	if accepted := mustPut(t, bc, b1Low); accepted {
		t.Fatal("expected a lesser-work fork candidate not to become best")
	}
	height, _, _ := bc.GetBestBlockHeight()
	if height != 2 {
		t.Fatalf("expected best height to remain 2 after a losing fork candidate, got %d", height)
	}
	if info, found, err := bc.GetBlockInfo(b1Low.BlockHash()); err != nil || !found || info.Height != 1 {
		t.Fatalf("expected the fork candidate to still be recorded, found=%v err=%v info=%+v", found, err, info)
	}

	// Higher-work fork triggers a reorg.
	b1 := coinbaseBlock(genesis.BlockHash(), highWorkBits, 20)
	b2 := coinbaseBlock(b1.BlockHash(), highWorkBits, 21)
	mustPut(t, bc, b1)
	if accepted := mustPut(t, bc, b2); !accepted {
		t.Fatal("expected the higher-work branch to become best")
	}

	best, found, err := bc.GetBestBlockHash()
	if err != nil || !found || best != b2.BlockHash() {
		t.Fatalf("GetBestBlockHash = %s, found=%v err=%v, want %s", best, found, err, b2.BlockHash())
	}

	if len(rec.detached) != 2 {
		t.Fatalf("expected 2 detach events from the reorg, got %d", len(rec.detached))
	}
	if rec.detached[0].Block.BlockHash() != a2.BlockHash() || rec.detached[1].Block.BlockHash() != a1.BlockHash() {
		t.Fatalf("expected detach order [a2, a1], got %+v", rec.detached)
	}

	// a1/a2's non-coinbase transactions would migrate to the pool; both
	// blocks here are coinbase-only, so the pool should remain empty,
	// but the descriptors must be gone from the chain.
	if _, found, err := bc.storage.GetTransactionDescriptor(a2.Transactions[0].TxHash()); err != nil || found {
		t.Fatalf("expected a2's coinbase descriptor discarded after reorg, found=%v err=%v", found, err)
	}
}

// Scenario 6 (spec.md §8): a duplicate submission of the current best
// block returns false and causes no listener events.
func TestPutBlockDuplicateIsSilent(t *testing.T) {
	bc, rec := newTestChain()

	genesis := coinbaseBlock(chainhash.Hash{}, lowWorkBits, 0)
	mustPut(t, bc, genesis)
	attachCountAfterGenesis := len(rec.attached)

	accepted, err := bc.PutBlock(genesis.BlockHash(), genesis)
	if err != nil {
		t.Fatalf("duplicate PutBlock: %v", err)
	}
	if accepted {
		t.Fatal("expected a duplicate submission to report false")
	}
	if len(rec.attached) != attachCountAfterGenesis {
		t.Fatalf("expected no additional attach events for a duplicate, got %d new", len(rec.attached)-attachCountAfterGenesis)
	}

	stats := bc.Stats()
	if stats.DuplicateBlocksRejected != 1 {
		t.Fatalf("expected DuplicateBlocksRejected = 1, got %d", stats.DuplicateBlocksRejected)
	}
}

// Scenario 5 (spec.md §8): a transaction referencing an unknown
// outpoint surfaces ErrInputMissing so the caller can orphan it, while a
// transaction spending an existing on-chain output is accepted.
func TestPutTransactionSurfacesMissingInputs(t *testing.T) {
	bc, rec := newTestChain()

	genesis := coinbaseBlock(chainhash.Hash{}, lowWorkBits, 0)
	mustPut(t, bc, genesis)

	cbHash := genesis.Transactions[0].TxHash()
	spend := spendingTx(cbHash, 0, 4_999_000_000)

	// Spend a transaction that does not exist yet.
	unknown := chainhash.HashData([]byte("future-coinbase"))
	dangling := spendingTx(unknown, 0, 1)
	err := bc.PutTransaction(dangling.TxHash(), dangling)
	if !chainerr.Is(err, chainerr.ErrInputMissing) {
		t.Fatalf("expected ErrInputMissing, got %v", err)
	}

	// Spending the real coinbase output succeeds and fires onNewTransaction.
	if err := bc.PutTransaction(spend.TxHash(), spend); err != nil {
		t.Fatalf("PutTransaction: %v", err)
	}
	if len(rec.newTx) != 1 || rec.newTx[0].TxHash() != spend.TxHash() {
		t.Fatalf("expected onNewTransaction for %s, got %+v", spend.TxHash(), rec.newTx)
	}

	exists, err := bc.HasTransaction(spend.TxHash())
	if err != nil || !exists {
		t.Fatalf("HasTransaction(spend) = %v, err=%v", exists, err)
	}
}

func TestGetTransactionOutputValidatesOutPoint(t *testing.T) {
	bc, _ := newTestChain()

	genesis := coinbaseBlock(chainhash.Hash{}, lowWorkBits, 0)
	mustPut(t, bc, genesis)
	cbHash := genesis.Transactions[0].TxHash()

	out, err := bc.GetTransactionOutput(wire.NewOutPoint(&cbHash, 0))
	if err != nil || out.Value != 5_000_000_000 {
		t.Fatalf("GetTransactionOutput(valid) = %+v, err=%v", out, err)
	}

	if _, err := bc.GetTransactionOutput(wire.NewOutPoint(&cbHash, 7)); !chainerr.Is(err, chainerr.ErrInvalidOutPoint) {
		t.Fatalf("expected ErrInvalidOutPoint for an out-of-range index, got %v", err)
	}

	missing := chainhash.HashData([]byte("nonexistent"))
	if _, err := bc.GetTransactionOutput(wire.NewOutPoint(&missing, 0)); !chainerr.Is(err, chainerr.ErrInvalidOutPoint) {
		t.Fatalf("expected ErrInvalidOutPoint for an unknown transaction, got %v", err)
	}
}

func TestChainIteratorWalksBestChainForward(t *testing.T) {
	bc, _ := newTestChain()

	genesis := coinbaseBlock(chainhash.Hash{}, lowWorkBits, 0)
	mustPut(t, bc, genesis)
	block1 := coinbaseBlock(genesis.BlockHash(), lowWorkBits, 1)
	mustPut(t, bc, block1)
	block2 := coinbaseBlock(block1.BlockHash(), lowWorkBits, 2)
	mustPut(t, bc, block2)

	it, err := bc.NewChainIterator(1)
	if err != nil {
		t.Fatalf("NewChainIterator: %v", err)
	}

	var got []chainhash.Hash
	for {
		cb, ok, err := it.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		got = append(got, cb.Block.BlockHash())
	}

	if len(got) != 2 || got[0] != block1.BlockHash() || got[1] != block2.BlockHash() {
		t.Fatalf("ChainIterator from height 1 = %v, want [%s, %s]", got, block1.BlockHash(), block2.BlockHash())
	}
}
