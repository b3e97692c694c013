package blockorphanage

import (
	"testing"
	"time"

	"github.com/ledgerforge/chaincore/chainhash"
	"github.com/ledgerforge/chaincore/wire"
)

func blockWithParent(prevHash chainhash.Hash, nonce uint64) *wire.MsgBlock {
	return &wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:       1,
			HashPrevBlock: prevHash,
			Nonce:         nonce,
		},
	}
}

func TestPutAndHasOrphan(t *testing.T) {
	o := New()
	block := blockWithParent(chainhash.HashData([]byte("parent")), 1)
	hash := block.BlockHash()

	o.PutOrphan(block)
	if !o.HasOrphan(hash) {
		t.Fatal("expected orphan to be present after PutOrphan")
	}
	got, found := o.GetOrphan(hash)
	if !found || got.BlockHash() != hash {
		t.Fatalf("GetOrphan = %v, %v", got, found)
	}
}

func TestRemoveOrphan(t *testing.T) {
	o := New()
	block := blockWithParent(chainhash.HashData([]byte("parent")), 1)
	hash := block.BlockHash()

	o.PutOrphan(block)
	o.RemoveOrphan(hash)
	if o.HasOrphan(hash) {
		t.Fatal("expected orphan to be removed")
	}
	if deps := o.GetOrphansDependingOn(block.Header.HashPrevBlock); len(deps) != 0 {
		t.Fatalf("expected no dependents after removal, got %v", deps)
	}
}

func TestGetOrphansDependingOn(t *testing.T) {
	o := New()
	parent := chainhash.HashData([]byte("parent"))
	childA := blockWithParent(parent, 1)
	childB := blockWithParent(parent, 2)

	o.PutOrphan(childA)
	o.PutOrphan(childB)

	deps := o.GetOrphansDependingOn(parent)
	if len(deps) != 2 {
		t.Fatalf("expected 2 dependents, got %d", len(deps))
	}
}

func TestGetRootOrphanOf(t *testing.T) {
	o := New()
	unknownRoot := chainhash.HashData([]byte("unknown ancestor"))
	a := blockWithParent(unknownRoot, 1)
	aHash := a.BlockHash()
	b := blockWithParent(aHash, 2)
	bHash := b.BlockHash()
	c := blockWithParent(bHash, 3)
	cHash := c.BlockHash()

	o.PutOrphan(a)
	o.PutOrphan(b)
	o.PutOrphan(c)

	root, found := o.GetRootOrphanOf(cHash)
	if !found {
		t.Fatal("expected GetRootOrphanOf to find a root")
	}
	if root != aHash {
		t.Fatalf("GetRootOrphanOf(c) = %s, want %s (a)", root, aHash)
	}
}

func TestGetRootOrphanOfNotAnOrphan(t *testing.T) {
	o := New()
	_, found := o.GetRootOrphanOf(chainhash.HashData([]byte("nothing")))
	if found {
		t.Fatal("expected GetRootOrphanOf to report not-found for an unknown hash")
	}
}

func TestPutOrphanEvictsNewestWhenFull(t *testing.T) {
	o := NewWithLimits(2, time.Hour)

	first := blockWithParent(chainhash.HashData([]byte("p1")), 1)
	second := blockWithParent(chainhash.HashData([]byte("p2")), 2)
	third := blockWithParent(chainhash.HashData([]byte("p3")), 3)

	o.PutOrphan(first)
	o.PutOrphan(second)
	if o.Count() != 2 {
		t.Fatalf("expected 2 orphans, got %d", o.Count())
	}

	o.PutOrphan(third)
	if o.Count() != 2 {
		t.Fatalf("expected eviction to keep count at 2, got %d", o.Count())
	}
	if o.HasOrphan(second.BlockHash()) {
		t.Fatal("expected the newest prior orphan to be evicted to make room")
	}
	if !o.HasOrphan(first.BlockHash()) || !o.HasOrphan(third.BlockHash()) {
		t.Fatal("expected the first and newly inserted orphans to remain")
	}
}

func TestPutOrphanExpiresStaleEntries(t *testing.T) {
	o := NewWithLimits(10, time.Millisecond)
	block := blockWithParent(chainhash.HashData([]byte("parent")), 1)
	o.PutOrphan(block)

	time.Sleep(5 * time.Millisecond)

	next := blockWithParent(chainhash.HashData([]byte("other parent")), 2)
	o.PutOrphan(next)

	if o.HasOrphan(block.BlockHash()) {
		t.Fatal("expected the expired orphan to be evicted on the next insert")
	}
}
