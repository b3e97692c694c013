// Package blockorphanage implements BlockOrphanage (spec.md §4.5): the
// holding area for blocks whose parent is not yet known. Grounded on
// the teacher's blockdag/dag.go orphan bookkeeping (addOrphanBlock,
// removeOrphanBlock, prevOrphans index, expiration-on-insert eviction),
// generalized from the teacher's multi-parent ParentHashes to a single
// HashPrevBlock link and extended with getRootOrphanOf (spec.md §4.5),
// which the teacher's DAG model has no equivalent for since any DAG
// orphan already names all of its missing parents directly.
package blockorphanage

import (
	"time"

	"github.com/ledgerforge/chaincore/chainhash"
	"github.com/ledgerforge/chaincore/logger"
	"github.com/ledgerforge/chaincore/wire"
)

var log, _ = logger.Get(logger.SubsystemTags.ORPH)

// defaultMaxOrphans bounds the orphan pool to prevent memory
// exhaustion from a flood of unconnected blocks, mirroring the
// teacher's maxOrphanBlocks.
const defaultMaxOrphans = 500

// defaultOrphanTTL mirrors the teacher's one-hour orphan block
// expiration.
const defaultOrphanTTL = time.Hour

type orphanBlock struct {
	block      *wire.MsgBlock
	expiration time.Time
}

// Orphanage holds blocks keyed by hash, indexed by parent hash for
// dependency lookups. It is not safe for concurrent use; the facade
// serializes every call under its own lock (spec.md §5).
type Orphanage struct {
	maxOrphans int
	ttl        time.Duration

	orphans     map[chainhash.Hash]*orphanBlock
	byParent    map[chainhash.Hash]map[chainhash.Hash]bool
	newestHash  chainhash.Hash
	newestKnown bool
}

// New creates an empty Orphanage with the default size limit and TTL.
func New() *Orphanage {
	return NewWithLimits(defaultMaxOrphans, defaultOrphanTTL)
}

// NewWithLimits creates an empty Orphanage with an explicit size limit
// and TTL, for tests that need to exercise eviction without waiting an
// hour or inserting 500 blocks.
func NewWithLimits(maxOrphans int, ttl time.Duration) *Orphanage {
	return &Orphanage{
		maxOrphans: maxOrphans,
		ttl:        ttl,
		orphans:    make(map[chainhash.Hash]*orphanBlock),
		byParent:   make(map[chainhash.Hash]map[chainhash.Hash]bool),
	}
}

// PutOrphan adds block to the orphanage, lazily expiring stale entries
// and evicting the newest orphan if the pool is at capacity — removing
// the newest (rather than a random one) biases eviction against
// blocks that are closer to the current tip and thus more likely to be
// resolved soon, matching the teacher's policy.
func (o *Orphanage) PutOrphan(block *wire.MsgBlock) {
	hash := block.BlockHash()
	if _, exists := o.orphans[hash]; exists {
		return
	}

	now := time.Now()
	for h, ob := range o.orphans {
		if now.After(ob.expiration) {
			o.removeOrphan(h)
		}
	}

	if len(o.orphans)+1 > o.maxOrphans && o.newestKnown {
		o.removeOrphan(o.newestHash)
	}

	ob := &orphanBlock{block: block, expiration: now.Add(o.ttl)}
	o.orphans[hash] = ob
	parent := block.Header.HashPrevBlock
	if o.byParent[parent] == nil {
		o.byParent[parent] = make(map[chainhash.Hash]bool)
	}
	o.byParent[parent][hash] = true
	o.newestHash = hash
	o.newestKnown = true

	log.Debugf("Stored orphan block %s (total: %d)", hash, len(o.orphans))
}

// RemoveOrphan removes hash from the orphanage. It is a no-op if hash
// is not present.
func (o *Orphanage) RemoveOrphan(hash chainhash.Hash) {
	o.removeOrphan(hash)
}

func (o *Orphanage) removeOrphan(hash chainhash.Hash) {
	ob, exists := o.orphans[hash]
	if !exists {
		return
	}
	delete(o.orphans, hash)

	parent := ob.block.Header.HashPrevBlock
	if siblings, ok := o.byParent[parent]; ok {
		delete(siblings, hash)
		if len(siblings) == 0 {
			delete(o.byParent, parent)
		}
	}
}

// HasOrphan reports whether hash is currently held as an orphan.
func (o *Orphanage) HasOrphan(hash chainhash.Hash) bool {
	_, exists := o.orphans[hash]
	return exists
}

// GetOrphan returns the orphan block stored under hash, if any.
func (o *Orphanage) GetOrphan(hash chainhash.Hash) (*wire.MsgBlock, bool) {
	ob, exists := o.orphans[hash]
	if !exists {
		return nil, false
	}
	return ob.block, true
}

// GetOrphansDependingOn returns the hashes of every orphan whose
// HashPrevBlock is parentHash, for promotion once parentHash is
// accepted.
func (o *Orphanage) GetOrphansDependingOn(parentHash chainhash.Hash) []chainhash.Hash {
	siblings := o.byParent[parentHash]
	if len(siblings) == 0 {
		return nil
	}
	hashes := make([]chainhash.Hash, 0, len(siblings))
	for hash := range siblings {
		hashes = append(hashes, hash)
	}
	return hashes
}

// GetRootOrphanOf walks HashPrevBlock links within the orphanage
// starting at hash to find the earliest ancestor that is itself still
// an orphan (i.e. whose own parent is not held here). If hash is not
// an orphan, the second return value is false.
func (o *Orphanage) GetRootOrphanOf(hash chainhash.Hash) (chainhash.Hash, bool) {
	ob, exists := o.orphans[hash]
	if !exists {
		return chainhash.Hash{}, false
	}
	root := hash
	for {
		parent := ob.block.Header.HashPrevBlock
		parentOb, parentIsOrphan := o.orphans[parent]
		if !parentIsOrphan {
			return root, true
		}
		root = parent
		ob = parentOb
	}
}

// Count returns the number of orphans currently held.
func (o *Orphanage) Count() int {
	return len(o.orphans)
}

// ChainDepth reports how many orphans deep hash sits below its root
// orphan ancestor (0 if hash's own parent is not itself orphaned). The
// second return value is false if hash is not held. Built on the same
// HashPrevBlock walk as GetRootOrphanOf, promoted to a named operation
// per SPEC_FULL.md §13 since BlockProcessor logging benefits from
// reporting how deep an accepted chain of orphans ran.
func (o *Orphanage) ChainDepth(hash chainhash.Hash) (int, bool) {
	ob, exists := o.orphans[hash]
	if !exists {
		return 0, false
	}
	depth := 0
	for {
		parentOb, parentIsOrphan := o.orphans[ob.block.Header.HashPrevBlock]
		if !parentIsOrphan {
			return depth, true
		}
		depth++
		ob = parentOb
	}
}
