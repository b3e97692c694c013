// Package txorphanage implements TransactionOrphanage (spec.md §4.6):
// the holding area for transactions with at least one unresolvable
// input OutPoint. Grounded on the teacher's
// domain/miningmanager/mempool/orphan_pool.go (idsToOrphans /
// previousOutpointToOrphans map pair, maybeAddOrphan's size cap),
// adapted from the teacher's UTXOEntry-presence check to tracking the
// exact missing outpoints a caller reports, per spec.md §4.6's simpler
// "missingOutPoint → set of tx hashes" contract.
package txorphanage

import (
	"github.com/ledgerforge/chaincore/chainerr"
	"github.com/ledgerforge/chaincore/chainhash"
	"github.com/ledgerforge/chaincore/logger"
	"github.com/ledgerforge/chaincore/wire"
)

var log, _ = logger.Get(logger.SubsystemTags.POOL)

// defaultMaxOrphans bounds the orphan transaction pool to prevent
// memory exhaustion from a flood of unresolvable transactions,
// mirroring the teacher's MaximumOrphanTransactionCount.
const defaultMaxOrphans = 1000

type orphanTx struct {
	tx              *wire.MsgTx
	missingOutPoint map[wire.OutPoint]bool
}

// Orphanage holds transactions keyed by hash, indexed by each missing
// input outpoint for dependency lookups. It is not safe for concurrent
// use; the facade serializes every call under its own lock (spec.md §5).
type Orphanage struct {
	maxOrphans int

	orphans    map[chainhash.Hash]*orphanTx
	byOutpoint map[wire.OutPoint]map[chainhash.Hash]bool
}

// New creates an empty Orphanage with the default size limit.
func New() *Orphanage {
	return NewWithLimit(defaultMaxOrphans)
}

// NewWithLimit creates an empty Orphanage with an explicit size limit,
// for tests that need to exercise eviction without inserting 1000
// transactions.
func NewWithLimit(maxOrphans int) *Orphanage {
	return &Orphanage{
		maxOrphans: maxOrphans,
		orphans:    make(map[chainhash.Hash]*orphanTx),
		byOutpoint: make(map[wire.OutPoint]map[chainhash.Hash]bool),
	}
}

// PutOrphan records tx against each of its unresolved missing
// outpoints. If the pool is at capacity, the caller's transaction is
// rejected with ErrMissingInputs wrapped in a rule error rather than
// evicting another orphan at random — unlike the teacher's mempool,
// there is no "high priority" concept here to protect, so a full pool
// simply refuses new entries until something is promoted or evicted.
func (o *Orphanage) PutOrphan(tx *wire.MsgTx, missing []wire.OutPoint) error {
	hash := tx.TxHash()
	if _, exists := o.orphans[hash]; exists {
		return nil
	}
	if len(missing) == 0 {
		return chainerr.NewRuleError(chainerr.ErrMissingInputs, "PutOrphan requires at least one missing outpoint")
	}
	if len(o.orphans) >= o.maxOrphans {
		return chainerr.NewRuleError(chainerr.ErrMissingInputs, "transaction orphanage is full")
	}

	ot := &orphanTx{tx: tx, missingOutPoint: make(map[wire.OutPoint]bool, len(missing))}
	for _, op := range missing {
		ot.missingOutPoint[op] = true
		if o.byOutpoint[op] == nil {
			o.byOutpoint[op] = make(map[chainhash.Hash]bool)
		}
		o.byOutpoint[op][hash] = true
	}
	o.orphans[hash] = ot

	log.Debugf("Stored orphan transaction %s (total: %d)", hash, len(o.orphans))
	return nil
}

// RemoveOrphan removes hash from the orphanage. It is a no-op if hash
// is not present.
func (o *Orphanage) RemoveOrphan(hash chainhash.Hash) {
	ot, exists := o.orphans[hash]
	if !exists {
		return
	}
	delete(o.orphans, hash)
	for op := range ot.missingOutPoint {
		if siblings, ok := o.byOutpoint[op]; ok {
			delete(siblings, hash)
			if len(siblings) == 0 {
				delete(o.byOutpoint, op)
			}
		}
	}
}

// HasOrphan reports whether hash is currently held as an orphan.
func (o *Orphanage) HasOrphan(hash chainhash.Hash) bool {
	_, exists := o.orphans[hash]
	return exists
}

// GetOrphan returns the orphan transaction stored under hash, if any.
func (o *Orphanage) GetOrphan(hash chainhash.Hash) (*wire.MsgTx, bool) {
	ot, exists := o.orphans[hash]
	if !exists {
		return nil, false
	}
	return ot.tx, true
}

// GetOrphansDependingOn returns the hashes of every orphan that names
// outpoint among its missing inputs, for re-submission once outpoint
// becomes resolvable (the producing transaction is confirmed or
// pooled).
func (o *Orphanage) GetOrphansDependingOn(outpoint wire.OutPoint) []chainhash.Hash {
	siblings := o.byOutpoint[outpoint]
	if len(siblings) == 0 {
		return nil
	}
	hashes := make([]chainhash.Hash, 0, len(siblings))
	for hash := range siblings {
		hashes = append(hashes, hash)
	}
	return hashes
}

// Count returns the number of orphans currently held.
func (o *Orphanage) Count() int {
	return len(o.orphans)
}
