package blockstore

import (
	"github.com/ledgerforge/chaincore/chainhash"
	"github.com/ledgerforge/chaincore/chainstate"
	"github.com/ledgerforge/chaincore/database"
	"github.com/ledgerforge/chaincore/wire"
)

type heightEntry struct {
	hash    chainhash.Hash
	deleted bool
}

type txDescEntry struct {
	desc    *chainstate.TransactionDescriptor
	deleted bool
}

type poolTxEntry struct {
	tx      *wire.MsgTx
	deleted bool
}

// batch is the in-memory overlay backing one call to Store.Update. It
// implements chainstate.StorageBatch, shadowing the parent Store for
// reads so a batch observes its own writes before they are flushed.
type batch struct {
	store *Store
	dbTx  database.Transaction

	blockInfo  map[chainhash.Hash]*chainstate.BlockInfo
	blockBytes map[chainhash.Hash]*wire.MsgBlock

	bestBlockHash    chainhash.Hash
	bestBlockHashSet bool

	heights map[uint32]*heightEntry
	txDesc  map[chainhash.Hash]*txDescEntry
	poolTx  map[chainhash.Hash]*poolTxEntry

	poolSeqAdds    map[uint64]chainhash.Hash
	poolSeqDeletes map[uint64]bool
	poolSeqCounter *uint64
}

func newBatch(store *Store, dbTx database.Transaction) *batch {
	return &batch{
		store:       store,
		dbTx:        dbTx,
		blockInfo:   make(map[chainhash.Hash]*chainstate.BlockInfo),
		blockBytes:  make(map[chainhash.Hash]*wire.MsgBlock),
		heights:     make(map[uint32]*heightEntry),
		txDesc:      make(map[chainhash.Hash]*txDescEntry),
		poolTx:      make(map[chainhash.Hash]*poolTxEntry),
		poolSeqAdds: make(map[uint64]chainhash.Hash),
	}
}

func (b *batch) HasBlock(hash chainhash.Hash) (bool, error) {
	if _, ok := b.blockInfo[hash]; ok {
		return true, nil
	}
	return b.store.HasBlock(hash)
}

func (b *batch) GetBlockInfo(hash chainhash.Hash) (*chainstate.BlockInfo, bool, error) {
	if info, ok := b.blockInfo[hash]; ok {
		return info.Clone(), true, nil
	}
	return b.store.GetBlockInfo(hash)
}

func (b *batch) GetBlock(hash chainhash.Hash) (*chainstate.BlockInfo, *wire.MsgBlock, bool, error) {
	info, found, err := b.GetBlockInfo(hash)
	if err != nil || !found {
		return nil, nil, found, err
	}
	if block, ok := b.blockBytes[hash]; ok {
		return info, block, true, nil
	}
	_, block, found, err := b.store.GetBlock(hash)
	return info, block, found, err
}

func (b *batch) PutBlock(hash chainhash.Hash, info *chainstate.BlockInfo, block *wire.MsgBlock) error {
	b.blockInfo[hash] = info.Clone()
	b.blockBytes[hash] = block
	return nil
}

func (b *batch) PutBlockInfo(hash chainhash.Hash, info *chainstate.BlockInfo) error {
	b.blockInfo[hash] = info.Clone()
	return nil
}

func (b *batch) GetBestBlockHash() (chainhash.Hash, bool, error) {
	if b.bestBlockHashSet {
		return b.bestBlockHash, true, nil
	}
	return b.store.GetBestBlockHash()
}

func (b *batch) PutBestBlockHash(hash chainhash.Hash) error {
	b.bestBlockHash = hash
	b.bestBlockHashSet = true
	return nil
}

func (b *batch) GetBlockHashByHeight(height uint32) (chainhash.Hash, bool, error) {
	if e, ok := b.heights[height]; ok {
		if e.deleted {
			return chainhash.Hash{}, false, nil
		}
		return e.hash, true, nil
	}
	return b.store.GetBlockHashByHeight(height)
}

func (b *batch) PutBlockHashByHeight(height uint32, hash chainhash.Hash) error {
	b.heights[height] = &heightEntry{hash: hash}
	return nil
}

func (b *batch) DelBlockHashByHeight(height uint32) error {
	b.heights[height] = &heightEntry{deleted: true}
	return nil
}

func (b *batch) GetTransaction(hash chainhash.Hash) (*wire.MsgTx, bool, error) {
	desc, found, err := b.GetTransactionDescriptor(hash)
	if err != nil || !found {
		return nil, found, err
	}
	if desc.InPool() {
		if e, ok := b.poolTx[hash]; ok {
			if e.deleted {
				return nil, false, nil
			}
			return e.tx, true, nil
		}
		return b.store.GetTransaction(hash)
	}
	_, block, found, err := b.GetBlock(desc.OnChain.BlockHash)
	if err != nil || !found {
		return nil, found, err
	}
	if int(desc.OnChain.Offset) >= len(block.Transactions) {
		return nil, false, nil
	}
	return block.Transactions[desc.OnChain.Offset], true, nil
}

func (b *batch) GetTransactionDescriptor(hash chainhash.Hash) (*chainstate.TransactionDescriptor, bool, error) {
	if e, ok := b.txDesc[hash]; ok {
		if e.deleted {
			return nil, false, nil
		}
		return e.desc, true, nil
	}
	return b.store.GetTransactionDescriptor(hash)
}

func (b *batch) PutTransactionDescriptor(hash chainhash.Hash, desc *chainstate.TransactionDescriptor) error {
	b.txDesc[hash] = &txDescEntry{desc: desc}
	return nil
}

func (b *batch) DelTransactionDescriptor(hash chainhash.Hash) error {
	b.txDesc[hash] = &txDescEntry{deleted: true}
	return nil
}

func (b *batch) PutTransactionToPool(hash chainhash.Hash, tx *wire.MsgTx, sequence uint64) error {
	b.poolTx[hash] = &poolTxEntry{tx: tx}
	b.poolSeqAdds[sequence] = hash
	return nil
}

func (b *batch) DelTransactionFromPool(hash chainhash.Hash) error {
	b.poolTx[hash] = &poolTxEntry{deleted: true}

	desc, found, err := b.GetTransactionDescriptor(hash)
	if err != nil {
		return err
	}
	if found && desc.InPool() {
		if b.poolSeqDeletes == nil {
			b.poolSeqDeletes = make(map[uint64]bool)
		}
		b.poolSeqDeletes[desc.PoolSequence] = true
		delete(b.poolSeqAdds, desc.PoolSequence)
	}
	return nil
}

func (b *batch) NextPoolSequence() (uint64, error) {
	if b.poolSeqCounter == nil {
		data, found, err := b.store.db.Get(bucketMeta, metaPoolSeqCounterKey)
		if err != nil {
			return 0, err
		}
		var counter uint64
		if found {
			counter = decodeUint64(data)
		}
		b.poolSeqCounter = &counter
	}
	seq := *b.poolSeqCounter
	*b.poolSeqCounter++
	return seq, nil
}

// flush writes every staged change into the underlying database
// transaction. It does not commit; the caller (Store.Update) commits
// once flush returns successfully.
func (b *batch) flush() error {
	for hash, info := range b.blockInfo {
		data, err := serializeBlockInfo(info)
		if err != nil {
			return err
		}
		if err := b.dbTx.Put(bucketBlockInfo, hash[:], data); err != nil {
			return err
		}
	}
	for hash, block := range b.blockBytes {
		data, err := serializeBlock(block)
		if err != nil {
			return err
		}
		if err := b.dbTx.Put(bucketBlockBytes, hash[:], data); err != nil {
			return err
		}
	}
	if b.bestBlockHashSet {
		if err := b.dbTx.Put(bucketMeta, metaBestBlockKey, b.bestBlockHash[:]); err != nil {
			return err
		}
	}
	for height, e := range b.heights {
		if e.deleted {
			if err := b.dbTx.Delete(bucketHeights, heightKey(height)); err != nil {
				return err
			}
			continue
		}
		if err := b.dbTx.Put(bucketHeights, heightKey(height), e.hash[:]); err != nil {
			return err
		}
	}
	for hash, e := range b.txDesc {
		if e.deleted {
			if err := b.dbTx.Delete(bucketTxDesc, hash[:]); err != nil {
				return err
			}
			continue
		}
		data, err := serializeTransactionDescriptor(e.desc)
		if err != nil {
			return err
		}
		if err := b.dbTx.Put(bucketTxDesc, hash[:], data); err != nil {
			return err
		}
	}
	for hash, e := range b.poolTx {
		if e.deleted {
			if err := b.dbTx.Delete(bucketPoolTx, hash[:]); err != nil {
				return err
			}
			continue
		}
		data, err := serializeTx(e.tx)
		if err != nil {
			return err
		}
		if err := b.dbTx.Put(bucketPoolTx, hash[:], data); err != nil {
			return err
		}
	}
	for seq, hash := range b.poolSeqAdds {
		if err := b.dbTx.Put(bucketPoolSeq, poolSeqKey(seq), hash[:]); err != nil {
			return err
		}
	}
	for seq := range b.poolSeqDeletes {
		if err := b.dbTx.Delete(bucketPoolSeq, poolSeqKey(seq)); err != nil {
			return err
		}
	}
	if b.poolSeqCounter != nil {
		if err := b.dbTx.Put(bucketMeta, metaPoolSeqCounterKey, encodeUint64(*b.poolSeqCounter)); err != nil {
			return err
		}
	}
	return nil
}

func encodeUint64(v uint64) []byte {
	buf := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		buf[i] = byte(v)
		v >>= 8
	}
	return buf
}

func decodeUint64(data []byte) uint64 {
	var v uint64
	for _, b := range data {
		v = v<<8 | uint64(b)
	}
	return v
}
