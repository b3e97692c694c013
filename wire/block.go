// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"io"

	"github.com/pkg/errors"

	"github.com/ledgerforge/chaincore/chainhash"
)

// MaxBlockTransactions bounds the number of transactions a block read
// from the wire may carry.
const MaxBlockTransactions = 1_000_000

// MsgBlock defines a block, per spec.md §3: a header plus an ordered
// sequence of transactions whose first entry is always the coinbase.
type MsgBlock struct {
	Header       BlockHeader
	Transactions []*MsgTx
}

// BlockHash returns the block's identifier hash (the header's hash).
func (b *MsgBlock) BlockHash() chainhash.Hash {
	return b.Header.BlockHash()
}

// Coinbase returns the block's coinbase transaction, its first
// transaction. Panics if the block has no transactions, which cannot
// happen for a block that has passed CheckSanity.
func (b *MsgBlock) Coinbase() *MsgTx {
	return b.Transactions[0]
}

// CheckSanity performs the context-free structural checks every block
// must pass before it is considered for attachment: at least one
// transaction, and the first transaction being a coinbase.
func (b *MsgBlock) CheckSanity() error {
	if len(b.Transactions) == 0 {
		return errors.New("block has no transactions")
	}
	if !b.Transactions[0].IsCoinbase() {
		return errors.New("first transaction in block is not a coinbase")
	}
	for _, tx := range b.Transactions[1:] {
		if tx.IsCoinbase() {
			return errors.New("block contains a second coinbase transaction")
		}
	}
	return nil
}

// BuildMerkleRoot computes the merkle root of the block's transaction
// hashes, following the standard Bitcoin convention of duplicating the
// last element of an odd-length level.
func (b *MsgBlock) BuildMerkleRoot() chainhash.Hash {
	if len(b.Transactions) == 0 {
		return chainhash.ZeroHash
	}

	level := make([]chainhash.Hash, len(b.Transactions))
	for i, tx := range b.Transactions {
		level[i] = tx.TxHash()
	}

	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}
		next := make([]chainhash.Hash, len(level)/2)
		for i := range next {
			var buf [2 * chainhash.HashSize]byte
			copy(buf[:chainhash.HashSize], level[2*i][:])
			copy(buf[chainhash.HashSize:], level[2*i+1][:])
			next[i] = chainhash.HashData(buf[:])
		}
		level = next
	}
	return level[0]
}

// SerializeSize returns the number of bytes it would take to serialize b.
func (b *MsgBlock) SerializeSize() int {
	n := BlockHeaderPayload
	n += VarIntSerializeSize(uint64(len(b.Transactions)))
	for _, tx := range b.Transactions {
		n += tx.SerializeSize()
	}
	return n
}

// Serialize encodes the block to w.
func (b *MsgBlock) Serialize(w io.Writer) error {
	if err := writeBlockHeader(w, &b.Header); err != nil {
		return err
	}
	if err := WriteVarInt(w, uint64(len(b.Transactions))); err != nil {
		return err
	}
	for _, tx := range b.Transactions {
		if err := tx.Serialize(w); err != nil {
			return err
		}
	}
	return nil
}

// Deserialize decodes a block from r.
func (b *MsgBlock) Deserialize(r io.Reader) error {
	if err := readBlockHeader(r, &b.Header); err != nil {
		return err
	}
	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > MaxBlockTransactions {
		return errors.Errorf("block contains too many transactions [count %d, max %d]", count, MaxBlockTransactions)
	}
	b.Transactions = make([]*MsgTx, count)
	for i := range b.Transactions {
		tx := new(MsgTx)
		if err := tx.Deserialize(r); err != nil {
			return err
		}
		b.Transactions[i] = tx
	}
	return nil
}

// Bytes returns the serialized form of the block.
func (b *MsgBlock) Bytes() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, b.SerializeSize()))
	_ = b.Serialize(buf)
	return buf.Bytes()
}

// BlockFromBytes decodes a block previously produced by Bytes/Serialize.
func BlockFromBytes(data []byte) (*MsgBlock, error) {
	b := new(MsgBlock)
	if err := b.Deserialize(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return b, nil
}
