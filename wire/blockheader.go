// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"io"
	"time"

	"github.com/ledgerforge/chaincore/chainhash"
)

// BlockHeaderPayload is the number of bytes a block header occupies on the
// wire: version(4) + hashPrevBlock(32) + merkleRoot(32) + time(8) +
// bits(4) + nonce(8).
const BlockHeaderPayload = 4 + chainhash.HashSize + chainhash.HashSize + 8 + 4 + 8

// BlockHeader defines information about a block, per spec.md §3.
type BlockHeader struct {
	// Version of the block.
	Version int32

	// HashPrevBlock is the hash of the parent block header. The
	// all-zero hash denotes "no previous block" (genesis).
	HashPrevBlock chainhash.Hash

	// MerkleRoot is the merkle tree reference to the hash of all
	// transactions in the block.
	MerkleRoot chainhash.Hash

	// Timestamp the block was created.
	Timestamp time.Time

	// Bits is the difficulty target for the block in compact form.
	Bits uint32

	// Nonce used to mine the block.
	Nonce uint64
}

// BlockHash computes the block identifier hash for the given block
// header: the double-SHA256 of its serialized bytes.
func (h *BlockHeader) BlockHash() chainhash.Hash {
	buf := bytes.NewBuffer(make([]byte, 0, BlockHeaderPayload))
	// Serialization never fails against a bytes.Buffer.
	_ = writeBlockHeader(buf, h)
	return chainhash.HashData(buf.Bytes())
}

// IsGenesis reports whether this header has no parent, i.e. HashPrevBlock
// is the all-zero sentinel.
func (h *BlockHeader) IsGenesis() bool {
	return h.HashPrevBlock.IsZero()
}

func writeBlockHeader(w io.Writer, h *BlockHeader) error {
	if err := writeInt32(w, h.Version); err != nil {
		return err
	}
	if err := writeHash(w, &h.HashPrevBlock); err != nil {
		return err
	}
	if err := writeHash(w, &h.MerkleRoot); err != nil {
		return err
	}
	if err := writeUint64(w, uint64(h.Timestamp.Unix())); err != nil {
		return err
	}
	if err := writeUint32(w, h.Bits); err != nil {
		return err
	}
	return writeUint64(w, h.Nonce)
}

func readBlockHeader(r io.Reader, h *BlockHeader) error {
	var err error
	if h.Version, err = readInt32(r); err != nil {
		return err
	}
	if err = readHash(r, &h.HashPrevBlock); err != nil {
		return err
	}
	if err = readHash(r, &h.MerkleRoot); err != nil {
		return err
	}
	unixSecs, err := readUint64(r)
	if err != nil {
		return err
	}
	h.Timestamp = time.Unix(int64(unixSecs), 0).UTC()
	if h.Bits, err = readUint32(r); err != nil {
		return err
	}
	h.Nonce, err = readUint64(r)
	return err
}

// Serialize encodes the header to w using the on-wire format.
func (h *BlockHeader) Serialize(w io.Writer) error {
	return writeBlockHeader(w, h)
}

// Deserialize decodes a header from r using the on-wire format.
func (h *BlockHeader) Deserialize(r io.Reader) error {
	return readBlockHeader(r, h)
}

// Bytes returns the serialized form of the header.
func (h *BlockHeader) Bytes() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, BlockHeaderPayload))
	_ = writeBlockHeader(buf, h)
	return buf.Bytes()
}
