// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/ledgerforge/chaincore/chainhash"
)

func errTooManyTxIO(kind string, count, max uint64) error {
	return errors.Errorf("too many transaction %s entries [count %d, max %d]", kind, count, max)
}

// CoinbaseOutputIndex is the out-of-range output index used by the input
// of a coinbase transaction, matching Bitcoin's 0xFFFFFFFF convention.
const CoinbaseOutputIndex = 0xFFFFFFFF

// MaxScriptSize bounds locking/unlocking scripts read from the wire to
// guard against memory-exhaustion from malformed input.
const MaxScriptSize = 10 * 1024

// MaxTxInPerMessage / MaxTxOutPerMessage bound the number of inputs and
// outputs a single transaction may carry when read from the wire.
const (
	MaxTxInPerMessage  = 1_000_000
	MaxTxOutPerMessage = 1_000_000
)

// OutPoint identifies a specific output of a specific transaction, per
// spec.md §3.
type OutPoint struct {
	TxHash      chainhash.Hash
	OutputIndex uint32
}

// NewOutPoint returns a new OutPoint for the given hash and index.
func NewOutPoint(hash *chainhash.Hash, index uint32) OutPoint {
	return OutPoint{TxHash: *hash, OutputIndex: index}
}

// IsCoinbaseOutPoint reports whether op is the sentinel outpoint a
// coinbase input carries: an all-zero hash and the max output index.
func (op OutPoint) IsCoinbaseOutPoint() bool {
	return op.TxHash.IsZero() && op.OutputIndex == CoinbaseOutputIndex
}

// String returns op in "hash:index" form.
func (op OutPoint) String() string {
	return fmt.Sprintf("%s:%d", op.TxHash, op.OutputIndex)
}

func (op OutPoint) write(w io.Writer) error {
	if err := writeHash(w, &op.TxHash); err != nil {
		return err
	}
	return writeUint32(w, op.OutputIndex)
}

func (op *OutPoint) read(r io.Reader) error {
	if err := readHash(r, &op.TxHash); err != nil {
		return err
	}
	var err error
	op.OutputIndex, err = readUint32(r)
	return err
}

// TxIn defines a transaction input, per spec.md §3.
type TxIn struct {
	PreviousOutPoint OutPoint
	UnlockingScript  []byte
	Sequence         uint64
}

// IsCoinbaseInput reports whether this input is the coinbase's sole
// input (all-zero previous-output hash, max output index).
func (in *TxIn) IsCoinbaseInput() bool {
	return in.PreviousOutPoint.IsCoinbaseOutPoint()
}

func (in *TxIn) write(w io.Writer) error {
	if err := in.PreviousOutPoint.write(w); err != nil {
		return err
	}
	if err := WriteVarBytes(w, in.UnlockingScript); err != nil {
		return err
	}
	return writeUint64(w, in.Sequence)
}

func (in *TxIn) read(r io.Reader) error {
	if err := in.PreviousOutPoint.read(r); err != nil {
		return err
	}
	script, err := ReadVarBytes(r, MaxScriptSize, "TxIn.UnlockingScript")
	if err != nil {
		return err
	}
	in.UnlockingScript = script
	in.Sequence, err = readUint64(r)
	return err
}

// TxOut defines a transaction output, per spec.md §3.
type TxOut struct {
	Value         uint64
	LockingScript []byte
}

func (out *TxOut) write(w io.Writer) error {
	if err := writeUint64(w, out.Value); err != nil {
		return err
	}
	return WriteVarBytes(w, out.LockingScript)
}

func (out *TxOut) read(r io.Reader) error {
	var err error
	out.Value, err = readUint64(r)
	if err != nil {
		return err
	}
	script, err := ReadVarBytes(r, MaxScriptSize, "TxOut.LockingScript")
	if err != nil {
		return err
	}
	out.LockingScript = script
	return nil
}

// MsgTx defines a transaction, per spec.md §3. Transactions[0] of a Block
// is always its coinbase.
type MsgTx struct {
	Version  int32
	TxIn     []*TxIn
	TxOut    []*TxOut
	LockTime uint64
}

// IsCoinbase determines whether a transaction is a coinbase: it has
// exactly one input, and that input carries the coinbase sentinel
// outpoint.
func (tx *MsgTx) IsCoinbase() bool {
	return len(tx.TxIn) == 1 && tx.TxIn[0].IsCoinbaseInput()
}

// TxHash computes the transaction's identifier: the double-SHA256 of its
// serialized bytes.
func (tx *MsgTx) TxHash() chainhash.Hash {
	buf := bytes.NewBuffer(make([]byte, 0, tx.SerializeSize()))
	_ = tx.Serialize(buf)
	return chainhash.HashData(buf.Bytes())
}

// SerializeSize returns the number of bytes it would take to serialize tx.
func (tx *MsgTx) SerializeSize() int {
	n := 4 + 8 // version + lockTime
	n += VarIntSerializeSize(uint64(len(tx.TxIn)))
	for _, in := range tx.TxIn {
		n += chainhash.HashSize + 4 + 8 // outpoint + sequence
		n += VarIntSerializeSize(uint64(len(in.UnlockingScript))) + len(in.UnlockingScript)
	}
	n += VarIntSerializeSize(uint64(len(tx.TxOut)))
	for _, out := range tx.TxOut {
		n += 8
		n += VarIntSerializeSize(uint64(len(out.LockingScript))) + len(out.LockingScript)
	}
	return n
}

// Serialize encodes the transaction to w.
func (tx *MsgTx) Serialize(w io.Writer) error {
	if err := writeInt32(w, tx.Version); err != nil {
		return err
	}
	if err := WriteVarInt(w, uint64(len(tx.TxIn))); err != nil {
		return err
	}
	for _, in := range tx.TxIn {
		if err := in.write(w); err != nil {
			return err
		}
	}
	if err := WriteVarInt(w, uint64(len(tx.TxOut))); err != nil {
		return err
	}
	for _, out := range tx.TxOut {
		if err := out.write(w); err != nil {
			return err
		}
	}
	return writeUint64(w, tx.LockTime)
}

// Deserialize decodes a transaction from r.
func (tx *MsgTx) Deserialize(r io.Reader) error {
	var err error
	if tx.Version, err = readInt32(r); err != nil {
		return err
	}

	inCount, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if inCount > MaxTxInPerMessage {
		return errTooManyTxIO("input", inCount, MaxTxInPerMessage)
	}
	tx.TxIn = make([]*TxIn, inCount)
	for i := range tx.TxIn {
		in := new(TxIn)
		if err := in.read(r); err != nil {
			return err
		}
		tx.TxIn[i] = in
	}

	outCount, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if outCount > MaxTxOutPerMessage {
		return errTooManyTxIO("output", outCount, MaxTxOutPerMessage)
	}
	tx.TxOut = make([]*TxOut, outCount)
	for i := range tx.TxOut {
		out := new(TxOut)
		if err := out.read(r); err != nil {
			return err
		}
		tx.TxOut[i] = out
	}

	tx.LockTime, err = readUint64(r)
	return err
}

// Copy returns a deep copy of tx.
func (tx *MsgTx) Copy() *MsgTx {
	clone := &MsgTx{
		Version:  tx.Version,
		LockTime: tx.LockTime,
		TxIn:     make([]*TxIn, len(tx.TxIn)),
		TxOut:    make([]*TxOut, len(tx.TxOut)),
	}
	for i, in := range tx.TxIn {
		clonedIn := *in
		clonedIn.UnlockingScript = append([]byte(nil), in.UnlockingScript...)
		clone.TxIn[i] = &clonedIn
	}
	for i, out := range tx.TxOut {
		clonedOut := *out
		clonedOut.LockingScript = append([]byte(nil), out.LockingScript...)
		clone.TxOut[i] = &clonedOut
	}
	return clone
}
