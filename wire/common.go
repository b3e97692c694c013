// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package wire defines the wire-format types of the chain core: block
// headers, blocks, transactions and their binary codec. Bit-exact to a
// Bitcoin-style model, per spec.md §6.
package wire

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"

	"github.com/ledgerforge/chaincore/chainhash"
)

var littleEndian = binary.LittleEndian

// MaxVarIntPayload is the maximum payload size for a variable length integer.
const MaxVarIntPayload = 9

// errNonCanonicalVarInt documents why a discriminant-prefixed encoding is
// rejected when a shorter form would have sufficed.
var errNonCanonicalVarInt = errors.New("non-canonical varint encoding")

// ReadVarInt reads a variable length integer from r and returns it as a uint64.
func ReadVarInt(r io.Reader) (uint64, error) {
	var discriminant [1]byte
	if _, err := io.ReadFull(r, discriminant[:]); err != nil {
		return 0, err
	}

	switch discriminant[0] {
	case 0xff:
		var b [8]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, err
		}
		rv := littleEndian.Uint64(b[:])
		if rv < 0x100000000 {
			return 0, errNonCanonicalVarInt
		}
		return rv, nil

	case 0xfe:
		var b [4]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, err
		}
		rv := uint64(littleEndian.Uint32(b[:]))
		if rv < 0x10000 {
			return 0, errNonCanonicalVarInt
		}
		return rv, nil

	case 0xfd:
		var b [2]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, err
		}
		rv := uint64(littleEndian.Uint16(b[:]))
		if rv < 0xfd {
			return 0, errNonCanonicalVarInt
		}
		return rv, nil

	default:
		return uint64(discriminant[0]), nil
	}
}

// WriteVarInt serializes val to w using a variable number of bytes
// depending on its value.
func WriteVarInt(w io.Writer, val uint64) error {
	if val < 0xfd {
		_, err := w.Write([]byte{byte(val)})
		return err
	}

	if val <= math.MaxUint16 {
		var b [3]byte
		b[0] = 0xfd
		littleEndian.PutUint16(b[1:], uint16(val))
		_, err := w.Write(b[:])
		return err
	}

	if val <= math.MaxUint32 {
		var b [5]byte
		b[0] = 0xfe
		littleEndian.PutUint32(b[1:], uint32(val))
		_, err := w.Write(b[:])
		return err
	}

	var b [9]byte
	b[0] = 0xff
	littleEndian.PutUint64(b[1:], val)
	_, err := w.Write(b[:])
	return err
}

// VarIntSerializeSize returns the number of bytes it would take to
// serialize val as a variable length integer.
func VarIntSerializeSize(val uint64) int {
	switch {
	case val < 0xfd:
		return 1
	case val <= math.MaxUint16:
		return 3
	case val <= math.MaxUint32:
		return 5
	default:
		return 9
	}
}

// ReadVarBytes reads a variable length byte array: a varint length prefix
// followed by that many bytes. maxAllowed guards against memory exhaustion
// from malformed input.
func ReadVarBytes(r io.Reader, maxAllowed uint64, fieldName string) ([]byte, error) {
	count, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	if count > maxAllowed {
		return nil, errors.Errorf("%s is larger than the max allowed size [count %d, max %d]",
			fieldName, count, maxAllowed)
	}
	buf := make([]byte, count)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteVarBytes serializes a variable length byte array to w as a varint
// byte count followed by the bytes themselves.
func WriteVarBytes(w io.Writer, b []byte) error {
	if err := WriteVarInt(w, uint64(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func writeHash(w io.Writer, h *chainhash.Hash) error {
	_, err := w.Write(h[:])
	return err
}

func readHash(r io.Reader, h *chainhash.Hash) error {
	_, err := io.ReadFull(r, h[:])
	return err
}

func writeUint32(w io.Writer, v uint32) error {
	var b [4]byte
	littleEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return littleEndian.Uint32(b[:]), nil
}

func writeInt32(w io.Writer, v int32) error {
	return writeUint32(w, uint32(v))
}

func readInt32(r io.Reader) (int32, error) {
	v, err := readUint32(r)
	return int32(v), err
}

func writeUint64(w io.Writer, v uint64) error {
	var b [8]byte
	littleEndian.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readUint64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return littleEndian.Uint64(b[:]), nil
}
