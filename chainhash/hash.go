// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chainhash defines the 32-byte identifier used throughout the
// chain core to address blocks and transactions.
package chainhash

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/pkg/errors"
)

// HashSize is the size, in bytes, of a Hash.
const HashSize = 32

// MaxHashStringSize is the maximum length of a Hash hash string.
const MaxHashStringSize = HashSize * 2

// ErrHashStrSize describes an error that indicates the caller specified
// a hash string that has too many characters.
var ErrHashStrSize = errors.Errorf("max hash string length is %v bytes", MaxHashStringSize)

// Hash is a 32-byte opaque identifier, compared bytewise. The all-zero
// value denotes "no previous block" (genesis parent) and "coinbase
// source", per spec.md §3.
type Hash [HashSize]byte

// ZeroHash is the Hash value of all zero bytes.
var ZeroHash Hash

// String returns the Hash as the hexadecimal string of the byte-reversed
// hash, matching the conventional display order of block explorers.
func (hash Hash) String() string {
	for i := 0; i < HashSize/2; i++ {
		hash[i], hash[HashSize-1-i] = hash[HashSize-1-i], hash[i]
	}
	return hex.EncodeToString(hash[:])
}

// CloneBytes returns a copy of the bytes which make up the hash.
func (hash *Hash) CloneBytes() []byte {
	newHash := make([]byte, HashSize)
	copy(newHash, hash[:])
	return newHash
}

// SetBytes sets the bytes which make up the hash to the passed bytes.
func (hash *Hash) SetBytes(newHash []byte) error {
	nhlen := len(newHash)
	if nhlen != HashSize {
		return errors.Errorf("invalid hash length of %v, want %v", nhlen, HashSize)
	}
	copy(hash[:], newHash)
	return nil
}

// IsEqual returns true if target is the same as the hash.
func (hash *Hash) IsEqual(target *Hash) bool {
	if hash == nil && target == nil {
		return true
	}
	if hash == nil || target == nil {
		return false
	}
	return *hash == *target
}

// IsZero reports whether the hash is the all-zero sentinel value that
// marks "no previous block" / "coinbase source".
func (hash *Hash) IsZero() bool {
	return *hash == ZeroHash
}

// NewHash returns a new Hash from a byte slice.
func NewHash(newHash []byte) (*Hash, error) {
	var sh Hash
	err := sh.SetBytes(newHash)
	if err != nil {
		return nil, err
	}
	return &sh, nil
}

// NewHashFromStr creates a Hash from a hash string. The string should be
// the hexadecimal string of a byte-reversed hash, but any missing
// characters result in zero padding at the end of the Hash.
func NewHashFromStr(hash string) (*Hash, error) {
	ret := new(Hash)
	err := Decode(ret, hash)
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// Decode decodes the byte-reversed hexadecimal string encoding of a Hash
// into dst.
func Decode(dst *Hash, src string) error {
	reversedHashStr, err := hex.DecodeString(src)
	if err != nil {
		return err
	}
	if len(reversedHashStr) > HashSize {
		return ErrHashStrSize
	}

	var srcBytes [HashSize]byte
	copy(srcBytes[HashSize-len(reversedHashStr):], reversedHashStr)

	for i, b := range srcBytes {
		dst[HashSize-1-i] = b
	}
	return nil
}

// HashData returns the double-SHA256 digest of the given bytes, the
// hash function used for both block and transaction identifiers.
func HashData(data []byte) Hash {
	first := sha256.Sum256(data)
	second := sha256.Sum256(first[:])
	return Hash(second)
}

// MarshalJSON encodes the hash as its plain (non-reversed) hex
// representation, used when persisting block/transaction metadata as
// JSON (see blockstore), where byte order must round-trip exactly
// rather than follow the display convention of String().
func (hash Hash) MarshalJSON() ([]byte, error) {
	return []byte(`"` + hex.EncodeToString(hash[:]) + `"`), nil
}

// UnmarshalJSON decodes the plain hex representation produced by
// MarshalJSON.
func (hash *Hash) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.Errorf("chainhash: invalid JSON hash %q", data)
	}
	decoded, err := hex.DecodeString(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	return hash.SetBytes(decoded)
}

// Less reports whether hash sorts before other. Used only to produce
// deterministic iteration order in maps keyed by Hash (e.g. when
// stringifying collections for logs).
func (hash Hash) Less(other Hash) bool {
	for i := HashSize - 1; i >= 0; i-- {
		if hash[i] != other[i] {
			return hash[i] < other[i]
		}
	}
	return false
}
