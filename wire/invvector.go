// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"

	"github.com/ledgerforge/chaincore/chainhash"
)

// InvType identifies the kind of item an InvVector refers to, per
// spec.md §6. Only InvTypeTx and InvTypeBlock are consumed by the
// inventory predicate; the others are recognized for completeness of
// the wire vocabulary.
type InvType uint32

// Inventory vector types.
const (
	InvTypeError InvType = iota
	InvTypeTx
	InvTypeBlock
	InvTypeFilteredBlock
)

var invTypeStrings = map[InvType]string{
	InvTypeError:         "ERROR",
	InvTypeTx:            "MSG_TX",
	InvTypeBlock:         "MSG_BLOCK",
	InvTypeFilteredBlock: "MSG_FILTERED_BLOCK",
}

// String returns the InvType's human-readable name.
func (t InvType) String() string {
	if s, ok := invTypeStrings[t]; ok {
		return s
	}
	return fmt.Sprintf("Unknown InvType (%d)", uint32(t))
}

// InvVector defines an inventory vector, used to describe data, as
// specified in spec.md §6, that a peer already has or wants.
type InvVector struct {
	Type InvType
	Hash chainhash.Hash
}

// NewInvVect returns a new InvVector using the provided type and hash.
func NewInvVect(invType InvType, hash *chainhash.Hash) *InvVector {
	return &InvVector{Type: invType, Hash: *hash}
}
