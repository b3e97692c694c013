// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package pow implements the Bitcoin-style compact difficulty-bits
// encoding and the cumulative chain-work accounting spec.md's glossary
// defines ("chain work"). No teacher file for this arithmetic survived
// retrieval (see DESIGN.md); it is implemented directly against the
// documented encoding since it is pure math/big arithmetic, not a
// concern any pack library addresses.
package pow

import "math/big"

var bigOne = big.NewInt(1)

// oneLsh256 is 1 shifted left 256 bits, used to calculate the
// work value per unit difficulty.
var oneLsh256 = new(big.Int).Lsh(bigOne, 256)

// CompactToBig converts a compact representation of a whole number N,
// held in an unsigned 32-bit number, to a big.Int. The representation is similar to IEEE754
// floating point, but as a simplified integer-only format: the high 8
// bits are an unsigned exponent in base-256, and the low 23 bits are the
// mantissa, with bit 24 as the sign bit.
func CompactToBig(compact uint32) *big.Int {
	mantissa := compact & 0x007fffff
	isNegative := compact&0x00800000 != 0
	exponent := uint(compact >> 24)

	var bn *big.Int
	if exponent <= 3 {
		mantissa >>= 8 * (3 - exponent)
		bn = big.NewInt(int64(mantissa))
	} else {
		bn = big.NewInt(int64(mantissa))
		bn.Lsh(bn, 8*(exponent-3))
	}

	if isNegative {
		bn = bn.Neg(bn)
	}
	return bn
}

// BigToCompact converts a whole number N to a compact representation
// using an unsigned 32-bit number, the inverse of CompactToBig for
// compact values in normalized form (a non-normalized encoding such as
// 0x03000001 comes back as its normalized form, 0x01010000).
func BigToCompact(n *big.Int) uint32 {
	if n.Sign() == 0 {
		return 0
	}

	var isNegative bool
	var mantissa uint32
	exponent := uint(len(n.Bytes()))

	if exponent <= 3 {
		mantissa = uint32(n.Bits()[0])
		mantissa <<= 8 * (3 - exponent)
	} else {
		tn := new(big.Int).Set(n)
		tn.Rsh(tn, 8*(exponent-3))
		mantissa = uint32(tn.Bits()[0])
	}

	isNegative = n.Sign() < 0

	if mantissa&0x00800000 != 0 {
		mantissa >>= 8
		exponent++
	}

	compact := uint32(exponent<<24) | mantissa
	if isNegative {
		compact |= 0x00800000
	}
	return compact
}

// CalcWork computes the expected number of hash operations necessary to
// produce a block whose header encodes the given difficulty bits. This
// is the per-block contribution to spec.md's "chainWork": the higher the
// difficulty (the lower the target), the larger this value.
//
// The return value is zero for a bits value decoding to a non-positive
// target, which has no meaningful inverse.
func CalcWork(bits uint32) *big.Int {
	target := CompactToBig(bits)
	if target.Sign() <= 0 {
		return big.NewInt(0)
	}

	// work = 2^256 / (target+1)
	denominator := new(big.Int).Add(target, bigOne)
	return new(big.Int).Div(oneLsh256, denominator)
}

// CalcWorkSum folds CalcWork over a sequence of difficulty bits,
// producing the cumulative chain work of a chain made up of headers
// with those bits, in order from genesis.
func CalcWorkSum(bitsSequence []uint32) *big.Int {
	sum := big.NewInt(0)
	for _, bits := range bitsSequence {
		sum.Add(sum, CalcWork(bits))
	}
	return sum
}
