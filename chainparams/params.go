// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chainparams defines the per-network parameter sets the chain
// core is configured with: the genesis block and the proof-of-work
// limit. Difficulty retargeting and mining/template construction are
// out of spec.md's scope, so no retarget window is defined here.
package chainparams

import (
	"math/big"
	"time"

	"github.com/ledgerforge/chaincore/chainhash"
	"github.com/ledgerforge/chaincore/pow"
	"github.com/ledgerforge/chaincore/wire"
)

// bigOne is 1 represented as a big.Int, defined once to avoid the
// overhead of allocating it repeatedly.
var bigOne = big.NewInt(1)

// mainPowLimit is the highest proof-of-work value a main-network block
// may have: 2^255 - 1.
var mainPowLimit = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 255), bigOne)

// simNetPowLimit is the highest proof-of-work value a simnet block may
// have: 2^239 - 1. Kept low so test fixtures can mine blocks instantly.
var simNetPowLimit = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 239), bigOne)

// Params defines a network by its genesis block and proof-of-work rules.
type Params struct {
	// Name is the human-readable identifier of the network.
	Name string

	// GenesisBlock is the first block of the network.
	GenesisBlock *wire.MsgBlock

	// GenesisHash is the precomputed hash of GenesisBlock, to avoid
	// recomputing it on every comparison.
	GenesisHash chainhash.Hash

	// PowLimit is the highest proof-of-work value (lowest difficulty) a
	// block on this network may have.
	PowLimit *big.Int

	// PowLimitBits is PowLimit in compact form.
	PowLimitBits uint32
}

func genesisCoinbase() *wire.MsgTx {
	return &wire.MsgTx{
		Version: 1,
		TxIn: []*wire.TxIn{
			{
				PreviousOutPoint: wire.NewOutPoint(&chainhash.ZeroHash, wire.CoinbaseOutputIndex),
				UnlockingScript: []byte{
					0x00, 0x00, 0x0b, 0x2f, 0x63, 0x68, 0x61, 0x69,
					0x6e, 0x63, 0x6f, 0x72, 0x65, 0x2f,
				},
				Sequence: 0xffffffffffffffff,
			},
		},
		TxOut: []*wire.TxOut{
			{
				Value:         50 * 100_000_000,
				LockingScript: []byte{0x51},
			},
		},
		LockTime: 0,
	}
}

func buildGenesis(bits uint32, nonce uint64, timestamp time.Time) *wire.MsgBlock {
	coinbase := genesisCoinbase()
	block := &wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:   1,
			Timestamp: timestamp,
			Bits:      bits,
			Nonce:     nonce,
		},
		Transactions: []*wire.MsgTx{coinbase},
	}
	block.Header.MerkleRoot = block.BuildMerkleRoot()
	return block
}

// MainNetParams defines the parameters for the production network.
var MainNetParams = makeParams("mainnet", 0x1d00ffff, mainPowLimit, 0x7c42b38a, time.Unix(0x5c3cafec, 0))

// SimNetParams defines the parameters for a local simulation network
// used by tests and development tooling: trivial difficulty so fixtures
// can be constructed without mining.
var SimNetParams = makeParams("simnet", 0x207fffff, simNetPowLimit, 2, time.Unix(1_600_000_000, 0))

func makeParams(name string, bits uint32, powLimit *big.Int, nonce uint64, timestamp time.Time) *Params {
	genesis := buildGenesis(bits, nonce, timestamp)
	hash := genesis.BlockHash()
	return &Params{
		Name:         name,
		GenesisBlock: genesis,
		GenesisHash:  hash,
		PowLimit:     powLimit,
		PowLimitBits: pow.BigToCompact(powLimit),
	}
}
