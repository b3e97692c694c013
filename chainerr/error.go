// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chainerr defines the rule-violation error codes the chain core
// returns, grounded on the ErrorCode/RuleError pattern implied by the
// teacher's blockdag/error_test.go (the package's own error.go did not
// survive retrieval, but its test file fully pins down the API shape).
package chainerr

import "fmt"

// ErrorCode identifies a kind of rule violation.
type ErrorCode int

// Error codes, one per error kind spec.md §7 names.
const (
	// ErrDuplicateBlock indicates a block that is already in storage.
	// putBlock reports this as a false return, not as an error; the code
	// exists so callers that do propagate it can identify the cause.
	ErrDuplicateBlock ErrorCode = iota

	// ErrParentBlockMissing indicates an attach was attempted for a
	// block whose parent is not in storage. Reaching the facade with
	// this error is a programming error: the ingest layer must route
	// such blocks to the orphanage instead.
	ErrParentBlockMissing

	// ErrInvalidBlockHeight indicates a height outside [0, bestHeight]
	// was passed to getBlockHash.
	ErrInvalidBlockHeight

	// ErrInvalidOutPoint indicates a transaction output lookup referenced
	// a transaction missing from storage, or an output index out of
	// range for the transaction found.
	ErrInvalidOutPoint

	// ErrInputAlreadySpent indicates a transaction input's outpoint is
	// already marked spent by a previously attached transaction.
	ErrInputAlreadySpent

	// ErrInputMissing indicates a transaction input's outpoint does not
	// exist in the UTXO set.
	ErrInputMissing

	// ErrReorgFailed indicates a best-branch attach failed partway
	// through a reorganization; the chain has been rolled back to the
	// original best branch.
	ErrReorgFailed

	// ErrMissingInputs indicates a transaction the transaction pool or
	// the transaction orphanage refuses to hold: a coinbase submitted to
	// the pool, an orphan recorded with no missing outpoint, or an orphan
	// arriving at a full orphanage. A pool submission whose inputs cannot
	// be resolved fails with ErrInputMissing, not with this code.
	ErrMissingInputs

	// ErrStorageFailure wraps an underlying storage I/O failure.
	ErrStorageFailure

	// ErrDuplicateTransaction indicates a transaction that is already
	// known, either on the best chain or already in the pool.
	ErrDuplicateTransaction
)

var errorCodeStrings = map[ErrorCode]string{
	ErrDuplicateBlock:       "ErrDuplicateBlock",
	ErrParentBlockMissing:   "ErrParentBlockMissing",
	ErrInvalidBlockHeight:   "ErrInvalidBlockHeight",
	ErrInvalidOutPoint:      "ErrInvalidOutPoint",
	ErrInputAlreadySpent:    "ErrInputAlreadySpent",
	ErrInputMissing:         "ErrInputMissing",
	ErrReorgFailed:          "ErrReorgFailed",
	ErrMissingInputs:        "ErrMissingInputs",
	ErrStorageFailure:       "ErrStorageFailure",
	ErrDuplicateTransaction: "ErrDuplicateTransaction",
}

// String returns the ErrorCode's human-readable name.
func (e ErrorCode) String() string {
	if s, ok := errorCodeStrings[e]; ok {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", uint32(e))
}

// RuleError identifies a rule violation along with a human-readable
// description of the specific failure.
type RuleError struct {
	ErrorCode   ErrorCode
	Description string
}

// Error satisfies the error interface.
func (e RuleError) Error() string {
	return e.Description
}

// ruleError creates a RuleError given a set of arguments.
func ruleError(c ErrorCode, desc string) RuleError {
	return RuleError{ErrorCode: c, Description: desc}
}

// NewRuleError creates a RuleError given an error code and a
// human-readable description. It is the exported form of the
// teacher's unexported ruleError constructor, used by callers outside
// this package that need to originate a RuleError of a given code.
func NewRuleError(c ErrorCode, desc string) error {
	return ruleError(c, desc)
}

// Is reports whether err is a RuleError carrying the given code,
// allowing callers to branch on error kind without a type switch.
func Is(err error, code ErrorCode) bool {
	re, ok := err.(RuleError)
	if !ok {
		return false
	}
	return re.ErrorCode == code
}

// AssertError identifies an error that indicates an internal code
// consistency issue and should be treated as a non-recoverable error.
type AssertError string

// Error returns the assertion error as a human-readable string, which
// satisfies the error interface.
func (e AssertError) Error() string {
	return "assertion failed: " + string(e)
}
