// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"

	"github.com/pkg/errors"
)

// AssertError identifies an error that indicates an internal code consistency
// issue and should be treated as a critical and unrecoverable error.
type AssertError string

// Error returns the assertion error as a human-readable string and satisfies
// the error interface.
func (e AssertError) Error() string {
	return "assertion failed: " + string(e)
}

// ErrorCode identifies a kind of error.
type ErrorCode int

// These constants are used to identify a specific RuleError.
const (
	// ErrProofOfWorkInvalid indicates that the block hash does not meet
	// the target declared by the block, or that the declared target is
	// outside of the range the network allows.
	ErrProofOfWorkInvalid ErrorCode = iota

	// ErrMerkleRootMismatch indicates the calculated merkle root does not
	// match the expected value.
	ErrMerkleRootMismatch

	// ErrBadDifficultyTransition indicates the difficulty of a block is
	// not the value required by the retarget rules.
	ErrBadDifficultyTransition

	// ErrMissingOrUnexpectedMinerSignature indicates a block lacks a
	// miner signature its height requires, or carries one its height
	// does not allow.
	ErrMissingOrUnexpectedMinerSignature

	// ErrNonCoinbaseFirst indicates the first transaction of a block is
	// not a coinbase, or a later transaction is one.
	ErrNonCoinbaseFirst

	// ErrHeightMismatch indicates the height declared by a block is not
	// one more than the height of its predecessor.
	ErrHeightMismatch

	// ErrNegativeTarget indicates a compact target with the sign bit set.
	ErrNegativeTarget

	// ErrScriptInvalid indicates the script verifier rejected an input.
	ErrScriptInvalid

	// ErrTimeTooNew indicates the time is too far in the future as compared
	// the current time.
	ErrTimeTooNew

	// numErrorCodes is the maximum error code number used in tests.
	numErrorCodes
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrProofOfWorkInvalid:                "ErrProofOfWorkInvalid",
	ErrMerkleRootMismatch:                "ErrMerkleRootMismatch",
	ErrBadDifficultyTransition:           "ErrBadDifficultyTransition",
	ErrMissingOrUnexpectedMinerSignature: "ErrMissingOrUnexpectedMinerSignature",
	ErrNonCoinbaseFirst:                  "ErrNonCoinbaseFirst",
	ErrHeightMismatch:                    "ErrHeightMismatch",
	ErrNegativeTarget:                    "ErrNegativeTarget",
	ErrScriptInvalid:                     "ErrScriptInvalid",
	ErrTimeTooNew:                        "ErrTimeTooNew",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// RuleError identifies a rule violation. It is used to indicate that
// processing of a block failed due to one of the many validation
// rules. The caller can use type assertions to determine if a failure was
// specifically due to a rule violation and access the ErrorCode field to
// ascertain the specific reason for the rule violation.
//
// A rule error is final for the block it was raised for.
type RuleError struct {
	ErrorCode   ErrorCode // Describes the kind of error
	Description string    // Human readable description of the issue
}

// Error satisfies the error interface and prints human-readable errors.
func (e RuleError) Error() string {
	return e.Description
}

// ruleError creates an RuleError given a set of arguments.
func ruleError(c ErrorCode, desc string) error {
	return errors.WithStack(RuleError{ErrorCode: c, Description: desc})
}

// IsRuleError returns whether err is a RuleError with the given code.
func IsRuleError(err error, c ErrorCode) bool {
	var ruleErr RuleError
	return errors.As(err, &ruleErr) && ruleErr.ErrorCode == c
}
