package blockchain

import (
	"testing"

	"github.com/spreadcoin/spreadd/chaincfg"
	"github.com/spreadcoin/spreadd/wire"
)

// TestCheckBlockSanity200358 runs the context free checks against a real
// block. Spreadcoin's proof of work hash differs from the block hash, so the
// hash comparison is skipped.
func TestCheckBlockSanity200358(t *testing.T) {
	params := &chaincfg.MainNetParams
	block := loadBlock200358(t, true)

	err := CheckBlockSanity(block, params, BFNoPoWCheck)
	if err != nil {
		t.Fatalf("CheckBlockSanity: unexpected error %v", err)
	}
	err = CheckBlockSanity(block, params, BFNone)
	if !IsRuleError(err, ErrProofOfWorkInvalid) {
		t.Fatalf("CheckBlockSanity with proof of work: got error %v, want %s",
			err, ErrProofOfWorkInvalid)
	}

	// Swapping the first two transactions moves the coinbase.
	txs := block.Transactions()
	swapped := wire.NewMsgBlock(block.Header().Copy())
	swapped.AddTransaction(txs[1].Copy())
	swapped.AddTransaction(txs[0].Copy())
	for _, tx := range txs[2:] {
		swapped.AddTransaction(tx.Copy())
	}
	err = CheckBlockSanity(swapped, params, BFNoPoWCheck)
	if !IsRuleError(err, ErrNonCoinbaseFirst) {
		t.Fatalf("swapped transactions: got error %v, want %s", err,
			ErrNonCoinbaseFirst)
	}

	// Dropping a transaction breaks the merkle root.
	truncated := wire.NewMsgBlock(block.Header().Copy())
	for _, tx := range txs[:3] {
		truncated.AddTransaction(tx.Copy())
	}
	err = CheckBlockSanity(truncated, params, BFNoPoWCheck)
	if !IsRuleError(err, ErrMerkleRootMismatch) {
		t.Fatalf("truncated block: got error %v, want %s", err,
			ErrMerkleRootMismatch)
	}

	// The header-only form passes: there is nothing to check the merkle
	// root against.
	err = CheckBlockSanity(block.HeaderOnly(), params, BFNoPoWCheck)
	if err != nil {
		t.Fatalf("header only: unexpected error %v", err)
	}

	// Without its signature the header is invalid at this height.
	unsigned := block.HeaderOnly()
	unsigned.Header().ClearMinerSignature()
	err = CheckBlockSanity(unsigned, params, BFNoPoWCheck)
	if !IsRuleError(err, ErrMissingOrUnexpectedMinerSignature) {
		t.Fatalf("unsigned header: got error %v, want %s", err,
			ErrMissingOrUnexpectedMinerSignature)
	}
}

// TestErrorCodeStringer tests the stringized output for the ErrorCode type.
func TestErrorCodeStringer(t *testing.T) {
	tests := []struct {
		in   ErrorCode
		want string
	}{
		{ErrProofOfWorkInvalid, "ErrProofOfWorkInvalid"},
		{ErrMerkleRootMismatch, "ErrMerkleRootMismatch"},
		{ErrBadDifficultyTransition, "ErrBadDifficultyTransition"},
		{ErrMissingOrUnexpectedMinerSignature, "ErrMissingOrUnexpectedMinerSignature"},
		{ErrNonCoinbaseFirst, "ErrNonCoinbaseFirst"},
		{ErrHeightMismatch, "ErrHeightMismatch"},
		{ErrNegativeTarget, "ErrNegativeTarget"},
		{ErrScriptInvalid, "ErrScriptInvalid"},
		{ErrTimeTooNew, "ErrTimeTooNew"},
		{0xffff, "Unknown ErrorCode (65535)"},
	}

	// Detect additional error codes that don't have the stringer added.
	if len(tests)-1 != int(numErrorCodes) {
		t.Errorf("It appears an error code was added without adding an " +
			"associated stringer test")
	}

	for i, test := range tests {
		result := test.in.String()
		if result != test.want {
			t.Errorf("String #%d\n got: %s want: %s", i, result,
				test.want)
		}
	}
}

// TestRuleError tests the error output for the RuleError type.
func TestRuleError(t *testing.T) {
	err := ruleError(ErrHeightMismatch, "height 5 does not follow 0")
	if err.Error() != "height 5 does not follow 0" {
		t.Errorf("Error: got %q", err.Error())
	}
	if !IsRuleError(err, ErrHeightMismatch) || IsRuleError(err, ErrScriptInvalid) {
		t.Errorf("IsRuleError: wrong code match for %v", err)
	}
	if IsRuleError(AssertError("broken"), ErrHeightMismatch) {
		t.Errorf("IsRuleError: matched an AssertError")
	}
	if got := AssertError("broken").Error(); got != "assertion failed: broken" {
		t.Errorf("AssertError: got %q", got)
	}
}
