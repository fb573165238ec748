// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"
	"time"

	"github.com/spreadcoin/spreadd/chaincfg"
	"github.com/spreadcoin/spreadd/wire"
)

const (
	// MaxTimeOffsetSeconds is the maximum number of seconds a block time
	// is allowed to be ahead of the current time. This is currently 2
	// hours.
	MaxTimeOffsetSeconds = 2 * 60 * 60
)

// BehaviorFlags is a bitmask defining tweaks to the normal behavior when
// performing chain processing and consensus rules checks.
type BehaviorFlags uint32

const (
	// BFNoPoWCheck may be set to indicate the proof of work check which
	// ensures a block hashes to a value less than the required target will
	// not be performed. The declared target is still range checked.
	BFNoPoWCheck BehaviorFlags = 1 << iota

	// BFNone is a convenience value to specifically indicate no flags.
	BFNone BehaviorFlags = 0
)

// ScriptVerifier evaluates the scripts of a transaction input against the
// consensus rules of a rule variant.
type ScriptVerifier interface {
	VerifyInput(tx *wire.MsgTx, inputIndex int, variant RuleVariant) bool
}

// ScriptVerifierFunc adapts an ordinary function to a ScriptVerifier.
type ScriptVerifierFunc func(tx *wire.MsgTx, inputIndex int, variant RuleVariant) bool

// VerifyInput calls f(tx, inputIndex, variant).
func (f ScriptVerifierFunc) VerifyInput(tx *wire.MsgTx, inputIndex int, variant RuleVariant) bool {
	return f(tx, inputIndex, variant)
}

// checkProofOfWork ensures the block header bits which indicate the target
// difficulty is in min/max range and that the block hash is less than the
// target difficulty as claimed.
//
// The flags modify the behavior of this function as follows:
//   - BFNoPoWCheck: The check to ensure the block hash is less than the target
//     difficulty is not performed.
func checkProofOfWork(header *wire.BlockHeader, params *chaincfg.Params, flags BehaviorFlags) error {
	if flags&BFNoPoWCheck == BFNoPoWCheck {
		target, err := CompactToBig(header.Bits())
		if err != nil {
			return err
		}
		if target.Sign() <= 0 || target.Cmp(params.PowLimit) > 0 {
			str := fmt.Sprintf("block target difficulty of %064x is "+
				"out of range", target)
			return ruleError(ErrProofOfWorkInvalid, str)
		}
		return nil
	}
	return CheckProofOfWork(header.BlockHash(), header.Bits(), params.PowLimit)
}

// checkMinerSignature ensures the header carries a miner signature exactly
// when its height requires one.
func checkMinerSignature(header *wire.BlockHeader, rules *RuleSet) error {
	required := rules.RequiresMinerSignature(header.Height())
	if header.HasMinerSignature() != required {
		str := fmt.Sprintf("block at height %d has miner signature %t, "+
			"expected %t", header.Height(), header.HasMinerSignature(),
			required)
		return ruleError(ErrMissingOrUnexpectedMinerSignature, str)
	}
	return nil
}

// checkTransactions ensures the first transaction of a full block is its only
// coinbase.
func checkTransactions(block *wire.MsgBlock) error {
	transactions := block.Transactions()
	if len(transactions) == 0 {
		return nil
	}

	// The first transaction in a block must be a coinbase.
	if !transactions[0].IsCoinBase() {
		return ruleError(ErrNonCoinbaseFirst, "first transaction in "+
			"block is not a coinbase")
	}

	// A block must not have more than one coinbase.
	for i, tx := range transactions[1:] {
		if tx.IsCoinBase() {
			str := fmt.Sprintf("block contains second coinbase at "+
				"index %d", i+1)
			return ruleError(ErrNonCoinbaseFirst, str)
		}
	}
	return nil
}

// checkBlockSanity performs the checks that need nothing but the block
// itself: proof of work against the block's own bits, timestamp, miner
// signature presence, coinbase position and merkle root.
func checkBlockSanity(block *wire.MsgBlock, params *chaincfg.Params, rules *RuleSet,
	timeSource TimeSource, flags BehaviorFlags) error {

	header := block.Header()
	err := checkProofOfWork(header, params, flags)
	if err != nil {
		return err
	}

	// Ensure the block time is not too far in the future.
	maxTimestamp := timeSource.Now().Add(time.Second * MaxTimeOffsetSeconds)
	if header.Timestamp().After(maxTimestamp) {
		str := fmt.Sprintf("block timestamp of %s is too far in the "+
			"future", header.Timestamp())
		return ruleError(ErrTimeTooNew, str)
	}

	err = checkMinerSignature(header, rules)
	if err != nil {
		return err
	}

	err = checkTransactions(block)
	if err != nil {
		return err
	}

	return checkMerkleRoot(block)
}

// CheckBlockSanity performs some preliminary checks on a block to ensure it is
// sane before continuing with block processing. These checks are context free.
func CheckBlockSanity(block *wire.MsgBlock, params *chaincfg.Params, flags BehaviorFlags) error {
	return checkBlockSanity(block, params, NewRuleSet(params), NewTimeSource(), flags)
}

// checkBlockContext performs the checks that depend on the block's parent:
// height continuity, the difficulty transition and the scripts of every
// non-coinbase input under the rule variant of the block's height.
//
// This function MUST be called with the chain lock held (for reads).
func (b *BlockChain) checkBlockContext(block *wire.MsgBlock, prevNode *blockNode) error {
	header := block.Header()

	// The height must continue from the parent.
	expectedHeight := prevNode.height + 1
	if header.Height() != expectedHeight {
		str := fmt.Sprintf("block height of %d does not follow parent "+
			"%s at height %d", header.Height(), prevNode.hash,
			prevNode.height)
		return ruleError(ErrHeightMismatch, str)
	}

	// Ensure the difficulty specified in the block header matches
	// the calculated difficulty based on the previous block and
	// difficulty retarget rules.
	expectedDifficulty, err := b.calcNextRequiredDifficulty(prevNode)
	if err != nil {
		return err
	}
	blockDifficulty := header.Bits()
	if blockDifficulty != expectedDifficulty {
		str := fmt.Sprintf("block difficulty of %08x is not the "+
			"expected value of %08x", blockDifficulty,
			expectedDifficulty)
		return ruleError(ErrBadDifficultyTransition, str)
	}

	return b.checkScripts(block)
}

// checkScripts hands every input of every non-coinbase transaction to the
// script verifier. Without a verifier all scripts are accepted.
func (b *BlockChain) checkScripts(block *wire.MsgBlock) error {
	if b.scriptVerifier == nil {
		return nil
	}

	height := block.Header().Height()
	variant := b.rules.VariantAt(height)
	for _, tx := range block.Transactions() {
		if tx.IsCoinBase() {
			continue
		}
		for i := range tx.TxIn() {
			if !b.scriptVerifier.VerifyInput(tx, i, variant) {
				str := fmt.Sprintf("script of input %d of "+
					"transaction %s is invalid under %s rules",
					i, tx.TxHash(), variant)
				return ruleError(ErrScriptInvalid, str)
			}
		}
	}
	return nil
}
