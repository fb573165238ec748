package blockchain

import (
	"fmt"

	"github.com/spreadcoin/spreadd/chaincfg"
)

// RuleVariant identifies a set of consensus rules. Variants are ordered: a
// later fork never activates below an earlier one.
type RuleVariant int

// These constants define the rule variants in activation order.
const (
	Genesis RuleVariant = iota
	PostFirstFork
	PostSecondFork
	PostThirdFork
)

var ruleVariantStrings = map[RuleVariant]string{
	Genesis:        "Genesis",
	PostFirstFork:  "PostFirstFork",
	PostSecondFork: "PostSecondFork",
	PostThirdFork:  "PostThirdFork",
}

// String returns the RuleVariant in human-readable form.
func (v RuleVariant) String() string {
	if s, ok := ruleVariantStrings[v]; ok {
		return s
	}
	return fmt.Sprintf("Unknown RuleVariant (%d)", int(v))
}

// RequiresMinerSignature returns whether blocks under this variant carry a
// miner signature in their header.
func (v RuleVariant) RequiresMinerSignature() bool {
	return v >= PostSecondFork
}

// ScriptFlags returns the script verification flags handed to the script
// verifier for inputs of transactions in blocks under this variant.
func (v RuleVariant) ScriptFlags() ScriptFlags {
	flags := ScriptBip16
	if v >= PostFirstFork {
		flags |= ScriptVerifyStrictEncoding
	}
	if v >= PostThirdFork {
		flags |= ScriptVerifyCheckLockTimeVerify
	}
	return flags
}

// ScriptFlags is a bitmask of script verification behaviors.
type ScriptFlags uint32

const (
	// ScriptBip16 evaluates pay-to-script-hash redeem scripts.
	ScriptBip16 ScriptFlags = 1 << iota

	// ScriptVerifyStrictEncoding requires strictly encoded signatures and
	// public keys.
	ScriptVerifyStrictEncoding

	// ScriptVerifyCheckLockTimeVerify enables OP_CHECKLOCKTIMEVERIFY.
	ScriptVerifyCheckLockTimeVerify
)

// RuleSet maps block heights to the consensus rule variant in force at them.
type RuleSet struct {
	firstForkHeight  int32
	secondForkHeight int32
	thirdForkHeight  int32
	coinbaseMaturity int32
}

// NewRuleSet returns the rule set for the network described by params. Fork
// thresholds are raised where needed so that activation stays monotonic.
func NewRuleSet(params *chaincfg.Params) *RuleSet {
	first, second, third := params.ForkHeights()
	return &RuleSet{
		firstForkHeight:  first,
		secondForkHeight: second,
		thirdForkHeight:  third,
		coinbaseMaturity: params.CoinbaseMaturity,
	}
}

// VariantAt returns the rule variant in force for a block at the given
// height. A threshold of zero is active from genesis and a threshold of
// chaincfg.NeverActive is never reached.
func (rs *RuleSet) VariantAt(height int32) RuleVariant {
	switch {
	case activeAt(rs.thirdForkHeight, height):
		return PostThirdFork
	case activeAt(rs.secondForkHeight, height):
		return PostSecondFork
	case activeAt(rs.firstForkHeight, height):
		return PostFirstFork
	default:
		return Genesis
	}
}

func activeAt(threshold, height int32) bool {
	return threshold != chaincfg.NeverActive && height >= threshold
}

// RequiresMinerSignature returns whether a block at the given height must
// carry a miner signature. The genesis block never does.
func (rs *RuleSet) RequiresMinerSignature(height int32) bool {
	return height > 0 && rs.VariantAt(height).RequiresMinerSignature()
}

// CoinbaseMaturity returns the number of blocks a coinbase output must be
// buried under before it can be spent by a block at the given height.
func (rs *RuleSet) CoinbaseMaturity(height int32) int32 {
	return rs.coinbaseMaturity
}
