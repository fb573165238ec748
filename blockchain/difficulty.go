// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"
	"math/big"
	"time"

	"github.com/spreadcoin/spreadd/util/chainhash"
)

var (
	// bigOne is 1 represented as a big.Int. It is defined here to avoid
	// the overhead of creating it multiple times.
	bigOne = big.NewInt(1)

	// oneLsh256 is 1 shifted left 256 bits. It is defined here to avoid
	// the overhead of creating it multiple times.
	oneLsh256 = new(big.Int).Lsh(bigOne, 256)
)

// CompactToBig converts a compact representation of a whole number N to an
// unsigned 32-bit number. The representation is similar to IEEE754 floating
// point numbers.
//
// Like IEEE754 floating point, there are three basic components: the sign,
// the exponent, and the mantissa. They are broken out as follows:
//
//	* the most significant 8 bits represent the unsigned base 256 exponent
//	* bit 23 (the 24th bit) represents the sign bit
//	* the least significant 23 bits represent the mantissa
//
//	-------------------------------------------------
//	|   Exponent     |    Sign    |    Mantissa     |
//	-------------------------------------------------
//	| 8 bits [31-24] | 1 bit [23] | 23 bits [22-00] |
//	-------------------------------------------------
//
// The formula to calculate N is:
//
//	N = (-1^sign) * mantissa * 256^(exponent-3)
//
// Targets are never negative, so a set sign bit with a non-zero result is
// reported as ErrNegativeTarget.
func CompactToBig(compact uint32) (*big.Int, error) {
	// Extract the mantissa, sign bit, and exponent.
	mantissa := compact & 0x007fffff
	isNegative := compact&0x00800000 != 0
	exponent := uint(compact >> 24)

	// Since the base for the exponent is 256, the exponent can be treated
	// as the number of bytes to represent the full 256-bit number. So,
	// treat the exponent as the number of bytes and shift the mantissa
	// right or left accordingly. This is equivalent to:
	// N = mantissa * 256^(exponent-3)
	var bn *big.Int
	if exponent <= 3 {
		mantissa >>= 8 * (3 - exponent)
		bn = big.NewInt(int64(mantissa))
	} else {
		bn = big.NewInt(int64(mantissa))
		bn.Lsh(bn, 8*(exponent-3))
	}

	if isNegative && bn.Sign() != 0 {
		return nil, ruleError(ErrNegativeTarget,
			fmt.Sprintf("compact target %08x is negative", compact))
	}
	return bn, nil
}

// BigToCompact converts a whole number N to a compact representation using
// an unsigned 32-bit number. The compact representation only provides 23 bits
// of precision, so values larger than (2^23 - 1) only encode the most
// significant digits of the number. See CompactToBig for details.
func BigToCompact(n *big.Int) uint32 {
	// No need to do any work if it's zero.
	if n.Sign() == 0 {
		return 0
	}

	// Since the base for the exponent is 256, the exponent can be treated
	// as the number of bytes. So, shift the number right or left
	// accordingly. This is equivalent to:
	// mantissa = mantissa / 256^(exponent-3)
	var mantissa uint32
	exponent := uint(len(n.Bytes()))
	if exponent <= 3 {
		mantissa = uint32(n.Bits()[0])
		mantissa <<= 8 * (3 - exponent)
	} else {
		// Use a copy to avoid modifying the caller's original number.
		tn := new(big.Int).Set(n)
		mantissa = uint32(tn.Rsh(tn, 8*(exponent-3)).Bits()[0])
	}

	// When the mantissa already has the sign bit set, the number is too
	// large to fit into the available 23-bits, so divide the number by 256
	// and increment the exponent accordingly.
	if mantissa&0x00800000 != 0 {
		mantissa >>= 8
		exponent++
	}

	// Pack the exponent, sign bit, and mantissa into an unsigned 32-bit
	// int and return it.
	compact := uint32(exponent<<24) | mantissa
	if n.Sign() < 0 {
		compact |= 0x00800000
	}
	return compact
}

// CalcWork calculates a work value from difficulty bits. The work of a block
// is the number of hashes expected to be tried before finding one at or below
// its target:
//
//	work = 2^256 / (target+1)
//
// Invalid bits yield zero work.
func CalcWork(bits uint32) *big.Int {
	difficultyNum, err := CompactToBig(bits)
	if err != nil || difficultyNum.Sign() <= 0 {
		return big.NewInt(0)
	}

	// (1 << 256) / (difficultyNum + 1)
	denominator := new(big.Int).Add(difficultyNum, bigOne)
	return new(big.Int).Div(oneLsh256, denominator)
}

// meetsTarget returns whether the hash, interpreted as a 256-bit little-endian
// number, is less than or equal to target.
func meetsTarget(hash *chainhash.Hash, target *big.Int) bool {
	return chainhash.HashToBig(hash).Cmp(target) <= 0
}

// CheckProofOfWork ensures the difficulty bits decode to a target in the range
// (0, powLimit] and that the hash is at or below it.
func CheckProofOfWork(hash *chainhash.Hash, bits uint32, powLimit *big.Int) error {
	target, err := CompactToBig(bits)
	if err != nil {
		return err
	}

	// The target difficulty must be larger than zero.
	if target.Sign() <= 0 {
		str := fmt.Sprintf("block target difficulty of %064x is too low",
			target)
		return ruleError(ErrProofOfWorkInvalid, str)
	}

	// The target difficulty must be less than the maximum allowed.
	if target.Cmp(powLimit) > 0 {
		str := fmt.Sprintf("block target difficulty of %064x is "+
			"higher than max of %064x", target, powLimit)
		return ruleError(ErrProofOfWorkInvalid, str)
	}

	// The block hash must be less than the claimed target.
	if !meetsTarget(hash, target) {
		str := fmt.Sprintf("block hash of %064x is higher than "+
			"expected max of %064x", chainhash.HashToBig(hash), target)
		return ruleError(ErrProofOfWorkInvalid, str)
	}

	return nil
}

// calcNextRequiredDifficulty calculates the required difficulty for the block
// after the passed previous block node based on the difficulty retarget rules.
// Off a retarget boundary the predecessor's bits carry forward. On a boundary
// the timespan between the first and last block of the window is clamped to a
// factor of four around the target timespan, the previous target is scaled by
// it and the result is capped at the network's proof of work limit.
//
// This function MUST be called with the chain lock held (for reads).
func (b *BlockChain) calcNextRequiredDifficulty(lastNode *blockNode) (uint32, error) {
	interval := b.params.RetargetInterval
	if (lastNode.height+1)%interval != 0 {
		return lastNode.bits, nil
	}

	// Get the block node at the start of the retarget window.
	firstNode := lastNode.RelativeAncestor(interval - 1)
	if firstNode == nil {
		return 0, AssertError(fmt.Sprintf("unable to obtain the first "+
			"block of the retarget window ending at %s", lastNode.hash))
	}

	// Limit the amount of adjustment that can occur to the previous
	// difficulty.
	targetTimespan := int64(b.params.TargetTimespan / time.Second)
	minRetargetTimespan := targetTimespan / 4
	maxRetargetTimespan := targetTimespan * 4
	actualTimespan := lastNode.timestamp - firstNode.timestamp
	adjustedTimespan := actualTimespan
	if actualTimespan < minRetargetTimespan {
		adjustedTimespan = minRetargetTimespan
	} else if actualTimespan > maxRetargetTimespan {
		adjustedTimespan = maxRetargetTimespan
	}

	// Calculate new target difficulty as:
	//  currentDifficulty * (adjustedTimespan / targetTimespan)
	// The result uses integer division which means it will be slightly
	// rounded down.
	oldTarget, err := CompactToBig(lastNode.bits)
	if err != nil {
		return 0, err
	}
	newTarget := new(big.Int).Mul(oldTarget, big.NewInt(adjustedTimespan))
	newTarget.Div(newTarget, big.NewInt(targetTimespan))

	// Limit new value to the proof of work limit.
	if newTarget.Cmp(b.params.PowLimit) > 0 {
		newTarget.Set(b.params.PowLimit)
	}

	newTargetBits := BigToCompact(newTarget)
	log.Debugf("Difficulty retarget at block height %d", lastNode.height+1)
	log.Debugf("Old target %08x (%064x)", lastNode.bits, oldTarget)
	log.Debugf("New target %08x (%064x)", newTargetBits, newTarget)
	log.Debugf("Actual timespan %s, adjusted timespan %s, target timespan %s",
		time.Duration(actualTimespan)*time.Second,
		time.Duration(adjustedTimespan)*time.Second,
		b.params.TargetTimespan)

	return newTargetBits, nil
}

// CalcNextRequiredDifficulty calculates the required difficulty for the block
// after the end of the current best chain.
//
// This function is safe for concurrent access.
func (b *BlockChain) CalcNextRequiredDifficulty() (uint32, error) {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()

	return b.calcNextRequiredDifficulty(b.bestNode)
}

// EstimateBlockTime returns the expected time at which the best chain reaches
// the given height, extrapolating from the time of the current head at the
// network's target spacing. Heights below the head yield times in the past.
//
// This function is safe for concurrent access.
func (b *BlockChain) EstimateBlockTime(height int32) time.Time {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()

	offset := time.Duration(height-b.bestNode.height) * b.params.TargetTimePerBlock
	return time.Unix(b.bestNode.timestamp, 0).Add(offset)
}
