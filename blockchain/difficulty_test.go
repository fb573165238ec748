// Copyright (c) 2014-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/spreadcoin/spreadd/util/chainhash"
)

// TestBigToCompact ensures BigToCompact converts big integers to the expected
// compact representation.
func TestBigToCompact(t *testing.T) {
	tests := []struct {
		in  int64
		out uint32
	}{
		{0, 0},
		{-1, 25231360},
		{9223370937343148032, 142606335},
	}

	for x, test := range tests {
		n := big.NewInt(test.in)
		r := BigToCompact(n)
		if r != test.out {
			t.Errorf("TestBigToCompact test #%d failed: got %d want %d\n",
				x, r, test.out)
			return
		}
	}
}

// TestCompactToBig ensures CompactToBig converts numbers using the compact
// representation to the expected big integers.
func TestCompactToBig(t *testing.T) {
	tests := []struct {
		in  uint32
		out string
	}{
		{0, "0"},
		{10000000, "0"},
		{142606335, "9223370937343148032"},
		{237861256, "922337129789886856855791696084992"},
		{0x00800000, "0"},
	}

	for i, test := range tests {
		n, err := CompactToBig(test.in)
		if err != nil {
			t.Errorf("TestCompactToBig test #%d failed: unexpected error %v",
				i, err)
			continue
		}
		if n.String() != test.out {
			t.Errorf("TestCompactToBig test #%d failed: got %s want %s",
				i, n, test.out)
		}
	}

	for _, compact := range []uint32{25231360, math.MaxUint32, 0x1d80ffff} {
		_, err := CompactToBig(compact)
		if !IsRuleError(err, ErrNegativeTarget) {
			t.Errorf("CompactToBig(%08x): got error %v, want %s", compact,
				err, ErrNegativeTarget)
		}
	}
}

// TestCalcWork ensures CalcWork calculates the expected work value from values
// in compact representation.
func TestCalcWork(t *testing.T) {
	tests := []struct {
		in  uint32
		out int64
	}{
		{10000000, 0},
		{0x207fffff, 2},
		{0x1d00ffff, 4295032833},
		{0x1c06eea2, 158610262769},
		{25231360, 0},
	}

	for x, test := range tests {
		r := CalcWork(test.in)
		if r.Int64() != test.out {
			t.Errorf("TestCalcWork test #%d failed: got %v want %d\n",
				x, r.Int64(), test.out)
			return
		}
	}
}

// TestMeetsTarget ensures a hash meeting a target meets every larger target.
func TestMeetsTarget(t *testing.T) {
	hash := chainhash.Hash{0x10, 0x20}
	hash[31] = 0x01
	value := chainhash.HashToBig(&hash)

	tests := []struct {
		target *big.Int
		want   bool
	}{
		{new(big.Int).Sub(value, bigOne), false},
		{value, true},
		{new(big.Int).Add(value, bigOne), true},
		{new(big.Int).Lsh(value, 8), true},
		{big.NewInt(0), false},
	}
	for i, test := range tests {
		if got := meetsTarget(&hash, test.target); got != test.want {
			t.Errorf("meetsTarget #%d: got %t, want %t", i, got, test.want)
		}
	}
}

// TestCheckProofOfWork checks the target range and hash comparisons.
func TestCheckProofOfWork(t *testing.T) {
	powLimit := unitTestParams().PowLimit
	var low chainhash.Hash
	high := chainhash.Hash{}
	for i := range high {
		high[i] = 0xff
	}

	tests := []struct {
		name string
		hash *chainhash.Hash
		bits uint32
		code ErrorCode
		ok   bool
	}{
		{"low hash", &low, 0x207fffff, 0, true},
		{"high hash", &high, 0x207fffff, ErrProofOfWorkInvalid, false},
		{"zero target", &low, 0x00000000, ErrProofOfWorkInvalid, false},
		{"target above limit", &low, 0x2100ffff, ErrProofOfWorkInvalid, false},
		{"negative target", &low, 0x20800001, ErrNegativeTarget, false},
	}
	for _, test := range tests {
		err := CheckProofOfWork(test.hash, test.bits, powLimit)
		if test.ok {
			if err != nil {
				t.Errorf("%s: unexpected error %v", test.name, err)
			}
			continue
		}
		if !IsRuleError(err, test.code) {
			t.Errorf("%s: got error %v, want %s", test.name, err, test.code)
		}
	}
}

// nodeWindow returns a chain of retarget interval nodes ending at height
// interval-1 whose first and last timestamps are timespan seconds apart.
func nodeWindow(interval int32, bits uint32, timespan int64) *blockNode {
	var node *blockNode
	start := int64(1406620000)
	for height := int32(0); height < interval; height++ {
		timestamp := start + int64(height)
		if height == interval-1 {
			timestamp = start + timespan
		}
		node = &blockNode{
			parent:    node,
			height:    height,
			bits:      bits,
			timestamp: timestamp,
			workSum:   big.NewInt(0),
		}
	}
	return node
}

// TestCalcNextRequiredDifficulty checks retargeting on the unit test network,
// whose target timespan is 200000000 seconds over 10 blocks.
func TestCalcNextRequiredDifficulty(t *testing.T) {
	params := unitTestParams()
	chain := &BlockChain{params: params}
	targetTimespan := int64(params.TargetTimespan / time.Second)

	tests := []struct {
		name     string
		bits     uint32
		timespan int64
		want     uint32
	}{
		{"fast blocks clamp to a quarter", 0x207fffff, 45, 0x201fffff},
		{"slightly fast blocks", 0x207fffff, 180000000, 0x20733332},
		{"on target", 0x1f00ffff, targetTimespan, 0x1f00ffff},
		{"slow blocks clamp to four times", 0x201fffff, 10 * targetTimespan, 0x207ffffc},
		{"capped at the limit", 0x207fffff, 10 * targetTimespan, 0x207fffff},
		{"four times from harder bits", 0x1f00ffff, 4 * targetTimespan, 0x1f03fffc},
		{"quarter from harder bits", 0x1f00ffff, 1, 0x1e3fffc0},
	}
	for _, test := range tests {
		last := nodeWindow(params.RetargetInterval, test.bits, test.timespan)
		got, err := chain.calcNextRequiredDifficulty(last)
		if err != nil {
			t.Errorf("%s: unexpected error %v", test.name, err)
			continue
		}
		if got != test.want {
			t.Errorf("%s: got %08x, want %08x", test.name, got, test.want)
		}
	}

	// Off the retarget boundary the bits carry forward.
	last := nodeWindow(params.RetargetInterval-3, 0x1f00ffff, 1)
	got, err := chain.calcNextRequiredDifficulty(last)
	if err != nil || got != 0x1f00ffff {
		t.Errorf("off boundary: got %08x, %v, want 1f00ffff", got, err)
	}
}

// TestRetargetThroughProcessBlock drives a chain across a retarget boundary.
func TestRetargetThroughProcessBlock(t *testing.T) {
	chain := newFakeChain(t, nil)
	gen := newChainGen(t)
	blocks := gen.branch(genesisHeader(t), int(chain.params.RetargetInterval)-1)
	processBlocks(t, chain, blocks...)

	required, err := chain.CalcNextRequiredDifficulty()
	if err != nil {
		t.Fatalf("CalcNextRequiredDifficulty: unexpected error %v", err)
	}
	if required != 0x201fffff {
		t.Fatalf("CalcNextRequiredDifficulty: got %08x, want 201fffff", required)
	}

	prev := blocks[len(blocks)-1].Header()
	_, err = chain.ProcessBlock(gen.next(prev), BFNone)
	if !IsRuleError(err, ErrBadDifficultyTransition) {
		t.Fatalf("ProcessBlock with stale bits: got error %v, want %s",
			err, ErrBadDifficultyTransition)
	}
	processBlocks(t, chain, gen.nextWithBits(prev, required))
	if chain.BestHeight() != chain.params.RetargetInterval {
		t.Fatalf("BestHeight: got %d, want %d", chain.BestHeight(),
			chain.params.RetargetInterval)
	}
}

// TestEstimateBlockTime ensures block times are extrapolated from the head at
// the target spacing.
func TestEstimateBlockTime(t *testing.T) {
	chain := newFakeChain(t, nil)
	head := chain.BestSnapshot()
	spacing := chain.params.TargetTimePerBlock

	tests := []struct {
		height int32
		want   time.Time
	}{
		{0, head.Timestamp},
		{10, head.Timestamp.Add(10 * spacing)},
		{-2, head.Timestamp.Add(-2 * spacing)},
	}
	for _, test := range tests {
		if got := chain.EstimateBlockTime(test.height); !got.Equal(test.want) {
			t.Errorf("EstimateBlockTime(%d): got %s, want %s", test.height,
				got, test.want)
		}
	}
}
