// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"bytes"
	"encoding/hex"
	"math"
	"math/big"
	"time"

	"github.com/pkg/errors"

	"github.com/spreadcoin/spreadd/util"
	"github.com/spreadcoin/spreadd/util/chainhash"
	"github.com/spreadcoin/spreadd/wire"
)

// These variables are the chain proof-of-work limit parameters for each
// default network.
var (
	// bigOne is 1 represented as a big.Int. It is defined here to avoid
	// the overhead of creating it multiple times.
	bigOne = big.NewInt(1)

	// mainPowLimit is the highest proof of work value a Spreadcoin block
	// can have for the main and test networks. It is the value encoded by
	// the compact bits 0x1e0fffff.
	mainPowLimit = new(big.Int).Lsh(big.NewInt(0x0fffff), 8*(0x1e-3))

	// unitTestPowLimit is the highest proof of work value a block can have
	// on the unit test network. It is the value encoded by 0x207fffff.
	unitTestPowLimit = new(big.Int).Lsh(big.NewInt(0x7fffff), 8*(0x20-3))
)

const (
	targetTimespan     = 14 * 24 * time.Hour
	targetTimePerBlock = 10 * time.Minute

	// NeverActive is a fork height that is never reached.
	NeverActive int32 = math.MaxInt32
)

// Params defines a Spreadcoin network by its parameters. These parameters
// are passed explicitly to every component that needs them and must not be
// modified after the first component has been built from them.
type Params struct {
	// Name defines a human-readable identifier for the network.
	Name string

	// Net defines the magic bytes used to identify the network.
	Net wire.BitcoinNet

	// DefaultPort defines the default peer-to-peer port for the network.
	DefaultPort uint16

	// DNSSeeds defines a list of DNS seeds for the network that are used
	// as one method to discover peers.
	DNSSeeds []string

	// SeedIPs holds fixed seed nodes as packed IPv4 addresses, lowest
	// octet first.
	SeedIPs []uint32

	// GenesisHash is the starting block hash.
	GenesisHash *chainhash.Hash

	// Fields of the genesis header. GenesisBlockBytes holds the whole
	// serialized genesis block when it is known; otherwise the genesis
	// block is identified by GenesisHash alone.
	GenesisVersion    int32
	GenesisTimestamp  time.Time
	GenesisBits       uint32
	GenesisNonce      uint32
	GenesisBlockBytes []byte

	// PowLimit defines the highest allowed proof of work value for a block
	// as a uint256.
	PowLimit *big.Int

	// PowLimitBits defines the highest allowed proof of work value for a
	// block in compact form.
	PowLimitBits uint32

	// TargetTimespan is the desired amount of time that should elapse
	// before the block difficulty requirement is examined to determine how
	// it should be changed in order to maintain the desired block
	// generation rate.
	TargetTimespan time.Duration

	// TargetTimePerBlock is the desired amount of time to generate each
	// block.
	TargetTimePerBlock time.Duration

	// RetargetInterval is the number of blocks between difficulty
	// retargets.
	RetargetInterval int32

	// Heights at which the three hard forks activate. Zero means active
	// from genesis, NeverActive means never.
	FirstForkHeight  int32
	SecondForkHeight int32
	ThirdForkHeight  int32

	// CoinbaseMaturity is the number of blocks required before newly mined
	// coins can be spent.
	CoinbaseMaturity int32

	// SubsidyReductionInterval is the interval of blocks before the subsidy
	// is reduced.
	SubsidyReductionInterval int32

	// Address encoding magics
	PubKeyHashAddrID byte // First byte of a P2PKH address
	ScriptHashAddrID byte // First byte of a P2SH address
	PrivateKeyID     byte // First byte of a WIF private key

	// AlertPubKey is the serialized key alerts on this network are signed
	// with, if any.
	AlertPubKey []byte
}

// Codec returns the wire codec for the network. Headers above the second
// fork height carry a miner signature.
func (p *Params) Codec(lazy bool) *wire.Codec {
	return wire.NewCodec(p.Net, p.MinerSignatureHeight(), lazy)
}

// ForkHeights returns the three fork heights raised where needed so that no
// fork activates before the one preceding it.
func (p *Params) ForkHeights() (first, second, third int32) {
	first, second, third = p.FirstForkHeight, p.SecondForkHeight, p.ThirdForkHeight
	if second < first {
		second = first
	}
	if third < second {
		third = second
	}
	return first, second, third
}

// MinerSignatureHeight returns the first height whose headers carry a miner
// signature, which is the normalized second fork height.
func (p *Params) MinerSignatureHeight() int32 {
	_, second, _ := p.ForkHeights()
	return second
}

// AddressPrefixes returns the version bytes of the network's addresses.
func (p *Params) AddressPrefixes() util.AddressPrefixes {
	return util.AddressPrefixes{
		PubKeyHash: p.PubKeyHashAddrID,
		ScriptHash: p.ScriptHashAddrID,
	}
}

// GenesisBlock returns a fresh copy of the genesis block. Networks whose
// genesis transactions are not known get a header-only block built from the
// genesis header fields; its computed hash does not match GenesisHash and
// callers identify it by GenesisHash.
func (p *Params) GenesisBlock() (*wire.MsgBlock, error) {
	if len(p.GenesisBlockBytes) == 0 {
		header := wire.NewBlockHeader(p.GenesisVersion, &chainhash.Hash{},
			&chainhash.Hash{}, p.GenesisTimestamp, p.GenesisBits, 0, p.GenesisNonce)
		return wire.NewMsgBlock(header), nil
	}
	block := &wire.MsgBlock{}
	err := block.Deserialize(bytes.NewReader(p.GenesisBlockBytes), p.Codec(false))
	if err != nil {
		return nil, errors.Wrapf(err, "decoding the %s genesis block", p.Name)
	}
	return block, nil
}

// MainNetParams defines the network parameters for the main Spreadcoin
// network.
var MainNetParams = Params{
	Name:        "mainnet",
	Net:         wire.MainNet,
	DefaultPort: 41678,
	DNSSeeds:    []string{"dnsseed.spreadcoin.net"},
	SeedIPs:     mainNetSeeds,

	// Chain parameters
	GenesisHash:              newHashFromStr("14dcedae9369344e0542270805a0cef3213f2b17f693d9b2acec76c1b7ed7fa3"),
	GenesisVersion:           1,
	GenesisTimestamp:         time.Unix(1406620000, 0),
	GenesisBits:              0x1e0fffff,
	GenesisNonce:             0,
	PowLimit:                 mainPowLimit,
	PowLimitBits:             0x1e0fffff,
	TargetTimespan:           targetTimespan,
	TargetTimePerBlock:       targetTimePerBlock,
	RetargetInterval:         int32(targetTimespan / targetTimePerBlock),
	FirstForkHeight:          2200,
	SecondForkHeight:         43000,
	ThirdForkHeight:          999999,
	CoinbaseMaturity:         100,
	SubsidyReductionInterval: 2000000,

	// Address encoding magics
	PubKeyHashAddrID: 63, // starts with S
	ScriptHashAddrID: 5,  // starts with 3
	PrivateKeyID:     191,
}

// TestNetParams defines the network parameters for the public test network.
// It shares the main network genesis block and activates every fork from
// genesis.
var TestNetParams = Params{
	Name:        "testnet",
	Net:         wire.TestNet,
	DefaultPort: 51678,
	DNSSeeds:    []string{},

	// Chain parameters
	GenesisHash:              newHashFromStr("14dcedae9369344e0542270805a0cef3213f2b17f693d9b2acec76c1b7ed7fa3"),
	GenesisVersion:           1,
	GenesisTimestamp:         time.Unix(1406620000, 0),
	GenesisBits:              0x1e0fffff,
	GenesisNonce:             0,
	PowLimit:                 mainPowLimit,
	PowLimitBits:             0x1e0fffff,
	TargetTimespan:           targetTimespan,
	TargetTimePerBlock:       targetTimePerBlock,
	RetargetInterval:         int32(targetTimespan / targetTimePerBlock),
	FirstForkHeight:          0,
	SecondForkHeight:         0,
	ThirdForkHeight:          0,
	CoinbaseMaturity:         100,
	SubsidyReductionInterval: 2000000,

	// Address encoding magics
	PubKeyHashAddrID: 111, // starts with m or n
	ScriptHashAddrID: 196, // starts with 2
	PrivateKeyID:     239, // starts with 9 (uncompressed) or c (compressed)

	AlertPubKey: hexDecode("03f5cee48df4990af166d539f1cc42367034558d62e765a30ed3228ec418cc46bb"),
}

// UnitTestParams defines a private network with a trivial proof-of-work
// limit and a short retarget interval, used to build chains in tests. Its
// genesis block is fully specified.
var UnitTestParams = Params{
	Name:        "unittest",
	Net:         wire.UnitNet,
	DefaultPort: 18444,
	DNSSeeds:    []string{}, // NOTE: There must NOT be any seeds.

	// Chain parameters
	GenesisHash:              &unitTestGenesisHash,
	GenesisVersion:           1,
	GenesisTimestamp:         time.Unix(1406620000, 0),
	GenesisBits:              0x207fffff,
	GenesisNonce:             0,
	GenesisBlockBytes:        unitTestGenesisBlockBytes,
	PowLimit:                 unitTestPowLimit,
	PowLimitBits:             0x207fffff,
	TargetTimespan:           200000000 * time.Second,
	TargetTimePerBlock:       20000000 * time.Second,
	RetargetInterval:         10,
	FirstForkHeight:          0,
	SecondForkHeight:         NeverActive,
	ThirdForkHeight:          NeverActive,
	CoinbaseMaturity:         5,
	SubsidyReductionInterval: 150,

	// Address encoding magics
	PubKeyHashAddrID: 111,
	ScriptHashAddrID: 196,
	PrivateKeyID:     239,
}

var (
	// ErrDuplicateNet describes an error where the parameters for a
	// network could not be set due to the network already being a standard
	// network or previously-registered into this package.
	ErrDuplicateNet = errors.New("duplicate Spreadcoin network")

	// ErrUnknownNet describes an error where no parameters are registered
	// for a network.
	ErrUnknownNet = errors.New("unknown Spreadcoin network")
)

var registeredNets = make(map[wire.BitcoinNet]*Params)

// Register registers the network parameters for a network. This may error
// with ErrDuplicateNet if the network is already registered (either due to a
// previous Register call, or the network being one of the default networks).
//
// Network parameters should be registered into this package by a main package
// as early as possible. Then, library packages may lookup networks or network
// parameters based on inputs and work regardless of the network being standard
// or not.
func Register(params *Params) error {
	if _, ok := registeredNets[params.Net]; ok {
		return ErrDuplicateNet
	}
	registeredNets[params.Net] = params
	return nil
}

// ParamsForNet returns the registered parameters of net.
func ParamsForNet(net wire.BitcoinNet) (*Params, error) {
	params, ok := registeredNets[net]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownNet, "net %s", net)
	}
	return params, nil
}

// mustRegister performs the same function as Register except it panics if there
// is an error. This should only be called from package init functions.
func mustRegister(params *Params) {
	if err := Register(params); err != nil {
		panic("failed to register network: " + err.Error())
	}
}

// newHashFromStr converts the passed big-endian hex string into a
// chainhash.Hash. It only differs from the one available in chainhash in that
// it panics on an error since it will only (and must only) be called with
// hard-coded, and therefore known good, hashes.
func newHashFromStr(hexStr string) *chainhash.Hash {
	hash, err := chainhash.NewHashFromStr(hexStr)
	if err != nil {
		panic(err)
	}
	return hash
}

// hexDecode decodes a hard-coded hex string, panicking on bad input.
func hexDecode(hexStr string) []byte {
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		panic(err)
	}
	return b
}

func init() {
	// Register all default networks when the package is initialized.
	mustRegister(&MainNetParams)
	mustRegister(&TestNetParams)
	mustRegister(&UnitTestParams)
}
