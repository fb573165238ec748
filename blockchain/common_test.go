package blockchain

import (
	"encoding/hex"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/spreadcoin/spreadd/chaincfg"
	"github.com/spreadcoin/spreadd/database"
	"github.com/spreadcoin/spreadd/database/memdb"
	"github.com/spreadcoin/spreadd/util/chainhash"
	"github.com/spreadcoin/spreadd/wire"
)

// hexToBytes converts the passed hex string into bytes and will panic if there
// is an error. It must only be called with hard-coded values.
func hexToBytes(s string) []byte {
	b, err := hex.DecodeString(strings.Join(strings.Fields(s), ""))
	if err != nil {
		panic("invalid hex in source file: " + s)
	}
	return b
}

// unitTestParams returns a private copy of the unit test network parameters.
func unitTestParams() *chaincfg.Params {
	params := chaincfg.UnitTestParams
	return &params
}

// newFakeChain returns a chain on the unit test network backed by an
// in-memory store.
func newFakeChain(t *testing.T, config *Config) *BlockChain {
	if config == nil {
		config = &Config{}
	}
	if config.Params == nil {
		config.Params = unitTestParams()
	}
	if config.Store == nil {
		config.Store = memdb.New()
	}
	chain, err := New(config)
	if err != nil {
		t.Fatalf("New: unexpected error %v", err)
	}
	return chain
}

// genesisHeader returns the header of the unit test genesis block.
func genesisHeader(t *testing.T) *wire.BlockHeader {
	genesis, err := chaincfg.UnitTestParams.GenesisBlock()
	if err != nil {
		t.Fatalf("GenesisBlock: unexpected error %v", err)
	}
	return genesis.Header()
}

// chainGen builds solved unit test network blocks.
type chainGen struct {
	t       *testing.T
	params  *chaincfg.Params
	spacing time.Duration
	tag     uint32
}

func newChainGen(t *testing.T) *chainGen {
	return &chainGen{t: t, params: unitTestParams(), spacing: 5 * time.Second}
}

// coinbaseTx returns a coinbase paying to a fixed script. The tag makes
// blocks on competing branches differ.
func coinbaseTx(height int32, tag uint32) *wire.MsgTx {
	sigScript := []byte{
		0x04, byte(height), byte(height >> 8), byte(height >> 16), byte(height >> 24),
		0x04, byte(tag), byte(tag >> 8), byte(tag >> 16), byte(tag >> 24),
	}
	pkScript := append([]byte{0x76, 0xa9, 0x14}, make([]byte, 20)...)
	pkScript = append(pkScript, 0x88, 0xac)

	tx := wire.NewMsgTx(1)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{}, math.MaxUint32), sigScript))
	tx.AddTxOut(wire.NewTxOut(50*1e8, pkScript))
	return tx
}

// spendTx returns a transaction spending the first output of prev.
func spendTx(prev *wire.MsgTx) *wire.MsgTx {
	tx := wire.NewMsgTx(1)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(prev.TxHash(), 0), []byte{0x51}))
	tx.AddTxOut(wire.NewTxOut(49*1e8, []byte{0x51}))
	return tx
}

// next returns a solved block on top of prev carrying prev's bits.
func (g *chainGen) next(prev *wire.BlockHeader, txs ...*wire.MsgTx) *wire.MsgBlock {
	return g.nextWithBits(prev, prev.Bits(), txs...)
}

// nextWithBits returns a solved block on top of prev with the given bits. The
// block holds a coinbase followed by txs.
func (g *chainGen) nextWithBits(prev *wire.BlockHeader, bits uint32, txs ...*wire.MsgTx) *wire.MsgBlock {
	g.tag++
	height := prev.Height() + 1
	timestamp := prev.Timestamp().Add(g.spacing)
	header := wire.NewBlockHeader(1, prev.BlockHash(), &chainhash.Hash{},
		timestamp, bits, height, 0)
	block := wire.NewMsgBlock(header)
	block.AddTransaction(coinbaseTx(height, g.tag))
	for _, tx := range txs {
		block.AddTransaction(tx)
	}
	header.SetMerkleRoot(CalcMerkleRoot(block.Transactions()))
	solveBlock(g.t, header, g.params)
	return block
}

// branch returns n blocks extending prev.
func (g *chainGen) branch(prev *wire.BlockHeader, n int) []*wire.MsgBlock {
	blocks := make([]*wire.MsgBlock, 0, n)
	for i := 0; i < n; i++ {
		block := g.next(prev)
		blocks = append(blocks, block)
		prev = block.Header()
	}
	return blocks
}

// solveBlock attempts to find a nonce which makes the passed block header hash
// to a value less than the target difficulty.
func solveBlock(t *testing.T, header *wire.BlockHeader, params *chaincfg.Params) {
	for nonce := uint32(0); nonce < math.MaxUint32; nonce++ {
		header.SetNonce(nonce)
		if CheckProofOfWork(header.BlockHash(), header.Bits(), params.PowLimit) == nil {
			return
		}
	}
	t.Fatalf("solveBlock: no nonce solves bits %08x", header.Bits())
}

// unsolveBlock changes the nonce of a header until it no longer meets its
// target.
func unsolveBlock(t *testing.T, header *wire.BlockHeader, params *chaincfg.Params) {
	for nonce := header.Nonce() + 1; nonce != header.Nonce(); nonce++ {
		header.SetNonce(nonce)
		if CheckProofOfWork(header.BlockHash(), header.Bits(), params.PowLimit) != nil {
			return
		}
	}
	t.Fatalf("unsolveBlock: every nonce solves bits %08x", header.Bits())
}

// processBlocks feeds blocks to the chain and fails the test on any error or
// unexpected orphan.
func processBlocks(t *testing.T, chain *BlockChain, blocks ...*wire.MsgBlock) {
	for i, block := range blocks {
		isOrphan, err := chain.ProcessBlock(block, BFNone)
		if err != nil {
			t.Fatalf("ProcessBlock #%d (%s): unexpected error %v", i,
				block.BlockHash(), err)
		}
		if isOrphan {
			t.Fatalf("ProcessBlock #%d (%s): unexpected orphan", i,
				block.BlockHash())
		}
	}
}

// fixedTimeSource is a TimeSource returning a fixed time.
type fixedTimeSource time.Time

func (f fixedTimeSource) Now() time.Time {
	return time.Time(f)
}

// event is one observer callback.
type event struct {
	connected bool
	hash      chainhash.Hash
	height    int32
	blockType BlockType
	hasTx     bool
	offset    int
}

// recordingObserver records observer callbacks in order.
type recordingObserver struct {
	events   []event
	lastSeen int32
}

func (o *recordingObserver) OnConnected(tx *wire.MsgTx, header *database.StoredHeader,
	blockType BlockType, relativityOffset int) {

	o.events = append(o.events, event{
		connected: true,
		hash:      header.Hash,
		height:    header.Height,
		blockType: blockType,
		hasTx:     tx != nil,
		offset:    relativityOffset,
	})
	if blockType == BestChain {
		o.lastSeen = header.Height
	}
}

func (o *recordingObserver) OnDisconnected(header *database.StoredHeader) {
	o.events = append(o.events, event{hash: header.Hash, height: header.Height})
	o.lastSeen = header.Height - 1
}

func (o *recordingObserver) LastSeenHeight() int32 {
	return o.lastSeen
}

// hashObserver additionally remembers the hash of the last block seen.
type hashObserver struct {
	recordingObserver
	lastSeenHash *chainhash.Hash
}

func (o *hashObserver) OnConnected(tx *wire.MsgTx, header *database.StoredHeader,
	blockType BlockType, relativityOffset int) {

	o.recordingObserver.OnConnected(tx, header, blockType, relativityOffset)
	if blockType == BestChain {
		hash := header.Hash
		o.lastSeenHash = &hash
	}
}

func (o *hashObserver) OnDisconnected(header *database.StoredHeader) {
	o.recordingObserver.OnDisconnected(header)
	prev := *header.Header.PrevBlock()
	o.lastSeenHash = &prev
}

func (o *hashObserver) LastSeenHash() *chainhash.Hash {
	return o.lastSeenHash
}
