package main

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/spreadcoin/spreadd/blockchain"
	"github.com/spreadcoin/spreadd/chaincfg"
	"github.com/spreadcoin/spreadd/database/memdb"
	"github.com/spreadcoin/spreadd/util/binaryserializer"
	"github.com/spreadcoin/spreadd/util/chainhash"
	"github.com/spreadcoin/spreadd/wire"
)

func unitTestConfig() *ConfigFlags {
	params := chaincfg.UnitTestParams
	cfg := &ConfigFlags{DbType: dbTypeMemdb}
	cfg.ActiveNetParams = &params
	return cfg
}

// buildBlocks returns n solved unit test network blocks on top of genesis.
func buildBlocks(t *testing.T, params *chaincfg.Params, n int) []*wire.MsgBlock {
	genesis, err := params.GenesisBlock()
	if err != nil {
		t.Fatalf("GenesisBlock: %v", err)
	}

	prev := genesis.Header()
	blocks := make([]*wire.MsgBlock, 0, n)
	for i := 0; i < n; i++ {
		height := prev.Height() + 1
		header := wire.NewBlockHeader(1, prev.BlockHash(), &chainhash.Hash{},
			prev.Timestamp().Add(time.Minute), prev.Bits(), height, 0)
		block := wire.NewMsgBlock(header)

		coinbase := wire.NewMsgTx(1)
		coinbase.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{}, math.MaxUint32),
			[]byte{0x04, byte(height), byte(height >> 8), 0, 0}))
		coinbase.AddTxOut(wire.NewTxOut(50*1e8, []byte{0x51}))
		block.AddTransaction(coinbase)
		header.SetMerkleRoot(blockchain.CalcMerkleRoot(block.Transactions()))

		solved := false
		for nonce := uint32(0); nonce < math.MaxUint32; nonce++ {
			header.SetNonce(nonce)
			err := blockchain.CheckProofOfWork(header.BlockHash(), header.Bits(), params.PowLimit)
			if err == nil {
				solved = true
				break
			}
		}
		if !solved {
			t.Fatalf("no nonce solves block %d", height)
		}

		blocks = append(blocks, block)
		prev = header
	}
	return blocks
}

// writeFraming appends the magic and length fields of a bootstrap record.
func writeFraming(t *testing.T, buf *bytes.Buffer, net, length uint32) {
	if err := binaryserializer.PutUint32(buf, binary.BigEndian, net); err != nil {
		t.Fatalf("PutUint32: %v", err)
	}
	if err := binaryserializer.PutUint32(buf, binary.LittleEndian, length); err != nil {
		t.Fatalf("PutUint32: %v", err)
	}
}

// writeRecord appends one bootstrap record holding block to buf.
func writeRecord(t *testing.T, buf *bytes.Buffer, net wire.BitcoinNet, block *wire.MsgBlock) {
	serialized, err := block.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	writeFraming(t, buf, uint32(net), uint32(len(serialized)))
	buf.Write(serialized)
}

func newTestChain(t *testing.T, cfg *ConfigFlags) *blockchain.BlockChain {
	chain, err := blockchain.New(&blockchain.Config{
		Params: cfg.NetParams(),
		Store:  memdb.New(),
	})
	if err != nil {
		t.Fatalf("blockchain.New: %v", err)
	}
	return chain
}

func runImport(t *testing.T, cfg *ConfigFlags, chain *blockchain.BlockChain, input []byte) *importResults {
	importer := newBlockImporter(chain, cfg, bytes.NewReader(input))
	select {
	case results := <-importer.Import():
		return results
	case <-time.After(30 * time.Second):
		t.Fatalf("import did not finish")
	}
	return nil
}

func TestImport(t *testing.T) {
	for _, lazy := range []bool{false, true} {
		cfg := unitTestConfig()
		cfg.Lazy = lazy
		blocks := buildBlocks(t, cfg.NetParams(), 5)

		genesis, err := cfg.NetParams().GenesisBlock()
		if err != nil {
			t.Fatalf("GenesisBlock: %v", err)
		}

		var buf bytes.Buffer
		writeRecord(t, &buf, cfg.NetParams().Net, genesis)
		for _, block := range blocks {
			writeRecord(t, &buf, cfg.NetParams().Net, block)
		}
		// A repeated block is counted but not imported again.
		writeRecord(t, &buf, cfg.NetParams().Net, blocks[2])

		chain := newTestChain(t, cfg)
		results := runImport(t, cfg, chain, buf.Bytes())
		if results.err != nil {
			t.Fatalf("lazy=%v: unexpected import error: %v", lazy, results.err)
		}
		if results.blocksProcessed != 7 {
			t.Errorf("lazy=%v: processed %d blocks, want 7", lazy, results.blocksProcessed)
		}
		if results.blocksImported != 5 {
			t.Errorf("lazy=%v: imported %d blocks, want 5", lazy, results.blocksImported)
		}

		best := chain.BestSnapshot()
		if best.Height != 5 || !best.Hash.IsEqual(blocks[4].BlockHash()) {
			t.Errorf("lazy=%v: best is %s at %d, want %s at 5", lazy,
				best.Hash, best.Height, blocks[4].BlockHash())
		}
	}
}

func TestImportErrors(t *testing.T) {
	cfg := unitTestConfig()
	blocks := buildBlocks(t, cfg.NetParams(), 3)

	tests := []struct {
		name  string
		input func() []byte
	}{
		{
			name: "network mismatch",
			input: func() []byte {
				var buf bytes.Buffer
				writeRecord(t, &buf, wire.MainNet, blocks[0])
				return buf.Bytes()
			},
		},
		{
			name: "orphan",
			input: func() []byte {
				var buf bytes.Buffer
				writeRecord(t, &buf, cfg.NetParams().Net, blocks[0])
				writeRecord(t, &buf, cfg.NetParams().Net, blocks[2])
				return buf.Bytes()
			},
		},
		{
			name: "truncated magic",
			input: func() []byte {
				return []byte{0x0b, 0x11}
			},
		},
		{
			name: "truncated length",
			input: func() []byte {
				var buf bytes.Buffer
				writeFraming(t, &buf, uint32(cfg.NetParams().Net), 0)
				return buf.Bytes()[:6]
			},
		},
		{
			name: "oversized length",
			input: func() []byte {
				var buf bytes.Buffer
				writeFraming(t, &buf, uint32(cfg.NetParams().Net), wire.MaxMessagePayload+1)
				return buf.Bytes()
			},
		},
		{
			name: "truncated block",
			input: func() []byte {
				var buf bytes.Buffer
				writeRecord(t, &buf, cfg.NetParams().Net, blocks[0])
				return buf.Bytes()[:buf.Len()-10]
			},
		},
		{
			name: "malformed block",
			input: func() []byte {
				var buf bytes.Buffer
				writeFraming(t, &buf, uint32(cfg.NetParams().Net), 3)
				buf.Write([]byte{1, 2, 3})
				return buf.Bytes()
			},
		},
	}

	for _, test := range tests {
		chain := newTestChain(t, cfg)
		results := runImport(t, cfg, chain, test.input())
		if results.err == nil {
			t.Errorf("%s: expected an import error", test.name)
		}
	}
}

func TestImportEmpty(t *testing.T) {
	cfg := unitTestConfig()
	chain := newTestChain(t, cfg)
	results := runImport(t, cfg, chain, nil)
	if results.err != nil {
		t.Fatalf("unexpected error: %v", results.err)
	}
	if results.blocksProcessed != 0 {
		t.Errorf("processed %d blocks, want 0", results.blocksProcessed)
	}
}
