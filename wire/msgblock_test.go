// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/spreadcoin/spreadd/util/chainhash"
)

// block200358Bytes is main network block 200358. It carries a miner
// signature and four transactions, the second of which is the one in
// txMessage.
var block200358Bytes = hexToBytes(`
	0200000029fc49241d294664bb56fe608100087daeda209e72ee40cfac229a329908b71e
	41f11957f8188d0fa607fc3146144c5ec664ac6beb4fc5a896d81d561f7e3c931ce8a154
	00000000a2ee061ca60e030006f600000894a40e43a71966dac50de0f962821e0fa6c68e
	4d181fa5bbad4592aea653901b915c2925d1ace70600368fd2060f9a27d70a57426fa8ce
	7adab176e2d12359acc40873cccd86dbda5130fa1e3a12dc6d000c81f5ff3f877b94e271
	ab1b126a2404010000000100000000000000000000000000000000000000000000000000
	00000000000000ffffffff020104ffffffff01e9fdbe25000000001614282502d4a3de08
	9ad7a7ba763dbdd5a7b931e53fac000000000100000001e7906c5e12020bb16e4c12d95c
	c3e57d55d7ea4a1f1b4a9bce7a1b802a0b544f0000000043421c6757377026984e1067dd
	1a4bde326d1ff7f8d80a5d7a937585e5c62382a3af97ac6c2c5d77d70cfdd70cdf39ffab
	e2bb367a83002b0af22dbeb8bf2a9d6d3f3d01ffffffff0280098d250000000016140be0
	06a3ccb419f722e559065625f98e5a8003e5ac585a3400000000001614ef72e062bf0ded
	cca5a668b0fb1a843e5cfca99eac000000000100000004312922b0281272b994d9ae4a3f
	ef076e0fb96c5fe81fb843623899346115a4000000000043421c41c7f1643976f8a5ee5c
	66871206081551da5fbf6800962df17b74fd2804cd960e913f6b7ea36a6441d88c721c7e
	efbea20f2958b6796f191587cf2a7055bb7701ffffffffe1579f86385cae40ad9ab8e999
	1be2feb836ad55bb79947d31b7eb52268aedba0000000043421c9cdd056741f5e9738015
	7e65bce24fe97806e0805d89f8dcfc29a8da278d9840ab9461d510b062dde9026e3fa3ae
	b7d1ab69379cd5e2a3a3be2dd1ddf990834701ffffffff8e22c477fd48f68e65a3893591
	e2f2ca153228e0bac90334e840db9eca5262250000000043421c30e1730a7977ab38b438
	fcfeac47be9b2833ddf7448917324d0c33d2192c240aff4d4aead17ac68697d5141184cb
	ea9d2c9684211217adcf3d224fd31dc11ac701ffffffffa80a64fd9fc91e1f8c81df8645
	6e8fa528fe5c99618e44ffc72aec98044b26e90000000043421c53fde149633091ddb459
	5d591291a9b5160d9854687b75200d3d1e8d9081050b1c706a48ccda58d46d71b2a523b3
	399a03081c43d8e47468741a6e6f6ee6ee4101ffffffff020462350000000000161484de
	6f94e76d4dc8cc1e3d92b370f1044990ac6eac80bccc960000000016140be006a3ccb419
	f722e559065625f98e5a8003e5ac0000000001000000044b1f918dab489a83da5449720c
	62174c04cd34f3ec42f81245765fe108565f100100000043421b9d6658f4dda6d2848e14
	2c09e8332d7045133eae6b7608dc639a89c4f22c4c47088b3b59faee66b409ad2cd4b4e7
	86108d8c9473cff808202c346825b9faae1001ffffffff0858a852d0ea55055fa2b33021
	4bf697a23498a76bec7354128f7ba2d7333a760000000043421b27aae0cbf2e5a108a3be
	82f7b64219cc7a3a05388d5ad4d7a9921eda61c72cdde559481b5e742472bd9d5bf6359a
	d8ff327275b682b31b9b0b18d3f9dc841f6e01ffffffff7c9518d50cd55998d19802cc96
	b7ef0a8e4287db0bdbd3e48507ee6f26b83b980000000043421c40634992b62754e0f077
	8e59711fd0b0f9585460c390cf974b3ae53dcff5b383cabe81b7d93bd17379b61268fdb6
	89a8b6cb2c921d49c6bfedd58ce6739b289201ffffffff45d2e90f1f401d5a5e1d69563f
	1d43b64fc9f867a59fc23de7842ea4415b23660000000043421c474821a74560a731182c
	0185dfaa10d4c43f456892396390da0293532648d1275eaaeaa9a4f57ee32dac155c86c4
	b8dfc5080a0ec14a253f054fe674c4a145eb01ffffffff0280a9b24b0000000016140be0
	06a3ccb419f722e559065625f98e5a8003e5acc80b20000000000016149b614013f64949
	ef9963873ade7804dead45eccdac00000000`)

const block200358Hash = "874f738f74ed1305ae79a817d9eb7dabdd382f8b173b845dbf293cf4ac26e171"

func decodeBlock(t *testing.T, lazy bool) *MsgBlock {
	var block MsgBlock
	err := block.Deserialize(bytes.NewReader(block200358Bytes), mainNetCodec.WithLazy(lazy))
	if err != nil {
		t.Fatalf("Deserialize (lazy %v): %v", lazy, err)
	}
	return &block
}

// TestBlock tests the MsgBlock API.
func TestBlock(t *testing.T) {
	header := NewBlockHeader(2, &chainhash.ZeroHash, &chainhash.ZeroHash,
		time.Unix(1406620000, 0), 0x1e0fffff, 0, 0)

	// Ensure the command is expected value.
	wantCmd := "block"
	msg := NewMsgBlock(header)
	if cmd := msg.Command(); cmd != wantCmd {
		t.Errorf("NewMsgBlock: wrong command - got %v want %v",
			cmd, wantCmd)
	}
	if msg.Header() != header {
		t.Errorf("NewMsgBlock: wrong block header - got %v, want %v",
			spew.Sdump(msg.Header()), spew.Sdump(header))
	}
	if !msg.IsHeaderOnly() {
		t.Errorf("IsHeaderOnly: new block has transactions")
	}

	// Ensure transactions are added properly.
	tx := decodeTx(t, false)
	msg.AddTransaction(tx)
	if len(msg.Transactions()) != 1 || msg.Transactions()[0] != tx {
		t.Errorf("AddTransaction: wrong transactions - got %v",
			spew.Sdump(msg.Transactions()))
	}
	if !tx.IsCached() {
		t.Errorf("AddTransaction: transaction lost its cached bytes")
	}
	hashes := msg.TxHashes()
	if len(hashes) != 1 || !hashes[0].IsEqual(tx.TxHash()) {
		t.Errorf("TxHashes: got %v", hashes)
	}

	// Ensure transactions are properly cleared.
	msg.ClearTransactions()
	if len(msg.Transactions()) != 0 {
		t.Errorf("ClearTransactions: wrong transactions - got %v, want %v",
			len(msg.Transactions()), 0)
	}

	// A removed transaction no longer affects the block.
	raw, err := msg.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	tx.SetLockTime(9)
	if !msg.IsCached() {
		t.Errorf("SetLockTime: detached transaction uncached the block")
	}
	if len(raw) != BlockHeaderPayload+1 {
		t.Errorf("Bytes: got %d bytes, want %d", len(raw), BlockHeaderPayload+1)
	}
}

// TestBlock200358 decodes a real block with a miner signature and checks it
// re-serializes byte for byte.
func TestBlock200358(t *testing.T) {
	for _, lazy := range []bool{false, true} {
		block := decodeBlock(t, lazy)
		if hash := block.BlockHash(); hash.String() != block200358Hash {
			t.Errorf("BlockHash (lazy %v): got %v, want %v", lazy, hash,
				block200358Hash)
		}
		header := block.Header()
		if !header.HasMinerSignature() {
			t.Errorf("HasMinerSignature (lazy %v): signature missing", lazy)
		}
		if header.SerializeSize() != SignedBlockHeaderPayload {
			t.Errorf("SerializeSize (lazy %v): got %d, want %d", lazy,
				header.SerializeSize(), SignedBlockHeaderPayload)
		}
		if header.Height() != 200358 {
			t.Errorf("Height (lazy %v): got %d", lazy, header.Height())
		}
		wantTime := time.Date(2014, time.December, 29, 23, 47, 40, 0, time.UTC)
		if !header.Timestamp().Equal(wantTime) {
			t.Errorf("Timestamp (lazy %v): got %v, want %v", lazy,
				header.Timestamp().UTC(), wantTime)
		}
		if header.Bits() != 0x1c06eea2 {
			t.Errorf("Bits (lazy %v): got %x", lazy, header.Bits())
		}
		if block.IsParsed() == lazy {
			t.Errorf("IsParsed (lazy %v): got %v", lazy, block.IsParsed())
		}
		if block.SerializeSize() != len(block200358Bytes) {
			t.Errorf("SerializeSize (lazy %v): got %d, want %d", lazy,
				block.SerializeSize(), len(block200358Bytes))
		}

		txs := block.Transactions()
		if len(txs) != 4 {
			t.Fatalf("Transactions (lazy %v): got %d, want 4", lazy, len(txs))
		}
		if !block.IsParsed() {
			t.Errorf("Transactions (lazy %v): block not marked parsed", lazy)
		}
		for i, tx := range txs {
			if tx.IsParsed() == lazy {
				t.Errorf("tx %d (lazy %v): parsed %v", i, lazy, tx.IsParsed())
			}
		}
		if !txs[0].IsCoinBase() {
			t.Errorf("tx 0 (lazy %v): not a coinbase", lazy)
		}
		if txs[1].TxHash().String() !=
			"07c1fc3eb4c6f0120e0e2e31def2e8ce6aa90c27b9f7460512fbac49aeff8224" {
			t.Errorf("tx 1 (lazy %v): got hash %v", lazy, txs[1].TxHash())
		}

		var buf bytes.Buffer
		err := block.Serialize(&buf)
		if err != nil {
			t.Fatalf("Serialize (lazy %v): %v", lazy, err)
		}
		if !bytes.Equal(buf.Bytes(), block200358Bytes) {
			t.Errorf("Serialize (lazy %v): got %s want %s", lazy,
				spew.Sdump(buf.Bytes()), spew.Sdump(block200358Bytes))
		}
	}
}

// TestBlockCachePropagation checks that changing one transaction uncaches the
// block but leaves the other transactions cached.
func TestBlockCachePropagation(t *testing.T) {
	for _, lazy := range []bool{false, true} {
		block := decodeBlock(t, lazy)
		txs := block.Transactions()
		txs[2].TxOut()[0].SetValue(1)
		if block.IsCached() {
			t.Errorf("SetValue (lazy %v): block still cached", lazy)
		}
		if txs[2].IsCached() {
			t.Errorf("SetValue (lazy %v): transaction still cached", lazy)
		}
		if !block.Header().IsCached() {
			t.Errorf("SetValue (lazy %v): header uncached", lazy)
		}
		for _, i := range []int{0, 1, 3} {
			if !txs[i].IsCached() {
				t.Errorf("SetValue (lazy %v): sibling tx %d uncached", lazy, i)
			}
			if txs[i].IsParsed() == lazy {
				t.Errorf("SetValue (lazy %v): sibling tx %d parse state "+
					"changed", lazy, i)
			}
		}
		// The block hash covers only the header.
		if hash := block.BlockHash(); hash.String() != block200358Hash {
			t.Errorf("BlockHash (lazy %v): got %v", lazy, hash)
		}

		raw, err := block.Bytes()
		if err != nil {
			t.Fatalf("Bytes: %v", err)
		}
		if bytes.Equal(raw, block200358Bytes) {
			t.Errorf("Bytes (lazy %v): serialization unchanged", lazy)
		}
		if len(raw) != len(block200358Bytes) {
			t.Errorf("Bytes (lazy %v): got %d bytes, want %d", lazy, len(raw),
				len(block200358Bytes))
		}
		for _, i := range []int{0, 1, 3} {
			if txs[i].IsParsed() == lazy {
				t.Errorf("Bytes (lazy %v): re-serialization parsed "+
					"sibling tx %d", lazy, i)
			}
		}

		// Restoring the value restores the original bytes.
		txs[2].TxOut()[0].SetValue(0x356204)
		raw, err = block.Bytes()
		if err != nil {
			t.Fatalf("Bytes: %v", err)
		}
		if !bytes.Equal(raw, block200358Bytes) {
			t.Errorf("Bytes (lazy %v): got %s want %s", lazy,
				spew.Sdump(raw), spew.Sdump(block200358Bytes))
		}
	}
}

// TestBlockHeaderChange ensures header changes reach the block and the hash.
func TestBlockHeaderChange(t *testing.T) {
	block := decodeBlock(t, true)
	block.Header().SetNonce(block.Header().Nonce())
	if !block.IsCached() {
		t.Errorf("SetNonce: same value uncached the block")
	}
	block.Header().SetNonce(12346)
	if block.IsCached() || block.Header().IsCached() {
		t.Errorf("SetNonce: block cached %v header cached %v",
			block.IsCached(), block.Header().IsCached())
	}
	if hash := block.BlockHash(); hash.String() == block200358Hash {
		t.Errorf("BlockHash: hash unchanged after nonce change")
	}
	for i, tx := range block.Transactions() {
		if tx.IsParsed() {
			t.Errorf("SetNonce: tx %d parsed", i)
		}
	}
	raw, err := block.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if !bytes.Equal(raw[SignedBlockHeaderPayload:], block200358Bytes[SignedBlockHeaderPayload:]) {
		t.Errorf("Bytes: transaction section changed")
	}
}

// TestBlockHeaderOnly checks a header-only copy re-parses to the same header.
func TestBlockHeaderOnly(t *testing.T) {
	block := decodeBlock(t, false)
	headerOnly := block.HeaderOnly()
	if !headerOnly.IsHeaderOnly() {
		t.Fatalf("HeaderOnly: copy carries transactions")
	}
	raw, err := headerOnly.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	var reparsed MsgBlock
	err = reparsed.Deserialize(bytes.NewReader(raw), mainNetCodec)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if !reparsed.BlockHash().IsEqual(block.BlockHash()) {
		t.Errorf("HeaderOnly: got hash %v, want %v", reparsed.BlockHash(),
			block.BlockHash())
	}
	if !reparsed.Header().MinerSignature().IsEqual(block.Header().MinerSignature()) {
		t.Errorf("HeaderOnly: miner signature changed")
	}

	// The copy is independent of the original.
	headerOnly.Header().SetNonce(1)
	if !block.IsCached() {
		t.Errorf("SetNonce: original block uncached through its copy")
	}
}

// TestBlockWireErrors performs negative tests against block decoding.
func TestBlockWireErrors(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
	}{
		{"truncated header", block200358Bytes[:80]},
		{"truncated signature", block200358Bytes[:100]},
		{"missing tx count", block200358Bytes[:SignedBlockHeaderPayload]},
		{"truncated tx", block200358Bytes[:400]},
		{"truncated last tx", block200358Bytes[:len(block200358Bytes)-1]},
	}

	for _, test := range tests {
		for _, lazy := range []bool{true, false} {
			var block MsgBlock
			err := block.Deserialize(bytes.NewReader(test.buf), mainNetCodec.WithLazy(lazy))
			if !IsErrorCode(err, ErrMalformedEncoding) {
				t.Errorf("%s (lazy %v): got error %v, want "+
					"ErrMalformedEncoding", test.name, lazy, err)
			}
		}
	}

	// The unsigned form of a height that requires a signature misreads the
	// transaction section.
	unsigned := NewCodec(MainNet, 300000, false)
	var block MsgBlock
	err := block.Deserialize(bytes.NewReader(block200358Bytes), unsigned)
	if err == nil && block.BlockHash().String() == block200358Hash {
		t.Errorf("Deserialize: unsigned codec produced the signed block hash")
	}
}

// TestDecodeBlockHeader tests decoding standalone headers by length.
func TestDecodeBlockHeader(t *testing.T) {
	signed, err := DecodeBlockHeader(block200358Bytes[:SignedBlockHeaderPayload])
	if err != nil {
		t.Fatalf("DecodeBlockHeader: %v", err)
	}
	if signed.BlockHash().String() != block200358Hash {
		t.Errorf("DecodeBlockHeader: got hash %v", signed.BlockHash())
	}
	if signed.WholeBlockHash() == nil || signed.MinerSignature() == nil {
		t.Errorf("DecodeBlockHeader: signature fields missing")
	}

	unsigned, err := DecodeBlockHeader(headersOneMessage[MessageHeaderSize+1 : MessageHeaderSize+1+BlockHeaderPayload])
	if err != nil {
		t.Fatalf("DecodeBlockHeader: %v", err)
	}
	if unsigned.HasMinerSignature() || unsigned.MinerSignature() != nil {
		t.Errorf("DecodeBlockHeader: unexpected signature")
	}
	if unsigned.BlockHash().String() !=
		"b3e028fe396ebaa9115812404d2d3ff65dce68f17ecc431d43745cd7ccc150b8" {
		t.Errorf("DecodeBlockHeader: got hash %v", unsigned.BlockHash())
	}

	_, err = DecodeBlockHeader(block200358Bytes[:100])
	if !IsErrorCode(err, ErrMalformedEncoding) {
		t.Errorf("DecodeBlockHeader: got error %v, want ErrMalformedEncoding", err)
	}

	// Removing and restoring the signature round trips.
	whole := signed.WholeBlockHash()
	sig := signed.MinerSignature()
	signed.ClearMinerSignature()
	if signed.SerializeSize() != BlockHeaderPayload {
		t.Errorf("ClearMinerSignature: size %d", signed.SerializeSize())
	}
	signed.SetMinerSignature(whole, sig)
	if signed.BlockHash().String() != block200358Hash {
		t.Errorf("SetMinerSignature: got hash %v", signed.BlockHash())
	}
}
