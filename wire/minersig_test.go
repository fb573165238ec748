package wire

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/spreadcoin/spreadd/util/chainhash"
)

// TestMinerSignatureKey tests the ordering key of miner signatures.
func TestMinerSignatureKey(t *testing.T) {
	var a, b MinerSignature
	a[28], a[29], a[30], a[31] = 0x00, 0x00, 0x01, 0x02
	b[28], b[29], b[30], b[31] = 0x01, 0x00, 0x00, 0x00
	b[0] = 0xff

	if key := a.Key(); key != 0x0102 {
		t.Errorf("Key: got %x, want %x", key, 0x0102)
	}
	if key := b.Key(); key != 0x01000000 {
		t.Errorf("Key: got %x, want %x", key, 0x01000000)
	}
	if a.Compare(&b) != -1 || b.Compare(&a) != 1 {
		t.Errorf("Compare: wrong ordering of %v and %v", a, b)
	}

	// Equal keys compare as equal whatever the other bytes hold.
	c := a
	c[0] = 0x01
	if a.Compare(&c) != 0 || c.Compare(&a) != 0 || a.Compare(&a) != 0 {
		t.Errorf("Compare: wrong ordering for equal keys")
	}

	// Keys are compared as signed integers.
	var high, low MinerSignature
	high[28] = 0x80
	low[31] = 0x01
	if key := high.Key(); key != 0x80000000 {
		t.Errorf("Key: got %x, want %x", key, 0x80000000)
	}
	if high.Compare(&low) != -1 || low.Compare(&high) != 1 {
		t.Errorf("Compare: key %08x should sort before key %08x",
			high.Key(), low.Key())
	}

	if _, err := NewMinerSignature(make([]byte, 64)); err == nil {
		t.Errorf("NewMinerSignature: expected error for short input")
	}
}

// TestMinerSignatureRecover signs a hash and recovers the signing key.
func TestMinerSignatureRecover(t *testing.T) {
	privKey, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("NewPrivateKey: %v", err)
	}
	hash := chainhash.DoubleHashH([]byte("spreadcoin block"))
	compact := ecdsa.SignCompact(privKey, hash[:], true)

	sig, err := NewMinerSignature(compact)
	if err != nil {
		t.Fatalf("NewMinerSignature: %v", err)
	}
	pubKey, err := sig.RecoverPubKey(&hash)
	if err != nil {
		t.Fatalf("RecoverPubKey: %v", err)
	}
	if !pubKey.IsEqual(privKey.PubKey()) {
		t.Errorf("RecoverPubKey: recovered a different key")
	}

	// A signature over another hash recovers another key, if any.
	other := chainhash.DoubleHashH([]byte("another block"))
	pubKey, err = sig.RecoverPubKey(&other)
	if err == nil && pubKey.IsEqual(privKey.PubKey()) {
		t.Errorf("RecoverPubKey: recovered the signing key for another hash")
	}

	// The signature from block 200358 is stored verbatim.
	header, err := DecodeBlockHeader(block200358Bytes[:SignedBlockHeaderPayload])
	if err != nil {
		t.Fatalf("DecodeBlockHeader: %v", err)
	}
	var want MinerSignature
	copy(want[:], block200358Bytes[BlockHeaderPayload+chainhash.HashSize:SignedBlockHeaderPayload])
	if !header.MinerSignature().IsEqual(&want) {
		t.Errorf("MinerSignature: got %v, want %v", header.MinerSignature(), want)
	}
}
