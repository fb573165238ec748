// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/spreadcoin/spreadd/util/chainhash"
)

// txPayload is the payload of txMessage.
var txPayload = txMessage[MessageHeaderSize:]

func decodeTx(t *testing.T, lazy bool) *MsgTx {
	msg, _, err := mainNetCodec.WithLazy(lazy).DeserializeOne(txMessage)
	if err != nil {
		t.Fatalf("DeserializeOne: %v", err)
	}
	tx := msg.(*MsgTx)
	if tx.IsParsed() == lazy || !tx.IsCached() {
		t.Fatalf("decoded tx (lazy %v): parsed %v cached %v", lazy,
			tx.IsParsed(), tx.IsCached())
	}
	return tx
}

// TestTx tests the MsgTx API.
func TestTx(t *testing.T) {
	// Ensure the command is expected value.
	wantCmd := "tx"
	msg := NewMsgTx(1)
	if cmd := msg.Command(); cmd != wantCmd {
		t.Errorf("NewMsgTx: wrong command - got %v want %v",
			cmd, wantCmd)
	}

	// Ensure we get the same transaction output point data back out.
	prevHash := hashFromStr("3ba27aa200b1cecaad478d2b00432346c3f1f3986da1afd33e506d5fd7a5b7b5")
	prevOutIndex := uint32(1)
	prevOut := NewOutPoint(prevHash, prevOutIndex)
	if !prevOut.Hash.IsEqual(prevHash) {
		t.Errorf("NewOutPoint: wrong hash - got %v, want %v",
			spew.Sprint(&prevOut.Hash), spew.Sprint(prevHash))
	}
	if prevOut.Index != prevOutIndex {
		t.Errorf("NewOutPoint: wrong index - got %v, want %v",
			prevOut.Index, prevOutIndex)
	}
	prevOutStr := fmt.Sprintf("%s:%d", prevHash.String(), prevOutIndex)
	if s := prevOut.String(); s != prevOutStr {
		t.Errorf("OutPoint.String: unexpected result - got %v, "+
			"want %v", s, prevOutStr)
	}

	// Ensure we get the same transaction input back out.
	sigScript := []byte{0x04, 0x31, 0xdc, 0x00, 0x1b, 0x01, 0x62}
	txIn := NewTxIn(prevOut, sigScript)
	if txIn.PreviousOutPoint() != *prevOut {
		t.Errorf("NewTxIn: wrong prev outpoint - got %v, want %v",
			spew.Sprint(txIn.PreviousOutPoint()), spew.Sprint(prevOut))
	}
	if !bytes.Equal(txIn.SignatureScript(), sigScript) {
		t.Errorf("NewTxIn: wrong signature script - got %v, want %v",
			spew.Sdump(txIn.SignatureScript()), spew.Sdump(sigScript))
	}

	// Ensure we get the same transaction output back out.
	txValue := int64(5000000000)
	pkScript := []byte{0x76, 0xa9, 0x14, 0x00, 0x88, 0xac}
	txOut := NewTxOut(txValue, pkScript)
	if txOut.Value() != txValue {
		t.Errorf("NewTxOut: wrong pk script - got %v, want %v",
			txOut.Value(), txValue)
	}
	if !bytes.Equal(txOut.PkScript(), pkScript) {
		t.Errorf("NewTxOut: wrong pk script - got %v, want %v",
			spew.Sdump(txOut.PkScript()), spew.Sdump(pkScript))
	}

	// Ensure transaction inputs and outputs are added properly.
	msg.AddTxIn(txIn)
	msg.AddTxOut(txOut)
	if len(msg.TxIn()) != 1 || msg.TxIn()[0] != txIn {
		t.Errorf("AddTxIn: wrong transaction inputs - got %v",
			spew.Sdump(msg.TxIn()))
	}
	if len(msg.TxOut()) != 1 || msg.TxOut()[0] != txOut {
		t.Errorf("AddTxOut: wrong transaction outputs - got %v",
			spew.Sdump(msg.TxOut()))
	}
	if msg.IsCoinBase() {
		t.Errorf("IsCoinBase: spending transaction reported as coinbase")
	}

	// Round trip through the wire encoding.
	var buf bytes.Buffer
	err := msg.Serialize(&buf)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if buf.Len() != msg.SerializeSize() {
		t.Errorf("SerializeSize: got %d, wrote %d", msg.SerializeSize(), buf.Len())
	}
	var decoded MsgTx
	err = decoded.Deserialize(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if !decoded.TxHash().IsEqual(msg.TxHash()) {
		t.Errorf("Deserialize: hash mismatch - got %v, want %v",
			decoded.TxHash(), msg.TxHash())
	}
	if !decoded.IsCached() || !decoded.IsParsed() {
		t.Errorf("Deserialize: parsed %v cached %v", decoded.IsParsed(),
			decoded.IsCached())
	}
}

// TestTxCoinBase tests coinbase detection.
func TestTxCoinBase(t *testing.T) {
	coinbase := NewMsgTx(TxVersion)
	coinbase.AddTxIn(NewTxIn(NewOutPoint(&chainhash.ZeroHash, MaxPrevOutIndex),
		[]byte{0x01, 0x04}))
	coinbase.AddTxOut(NewTxOut(50, nil))
	if !coinbase.IsCoinBase() {
		t.Errorf("IsCoinBase: coinbase not detected")
	}

	coinbase.AddTxIn(NewTxIn(NewOutPoint(&chainhash.ZeroHash, MaxPrevOutIndex), nil))
	if coinbase.IsCoinBase() {
		t.Errorf("IsCoinBase: two inputs reported as coinbase")
	}

	if tx := decodeTx(t, true); tx.IsCoinBase() {
		t.Errorf("IsCoinBase: spending transaction reported as coinbase")
	}
}

// TestTxCachedParsing checks how changes propagate through the cache flags of
// a decoded transaction and its inputs.
func TestTxCachedParsing(t *testing.T) {
	for _, lazy := range []bool{true, false} {
		// Changing a transaction field uncaches the transaction but not
		// its children.
		tx := decodeTx(t, lazy)
		tx.SetLockTime(1)
		if tx.IsCached() {
			t.Errorf("SetLockTime (lazy %v): transaction still cached", lazy)
		}
		if !tx.TxIn()[0].IsCached() {
			t.Errorf("SetLockTime (lazy %v): input uncached", lazy)
		}
		raw, err := tx.Bytes()
		if err != nil {
			t.Fatalf("Bytes: %v", err)
		}
		if bytes.Equal(raw, txPayload) {
			t.Errorf("SetLockTime (lazy %v): serialization unchanged", lazy)
		}
		if !tx.IsCached() {
			t.Errorf("Bytes (lazy %v): serialization not cached again", lazy)
		}

		// Changing a child field uncaches the child and the parent, but
		// no sibling.
		tx = decodeTx(t, lazy)
		tx.TxIn()[0].SetSequence(1)
		if tx.IsCached() {
			t.Errorf("SetSequence (lazy %v): transaction still cached", lazy)
		}
		if tx.TxIn()[0].IsCached() {
			t.Errorf("SetSequence (lazy %v): input still cached", lazy)
		}
		for i, txOut := range tx.TxOut() {
			if !txOut.IsCached() {
				t.Errorf("SetSequence (lazy %v): output %d uncached", lazy, i)
			}
		}
		raw, err = tx.Bytes()
		if err != nil {
			t.Fatalf("Bytes: %v", err)
		}
		if bytes.Equal(raw, txPayload) {
			t.Errorf("SetSequence (lazy %v): serialization unchanged", lazy)
		}

		// Decoding and encoding again gives back the same bytes.
		tx = decodeTx(t, lazy)
		raw, err = tx.Bytes()
		if err != nil {
			t.Fatalf("Bytes: %v", err)
		}
		if !bytes.Equal(raw, txPayload) {
			t.Errorf("Bytes (lazy %v): got %s want %s", lazy,
				spew.Sdump(raw), spew.Sdump(txPayload))
		}

		// Setting a field to its current value changes nothing.
		tx = decodeTx(t, lazy)
		txIn := tx.TxIn()[0]
		txIn.SetSequence(txIn.Sequence())
		txIn.SetSignatureScript(append([]byte{}, txIn.SignatureScript()...))
		tx.TxOut()[1].SetValue(tx.TxOut()[1].Value())
		tx.SetVersion(tx.Version())
		if !tx.IsCached() || !txIn.IsCached() {
			t.Errorf("same value writes (lazy %v): tx cached %v input "+
				"cached %v", lazy, tx.IsCached(), txIn.IsCached())
		}
		raw, err = tx.Bytes()
		if err != nil {
			t.Fatalf("Bytes: %v", err)
		}
		if !bytes.Equal(raw, txPayload) {
			t.Errorf("same value writes (lazy %v): got %s want %s", lazy,
				spew.Sdump(raw), spew.Sdump(txPayload))
		}
	}
}

// TestTxHashInvalidation ensures the memoized hash follows changes.
func TestTxHashInvalidation(t *testing.T) {
	tx := decodeTx(t, false)
	before := tx.TxHash()
	tx.TxOut()[0].SetValue(1)
	after := tx.TxHash()
	if before.IsEqual(after) {
		t.Fatalf("TxHash: hash unchanged after output change")
	}
	tx.TxOut()[0].SetValue(630000000)
	if !tx.TxHash().IsEqual(before) {
		t.Errorf("TxHash: got %v after restoring the output, want %v",
			tx.TxHash(), before)
	}
}

// TestTxCopy ensures a copy is independent of the original.
func TestTxCopy(t *testing.T) {
	for _, lazy := range []bool{true, false} {
		tx := decodeTx(t, lazy)
		txCopy := tx.Copy()
		if txCopy.IsParsed() != tx.IsParsed() {
			t.Errorf("Copy (lazy %v): parse state not kept", lazy)
		}
		if !txCopy.TxHash().IsEqual(tx.TxHash()) {
			t.Errorf("Copy (lazy %v): hash mismatch", lazy)
		}
		txCopy.SetLockTime(5)
		if !tx.IsCached() || tx.LockTime() != 0 {
			t.Errorf("Copy (lazy %v): original changed through the copy", lazy)
		}
	}
}

// TestTxRehome moves inputs between transactions and checks cache state
// travels with them.
func TestTxRehome(t *testing.T) {
	source := decodeTx(t, false)
	txIn := source.TxIn()[0]

	tx := NewMsgTx(TxVersion)
	raw, _ := tx.Bytes()
	if !tx.IsCached() {
		t.Fatalf("Bytes: new transaction not cached after serializing")
	}
	tx.AddTxIn(txIn)
	if tx.IsCached() {
		t.Errorf("AddTxIn: transaction still cached")
	}
	if !txIn.IsCached() {
		t.Errorf("AddTxIn: input lost its cached bytes")
	}

	// The moved input now invalidates its new parent only.
	tx.Bytes()
	source.Bytes()
	txIn.SetSequence(7)
	if tx.IsCached() {
		t.Errorf("SetSequence: new parent still cached")
	}
	if !source.IsCached() {
		t.Errorf("SetSequence: old parent uncached")
	}
	if len(raw) != 10 {
		t.Errorf("empty transaction: got %d bytes, want 10", len(raw))
	}
}

// TestTxWireErrors performs negative tests against transaction decoding.
func TestTxWireErrors(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
	}{
		{"truncated version", txPayload[:2]},
		{"truncated input", txPayload[:20]},
		{"truncated script", txPayload[:50]},
		{"missing lock time", txPayload[:len(txPayload)-2]},
		{"huge input count", []byte{0x01, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff,
			0xff, 0xff, 0xff, 0xff, 0xff, 0xff}},
	}

	for _, test := range tests {
		for _, lazy := range []bool{true, false} {
			var tx MsgTx
			err := tx.BtcDecode(bytes.NewReader(test.buf), mainNetCodec.WithLazy(lazy))
			if !IsErrorCode(err, ErrMalformedEncoding) {
				t.Errorf("%s (lazy %v): got error %v, want "+
					"ErrMalformedEncoding", test.name, lazy, err)
			}
		}
	}
}
