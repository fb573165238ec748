// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spreadcoin/spreadd/util/chainhash"
)

// defaultTransactionAlloc is the default size used for the backing array
// for transactions. The transaction array will dynamically grow as needed, but
// this figure is intended to provide enough space for the number of
// transactions in the vast majority of blocks without needing to grow the
// backing array multiple times.
const defaultTransactionAlloc = 2048

// maxTxPerBlock is the maximum number of transactions that could
// possibly fit into a block.
const maxTxPerBlock = (MaxMessagePayload / minTxPayload) + 1

// MsgBlock implements the Message interface and represents a bitcoin
// block message. It is used to deliver block and transaction information in
// response to a getdata message for a given block hash.
//
// The block owns its header and transactions. All of them share one cache
// arena, so a change anywhere below the block invalidates the block's cached
// bytes while the bytes of unrelated transactions stay cached.
type MsgBlock struct {
	ref          cacheRef
	header       *BlockHeader
	transactions []*MsgTx
}

// NewMsgBlock returns a new bitcoin block message that conforms to the
// Message interface. The header becomes part of the block. See MsgBlock for
// details.
func NewMsgBlock(header *BlockHeader) *MsgBlock {
	msg := &MsgBlock{
		ref:          newCacheRef(),
		header:       header,
		transactions: make([]*MsgTx, 0, defaultTransactionAlloc),
	}
	header.rehome(msg.ref.arena, msg.ref.handle)
	return msg
}

func (msg *MsgBlock) ensureRef() {
	if msg.ref.arena != nil {
		return
	}
	msg.ref = newCacheRef()
	if msg.header == nil {
		msg.header = &BlockHeader{}
	}
	msg.header.rehome(msg.ref.arena, msg.ref.handle)
}

// Header returns the block header. Changes made through its setters
// invalidate the block's cached bytes.
func (msg *MsgBlock) Header() *BlockHeader {
	msg.ensureRef()
	return msg.header
}

// Transactions returns the block's transactions. The slice must not be
// modified; use AddTransaction and ClearTransactions instead.
func (msg *MsgBlock) Transactions() []*MsgTx {
	msg.ensureRef()
	msg.ref.markParsed()
	return msg.transactions
}

// AddTransaction adds a transaction to the message. The transaction joins the
// block's arena keeping its parse and cache state.
func (msg *MsgBlock) AddTransaction(tx *MsgTx) {
	msg.ensureRef()
	msg.ref.markParsed()
	tx.rehome(msg.ref.arena, msg.ref.handle)
	msg.transactions = append(msg.transactions, tx)
	msg.ref.invalidate()
}

// ClearTransactions removes all transactions from the message. The removed
// transactions are detached from the block.
func (msg *MsgBlock) ClearTransactions() {
	msg.ensureRef()
	msg.ref.markParsed()
	if len(msg.transactions) == 0 {
		return
	}
	for _, tx := range msg.transactions {
		tx.rehome(newCacheArena(), noParent)
	}
	msg.transactions = make([]*MsgTx, 0, defaultTransactionAlloc)
	msg.ref.invalidate()
}

// IsHeaderOnly returns whether the block carries no transactions, as is the
// case for blocks built from a headers message.
func (msg *MsgBlock) IsHeaderOnly() bool {
	return len(msg.transactions) == 0
}

// HeaderOnly returns a copy of the block without its transactions.
func (msg *MsgBlock) HeaderOnly() *MsgBlock {
	msg.ensureRef()
	return NewMsgBlock(msg.header.Copy())
}

// IsCached returns whether the block's stored bytes match its contents.
func (msg *MsgBlock) IsCached() bool {
	msg.ensureRef()
	return msg.ref.isCached()
}

// IsParsed returns whether the block's transaction list was accessed.
func (msg *MsgBlock) IsParsed() bool {
	msg.ensureRef()
	return msg.ref.isParsed()
}

// BlockHash computes the block identifier hash for this block.
func (msg *MsgBlock) BlockHash() *chainhash.Hash {
	msg.ensureRef()
	return msg.header.BlockHash()
}

// TxHashes returns a slice of hashes of all of transactions in this block.
func (msg *MsgBlock) TxHashes() []*chainhash.Hash {
	msg.ensureRef()
	hashList := make([]*chainhash.Hash, 0, len(msg.transactions))
	for _, tx := range msg.transactions {
		hashList = append(hashList, tx.TxHash())
	}
	return hashList
}

// SerializeSize returns the number of bytes it would take to serialize the
// block.
func (msg *MsgBlock) SerializeSize() int {
	msg.ensureRef()
	if msg.ref.isCached() {
		return len(msg.ref.entry().raw)
	}

	// Block header bytes + Serialized varint size for the number of
	// transactions.
	n := msg.header.SerializeSize() + VarIntSerializeSize(uint64(len(msg.transactions)))

	for _, tx := range msg.transactions {
		n += tx.SerializeSize()
	}

	return n
}

// encode writes the header and transactions, each from its own cached bytes
// when those are still valid.
func (msg *MsgBlock) encode(w io.Writer) error {
	raw, err := msg.header.Bytes()
	if err != nil {
		return err
	}
	_, err = w.Write(raw)
	if err != nil {
		return errors.WithStack(err)
	}

	err = WriteVarInt(w, uint64(len(msg.transactions)))
	if err != nil {
		return err
	}

	for _, tx := range msg.transactions {
		raw, err := tx.bytes()
		if err != nil {
			return err
		}
		_, err = w.Write(raw)
		if err != nil {
			return errors.WithStack(err)
		}
	}

	return nil
}

// Bytes returns the serialized block. The returned slice must not be
// modified.
func (msg *MsgBlock) Bytes() ([]byte, error) {
	msg.ensureRef()
	return msg.ref.bytes(msg.SerializeSize(), msg.encode)
}

// BtcEncode encodes the receiver to w using the bitcoin protocol encoding.
// This is part of the Message interface implementation.
func (msg *MsgBlock) BtcEncode(w io.Writer, c *Codec) error {
	raw, err := msg.Bytes()
	if err != nil {
		return err
	}
	_, err = w.Write(raw)
	return errors.WithStack(err)
}

// Serialize encodes the block to w.
func (msg *MsgBlock) Serialize(w io.Writer) error {
	return msg.BtcEncode(w, nil)
}

// BtcDecode decodes r using the bitcoin protocol encoding into the receiver.
// This is part of the Message interface implementation.
func (msg *MsgBlock) BtcDecode(r io.Reader, c *Codec) error {
	c = codecOrDefault(c)
	br, err := asByteReader(r, func(r io.Reader) error { return scanBlock(r, c) })
	if err != nil {
		return malformedError("MsgBlock.BtcDecode", err)
	}
	err = msg.decode(br, c)
	if err != nil {
		return malformedError("MsgBlock.BtcDecode", err)
	}
	return nil
}

// Deserialize decodes a block from r into the receiver using the codec's
// network settings.
func (msg *MsgBlock) Deserialize(r io.Reader, c *Codec) error {
	return msg.BtcDecode(r, c)
}

func (msg *MsgBlock) decode(br *byteReader, c *Codec) error {
	start := br.offset()
	arena := newCacheArena()
	msg.ref = cacheRef{arena: arena, handle: arena.alloc(stateParsed, nil, noParent)}

	msg.header = &BlockHeader{}
	err := msg.header.decode(br, c, arena, msg.ref.handle)
	if err != nil {
		return err
	}

	txCount, err := ReadVarInt(br)
	if err != nil {
		return err
	}

	// Prevent more transactions than could possibly fit into a block.
	// It would be possible to cause memory exhaustion and panics without
	// a sane upper bound on this count.
	if txCount > maxTxPerBlock {
		str := fmt.Sprintf("too many transactions to fit into a block "+
			"[count %d, max %d]", txCount, maxTxPerBlock)
		return messageError(ErrMalformedEncoding, "MsgBlock.decode", str)
	}

	msg.transactions = make([]*MsgTx, 0, txCount)
	for i := uint64(0); i < txCount; i++ {
		tx := &MsgTx{}
		err := tx.decode(br, c.lazy, arena, msg.ref.handle)
		if err != nil {
			return err
		}
		msg.transactions = append(msg.transactions, tx)
	}

	entry := msg.ref.entry()
	entry.raw = br.since(start)
	if c.lazy {
		entry.state = stateUnparsed
	}
	return nil
}

// Command returns the protocol command string for the message. This is part
// of the Message interface implementation.
func (msg *MsgBlock) Command() string {
	return CmdBlock
}

// scanBlock advances r past one serialized block.
func scanBlock(r io.Reader, c *Codec) error {
	err := scanHeader(r, c)
	if err != nil {
		return err
	}
	txCount, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if txCount > maxTxPerBlock {
		str := fmt.Sprintf("too many transactions to fit into a block "+
			"[count %d, max %d]", txCount, maxTxPerBlock)
		return messageError(ErrMalformedEncoding, "scanBlock", str)
	}
	for i := uint64(0); i < txCount; i++ {
		err = scanTx(r)
		if err != nil {
			return err
		}
	}
	return nil
}
