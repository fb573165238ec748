// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spreadcoin/spreadd/util/chainhash"
)

const (
	// TxVersion is the current latest supported transaction version.
	TxVersion = 1

	// MaxTxInSequenceNum is the maximum sequence number the sequence field
	// of a transaction input can be.
	MaxTxInSequenceNum uint32 = 0xffffffff

	// MaxPrevOutIndex is the maximum index the index field of a previous
	// outpoint can be.
	MaxPrevOutIndex uint32 = 0xffffffff
)

const (
	// minTxInPayload is the minimum payload size for a transaction input.
	// PreviousOutPoint.Hash + PreviousOutPoint.Index 4 bytes + Varint for
	// SignatureScript length 1 byte + Sequence 4 bytes.
	minTxInPayload = 9 + chainhash.HashSize

	// maxTxInPerMessage is the maximum number of transactions inputs that
	// a transaction which fits into a message could possibly have.
	maxTxInPerMessage = (MaxMessagePayload / minTxInPayload) + 1

	// minTxOutPayload is the minimum payload size for a transaction output.
	// Value 8 bytes + Varint for PkScript length 1 byte.
	minTxOutPayload = 9

	// maxTxOutPerMessage is the maximum number of transactions outputs that
	// a transaction which fits into a message could possibly have.
	maxTxOutPerMessage = (MaxMessagePayload / minTxOutPayload) + 1

	// minTxPayload is the minimum payload size for a transaction. Note
	// that any realistically usable transaction must have at least one
	// input or output, but that is a rule enforced at a higher layer, so
	// it is intentionally not included here.
	// Version 4 bytes + Varint number of transaction inputs 1 byte + Varint
	// number of transaction outputs 1 byte + LockTime 4 bytes + min input
	// payload + min output payload.
	minTxPayload = 10

	// maxScriptSize is the upper bound of a script length prefix.
	maxScriptSize = MaxMessagePayload

	// defaultTxInOutAlloc is the default size used for the backing array
	// for transaction inputs and outputs.
	defaultTxInOutAlloc = 15
)

// OutPoint defines a bitcoin data type that is used to track previous
// transaction outputs.
type OutPoint struct {
	Hash  chainhash.Hash
	Index uint32
}

// NewOutPoint returns a new bitcoin transaction outpoint point with the
// provided hash and index.
func NewOutPoint(hash *chainhash.Hash, index uint32) *OutPoint {
	return &OutPoint{
		Hash:  *hash,
		Index: index,
	}
}

// IsNull returns whether the outpoint is the one referenced by coinbase
// inputs.
func (o OutPoint) IsNull() bool {
	return o.Index == MaxPrevOutIndex && o.Hash == chainhash.ZeroHash
}

// String returns the OutPoint in the human-readable form "hash:index".
func (o OutPoint) String() string {
	// Allocate enough for hash string, colon, and 10 digits. Although
	// at the time of writing, the number of digits can be no greater than
	// the length of the decimal representation of maxTxOutPerMessage, the
	// maximum message payload may increase in the future and this
	// optimization may go unnoticed, so allocate space for 10 decimal
	// digits, which will fit any uint32.
	buf := make([]byte, 2*chainhash.HashSize+1, 2*chainhash.HashSize+1+10)
	copy(buf, o.Hash.String())
	buf[2*chainhash.HashSize] = ':'
	buf = strconv.AppendUint(buf, uint64(o.Index), 10)
	return string(buf)
}

// TxIn defines a bitcoin transaction input.
type TxIn struct {
	ref              cacheRef
	previousOutPoint OutPoint
	signatureScript  []byte
	sequence         uint32
}

// NewTxIn returns a new bitcoin transaction input with the provided
// previous outpoint point and signature script with a default sequence of
// MaxTxInSequenceNum.
func NewTxIn(prevOut *OutPoint, signatureScript []byte) *TxIn {
	return &TxIn{
		ref:              newCacheRef(),
		previousOutPoint: *prevOut,
		signatureScript:  signatureScript,
		sequence:         MaxTxInSequenceNum,
	}
}

func (t *TxIn) ensureRef() {
	if t.ref.arena == nil {
		t.ref = newCacheRef()
	}
}

// PreviousOutPoint returns the outpoint spent by this input.
func (t *TxIn) PreviousOutPoint() OutPoint {
	return t.previousOutPoint
}

// SetPreviousOutPoint sets the outpoint spent by this input.
func (t *TxIn) SetPreviousOutPoint(prevOut OutPoint) {
	if t.previousOutPoint == prevOut {
		return
	}
	t.ensureRef()
	t.previousOutPoint = prevOut
	t.ref.invalidate()
}

// SignatureScript returns the unlocking script. The returned slice must not
// be modified.
func (t *TxIn) SignatureScript() []byte {
	return t.signatureScript
}

// SetSignatureScript sets the unlocking script.
func (t *TxIn) SetSignatureScript(script []byte) {
	if bytes.Equal(t.signatureScript, script) {
		return
	}
	t.ensureRef()
	t.signatureScript = script
	t.ref.invalidate()
}

// Sequence returns the sequence number of the input.
func (t *TxIn) Sequence() uint32 {
	return t.sequence
}

// SetSequence sets the sequence number of the input.
func (t *TxIn) SetSequence(sequence uint32) {
	if t.sequence == sequence {
		return
	}
	t.ensureRef()
	t.sequence = sequence
	t.ref.invalidate()
}

// IsCached returns whether the input's stored bytes match its fields.
func (t *TxIn) IsCached() bool {
	t.ensureRef()
	return t.ref.isCached()
}

// IsParsed returns whether the input's fields are materialized.
func (t *TxIn) IsParsed() bool {
	t.ensureRef()
	return t.ref.isParsed()
}

// SerializeSize returns the number of bytes it would take to serialize the
// the transaction input.
func (t *TxIn) SerializeSize() int {
	// Outpoint Hash 32 bytes + Outpoint Index 4 bytes + Sequence 4 bytes +
	// serialized varint size for the length of SignatureScript +
	// SignatureScript bytes.
	return 40 + VarIntSerializeSize(uint64(len(t.signatureScript))) +
		len(t.signatureScript)
}

func (t *TxIn) encode(w io.Writer) error {
	err := writeElements(w, &t.previousOutPoint.Hash, t.previousOutPoint.Index)
	if err != nil {
		return err
	}
	err = WriteVarBytes(w, t.signatureScript)
	if err != nil {
		return err
	}
	return WriteElement(w, t.sequence)
}

func (t *TxIn) bytes() ([]byte, error) {
	t.ensureRef()
	return t.ref.bytes(t.SerializeSize(), t.encode)
}

func (t *TxIn) decode(br *byteReader, arena *cacheArena, parent int) error {
	start := br.offset()
	err := readElements(br, &t.previousOutPoint.Hash, &t.previousOutPoint.Index)
	if err != nil {
		return err
	}
	t.signatureScript, err = readVarBytesRef(br, maxScriptSize,
		"transaction input signature script")
	if err != nil {
		return err
	}
	err = ReadElement(br, &t.sequence)
	if err != nil {
		return err
	}
	t.ref = cacheRef{arena: arena, handle: arena.alloc(stateParsed, br.since(start), parent)}
	return nil
}

func (t *TxIn) rehome(arena *cacheArena, parent int) {
	t.ensureRef()
	t.ref = t.ref.move(arena, parent)
}

// TxOut defines a bitcoin transaction output.
type TxOut struct {
	ref      cacheRef
	value    int64
	pkScript []byte
}

// NewTxOut returns a new bitcoin transaction output with the provided
// transaction value and public key script.
func NewTxOut(value int64, pkScript []byte) *TxOut {
	return &TxOut{
		ref:      newCacheRef(),
		value:    value,
		pkScript: pkScript,
	}
}

func (t *TxOut) ensureRef() {
	if t.ref.arena == nil {
		t.ref = newCacheRef()
	}
}

// Value returns the amount of the output in the smallest unit.
func (t *TxOut) Value() int64 {
	return t.value
}

// SetValue sets the amount of the output.
func (t *TxOut) SetValue(value int64) {
	if t.value == value {
		return
	}
	t.ensureRef()
	t.value = value
	t.ref.invalidate()
}

// PkScript returns the locking script. The returned slice must not be
// modified.
func (t *TxOut) PkScript() []byte {
	return t.pkScript
}

// SetPkScript sets the locking script.
func (t *TxOut) SetPkScript(script []byte) {
	if bytes.Equal(t.pkScript, script) {
		return
	}
	t.ensureRef()
	t.pkScript = script
	t.ref.invalidate()
}

// IsCached returns whether the output's stored bytes match its fields.
func (t *TxOut) IsCached() bool {
	t.ensureRef()
	return t.ref.isCached()
}

// IsParsed returns whether the output's fields are materialized.
func (t *TxOut) IsParsed() bool {
	t.ensureRef()
	return t.ref.isParsed()
}

// SerializeSize returns the number of bytes it would take to serialize the
// the transaction output.
func (t *TxOut) SerializeSize() int {
	// Value 8 bytes + serialized varint size for the length of PkScript +
	// PkScript bytes.
	return 8 + VarIntSerializeSize(uint64(len(t.pkScript))) + len(t.pkScript)
}

func (t *TxOut) encode(w io.Writer) error {
	err := WriteElement(w, t.value)
	if err != nil {
		return err
	}
	return WriteVarBytes(w, t.pkScript)
}

func (t *TxOut) bytes() ([]byte, error) {
	t.ensureRef()
	return t.ref.bytes(t.SerializeSize(), t.encode)
}

func (t *TxOut) decode(br *byteReader, arena *cacheArena, parent int) error {
	start := br.offset()
	err := ReadElement(br, &t.value)
	if err != nil {
		return err
	}
	t.pkScript, err = readVarBytesRef(br, maxScriptSize,
		"transaction output public key script")
	if err != nil {
		return err
	}
	t.ref = cacheRef{arena: arena, handle: arena.alloc(stateParsed, br.since(start), parent)}
	return nil
}

func (t *TxOut) rehome(arena *cacheArena, parent int) {
	t.ensureRef()
	t.ref = t.ref.move(arena, parent)
}

// MsgTx implements the Message interface and represents a bitcoin tx message.
// It is used to deliver transaction information in response to a getdata
// message for a given transaction.
//
// A transaction decoded by a lazy codec keeps only its bytes until one of its
// fields is read. Fields are changed only through setters so the cached bytes
// of the transaction and of its enclosing block stay coherent.
type MsgTx struct {
	ref      cacheRef
	version  int32
	txIn     []*TxIn
	txOut    []*TxOut
	lockTime uint32
}

// NewMsgTx returns a new bitcoin tx message that conforms to the Message
// interface. The return instance has a default version of TxVersion and there
// are no transaction inputs or outputs. Also, the lock time is set to zero
// to indicate the transaction is valid immediately as opposed to some time in
// future.
func NewMsgTx(version int32) *MsgTx {
	return &MsgTx{
		ref:     newCacheRef(),
		version: version,
		txIn:    make([]*TxIn, 0, defaultTxInOutAlloc),
		txOut:   make([]*TxOut, 0, defaultTxInOutAlloc),
	}
}

// ensureRef gives a transaction built without NewMsgTx its own arena.
func (msg *MsgTx) ensureRef() {
	if msg.ref.arena == nil {
		msg.ref = newCacheRef()
	}
}

// materialize parses the transaction from its stored bytes the first time one
// of its fields is needed.
func (msg *MsgTx) materialize() {
	msg.ensureRef()
	if msg.ref.state() != stateUnparsed {
		return
	}
	br := newByteReader(msg.ref.entry().raw)
	err := msg.decodeFields(br)
	if err != nil {
		// The bytes were scanned when the enclosing message was
		// decoded, so they are known to be well formed.
		panic(errors.Wrap(err, "decoding previously scanned transaction"))
	}
	msg.ref.markParsed()
}

// Version returns the transaction version.
func (msg *MsgTx) Version() int32 {
	msg.materialize()
	return msg.version
}

// SetVersion sets the transaction version.
func (msg *MsgTx) SetVersion(version int32) {
	msg.materialize()
	if msg.version == version {
		return
	}
	msg.version = version
	msg.ref.invalidate()
}

// LockTime returns the transaction lock time.
func (msg *MsgTx) LockTime() uint32 {
	msg.materialize()
	return msg.lockTime
}

// SetLockTime sets the transaction lock time.
func (msg *MsgTx) SetLockTime(lockTime uint32) {
	msg.materialize()
	if msg.lockTime == lockTime {
		return
	}
	msg.lockTime = lockTime
	msg.ref.invalidate()
}

// TxIn returns the transaction inputs. The slice must not be modified; use
// AddTxIn and the input setters instead.
func (msg *MsgTx) TxIn() []*TxIn {
	msg.materialize()
	return msg.txIn
}

// TxOut returns the transaction outputs. The slice must not be modified; use
// AddTxOut and the output setters instead.
func (msg *MsgTx) TxOut() []*TxOut {
	msg.materialize()
	return msg.txOut
}

// AddTxIn adds a transaction input to the message.
func (msg *MsgTx) AddTxIn(ti *TxIn) {
	msg.materialize()
	ti.rehome(msg.ref.arena, msg.ref.handle)
	msg.txIn = append(msg.txIn, ti)
	msg.ref.invalidate()
}

// AddTxOut adds a transaction output to the message.
func (msg *MsgTx) AddTxOut(to *TxOut) {
	msg.materialize()
	to.rehome(msg.ref.arena, msg.ref.handle)
	msg.txOut = append(msg.txOut, to)
	msg.ref.invalidate()
}

// IsCoinBase determines whether or not a transaction is a coinbase. A
// coinbase is a special transaction created by miners that has no inputs.
// This is represented in the block chain by a transaction with a single input
// that has a previous output transaction index set to the maximum value along
// with a zero hash.
func (msg *MsgTx) IsCoinBase() bool {
	msg.materialize()
	// A coin base must only have one transaction input.
	if len(msg.txIn) != 1 {
		return false
	}

	return msg.txIn[0].previousOutPoint.IsNull()
}

// IsCached returns whether the transaction's stored bytes match its fields.
func (msg *MsgTx) IsCached() bool {
	if msg.ref.arena == nil {
		return false
	}
	return msg.ref.isCached()
}

// IsParsed returns whether the transaction's fields are materialized.
func (msg *MsgTx) IsParsed() bool {
	if msg.ref.arena == nil {
		return true
	}
	return msg.ref.isParsed()
}

// TxHash generates the Hash for the transaction.
func (msg *MsgTx) TxHash() *chainhash.Hash {
	msg.ensureRef()
	// Encoding into a bytes.Buffer cannot fail, so the error is ignored.
	hash, _ := msg.ref.doubleHash(msg.SerializeSize(), msg.encode)
	return hash
}

// Copy creates a deep copy of a transaction so that the original does not get
// modified when the copy is manipulated. The copy keeps the parse state of
// the original.
func (msg *MsgTx) Copy() *MsgTx {
	msg.ensureRef()
	lazy := msg.ref.state() == stateUnparsed
	raw, _ := msg.bytes()
	newTx := &MsgTx{}
	err := newTx.decode(newByteReader(raw), lazy, newCacheArena(), noParent)
	if err != nil {
		panic(errors.Wrap(err, "copying a serialized transaction"))
	}
	return newTx
}

// SerializeSize returns the number of bytes it would take to serialize
// the transaction.
func (msg *MsgTx) SerializeSize() int {
	if msg.ref.arena != nil && msg.ref.isCached() {
		return len(msg.ref.entry().raw)
	}
	msg.materialize()

	// Version 4 bytes + LockTime 4 bytes + Serialized varint size for the
	// number of transaction inputs and outputs.
	n := 8 + VarIntSerializeSize(uint64(len(msg.txIn))) +
		VarIntSerializeSize(uint64(len(msg.txOut)))

	for _, txIn := range msg.txIn {
		n += txIn.SerializeSize()
	}

	for _, txOut := range msg.txOut {
		n += txOut.SerializeSize()
	}

	return n
}

// encode writes the fields of a parsed transaction. Inputs and outputs write
// their cached bytes, re-encoding only those that changed.
func (msg *MsgTx) encode(w io.Writer) error {
	err := WriteElement(w, msg.version)
	if err != nil {
		return err
	}

	err = WriteVarInt(w, uint64(len(msg.txIn)))
	if err != nil {
		return err
	}
	for _, ti := range msg.txIn {
		raw, err := ti.bytes()
		if err != nil {
			return err
		}
		_, err = w.Write(raw)
		if err != nil {
			return errors.WithStack(err)
		}
	}

	err = WriteVarInt(w, uint64(len(msg.txOut)))
	if err != nil {
		return err
	}
	for _, to := range msg.txOut {
		raw, err := to.bytes()
		if err != nil {
			return err
		}
		_, err = w.Write(raw)
		if err != nil {
			return errors.WithStack(err)
		}
	}

	return WriteElement(w, msg.lockTime)
}

func (msg *MsgTx) bytes() ([]byte, error) {
	msg.ensureRef()
	if msg.ref.isCached() {
		return msg.ref.entry().raw, nil
	}
	return msg.ref.bytes(msg.SerializeSize(), msg.encode)
}

// Bytes returns the serialized transaction. The returned slice must not be
// modified.
func (msg *MsgTx) Bytes() ([]byte, error) {
	return msg.bytes()
}

// BtcEncode encodes the receiver to w using the bitcoin protocol encoding.
// This is part of the Message interface implementation.
func (msg *MsgTx) BtcEncode(w io.Writer, c *Codec) error {
	raw, err := msg.bytes()
	if err != nil {
		return err
	}
	_, err = w.Write(raw)
	return errors.WithStack(err)
}

// Serialize encodes the transaction to w using a format that suitable for
// long-term storage such as a database while respecting the Version field in
// the transaction.
func (msg *MsgTx) Serialize(w io.Writer) error {
	return msg.BtcEncode(w, nil)
}

// BtcDecode decodes r using the bitcoin protocol encoding into the receiver.
// This is part of the Message interface implementation.
func (msg *MsgTx) BtcDecode(r io.Reader, c *Codec) error {
	c = codecOrDefault(c)
	br, err := asByteReader(r, scanTx)
	if err != nil {
		return malformedError("MsgTx.BtcDecode", err)
	}
	err = msg.decode(br, c.lazy, newCacheArena(), noParent)
	if err != nil {
		return malformedError("MsgTx.BtcDecode", err)
	}
	return nil
}

// Deserialize decodes a transaction from r into the receiver, parsing all of
// its fields.
func (msg *MsgTx) Deserialize(r io.Reader) error {
	return msg.BtcDecode(r, nil)
}

// decode reads a transaction from br and registers it in arena under parent.
// A lazy decode only validates the structure and keeps the byte range.
func (msg *MsgTx) decode(br *byteReader, lazy bool, arena *cacheArena, parent int) error {
	start := br.offset()
	if lazy {
		err := scanTx(br)
		if err != nil {
			return err
		}
		msg.ref = cacheRef{arena: arena, handle: arena.alloc(stateUnparsed, br.since(start), parent)}
		return nil
	}

	msg.ref = cacheRef{arena: arena, handle: arena.alloc(stateParsed, nil, parent)}
	err := msg.decodeFields(br)
	if err != nil {
		return err
	}
	msg.ref.entry().raw = br.since(start)
	return nil
}

// decodeFields materializes the transaction fields from br. Inputs and
// outputs are registered as children of the transaction's arena entry.
func (msg *MsgTx) decodeFields(br *byteReader) error {
	err := ReadElement(br, &msg.version)
	if err != nil {
		return err
	}

	count, err := ReadVarInt(br)
	if err != nil {
		return err
	}

	// Prevent more input transactions than could possibly fit into a
	// message. It would be possible to cause memory exhaustion and panics
	// without a sane upper bound on this count.
	if count > uint64(maxTxInPerMessage) {
		str := fmt.Sprintf("too many input transactions to fit into "+
			"max message size [count %d, max %d]", count,
			maxTxInPerMessage)
		return messageError(ErrMalformedEncoding, "MsgTx.decode", str)
	}

	msg.txIn = make([]*TxIn, count)
	for i := uint64(0); i < count; i++ {
		ti := &TxIn{}
		err = ti.decode(br, msg.ref.arena, msg.ref.handle)
		if err != nil {
			return err
		}
		msg.txIn[i] = ti
	}

	count, err = ReadVarInt(br)
	if err != nil {
		return err
	}

	// Prevent more output transactions than could possibly fit into a
	// message. It would be possible to cause memory exhaustion and panics
	// without a sane upper bound on this count.
	if count > uint64(maxTxOutPerMessage) {
		str := fmt.Sprintf("too many output transactions to fit into "+
			"max message size [count %d, max %d]", count,
			maxTxOutPerMessage)
		return messageError(ErrMalformedEncoding, "MsgTx.decode", str)
	}

	msg.txOut = make([]*TxOut, count)
	for i := uint64(0); i < count; i++ {
		to := &TxOut{}
		err = to.decode(br, msg.ref.arena, msg.ref.handle)
		if err != nil {
			return err
		}
		msg.txOut[i] = to
	}

	return ReadElement(br, &msg.lockTime)
}

// rehome moves the transaction and its materialized inputs and outputs into
// arena under parent.
func (msg *MsgTx) rehome(arena *cacheArena, parent int) {
	msg.ensureRef()
	msg.ref = msg.ref.move(arena, parent)
	for _, ti := range msg.txIn {
		ti.rehome(arena, msg.ref.handle)
	}
	for _, to := range msg.txOut {
		to.rehome(arena, msg.ref.handle)
	}
}

// Command returns the protocol command string for the message. This is part
// of the Message interface implementation.
func (msg *MsgTx) Command() string {
	return CmdTx
}

// scanTx advances r past one serialized transaction, checking every length
// prefix without materializing anything.
func scanTx(r io.Reader) error {
	// Version.
	err := skipBytes(r, 4)
	if err != nil {
		return err
	}

	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > uint64(maxTxInPerMessage) {
		str := fmt.Sprintf("too many input transactions to fit into "+
			"max message size [count %d, max %d]", count,
			maxTxInPerMessage)
		return messageError(ErrMalformedEncoding, "scanTx", str)
	}
	for i := uint64(0); i < count; i++ {
		// Previous outpoint.
		err = skipBytes(r, chainhash.HashSize+4)
		if err != nil {
			return err
		}
		err = skipVarBytes(r, maxScriptSize, "transaction input signature script")
		if err != nil {
			return err
		}
		// Sequence.
		err = skipBytes(r, 4)
		if err != nil {
			return err
		}
	}

	count, err = ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > uint64(maxTxOutPerMessage) {
		str := fmt.Sprintf("too many output transactions to fit into "+
			"max message size [count %d, max %d]", count,
			maxTxOutPerMessage)
		return messageError(ErrMalformedEncoding, "scanTx", str)
	}
	for i := uint64(0); i < count; i++ {
		// Value.
		err = skipBytes(r, 8)
		if err != nil {
			return err
		}
		err = skipVarBytes(r, maxScriptSize, "transaction output public key script")
		if err != nil {
			return err
		}
	}

	// Lock time.
	return skipBytes(r, 4)
}

// readVarBytesRef reads a variable length byte array from br and returns a
// sub-slice of the underlying buffer instead of a copy.
func readVarBytesRef(br *byteReader, maxAllowed uint32, fieldName string) ([]byte, error) {
	count, err := ReadVarInt(br)
	if err != nil {
		return nil, err
	}
	if count > uint64(maxAllowed) {
		str := fmt.Sprintf("%s is larger than the max allowed size "+
			"[count %d, max %d]", fieldName, count, maxAllowed)
		return nil, messageError(ErrMalformedEncoding, "readVarBytes", str)
	}
	return br.next(int(count))
}
