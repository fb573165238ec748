// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/spreadcoin/spreadd/util/chainhash"
)

// BlockHeaderPayload is the number of bytes a block header without a miner
// signature occupies.
// Version 4 bytes + Timestamp 8 bytes + Bits 4 bytes + Height 4 bytes +
// Nonce 4 bytes + PrevBlock and MerkleRoot hashes.
const BlockHeaderPayload = 24 + (chainhash.HashSize * 2)

// SignedBlockHeaderPayload is the number of bytes a block header carrying a
// miner signature occupies: the unsigned header followed by the whole block
// hash and the signature.
const SignedBlockHeaderPayload = BlockHeaderPayload + chainhash.HashSize + MinerSignatureSize

// heightOffset is the position of the height field inside a serialized
// header.
const heightOffset = 4 + chainhash.HashSize*2 + 8 + 4

// BlockHeader defines information about a block and is used in the bitcoin
// block (MsgBlock) and headers (MsgHeaders) messages.
//
// Unlike bitcoin, the height is part of the header. Whether a header carries
// a miner signature is decided by its height when decoding.
type BlockHeader struct {
	ref cacheRef

	// Version of the block. This is not the same as the protocol version.
	version int32

	// Hash of the previous block header in the block chain.
	prevBlock chainhash.Hash

	// Merkle tree reference to hash of all transactions for the block.
	merkleRoot chainhash.Hash

	// Time the block was created, in seconds since the unix epoch.
	timestamp uint64

	// Difficulty target for the block.
	bits uint32

	// Height of the block in the chain.
	height int32

	// Nonce used to generate the block.
	nonce uint32

	signed         bool
	wholeBlockHash chainhash.Hash
	minerSignature MinerSignature
}

// NewBlockHeader returns a new BlockHeader using the provided version, previous
// block hash, merkle root hash, timestamp, difficulty bits, height and nonce
// used to generate the block with defaults for the remaining fields.
func NewBlockHeader(version int32, prevHash, merkleRootHash *chainhash.Hash,
	timestamp time.Time, bits uint32, height int32, nonce uint32) *BlockHeader {

	return &BlockHeader{
		ref:        newCacheRef(),
		version:    version,
		prevBlock:  *prevHash,
		merkleRoot: *merkleRootHash,
		timestamp:  uint64(timestamp.Unix()),
		bits:       bits,
		height:     height,
		nonce:      nonce,
	}
}

func (h *BlockHeader) ensureRef() {
	if h.ref.arena == nil {
		h.ref = newCacheRef()
	}
}

func (h *BlockHeader) changed() {
	h.ensureRef()
	h.ref.invalidate()
}

// Version returns the block version.
func (h *BlockHeader) Version() int32 {
	return h.version
}

// SetVersion sets the block version.
func (h *BlockHeader) SetVersion(version int32) {
	if h.version == version {
		return
	}
	h.version = version
	h.changed()
}

// PrevBlock returns the hash of the previous block.
func (h *BlockHeader) PrevBlock() *chainhash.Hash {
	prevBlock := h.prevBlock
	return &prevBlock
}

// SetPrevBlock sets the hash of the previous block.
func (h *BlockHeader) SetPrevBlock(hash *chainhash.Hash) {
	if h.prevBlock == *hash {
		return
	}
	h.prevBlock = *hash
	h.changed()
}

// MerkleRoot returns the merkle root of the block's transactions.
func (h *BlockHeader) MerkleRoot() *chainhash.Hash {
	merkleRoot := h.merkleRoot
	return &merkleRoot
}

// SetMerkleRoot sets the merkle root.
func (h *BlockHeader) SetMerkleRoot(hash *chainhash.Hash) {
	if h.merkleRoot == *hash {
		return
	}
	h.merkleRoot = *hash
	h.changed()
}

// Timestamp returns the time the block was created.
func (h *BlockHeader) Timestamp() time.Time {
	return time.Unix(int64(h.timestamp), 0)
}

// TimestampSeconds returns the raw timestamp field.
func (h *BlockHeader) TimestampSeconds() uint64 {
	return h.timestamp
}

// SetTimestamp sets the block time. Sub-second precision is dropped.
func (h *BlockHeader) SetTimestamp(timestamp time.Time) {
	seconds := uint64(timestamp.Unix())
	if h.timestamp == seconds {
		return
	}
	h.timestamp = seconds
	h.changed()
}

// Bits returns the compact difficulty target.
func (h *BlockHeader) Bits() uint32 {
	return h.bits
}

// SetBits sets the compact difficulty target.
func (h *BlockHeader) SetBits(bits uint32) {
	if h.bits == bits {
		return
	}
	h.bits = bits
	h.changed()
}

// Height returns the height the header declares.
func (h *BlockHeader) Height() int32 {
	return h.height
}

// SetHeight sets the declared height.
func (h *BlockHeader) SetHeight(height int32) {
	if h.height == height {
		return
	}
	h.height = height
	h.changed()
}

// Nonce returns the proof-of-work nonce.
func (h *BlockHeader) Nonce() uint32 {
	return h.nonce
}

// SetNonce sets the proof-of-work nonce.
func (h *BlockHeader) SetNonce(nonce uint32) {
	if h.nonce == nonce {
		return
	}
	h.nonce = nonce
	h.changed()
}

// HasMinerSignature returns whether the header carries a miner signature.
func (h *BlockHeader) HasMinerSignature() bool {
	return h.signed
}

// WholeBlockHash returns the whole block hash committed to by the miner
// signature, or nil when the header is unsigned.
func (h *BlockHeader) WholeBlockHash() *chainhash.Hash {
	if !h.signed {
		return nil
	}
	hash := h.wholeBlockHash
	return &hash
}

// MinerSignature returns the miner signature, or nil when the header is
// unsigned.
func (h *BlockHeader) MinerSignature() *MinerSignature {
	if !h.signed {
		return nil
	}
	sig := h.minerSignature
	return &sig
}

// SetMinerSignature attaches a miner signature over wholeBlockHash.
func (h *BlockHeader) SetMinerSignature(wholeBlockHash *chainhash.Hash, sig *MinerSignature) {
	if h.signed && h.wholeBlockHash == *wholeBlockHash && h.minerSignature == *sig {
		return
	}
	h.signed = true
	h.wholeBlockHash = *wholeBlockHash
	h.minerSignature = *sig
	h.changed()
}

// ClearMinerSignature removes the miner signature.
func (h *BlockHeader) ClearMinerSignature() {
	if !h.signed {
		return
	}
	h.signed = false
	h.wholeBlockHash = chainhash.Hash{}
	h.minerSignature = MinerSignature{}
	h.changed()
}

// IsCached returns whether the header's stored bytes match its fields.
func (h *BlockHeader) IsCached() bool {
	h.ensureRef()
	return h.ref.isCached()
}

// IsParsed returns whether the header's fields are materialized. Headers are
// always parsed when decoded.
func (h *BlockHeader) IsParsed() bool {
	h.ensureRef()
	return h.ref.isParsed()
}

// BlockHash computes the block identifier hash for the given block header.
// The miner signature, when present, is part of the hashed bytes.
func (h *BlockHeader) BlockHash() *chainhash.Hash {
	h.ensureRef()
	// Encoding into a bytes.Buffer cannot fail, so the error is ignored.
	hash, _ := h.ref.doubleHash(h.SerializeSize(), h.encode)
	return hash
}

// SerializeSize returns the number of bytes it would take to serialize the
// block header.
func (h *BlockHeader) SerializeSize() int {
	if h.signed {
		return SignedBlockHeaderPayload
	}
	return BlockHeaderPayload
}

// Bytes returns the serialized header. The returned slice must not be
// modified.
func (h *BlockHeader) Bytes() ([]byte, error) {
	h.ensureRef()
	return h.ref.bytes(h.SerializeSize(), h.encode)
}

// Serialize encodes the block header to w.
func (h *BlockHeader) Serialize(w io.Writer) error {
	raw, err := h.Bytes()
	if err != nil {
		return err
	}
	_, err = w.Write(raw)
	return errors.WithStack(err)
}

// Deserialize decodes a block header from r into the receiver. The codec
// decides from the declared height whether a miner signature follows.
func (h *BlockHeader) Deserialize(r io.Reader, c *Codec) error {
	c = codecOrDefault(c)
	br, err := asByteReader(r, func(r io.Reader) error { return scanHeader(r, c) })
	if err != nil {
		return malformedError("BlockHeader.Deserialize", err)
	}
	err = h.decode(br, c, newCacheArena(), noParent)
	if err != nil {
		return malformedError("BlockHeader.Deserialize", err)
	}
	return nil
}

// DecodeBlockHeader decodes a block header occupying exactly b. The length
// tells whether the header is signed.
func DecodeBlockHeader(b []byte) (*BlockHeader, error) {
	var signed bool
	switch len(b) {
	case BlockHeaderPayload:
	case SignedBlockHeaderPayload:
		signed = true
	default:
		str := fmt.Sprintf("block header of %d bytes, want %d or %d",
			len(b), BlockHeaderPayload, SignedBlockHeaderPayload)
		return nil, messageError(ErrMalformedEncoding, "DecodeBlockHeader", str)
	}
	h := &BlockHeader{}
	err := h.decodeFields(newByteReader(b), signed)
	if err != nil {
		return nil, malformedError("DecodeBlockHeader", err)
	}
	h.ref = cacheRef{arena: newCacheArena()}
	h.ref.handle = h.ref.arena.alloc(stateParsed, b, noParent)
	return h, nil
}

// Copy returns a detached copy of the header.
func (h *BlockHeader) Copy() *BlockHeader {
	clone := *h
	h.ensureRef()
	clone.ref = h.ref.move(newCacheArena(), noParent)
	return &clone
}

func (h *BlockHeader) encode(w io.Writer) error {
	err := writeElements(w, h.version, &h.prevBlock, &h.merkleRoot,
		h.timestamp, h.bits, h.height, h.nonce)
	if err != nil {
		return err
	}
	if !h.signed {
		return nil
	}
	return writeElements(w, &h.wholeBlockHash, &h.minerSignature)
}

func (h *BlockHeader) decode(br *byteReader, c *Codec, arena *cacheArena, parent int) error {
	start := br.offset()
	err := readElements(br, &h.version, &h.prevBlock, &h.merkleRoot,
		&h.timestamp, &h.bits, &h.height, &h.nonce)
	if err != nil {
		return err
	}
	h.signed = c.HasMinerSignature(h.height)
	if h.signed {
		err = readElements(br, &h.wholeBlockHash, &h.minerSignature)
		if err != nil {
			return err
		}
	}
	h.ref = cacheRef{arena: arena, handle: arena.alloc(stateParsed, br.since(start), parent)}
	return nil
}

func (h *BlockHeader) decodeFields(br *byteReader, signed bool) error {
	err := readElements(br, &h.version, &h.prevBlock, &h.merkleRoot,
		&h.timestamp, &h.bits, &h.height, &h.nonce)
	if err != nil {
		return err
	}
	h.signed = signed
	if signed {
		return readElements(br, &h.wholeBlockHash, &h.minerSignature)
	}
	return nil
}

func (h *BlockHeader) rehome(arena *cacheArena, parent int) {
	h.ensureRef()
	h.ref = h.ref.move(arena, parent)
}

// scanHeader advances r past one serialized header.
func scanHeader(r io.Reader, c *Codec) error {
	var base [BlockHeaderPayload]byte
	_, err := io.ReadFull(r, base[:])
	if err != nil {
		return errors.WithStack(err)
	}
	height := int32(littleEndian.Uint32(base[heightOffset : heightOffset+4]))
	if c.HasMinerSignature(height) {
		return skipBytes(r, chainhash.HashSize+MinerSignatureSize)
	}
	return nil
}
