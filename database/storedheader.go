package database

import (
	"bytes"
	"math/big"

	"github.com/pkg/errors"

	"github.com/spreadcoin/spreadd/util/chainhash"
	"github.com/spreadcoin/spreadd/wire"
)

// maxChainWorkSize bounds the serialized chain work of a record.
const maxChainWorkSize = 64

// StoredHeader is a block header together with the cumulative proof of work
// from genesis up to and including the block. The previous record is found
// by looking up Header.PrevBlock.
type StoredHeader struct {
	Header    *wire.BlockHeader
	Hash      chainhash.Hash
	Height    int32
	ChainWork *big.Int
}

// NewStoredHeader returns a record for header. The hash is the header's own
// hash.
func NewStoredHeader(header *wire.BlockHeader, chainWork *big.Int) *StoredHeader {
	return &StoredHeader{
		Header:    header,
		Hash:      *header.BlockHash(),
		Height:    header.Height(),
		ChainWork: chainWork,
	}
}

// MoreWorkThan returns whether the record has strictly more cumulative work
// than other.
func (s *StoredHeader) MoreWorkThan(other *StoredHeader) bool {
	return s.ChainWork.Cmp(other.ChainWork) > 0
}

// Prev looks up the record of the previous block in store.
func (s *StoredHeader) Prev(store Store) (*StoredHeader, error) {
	return store.Get(s.Header.PrevBlock())
}

// Serialize encodes the record as the chain work and the block hash
// followed by the header bytes.
func (s *StoredHeader) Serialize() ([]byte, error) {
	headerBytes, err := s.Header.Bytes()
	if err != nil {
		return nil, err
	}
	work := s.ChainWork.Bytes()

	buf := bytes.NewBuffer(make([]byte, 0, len(work)+len(headerBytes)+
		chainhash.HashSize+2*wire.MaxVarIntPayload))
	err = wire.WriteVarBytes(buf, work)
	if err != nil {
		return nil, err
	}
	_, err = buf.Write(s.Hash[:])
	if err != nil {
		return nil, errors.WithStack(err)
	}
	err = wire.WriteVarBytes(buf, headerBytes)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DeserializeStoredHeader decodes a record written by Serialize.
func DeserializeStoredHeader(serialized []byte) (*StoredHeader, error) {
	r := bytes.NewReader(serialized)
	work, err := wire.ReadVarBytes(r, maxChainWorkSize, "chain work")
	if err != nil {
		return nil, errors.Wrap(err, "decoding stored header")
	}
	var hash chainhash.Hash
	err = wire.ReadElement(r, &hash)
	if err != nil {
		return nil, errors.Wrap(err, "decoding stored header")
	}
	headerBytes, err := wire.ReadVarBytes(r, wire.SignedBlockHeaderPayload, "header")
	if err != nil {
		return nil, errors.Wrap(err, "decoding stored header")
	}
	if r.Len() != 0 {
		return nil, errors.Errorf("stored header has %d trailing bytes", r.Len())
	}
	header, err := wire.DecodeBlockHeader(headerBytes)
	if err != nil {
		return nil, errors.Wrap(err, "decoding stored header")
	}
	return &StoredHeader{
		Header:    header,
		Hash:      hash,
		Height:    header.Height(),
		ChainWork: new(big.Int).SetBytes(work),
	}, nil
}

// Copy returns a deep copy of the record.
func (s *StoredHeader) Copy() *StoredHeader {
	return &StoredHeader{
		Header:    s.Header.Copy(),
		Hash:      s.Hash,
		Height:    s.Height,
		ChainWork: new(big.Int).Set(s.ChainWork),
	}
}
