package wire

import (
	"encoding/hex"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/pkg/errors"
	"github.com/spreadcoin/spreadd/util/chainhash"
)

// MinerSignatureSize is the size of a compact recoverable miner signature.
const MinerSignatureSize = 65

// MinerSignature is the compact recoverable signature a miner attaches to a
// block header once signatures are active.
type MinerSignature [MinerSignatureSize]byte

// ZeroMinerSignature is the MinerSignature value of all zeros.
var ZeroMinerSignature MinerSignature

// NewMinerSignature returns a MinerSignature from a byte slice. An error is
// returned if the number of bytes passed in is not MinerSignatureSize.
func NewMinerSignature(b []byte) (*MinerSignature, error) {
	if len(b) != MinerSignatureSize {
		return nil, errors.Errorf("invalid miner signature length of %v, want %v",
			len(b), MinerSignatureSize)
	}
	var sig MinerSignature
	copy(sig[:], b)
	return &sig, nil
}

// Key returns the integer used to order signatures: bytes 28 to 31 read as a
// big-endian uint32.
func (sig *MinerSignature) Key() uint32 {
	return bigEndian.Uint32(sig[28:32])
}

// Compare orders signatures by Key read as a signed 32-bit integer, so keys
// with the high bit set sort first. Signatures with equal keys compare as 0.
// It returns -1, 0 or 1.
func (sig *MinerSignature) Compare(other *MinerSignature) int {
	a, b := int32(sig.Key()), int32(other.Key())
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// IsEqual returns true if target is the same as sig.
func (sig *MinerSignature) IsEqual(target *MinerSignature) bool {
	if sig == nil && target == nil {
		return true
	}
	if sig == nil || target == nil {
		return false
	}
	return *sig == *target
}

// String returns the signature as a hex string.
func (sig MinerSignature) String() string {
	return hex.EncodeToString(sig[:])
}

// RecoverPubKey returns the public key that produced the signature over
// hash.
func (sig *MinerSignature) RecoverPubKey(hash *chainhash.Hash) (*btcec.PublicKey, error) {
	pubKey, _, err := ecdsa.RecoverCompact(sig[:], hash[:])
	if err != nil {
		return nil, errors.Wrap(err, "recovering miner public key")
	}
	return pubKey, nil
}
