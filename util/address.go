// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package util

import (
	"github.com/btcsuite/btcutil/base58"
	"github.com/pkg/errors"
)

// AddressType distinguishes the two base58check address kinds.
type AddressType byte

const (
	// PubKeyHashAddress pays to the hash160 of a public key.
	PubKeyHashAddress AddressType = iota

	// ScriptHashAddress pays to the hash160 of a redeem script.
	ScriptHashAddress
)

var (
	// ErrChecksumMismatch describes an error where decoding failed due
	// to a bad checksum.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrUnknownAddressType describes an error where an address can not
	// decoded as a specific address type due to the string encoding
	// beginning with an identifier byte unknown to any standard or
	// registered (via Register) network.
	ErrUnknownAddressType = errors.New("unknown address type")
)

// AddressPrefixes holds the version bytes a network prepends to each kind of
// base58check address.
type AddressPrefixes struct {
	PubKeyHash byte
	ScriptHash byte
}

// Address is a base58check encoded hash160 of either a public key or a
// script, bound to the version byte of one network.
type Address struct {
	addrType AddressType
	version  byte
	hash     [20]byte
}

// NewAddressPubKeyHash returns a new pay-to-pubkey-hash address. pkHash must
// be 20 bytes.
func NewAddressPubKeyHash(pkHash []byte, prefixes AddressPrefixes) (*Address, error) {
	return newAddress(PubKeyHashAddress, prefixes.PubKeyHash, pkHash)
}

// NewAddressScriptHash returns a new pay-to-script-hash address for the given
// serialized redeem script.
func NewAddressScriptHash(serializedScript []byte, prefixes AddressPrefixes) (*Address, error) {
	return newAddress(ScriptHashAddress, prefixes.ScriptHash, Hash160(serializedScript))
}

func newAddress(addrType AddressType, version byte, hash []byte) (*Address, error) {
	if len(hash) != 20 {
		return nil, errors.Errorf("hash must be 20 bytes, got %d", len(hash))
	}
	addr := &Address{addrType: addrType, version: version}
	copy(addr.hash[:], hash)
	return addr, nil
}

// DecodeAddress decodes the base58check string encoding of an address and
// checks its version byte against the given network prefixes.
func DecodeAddress(addr string, prefixes AddressPrefixes) (*Address, error) {
	decoded, version, err := base58.CheckDecode(addr)
	if err != nil {
		if errors.Is(err, base58.ErrChecksum) {
			return nil, ErrChecksumMismatch
		}
		return nil, errors.Wrapf(err, "decoded address is of unknown format")
	}
	switch version {
	case prefixes.PubKeyHash:
		return newAddress(PubKeyHashAddress, version, decoded)
	case prefixes.ScriptHash:
		return newAddress(ScriptHashAddress, version, decoded)
	default:
		return nil, ErrUnknownAddressType
	}
}

// Type returns the kind of the address.
func (a *Address) Type() AddressType {
	return a.addrType
}

// Hash160 returns the 20-byte hash the address pays to.
func (a *Address) Hash160() []byte {
	return a.hash[:]
}

// String returns the base58check encoding of the address.
func (a *Address) String() string {
	return base58.CheckEncode(a.hash[:], a.version)
}

// PayToAddrScript returns a standard locking script paying to the address.
func (a *Address) PayToAddrScript() []byte {
	const (
		opDup         = 0x76
		opHash160     = 0xa9
		opEqual       = 0x87
		opEqualVerify = 0x88
		opCheckSig    = 0xac
		opData20      = 0x14
	)
	if a.addrType == ScriptHashAddress {
		script := []byte{opHash160, opData20}
		script = append(script, a.hash[:]...)
		return append(script, opEqual)
	}
	script := []byte{opDup, opHash160, opData20}
	script = append(script, a.hash[:]...)
	return append(script, opEqualVerify, opCheckSig)
}
