// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"
	"strconv"
	"strings"
)

// ProtocolVersion is the latest protocol version this package supports.
const ProtocolVersion uint32 = 70002

// ServiceFlag identifies services supported by a peer.
type ServiceFlag uint64

const (
	// SFNodeNetwork is a flag used to indicate a peer is a full node.
	SFNodeNetwork ServiceFlag = 1 << iota

	// SFNodeGetUTXO is a flag used to indicate a peer supports the
	// getutxos and utxos commands.
	SFNodeGetUTXO

	// SFNodeBloom is a flag used to indicate a peer supports bloom
	// filtering.
	SFNodeBloom
)

// Map of service flags back to their constant names for pretty printing.
var sfStrings = map[ServiceFlag]string{
	SFNodeNetwork: "SFNodeNetwork",
	SFNodeGetUTXO: "SFNodeGetUTXO",
	SFNodeBloom:   "SFNodeBloom",
}

// orderedSFStrings is an ordered list of service flags from highest to
// lowest.
var orderedSFStrings = []ServiceFlag{
	SFNodeNetwork,
	SFNodeGetUTXO,
	SFNodeBloom,
}

// String returns the ServiceFlag in human-readable form.
func (f ServiceFlag) String() string {
	// No flags are set.
	if f == 0 {
		return "0x0"
	}

	// Add individual bit flags.
	s := ""
	for _, flag := range orderedSFStrings {
		if f&flag == flag {
			s += sfStrings[flag] + "|"
			f -= flag
		}
	}

	// Add any remaining flags which aren't accounted for as hex.
	s = strings.TrimRight(s, "|")
	if f != 0 {
		s += "|0x" + strconv.FormatUint(uint64(f), 16)
	}
	s = strings.TrimLeft(s, "|")
	return s
}

// BitcoinNet represents which network a message belongs to. It is written
// to the wire in big-endian order so the constants read the same as the
// magic bytes on the wire.
type BitcoinNet uint32

// Constants used to indicate the message network. They can also be used to
// seek to the next message when a stream's state is unknown.
const (
	// MainNet represents the main network.
	MainNet BitcoinNet = 0x4f3c5cbb

	// TestNet represents the test network.
	TestNet BitcoinNet = 0xc2e3cbfa

	// UnitNet represents the network used by unit tests. It never leaves
	// the process.
	UnitNet BitcoinNet = 0x0b110907
)

// bnStrings is a map of networks back to their constant names for
// pretty printing.
var bnStrings = map[BitcoinNet]string{
	MainNet: "MainNet",
	TestNet: "TestNet",
	UnitNet: "UnitNet",
}

// String returns the BitcoinNet in human-readable form.
func (n BitcoinNet) String() string {
	if s, ok := bnStrings[n]; ok {
		return s
	}

	return fmt.Sprintf("Unknown BitcoinNet (%d)", uint32(n))
}

// magicBytes returns the network magic in wire order.
func (n BitcoinNet) magicBytes() [4]byte {
	var b [4]byte
	bigEndian.PutUint32(b[:], uint32(n))
	return b
}
