// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"github.com/spreadcoin/spreadd/util/chainhash"
)

// unitTestGenesisHash is the hash of the first block in the block chain for
// the unit test network (genesis block).
var unitTestGenesisHash = chainhash.Hash([chainhash.HashSize]byte{ // Make go vet happy.
	0x21, 0xd8, 0xc7, 0xa3, 0x0e, 0xec, 0xc9, 0x04,
	0xfa, 0xb4, 0x23, 0x9f, 0x5b, 0xe4, 0x8e, 0x78,
	0x6f, 0xba, 0xf2, 0xf8, 0xb5, 0xc1, 0xb0, 0x5b,
	0xa8, 0x2c, 0x91, 0xe3, 0x58, 0xb0, 0x55, 0x2c,
})

// unitTestGenesisMerkleRoot is the hash of the coinbase transaction of the
// unit test genesis block.
var unitTestGenesisMerkleRoot = chainhash.Hash([chainhash.HashSize]byte{ // Make go vet happy.
	0xaf, 0x62, 0x11, 0x49, 0xe2, 0x20, 0x9c, 0x11,
	0x95, 0x48, 0xbc, 0x75, 0x15, 0xd9, 0x5a, 0x23,
	0x47, 0xe9, 0x12, 0xda, 0x26, 0xff, 0xbe, 0x0f,
	0xf1, 0xfc, 0x0f, 0x4c, 0x68, 0x1a, 0xa8, 0x82,
})

// unitTestGenesisBlockBytes is the serialized genesis block of the unit test
// network: an unsigned header solving 0x207fffff followed by a single
// coinbase paying 50 coins to the well-known genesis public key.
var unitTestGenesisBlockBytes = []byte{
	0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0xaf, 0x62, 0x11, 0x49,
	0xe2, 0x20, 0x9c, 0x11, 0x95, 0x48, 0xbc, 0x75,
	0x15, 0xd9, 0x5a, 0x23, 0x47, 0xe9, 0x12, 0xda,
	0x26, 0xff, 0xbe, 0x0f, 0xf1, 0xfc, 0x0f, 0x4c,
	0x68, 0x1a, 0xa8, 0x82, 0x60, 0x51, 0xd7, 0x53,
	0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0x7f, 0x20,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x01, 0x01, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xff, 0xff,
	0xff, 0xff, 0x30, 0x04, 0xff, 0xff, 0x7f, 0x20,
	0x01, 0x04, 0x28, 0x53, 0x70, 0x72, 0x65, 0x61,
	0x64, 0x63, 0x6f, 0x69, 0x6e, 0x20, 0x75, 0x6e,
	0x69, 0x74, 0x20, 0x74, 0x65, 0x73, 0x74, 0x20,
	0x6e, 0x65, 0x74, 0x77, 0x6f, 0x72, 0x6b, 0x20,
	0x32, 0x39, 0x2f, 0x4a, 0x75, 0x6c, 0x2f, 0x32,
	0x30, 0x31, 0x34, 0xff, 0xff, 0xff, 0xff, 0x01,
	0x00, 0xf2, 0x05, 0x2a, 0x01, 0x00, 0x00, 0x00,
	0x43, 0x41, 0x04, 0x67, 0x8a, 0xfd, 0xb0, 0xfe,
	0x55, 0x48, 0x27, 0x19, 0x67, 0xf1, 0xa6, 0x71,
	0x30, 0xb7, 0x10, 0x5c, 0xd6, 0xa8, 0x28, 0xe0,
	0x39, 0x09, 0xa6, 0x79, 0x62, 0xe0, 0xea, 0x1f,
	0x61, 0xde, 0xb6, 0x49, 0xf6, 0xbc, 0x3f, 0x4c,
	0xef, 0x38, 0xc4, 0xf3, 0x55, 0x04, 0xe5, 0x1e,
	0xc1, 0x12, 0xde, 0x5c, 0x38, 0x4d, 0xf7, 0xba,
	0x0b, 0x8d, 0x57, 0x8a, 0x4c, 0x70, 0x2b, 0x6b,
	0xf1, 0x1d, 0x5f, 0xac, 0x00, 0x00, 0x00, 0x00,
}
