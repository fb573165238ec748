// Copyright (c) 2015-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"
	"math/big"

	"github.com/spreadcoin/spreadd/database"
	"github.com/spreadcoin/spreadd/util/chainhash"
	"github.com/spreadcoin/spreadd/wire"
)

// blockStatus is a bit field representing the position of the block in the
// chain graph.
type blockStatus byte

const (
	// statusDataStored indicates that the block's header record is in the
	// store.
	statusDataStored blockStatus = 1 << iota

	// statusBestChain indicates that the block is part of the best chain.
	statusBestChain

	// statusNone indicates that the block has no status flags set.
	//
	// NOTE: This must be defined last in order to avoid influencing iota.
	statusNone blockStatus = 0
)

// blockNode represents a block within the chain graph. Nodes only exist for
// blocks that passed validation; rejected blocks never enter the graph.
type blockNode struct {
	// parent is the parent block for this node.
	parent *blockNode

	// hash is the identifier of the block.
	hash chainhash.Hash

	// workSum is the total amount of work in the chain up to and including
	// this node.
	workSum *big.Int

	// header is the block header. It is kept so that observers and the
	// store receive the exact bytes the block was accepted with.
	header *wire.BlockHeader

	// Some fields from block headers to aid in best chain selection and
	// reconstructing headers from memory.
	height    int32
	bits      uint32
	timestamp int64

	status blockStatus
}

// newBlockNode returns a new block node for the given stored header and
// parent node. The parent is nil only for the genesis block.
func newBlockNode(stored *database.StoredHeader, parent *blockNode) *blockNode {
	header := stored.Header
	return &blockNode{
		parent:    parent,
		hash:      stored.Hash,
		workSum:   stored.ChainWork,
		header:    header,
		height:    header.Height(),
		bits:      header.Bits(),
		timestamp: int64(header.TimestampSeconds()),
		status:    statusDataStored,
	}
}

// storedHeader returns a copy of the node as a store record.
//
// This function is safe for concurrent access.
func (node *blockNode) storedHeader() *database.StoredHeader {
	return &database.StoredHeader{
		Header:    node.header.Copy(),
		Hash:      node.hash,
		Height:    node.height,
		ChainWork: new(big.Int).Set(node.workSum),
	}
}

// Ancestor returns the ancestor block node at the provided height by following
// the chain backwards from this node. The returned block will be nil when a
// height is requested that is after the height of the passed node or is less
// than zero.
//
// This function is safe for concurrent access.
func (node *blockNode) Ancestor(height int32) *blockNode {
	if height < 0 || height > node.height {
		return nil
	}

	n := node
	for ; n != nil && n.height != height; n = n.parent {
		// Intentionally left blank
	}

	return n
}

// RelativeAncestor returns the ancestor block node a relative 'distance' blocks
// before this node. This is equivalent to calling Ancestor with the node's
// height minus provided distance.
//
// This function is safe for concurrent access.
func (node *blockNode) RelativeAncestor(distance int32) *blockNode {
	return node.Ancestor(node.height - distance)
}

func (node *blockNode) isGenesis() bool {
	return node.parent == nil
}

// String returns a string that contains the block hash and height.
func (node blockNode) String() string {
	return fmt.Sprintf("%s (height %d)", node.hash, node.height)
}

// findFork returns the final common block between the passed nodes. Both
// nodes must descend from the same genesis block.
func findFork(a, b *blockNode) *blockNode {
	for a != nil && b != nil && a.height > b.height {
		a = a.parent
	}
	for a != nil && b != nil && b.height > a.height {
		b = b.parent
	}
	for a != nil && b != nil && a != b {
		a = a.parent
		b = b.parent
	}
	if a != b {
		return nil
	}
	return a
}
