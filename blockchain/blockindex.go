// Copyright (c) 2015-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"sync"

	"github.com/spreadcoin/spreadd/util/chainhash"
)

// blockIndex provides facilities for keeping track of an in-memory index of the
// block chain. Every node reaches the genesis block through parent pointers.
// Tips are the nodes no other node in the index builds on.
type blockIndex struct {
	sync.RWMutex
	index map[chainhash.Hash]*blockNode
	tips  map[*blockNode]struct{}
}

// newBlockIndex returns a new empty instance of a block index.
func newBlockIndex() *blockIndex {
	return &blockIndex{
		index: make(map[chainhash.Hash]*blockNode),
		tips:  make(map[*blockNode]struct{}),
	}
}

// HaveBlock returns whether or not the block index contains the provided hash.
//
// This function is safe for concurrent access.
func (bi *blockIndex) HaveBlock(hash *chainhash.Hash) bool {
	bi.RLock()
	defer bi.RUnlock()
	_, hasBlock := bi.index[*hash]
	return hasBlock
}

// LookupNode returns the block node identified by the provided hash. It will
// return nil if there is no entry for the hash.
//
// This function is safe for concurrent access.
func (bi *blockIndex) LookupNode(hash *chainhash.Hash) *blockNode {
	bi.RLock()
	defer bi.RUnlock()
	return bi.index[*hash]
}

// AddNode adds the provided node to the block index and updates the tip set.
// Nodes must be added after their parent. Duplicate entries are not checked
// so it is up to caller to avoid adding them.
//
// This function is safe for concurrent access.
func (bi *blockIndex) AddNode(node *blockNode) {
	bi.Lock()
	defer bi.Unlock()
	bi.index[node.hash] = node
	if node.parent != nil {
		delete(bi.tips, node.parent)
	}
	bi.tips[node] = struct{}{}
}

// Tips returns the nodes no other indexed node builds on.
//
// This function is safe for concurrent access.
func (bi *blockIndex) Tips() []*blockNode {
	bi.RLock()
	defer bi.RUnlock()
	tips := make([]*blockNode, 0, len(bi.tips))
	for tip := range bi.tips {
		tips = append(tips, tip)
	}
	return tips
}

// NodeStatus provides concurrent-safe access to the status field of a node.
//
// This function is safe for concurrent access.
func (bi *blockIndex) NodeStatus(node *blockNode) blockStatus {
	bi.RLock()
	defer bi.RUnlock()
	return node.status
}

// SetStatusFlags flips the provided status flags on the block node to on,
// regardless of whether they were on or off previously.
//
// This function is safe for concurrent access.
func (bi *blockIndex) SetStatusFlags(node *blockNode, flags blockStatus) {
	bi.Lock()
	defer bi.Unlock()
	node.status |= flags
}

// UnsetStatusFlags flips the provided status flags on the block node to off,
// regardless of whether they were on or off previously.
//
// This function is safe for concurrent access.
func (bi *blockIndex) UnsetStatusFlags(node *blockNode, flags blockStatus) {
	bi.Lock()
	defer bi.Unlock()
	node.status &^= flags
}
