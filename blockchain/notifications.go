// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"

	"github.com/spreadcoin/spreadd/database"
	"github.com/spreadcoin/spreadd/util/chainhash"
	"github.com/spreadcoin/spreadd/wire"
)

// BlockType identifies whether a connected block is on the best chain.
type BlockType int

// Constants for the type of a connected block.
const (
	// BestChain marks blocks that extend or became part of the best chain.
	BestChain BlockType = iota

	// SideChain marks blocks accepted on a branch with less work than the
	// best chain.
	SideChain
)

// blockTypeStrings is a map of block types back to their constant names for
// pretty printing.
var blockTypeStrings = map[BlockType]string{
	BestChain: "BestChain",
	SideChain: "SideChain",
}

// String returns the BlockType in human-readable form.
func (t BlockType) String() string {
	if s, ok := blockTypeStrings[t]; ok {
		return s
	}
	return fmt.Sprintf("Unknown Block Type (%d)", int(t))
}

// Observer receives connect and disconnect events from the chain.
//
// Observers are called with the chain lock held, in the order the events
// happen, and must not call back into the chain.
type Observer interface {
	// OnConnected is called once for every transaction of a connected
	// block, with relativityOffset being the position of the transaction
	// in the block. Blocks without transactions, such as those received
	// from a headers message, produce a single call with a nil tx.
	OnConnected(tx *wire.MsgTx, header *database.StoredHeader, blockType BlockType, relativityOffset int)

	// OnDisconnected is called for every block leaving the best chain.
	OnDisconnected(header *database.StoredHeader)

	// LastSeenHeight returns the height of the last best chain block the
	// observer knows about. It is used to replay blocks when the observer
	// is attached.
	LastSeenHeight() int32
}

// LastSeenHashProvider is implemented by observers that remember the hash of
// the last block they saw. Such observers that were on a branch which lost the
// best chain while detached get the blocks back to the fork disconnected
// before the missing best chain blocks are replayed.
type LastSeenHashProvider interface {
	LastSeenHash() *chainhash.Hash
}

// notifyConnected delivers the transactions of a connected block to every
// observer. Blocks replayed from the graph have no transactions and are
// delivered as header-only blocks.
//
// This function MUST be called with the chain lock held (for writes).
func (b *BlockChain) notifyConnected(node *blockNode, txs []*wire.MsgTx, blockType BlockType) {
	for _, o := range b.observers {
		notifyObserverConnected(o, node, txs, blockType)
	}
}

func notifyObserverConnected(o Observer, node *blockNode, txs []*wire.MsgTx, blockType BlockType) {
	if len(txs) == 0 {
		o.OnConnected(nil, node.storedHeader(), blockType, 0)
		return
	}
	for i, tx := range txs {
		o.OnConnected(tx, node.storedHeader(), blockType, i)
	}
}

// notifyDisconnected tells every observer the block left the best chain.
//
// This function MUST be called with the chain lock held (for writes).
func (b *BlockChain) notifyDisconnected(node *blockNode) {
	for _, o := range b.observers {
		o.OnDisconnected(node.storedHeader())
	}
}

// AddObserver registers an observer. Best chain blocks the observer has not
// seen yet are replayed to it before the call returns, so that it ends up at
// the current head without gaps or repeats.
//
// This function is safe for concurrent access.
func (b *BlockChain) AddObserver(o Observer) {
	b.chainLock.Lock()
	defer b.chainLock.Unlock()

	b.replayTo(o)
	b.observers = append(b.observers, o)
}

// RemoveObserver detaches a previously added observer. It receives no further
// events once the call returns.
//
// This function is safe for concurrent access.
func (b *BlockChain) RemoveObserver(o Observer) {
	b.chainLock.Lock()
	defer b.chainLock.Unlock()

	for i, registered := range b.observers {
		if registered == o {
			b.observers = append(b.observers[:i], b.observers[i+1:]...)
			return
		}
	}
}

// replayTo brings a newly attached observer up to the best chain head.
//
// This function MUST be called with the chain lock held (for writes).
func (b *BlockChain) replayTo(o Observer) {
	fork, replay := b.replayStart(o)
	if !replay {
		return
	}

	var attach []*blockNode
	for n := b.bestNode; n != nil && n != fork; n = n.parent {
		attach = append(attach, n)
	}
	log.Debugf("Replaying %d blocks to observer", len(attach))
	for i := len(attach) - 1; i >= 0; i-- {
		notifyObserverConnected(o, attach[i], nil, BestChain)
	}
}

// replayStart returns the best chain node after which the observer needs
// blocks replayed, disconnecting side branch blocks it saw on the way. A nil
// node means replaying from genesis. The returned flag is false when the
// observer is already at or beyond the head.
//
// This function MUST be called with the chain lock held (for writes).
func (b *BlockChain) replayStart(o Observer) (*blockNode, bool) {
	if p, ok := o.(LastSeenHashProvider); ok {
		if hash := p.LastSeenHash(); hash != nil {
			if lastSeen, err := b.lookupNode(hash); err == nil && lastSeen != nil {
				fork := findFork(lastSeen, b.bestNode)
				for n := lastSeen; n != fork; n = n.parent {
					o.OnDisconnected(n.storedHeader())
				}
				return fork, fork != b.bestNode
			}
		}
	}

	lastSeenHeight := o.LastSeenHeight()
	if lastSeenHeight >= b.bestNode.height {
		return nil, false
	}
	return b.bestNode.Ancestor(lastSeenHeight), true
}
