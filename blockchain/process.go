// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"

	"github.com/spreadcoin/spreadd/database"
	"github.com/spreadcoin/spreadd/infrastructure/logger"
	"github.com/spreadcoin/spreadd/util/chainhash"
	"github.com/spreadcoin/spreadd/wire"
)

// ProcessBlock is the main workhorse for handling insertion of new blocks into
// the block chain. It includes functionality such as rejecting duplicate
// blocks, ensuring blocks follow all rules, orphan handling, and insertion into
// the block chain along with best chain selection and reorganization.
//
// Connecting the block, switching branches, notifying observers and
// resolving height futures all happen under the chain lock, so no caller
// ever sees a partially applied block.
//
// When no errors occurred during processing, the first return value indicates
// whether or not the block is an orphan. Blocks that are already known are
// ignored.
//
// This function is safe for concurrent access.
func (b *BlockChain) ProcessBlock(block *wire.MsgBlock, flags BehaviorFlags) (isOrphan bool, err error) {
	b.chainLock.Lock()
	defer b.chainLock.Unlock()

	blockHash := block.BlockHash()
	log.Tracef("Processing block %s", blockHash)
	log.Tracef("Block header: %s", logger.NewLogClosure(func() string {
		return spew.Sdump(block.Header())
	}))

	// The block must not already exist in the chain graph.
	node, err := b.lookupNode(blockHash)
	if err != nil {
		return false, err
	}
	if node != nil {
		log.Debugf("Ignoring already known block %s", blockHash)
		return false, nil
	}

	// Networks without full genesis bytes pin a genesis hash the template
	// header does not hash to, so the template is matched by its bytes.
	isGenesis, err := b.isGenesisTemplate(block)
	if err != nil {
		return false, err
	}
	if isGenesis {
		log.Debugf("Ignoring the genesis block %s", b.params.GenesisHash)
		return false, nil
	}

	// The block must not already exist as an orphan.
	if b.IsKnownOrphan(blockHash) {
		log.Debugf("Ignoring already known orphan block %s", blockHash)
		return true, nil
	}

	// Perform preliminary sanity checks on the block and its transactions.
	err = checkBlockSanity(block, b.params, b.rules, b.timeSource, flags)
	if err != nil {
		b.rejected(blockHash, err)
		return false, err
	}

	// Handle orphan blocks.
	prevHash := block.Header().PrevBlock()
	prevNode, err := b.lookupNode(prevHash)
	if err != nil {
		return false, err
	}
	if prevNode == nil {
		log.Infof("Adding orphan block %s with parent %s", blockHash, prevHash)
		b.addOrphanBlock(block, blockHash)
		b.metrics.blockOrphaned()
		return true, nil
	}

	// The block has passed all context independent checks and appears sane
	// enough to potentially accept it into the block chain.
	err = b.maybeAcceptBlock(block, blockHash)
	if err != nil {
		b.rejected(blockHash, err)
		return false, err
	}

	// Accept any orphan blocks that depend on this block (they are
	// no longer orphans) and repeat for those accepted blocks until
	// there are no more.
	err = b.processOrphans(blockHash)
	if err != nil {
		return false, err
	}

	log.Debugf("Accepted block %s", blockHash)
	return false, nil
}

var zeroHash chainhash.Hash

// isGenesisTemplate returns whether the header of block is the genesis
// header of the network.
func (b *BlockChain) isGenesisTemplate(block *wire.MsgBlock) (bool, error) {
	header := block.Header()
	if header.Height() != 0 || !header.PrevBlock().IsEqual(&zeroHash) {
		return false, nil
	}
	genesisBlock, err := b.params.GenesisBlock()
	if err != nil {
		return false, err
	}
	headerBytes, err := header.Bytes()
	if err != nil {
		return false, err
	}
	genesisBytes, err := genesisBlock.Header().Bytes()
	if err != nil {
		return false, err
	}
	return bytes.Equal(headerBytes, genesisBytes), nil
}

func (b *BlockChain) rejected(blockHash *chainhash.Hash, err error) {
	if errors.As(err, &RuleError{}) {
		b.metrics.blockRejected()
		log.Infof("Rejected block %s: %s", blockHash, err)
	}
}

// maybeAcceptBlock potentially accepts a block into the block chain and, if
// accepted, returns whether or not it is on the main chain. It performs
// several validation checks which depend on its position within the block
// chain before adding it. The block is expected to have already gone through
// the sanity checks and to have a known parent.
//
// Nothing is written to the store or the graph until every check passed.
//
// This function MUST be called with the chain lock held (for writes).
func (b *BlockChain) maybeAcceptBlock(block *wire.MsgBlock, blockHash *chainhash.Hash) error {
	header := block.Header()
	prevNode, err := b.lookupNode(header.PrevBlock())
	if err != nil {
		return err
	}
	if prevNode == nil {
		return AssertError(fmt.Sprintf("parent %s of block %s is unknown",
			header.PrevBlock(), blockHash))
	}

	err = b.checkBlockContext(block, prevNode)
	if err != nil {
		return err
	}

	workSum := new(big.Int).Add(prevNode.workSum, CalcWork(header.Bits()))
	stored := &database.StoredHeader{
		Header:    header.Copy(),
		Hash:      *blockHash,
		Height:    header.Height(),
		ChainWork: workSum,
	}
	err = b.store.Put(stored)
	if err != nil {
		return err
	}

	node := newBlockNode(stored, prevNode)
	b.index.AddNode(node)
	b.metrics.blockConnected()

	return b.connectBestChain(node, block.Transactions())
}

// connectBestChain handles connecting the passed block node to the chain while
// respecting proper chain selection according to the chain with the most
// proof of work. In the typical case, the new block simply extends the main
// chain. However, it may also be extending (or creating) a side chain (fork)
// which may or may not end up becoming the main chain depending on which fork
// cumulatively has the most proof of work. A side chain with exactly as much
// work as the main chain does not replace it.
//
// This function MUST be called with the chain lock held (for writes).
func (b *BlockChain) connectBestChain(node *blockNode, txs []*wire.MsgTx) error {
	// We are extending the main (best) chain with a new block. This is the
	// most common case.
	if node.parent == b.bestNode {
		b.notifyConnected(node, txs, BestChain)
		b.index.SetStatusFlags(node, statusBestChain)
		return b.setBestNode(node)
	}

	// We're extending (or creating) a side chain, but the cumulative
	// work for this new side chain is not enough to make it the new chain.
	if node.workSum.Cmp(b.bestNode.workSum) <= 0 {
		fork := findFork(node, b.bestNode)
		if fork == nil {
			return AssertError(fmt.Sprintf("block %s shares no ancestor "+
				"with the best chain", node.hash))
		}
		if fork == node.parent {
			log.Infof("FORK: Block %s forks the chain at height %d/block %s, "+
				"but does not cause a reorganize", node.hash, fork.height, fork.hash)
		} else {
			log.Infof("EXTEND FORK: Block %s extends a side chain which "+
				"forks the chain at height %d/block %s", node.hash,
				fork.height, fork.hash)
		}
		b.notifyConnected(node, txs, SideChain)
		return nil
	}

	// We're extending (or creating) a side chain and the cumulative work
	// for this new side chain is more than the old best chain, so this side
	// chain needs to become the main chain.
	return b.reorganizeChain(node, txs)
}

// reorganizeChain switches the best chain to the branch ending at node.
// Observers see the blocks of the old branch disconnected from the old head
// back to the fork point, then the blocks of the new branch connected from
// the fork point to node. Only node itself still has its transactions; the
// other blocks of the new branch are delivered header-only.
//
// This function MUST be called with the chain lock held (for writes).
func (b *BlockChain) reorganizeChain(node *blockNode, txs []*wire.MsgTx) error {
	onEnd := logger.LogAndMeasureExecutionTime(log, "reorganizeChain")
	defer onEnd()

	fork := findFork(node, b.bestNode)
	if fork == nil {
		return AssertError(fmt.Sprintf("block %s shares no ancestor with "+
			"the best chain", node.hash))
	}

	var detach []*blockNode
	for n := b.bestNode; n != fork; n = n.parent {
		detach = append(detach, n)
	}
	var attach []*blockNode
	for n := node; n != fork; n = n.parent {
		attach = append(attach, n)
	}

	log.Infof("REORGANIZE: Block %s is causing a reorganize.", node.hash)
	log.Infof("REORGANIZE: Fork at height %d/block %s, disconnecting %d "+
		"blocks and connecting %d blocks", fork.height, fork.hash,
		len(detach), len(attach))

	for _, n := range detach {
		b.notifyDisconnected(n)
		b.index.UnsetStatusFlags(n, statusBestChain)
	}
	for i := len(attach) - 1; i >= 0; i-- {
		n := attach[i]
		if n == node {
			b.notifyConnected(n, txs, BestChain)
		} else {
			b.notifyConnected(n, nil, BestChain)
		}
		b.index.SetStatusFlags(n, statusBestChain)
	}

	log.Infof("REORGANIZE: Old best chain head was %s (height %d, work %s)",
		b.bestNode.hash, b.bestNode.height, b.bestNode.workSum)
	log.Infof("REORGANIZE: New best chain head is %s (height %d, work %s)",
		node.hash, node.height, node.workSum)

	b.metrics.reorganized()
	return b.setBestNode(node)
}

// setBestNode makes node the head of the best chain, persists the new tip and
// resolves the height futures it reached.
//
// This function MUST be called with the chain lock held (for writes).
func (b *BlockChain) setBestNode(node *blockNode) error {
	b.bestNode = node
	err := b.store.SetBestTip(&node.hash)
	if err != nil {
		return err
	}
	b.metrics.setBestHeight(node.height)
	b.resolveHeightFutures()
	return nil
}
