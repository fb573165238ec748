// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"math/big"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/spreadcoin/spreadd/chaincfg"
	"github.com/spreadcoin/spreadd/database"
	"github.com/spreadcoin/spreadd/infrastructure/logger"
	"github.com/spreadcoin/spreadd/util/chainhash"
)

// BestState houses information about the current best block and other info
// related to the state of the main chain as it exists from the point of view of
// the current best block.
//
// The BestSnapshot method can be used to obtain access to this information
// in a concurrent safe manner and the data will not be changed out from under
// the caller when chain state changes occur as the function name implies.
// However, the returned snapshot must be treated as immutable since it is
// shared by all callers.
type BestState struct {
	Hash      chainhash.Hash // The hash of the block.
	Height    int32          // The height of the block.
	Bits      uint32         // The difficulty bits of the block.
	WorkSum   *big.Int       // The total work up to and including the block.
	Timestamp time.Time      // The timestamp of the block.
}

// newBestState returns a new best stats instance for the given parameters.
func newBestState(node *blockNode) *BestState {
	return &BestState{
		Hash:      node.hash,
		Height:    node.height,
		Bits:      node.bits,
		WorkSum:   new(big.Int).Set(node.workSum),
		Timestamp: time.Unix(node.timestamp, 0),
	}
}

// Config is a descriptor which specifies the blockchain instance configuration.
type Config struct {
	// Params identifies which chain parameters the chain is associated
	// with.
	//
	// This field is required.
	Params *chaincfg.Params

	// Store persists accepted headers and the best tip.
	//
	// This field is required.
	Store database.Store

	// ScriptVerifier evaluates the scripts of transaction inputs. When nil
	// scripts are not checked.
	ScriptVerifier ScriptVerifier

	// Metrics receives block acceptance activity. It may be nil.
	Metrics *Metrics

	// TimeSource defines the time source to use for things such as
	// block processing and determining whether or not the chain is current.
	// When nil the local clock is used.
	TimeSource TimeSource
}

// BlockChain provides functions for working with the Spreadcoin block chain.
// It includes functionality such as rejecting duplicate blocks, ensuring blocks
// follow all rules, orphan handling, and best chain selection with
// reorganization.
type BlockChain struct {
	// The following fields are set when the instance is created and can't
	// be changed afterwards, so there is no need to protect them with a
	// separate mutex.
	params         *chaincfg.Params
	rules          *RuleSet
	store          database.Store
	scriptVerifier ScriptVerifier
	metrics        *Metrics
	timeSource     TimeSource

	// chainLock protects concurrent access to the vast majority of the
	// fields in this struct below this point.
	chainLock sync.RWMutex

	// index houses the entire block index in memory. The best chain is
	// loaded at startup and side branches are loaded from the store on
	// demand.
	index *blockIndex

	// bestNode is the head of the best chain.
	bestNode *blockNode

	observers     []Observer
	heightWaiters heightWaiters

	// These fields are related to handling of orphan blocks. They are
	// protected by a combination of the chain lock and the orphan lock.
	orphanLock   sync.RWMutex
	orphans      map[chainhash.Hash]*orphanBlock
	prevOrphans  map[chainhash.Hash][]*orphanBlock
	newestOrphan *orphanBlock

	fpLock sync.Mutex
	fp     fpEstimator
}

// New returns a BlockChain instance using the provided configuration details.
func New(config *Config) (*BlockChain, error) {
	// Enforce required config fields.
	if config.Params == nil {
		return nil, AssertError("blockchain.New chain parameters nil")
	}
	if config.Store == nil {
		return nil, AssertError("blockchain.New store is nil")
	}

	timeSource := config.TimeSource
	if timeSource == nil {
		timeSource = NewTimeSource()
	}

	b := &BlockChain{
		params:         config.Params,
		rules:          NewRuleSet(config.Params),
		store:          config.Store,
		scriptVerifier: config.ScriptVerifier,
		metrics:        config.Metrics,
		timeSource:     timeSource,
		index:          newBlockIndex(),
		heightWaiters:  make(heightWaiters),
		orphans:        make(map[chainhash.Hash]*orphanBlock),
		prevOrphans:    make(map[chainhash.Hash][]*orphanBlock),
	}

	err := b.initChainState()
	if err != nil {
		return nil, err
	}

	log.Infof("Chain state (height %d, hash %s, work %s)",
		b.bestNode.height, b.bestNode.hash, b.bestNode.workSum)
	return b, nil
}

// genesisRecord returns the store record of the network's genesis block. The
// record is identified by the network's genesis hash.
func (b *BlockChain) genesisRecord() (*database.StoredHeader, error) {
	genesisBlock, err := b.params.GenesisBlock()
	if err != nil {
		return nil, err
	}
	header := genesisBlock.Header()
	if len(b.params.GenesisBlockBytes) > 0 && !header.BlockHash().IsEqual(b.params.GenesisHash) {
		return nil, AssertError("genesis block of " + b.params.Name +
			" does not hash to " + b.params.GenesisHash.String())
	}
	return &database.StoredHeader{
		Header:    header,
		Hash:      *b.params.GenesisHash,
		Height:    0,
		ChainWork: CalcWork(header.Bits()),
	}, nil
}

// initChainState attempts to load and initialize the chain state from the
// store. When the store is empty, it writes the genesis block.
func (b *BlockChain) initChainState() error {
	bestHash, err := b.store.BestTip()
	if database.IsNotFoundError(err) {
		return b.createChainState()
	}
	if err != nil {
		return err
	}

	log.Infof("Loading block index...")
	onEnd := logger.LogAndMeasureExecutionTime(log, "initChainState")
	defer onEnd()

	// Walk back from the best tip to genesis through the previous block
	// references, then index the chain oldest first.
	var records []*database.StoredHeader
	hash := bestHash
	for {
		record, err := b.store.Get(hash)
		if err != nil {
			return errors.Wrapf(err, "loading block %s of the best chain", hash)
		}
		records = append(records, record)
		if record.Hash.IsEqual(b.params.GenesisHash) {
			break
		}
		if record.Height <= 0 {
			return AssertError("best chain does not lead to the genesis block " +
				b.params.GenesisHash.String())
		}
		hash = record.Header.PrevBlock()
	}

	var parent *blockNode
	for i := len(records) - 1; i >= 0; i-- {
		node := newBlockNode(records[i], parent)
		node.status |= statusBestChain
		b.index.AddNode(node)
		parent = node
	}
	b.bestNode = parent
	b.metrics.setBestHeight(b.bestNode.height)
	return nil
}

// createChainState initializes an empty store with the genesis block as the
// best tip.
func (b *BlockChain) createChainState() error {
	genesis, err := b.genesisRecord()
	if err != nil {
		return err
	}
	err = b.store.Put(genesis)
	if err != nil {
		return err
	}
	err = b.store.SetBestTip(&genesis.Hash)
	if err != nil {
		return err
	}

	node := newBlockNode(genesis, nil)
	node.status |= statusBestChain
	b.index.AddNode(node)
	b.bestNode = node
	b.metrics.setBestHeight(0)
	return nil
}

// lookupNode returns the node for the given hash, loading it and any missing
// ancestors from the store into the index when needed. It returns nil when
// the block is unknown.
//
// This function MUST be called with the chain lock held (for writes).
func (b *BlockChain) lookupNode(hash *chainhash.Hash) (*blockNode, error) {
	if node := b.index.LookupNode(hash); node != nil {
		return node, nil
	}

	var records []*database.StoredHeader
	var parent *blockNode
	for next := hash; ; {
		record, err := b.store.Get(next)
		if database.IsNotFoundError(err) {
			if len(records) == 0 {
				return nil, nil
			}
			return nil, AssertError("stored block " + records[len(records)-1].Hash.String() +
				" has no stored parent")
		}
		if err != nil {
			return nil, err
		}
		records = append(records, record)
		next = record.Header.PrevBlock()
		if parent = b.index.LookupNode(next); parent != nil {
			break
		}
	}

	for i := len(records) - 1; i >= 0; i-- {
		node := newBlockNode(records[i], parent)
		b.index.AddNode(node)
		parent = node
	}
	log.Debugf("Loaded %d side chain blocks from the store", len(records))
	return parent, nil
}

// BestSnapshot returns information about the current best chain block and
// related state as of the current point in time. The returned instance must
// be treated as immutable since it is shared by all callers.
//
// This function is safe for concurrent access.
func (b *BlockChain) BestSnapshot() *BestState {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()
	return newBestState(b.bestNode)
}

// BestHeight returns the height of the best chain head.
//
// This function is safe for concurrent access.
func (b *BlockChain) BestHeight() int32 {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()
	return b.bestNode.height
}

// ChainHead returns the record of the best chain head.
//
// This function is safe for concurrent access.
func (b *BlockChain) ChainHead() *database.StoredHeader {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()
	return b.bestNode.storedHeader()
}

// HeaderByHash returns the record of the block with the given hash from the
// chain graph or the store. It returns database.ErrNotFound for unknown
// blocks.
//
// This function is safe for concurrent access.
func (b *BlockChain) HeaderByHash(hash *chainhash.Hash) (*database.StoredHeader, error) {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()

	if node := b.index.LookupNode(hash); node != nil {
		return node.storedHeader(), nil
	}
	return b.store.Get(hash)
}

// HeaderByHeight returns the record of the best chain block at the given
// height.
//
// This function is safe for concurrent access.
func (b *BlockChain) HeaderByHeight(height int32) (*database.StoredHeader, error) {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()

	node := b.bestNode.Ancestor(height)
	if node == nil {
		return nil, errors.Wrapf(database.ErrNotFound,
			"no best chain block at height %d", height)
	}
	return node.storedHeader(), nil
}

// HaveBlock returns whether or not the chain instance has the block represented
// by the passed hash. This includes checking the various places a block can
// be like part of the main chain, on a side chain, or in the orphan pool.
//
// This function is safe for concurrent access.
func (b *BlockChain) HaveBlock(hash *chainhash.Hash) (bool, error) {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()

	if b.index.HaveBlock(hash) || b.IsKnownOrphan(hash) {
		return true, nil
	}
	_, err := b.store.Get(hash)
	if database.IsNotFoundError(err) {
		return false, nil
	}
	return err == nil, err
}

// IsOnBestChain returns whether the block with the given hash is part of the
// best chain.
//
// This function is safe for concurrent access.
func (b *BlockChain) IsOnBestChain(hash *chainhash.Hash) bool {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()

	node := b.index.LookupNode(hash)
	return node != nil && b.index.NodeStatus(node)&statusBestChain != 0
}

// Tips returns the records of the blocks no other known block builds on. The
// best chain head is one of them.
//
// This function is safe for concurrent access.
func (b *BlockChain) Tips() []*database.StoredHeader {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()

	tips := b.index.Tips()
	headers := make([]*database.StoredHeader, len(tips))
	for i, tip := range tips {
		headers[i] = tip.storedHeader()
	}
	return headers
}

// Params returns the chain parameters the chain was created with.
func (b *BlockChain) Params() *chaincfg.Params {
	return b.params
}

// Rules returns the rule set of the chain's network.
func (b *BlockChain) Rules() *RuleSet {
	return b.rules
}

// BlockLocator returns a block locator for the best chain head: the hashes of
// the last ten blocks followed by hashes at exponentially growing distances,
// ending with the genesis block.
//
// This function is safe for concurrent access.
func (b *BlockChain) BlockLocator() []*chainhash.Hash {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()

	var locator []*chainhash.Hash
	step := int32(1)
	for node := b.bestNode; node != nil; {
		hash := node.hash
		locator = append(locator, &hash)
		if node.isGenesis() {
			break
		}

		// Once 10 entries have been included, start doubling the
		// distance between included hashes.
		if len(locator) > 10 {
			step *= 2
		}
		height := node.height - step
		if height < 0 {
			height = 0
		}
		node = node.Ancestor(height)
	}
	return locator
}
