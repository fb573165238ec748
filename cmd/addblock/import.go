// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/binary"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/spreadcoin/spreadd/blockchain"
	"github.com/spreadcoin/spreadd/util/binaryserializer"
	"github.com/spreadcoin/spreadd/util/chainhash"
	"github.com/spreadcoin/spreadd/wire"
)

var zeroHash chainhash.Hash

// importResults houses the stats and result as an import operation.
type importResults struct {
	blocksProcessed int64
	blocksImported  int64
	err             error
}

// blockImporter houses information about an ongoing import from a block data
// file to the block database.
type blockImporter struct {
	chain             *blockchain.BlockChain
	codec             *wire.Codec
	flags             blockchain.BehaviorFlags
	r                 io.Reader
	processQueue      chan []byte
	doneChan          chan bool
	errChan           chan error
	quit              chan struct{}
	wg                sync.WaitGroup
	blocksProcessed   int64
	blocksImported    int64
	receivedLogBlocks int64
	receivedLogTx     int64
	lastHeight        int32
	lastBlockTime     time.Time
	lastLogTime       time.Time
	progressInterval  time.Duration
}

// readBlock reads the next record from the input reader. A record is the
// network magic in wire order, the little endian block length and the
// serialized block. A nil slice with a nil error is returned at the end of
// the input.
func (bi *blockImporter) readBlock() ([]byte, error) {
	// The block file format is:
	//  <network> <block length> <serialized block>
	net, err := binaryserializer.Uint32(bi.r, binary.BigEndian)
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return nil, err
		}

		// No block and no error means there are no more blocks to read.
		return nil, nil
	}
	if wire.BitcoinNet(net) != bi.codec.Net() {
		return nil, errors.Errorf("network mismatch -- got %s, expected %s",
			wire.BitcoinNet(net), bi.codec.Net())
	}

	// Read the block length and ensure it is sane.
	blockLen, err := binaryserializer.Uint32(bi.r, binary.LittleEndian)
	if err != nil {
		return nil, errors.Wrap(err, "reading block length")
	}
	if blockLen > wire.MaxMessagePayload {
		return nil, errors.Errorf("block payload of %d bytes is larger "+
			"than the max allowed %d bytes", blockLen,
			wire.MaxMessagePayload)
	}

	serializedBlock := make([]byte, blockLen)
	if _, err := io.ReadFull(bi.r, serializedBlock); err != nil {
		return nil, errors.Wrap(err, "reading block")
	}

	return serializedBlock, nil
}

// processBlock potentially imports the block into the database. It first
// deserializes the raw block while checking for errors. Already known blocks
// are skipped and orphan blocks are considered errors. Finally, it runs the
// block through the chain rules to ensure it follows all rules and matches
// up to the known checkpoint. Returns whether the block was imported along
// with any potential errors.
func (bi *blockImporter) processBlock(serializedBlock []byte) (bool, error) {
	// Deserialize the block which includes checks for malformed blocks.
	block := &wire.MsgBlock{}
	err := block.Deserialize(bytes.NewReader(serializedBlock), bi.codec)
	if err != nil {
		return false, err
	}

	// update progress statistics
	bi.lastBlockTime = block.Header().Timestamp()
	bi.receivedLogTx += int64(len(block.Transactions()))

	// Skip blocks that already exist.
	blockHash := block.BlockHash()
	exists, err := bi.chain.HaveBlock(blockHash)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	// Don't bother trying to process orphans.
	prevHash := block.Header().PrevBlock()
	if !prevHash.IsEqual(&zeroHash) {
		exists, err := bi.chain.HaveBlock(prevHash)
		if err != nil {
			return false, err
		}
		if !exists {
			return false, errors.Errorf("import file contains block "+
				"%s which does not link to the available "+
				"block chain", prevHash)
		}
	}

	// Ensure the blocks follows all of the chain rules.
	isOrphan, err := bi.chain.ProcessBlock(block, bi.flags)
	if err != nil {
		return false, err
	}
	if isOrphan {
		return false, errors.Errorf("import file contains an orphan "+
			"block: %s", blockHash)
	}
	bi.lastHeight = block.Header().Height()

	return true, nil
}

// readHandler is the main handler for reading blocks from the import file.
// This allows block processing to take place in parallel with block reads.
// It must be run as a goroutine.
func (bi *blockImporter) readHandler() {
out:
	for {
		// Read the next block from the file and if anything goes wrong
		// notify the status handler with the error and bail.
		serializedBlock, err := bi.readBlock()
		if err != nil {
			bi.errChan <- errors.Wrapf(err, "error reading from input "+
				"file")
			break out
		}

		// A nil block with no error means we're done.
		if serializedBlock == nil {
			break out
		}

		// Send the block or quit if we've been signalled to exit by
		// the status handler due to an error elsewhere.
		select {
		case bi.processQueue <- serializedBlock:
		case <-bi.quit:
			break out
		}
	}

	// Close the processing channel to signal no more blocks are coming.
	close(bi.processQueue)
	bi.wg.Done()
}

// logProgress logs block progress as an information message. In order to
// prevent spam, it limits logging to one message every progressInterval
// with duration and totals included.
func (bi *blockImporter) logProgress() {
	bi.receivedLogBlocks++

	now := time.Now()
	duration := now.Sub(bi.lastLogTime)
	if bi.progressInterval == 0 || duration < bi.progressInterval {
		return
	}

	// Truncate the duration to 10s of milliseconds.
	tDuration := duration.Truncate(10 * time.Millisecond)

	// Log information about new block height.
	blockStr := "blocks"
	if bi.receivedLogBlocks == 1 {
		blockStr = "block"
	}
	txStr := "transactions"
	if bi.receivedLogTx == 1 {
		txStr = "transaction"
	}
	log.Infof("Processed %d %s in the last %s (%d %s, height %d, %s)",
		bi.receivedLogBlocks, blockStr, tDuration, bi.receivedLogTx,
		txStr, bi.lastHeight, bi.lastBlockTime)

	bi.receivedLogBlocks = 0
	bi.receivedLogTx = 0
	bi.lastLogTime = now
}

// processHandler is the main handler for processing blocks. This allows block
// processing to take place in parallel with block reads from the import file.
// It must be run as a goroutine.
func (bi *blockImporter) processHandler() {
out:
	for {
		select {
		case serializedBlock, ok := <-bi.processQueue:
			// We're done when the channel is closed.
			if !ok {
				break out
			}

			bi.blocksProcessed++
			imported, err := bi.processBlock(serializedBlock)
			if err != nil {
				bi.errChan <- err
				break out
			}

			if imported {
				bi.blocksImported++
			}

			bi.logProgress()

		case <-bi.quit:
			break out
		}
	}
	bi.wg.Done()
}

// statusHandler waits for updates from the import operation and notifies
// the passed doneChan with the results of the import. It also causes all
// goroutines to exit if an error is reported from any of them.
func (bi *blockImporter) statusHandler(resultsChan chan *importResults) {
	select {
	// An error from either of the goroutines means we're done so signal
	// caller with the error and signal all goroutines to quit.
	case err := <-bi.errChan:
		resultsChan <- &importResults{
			blocksProcessed: bi.blocksProcessed,
			blocksImported:  bi.blocksImported,
			err:             err,
		}
		close(bi.quit)

	// The import finished normally.
	case <-bi.doneChan:
		resultsChan <- &importResults{
			blocksProcessed: bi.blocksProcessed,
			blocksImported:  bi.blocksImported,
			err:             nil,
		}
	}
}

// Import is the core function which handles importing the blocks from the file
// associated with the block importer to the database. It returns a channel
// on which the results will be returned when the operation has completed.
func (bi *blockImporter) Import() chan *importResults {
	// Start up the read and process handling goroutines. This setup allows
	// blocks to be read from disk in parallel while being processed.
	bi.wg.Add(2)
	spawn(bi.readHandler)
	spawn(bi.processHandler)

	// Wait for the import to finish in a separate goroutine and signal
	// the status handler when done.
	spawn(func() {
		bi.wg.Wait()
		bi.doneChan <- true
	})

	// Start the status handler and return the result channel that it will
	// send the results on when the import is done.
	resultChan := make(chan *importResults)
	spawn(func() {
		bi.statusHandler(resultChan)
	})
	return resultChan
}

// newBlockImporter returns a new importer for the provided file reader seeker
// and chain.
func newBlockImporter(chain *blockchain.BlockChain, cfg *ConfigFlags, r io.Reader) *blockImporter {
	flags := blockchain.BFNone
	if cfg.NoPoWCheck {
		flags |= blockchain.BFNoPoWCheck
	}

	return &blockImporter{
		chain:            chain,
		codec:            cfg.NetParams().Codec(cfg.Lazy),
		flags:            flags,
		r:                r,
		processQueue:     make(chan []byte, 2),
		doneChan:         make(chan bool, 1),
		errChan:          make(chan error, 2),
		quit:             make(chan struct{}),
		lastLogTime:      time.Now(),
		progressInterval: time.Duration(cfg.Progress) * time.Second,
	}
}
