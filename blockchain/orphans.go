package blockchain

import (
	"time"

	"github.com/pkg/errors"

	"github.com/spreadcoin/spreadd/util/chainhash"
	"github.com/spreadcoin/spreadd/wire"
)

const (
	// maxOrphanBlocks is the maximum number of orphan blocks that can be
	// queued.
	maxOrphanBlocks = 100

	// orphanExpiration is how long an orphan is held before it is dropped.
	orphanExpiration = time.Hour
)

// orphanBlock represents a block that we don't yet have the parent for. It
// is a normal block plus an expiration time to prevent caching the orphan
// forever.
type orphanBlock struct {
	block      *wire.MsgBlock
	hash       chainhash.Hash
	expiration time.Time
}

// IsKnownOrphan returns whether the passed hash is currently a known orphan.
// Keep in mind that only a limited number of orphans are held onto for a
// limited amount of time, so this function must not be used as an absolute
// way to test if a block is an orphan block. A full block (as opposed to just
// its hash) must be passed to ProcessBlock for that purpose.
//
// This function is safe for concurrent access.
func (b *BlockChain) IsKnownOrphan(hash *chainhash.Hash) bool {
	// Protect concurrent access. Using a read lock only so multiple
	// readers can query without blocking each other.
	b.orphanLock.RLock()
	defer b.orphanLock.RUnlock()
	_, exists := b.orphans[*hash]

	return exists
}

// OrphanRoot returns the head of the chain for the provided hash from the map
// of orphan blocks. The parent of the returned block is the block that needs
// to be fetched for the orphan chain to connect.
//
// This function is safe for concurrent access.
func (b *BlockChain) OrphanRoot(hash *chainhash.Hash) *chainhash.Hash {
	// Protect concurrent access. Using a read lock only so multiple
	// readers can query without blocking each other.
	b.orphanLock.RLock()
	defer b.orphanLock.RUnlock()

	// Keep looping while the parent of each orphaned block is
	// known and is an orphan itself.
	orphanRoot := hash
	prevHash := hash
	for {
		orphan, exists := b.orphans[*prevHash]
		if !exists {
			break
		}
		orphanRoot = prevHash
		prevHash = orphan.block.Header().PrevBlock()
	}

	return orphanRoot
}

// removeOrphanBlock removes the passed orphan block from the orphan pool and
// previous orphan index.
func (b *BlockChain) removeOrphanBlock(orphan *orphanBlock) {
	// Protect concurrent access.
	b.orphanLock.Lock()
	defer b.orphanLock.Unlock()

	// Remove the orphan block from the orphan pool.
	delete(b.orphans, orphan.hash)

	// Remove the reference from the previous orphan index too. An indexing
	// for loop is intentionally used over a range here as range does not
	// reevaluate the slice on each iteration nor does it adjust the index
	// for the modified slice.
	prevHash := *orphan.block.Header().PrevBlock()
	orphans := b.prevOrphans[prevHash]
	for i := 0; i < len(orphans); i++ {
		if orphans[i].hash == orphan.hash {
			copy(orphans[i:], orphans[i+1:])
			orphans[len(orphans)-1] = nil
			orphans = orphans[:len(orphans)-1]
			i--
		}
	}
	b.prevOrphans[prevHash] = orphans

	// Remove the map entry altogether if there are no longer any orphans
	// which depend on the parent hash.
	if len(b.prevOrphans[prevHash]) == 0 {
		delete(b.prevOrphans, prevHash)
	}

	if b.newestOrphan == orphan {
		b.newestOrphan = nil
	}
}

// addOrphanBlock adds the passed block (which is already determined to be
// an orphan prior calling this function) to the orphan pool. It lazily cleans
// up any expired blocks so a separate cleanup poller doesn't need to be run.
// It also imposes a maximum limit on the number of outstanding orphan
// blocks and will remove the newest received orphan block if the limit is
// exceeded.
func (b *BlockChain) addOrphanBlock(block *wire.MsgBlock, hash *chainhash.Hash) {
	now := b.timeSource.Now()

	// Remove expired orphan blocks.
	for _, oBlock := range b.orphans {
		if now.After(oBlock.expiration) {
			log.Debugf("Expiring orphan block %s", oBlock.hash)
			b.removeOrphanBlock(oBlock)
			continue
		}

		// Update the newest orphan block pointer so it can be discarded
		// in case the orphan pool fills up.
		if b.newestOrphan == nil || oBlock.block.Header().Timestamp().After(
			b.newestOrphan.block.Header().Timestamp()) {
			b.newestOrphan = oBlock
		}
	}

	// Limit orphan blocks to prevent memory exhaustion.
	if len(b.orphans)+1 > maxOrphanBlocks {
		// If the new orphan is newer than the newest orphan on the orphan
		// pool, don't add it.
		if block.Header().Timestamp().After(b.newestOrphan.block.Header().Timestamp()) {
			log.Debugf("Orphan pool is full, dropping orphan block %s", hash)
			return
		}
		// Remove the newest orphan to make room for the added one.
		b.removeOrphanBlock(b.newestOrphan)
	}

	// Protect concurrent access. This is intentionally done here instead
	// of near the top since removeOrphanBlock does its own locking and
	// the range iterator is not invalidated by removing map entries.
	b.orphanLock.Lock()
	defer b.orphanLock.Unlock()

	// Insert the block into the orphan map with an expiration time
	// 1 hour from now.
	oBlock := &orphanBlock{
		block:      block,
		hash:       *hash,
		expiration: now.Add(orphanExpiration),
	}
	b.orphans[*hash] = oBlock

	// Add to previous hash lookup index for faster dependency lookups.
	prevHash := *block.Header().PrevBlock()
	b.prevOrphans[prevHash] = append(b.prevOrphans[prevHash], oBlock)
}

// processOrphans determines if there are any orphans which depend on the passed
// block hash (they are no longer orphans if true) and potentially accepts them.
// It repeats the process for the newly accepted blocks (to detect further
// orphans which may no longer be orphans) until there are no more.
//
// Orphans passed the structural checks when they were first received, so
// only the contextual checks run for them here. An orphan failing those is
// dropped without failing the block that released it.
//
// This function MUST be called with the chain lock held (for writes).
func (b *BlockChain) processOrphans(hash *chainhash.Hash) error {
	// Start with processing at least the passed hash. Leave a little room
	// for additional orphan blocks that need to be processed without
	// needing to grow the array in the common case.
	processHashes := make([]*chainhash.Hash, 0, 10)
	processHashes = append(processHashes, hash)
	for len(processHashes) > 0 {
		// Pop the first hash to process from the slice.
		processHash := processHashes[0]
		processHashes[0] = nil // Prevent GC leak.
		processHashes = processHashes[1:]

		// Look up all orphans that are parented by the block we just
		// accepted. The slice is copied since removing an orphan
		// modifies the index.
		b.orphanLock.RLock()
		orphans := append([]*orphanBlock(nil), b.prevOrphans[*processHash]...)
		b.orphanLock.RUnlock()

		for _, orphan := range orphans {
			// Remove the orphan from the orphan pool.
			orphanHash := orphan.hash
			b.removeOrphanBlock(orphan)

			// Potentially accept the block into the block chain.
			err := b.maybeAcceptBlock(orphan.block, &orphanHash)
			if err != nil {
				// Since we don't want to reject the original block
				// because of a bad unorphaned child, only return an
				// error if it's not a RuleError.
				if !errors.As(err, &RuleError{}) {
					return err
				}
				b.metrics.blockRejected()
				log.Warnf("Verification failed for orphan block %s: %s",
					orphanHash, err)
				continue
			}

			// Add this block to the list of blocks to process so
			// any orphan blocks that depend on this block are
			// handled too.
			processHashes = append(processHashes, &orphanHash)
		}
	}
	return nil
}
