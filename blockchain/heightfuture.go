package blockchain

import (
	"sort"

	"github.com/spreadcoin/spreadd/database"
)

// heightWaiters holds the channels waiting for the best chain to reach a
// height, keyed by that height.
type heightWaiters map[int32][]chan *database.StoredHeader

// HeightFuture returns a channel that receives the best chain block at the
// given height once the best chain reaches it. The channel is buffered and
// receives exactly one value. Waiting on a height the best chain already
// reached yields the current best chain block at that height immediately.
// A negative height is never reached: its channel is returned closed.
//
// This function is safe for concurrent access.
func (b *BlockChain) HeightFuture(height int32) <-chan *database.StoredHeader {
	b.chainLock.Lock()
	defer b.chainLock.Unlock()

	c := make(chan *database.StoredHeader, 1)
	if height < 0 {
		close(c)
		return c
	}
	if node := b.bestNode.Ancestor(height); node != nil {
		c <- node.storedHeader()
		return c
	}
	b.heightWaiters[height] = append(b.heightWaiters[height], c)
	return c
}

// resolveHeightFutures completes the futures of every height the best chain
// reached, lowest height first.
//
// This function MUST be called with the chain lock held (for writes).
func (b *BlockChain) resolveHeightFutures() {
	if len(b.heightWaiters) == 0 {
		return
	}

	var reached []int32
	for height := range b.heightWaiters {
		if height <= b.bestNode.height {
			reached = append(reached, height)
		}
	}
	sort.Slice(reached, func(i, j int) bool { return reached[i] < reached[j] })

	for _, height := range reached {
		node := b.bestNode.Ancestor(height)
		if node == nil {
			delete(b.heightWaiters, height)
			continue
		}
		for _, c := range b.heightWaiters[height] {
			c <- node.storedHeader()
		}
		delete(b.heightWaiters, height)
		log.Tracef("Resolved height future at %d with %s", height, node.hash)
	}
}
