package database

import (
	"github.com/pkg/errors"

	"github.com/spreadcoin/spreadd/util/chainhash"
)

// ErrNotFound denotes that the requested item was not found in the store.
var ErrNotFound = errors.New("not found")

// IsNotFoundError checks whether an error is an ErrNotFound.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Store is the key-value contract the chain keeps its headers in. Records
// are only ever looked up by hash, never scanned by range.
type Store interface {
	// Get returns the record of the block with the given hash, or an
	// error wrapping ErrNotFound.
	Get(hash *chainhash.Hash) (*StoredHeader, error)

	// Put stores a record, replacing any record with the same hash.
	Put(header *StoredHeader) error

	// SetBestTip records the hash of the best chain tip.
	SetBestTip(hash *chainhash.Hash) error

	// BestTip returns the hash recorded by SetBestTip, or an error
	// wrapping ErrNotFound when none was recorded yet.
	BestTip() (*chainhash.Hash, error)

	// Close releases the resources held by the store.
	Close() error
}
