// Package memdb provides a Store that keeps its records in memory. It is
// used by tests and by tools that do not need the chain to outlive them.
package memdb

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/spreadcoin/spreadd/database"
	"github.com/spreadcoin/spreadd/util/chainhash"
)

// MemDB is an in-memory database.Store. Records are kept serialized so
// callers never share header values with the store.
type MemDB struct {
	mtx     sync.RWMutex
	records map[chainhash.Hash][]byte
	bestTip *chainhash.Hash
	closed  bool
}

// New returns an empty in-memory store.
func New() *MemDB {
	return &MemDB{records: make(map[chainhash.Hash][]byte)}
}

var errClosed = errors.New("memdb is closed")

// Get is part of the database.Store interface.
func (db *MemDB) Get(hash *chainhash.Hash) (*database.StoredHeader, error) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	if db.closed {
		return nil, errClosed
	}
	serialized, ok := db.records[*hash]
	if !ok {
		return nil, errors.Wrapf(database.ErrNotFound, "header %s", hash)
	}
	return database.DeserializeStoredHeader(serialized)
}

// Put is part of the database.Store interface.
func (db *MemDB) Put(header *database.StoredHeader) error {
	serialized, err := header.Serialize()
	if err != nil {
		return err
	}
	db.mtx.Lock()
	defer db.mtx.Unlock()
	if db.closed {
		return errClosed
	}
	db.records[header.Hash] = serialized
	return nil
}

// SetBestTip is part of the database.Store interface.
func (db *MemDB) SetBestTip(hash *chainhash.Hash) error {
	db.mtx.Lock()
	defer db.mtx.Unlock()
	if db.closed {
		return errClosed
	}
	tip := *hash
	db.bestTip = &tip
	return nil
}

// BestTip is part of the database.Store interface.
func (db *MemDB) BestTip() (*chainhash.Hash, error) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	if db.closed {
		return nil, errClosed
	}
	if db.bestTip == nil {
		return nil, errors.Wrap(database.ErrNotFound, "best tip")
	}
	tip := *db.bestTip
	return &tip, nil
}

// Close is part of the database.Store interface.
func (db *MemDB) Close() error {
	db.mtx.Lock()
	defer db.mtx.Unlock()
	db.closed = true
	db.records = nil
	return nil
}
