// Package ldb provides a database.Store on top of leveldb. Decoded records
// are kept in an LRU cache in front of the database.
package ldb

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/syndtr/goleveldb/leveldb"
	ldbErrors "github.com/syndtr/goleveldb/leveldb/errors"

	"github.com/spreadcoin/spreadd/database"
	"github.com/spreadcoin/spreadd/util/chainhash"
)

// DefaultCacheSize is the number of decoded headers cached when Options
// leaves CacheSize unset.
const DefaultCacheSize = 2048

var (
	headersBucket = database.MakeBucket([]byte("headers"))
	bestTipKey    = database.MakeBucket([]byte("meta")).Key([]byte("best"))
)

// Options tune a Store.
type Options struct {
	// CacheSize is the number of decoded headers kept in memory.
	CacheSize int

	// Registerer receives the cache metrics. Nil leaves them
	// unregistered.
	Registerer prometheus.Registerer
}

// Store is a database.Store backed by leveldb.
type Store struct {
	ldb     *leveldb.DB
	cache   *lru.Cache[chainhash.Hash, *database.StoredHeader]
	metrics *cacheMetrics

	closeOnce sync.Once
}

// Open opens the leveldb instance at path, creating it if needed.
func Open(path string, options *Options) (*Store, error) {
	if options == nil {
		options = &Options{}
	}
	cacheSize := options.CacheSize
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}

	// Open leveldb. If it doesn't exist, create it.
	ldb, err := leveldb.OpenFile(path, nil)

	// If the database is corrupted, attempt to recover.
	var corrupted *ldbErrors.ErrCorrupted
	if errors.As(err, &corrupted) {
		log.Warnf("LevelDB corruption detected for path %s: %s",
			path, err)
		ldb, err = leveldb.RecoverFile(path, nil)
		if err != nil {
			return nil, errors.Wrapf(err, "recovering leveldb at %s", path)
		}
		log.Warnf("LevelDB recovered from corruption for path %s",
			path)
	}

	// If the database cannot be opened for any other
	// reason, return the error as-is.
	if err != nil {
		return nil, errors.Wrapf(err, "opening leveldb at %s", path)
	}

	cache, err := lru.New[chainhash.Hash, *database.StoredHeader](cacheSize)
	if err != nil {
		_ = ldb.Close()
		return nil, errors.WithStack(err)
	}
	metrics, err := newCacheMetrics(options.Registerer)
	if err != nil {
		_ = ldb.Close()
		return nil, errors.Wrap(err, "registering header cache metrics")
	}

	log.Debugf("Opened header database at %s with a cache of %d headers",
		path, cacheSize)
	return &Store{
		ldb:     ldb,
		cache:   cache,
		metrics: metrics,
	}, nil
}

func headerKey(hash *chainhash.Hash) []byte {
	return headersBucket.Key(hash[:]).FullKey()
}

// Get is part of the database.Store interface.
func (s *Store) Get(hash *chainhash.Hash) (*database.StoredHeader, error) {
	if cached, ok := s.cache.Get(*hash); ok {
		s.metrics.hits.Inc()
		return cached.Copy(), nil
	}
	s.metrics.misses.Inc()

	serialized, err := s.ldb.Get(headerKey(hash), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, errors.Wrapf(database.ErrNotFound, "header %s", hash)
		}
		return nil, errors.WithStack(err)
	}
	header, err := database.DeserializeStoredHeader(serialized)
	if err != nil {
		return nil, err
	}
	s.cache.Add(*hash, header)
	return header.Copy(), nil
}

// Put is part of the database.Store interface.
func (s *Store) Put(header *database.StoredHeader) error {
	serialized, err := header.Serialize()
	if err != nil {
		return err
	}
	err = s.ldb.Put(headerKey(&header.Hash), serialized, nil)
	if err != nil {
		return errors.WithStack(err)
	}
	s.cache.Add(header.Hash, header.Copy())
	return nil
}

// SetBestTip is part of the database.Store interface.
func (s *Store) SetBestTip(hash *chainhash.Hash) error {
	return errors.WithStack(s.ldb.Put(bestTipKey.FullKey(), hash[:], nil))
}

// BestTip is part of the database.Store interface.
func (s *Store) BestTip() (*chainhash.Hash, error) {
	serialized, err := s.ldb.Get(bestTipKey.FullKey(), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, errors.Wrap(database.ErrNotFound, "best tip")
		}
		return nil, errors.WithStack(err)
	}
	return chainhash.NewHash(serialized)
}

// Close is part of the database.Store interface.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.cache.Purge()
		err = s.ldb.Close()
	})
	return errors.WithStack(err)
}
