package thumb

import (
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Cache is a Badger-backed byte cache with per-entry TTL.
type Cache struct {
	db *badger.DB
}

// OpenCache opens (or creates) the cache directory. An empty dir keeps the
// cache in memory.
func OpenCache(dir string) (*Cache, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Cache{db: db}, nil
}

// Close flushes and closes the underlying store.
func (c *Cache) Close() error { return c.db.Close() }

// Get returns the cached value for key, if present and not expired.
func (c *Cache) Get(key string) ([]byte, bool, error) {
	var out []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

// Put stores value under key. A zero ttl never expires.
func (c *Cache) Put(key string, value []byte, ttl time.Duration) error {
	return c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
}
