// Package cache provides a small TTL key-value cache on top of badger. Values
// are JSON encoded.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/soundprediction/schemagraph/pkg/config"
)

// ErrClosed is returned by operations on a closed cache.
var ErrClosed = errors.New("cache is closed")

// Cache is a badger-backed key-value store with per-entry TTL.
type Cache struct {
	db         *badger.DB
	defaultTTL time.Duration
	namespace  string
}

// Options configures Open.
type Options struct {
	// Path of the on-disk store; ignored when InMemory is set.
	Path     string
	InMemory bool
	// DefaultTTL applies when Set is called with ttl <= 0. Zero means no expiry.
	DefaultTTL time.Duration
}

// FromConfig converts the cache section of the application config.
func FromConfig(cfg config.CacheConfig) Options {
	return Options{
		Path:       cfg.Path,
		InMemory:   cfg.InMemory || cfg.Path == "",
		DefaultTTL: cfg.TTL,
	}
}

// Open opens a cache.
func Open(opts Options) (*Cache, error) {
	path := opts.Path
	if opts.InMemory {
		path = ""
	}
	bOpts := badger.DefaultOptions(path).WithInMemory(opts.InMemory).WithLogger(nil)

	db, err := badger.Open(bOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger cache: %w", err)
	}

	return &Cache{db: db, defaultTTL: opts.DefaultTTL}, nil
}

// WithNamespace returns a view of the cache whose keys are prefixed with ns.
// Views share the underlying store; closing any of them closes all.
func (c *Cache) WithNamespace(ns string) *Cache {
	return &Cache{db: c.db, defaultTTL: c.defaultTTL, namespace: c.namespace + ns + ":"}
}

func (c *Cache) key(k string) []byte {
	return []byte(c.namespace + k)
}

// Get decodes the value stored under key into dst. It reports false when the
// key is missing or expired.
func (c *Cache) Get(key string, dst any) (bool, error) {
	if c.db.IsClosed() {
		return false, ErrClosed
	}

	var raw []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(c.key(key))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	return true, nil
}

// Set stores value under key. ttl <= 0 uses the cache default.
func (c *Cache) Set(key string, value any, ttl time.Duration) error {
	if c.db.IsClosed() {
		return ErrClosed
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	err = c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(c.key(key), raw)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Delete removes key.
func (c *Cache) Delete(key string) error {
	if c.db.IsClosed() {
		return ErrClosed
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(c.key(key))
	})
}

// Close closes the underlying store.
func (c *Cache) Close() error {
	if c.db.IsClosed() {
		return nil
	}
	return c.db.Close()
}
