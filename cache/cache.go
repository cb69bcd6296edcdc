// Package cache provides a bounded, concurrency-safe LRU cache.
//
// The cache backs the value reuse of the injector: components that opt in
// store their results here, keyed by their resolved inputs. Once the
// capacity is reached, adding a new entry evicts the least recently used
// one. Both Add and Get count as a use, so frequently read entries survive
// while stale ones are dropped. Peek and Contains inspect an entry without
// refreshing it.
package cache

import (
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCapacity is the number of entries a cache holds unless configured
// otherwise.
const DefaultCapacity = 256

type config[K comparable, V any] struct {
	capacity int
	onEvict  func(K, V)
	logger   *slog.Logger
}

// Option configures a Cache.
type Option[K comparable, V any] func(*config[K, V])

// WithCapacity sets the maximum number of entries. Non-positive values are
// ignored.
func WithCapacity[K comparable, V any](n int) Option[K, V] {
	return func(c *config[K, V]) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// WithOnEvict registers a callback invoked for every entry that is removed,
// whether by eviction, Remove or Purge. A nil value is ignored.
func WithOnEvict[K comparable, V any](fn func(key K, value V)) Option[K, V] {
	return func(c *config[K, V]) {
		if fn != nil {
			c.onEvict = fn
		}
	}
}

// WithLogger sets a logger that records evictions at debug level. A nil
// value is ignored.
func WithLogger[K comparable, V any](logger *slog.Logger) Option[K, V] {
	return func(c *config[K, V]) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Cache is a fixed-size LRU cache. It is safe for concurrent use.
type Cache[K comparable, V any] struct {
	lru      *lru.Cache[K, V]
	capacity int
}

// New creates a cache with the given options.
func New[K comparable, V any](opts ...Option[K, V]) *Cache[K, V] {
	cfg := config[K, V]{capacity: DefaultCapacity}
	for _, opt := range opts {
		opt(&cfg)
	}

	onEvict := cfg.onEvict
	if logger := cfg.logger; logger != nil {
		next := onEvict
		onEvict = func(k K, v V) {
			logger.Debug("Cache entry evicted", slog.Any("key", k))
			if next != nil {
				next(k, v)
			}
		}
	}

	// The size is always positive here, which is the only failure condition.
	l, _ := lru.NewWithEvict(cfg.capacity, onEvict)
	return &Cache[K, V]{lru: l, capacity: cfg.capacity}
}

// Get returns the value stored under key and marks it as recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) { return c.lru.Get(key) }

// Peek returns the value stored under key without updating its recency.
func (c *Cache[K, V]) Peek(key K) (V, bool) { return c.lru.Peek(key) }

// Contains reports whether key is present without updating its recency.
func (c *Cache[K, V]) Contains(key K) bool { return c.lru.Contains(key) }

// Add stores value under key and reports whether an older entry had to be
// evicted to make room.
func (c *Cache[K, V]) Add(key K, value V) bool { return c.lru.Add(key, value) }

// Remove deletes key and reports whether it was present.
func (c *Cache[K, V]) Remove(key K) bool { return c.lru.Remove(key) }

// Len returns the number of entries.
func (c *Cache[K, V]) Len() int { return c.lru.Len() }

// Cap returns the maximum number of entries.
func (c *Cache[K, V]) Cap() int { return c.capacity }

// Keys returns the keys from least to most recently used.
func (c *Cache[K, V]) Keys() []K { return c.lru.Keys() }

// Purge removes all entries.
func (c *Cache[K, V]) Purge() { c.lru.Purge() }
