// Package ristretto provides an adapter for the Ristretto cache library,
// implementing the wrappers.Cache interface for use with wrappers.Memoize
// and cached stacks.
package ristretto

import (
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/byte4ever/wrappers"
)

type (
	// Key is the subset of ristretto.Key types that are also comparable,
	// required by the wrappers.Cache interface.
	Key interface {
		uint64 | string | byte | int | int32 | uint32 | int64
	}

	// adapter wraps a ristretto.Cache to implement wrappers.Cache.
	// Calls after Close are no-ops.
	adapter[K Key, V any] struct {
		cache  *ristretto.Cache[K, V]
		mu     sync.RWMutex
		closed bool
	}
)

// MustNew creates a wrappers.Cache backed by a Ristretto cache.
// K must satisfy [Key] (comparable subset of ristretto key types).
// MaxSize from [wrappers.CacheConfig] configures the cache capacity.
// Ristretto recommends NumCounters = 10 * MaxSize for good performance.
// It panics if the underlying Ristretto cache cannot be built.
//
//nolint:ireturn,varnamelen // generic type params K,V are idiomatic in Go
func MustNew[K Key, V any](cfg wrappers.CacheConfig) wrappers.Cache[K, V] {
	// nolint:mnd // Ristretto recommends 10x max size for num counters and 64
	// buffer items.
	cache, err := ristretto.NewCache(&ristretto.Config[K, V]{
		NumCounters: int64(cfg.MaxSize) * 10,
		MaxCost:     int64(cfg.MaxSize),
		BufferItems: 64,
		// Cost is one per entry, so MaxCost is an entry count.
		IgnoreInternalCost: true,
	})
	if err != nil {
		panic("wrappers/ristretto: failed to build cache: " + err.Error())
	}

	return &adapter[K, V]{cache: cache}
}

// Factory returns a [wrappers.CacheFactory] for stacks whose result type
// is V. Pass it to wrappers.WithCacheFactory.
func Factory[V any]() wrappers.CacheFactory[V] {
	return MustNew[string, V]
}

// Get retrieves a cached value by key.
//
//nolint:ireturn // generic type parameter V, not an interface
func (a *adapter[K, V]) Get(key K) (V, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		var zero V
		return zero, false
	}

	return a.cache.Get(key)
}

// Set stores a value with the given TTL. Ristretto admits writes
// asynchronously; Set waits for the write buffer to drain so a following
// Get observes the value.
func (a *adapter[K, V]) Set(key K, value V, ttl time.Duration) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return
	}

	if a.cache.SetWithTTL(key, value, 1, ttl) {
		a.cache.Wait()
	}
}

// Delete removes a cached entry by key.
func (a *adapter[K, V]) Delete(key K) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if !a.closed {
		a.cache.Del(key)
	}
}

// Close stops the cache's background goroutines.
// It waits for in-flight calls and is safe to call more than once.
func (a *adapter[K, V]) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return
	}

	a.closed = true
	a.cache.Close()
}
