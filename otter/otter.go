// Package otter provides an adapter for the Otter cache library,
// implementing the wrappers.Cache interface for use with wrappers.Memoize
// and cached stacks.
package otter

import (
	"sync"
	"time"

	"github.com/maypok86/otter"

	"github.com/byte4ever/wrappers"
)

// adapter wraps an otter.CacheWithVariableTTL to implement wrappers.Cache.
// Calls after Close are no-ops.
type adapter[K comparable, V any] struct {
	cache  otter.CacheWithVariableTTL[K, V]
	mu     sync.RWMutex
	closed bool
}

// MustNew creates a wrappers.Cache backed by an Otter cache with per-entry
// TTL support.
// MaxSize from [wrappers.CacheConfig] configures the underlying cache
// capacity. It panics if the underlying Otter cache cannot be built.
//
//nolint:ireturn,varnamelen // generic type params K,V are idiomatic in Go
func MustNew[K comparable, V any](cfg wrappers.CacheConfig) wrappers.Cache[K, V] {
	cache, err := otter.MustBuilder[K, V](cfg.MaxSize).
		WithVariableTTL().
		Build()
	if err != nil {
		panic("wrappers/otter: failed to build cache: " + err.Error())
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

// Set stores a value with the given TTL.
func (a *adapter[K, V]) Set(key K, value V, ttl time.Duration) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if !a.closed {
		a.cache.Set(key, value, ttl)
	}
}

// Delete removes a cached entry by key.
func (a *adapter[K, V]) Delete(key K) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if !a.closed {
		a.cache.Delete(key)
	}
}

// Close stops the cache's background goroutines and drops its entries.
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
