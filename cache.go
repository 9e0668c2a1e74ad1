package wrappers

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type (
	// Cache is the interface that cache adapters must implement.
	// TTL is passed per Set call; the underlying cache library handles
	// expiration.
	Cache[K comparable, V any] interface {
		// Get retrieves a cached value by key. Returns the value and true if
		// found.
		Get(key K) (V, bool)
		// Set stores a value with the given TTL.
		Set(key K, value V, ttl time.Duration)
		// Delete removes a cached entry by key.
		Delete(key K)
	}

	// CacheConfig holds configuration for a cache instance.
	CacheConfig struct {
		// Options holds adapter-specific settings.
		Options map[string]any
		// Backend names the adapter to build, e.g. "otter" or "ristretto".
		Backend string
		// TTL is the time-to-live for cached entries.
		TTL time.Duration
		// MaxSize is the maximum number of entries the cache can hold.
		MaxSize int
	}

	// CacheFactory builds the cache a [Stack] memoizes results in. Adapter
	// packages provide constructors with this shape.
	CacheFactory[T any] func(cfg CacheConfig) Cache[string, T]

	// Keyer is implemented by request shapes that know their own cache key.
	// A false second result means the request must not be cached.
	Keyer interface {
		CacheKey() (string, bool)
	}

	cacheConfigFile struct {
		Caches map[string]cacheEntry `json:"caches" yaml:"caches" toml:"caches"`
	}

	cacheEntry struct {
		Options map[string]any `json:"options,omitempty" yaml:"options,omitempty" toml:"options,omitempty"`
		Backend string         `json:"backend,omitempty" yaml:"backend,omitempty" toml:"backend,omitempty"`
		TTL     string         `json:"ttl" yaml:"ttl" toml:"ttl"`
		MaxSize int            `json:"max_size" yaml:"max_size" toml:"max_size"`
	}
)

// LoadCacheConfig reads a configuration file and returns the CacheConfig
// for the named entry of its "caches" table. The format is chosen by file
// extension, as in [LoadConfig].
func LoadCacheConfig(path, name string) (CacheConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return CacheConfig{}, fmt.Errorf("wrappers: read cache config: %w", err)
	}

	var cfg cacheConfigFile

	if err = decodeConfig(filepath.Ext(path), data, &cfg); err != nil {
		return CacheConfig{}, err
	}

	raw, ok := cfg.Caches[name]
	if !ok {
		return CacheConfig{}, fmt.Errorf(
			"wrappers: cache %q not found in config",
			name,
		)
	}

	cc := CacheConfig{
		Options: raw.Options,
		Backend: raw.Backend,
		MaxSize: raw.MaxSize,
	}

	if raw.TTL != "" {
		ttl, ttlErr := time.ParseDuration(raw.TTL)
		if ttlErr != nil {
			return CacheConfig{}, fmt.Errorf(
				"wrappers: cache %q: ttl: %w",
				name,
				ttlErr,
			)
		}

		cc.TTL = ttl
	}

	return cc, nil
}

// Memoize returns a middleware that serves results from cache.
//
// key derives the cache key from the request; when it reports false the
// call bypasses the cache entirely. On a miss next runs and its result is
// stored for ttl only if next succeeded; errors are never cached.
func Memoize[Req, Res, T any, K comparable](
	cache Cache[K, T],
	key func(Req) (K, bool),
	ttl time.Duration,
	hooks *Hooks,
) Middleware[Req, Res, T] {
	return func(next Handler[Req, Res, T]) Handler[Req, Res, T] {
		return func(req Req, res Res) (T, error) {
			k, ok := key(req)
			if !ok {
				return next(req, res)
			}

			if val, hit := cache.Get(k); hit {
				hooks.emitCacheHit()
				return val, nil
			}

			hooks.emitCacheMiss()

			val, err := next(req, res)
			if err != nil {
				return val, err
			}

			cache.Set(k, val, ttl)

			return val, nil
		}
	}
}

// KeyOf is the default key function of a [Stack] cache: it asks the request
// for its key when the request implements [Keyer] and bypasses the cache
// otherwise.
func KeyOf[Req any](req Req) (string, bool) {
	if k, ok := any(req).(Keyer); ok {
		return k.CacheKey()
	}

	return "", false
}
