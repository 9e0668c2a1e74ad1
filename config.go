package wrappers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

type (
	// configFile is the top-level configuration structure.
	configFile struct {
		Stacks map[string]StackConfig `json:"stacks" yaml:"stacks" toml:"stacks"`
	}

	// StackConfig holds the decoded configuration for a single stack.
	// Export it to embed in your own app config structs, then call
	// [BuildOptions] to obtain functional options for [NewStack].
	StackConfig struct {
		// Cache configures result memoization.
		// Optional. Example: {"ttl": "30s", "max_size": 1000, "backend": "otter"}.
		Cache *CacheSettings `json:"cache,omitempty" yaml:"cache,omitempty" toml:"cache,omitempty"`
		// Timeout is the maximum duration for a single call.
		// Optional. Parsed via time.ParseDuration. Example: "2s".
		Timeout *string `json:"timeout,omitempty" yaml:"timeout,omitempty" toml:"timeout,omitempty"`
		// RateLimit is the maximum requests per second.
		// Optional. Example: 100.
		RateLimit *float64 `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty" toml:"rate_limit,omitempty"`
		// RateLimitBurst is the token bucket size.
		// Optional. Defaults to one second worth of tokens.
		RateLimitBurst *int `json:"rate_limit_burst,omitempty" yaml:"rate_limit_burst,omitempty" toml:"rate_limit_burst,omitempty"`
		// RateLimitBlocking makes the limiter wait instead of rejecting.
		// Optional. Example: true.
		RateLimitBlocking *bool `json:"rate_limit_blocking,omitempty" yaml:"rate_limit_blocking,omitempty" toml:"rate_limit_blocking,omitempty"`
		// Bulkhead is the maximum concurrent requests.
		// Optional. Example: 10.
		Bulkhead *int `json:"bulkhead,omitempty" yaml:"bulkhead,omitempty" toml:"bulkhead,omitempty"`
		// Log enables request logging.
		// Optional. Example: true.
		Log *bool `json:"log,omitempty" yaml:"log,omitempty" toml:"log,omitempty"`
	}

	// CacheSettings holds cache configuration values as they appear in a
	// configuration file.
	CacheSettings struct {
		// TTL is the time-to-live of cached results.
		// Required. Parsed via time.ParseDuration. Example: "30s".
		TTL *string `json:"ttl,omitempty" yaml:"ttl,omitempty" toml:"ttl,omitempty"`
		// MaxSize is the maximum number of cached results.
		// Optional. Example: 1000.
		MaxSize *int `json:"max_size,omitempty" yaml:"max_size,omitempty" toml:"max_size,omitempty"`
		// Backend names the cache adapter.
		// Optional. One of: "otter", "ristretto".
		Backend *string `json:"backend,omitempty" yaml:"backend,omitempty" toml:"backend,omitempty"`
	}
)

// Cache backend names accepted in configuration files.
const (
	CacheBackendOtter     = "otter"
	CacheBackendRistretto = "ristretto"
)

// defaultCacheSize is used when a cache section omits max_size.
const defaultCacheSize = 1024

// LoadConfig reads a configuration file and stores the stack configurations
// in a new [Registry]. Actual [Stack] instances are not created until
// [GetStack] is called, allowing the caller to provide type parameters and
// additional code-level options.
//
// The decoder is chosen by file extension: ".json", ".yaml"/".yml" or
// ".toml". Duration values (timeout, cache.ttl) are parsed using
// [time.ParseDuration].
func LoadConfig(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("wrappers: read config: %w", err)
	}

	stacks, err := ParseConfig(filepath.Ext(path), data)
	if err != nil {
		return nil, err
	}

	reg := NewRegistry()
	reg.mu.Lock()
	reg.configs = stacks
	reg.mu.Unlock()

	return reg, nil
}

// ParseConfig decodes and validates configuration data in the format
// named by ext (".json", ".yaml", ".yml" or ".toml").
func ParseConfig(ext string, data []byte) (map[string]StackConfig, error) {
	var cfg configFile

	if err := decodeConfig(ext, data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Stacks == nil {
		cfg.Stacks = make(map[string]StackConfig)
	}

	// Validate all stacks eagerly so errors surface at load time.
	for name, sc := range cfg.Stacks {
		if _, err := BuildOptions(&sc); err != nil {
			return nil, fmt.Errorf("wrappers: stack %q: %w", name, err)
		}
	}

	return cfg.Stacks, nil
}

// decodeConfig unmarshals data into v with the decoder named by ext.
// Unknown keys are rejected in YAML and TOML; an empty YAML document leaves
// v untouched.
func decodeConfig(ext string, data []byte, v any) error {
	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("wrappers: parse config: %w", err)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)

		if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("wrappers: parse config: %w", err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), v)
		if err != nil {
			return fmt.Errorf("wrappers: parse config: %w", err)
		}

		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("wrappers: parse config: unknown key %q", undecoded[0].String())
		}
	default:
		return fmt.Errorf("wrappers: unsupported config format %q", ext)
	}

	return nil
}

// BuildOptions converts a [StackConfig] into a slice of functional option
// values suitable for [NewStack]. Use this when you embed [StackConfig] in
// your own config struct and want to build a stack without going through
// [LoadConfig].
//
// A cache section yields [WithCache] only; the caller still has to supply
// [WithCacheFactory].
func BuildOptions(sc *StackConfig) ([]any, error) {
	var opts []any

	if sc.Log != nil && *sc.Log {
		opts = append(opts, WithLogging())
	}

	if sc.Timeout != nil {
		d, err := time.ParseDuration(*sc.Timeout)
		if err != nil {
			return nil, fmt.Errorf("timeout: %w", err)
		}

		if d <= 0 {
			return nil, fmt.Errorf("timeout: must be positive, got %s", d)
		}

		opts = append(opts, WithTimeout(d))
	}

	if sc.Cache != nil {
		cc, err := buildCacheConfig(sc.Cache)
		if err != nil {
			return nil, fmt.Errorf("cache: %w", err)
		}

		opts = append(opts, WithCache(cc))
	}

	if sc.RateLimit != nil {
		if *sc.RateLimit <= 0 {
			return nil, fmt.Errorf("rate_limit: must be positive, got %v", *sc.RateLimit)
		}

		var rlOpts []RateLimitOption

		if sc.RateLimitBurst != nil {
			if *sc.RateLimitBurst <= 0 {
				return nil, fmt.Errorf("rate_limit_burst: must be positive, got %d", *sc.RateLimitBurst)
			}

			rlOpts = append(rlOpts, RateLimitBurst(*sc.RateLimitBurst))
		}

		if sc.RateLimitBlocking != nil && *sc.RateLimitBlocking {
			rlOpts = append(rlOpts, RateLimitBlocking())
		}

		opts = append(opts, WithRateLimit(*sc.RateLimit, rlOpts...))
	}

	if sc.Bulkhead != nil {
		if *sc.Bulkhead <= 0 {
			return nil, fmt.Errorf("bulkhead: must be positive, got %d", *sc.Bulkhead)
		}

		opts = append(opts, WithBulkhead(*sc.Bulkhead))
	}

	return opts, nil
}

func buildCacheConfig(cs *CacheSettings) (CacheConfig, error) {
	if cs.TTL == nil {
		return CacheConfig{}, errors.New("ttl is required")
	}

	ttl, err := time.ParseDuration(*cs.TTL)
	if err != nil {
		return CacheConfig{}, fmt.Errorf("ttl: %w", err)
	}

	cc := CacheConfig{
		TTL:     ttl,
		MaxSize: defaultCacheSize,
	}

	if cs.MaxSize != nil {
		if *cs.MaxSize <= 0 {
			return CacheConfig{}, fmt.Errorf("max_size: must be positive, got %d", *cs.MaxSize)
		}

		cc.MaxSize = *cs.MaxSize
	}

	if cs.Backend != nil {
		switch *cs.Backend {
		case CacheBackendOtter, CacheBackendRistretto:
			cc.Backend = *cs.Backend
		default:
			return CacheConfig{}, fmt.Errorf("backend: unknown cache backend %q", *cs.Backend)
		}
	}

	return cc, nil
}

// GetStack retrieves a named stack configuration from a config-loaded
// [Registry] and returns a typed [Stack]. If the name is not found in the
// stored configs, a stack is created with only the provided opts.
//
// Additional options can be provided to augment or override the
// config-loaded settings (e.g., adding hooks, a logger, or the cache
// factory). User-provided options are applied after config options, so they
// take precedence.
//
// GetStack panics if the stored configuration is invalid. [LoadConfig]
// validates every stack up front, so this only happens for registries whose
// configs were filled in some other way.
func GetStack[Req ContextCarrier[Req], Res, T any](reg *Registry, name string, opts ...any) *Stack[Req, Res, T] {
	sc, ok := reg.Config(name)

	var allOpts []any

	allOpts = append(allOpts, WithRegistry(reg))

	if ok {
		configOpts, err := BuildOptions(&sc)
		if err != nil {
			panic(fmt.Sprintf("wrappers: stack %q: invalid config: %v", name, err))
		}

		allOpts = append(allOpts, configOpts...)
	}

	// User opts come last so they can override config values.
	allOpts = append(allOpts, opts...)

	return NewStack[Req, Res, T](name, allOpts...)
}
