package wrappers

import (
	"slices"
	"sync"
	"sync/atomic"
)

// Registry tracks built stacks and the stack configurations loaded from a
// file.
//
// Pattern: Singleton — DefaultRegistry uses sync.OnceValue for safe lazy
// init; explicit registries can be created for testing or multi-tenant
// scenarios.
type Registry struct {
	reporters atomic.Pointer[[]StatusReporter]
	configs   map[string]StackConfig
	mu        sync.Mutex
}

//nolint:gochecknoglobals // singleton via sync.OnceValue
var defaultRegistry = sync.OnceValue(NewRegistry)

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	r := &Registry{
		configs: make(map[string]StackConfig),
	}

	var empty []StatusReporter

	r.reporters.Store(&empty)

	return r
}

// Register adds a StatusReporter to the registry.
// This is typically called during startup by NewStack.
// It is safe for concurrent use but intended for initialization only.
func (r *Registry) Register(sr StatusReporter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := *r.reporters.Load()
	// Create a new slice (copy-on-write) to avoid mutating the slice
	// that concurrent readers may be iterating.
	updated := make([]StatusReporter, len(old), len(old)+1)
	copy(updated, old)
	updated = append(updated, sr)
	r.reporters.Store(&updated)
}

// Statuses returns the status of every registered stack, in registration
// order.
func (r *Registry) Statuses() []StackStatus {
	reporters := *r.reporters.Load()

	statuses := make([]StackStatus, 0, len(reporters))
	for _, sr := range reporters {
		statuses = append(statuses, sr.Status())
	}

	return statuses
}

// Config returns the stored configuration of the named stack.
func (r *Registry) Config(name string) (StackConfig, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sc, ok := r.configs[name]

	return sc, ok
}

// ConfigNames returns the names of the stored stack configurations, sorted.
func (r *Registry) ConfigNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.configs))
	for name := range r.configs {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// DefaultRegistry returns the package-level global registry, creating it
// on first call.
func DefaultRegistry() *Registry {
	return defaultRegistry()
}
