package wrappers

import (
	"fmt"
	"log/slog"
	"time"
)

// ---------------------------------------------------------------------------
// Stack[Req, Res, T] — a named bundle of stock middleware
// ---------------------------------------------------------------------------

// Stack composes the stock middleware (logging, timeout, cache, rate
// limiter, bulkhead) plus any custom middleware into one chain, ordered by
// priority rather than by the order the options were given. Use [NewStack]
// with functional options to configure it.
//
// Pattern: Functional Options — configures Stack via composable option
// values; generic options use any to work around Go's restriction on type
// parameters in function signatures.
type Stack[Req ContextCarrier[Req], Res, T any] struct {
	name  string
	hooks Hooks
	clock Clock
	chain Middleware[Req, Res, T]

	// Sorted entries, kept for introspection.
	entries []Entry[Req, Res, T]
	rl      *RateLimiter
	bh      *Bulkhead
	cache   Cache[string, T]
}

// Name returns the stack's name.
func (s *Stack[Req, Res, T]) Name() string { return s.name }

// Names returns the names of the layers in execution order, outermost first.
func (s *Stack[Req, Res, T]) Names() []string {
	names := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		names = append(names, e.Name)
	}

	return names
}

// Middleware returns the whole stack as a single middleware.
func (s *Stack[Req, Res, T]) Middleware() Middleware[Req, Res, T] {
	return s.chain
}

// Wrap composes the stack around h.
func (s *Stack[Req, Res, T]) Wrap(h Handler[Req, Res, T]) Handler[Req, Res, T] {
	return s.chain(h)
}

// RateLimiter returns the stack's rate limiter, or nil if it has none.
func (s *Stack[Req, Res, T]) RateLimiter() *RateLimiter { return s.rl }

// Bulkhead returns the stack's bulkhead, or nil if it has none.
func (s *Stack[Req, Res, T]) Bulkhead() *Bulkhead { return s.bh }

// Cache returns the stack's cache, or nil if it has none.
func (s *Stack[Req, Res, T]) Cache() Cache[string, T] { return s.cache }

// Close releases the background resources of the stack's cache, when its
// adapter has any. A closed stack keeps serving calls, but without caching.
func (s *Stack[Req, Res, T]) Close() {
	if c, ok := s.cache.(interface{ Close() }); ok {
		c.Close()
	}
}

// ---------------------------------------------------------------------------
// Non-generic option descriptors — stored as any, interpreted by NewStack
// ---------------------------------------------------------------------------

// stackOptionFunc is a non-generic option that modifies stackSetup.
type stackOptionFunc func(*stackSetup)

// stackSetup holds non-generic configuration collected during NewStack.
type stackSetup struct {
	clock    Clock
	logger   *slog.Logger
	registry *Registry
	hooks    Hooks
}

// timeoutDesc holds deferred timeout configuration.
type timeoutDesc struct {
	d time.Duration
}

// rateLimitDesc holds deferred rate limiter configuration.
type rateLimitDesc struct {
	opts []RateLimitOption
	rate float64
}

// bulkheadDesc holds deferred bulkhead configuration.
type bulkheadDesc struct {
	maxConcurrent int
}

// cacheDesc holds deferred cache configuration.
type cacheDesc struct {
	cfg CacheConfig
}

// loggingDesc enables request logging.
type loggingDesc struct{}

// cacheFactoryDesc holds a type-erased CacheFactory[T].
type cacheFactoryDesc struct {
	fn any
}

// cacheKeyDesc holds a type-erased func(Req) (string, bool).
type cacheKeyDesc struct {
	fn any
}

// middlewareDesc holds a type-erased custom Middleware[Req, Res, T].
type middlewareDesc struct {
	mw       any
	name     string
	priority int
}

// ---------------------------------------------------------------------------
// With* functions — all return any
// ---------------------------------------------------------------------------

// WithClock sets the clock used by the stock middleware within this stack.
func WithClock(c Clock) any {
	return stackOptionFunc(func(s *stackSetup) {
		s.clock = c
	})
}

// WithHooks adds lifecycle hooks for the stock middleware within this
// stack. Hooks given by several options are all called.
func WithHooks(h Hooks) any {
	return stackOptionFunc(func(s *stackSetup) {
		s.hooks = s.hooks.Merge(h)
	})
}

// WithLogger sets the logger used by [WithLogging]. Defaults to
// [slog.Default].
func WithLogger(l *slog.Logger) any {
	return stackOptionFunc(func(s *stackSetup) {
		s.logger = l
	})
}

// WithRegistry sets an explicit registry for the stack to register with.
// If not provided, named stacks auto-register with DefaultRegistry.
func WithRegistry(reg *Registry) any {
	return stackOptionFunc(func(s *stackSetup) {
		s.registry = reg
	})
}

// WithTimeout bounds every call to d.
func WithTimeout(d time.Duration) any {
	return timeoutDesc{d: d}
}

// WithRateLimit adds a token-bucket rate limiter that allows perSecond
// calls per second.
func WithRateLimit(perSecond float64, opts ...RateLimitOption) any {
	return rateLimitDesc{rate: perSecond, opts: opts}
}

// WithBulkhead adds a concurrency limiter that rejects calls when all slots
// are in use.
func WithBulkhead(maxConcurrent int) any {
	return bulkheadDesc{maxConcurrent: maxConcurrent}
}

// WithCache memoizes successful results. The cache itself is built by the
// [CacheFactory] given with [WithCacheFactory]; keys come from
// [WithCacheKey] or, by default, from [KeyOf].
func WithCache(cfg CacheConfig) any {
	return cacheDesc{cfg: cfg}
}

// WithCacheFactory sets the constructor of the cache enabled by [WithCache].
// T must match the Stack's result type.
func WithCacheFactory[T any](f CacheFactory[T]) any {
	return cacheFactoryDesc{fn: f}
}

// WithCacheKey overrides how the cache derives a key from a request. Req
// must match the Stack's request type.
func WithCacheKey[Req any](fn func(Req) (string, bool)) any {
	return cacheKeyDesc{fn: fn}
}

// WithLogging adds request logging as the outermost layer.
func WithLogging() any {
	return loggingDesc{}
}

// WithMiddleware adds a custom middleware at the given priority. Use the
// Priority constants to place it relative to the stock layers; entries with
// equal priority keep the order in which they were given.
func WithMiddleware[Req, Res, T any](priority int, name string, mw Middleware[Req, Res, T]) any {
	return middlewareDesc{priority: priority, name: name, mw: mw}
}

// ---------------------------------------------------------------------------
// NewStack[Req, Res, T] — construct and wire up the stack
// ---------------------------------------------------------------------------

// NewStack creates a new [Stack] with the given name and options.
//
// Options are processed in two phases: first, non-generic options (clock,
// hooks, logger) are collected; then, descriptors build their middleware
// using the resolved clock and hooks. For each stock layer the last option
// wins, so options appended after config-derived ones override them.
// Entries are auto-sorted by priority via [SortEntries] before chaining.
//
// NewStack panics if a generic option was instantiated with types that do
// not match the stack, or if a cache is configured without a factory.
func NewStack[Req ContextCarrier[Req], Res, T any](name string, opts ...any) *Stack[Req, Res, T] {
	var setup stackSetup

	// Phase 1: Collect non-generic options to resolve clock and hooks first.
	for _, opt := range opts {
		if sof, ok := opt.(stackOptionFunc); ok {
			sof(&setup)
		}
	}

	if setup.clock == nil {
		setup.clock = RealClock{}
	}

	if setup.logger == nil {
		setup.logger = slog.Default()
	}

	s := &Stack[Req, Res, T]{
		name:  name,
		hooks: setup.hooks,
		clock: setup.clock,
	}

	// Phase 2: Resolve descriptors; the last one of each kind wins.
	var (
		timeout  *timeoutDesc
		rl       *rateLimitDesc
		bh       *bulkheadDesc
		cache    *cacheDesc
		logging  bool
		factory  CacheFactory[T]
		keyFn    = KeyOf[Req]
		entries  []Entry[Req, Res, T]
		typeName = fmt.Sprintf("Stack[%T, %T, %T]", *new(Req), *new(Res), *new(T))
	)

	for _, opt := range opts {
		switch desc := opt.(type) {
		case stackOptionFunc:
			// Already processed in phase 1.

		case timeoutDesc:
			timeout = &desc

		case rateLimitDesc:
			rl = &desc

		case bulkheadDesc:
			bh = &desc

		case cacheDesc:
			cache = &desc

		case loggingDesc:
			logging = true

		case cacheFactoryDesc:
			fn, ok := desc.fn.(CacheFactory[T])
			if !ok {
				panic(fmt.Sprintf("wrappers: %s %q: cache factory has type %T", typeName, name, desc.fn))
			}

			factory = fn

		case cacheKeyDesc:
			fn, ok := desc.fn.(func(Req) (string, bool))
			if !ok {
				panic(fmt.Sprintf("wrappers: %s %q: cache key has type %T", typeName, name, desc.fn))
			}

			keyFn = fn

		case middlewareDesc:
			mw, ok := desc.mw.(Middleware[Req, Res, T])
			if !ok {
				panic(fmt.Sprintf("wrappers: %s %q: middleware %q has type %T", typeName, name, desc.name, desc.mw))
			}

			entries = append(entries, Entry[Req, Res, T]{
				Priority: desc.priority,
				Name:     desc.name,
				MW:       mw,
			})
		}
	}

	hooks := &s.hooks

	if logging {
		entries = append(entries, Entry[Req, Res, T]{
			Priority: PriorityLogging,
			Name:     "logging",
			MW:       RequestLogging[Req, Res, T](setup.logger.With("stack", name), s.clock),
		})
	}

	if timeout != nil {
		entries = append(entries, Entry[Req, Res, T]{
			Priority: PriorityTimeout,
			Name:     "timeout",
			MW:       Timeout[Req, Res, T](timeout.d, hooks),
		})
	}

	if cache != nil {
		if factory == nil {
			panic(fmt.Sprintf("wrappers: stack %q: cache configured without WithCacheFactory", name))
		}

		s.cache = factory(cache.cfg)
		entries = append(entries, Entry[Req, Res, T]{
			Priority: PriorityCache,
			Name:     "cache",
			MW:       Memoize[Req, Res, T](s.cache, keyFn, cache.cfg.TTL, hooks),
		})
	}

	if rl != nil {
		s.rl = NewRateLimiter(rl.rate, s.clock, hooks, rl.opts...)
		entries = append(entries, Entry[Req, Res, T]{
			Priority: PriorityRateLimiter,
			Name:     "rate_limiter",
			MW:       RateLimit[Req, Res, T](s.rl),
		})
	}

	if bh != nil {
		s.bh = NewBulkhead(bh.maxConcurrent, hooks)
		entries = append(entries, Entry[Req, Res, T]{
			Priority: PriorityBulkhead,
			Name:     "bulkhead",
			MW:       Isolate[Req, Res, T](s.bh),
		})
	}

	s.entries = sortedEntries(entries)

	mws := make([]Middleware[Req, Res, T], 0, len(s.entries))
	for _, e := range s.entries {
		mws = append(mws, e.MW)
	}

	s.chain = Chain(mws...)

	// Auto-register if the stack has a name.
	if name != "" {
		reg := setup.registry
		if reg == nil {
			reg = DefaultRegistry()
		}

		reg.Register(s)
	}

	return s
}

// Wrap is a convenience function that composes an anonymous [Stack] around
// h. The stack is not registered with any [Registry].
func Wrap[Req ContextCarrier[Req], Res, T any](h Handler[Req, Res, T], opts ...any) Handler[Req, Res, T] {
	return NewStack[Req, Res, T]("", opts...).Wrap(h)
}
