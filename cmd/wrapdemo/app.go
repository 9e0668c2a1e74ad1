package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/byte4ever/wrappers"
	"github.com/byte4ever/wrappers/httpx"
	"github.com/byte4ever/wrappers/metrics"
	"github.com/byte4ever/wrappers/otter"
	"github.com/byte4ever/wrappers/ristretto"
)

// greeting is the result of the demo endpoint.
type greeting struct {
	Message string    `json:"message"`
	TraceID string    `json:"trace_id"`
	At      time.Time `json:"at"`
}

// app is one build of the served handler together with the registry its
// stack reports to.
type app struct {
	handler  http.Handler
	registry *wrappers.Registry
	close    func()
}

// Close releases the stack's cache. Requests still in flight on a closed
// app finish without caching.
func (a *app) Close() {
	if a.close != nil {
		a.close()
	}
}

// cacheFactory builds the cache named by the configuration's backend.
func cacheFactory[T any]() wrappers.CacheFactory[T] {
	byRistretto, byOtter := ristretto.Factory[T](), otter.Factory[T]()

	return func(cfg wrappers.CacheConfig) wrappers.Cache[string, T] {
		if cfg.Backend == wrappers.CacheBackendRistretto {
			return byRistretto(cfg)
		}

		return byOtter(cfg)
	}
}

// hello is the terminal handler of the demo endpoint.
func hello(r *httpx.Traced, _ http.ResponseWriter) (greeting, error) {
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "world"
	}

	select {
	case <-r.Context().Done():
		return greeting{}, r.Context().Err()
	default:
	}

	return greeting{
		Message: "hello, " + name,
		TraceID: r.TraceID(),
		At:      time.Now().UTC(),
	}, nil
}

// buildApp loads configPath and composes the demo endpoint:
//
//	WithTrace -> AccessLog -> Instrument -> <stack> -> hello
//
// Composition happens here, once per build.
func buildApp(configPath, stackName string, m *metrics.Metrics, logger *slog.Logger) (*app, error) {
	reg, err := wrappers.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	stack := wrappers.GetStack[*httpx.Traced, http.ResponseWriter, greeting](
		reg,
		stackName,
		wrappers.WithLogger(logger),
		wrappers.WithHooks(m.Hooks(stackName)),
		wrappers.WithCacheFactory(cacheFactory[greeting]()),
	)

	p := wrappers.Then(
		wrappers.Begin[*http.Request, http.ResponseWriter, greeting](),
		httpx.WithTrace[greeting](),
	).Use(
		httpx.AccessLog[*httpx.Traced, greeting](logger),
		metrics.Instrument[*httpx.Traced, http.ResponseWriter, greeting](m, stackName),
		stack.Middleware(),
	)

	logger.Info("stack composed",
		slog.String("stack", stackName),
		slog.Any("layers", stack.Names()),
	)

	return &app{
		handler:  httpx.Serve(p.Handle(hello)),
		registry: reg,
		close:    stack.Close,
	}, nil
}
