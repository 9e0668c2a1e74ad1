// Package metrics instruments wrappers chains with Prometheus metrics.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/byte4ever/wrappers"
)

// Outcome label values.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeRejected = "rejected"
)

// Metrics holds all chain metrics.
type Metrics struct {
	CallsTotal    *prometheus.CounterVec
	CallDuration  *prometheus.HistogramVec
	InFlight      *prometheus.GaugeVec
	RejectedTotal *prometheus.CounterVec
	CacheLookups  *prometheus.CounterVec
	TimeoutsTotal *prometheus.CounterVec
}

// New creates and registers all chain metrics.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wrappers_calls_total",
				Help: "Total number of calls through a chain, by outcome.",
			},
			[]string{"chain", "outcome"},
		),
		CallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "wrappers_call_duration_seconds",
				Help: "Call duration in seconds.",
				// Buckets: 5ms, 10ms, 25ms, 50ms, 100ms, 250ms, 500ms, 1s, 2.5s, 5s, 10s
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"chain"},
		),
		InFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "wrappers_in_flight",
				Help: "Number of calls currently inside a chain.",
			},
			[]string{"chain"},
		),
		RejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wrappers_rejected_total",
				Help: "Total number of calls rejected by stock middleware, by reason.",
			},
			[]string{"chain", "reason"},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wrappers_cache_lookups_total",
				Help: "Total number of cache lookups, by result.",
			},
			[]string{"chain", "result"},
		),
		TimeoutsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wrappers_timeouts_total",
				Help: "Total number of calls cut short by a timeout.",
			},
			[]string{"chain"},
		),
	}

	reg.MustRegister(
		m.CallsTotal,
		m.CallDuration,
		m.InFlight,
		m.RejectedTotal,
		m.CacheLookups,
		m.TimeoutsTotal,
	)

	return m
}

// Instrument returns a middleware that counts, times and tracks in-flight
// calls of chain. The result and error of next are returned unchanged.
func Instrument[Req, Res, T any](m *Metrics, chain string) wrappers.Middleware[Req, Res, T] {
	inFlight := m.InFlight.WithLabelValues(chain)
	duration := m.CallDuration.WithLabelValues(chain)

	return func(next wrappers.Handler[Req, Res, T]) wrappers.Handler[Req, Res, T] {
		return func(req Req, res Res) (T, error) {
			start := time.Now()

			inFlight.Inc()
			defer inFlight.Dec()

			val, err := next(req, res)

			duration.Observe(time.Since(start).Seconds())
			m.CallsTotal.WithLabelValues(chain, outcome(err)).Inc()

			return val, err
		}
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case wrappers.IsRejection(err) && !errors.Is(err, wrappers.ErrTimeout):
		return OutcomeRejected
	default:
		return OutcomeError
	}
}

// Hooks returns stock middleware hooks that feed the rejection, timeout
// and cache metrics of chain.
func (m *Metrics) Hooks(chain string) wrappers.Hooks {
	return wrappers.Hooks{
		OnTimeout: m.TimeoutsTotal.WithLabelValues(chain).Inc,
		OnRateLimited: m.RejectedTotal.
			WithLabelValues(chain, "rate_limited").Inc,
		OnBulkheadFull: m.RejectedTotal.
			WithLabelValues(chain, "bulkhead_full").Inc,
		OnCacheHit:  m.CacheLookups.WithLabelValues(chain, "hit").Inc,
		OnCacheMiss: m.CacheLookups.WithLabelValues(chain, "miss").Inc,
	}
}

// Handler returns the HTTP handler for the /metrics endpoint.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
