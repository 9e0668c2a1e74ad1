package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// slotKey is the context key for the per-request result slot of FromStd.
type slotKey struct{}

type slot[T any] struct {
	val T
	err error
}

// statusWriter is implemented by [ResponseCapture].
type statusWriter interface {
	Written() bool
	Status() int
}

// FromStd bridges conventional net/http middleware into a chain. std is
// applied once, when the chain is composed; per request, the result and
// error of next travel back through std unchanged. If std answers the
// request itself without calling next, the bridged middleware returns the
// zero result and no error, and [Serve] leaves the response as std wrote it.
func FromStd[T any](std func(http.Handler) http.Handler) Middleware[*http.Request, T] {
	return func(next Handler[*http.Request, T]) Handler[*http.Request, T] {
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, ok := r.Context().Value(slotKey{}).(*slot[T])
			if !ok {
				// std replaced the context wholesale; still run next.
				_, _ = next(r, w)
				return
			}

			s.val, s.err = next(r, w)
		})

		wrapped := std(inner)

		return func(r *http.Request, w http.ResponseWriter) (T, error) {
			s := &slot[T]{}

			wrapped.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), slotKey{}, s)))

			return s.val, s.err
		}
	}
}

// AccessLog logs one line per request with the trace ID, the status code
// and the latency. It depends only on [Tracer], so it fits anywhere after
// [WithTrace], whatever has been contributed since.
func AccessLog[R Tracer, T any](logger *slog.Logger) Middleware[R, T] {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next Handler[R, T]) Handler[R, T] {
		return func(r R, w http.ResponseWriter) (T, error) {
			start := time.Now()

			val, err := next(r, w)

			status := StatusOf(err)
			if err == nil {
				status = http.StatusOK
			}

			if sw, ok := w.(statusWriter); ok && sw.Written() {
				status = sw.Status()
			}

			logger.Info("request completed",
				slog.String("trace_id", r.TraceID()),
				slog.Int("status", status),
				slog.Int64("latency_ms", time.Since(start).Milliseconds()),
			)

			return val, err
		}
	}
}
