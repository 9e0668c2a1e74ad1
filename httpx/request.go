package httpx

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
)

// TraceHeader is the header carrying the request trace ID.
const TraceHeader = "X-Request-ID"

// ErrUnauthorized is wrapped in the *StatusError returned by
// [WithBasicAuth] when credentials are missing or wrong.
var ErrUnauthorized = errors.New("unauthorized")

// traceKey is the context key for the trace ID.
type traceKey struct{}

// Tracer is the dependency set of middleware that needs a trace ID.
type Tracer interface {
	TraceID() string
}

// ---------------------------------------------------------------------------
// Traced
// ---------------------------------------------------------------------------

// Traced is an *http.Request with a trace ID attached.
type Traced struct {
	*http.Request
	traceID string
}

// TraceID returns the request trace ID.
func (t *Traced) TraceID() string { return t.traceID }

// WithContext returns a shallow copy of t carrying ctx.
func (t *Traced) WithContext(ctx context.Context) *Traced {
	return &Traced{Request: t.Request.WithContext(ctx), traceID: t.traceID}
}

// CacheKey keys GET and HEAD requests by method and request URI.
func (t *Traced) CacheKey() (string, bool) {
	if t.Method != http.MethodGet && t.Method != http.MethodHead {
		return "", false
	}

	return t.Method + " " + t.URL.RequestURI(), true
}

// LogValue implements slog.LogValuer.
func (t *Traced) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("method", t.Method),
		slog.String("path", t.URL.Path),
		slog.String("trace_id", t.traceID),
	)
}

// WithTrace contributes a trace ID. It reuses the client's X-Request-ID
// header when present and generates a random one otherwise. The ID is
// stored in the request context and echoed on the response.
func WithTrace[T any]() Wrapper[*http.Request, *Traced, T] {
	return func(next Handler[*Traced, T]) Handler[*http.Request, T] {
		return func(r *http.Request, w http.ResponseWriter) (T, error) {
			id := r.Header.Get(TraceHeader)
			if id == "" {
				id = GenerateTraceID()
			}

			w.Header().Set(TraceHeader, id)

			r = r.WithContext(context.WithValue(r.Context(), traceKey{}, id))

			return next(&Traced{Request: r, traceID: id}, w)
		}
	}
}

// TraceIDFrom retrieves the trace ID stored by [WithTrace] from ctx.
func TraceIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(traceKey{}).(string); ok {
		return id
	}

	return ""
}

// GenerateTraceID creates a random 16-byte hex string.
func GenerateTraceID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)

	return hex.EncodeToString(b)
}

// ---------------------------------------------------------------------------
// Authenticated
// ---------------------------------------------------------------------------

// Authenticated is a [Traced] request whose caller has been identified.
type Authenticated struct {
	*Traced
	principal string
}

// Principal returns the authenticated user name.
func (a *Authenticated) Principal() string { return a.principal }

// WithContext returns a shallow copy of a carrying ctx.
func (a *Authenticated) WithContext(ctx context.Context) *Authenticated {
	return &Authenticated{Traced: a.Traced.WithContext(ctx), principal: a.principal}
}

// CacheKey scopes the traced key to the principal.
func (a *Authenticated) CacheKey() (string, bool) {
	key, ok := a.Traced.CacheKey()
	if !ok {
		return "", false
	}

	return a.principal + "|" + key, true
}

// LogValue implements slog.LogValuer.
func (a *Authenticated) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("method", a.Method),
		slog.String("path", a.URL.Path),
		slog.String("trace_id", a.TraceID()),
		slog.String("principal", a.principal),
	)
}

// WithBasicAuth contributes a principal. It depends on [Traced] so that
// rejected attempts can be correlated by trace ID. Missing or wrong
// credentials end the chain with a 401 *StatusError.
func WithBasicAuth[T any](realm string, check func(user, pass string) bool) Wrapper[*Traced, *Authenticated, T] {
	challenge := `Basic realm="` + realm + `"`

	return func(next Handler[*Authenticated, T]) Handler[*Traced, T] {
		return func(r *Traced, w http.ResponseWriter) (T, error) {
			user, pass, ok := r.BasicAuth()
			if !ok || !check(user, pass) {
				var zero T

				w.Header().Set("WWW-Authenticate", challenge)

				return zero, &StatusError{Code: http.StatusUnauthorized, Err: ErrUnauthorized}
			}

			return next(&Authenticated{Traced: r, principal: user}, w)
		}
	}
}

// StaticCredentials returns a credential check accepting exactly one user
// name and password. Comparison is constant time.
func StaticCredentials(user, pass string) func(string, string) bool {
	return func(u, p string) bool {
		userOK := subtle.ConstantTimeCompare([]byte(u), []byte(user)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(p), []byte(pass)) == 1

		return userOK && passOK
	}
}
