package httpx

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	json "github.com/goccy/go-json"

	"github.com/byte4ever/wrappers"
)

type (
	// Handler is a wrappers.Handler that writes to an http.ResponseWriter.
	Handler[Req, T any] = wrappers.Handler[Req, http.ResponseWriter, T]

	// Middleware is a wrappers.Middleware over an http.ResponseWriter.
	Middleware[Req, T any] = wrappers.Middleware[Req, http.ResponseWriter, T]

	// Wrapper is a wrappers.Wrapper over an http.ResponseWriter.
	Wrapper[In, Out, T any] = wrappers.Wrapper[In, Out, http.ResponseWriter, T]
)

// StatusError carries the HTTP status code a handler wants reported.
type StatusError struct {
	Err  error
	Code int
}

// Error returns a human-readable description of the status error.
func (e *StatusError) Error() string {
	if e.Err == nil {
		return "http status " + strconv.Itoa(e.Code)
	}

	return "http status " + strconv.Itoa(e.Code) + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *StatusError) Unwrap() error { return e.Err }

// Error returns a *StatusError for code wrapping err.
func Error(code int, err error) error {
	return &StatusError{Code: code, Err: err}
}

// StatusOf maps an error returned by a chain to an HTTP status code.
func StatusOf(err error) int {
	var se *StatusError

	switch {
	case errors.As(err, &se):
		return se.Code
	case errors.Is(err, wrappers.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, wrappers.ErrBulkheadFull):
		return http.StatusServiceUnavailable
	case errors.Is(err, wrappers.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Serve returns an http.Handler that calls h once per request.
//
// If h returns an error before writing anything, the error is reported as
// {"error": "..."} with the code from [StatusOf]; internal errors are
// reported by status text only. If h returns a result without having
// written anything, the result is encoded as JSON with status 200. If h
// wrote its own response, Serve adds nothing.
func Serve[T any](h Handler[*http.Request, T]) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cw := NewResponseCapture(w)

		val, err := h(r, cw)
		if cw.Written() {
			return
		}

		if err != nil {
			writeError(cw, err)
			return
		}

		writeJSON(cw, http.StatusOK, val)
	})
}

func writeError(w http.ResponseWriter, err error) {
	code := StatusOf(err)

	msg := http.StatusText(code)

	var se *StatusError
	if errors.As(err, &se) || wrappers.IsRejection(err) {
		msg = err.Error()
	}

	writeJSON(w, code, struct {
		Error string `json:"error"`
	}{Error: msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
