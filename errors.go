package wrappers

import "errors"

// ---------------------------------------------------------------------------
// Rejection errors raised by the stock middleware
// ---------------------------------------------------------------------------.

type (
	// WrapperError identifies errors produced by the stock middleware of this
	// package, as opposed to errors returned by the wrapped handler.
	//nolint:iface // exported for consumer error classification.
	WrapperError interface {
		error
		// IsWrapper reports whether this error originates from a stock
		// middleware.
		IsWrapper() bool
	}

	// wrapperError is the concrete type backing all sentinel errors.
	wrapperError string
)

// Sentinel rejection errors. The composer itself never returns any of them.
var (
	// ErrTimeout is returned when a handler exceeds its deadline.
	ErrTimeout error = wrapperError("timeout")
	// ErrRateLimited is returned when a request is rejected by a rate limiter.
	ErrRateLimited error = wrapperError("rate limited")
	// ErrBulkheadFull is returned when the bulkhead has no available capacity.
	ErrBulkheadFull error = wrapperError("bulkhead full")
)

func (e wrapperError) Error() string { return string(e) }

// IsWrapper reports whether the error is a stock middleware rejection.
func (wrapperError) IsWrapper() bool { return true }

// IsRejection reports whether err, or any error it wraps, was produced by a
// stock middleware refusing to call the next handler.
func IsRejection(err error) bool {
	var we WrapperError

	return errors.As(err, &we) && we.IsWrapper()
}
