package wrappers

import (
	"context"
	"errors"
	"time"
)

// Pattern: Timeout — hands the next handler a request whose context carries
// a deadline, returning ErrTimeout if the deadline cut the call short.
// Distinguishes between timeout-caused cancellation and parent context
// cancellation.

// Timeout returns a middleware that bounds next to d.
//
// next runs synchronously on the caller's goroutine with a derived context,
// so it must observe ctx.Done() to be interrupted; the response value is
// never touched after Timeout returns. A call that completes without error
// is never turned into a timeout. A failed call whose deadline expired
// reports ErrTimeout; if the parent context was cancelled instead, the
// parent's error is returned.
func Timeout[Req ContextCarrier[Req], Res, T any](d time.Duration, hooks *Hooks) Middleware[Req, Res, T] {
	return func(next Handler[Req, Res, T]) Handler[Req, Res, T] {
		return func(req Req, res Res) (T, error) {
			var zero T

			parent := req.Context()

			// If the parent context is already done, do not call next.
			if err := parent.Err(); err != nil {
				return zero, err //nolint:wrapcheck // preserving context error identity
			}

			ctx, cancel := context.WithTimeout(parent, d)
			defer cancel()

			val, err := next(req.WithContext(ctx), res)
			if err == nil {
				return val, nil
			}

			if parent.Err() != nil {
				return zero, parent.Err() //nolint:wrapcheck // preserving context error identity
			}

			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				hooks.emitTimeout()

				return zero, ErrTimeout
			}

			return val, err
		}
	}
}
