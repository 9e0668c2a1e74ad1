package wrappers

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

type rateLimitConfig struct {
	burst    int
	blocking bool
}

// RateLimitOption configures rate limiter behavior.
type RateLimitOption func(*rateLimitConfig)

// RateLimitBlocking makes the rate limiter wait for a token instead of
// rejecting. Waiting is bounded by the request context.
func RateLimitBlocking() RateLimitOption {
	return func(cfg *rateLimitConfig) {
		cfg.blocking = true
	}
}

// RateLimitBurst sets the bucket size. The default is one second worth of
// tokens (at least one).
func RateLimitBurst(burst int) RateLimitOption {
	return func(cfg *rateLimitConfig) {
		cfg.burst = burst
	}
}

// ---------------------------------------------------------------------------
// RateLimiter
// ---------------------------------------------------------------------------

// RateLimiter controls the rate of calls using a token bucket.
//
// Pattern: Rate Limiter — token bucket controls call throughput. The bucket
// itself is a [rate.Limiter]; the Clock decides what "now" is for both
// modes so tests can drive refills.
type RateLimiter struct {
	limiter *rate.Limiter
	clock   Clock
	hooks   *Hooks
	cfg     rateLimitConfig
}

// NewRateLimiter creates a rate limiter that allows perSecond tokens per
// second. The bucket starts full.
func NewRateLimiter(perSecond float64, clock Clock, hooks *Hooks, opts ...RateLimitOption) *RateLimiter {
	var cfg rateLimitConfig
	for _, o := range opts {
		o(&cfg)
	}

	if cfg.burst <= 0 {
		cfg.burst = max(int(perSecond), 1)
	}

	if clock == nil {
		clock = RealClock{}
	}

	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(perSecond), cfg.burst),
		clock:   clock,
		hooks:   hooks,
		cfg:     cfg,
	}
}

// Allow takes a token. In non-blocking mode it returns ErrRateLimited when
// the bucket is empty; in blocking mode it waits until a token is available
// or ctx is done. Both modes read the bucket at the Clock's "now"; only the
// wait itself runs in real time.
func (rl *RateLimiter) Allow(ctx context.Context) error {
	if !rl.cfg.blocking {
		if !rl.limiter.AllowN(rl.clock.Now(), 1) {
			rl.hooks.emitRateLimited()
			return ErrRateLimited
		}

		return nil
	}

	return rl.wait(ctx)
}

// wait reserves a token at the Clock's time and sleeps until it is due.
// The reservation is handed back if the wait cannot complete.
func (rl *RateLimiter) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		rl.hooks.emitRateLimited()
		return err //nolint:wrapcheck // preserving context error identity
	}

	now := rl.clock.Now()

	r := rl.limiter.ReserveN(now, 1)
	if !r.OK() {
		rl.hooks.emitRateLimited()
		return fmt.Errorf("%w: burst is below one token", ErrRateLimited)
	}

	delay := r.DelayFrom(now)
	if delay == 0 {
		return nil
	}

	if deadline, ok := ctx.Deadline(); ok && delay > time.Until(deadline) {
		r.CancelAt(now)
		rl.hooks.emitRateLimited()

		return fmt.Errorf("%w: wait of %s would exceed context deadline", ErrRateLimited, delay)
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		r.CancelAt(rl.clock.Now())
		rl.hooks.emitRateLimited()

		return ctx.Err() //nolint:wrapcheck // preserving context error identity
	}
}

// Saturated reports whether the bucket currently holds less than one token.
func (rl *RateLimiter) Saturated() bool {
	return rl.limiter.TokensAt(rl.clock.Now()) < 1
}

// RateLimit returns a middleware that takes a token from rl before calling
// next.
func RateLimit[Req ContextCarrier[Req], Res, T any](rl *RateLimiter) Middleware[Req, Res, T] {
	return func(next Handler[Req, Res, T]) Handler[Req, Res, T] {
		return func(req Req, res Res) (T, error) {
			if err := rl.Allow(req.Context()); err != nil {
				var zero T
				return zero, err
			}

			return next(req, res)
		}
	}
}
