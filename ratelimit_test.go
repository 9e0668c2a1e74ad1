package wrappers

import (
	"context"
	"errors"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// Non-blocking mode rejects once the bucket is empty
// ---------------------------------------------------------------------------

func TestRateLimiterRejectsWhenEmpty(t *testing.T) {
	clock := newFakeClock()
	limited := 0

	rl := NewRateLimiter(2, clock, &Hooks{OnRateLimited: func() { limited++ }})

	for i := range 2 {
		if err := rl.Allow(context.Background()); err != nil {
			t.Fatalf("Allow() #%d = %v, want nil", i+1, err)
		}
	}

	if err := rl.Allow(context.Background()); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("Allow() on empty bucket = %v, want ErrRateLimited", err)
	}

	if limited != 1 {
		t.Fatalf("OnRateLimited fired %d times, want 1", limited)
	}
}

// ---------------------------------------------------------------------------
// Tokens refill as the clock advances
// ---------------------------------------------------------------------------

func TestRateLimiterRefills(t *testing.T) {
	clock := newFakeClock()
	rl := NewRateLimiter(10, clock, nil, RateLimitBurst(1))

	if err := rl.Allow(context.Background()); err != nil {
		t.Fatalf("Allow() = %v, want nil", err)
	}

	if !rl.Saturated() {
		t.Fatal("Saturated() = false after draining a bucket of one")
	}

	if err := rl.Allow(context.Background()); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("Allow() = %v, want ErrRateLimited", err)
	}

	clock.advance(150 * time.Millisecond)

	if rl.Saturated() {
		t.Fatal("Saturated() = true after a refill interval")
	}

	if err := rl.Allow(context.Background()); err != nil {
		t.Fatalf("Allow() after refill = %v, want nil", err)
	}
}

// ---------------------------------------------------------------------------
// Burst defaults to one second worth of tokens, at least one
// ---------------------------------------------------------------------------

func TestRateLimiterDefaultBurst(t *testing.T) {
	for _, tc := range []struct {
		rate float64
		want int
	}{
		{rate: 5, want: 5},
		{rate: 0.5, want: 1},
	} {
		rl := NewRateLimiter(tc.rate, newFakeClock(), nil)

		if got := rl.limiter.Burst(); got != tc.want {
			t.Fatalf("NewRateLimiter(%v) burst = %d, want %d", tc.rate, got, tc.want)
		}
	}
}

// ---------------------------------------------------------------------------
// Blocking mode waits and honours the request context
// ---------------------------------------------------------------------------

func TestRateLimiterBlockingWaits(t *testing.T) {
	rl := NewRateLimiter(200, nil, nil, RateLimitBurst(1), RateLimitBlocking())

	ctx := context.Background()

	start := time.Now()

	for range 3 {
		if err := rl.Allow(ctx); err != nil {
			t.Fatalf("Allow() = %v, want nil", err)
		}
	}

	if elapsed := time.Since(start); elapsed < 5*time.Millisecond {
		t.Fatalf("three blocking calls took %v, want at least 5ms", elapsed)
	}
}

func TestRateLimiterBlockingCancelled(t *testing.T) {
	rl := NewRateLimiter(0.001, nil, nil, RateLimitBurst(1), RateLimitBlocking())

	if err := rl.Allow(context.Background()); err != nil {
		t.Fatalf("Allow() = %v, want nil", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := rl.Allow(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Allow() with cancelled ctx = %v, want context.Canceled", err)
	}
}

func TestRateLimiterBlockingDeadlineTooShort(t *testing.T) {
	rl := NewRateLimiter(0.001, nil, nil, RateLimitBurst(1), RateLimitBlocking())
	_ = rl.Allow(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()

	// The next token is ~1000s away, beyond the deadline: the limiter
	// refuses immediately without cancelling ctx.
	if err := rl.Allow(ctx); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("Allow() = %v, want ErrRateLimited", err)
	}
}

func TestRateLimiterBlockingFollowsClock(t *testing.T) {
	clock := newFakeClock()
	limited := 0

	rl := NewRateLimiter(10, clock, &Hooks{OnRateLimited: func() { limited++ }},
		RateLimitBurst(1), RateLimitBlocking())

	if err := rl.Allow(context.Background()); err != nil {
		t.Fatalf("Allow() = %v, want nil", err)
	}

	// The next token is 100ms away on the clock; a 20ms real deadline is
	// too short.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := rl.Allow(ctx); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("Allow() before refill = %v, want ErrRateLimited", err)
	}

	if limited != 1 {
		t.Fatalf("OnRateLimited fired %d times, want 1", limited)
	}

	clock.advance(150 * time.Millisecond)

	start := time.Now()

	if err := rl.Allow(ctx); err != nil {
		t.Fatalf("Allow() after clock refill = %v, want nil", err)
	}

	if elapsed := time.Since(start); elapsed > 10*time.Millisecond {
		t.Fatalf("Allow() after clock refill waited %v, want no wait", elapsed)
	}
}

// ---------------------------------------------------------------------------
// RateLimit middleware short-circuits
// ---------------------------------------------------------------------------

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, newFakeClock(), nil)
	calls := 0

	h := RateLimit[*ctxRequest, struct{}, string](rl)(func(*ctxRequest, struct{}) (string, error) {
		calls++
		return "ok", nil
	})

	if _, err := h(newCtxRequest("a"), struct{}{}); err != nil {
		t.Fatalf("first call error = %v, want nil", err)
	}

	if _, err := h(newCtxRequest("a"), struct{}{}); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("second call error = %v, want ErrRateLimited", err)
	}

	if calls != 1 {
		t.Fatalf("handler calls = %d, want 1", calls)
	}
}
