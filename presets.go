package wrappers

import "time"

// Pattern: Factory Function — each preset produces a ready-made option bundle
// for a common use case, avoiding boilerplate configuration.

// StandardHTTPStack returns options suitable for a typical HTTP endpoint:
// request logging, a 5s timeout and a 100 requests/second rate limit with a
// burst of 200.
func StandardHTTPStack() []any {
	return []any{
		WithLogging(),
		WithTimeout(5 * time.Second),
		WithRateLimit(100, RateLimitBurst(200)),
	}
}

// StrictHTTPStack returns options for endpoints guarding a scarce backend:
// request logging, a 2s timeout, 20 requests/second without burst headroom
// and at most 10 concurrent calls.
func StrictHTTPStack() []any {
	return []any{
		WithLogging(),
		WithTimeout(2 * time.Second),
		WithRateLimit(20, RateLimitBurst(20)),
		WithBulkhead(10),
	}
}
