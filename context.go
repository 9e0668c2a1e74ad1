package wrappers

import "context"

// ContextCarrier is the dependency set of the stock middleware that needs a
// request-scoped context: the request exposes its context and can produce a
// copy of itself carrying a derived one.
//
// *http.Request satisfies ContextCarrier[*http.Request]. Request shapes that
// embed another carrier must declare their own WithContext returning their
// own type, or the promoted method returns the embedded shape instead.
type ContextCarrier[R any] interface {
	Context() context.Context
	WithContext(ctx context.Context) R
}
