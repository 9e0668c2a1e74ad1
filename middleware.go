package wrappers

import "slices"

// Pattern: Decorator — each middleware wraps the next, forming a composable
// chain where listing order determines execution order.

// Chain composes multiple middlewares into a single middleware.
// Middlewares are applied in order: the first middleware is the outermost
// wrapper.
//
// Chain(a, b, c) produces a(b(c(next))): a is outermost, c is innermost.
// Chain() with zero middlewares returns an identity middleware that passes
// through to next. Chain copies its arguments, so later changes to the
// caller's slice do not affect the result.
func Chain[Req, Res, T any](middlewares ...Middleware[Req, Res, T]) Middleware[Req, Res, T] {
	middlewares = slices.Clone(middlewares)

	return func(next Handler[Req, Res, T]) Handler[Req, Res, T] {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}

		return next
	}
}

// Compose wraps h in middlewares and returns the resulting handler. It is
// equivalent to Chain(middlewares...)(h): the wiring runs once, here, and
// every call to the returned handler walks the chain outermost first.
//
// Compose(nil, h) returns h itself. Compose never inspects, wraps or
// recovers the errors and panics raised by the chain.
func Compose[Req, Res, T any](middlewares []Middleware[Req, Res, T], h Handler[Req, Res, T]) Handler[Req, Res, T] {
	return Chain(middlewares...)(h)
}
