package wrappers

type (
	// Handler is the innermost function of a chain. It receives a request
	// of type Req and a response of type Res and returns a result.
	Handler[Req, Res, T any] func(req Req, res Res) (T, error)

	// Wrapper receives the next handler in the chain and returns a handler
	// that accepts In and hands Out to next.
	//
	// The method set of In is what the wrapper depends on; whatever Out adds
	// on top of In is what it contributes. Request shapes that embed the
	// previous shape keep every earlier contribution reachable, so the
	// compiler checks a wrapper against everything contributed before it.
	Wrapper[In, Out, Res, T any] func(next Handler[Out, Res, T]) Handler[In, Res, T]

	// Middleware is a [Wrapper] that leaves the request shape unchanged.
	// It may still mutate the request value at runtime.
	Middleware[Req, Res, T any] func(next Handler[Req, Res, T]) Handler[Req, Res, T]
)

// Lift converts a [Middleware] into the equivalent [Wrapper] so it can be
// added to a [Pipeline] with [Then].
func Lift[Req, Res, T any](mw Middleware[Req, Res, T]) Wrapper[Req, Req, Res, T] {
	return Wrapper[Req, Req, Res, T](mw)
}
