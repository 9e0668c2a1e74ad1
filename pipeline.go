package wrappers

// Pipeline accumulates wrappers whose request shape may change from one
// layer to the next. In is the request the composed handler will accept and
// Out is the request the next layer (or the terminal handler) receives.
//
// Build one with [Begin], extend it with [Then] and [Pipeline.Use], and
// finish it with [Pipeline.Handle]. Pipelines are immutable values; every
// step returns a new one, so a common prefix can be shared safely. The zero
// Pipeline is not usable; start from Begin.
type Pipeline[In, Out, Res, T any] struct {
	wrap func(Handler[Out, Res, T]) Handler[In, Res, T]
}

// Begin starts an empty pipeline over Req.
func Begin[Req, Res, T any]() Pipeline[Req, Req, Res, T] {
	return Pipeline[Req, Req, Res, T]{
		wrap: func(next Handler[Req, Res, T]) Handler[Req, Res, T] {
			return next
		},
	}
}

// Then appends w as the new innermost layer of p. The request w receives
// must be exactly what p currently produces, so a wrapper whose
// dependencies are not yet satisfied does not compile.
//
// Then is a function rather than a method because it introduces the new
// request type parameter Out.
func Then[In, Mid, Out, Res, T any](
	p Pipeline[In, Mid, Res, T],
	w Wrapper[Mid, Out, Res, T],
) Pipeline[In, Out, Res, T] {
	outer := p.wrap

	return Pipeline[In, Out, Res, T]{
		wrap: func(next Handler[Out, Res, T]) Handler[In, Res, T] {
			return outer(w(next))
		},
	}
}

// Use appends middlewares that operate on the current request shape.
func (p Pipeline[In, Out, Res, T]) Use(middlewares ...Middleware[Out, Res, T]) Pipeline[In, Out, Res, T] {
	if len(middlewares) == 0 {
		return p
	}

	outer := p.wrap
	inner := Chain(middlewares...)

	return Pipeline[In, Out, Res, T]{
		wrap: func(next Handler[Out, Res, T]) Handler[In, Res, T] {
			return outer(inner(next))
		},
	}
}

// Handle wraps h in every layer of the pipeline, innermost first, and
// returns the composed handler.
func (p Pipeline[In, Out, Res, T]) Handle(h Handler[Out, Res, T]) Handler[In, Res, T] {
	return p.wrap(h)
}

// Wrapper returns the pipeline as a single [Wrapper], so it can be nested
// inside another pipeline.
func (p Pipeline[In, Out, Res, T]) Wrapper() Wrapper[In, Out, Res, T] {
	return p.Handle
}
