package wrappers

import "log/slog"

// RequestLogging returns a middleware that logs each call through next with
// its latency and, on failure, its error. Requests implementing
// [slog.LogValuer] are logged under the "request" key; other request values
// are left out so large structs never end up in the log.
//
// The middleware only observes: the result and error of next are returned
// unchanged.
func RequestLogging[Req, Res, T any](logger *slog.Logger, clock Clock) Middleware[Req, Res, T] {
	if logger == nil {
		logger = slog.Default()
	}

	if clock == nil {
		clock = RealClock{}
	}

	return func(next Handler[Req, Res, T]) Handler[Req, Res, T] {
		return func(req Req, res Res) (T, error) {
			start := clock.Now()

			attrs := make([]any, 0, 3)
			if lv, ok := any(req).(slog.LogValuer); ok {
				attrs = append(attrs, slog.Any("request", lv))
			}

			val, err := next(req, res)

			attrs = append(attrs, slog.Int64("latency_ms", clock.Since(start).Milliseconds()))

			if err != nil {
				logger.Warn("request failed", append(attrs, slog.Any("error", err))...)
				return val, err
			}

			logger.Info("request completed", attrs...)

			return val, nil
		}
	}
}

// LoggedArguments returns a middleware that logs prefix together with the
// request and response values at debug level, then calls next.
func LoggedArguments[Req, Res, T any](logger *slog.Logger, prefix string) Middleware[Req, Res, T] {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next Handler[Req, Res, T]) Handler[Req, Res, T] {
		return func(req Req, res Res) (T, error) {
			logger.Debug(prefix,
				slog.Any("request", req),
				slog.Any("response", res),
			)

			return next(req, res)
		}
	}
}
