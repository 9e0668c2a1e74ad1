// Package wrappers composes middleware around a terminal handler while
// keeping the request type visible to the compiler.
//
// The central operation is a right fold: [Compose] and [Chain] take an
// ordered list of [Middleware] and nest them so that the first one listed
// runs first. [Pipeline] does the same for [Wrapper] values that change the
// request shape as it travels inward, so a handler that needs a field some
// wrapper adds will not compile unless that wrapper sits in front of it.
//
// On top of the composer the package ships ready-made middleware (timeout,
// rate limiting, bulkhead isolation, memoization, logging) and [Stack], a
// named, priority-ordered bundle of them that can be loaded from JSON, YAML
// or TOML configuration.
package wrappers
