package wrappers

import "sort"

// Entry holds a middleware with its priority for auto-ordering.
type Entry[Req, Res, T any] struct {
	MW       Middleware[Req, Res, T]
	Name     string
	Priority int
}

// Priority constants define the execution order of the stock middleware in
// a [Stack]. Lower priority = outermost middleware (executed first).
const (
	PriorityLogging     = 0 // outermost, sees every outcome
	PriorityTimeout     = 1
	PriorityCache       = 2 // hits skip the limiters below
	PriorityRateLimiter = 3
	PriorityBulkhead    = 4 // innermost, closest to the handler
)

// SortEntries sorts entries by priority (lowest first = outermost) and
// returns their middlewares. Stable sort to preserve order of entries with
// the same priority.
func SortEntries[Req, Res, T any](entries []Entry[Req, Res, T]) []Middleware[Req, Res, T] {
	if len(entries) == 0 {
		return nil
	}

	sorted := sortedEntries(entries)

	mws := make([]Middleware[Req, Res, T], 0, len(sorted))
	for _, e := range sorted {
		mws = append(mws, e.MW)
	}

	return mws
}

func sortedEntries[Req, Res, T any](entries []Entry[Req, Res, T]) []Entry[Req, Res, T] {
	// Copy to avoid mutating the caller's slice.
	sorted := make([]Entry[Req, Res, T], 0, len(entries))
	sorted = append(sorted, entries...)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})

	return sorted
}
