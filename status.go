package wrappers

// ---------------------------------------------------------------------------
// StatusReporter interface
// ---------------------------------------------------------------------------.

type (
	// StatusReporter is implemented by all Stack[Req, Res, T] instances.
	// The interface is non-generic, allowing stacks with different type
	// parameters to live in one [Registry].
	StatusReporter interface {
		// Name returns the stack's name.
		Name() string
		// Status returns the current state of the stack's stateful layers.
		Status() StackStatus
	}

	// StackStatus is a point-in-time view of a stack.
	StackStatus struct {
		Name                 string   `json:"name"`
		Layers               []string `json:"layers"`
		BulkheadInUse        int      `json:"bulkhead_in_use,omitempty"`
		RateLimiterSaturated bool     `json:"rate_limiter_saturated,omitempty"`
		BulkheadFull         bool     `json:"bulkhead_full,omitempty"`
	}
)

// Status inspects the stack's rate limiter and bulkhead.
func (s *Stack[Req, Res, T]) Status() StackStatus {
	status := StackStatus{
		Name:   s.name,
		Layers: s.Names(),
	}

	if s.rl != nil {
		status.RateLimiterSaturated = s.rl.Saturated()
	}

	if s.bh != nil {
		status.BulkheadInUse = s.bh.InUse()
		status.BulkheadFull = s.bh.Full()
	}

	return status
}

// Saturated reports whether any stateful layer is currently refusing work.
func (st StackStatus) Saturated() bool {
	return st.RateLimiterSaturated || st.BulkheadFull
}
