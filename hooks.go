package wrappers

// Hooks holds optional callback functions for stock middleware events. All
// fields are nil by default; callers set only the hooks they care about.
// Once constructed, a Hooks value must not be mutated: emit methods read
// the function fields without synchronisation.
//
// Pattern: Observer — decouples event emission from consumers (logging,
// metrics) without the middleware knowing about observers.
type Hooks struct {
	OnTimeout          func()
	OnRateLimited      func()
	OnBulkheadFull     func()
	OnBulkheadAcquired func()
	OnBulkheadReleased func()
	OnCacheHit         func()
	OnCacheMiss        func()
}

// Merge returns hooks that call h's callback and then other's for every
// event either of them handles.
func (h Hooks) Merge(other Hooks) Hooks {
	return Hooks{
		OnTimeout:          both(h.OnTimeout, other.OnTimeout),
		OnRateLimited:      both(h.OnRateLimited, other.OnRateLimited),
		OnBulkheadFull:     both(h.OnBulkheadFull, other.OnBulkheadFull),
		OnBulkheadAcquired: both(h.OnBulkheadAcquired, other.OnBulkheadAcquired),
		OnBulkheadReleased: both(h.OnBulkheadReleased, other.OnBulkheadReleased),
		OnCacheHit:         both(h.OnCacheHit, other.OnCacheHit),
		OnCacheMiss:        both(h.OnCacheMiss, other.OnCacheMiss),
	}
}

func both(a, b func()) func() {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	default:
		return func() {
			a()
			b()
		}
	}
}

func (h *Hooks) emitTimeout() {
	if h != nil && h.OnTimeout != nil {
		h.OnTimeout()
	}
}

func (h *Hooks) emitRateLimited() {
	if h != nil && h.OnRateLimited != nil {
		h.OnRateLimited()
	}
}

func (h *Hooks) emitBulkheadFull() {
	if h != nil && h.OnBulkheadFull != nil {
		h.OnBulkheadFull()
	}
}

func (h *Hooks) emitBulkheadAcquired() {
	if h != nil && h.OnBulkheadAcquired != nil {
		h.OnBulkheadAcquired()
	}
}

func (h *Hooks) emitBulkheadReleased() {
	if h != nil && h.OnBulkheadReleased != nil {
		h.OnBulkheadReleased()
	}
}

func (h *Hooks) emitCacheHit() {
	if h != nil && h.OnCacheHit != nil {
		h.OnCacheHit()
	}
}

func (h *Hooks) emitCacheMiss() {
	if h != nil && h.OnCacheMiss != nil {
		h.OnCacheMiss()
	}
}
