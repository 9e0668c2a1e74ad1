package wrappers

import "sync/atomic"

// Bulkhead limits concurrent access to a resource.
//
// Pattern: Bulkhead — semaphore-based concurrency limiter prevents
// resource exhaustion; lock-free via atomic CAS for slot acquisition.
type Bulkhead struct {
	maxConcurrent int64
	current       atomic.Int64
	hooks         *Hooks
}

// NewBulkhead creates a bulkhead that allows at most maxConcurrent
// simultaneous calls.
func NewBulkhead(maxConcurrent int, hooks *Hooks) *Bulkhead {
	return &Bulkhead{
		maxConcurrent: int64(maxConcurrent),
		hooks:         hooks,
	}
}

// Acquire attempts to acquire a slot. Returns ErrBulkheadFull if at capacity.
func (b *Bulkhead) Acquire() error {
	for {
		cur := b.current.Load()
		if cur >= b.maxConcurrent {
			b.hooks.emitBulkheadFull()
			return ErrBulkheadFull
		}

		if b.current.CompareAndSwap(cur, cur+1) {
			b.hooks.emitBulkheadAcquired()
			return nil
		}
	}
}

// Release releases a slot.
func (b *Bulkhead) Release() {
	b.current.Add(-1)
	b.hooks.emitBulkheadReleased()
}

// InUse returns the number of slots currently held.
func (b *Bulkhead) InUse() int {
	return int(b.current.Load())
}

// Full returns true if all slots are in use.
func (b *Bulkhead) Full() bool {
	return b.current.Load() >= b.maxConcurrent
}

// Isolate returns a middleware that holds a slot of b for the duration of
// next. The slot is released even if next panics.
func Isolate[Req, Res, T any](b *Bulkhead) Middleware[Req, Res, T] {
	return func(next Handler[Req, Res, T]) Handler[Req, Res, T] {
		return func(req Req, res Res) (T, error) {
			if err := b.Acquire(); err != nil {
				var zero T
				return zero, err
			}
			defer b.Release()

			return next(req, res)
		}
	}
}
