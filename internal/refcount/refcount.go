package refcount

import (
	"errors"
	"sync/atomic"
)

// ErrUnderflow is returned when Decrement is called on a zero counter.
// It always indicates a double release by a caller.
var ErrUnderflow = errors.New("reference count underflow")

// RefCount is an atomic reference counter.
type RefCount struct {
	n atomic.Uint64
}

// New creates a counter with the given initial value.
func New(initial uint64) *RefCount {
	r := &RefCount{}
	r.n.Store(initial)
	return r
}

// Increment adds one owner and returns the new count.
func (r *RefCount) Increment() uint64 {
	return r.n.Add(1)
}

// Decrement removes one owner and returns the new count.
// The counter is left unchanged when it is already zero.
func (r *RefCount) Decrement() (uint64, error) {
	for {
		cur := r.n.Load()
		if cur == 0 {
			return 0, ErrUnderflow
		}
		if r.n.CompareAndSwap(cur, cur-1) {
			return cur - 1, nil
		}
	}
}

// Load returns the current count.
func (r *RefCount) Load() uint64 {
	return r.n.Load()
}
