// Package refcount provides an atomic shared-ownership counter.
//
// A RefCount does not know what it counts. The item store pairs one counter
// with each live record and removes the record when the counter reaches zero.
//
//	rc := refcount.New(1)
//	rc.Increment()             // 2
//	n, err := rc.Decrement()   // 1, nil
//	n, err = rc.Decrement()    // 0, nil
//	_, err = rc.Decrement()    // 0, ErrUnderflow
//
// # Thread Safety
//
// All methods are safe for concurrent use. Load is observational only and may
// be stale by the time it returns.
package refcount
