// Package resource enforces the store's optional item budget.
//
// The Controller wraps a weighted semaphore sized to the configured maximum
// number of live items. Acquisition never blocks: when the budget is used up
// AcquireItem fails immediately with ErrItemLimitExceeded and the caller
// decides what to do (evict, drop the insert, retry later).
//
//	rc := resource.NewController(resource.Config{MaxItems: 1_000_000})
//
//	if err := rc.AcquireItem(); err != nil {
//	    // ErrItemLimitExceeded
//	}
//	defer rc.ReleaseItem() // when the item is removed
//
// # Thread Safety
//
// All Controller methods are safe for concurrent use.
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully - they become no-ops.
// This allows optional limits without nil checks everywhere.
package resource
