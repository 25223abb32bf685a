package resource

import (
	"errors"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// ErrItemLimitExceeded is returned when the item budget is exhausted.
var ErrItemLimitExceeded = errors.New("item limit exceeded")

// Config holds resource limits.
type Config struct {
	// MaxItems is the maximum number of live items.
	// If 0, no limit is enforced (only tracking).
	MaxItems int64
}

// Controller tracks and limits live items.
type Controller struct {
	cfg Config

	itemSem *semaphore.Weighted // nil if unlimited
	items   atomic.Int64
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	c := &Controller{cfg: cfg}

	if cfg.MaxItems > 0 {
		c.itemSem = semaphore.NewWeighted(cfg.MaxItems)
	}

	return c
}

// AcquireItem reserves budget for one item. Non-blocking.
func (c *Controller) AcquireItem() error {
	if c == nil {
		return nil
	}

	if c.itemSem != nil && !c.itemSem.TryAcquire(1) {
		return ErrItemLimitExceeded
	}

	c.items.Add(1)
	return nil
}

// ReleaseItem returns the budget of one removed item.
func (c *Controller) ReleaseItem() {
	if c == nil {
		return
	}

	if c.itemSem != nil {
		c.itemSem.Release(1)
	}
	c.items.Add(-1)
}

// Items returns the number of reserved items.
func (c *Controller) Items() int64 {
	if c == nil {
		return 0
	}
	return c.items.Load()
}

// MaxItems returns the configured limit (0 if unlimited).
func (c *Controller) MaxItems() int64 {
	if c == nil {
		return 0
	}
	return c.cfg.MaxItems
}
