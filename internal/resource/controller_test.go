package resource

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_ItemLimit(t *testing.T) {
	c := NewController(Config{MaxItems: 2})
	assert.Equal(t, int64(2), c.MaxItems())

	require.NoError(t, c.AcquireItem())
	require.NoError(t, c.AcquireItem())
	assert.Equal(t, int64(2), c.Items())

	// Third item exceeds the budget and leaves usage unchanged.
	err := c.AcquireItem()
	assert.ErrorIs(t, err, ErrItemLimitExceeded)
	assert.Equal(t, int64(2), c.Items())

	c.ReleaseItem()
	assert.Equal(t, int64(1), c.Items())

	require.NoError(t, c.AcquireItem())
	assert.Equal(t, int64(2), c.Items())
}

func TestController_Unlimited(t *testing.T) {
	c := NewController(Config{})

	for range 1000 {
		require.NoError(t, c.AcquireItem())
	}
	assert.Equal(t, int64(1000), c.Items())
	assert.Equal(t, int64(0), c.MaxItems())

	c.ReleaseItem()
	assert.Equal(t, int64(999), c.Items())
}

func TestController_Nil(t *testing.T) {
	var c *Controller

	assert.NoError(t, c.AcquireItem())
	c.ReleaseItem()
	assert.Equal(t, int64(0), c.Items())
	assert.Equal(t, int64(0), c.MaxItems())
}

func TestController_Concurrent(t *testing.T) {
	const limit = 100

	c := NewController(Config{MaxItems: limit})

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		acquired int
	)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				if c.AcquireItem() == nil {
					mu.Lock()
					acquired++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, limit, acquired)
	assert.Equal(t, int64(limit), c.Items())
}
