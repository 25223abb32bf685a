package slots

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocator_FirstFree(t *testing.T) {
	a := New(4, false)
	assert.Equal(t, 4, a.Capacity())

	for want := range 4 {
		slot, err := a.Acquire(uint64(want + 1))
		require.NoError(t, err)
		assert.Equal(t, want, slot)
	}
	assert.Equal(t, 4, a.Len())

	_, err := a.Acquire(99)
	assert.ErrorIs(t, err, ErrNoFreeSlot)

	// Releasing slot 1 makes it the next slot handed out.
	require.True(t, a.Release(1, 2))
	assert.Equal(t, uint64(0), a.Owner(1))

	slot, err := a.Acquire(5)
	require.NoError(t, err)
	assert.Equal(t, 1, slot)
	assert.Equal(t, uint64(5), a.Owner(1))
}

func TestAllocator_ReleaseRequiresOwner(t *testing.T) {
	a := New(2, false)

	slot, err := a.Acquire(7)
	require.NoError(t, err)

	assert.False(t, a.Release(slot, 8), "wrong owner")
	assert.True(t, a.Release(slot, 7))
	assert.False(t, a.Release(slot, 7), "already free")
	assert.False(t, a.Release(-1, 7))
	assert.False(t, a.Release(2, 7))
}

func TestAllocator_AcquireAt(t *testing.T) {
	a := New(3, false)

	require.NoError(t, a.AcquireAt(2, 10))
	assert.ErrorIs(t, a.AcquireAt(2, 11), ErrSlotOccupied)
	assert.ErrorIs(t, a.AcquireAt(3, 11), ErrSlotOutOfRange)
	assert.ErrorIs(t, a.AcquireAt(-1, 11), ErrSlotOutOfRange)

	slot, err := a.Acquire(12)
	require.NoError(t, err)
	assert.Equal(t, 0, slot)

	var seen []int
	a.Occupied(func(slot int, id uint64) bool {
		seen = append(seen, slot)
		return true
	})
	assert.Equal(t, []int{0, 2}, seen)
}

func TestAllocator_Oldest(t *testing.T) {
	a := New(3, true)

	for id := uint64(1); id <= 3; id++ {
		_, err := a.Acquire(id)
		require.NoError(t, err)
	}

	slot, id, ok := a.Oldest()
	require.True(t, ok)
	assert.Equal(t, 0, slot)
	assert.Equal(t, uint64(1), id)

	// Release the oldest and reuse its slot; slot 1 is now the oldest.
	require.True(t, a.Release(0, 1))
	_, err := a.Acquire(4)
	require.NoError(t, err)

	slot, id, ok = a.Oldest()
	require.True(t, ok)
	assert.Equal(t, 1, slot)
	assert.Equal(t, uint64(2), id)

	require.True(t, a.Release(1, 2))
	require.True(t, a.Release(2, 3))
	slot, id, ok = a.Oldest()
	require.True(t, ok)
	assert.Equal(t, 0, slot)
	assert.Equal(t, uint64(4), id)

	_, _, ok = New(1, false).Oldest()
	assert.False(t, ok, "age tracking disabled")
}

func TestAllocator_AgeCompaction(t *testing.T) {
	a := New(2, true)

	// Churn a single slot far beyond the compaction threshold.
	for id := uint64(1); id < 100; id++ {
		slot, err := a.Acquire(id)
		require.NoError(t, err)
		require.True(t, a.Release(slot, id))
	}
	assert.LessOrEqual(t, a.age.Len(), 4)

	_, err := a.Acquire(500)
	require.NoError(t, err)
	_, id, ok := a.Oldest()
	require.True(t, ok)
	assert.Equal(t, uint64(500), id)
}

func TestAllocator_Concurrent(t *testing.T) {
	const capacity = 512

	a := New(capacity, true)

	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range capacity / 8 {
				id := uint64(w*capacity + i + 1)
				_, err := a.Acquire(id)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, capacity, a.Len())

	seen := make(map[uint64]bool, capacity)
	a.Occupied(func(slot int, id uint64) bool {
		assert.NotZero(t, id)
		assert.False(t, seen[id], "id %d in two slots", id)
		seen[id] = true
		return true
	})
	assert.Len(t, seen, capacity)
}

func TestAllocator_Seal(t *testing.T) {
	a := New(4, false)

	slot, err := a.Acquire(1)
	require.NoError(t, err)

	a.Seal()

	_, err = a.Acquire(2)
	assert.ErrorIs(t, err, ErrSealed)
	assert.ErrorIs(t, a.AcquireAt(3, 2), ErrSealed)

	// Existing slots can still be released after sealing.
	assert.True(t, a.Release(slot, 1))
	assert.Equal(t, 0, a.Len())
}

func TestAllocator_Terminal(t *testing.T) {
	a := New(2, false)

	slot, err := a.Acquire(7)
	require.NoError(t, err)

	assert.False(t, a.MarkTerminal(slot, 8, true), "wrong owner")
	assert.False(t, a.MarkTerminal(1, 7, true), "free slot")
	assert.False(t, a.Terminal(slot))

	assert.True(t, a.MarkTerminal(slot, 7, true))
	assert.True(t, a.Terminal(slot))
	assert.True(t, a.MarkTerminal(slot, 7, false))
	assert.False(t, a.Terminal(slot))

	require.True(t, a.MarkTerminal(slot, 7, true))
	require.True(t, a.Release(slot, 7))
	assert.False(t, a.Terminal(slot), "released slot drops the flag")

	slot, err = a.Acquire(9)
	require.NoError(t, err)
	assert.False(t, a.Terminal(slot))
}
