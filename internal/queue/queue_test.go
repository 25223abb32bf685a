package queue

import (
	"testing"

	"github.com/hupe1980/replaytables/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgeQueue_Order(t *testing.T) {
	q := NewAge(4)

	q.PushItem(AgeItem{Slot: 3, Seq: 30})
	q.PushItem(AgeItem{Slot: 1, Seq: 10})
	q.PushItem(AgeItem{Slot: 2, Seq: 20})
	assert.Equal(t, 3, q.Len())

	top, ok := q.TopItem()
	require.True(t, ok)
	assert.Equal(t, AgeItem{Slot: 1, Seq: 10}, top)

	for _, want := range []int{1, 2, 3} {
		item, ok := q.PopItem()
		require.True(t, ok)
		assert.Equal(t, want, item.Slot)
	}

	_, ok = q.PopItem()
	assert.False(t, ok)
	_, ok = q.TopItem()
	assert.False(t, ok)
}

func TestAgeQueue_Random(t *testing.T) {
	q := NewAge(0)
	rng := testutil.NewRNG(5)

	for i := range 1000 {
		q.PushItem(AgeItem{Slot: i, Seq: rng.Uint64()})
	}

	var last uint64
	for q.Len() > 0 {
		item, _ := q.PopItem()
		assert.GreaterOrEqual(t, item.Seq, last)
		last = item.Seq
	}

	q.PushItem(AgeItem{Slot: 1, Seq: 1})
	q.Reset()
	assert.Equal(t, 0, q.Len())
}
