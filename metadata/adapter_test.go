package metadata

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromAny(t *testing.T) {
	t.Run("Scalars", func(t *testing.T) {
		tests := []struct {
			name     string
			input    any
			expected Value
		}{
			{"nil", nil, Null()},
			{"Value", Int(1), Int(1)},
			{"bool", true, Bool(true)},
			{"string", "hello", String("hello")},
			{"float64", 3.14, Float(3.14)},
			{"float32", float32(1.5), Float(1.5)},
			{"int", int(1), Int(1)},
			{"int8", int8(-1), Int(-1)},
			{"int64", int64(1 << 40), Int(1 << 40)},
			{"uint8", uint8(7), Int(7)},
			{"uint32 max", uint32(math.MaxUint32), Int(int64(math.MaxUint32))},
			{"uint64 in range", uint64(math.MaxInt64), Int(math.MaxInt64)},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				v, err := FromAny(tc.input)
				require.NoError(t, err)
				assert.True(t, tc.expected.Equal(v), "got %+v", v)
			})
		}
	})

	t.Run("Uint64 overflow", func(t *testing.T) {
		_, err := FromAny(uint64(math.MaxInt64) + 1)
		assert.ErrorIs(t, err, ErrOutOfRange)
	})

	t.Run("Slices", func(t *testing.T) {
		v, err := FromAny([]any{1, "s", true})
		require.NoError(t, err)
		arr, ok := v.AsArray()
		require.True(t, ok)
		assert.Len(t, arr, 3)
		assert.True(t, Int(1).Equal(arr[0]))
		assert.True(t, String("s").Equal(arr[1]))
		assert.True(t, Bool(true).Equal(arr[2]))

		v, err = FromAny([]float32{0.5, 1})
		require.NoError(t, err)
		assert.True(t, Floats([]float64{0.5, 1}).Equal(v))

		v, err = FromAny([]bool{true, false})
		require.NoError(t, err)
		arr, _ = v.AsArray()
		assert.Len(t, arr, 2)
	})

	t.Run("Unsupported", func(t *testing.T) {
		_, err := FromAny(make(chan int))
		assert.ErrorIs(t, err, ErrUnsupportedType)

		_, err = FromAny([]any{struct{}{}})
		assert.ErrorIs(t, err, ErrUnsupportedType)
		assert.Contains(t, err.Error(), "index 0")
	})
}

func TestDocumentFromAny(t *testing.T) {
	doc, err := DocumentFromAny(map[string]any{
		"episode": 4,
		"reward":  0.5,
		"actor":   "a-1",
		"done":    false,
		"obs":     []float64{0.1, 0.2, 0.3},
	})
	require.NoError(t, err)

	assert.Len(t, doc, 5)
	ep, ok := doc["episode"].AsInt64()
	assert.True(t, ok)
	assert.Equal(t, int64(4), ep)
	actor, _ := doc["actor"].AsString()
	assert.Equal(t, "a-1", actor)

	_, err = DocumentFromAny(map[string]any{"bad": map[string]int{}})
	assert.ErrorIs(t, err, ErrUnsupportedType)
	assert.Contains(t, err.Error(), `field "bad"`)
}
