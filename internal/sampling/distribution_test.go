package sampling

import (
	"math"
	"testing"

	"github.com/hupe1980/replaytables/sumtree"
	"github.com/hupe1980/replaytables/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDist(t *testing.T, capacity int, mutate func(*Config)) *Distribution {
	t.Helper()

	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	d, err := New(capacity, cfg)
	require.NoError(t, err)
	return d
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative exponent", func(c *Config) { c.PriorityExponent = -1 }},
		{"nan exponent", func(c *Config) { c.PriorityExponent = math.NaN() }},
		{"uniform above one", func(c *Config) { c.UniformProbability = 1.5 }},
		{"negative uniform", func(c *Config) { c.UniformProbability = -0.1 }},
		{"zero decay", func(c *Config) { c.MaxDecay = 0 }},
		{"decay above one", func(c *Config) { c.MaxDecay = 1.1 }},
		{"unknown mode", func(c *Config) { c.NewPriorityMode = "median" }},
		{"negative trace depth", func(c *Config) { c.TraceDepth = -1 }},
		{"zero trace decay", func(c *Config) { c.TraceDepth = 2; c.TraceDecay = 0 }},
		{"unknown combinator", func(c *Config) { c.TraceDepth = 2; c.Combinator = "min" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

			_, err := New(4, cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestNewInvalidCapacity(t *testing.T) {
	_, err := New(0, DefaultConfig())
	assert.ErrorIs(t, err, sumtree.ErrInvalidCapacity)
}

func TestWeightExponent(t *testing.T) {
	d := newDist(t, 4, func(c *Config) { c.PriorityExponent = 0.5 })

	w, err := d.Weight(16)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, w, 1e-12)

	_, err = d.Weight(-1)
	assert.ErrorIs(t, err, sumtree.ErrInvalidWeight)
	_, err = d.Weight(math.Inf(1))
	assert.ErrorIs(t, err, sumtree.ErrInvalidWeight)

	w, err = d.Admit(1, 9)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, w, 1e-12)
	assert.InDelta(t, 3.0, d.Total(), 1e-12)
}

func TestAdmitGiven(t *testing.T) {
	d := newDist(t, 4, nil)

	_, err := d.Admit(0, 5)
	require.NoError(t, err)
	_, err = d.Admit(1, 15)
	require.NoError(t, err)

	assert.Equal(t, 20.0, d.Total())
	assert.Equal(t, 2, d.Len())
	assert.Equal(t, 4, d.Capacity())

	_, err = d.Admit(2, -1)
	assert.ErrorIs(t, err, sumtree.ErrInvalidWeight)
	assert.Equal(t, 2, d.Len(), "failed admit must not occupy the slot")

	_, err = d.Admit(4, 1)
	assert.ErrorIs(t, err, sumtree.ErrIndexOutOfRange)
}

func TestAdmitMax(t *testing.T) {
	d := newDist(t, 4, func(c *Config) { c.NewPriorityMode = ModeMax })

	w, err := d.Admit(0, 100)
	require.NoError(t, err)
	assert.Equal(t, minPriority, w, "the first item gets the floor, not the given priority")

	_, err = d.Update(0, 7)
	require.NoError(t, err)

	w, err = d.Admit(1, 0)
	require.NoError(t, err)
	assert.Equal(t, 7.0, w)

	weights, err := d.UpdateMany([]int{0, 1}, []float64{2, 11})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 11}, weights)
	assert.Equal(t, 11.0, d.MaxWeight())
}

func TestAdmitMaxDecay(t *testing.T) {
	d := newDist(t, 4, func(c *Config) {
		c.NewPriorityMode = ModeMax
		c.MaxDecay = 0.5
	})

	_, err := d.Admit(0, 0)
	require.NoError(t, err)
	_, err = d.Update(0, 8)
	require.NoError(t, err)
	assert.Equal(t, 8.0, d.MaxWeight())

	_, err = d.Update(0, 1)
	require.NoError(t, err)
	assert.Equal(t, 4.0, d.MaxWeight())

	_, err = d.Update(0, 1)
	require.NoError(t, err)
	assert.Equal(t, 2.0, d.MaxWeight())
}

func TestAdmitMean(t *testing.T) {
	d := newDist(t, 4, func(c *Config) { c.NewPriorityMode = ModeMean })

	w, err := d.Admit(0, 3)
	require.NoError(t, err)
	assert.Equal(t, minPriority, w)

	_, err = d.Update(0, 6)
	require.NoError(t, err)

	w, err = d.Admit(1, 0)
	require.NoError(t, err)
	assert.Equal(t, 6.0, w)

	_, err = d.Update(1, 2)
	require.NoError(t, err)

	w, err = d.Admit(2, 0)
	require.NoError(t, err)
	assert.Equal(t, 4.0, w)
}

func TestClear(t *testing.T) {
	d := newDist(t, 4, nil)

	_, err := d.Admit(2, 5)
	require.NoError(t, err)
	require.NoError(t, d.Clear(2))

	assert.Equal(t, 0.0, d.Total())
	assert.Equal(t, 0, d.Len())

	_, err = d.Sample(testutil.NewRNG(1))
	assert.ErrorIs(t, err, sumtree.ErrEmptyTree)

	assert.ErrorIs(t, d.Clear(9), sumtree.ErrIndexOutOfRange)
}

func TestClearMasksUntilUpdate(t *testing.T) {
	d := newDist(t, 4, func(c *Config) { c.UniformProbability = 0.5 })

	for slot := range 2 {
		_, err := d.Admit(slot, 1)
		require.NoError(t, err)
	}
	require.NoError(t, d.Clear(0))

	prob, err := d.Probability(0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, prob)
	prob, err = d.Probability(1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, prob)

	_, err = d.Update(0, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, d.Len())
	prob, err = d.Probability(0)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, prob, testutil.Tolerance(1, 5))
}

func TestPropagate(t *testing.T) {
	t.Run("max", func(t *testing.T) {
		d := newDist(t, 4, func(c *Config) {
			c.TraceDepth = 2
			c.TraceDecay = 0.5
		})
		require.Equal(t, 2, d.TraceDepth())

		for slot, p := range []float64{1, 3, 8} {
			_, err := d.Admit(slot, p)
			require.NoError(t, err)
		}

		require.NoError(t, d.Propagate(1, 8, 1)) // max(3, 4)
		require.NoError(t, d.Propagate(0, 8, 2)) // max(1, 2)
		w, _ := d.Get(1)
		assert.Equal(t, 4.0, w)
		w, _ = d.Get(0)
		assert.Equal(t, 2.0, w)

		require.NoError(t, d.Propagate(1, 2, 1)) // max(4, 1)
		w, _ = d.Get(1)
		assert.Equal(t, 4.0, w)

		assert.ErrorIs(t, d.Propagate(1, 8, 3), ErrInvalidConfig)
		assert.ErrorIs(t, d.Propagate(1, 8, 0), ErrInvalidConfig)
	})

	t.Run("sum", func(t *testing.T) {
		d := newDist(t, 4, func(c *Config) {
			c.TraceDepth = 1
			c.TraceDecay = 0.5
			c.Combinator = CombineSum
		})
		_, err := d.Admit(0, 3)
		require.NoError(t, err)

		require.NoError(t, d.Propagate(0, 8, 1))
		w, _ := d.Get(0)
		assert.Equal(t, 7.0, w)
		assert.Equal(t, 7.0, d.Total())
	})

	t.Run("masked slot", func(t *testing.T) {
		d := newDist(t, 4, func(c *Config) { c.TraceDepth = 1 })
		_, err := d.Admit(0, 3)
		require.NoError(t, err)
		require.NoError(t, d.Clear(0))

		require.NoError(t, d.Propagate(0, 8, 1))
		assert.Equal(t, 0.0, d.Total())
	})
}

func TestUpdateManyValidation(t *testing.T) {
	d := newDist(t, 4, nil)

	_, err := d.Admit(0, 1)
	require.NoError(t, err)

	_, err = d.UpdateMany([]int{0}, []float64{1, 2})
	assert.ErrorIs(t, err, sumtree.ErrLengthMismatch)
	_, err = d.UpdateMany([]int{0, 1}, []float64{3, -1})
	assert.ErrorIs(t, err, sumtree.ErrInvalidWeight)
	_, err = d.UpdateMany([]int{0, 9}, []float64{3, 1})
	assert.ErrorIs(t, err, sumtree.ErrIndexOutOfRange)

	w, err := d.Get(0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, w, "failed batch must not write")
}

func TestProbability(t *testing.T) {
	t.Run("proportional", func(t *testing.T) {
		d := newDist(t, 4, nil)
		for slot, p := range []float64{1, 3, 6} {
			_, err := d.Admit(slot, p)
			require.NoError(t, err)
		}

		for slot, want := range []float64{0.1, 0.3, 0.6, 0} {
			got, err := d.Probability(slot)
			require.NoError(t, err)
			assert.InDelta(t, want, got, 1e-12)
		}

		isr, err := d.ISRWeight(2)
		require.NoError(t, err)
		assert.InDelta(t, (1.0/3)/0.6, isr, 1e-12)

		isr, err = d.ISRWeight(3)
		require.NoError(t, err)
		assert.Equal(t, 0.0, isr)
	})

	t.Run("mixture", func(t *testing.T) {
		d := newDist(t, 4, func(c *Config) { c.UniformProbability = 0.2 })
		for slot, p := range []float64{1, 3, 6} {
			_, err := d.Admit(slot, p)
			require.NoError(t, err)
		}

		total := 0.0
		for slot := range 3 {
			got, err := d.Probability(slot)
			require.NoError(t, err)
			total += got
		}
		assert.InDelta(t, 1.0, total, 1e-12)

		got, err := d.Probability(0)
		require.NoError(t, err)
		assert.InDelta(t, 0.8*0.1+0.2/3, got, 1e-12)
	})

	t.Run("zero priorities with uniform component", func(t *testing.T) {
		d := newDist(t, 4, func(c *Config) { c.UniformProbability = 0.1 })
		for slot := range 2 {
			_, err := d.Admit(slot, 0)
			require.NoError(t, err)
		}

		got, err := d.Probability(1)
		require.NoError(t, err)
		assert.Equal(t, 0.5, got)

		slot, err := d.Sample(testutil.NewRNG(3))
		require.NoError(t, err)
		assert.Contains(t, []int{0, 1}, slot)
	})

	t.Run("zero priorities without uniform component", func(t *testing.T) {
		d := newDist(t, 4, nil)
		_, err := d.Admit(0, 0)
		require.NoError(t, err)

		got, err := d.Probability(0)
		require.NoError(t, err)
		assert.Equal(t, 0.0, got)

		_, err = d.Sample(testutil.NewRNG(3))
		assert.ErrorIs(t, err, sumtree.ErrEmptyTree)
	})
}

func TestSampleDistribution(t *testing.T) {
	const draws = 200_000

	d := newDist(t, 4, func(c *Config) { c.UniformProbability = 0.25 })
	for slot, p := range []float64{1, 3, 6} {
		_, err := d.Admit(slot, p)
		require.NoError(t, err)
	}

	rng := testutil.NewRNG(42)
	samples := make([]int, draws)
	for i := range samples {
		slot, err := d.Sample(rng)
		require.NoError(t, err)
		samples[i] = slot
	}

	freq := testutil.Frequencies(samples, 4)
	for slot := range 4 {
		want, err := d.Probability(slot)
		require.NoError(t, err)
		assert.InDelta(t, want, freq[slot], 0.01, "slot %d", slot)
	}
}

func TestSampleN(t *testing.T) {
	for _, stratified := range []bool{false, true} {
		d := newDist(t, 8, func(c *Config) { c.UniformProbability = 0.5 })
		for slot, p := range []float64{1, 0, 2, 5} {
			_, err := d.Admit(slot, p)
			require.NoError(t, err)
		}

		slots, err := d.SampleN(testutil.NewRNG(7), 64, stratified)
		require.NoError(t, err)
		assert.Len(t, slots, 64)
		for _, slot := range slots {
			assert.Less(t, slot, 4, "unoccupied slots are never drawn")
		}

		none, err := d.SampleN(testutil.NewRNG(7), 0, stratified)
		require.NoError(t, err)
		assert.Empty(t, none)
	}
}

func TestSampleNStratifiedCoversStrata(t *testing.T) {
	d := newDist(t, 4, nil)
	for slot := range 4 {
		_, err := d.Admit(slot, 1)
		require.NoError(t, err)
	}

	slots, err := d.SampleN(testutil.NewRNG(11), 4, true)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3}, slots)
}

func TestRebuild(t *testing.T) {
	d := newDist(t, 16, nil)
	rng := testutil.NewRNG(5)

	for i := range 1000 {
		_, err := d.Admit(i%16, rng.Float64()*1e6)
		require.NoError(t, err)
	}
	d.Rebuild()

	sum := 0.0
	for slot := range 16 {
		w, err := d.Get(slot)
		require.NoError(t, err)
		sum += w
	}
	assert.InDelta(t, sum, d.Total(), testutil.Tolerance(sum, 5))
	assert.Equal(t, 16, d.Len())
}
