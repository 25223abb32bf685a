package testutil

import (
	"math"
	"math/rand"
	"sync"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe and satisfies sumtree.Source.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Uint64 returns a pseudo-random uint64.
func (r *RNG) Uint64() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint64()
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// UniformPriorities returns n priorities in (0, 1].
func (r *RNG) UniformPriorities(n int) []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]float64, n)
	for i := range out {
		out[i] = 1 - r.rand.Float64()
	}
	return out
}

// GaussianPriorities returns n priorities |N(0,1)|, matching the absolute
// TD errors a learner typically reports.
func (r *RNG) GaussianPriorities(n int) []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]float64, n)
	for i := range out {
		out[i] = math.Abs(r.rand.NormFloat64())
	}
	return out
}

// ZipfPriorities returns n heavy-tailed priorities, P(k) ∝ 1/k^s for a
// random rank k in [1, n].
func (r *RNG) ZipfPriorities(n int, s float64) []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]float64, n)
	for i := range out {
		k := r.rand.Intn(n) + 1
		out[i] = 1.0 / math.Pow(float64(k), s)
	}
	return out
}

// Frequencies returns the empirical frequency of each value in [0, n).
// Values outside the range are ignored.
func Frequencies(samples []int, n int) []float64 {
	out := make([]float64, n)
	if len(samples) == 0 {
		return out
	}
	for _, s := range samples {
		if s >= 0 && s < n {
			out[s]++
		}
	}
	for i := range out {
		out[i] /= float64(len(samples))
	}
	return out
}

// Normalize returns weights divided by their sum.
func Normalize(weights []float64) []float64 {
	var total float64
	for _, w := range weights {
		total += w
	}
	out := make([]float64, len(weights))
	if total == 0 {
		return out
	}
	for i, w := range weights {
		out[i] = w / total
	}
	return out
}

// Sum returns the sum of xs in index order.
func Sum(xs []float64) float64 {
	var total float64
	for _, x := range xs {
		total += x
	}
	return total
}

// Tolerance returns an absolute float tolerance for a sum over n terms of
// magnitude scale accumulated through a tree of the given depth.
func Tolerance(scale float64, depth int) float64 {
	if depth < 1 {
		depth = 1
	}
	return scale * float64(depth) * 1e-12
}
