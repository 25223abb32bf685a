package sumtree

import (
	"math"
	"math/bits"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

const maxStripes = 64

// Source supplies uniform random numbers in [0, 1).
// *math/rand.Rand and *math/rand/v2.Rand both satisfy it.
type Source interface {
	Float64() float64
}

type stripe struct {
	mu sync.Mutex
	_  cpu.CacheLinePad
}

// Tree is a concurrent sum tree over a fixed number of slots.
type Tree struct {
	capacity int
	leaves   int // capacity rounded up to a power of two
	nodes    []atomic.Uint64

	// positive counts leaves with weight > 0; counts holds the same per
	// internal node so subtrees left with rounding residue read as empty.
	positive atomic.Int64
	counts   []atomic.Int64

	stripes    []stripe
	stripeMask int
}

// New creates a tree with capacity slots, all weights zero.
func New(capacity int) (*Tree, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}

	leaves := nextPow2(capacity)
	numStripes := min(leaves, maxStripes)

	return &Tree{
		capacity:   capacity,
		leaves:     leaves,
		nodes:      make([]atomic.Uint64, 2*leaves-1),
		counts:     make([]atomic.Int64, leaves-1),
		stripes:    make([]stripe, numStripes),
		stripeMask: numStripes - 1,
	}, nil
}

// Capacity returns the number of slots.
func (t *Tree) Capacity() int {
	return t.capacity
}

// Len returns the number of slots with a positive weight.
func (t *Tree) Len() int {
	return int(t.positive.Load())
}

// Set updates the weight of a slot and propagates the change to the root.
func (t *Tree) Set(slot int, weight float64) error {
	if err := t.checkSlot(slot); err != nil {
		return err
	}
	if err := checkWeight(weight); err != nil {
		return err
	}

	s := &t.stripes[slot&t.stripeMask]
	s.mu.Lock()
	t.setLocked(slot, weight)
	s.mu.Unlock()

	return nil
}

// SetMany updates several slots. All inputs are validated before any
// weight is written.
func (t *Tree) SetMany(slots []int, weights []float64) error {
	if len(slots) != len(weights) {
		return ErrLengthMismatch
	}
	for i := range slots {
		if err := t.checkSlot(slots[i]); err != nil {
			return err
		}
		if err := checkWeight(weights[i]); err != nil {
			return err
		}
	}

	for i, slot := range slots {
		s := &t.stripes[slot&t.stripeMask]
		s.mu.Lock()
		t.setLocked(slot, weights[i])
		s.mu.Unlock()
	}

	return nil
}

// setLocked requires the slot's stripe lock.
func (t *Tree) setLocked(slot int, weight float64) {
	if weight == 0 {
		weight = 0 // normalize -0
	}

	i := t.leaves - 1 + slot
	old := loadFloat(&t.nodes[i])
	if old == weight {
		return
	}

	storeFloat(&t.nodes[i], weight)

	var step int64
	switch {
	case old == 0 && weight > 0:
		step = 1
	case old > 0 && weight == 0:
		step = -1
	}
	if step != 0 {
		t.positive.Add(step)
	}

	delta := weight - old
	for i > 0 {
		i = (i - 1) / 2
		if step != 0 {
			t.counts[i].Add(step)
		}
		addFloat(&t.nodes[i], delta)
	}
}

// Get returns the weight of a slot.
func (t *Tree) Get(slot int) (float64, error) {
	if err := t.checkSlot(slot); err != nil {
		return 0, err
	}
	return loadFloat(&t.nodes[t.leaves-1+slot]), nil
}

// Total returns the sum of all leaf weights.
// It is exactly zero when no leaf holds a positive weight.
func (t *Tree) Total() float64 {
	if t.positive.Load() <= 0 {
		return 0
	}
	total := loadFloat(&t.nodes[0])
	if total < 0 {
		return 0
	}
	return total
}

// Sample returns the slot whose cumulative weight range contains value.
// Values at or beyond Total clamp to the last slot with mass.
func (t *Tree) Sample(value float64) (int, error) {
	if math.IsNaN(value) || value < 0 {
		return 0, ErrInvalidValue
	}
	if t.Total() <= 0 {
		return 0, ErrEmptyTree
	}
	return t.walk(value), nil
}

// SampleN draws n slots with probability proportional to their weight.
func (t *Tree) SampleN(src Source, n int) ([]int, error) {
	if n <= 0 {
		return nil, nil
	}

	total := t.Total()
	if total <= 0 {
		return nil, ErrEmptyTree
	}

	out := make([]int, n)
	for i := range out {
		out[i] = t.walk(src.Float64() * total)
	}
	return out, nil
}

// StratifiedSample splits the total mass into n equal strata and draws one
// slot from each, which lowers the variance of a batch compared to SampleN.
func (t *Tree) StratifiedSample(src Source, n int) ([]int, error) {
	if n <= 0 {
		return nil, nil
	}

	total := t.Total()
	if total <= 0 {
		return nil, ErrEmptyTree
	}

	step := total / float64(n)
	out := make([]int, n)
	for i := range out {
		out[i] = t.walk((float64(i) + src.Float64()) * step)
	}
	return out, nil
}

// Rebuild recomputes every internal node from the leaves, discarding
// accumulated rounding error. It excludes all writers while running.
func (t *Tree) Rebuild() {
	for i := range t.stripes {
		t.stripes[i].mu.Lock()
	}
	defer func() {
		for i := range t.stripes {
			t.stripes[i].mu.Unlock()
		}
	}()

	var positive int64
	for i := t.leaves - 1; i < len(t.nodes); i++ {
		if loadFloat(&t.nodes[i]) > 0 {
			positive++
		}
	}
	for i := t.leaves - 2; i >= 0; i-- {
		l, r := 2*i+1, 2*i+2
		t.counts[i].Store(t.count(l) + t.count(r))
		if t.counts[i].Load() == 0 {
			storeFloat(&t.nodes[i], 0)
			continue
		}
		storeFloat(&t.nodes[i], loadFloat(&t.nodes[l])+loadFloat(&t.nodes[r]))
	}
	t.positive.Store(positive)
}

// count returns the number of positive leaves under node i.
func (t *Tree) count(i int) int64 {
	if i >= t.leaves-1 {
		if loadFloat(&t.nodes[i]) > 0 {
			return 1
		}
		return 0
	}
	return t.counts[i].Load()
}

// walk descends from the root. A subtree without positive leaves counts as
// zero mass whatever residue its node holds, and is never entered while its
// sibling has positive leaves.
func (t *Tree) walk(value float64) int {
	i := 0
	for i < t.leaves-1 {
		left := 2*i + 1
		lok := t.count(left) > 0
		rok := t.count(left+1) > 0

		switch {
		case !rok:
			i = left
		case !lok:
			i = left + 1
		case value < loadFloat(&t.nodes[left]):
			i = left
		default:
			value -= loadFloat(&t.nodes[left])
			i = left + 1
		}
	}

	slot := i - (t.leaves - 1)
	if slot >= t.capacity {
		slot = t.capacity - 1
	}
	return slot
}

func (t *Tree) checkSlot(slot int) error {
	if slot < 0 || slot >= t.capacity {
		return &IndexOutOfRangeError{Slot: slot, Capacity: t.capacity}
	}
	return nil
}

func checkWeight(w float64) error {
	if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
		return ErrInvalidWeight
	}
	return nil
}

func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

func loadFloat(a *atomic.Uint64) float64 {
	return math.Float64frombits(a.Load())
}

func storeFloat(a *atomic.Uint64, v float64) {
	a.Store(math.Float64bits(v))
}

func addFloat(a *atomic.Uint64, delta float64) {
	for {
		old := a.Load()
		next := math.Float64bits(math.Float64frombits(old) + delta)
		if a.CompareAndSwap(old, next) {
			return
		}
	}
}
