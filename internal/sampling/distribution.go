package sampling

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/hupe1980/replaytables/sumtree"
)

// Distribution is the sampling distribution over a table's slots.
// Safe for concurrent use; writes to one slot must be serialized by the caller.
type Distribution struct {
	cfg      Config
	priority *sumtree.Tree
	uniform  *sumtree.Tree
	trace    []float64 // trace[j-1] = TraceDecay^j

	maxWeight atomic.Uint64 // float64 bits
}

// New creates an empty distribution over capacity slots.
func New(capacity int, cfg Config) (*Distribution, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	priority, err := sumtree.New(capacity)
	if err != nil {
		return nil, err
	}
	uniform, err := sumtree.New(capacity)
	if err != nil {
		return nil, err
	}

	d := &Distribution{
		cfg:      cfg,
		priority: priority,
		uniform:  uniform,
		trace:    make([]float64, cfg.TraceDepth),
	}
	decay := 1.0
	for j := range d.trace {
		decay *= cfg.TraceDecay
		d.trace[j] = decay
	}
	d.maxWeight.Store(math.Float64bits(minPriority))
	return d, nil
}

// Config returns the distribution's configuration.
func (d *Distribution) Config() Config {
	return d.cfg
}

// Weight converts a priority into the stored weight priority^alpha.
func (d *Distribution) Weight(priority float64) (float64, error) {
	if priority < 0 || math.IsNaN(priority) || math.IsInf(priority, 0) {
		return 0, sumtree.ErrInvalidWeight
	}
	if d.cfg.PriorityExponent == 1 {
		return priority, nil
	}
	return math.Pow(priority, d.cfg.PriorityExponent), nil
}

// Admit occupies slot and sets its weight according to the new-priority
// mode. given is only used by ModeGiven. It returns the stored weight.
func (d *Distribution) Admit(slot int, given float64) (float64, error) {
	var w float64

	switch d.cfg.NewPriorityMode {
	case ModeMax:
		w = math.Float64frombits(d.maxWeight.Load())
	case ModeMean:
		w = d.meanWeight()
	default:
		var err error
		if w, err = d.Weight(given); err != nil {
			return 0, err
		}
	}

	if err := d.priority.Set(slot, w); err != nil {
		return 0, err
	}
	if err := d.uniform.Set(slot, 1); err != nil {
		_ = d.priority.Set(slot, 0)
		return 0, err
	}
	if d.cfg.NewPriorityMode == ModeGiven {
		d.observe(w)
	}
	return w, nil
}

// Update sets the priority of an occupied slot and returns the stored weight.
// A masked slot becomes sampleable again.
func (d *Distribution) Update(slot int, priority float64) (float64, error) {
	w, err := d.Weight(priority)
	if err != nil {
		return 0, err
	}
	if err := d.priority.Set(slot, w); err != nil {
		return 0, err
	}
	if err := d.uniform.Set(slot, 1); err != nil {
		return 0, err
	}
	d.observe(w)
	return w, nil
}

// UpdateMany sets several priorities and returns the stored weights. All
// inputs are validated before any slot is written.
func (d *Distribution) UpdateMany(slots []int, priorities []float64) ([]float64, error) {
	if len(slots) != len(priorities) {
		return nil, sumtree.ErrLengthMismatch
	}

	weights := make([]float64, len(priorities))
	ones := make([]float64, len(priorities))
	largest := 0.0
	for i, p := range priorities {
		w, err := d.Weight(p)
		if err != nil {
			return nil, err
		}
		weights[i] = w
		ones[i] = 1
		largest = max(largest, w)
	}

	if err := d.priority.SetMany(slots, weights); err != nil {
		return nil, err
	}
	if err := d.uniform.SetMany(slots, ones); err != nil {
		return nil, err
	}
	if len(weights) > 0 {
		d.observe(largest)
	}
	return weights, nil
}

// TraceDepth returns how many earlier slots an update propagates to.
func (d *Distribution) TraceDepth() int {
	return len(d.trace)
}

// Propagate passes the share of weight w that reaches slot j steps before
// the updated one, merged with the slot's weight by the combinator. A
// masked slot is left untouched.
func (d *Distribution) Propagate(slot int, w float64, j int) error {
	if j < 1 || j > len(d.trace) {
		return fmt.Errorf("%w: trace step %d not in [1, %d]", ErrInvalidConfig, j, len(d.trace))
	}

	occupied, err := d.uniform.Get(slot)
	if err != nil || occupied <= 0 {
		return err
	}
	prior, err := d.priority.Get(slot)
	if err != nil {
		return err
	}

	share := d.trace[j-1] * w
	next := max(prior, share)
	if d.cfg.Combinator == CombineSum {
		next = prior + share
	}
	if next == prior {
		return nil
	}
	if err := d.priority.Set(slot, next); err != nil {
		return err
	}
	d.observe(next)
	return nil
}

// Clear removes slot from both components. It also masks an occupied slot
// until its next Update.
func (d *Distribution) Clear(slot int) error {
	if err := d.priority.Set(slot, 0); err != nil {
		return err
	}
	return d.uniform.Set(slot, 0)
}

// Get returns the stored weight of slot.
func (d *Distribution) Get(slot int) (float64, error) {
	return d.priority.Get(slot)
}

// Total returns the total stored weight.
func (d *Distribution) Total() float64 {
	return d.priority.Total()
}

// Len returns the number of occupied slots.
func (d *Distribution) Len() int {
	return d.uniform.Len()
}

// Capacity returns the number of slots.
func (d *Distribution) Capacity() int {
	return d.priority.Capacity()
}

// MaxWeight returns the running maximum used by ModeMax.
func (d *Distribution) MaxWeight() float64 {
	return math.Float64frombits(d.maxWeight.Load())
}

// Sample draws one slot from the mixture.
func (d *Distribution) Sample(src sumtree.Source) (int, error) {
	tree := d.component(src)
	return tree.Sample(src.Float64() * tree.Total())
}

// SampleN draws n slots. With stratified set, each component's share of the
// batch is drawn one per equal-mass stratum.
func (d *Distribution) SampleN(src sumtree.Source, n int, stratified bool) ([]int, error) {
	if n <= 0 {
		return nil, nil
	}

	if d.uniformOnly() {
		return draw(d.uniform, src, n, stratified)
	}

	nUniform := 0
	if p := d.cfg.UniformProbability; p > 0 {
		for range n {
			if src.Float64() < p {
				nUniform++
			}
		}
	}

	out, err := draw(d.priority, src, n-nUniform, stratified)
	if err != nil {
		return nil, err
	}
	rest, err := draw(d.uniform, src, nUniform, stratified)
	if err != nil {
		return nil, err
	}
	return append(out, rest...), nil
}

// Probability returns the probability that Sample yields slot.
func (d *Distribution) Probability(slot int) (float64, error) {
	w, err := d.priority.Get(slot)
	if err != nil {
		return 0, err
	}
	occupied, err := d.uniform.Get(slot)
	if err != nil {
		return 0, err
	}

	n := d.uniform.Total()
	if n <= 0 || occupied <= 0 {
		return 0, nil
	}
	if d.uniformOnly() {
		return 1 / n, nil
	}

	total := d.priority.Total()
	if total <= 0 {
		return 0, nil
	}

	p := d.cfg.UniformProbability
	return (1-p)*w/total + p/n, nil
}

// ISRWeight returns the importance-sampling ratio of slot against the
// uniform distribution over occupied slots, (1/N) / P(slot).
func (d *Distribution) ISRWeight(slot int) (float64, error) {
	prob, err := d.Probability(slot)
	if err != nil || prob <= 0 {
		return 0, err
	}
	return (1 / d.uniform.Total()) / prob, nil
}

// Rebuild clears accumulated rounding error in both trees.
func (d *Distribution) Rebuild() {
	d.priority.Rebuild()
	d.uniform.Rebuild()
}

// component picks the tree for one draw. A component without mass defers
// to the other so that a table with occupied slots can always be sampled
// when p > 0.
func (d *Distribution) component(src sumtree.Source) *sumtree.Tree {
	if d.uniformOnly() {
		return d.uniform
	}
	if p := d.cfg.UniformProbability; p > 0 && src.Float64() < p {
		return d.uniform
	}
	return d.priority
}

// uniformOnly reports whether every draw comes from the uniform component.
func (d *Distribution) uniformOnly() bool {
	p := d.cfg.UniformProbability
	return p >= 1 || (p > 0 && d.priority.Total() <= 0)
}

func (d *Distribution) meanWeight() float64 {
	n := d.uniform.Total()
	if n <= 0 {
		return minPriority
	}
	mean := d.priority.Total() / n
	if mean <= 0 {
		return minPriority
	}
	return mean
}

// observe folds w into the decayed running maximum.
func (d *Distribution) observe(w float64) {
	for {
		old := d.maxWeight.Load()
		next := max(d.cfg.MaxDecay*math.Float64frombits(old), w, minPriority)
		if d.maxWeight.CompareAndSwap(old, math.Float64bits(next)) {
			return
		}
	}
}

func draw(t *sumtree.Tree, src sumtree.Source, n int, stratified bool) ([]int, error) {
	if n <= 0 {
		return nil, nil
	}
	if stratified {
		return t.StratifiedSample(src, n)
	}
	return t.SampleN(src, n)
}
