package replaytables

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/hupe1980/replaytables/internal/itemstore"
	"github.com/hupe1980/replaytables/internal/sampling"
	"github.com/hupe1980/replaytables/internal/slots"
	"github.com/hupe1980/replaytables/sumtree"
)

// Source supplies uniform random numbers in [0, 1). *math/rand.Rand and
// *math/rand/v2.Rand satisfy it; it must be safe for concurrent use if
// shared between goroutines.
type Source = sumtree.Source

// Table binds a fixed number of slots to items and samples them with
// probability proportional to their priority.
//
// Each bound slot holds one reference on its item, so an item stays alive
// while any table still samples it. All methods are safe for concurrent use.
type Table struct {
	store *Store
	id    itemstore.TableID
	name  string
	cfg   TableConfig

	dist  *sampling.Distribution
	alloc *slots.Allocator

	logger  *Logger
	raceLog rate.Sometimes
}

func newTable(s *Store, id itemstore.TableID, name string, capacity int, cfg TableConfig) (*Table, error) {
	dist, err := sampling.New(capacity, cfg.samplingConfig())
	if err != nil {
		return nil, translateError(err)
	}

	return &Table{
		store:   s,
		id:      id,
		name:    name,
		cfg:     cfg,
		dist:    dist,
		alloc:   slots.New(capacity, cfg.FIFOEviction),
		logger:  s.logger.WithTable(name),
		raceLog: rate.Sometimes{First: 1, Interval: time.Second},
	}, nil
}

// Name returns the table's registry name.
func (t *Table) Name() string { return t.name }

// Config returns the table's configuration.
func (t *Table) Config() TableConfig { return t.cfg }

// Capacity returns the number of slots.
func (t *Table) Capacity() int { return t.alloc.Capacity() }

// Len returns the number of bound slots.
func (t *Table) Len() int { return t.alloc.Len() }

// Total returns the sum of all stored weights.
func (t *Table) Total() float64 { return t.dist.Total() }

// Assign binds id to the lowest free slot with the given priority and takes
// one reference on the item for the table. It returns the slot.
//
// With a priority mode other than PriorityGiven the priority is validated
// but the stored weight comes from the mode.
func (t *Table) Assign(id ID, priority float64) (int, error) {
	start := time.Now()

	slot, err := t.assign(id, priority)

	t.store.metrics.RecordUpdate(time.Since(start), err)
	return slot, err
}

func (t *Table) assign(id ID, priority float64) (int, error) {
	if _, err := t.dist.Weight(priority); err != nil {
		return 0, err
	}

	// Each eviction frees a slot, but a concurrent Assign may take it first.
	for evictions := 0; ; evictions++ {
		slot, err := t.store.items.Bind(id, t.id, func() (int, error) {
			slot, err := t.alloc.Acquire(id)
			if err != nil {
				return 0, err
			}
			return slot, t.admit(slot, id, priority)
		})

		if errors.Is(err, slots.ErrNoFreeSlot) && t.cfg.FIFOEviction && evictions < t.Capacity() {
			t.evictOldest()
			continue
		}
		return slot, translateError(err)
	}
}

// AssignAt binds id to a specific slot.
func (t *Table) AssignAt(slot int, id ID, priority float64) error {
	start := time.Now()

	err := t.assignAt(slot, id, priority)

	t.store.metrics.RecordUpdate(time.Since(start), err)
	return err
}

func (t *Table) assignAt(slot int, id ID, priority float64) error {
	if _, err := t.dist.Weight(priority); err != nil {
		return err
	}

	_, err := t.store.items.Bind(id, t.id, func() (int, error) {
		if err := t.alloc.AcquireAt(slot, id); err != nil {
			return 0, err
		}
		return slot, t.admit(slot, id, priority)
	})
	return translateError(err)
}

// admit sets the weight of a freshly acquired slot, giving the slot back
// on failure.
func (t *Table) admit(slot int, id ID, priority float64) error {
	if _, err := t.dist.Admit(slot, priority); err != nil {
		t.alloc.Release(slot, id)
		return err
	}
	return nil
}

func (t *Table) evictOldest() {
	slot, victim, ok := t.alloc.Oldest()
	if !ok {
		return
	}

	// The victim may be released concurrently; either way the slot frees up.
	n, err := t.store.items.Unbind(victim, t.id, func(s int) { t.clearSlot(s, victim) })
	if err != nil {
		return
	}

	t.logger.LogEviction(context.Background(), slot, victim)
	if n == 0 {
		t.store.recordRemove(victim)
	}
}

// UpdatePriority changes the priority of an assigned item.
func (t *Table) UpdatePriority(id ID, priority float64) error {
	start := time.Now()

	err := t.updatePriority(id, priority)

	t.store.metrics.RecordUpdate(time.Since(start), err)
	return err
}

func (t *Table) updatePriority(id ID, priority float64) error {
	var w float64
	err := t.store.items.WithSlot(id, t.id, func(slot int) error {
		var err error
		w, err = t.dist.Update(slot, priority)
		return err
	})
	if err != nil {
		return translateError(err)
	}

	t.propagate(id, w)
	return nil
}

// UpdatePriorities changes the priorities of several items in one batch.
// All priorities are validated before any is written; ids that are unknown
// or not assigned are reported in the joined error while the others are
// updated.
func (t *Table) UpdatePriorities(ids []ID, priorities []float64) error {
	start := time.Now()

	err := t.updatePriorities(ids, priorities)

	t.store.metrics.RecordUpdate(time.Since(start), err)
	return err
}

func (t *Table) updatePriorities(ids []ID, priorities []float64) error {
	if len(ids) != len(priorities) {
		return ErrLengthMismatch
	}
	for _, p := range priorities {
		if _, err := t.dist.Weight(p); err != nil {
			return err
		}
	}

	var (
		errs    []error
		updated []ID
		weights []float64
	)
	err := t.store.items.WithSlots(ids, t.id, func(slots []int, missing []error) error {
		bound := make([]int, 0, len(ids))
		ps := make([]float64, 0, len(ids))
		for i, id := range ids {
			if missing[i] != nil {
				errs = append(errs, fmt.Errorf("id %d: %w", id, translateError(missing[i])))
				continue
			}
			bound = append(bound, slots[i])
			ps = append(ps, priorities[i])
			updated = append(updated, id)
		}

		var err error
		weights, err = t.dist.UpdateMany(bound, ps)
		return err
	})
	if err != nil {
		return translateError(err)
	}

	for i, id := range updated {
		t.propagate(id, weights[i])
	}
	return errors.Join(errs...)
}

// propagate passes a decayed share of w to the items inserted just before
// id, stopping at the first one marked terminal.
func (t *Table) propagate(id ID, w float64) {
	for j := 1; j <= t.dist.TraceDepth() && ID(j) < id; j++ {
		prev := id - ID(j)

		terminal := false
		_ = t.store.items.WithSlot(prev, t.id, func(slot int) error {
			if t.alloc.Terminal(slot) {
				terminal = true
				return nil
			}
			return t.dist.Propagate(slot, w, j)
		})
		if terminal {
			return
		}
	}
}

// SetTerminal marks an assigned item as the last step of its episode.
// Priority propagation never crosses a terminal item.
func (t *Table) SetTerminal(id ID, terminal bool) error {
	err := t.store.items.WithSlot(id, t.id, func(slot int) error {
		t.alloc.MarkTerminal(slot, id, terminal)
		return nil
	})
	return translateError(err)
}

// Mask makes an assigned item unsampleable without unassigning it. The
// item keeps its slot and reference; the next priority update restores it.
func (t *Table) Mask(id ID) error {
	start := time.Now()

	err := t.store.items.WithSlot(id, t.id, func(slot int) error {
		return t.dist.Clear(slot)
	})
	err = translateError(err)

	t.store.metrics.RecordUpdate(time.Since(start), err)
	return err
}

// Priority returns the stored weight of an assigned item.
func (t *Table) Priority(id ID) (float64, error) {
	var w float64
	err := t.store.items.WithSlot(id, t.id, func(slot int) error {
		var err error
		w, err = t.dist.Get(slot)
		return err
	})
	return w, translateError(err)
}

// Slot returns the slot an item is assigned to.
func (t *Table) Slot(id ID) (int, error) {
	var slot int
	err := t.store.items.WithSlot(id, t.id, func(s int) error {
		slot = s
		return nil
	})
	return slot, translateError(err)
}

// Unassign zeroes the item's slot, frees it and releases the table's
// reference, which removes the item if no other owner remains.
func (t *Table) Unassign(id ID) error {
	start := time.Now()

	n, err := t.store.items.Unbind(id, t.id, func(slot int) { t.clearSlot(slot, id) })
	err = translateError(err)
	if err == nil && n == 0 {
		t.store.recordRemove(id)
	}

	t.store.metrics.RecordUpdate(time.Since(start), err)
	return err
}

// clearSlot runs under the item's shard lock. The weight is zeroed before
// the slot is freed so a new owner's weight is never overwritten.
func (t *Table) clearSlot(slot int, id ID) {
	_ = t.dist.Clear(slot)
	t.alloc.Release(slot, id)
}

// Sample draws one item. The returned sample holds a reference on the item
// until Release is called, so its metadata stays valid even if the table
// unassigns it meanwhile.
//
// It fails with ErrEmptyTree when no slot has mass, and with ErrNotFound
// when the drawn item was removed between draw and resolve.
func (t *Table) Sample(src Source) (*Sample, error) {
	start := time.Now()

	smp, err := t.sample(src)

	t.store.metrics.RecordSample(1, time.Since(start), err)
	return smp, err
}

func (t *Table) sample(src Source) (*Sample, error) {
	slot, err := t.dist.Sample(src)
	if err != nil {
		return nil, translateError(err)
	}
	return t.resolve(slot)
}

// SampleBatch draws n items. With stratified set, the mass is split into
// equal strata and each is sampled once. On error every reference already
// taken by the batch is released.
func (t *Table) SampleBatch(src Source, n int, stratified bool) ([]*Sample, error) {
	start := time.Now()

	batch, err := t.sampleBatch(src, n, stratified)

	t.store.metrics.RecordSample(n, time.Since(start), err)
	return batch, err
}

func (t *Table) sampleBatch(src Source, n int, stratified bool) ([]*Sample, error) {
	drawn, err := t.dist.SampleN(src, n, stratified)
	if err != nil {
		return nil, translateError(err)
	}

	batch := make([]*Sample, 0, len(drawn))
	for _, slot := range drawn {
		smp, err := t.resolve(slot)
		if err != nil {
			for _, taken := range batch {
				_ = taken.Release()
			}
			return nil, err
		}
		batch = append(batch, smp)
	}
	return batch, nil
}

func (t *Table) resolve(slot int) (*Sample, error) {
	id := t.alloc.Owner(slot)
	if id == 0 {
		t.logRace(slot, id)
		return nil, fmt.Errorf("%w: slot %d was freed", ErrNotFound, slot)
	}

	md, _, err := t.store.items.Pin(id)
	if err != nil {
		t.logRace(slot, id)
		return nil, translateError(err)
	}

	// Weight and probabilities are read after pinning and may already
	// reflect a concurrent priority update.
	w, _ := t.dist.Get(slot)
	prob, _ := t.dist.Probability(slot)
	isr, _ := t.dist.ISRWeight(slot)

	return &Sample{
		ID:          id,
		Slot:        slot,
		Metadata:    md,
		Priority:    w,
		Probability: prob,
		ISRWeight:   isr,
		store:       t.store,
	}, nil
}

func (t *Table) logRace(slot int, id ID) {
	t.raceLog.Do(func() {
		t.logger.LogResolveRace(context.Background(), slot, id)
	})
}

// Rebuild recomputes the table's internal sums from the slot weights,
// discarding accumulated rounding error.
func (t *Table) Rebuild() {
	t.dist.Rebuild()
}

// drop seals the table and releases every reference it holds.
func (t *Table) drop() {
	t.alloc.Seal()

	type binding struct {
		slot int
		id   ID
	}
	var bound []binding
	t.alloc.Occupied(func(slot int, id uint64) bool {
		bound = append(bound, binding{slot, id})
		return true
	})

	for _, b := range bound {
		n, err := t.store.items.Unbind(b.id, t.id, func(slot int) { t.clearSlot(slot, b.id) })
		if err == nil && n == 0 {
			t.store.recordRemove(b.id)
		}
	}
}
