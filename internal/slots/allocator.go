package slots

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/replaytables/internal/queue"
)

var (
	// ErrNoFreeSlot is returned when every slot is occupied.
	ErrNoFreeSlot = errors.New("no free slot")

	// ErrSlotOccupied is returned when assigning to an occupied slot.
	ErrSlotOccupied = errors.New("slot occupied")

	// ErrSlotOutOfRange is returned for a slot outside [0, capacity).
	ErrSlotOutOfRange = errors.New("slot out of range")

	// ErrSealed is returned by Acquire and AcquireAt after Seal.
	ErrSealed = errors.New("allocator sealed")
)

// Allocator hands out slots. Safe for concurrent use.
type Allocator struct {
	capacity int

	mu   sync.Mutex
	free *roaring.Bitmap
	term *roaring.Bitmap // slots holding the last step of an episode
	seqs []uint64 // assignment sequence per slot, guarded by mu
	next uint64
	age  *queue.AgeQueue // nil unless age tracking is enabled

	sealed bool

	owners []atomic.Uint64 // item id per slot, 0 = free
}

// New creates an allocator with all slots free.
func New(capacity int, trackAge bool) *Allocator {
	free := roaring.New()
	free.AddRange(0, uint64(capacity))

	a := &Allocator{
		capacity: capacity,
		free:     free,
		term:     roaring.New(),
		seqs:     make([]uint64, capacity),
		owners:   make([]atomic.Uint64, capacity),
	}
	if trackAge {
		a.age = queue.NewAge(capacity)
	}
	return a
}

// Capacity returns the number of slots.
func (a *Allocator) Capacity() int {
	return a.capacity
}

// Len returns the number of occupied slots.
func (a *Allocator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.capacity - int(a.free.GetCardinality())
}

// Acquire assigns the lowest free slot to id.
func (a *Allocator) Acquire(id uint64) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.sealed {
		return 0, ErrSealed
	}
	if a.free.IsEmpty() {
		return 0, ErrNoFreeSlot
	}

	slot := int(a.free.Minimum())
	a.occupyLocked(slot, id)
	return slot, nil
}

// AcquireAt assigns a specific slot to id.
func (a *Allocator) AcquireAt(slot int, id uint64) error {
	if slot < 0 || slot >= a.capacity {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrSlotOutOfRange, slot, a.capacity)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.sealed {
		return ErrSealed
	}
	if !a.free.Contains(uint32(slot)) {
		return ErrSlotOccupied
	}

	a.occupyLocked(slot, id)
	return nil
}

func (a *Allocator) occupyLocked(slot int, id uint64) {
	a.free.Remove(uint32(slot))
	a.term.Remove(uint32(slot))
	a.owners[slot].Store(id)

	a.next++
	a.seqs[slot] = a.next

	if a.age != nil {
		a.age.PushItem(queue.AgeItem{Slot: slot, Seq: a.next})
		if a.age.Len() > 2*a.capacity {
			a.compactAgeLocked()
		}
	}
}

// Release frees slot if it is still owned by id. It reports whether the
// slot was released.
func (a *Allocator) Release(slot int, id uint64) bool {
	if slot < 0 || slot >= a.capacity {
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.owners[slot].Load() != id || a.free.Contains(uint32(slot)) {
		return false
	}

	a.owners[slot].Store(0)
	a.seqs[slot] = 0
	a.free.Add(uint32(slot))
	a.term.Remove(uint32(slot))
	return true
}

// MarkTerminal flags or unflags slot as the end of an episode if it is
// still owned by id. The flag is dropped when the slot is released.
func (a *Allocator) MarkTerminal(slot int, id uint64, terminal bool) bool {
	if slot < 0 || slot >= a.capacity {
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.owners[slot].Load() != id || a.free.Contains(uint32(slot)) {
		return false
	}
	if terminal {
		a.term.Add(uint32(slot))
	} else {
		a.term.Remove(uint32(slot))
	}
	return true
}

// Terminal reports whether slot is flagged as the end of an episode.
func (a *Allocator) Terminal(slot int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.term.Contains(uint32(slot))
}

// Seal stops all further acquisitions. Slots occupied before Seal returns
// are visible to a subsequent Occupied call.
func (a *Allocator) Seal() {
	a.mu.Lock()
	a.sealed = true
	a.mu.Unlock()
}

// Owner returns the id occupying slot, or 0 if the slot is free. Lock-free.
func (a *Allocator) Owner(slot int) uint64 {
	if slot < 0 || slot >= a.capacity {
		return 0
	}
	return a.owners[slot].Load()
}

// Oldest returns the occupied slot with the earliest assignment.
// It requires age tracking and reports false otherwise or when empty.
func (a *Allocator) Oldest() (slot int, id uint64, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.age == nil {
		return 0, 0, false
	}

	for {
		top, ok := a.age.TopItem()
		if !ok {
			return 0, 0, false
		}
		if a.seqs[top.Slot] == top.Seq {
			return top.Slot, a.owners[top.Slot].Load(), true
		}
		a.age.PopItem() // stale: slot was released or reassigned
	}
}

// Occupied calls fn for every occupied slot in ascending order.
// fn must not call back into the allocator.
func (a *Allocator) Occupied(fn func(slot int, id uint64) bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for slot := range a.capacity {
		if a.free.Contains(uint32(slot)) {
			continue
		}
		if !fn(slot, a.owners[slot].Load()) {
			return
		}
	}
}

func (a *Allocator) compactAgeLocked() {
	a.age.Reset()
	for slot, seq := range a.seqs {
		if seq != 0 {
			a.age.PushItem(queue.AgeItem{Slot: slot, Seq: seq})
		}
	}
}
