package itemstore

import (
	"slices"

	"github.com/hupe1980/replaytables/internal/hash"
)

// Bind attaches the item to a table. assign runs under the item's shard
// write lock and returns the slot it claimed; on success the binding is
// recorded and one reference is added on the table's behalf.
//
// Holding the lock across assign guarantees a concurrent removal cannot run
// between slot claim and binding, which would leave weight on a dead slot.
func (s *Store) Bind(id ID, table TableID, assign func() (int, error)) (int, error) {
	sh := s.shard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	it, ok := sh.items[id]
	if !ok {
		return 0, ErrNotFound
	}
	if _, bound := it.bindings[table]; bound {
		return 0, ErrAlreadyBound
	}

	slot, err := assign()
	if err != nil {
		return 0, err
	}

	if it.bindings == nil {
		it.bindings = make(map[TableID]int, 1)
	}
	it.bindings[table] = slot
	it.refs.Increment()

	return slot, nil
}

// Unbind detaches the item from a table. clear runs under the shard write
// lock with the bound slot; afterwards the table's reference is released,
// which removes the item if it was the last owner.
func (s *Store) Unbind(id ID, table TableID, clear func(slot int)) (uint64, error) {
	sh := s.shard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	it, ok := sh.items[id]
	if !ok {
		return 0, ErrNotFound
	}
	slot, bound := it.bindings[table]
	if !bound {
		return 0, ErrNotBound
	}

	delete(it.bindings, table)
	clear(slot)

	n, err := it.refs.Decrement()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		s.removeLocked(sh, id, it)
	}
	return n, nil
}

// WithSlot runs fn with the item's slot in table while holding the shard
// read lock, so the item cannot be removed while fn updates the slot.
func (s *Store) WithSlot(id ID, table TableID, fn func(slot int) error) error {
	sh := s.shard(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	it, ok := sh.items[id]
	if !ok {
		return ErrNotFound
	}
	slot, bound := it.bindings[table]
	if !bound {
		return ErrNotBound
	}
	return fn(slot)
}

// WithSlots resolves the slots of several items in table and runs fn while
// none of them can be unbound. Shard read locks are taken once each, in
// ascending shard order. For an id without a binding slots[i] is -1 and
// errs[i] is ErrNotFound or ErrNotBound.
func (s *Store) WithSlots(ids []ID, table TableID, fn func(slots []int, errs []error) error) error {
	idx := make([]int, 0, len(ids))
	for _, id := range ids {
		idx = append(idx, hash.Shard(id, len(s.shards)))
	}
	locked := slices.Compact(slices.Sorted(slices.Values(idx)))
	for _, i := range locked {
		s.shards[i].mu.RLock()
	}
	defer func() {
		for _, i := range locked {
			s.shards[i].mu.RUnlock()
		}
	}()

	slots := make([]int, len(ids))
	errs := make([]error, len(ids))
	for i, id := range ids {
		slots[i] = -1
		it, ok := s.shards[idx[i]].items[id]
		if !ok {
			errs[i] = ErrNotFound
			continue
		}
		slot, bound := it.bindings[table]
		if !bound {
			errs[i] = ErrNotBound
			continue
		}
		slots[i] = slot
	}
	return fn(slots, errs)
}
