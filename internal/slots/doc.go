// Package slots maps a table's sum-tree slots to item ids.
//
// Free slots are kept in a Roaring bitmap so the lowest free slot is found
// with a single Minimum call; a slot released by an evicted item is reused by
// the very next assignment. Occupied slots record their owner in an atomic
// word so samplers can resolve slot -> id without taking the allocator lock.
//
// When age tracking is enabled, every assignment is stamped with a sequence
// number and pushed onto a min-heap. Oldest pops stale heap entries lazily,
// which makes oldest-first eviction O(log n) amortized.
package slots
