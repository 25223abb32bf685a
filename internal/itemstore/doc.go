// Package itemstore is the authoritative record store for replay items.
//
// Every record pairs an id with its metadata document, a reference counter,
// and the set of table slots it is bound to. Records live in power-of-two
// shards, each guarded by its own RWMutex, so operations on different items
// only contend when they hash to the same shard.
//
// # Lifetime
//
//	id, _ := s.Insert(doc)         // refs = 1
//	s.AddReference(id)             // refs = 2
//	s.ReleaseReference(id)         // refs = 1
//	s.ReleaseReference(id)         // refs = 0, record removed
//	s.Get(id)                      // ErrNotFound
//
// The decrement that reaches zero, the map deletion and the unbinding of all
// table slots happen under the shard write lock. A concurrent Get therefore
// observes either the live record or ErrNotFound, never a record whose count
// is already zero.
//
// # Bindings
//
// Tables do not store ownership inside their trees. Instead Bind records
// (table, slot) on the item and takes one reference on the table's behalf.
// When the record is removed, the store calls the Unbinder for each binding
// while still holding the shard lock, so the table zeroes the slot weight in
// the same logical step.
//
// Lock order is shard -> Unbinder (table allocator, tree stripe). Callbacks
// must never call back into the store.
package itemstore
