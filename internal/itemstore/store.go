package itemstore

import (
	"fmt"
	"math/bits"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/cpu"

	"github.com/hupe1980/replaytables/internal/hash"
	"github.com/hupe1980/replaytables/internal/refcount"
	"github.com/hupe1980/replaytables/internal/resource"
	"github.com/hupe1980/replaytables/metadata"
)

// DefaultShards is the shard count used when Config.Shards is 0.
const DefaultShards = 64

// ID identifies an item. Ids start at 1 and are never reused.
type ID = uint64

// TableID identifies a table within one store.
type TableID = uint32

// Unbinder clears a table slot when its item is removed.
// It is called with the item's shard write lock held.
type Unbinder interface {
	Unbind(table TableID, slot int, id ID)
}

// Config configures a Store.
type Config struct {
	// Shards is rounded up to a power of two. 0 means DefaultShards.
	Shards int

	// Resources enforces the optional item budget. May be nil.
	Resources *resource.Controller

	// Unbinder is notified for each binding of a removed item. May be nil.
	Unbinder Unbinder
}

type item struct {
	doc      metadata.Document
	refs     *refcount.RefCount
	bindings map[TableID]int
}

type shard struct {
	mu    sync.RWMutex
	items map[ID]*item
	_     cpu.CacheLinePad
}

// Store maps ids to records. Safe for concurrent use.
type Store struct {
	shards   []shard
	rc       *resource.Controller
	unbinder Unbinder

	nextID atomic.Uint64
	count  atomic.Int64
}

// New creates an empty store.
func New(cfg Config) *Store {
	n := cfg.Shards
	if n <= 0 {
		n = DefaultShards
	}
	if n&(n-1) != 0 {
		n = 1 << bits.Len(uint(n))
	}

	s := &Store{
		shards:   make([]shard, n),
		rc:       cfg.Resources,
		unbinder: cfg.Unbinder,
	}
	for i := range s.shards {
		s.shards[i].items = make(map[ID]*item)
	}
	return s
}

func (s *Store) shard(id ID) *shard {
	return &s.shards[hash.Shard(id, len(s.shards))]
}

// Insert stores a clone of doc under a new id with a reference count of 1.
func (s *Store) Insert(doc metadata.Document) (ID, error) {
	if err := s.rc.AcquireItem(); err != nil {
		return 0, fmt.Errorf("%w: %d of %d items: %w", ErrCapacityExceeded, s.rc.Items(), s.rc.MaxItems(), err)
	}

	id := s.nextID.Add(1)
	it := &item{
		doc:  doc.Clone(),
		refs: refcount.New(1),
	}

	sh := s.shard(id)
	sh.mu.Lock()
	sh.items[id] = it
	sh.mu.Unlock()

	s.count.Add(1)
	return id, nil
}

// Get returns a clone of the item's metadata.
func (s *Store) Get(id ID) (metadata.Document, error) {
	sh := s.shard(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	it, ok := sh.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return it.doc.Clone(), nil
}

// Update replaces the item's metadata. The reference count is untouched.
func (s *Store) Update(id ID, doc metadata.Document) error {
	sh := s.shard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	it, ok := sh.items[id]
	if !ok {
		return ErrNotFound
	}
	it.doc = doc.Clone()
	return nil
}

// AddReference adds an owner and returns the new count.
func (s *Store) AddReference(id ID) (uint64, error) {
	sh := s.shard(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	it, ok := sh.items[id]
	if !ok {
		return 0, ErrNotFound
	}
	// A present record always has refs >= 1: the transition to 0 deletes it
	// under the write lock, which excludes this reader.
	return it.refs.Increment(), nil
}

// Pin adds an owner and returns a clone of the metadata in one step.
func (s *Store) Pin(id ID) (metadata.Document, uint64, error) {
	sh := s.shard(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	it, ok := sh.items[id]
	if !ok {
		return nil, 0, ErrNotFound
	}
	return it.doc.Clone(), it.refs.Increment(), nil
}

// ReleaseReference drops an owner. When the count reaches zero the record is
// removed and all its slots are unbound before the shard lock is released.
func (s *Store) ReleaseReference(id ID) (uint64, error) {
	sh := s.shard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	it, ok := sh.items[id]
	if !ok {
		return 0, ErrNotFound
	}

	n, err := it.refs.Decrement()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		s.removeLocked(sh, id, it)
	}
	return n, nil
}

// Remove deletes the record regardless of its reference count.
func (s *Store) Remove(id ID) error {
	sh := s.shard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	it, ok := sh.items[id]
	if !ok {
		return ErrNotFound
	}

	s.removeLocked(sh, id, it)
	return nil
}

func (s *Store) removeLocked(sh *shard, id ID, it *item) {
	delete(sh.items, id)

	if s.unbinder != nil {
		for table, slot := range it.bindings {
			s.unbinder.Unbind(table, slot, id)
		}
	}
	it.bindings = nil

	s.count.Add(-1)
	s.rc.ReleaseItem()
}

// RefCount returns the item's current reference count.
func (s *Store) RefCount(id ID) (uint64, error) {
	sh := s.shard(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	it, ok := sh.items[id]
	if !ok {
		return 0, ErrNotFound
	}
	return it.refs.Load(), nil
}

// Len returns the number of live items.
func (s *Store) Len() int {
	return int(s.count.Load())
}

// Contains reports whether id is live.
func (s *Store) Contains(id ID) bool {
	sh := s.shard(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	_, ok := sh.items[id]
	return ok
}

// Range calls fn for every live id, one shard at a time. fn runs without
// any store lock held and may call back into the store.
func (s *Store) Range(fn func(id ID) bool) {
	var ids []ID
	for i := range s.shards {
		sh := &s.shards[i]

		ids = ids[:0]
		sh.mu.RLock()
		for id := range sh.items {
			ids = append(ids, id)
		}
		sh.mu.RUnlock()

		for _, id := range ids {
			if !fn(id) {
				return
			}
		}
	}
}
