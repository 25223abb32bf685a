package replaytables

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/hupe1980/replaytables/internal/itemstore"
	"github.com/hupe1980/replaytables/internal/resource"
	"github.com/hupe1980/replaytables/metadata"
)

// ID identifies an item. Ids start at 1 and are never reused; 0 never
// names an item.
type ID = itemstore.ID

// Store owns item records and the tables that sample them.
// All methods are safe for concurrent use.
type Store struct {
	items   *itemstore.Store
	rc      *resource.Controller
	schema  metadata.Schema
	metrics MetricsCollector
	logger  *Logger

	mu          sync.RWMutex // Protects tables, byID and nextTableID
	tables      map[string]*Table
	byID        map[itemstore.TableID]*Table
	nextTableID itemstore.TableID
}

// New creates an empty store.
func New(optFns ...Option) *Store {
	o := applyOptions(optFns)

	s := &Store{
		rc:      resource.NewController(resource.Config{MaxItems: o.maxItems}),
		schema:  o.schema,
		metrics: o.metricsCollector,
		logger:  o.logger,
		tables:  make(map[string]*Table),
		byID:    make(map[itemstore.TableID]*Table),
	}
	s.items = itemstore.New(itemstore.Config{
		Shards:    o.numShards,
		Resources: s.rc,
		Unbinder:  unbinder{s},
	})
	return s
}

// Insert stores md under a new id with a reference count of 1. The caller
// owns that reference and gives it up with ReleaseReference.
func (s *Store) Insert(md metadata.Document) (ID, error) {
	start := time.Now()

	id, err := s.insert(md)

	s.metrics.RecordInsert(time.Since(start), err)
	s.logger.LogInsert(context.Background(), id, err)
	return id, err
}

func (s *Store) insert(md metadata.Document) (ID, error) {
	if err := s.schema.Validate(md); err != nil {
		return 0, err
	}

	id, err := s.items.Insert(md)
	return id, translateError(err)
}

// InsertMap converts a map of plain Go values and inserts it.
func (s *Store) InsertMap(m map[string]any) (ID, error) {
	md, err := s.schema.Document(m)
	if err != nil {
		return 0, err
	}
	return s.Insert(md)
}

// Get returns a copy of the item's metadata.
func (s *Store) Get(id ID) (metadata.Document, error) {
	md, err := s.items.Get(id)
	return md, translateError(err)
}

// UpdateMetadata replaces the item's metadata without touching its
// reference count.
func (s *Store) UpdateMetadata(id ID, md metadata.Document) error {
	if err := s.schema.Validate(md); err != nil {
		return err
	}
	return translateError(s.items.Update(id, md))
}

// AddReference registers an additional owner and returns the new count.
func (s *Store) AddReference(id ID) (uint64, error) {
	n, err := s.items.AddReference(id)
	return n, translateError(err)
}

// ReleaseReference drops one owner and returns the remaining count. When it
// reaches zero the record is removed and every table slot bound to it is
// zeroed before ReleaseReference returns.
func (s *Store) ReleaseReference(id ID) (uint64, error) {
	n, err := s.items.ReleaseReference(id)
	err = translateError(err)

	s.metrics.RecordRelease(err)
	if err == nil && n == 0 {
		s.recordRemove(id)
	}
	return n, err
}

// Remove deletes the item regardless of its reference count and clears all
// of its table slots.
func (s *Store) Remove(id ID) error {
	err := translateError(s.items.Remove(id))
	if err == nil {
		s.recordRemove(id)
	} else {
		s.logger.LogRemove(context.Background(), id, err)
	}
	return err
}

func (s *Store) recordRemove(id ID) {
	s.metrics.RecordRemove()
	s.logger.LogRemove(context.Background(), id, nil)
}

// RefCount returns the item's current reference count.
func (s *Store) RefCount(id ID) (uint64, error) {
	n, err := s.items.RefCount(id)
	return n, translateError(err)
}

// Contains reports whether id is live.
func (s *Store) Contains(id ID) bool {
	return s.items.Contains(id)
}

// Len returns the number of live items.
func (s *Store) Len() int {
	return s.items.Len()
}

// Range calls fn for every live id until fn returns false. Items inserted
// or removed during iteration may or may not be visited.
func (s *Store) Range(fn func(id ID) bool) {
	s.items.Range(fn)
}

// CreateTable registers a new sampling table with capacity slots.
func (s *Store) CreateTable(name string, capacity int, optFns ...TableOption) (*Table, error) {
	cfg := applyTableOptions(optFns)
	if err := cfg.Validate(); err != nil {
		s.logger.LogTable(context.Background(), "create", name, capacity, err)
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tables[name]; ok {
		err := fmt.Errorf("%w: %q", ErrTableExists, name)
		s.logger.LogTable(context.Background(), "create", name, capacity, err)
		return nil, err
	}

	s.nextTableID++
	t, err := newTable(s, s.nextTableID, name, capacity, cfg)
	if err != nil {
		s.logger.LogTable(context.Background(), "create", name, capacity, err)
		return nil, err
	}

	s.tables[name] = t
	s.byID[t.id] = t
	s.logger.LogTable(context.Background(), "created", name, capacity, nil)
	return t, nil
}

// Table returns the table registered under name.
func (s *Store) Table(name string) (*Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTableNotFound, name)
	}
	return t, nil
}

// Tables returns the names of all registered tables in sorted order.
func (s *Store) Tables() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Sorted(maps.Keys(s.tables))
}

// DropTable unregisters a table and releases every reference it holds.
// Items whose last owner was the table are removed.
func (s *Store) DropTable(name string) error {
	s.mu.Lock()
	t, ok := s.tables[name]
	if ok {
		delete(s.tables, name)
		delete(s.byID, t.id)
	}
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %q", ErrTableNotFound, name)
	}

	t.drop()
	s.logger.LogTable(context.Background(), "dropped", name, t.Capacity(), nil)
	return nil
}

func (s *Store) table(id itemstore.TableID) *Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byID[id]
}

// unbinder clears table slots of removed items. It runs with the item's
// shard lock held.
type unbinder struct {
	s *Store
}

func (u unbinder) Unbind(table itemstore.TableID, slot int, id ID) {
	// A dropped table releases its own slots.
	if t := u.s.table(table); t != nil {
		t.clearSlot(slot, id)
	}
}
