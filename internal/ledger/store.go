// Package ledger holds the in-memory line items of one category for the
// active (user, month) scope.
//
// The store never talks to the network. Loads are stamped with a
// generation so that a fetch started for a scope that has since been
// abandoned cannot overwrite the current one.
package ledger

import (
	"sync"

	"budgeting/internal/core"
)

// Generation identifies one load cycle of a store.
type Generation uint64

// Snapshot is an opaque copy of the store contents used for rollback.
type Snapshot struct {
	gen   Generation
	items []core.LineItem
}

// Store is an ordered collection of line items, unique by name.
type Store struct {
	mu    sync.Mutex
	scope core.Scope
	gen   Generation
	items []core.LineItem
	index map[string]int
}

func New(category core.Category) *Store {
	return &Store{
		scope: core.Scope{Category: category},
		index: map[string]int{},
	}
}

// Scope returns the scope the store currently holds.
func (s *Store) Scope() core.Scope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scope
}

// Generation returns the current load cycle.
func (s *Store) Generation() Generation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// Begin starts a new load cycle for scope. Switching to a different scope
// discards every entry; reloading the same scope keeps them until the new
// contents arrive. Any generation handed out earlier becomes stale.
func (s *Store) Begin(scope core.Scope) Generation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if scope != s.scope {
		s.scope = scope
		s.reset(nil)
	}
	s.gen++
	return s.gen
}

// Current reports whether gen is still the active load cycle.
func (s *Store) Current(gen Generation) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.gen
}

// Load replaces all entries for the current scope.
func (s *Store) Load(items []core.LineItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset(items)
}

// LoadAt replaces all entries if gen is still current. It returns false,
// leaving the store untouched, when the load is stale.
func (s *Store) LoadAt(gen Generation, items []core.LineItem) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return false
	}
	s.reset(items)
	return true
}

// All returns a copy of the entries in insertion order.
func (s *Store) All() []core.LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.items)
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Get returns the entry named name.
func (s *Store) Get(name string) (core.LineItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[name]
	if !ok {
		return core.LineItem{}, false
	}
	return s.items[i].Clone(), true
}

// Upsert inserts item at the end if its name is unseen, otherwise replaces
// the entry with the same name in place.
func (s *Store) Upsert(item core.LineItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsert(item.Clone())
}

// UpsertAt is Upsert guarded by a generation. It returns false when gen is
// stale.
func (s *Store) UpsertAt(gen Generation, item core.LineItem) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return false
	}
	s.upsert(item.Clone())
	return true
}

// Remove deletes the entry named name. No-op if absent.
func (s *Store) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remove(name)
}

// RemoveAt is Remove guarded by a generation. It returns false when gen is
// stale.
func (s *Store) RemoveAt(gen Generation, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return false
	}
	s.remove(name)
	return true
}

func (s *Store) remove(name string) {
	i, ok := s.index[name]
	if !ok {
		return
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	s.reindex()
}

// Snapshot captures the current contents and generation.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{gen: s.gen, items: cloneAll(s.items)}
}

// Restore puts back the contents captured in snap, unless the store has
// started a new load cycle since. It reports whether it restored.
func (s *Store) Restore(snap Snapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap.gen != s.gen {
		return false
	}
	s.reset(snap.items)
	return true
}

// reset must be called with mu held. Later duplicates of a name overwrite
// earlier ones in place.
func (s *Store) reset(items []core.LineItem) {
	s.items = make([]core.LineItem, 0, len(items))
	s.index = make(map[string]int, len(items))
	for _, it := range items {
		s.upsert(it.Clone())
	}
}

func (s *Store) upsert(item core.LineItem) {
	if i, ok := s.index[item.Name]; ok {
		s.items[i] = item
		return
	}
	s.index[item.Name] = len(s.items)
	s.items = append(s.items, item)
}

func (s *Store) reindex() {
	s.index = make(map[string]int, len(s.items))
	for i, it := range s.items {
		s.index[it.Name] = i
	}
}

func cloneAll(items []core.LineItem) []core.LineItem {
	out := make([]core.LineItem, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}
