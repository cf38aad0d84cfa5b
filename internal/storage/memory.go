package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"budgeting/internal/core"
)

// MemoryRepository keeps everything in process. Contents are lost on exit.
type MemoryRepository struct {
	mu     sync.RWMutex
	scopes map[core.Scope][]core.LineItem
}

var _ Repository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{scopes: map[core.Scope][]core.LineItem{}}
}

func (r *MemoryRepository) List(_ context.Context, scope core.Scope) ([]core.LineItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	items := r.scopes[scope]
	out := make([]core.LineItem, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out, nil
}

func (r *MemoryRepository) Upsert(_ context.Context, scope core.Scope, item core.LineItem) (core.LineItem, error) {
	item, err := normalize(scope, item)
	if err != nil {
		return core.LineItem{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.upsert(scope, item).Clone(), nil
}

func (r *MemoryRepository) UpsertMany(_ context.Context, scope core.Scope, items []core.LineItem) error {
	normalized := make([]core.LineItem, len(items))
	for i, it := range items {
		n, err := normalize(scope, it)
		if err != nil {
			return err
		}
		normalized[i] = n
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range normalized {
		r.upsert(scope, it)
	}
	return nil
}

func (r *MemoryRepository) Update(_ context.Context, scope core.Scope, key string, patch core.Patch) (core.LineItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := r.scopes[scope]
	i := find(items, key)
	if i < 0 {
		return core.LineItem{}, ErrNotFound
	}
	items[i] = patch.Apply(items[i])
	return items[i].Clone(), nil
}

func (r *MemoryRepository) Delete(_ context.Context, scope core.Scope, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := r.scopes[scope]
	i := find(items, key)
	if i < 0 {
		return ErrNotFound
	}
	r.scopes[scope] = append(items[:i], items[i+1:]...)
	return nil
}

func (r *MemoryRepository) Close() error {
	return nil
}

// upsert must be called with mu held.
func (r *MemoryRepository) upsert(scope core.Scope, item core.LineItem) core.LineItem {
	items := r.scopes[scope]
	for i := range items {
		if items[i].Name == item.Name {
			item.ID = items[i].ID
			items[i] = item
			return item
		}
	}
	item.ID = uuid.NewString()
	r.scopes[scope] = append(items, item)
	return item
}

// find prefers an id match over a name match.
func find(items []core.LineItem, key string) int {
	for i, it := range items {
		if it.ID == key {
			return i
		}
	}
	for i, it := range items {
		if it.Name == key {
			return i
		}
	}
	return -1
}
