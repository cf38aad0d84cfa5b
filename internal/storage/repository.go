// Package storage persists line items for the reference store server.
package storage

import (
	"context"
	"errors"

	"budgeting/internal/core"
)

var ErrNotFound = errors.New("item not found")

// Repository stores line items partitioned by scope. Items are unique by
// name within a scope and listed in insertion order.
type Repository interface {
	// List returns the items of scope in insertion order.
	List(ctx context.Context, scope core.Scope) ([]core.LineItem, error)
	// Upsert inserts item or overwrites the item with the same name,
	// keeping its id and position. The stored item is returned.
	Upsert(ctx context.Context, scope core.Scope, item core.LineItem) (core.LineItem, error)
	// UpsertMany applies Upsert to every item atomically.
	UpsertMany(ctx context.Context, scope core.Scope, items []core.LineItem) error
	// Update patches the item addressed by key (id or name).
	Update(ctx context.Context, scope core.Scope, key string, patch core.Patch) (core.LineItem, error)
	// Delete removes the item addressed by key (id or name).
	Delete(ctx context.Context, scope core.Scope, key string) error
	Close() error
}

// normalize prepares an item for storage in scope.
func normalize(scope core.Scope, item core.LineItem) (core.LineItem, error) {
	item = item.Clone().InScope(scope)
	if err := item.Validate(); err != nil {
		return core.LineItem{}, err
	}
	item.Value = core.CoerceFloat(item.Value)
	if item.Tags == nil {
		item.Tags = []string{}
	}
	return item, nil
}
