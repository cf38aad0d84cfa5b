// Package cache holds the server's read caches.
package cache

import (
	"sync"
	"time"

	"budgeting/internal/core"
	applog "budgeting/internal/log"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

var _ Cache[int] = (*LRUCache[int])(nil)

// ListCache caches the item list of each scope. Writers call Invalidate
// after every successful write to the scope.
type ListCache struct {
	lru *LRUCache[[]core.LineItem]
}

func NewListCache(maxScopes int, ttl time.Duration) *ListCache {
	return &ListCache{lru: NewLRUCache[[]core.LineItem](maxScopes, ttl)}
}

// Get returns a copy of the cached list so callers may modify it.
func (c *ListCache) Get(scope core.Scope) ([]core.LineItem, bool) {
	items, ok := c.lru.Get(scope.Key())
	if !ok {
		return nil, false
	}
	return cloneItems(items), true
}

func (c *ListCache) Set(scope core.Scope, items []core.LineItem) {
	c.lru.Set(scope.Key(), cloneItems(items))
}

func (c *ListCache) Invalidate(scope core.Scope) {
	c.lru.Delete(scope.Key())
}

func (c *ListCache) CleanExpired() int { return c.lru.CleanExpired() }

func (c *ListCache) Stats() Stats { return c.lru.Stats() }

func cloneItems(items []core.LineItem) []core.LineItem {
	out := make([]core.LineItem, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}

// Cleaner interface for caches that support cleanup
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically purges expired entries from its caches.
type Manager struct {
	mu          sync.Mutex
	caches      []Cleaner
	logger      *applog.Logger
	stopCleanup chan struct{}
	cleanupDone chan struct{}
	stopOnce    sync.Once
	started     bool
}

func NewManager(logger *applog.Logger) *Manager {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Manager{
		logger:      logger.WithComponent(applog.ComponentCache),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

func (m *Manager) Register(cache Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches = append(m.caches, cache)
}

// StartCleanup begins periodic cleanup of all registered caches.
func (m *Manager) StartCleanup(interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started || interval <= 0 {
		return
	}
	m.started = true
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.CleanNow(); n > 0 {
				m.logger.Debug("Purged expired cache entries", applog.FieldCount, n)
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// CleanNow purges every registered cache once.
func (m *Manager) CleanNow() int {
	m.mu.Lock()
	caches := append([]Cleaner(nil), m.caches...)
	m.mu.Unlock()

	total := 0
	for _, c := range caches {
		total += c.CleanExpired()
	}
	return total
}

// Stop ends the cleanup routine, waiting for it to exit.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCleanup)
		m.mu.Lock()
		started := m.started
		m.mu.Unlock()
		if started {
			<-m.cleanupDone
		}
	})
}
