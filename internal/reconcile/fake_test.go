package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"budgeting/internal/core"
)

var errBoom = errors.New("boom")

type call struct {
	Op    Op
	Scope core.Scope
	Key   string
	Item  core.LineItem
	Patch core.Patch
	Items []core.LineItem
}

// fakeRemote is an in-memory Remote that records every call.
type fakeRemote struct {
	mu     sync.Mutex
	data   map[core.Scope][]core.LineItem
	calls  []call
	fail   map[Op]error
	nextID int

	// fetchGate, when set, is consulted before a fetch returns. The fetch
	// blocks until the returned channel is closed.
	fetchGate func(core.Scope) <-chan struct{}
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		data: map[core.Scope][]core.LineItem{},
		fail: map[Op]error{},
	}
}

func (f *fakeRemote) seed(scope core.Scope, items ...core.LineItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range items {
		items[i] = items[i].InScope(scope)
	}
	f.data[scope] = items
}

func (f *fakeRemote) failOn(op Op, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fail, op)
		return
	}
	f.fail[op] = err
}

func (f *fakeRemote) record(c call) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	return f.fail[c.Op]
}

func (f *fakeRemote) callsOf(op Op) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeRemote) FetchAll(ctx context.Context, sess core.Session, scope core.Scope) ([]core.LineItem, error) {
	if err := f.record(call{Op: OpFetch, Scope: scope}); err != nil {
		return nil, err
	}
	if f.fetchGate != nil {
		if gate := f.fetchGate(scope); gate != nil {
			select {
			case <-gate:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]core.LineItem, len(f.data[scope]))
	for i, it := range f.data[scope] {
		out[i] = it.Clone()
	}
	return out, nil
}

func (f *fakeRemote) Create(_ context.Context, _ core.Session, scope core.Scope, item core.LineItem) (core.LineItem, error) {
	if err := f.record(call{Op: OpCreate, Scope: scope, Item: item.Clone()}); err != nil {
		return core.LineItem{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	item.ID = fmt.Sprintf("id-%d", f.nextID)
	f.data[scope] = append(f.data[scope], item.Clone())
	return item, nil
}

func (f *fakeRemote) Update(_ context.Context, _ core.Session, scope core.Scope, key string, patch core.Patch) error {
	return f.record(call{Op: OpUpdate, Scope: scope, Key: key, Patch: patch})
}

func (f *fakeRemote) Delete(_ context.Context, _ core.Session, scope core.Scope, key string) error {
	return f.record(call{Op: OpDelete, Scope: scope, Key: key})
}

func (f *fakeRemote) BulkUpsert(_ context.Context, _ core.Session, scope core.Scope, items []core.LineItem) error {
	cp := make([]core.LineItem, len(items))
	for i, it := range items {
		cp[i] = it.Clone()
	}
	return f.record(call{Op: OpBulkUpsert, Scope: scope, Items: cp})
}
