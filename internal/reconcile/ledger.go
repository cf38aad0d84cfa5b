// Package reconcile keeps the local line item stores consistent with the
// remote store.
//
// Every mutation is applied locally first and rolled back if the remote
// call fails. Responses that arrive after the store moved to another load
// cycle are dropped.
package reconcile

import (
	"context"
	"errors"
	"sync"

	"budgeting/internal/core"
	"budgeting/internal/identity"
	"budgeting/internal/importer"
	"budgeting/internal/ledger"
	applog "budgeting/internal/log"
)

// Remote is the store the ledger reconciles against.
type Remote interface {
	FetchAll(ctx context.Context, sess core.Session, scope core.Scope) ([]core.LineItem, error)
	Create(ctx context.Context, sess core.Session, scope core.Scope, item core.LineItem) (core.LineItem, error)
	Update(ctx context.Context, sess core.Session, scope core.Scope, key string, patch core.Patch) error
	Delete(ctx context.Context, sess core.Session, scope core.Scope, key string) error
	BulkUpsert(ctx context.Context, sess core.Session, scope core.Scope, items []core.LineItem) error
}

// Ledger drives one category's store against the remote.
type Ledger struct {
	category core.Category
	store    *ledger.Store
	remote   Remote
	logger   *applog.Logger
	events   *applog.StructuredLogger
	plan     func(existing []core.LineItem, incoming []core.RawRecord, scope core.Scope) importer.Result

	mu          sync.Mutex
	statesScope core.Scope
	states      map[string]State
}

func NewLedger(category core.Category, remote Remote, logger *applog.Logger) *Ledger {
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentReconcile)
	return &Ledger{
		category: category,
		store:    ledger.New(category),
		remote:   remote,
		logger:   logger,
		events:   applog.NewStructuredLogger(logger),
		plan:     importer.Plan,
		states:   map[string]State{},
	}
}

func (l *Ledger) Category() core.Category {
	return l.category
}

// Scope returns the active scope. Zero until the first Load.
func (l *Ledger) Scope() core.Scope {
	return l.store.Scope()
}

// Items returns the current items in store order.
func (l *Ledger) Items() []core.LineItem {
	return l.store.All()
}

// Get returns the item named name.
func (l *Ledger) Get(name string) (core.LineItem, bool) {
	return l.store.Get(name)
}

// State returns the sync state of the named item. ok is false for names the
// ledger has never seen in the active scope.
func (l *Ledger) State(name string) (State, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.states[name]
	return s, ok
}

// Load fetches every item of (session user, month) and replaces the store.
// On failure the store keeps whatever it held for that scope.
func (l *Ledger) Load(ctx context.Context, sess core.Session, month core.Month) error {
	scope := sess.Scope(month, l.category)
	if err := scope.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	gen := l.store.Begin(scope)
	if l.statesScope != scope {
		l.statesScope = scope
		l.states = map[string]State{}
	}
	l.mu.Unlock()

	items, err := l.remote.FetchAll(ctx, sess, scope)
	if err != nil {
		return l.fail(ctx, OpFetch, scope, err, applog.NewFields().WithScope(scope))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.store.LoadAt(gen, items) {
		l.logger.DebugContext(ctx, "Dropped stale fetch response",
			applog.NewFields().WithScope(scope).WithCount(len(items)).ToSlice()...)
		return ErrStaleResponse
	}
	l.states = make(map[string]State, len(items))
	for _, it := range l.store.All() {
		l.states[it.Name] = Synced
	}
	l.logger.DebugContext(ctx, "Loaded items",
		applog.NewFields().WithScope(scope).WithCount(len(items)).WithOperation(applog.OpFetch).ToSlice()...)
	return nil
}

// Reset moves the ledger to (session user, month) without fetching. When the
// scope changes the store is emptied and in-flight responses for the old
// scope become stale; the next Load fills it.
func (l *Ledger) Reset(sess core.Session, month core.Month) error {
	scope := sess.Scope(month, l.category)
	if err := scope.Validate(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.store.Scope() == scope {
		return nil
	}
	l.store.Begin(scope)
	l.statesScope = scope
	l.states = map[string]State{}
	return nil
}

// Submit applies intent to draft: Create sends the full item, Edit sends only
// the changed value and tags to the target's identity. The returned item is
// the local entry after the remote acknowledged.
func (l *Ledger) Submit(ctx context.Context, sess core.Session, draft core.LineItem, intent identity.Intent) (core.LineItem, error) {
	scope, err := l.activeScope(sess)
	if err != nil {
		return core.LineItem{}, err
	}
	action, err := intent.Plan(draft)
	if err != nil {
		return core.LineItem{}, err
	}

	switch action.Kind {
	case identity.Create:
		return l.create(ctx, sess, scope, action.Item.InScope(scope))
	case identity.Edit:
		return l.update(ctx, sess, scope, action)
	default:
		return core.LineItem{}, identity.ErrNoIntent
	}
}

// SetValue edits the amount of the named item in place.
func (l *Ledger) SetValue(ctx context.Context, sess core.Session, name string, value float64) (core.LineItem, error) {
	cur, err := l.target(sess, name)
	if err != nil {
		return core.LineItem{}, err
	}
	draft := cur.Clone()
	draft.Value = value
	return l.Submit(ctx, sess, draft, identity.EditOf(cur))
}

// SetTags replaces the tags of the named item.
func (l *Ledger) SetTags(ctx context.Context, sess core.Session, name string, tags []string) (core.LineItem, error) {
	cur, err := l.target(sess, name)
	if err != nil {
		return core.LineItem{}, err
	}
	draft := cur.Clone()
	draft.Tags = append([]string{}, tags...)
	return l.Submit(ctx, sess, draft, identity.EditOf(cur))
}

// Delete removes the named item remotely, then locally. The item stays
// visible as PendingDelete while the call is in flight.
func (l *Ledger) Delete(ctx context.Context, sess core.Session, name string) error {
	scope, err := l.activeScope(sess)
	if err != nil {
		return err
	}
	cur, ok := l.store.Get(name)
	if !ok {
		return &SyncError{Op: OpDelete, Scope: scope, Err: ErrItemNotFound}
	}
	gen := l.store.Generation()
	prev := l.setState(name, PendingDelete)

	if err := l.remote.Delete(ctx, sess, scope, cur.Key()); err != nil {
		l.restoreState(name, prev)
		return l.fail(ctx, OpDelete, scope, err, applog.NewFields().WithScope(scope).WithItem(cur))
	}

	l.mu.Lock()
	applied := l.store.RemoveAt(gen, name)
	if applied {
		l.states[name] = Removed
	}
	l.mu.Unlock()
	if !applied {
		return ErrStaleResponse
	}
	l.events.LogSynced(ctx, applog.OpDelete, scope, cur)
	return nil
}

// Import merges records into the expense store and writes the whole merged
// batch with one bulk upsert. On failure the store is restored.
func (l *Ledger) Import(ctx context.Context, sess core.Session, records []core.RawRecord) (importer.Result, error) {
	if l.category != core.Expense {
		return importer.Result{}, ErrImportUnsupported
	}
	scope, err := l.activeScope(sess)
	if err != nil {
		return importer.Result{}, err
	}

	snap := l.store.Snapshot()
	gen := l.store.Generation()
	res := l.plan(l.store.All(), records, scope)

	l.mu.Lock()
	if !l.store.LoadAt(gen, res.Items) {
		l.mu.Unlock()
		l.logger.DebugContext(ctx, "Dropped import for a stale scope",
			applog.NewFields().WithScope(scope).WithCount(len(res.Items)).ToSlice()...)
		return res, ErrStaleResponse
	}
	prevStates := make(map[string]State, len(l.states))
	for k, v := range l.states {
		prevStates[k] = v
	}
	for _, it := range res.Items {
		if _, seen := l.states[it.Name]; seen && l.states[it.Name] != Removed {
			l.states[it.Name] = Dirty
		} else {
			l.states[it.Name] = New
		}
	}
	l.mu.Unlock()

	fields := applog.NewFields().WithScope(scope).WithCount(len(res.Items))
	if res.Dropped > 0 || res.Zeroed > 0 {
		l.logger.WarnContext(ctx, "Import rows degraded",
			append(applog.NewFields().WithScope(scope).ToSlice(), "dropped", res.Dropped, "zeroed", res.Zeroed)...)
	}

	if err := l.remote.BulkUpsert(ctx, sess, scope, res.Items); err != nil {
		l.mu.Lock()
		if l.store.Restore(snap) {
			l.states = prevStates
		}
		l.mu.Unlock()
		return res, l.fail(ctx, OpBulkUpsert, scope, err, fields)
	}

	l.mu.Lock()
	if l.store.Current(gen) {
		for _, it := range res.Items {
			l.states[it.Name] = Synced
		}
	}
	l.mu.Unlock()
	l.logger.InfoContext(ctx, "Import synced", fields.WithOperation(applog.OpImport).ToSlice()...)
	return res, nil
}

func (l *Ledger) create(ctx context.Context, sess core.Session, scope core.Scope, item core.LineItem) (core.LineItem, error) {
	snap := l.store.Snapshot()
	gen := l.store.Generation()

	l.mu.Lock()
	prev, hadPrev := l.states[item.Name]
	l.states[item.Name] = New
	l.store.UpsertAt(gen, item)
	l.mu.Unlock()

	created, err := l.remote.Create(ctx, sess, scope, item)
	if err != nil {
		l.mu.Lock()
		if l.store.Restore(snap) {
			if hadPrev {
				l.states[item.Name] = prev
			} else {
				delete(l.states, item.Name)
			}
		}
		l.mu.Unlock()
		return core.LineItem{}, l.fail(ctx, OpCreate, scope, err, applog.NewFields().WithScope(scope).WithItem(item))
	}

	created = created.InScope(scope)
	created.Name = item.Name
	created.Value = core.CoerceFloat(created.Value)

	l.mu.Lock()
	applied := l.store.UpsertAt(gen, created)
	if applied {
		l.states[created.Name] = Synced
	}
	l.mu.Unlock()
	if !applied {
		return created, ErrStaleResponse
	}
	l.events.LogSynced(ctx, applog.OpCreate, scope, created)
	return created, nil
}

func (l *Ledger) update(ctx context.Context, sess core.Session, scope core.Scope, action identity.Action) (core.LineItem, error) {
	cur, ok := l.store.Get(action.Item.Name)
	if !ok {
		return core.LineItem{}, &SyncError{Op: OpUpdate, Scope: scope, Err: ErrItemNotFound}
	}
	if action.NoOp() {
		return cur, nil
	}

	updated := action.Patch.Apply(cur)
	snap := l.store.Snapshot()
	gen := l.store.Generation()
	prev := l.setState(cur.Name, Dirty)
	l.store.UpsertAt(gen, updated)

	if err := l.remote.Update(ctx, sess, scope, cur.Key(), action.Patch); err != nil {
		l.mu.Lock()
		if l.store.Restore(snap) {
			l.states[cur.Name] = prev
		}
		l.mu.Unlock()
		return core.LineItem{}, l.fail(ctx, OpUpdate, scope, err, applog.NewFields().WithScope(scope).WithItem(cur))
	}

	l.mu.Lock()
	current := l.store.Current(gen)
	if current {
		l.states[cur.Name] = Synced
	}
	l.mu.Unlock()
	if !current {
		return updated, ErrStaleResponse
	}
	l.events.LogSynced(ctx, applog.OpUpdate, scope, updated)
	return updated, nil
}

// target looks up the item an inline edit addresses.
func (l *Ledger) target(sess core.Session, name string) (core.LineItem, error) {
	scope, err := l.activeScope(sess)
	if err != nil {
		return core.LineItem{}, err
	}
	cur, ok := l.store.Get(name)
	if !ok {
		return core.LineItem{}, &SyncError{Op: OpUpdate, Scope: scope, Err: ErrItemNotFound}
	}
	return cur, nil
}

func (l *Ledger) activeScope(sess core.Session) (core.Scope, error) {
	scope := l.store.Scope()
	if scope.UserID == "" {
		return core.Scope{}, ErrNotLoaded
	}
	if sess.UserID != scope.UserID {
		return core.Scope{}, ErrWrongUser
	}
	return scope, nil
}

func (l *Ledger) setState(name string, s State) State {
	l.mu.Lock()
	defer l.mu.Unlock()
	prev := l.states[name]
	if prev == 0 {
		prev = Synced
	}
	l.states[name] = s
	return prev
}

func (l *Ledger) restoreState(name string, s State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.states[name]; ok {
		l.states[name] = s
	}
}

func (l *Ledger) fail(ctx context.Context, op Op, scope core.Scope, err error, fields applog.LogFields) error {
	if errors.Is(err, context.Canceled) {
		l.logger.DebugContext(ctx, "Remote call canceled", fields.WithOperation(string(op)).ToSlice()...)
	} else {
		l.events.LogError(ctx, "Remote call failed", err, string(op), fields)
	}
	return &SyncError{Op: op, Scope: scope, Err: err}
}
