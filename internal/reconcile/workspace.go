package reconcile

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"budgeting/internal/core"
	applog "budgeting/internal/log"
)

// Workspace holds the three ledgers of one user for the active month.
type Workspace struct {
	Income  *Ledger
	Budget  *Ledger
	Expense *Ledger

	logger *applog.Logger

	mu    sync.Mutex
	month core.Month
}

func NewWorkspace(remote Remote, logger *applog.Logger) *Workspace {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Workspace{
		Income:  NewLedger(core.Income, remote, logger),
		Budget:  NewLedger(core.Budget, remote, logger),
		Expense: NewLedger(core.Expense, remote, logger),
		logger:  logger.WithComponent(applog.ComponentReconcile),
	}
}

// Ledger returns the ledger for category c.
func (w *Workspace) Ledger(c core.Category) (*Ledger, error) {
	switch c {
	case core.Income:
		return w.Income, nil
	case core.Budget:
		return w.Budget, nil
	case core.Expense:
		return w.Expense, nil
	default:
		return nil, c.Validate()
	}
}

// Month returns the active month.
func (w *Workspace) Month() core.Month {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.month
}

// SwitchMonth makes month active and loads income and budget concurrently.
// Each ledger is populated independently; the first error is returned. The
// expense ledger moves to month too but stays empty until LoadExpenses.
func (w *Workspace) SwitchMonth(ctx context.Context, sess core.Session, month core.Month) error {
	if err := month.Validate(); err != nil {
		return err
	}
	if err := w.Expense.Reset(sess, month); err != nil {
		return err
	}
	w.mu.Lock()
	w.month = month
	w.mu.Unlock()

	var g errgroup.Group
	g.Go(func() error { return w.Income.Load(ctx, sess, month) })
	g.Go(func() error { return w.Budget.Load(ctx, sess, month) })
	if err := g.Wait(); err != nil {
		return err
	}
	w.logger.DebugContext(ctx, "Month loaded",
		applog.FieldUserID, sess.UserID,
		applog.FieldMonth, string(month))
	return nil
}

// LoadExpenses loads the expense ledger for the active month.
func (w *Workspace) LoadExpenses(ctx context.Context, sess core.Session) error {
	month := w.Month()
	if month == "" {
		return ErrNotLoaded
	}
	return w.Expense.Load(ctx, sess, month)
}

// Summary computes the totals from the current income and budget contents.
func (w *Workspace) Summary() core.Summary {
	return core.Summarize(w.Income.Items(), w.Budget.Items())
}

// Breakdown groups the current expenses by tag.
func (w *Workspace) Breakdown() []core.TagAmount {
	return core.TagTotals(w.Expense.Items())
}
