package cli

import (
	"context"
	"fmt"
	"io"

	"budgeting/internal/config"
	"budgeting/internal/core"
	applog "budgeting/internal/log"
	"budgeting/internal/reconcile"
	"budgeting/internal/remote"
	ports "budgeting/internal/sheets"
	"budgeting/internal/sheets/google"
)

// Sheet is a spreadsheet that can be both imported from and exported to.
type Sheet interface {
	ports.RecordReader
	ports.ItemWriter
}

// App carries what every budgetctl command needs.
type App struct {
	Config *config.Config
	Logger *applog.Logger
	Out    io.Writer

	// OpenSheet connects to the spreadsheet used by --sheet.
	OpenSheet func(ctx context.Context, cfg *config.Config, logger *applog.Logger) (Sheet, error)

	month     string
	workspace *reconcile.Workspace
	session   core.Session
}

func NewApp(cfg *config.Config, logger *applog.Logger, out io.Writer) *App {
	if logger == nil {
		logger = applog.Discard()
	}
	return &App{
		Config:    cfg,
		Logger:    logger.WithComponent(applog.ComponentCLI),
		Out:       out,
		OpenSheet: openGoogleSheet,
		month:     string(core.CurrentMonth()),
	}
}

func openGoogleSheet(ctx context.Context, cfg *config.Config, logger *applog.Logger) (Sheet, error) {
	return google.New(ctx, google.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		Range:           cfg.GoogleSheetRange,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	}, logger)
}

// connect validates the client settings and builds the workspace.
func (a *App) connect() error {
	if err := a.Config.ValidateClient(); err != nil {
		return err
	}
	if _, err := core.ParseMonth(a.month); err != nil {
		return err
	}
	client, err := remote.New(a.Config.APIBaseURL,
		remote.WithTimeout(a.Config.RequestTimeout),
		remote.WithLogger(a.Logger))
	if err != nil {
		return err
	}
	a.workspace = reconcile.NewWorkspace(client, a.Logger)
	a.session = a.Config.Session()
	return nil
}

func (a *App) activeMonth() core.Month {
	return core.Month(a.month)
}

// ledger loads the ledger of category c for the active month.
func (a *App) ledger(ctx context.Context, c core.Category) (*reconcile.Ledger, error) {
	l, err := a.workspace.Ledger(c)
	if err != nil {
		return nil, err
	}
	if err := l.Load(ctx, a.session, a.activeMonth()); err != nil {
		return nil, fmt.Errorf("load %s: %w", c, err)
	}
	return l, nil
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.Out, format, args...)
}
