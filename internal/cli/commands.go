package cli

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"budgeting/internal/core"
	"budgeting/internal/identity"
	ports "budgeting/internal/sheets"
	"budgeting/internal/sheets/file"
)

// NewRootCommand builds the budgetctl command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "budgetctl",
		Short: "Manage monthly income, budget and expense items",
		Long: `budgetctl reads and edits one user's income, budget and expense items
for a month against the budget store.

Configuration comes from the environment (or a .env file):
  API_BASE_URL, BUDGET_USER_ID, BUDGET_TOKEN, REQUEST_TIMEOUT, LOG_LEVEL`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.connect()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&app.month, "month", "m", app.month, "month to work on (YYYY-MM)")
	flags.StringVar(&app.Config.UserID, "user", app.Config.UserID, "user id, overrides BUDGET_USER_ID")
	flags.StringVar(&app.Config.APIBaseURL, "api", app.Config.APIBaseURL, "store base URL, overrides API_BASE_URL")

	root.AddCommand(
		newListCmd(app),
		newAddCmd(app),
		newEditCmd(app),
		newSetTagCmd(app),
		newRemoveCmd(app),
		newImportCmd(app),
		newExportCmd(app),
		newSummaryCmd(app),
	)
	return root
}

func categoryArg(s string) (core.Category, error) {
	return core.ParseCategory(s)
}

func newListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:       "list <income|budget|expense>",
		Short:     "List the items of a category",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"income", "budget", "expense"},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := categoryArg(args[0])
			if err != nil {
				return err
			}
			l, err := app.ledger(cmd.Context(), c)
			if err != nil {
				return err
			}
			items := l.Items()
			if len(items) == 0 {
				app.printf("No %s items for %s\n", c, app.activeMonth().Label())
				return nil
			}
			tw := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tAMOUNT\tTAGS")
			for _, it := range items {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", it.Name, core.FormatAmount(it.Value), strings.Join(it.Tags, ","))
			}
			fmt.Fprintf(tw, "TOTAL\t%s\t\n", core.FormatAmount(core.Total(items)))
			return tw.Flush()
		},
	}
}

func newAddCmd(app *App) *cobra.Command {
	var tags []string
	cmd := &cobra.Command{
		Use:   "add <category> <name> <amount>",
		Short: "Create a new item",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := categoryArg(args[0])
			if err != nil {
				return err
			}
			amount, err := core.ParseAmount(args[2])
			if err != nil {
				return err
			}
			if len(tags) > 0 && c != core.Expense {
				return fmt.Errorf("only expense items carry tags")
			}
			l, err := app.ledger(cmd.Context(), c)
			if err != nil {
				return err
			}
			if _, exists := l.Get(args[1]); exists {
				return fmt.Errorf("%s item %q already exists; use edit", c, args[1])
			}
			draft := core.LineItem{Name: args[1], Value: amount, Tags: tags}
			created, err := l.Submit(cmd.Context(), app.session, draft, identity.NewCreate())
			if err != nil {
				return err
			}
			app.printf("Added %s %q (%s)\n", c, created.Name, core.FormatAmount(created.Value))
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "expense tag (repeatable)")
	return cmd
}

func newEditCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <category> <name> <amount>",
		Short: "Change the amount of an existing item",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := categoryArg(args[0])
			if err != nil {
				return err
			}
			amount, err := core.ParseAmount(args[2])
			if err != nil {
				return err
			}
			l, err := app.ledger(cmd.Context(), c)
			if err != nil {
				return err
			}
			updated, err := l.SetValue(cmd.Context(), app.session, args[1], amount)
			if err != nil {
				return err
			}
			app.printf("Updated %s %q to %s\n", c, updated.Name, core.FormatAmount(updated.Value))
			return nil
		},
	}
}

func newSetTagCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "set-tag <expense name> [tag...]",
		Short: "Replace the tags of an expense; no tags clears them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := app.ledger(cmd.Context(), core.Expense)
			if err != nil {
				return err
			}
			updated, err := l.SetTags(cmd.Context(), app.session, args[0], args[1:])
			if err != nil {
				return err
			}
			app.printf("Tagged %q: %s\n", updated.Name, strings.Join(updated.Tags, ","))
			return nil
		},
	}
}

func newRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <category> <name>",
		Aliases: []string{"remove", "delete"},
		Short:   "Delete an item",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := categoryArg(args[0])
			if err != nil {
				return err
			}
			l, err := app.ledger(cmd.Context(), c)
			if err != nil {
				return err
			}
			if err := l.Delete(cmd.Context(), app.session, args[1]); err != nil {
				return err
			}
			app.printf("Deleted %s %q\n", c, args[1])
			return nil
		},
	}
}

func newImportCmd(app *App) *cobra.Command {
	var fromSheet bool
	cmd := &cobra.Command{
		Use:   "import [file.xlsx|file.csv]",
		Short: "Merge a spreadsheet into the month's expenses",
		Long: `Reads rows with name and amount columns (and an optional category or tag
column) and merges them into the month's expenses. Rows replace existing
expenses with the same name; unreadable amounts import as 0.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var src ports.RecordReader
			switch {
			case fromSheet && len(args) == 0:
				sheet, err := app.OpenSheet(ctx, app.Config, app.Logger)
				if err != nil {
					return err
				}
				src = sheet
			case !fromSheet && len(args) == 1:
				src = file.NewSource(args[0])
			default:
				return errors.New("give either a file or --sheet")
			}

			records, err := src.ReadRecords(ctx)
			if err != nil {
				return err
			}
			l, err := app.ledger(ctx, core.Expense)
			if err != nil {
				return err
			}
			res, err := l.Import(ctx, app.session, records)
			if err != nil {
				return err
			}
			app.printf("Imported %d rows: %d added, %d replaced", len(records), res.Added, res.Replaced)
			if res.Dropped > 0 {
				app.printf(", %d without a name skipped", res.Dropped)
			}
			if res.Zeroed > 0 {
				app.printf(", %d unreadable amounts set to 0", res.Zeroed)
			}
			app.printf("\n")
			return nil
		},
	}
	cmd.Flags().BoolVar(&fromSheet, "sheet", false, "read from the Google Sheet in GOOGLE_SPREADSHEET_ID")
	return cmd
}

func newExportCmd(app *App) *cobra.Command {
	var toSheet bool
	cmd := &cobra.Command{
		Use:   "export [file.xlsx|file.csv]",
		Short: "Write the month's expenses to a spreadsheet",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var dst ports.ItemWriter
			switch {
			case toSheet && len(args) == 0:
				sheet, err := app.OpenSheet(ctx, app.Config, app.Logger)
				if err != nil {
					return err
				}
				dst = sheet
			case !toSheet && len(args) == 1:
				if _, err := file.FormatOf(args[0]); err != nil {
					return err
				}
				dst = file.NewTarget(args[0])
			default:
				return errors.New("give either a file or --sheet")
			}

			l, err := app.ledger(ctx, core.Expense)
			if err != nil {
				return err
			}
			items := l.Items()
			if err := dst.WriteItems(ctx, items); err != nil {
				return err
			}
			app.printf("Exported %d expenses for %s\n", len(items), app.activeMonth().Label())
			return nil
		},
	}
	cmd.Flags().BoolVar(&toSheet, "sheet", false, "write to the Google Sheet in GOOGLE_SPREADSHEET_ID")
	return cmd
}

func newSummaryCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show income, budget and remaining totals with the expense breakdown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			ws := app.workspace
			if err := ws.SwitchMonth(ctx, app.session, app.activeMonth()); err != nil {
				return err
			}
			if err := ws.LoadExpenses(ctx, app.session); err != nil {
				return err
			}

			s := ws.Summary()
			tw := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "%s\t\n", app.activeMonth().Label())
			fmt.Fprintf(tw, "Income\t%s\n", core.FormatAmount(s.TotalIncome))
			fmt.Fprintf(tw, "Budget\t%s\n", core.FormatAmount(s.TotalBudget))
			fmt.Fprintf(tw, "Remaining\t%s\n", core.FormatAmount(s.Remaining))

			if breakdown := ws.Breakdown(); len(breakdown) > 0 {
				fmt.Fprintln(tw, "\t")
				fmt.Fprintln(tw, "Expenses by tag\t")
				for _, ta := range breakdown {
					tag := ta.Tag
					if tag == "" {
						tag = "(untagged)"
					}
					fmt.Fprintf(tw, "  %s\t%s\n", tag, core.FormatAmount(ta.Amount))
				}
			}
			return tw.Flush()
		},
	}
}
