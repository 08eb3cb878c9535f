package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	goption "google.golang.org/api/option"

	"ledgerbook/internal/cli"
	"ledgerbook/internal/config"
	"ledgerbook/internal/core"
	"ledgerbook/internal/ledger"
	"ledgerbook/internal/log"
	gsheet "ledgerbook/internal/sheets/google"
)

// app carries per-invocation state between the root hooks and subcommands.
type app struct {
	cfg     *config.Config
	logger  *log.Logger
	store   *ledger.Store
	cleanup func() error
	now     func() time.Time

	sheetsOpts []goption.ClientOption
}

func newApp() *app {
	return &app{now: time.Now}
}

// close releases the backend opened by the root pre-run hook. Cobra skips
// post-run hooks when a command fails, so callers run it after Execute.
func (a *app) close() error {
	if a.cleanup == nil {
		return nil
	}
	err := a.cleanup()
	a.cleanup = nil
	return err
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "ledger",
		Short:        "Record and summarize personal expenses",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadAndValidateConfig()
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = cli.SetupLogger(cfg, log.ComponentCLI, cmd.ErrOrStderr())

			store, cleanup, err := cli.OpenLedger(cmd.Context(), cfg, a.logger)
			if err != nil {
				return err
			}
			a.store, a.cleanup = store, cleanup
			return nil
		},
	}

	root.AddCommand(
		a.addCmd(),
		a.rmCmd(),
		a.listCmd(),
		a.totalCmd(),
		a.byCategoryCmd(),
		a.exportCmd(),
		a.importCmd(),
	)
	return root
}

func (a *app) addCmd() *cobra.Command {
	var category, date string
	cmd := &cobra.Command{
		Use:   "add TITLE AMOUNT",
		Short: "Add an expense at the top of the ledger",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if date == "" {
				date = a.now().Format(core.DateLayout)
			}
			r, err := a.store.Create(cmd.Context(), args[0], args[1], category, date)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added #0 %s %s (%s)\n", r.Title, r.Amount.String(), r.Category)
			return nil
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "category label (default \"General\")")
	cmd.Flags().StringVarP(&date, "date", "d", "", "display date (default today)")
	return cmd
}

func (a *app) rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm INDEX",
		Aliases: []string{"remove"},
		Short:   "Remove the expense at INDEX as shown by list",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("index must be an integer: %q", args[0])
			}
			r, err := a.store.Remove(cmd.Context(), idx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s %s\n", r.Title, r.Amount.String())
			return nil
		},
	}
}

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List expenses, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tTITLE\tAMOUNT\tCATEGORY\tDATE")
			for i, r := range a.store.List() {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i, r.Title, r.Amount.String(), r.Category, r.Date)
			}
			return tw.Flush()
		},
	}
}

func (a *app) totalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "total",
		Short: "Print the sum of all amounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), a.store.Total().String())
			return nil
		},
	}
}

func (a *app) byCategoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "by-category",
		Short: "Print totals per category, largest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, c := range a.store.Overview().ByCategory {
				fmt.Fprintf(tw, "%s\t%s\n", c.Category, c.Amount.String())
			}
			return tw.Flush()
		},
	}
}

func (a *app) exporter(ctx context.Context) (*gsheet.Exporter, error) {
	if !a.cfg.SheetsEnabled() {
		return nil, errors.New("GOOGLE_SPREADSHEET_ID is not set")
	}
	return gsheet.NewExporter(ctx, gsheet.Config{
		SpreadsheetID:   a.cfg.GoogleSpreadsheetID,
		SheetName:       a.cfg.GoogleSheetName,
		CredentialsJSON: a.cfg.GoogleServiceAccountJSON,
		CredentialsFile: a.cfg.GoogleServiceAccountFile,
	}, a.logger, a.sheetsOpts...)
}

func (a *app) exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write the ledger to the configured Google Sheets tab",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			exporter, err := a.exporter(ctx)
			if err != nil {
				return err
			}
			records := a.store.List()
			if err := exporter.Export(ctx, records); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d expenses\n", len(records))
			return nil
		},
	}
}

// importCmd adds the sheet rows on top of the ledger, keeping the sheet's
// order, so an exported ledger can be restored into an empty backend.
func (a *app) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Add the rows of the configured Google Sheets tab to the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			exporter, err := a.exporter(ctx)
			if err != nil {
				return err
			}
			records, err := exporter.Records(ctx)
			if err != nil {
				return err
			}
			for i := len(records) - 1; i >= 0; i-- {
				if _, err := a.store.Insert(ctx, records[i]); err != nil {
					return fmt.Errorf("import %q: %w", records[i].Title, err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d expenses\n", len(records))
			return nil
		},
	}
}
