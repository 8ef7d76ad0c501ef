package main

import (
	"context"
	"fmt"
	"os"

	"calorie-tracker/internal/app"
	"calorie-tracker/internal/report"

	"github.com/spf13/cobra"
)

func newUsageCmd(root *rootOptions) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show daily API usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, root, func(ctx context.Context, a *app.App) error {
				rows, err := a.Usage(ctx, days)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), report.Usage(rows))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 7, "number of days to report")
	return cmd
}

func newMetricsCleanupCmd(root *rootOptions) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "metrics-cleanup",
		Short: "Remove old metric records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, root, func(ctx context.Context, a *app.App) error {
				affected, err := a.CleanupMetrics(ctx, days)
				if err != nil {
					return fmt.Errorf("cleanup failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Successfully removed %d old metric records.\n", affected)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "keep records for the last N days")
	return cmd
}

func newMigrateStoreCmd(root *rootOptions) *cobra.Command {
	var overwrite bool
	cmd := &cobra.Command{
		Use:   "migrate-store",
		Short: "Copy the JSON file store into SQLite",
		Long: `Copy the ledger and goal from the JSON files in data_dir into the SQLite
database. Keys that already exist in SQLite are skipped unless --overwrite
is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, root, func(ctx context.Context, a *app.App) error {
				res, err := a.MigrateFileStore(ctx, overwrite)
				if err != nil {
					return fmt.Errorf("store migration failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Migrated %d keys, skipped %d.\n", len(res.Keys), len(res.Skipped))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace keys that already exist in SQLite")
	return cmd
}

func newImportCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import entries from a JSON array",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer f.Close()

			return withApp(cmd, root, func(ctx context.Context, a *app.App) error {
				added, err := a.ImportEntries(ctx, f)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d entries.\n", len(added))
				return nil
			})
		},
	}
}
