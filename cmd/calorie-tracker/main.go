// Package main implements the calorie-tracker CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"calorie-tracker/internal/app"
	"calorie-tracker/internal/config"
	"calorie-tracker/internal/logging"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "calorie-tracker",
		Short: "Track daily calories from the terminal",
		Long: `calorie-tracker keeps a food ledger against a daily calorie goal.

Entries can be added by hand, picked from the common foods list or detected
from a meal photo. Settings come from an optional YAML file and environment
variables (GEMINI_API_KEY, GROQ_API_KEY, IMGBB_API_KEY, STORE_BACKEND, ...).`,
		Version:      version,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML config file")

	root.AddCommand(
		newAddCmd(opts),
		newDeleteCmd(opts),
		newListCmd(opts),
		newTodayCmd(opts),
		newWeekCmd(opts),
		newGoalCmd(opts),
		newFoodsCmd(),
		newAskCmd(opts),
		newAnalyzeCmd(opts),
		newUsageCmd(opts),
		newMetricsCleanupCmd(opts),
		newMigrateStoreCmd(opts),
		newImportCmd(opts),
	)
	return root
}

// withApp loads configuration, opens the application and closes it after fn.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}
