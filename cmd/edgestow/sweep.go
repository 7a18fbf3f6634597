package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sagarc03/edgestow/cachestore"
	"github.com/sagarc03/edgestow/config"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove expired cache entries",
	Long: `Run one sweep over the cache store, removing entries past their
TTL. The serve command runs this periodically on its own; the standalone
command exists for cron-driven maintenance of stores a server is not
currently attached to.`,
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	sweeper, ok := store.(cachestore.Sweeper)
	if !ok {
		slog.Info("store expires entries on its own, nothing to sweep", "type", cfg.Store.Type)
		return nil
	}

	removed, err := sweeper.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}

	slog.Info("sweep complete", "entries_removed", removed)
	return nil
}
