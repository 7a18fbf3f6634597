package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sagarc03/edgestow"
	"github.com/sagarc03/edgestow/config"
	"github.com/sagarc03/edgestow/origin"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check configuration and connectivity",
	Long: `Validate the configuration and probe the cache store and the
origin bucket. Exits non-zero when either is unreachable, so the command
can serve as a deployment readiness gate.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	// Config is validated by Load in the persistent pre-run; reaching this
	// point means the file, env, and flags already passed.
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	slog.Info("configuration valid")

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	// A probe read exercises the backend end to end; an absent key is the
	// expected answer.
	if _, err := store.Get(ctx, "edgestow-check-probe"); err != nil &&
		!errors.Is(err, edgestow.ErrNotFound) && !errors.Is(err, edgestow.ErrExpired) {
		return fmt.Errorf("cache store probe: %w", err)
	}
	slog.Info("cache store reachable", "type", cfg.Store.Type)

	originClient, err := origin.NewClient(ctx, cfg.Origin)
	if err != nil {
		return fmt.Errorf("create origin client: %w", err)
	}
	if _, err := originClient.List(ctx, origin.ListQuery{MaxKeys: 1}); err != nil {
		return fmt.Errorf("origin probe: %w", err)
	}
	slog.Info("origin reachable", "bucket", cfg.Origin.Bucket)

	return nil
}
