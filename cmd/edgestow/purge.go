package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sagarc03/edgestow/config"
)

var purgeCmd = &cobra.Command{
	Use:   "purge <key1> [key2] ...",
	Short: "Remove entries from the cache store",
	Long: `Delete cache entries by exact cache key, talking to the store
directly rather than through a running server.

Cache keys are the composite strings the proxy derives from requests; the
debug header and the admin purge API both report them. Pattern purges are
not supported: stores index by exact key only.

Examples:
  edgestow purge "v1|/images/hero.jpg|"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPurge,
}

func init() {
	rootCmd.AddCommand(purgeCmd)
}

func runPurge(cmd *cobra.Command, args []string) error {
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

	failed := 0
	for _, key := range args {
		if err := store.Delete(ctx, key); err != nil {
			slog.Error("purge failed", "key", key, "err", err)
			failed++
			continue
		}
		slog.Info("purged", "key", key)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d keys failed to purge", failed, len(args))
	}
	return nil
}
