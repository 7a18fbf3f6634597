package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sagarc03/edgestow"
	"github.com/sagarc03/edgestow/config"
)

var warmCmd = &cobra.Command{
	Use:   "warm [flags] <url1> [url2] ...",
	Short: "Pre-load objects into the cache",
	Long: `Fetch objects from the origin and write them into the cache store
ahead of demand.

Each argument is an object path, optionally with query parameters, as the
proxy would receive it. The fetch goes straight to the origin; responses
the cache policy refuses (non-2xx, partial content, no-store) are reported
as failures.

Examples:
  # Warm two objects
  edgestow warm /images/hero.jpg /downloads/setup.pkg

  # Warm a rendition selected by query parameters
  edgestow warm "/images/hero.jpg?w=800"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWarm,
}

var warmQuiet bool

func init() {
	warmCmd.Flags().BoolVarP(&warmQuiet, "quiet", "q", false, "suppress per-object output")
	rootCmd.AddCommand(warmCmd)
}

func runWarm(cmd *cobra.Command, args []string) error {
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

	cache, _, err := buildCache(ctx, cfg, store)
	if err != nil {
		return err
	}
	defer func() { _ = cache.Close() }()

	warmed, failed := 0, 0
	for _, raw := range args {
		u, parseErr := url.Parse(raw)
		if parseErr != nil || strings.TrimPrefix(u.Path, "/") == "" {
			slog.Error("skipping url without an object path", "url", raw)
			failed++
			continue
		}
		if !strings.HasPrefix(u.Path, "/") {
			u.Path = "/" + u.Path
		}

		req := &edgestow.Request{Method: http.MethodGet, URL: u, Header: http.Header{}}
		result, warmErr := cache.Warm(ctx, req)
		if warmErr != nil {
			slog.Error("warm failed", "url", raw, "err", warmErr)
			failed++
			continue
		}
		if !warmQuiet {
			slog.Info("warmed", "url", raw, "key", result.Key, "bytes", len(result.Body))
		}
		warmed++
	}

	slog.Info("warm complete", "warmed", warmed, "failed", failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d objects failed to warm", failed, len(args))
	}
	return nil
}
