package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sagarc03/edgestow"
	"github.com/sagarc03/edgestow/cachestore"
	"github.com/sagarc03/edgestow/config"
	edgehttp "github.com/sagarc03/edgestow/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the proxy server",
	Long:  `Start the edgestow HTTP server.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 5807, "HTTP server port")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	cache, originClient, err := buildCache(ctx, cfg, store)
	if err != nil {
		return err
	}
	defer func() { _ = cache.Close() }()

	go cachestore.RunSweeper(ctx, store, time.Duration(cfg.Cache.SweepInterval)*time.Second, slog.Default())

	var verifier edgehttp.RequestVerifier
	if cfg.Auth.Enforce {
		verifier = edgestow.NewVerifier(cfg.Auth.Secret)
	}

	handlerConfig := edgehttp.HandlerConfig{
		Verifier:      verifier,
		RequiredPaths: cfg.Auth.RequiredPaths,
		AdminToken:    cfg.Auth.AdminToken,
		Debug:         cfg.Cache.DebugHeader,
		PrefixLimits:  cfg.Limits.PrefixLimits(),
		CORS:          cfg.CORS,
	}

	handler := edgehttp.NewHandler(&handlerConfig, cache, originClient)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(),
			time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "err", err)
		}
		cancel()
	}()

	slog.Info("starting server",
		"addr", addr,
		"bucket", cfg.Origin.Bucket,
		"store", cfg.Store.Type,
		"cache_enabled", cfg.Cache.Enabled,
		"signing_enforced", cfg.Auth.Enforce,
	)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
