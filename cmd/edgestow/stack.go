package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sagarc03/edgestow"
	"github.com/sagarc03/edgestow/cachestore"
	"github.com/sagarc03/edgestow/config"
	"github.com/sagarc03/edgestow/origin"
)

// openStore opens the configured cache store backend.
func openStore(ctx context.Context, cfg *config.Config) (edgestow.CacheStore, error) {
	store, err := cachestore.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open cache store: %w", err)
	}
	slog.Info("cache store ready", "type", cfg.Store.Type)
	return store, nil
}

// buildCache wires the origin client, the retrying fetcher, and the hybrid
// cache orchestrator on top of an open store.
func buildCache(ctx context.Context, cfg *config.Config, store edgestow.CacheStore) (*edgestow.HybridCache, *origin.Client, error) {
	originClient, err := origin.NewClient(ctx, cfg.Origin)
	if err != nil {
		return nil, nil, fmt.Errorf("create origin client: %w", err)
	}

	fetcher := edgestow.NewRetryingFetcher(
		originClient,
		cfg.Retry.MaxAttempts,
		time.Duration(cfg.Retry.BackoffMS)*time.Millisecond,
		slog.Default(),
	)

	cache, err := edgestow.NewHybridCache(store, fetcher, edgestow.NewKeyBuilder(cfg.Cache.KeyVersion), edgestow.ServiceConfig{
		Policy: cfg.Cache.Policy(),
		Logger: slog.Default(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create cache orchestrator: %w", err)
	}

	return cache, originClient, nil
}
