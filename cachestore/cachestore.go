package cachestore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sagarc03/edgestow"
	"github.com/sagarc03/edgestow/cachestore/dynamo"
	"github.com/sagarc03/edgestow/cachestore/level"
	"github.com/sagarc03/edgestow/cachestore/memory"
	"github.com/sagarc03/edgestow/cachestore/postgres"
	"github.com/sagarc03/edgestow/cachestore/sqlite"
	"github.com/sagarc03/edgestow/cachestore/tiered"
)

// DefaultTable is the table name the SQL backends use when none is
// configured.
const DefaultTable = "cache_entries"

// DefaultSweepInterval is how often RunSweeper fires when the caller does
// not choose an interval.
const DefaultSweepInterval = 10 * time.Minute

// Config holds the configuration for opening a cache store backend.
type Config struct {
	// Type specifies the backend: "memory", "leveldb", "sqlite", "postgres",
	// "dynamodb" or "tiered".
	Type string `mapstructure:"type"`
	// Path is the LevelDB directory, used by "leveldb" and "tiered".
	Path string `mapstructure:"path"`
	// DSN is the connection string for "sqlite" and "postgres".
	DSN string `mapstructure:"dsn"`
	// Table is the table name for the SQL and DynamoDB backends.
	Table string `mapstructure:"table"`
	// MaxEntries and MaxBytes bound the "memory" backend and the hot tier
	// of "tiered". Zero means the backend's defaults.
	MaxEntries int   `mapstructure:"max_entries"`
	MaxBytes   int64 `mapstructure:"max_bytes"`
	// Endpoint, Region, AccessKeyID and SecretAccessKey configure the
	// "dynamodb" backend.
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// Open builds the configured cache store backend, running migrations and
// schema validation for the SQL backends. The returned store's Close
// releases whatever the backend holds.
func Open(ctx context.Context, cfg Config) (edgestow.CacheStore, error) {
	table := cfg.Table
	if table == "" {
		table = DefaultTable
	}

	switch cfg.Type {
	case "memory":
		return memory.New(cfg.MaxEntries, cfg.MaxBytes), nil
	case "leveldb":
		return level.Open(cfg.Path)
	case "sqlite":
		return sqlite.Open(ctx, cfg.DSN, table)
	case "postgres":
		return postgres.Open(ctx, cfg.DSN, table)
	case "dynamodb":
		return dynamo.New(ctx, dynamo.Config{
			Table:           table,
			Endpoint:        cfg.Endpoint,
			Region:          cfg.Region,
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
		})
	case "tiered":
		cold, err := level.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		return tiered.New(memory.New(cfg.MaxEntries, cfg.MaxBytes), cold)
	default:
		return nil, fmt.Errorf("unsupported cache store type: %s", cfg.Type)
	}
}

// Sweeper is implemented by stores that can drop expired entries in bulk.
// DynamoDB relies on its native TTL instead and does not implement it.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// RunSweeper periodically sweeps the store until ctx is cancelled. It
// returns immediately when the store does not implement Sweeper.
func RunSweeper(ctx context.Context, store edgestow.CacheStore, interval time.Duration, logger *slog.Logger) {
	sweeper, ok := store.(Sweeper)
	if !ok {
		return
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			removed, err := sweeper.Sweep(ctx)
			if err != nil {
				logger.Warn("cache sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				logger.Debug("cache sweep complete", "removed", removed)
			}
		}
	}
}
