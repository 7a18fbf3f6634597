package cachestore_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/edgestow"
	"github.com/sagarc03/edgestow/cachestore"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpenUnsupportedType(t *testing.T) {
	_, err := cachestore.Open(context.Background(), cachestore.Config{Type: "redis"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported cache store type")
}

func TestOpenBackends(t *testing.T) {
	tests := []struct {
		name string
		cfg  cachestore.Config
	}{
		{
			name: "memory",
			cfg:  cachestore.Config{Type: "memory"},
		},
		{
			name: "leveldb",
			cfg:  cachestore.Config{Type: "leveldb", Path: t.TempDir()},
		},
		{
			name: "sqlite",
			cfg:  cachestore.Config{Type: "sqlite", DSN: ":memory:"},
		},
		{
			name: "tiered",
			cfg:  cachestore.Config{Type: "tiered", Path: t.TempDir()},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()

			store, err := cachestore.Open(ctx, tt.cfg)
			require.NoError(t, err)
			defer func() { _ = store.Close() }()

			entry := &edgestow.CachedEntry{
				Key:        "v1|/a.png|",
				Status:     200,
				Headers:    map[string]string{"Content-Type": "image/png"},
				Body:       []byte("png"),
				StoredAt:   time.Now().Unix(),
				TTLSeconds: 60,
			}
			require.NoError(t, store.Set(ctx, entry))

			got, err := store.Get(ctx, entry.Key)
			require.NoError(t, err)
			assert.Equal(t, entry.Body, got.Body)

			require.NoError(t, store.Delete(ctx, entry.Key))
			_, err = store.Get(ctx, entry.Key)
			assert.ErrorIs(t, err, edgestow.ErrNotFound)
		})
	}
}

func TestRunSweeperStopsOnCancel(t *testing.T) {
	store, err := cachestore.Open(context.Background(), cachestore.Config{Type: "memory"})
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		cachestore.RunSweeper(ctx, store, time.Millisecond, discardLogger())
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}
