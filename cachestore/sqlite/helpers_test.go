package sqlite_test

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/edgestow"
	"github.com/sagarc03/edgestow/cachestore/sqlite"
)

func getRandomString(t *testing.T) string {
	t.Helper()
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	assert.NoError(t, err, "random string")
	return fmt.Sprintf("test%x", n.Int64())
}

// setupTestStore creates a store with a unique table name for test isolation
func setupTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	tableName := fmt.Sprintf("cache_%s", getRandomString(t))

	store, err := sqlite.Open(context.Background(), ":memory:", tableName)
	require.NoError(t, err, "failed to open store")
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func freshEntry(key string) *edgestow.CachedEntry {
	return &edgestow.CachedEntry{
		Key:        key,
		Status:     200,
		Headers:    map[string]string{"Content-Type": "application/json", "ETag": `"e99"`},
		Body:       []byte(`{"ok":true}`),
		StoredAt:   time.Now().Unix(),
		TTLSeconds: 3600,
	}
}
