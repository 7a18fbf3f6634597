package postgres_test

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/sagarc03/edgestow"
	"github.com/sagarc03/edgestow/cachestore/postgres"
)

var (
	testPool     *pgxpool.Pool
	testPoolOnce sync.Once
)

// getSharedTestDatabase returns a shared database pool for all tests.
// This significantly improves test performance by reusing the same container.
func getSharedTestDatabase(t *testing.T) *pgxpool.Pool {
	t.Helper()

	testPoolOnce.Do(func() {
		ctx := context.Background()

		pgContainer, err := pgcontainer.Run(ctx,
			"postgres:18-alpine",
			pgcontainer.WithDatabase("testdb"),
			pgcontainer.WithUsername("testuser"),
			pgcontainer.WithPassword("testpass"),
			pgcontainer.BasicWaitStrategies(),
		)
		if err != nil {
			t.Fatalf("failed to start postgres container: %v", err)
		}

		connectionStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			if termErr := testcontainers.TerminateContainer(pgContainer); termErr != nil {
				t.Logf("failed to terminate container: %s", termErr)
			}
			t.Fatalf("failed to get connection string: %v", err)
		}

		pool, err := pgxpool.New(ctx, connectionStr)
		if err != nil {
			if termErr := testcontainers.TerminateContainer(pgContainer); termErr != nil {
				t.Logf("failed to terminate container: %s", termErr)
			}
			t.Fatalf("could not connect to database: %v", err)
		}

		testPool = pool
	})

	return testPool
}

// getRandomString generates a random string for unique test identifiers.
func getRandomString(t *testing.T) string {
	t.Helper()
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	assert.NoError(t, err, "random string")
	return fmt.Sprintf("test%x", n.Int64())
}

// setupTestStore creates a store with a unique table name for test isolation.
func setupTestStore(t *testing.T) *postgres.Store {
	t.Helper()

	pool := getSharedTestDatabase(t)
	ctx := context.Background()

	tableName := fmt.Sprintf("cache_%s", getRandomString(t))

	require.NoError(t, postgres.Migrate(ctx, pool, tableName), "failed to migrate")
	require.NoError(t, postgres.ValidateSchema(ctx, pool, tableName), "failed to validate schema")

	store, err := postgres.New(pool, tableName)
	require.NoError(t, err, "failed to create store")

	t.Cleanup(func() {
		_ = postgres.DropTables(ctx, pool, tableName)
	})

	return store
}

func freshEntry(key string) *edgestow.CachedEntry {
	return &edgestow.CachedEntry{
		Key:        key,
		Status:     200,
		Headers:    map[string]string{"Content-Type": "video/mp4", "ETag": `"pg1"`},
		Body:       []byte("mp4 bytes"),
		StoredAt:   time.Now().Unix(),
		TTLSeconds: 3600,
	}
}
