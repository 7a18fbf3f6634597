package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate creates the cache table and its expiry index if they do not exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool, tableName string) error {
	if err := createCacheTable(ctx, pool, tableName); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func createCacheTable(ctx context.Context, pool *pgxpool.Pool, tableName string) error {
	quotedTable := pgx.Identifier{tableName}.Sanitize()
	indexExpiry := pgx.Identifier{fmt.Sprintf("idx_%s_expiry", tableName)}.Sanitize()

	sql := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key TEXT NOT NULL PRIMARY KEY,
			status INTEGER NOT NULL,
			headers TEXT NOT NULL,
			body BYTEA NOT NULL,
			stored_at BIGINT NOT NULL,
			ttl_seconds INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS %s
		ON %s ((stored_at + ttl_seconds));
	`,
		quotedTable,
		indexExpiry, quotedTable,
	)

	_, err := pool.Exec(ctx, sql)
	if err != nil {
		return fmt.Errorf("create cache table: %w", err)
	}
	return nil
}

// DropTables removes the cache table. Intended for tests.
func DropTables(ctx context.Context, pool *pgxpool.Pool, tableName string) error {
	quotedTable := pgx.Identifier{tableName}.Sanitize()
	sql := fmt.Sprintf("DROP TABLE IF EXISTS %s", quotedTable)

	if _, err := pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("drop table %s: %w", tableName, err)
	}
	return nil
}
