// Package postgres implements the cache store on PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sagarc03/edgestow"
)

// Store persists cache entries in a PostgreSQL table. A Store opened with
// Open owns its pool; one built with New shares the caller's pool, and
// Close closes it either way.
type Store struct {
	pool      *pgxpool.Pool
	tableName string
}

// New wraps an existing pool. The table must already be migrated.
func New(pool *pgxpool.Pool, tableName string) (*Store, error) {
	if !edgestow.IsValidTableName(tableName) {
		return nil, fmt.Errorf("new postgres store: invalid table name: %s", tableName)
	}
	return &Store{pool: pool, tableName: tableName}, nil
}

// Open connects to PostgreSQL, runs migrations, validates the schema, and
// returns a ready store.
func Open(ctx context.Context, dsn, tableName string) (*Store, error) {
	if !edgestow.IsValidTableName(tableName) {
		return nil, fmt.Errorf("open postgres store: invalid table name: %s", tableName)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres store: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres store: %w", err)
	}

	if err = Migrate(ctx, pool, tableName); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate postgres store: %w", err)
	}

	if err = ValidateSchema(ctx, pool, tableName); err != nil {
		pool.Close()
		return nil, fmt.Errorf("validate postgres schema: %w", err)
	}

	return &Store{pool: pool, tableName: tableName}, nil
}

// Ping verifies database connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Get(ctx context.Context, key string) (*edgestow.CachedEntry, error) {
	query := fmt.Sprintf(`
		SELECT status, headers, body, stored_at, ttl_seconds
		FROM %s
		WHERE key = $1
	`, s.tableName)

	entry := edgestow.CachedEntry{Key: key}
	var headersJSON string

	err := s.pool.QueryRow(ctx, query, key).Scan(
		&entry.Status, &headersJSON, &entry.Body, &entry.StoredAt, &entry.TTLSeconds,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, edgestow.ErrNotFound
		}
		return nil, fmt.Errorf("get: %w", err)
	}

	if err := json.Unmarshal([]byte(headersJSON), &entry.Headers); err != nil {
		return nil, fmt.Errorf("get: decode headers: %w", err)
	}

	if entry.Expired(time.Now()) {
		_ = s.Delete(ctx, key)
		return nil, edgestow.ErrExpired
	}

	return &entry, nil
}

func (s *Store) Set(ctx context.Context, entry *edgestow.CachedEntry) error {
	headersJSON, err := json.Marshal(entry.Headers)
	if err != nil {
		return fmt.Errorf("set: encode headers: %w", err)
	}

	body := entry.Body
	if body == nil {
		body = []byte{}
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (key, status, headers, body, stored_at, ttl_seconds)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (key) DO UPDATE
		SET status = EXCLUDED.status,
			headers = EXCLUDED.headers,
			body = EXCLUDED.body,
			stored_at = EXCLUDED.stored_at,
			ttl_seconds = EXCLUDED.ttl_seconds
	`, s.tableName)

	_, err = s.pool.Exec(ctx, query,
		entry.Key, entry.Status, string(headersJSON), body, entry.StoredAt, entry.TTLSeconds,
	)
	if err != nil {
		return fmt.Errorf("set: %w", err)
	}

	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, s.tableName)

	if _, err := s.pool.Exec(ctx, query, key); err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	return nil
}

// Sweep removes every expired row and reports how many were deleted.
func (s *Store) Sweep(ctx context.Context) (int, error) {
	query := fmt.Sprintf(`
		DELETE FROM %s WHERE stored_at + ttl_seconds <= $1
	`, s.tableName)

	result, err := s.pool.Exec(ctx, query, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("sweep: %w", err)
	}

	return int(result.RowsAffected()), nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
