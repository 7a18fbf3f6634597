// Package sqlite implements the cache store on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sagarc03/edgestow"

	_ "modernc.org/sqlite" // SQLite driver
)

// Store persists cache entries in a SQLite table. It owns the database
// handle; Close releases it.
type Store struct {
	db        *sql.DB
	tableName string
}

// Open opens the SQLite database at dsn, runs migrations, validates the
// schema, and returns a ready store.
func Open(ctx context.Context, dsn, tableName string) (*Store, error) {
	if !edgestow.IsValidTableName(tableName) {
		return nil, fmt.Errorf("open sqlite store: invalid table name: %s", tableName)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite store: %w", err)
	}

	if err = Migrate(ctx, db, tableName); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite store: %w", err)
	}

	if err = ValidateSchema(ctx, db, tableName); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("validate sqlite schema: %w", err)
	}

	return &Store{db: db, tableName: tableName}, nil
}

// Ping verifies the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Get(ctx context.Context, key string) (*edgestow.CachedEntry, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT status, headers, body, stored_at, ttl_seconds
		FROM %s
		WHERE key = ?`, s.tableName)

	entry := edgestow.CachedEntry{Key: key}
	var headersJSON string

	err := s.db.QueryRowContext(ctx, query, key).Scan(
		&entry.Status, &headersJSON, &entry.Body, &entry.StoredAt, &entry.TTLSeconds,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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

	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (key, status, headers, body, stored_at, ttl_seconds)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			status = excluded.status,
			headers = excluded.headers,
			body = excluded.body,
			stored_at = excluded.stored_at,
			ttl_seconds = excluded.ttl_seconds`, s.tableName)

	_, err = s.db.ExecContext(ctx, query,
		entry.Key, entry.Status, string(headersJSON), body, entry.StoredAt, entry.TTLSeconds,
	)
	if err != nil {
		return fmt.Errorf("set: %w", err)
	}

	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE key = ?`, s.tableName) //nolint:gosec // table name is validated

	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	return nil
}

// Sweep removes every expired row and reports how many were deleted.
func (s *Store) Sweep(ctx context.Context) (int, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`DELETE FROM %s WHERE stored_at + ttl_seconds <= ?`, s.tableName)

	result, err := s.db.ExecContext(ctx, query, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("sweep: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sweep: rows affected: %w", err)
	}

	return int(removed), nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
