// Package level implements a persistent cache store backed by LevelDB.
package level

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/sagarc03/edgestow"
)

// entryPrefix namespaces cache records so future record kinds can share
// the same database.
const entryPrefix = "e:"

// Store persists entries in a LevelDB database, gob-encoded.
type Store struct {
	db *leveldb.DB
}

// Open opens (or creates) the LevelDB database at path.
func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb %q: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Get(_ context.Context, key string) (*edgestow.CachedEntry, error) {
	data, err := s.db.Get(recordKey(key), nil)
	if err == leveldb.ErrNotFound {
		return nil, edgestow.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("leveldb get: %w", err)
	}

	var entry edgestow.CachedEntry
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&entry); err != nil {
		return nil, fmt.Errorf("decode cache entry: %w", err)
	}
	if entry.Expired(time.Now()) {
		_ = s.db.Delete(recordKey(key), nil)
		return nil, edgestow.ErrExpired
	}
	return &entry, nil
}

func (s *Store) Set(_ context.Context, entry *edgestow.CachedEntry) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(entry); err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := s.db.Put(recordKey(entry.Key), buf.Bytes(), nil); err != nil {
		return fmt.Errorf("leveldb put: %w", err)
	}
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	if err := s.db.Delete(recordKey(key), nil); err != nil {
		return fmt.Errorf("leveldb delete: %w", err)
	}
	return nil
}

// Sweep scans all records and removes the expired ones. LevelDB has no
// native TTL, so the caller is expected to run this periodically.
func (s *Store) Sweep(ctx context.Context) (int, error) {
	now := time.Now()
	removed := 0

	iter := s.db.NewIterator(util.BytesPrefix([]byte(entryPrefix)), nil)
	defer iter.Release()

	for iter.Next() {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		var entry edgestow.CachedEntry
		if err := gob.NewDecoder(bytes.NewReader(iter.Value())).Decode(&entry); err != nil {
			// Unreadable records are dead weight either way.
			_ = s.db.Delete(iter.Key(), nil)
			removed++
			continue
		}
		if entry.Expired(now) {
			if err := s.db.Delete(iter.Key(), nil); err != nil {
				return removed, fmt.Errorf("leveldb delete: %w", err)
			}
			removed++
		}
	}
	if err := iter.Error(); err != nil {
		return removed, fmt.Errorf("leveldb iterate: %w", err)
	}
	return removed, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func recordKey(key string) []byte {
	return []byte(entryPrefix + key)
}
