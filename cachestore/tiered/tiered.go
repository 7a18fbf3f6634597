// Package tiered layers a fast cache store over a slower persistent one.
package tiered

import (
	"context"
	"errors"

	"github.com/sagarc03/edgestow"
)

// Store serves reads from the hot tier first and falls back to the cold
// tier, promoting cold hits into the hot tier. Writes land in both tiers;
// the cold tier is authoritative, the hot tier best effort.
type Store struct {
	hot  edgestow.CacheStore
	cold edgestow.CacheStore
}

// New layers hot over cold. Both stores are required.
func New(hot, cold edgestow.CacheStore) (*Store, error) {
	if hot == nil || cold == nil {
		return nil, errors.New("new tiered store: both tiers are required")
	}
	return &Store{hot: hot, cold: cold}, nil
}

func (s *Store) Get(ctx context.Context, key string) (*edgestow.CachedEntry, error) {
	entry, err := s.hot.Get(ctx, key)
	if err == nil {
		return entry, nil
	}

	entry, err = s.cold.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	// Promote so the next read skips the cold tier. Failure only costs
	// that shortcut.
	_ = s.hot.Set(ctx, entry)
	return entry, nil
}

func (s *Store) Set(ctx context.Context, entry *edgestow.CachedEntry) error {
	if err := s.cold.Set(ctx, entry); err != nil {
		return err
	}
	_ = s.hot.Set(ctx, entry)
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	hotErr := s.hot.Delete(ctx, key)
	coldErr := s.cold.Delete(ctx, key)
	if coldErr != nil {
		return coldErr
	}
	return hotErr
}

// Sweep forwards to whichever tiers support sweeping and sums their counts.
func (s *Store) Sweep(ctx context.Context) (int, error) {
	removed := 0
	for _, tier := range []edgestow.CacheStore{s.hot, s.cold} {
		sweeper, ok := tier.(interface {
			Sweep(ctx context.Context) (int, error)
		})
		if !ok {
			continue
		}
		n, err := sweeper.Sweep(ctx)
		removed += n
		if err != nil {
			return removed, err
		}
	}
	return removed, nil
}

func (s *Store) Close() error {
	hotErr := s.hot.Close()
	coldErr := s.cold.Close()
	if coldErr != nil {
		return coldErr
	}
	return hotErr
}
