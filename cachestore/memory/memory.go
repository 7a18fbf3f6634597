// Package memory implements an in-process LRU cache store.
package memory

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/sagarc03/edgestow"
)

const (
	defaultMaxEntries = 10000
	defaultMaxBytes   = 256 << 20
)

type lruItem struct {
	key   string
	entry *edgestow.CachedEntry
	size  int64
}

// Store keeps entries in memory with LRU eviction under an entry count and
// a byte budget. Entries handed out are shared, not copied; callers must
// treat them as immutable, which the orchestrator does.
type Store struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	lru        *list.List // front is most recently used
	maxEntries int
	maxBytes   int64
	curBytes   int64
}

// New creates a memory store. Non-positive limits fall back to defaults.
func New(maxEntries int, maxBytes int64) *Store {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	return &Store{
		entries:    make(map[string]*list.Element),
		lru:        list.New(),
		maxEntries: maxEntries,
		maxBytes:   maxBytes,
	}
}

func (s *Store) Get(_ context.Context, key string) (*edgestow.CachedEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.entries[key]
	if !ok {
		return nil, edgestow.ErrNotFound
	}
	item := elem.Value.(*lruItem)
	if item.entry.Expired(time.Now()) {
		s.removeLocked(elem)
		return nil, edgestow.ErrExpired
	}
	s.lru.MoveToFront(elem)
	return item.entry, nil
}

func (s *Store) Set(_ context.Context, entry *edgestow.CachedEntry) error {
	item := &lruItem{key: entry.Key, entry: entry, size: entrySize(entry)}

	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.entries[entry.Key]; ok {
		s.removeLocked(elem)
	}
	s.entries[entry.Key] = s.lru.PushFront(item)
	s.curBytes += item.size

	for (s.lru.Len() > s.maxEntries || s.curBytes > s.maxBytes) && s.lru.Len() > 1 {
		s.removeLocked(s.lru.Back())
	}
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.entries[key]; ok {
		s.removeLocked(elem)
	}
	return nil
}

// Sweep drops every expired entry and reports how many were removed.
func (s *Store) Sweep(_ context.Context) (int, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for elem := s.lru.Front(); elem != nil; {
		next := elem.Next()
		if elem.Value.(*lruItem).entry.Expired(now) {
			s.removeLocked(elem)
			removed++
		}
		elem = next
	}
	return removed, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*list.Element)
	s.lru.Init()
	s.curBytes = 0
	return nil
}

// Len reports the number of entries currently held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Len()
}

func (s *Store) removeLocked(elem *list.Element) {
	item := elem.Value.(*lruItem)
	s.lru.Remove(elem)
	delete(s.entries, item.key)
	s.curBytes -= item.size
}

func entrySize(entry *edgestow.CachedEntry) int64 {
	size := int64(len(entry.Key) + len(entry.Body))
	for k, v := range entry.Headers {
		size += int64(len(k) + len(v))
	}
	return size
}
