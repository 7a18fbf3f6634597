package edgestow

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"time"
)

var validTableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// IsValidTableName checks if a table name is safe for use in SQL queries.
// Enforces lowercase alphanumeric with underscores, starting with a letter
// or underscore, and the 63-character identifier limit both SQL backends
// share.
func IsValidTableName(name string) bool {
	return validTableNameRegex.MatchString(name) && len(name) <= 63
}

// Source identifies where a response was produced.
type Source string

const (
	SourceCache  Source = "cache"
	SourceOrigin Source = "origin"
)

// CachedEntry is the stored representation of an origin response. Entries are
// immutable once written; a refresh replaces the whole entry under the same
// key rather than mutating it in place.
type CachedEntry struct {
	Key        string            `json:"key"`
	Status     int               `json:"status"`
	Headers    map[string]string `json:"headers"`
	Body       []byte            `json:"body"`
	StoredAt   int64             `json:"stored_at"` // epoch seconds
	TTLSeconds int               `json:"ttl_seconds"`
}

// Expired reports whether the entry's TTL has elapsed at the given instant.
func (e *CachedEntry) Expired(now time.Time) bool {
	return now.Unix() >= e.StoredAt+int64(e.TTLSeconds)
}

// Header returns the named response header, matching case-insensitively.
func (e *CachedEntry) Header(name string) string {
	return headerValue(e.Headers, name)
}

// Request is the inbound request the proxy serves. Header carries the
// client headers that influence caching and conditional handling
// (Range, Accept-Encoding, If-None-Match, If-Modified-Since).
type Request struct {
	Method string
	URL    *url.URL
	Header http.Header
}

// ObjectKey derives the origin object key from the request path by stripping
// the single leading slash the router guarantees.
func (r *Request) ObjectKey() string {
	p := r.URL.Path
	if len(p) > 0 && p[0] == '/' {
		p = p[1:]
	}
	return p
}

// Result is a response produced by the cache orchestrator, either replayed
// from the store or fetched from the origin.
type Result struct {
	Status  int
	Headers map[string]string
	Body    []byte
	Hit     bool
	Source  Source
	Key     string
}

// ConditionalHeaders carries the client's revalidation headers. Values are
// kept raw; timestamps are parsed only when compared.
type ConditionalHeaders struct {
	IfNoneMatch     string
	IfModifiedSince string
}

// ConditionalFromHeader extracts revalidation headers from an inbound request.
func ConditionalFromHeader(h http.Header) ConditionalHeaders {
	return ConditionalHeaders{
		IfNoneMatch:     h.Get("If-None-Match"),
		IfModifiedSince: h.Get("If-Modified-Since"),
	}
}

// FetchRequest describes a single origin request issued by the fetcher.
type FetchRequest struct {
	Method string
	Key    string
	Range  string
}

// FetchResult is an origin response. The fetcher hands back definitive
// responses unchanged, including 4xx statuses.
type FetchResult struct {
	Status  int
	Headers map[string]string
	Body    []byte
}

// Header returns the named response header, matching case-insensitively.
func (r *FetchResult) Header(name string) string {
	return headerValue(r.Headers, name)
}

// CacheStore is the key-value store backing the edge cache. Implementations
// live in the cachestore package.
//
// Get returns ErrNotFound for unknown keys and ErrExpired for entries past
// their TTL; both are treated as misses by the orchestrator. Any other error
// is an infrastructure failure and is also degraded to a miss, so a broken
// store never takes down object serving.
type CacheStore interface {
	// Get retrieves the entry stored under key.
	Get(ctx context.Context, key string) (*CachedEntry, error)

	// Set stores an entry under entry.Key, replacing any previous entry.
	// Concurrent writers race benignly; the last write wins.
	Set(ctx context.Context, entry *CachedEntry) error

	// Delete removes the entry stored under key. Deleting an absent key is
	// not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the store.
	Close() error
}

// Origin performs a single request against the backing object store. The
// retry policy lives in RetryingFetcher, not in implementations.
type Origin interface {
	Fetch(ctx context.Context, req FetchRequest) (*FetchResult, error)
}

// headerValue looks up a header in a flat header map without assuming the
// stored casing.
func headerValue(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	canonical := http.CanonicalHeaderKey(name)
	if v, ok := headers[canonical]; ok {
		return v
	}
	for k, v := range headers {
		if http.CanonicalHeaderKey(k) == canonical {
			return v
		}
	}
	return ""
}
