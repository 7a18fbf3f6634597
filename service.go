package edgestow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// HybridCache serves object requests from a local cache store, falling back
// to the origin on a miss and writing fresh responses back asynchronously.
//
// The store is strictly an accelerator: any store failure, on read or
// write, degrades the request to an origin fetch instead of failing it.
type HybridCache struct {
	store   CacheStore
	fetcher *RetryingFetcher
	keys    *KeyBuilder
	policy  CacheConfig
	logger  *slog.Logger

	writeTimeout time.Duration
	writeSlots   chan struct{}
	writes       sync.WaitGroup
}

// ServiceConfig holds configuration options for HybridCache.
type ServiceConfig struct {
	Policy CacheConfig

	// Logger receives degradation warnings; nil discards them.
	Logger *slog.Logger

	// WriteTimeout bounds each background cache write (default: 30s).
	WriteTimeout time.Duration

	// MaxPendingWrites caps concurrent background cache writes; beyond it
	// new writes are skipped rather than queued (default: 64).
	MaxPendingWrites int
}

// NewHybridCache creates the cache orchestrator.
//
// Parameters:
//   - store: The cache store consulted before the origin. Required.
//   - fetcher: The retrying origin fetcher used on misses. Required.
//   - keys: The cache key builder. When nil, an unversioned builder with
//     the default header set is used.
//   - cfg: Service options; zero values fall back to defaults.
//
// Returns an error when a required dependency is missing or the cache
// policy is inconsistent.
func NewHybridCache(store CacheStore, fetcher *RetryingFetcher, keys *KeyBuilder, cfg ServiceConfig) (*HybridCache, error) {
	if store == nil {
		return nil, fmt.Errorf("new hybrid cache: store is required")
	}
	if fetcher == nil {
		return nil, fmt.Errorf("new hybrid cache: fetcher is required")
	}
	if keys == nil {
		keys = NewKeyBuilder("")
	}
	if err := cfg.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("new hybrid cache: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}
	maxPending := cfg.MaxPendingWrites
	if maxPending <= 0 {
		maxPending = 64
	}
	return &HybridCache{
		store:        store,
		fetcher:      fetcher,
		keys:         keys,
		policy:       cfg.Policy,
		logger:       logger,
		writeTimeout: writeTimeout,
		writeSlots:   make(chan struct{}, maxPending),
	}, nil
}

// KeyFor returns the cache key the orchestrator would use for a request.
func (h *HybridCache) KeyFor(req *Request) string {
	return h.keys.Build(req.URL, req.Header)
}

// Get serves an object request through the cache.
//
// The method performs the following steps:
//  1. Derives the cache key from the request URL and headers
//  2. Looks the key up in the store; not-found and expired entries are
//     misses, and any other store error is logged and treated as a miss
//  3. On a hit, evaluates the client's conditional headers and serves
//     either a synthesized 304 or the full cached response
//  4. On a miss, fetches from the origin through the retrying fetcher;
//     definitive origin responses, 4xx included, pass through unchanged
//  5. When the response is cacheable, schedules a background write and
//     returns without waiting for it
//
// Parameters:
//   - ctx: Context for cancellation and timeout. Background cache writes
//     are detached from it and run under their own timeout.
//   - req: The inbound request, already authenticated by the caller.
//
// Returns:
//   - *Result: The response to relay, annotated with hit/source/key
//   - error: A *FetchError matching ErrUpstream when the origin could not
//     produce a response within the attempt budget
//
// Concurrency safety: Safe for concurrent use. Concurrent misses for the
// same key each fetch from the origin and race their writes; the store's
// last-write-wins semantics make that benign.
func (h *HybridCache) Get(ctx context.Context, req *Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("serve object: %w", err)
	}

	key := h.keys.Build(req.URL, req.Header)
	if !h.policy.Enabled {
		return h.fromOrigin(ctx, req, key, false)
	}

	entry, err := h.store.Get(ctx, key)
	switch {
	case err == nil:
		return h.fromCache(req, key, entry), nil
	case errors.Is(err, ErrNotFound):
	case errors.Is(err, ErrExpired):
		h.logger.Debug("cache entry expired", "key", key)
	default:
		// Degraded store. Serving must survive it.
		h.logger.Warn("cache store lookup failed", "key", key, "error", err)
	}

	return h.fromOrigin(ctx, req, key, true)
}

// Warm fetches an object from the origin and writes it to the store
// synchronously, so admin warming can report whether the entry landed.
// A response the policy refuses to cache is an ErrInvalidInput.
func (h *HybridCache) Warm(ctx context.Context, req *Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("warm object: %w", err)
	}

	key := h.keys.Build(req.URL, req.Header)
	res, err := h.fetcher.Fetch(ctx, FetchRequest{
		Method: http.MethodGet,
		Key:    req.ObjectKey(),
	})
	if err != nil {
		return nil, fmt.Errorf("warm object %s: %w", req.ObjectKey(), err)
	}
	if !Cacheable(http.MethodGet, res) {
		return nil, fmt.Errorf("warm object %s: origin response (status %d) is not cacheable: %w",
			req.ObjectKey(), res.Status, ErrInvalidInput)
	}

	result, entry := h.cacheableResult(res, key)
	if err := h.store.Set(ctx, entry); err != nil {
		return nil, fmt.Errorf("warm object %s: cache write: %w", req.ObjectKey(), err)
	}
	return result, nil
}

// Purge removes a single exact key from the store.
func (h *HybridCache) Purge(ctx context.Context, key string) error {
	if err := h.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("purge %s: %w", key, err)
	}
	return nil
}

// PurgePattern rejects pattern purges. Stores index by exact key only;
// enumerating them for a pattern match is not supported.
func (h *HybridCache) PurgePattern(_ context.Context, pattern string) error {
	return fmt.Errorf("purge pattern %q: %w", pattern, ErrUnsupported)
}

// Close waits for in-flight background cache writes to finish. The store
// itself is closed by whoever opened it.
func (h *HybridCache) Close() error {
	h.writes.Wait()
	return nil
}

func (h *HybridCache) fromCache(req *Request, key string, entry *CachedEntry) *Result {
	if NotModified(ConditionalFromHeader(req.Header), entry) {
		return &Result{
			Status:  http.StatusNotModified,
			Headers: revalidationHeaders(entry),
			Hit:     true,
			Source:  SourceCache,
			Key:     key,
		}
	}
	return &Result{
		Status:  entry.Status,
		Headers: cloneHeaders(entry.Headers),
		Body:    entry.Body,
		Hit:     true,
		Source:  SourceCache,
		Key:     key,
	}
}

func (h *HybridCache) fromOrigin(ctx context.Context, req *Request, key string, allowStore bool) (*Result, error) {
	res, err := h.fetcher.Fetch(ctx, FetchRequest{
		Method: req.Method,
		Key:    req.ObjectKey(),
		Range:  req.Header.Get("Range"),
	})
	if err != nil {
		return nil, fmt.Errorf("serve object %s: %w", req.ObjectKey(), err)
	}

	if allowStore && Cacheable(req.Method, res) {
		result, entry := h.cacheableResult(res, key)
		h.storeAsync(entry)
		return result, nil
	}

	return &Result{
		Status:  res.Status,
		Headers: cloneHeaders(res.Headers),
		Body:    res.Body,
		Source:  SourceOrigin,
		Key:     key,
	}, nil
}

// cacheableResult builds the client response and the store entry for a
// cacheable origin response. The resolved TTL is stamped on both as
// Cache-Control max-age, so downstream caches see the effective policy
// rather than whatever the origin sent.
func (h *HybridCache) cacheableResult(res *FetchResult, key string) (*Result, *CachedEntry) {
	now := time.Now()
	ttl := ResolveTTL(res.Headers, h.policy, now)

	headers := cloneHeaders(res.Headers)
	headers["Cache-Control"] = fmt.Sprintf("max-age=%d", ttl)

	result := &Result{
		Status:  res.Status,
		Headers: headers,
		Body:    res.Body,
		Source:  SourceOrigin,
		Key:     key,
	}
	entry := &CachedEntry{
		Key:        key,
		Status:     res.Status,
		Headers:    cloneHeaders(headers),
		Body:       res.Body,
		StoredAt:   now.Unix(),
		TTLSeconds: ttl,
	}
	return result, entry
}

// storeAsync schedules a fire-and-forget cache write. The write runs under
// a background context so a client disconnect cannot abort it; failures are
// logged and otherwise invisible. When all writer slots are busy the write
// is dropped, never queued, so a slow store cannot back-pressure serving.
func (h *HybridCache) storeAsync(entry *CachedEntry) {
	select {
	case h.writeSlots <- struct{}{}:
	default:
		h.logger.Debug("cache write skipped, writers saturated", "key", entry.Key)
		return
	}

	h.writes.Add(1)
	go func() {
		defer h.writes.Done()
		defer func() { <-h.writeSlots }()

		writeCtx, cancel := context.WithTimeout(context.Background(), h.writeTimeout)
		defer cancel()

		if err := h.store.Set(writeCtx, entry); err != nil {
			h.logger.Warn("cache write failed", "key", entry.Key, "error", err)
			return
		}
		h.logger.Debug("cache write complete", "key", entry.Key)
	}()
}

// Cacheable reports whether an origin response may enter the cache. Only
// complete 2xx answers to GET qualify: partial content would poison later
// full-body reads, Vary: * marks the response as uncacheable by definition,
// and no-store/no-cache directives are honored as stated.
func Cacheable(method string, res *FetchResult) bool {
	if method != http.MethodGet {
		return false
	}
	if res.Status < 200 || res.Status >= 300 {
		return false
	}
	if res.Status == http.StatusPartialContent {
		return false
	}
	for _, member := range strings.Split(res.Header("Vary"), ",") {
		if strings.TrimSpace(member) == "*" {
			return false
		}
	}
	cc := strings.ToLower(res.Header("Cache-Control"))
	if strings.Contains(cc, "no-store") || strings.Contains(cc, "no-cache") {
		return false
	}
	return true
}

// revalidationHeaders is the header subset replayed on a synthesized 304.
func revalidationHeaders(entry *CachedEntry) map[string]string {
	headers := make(map[string]string, 3)
	for _, name := range []string{"ETag", "Cache-Control", "Last-Modified"} {
		if v := entry.Header(name); v != "" {
			headers[name] = v
		}
	}
	return headers
}

// cloneHeaders copies a header map, canonicalizing names so later direct
// lookups and overwrites hit the same key the origin used.
func cloneHeaders(src map[string]string) map[string]string {
	dst := make(map[string]string, len(src)+1)
	for k, v := range src {
		dst[http.CanonicalHeaderKey(k)] = v
	}
	return dst
}
