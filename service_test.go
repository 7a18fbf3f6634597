package edgestow_test

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/sagarc03/edgestow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type SpyCacheStore struct {
	mock.Mock
}

func (s *SpyCacheStore) Get(ctx context.Context, key string) (*edgestow.CachedEntry, error) {
	args := s.Called(ctx, key)
	entry, _ := args.Get(0).(*edgestow.CachedEntry)
	return entry, args.Error(1)
}

func (s *SpyCacheStore) Set(ctx context.Context, entry *edgestow.CachedEntry) error {
	args := s.Called(ctx, entry)
	return args.Error(0)
}

func (s *SpyCacheStore) Delete(ctx context.Context, key string) error {
	args := s.Called(ctx, key)
	return args.Error(0)
}

func (s *SpyCacheStore) Close() error {
	args := s.Called()
	return args.Error(0)
}

func NewHybridCache(t *testing.T, policy edgestow.CacheConfig) (*edgestow.HybridCache, *SpyCacheStore, *SpyOrigin) {
	t.Helper()
	store := new(SpyCacheStore)
	origin := new(SpyOrigin)
	fetcher := edgestow.NewRetryingFetcher(origin, 1, time.Millisecond, nil)
	cache, err := edgestow.NewHybridCache(store, fetcher, edgestow.NewKeyBuilder("v1"), edgestow.ServiceConfig{
		Policy: policy,
	})
	require.NoError(t, err, "new hybrid cache")
	return cache, store, origin
}

func testPolicy() edgestow.CacheConfig {
	return edgestow.CacheConfig{
		Enabled:       true,
		TTLSeconds:    300,
		MinTTLSeconds: 60,
		MaxTTLSeconds: 600,
	}
}

func objectRequest(t *testing.T, rawURL string, header http.Header) *edgestow.Request {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	if header == nil {
		header = http.Header{}
	}
	return &edgestow.Request{Method: http.MethodGet, URL: u, Header: header}
}

func TestHybridCacheServesFromStore(t *testing.T) {
	cache, store, origin := NewHybridCache(t, testPolicy())
	req := objectRequest(t, "https://cdn.example.com/img/a.png", nil)

	entry := &edgestow.CachedEntry{
		Key:        cache.KeyFor(req),
		Status:     200,
		Headers:    map[string]string{"Content-Type": "image/png", "ETag": `"abc"`},
		Body:       []byte("png bytes"),
		StoredAt:   time.Now().Unix(),
		TTLSeconds: 300,
	}
	store.On("Get", mock.Anything, entry.Key).Return(entry, nil).Once()

	res, err := cache.Get(context.Background(), req)

	assert.NoError(t, err)
	assert.True(t, res.Hit)
	assert.Equal(t, edgestow.SourceCache, res.Source)
	assert.Equal(t, entry.Key, res.Key)
	assert.Equal(t, 200, res.Status)
	assert.Equal(t, []byte("png bytes"), res.Body)
	assert.Equal(t, "image/png", res.Headers["Content-Type"])
	origin.AssertNotCalled(t, "Fetch")
}

func TestHybridCacheSynthesizesNotModified(t *testing.T) {
	cache, store, origin := NewHybridCache(t, testPolicy())

	header := http.Header{}
	header.Set("If-None-Match", `"abc"`)
	req := objectRequest(t, "https://cdn.example.com/img/a.png", header)

	entry := &edgestow.CachedEntry{
		Key:    cache.KeyFor(req),
		Status: 200,
		Headers: map[string]string{
			"Content-Type":  "image/png",
			"ETag":          `"abc"`,
			"Cache-Control": "max-age=300",
			"Last-Modified": "Sun, 01 Mar 2026 00:00:00 GMT",
		},
		Body:       []byte("png bytes"),
		StoredAt:   time.Now().Unix(),
		TTLSeconds: 300,
	}
	store.On("Get", mock.Anything, entry.Key).Return(entry, nil).Once()

	res, err := cache.Get(context.Background(), req)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotModified, res.Status)
	assert.Empty(t, res.Body)
	assert.True(t, res.Hit)
	assert.Equal(t, `"abc"`, res.Headers["ETag"])
	assert.Equal(t, "max-age=300", res.Headers["Cache-Control"])
	assert.NotContains(t, res.Headers, "Content-Type")
	origin.AssertNotCalled(t, "Fetch")
}

func TestHybridCacheMissFetchesAndStores(t *testing.T) {
	cache, store, origin := NewHybridCache(t, testPolicy())
	req := objectRequest(t, "https://cdn.example.com/img/a.png?width=200", nil)
	key := cache.KeyFor(req)

	store.On("Get", mock.Anything, key).Return(nil, edgestow.ErrNotFound).Once()
	origin.On("Fetch", mock.Anything, edgestow.FetchRequest{Method: "GET", Key: "img/a.png"}).
		Return(okResult("fresh bytes"), nil).Once()

	var stored *edgestow.CachedEntry
	store.On("Set", mock.Anything, mock.MatchedBy(func(e *edgestow.CachedEntry) bool {
		stored = e
		return e.Key == key
	})).Return(nil).Once()

	res, err := cache.Get(context.Background(), req)
	assert.NoError(t, err)
	assert.False(t, res.Hit)
	assert.Equal(t, edgestow.SourceOrigin, res.Source)
	assert.Equal(t, 200, res.Status)
	assert.Equal(t, []byte("fresh bytes"), res.Body)
	assert.Equal(t, "max-age=300", res.Headers["Cache-Control"])

	// The write is asynchronous; Close drains it before we assert.
	require.NoError(t, cache.Close())
	store.AssertExpectations(t)
	require.NotNil(t, stored)
	assert.Equal(t, 300, stored.TTLSeconds)
	assert.Equal(t, []byte("fresh bytes"), stored.Body)
	assert.Equal(t, "max-age=300", stored.Headers["Cache-Control"])
}

func TestHybridCacheExpiredEntryIsMiss(t *testing.T) {
	cache, store, origin := NewHybridCache(t, testPolicy())
	req := objectRequest(t, "https://cdn.example.com/img/a.png", nil)

	store.On("Get", mock.Anything, cache.KeyFor(req)).Return(nil, edgestow.ErrExpired).Once()
	origin.On("Fetch", mock.Anything, mock.Anything).Return(okResult("refreshed"), nil).Once()
	store.On("Set", mock.Anything, mock.Anything).Return(nil).Maybe()

	res, err := cache.Get(context.Background(), req)

	assert.NoError(t, err)
	assert.Equal(t, edgestow.SourceOrigin, res.Source)
	assert.Equal(t, []byte("refreshed"), res.Body)
	require.NoError(t, cache.Close())
}

func TestHybridCacheStoreFailureDegradesToOrigin(t *testing.T) {
	cache, store, origin := NewHybridCache(t, testPolicy())
	req := objectRequest(t, "https://cdn.example.com/img/a.png", nil)

	store.On("Get", mock.Anything, mock.Anything).Return(nil, errors.New("leveldb: corrupted")).Once()
	origin.On("Fetch", mock.Anything, mock.Anything).Return(okResult("still served"), nil).Once()
	store.On("Set", mock.Anything, mock.Anything).Return(nil).Maybe()

	res, err := cache.Get(context.Background(), req)

	assert.NoError(t, err)
	assert.Equal(t, 200, res.Status)
	assert.Equal(t, []byte("still served"), res.Body)
	require.NoError(t, cache.Close())
}

func TestHybridCacheWriteFailureIsInvisible(t *testing.T) {
	cache, store, origin := NewHybridCache(t, testPolicy())
	req := objectRequest(t, "https://cdn.example.com/img/a.png", nil)

	store.On("Get", mock.Anything, mock.Anything).Return(nil, edgestow.ErrNotFound).Once()
	origin.On("Fetch", mock.Anything, mock.Anything).Return(okResult("served anyway"), nil).Once()
	store.On("Set", mock.Anything, mock.Anything).Return(errors.New("disk full")).Once()

	res, err := cache.Get(context.Background(), req)

	assert.NoError(t, err)
	assert.Equal(t, []byte("served anyway"), res.Body)
	require.NoError(t, cache.Close())
	store.AssertExpectations(t)
}

func TestHybridCacheDefinitiveClientErrorPassesThrough(t *testing.T) {
	cache, store, origin := NewHybridCache(t, testPolicy())
	req := objectRequest(t, "https://cdn.example.com/img/missing.png", nil)

	store.On("Get", mock.Anything, mock.Anything).Return(nil, edgestow.ErrNotFound).Once()
	origin.On("Fetch", mock.Anything, mock.Anything).Return(statusResult(404), nil).Once()

	res, err := cache.Get(context.Background(), req)

	assert.NoError(t, err)
	assert.Equal(t, 404, res.Status)
	assert.Equal(t, edgestow.SourceOrigin, res.Source)

	require.NoError(t, cache.Close())
	store.AssertNotCalled(t, "Set", mock.Anything, mock.Anything)
}

func TestHybridCacheUpstreamExhaustion(t *testing.T) {
	cache, store, origin := NewHybridCache(t, testPolicy())
	req := objectRequest(t, "https://cdn.example.com/img/a.png", nil)

	store.On("Get", mock.Anything, mock.Anything).Return(nil, edgestow.ErrNotFound).Once()
	origin.On("Fetch", mock.Anything, mock.Anything).Return(statusResult(502), nil)

	res, err := cache.Get(context.Background(), req)

	assert.Nil(t, res)
	assert.ErrorIs(t, err, edgestow.ErrUpstream)
}

func TestHybridCacheSkipsStoreForUncacheableResponses(t *testing.T) {
	tests := []struct {
		name string
		res  *edgestow.FetchResult
	}{
		{
			name: "partial content",
			res: &edgestow.FetchResult{
				Status:  206,
				Headers: map[string]string{"Content-Range": "bytes 0-1/2"},
			},
		},
		{
			name: "vary star",
			res: &edgestow.FetchResult{
				Status:  200,
				Headers: map[string]string{"Vary": "*"},
			},
		},
		{
			name: "no-store directive",
			res: &edgestow.FetchResult{
				Status:  200,
				Headers: map[string]string{"Cache-Control": "private, no-store"},
			},
		},
		{
			name: "no-cache directive",
			res: &edgestow.FetchResult{
				Status:  200,
				Headers: map[string]string{"Cache-Control": "no-cache"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache, store, origin := NewHybridCache(t, testPolicy())
			req := objectRequest(t, "https://cdn.example.com/img/a.png", nil)

			store.On("Get", mock.Anything, mock.Anything).Return(nil, edgestow.ErrNotFound).Once()
			origin.On("Fetch", mock.Anything, mock.Anything).Return(tt.res, nil).Once()

			res, err := cache.Get(context.Background(), req)

			assert.NoError(t, err)
			assert.Equal(t, tt.res.Status, res.Status)
			require.NoError(t, cache.Close())
			store.AssertNotCalled(t, "Set", mock.Anything, mock.Anything)
		})
	}
}

func TestHybridCacheDisabledBypassesStore(t *testing.T) {
	policy := testPolicy()
	policy.Enabled = false
	cache, store, origin := NewHybridCache(t, policy)
	req := objectRequest(t, "https://cdn.example.com/img/a.png", nil)

	origin.On("Fetch", mock.Anything, mock.Anything).Return(okResult("direct"), nil).Once()

	res, err := cache.Get(context.Background(), req)

	assert.NoError(t, err)
	assert.Equal(t, []byte("direct"), res.Body)
	assert.Equal(t, edgestow.SourceOrigin, res.Source)
	require.NoError(t, cache.Close())
	store.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "Set", mock.Anything, mock.Anything)
}

func TestHybridCacheCancelledContext(t *testing.T) {
	cache, _, _ := NewHybridCache(t, testPolicy())
	req := objectRequest(t, "https://cdn.example.com/img/a.png", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := cache.Get(ctx, req)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHybridCacheWarm(t *testing.T) {
	t.Run("stores synchronously", func(t *testing.T) {
		cache, store, origin := NewHybridCache(t, testPolicy())
		req := objectRequest(t, "https://cdn.example.com/img/a.png", nil)
		key := cache.KeyFor(req)

		origin.On("Fetch", mock.Anything, edgestow.FetchRequest{Method: "GET", Key: "img/a.png"}).
			Return(okResult("warmed"), nil).Once()
		store.On("Set", mock.Anything, mock.MatchedBy(func(e *edgestow.CachedEntry) bool {
			return e.Key == key && string(e.Body) == "warmed"
		})).Return(nil).Once()

		res, err := cache.Warm(context.Background(), req)

		assert.NoError(t, err)
		assert.Equal(t, 200, res.Status)
		store.AssertExpectations(t)
	})

	t.Run("uncacheable response is rejected", func(t *testing.T) {
		cache, store, origin := NewHybridCache(t, testPolicy())
		req := objectRequest(t, "https://cdn.example.com/img/missing.png", nil)

		origin.On("Fetch", mock.Anything, mock.Anything).Return(statusResult(404), nil).Once()

		res, err := cache.Warm(context.Background(), req)

		assert.Nil(t, res)
		assert.ErrorIs(t, err, edgestow.ErrInvalidInput)
		store.AssertNotCalled(t, "Set", mock.Anything, mock.Anything)
	})

	t.Run("write failure is reported", func(t *testing.T) {
		cache, store, origin := NewHybridCache(t, testPolicy())
		req := objectRequest(t, "https://cdn.example.com/img/a.png", nil)

		origin.On("Fetch", mock.Anything, mock.Anything).Return(okResult("warmed"), nil).Once()
		store.On("Set", mock.Anything, mock.Anything).Return(errors.New("disk full")).Once()

		_, err := cache.Warm(context.Background(), req)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "cache write")
	})
}

func TestHybridCachePurge(t *testing.T) {
	cache, store, _ := NewHybridCache(t, testPolicy())

	store.On("Delete", mock.Anything, "v1|/img/a.png|").Return(nil).Once()
	assert.NoError(t, cache.Purge(context.Background(), "v1|/img/a.png|"))
	store.AssertExpectations(t)
}

func TestHybridCachePurgePatternUnsupported(t *testing.T) {
	cache, _, _ := NewHybridCache(t, testPolicy())

	err := cache.PurgePattern(context.Background(), "img/*")
	assert.ErrorIs(t, err, edgestow.ErrUnsupported)
}

func TestCacheable(t *testing.T) {
	tests := []struct {
		name   string
		method string
		res    *edgestow.FetchResult
		want   bool
	}{
		{name: "plain 200 get", method: "GET", res: okResult("x"), want: true},
		{name: "head not cacheable", method: "HEAD", res: okResult("x"), want: false},
		{name: "404 not cacheable", method: "GET", res: statusResult(404), want: false},
		{name: "500 not cacheable", method: "GET", res: statusResult(500), want: false},
		{
			name:   "partial content not cacheable",
			method: "GET",
			res:    &edgestow.FetchResult{Status: 206, Headers: map[string]string{"Content-Range": "bytes 0-1/2"}},
			want:   false,
		},
		{
			name:   "vary star not cacheable",
			method: "GET",
			res:    &edgestow.FetchResult{Status: 200, Headers: map[string]string{"Vary": "*"}},
			want:   false,
		},
		{
			name:   "vary accept-encoding is fine",
			method: "GET",
			res:    &edgestow.FetchResult{Status: 200, Headers: map[string]string{"Vary": "Accept-Encoding"}},
			want:   true,
		},
		{
			name:   "vary list containing star not cacheable",
			method: "GET",
			res:    &edgestow.FetchResult{Status: 200, Headers: map[string]string{"Vary": "Accept-Encoding, *"}},
			want:   false,
		},
		{
			name:   "no-store not cacheable",
			method: "GET",
			res:    &edgestow.FetchResult{Status: 200, Headers: map[string]string{"Cache-Control": "no-store"}},
			want:   false,
		},
		{
			name:   "max-age directive is fine",
			method: "GET",
			res:    &edgestow.FetchResult{Status: 200, Headers: map[string]string{"Cache-Control": "public, max-age=60"}},
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, edgestow.Cacheable(tt.method, tt.res))
		})
	}
}
