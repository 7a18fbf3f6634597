package e2e_test

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sagarc03/edgestow"
	"github.com/sagarc03/edgestow/cachestore/memory"
	"github.com/sagarc03/edgestow/cachestore/sqlite"
	"github.com/sagarc03/edgestow/clientcli"
	edgehttp "github.com/sagarc03/edgestow/http"
	"github.com/sagarc03/edgestow/origin"
)

const (
	testBucket = "edge-objects"
	testSecret = "s3cr3t-minimum-32-chars-long-val"
	adminToken = "test-admin-token"
)

// stubObject is one object held by the in-process S3 stub.
type stubObject struct {
	data         []byte
	contentType  string
	cacheControl string
	etag         string
	lastModified time.Time
}

// s3Stub emulates the slice of the S3 REST API the origin client uses:
// path-style GetObject/HeadObject/PutObject, ListObjectsV2 and
// DeleteObjects. Signatures are not checked. Per-key transient failures
// can be injected to exercise the fetcher's retry path.
type s3Stub struct {
	mu       sync.Mutex
	objects  map[string]stubObject
	failures map[string]int // remaining 502 answers per key
	requests map[string]int // GET/HEAD attempts per key, failures included
}

func newS3Stub() *s3Stub {
	return &s3Stub{
		objects:  make(map[string]stubObject),
		failures: make(map[string]int),
		requests: make(map[string]int),
	}
}

// put stores an object directly in the stub, bypassing the proxy.
func (s *s3Stub) put(key, contentType, cacheControl string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := sha256.Sum256(data)
	s.objects[key] = stubObject{
		data:         data,
		contentType:  contentType,
		cacheControl: cacheControl,
		etag:         `"` + hex.EncodeToString(sum[:8]) + `"`,
		lastModified: time.Now().Add(-time.Hour).UTC().Truncate(time.Second),
	}
}

func (s *s3Stub) etag(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.objects[key].etag
}

// failTimes makes the next n GET/HEAD requests for key answer 502.
func (s *s3Stub) failTimes(key string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[key] = n
}

func (s *s3Stub) attempts(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[key]
}

func (s *s3Stub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/"+testBucket)
	key = strings.TrimPrefix(key, "/")

	switch {
	case r.Method == http.MethodGet && key == "":
		s.handleList(w, r)
	case r.Method == http.MethodPost && r.URL.Query().Has("delete"):
		s.handleBatchDelete(w, r)
	case r.Method == http.MethodPut:
		s.handlePut(w, r, key)
	case r.Method == http.MethodGet || r.Method == http.MethodHead:
		s.handleGet(w, r, key)
	case r.Method == http.MethodDelete:
		s.mu.Lock()
		delete(s.objects, key)
		s.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func (s *s3Stub) handleGet(w http.ResponseWriter, r *http.Request, key string) {
	s.mu.Lock()
	s.requests[key]++
	if s.failures[key] > 0 {
		s.failures[key]--
		s.mu.Unlock()
		writeS3Error(w, http.StatusBadGateway, "InternalError", "injected failure")
		return
	}
	obj, ok := s.objects[key]
	s.mu.Unlock()

	if !ok {
		writeS3Error(w, http.StatusNotFound, "NoSuchKey", "The specified key does not exist.")
		return
	}

	h := w.Header()
	h.Set("ETag", obj.etag)
	h.Set("Last-Modified", obj.lastModified.Format(http.TimeFormat))
	h.Set("Accept-Ranges", "bytes")
	if obj.contentType != "" {
		h.Set("Content-Type", obj.contentType)
	}
	if obj.cacheControl != "" {
		h.Set("Cache-Control", obj.cacheControl)
	}

	body := obj.data
	status := http.StatusOK
	if rng := r.Header.Get("Range"); rng != "" {
		start, end, ok := parseByteRange(rng, len(obj.data))
		if !ok {
			writeS3Error(w, http.StatusRequestedRangeNotSatisfiable, "InvalidRange", "The requested range is not satisfiable")
			return
		}
		h.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, len(obj.data)))
		body = obj.data[start : end+1]
		status = http.StatusPartialContent
	}

	h.Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	if r.Method != http.MethodHead {
		_, _ = w.Write(body)
	}
}

func (s *s3Stub) handlePut(w http.ResponseWriter, r *http.Request, key string) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeS3Error(w, http.StatusBadRequest, "IncompleteBody", err.Error())
		return
	}
	// The SDK may wrap the payload in aws-chunked framing when it streams
	// trailing checksums.
	if strings.Contains(r.Header.Get("Content-Encoding"), "aws-chunked") ||
		strings.HasPrefix(r.Header.Get("X-Amz-Content-Sha256"), "STREAMING") {
		body = decodeAwsChunked(body)
	}

	s.put(key, r.Header.Get("Content-Type"), r.Header.Get("Cache-Control"), body)
	w.Header().Set("ETag", s.etag(key))
	w.WriteHeader(http.StatusOK)
}

type listContents struct {
	Key          string `xml:"Key"`
	LastModified string `xml:"LastModified"`
	ETag         string `xml:"ETag"`
	Size         int    `xml:"Size"`
}

type listBucketResult struct {
	XMLName     xml.Name       `xml:"ListBucketResult"`
	Name        string         `xml:"Name"`
	Prefix      string         `xml:"Prefix"`
	KeyCount    int            `xml:"KeyCount"`
	MaxKeys     int            `xml:"MaxKeys"`
	IsTruncated bool           `xml:"IsTruncated"`
	Contents    []listContents `xml:"Contents"`
}

func (s *s3Stub) handleList(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")

	s.mu.Lock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	result := listBucketResult{
		Name:     testBucket,
		Prefix:   prefix,
		KeyCount: len(keys),
		MaxKeys:  1000,
	}
	for _, k := range keys {
		obj := s.objects[k]
		result.Contents = append(result.Contents, listContents{
			Key:          k,
			LastModified: obj.lastModified.Format(time.RFC3339),
			ETag:         obj.etag,
			Size:         len(obj.data),
		})
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/xml")
	_, _ = w.Write([]byte(xml.Header))
	_ = xml.NewEncoder(w).Encode(result)
}

type deleteRequest struct {
	XMLName xml.Name `xml:"Delete"`
	Objects []struct {
		Key string `xml:"Key"`
	} `xml:"Object"`
}

type deleteResult struct {
	XMLName xml.Name `xml:"DeleteResult"`
	Deleted []struct {
		Key string `xml:"Key"`
	} `xml:"Deleted"`
}

func (s *s3Stub) handleBatchDelete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := xml.NewDecoder(r.Body).Decode(&req); err != nil {
		writeS3Error(w, http.StatusBadRequest, "MalformedXML", err.Error())
		return
	}

	var result deleteResult
	s.mu.Lock()
	for _, obj := range req.Objects {
		delete(s.objects, obj.Key)
		result.Deleted = append(result.Deleted, struct {
			Key string `xml:"Key"`
		}{Key: obj.Key})
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/xml")
	_, _ = w.Write([]byte(xml.Header))
	_ = xml.NewEncoder(w).Encode(result)
}

func writeS3Error(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	fmt.Fprintf(w, `%s<Error><Code>%s</Code><Message>%s</Message></Error>`, xml.Header, code, message)
}

// parseByteRange handles the single-range "bytes=a-b" form the proxy
// forwards.
func parseByteRange(spec string, size int) (start, end int, ok bool) {
	spec = strings.TrimPrefix(spec, "bytes=")
	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	start, err := strconv.Atoi(parts[0])
	if err != nil || start >= size {
		return 0, 0, false
	}
	end = size - 1
	if parts[1] != "" {
		end, err = strconv.Atoi(parts[1])
		if err != nil {
			return 0, 0, false
		}
		end = min(end, size-1)
	}
	if end < start {
		return 0, 0, false
	}
	return start, end, true
}

// decodeAwsChunked strips aws-chunked framing: hex-size lines (optionally
// carrying chunk signatures) followed by the chunk bytes, terminated by a
// zero-size chunk and trailers.
func decodeAwsChunked(raw []byte) []byte {
	var out bytes.Buffer
	reader := bufio.NewReader(bytes.NewReader(raw))
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			break
		}
		sizeHex := strings.TrimSpace(line)
		if i := strings.IndexByte(sizeHex, ';'); i >= 0 {
			sizeHex = sizeHex[:i]
		}
		size, err := strconv.ParseInt(sizeHex, 16, 64)
		if err != nil || size == 0 {
			break
		}
		if _, err := io.CopyN(&out, reader, size); err != nil {
			break
		}
		_, _ = reader.Discard(2) // CRLF after the chunk
	}
	return out.Bytes()
}

// stack is one fully wired in-process proxy: S3 stub origin, cache store,
// orchestrator, and the HTTP surface behind an httptest server.
type stack struct {
	origin *httptest.Server
	proxy  *httptest.Server
	stub   *s3Stub
	store  edgestow.CacheStore
	cache  *edgestow.HybridCache
}

// stackOptions tweaks the default test stack.
type stackOptions struct {
	store       edgestow.CacheStore // nil means a fresh memory store
	maxAttempts int
	policy      *edgestow.CacheConfig
}

func newStack(t *testing.T, opts stackOptions) *stack {
	t.Helper()
	ctx := context.Background()

	stub := newS3Stub()
	originServer := httptest.NewServer(stub)
	t.Cleanup(originServer.Close)

	originClient, err := origin.NewClient(ctx, origin.Config{
		Endpoint:        originServer.URL,
		Region:          "us-east-1",
		Bucket:          testBucket,
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		UsePathStyle:    true,
	})
	require.NoError(t, err)

	store := opts.store
	if store == nil {
		store = memory.New(0, 0)
	}
	t.Cleanup(func() { _ = store.Close() })

	maxAttempts := opts.maxAttempts
	if maxAttempts == 0 {
		maxAttempts = 4
	}
	fetcher := edgestow.NewRetryingFetcher(originClient, maxAttempts, 5*time.Millisecond, nil)

	policy := edgestow.CacheConfig{
		Enabled:       true,
		TTLSeconds:    60,
		MinTTLSeconds: 1,
		MaxTTLSeconds: 600,
	}
	if opts.policy != nil {
		policy = *opts.policy
	}

	cache, err := edgestow.NewHybridCache(store, fetcher, edgestow.NewKeyBuilder("v1"), edgestow.ServiceConfig{
		Policy: policy,
	})
	require.NoError(t, err)

	handler := edgehttp.NewHandler(&edgehttp.HandlerConfig{
		Verifier:   edgestow.NewVerifier(testSecret),
		AdminToken: adminToken,
		Debug:      true,
		PrefixLimits: edgestow.PrefixLimits{
			MaxLength: 512,
			MaxDepth:  10,
		},
	}, cache, originClient)

	proxyServer := httptest.NewServer(handler.Router())
	t.Cleanup(proxyServer.Close)

	return &stack{
		origin: originServer,
		proxy:  proxyServer,
		stub:   stub,
		store:  store,
		cache:  cache,
	}
}

// drainWrites blocks until in-flight fire-and-forget cache writes land, so
// tests can assert on the next request deterministically.
func (s *stack) drainWrites() {
	_ = s.cache.Close()
}

// client returns a clientcli client pointed at the stack's proxy.
func (s *stack) client(t *testing.T) *clientcli.Client {
	t.Helper()
	c, err := clientcli.New(&clientcli.Config{
		Endpoint:   s.proxy.URL,
		Secret:     testSecret,
		AdminToken: adminToken,
	})
	require.NoError(t, err)
	return c
}

// signedURL signs an object path the way issued URLs are built.
func (s *stack) signedURL(t *testing.T, path string, validity time.Duration) string {
	t.Helper()
	signed, err := edgestow.NewSigner(testSecret).SignURL(path, validity)
	require.NoError(t, err)
	return s.proxy.URL + signed
}

// openSQLiteStore opens a file-backed sqlite cache store in a temp dir.
func openSQLiteStore(t *testing.T) edgestow.CacheStore {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "cache.db")
	store, err := sqlite.Open(context.Background(), dsn, "cache_entries")
	require.NoError(t, err)
	return store
}

// cacheKeyFrom extracts the cache key from the proxy's debug header value,
// formatted as "HIT; source=cache; key=...".
func cacheKeyFrom(t *testing.T, debugValue string) string {
	t.Helper()
	i := strings.Index(debugValue, "key=")
	require.GreaterOrEqual(t, i, 0, "debug header %q carries no key", debugValue)
	return debugValue[i+len("key="):]
}
