package clientcli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sagarc03/edgestow"
)

const (
	// DefaultTimeout is the default HTTP client timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultValidity is the default signed URL validity window.
	DefaultValidity = 15 * time.Minute

	// cacheStatusHeader is the proxy's cache debug header. Mirrored here so
	// the client does not depend on the server packages.
	cacheStatusHeader = "X-Edgestow-Cache"
)

// Client performs operations against an edgestow proxy.
type Client struct {
	config     *Config
	httpClient *http.Client
	signer     *edgestow.Signer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// New creates a new Client with the given config and options.
func New(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}

	// Apply defaults
	cfg = cfg.WithDefaults()

	// Normalize endpoint URL (remove trailing slash)
	endpoint := strings.TrimSuffix(cfg.Endpoint, "/")

	c := &Client{
		config: &Config{
			Endpoint:   endpoint,
			Secret:     cfg.Secret,
			AdminToken: cfg.AdminToken,
		},
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	if cfg.Secret != "" {
		c.signer = edgestow.NewSigner(cfg.Secret)
	}

	// Apply options
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// SignURL signs an object path and returns the full shareable URL.
// remotePath may carry query parameters; they are covered by the signature.
// A validity of zero or less falls back to DefaultValidity.
func (c *Client) SignURL(remotePath string, validity time.Duration) (string, error) {
	if err := c.config.RequireSecret(); err != nil {
		return "", err
	}
	if remotePath == "" {
		return "", fmt.Errorf("sign: %w", ErrEmptyPath)
	}
	if validity <= 0 {
		validity = DefaultValidity
	}

	u, err := url.Parse(remotePath)
	if err != nil {
		return "", fmt.Errorf("parse path: %w", err)
	}
	u.Path = normalizePath(u.Path)

	signed := c.signer.Sign(u, time.Now().Add(validity))
	return c.config.Endpoint + signed.String(), nil
}

// requestURL builds the request URL for a read, signing it when a secret
// is configured.
func (c *Client) requestURL(path string, query url.Values) string {
	u := &url.URL{Path: path}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	if c.signer != nil {
		u = c.signer.Sign(u, time.Now().Add(DefaultValidity))
	}
	return c.config.Endpoint + u.String()
}

// Fetch downloads an object through the proxy.
// If opts.LocalPath is "-", the content is returned via the io.ReadCloser and must be closed by the caller.
// Otherwise, the content is written to the file and the io.ReadCloser is nil.
func (c *Client) Fetch(ctx context.Context, opts FetchOptions) (*FetchResult, io.ReadCloser, error) {
	if opts.RemotePath == "" {
		return nil, nil, fmt.Errorf("fetch: %w", ErrEmptyPath)
	}
	remotePath := normalizePath(opts.RemotePath)

	// Create request
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(remotePath, nil), http.NoBody)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}

	// Execute request
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, nil, parseServerError(resp.StatusCode, body)
	}

	// Extract metadata from headers
	etag := strings.Trim(resp.Header.Get("ETag"), `"`)

	result := &FetchResult{
		RemotePath:  strings.TrimPrefix(remotePath, "/"),
		ETag:        etag,
		ContentType: resp.Header.Get("Content-Type"),
		Size:        resp.ContentLength,
		CacheStatus: resp.Header.Get(cacheStatusHeader),
	}

	// If stdout requested, return the body for the caller to handle
	if opts.LocalPath == "-" {
		result.LocalPath = "-"
		return result, resp.Body, nil
	}

	// Determine local path
	localPath := opts.LocalPath
	if localPath == "" {
		// Derive from remote path
		localPath = filepath.Base(remotePath)
	}
	result.LocalPath = localPath

	// Create parent directories if needed
	dir := filepath.Dir(localPath)
	if dir != "" && dir != "." {
		if mkdirErr := os.MkdirAll(dir, 0o750); mkdirErr != nil {
			_ = resp.Body.Close()
			return nil, nil, fmt.Errorf("create directory: %w", mkdirErr)
		}
	}

	// Create the file
	file, createErr := os.Create(localPath) //#nosec G304 -- localPath is user-provided input
	if createErr != nil {
		_ = resp.Body.Close()
		return nil, nil, fmt.Errorf("create file: %w", createErr)
	}

	// Copy content to file
	written, copyErr := io.Copy(file, resp.Body)
	_ = resp.Body.Close()
	if copyErr != nil {
		_ = file.Close()
		return nil, nil, fmt.Errorf("write file: %w", copyErr)
	}

	if closeErr := file.Close(); closeErr != nil {
		return nil, nil, fmt.Errorf("close file: %w", closeErr)
	}

	result.Size = written
	return result, nil, nil
}

// List lists objects through the proxy.
// If opts.All is true, paginates through all results.
func (c *Client) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	if opts.All {
		return c.listAll(ctx, opts)
	}
	return c.listPage(ctx, opts)
}

// listPage fetches a single page of results.
func (c *Client) listPage(ctx context.Context, opts ListOptions) (*ListResult, error) {
	maxKeys := opts.MaxKeys
	if maxKeys <= 0 {
		maxKeys = 100
	}
	if maxKeys > 1000 {
		maxKeys = 1000
	}

	query := url.Values{}
	query.Set("max-keys", strconv.Itoa(maxKeys))
	if opts.Prefix != "" {
		query.Set("prefix", opts.Prefix)
	}
	if opts.Token != "" {
		query.Set("token", opts.Token)
	}
	if opts.Delimiter != "" {
		query.Set("delimiter", opts.Delimiter)
	}

	// Create request
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL("/", query), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	// Execute request
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseServerError(resp.StatusCode, body)
	}

	// Parse response
	var result ListResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	return &result, nil
}

// listAll fetches all pages of results.
func (c *Client) listAll(ctx context.Context, opts ListOptions) (*ListResult, error) {
	var allObjects []ObjectInfo
	var allPrefixes []string
	token := opts.Token

	for {
		// Check context cancellation
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pageOpts := ListOptions{
			Prefix:    opts.Prefix,
			MaxKeys:   opts.MaxKeys,
			Token:     token,
			Delimiter: opts.Delimiter,
			All:       false, // Prevent recursion
		}

		page, err := c.listPage(ctx, pageOpts)
		if err != nil {
			return nil, err
		}

		allObjects = append(allObjects, page.Objects...)
		allPrefixes = append(allPrefixes, page.Prefixes...)

		if page.NextToken == "" {
			break
		}
		token = page.NextToken
	}

	return &ListResult{
		Objects:  allObjects,
		Prefixes: allPrefixes,
	}, nil
}

// Upload uploads file(s) through the proxy's admin API.
// For recursive uploads, walks directory and preserves relative paths.
func (c *Client) Upload(ctx context.Context, opts UploadOptions) ([]UploadResult, error) {
	if err := c.config.RequireAdminToken(); err != nil {
		return nil, err
	}
	if opts.LocalPath == "" {
		return nil, fmt.Errorf("upload: %w", ErrEmptyPath)
	}
	if opts.Recursive {
		return c.uploadRecursive(ctx, opts)
	}
	result, err := c.uploadSingle(ctx, opts.LocalPath, opts.RemotePath, opts.ContentType, opts.CacheControl)
	if err != nil {
		return nil, err
	}
	return []UploadResult{result}, nil
}

// uploadRecursive walks a directory and uploads all files.
func (c *Client) uploadRecursive(ctx context.Context, opts UploadOptions) ([]UploadResult, error) {
	info, err := os.Stat(opts.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("stat local path: %w", err)
	}

	if !info.IsDir() {
		// Not a directory, just upload single file
		result, uploadErr := c.uploadSingle(ctx, opts.LocalPath, opts.RemotePath, opts.ContentType, opts.CacheControl)
		if uploadErr != nil {
			return nil, uploadErr
		}
		return []UploadResult{result}, nil
	}

	var results []UploadResult
	baseDir := opts.LocalPath
	remotePrefix := strings.TrimSuffix(opts.RemotePath, "/")

	walkErr := filepath.WalkDir(baseDir, func(path string, d fs.DirEntry, fileErr error) error {
		if fileErr != nil {
			return fileErr
		}

		// Check context cancellation
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		// Skip directories
		if d.IsDir() {
			return nil
		}

		// Calculate relative path
		relPath, relErr := filepath.Rel(baseDir, path)
		if relErr != nil {
			results = append(results, UploadResult{
				LocalPath: path,
				Err:       fmt.Errorf("calculate relative path: %w", relErr),
			})
			return nil
		}

		// Convert to forward slashes for remote path
		relPath = filepath.ToSlash(relPath)
		remotePath := remotePrefix + "/" + relPath

		result, uploadErr := c.uploadSingle(ctx, path, remotePath, "", opts.CacheControl)
		if uploadErr != nil {
			result = UploadResult{
				LocalPath:  path,
				RemotePath: remotePath,
				Err:        uploadErr,
			}
		}
		results = append(results, result)
		return nil
	})

	if walkErr != nil {
		return results, fmt.Errorf("walk directory: %w", walkErr)
	}

	return results, nil
}

// uploadSingle uploads a single file through the proxy.
func (c *Client) uploadSingle(ctx context.Context, localPath, remotePath, contentType, cacheControl string) (UploadResult, error) {
	// Open the file
	file, err := os.Open(localPath) //#nosec G304 -- localPath is user-provided input
	if err != nil {
		return UploadResult{}, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// Get file info for size
	info, err := file.Stat()
	if err != nil {
		return UploadResult{}, fmt.Errorf("stat file: %w", err)
	}

	// Auto-detect content type if not provided
	if contentType == "" {
		contentType = detectContentType(localPath)
	}

	// Normalize remote path
	remotePath = normalizePath(remotePath)

	// Create request with file as body (streaming, no memory copy)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.config.Endpoint+remotePath, file)
	if err != nil {
		return UploadResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+c.config.AdminToken)
	if cacheControl != "" {
		req.Header.Set("Cache-Control", cacheControl)
	}
	req.ContentLength = info.Size()

	// Execute request
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return UploadResult{}, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return UploadResult{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return UploadResult{}, parseServerError(resp.StatusCode, body)
	}

	// Parse response
	var uploaded uploadResponse
	if err := json.Unmarshal(body, &uploaded); err != nil {
		return UploadResult{}, fmt.Errorf("parse response: %w", err)
	}

	return UploadResult{
		LocalPath:  localPath,
		RemotePath: uploaded.Key,
		ETag:       uploaded.ETag,
		Location:   uploaded.Location,
		Size:       info.Size(),
	}, nil
}

// HasUploadErrors returns true if any upload operation failed.
func HasUploadErrors(results []UploadResult) bool {
	for _, r := range results {
		if r.Err != nil {
			return true
		}
	}
	return false
}

// Purge drops cache keys, and optionally key patterns, through the admin API.
func (c *Client) Purge(ctx context.Context, keys, patterns []string) (*PurgeResult, error) {
	if err := c.config.RequireAdminToken(); err != nil {
		return nil, err
	}
	if len(keys) == 0 && len(patterns) == 0 {
		return nil, fmt.Errorf("purge: %w", ErrNoKeys)
	}

	req := struct {
		Keys     []string `json:"keys"`
		Patterns []string `json:"patterns,omitempty"`
	}{Keys: keys, Patterns: patterns}

	var result PurgeResult
	if err := c.postAdmin(ctx, "/admin/purge", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Warm asks the proxy to fetch URLs into its cache ahead of demand.
func (c *Client) Warm(ctx context.Context, urls []string) ([]WarmStatus, error) {
	if err := c.config.RequireAdminToken(); err != nil {
		return nil, err
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("warm: %w", ErrNoURLs)
	}

	req := struct {
		URLs []string `json:"urls"`
	}{URLs: urls}

	var resp warmResponse
	if err := c.postAdmin(ctx, "/admin/warm", req, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// Delete removes objects from the origin through the admin API.
func (c *Client) Delete(ctx context.Context, keys []string) (*DeleteResult, error) {
	if err := c.config.RequireAdminToken(); err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("delete: %w", ErrNoKeys)
	}

	req := struct {
		Keys []string `json:"keys"`
	}{Keys: keys}

	var result DeleteResult
	if err := c.postAdmin(ctx, "/admin/delete", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// postAdmin sends a JSON request to an admin endpoint and decodes the response.
func (c *Client) postAdmin(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.AdminToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return parseServerError(resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// normalizePath ensures path has leading slash and no trailing slash.
func normalizePath(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimSuffix(path, "/")
}

// NormalizeLocalToRemotePath converts a local path to a clean remote path.
// It handles:
//   - Leading "./" is stripped (./foo/bar.txt -> foo/bar.txt)
//   - Leading "/" is stripped (/abs/path/file.txt -> abs/path/file.txt)
//   - Parent traversal is resolved (../sibling/file.txt -> sibling/file.txt)
//   - Multiple slashes are collapsed
//   - Backslashes are converted to forward slashes (Windows)
func NormalizeLocalToRemotePath(localPath string) string {
	// Convert to forward slashes (Windows compatibility)
	path := filepath.ToSlash(localPath)

	// Clean the path (resolves . and .. segments)
	path = filepath.Clean(path)

	// Convert back to forward slashes after Clean (Clean uses OS separator)
	path = filepath.ToSlash(path)

	// Strip leading "./"
	path = strings.TrimPrefix(path, "./")

	// Strip leading "/" (absolute paths)
	path = strings.TrimPrefix(path, "/")

	// Handle edge case where Clean might produce ".."
	// Keep stripping leading "../" segments
	for strings.HasPrefix(path, "../") {
		path = strings.TrimPrefix(path, "../")
	}

	// Handle edge case where path is just ".." or "."
	if path == ".." || path == "." {
		return ""
	}

	return path
}

// detectContentType returns MIME type based on file extension.
func detectContentType(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return "application/octet-stream"
	}

	mimeType := mime.TypeByExtension(ext)
	if mimeType == "" {
		return "application/octet-stream"
	}

	return mimeType
}

// parseServerError extracts error message from server response.
func parseServerError(statusCode int, body []byte) error {
	return &APIError{
		StatusCode: statusCode,
		Body:       string(body),
	}
}

// APIError represents an error response from the proxy.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return "server error: " + strconv.Itoa(e.StatusCode) + " - " + e.Body
}

// Is reports whether target matches this error.
// It matches if target is an *APIError with the same StatusCode.
func (e *APIError) Is(target error) bool {
	var t *APIError
	ok := errors.As(target, &t)
	if !ok {
		return false
	}
	return t.StatusCode == e.StatusCode
}

// IsNotFound returns true if the error is a 404.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Sentinel errors for common API error conditions.
// Use errors.Is() to check for these conditions.
var (
	// ErrNotFound is returned when the requested object does not exist (404).
	ErrNotFound = &APIError{StatusCode: http.StatusNotFound}

	// ErrUnauthorized is returned when the admin token is missing or wrong (401).
	ErrUnauthorized = &APIError{StatusCode: http.StatusUnauthorized}

	// ErrForbidden is returned when a signed URL fails verification (403).
	ErrForbidden = &APIError{StatusCode: http.StatusForbidden}
)
