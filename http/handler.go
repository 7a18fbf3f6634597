package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/sagarc03/edgestow"
	"github.com/sagarc03/edgestow/origin"
)

// Cache is the orchestrator surface the handler serves objects from.
type Cache interface {
	Get(ctx context.Context, req *edgestow.Request) (*edgestow.Result, error)
	Warm(ctx context.Context, req *edgestow.Request) (*edgestow.Result, error)
	Purge(ctx context.Context, key string) error
	PurgePattern(ctx context.Context, pattern string) error
	KeyFor(req *edgestow.Request) string
}

// Store is the origin surface behind the listing and write-through routes.
type Store interface {
	List(ctx context.Context, query origin.ListQuery) (*origin.Listing, error)
	Upload(ctx context.Context, in origin.UploadInput) (*origin.UploadResult, error)
	BatchDelete(ctx context.Context, keys []string) ([]string, error)
}

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type HandlerConfig struct {
	// Verifier checks signed URLs on the read path. Nil means public reads.
	Verifier RequestVerifier

	// RequiredPaths scopes signature enforcement; empty enforces it on
	// every path.
	RequiredPaths []string

	// AdminToken gates the upload route and the /admin API. Empty disables
	// them entirely.
	AdminToken string

	// Debug adds the X-Edgestow-Cache header to object responses.
	Debug bool

	PrefixLimits edgestow.PrefixLimits
	CORS         CORSConfig
}

// CacheDebugHeader reports hit/miss, source, and cache key when debug is on.
const CacheDebugHeader = "X-Edgestow-Cache"

// maxBatchDeleteKeys matches the origin's one-round-trip delete limit.
const maxBatchDeleteKeys = 1000

// Handler provides the proxy's HTTP surface: cached object reads, listing,
// and the admin API.
type Handler struct {
	config HandlerConfig
	cache  Cache
	store  Store
}

// NewHandler creates a new Handler with the given configuration, cache
// orchestrator, and origin store.
func NewHandler(config *HandlerConfig, cache Cache, store Store) *Handler {
	return &Handler{
		config: *config,
		cache:  cache,
		store:  store,
	}
}

// Router returns an http.Handler with the proxy's routes.
// Object reads and listing sit behind signed-URL auth; uploads and the
// /admin API sit behind the bearer token and are not mounted when no token
// is configured.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.Get("/healthz", h.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(AuthMiddlewareConfig{
			Verifier:      h.config.Verifier,
			RequiredPaths: h.config.RequiredPaths,
		}))
		r.Get("/", h.handleList)
		r.Get("/*", h.handleGet)
		r.Head("/*", h.handleGet)
	})

	if h.config.AdminToken != "" {
		r.Group(func(r chi.Router) {
			r.Use(BearerAuth(h.config.AdminToken))
			r.Put("/*", h.handlePut)
			r.Post("/admin/purge", h.handlePurge)
			r.Post("/admin/warm", h.handleWarm)
			r.Post("/admin/delete", h.handleDelete)
		})
	}

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	_ = WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	req := &edgestow.Request{Method: r.Method, URL: r.URL, Header: r.Header}
	if req.ObjectKey() == "" {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Object key is required")
		return
	}

	result, err := h.cache.Get(r.Context(), req)
	if err != nil {
		HandleError(w, err)
		return
	}

	h.writeResult(w, r, result)
}

// writeResult replays a cache result onto the wire. HEAD responses and 304s
// carry headers only.
func (h *Handler) writeResult(w http.ResponseWriter, r *http.Request, result *edgestow.Result) {
	for name, value := range result.Headers {
		w.Header().Set(name, value)
	}
	if h.config.Debug {
		w.Header().Set(CacheDebugHeader, debugValue(result))
	}
	w.WriteHeader(result.Status)

	if r.Method == http.MethodHead || result.Status == http.StatusNotModified {
		return
	}
	_, _ = w.Write(result.Body)
}

func debugValue(result *edgestow.Result) string {
	state := "MISS"
	if result.Hit {
		state = "HIT"
	}
	return fmt.Sprintf("%s; source=%s; key=%s", state, result.Source, result.Key)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	prefix, err := edgestow.SanitizePrefix(r.URL.Query().Get("prefix"), h.config.PrefixLimits)
	if err != nil {
		HandleError(w, err)
		return
	}

	maxKeys := 100
	if raw := r.URL.Query().Get("max-keys"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "invalid_parameter", "max-keys must be an integer")
			return
		}
		maxKeys = max(1, min(1000, parsed))
	}

	query := origin.ListQuery{
		Prefix:    prefix,
		Delimiter: r.URL.Query().Get("delimiter"),
		Token:     r.URL.Query().Get("token"),
		MaxKeys:   int32(maxKeys),
	}

	listing, err := h.store.List(r.Context(), query)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, listing)
}

func (h *Handler) handlePut(w http.ResponseWriter, r *http.Request) {
	// Upload keys pass the same gate as listing prefixes.
	key, err := edgestow.SanitizePrefix(strings.TrimPrefix(r.URL.Path, "/"), h.config.PrefixLimits)
	if err != nil {
		HandleError(w, err)
		return
	}
	if key == "" {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Object key is required")
		return
	}

	result, err := h.store.Upload(r.Context(), origin.UploadInput{
		Key:          key,
		ContentType:  r.Header.Get("Content-Type"),
		CacheControl: r.Header.Get("Cache-Control"),
		Body:         r.Body,
	})
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, result)
}

// PurgeRequest names cache keys, and optionally patterns, to drop.
type PurgeRequest struct {
	Keys     []string `json:"keys"`
	Patterns []string `json:"patterns,omitempty"`
}

// PurgeResponse reports the per-entry outcome of a purge.
type PurgeResponse struct {
	Purged []string          `json:"purged"`
	Failed map[string]string `json:"failed,omitempty"`
}

func (h *Handler) handlePurge(w http.ResponseWriter, r *http.Request) {
	var req PurgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_json", "Request body must be valid JSON")
		return
	}
	if len(req.Keys) == 0 && len(req.Patterns) == 0 {
		WriteError(w, http.StatusBadRequest, "invalid_input", "No keys or patterns given")
		return
	}

	resp := PurgeResponse{Purged: make([]string, 0, len(req.Keys))}
	fail := func(entry string, err error) {
		if resp.Failed == nil {
			resp.Failed = make(map[string]string)
		}
		resp.Failed[entry] = err.Error()
	}

	for _, key := range req.Keys {
		if err := h.cache.Purge(r.Context(), key); err != nil {
			fail(key, err)
			continue
		}
		resp.Purged = append(resp.Purged, key)
	}

	// Pattern entries fail individually, so the literal keys in the same
	// request still purge.
	for _, pattern := range req.Patterns {
		if err := h.cache.PurgePattern(r.Context(), pattern); err != nil {
			fail(pattern, err)
			continue
		}
		resp.Purged = append(resp.Purged, pattern)
	}

	_ = WriteJSON(w, http.StatusOK, resp)
}

// WarmRequest lists URLs (path plus query) to fetch into the cache.
type WarmRequest struct {
	URLs []string `json:"urls"`
}

// WarmResult is the outcome of warming one URL.
type WarmResult struct {
	URL    string `json:"url"`
	Key    string `json:"key,omitempty"`
	Status int    `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

// WarmResponse reports per-URL warm outcomes.
type WarmResponse struct {
	Results []WarmResult `json:"results"`
}

func (h *Handler) handleWarm(w http.ResponseWriter, r *http.Request) {
	var req WarmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_json", "Request body must be valid JSON")
		return
	}
	if len(req.URLs) == 0 {
		WriteError(w, http.StatusBadRequest, "invalid_input", "No urls given")
		return
	}

	resp := WarmResponse{Results: make([]WarmResult, 0, len(req.URLs))}
	for _, raw := range req.URLs {
		resp.Results = append(resp.Results, h.warmOne(r.Context(), raw))
	}

	_ = WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) warmOne(ctx context.Context, raw string) WarmResult {
	u, err := url.Parse(raw)
	if err != nil || strings.TrimPrefix(u.Path, "/") == "" {
		return WarmResult{URL: raw, Error: "url must carry an object path"}
	}

	warmReq := &edgestow.Request{Method: http.MethodGet, URL: u, Header: http.Header{}}
	result, err := h.cache.Warm(ctx, warmReq)
	if err != nil {
		return WarmResult{URL: raw, Key: h.cache.KeyFor(warmReq), Error: err.Error()}
	}
	return WarmResult{URL: raw, Key: result.Key, Status: result.Status}
}

// DeleteRequest names origin objects to remove.
type DeleteRequest struct {
	Keys []string `json:"keys"`
}

// DeleteResponse lists the keys the origin confirmed deleted.
type DeleteResponse struct {
	Deleted []string `json:"deleted"`
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req DeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_json", "Request body must be valid JSON")
		return
	}
	if len(req.Keys) == 0 {
		WriteError(w, http.StatusBadRequest, "invalid_input", "No keys given")
		return
	}
	if len(req.Keys) > maxBatchDeleteKeys {
		WriteError(w, http.StatusBadRequest, "invalid_input",
			fmt.Sprintf("At most %d keys per request", maxBatchDeleteKeys))
		return
	}

	deleted, err := h.store.BatchDelete(r.Context(), req.Keys)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, DeleteResponse{Deleted: deleted})
}
