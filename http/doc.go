// Package http provides the HTTP surface of the edgestow proxy.
//
// This package implements the edge-facing API: cached object reads behind
// signed-URL authentication, origin listing, and a bearer-token admin API
// for purging, warming, uploads, and batch deletes.
//
// # Routes
//
//   - GET /healthz: liveness, always public
//   - GET /: origin listing with prefix, delimiter, token, max-keys
//   - GET /* and HEAD /*: object reads through the hybrid cache
//   - PUT /*: upload passthrough to the origin (admin token)
//   - POST /admin/purge: drop cache entries by exact key (admin token)
//   - POST /admin/warm: fetch URLs into the cache synchronously (admin token)
//   - POST /admin/delete: batch delete origin objects (admin token)
//
// # Authentication
//
// Reads use signed URLs checked by a RequestVerifier. Pass a verifier in
// HandlerConfig, or nil for public access; RequiredPaths narrows enforcement
// to matching path patterns. Every verification failure maps to the same
// access-denied response, with the failing check visible only in logs.
//
// The admin API and uploads use a static bearer token. When HandlerConfig
// carries no token those routes are not mounted at all.
//
// # Usage
//
// Create a handler with HandlerConfig:
//
//	handlerCfg := http.HandlerConfig{
//	    Verifier:   edgestow.NewVerifier(secret),
//	    AdminToken: adminToken,
//	    Debug:      true,
//	}
//	handler := http.NewHandler(&handlerCfg, hybridCache, originClient)
//	http.ListenAndServe(":8080", handler.Router())
//
// The cache parameter must implement the Cache interface (the hybrid cache
// orchestrator does); the store parameter must implement Store (the origin
// client does).
//
// # Debug header
//
// With Debug enabled, object responses carry X-Edgestow-Cache announcing
// hit or miss, the serving source, and the derived cache key:
//
//	X-Edgestow-Cache: HIT; source=cache; key=v1|/assets/app.js|...
package http
