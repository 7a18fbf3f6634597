package http

import (
	"context"
	"crypto/subtle"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/sagarc03/edgestow"
)

// RequestVerifier checks the signature carried in a request URL.
type RequestVerifier interface {
	Verify(u *url.URL) error
}

// RequestIDHeader carries the request ID on requests and responses.
const RequestIDHeader = "X-Request-Id"

type contextKey int

const requestIDKey contextKey = iota

// RequestID assigns each request an ID, reusing one supplied by an upstream
// proxy. The ID is echoed on the response and available to handlers through
// RequestIDFromContext.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// RequestIDFromContext returns the request ID assigned by the RequestID
// middleware, or "" when the middleware did not run.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// AuthMiddlewareConfig scopes signed-URL enforcement.
type AuthMiddlewareConfig struct {
	// Verifier checks inbound URLs. Nil disables verification (public
	// access).
	Verifier RequestVerifier

	// RequiredPaths limits enforcement to matching paths; a pattern ending
	// in "*" matches by prefix. Empty means every path requires a valid
	// signature.
	RequiredPaths []string
}

// AuthMiddleware creates middleware that enforces signed-URL authentication.
// Every verification failure produces the same access-denied response.
func AuthMiddleware(cfg AuthMiddlewareConfig) func(http.Handler) http.Handler {
	if cfg.Verifier == nil {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(cfg.RequiredPaths) > 0 && !edgestow.AnyPathMatches(cfg.RequiredPaths, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			if err := cfg.Verifier.Verify(r.URL); err != nil {
				HandleError(w, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// BearerAuth creates middleware that gates a route group behind a static
// bearer token. An empty token rejects every request rather than letting
// them all through; the comparison is constant time.
func BearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const prefix = "Bearer "
			header := r.Header.Get("Authorization")
			if token == "" || !strings.HasPrefix(header, prefix) {
				HandleError(w, ErrUnauthorized)
				return
			}

			provided := strings.TrimPrefix(header, prefix)
			if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
				HandleError(w, ErrUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
