package edgestow

import (
	"net/http"
	"net/url"
	"strings"
)

// keyExcludedParams are dropped before the query string enters the cache
// key. The auth parameters never affect the response an origin produces,
// and the cache-busting names are the conventional ways browsers and SDKs
// defeat intermediary caches. Leaving any of them in the key would let a
// client mint unlimited distinct keys for one object and flood the store.
var keyExcludedParams = []string{
	SigParam, ExpParam,
	"_", "bust", "nocache", "v", "version",
}

// DefaultKeyHeaders are the request headers folded into the cache key by
// default. Both change the representation an origin returns for the same
// URL, so entries cached under them must not be served to requests that
// sent different values.
var DefaultKeyHeaders = []string{"Range", "Accept-Encoding"}

// KeyBuilder derives deterministic cache keys from inbound requests.
//
// The key is a readable pipe-joined composite rather than a hash: the
// optional version tag, the escaped request path, the canonical query
// string minus auth and cache-busting parameters, and the selected headers
// as name:value pairs. Every variable component passes through the same
// strict encoding as the signer, so a crafted URL cannot smuggle a
// separator and collide with another object's key.
type KeyBuilder struct {
	// Version, when set, prefixes every key. Bumping it on a cache format
	// change invalidates all prior entries without touching the store.
	Version string

	// HeaderNames lists the request headers folded into the key.
	HeaderNames []string
}

// NewKeyBuilder creates a key builder with the default header set.
func NewKeyBuilder(version string) *KeyBuilder {
	return &KeyBuilder{
		Version:     version,
		HeaderNames: DefaultKeyHeaders,
	}
}

// Build derives the cache key for a request URL and its headers.
func (b *KeyBuilder) Build(u *url.URL, header http.Header) string {
	parts := make([]string, 0, 3+len(b.HeaderNames))
	if b.Version != "" {
		parts = append(parts, b.Version)
	}
	parts = append(parts, u.EscapedPath())
	parts = append(parts, CanonicalQuery(u.Query(), keyExcludedParams...))
	for _, name := range b.HeaderNames {
		if v := header.Get(name); v != "" {
			parts = append(parts, strings.ToLower(name)+":"+strictEncode(v))
		}
	}
	return strings.Join(parts, "|")
}
