package edgestow

import (
	"net/url"
	"sort"
	"strings"
)

// Query parameter names reserved by the signing scheme.
const (
	// SigParam carries the lowercase-hex HMAC signature.
	SigParam = "sig"
	// ExpParam carries the expiry as epoch seconds. It is covered by the
	// signature, so tampering with it invalidates the URL.
	ExpParam = "exp"
)

// strictEncode percent-encodes s per RFC 3986. It differs from standard
// form encoding in that space becomes %20 rather than +, and the
// sub-delimiters ! ' ( ) * are escaped as well. Both sides of the signing
// protocol must produce byte-identical output, so there is no room for the
// looser encoding.
func strictEncode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// CanonicalQuery builds the deterministic query-string form used for
// signing and cache-key derivation. Parameters named in exclude are dropped,
// the rest are sorted byte-wise by name (duplicate names additionally by
// value) and joined as strictly-encoded name=value pairs with "&".
func CanonicalQuery(query url.Values, exclude ...string) string {
	excluded := make(map[string]struct{}, len(exclude))
	for _, name := range exclude {
		excluded[name] = struct{}{}
	}

	names := make([]string, 0, len(query))
	for name := range query {
		if _, skip := excluded[name]; skip {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		values := query[name]
		if len(values) > 1 {
			values = append([]string(nil), values...)
			sort.Strings(values)
		}
		for _, value := range values {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(strictEncode(name))
			b.WriteByte('=')
			b.WriteString(strictEncode(value))
		}
	}
	return b.String()
}

// StringToSign joins the request path and canonical query into the exact
// byte sequence covered by the signature. The signature parameter itself is
// excluded; every other parameter, including the expiry, is covered. When no
// parameters remain the path stands alone, with no trailing "?".
func StringToSign(path string, query url.Values) string {
	canonical := CanonicalQuery(query, SigParam)
	if canonical == "" {
		return path
	}
	return path + "?" + canonical
}
