package edgestow

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strconv"
	"time"
)

// Signer issues signed URLs for the proxy's HMAC-SHA256 scheme.
type Signer struct {
	secret []byte
}

// NewSigner creates a signer from the shared secret. The same secret must be
// configured on the proxy for the issued URLs to verify.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign returns a copy of u with exp and sig query parameters appended so
// that it verifies until expiry. Existing exp and sig parameters on u are
// replaced. The input URL is not modified.
func (s *Signer) Sign(u *url.URL, expiry time.Time) *url.URL {
	signed := *u
	query := signed.Query()
	query.Set(ExpParam, strconv.FormatInt(expiry.Unix(), 10))
	query.Del(SigParam)

	mac := hmacSHA256(s.secret, StringToSign(signed.EscapedPath(), query))
	query.Set(SigParam, hex.EncodeToString(mac))
	signed.RawQuery = query.Encode()
	return &signed
}

// SignURL parses rawURL, signs it with the given validity window, and
// returns the signed URL as a string.
func (s *Signer) SignURL(rawURL string, validity time.Duration) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", &ValidationError{Kind: ValidationInvalidCharacters, Reason: "unparseable url"}
	}
	return s.Sign(u, time.Now().Add(validity)).String(), nil
}

// Verifier checks signed URLs against the shared secret.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a verifier for URLs issued with the same secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify checks the signature and expiry of a signed URL.
//
// The scheme covers the request path and every query parameter except sig
// itself, so neither the path nor the expiry can be altered after signing.
// The covered bytes are rebuilt with CanonicalQuery, meaning verification is
// independent of parameter order and wire encoding.
//
// The checks run in a fixed order and stop at the first failure:
//  1. exp and sig must both be present (missing_credential)
//  2. exp must be a valid integer and still in the future; the comparison
//     converts exp to milliseconds once and checks it against the current
//     time with no clock-skew allowance (expired)
//  3. sig must decode as hex (malformed_signature)
//  4. the decoded signature must match the recomputed HMAC, compared in
//     constant time (bad_signature)
//
// Every failure is an *AuthError matching ErrAccessDenied, so handlers can
// map all of them to a single client-visible status while logs keep the
// distinct kind.
//
// Example:
//
//	verifier := edgestow.NewVerifier(cfg.Auth.Secret)
//	if err := verifier.Verify(r.URL); err != nil {
//	    // Deny with the generic access-denied status.
//	}
func (v *Verifier) Verify(u *url.URL) error {
	query := u.Query()

	sig := query.Get(SigParam)
	if sig == "" {
		return &AuthError{Kind: AuthMissingCredential, Detail: "missing signature"}
	}
	expRaw := query.Get(ExpParam)
	if expRaw == "" {
		return &AuthError{Kind: AuthMissingCredential, Detail: "missing expiry"}
	}

	exp, err := strconv.ParseInt(expRaw, 10, 64)
	if err != nil {
		return &AuthError{Kind: AuthExpired, Detail: "invalid expiry value"}
	}
	if time.Now().UnixMilli() > exp*1000 {
		return &AuthError{Kind: AuthExpired, Detail: "url expired"}
	}

	provided, err := hex.DecodeString(sig)
	if err != nil {
		return &AuthError{Kind: AuthMalformedSignature, Detail: "signature is not hex"}
	}

	expected := hmacSHA256(v.secret, StringToSign(u.EscapedPath(), query))
	if !hmac.Equal(provided, expected) {
		return &AuthError{Kind: AuthBadSignature}
	}
	return nil
}

func hmacSHA256(key []byte, data string) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(data))
	return h.Sum(nil)
}
