package edgestow

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a cache entry or object is not found
	ErrNotFound = errors.New("not found")
	// ErrExpired is returned by cache stores for entries past their TTL
	ErrExpired = errors.New("cache entry expired")
	// ErrAccessDenied is the client-facing authentication failure.
	// Every AuthError matches it via errors.Is; the kind stays in logs only.
	ErrAccessDenied = errors.New("access denied")
	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
	// ErrUpstream is returned when the origin store could not produce a response
	ErrUpstream = errors.New("upstream failure")
	// ErrUnsupported is returned for operations the proxy deliberately does not
	// implement, such as pattern-based purge
	ErrUnsupported = errors.New("unsupported operation")
	// ErrInternal is returned when an internal error occurs
	ErrInternal = errors.New("internal error")
)

// AuthKind discriminates signed-URL verification failures in logs.
type AuthKind string

const (
	AuthMissingCredential  AuthKind = "missing_credential"
	AuthExpired            AuthKind = "expired"
	AuthMalformedSignature AuthKind = "malformed_signature"
	AuthBadSignature       AuthKind = "bad_signature"
)

// AuthError is a signed-URL verification failure. Clients see only the
// generic ErrAccessDenied status; Kind and Detail are for internal logging,
// never for response bodies, so the API does not leak which check failed.
type AuthError struct {
	Kind   AuthKind
	Detail string
}

func (e *AuthError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("auth: %s", e.Kind)
	}
	return fmt.Sprintf("auth: %s: %s", e.Kind, e.Detail)
}

// Is reports a match for ErrAccessDenied so callers can map every
// verification failure to one externally visible status.
func (e *AuthError) Is(target error) bool {
	return target == ErrAccessDenied
}

// ValidationKind discriminates prefix sanitizer rejections.
type ValidationKind string

const (
	ValidationTooLong           ValidationKind = "too_long"
	ValidationTraversal         ValidationKind = "traversal_detected"
	ValidationInvalidCharacters ValidationKind = "invalid_characters"
	ValidationTooDeep           ValidationKind = "too_deep"
)

// ValidationError is a prefix sanitizer rejection with a human-readable reason.
type ValidationError struct {
	Kind   ValidationKind
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid prefix: %s: %s", e.Kind, e.Reason)
}

// Is reports a match for ErrInvalidInput.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// FetchError is returned once the retrying fetcher has exhausted its attempt
// budget. It wraps the failure observed on the final attempt.
type FetchError struct {
	Attempts int
	LastErr  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("origin fetch failed after %d attempts: %v", e.Attempts, e.LastErr)
}

func (e *FetchError) Unwrap() error {
	return e.LastErr
}

// Is reports a match for ErrUpstream.
func (e *FetchError) Is(target error) bool {
	return target == ErrUpstream
}
