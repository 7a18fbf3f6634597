package edgestow

import (
	"fmt"
	"strings"
)

// PrefixLimits bounds the shape of a listing prefix.
type PrefixLimits struct {
	MaxLength int
	MaxDepth  int
}

// DefaultPrefixLimits matches the limits the proxy applies when the
// configuration does not override them.
var DefaultPrefixLimits = PrefixLimits{
	MaxLength: 255,
	MaxDepth:  10,
}

// maxSegmentAvgLen caps the average segment length after normalization.
// A prefix that stays under MaxLength by using few, enormous segments is
// rejected the same way an over-long one is.
const maxSegmentAvgLen = 64

// SanitizePrefix validates and normalizes a client-supplied listing prefix
// before it reaches the origin store. A miss here would expose objects
// outside the intended namespace, so the checks favor rejection over
// permissiveness. They run in order and stop at the first failure:
//   - length must not exceed limits.MaxLength
//   - no traversal indicators: a ".." segment in any position, a "../" or
//     "/.." fragment, or the percent-encoded form %2e%2e in any case mix
//   - after stripping control characters (C0, DEL, C1), every remaining
//     character must be an ASCII letter, digit, or one of - _ . / ';
//     backslashes are tolerated only so normalization can rewrite them
//   - normalization: backslashes become slashes, runs of slashes collapse,
//     a single leading slash is dropped, one trailing slash is dropped
//   - the normalized prefix must not exceed limits.MaxDepth segments, and
//     its average segment length must stay under a fixed ceiling
//
// Returns the normalized prefix, or a *ValidationError matching
// ErrInvalidInput naming the check that failed.
func SanitizePrefix(raw string, limits PrefixLimits) (string, error) {
	if limits.MaxLength <= 0 {
		limits.MaxLength = DefaultPrefixLimits.MaxLength
	}
	if limits.MaxDepth <= 0 {
		limits.MaxDepth = DefaultPrefixLimits.MaxDepth
	}

	if len(raw) > limits.MaxLength {
		return "", &ValidationError{
			Kind:   ValidationTooLong,
			Reason: fmt.Sprintf("prefix exceeds %d characters", limits.MaxLength),
		}
	}

	if containsTraversal(raw) {
		return "", &ValidationError{Kind: ValidationTraversal, Reason: "path traversal detected"}
	}

	stripped := stripControl(raw)
	for _, r := range stripped {
		if !allowedPrefixRune(r) {
			return "", &ValidationError{
				Kind:   ValidationInvalidCharacters,
				Reason: fmt.Sprintf("character %q not allowed", r),
			}
		}
	}

	normalized := normalizePrefix(stripped)

	// Stripping control characters can splice two dots into a fresh ".."
	// that the raw-input scan never saw. Re-check the final segments.
	for _, seg := range strings.Split(normalized, "/") {
		if seg == ".." {
			return "", &ValidationError{Kind: ValidationTraversal, Reason: "path traversal detected"}
		}
	}

	if normalized != "" {
		segments := strings.Count(normalized, "/") + 1
		if segments > limits.MaxDepth {
			return "", &ValidationError{
				Kind:   ValidationTooDeep,
				Reason: fmt.Sprintf("prefix exceeds %d segments", limits.MaxDepth),
			}
		}
		if len(normalized)/segments > maxSegmentAvgLen {
			return "", &ValidationError{
				Kind:   ValidationTooLong,
				Reason: "segments too long on average",
			}
		}
	}

	return normalized, nil
}

// containsTraversal reports whether raw carries any parent-directory
// indicator, literal or percent-encoded.
func containsTraversal(raw string) bool {
	if raw == ".." ||
		strings.HasPrefix(raw, "../") ||
		strings.HasSuffix(raw, "/..") ||
		strings.Contains(raw, "/../") ||
		strings.Contains(raw, "..\\") ||
		strings.Contains(raw, "\\..") {
		return true
	}
	return strings.Contains(strings.ToLower(raw), "%2e%2e")
}

// stripControl removes C0 controls, DEL, and C1 controls.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || (r >= 0x80 && r <= 0x9f) {
			return -1
		}
		return r
	}, s)
}

func allowedPrefixRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	}
	switch r {
	case '-', '_', '.', '/', '\'':
		return true
	case '\\':
		// Tolerated here so normalization can rewrite it to a slash.
		return true
	}
	return false
}

// normalizePrefix converts backslashes to slashes, collapses slash runs,
// and drops a single leading and trailing slash.
func normalizePrefix(s string) string {
	s = strings.ReplaceAll(s, "\\", "/")
	for strings.Contains(s, "//") {
		s = strings.ReplaceAll(s, "//", "/")
	}
	s = strings.TrimPrefix(s, "/")
	s = strings.TrimSuffix(s, "/")
	return s
}
