package edgestow

import "strings"

// PathMatches reports whether path matches pattern. A pattern ending in "*"
// matches every path starting with the preceding prefix; any other pattern
// must match the path exactly.
func PathMatches(pattern, path string) bool {
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(path, strings.TrimSuffix(pattern, "*"))
	}
	return path == pattern
}

// AnyPathMatches reports whether path matches at least one pattern.
func AnyPathMatches(patterns []string, path string) bool {
	for _, pattern := range patterns {
		if PathMatches(pattern, path) {
			return true
		}
	}
	return false
}
