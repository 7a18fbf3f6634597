package edgestow

import (
	"net/http"
	"strings"
)

// NotModified reports whether a cached entry satisfies the client's
// conditional headers, meaning a 304 can be served instead of the body.
//
// Entity tags take precedence: when the client sent If-None-Match the
// decision rests on the tag comparison alone and If-Modified-Since is never
// consulted, as RFC 7232 requires. An entry without an ETag cannot satisfy
// a tag comparison, so the full response is served. The modification-time
// check only runs when the client sent no tag at all, and a timestamp that
// fails to parse on either side counts as modified, again preferring the
// full response over a wrong 304.
func NotModified(cond ConditionalHeaders, entry *CachedEntry) bool {
	if cond.IfNoneMatch != "" {
		entryTag := entry.Header("ETag")
		return entryTag != "" && etagListContains(cond.IfNoneMatch, entryTag)
	}

	if cond.IfModifiedSince == "" {
		return false
	}
	lastModified := entry.Header("Last-Modified")
	if lastModified == "" {
		return false
	}
	since, err := http.ParseTime(cond.IfModifiedSince)
	if err != nil {
		return false
	}
	modified, err := http.ParseTime(lastModified)
	if err != nil {
		return false
	}
	return !modified.After(since)
}

// etagListContains reports whether the comma-separated client list matches
// tag. The wildcard "*" matches any tag. Weak validators and surrounding
// quotes are ignored on both sides, so W/"abc" and "abc" compare equal.
func etagListContains(list, tag string) bool {
	want := trimETag(tag)
	for _, candidate := range strings.Split(list, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" {
			return true
		}
		if trimETag(candidate) == want {
			return true
		}
	}
	return false
}

func trimETag(tag string) string {
	tag = strings.TrimPrefix(tag, "W/")
	return strings.Trim(tag, `"`)
}
