package edgestow

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CacheConfig is the caching policy applied by the orchestrator.
type CacheConfig struct {
	// Enabled gates the cache entirely; when false every request goes to
	// the origin and nothing is stored.
	Enabled bool

	// TTLSeconds is the freshness window used when the origin expresses no
	// preference, and the forced window when OverrideOriginHeaders is set.
	TTLSeconds int

	// MinTTLSeconds and MaxTTLSeconds clamp every resolved TTL, whatever
	// its source.
	MinTTLSeconds int
	MaxTTLSeconds int

	// OverrideOriginHeaders ignores origin freshness headers and applies
	// TTLSeconds unconditionally.
	OverrideOriginHeaders bool
}

// DefaultCacheConfig is the policy applied when the configuration file does
// not override it.
var DefaultCacheConfig = CacheConfig{
	Enabled:       true,
	TTLSeconds:    3600,
	MinTTLSeconds: 60,
	MaxTTLSeconds: 86400,
}

// Validate checks that the policy is internally consistent.
func (c CacheConfig) Validate() error {
	if c.TTLSeconds < 0 {
		return fmt.Errorf("ttl must not be negative: %w", ErrInvalidInput)
	}
	if c.MinTTLSeconds < 0 {
		return fmt.Errorf("min ttl must not be negative: %w", ErrInvalidInput)
	}
	if c.MaxTTLSeconds < c.MinTTLSeconds {
		return fmt.Errorf("max ttl below min ttl: %w", ErrInvalidInput)
	}
	return nil
}

// ResolveTTL determines the freshness window for an origin response, in
// seconds. Sources are consulted in priority order:
//  1. the configured TTL, when OverrideOriginHeaders is set
//  2. a parseable max-age directive in Cache-Control, including zero
//  3. an Expires header that lies in the future, converted to the seconds
//     remaining from now
//  4. the configured TTL as the fallback
//
// Whatever the source, the result is clamped into
// [MinTTLSeconds, MaxTTLSeconds] so neither a hostile origin header nor a
// typo in the configuration can produce a pathological window.
func ResolveTTL(headers map[string]string, cfg CacheConfig, now time.Time) int {
	if cfg.OverrideOriginHeaders {
		return clampTTL(cfg.TTLSeconds, cfg)
	}

	if cc := headerValue(headers, "Cache-Control"); cc != "" {
		if maxAge, ok := parseMaxAge(cc); ok {
			return clampTTL(maxAge, cfg)
		}
	}

	if raw := headerValue(headers, "Expires"); raw != "" {
		if expires, err := http.ParseTime(raw); err == nil && expires.After(now) {
			return clampTTL(int(expires.Sub(now).Seconds()), cfg)
		}
	}

	return clampTTL(cfg.TTLSeconds, cfg)
}

// parseMaxAge extracts the max-age directive from a Cache-Control value.
// The boolean reports whether a parseable directive was present; max-age=0
// is present and parseable, and distinct from absence.
func parseMaxAge(cacheControl string) (int, bool) {
	for _, directive := range strings.Split(cacheControl, ",") {
		name, value, found := strings.Cut(strings.TrimSpace(directive), "=")
		if !found || !strings.EqualFold(strings.TrimSpace(name), "max-age") {
			continue
		}
		seconds, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			continue
		}
		return seconds, true
	}
	return 0, false
}

func clampTTL(ttl int, cfg CacheConfig) int {
	if ttl < cfg.MinTTLSeconds {
		return cfg.MinTTLSeconds
	}
	if ttl > cfg.MaxTTLSeconds {
		return cfg.MaxTTLSeconds
	}
	return ttl
}
