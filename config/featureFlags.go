package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func envBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return def
	}
	return v == "1" || v == "true" || v == "yes" || v == "y" || v == "on"
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func secondsFromEnv(key string, def int) time.Duration {
	n := intFromEnv(key, def)
	if n <= 0 {
		n = def
	}
	return time.Duration(n) * time.Second
}

// UseSyntheticData serves generated records instead of querying branches.
//
// Set via env:
// - USE_SYNTHETIC_DATA=true
func UseSyntheticData() bool {
	return envBool("USE_SYNTHETIC_DATA", false)
}

// ReportCacheEnabled is on unless ENABLE_REPORT_CACHE is set to a false value.
func ReportCacheEnabled() bool {
	return envBool("ENABLE_REPORT_CACHE", true)
}

// Env: REPORT_CACHE_TTL_SECONDS (default 300s)
func ReportCacheTTL() time.Duration {
	return secondsFromEnv("REPORT_CACHE_TTL_SECONDS", 300)
}

// ReportStaleTTL is how long the last-known-good copy is kept for total-failure fallback.
// Env: REPORT_CACHE_STALE_TTL_SECONDS (default 86400s)
func ReportStaleTTL() time.Duration {
	return secondsFromEnv("REPORT_CACHE_STALE_TTL_SECONDS", 86400)
}

// Env: REPORT_SLOW_MS (default 500ms)
func ReportSlowThreshold() time.Duration {
	ms := intFromEnv("REPORT_SLOW_MS", 500)
	if ms <= 0 {
		ms = 500
	}
	return time.Duration(ms) * time.Millisecond
}

// CacheBackend is "memory" (default) or "redis".
func CacheBackend() string {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("CACHE_BACKEND")))
	if v == "redis" {
		return v
	}
	return "memory"
}

// RateLimitEnabled is opt-in via RATE_LIMIT_ENABLED and needs Redis.
func RateLimitEnabled() bool {
	return envBool("RATE_LIMIT_ENABLED", false)
}

// RateLimitSettings reads RATE_LIMIT_MAX_REQUESTS (600) and RATE_LIMIT_WINDOW_SECONDS (60).
func RateLimitSettings() (int64, time.Duration) {
	limit := intFromEnv("RATE_LIMIT_MAX_REQUESTS", 600)
	if limit <= 0 {
		limit = 600
	}
	return int64(limit), secondsFromEnv("RATE_LIMIT_WINDOW_SECONDS", 60)
}
