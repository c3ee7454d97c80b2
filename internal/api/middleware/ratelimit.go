package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/airwatch/airwatch/internal/api/models"
)

// RateLimitConfig holds configuration for rate limiting.
type RateLimitConfig struct {
	// Requests per window
	RequestLimit int
	// Window duration
	WindowLength time.Duration
}

// Default rate limit configurations.
var (
	// HeatmapRateLimit applies to grid sampling, which fans out to many
	// station lookups per request (30 req/min).
	HeatmapRateLimit = RateLimitConfig{
		RequestLimit: 30,
		WindowLength: time.Minute,
	}

	// StandardRateLimit applies to point queries and metadata (100 req/min).
	StandardRateLimit = RateLimitConfig{
		RequestLimit: 100,
		WindowLength: time.Minute,
	}
)

// PerMinute returns a one-minute window config. Non-positive limits fall back
// to def.
func PerMinute(limit int, def RateLimitConfig) RateLimitConfig {
	if limit <= 0 {
		return def
	}
	return RateLimitConfig{RequestLimit: limit, WindowLength: time.Minute}
}

// RateLimitByIP creates a rate limiter middleware using client IP address.
// Uses X-Forwarded-For header if present (extracted by chi's RealIP middleware).
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	retryAfter := strconv.Itoa(int(math.Ceil(cfg.WindowLength.Seconds())))

	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			// httprate does not expose the exact reset time, so a full window
			// is the conservative estimate.
			w.Header().Set("Retry-After", retryAfter)
			rateLimitExceeded(w, r)
		}),
	)
}

// rateLimitExceeded writes an RFC7807 Problem response when rate limit is exceeded.
func rateLimitExceeded(w http.ResponseWriter, r *http.Request) {
	traceID := GetRequestID(r.Context())

	problem := models.NewTooManyRequests(traceID, "Rate limit exceeded. Please try again later.")
	problem.Instance = r.URL.Path
	problem.Write(w)
}
