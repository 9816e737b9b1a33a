package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter provides token bucket rate limiting keyed by client IP.
// TOKEN BUCKET ALGORITHM:
//   - Tokens are added to the bucket at a fixed rate
//   - Each request consumes one token
//   - Requests are rejected when the bucket is empty
//   - Burst allows temporary exceeding of the steady rate
type RateLimiter struct {
	config *RateLimitConfig

	mu      sync.Mutex
	buckets map[string]*tokenBucket
}

type tokenBucket struct {
	tokens     float64
	lastRefill time.Time
}

// RateLimitConfig holds configuration for rate limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64  // Token refill rate
	Burst             int      // Maximum burst size
	Enabled           bool     // Enable/disable rate limiting
	SkipPaths         []string // Paths to skip rate limiting
}

// DefaultRateLimitConfig returns default rate limit configuration.
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerSecond: 10.0,
		Burst:             20,
		Enabled:           true,
		SkipPaths: []string{
			"/health",
			"/ready",
		},
	}
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(config *RateLimitConfig) *RateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	return &RateLimiter{
		config:  config,
		buckets: make(map[string]*tokenBucket),
	}
}

// Allow consumes one token for the key, reporting whether the request may
// proceed and how many tokens remain.
func (rl *RateLimiter) Allow(key string) (bool, int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	bucket, ok := rl.buckets[key]
	if !ok {
		bucket = &tokenBucket{tokens: float64(rl.config.Burst), lastRefill: now}
		rl.buckets[key] = bucket
	}

	elapsed := now.Sub(bucket.lastRefill).Seconds()
	bucket.tokens += elapsed * rl.config.RequestsPerSecond
	if bucket.tokens > float64(rl.config.Burst) {
		bucket.tokens = float64(rl.config.Burst)
	}
	bucket.lastRefill = now

	if bucket.tokens < 1 {
		return false, 0
	}
	bucket.tokens--
	return true, int(bucket.tokens)
}

// GinMiddleware returns the gin middleware handler function.
func (rl *RateLimiter) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.config.Enabled || rl.shouldSkip(c.Request.URL.Path) {
			c.Next()
			return
		}

		allowed, remaining := rl.Allow(c.ClientIP())
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limited",
				"message": "too many requests",
			})
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) shouldSkip(path string) bool {
	for _, skip := range rl.config.SkipPaths {
		if path == skip {
			return true
		}
	}
	return false
}
