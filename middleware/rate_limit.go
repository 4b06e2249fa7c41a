package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// ingestAttempt tracks ingest requests from one IP
type ingestAttempt struct {
	Count   int
	FirstAt time.Time
}

// RateLimiter bounds how many ingest requests an IP may make per window
type RateLimiter struct {
	mu           sync.RWMutex
	attempts     map[string]*ingestAttempt
	maxAttempts  int
	windowPeriod time.Duration
}

// NewRateLimiter creates a new rate limiter
// maxAttempts: maximum requests allowed within the window
// windowPeriod: time window for counting requests
func NewRateLimiter(maxAttempts int, windowPeriod time.Duration) *RateLimiter {
	rl := &RateLimiter{
		attempts:     make(map[string]*ingestAttempt),
		maxAttempts:  maxAttempts,
		windowPeriod: windowPeriod,
	}
	go rl.startCleanup()
	return rl
}

// startCleanup periodically cleans up old entries
func (rl *RateLimiter) startCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	for range ticker.C {
		rl.cleanup()
	}
}

// cleanup removes expired entries
func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for ip, attempt := range rl.attempts {
		if now.Sub(attempt.FirstAt) > rl.windowPeriod {
			delete(rl.attempts, ip)
		}
	}
}

// Allow reports whether the IP may make another request, and how long
// until its window resets when it may not
func (rl *RateLimiter) Allow(ip string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	attempt, ok := rl.attempts[ip]
	if !ok || now.Sub(attempt.FirstAt) > rl.windowPeriod {
		rl.attempts[ip] = &ingestAttempt{Count: 1, FirstAt: now}
		return true, 0
	}

	if attempt.Count >= rl.maxAttempts {
		return false, rl.windowPeriod - now.Sub(attempt.FirstAt)
	}

	attempt.Count++
	return true, 0
}

// IngestRateLimit returns a middleware rejecting IPs that exceed the
// ingest rate limit with 429
func IngestRateLimit(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, retryAfter := rl.Allow(c.ClientIP())
		if !allowed {
			c.Header("Retry-After", fmt.Sprintf("%.0f", retryAfter.Seconds()))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many requests, slow down",
			})
			return
		}
		c.Next()
	}
}
