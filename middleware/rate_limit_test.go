package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowEnforcesPerIPWindow(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		allowed, _ := rl.Allow("10.0.0.1")
		assert.True(t, allowed, "request %d", i)
	}

	allowed, retryAfter := rl.Allow("10.0.0.1")
	assert.False(t, allowed)
	assert.Greater(t, retryAfter, time.Duration(0))

	// Other IPs are unaffected
	allowed, _ = rl.Allow("10.0.0.2")
	assert.True(t, allowed)
}

func TestAllowResetsAfterWindow(t *testing.T) {
	rl := NewRateLimiter(1, 20*time.Millisecond)

	allowed, _ := rl.Allow("10.0.0.1")
	require.True(t, allowed)
	allowed, _ = rl.Allow("10.0.0.1")
	require.False(t, allowed)

	time.Sleep(30 * time.Millisecond)
	allowed, _ = rl.Allow("10.0.0.1")
	assert.True(t, allowed)
}

func TestIngestRateLimitReturns429(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/prices", IngestRateLimit(NewRateLimiter(1, time.Minute)), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/prices", nil))
	assert.Equal(t, http.StatusCreated, first.Code)

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/prices", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
}
