package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/chatstream/errors"
	"github.com/kbukum/chatstream/resilience"
)

// RateLimitConfig configures per-client token buckets.
type RateLimitConfig struct {
	// Rate is the sustained number of requests per second per key.
	Rate  float64 `mapstructure:"rate"`
	Burst int     `mapstructure:"burst"`
	// KeyFunc extracts the bucket key. Defaults to the client IP.
	KeyFunc func(*gin.Context) string `mapstructure:"-"`
}

// RateLimit rejects requests with 429 RATE_LIMITED once a key's bucket is
// empty. Attach it to individual routes.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = IPBasedKey
	}
	limiter := resilience.NewKeyedRateLimiter(resilience.RateLimiterConfig{
		Name:  "http",
		Rate:  cfg.Rate,
		Burst: cfg.Burst,
	}, 10*time.Minute)

	return func(c *gin.Context) {
		if !limiter.Allow(cfg.KeyFunc(c)) {
			status, body := apperrors.Resolve(apperrors.RateLimited())
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(status, body)
			return
		}
		c.Next()
	}
}

// IPBasedKey keys buckets by client IP.
func IPBasedKey(c *gin.Context) string {
	return c.ClientIP()
}
