package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/admissions-api/pkg/errors"
)

type rateCounter interface {
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
}

type rateObserver interface {
	ObserveRateLimited(path string)
}

// RateLimitConfig bounds requests per client within a fixed window.
type RateLimitConfig struct {
	Enabled bool
	Limit   int
	Window  time.Duration
}

// RateLimit enforces cfg per client IP for the named resource. Counter
// failures let the request through.
func RateLimit(counter rateCounter, cfg RateLimitConfig, resource string, metrics rateObserver, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	return func(c *gin.Context) {
		if !cfg.Enabled || cfg.Limit <= 0 || counter == nil {
			c.Next()
			return
		}

		key := fmt.Sprintf("rl:%s:ip:%s", resource, c.ClientIP())
		count, err := counter.Increment(c.Request.Context(), key, cfg.Window)
		if err != nil {
			logger.Warn("rate limit counter unavailable", zap.String("resource", resource), zap.Error(err))
			c.Next()
			return
		}

		remaining := cfg.Limit - int(count)
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if count > int64(cfg.Limit) {
			if metrics != nil {
				metrics.ObserveRateLimited(resource)
			}
			c.Header("Retry-After", strconv.Itoa(int(cfg.Window.Seconds())))
			abort(c, appErrors.Clone(appErrors.ErrTooManyRequests, "too many attempts, try again later"))
			return
		}
		c.Next()
	}
}
