package security

import (
	"fmt"
	"time"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"
)

type RateLimiterConfig struct {
	// MaxRequests allowed per caller inside Window.
	MaxRequests int
	Window      time.Duration
}

// RateLimiter throttles mutating endpoints per caller using a redis
// fixed-window counter. Authenticated callers are keyed by record id, the
// rest by client IP.
type RateLimiter struct {
	redis *redis.Client
	cfg   RateLimiterConfig
}

func NewRateLimiter(redisClient *redis.Client, cfg RateLimiterConfig) *RateLimiter {
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = 30
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	return &RateLimiter{redis: redisClient, cfg: cfg}
}

// Middleware is the request hook to bind on throttled routes.
func (r *RateLimiter) Middleware() func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if r.redis == nil {
			return e.Next()
		}

		caller := e.RealIP()
		if e.Auth != nil {
			caller = e.Auth.Id
		}
		key := fmt.Sprintf("ratelimit:%s", caller)

		ctx := e.Request.Context()
		count, err := r.redis.Incr(ctx, key).Result()
		if err != nil {
			// redis trouble should not take the API down
			return e.Next()
		}
		if count == 1 {
			r.redis.Expire(ctx, key, r.cfg.Window)
		}
		if count > int64(r.cfg.MaxRequests) {
			return apis.NewTooManyRequestsError("Too many requests. Please try again later.", nil)
		}

		return e.Next()
	}
}
