package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pyqprep/mocktest-backend/internal/config"
	"github.com/pyqprep/mocktest-backend/internal/response"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RateLimiter implements a fixed-window per-IP rate limiter backed by Redis,
// so the limit holds across server instances.
type RateLimiter struct {
	rdb    *redis.Client
	log    zerolog.Logger
	scope  string
	limit  int
	window time.Duration
}

// NewRateLimiter creates a RateLimiter (e.g., 10 requests per minute for the
// "auth" scope).
func NewRateLimiter(rdb *redis.Client, log zerolog.Logger, scope string, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		rdb:    rdb,
		log:    log.With().Str("component", "ratelimit").Str("scope", scope).Logger(),
		scope:  scope,
		limit:  limit,
		window: window,
	}
}

// Middleware returns a Gin middleware that rate-limits requests by client IP.
// If Redis is unavailable the request passes: rate limiting is protection,
// not a dependency.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := config.CacheKey.RateLimitKey(rl.scope, c.ClientIP())

		count, err := rl.rdb.Incr(ctx, key).Result()
		if err != nil {
			rl.log.Warn().Err(err).Msg("Rate limit counter unavailable")
			c.Next()
			return
		}
		if count == 1 {
			rl.rdb.Expire(ctx, key, rl.window)
		}

		if count > int64(rl.limit) {
			response.AbortFail(c, http.StatusTooManyRequests, response.ErrRateLimitExceeded)
			return
		}

		c.Next()
	}
}
