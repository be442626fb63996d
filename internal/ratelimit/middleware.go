package ratelimit

import (
	"fmt"
	"strconv"

	"codeberg.org/melodygen/server/internal/errors"
	"codeberg.org/melodygen/server/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

const storePrefix = "melodygen:ratelimit"

// builds a limiter over a redis store so the limit holds across instances
func NewRedisLimiter(client *redis.Client, formatted string) (*limiter.Limiter, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rate %q: %w", formatted, err)
	}

	store, err := sredis.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix: storePrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create redis limiter store: %w", err)
	}

	return limiter.New(store, rate), nil
}

// gin middleware enforcing a per-caller request rate. Authenticated
// requests are keyed by user id, anonymous ones by client IP.
func Middleware(l *limiter.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetString("user_id")
		if key == "" {
			key = c.ClientIP()
		}

		lctx, err := l.Get(c.Request.Context(), key)
		if err != nil {
			// a broken limiter store must not take the API down
			logger.ErrorErr(err, "rate limiter unavailable, allowing request")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

		if lctx.Reached {
			errors.TooManyRequests(c, "")
			c.Abort()
			return
		}

		c.Next()
	}
}
