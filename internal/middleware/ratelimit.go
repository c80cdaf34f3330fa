package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shopverse/checkout-api/internal/pkg/logger"
	"github.com/shopverse/checkout-api/internal/pkg/response"
)

// Counter increments a fixed-window counter and returns the new value
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisCounter implements Counter with INCR + EXPIRE
type RedisCounter struct {
	client *redis.Client
}

func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

func (c *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := c.client.Expire(ctx, key, window).Err(); err != nil {
			return 0, err
		}
	}
	return count, nil
}

// RateLimitPerUser caps requests per authenticated user per window.
// A nil counter disables limiting; counter errors fail open.
func RateLimitPerUser(counter Counter, scope string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if counter == nil || limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := GetUserID(r.Context())
			key := fmt.Sprintf("ratelimit:%s:%s", scope, userID)

			count, err := counter.Incr(r.Context(), key, window)
			if err != nil {
				logger.LogWarn(r.Context(), "rate limiter unavailable", "scope", scope, "error", err.Error())
				next.ServeHTTP(w, r)
				return
			}
			if count > int64(limit) {
				response.TooManyRequests(w, "RATE_LIMIT_EXCEEDED", "Too many requests, please try again later", window)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
