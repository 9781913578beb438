package redis

import (
	"context"
	"fmt"
	"time"
)

// RateLimiter is a shared counter-with-TTL limiter. Because the counter lives
// in Redis it holds across multiple server instances, unlike an in-process map.
type RateLimiter struct {
	client RedisClient
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client}
}

func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := r.client.Incr(ctx, key)
	if err != nil {
		return false, err
	}

	if count == 1 {
		err = r.client.Expire(ctx, key, window)
		if err != nil {
			return false, err
		}
	}

	if count > int64(limit) {
		return false, nil
	}

	return true, nil
}

// RouteKey builds the limiter key for an identifier (email or IP) on a route.
func RouteKey(route, identifier string) string {
	return fmt.Sprintf("rate_limit:%s:%s", route, identifier)
}
