package redis

import (
	"context"
	"fmt"
	"time"
)

// RateLimiter is the per-user request limiter used by the HTTP layer.
// It is distinct from the queue's admission controller: this one guards
// inbound API chatter, the admission controller guards job dispatch.
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

func UserRequestKey(userID, route string) string {
	return fmt.Sprintf("rate_limit:%s:%s", userID, route)
}
