package redis

import (
	"context"
	"time"
)

// RateLimiter admits at most limit calls per key in each fixed window.
type RateLimiter struct {
	counters RedisClient
}

func NewRateLimiter(counters RedisClient) *RateLimiter {
	return &RateLimiter{counters: counters}
}

// Allow counts the call and reports whether it is still inside the budget.
// The increment and the window ttl are applied atomically.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	n, err := r.counters.IncrWindow(ctx, key, window)
	if err != nil {
		return false, err
	}
	return n <= int64(limit), nil
}

// UploadKey is the counter key for uploads from one client address.
func UploadKey(client string) string {
	return "rate_limit:upload:" + client
}
