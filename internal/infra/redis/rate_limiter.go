package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed one-second window shared by all replicas:
// INCR quitz:rl:{key}:{unix second}, allowance perSecond+burst.
type RateLimiter struct {
	client    *redis.Client
	allowance int64
	window    time.Duration
	clock     func() time.Time
}

func NewRateLimiter(client *redis.Client, perSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		client:    client,
		allowance: int64(perSecond) + int64(burst),
		window:    time.Second,
		clock:     time.Now,
	}
}

func (l *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	windowKey := l.windowKey(key, l.clock())

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, windowKey)
	pipe.Expire(ctx, windowKey, 2*l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit %s: %w", key, err)
	}
	return incr.Val() <= l.allowance, nil
}

func (l *RateLimiter) windowKey(key string, now time.Time) string {
	window := now.UnixNano() / int64(l.window)
	return "quitz:rl:" + key + ":" + strconv.FormatInt(window, 10)
}
