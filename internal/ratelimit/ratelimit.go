// Package ratelimit implements fixed window counters in redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
)

const (
	DefaultWindow = time.Minute
	defaultPrefix = "ratelimit"
)

type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration // time until the window resets, set only if not allowed
}

// Counts hits per key within window
// Window starts at the first hit and the counter dies with it
var fixedWindow = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
return { count, ttl }
`)

type RedisLimiter struct {
	rdb    redis.Scripter
	limit  int
	window time.Duration
	prefix string
}

func NewRedisLimiter(rdb redis.Scripter, limit int, window time.Duration) *RedisLimiter {
	if window <= 0 {
		window = DefaultWindow
	}

	return &RedisLimiter{
		rdb:    rdb,
		limit:  limit,
		window: window,
		prefix: defaultPrefix,
	}
}

// Allow registers hit for the key and reports whether it fits the limit
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	vals, err := fixedWindow.Run(ctx, l.rdb, []string{l.prefix + ":" + key}, l.window.Milliseconds()).Int64Slice()
	if err != nil {
		return Result{Allowed: true}, fmt.Errorf("redis error: %w", err)
	}
	if len(vals) != 2 {
		return Result{Allowed: true}, fmt.Errorf("unexpected script result: %v", vals)
	}

	count, ttl := int(vals[0]), time.Duration(vals[1])*time.Millisecond
	if count > l.limit {
		return Result{Allowed: false, RetryAfter: max(ttl, 0)}, nil
	}

	return Result{Allowed: true, Remaining: l.limit - count}, nil
}

func (l *RedisLimiter) Limit() int {
	return l.limit
}

// Connect creates redis client and waits until the server answers
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})

	backoff := retry.WithMaxRetries(5, retry.NewExponential(200*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := rdb.Ping(ctx).Err(); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis is not available: %w", err)
	}

	return rdb, nil
}
