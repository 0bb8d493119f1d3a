package ratelimiter

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "ratelimit:"

// incrScript increments the key and starts its expiry on the first hit of a
// window, returning the new count and the remaining TTL in milliseconds.
// A key left without a TTL gets one too, otherwise its count would never reset.
var incrScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
local ttl = redis.call("PTTL", KEYS[1])
if count == 1 or ttl < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RedisFixedWindow is a fixed window counter shared by every instance that
// talks to the same Redis.
type RedisFixedWindow struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewRedisFixedWindow creates a Redis-backed fixed window limiter.
func NewRedisFixedWindow(rdb *redis.Client, limit int, window time.Duration) *RedisFixedWindow {
	return &RedisFixedWindow{rdb: rdb, limit: limit, window: window, now: time.Now}
}

// Allow counts the request with INCR and PEXPIRE in a single script call.
func (r *RedisFixedWindow) Allow(ctx context.Context, key string) (Result, error) {
	raw, err := incrScript.Run(ctx, r.rdb, []string{redisKeyPrefix + key}, r.window.Milliseconds()).Result()
	if err != nil {
		return Result{}, fmt.Errorf("rate limiter: %w", err)
	}
	vals, ok := raw.([]interface{})
	if !ok || len(vals) != 2 {
		return Result{}, fmt.Errorf("rate limiter: unexpected script reply %v", raw)
	}
	count, _ := vals[0].(int64)
	ttl, _ := vals[1].(int64)
	if ttl < 0 {
		ttl = r.window.Milliseconds()
	}

	return Result{
		Allowed:   int(count) <= r.limit,
		Limit:     r.limit,
		Remaining: remaining(r.limit, int(count)),
		ResetAt:   r.now().Add(time.Duration(ttl) * time.Millisecond),
	}, nil
}
