// Package ratelimiter limits how many requests each key (user) may make in a
// fixed time window.
package ratelimiter

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/jakebgo/library-mvp/backend/go/internal/config"
)

// Result describes the outcome of one Allow call, enough to fill the
// X-RateLimit-* response headers.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RateLimiter is the interface for keyed rate limiting.
type RateLimiter interface {
	// Allow counts one request for key and reports whether it may proceed.
	Allow(ctx context.Context, key string) (Result, error)
}

// New builds the limiter selected by cfg.Backend. rdb is only used by the
// "redis" backend and may be nil otherwise.
func New(cfg config.RateLimiterConfig, rdb *redis.Client) (RateLimiter, error) {
	window := config.Duration(cfg.Window, time.Minute)
	switch cfg.Backend {
	case "", "memory":
		return NewFixedWindowCounter(cfg.Limit, window), nil
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("redis rate limiter needs a redis client")
		}
		return NewRedisFixedWindow(rdb, cfg.Limit, window), nil
	default:
		return nil, fmt.Errorf("unsupported rate limiter backend: %s", cfg.Backend)
	}
}

func remaining(limit, count int) int {
	if count >= limit {
		return 0
	}
	return limit - count
}
