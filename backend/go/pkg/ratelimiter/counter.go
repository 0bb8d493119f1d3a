package ratelimiter

import (
	"context"
	"sync"
	"time"
)

// window is the state of one key's current fixed window.
type window struct {
	count int
	start time.Time
}

// FixedWindowCounter implements the RateLimiter interface using a fixed window counter algorithm.
// Each key gets its own window, which starts at the key's first request and
// resets once the window duration has fully elapsed. State lives in process memory.
type FixedWindowCounter struct {
	limit     int           // Maximum number of requests allowed per window.
	window    time.Duration // The duration of the time window.
	windows   map[string]*window
	lastSweep time.Time
	now       func() time.Time
	mutex     sync.Mutex
}

// NewFixedWindowCounter creates a new FixedWindowCounter.
// limit: the maximum number of requests allowed in the window.
// d: the duration of the time window.
func NewFixedWindowCounter(limit int, d time.Duration) *FixedWindowCounter {
	return &FixedWindowCounter{
		limit:   limit,
		window:  d,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Allow checks if a request for key is allowed.
// It resets the key's counter if its time window has passed.
// It increments the counter if the request is within the limit.
func (fwc *FixedWindowCounter) Allow(_ context.Context, key string) (Result, error) {
	fwc.mutex.Lock()
	defer fwc.mutex.Unlock()

	now := fwc.now()
	fwc.sweep(now)

	w, ok := fwc.windows[key]
	// If there is no window yet or it has passed, start a new one.
	if !ok || now.After(w.start.Add(fwc.window)) {
		w = &window{start: now}
		fwc.windows[key] = w
	}

	res := Result{Limit: fwc.limit, ResetAt: w.start.Add(fwc.window)}
	if w.count < fwc.limit {
		w.count++
		res.Allowed = true
	}
	res.Remaining = remaining(fwc.limit, w.count)
	return res, nil
}

// sweep drops expired windows at most once per window duration, so keys
// that stop sending requests do not accumulate.
func (fwc *FixedWindowCounter) sweep(now time.Time) {
	if now.Sub(fwc.lastSweep) < fwc.window {
		return
	}
	for key, w := range fwc.windows {
		if now.After(w.start.Add(fwc.window)) {
			delete(fwc.windows, key)
		}
	}
	fwc.lastSweep = now
}
