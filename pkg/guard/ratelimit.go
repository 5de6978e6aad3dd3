// Package guard holds the turn-admission counters: per-identity rate limiting
// and the global cap on simultaneously active sessions. Both are independent
// of session state and safe to update without the per-session lock.
package guard

import (
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// ThrottledError tells the boundary to answer 429 with a retry hint.
type ThrottledError struct {
	Identity   string
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s, retry after %s", e.Identity, e.RetryAfter)
}

type window struct {
	start time.Time
	count int
}

// RateLimiter is a fixed-window counter keyed by identity (client IP or
// session id). Counters live in a go-cache so stale identities expire on
// their own.
type RateLimiter struct {
	mu       sync.Mutex
	counters *cache.Cache
	window   time.Duration
	max      int
}

func NewRateLimiter(windowLen time.Duration, max int) *RateLimiter {
	if windowLen <= 0 {
		windowLen = time.Minute
	}
	if max <= 0 {
		max = 20
	}
	return &RateLimiter{
		counters: cache.New(2*windowLen, 5*time.Minute),
		window:   windowLen,
		max:      max,
	}
}

// CheckAndConsume consumes weight units from the identity's current window.
// The zero weight is normalized to 1.
func (r *RateLimiter) CheckAndConsume(identity string, weight int) error {
	if weight <= 0 {
		weight = 1
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	var w *window
	if raw, found := r.counters.Get(identity); found {
		w = raw.(*window)
	}
	if w == nil || now.Sub(w.start) >= r.window {
		// Window elapsed: counter resets.
		w = &window{start: now}
		r.counters.Set(identity, w, cache.DefaultExpiration)
	}

	if w.count+weight > r.max {
		return &ThrottledError{
			Identity:   identity,
			RetryAfter: w.start.Add(r.window).Sub(now),
		}
	}
	w.count += weight
	return nil
}
