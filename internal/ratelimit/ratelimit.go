// Package ratelimit provides per-caller request limiting with token buckets.
package ratelimit

import (
	"sync"
	"time"
)

// Result reports the outcome of a rate limit check.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter int
}

// Limiter maintains one token bucket per caller key. Buckets fill at
// refillRate tokens per second up to burst.
type Limiter struct {
	mu         sync.Mutex
	buckets    map[string]*bucket
	burst      int
	refillRate float64
	retryAfter int
	now        func() time.Time
}

type bucket struct {
	tokens   float64
	lastFill time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// NewLimiter constructs a limiter allowing burst requests at once, refilling
// at refillRate per second. retryAfter is the advisory delay, in seconds,
// returned to throttled callers.
func NewLimiter(burst int, refillRate float64, retryAfter int, opts ...Option) *Limiter {
	l := &Limiter{
		buckets:    make(map[string]*bucket),
		burst:      burst,
		refillRate: refillRate,
		retryAfter: retryAfter,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow consumes one token for key if available.
func (l *Limiter) Allow(key string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(l.burst), lastFill: now}
		l.buckets[key] = b
	}

	elapsed := now.Sub(b.lastFill).Seconds()
	b.tokens += elapsed * l.refillRate
	if b.tokens > float64(l.burst) {
		b.tokens = float64(l.burst)
	}
	b.lastFill = now

	res := Result{
		Limit:   l.burst,
		ResetAt: now.Add(l.timeToFull(b.tokens)),
	}
	if b.tokens >= 1 {
		b.tokens--
		res.Allowed = true
		res.Remaining = int(b.tokens)
		return res
	}
	res.RetryAfter = l.retryAfter
	return res
}

// Reset clears the bucket for a key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

func (l *Limiter) timeToFull(tokens float64) time.Duration {
	if l.refillRate <= 0 {
		return 0
	}
	missing := float64(l.burst) - tokens
	if missing < 0 {
		missing = 0
	}
	return time.Duration(missing / l.refillRate * float64(time.Second))
}
