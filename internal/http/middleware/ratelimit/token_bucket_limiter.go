package ratelimit

import (
	"sync"
	"time"
)

// Config stores TokenBucketLimiter settings. The limiter is keyed, so one
// noisy courier cannot starve location ingestion for everyone else.
type Config struct {
	Rate    float64       // tokens per second
	Burst   int           // bucket capacity
	IdleTTL time.Duration // drop buckets idle for longer than this (0 disables)
	MaxKeys int           // cap on tracked keys (0 means unbounded)
}

// TokenBucketLimiter is a per-key token bucket limiter.
type TokenBucketLimiter struct {
	cfg   Config
	clock Clock

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	tokens   float64
	refilled time.Time
	lastSeen time.Time
}

// NewTokenBucketLimiter creates a limiter with explicit config and an
// injected clock. Nil clock falls back to the real one.
func NewTokenBucketLimiter(clock Clock, cfg Config) *TokenBucketLimiter {
	if clock == nil {
		clock = RealClock{}
	}
	if cfg.Rate <= 0 {
		cfg.Rate = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.MaxKeys < 0 {
		cfg.MaxKeys = 0
	}
	return &TokenBucketLimiter{
		cfg:     cfg,
		clock:   clock,
		buckets: make(map[string]*bucket),
	}
}

// NewTokenBucketPerWindow is a convenience ctor for "limit per window".
func NewTokenBucketPerWindow(clock Clock, limit int, window, idleTTL time.Duration, maxKeys int) *TokenBucketLimiter {
	if window <= 0 {
		window = time.Second
	}
	if limit <= 0 {
		limit = 1
	}
	return NewTokenBucketLimiter(clock, Config{
		Rate:    float64(limit) / window.Seconds(),
		Burst:   limit,
		IdleTTL: idleTTL,
		MaxKeys: maxKeys,
	})
}

// Allow reports whether the key may proceed and consumes a token if so.
// When the key cap is reached, unknown keys are refused outright.
func (l *TokenBucketLimiter) Allow(key string) bool {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.maybeSweep(now)

	b := l.buckets[key]
	if b == nil {
		if l.cfg.MaxKeys > 0 && len(l.buckets) >= l.cfg.MaxKeys {
			return false
		}
		b = &bucket{tokens: float64(l.cfg.Burst), refilled: now}
		l.buckets[key] = b
	}

	if dt := now.Sub(b.refilled); dt > 0 {
		b.tokens += dt.Seconds() * l.cfg.Rate
		if max := float64(l.cfg.Burst); b.tokens > max {
			b.tokens = max
		}
		b.refilled = now
	}
	b.lastSeen = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// maybeSweep drops idle buckets. Called under l.mu.
func (l *TokenBucketLimiter) maybeSweep(now time.Time) {
	if l.cfg.IdleTTL <= 0 {
		return
	}

	interval := time.Minute
	if half := l.cfg.IdleTTL / 2; half > interval {
		interval = half
	}
	if !l.lastSweep.IsZero() && now.Sub(l.lastSweep) < interval {
		return
	}
	l.lastSweep = now

	for k, b := range l.buckets {
		if now.Sub(b.lastSeen) > l.cfg.IdleTTL {
			delete(l.buckets, k)
		}
	}
}
