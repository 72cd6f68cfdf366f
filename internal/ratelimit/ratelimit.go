// Package ratelimit provides a sliding-window attempt limiter keyed by an
// arbitrary string, typically a client address. It guards the login endpoint
// against brute force: callers Check before authenticating and Increment only
// on authentication failure.
//
// The limiter is process-local. In a multi-process deployment each process
// counts attempts independently, so the effective limit is per process.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultMaxAttempts = 5
	DefaultWindow      = 15 * time.Minute

	sweepInterval = 60 * time.Second
)

type entry struct {
	count   int
	resetAt time.Time
}

// Limiter tracks failed attempts per key over a rolling window.
// All methods are safe for concurrent use; Check and Increment take the same
// lock, so counts are never lost under concurrent attempts for one key.
type Limiter struct {
	mu          sync.Mutex
	attempts    map[string]*entry
	maxAttempts int
	window      time.Duration

	now func() time.Time
}

func NewLimiter(maxAttempts int, window time.Duration) *Limiter {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{
		attempts:    make(map[string]*entry),
		maxAttempts: maxAttempts,
		window:      window,
		now:         time.Now,
	}
}

// Check reports whether another attempt for key is allowed. When blocked,
// retryAfter is the whole number of seconds until the window resets, rounded
// up so a client that waits exactly that long is always admitted.
func (l *Limiter) Check(key string) (allowed bool, retryAfter int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.attempts[key]
	if !ok || !now.Before(e.resetAt) {
		return true, 0
	}

	if e.count >= l.maxAttempts {
		secs := int((e.resetAt.Sub(now) + time.Second - 1) / time.Second)
		return false, secs
	}

	return true, 0
}

// Increment records a failed attempt for key. Callers must not increment on
// successful authentication.
func (l *Limiter) Increment(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.attempts[key]
	if !ok || !now.Before(e.resetAt) {
		l.attempts[key] = &entry{count: 1, resetAt: now.Add(l.window)}
		return
	}
	e.count++
}

// Sweep removes expired entries. Check and Increment already treat expired
// entries as absent, so this only bounds memory.
func (l *Limiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, e := range l.attempts {
		if !now.Before(e.resetAt) {
			delete(l.attempts, key)
		}
	}
}

// Run sweeps periodically until ctx is cancelled.
func (l *Limiter) Run(ctx context.Context, logger *zap.Logger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("rate limiter sweep stopped")
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

func (l *Limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.attempts)
}
