package ratelimit

import (
	"sync"
	"testing"
	"time"
)

// fixedClock lets tests advance time explicitly.
type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fixedClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestLimiter() (*Limiter, *fixedClock) {
	clock := &fixedClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	l := NewLimiter(5, 15*time.Minute)
	l.now = clock.now
	return l, clock
}

func TestCheck_FreshKeyAllowed(t *testing.T) {
	l, _ := newTestLimiter()

	allowed, retryAfter := l.Check("1.2.3.4")
	if !allowed || retryAfter != 0 {
		t.Fatalf("fresh key: got allowed=%v retryAfter=%d", allowed, retryAfter)
	}
}

func TestCheck_BlockedAfterMaxAttempts(t *testing.T) {
	l, _ := newTestLimiter()

	for i := 0; i < 5; i++ {
		l.Increment("1.2.3.4")
	}

	allowed, retryAfter := l.Check("1.2.3.4")
	if allowed {
		t.Fatalf("expected blocked after 5 increments")
	}
	if retryAfter <= 0 {
		t.Fatalf("expected positive retryAfter, got %d", retryAfter)
	}
}

func TestCheck_AllowedBelowMax(t *testing.T) {
	l, _ := newTestLimiter()

	for i := 0; i < 4; i++ {
		l.Increment("1.2.3.4")
	}

	if allowed, _ := l.Check("1.2.3.4"); !allowed {
		t.Fatalf("expected allowed at 4 of 5 attempts")
	}
}

func TestCheck_WindowExpiryResets(t *testing.T) {
	l, clock := newTestLimiter()

	for i := 0; i < 5; i++ {
		l.Increment("1.2.3.4")
	}
	if allowed, _ := l.Check("1.2.3.4"); allowed {
		t.Fatalf("expected blocked before window elapses")
	}

	clock.advance(15*time.Minute + time.Second)

	if allowed, _ := l.Check("1.2.3.4"); !allowed {
		t.Fatalf("expected allowed after window elapsed")
	}
}

func TestIncrement_AfterExpiryStartsFreshWindow(t *testing.T) {
	l, clock := newTestLimiter()

	for i := 0; i < 5; i++ {
		l.Increment("1.2.3.4")
	}
	clock.advance(16 * time.Minute)

	l.Increment("1.2.3.4")

	// One attempt in the fresh window: still allowed.
	if allowed, _ := l.Check("1.2.3.4"); !allowed {
		t.Fatalf("expected fresh window after expiry, got blocked")
	}
}

func TestKeys_Isolated(t *testing.T) {
	l, _ := newTestLimiter()

	for i := 0; i < 5; i++ {
		l.Increment("10.0.0.1")
	}

	if allowed, _ := l.Check("10.0.0.2"); !allowed {
		t.Fatalf("increments for one key affected another")
	}
}

func TestRetryAfter_RoundsUp(t *testing.T) {
	l, clock := newTestLimiter()

	for i := 0; i < 5; i++ {
		l.Increment("1.2.3.4")
	}
	clock.advance(14*time.Minute + 59*time.Second + 500*time.Millisecond)

	_, retryAfter := l.Check("1.2.3.4")
	if retryAfter != 1 {
		t.Fatalf("expected retryAfter=1 for 500ms remaining, got %d", retryAfter)
	}
}

func TestSweep_DropsExpiredEntries(t *testing.T) {
	l, clock := newTestLimiter()

	l.Increment("a")
	l.Increment("b")
	clock.advance(16 * time.Minute)
	l.Increment("c")

	l.Sweep()

	if got := l.size(); got != 1 {
		t.Fatalf("expected 1 live entry after sweep, got %d", got)
	}
}

func TestIncrement_ConcurrentNoLostUpdates(t *testing.T) {
	l, _ := newTestLimiter()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Increment("race")
		}()
	}
	wg.Wait()

	if allowed, _ := l.Check("race"); allowed {
		t.Fatalf("expected blocked after 5 concurrent increments")
	}
}
