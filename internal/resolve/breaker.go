package resolve

import (
	"sync"
	"time"
)

// Breaker guards the primary resolver against repeated failures. After the
// threshold of consecutive failures is reached the primary path is skipped
// for the cooldown window; once the window elapses the failure count resets
// regardless of the next call's outcome.
//
// Breaker state is per-process and advisory: it saves wasted paid calls, it
// is not a cross-process correctness guarantee.
type Breaker struct {
	mu          sync.Mutex
	failures    int
	lastFailure time.Time

	threshold int
	cooldown  time.Duration
	now       func() time.Time
}

// BreakerStatus is a snapshot of breaker state for observability.
type BreakerStatus struct {
	Failures          int           `json:"failures"`
	Threshold         int           `json:"threshold"`
	Open              bool          `json:"open"`
	CooldownRemaining time.Duration `json:"cooldown_remaining"`
}

// NewBreaker constructs a breaker with the given failure threshold and
// cooldown window.
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 3
	}
	if cooldown <= 0 {
		cooldown = 5 * time.Minute
	}
	return &Breaker{
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// WithClock overrides the breaker's time source (useful for tests).
func (b *Breaker) WithClock(now func() time.Time) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	if now != nil {
		b.now = now
	}
	return b
}

// Allow reports whether the primary resolver may be attempted. Calling it
// after the cooldown window has elapsed resets the failure counter.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failures < b.threshold {
		return true
	}
	if b.now().Sub(b.lastFailure) >= b.cooldown {
		b.failures = 0
		return true
	}
	return false
}

// RecordFailure counts one primary resolver failure.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	b.lastFailure = b.now()
}

// RecordSuccess clears the consecutive failure counter.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
}

// Status returns the current breaker state.
func (b *Breaker) Status() BreakerStatus {
	b.mu.Lock()
	defer b.mu.Unlock()

	status := BreakerStatus{
		Failures:  b.failures,
		Threshold: b.threshold,
	}
	if b.failures >= b.threshold {
		remaining := b.cooldown - b.now().Sub(b.lastFailure)
		if remaining > 0 {
			status.Open = true
			status.CooldownRemaining = remaining
		}
	}
	return status
}
