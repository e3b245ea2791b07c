package resolve_test

import (
	"sync"
	"testing"
	"time"

	"github.com/jcrowe85/tiktok-analytics-sub000/internal/resolve"
)

func TestBreakerOpensAfterThreshold(t *testing.T) {
	breaker := resolve.NewBreaker(3, 5*time.Minute)

	for i := 0; i < 3; i++ {
		if !breaker.Allow() {
			t.Fatalf("breaker should allow before threshold (failure %d)", i)
		}
		breaker.RecordFailure()
	}

	if breaker.Allow() {
		t.Fatal("breaker should be open after 3 consecutive failures")
	}
	status := breaker.Status()
	if !status.Open || status.Failures != 3 || status.Threshold != 3 {
		t.Fatalf("unexpected status: %+v", status)
	}
	if status.CooldownRemaining <= 0 {
		t.Fatal("expected remaining cooldown while open")
	}
}

func TestBreakerResetsAfterCooldownRegardlessOfOutcome(t *testing.T) {
	current := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return current }
	breaker := resolve.NewBreaker(3, 5*time.Minute).WithClock(clock)

	for i := 0; i < 3; i++ {
		breaker.RecordFailure()
	}
	if breaker.Allow() {
		t.Fatal("breaker should be open")
	}

	current = current.Add(5*time.Minute + time.Second)
	if !breaker.Allow() {
		t.Fatal("cooldown elapsed; primary should be eligible again")
	}
	if got := breaker.Status().Failures; got != 0 {
		t.Fatalf("failure count should reset to zero, got %d", got)
	}

	// A failure right after the reset must not reopen the breaker.
	breaker.RecordFailure()
	if !breaker.Allow() {
		t.Fatal("one failure after reset must not open the breaker")
	}
}

func TestBreakerSuccessClearsFailures(t *testing.T) {
	breaker := resolve.NewBreaker(3, time.Minute)
	breaker.RecordFailure()
	breaker.RecordFailure()
	breaker.RecordSuccess()
	if got := breaker.Status().Failures; got != 0 {
		t.Fatalf("expected 0 failures after success, got %d", got)
	}
}

func TestBreakerConcurrentFailuresAreCounted(t *testing.T) {
	breaker := resolve.NewBreaker(100, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			breaker.RecordFailure()
		}()
	}
	wg.Wait()

	if got := breaker.Status().Failures; got != 50 {
		t.Fatalf("expected 50 recorded failures, got %d", got)
	}
}
