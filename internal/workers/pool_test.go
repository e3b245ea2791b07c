package workers_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jcrowe85/tiktok-analytics-sub000/internal/queue"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/testsupport"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/workers"
)

type handlerFunc func(ctx context.Context, job *queue.Job, progress func(float64, string)) error

func (f handlerFunc) Process(ctx context.Context, job *queue.Job, progress func(percent float64, message string)) error {
	return f(ctx, job, progress)
}

func waitFor(t *testing.T, timeout time.Duration, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestStartValidatesWiring(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	qs := testsupport.MustOpenQueue(t, cfg)

	pool := workers.NewPool(cfg, qs, nil, nil)
	if err := pool.Start(context.Background()); err == nil {
		t.Fatal("expected start to fail without a handler")
	}

	handler := handlerFunc(func(ctx context.Context, job *queue.Job, progress func(float64, string)) error {
		return nil
	})
	pool = workers.NewPool(cfg, qs, handler, nil)
	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer pool.Stop()

	if err := pool.Start(context.Background()); err == nil {
		t.Fatal("expected second start to fail")
	}
}

func TestPoolProcessesJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWorkerCount(3))
	qs := testsupport.MustOpenQueue(t, cfg)

	var processed atomic.Int64
	handler := handlerFunc(func(ctx context.Context, job *queue.Job, progress func(float64, string)) error {
		progress(50, "halfway")
		processed.Add(1)
		return nil
	})

	for i := 0; i < 5; i++ {
		testsupport.EnqueueVideo(t, qs, fmt.Sprintf("item-%d", i), "https://short.example/v/abc")
	}

	pool := workers.NewPool(cfg, qs, handler, nil)
	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer pool.Stop()

	waitFor(t, 10*time.Second, func() bool {
		stats, err := qs.Stats(context.Background())
		if err != nil {
			return false
		}
		return stats.Completed == 5
	})
	if processed.Load() != 5 {
		t.Fatalf("expected 5 processed jobs, got %d", processed.Load())
	}
}

func TestPoolRespectsConcurrencyBound(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWorkerCount(2))
	qs := testsupport.MustOpenQueue(t, cfg)

	var inFlight, peak atomic.Int64
	handler := handlerFunc(func(ctx context.Context, job *queue.Job, progress func(float64, string)) error {
		current := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			observed := peak.Load()
			if current <= observed || peak.CompareAndSwap(observed, current) {
				break
			}
		}
		time.Sleep(100 * time.Millisecond)
		return nil
	})

	for i := 0; i < 6; i++ {
		testsupport.EnqueueVideo(t, qs, fmt.Sprintf("item-%d", i), "https://short.example/v/abc")
	}

	pool := workers.NewPool(cfg, qs, handler, nil)
	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer pool.Stop()

	waitFor(t, 15*time.Second, func() bool {
		stats, err := qs.Stats(context.Background())
		if err != nil {
			return false
		}
		return stats.Completed == 6
	})
	if peak.Load() > 2 {
		t.Fatalf("concurrency bound exceeded: peak %d workers", peak.Load())
	}
}

func TestPoolRetriesUntilAttemptsExhausted(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithWorkerCount(1),
		testsupport.WithMaxAttempts(2),
	)
	cfg.Workers.BackoffBaseSeconds = 0
	qs := testsupport.MustOpenQueue(t, cfg)

	var attempts atomic.Int64
	handler := handlerFunc(func(ctx context.Context, job *queue.Job, progress func(float64, string)) error {
		attempts.Add(1)
		return errors.New("always fails")
	})

	job := testsupport.EnqueueVideo(t, qs, "item-1", "https://short.example/v/abc")

	pool := workers.NewPool(cfg, qs, handler, nil)
	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer pool.Stop()

	waitFor(t, 10*time.Second, func() bool {
		current, err := qs.GetByID(context.Background(), job.ID)
		if err != nil || current == nil {
			return false
		}
		return current.Status == queue.StatusFailed
	})
	if attempts.Load() != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts.Load())
	}

	current, err := qs.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if current.ErrorMessage == "" {
		t.Fatal("expected error message recorded on the job")
	}
}

func TestPoolContainsHandlerPanics(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithWorkerCount(1),
		testsupport.WithMaxAttempts(1),
	)
	qs := testsupport.MustOpenQueue(t, cfg)

	handler := handlerFunc(func(ctx context.Context, job *queue.Job, progress func(float64, string)) error {
		panic("boom")
	})

	job := testsupport.EnqueueVideo(t, qs, "item-1", "https://short.example/v/abc")

	pool := workers.NewPool(cfg, qs, handler, nil)
	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer pool.Stop()

	waitFor(t, 10*time.Second, func() bool {
		current, err := qs.GetByID(context.Background(), job.ID)
		if err != nil || current == nil {
			return false
		}
		return current.Status == queue.StatusFailed
	})
}

func TestPoolShutdownReleasesInFlightJob(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWorkerCount(1), testsupport.WithMaxAttempts(1))
	qs := testsupport.MustOpenQueue(t, cfg)

	started := make(chan struct{})
	handler := handlerFunc(func(ctx context.Context, job *queue.Job, progress func(float64, string)) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})

	testsupport.EnqueueVideo(t, qs, "item-interrupted", "https://short.example/v/abc")

	pool := workers.NewPool(cfg, qs, handler, nil)
	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer pool.Stop()

	select {
	case <-started:
	case <-time.After(10 * time.Second):
		t.Fatal("handler never started")
	}
	pool.Stop()

	// A clean shutdown must not burn an attempt: on max_attempts=1 a
	// MarkFailed here would have terminally failed the job.
	job, err := qs.GetByContentID(context.Background(), "item-interrupted")
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if job == nil || job.Status != queue.StatusPending {
		t.Fatalf("expected interrupted job back in pending, got %+v", job)
	}
	if job.Attempts != 0 {
		t.Fatalf("expected attempt returned, got %d", job.Attempts)
	}
}
