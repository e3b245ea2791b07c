package daemon_test

import (
	"context"
	"testing"
	"time"

	"github.com/jcrowe85/tiktok-analytics-sub000/internal/daemon"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/logging"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/queue"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/resolve"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/testsupport"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/workers"
)

type idleHandler struct{}

func (idleHandler) Process(ctx context.Context, job *queue.Job, progress func(percent float64, message string)) error {
	return nil
}

func newTestDaemon(t *testing.T) *daemon.Daemon {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithWorkerCount(1))
	qs := testsupport.MustOpenQueue(t, cfg)
	rs := testsupport.MustOpenResults(t, cfg)
	pool := workers.NewPool(cfg, qs, idleHandler{}, logging.NewNop())
	breaker := resolve.NewBreaker(cfg.Resolver.BreakerThreshold, time.Duration(cfg.Resolver.BreakerCooldownSeconds)*time.Second)

	d, err := daemon.New(cfg, qs, rs, pool, breaker, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	return d
}

func TestDaemonStartStop(t *testing.T) {
	d := newTestDaemon(t)
	defer d.Stop()

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !d.Running() {
		t.Fatal("expected daemon to report running after Start")
	}
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second Start to fail while running")
	}

	d.Stop()
	if d.Running() {
		t.Fatal("expected daemon to report stopped after Stop")
	}
}

func TestDaemonStopWithoutStartIsSafe(t *testing.T) {
	d := newTestDaemon(t)
	d.Stop()

	if d.Running() {
		t.Fatal("expected daemon to remain stopped")
	}
}

func TestDaemonHealthReportsQueueAndBreaker(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWorkerCount(1))
	qs := testsupport.MustOpenQueue(t, cfg)
	rs := testsupport.MustOpenResults(t, cfg)
	pool := workers.NewPool(cfg, qs, idleHandler{}, logging.NewNop())
	breaker := resolve.NewBreaker(3, 5*time.Minute)

	d, err := daemon.New(cfg, qs, rs, pool, breaker, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	defer d.Stop()

	testsupport.EnqueueVideo(t, qs, "content-health", "https://example.com/v/1")

	health, err := d.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Running {
		t.Fatal("expected not running before Start")
	}
	if health.Queue.Waiting != 1 {
		t.Fatalf("expected 1 waiting job, got %d", health.Queue.Waiting)
	}
	if health.Breaker.Open {
		t.Fatal("expected breaker closed")
	}
	if health.QueuePath == "" || health.ResultsPath == "" {
		t.Fatal("expected storage paths to be populated")
	}

	breaker.RecordFailure()
	breaker.RecordFailure()
	breaker.RecordFailure()

	health, err = d.Health(context.Background())
	if err != nil {
		t.Fatalf("Health after failures: %v", err)
	}
	if !health.Breaker.Open {
		t.Fatal("expected breaker open after threshold failures")
	}
}

func TestDaemonLockPreventsSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWorkerCount(1))
	qs := testsupport.MustOpenQueue(t, cfg)
	rs := testsupport.MustOpenResults(t, cfg)

	first, err := daemon.New(cfg, qs, rs, workers.NewPool(cfg, qs, idleHandler{}, logging.NewNop()), nil, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	defer first.Stop()

	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %v", err)
	}

	second, err := daemon.New(cfg, qs, rs, workers.NewPool(cfg, qs, idleHandler{}, logging.NewNop()), nil, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("expected second daemon to fail acquiring the lock")
	}
}
