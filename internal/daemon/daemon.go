package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"github.com/jcrowe85/tiktok-analytics-sub000/internal/config"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/logging"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/queue"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/resolve"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/store"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/workers"
)

const lockFileName = "analyzerd.lock"

// Daemon ties together the queue store, the result store, and the worker
// pool behind a single Start/Stop lifecycle. A file lock in the log
// directory prevents two daemons from draining the same queue.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	queue   *queue.Store
	results *store.SQLiteStore
	pool    *workers.Pool
	breaker *resolve.Breaker

	lockPath string
	lock     *flock.Flock
	running  atomic.Bool
	cancel   context.CancelFunc
}

// Health is a point-in-time snapshot of daemon state for status surfaces.
type Health struct {
	Running     bool                  `json:"running"`
	QueuePath   string                `json:"queue_path"`
	ResultsPath string                `json:"results_path"`
	LockPath    string                `json:"lock_path"`
	Queue       queue.Stats           `json:"queue"`
	Breaker     resolve.BreakerStatus `json:"breaker"`
}

// New builds a daemon around an already-open queue store, result store,
// and worker pool. The lock file is created lazily on Start.
func New(cfg *config.Config, queueStore *queue.Store, resultStore *store.SQLiteStore, pool *workers.Pool, breaker *resolve.Breaker, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, fmt.Errorf("daemon: config is required")
	}
	if queueStore == nil {
		return nil, fmt.Errorf("daemon: queue store is required")
	}
	if pool == nil {
		return nil, fmt.Errorf("daemon: worker pool is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, lockFileName)
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		queue:    queueStore,
		results:  resultStore,
		pool:     pool,
		breaker:  breaker,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock and launches the worker pool. It
// returns an error if another daemon already holds the lock.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return fmt.Errorf("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire daemon lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another analyzer daemon instance is already running (lock: %s)", d.lockPath)
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.pool.Start(runCtx); err != nil {
		cancel()
		if unlockErr := d.lock.Unlock(); unlockErr != nil {
			d.logger.Warn("failed to release daemon lock", logging.Error(unlockErr))
		}
		return fmt.Errorf("start worker pool: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("daemon started",
		logging.String("lock_path", d.lockPath),
		logging.String("queue_path", d.queue.Path()),
		logging.Int("workers", d.cfg.Workers.Count))
	return nil
}

// Stop halts the worker pool and releases the instance lock. It is safe
// to call on a daemon that never started.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
	}
	d.pool.Stop()

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}

	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close stops the daemon and closes both databases.
func (d *Daemon) Close() error {
	d.Stop()

	var firstErr error
	if d.results != nil {
		if err := d.results.Close(); err != nil {
			firstErr = err
		}
	}
	if err := d.queue.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Running reports whether the daemon currently holds the lock and has a
// live worker pool.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Health reports queue depth and resolver breaker state alongside the
// storage paths the daemon is bound to.
func (d *Daemon) Health(ctx context.Context) (Health, error) {
	health := Health{
		Running:   d.running.Load(),
		QueuePath: d.queue.Path(),
		LockPath:  d.lockPath,
	}
	if d.results != nil {
		health.ResultsPath = d.results.Path()
	}
	if d.breaker != nil {
		health.Breaker = d.breaker.Status()
	}

	stats, err := d.queue.Stats(ctx)
	if err != nil {
		return health, fmt.Errorf("queue stats: %w", err)
	}
	health.Queue = stats
	return health, nil
}
