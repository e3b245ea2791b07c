package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/jcrowe85/tiktok-analytics-sub000/internal/config"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/logging"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/queue"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/services"
)

// Handler processes one claimed job. The progress callback reports
// fractional completion for observability.
type Handler interface {
	Process(ctx context.Context, job *queue.Job, progress func(percent float64, message string)) error
}

// Pool runs a fixed number of worker goroutines that claim jobs from the
// queue and hand them to the handler. Start is an explicit initialization
// phase: it validates wiring and reclaims orphaned jobs before any worker
// spins up, so a broken deployment fails loudly instead of idling.
type Pool struct {
	store   *queue.Store
	handler Handler
	logger  *slog.Logger

	count             int
	pollInterval      time.Duration
	heartbeatInterval time.Duration
	heartbeatTimeout  time.Duration
	jobTimeout        time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewPool constructs a worker pool from configuration.
func NewPool(cfg *config.Config, store *queue.Store, handler Handler, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pool{
		store:             store,
		handler:           handler,
		logger:            logging.NewComponentLogger(logger, "workers"),
		count:             cfg.Workers.Count,
		pollInterval:      time.Duration(cfg.Workers.PollIntervalSeconds) * time.Second,
		heartbeatInterval: time.Duration(cfg.Workers.HeartbeatIntervalSeconds) * time.Second,
		heartbeatTimeout:  time.Duration(cfg.Workers.HeartbeatTimeoutSeconds) * time.Second,
		jobTimeout:        time.Duration(cfg.Workers.JobTimeoutSeconds) * time.Second,
	}
}

// Start validates the pool wiring, reclaims jobs orphaned by a previous
// process, and launches the workers. It returns an error instead of starting
// a pool that could never make progress.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return errors.New("worker pool already running")
	}
	if p.store == nil {
		return errors.New("worker pool requires a queue store")
	}
	if p.handler == nil {
		return errors.New("worker pool requires a handler")
	}
	if p.count <= 0 {
		return fmt.Errorf("worker pool requires a positive worker count, got %d", p.count)
	}

	reclaimed, err := p.store.ReclaimStale(ctx, time.Now().UTC().Add(-p.heartbeatTimeout))
	if err != nil {
		return fmt.Errorf("reclaim stale jobs: %w", err)
	}
	if reclaimed > 0 {
		p.logger.Info("reclaimed orphaned jobs",
			logging.Int64("count", reclaimed),
			logging.String(logging.FieldEventType, "jobs_reclaimed"),
		)
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true

	for i := 0; i < p.count; i++ {
		p.wg.Add(1)
		go p.workerLoop(runCtx, i)
	}
	p.wg.Add(1)
	go p.reclaimLoop(runCtx)

	p.logger.Info("worker pool started",
		logging.Int("workers", p.count),
		logging.String(logging.FieldEventType, "pool_started"),
	)
	return nil
}

// Stop cancels all workers and waits for in-flight jobs to settle.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	cancel := p.cancel
	p.mu.Unlock()

	cancel()
	p.wg.Wait()
	p.logger.Info("worker pool stopped",
		logging.String(logging.FieldEventType, "pool_stopped"),
	)
}

func (p *Pool) workerLoop(ctx context.Context, id int) {
	defer p.wg.Done()
	logger := p.logger.With(logging.Int("worker", id))

	for {
		if ctx.Err() != nil {
			return
		}

		job, err := p.store.Claim(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("claim failed", logging.Error(err))
			if !sleepCtx(ctx, p.pollInterval) {
				return
			}
			continue
		}
		if job == nil {
			if !sleepCtx(ctx, p.pollInterval) {
				return
			}
			continue
		}

		p.runJob(ctx, job, logger)
	}
}

// runJob executes one claimed job with a per-job timeout, a heartbeat
// goroutine, and panic containment.
func (p *Pool) runJob(ctx context.Context, job *queue.Job, logger *slog.Logger) {
	jobCtx := ctx
	var cancel context.CancelFunc
	if p.jobTimeout > 0 {
		jobCtx, cancel = context.WithTimeout(ctx, p.jobTimeout)
	} else {
		jobCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	logger = logger.With(
		logging.Int64("job_id", job.ID),
		logging.String(logging.FieldContentID, job.ContentID),
	)
	logger.Info("job claimed",
		logging.String("kind", string(job.Kind)),
		logging.Int("attempt", job.Attempts),
		logging.Int("max_attempts", job.MaxAttempts),
		logging.String(logging.FieldEventType, "job_claimed"),
	)

	heartbeatDone := make(chan struct{})
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.heartbeatLoop(jobCtx, job.ID, heartbeatDone)
	}()

	err := p.executeHandler(jobCtx, job)
	close(heartbeatDone)

	if err == nil {
		if markErr := p.store.MarkCompleted(context.WithoutCancel(ctx), job.ID); markErr != nil {
			logger.Error("mark completed failed", logging.Error(markErr))
			return
		}
		logger.Info("job completed",
			logging.String(logging.FieldEventType, "job_completed"),
		)
		return
	}

	if ctx.Err() != nil {
		// Pool shutdown, not a handler defect. Return the claim so the
		// next daemon start retries without a burned attempt.
		if relErr := p.store.Release(context.WithoutCancel(ctx), job.ID); relErr != nil {
			logger.Error("release interrupted job failed", logging.Error(relErr))
			return
		}
		logger.Info("job interrupted by shutdown",
			logging.String(logging.FieldEventType, "job_interrupted"),
		)
		return
	}

	retry, markErr := p.store.MarkFailed(context.WithoutCancel(ctx), job, err)
	if markErr != nil {
		logger.Error("mark failed errored", logging.Error(markErr))
		return
	}
	logger.Warn("job failed",
		logging.Error(err),
		logging.String(logging.FieldErrorClass, services.Class(err)),
		logging.Bool("will_retry", retry),
		logging.Int("attempt", job.Attempts),
		logging.String(logging.FieldEventType, "job_failed"),
	)
}

// executeHandler invokes the handler and converts panics into errors so a
// bad job cannot take down a worker.
func (p *Pool) executeHandler(ctx context.Context, job *queue.Job) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("handler panic: %v\n%s", recovered, debug.Stack())
		}
	}()

	progress := func(percent float64, message string) {
		if updateErr := p.store.UpdateProgress(ctx, job.ID, percent, message); updateErr != nil && ctx.Err() == nil {
			p.logger.Debug("progress update failed", logging.Error(updateErr))
		}
	}
	return p.handler.Process(ctx, job, progress)
}

func (p *Pool) heartbeatLoop(ctx context.Context, jobID int64, done <-chan struct{}) {
	interval := p.heartbeatInterval
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.store.Heartbeat(ctx, jobID); err != nil && ctx.Err() == nil {
				p.logger.Debug("heartbeat failed",
					logging.Int64("job_id", jobID),
					logging.Error(err),
				)
			}
		}
	}
}

// reclaimLoop periodically returns jobs whose workers stopped heartbeating
// to the pending state.
func (p *Pool) reclaimLoop(ctx context.Context) {
	defer p.wg.Done()
	interval := p.heartbeatTimeout
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reclaimed, err := p.store.ReclaimStale(ctx, time.Now().UTC().Add(-p.heartbeatTimeout))
			if err != nil {
				if ctx.Err() == nil {
					p.logger.Error("reclaim stale jobs failed", logging.Error(err))
				}
				continue
			}
			if reclaimed > 0 {
				p.logger.Warn("reclaimed stale jobs",
					logging.Int64("count", reclaimed),
					logging.String(logging.FieldEventType, "jobs_reclaimed"),
				)
			}
		}
	}
}

func sleepCtx(ctx context.Context, duration time.Duration) bool {
	if duration <= 0 {
		duration = time.Second
	}
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
