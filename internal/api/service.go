package api

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/jcrowe85/tiktok-analytics-sub000/internal/logging"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/queue"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/store"
)

// Submission is the caller-facing outcome of a submit call.
type Submission struct {
	Job     *queue.Job
	Created bool
}

// StatusReport aggregates everything known about one content item.
type StatusReport struct {
	Item   *store.ContentItem
	Job    *queue.Job
	Result *store.Result
}

// Service is the inbound facade over the queue and the result store. The CLI
// and the daemon both consume it, so submission semantics stay identical no
// matter where a job comes from.
type Service struct {
	queue        *queue.Store
	results      store.Store
	rulesVersion string
	logger       *slog.Logger
}

// NewService constructs the facade.
func NewService(qs *queue.Store, results store.Store, rulesVersion string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		queue:        qs,
		results:      results,
		rulesVersion: rulesVersion,
		logger:       logging.NewComponentLogger(logger, "api"),
	}
}

// Submit enqueues a content reference for analysis. Resubmitting identical
// content while a job is queued or active returns the existing job instead
// of creating a duplicate.
func (s *Service) Submit(ctx context.Context, contentID string, payload queue.Payload) (Submission, error) {
	contentID = strings.TrimSpace(contentID)
	if contentID == "" {
		return Submission{}, errors.New("submit: content id required")
	}

	job, created, err := s.queue.Enqueue(ctx, contentID, payload, s.rulesVersion)
	if err != nil {
		return Submission{}, err
	}

	if err := s.results.EnsureContentItem(ctx, contentID, store.MetadataFromPayload(payload)); err != nil {
		return Submission{}, err
	}

	s.logger.Info("content submitted",
		logging.String(logging.FieldContentID, contentID),
		logging.String("kind", string(payload.Kind)),
		logging.Bool("created", created),
		logging.Int64("job_id", job.ID),
		logging.String(logging.FieldEventType, "content_submitted"),
	)
	return Submission{Job: job, Created: created}, nil
}

// Status returns the content item, its most recent job, and its stored
// result. Every field may be nil when the id is unknown to that layer.
func (s *Service) Status(ctx context.Context, contentID string) (StatusReport, error) {
	contentID = strings.TrimSpace(contentID)
	if contentID == "" {
		return StatusReport{}, errors.New("status: content id required")
	}

	var report StatusReport

	item, err := s.results.GetContentItem(ctx, contentID)
	if err != nil {
		return report, err
	}
	report.Item = item

	job, err := s.queue.GetByContentID(ctx, contentID)
	if err != nil {
		return report, err
	}
	report.Job = job

	result, err := s.results.GetResult(ctx, contentID)
	if err != nil {
		return report, err
	}
	report.Result = result

	return report, nil
}

// Stats returns queue summary counts.
func (s *Service) Stats(ctx context.Context) (queue.Stats, error) {
	return s.queue.Stats(ctx)
}

// RetryFailed returns failed jobs to the pending state with a fresh attempt
// budget. Without ids, every failed job is retried.
func (s *Service) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	return s.queue.RetryFailed(ctx, ids...)
}

// List returns jobs filtered by status, newest first.
func (s *Service) List(ctx context.Context, statuses ...queue.Status) ([]*queue.Job, error) {
	return s.queue.List(ctx, statuses...)
}
