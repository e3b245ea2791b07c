package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jcrowe85/tiktok-analytics-sub000/internal/config"
)

// Store manages job persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string

	maxAttempts   int
	backoffBase   time.Duration
	backoffFactor float64
}

// sqliteDSN carries the pragmas in the DSN so every pooled connection gets
// them, not only the one that happened to run an explicit PRAGMA.
func sqliteDSN(path string) string {
	return path + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Open initializes or connects to the queue database and applies the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "queue.db")
	db, err := sql.Open("sqlite", sqliteDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	store := &Store{
		db:            db,
		path:          dbPath,
		maxAttempts:   cfg.Workers.MaxAttempts,
		backoffBase:   time.Duration(cfg.Workers.BackoffBaseSeconds) * time.Second,
		backoffFactor: cfg.Workers.BackoffFactor,
	}
	if err := store.applySchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the location of the queue database file.
func (s *Store) Path() string {
	return s.path
}

// Enqueue inserts a new job unless one with the same idempotency key is
// already queued or active, in which case the existing job is returned
// untouched. The returned bool reports whether a new job was created.
func (s *Store) Enqueue(ctx context.Context, contentID string, payload Payload, rulesVersion string) (*Job, bool, error) {
	if err := payload.Validate(); err != nil {
		return nil, false, fmt.Errorf("validate payload: %w", err)
	}

	contentHash := payload.SubmissionHash()
	key := IdempotencyKey(contentID, contentHash, rulesVersion)

	if existing, err := s.activeByKey(ctx, key); err != nil {
		return nil, false, err
	} else if existing != nil {
		return existing, false, nil
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, false, fmt.Errorf("marshal payload: %w", err)
	}

	now := time.Now().UTC()
	timestamp := now.Format(timeLayout)
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (
            content_id, kind, payload_json, content_hash, rules_version,
            idempotency_key, status, attempts, max_attempts, next_attempt_at,
            progress_percent, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?, 0.0, ?, ?)`,
		contentID,
		payload.Kind,
		string(encoded),
		contentHash,
		rulesVersion,
		key,
		StatusPending,
		s.maxAttempts,
		timestamp,
		timestamp,
		timestamp,
	)
	if err != nil {
		// A concurrent duplicate submission loses the unique-index race;
		// collapse onto the winner.
		if existing, lookupErr := s.activeByKey(ctx, key); lookupErr == nil && existing != nil {
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("insert job: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, false, fmt.Errorf("last insert id: %w", err)
	}
	job, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return job, true, nil
}

func (s *Store) activeByKey(ctx context.Context, key string) (*Job, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE idempotency_key = ? AND status IN (?, ?) ORDER BY id LIMIT 1`,
		key,
		StatusPending,
		StatusProcessing,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active job: %w", err)
	}
	return job, nil
}

// GetByID fetches a job by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// GetByContentID returns the most recent job for a content item.
func (s *Store) GetByContentID(ctx context.Context, contentID string) (*Job, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE content_id = ? ORDER BY id DESC LIMIT 1`,
		contentID,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job by content: %w", err)
	}
	return job, nil
}

// Claim atomically transitions the oldest eligible pending job to processing
// and returns it. Exactly one caller wins a given job; nil means no job is
// currently eligible.
func (s *Store) Claim(ctx context.Context) (*Job, error) {
	now := time.Now().UTC()
	timestamp := now.Format(timeLayout)
	row := s.db.QueryRowContext(
		ctx,
		`UPDATE jobs
         SET status = ?, attempts = attempts + 1, last_heartbeat = ?,
             progress_percent = 0, progress_message = NULL, error_message = NULL,
             updated_at = ?
         WHERE id = (
             SELECT id FROM jobs
             WHERE status = ? AND next_attempt_at <= ?
             ORDER BY created_at, id LIMIT 1
         )
         RETURNING `+jobColumns,
		StatusProcessing,
		timestamp,
		timestamp,
		StatusPending,
		timestamp,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	return job, nil
}

// UpdateProgress records fractional progress for an in-flight job.
func (s *Store) UpdateProgress(ctx context.Context, id int64, percent float64, message string) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs SET progress_percent = ?, progress_message = ?, updated_at = ? WHERE id = ?`,
		percent,
		nullableString(message),
		time.Now().UTC().Format(timeLayout),
		id,
	)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

// Heartbeat updates the last heartbeat timestamp for an in-flight job.
func (s *Store) Heartbeat(ctx context.Context, id int64) error {
	now := time.Now().UTC().Format(timeLayout)
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs SET last_heartbeat = ?, updated_at = ? WHERE id = ? AND status = ?`,
		now,
		now,
		id,
		StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// ReclaimStale returns processing jobs whose heartbeats expired back to
// pending so another worker can claim them.
func (s *Store) ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs
         SET status = ?, progress_message = 'Reclaimed from stale processing',
             progress_percent = 0, last_heartbeat = NULL, updated_at = ?
         WHERE status = ? AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`,
		StatusPending,
		time.Now().UTC().Format(timeLayout),
		StatusProcessing,
		cutoff.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale jobs: %w", err)
	}
	return res.RowsAffected()
}

// MarkCompleted transitions a job to its terminal completed state.
func (s *Store) MarkCompleted(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs
         SET status = ?, progress_percent = 100, progress_message = 'Analysis complete',
             error_message = NULL, last_heartbeat = NULL, updated_at = ?
         WHERE id = ?`,
		StatusCompleted,
		time.Now().UTC().Format(timeLayout),
		id,
	)
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return nil
}

// Release returns a processing job to pending without consuming the
// attempt its claim charged, so an interrupted run can be picked up again
// immediately.
func (s *Store) Release(ctx context.Context, id int64) error {
	now := time.Now().UTC().Format(timeLayout)
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs
         SET status = ?, attempts = MAX(attempts - 1, 0),
             progress_percent = 0, progress_message = 'Interrupted; requeued',
             next_attempt_at = ?, last_heartbeat = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusPending,
		now,
		now,
		id,
		StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("release job: %w", err)
	}
	return nil
}

// MarkFailed records a handler failure. Jobs with remaining attempts are
// requeued with exponential backoff; exhausted jobs become terminal failed.
// The returned bool reports whether the job will be retried.
func (s *Store) MarkFailed(ctx context.Context, job *Job, cause error) (bool, error) {
	if job == nil {
		return false, errors.New("job is nil")
	}
	message := ""
	if cause != nil {
		message = cause.Error()
	}
	now := time.Now().UTC()

	if job.Attempts >= job.MaxAttempts {
		_, err := s.db.ExecContext(
			ctx,
			`UPDATE jobs
             SET status = ?, error_message = ?, progress_percent = 0,
                 progress_message = ?, last_heartbeat = NULL, updated_at = ?
             WHERE id = ?`,
			StatusFailed,
			nullableString(message),
			nullableString(message),
			now.Format(timeLayout),
			job.ID,
		)
		if err != nil {
			return false, fmt.Errorf("mark failed: %w", err)
		}
		return false, nil
	}

	delay := s.backoffDelay(job.Attempts)
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs
         SET status = ?, error_message = ?, progress_percent = 0,
             progress_message = 'Retry scheduled', next_attempt_at = ?,
             last_heartbeat = NULL, updated_at = ?
         WHERE id = ?`,
		StatusPending,
		nullableString(message),
		now.Add(delay).Format(timeLayout),
		now.Format(timeLayout),
		job.ID,
	)
	if err != nil {
		return false, fmt.Errorf("requeue job: %w", err)
	}
	return true, nil
}

func (s *Store) backoffDelay(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	factor := s.backoffFactor
	if factor < 1 {
		factor = 1
	}
	delay := float64(s.backoffBase) * math.Pow(factor, float64(attempts-1))
	return time.Duration(delay)
}

// Stats returns queue counts grouped into the externally observable buckets.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return Stats{}, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	var stats Stats
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Stats{}, err
		}
		switch status {
		case StatusPending:
			stats.Waiting += count
		case StatusProcessing:
			stats.Active += count
		case StatusCompleted:
			stats.Completed += count
		case StatusFailed:
			stats.Failed += count
		}
	}
	return stats, rows.Err()
}

// List returns jobs filtered by status set (or all jobs when no status is provided).
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + jobColumns + ` FROM jobs`
	orderClause := ` ORDER BY created_at, id`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// RetryFailed moves terminally failed jobs back to pending with a fresh
// attempt budget.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	now := time.Now().UTC().Format(timeLayout)
	if len(ids) == 0 {
		res, err := s.db.ExecContext(
			ctx,
			`UPDATE jobs
            SET status = ?, attempts = 0, next_attempt_at = ?, progress_percent = 0,
                progress_message = 'Retry requested', error_message = NULL, updated_at = ?
            WHERE status = ?`,
			StatusPending,
			now,
			now,
			StatusFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed jobs: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+3)
	args = append(args, StatusPending, now, now)
	for _, id := range ids {
		args = append(args, id)
	}
	query := `UPDATE jobs
        SET status = ?, attempts = 0, next_attempt_at = ?, progress_percent = 0,
            progress_message = 'Retry requested', error_message = NULL, updated_at = ?
        WHERE id IN (` + placeholders + `) AND status = '` + string(StatusFailed) + `'`
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry selected jobs: %w", err)
	}
	return res.RowsAffected()
}

// ClearCompleted removes only completed jobs from the queue.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE status = ?`, StatusCompleted)
	if err != nil {
		return 0, fmt.Errorf("clear completed: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes all jobs from the queue.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs`)
	if err != nil {
		return 0, fmt.Errorf("clear queue: %w", err)
	}
	return res.RowsAffected()
}
