package queue

import (
	"context"
	"fmt"
)

const schemaStatements = `
CREATE TABLE IF NOT EXISTS jobs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    content_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    payload_json TEXT NOT NULL,
    content_hash TEXT NOT NULL,
    rules_version TEXT NOT NULL,
    idempotency_key TEXT NOT NULL,
    status TEXT NOT NULL,
    attempts INTEGER NOT NULL DEFAULT 0,
    max_attempts INTEGER NOT NULL DEFAULT 3,
    next_attempt_at TEXT NOT NULL,
    progress_percent REAL NOT NULL DEFAULT 0,
    progress_message TEXT,
    error_message TEXT,
    last_heartbeat TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_jobs_active_key
    ON jobs(idempotency_key)
    WHERE status IN ('pending', 'processing');

CREATE INDEX IF NOT EXISTS idx_jobs_status_next_attempt
    ON jobs(status, next_attempt_at);

CREATE INDEX IF NOT EXISTS idx_jobs_content
    ON jobs(content_id);
`

func (s *Store) applySchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaStatements); err != nil {
		return fmt.Errorf("apply queue schema: %w", err)
	}
	return nil
}
