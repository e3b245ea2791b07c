package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jcrowe85/tiktok-analytics-sub000/internal/config"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/queue"
)

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

var _ Store = (*SQLiteStore)(nil)

// sqliteDSN carries the pragmas in the DSN so every pooled connection gets
// them, not only the one that happened to run an explicit PRAGMA.
func sqliteDSN(path string) string {
	return path + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Open initializes or connects to the results database and applies the schema.
func Open(cfg *config.Config) (*SQLiteStore, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "results.db")
	db, err := sql.Open("sqlite", sqliteDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	store := &SQLiteStore{db: db, path: dbPath}
	if err := store.applySchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the location of the results database file.
func (s *SQLiteStore) Path() string {
	return s.path
}

const schemaStatements = `
CREATE TABLE IF NOT EXISTS content_items (
    id TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending',
    caption TEXT,
    author TEXT,
    share_url TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS analysis_results (
    content_id TEXT PRIMARY KEY REFERENCES content_items(id),
    status TEXT NOT NULL,
    aggregate_score REAL NOT NULL DEFAULT 0,
    category_scores TEXT NOT NULL DEFAULT '{}',
    visual_scores TEXT NOT NULL DEFAULT '{}',
    classifiers TEXT NOT NULL DEFAULT '{}',
    findings TEXT NOT NULL DEFAULT '{}',
    suggestions TEXT NOT NULL DEFAULT '[]',
    transcript TEXT NOT NULL DEFAULT '',
    ocr_text TEXT NOT NULL DEFAULT '[]',
    keyframes TEXT NOT NULL DEFAULT '[]',
    meta TEXT NOT NULL DEFAULT '{}',
    updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_content_items_status
    ON content_items(status);
`

func (s *SQLiteStore) applySchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaStatements); err != nil {
		return fmt.Errorf("apply results schema: %w", err)
	}
	return nil
}

// EnsureContentItem inserts the item if absent. Metadata on an existing row
// is left untouched so a rerun cannot clobber earlier descriptive fields.
func (s *SQLiteStore) EnsureContentItem(ctx context.Context, id string, meta ItemMetadata) error {
	if id == "" {
		return errors.New("ensure content item: empty id")
	}
	now := time.Now().UTC().Format(timeLayout)
	_, err := s.db.ExecContext(ctx, `
INSERT INTO content_items (id, kind, status, caption, author, share_url, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO NOTHING`,
		id, string(meta.Kind), string(queue.StatusPending), meta.Caption, meta.Author, meta.ShareURL, now, now,
	)
	if err != nil {
		return fmt.Errorf("ensure content item %s: %w", id, err)
	}
	return nil
}

// SetStatus updates the content item's pipeline status.
func (s *SQLiteStore) SetStatus(ctx context.Context, id string, status queue.Status) error {
	now := time.Now().UTC().Format(timeLayout)
	result, err := s.db.ExecContext(ctx,
		`UPDATE content_items SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), now, id,
	)
	if err != nil {
		return fmt.Errorf("set status for %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set status for %s: rows affected: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("set status for %s: content item not found", id)
	}
	return nil
}

// UpsertResult replaces the stored result wholesale. No field from a prior
// run survives.
func (s *SQLiteStore) UpsertResult(ctx context.Context, result *Result) error {
	if result == nil || result.ContentID == "" {
		return errors.New("upsert result: missing content id")
	}

	categoryScores, err := encodeJSON(result.CategoryScores)
	if err != nil {
		return fmt.Errorf("upsert result: encode category scores: %w", err)
	}
	visualScores, err := encodeJSON(result.VisualScores)
	if err != nil {
		return fmt.Errorf("upsert result: encode visual scores: %w", err)
	}
	classifiers, err := encodeJSON(result.Classifiers)
	if err != nil {
		return fmt.Errorf("upsert result: encode classifiers: %w", err)
	}
	findings, err := encodeJSON(result.Findings)
	if err != nil {
		return fmt.Errorf("upsert result: encode findings: %w", err)
	}
	suggestions, err := encodeJSON(result.Suggestions)
	if err != nil {
		return fmt.Errorf("upsert result: encode suggestions: %w", err)
	}
	ocrText, err := encodeJSON(result.OCRText)
	if err != nil {
		return fmt.Errorf("upsert result: encode ocr text: %w", err)
	}
	keyframes, err := encodeJSON(result.Keyframes)
	if err != nil {
		return fmt.Errorf("upsert result: encode keyframes: %w", err)
	}
	meta, err := encodeJSON(result.Meta)
	if err != nil {
		return fmt.Errorf("upsert result: encode meta: %w", err)
	}

	now := time.Now().UTC().Format(timeLayout)
	_, err = s.db.ExecContext(ctx, `
INSERT INTO analysis_results (
    content_id, status, aggregate_score, category_scores, visual_scores,
    classifiers, findings, suggestions, transcript, ocr_text, keyframes,
    meta, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(content_id) DO UPDATE SET
    status = excluded.status,
    aggregate_score = excluded.aggregate_score,
    category_scores = excluded.category_scores,
    visual_scores = excluded.visual_scores,
    classifiers = excluded.classifiers,
    findings = excluded.findings,
    suggestions = excluded.suggestions,
    transcript = excluded.transcript,
    ocr_text = excluded.ocr_text,
    keyframes = excluded.keyframes,
    meta = excluded.meta,
    updated_at = excluded.updated_at`,
		result.ContentID, string(result.Status), result.AggregateScore,
		categoryScores, visualScores, classifiers, findings, suggestions,
		result.Transcript, ocrText, keyframes, meta, now,
	)
	if err != nil {
		return fmt.Errorf("upsert result for %s: %w", result.ContentID, err)
	}
	return nil
}

// GetResult returns the stored result, or nil when none exists.
func (s *SQLiteStore) GetResult(ctx context.Context, id string) (*Result, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT content_id, status, aggregate_score, category_scores, visual_scores,
       classifiers, findings, suggestions, transcript, ocr_text, keyframes,
       meta, updated_at
FROM analysis_results WHERE content_id = ?`, id)

	var (
		result       Result
		status       string
		categoryRaw  string
		visualRaw    string
		classRaw     string
		findingsRaw  string
		suggestRaw   string
		ocrRaw       string
		keyframesRaw string
		metaRaw      string
		updatedAt    string
	)
	err := row.Scan(
		&result.ContentID, &status, &result.AggregateScore, &categoryRaw,
		&visualRaw, &classRaw, &findingsRaw, &suggestRaw, &result.Transcript,
		&ocrRaw, &keyframesRaw, &metaRaw, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get result for %s: %w", id, err)
	}

	result.Status = queue.Status(status)
	if err := decodeJSONInto(categoryRaw, &result.CategoryScores); err != nil {
		return nil, fmt.Errorf("get result for %s: category scores: %w", id, err)
	}
	if err := decodeJSONInto(visualRaw, &result.VisualScores); err != nil {
		return nil, fmt.Errorf("get result for %s: visual scores: %w", id, err)
	}
	if err := decodeJSONInto(classRaw, &result.Classifiers); err != nil {
		return nil, fmt.Errorf("get result for %s: classifiers: %w", id, err)
	}
	if err := decodeJSONInto(findingsRaw, &result.Findings); err != nil {
		return nil, fmt.Errorf("get result for %s: findings: %w", id, err)
	}
	if err := decodeJSONInto(suggestRaw, &result.Suggestions); err != nil {
		return nil, fmt.Errorf("get result for %s: suggestions: %w", id, err)
	}
	if err := decodeJSONInto(ocrRaw, &result.OCRText); err != nil {
		return nil, fmt.Errorf("get result for %s: ocr text: %w", id, err)
	}
	if err := decodeJSONInto(keyframesRaw, &result.Keyframes); err != nil {
		return nil, fmt.Errorf("get result for %s: keyframes: %w", id, err)
	}
	if err := decodeJSONInto(metaRaw, &result.Meta); err != nil {
		return nil, fmt.Errorf("get result for %s: meta: %w", id, err)
	}
	if parsed, parseErr := time.Parse(time.RFC3339Nano, updatedAt); parseErr == nil {
		result.UpdatedAt = parsed
	}
	return &result, nil
}

// GetContentItem returns the stored content item, or nil when absent.
func (s *SQLiteStore) GetContentItem(ctx context.Context, id string) (*ContentItem, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, kind, status, caption, author, share_url, created_at, updated_at
FROM content_items WHERE id = ?`, id)

	var (
		item      ContentItem
		kind      string
		status    string
		caption   sql.NullString
		author    sql.NullString
		shareURL  sql.NullString
		createdAt string
		updatedAt string
	)
	err := row.Scan(&item.ID, &kind, &status, &caption, &author, &shareURL, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get content item %s: %w", id, err)
	}

	item.Kind = queue.Kind(kind)
	item.Status = queue.Status(status)
	item.Caption = caption.String
	item.Author = author.String
	item.ShareURL = shareURL.String
	if parsed, parseErr := time.Parse(time.RFC3339Nano, createdAt); parseErr == nil {
		item.CreatedAt = parsed
	}
	if parsed, parseErr := time.Parse(time.RFC3339Nano, updatedAt); parseErr == nil {
		item.UpdatedAt = parsed
	}
	return &item, nil
}

func encodeJSON(value any) (string, error) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func decodeJSONInto(raw string, target any) error {
	if raw == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw), target)
}
