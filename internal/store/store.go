package store

import (
	"context"

	"github.com/jcrowe85/tiktok-analytics-sub000/internal/queue"
)

// Store persists content items and their analysis results. Semantics are
// last-write-wins: a rerun fully replaces the prior result row.
type Store interface {
	// EnsureContentItem inserts the item if absent. Existing rows keep
	// their metadata.
	EnsureContentItem(ctx context.Context, id string, meta ItemMetadata) error
	// SetStatus updates the content item's pipeline status.
	SetStatus(ctx context.Context, id string, status queue.Status) error
	// UpsertResult replaces the stored result for the content id.
	UpsertResult(ctx context.Context, result *Result) error
	// GetResult returns the stored result, or nil when none exists.
	GetResult(ctx context.Context, id string) (*Result, error)
	// GetContentItem returns the stored content item, or nil when absent.
	GetContentItem(ctx context.Context, id string) (*ContentItem, error)
}
