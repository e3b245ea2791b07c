// Package store persists content items and analysis results.
//
// The layer enforces two rules: a content item row must exist before any
// status or result write (EnsureContentItem is insert-if-absent), and result
// writes are last-write-wins (UpsertResult replaces the row wholesale, so no
// stale field from a prior run survives a completed rerun).
//
// The SQLite implementation keeps its own database file next to the queue
// database and uses the same WAL configuration.
package store
