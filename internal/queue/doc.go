// Package queue persists analysis jobs in SQLite and provides the atomic
// claim, retry, and idempotency semantics the worker pool depends on.
//
// Submissions are deduplicated by an idempotency key derived from the
// content identifier, the submitted content hash, and the rules version; at
// most one non-terminal job exists per key. Failed handlers requeue with
// exponential backoff until the attempt budget is exhausted.
package queue
