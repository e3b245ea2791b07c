// Package resolve converts share references into direct streamable URLs.
//
// It tries the paid primary resolver (an Apify actor run) first, guarded by
// a failure-count circuit breaker, and degrades to a free fallback endpoint
// while the breaker is open or the primary fails. When both paths fail the
// caller receives ErrUnresolvable and the job fails for this attempt.
package resolve
