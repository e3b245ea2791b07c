// Package workers runs the bounded pool that drains the job queue.
//
// Each worker claims at most one job at a time, so the pool size is the hard
// concurrency limit for in-flight analyses. While a job runs, a heartbeat
// goroutine keeps its claim fresh; a background loop reclaims jobs whose
// heartbeats have gone stale so a crashed worker never strands work.
// Handler panics are contained and recorded as job failures.
package workers
