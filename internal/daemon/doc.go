// Package daemon owns the analyzer process lifecycle: a filesystem lock
// guaranteeing a single instance, the worker pool that drains the job
// queue, and orderly shutdown of both databases.
package daemon
