package testsupport

import (
	"context"
	"testing"

	"github.com/jcrowe85/tiktok-analytics-sub000/internal/config"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/queue"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/store"
)

// MustOpenQueue opens a queue.Store for tests and registers cleanup.
func MustOpenQueue(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	qs, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		qs.Close()
	})
	return qs
}

// MustOpenResults opens a result store for tests and registers cleanup.
func MustOpenResults(t testing.TB, cfg *config.Config) *store.SQLiteStore {
	t.Helper()

	rs, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		rs.Close()
	})
	return rs
}

// EnqueueVideo creates a video-mode job for tests using the provided store.
func EnqueueVideo(t testing.TB, qs *queue.Store, contentID, shareURL string) *queue.Job {
	t.Helper()

	payload := queue.Payload{
		Kind:  queue.KindVideo,
		Video: &queue.VideoPayload{ShareURL: shareURL},
	}
	job, _, err := qs.Enqueue(context.Background(), contentID, payload, "v1")
	if err != nil {
		t.Fatalf("queue.Enqueue: %v", err)
	}
	return job
}

// EnqueueStatic creates a static-mode job for tests using the provided store.
func EnqueueStatic(t testing.TB, qs *queue.Store, contentID, caption string) *queue.Job {
	t.Helper()

	payload := queue.Payload{
		Kind:   queue.KindStatic,
		Static: &queue.StaticPayload{Caption: caption},
	}
	job, _, err := qs.Enqueue(context.Background(), contentID, payload, "v1")
	if err != nil {
		t.Fatalf("queue.Enqueue: %v", err)
	}
	return job
}
