package api_test

import (
	"context"
	"testing"

	"github.com/jcrowe85/tiktok-analytics-sub000/internal/api"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/queue"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/store"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/testsupport"
)

func newService(t *testing.T) (*api.Service, *queue.Store, *store.SQLiteStore) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	qs := testsupport.MustOpenQueue(t, cfg)
	rs := testsupport.MustOpenResults(t, cfg)
	return api.NewService(qs, rs, "v1", nil), qs, rs
}

func videoPayload(url string) queue.Payload {
	return queue.Payload{
		Kind:  queue.KindVideo,
		Video: &queue.VideoPayload{ShareURL: url},
	}
}

func TestSubmitIsIdempotent(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	first, err := svc.Submit(ctx, "item-1", videoPayload("https://short.example/v/abc"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !first.Created {
		t.Fatal("first submission should create a job")
	}

	second, err := svc.Submit(ctx, "item-1", videoPayload("https://short.example/v/abc"))
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if second.Created {
		t.Fatal("duplicate submission must not create a second job")
	}
	if second.Job.ID != first.Job.ID {
		t.Fatalf("expected job %d, got %d", first.Job.ID, second.Job.ID)
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Waiting != 1 {
		t.Fatalf("expected 1 waiting job, got %d", stats.Waiting)
	}
}

func TestSubmitRejectsInvalidPayload(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.Submit(context.Background(), "item-1", queue.Payload{Kind: queue.KindVideo})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if _, err := svc.Submit(context.Background(), "", videoPayload("https://x.example")); err == nil {
		t.Fatal("expected error for empty content id")
	}
}

func TestStatusAggregatesAllLayers(t *testing.T) {
	svc, _, rs := newService(t)
	ctx := context.Background()

	submission, err := svc.Submit(ctx, "item-1", videoPayload("https://short.example/v/abc"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := rs.EnsureContentItem(ctx, "item-1", store.ItemMetadata{Kind: queue.KindVideo}); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	report, err := svc.Status(ctx, "item-1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if report.Item == nil {
		t.Fatal("expected content item in report")
	}
	if report.Job == nil || report.Job.ID != submission.Job.ID {
		t.Fatalf("expected job %d in report, got %+v", submission.Job.ID, report.Job)
	}
	if report.Result != nil {
		t.Fatal("no result should exist yet")
	}
}

func TestStatusUnknownContent(t *testing.T) {
	svc, _, _ := newService(t)

	report, err := svc.Status(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if report.Item != nil || report.Job != nil || report.Result != nil {
		t.Fatalf("expected empty report, got %+v", report)
	}
}
