package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/jcrowe85/tiktok-analytics-sub000/internal/queue"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/store"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/testsupport"
)

func TestEnsureContentItemIsInsertIfAbsent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	rs := testsupport.MustOpenResults(t, cfg)
	ctx := context.Background()

	meta := store.ItemMetadata{Kind: queue.KindVideo, Caption: "first caption", Author: "creator"}
	if err := rs.EnsureContentItem(ctx, "item-1", meta); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	// A second ensure with different metadata leaves the original intact.
	altered := store.ItemMetadata{Kind: queue.KindStatic, Caption: "second caption"}
	if err := rs.EnsureContentItem(ctx, "item-1", altered); err != nil {
		t.Fatalf("ensure again: %v", err)
	}

	item, err := rs.GetContentItem(ctx, "item-1")
	if err != nil {
		t.Fatalf("get content item: %v", err)
	}
	if item == nil {
		t.Fatal("expected content item")
	}
	if item.Caption != "first caption" || item.Kind != queue.KindVideo {
		t.Fatalf("metadata was overwritten: %+v", item)
	}
	if item.Status != queue.StatusPending {
		t.Fatalf("expected pending status, got %s", item.Status)
	}
}

func TestSetStatusRequiresExistingItem(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	rs := testsupport.MustOpenResults(t, cfg)
	ctx := context.Background()

	if err := rs.SetStatus(ctx, "missing", queue.StatusProcessing); err == nil {
		t.Fatal("expected error for unknown content item")
	}

	if err := rs.EnsureContentItem(ctx, "item-1", store.ItemMetadata{Kind: queue.KindVideo}); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := rs.SetStatus(ctx, "item-1", queue.StatusProcessing); err != nil {
		t.Fatalf("set status: %v", err)
	}

	item, err := rs.GetContentItem(ctx, "item-1")
	if err != nil {
		t.Fatalf("get content item: %v", err)
	}
	if item.Status != queue.StatusProcessing {
		t.Fatalf("expected processing, got %s", item.Status)
	}
}

func fullResult(contentID string, aggregate float64) *store.Result {
	return &store.Result{
		ContentID:      contentID,
		Status:         queue.StatusCompleted,
		AggregateScore: aggregate,
		CategoryScores: map[string]float64{
			"hook_strength":  7,
			"depth":          6,
			"clarity":        8,
			"pacing":         7,
			"call_to_action": 5,
			"brand_fit":      6,
		},
		VisualScores: map[string]float64{"composition": 7},
		Classifiers:  map[string][]string{"style": {"talking-head"}},
		Findings:     map[string]string{"hook_strength": "strong opening question"},
		Suggestions:  []string{"add a call to action", "tighten the middle"},
		Transcript:   "hello and welcome",
		OCRText:      []string{"SALE ENDS SOON"},
		Keyframes:    []string{"frame_000.jpg"},
		Meta: store.ResultMeta{
			Engines:          map[string]string{"scoring": "demo-model"},
			ContentHash:      "abc123",
			DetectedLanguage: "en",
			RulesVersion:     "v1",
			ProcessedAt:      time.Now().UTC(),
		},
	}
}

func TestUpsertResultRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	rs := testsupport.MustOpenResults(t, cfg)
	ctx := context.Background()

	if err := rs.EnsureContentItem(ctx, "item-1", store.ItemMetadata{Kind: queue.KindVideo}); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := rs.UpsertResult(ctx, fullResult("item-1", 72)); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := rs.GetResult(ctx, "item-1")
	if err != nil {
		t.Fatalf("get result: %v", err)
	}
	if got == nil {
		t.Fatal("expected result")
	}
	if got.AggregateScore != 72 {
		t.Fatalf("expected aggregate 72, got %v", got.AggregateScore)
	}
	if got.CategoryScores["hook_strength"] != 7 {
		t.Fatalf("category scores not preserved: %+v", got.CategoryScores)
	}
	if len(got.Suggestions) != 2 || got.Suggestions[0] != "add a call to action" {
		t.Fatalf("suggestion order not preserved: %v", got.Suggestions)
	}
	if got.Meta.DetectedLanguage != "en" || got.Meta.ContentHash != "abc123" {
		t.Fatalf("meta not preserved: %+v", got.Meta)
	}
}

func TestUpsertResultRerunFullyReplaces(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	rs := testsupport.MustOpenResults(t, cfg)
	ctx := context.Background()

	if err := rs.EnsureContentItem(ctx, "item-1", store.ItemMetadata{Kind: queue.KindVideo}); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := rs.UpsertResult(ctx, fullResult("item-1", 72)); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	rerun := &store.Result{
		ContentID:      "item-1",
		Status:         queue.StatusCompleted,
		AggregateScore: 40,
		CategoryScores: map[string]float64{"hook_strength": 3},
		Transcript:     "different transcript",
		Meta:           store.ResultMeta{ContentHash: "def456", RulesVersion: "v2"},
	}
	if err := rs.UpsertResult(ctx, rerun); err != nil {
		t.Fatalf("rerun upsert: %v", err)
	}

	got, err := rs.GetResult(ctx, "item-1")
	if err != nil {
		t.Fatalf("get result: %v", err)
	}
	if got.AggregateScore != 40 {
		t.Fatalf("expected aggregate 40, got %v", got.AggregateScore)
	}
	if len(got.Suggestions) != 0 {
		t.Fatalf("stale suggestions survived rerun: %v", got.Suggestions)
	}
	if len(got.OCRText) != 0 || len(got.Keyframes) != 0 {
		t.Fatalf("stale artifacts survived rerun: %+v", got)
	}
	if got.Meta.ContentHash != "def456" {
		t.Fatalf("stale meta survived rerun: %+v", got.Meta)
	}
	if got.Transcript != "different transcript" {
		t.Fatalf("transcript not replaced: %q", got.Transcript)
	}
}

func TestGetResultMissingReturnsNil(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	rs := testsupport.MustOpenResults(t, cfg)

	got, err := rs.GetResult(context.Background(), "missing")
	if err != nil {
		t.Fatalf("get result: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil result, got %+v", got)
	}
}
