package resolve_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jcrowe85/tiktok-analytics-sub000/internal/config"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/resolve"
)

func failingPrimary(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "upstream down", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)
	return server
}

func workingFallback(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"code": 0,
			"data": map[string]any{
				"play":          "https://cdn.example/video.mp4",
				"title":         "demo caption",
				"cover":         "https://cdn.example/cover.jpg",
				"duration":      12.5,
				"play_count":    int64(100),
				"digg_count":    int64(10),
				"comment_count": int64(2),
				"share_count":   int64(1),
				"author":        map[string]any{"nickname": "creator"},
			},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func resolverConfig(primaryURL, fallbackURL string) config.Resolver {
	return config.Resolver{
		ApifyToken:             "test-token",
		ApifyActorID:           "acme~scraper",
		ApifyBaseURL:           primaryURL,
		FallbackBaseURL:        fallbackURL,
		BreakerThreshold:       3,
		BreakerCooldownSeconds: 300,
		RequestTimeoutSeconds:  5,
		PollIntervalSeconds:    1,
	}
}

func TestResolveFallsBackWhenPrimaryFails(t *testing.T) {
	var primaryHits, fallbackHits atomic.Int64
	primary := failingPrimary(t, &primaryHits)
	fallback := workingFallback(t, &fallbackHits)

	svc := resolve.NewService(resolverConfig(primary.URL, fallback.URL), nil, nil)

	resolution, err := svc.Resolve(context.Background(), "https://short.example/v/abc")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolution.Source != "fallback" {
		t.Fatalf("expected fallback source, got %q", resolution.Source)
	}
	if resolution.VideoURL != "https://cdn.example/video.mp4" {
		t.Fatalf("unexpected video url: %q", resolution.VideoURL)
	}
	if resolution.Meta.Author != "creator" || resolution.Meta.Views != 100 {
		t.Fatalf("unexpected metadata: %+v", resolution.Meta)
	}
	if primaryHits.Load() == 0 {
		t.Fatal("primary should have been attempted")
	}
	if fallbackHits.Load() != 1 {
		t.Fatalf("expected exactly one fallback call, got %d", fallbackHits.Load())
	}
}

func TestResolveSkipsPrimaryWhileBreakerOpen(t *testing.T) {
	var primaryHits, fallbackHits atomic.Int64
	primary := failingPrimary(t, &primaryHits)
	fallback := workingFallback(t, &fallbackHits)

	current := time.Unix(1_700_000_000, 0)
	breaker := resolve.NewBreaker(3, 5*time.Minute).WithClock(func() time.Time { return current })
	svc := resolve.NewService(resolverConfig(primary.URL, fallback.URL), breaker, nil)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := svc.Resolve(ctx, "https://short.example/v/abc"); err != nil {
			t.Fatalf("resolve %d: %v", i, err)
		}
	}
	hitsAfterThree := primaryHits.Load()
	if hitsAfterThree == 0 {
		t.Fatal("primary should have been attempted while breaker was closed")
	}

	// Fourth call within the cooldown window must not touch the primary.
	if _, err := svc.Resolve(ctx, "https://short.example/v/abc"); err != nil {
		t.Fatalf("resolve with open breaker: %v", err)
	}
	if primaryHits.Load() != hitsAfterThree {
		t.Fatalf("primary contacted while breaker open: %d -> %d", hitsAfterThree, primaryHits.Load())
	}
	if fallbackHits.Load() != 4 {
		t.Fatalf("expected 4 fallback calls, got %d", fallbackHits.Load())
	}

	// After the cooldown elapses the primary becomes eligible again.
	current = current.Add(5*time.Minute + time.Second)
	if _, err := svc.Resolve(ctx, "https://short.example/v/abc"); err != nil {
		t.Fatalf("resolve after cooldown: %v", err)
	}
	if primaryHits.Load() <= hitsAfterThree {
		t.Fatal("primary should be retried after cooldown elapses")
	}
}

func TestResolveWithoutTokenUsesFallbackOnly(t *testing.T) {
	var primaryHits, fallbackHits atomic.Int64
	primary := failingPrimary(t, &primaryHits)
	fallback := workingFallback(t, &fallbackHits)

	cfg := resolverConfig(primary.URL, fallback.URL)
	cfg.ApifyToken = ""
	svc := resolve.NewService(cfg, nil, nil)

	resolution, err := svc.Resolve(context.Background(), "https://short.example/v/abc")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolution.Source != "fallback" {
		t.Fatalf("expected fallback source, got %q", resolution.Source)
	}
	if primaryHits.Load() != 0 {
		t.Fatalf("primary should never be contacted without a token, got %d hits", primaryHits.Load())
	}
}

func TestResolveRejectsEmptyReference(t *testing.T) {
	svc := resolve.NewService(resolverConfig("http://127.0.0.1:0", "http://127.0.0.1:0"), nil, nil)
	if _, err := svc.Resolve(context.Background(), ""); err == nil {
		t.Fatal("expected validation error for empty share reference")
	}
}

func TestResolveErrUnresolvableWhenBothFail(t *testing.T) {
	var primaryHits atomic.Int64
	primary := failingPrimary(t, &primaryHits)
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	t.Cleanup(broken.Close)

	svc := resolve.NewService(resolverConfig(primary.URL, broken.URL), nil, nil)

	_, err := svc.Resolve(context.Background(), "https://short.example/v/abc")
	if err == nil {
		t.Fatal("expected error when both resolvers fail")
	}
	if !errors.Is(err, resolve.ErrUnresolvable) {
		t.Fatalf("expected unresolvable classification, got %v", err)
	}
}
