package analysis_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jcrowe85/tiktok-analytics-sub000/internal/analysis"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/queue"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/services/llm"
)

func scoringServer(t *testing.T, response string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"choices": []any{
				map[string]any{
					"message": map[string]any{"content": response},
				},
			},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	t.Cleanup(server.Close)
	return server
}

func scorerFor(server *httptest.Server) *analysis.Scorer {
	client := llm.NewClient(
		llm.Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		llm.WithRetryMaxAttempts(1),
		llm.WithSleeper(func(time.Duration) {}),
	)
	return analysis.NewScorer(client)
}

func sampleInput() analysis.ScoreInput {
	return analysis.ScoreInput{
		Transcript: "welcome back to the channel",
		OCRText:    []string{"FOLLOW FOR MORE"},
		Engagement: queue.Engagement{Views: 1000, Likes: 100, Comments: 10, Shares: 5},
	}
}

func TestScoreValidResponse(t *testing.T) {
	response := `{
		"scores": {"hook_strength": 7, "depth": 6, "clarity": 8, "pacing": 7, "call_to_action": 5, "brand_fit": 6},
		"aggregate": 68,
		"findings": {"hook_strength": "opens with a question"},
		"suggestions": ["add an explicit call to action", "trim the intro"],
		"detected_language": "en"
	}`
	scorer := scorerFor(scoringServer(t, response))

	report, err := scorer.Score(context.Background(), sampleInput())
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if report.Aggregate != 68 {
		t.Fatalf("expected aggregate 68, got %v", report.Aggregate)
	}
	if report.Categories["hook_strength"] != 7 {
		t.Fatalf("unexpected categories %+v", report.Categories)
	}
	if len(report.Suggestions) != 2 || report.Suggestions[0] != "add an explicit call to action" {
		t.Fatalf("suggestion order lost: %v", report.Suggestions)
	}
	if report.DetectedLanguage != "en" {
		t.Fatalf("unexpected language %q", report.DetectedLanguage)
	}
}

func TestScoreClampsOutOfRangeValues(t *testing.T) {
	response := `{
		"scores": {"hook_strength": 14, "depth": -2, "clarity": 8, "pacing": 7, "call_to_action": 5, "brand_fit": 6},
		"aggregate": 150,
		"findings": {},
		"suggestions": []
	}`
	scorer := scorerFor(scoringServer(t, response))

	report, err := scorer.Score(context.Background(), sampleInput())
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if report.Categories["hook_strength"] != 10 {
		t.Fatalf("expected clamp to 10, got %v", report.Categories["hook_strength"])
	}
	if report.Categories["depth"] != 0 {
		t.Fatalf("expected clamp to 0, got %v", report.Categories["depth"])
	}
	if report.Aggregate != 100 {
		t.Fatalf("expected clamp to 100, got %v", report.Aggregate)
	}
}

func TestScoreRejectsMissingCategories(t *testing.T) {
	response := `{
		"scores": {"hook_strength": 7, "clarity": 8},
		"aggregate": 50,
		"findings": {},
		"suggestions": []
	}`
	scorer := scorerFor(scoringServer(t, response))

	_, err := scorer.Score(context.Background(), sampleInput())
	if err == nil {
		t.Fatal("expected rejection for missing categories")
	}
	if !strings.Contains(err.Error(), "missing categories") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestScoreRejectsMissingAggregate(t *testing.T) {
	response := `{
		"scores": {"hook_strength": 7, "depth": 6, "clarity": 8, "pacing": 7, "call_to_action": 5, "brand_fit": 6},
		"findings": {},
		"suggestions": []
	}`
	scorer := scorerFor(scoringServer(t, response))

	if _, err := scorer.Score(context.Background(), sampleInput()); err == nil {
		t.Fatal("expected rejection for missing aggregate")
	}
}

func TestScoreRejectsNonJSONResponse(t *testing.T) {
	scorer := scorerFor(scoringServer(t, "I cannot grade this content."))

	if _, err := scorer.Score(context.Background(), sampleInput()); err == nil {
		t.Fatal("expected rejection for prose response")
	}
}
