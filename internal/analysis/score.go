package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/jcrowe85/tiktok-analytics-sub000/internal/services/llm"
)

// ScoreCategories are the rubric categories every scoring response must
// cover. A response missing any of them is rejected, not patched up.
var ScoreCategories = []string{
	"hook_strength",
	"depth",
	"clarity",
	"pacing",
	"call_to_action",
	"brand_fit",
}

// ScoreReport is the validated output of the scoring stage.
type ScoreReport struct {
	Categories       map[string]float64
	Aggregate        float64
	Findings         map[string]string
	Suggestions      []string
	DetectedLanguage string
}

// Scorer grades content with an LLM against the fixed rubric schema.
type Scorer struct {
	client *llm.Client
}

// NewScorer constructs a scorer around the supplied LLM client.
func NewScorer(client *llm.Client) *Scorer {
	return &Scorer{client: client}
}

// Model reports the scoring model identifier for result metadata.
func (s *Scorer) Model() string {
	return s.client.Model()
}

// Score grades the input and validates the response against the rubric
// schema. Malformed or incomplete responses return an error so the queue's
// retry policy applies.
func (s *Scorer) Score(ctx context.Context, input ScoreInput) (ScoreReport, error) {
	var empty ScoreReport

	content, err := s.client.CompleteJSON(ctx, scoringSystemPrompt, buildScoringUserPrompt(input))
	if err != nil {
		return empty, fmt.Errorf("score: %w", err)
	}

	var parsed struct {
		Scores           map[string]float64 `json:"scores"`
		Aggregate        *float64           `json:"aggregate"`
		Findings         map[string]string  `json:"findings"`
		Suggestions      []string           `json:"suggestions"`
		DetectedLanguage string             `json:"detected_language"`
	}
	if err := llm.DecodeLLMJSON(content, &parsed); err != nil {
		return empty, fmt.Errorf("score: parse payload: %w", err)
	}

	if parsed.Aggregate == nil {
		return empty, fmt.Errorf("score: response missing aggregate")
	}
	var missing []string
	for _, category := range ScoreCategories {
		if _, ok := parsed.Scores[category]; !ok {
			missing = append(missing, category)
		}
	}
	if len(missing) > 0 {
		return empty, fmt.Errorf("score: response missing categories: %s", strings.Join(missing, ", "))
	}

	report := ScoreReport{
		Categories:       make(map[string]float64, len(ScoreCategories)),
		Aggregate:        clamp(*parsed.Aggregate, 0, 100),
		Findings:         make(map[string]string, len(ScoreCategories)),
		Suggestions:      parsed.Suggestions,
		DetectedLanguage: strings.TrimSpace(parsed.DetectedLanguage),
	}
	for _, category := range ScoreCategories {
		report.Categories[category] = clamp(parsed.Scores[category], 0, 10)
		if finding, ok := parsed.Findings[category]; ok {
			report.Findings[category] = strings.TrimSpace(finding)
		}
	}
	return report, nil
}

func clamp(value, low, high float64) float64 {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}
