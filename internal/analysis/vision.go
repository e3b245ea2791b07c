package analysis

import (
	"context"
	"fmt"

	"github.com/jcrowe85/tiktok-analytics-sub000/internal/services/llm"
)

// maxVisionFrames bounds payload size per vision request.
const maxVisionFrames = 4

// VisionResult is the output of visual classification over keyframes.
type VisionResult struct {
	Labels       []string
	StyleTags    []string
	VisualScores map[string]float64
}

// VisionAnalyzer classifies keyframe stills with a multimodal LLM.
type VisionAnalyzer struct {
	client *llm.Client
}

// NewVisionAnalyzer constructs a vision analyzer around the supplied client.
func NewVisionAnalyzer(client *llm.Client) *VisionAnalyzer {
	return &VisionAnalyzer{client: client}
}

// Model reports the vision model identifier for result metadata.
func (v *VisionAnalyzer) Model() string {
	return v.client.Model()
}

// Analyze labels the supplied keyframes. At most maxVisionFrames are sent,
// sampled evenly across the clip. No frames yields an empty result without a
// network call.
func (v *VisionAnalyzer) Analyze(ctx context.Context, keyframes []string) (VisionResult, error) {
	var empty VisionResult
	if len(keyframes) == 0 {
		return empty, nil
	}

	frames := sampleFrames(keyframes, maxVisionFrames)
	content, err := v.client.CompleteVisionJSON(ctx, visionSystemPrompt,
		fmt.Sprintf("Classify these %d keyframes from one short-form video.", len(frames)), frames)
	if err != nil {
		return empty, fmt.Errorf("vision: %w", err)
	}

	var parsed struct {
		Labels       []string           `json:"labels"`
		StyleTags    []string           `json:"style_tags"`
		VisualScores map[string]float64 `json:"visual_scores"`
	}
	if err := llm.DecodeLLMJSON(content, &parsed); err != nil {
		return empty, fmt.Errorf("vision: parse payload: %w", err)
	}

	result := VisionResult{
		Labels:       parsed.Labels,
		StyleTags:    parsed.StyleTags,
		VisualScores: make(map[string]float64, len(parsed.VisualScores)),
	}
	for name, score := range parsed.VisualScores {
		result.VisualScores[name] = clamp(score, 0, 10)
	}
	return result, nil
}

// sampleFrames picks up to limit frames spread evenly across the slice,
// always including the first frame.
func sampleFrames(frames []string, limit int) []string {
	if len(frames) <= limit {
		return frames
	}
	sampled := make([]string, 0, limit)
	step := float64(len(frames)-1) / float64(limit-1)
	for i := 0; i < limit; i++ {
		sampled = append(sampled, frames[int(float64(i)*step+0.5)])
	}
	return sampled
}
