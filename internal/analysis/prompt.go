package analysis

import (
	"fmt"
	"strings"

	"github.com/jcrowe85/tiktok-analytics-sub000/internal/queue"
)

const scoringSystemPrompt = `You are a short-form video content analyst. Grade the content against six categories and respond with JSON only, no prose, in exactly this shape:

{
  "scores": {
    "hook_strength": <number 0-10>,
    "depth": <number 0-10>,
    "clarity": <number 0-10>,
    "pacing": <number 0-10>,
    "call_to_action": <number 0-10>,
    "brand_fit": <number 0-10>
  },
  "aggregate": <number 0-100>,
  "findings": {
    "hook_strength": "<one sentence>",
    "depth": "<one sentence>",
    "clarity": "<one sentence>",
    "pacing": "<one sentence>",
    "call_to_action": "<one sentence>",
    "brand_fit": "<one sentence>"
  },
  "suggestions": ["<most impactful fix first>", "..."],
  "detected_language": "<ISO 639-1 code of the spoken/written language>"
}

Hook strength judges the first three seconds. Depth judges substance over filler. Clarity judges how easy the message is to follow. Pacing judges rhythm and dead air. Call to action judges whether the viewer is told what to do next. Brand fit judges consistency of voice and topic.`

const visionSystemPrompt = `You are a visual content classifier for short-form video keyframes. Respond with JSON only, no prose, in exactly this shape:

{
  "labels": ["<object or scene label>", "..."],
  "style_tags": ["<production style tag such as talking-head, screen-recording, b-roll, text-overlay>", "..."],
  "visual_scores": {
    "composition": <number 0-10>,
    "lighting": <number 0-10>,
    "text_legibility": <number 0-10>
  }
}

Base every label on what is actually visible across the frames.`

func buildScoringUserPrompt(input ScoreInput) string {
	var b strings.Builder

	if caption := strings.TrimSpace(input.Caption); caption != "" {
		fmt.Fprintf(&b, "Caption:\n%s\n\n", caption)
	}
	if transcript := strings.TrimSpace(input.Transcript); transcript != "" {
		fmt.Fprintf(&b, "Transcript:\n%s\n\n", transcript)
	} else {
		b.WriteString("Transcript: (none; silent or music-only clip)\n\n")
	}
	if len(input.OCRText) > 0 {
		b.WriteString("On-screen text:\n")
		for _, line := range input.OCRText {
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				fmt.Fprintf(&b, "- %s\n", trimmed)
			}
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Engagement: views=%d likes=%d comments=%d shares=%d\n",
		input.Engagement.Views, input.Engagement.Likes, input.Engagement.Comments, input.Engagement.Shares)

	return b.String()
}

// ScoreInput is everything the scoring stage sees.
type ScoreInput struct {
	Caption    string
	Transcript string
	OCRText    []string
	Engagement queue.Engagement
}
