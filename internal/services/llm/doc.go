// Package llm provides an OpenRouter chat client for LLM-backed analysis.
//
// This package is used by:
//   - Scoring stage: grade content against the fixed rubric schema
//   - Vision stage: label keyframes and extract visual signals
//
// # Configuration
//
// Requires api_key, model, and optionally base_url, referer, title, timeout.
// A separate vision model may be configured for multimodal requests.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.CompleteJSON: send system/user prompts, receive JSON response.
// Client.CompleteVisionJSON: same, with keyframe images inlined as data URLs.
// Client.HealthCheck: verify API key and model availability.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors and network timeouts with
// exponential backoff (base 1s, max 10s, up to 5 attempts by default).
// Context cancellation aborts retries immediately.
package llm
