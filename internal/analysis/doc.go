// Package analysis runs the multi-modal content pipeline for claimed jobs.
//
// The orchestrator sequences explicit named stages. Video mode:
// resolve -> extract -> transcribe -> ocr -> vision -> score. Static mode
// skips resolution and extraction and scores the caption text, with an
// optional OCR pass over the cover image.
//
// Failure policy per stage: resolution, extraction, transcription, vision,
// and scoring errors fail the job attempt (the queue retries with backoff);
// OCR is soft, degrading the result instead of failing it. Every failure is
// persisted as a failed status before the error is returned so the result
// store and the queue agree on what happened.
package analysis
