// Package language normalizes detected-language identifiers to canonical
// ISO 639-1 codes. Transcription backends report languages inconsistently
// (2-letter, 3-letter, full words); everything stored in results goes
// through Normalize first.
package language
