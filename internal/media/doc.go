// Package media extracts analysis inputs from streamable video URLs.
//
// The extractor never downloads the full source. ffprobe inspects the remote
// stream for duration, resolution, and stream presence; ffmpeg then pulls a
// mono 16 kHz WAV audio track and a small set of keyframe stills directly
// from the URL. Everything lands in a per-job temp directory that the caller
// releases through Extraction.Cleanup, on success and failure alike.
package media
