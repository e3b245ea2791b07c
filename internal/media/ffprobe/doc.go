// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// It works against local files and remote URLs alike, which lets the
// extraction layer probe streamable content without downloading it first.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual audio/video stream properties
//   - Format: container-level metadata (duration, size, bitrate)
//
// Primary entry point:
//   - Inspect: executes ffprobe and returns parsed Result
package ffprobe
