package media

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jcrowe85/tiktok-analytics-sub000/internal/config"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/logging"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/media/ffprobe"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/services"
)

// Metadata describes the probed stream without downloading it.
type Metadata struct {
	DurationSeconds float64
	Width           int
	Height          int
	FrameRate       float64
	HasAudio        bool
}

// Extraction holds the artifacts pulled from a streamable URL. All paths live
// inside a per-job temp directory and are removed by Cleanup.
type Extraction struct {
	Metadata  Metadata
	AudioPath string
	Keyframes []string

	workDir string
}

// Cleanup removes every extracted artifact. Safe to call more than once and
// on partially populated extractions.
func (e *Extraction) Cleanup() {
	if e == nil || e.workDir == "" {
		return
	}
	os.RemoveAll(e.workDir)
	e.workDir = ""
	e.AudioPath = ""
	e.Keyframes = nil
}

// runner executes an external binary and returns its combined output.
type runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// inspector probes a media path. Matches ffprobe.Inspect.
type inspector func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// Extractor pulls audio tracks and keyframes from streamable URLs using
// ffmpeg, probing with ffprobe first so nothing is copied in full.
type Extractor struct {
	ffmpegBin  string
	ffprobeBin string
	workRoot   string
	logger     *slog.Logger

	run     runner
	inspect inspector
}

// ExtractorOption customizes the extractor.
type ExtractorOption func(*Extractor)

// WithRunner overrides command execution (useful for tests).
func WithRunner(run runner) ExtractorOption {
	return func(x *Extractor) {
		if run != nil {
			x.run = run
		}
	}
}

// WithInspector overrides stream probing (useful for tests).
func WithInspector(inspect inspector) ExtractorOption {
	return func(x *Extractor) {
		if inspect != nil {
			x.inspect = inspect
		}
	}
}

// NewExtractor constructs an extractor rooted at the configured work dir.
func NewExtractor(cfg *config.Config, logger *slog.Logger, opts ...ExtractorOption) *Extractor {
	if logger == nil {
		logger = logging.NewNop()
	}
	extractor := &Extractor{
		ffmpegBin:  cfg.FFmpegBinary(),
		ffprobeBin: cfg.FFprobeBinary(),
		workRoot:   cfg.Paths.WorkDir,
		logger:     logging.NewComponentLogger(logger, "media"),
		inspect:    ffprobe.Inspect,
	}
	extractor.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return exec.CommandContext(ctx, name, args...).CombinedOutput()
	}
	for _, opt := range opts {
		opt(extractor)
	}
	return extractor
}

// Extract probes the URL and pulls the audio track plus keyframe stills into
// a scoped temp directory. A missing video stream is fatal; a failed audio
// pull degrades to an empty AudioPath so the pipeline can continue without a
// transcript. The caller owns Cleanup on the returned extraction.
func (x *Extractor) Extract(ctx context.Context, url string) (*Extraction, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, services.Wrap(services.ErrValidation, "extract", "", "empty media url", nil)
	}

	logger := logging.WithContext(ctx, x.logger)

	probe, err := x.inspect(ctx, x.ffprobeBin, url)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "extract", "probe", "ffprobe failed", err)
	}
	if !probe.HasVideoStream() {
		return nil, services.Wrap(services.ErrNotFound, "extract", "probe", "no video stream in source", nil)
	}

	width, height := probe.Resolution()
	extraction := &Extraction{
		Metadata: Metadata{
			DurationSeconds: probe.DurationSeconds(),
			Width:           width,
			Height:          height,
			FrameRate:       probe.FrameRate(),
			HasAudio:        probe.HasAudioStream(),
		},
	}

	workDir, err := os.MkdirTemp(x.workRoot, "extract-")
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "extract", "workdir", "create temp dir", err)
	}
	extraction.workDir = workDir

	if extraction.Metadata.HasAudio {
		audioPath := filepath.Join(workDir, "audio.wav")
		args := []string{
			"-y", "-v", "error",
			"-i", url,
			"-vn", "-ac", "1", "-ar", "16000", "-c:a", "pcm_s16le",
			audioPath,
		}
		if output, err := x.run(ctx, x.ffmpegBin, args...); err != nil {
			logger.Warn("audio extraction failed; continuing without transcript",
				logging.Error(err),
				logging.String("detail", strings.TrimSpace(string(output))),
				logging.String(logging.FieldEventType, "extract_audio_failed"),
			)
		} else {
			extraction.AudioPath = audioPath
		}
	}

	for i, timestamp := range KeyframeTimestamps(extraction.Metadata.DurationSeconds) {
		if err := ctx.Err(); err != nil {
			extraction.Cleanup()
			return nil, err
		}
		framePath := filepath.Join(workDir, fmt.Sprintf("frame_%03d.jpg", i))
		args := []string{
			"-y", "-v", "error",
			"-ss", formatTimestamp(timestamp),
			"-i", url,
			"-frames:v", "1", "-q:v", "2",
			framePath,
		}
		if output, err := x.run(ctx, x.ffmpegBin, args...); err != nil {
			logger.Warn("keyframe capture failed",
				logging.Float64("timestamp", timestamp),
				logging.Error(err),
				logging.String("detail", strings.TrimSpace(string(output))),
				logging.String(logging.FieldEventType, "extract_keyframe_failed"),
			)
			continue
		}
		extraction.Keyframes = append(extraction.Keyframes, framePath)
	}

	return extraction, nil
}

// KeyframeTimestamps returns the capture points for a clip of the given
// duration: dense coverage of the opening seconds plus quartile samples and
// the final second. Every timestamp is strictly inside the clip; a zero or
// unknown duration yields no keyframes.
func KeyframeTimestamps(duration float64) []float64 {
	if duration <= 0 || math.IsNaN(duration) {
		return nil
	}

	candidates := []float64{0, 1, 2, 3, 5, 10,
		duration * 0.25,
		duration * 0.50,
		duration * 0.75,
		duration - 1,
	}

	seen := make(map[int64]struct{}, len(candidates))
	var timestamps []float64
	for _, candidate := range candidates {
		if candidate < 0 || candidate >= duration {
			continue
		}
		// Dedupe at millisecond granularity.
		key := int64(math.Round(candidate * 1000))
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		timestamps = append(timestamps, candidate)
	}
	sort.Float64s(timestamps)
	return timestamps
}

func formatTimestamp(seconds float64) string {
	return fmt.Sprintf("%.3f", seconds)
}
