package analysis

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jcrowe85/tiktok-analytics-sub000/internal/fileutil"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/language"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/logging"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/media"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/notifications"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/queue"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/resolve"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/services"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/store"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/textutil"
)

// Pipeline stage names, in execution order for video mode.
const (
	StageResolve    = "resolve"
	StageExtract    = "extract"
	StageTranscribe = "transcribe"
	StageOCR        = "ocr"
	StageVision     = "vision"
	StageScore      = "score"
	StagePersist    = "persist"
)

// Resolver turns a share reference into a streamable URL.
type Resolver interface {
	Resolve(ctx context.Context, shareURL string) (*resolve.Resolution, error)
}

// Extractor pulls audio and keyframes from a streamable URL.
type Extractor interface {
	Extract(ctx context.Context, url string) (*media.Extraction, error)
}

// SpeechTranscriber converts an audio file into a transcript.
type SpeechTranscriber interface {
	Transcribe(ctx context.Context, audioPath string) (Transcript, error)
}

// FrameOCR extracts on-screen text from still frames.
type FrameOCR interface {
	Configured() bool
	RecognizeFrame(ctx context.Context, framePath string) (string, error)
}

// FrameClassifier labels keyframes and scores visual quality.
type FrameClassifier interface {
	Analyze(ctx context.Context, keyframes []string) (VisionResult, error)
}

// ContentScorer grades content against the rubric.
type ContentScorer interface {
	Score(ctx context.Context, input ScoreInput) (ScoreReport, error)
}

// Engines identifies the backends used for result metadata.
type Engines struct {
	Transcription string
	Vision        string
	Scoring       string
}

// Orchestrator sequences the analysis stages for one claimed job and
// persists the outcome. It satisfies the worker pool's handler contract.
type Orchestrator struct {
	resolver    Resolver
	extractor   Extractor
	transcriber SpeechTranscriber
	ocr         FrameOCR
	vision      FrameClassifier
	scorer      ContentScorer
	results     store.Store

	rulesVersion string
	engines      Engines
	artifactsDir string
	notifier     notifications.Service
	httpClient   *http.Client
	logger       *slog.Logger
}

// OrchestratorOption customizes the orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithArtifactsDir enables keyframe archiving: extracted frames are copied
// under dir before the scratch directory is cleaned up, and results record
// the archived paths. Without it results keep frame basenames only.
func WithArtifactsDir(dir string) OrchestratorOption {
	return func(o *Orchestrator) {
		o.artifactsDir = strings.TrimSpace(dir)
	}
}

// WithCoverHTTPClient overrides the client used to fetch static cover images.
func WithCoverHTTPClient(client *http.Client) OrchestratorOption {
	return func(o *Orchestrator) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// WithNotifier sends a push notice when a job completes or exhausts its
// retry budget.
func WithNotifier(notifier notifications.Service) OrchestratorOption {
	return func(o *Orchestrator) {
		if notifier != nil {
			o.notifier = notifier
		}
	}
}

// NewOrchestrator wires the pipeline stages together.
func NewOrchestrator(
	resolver Resolver,
	extractor Extractor,
	transcriber SpeechTranscriber,
	ocr FrameOCR,
	vision FrameClassifier,
	scorer ContentScorer,
	results store.Store,
	rulesVersion string,
	engines Engines,
	logger *slog.Logger,
	opts ...OrchestratorOption,
) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	orchestrator := &Orchestrator{
		resolver:     resolver,
		extractor:    extractor,
		transcriber:  transcriber,
		ocr:          ocr,
		vision:       vision,
		scorer:       scorer,
		results:      results,
		rulesVersion: rulesVersion,
		engines:      engines,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		logger:       logging.NewComponentLogger(logger, "analysis"),
	}
	for _, opt := range opts {
		opt(orchestrator)
	}
	return orchestrator
}

// Process runs the full pipeline for one claimed job. Any stage error is
// persisted as a failed status (preserving whatever partial result exists)
// before being returned, so the queue's retry bookkeeping still applies.
func (o *Orchestrator) Process(ctx context.Context, job *queue.Job, progress func(percent float64, message string)) error {
	if progress == nil {
		progress = func(float64, string) {}
	}

	payload, err := job.DecodePayload()
	if err != nil {
		return services.Wrap(services.ErrValidation, "analysis", "decode", "decode job payload", err)
	}

	ctx = services.WithJobID(ctx, job.ID)
	ctx = services.WithContentID(ctx, job.ContentID)
	logger := logging.WithContext(ctx, o.logger)

	if err := o.results.EnsureContentItem(ctx, job.ContentID, store.MetadataFromPayload(payload)); err != nil {
		return fmt.Errorf("ensure content item: %w", err)
	}
	if err := o.results.SetStatus(ctx, job.ContentID, queue.StatusProcessing); err != nil {
		return fmt.Errorf("set processing status: %w", err)
	}

	result, err := o.runPipeline(ctx, job, payload, progress, logger)
	if err != nil {
		o.persistFailure(ctx, job, result, err, logger)
		return err
	}

	progress(95, StagePersist)
	result.Status = queue.StatusCompleted
	if err := o.results.UpsertResult(ctx, result); err != nil {
		return fmt.Errorf("persist result: %w", err)
	}
	if err := o.results.SetStatus(ctx, job.ContentID, queue.StatusCompleted); err != nil {
		return fmt.Errorf("set completed status: %w", err)
	}
	progress(100, "completed")

	logger.Info("analysis completed",
		logging.Float64("aggregate_score", result.AggregateScore),
		logging.String("detected_language", result.Meta.DetectedLanguage),
		logging.String(logging.FieldEventType, "analysis_completed"),
	)

	if o.notifier != nil {
		if err := o.notifier.NotifyAnalysisCompleted(context.WithoutCancel(ctx), job.ContentID, result.AggregateScore); err != nil {
			logger.Warn("completion notification failed", logging.Error(err))
		}
	}
	return nil
}

// runPipeline executes the mode-specific stages and returns the assembled
// result. On error the returned result holds whatever was gathered before
// the failing stage.
func (o *Orchestrator) runPipeline(ctx context.Context, job *queue.Job, payload queue.Payload, progress func(float64, string), logger *slog.Logger) (*store.Result, error) {
	result := &store.Result{
		ContentID: job.ContentID,
		Meta: store.ResultMeta{
			RulesVersion: o.rulesVersion,
			ProcessedAt:  time.Now().UTC(),
			Engines:      map[string]string{},
		},
	}

	switch payload.Kind {
	case queue.KindVideo:
		if err := o.runVideoStages(ctx, payload.Video, result, progress, logger); err != nil {
			return result, err
		}
	case queue.KindStatic:
		if err := o.runStaticStages(ctx, payload.Static, result, progress, logger); err != nil {
			return result, err
		}
	default:
		return result, services.Wrap(services.ErrValidation, "analysis", "mode", fmt.Sprintf("unknown content kind %q", payload.Kind), nil)
	}

	if err := o.runScoring(ctx, payload, result, progress); err != nil {
		return result, err
	}
	return result, nil
}

func (o *Orchestrator) runVideoStages(ctx context.Context, payload *queue.VideoPayload, result *store.Result, progress func(float64, string), logger *slog.Logger) error {
	progress(5, StageResolve)
	resolution, err := o.resolver.Resolve(services.WithStage(ctx, StageResolve), payload.ShareURL)
	if err != nil {
		return err
	}
	result.Meta.Engines["resolver"] = resolution.Source

	progress(20, StageExtract)
	extraction, err := o.extractor.Extract(services.WithStage(ctx, StageExtract), resolution.VideoURL)
	if err != nil {
		return err
	}
	defer extraction.Cleanup()

	result.Keyframes = o.archiveKeyframes(result.ContentID, extraction.Keyframes, logger)

	progress(40, StageTranscribe)
	transcript, err := o.transcriber.Transcribe(services.WithStage(ctx, StageTranscribe), extraction.AudioPath)
	if err != nil {
		return err
	}
	result.Transcript = transcript.Text
	result.Meta.DetectedLanguage = language.Normalize(transcript.Language)
	result.Meta.Engines["transcription"] = o.engines.Transcription

	progress(55, StageOCR)
	result.OCRText = o.recognizeFrames(ctx, extraction.Keyframes, logger)

	progress(70, StageVision)
	if len(extraction.Keyframes) > 0 {
		vision, err := o.vision.Analyze(services.WithStage(ctx, StageVision), extraction.Keyframes)
		if err != nil {
			return err
		}
		result.VisualScores = vision.VisualScores
		result.Classifiers = map[string][]string{}
		if len(vision.Labels) > 0 {
			result.Classifiers["labels"] = vision.Labels
		}
		if len(vision.StyleTags) > 0 {
			result.Classifiers["style"] = vision.StyleTags
		}
		result.Meta.Engines["vision"] = o.engines.Vision
	}

	return nil
}

func (o *Orchestrator) runStaticStages(ctx context.Context, payload *queue.StaticPayload, result *store.Result, progress func(float64, string), logger *slog.Logger) error {
	if o.ocr != nil && o.ocr.Configured() && payload.CoverURL != "" {
		progress(30, StageOCR)
		if text, err := o.recognizeCover(services.WithStage(ctx, StageOCR), payload.CoverURL); err != nil {
			logger.Warn("cover ocr failed",
				logging.Error(err),
				logging.String(logging.FieldErrorClass, services.Class(err)),
				logging.String(logging.FieldEventType, "ocr_cover_failed"),
			)
		} else if text != "" {
			result.OCRText = append(result.OCRText, text)
		}
	}
	return nil
}

// runScoring is shared by both modes: everything textual plus engagement
// goes to the LLM, and the content hash is sealed from the same inputs.
func (o *Orchestrator) runScoring(ctx context.Context, payload queue.Payload, result *store.Result, progress func(float64, string)) error {
	progress(80, StageScore)

	input := ScoreInput{
		Transcript: result.Transcript,
		OCRText:    result.OCRText,
		Engagement: payload.EngagementMetrics(),
	}
	if payload.Kind == queue.KindStatic && payload.Static != nil {
		input.Caption = payload.Static.Caption
	}

	report, err := o.scorer.Score(services.WithStage(ctx, StageScore), input)
	if err != nil {
		return err
	}

	result.CategoryScores = report.Categories
	result.AggregateScore = report.Aggregate
	result.Findings = report.Findings
	result.Suggestions = report.Suggestions
	result.Meta.Engines["scoring"] = o.engines.Scoring
	result.Meta.ContentHash = ContentHash(result.Transcript, result.OCRText)
	if result.Meta.DetectedLanguage == "" {
		result.Meta.DetectedLanguage = language.Normalize(report.DetectedLanguage)
	}
	return nil
}

// archiveKeyframes copies extracted frames into the artifacts directory so
// result keyframe paths outlive the extraction scratch dir. A failed copy
// drops back to the basename rather than failing the job.
func (o *Orchestrator) archiveKeyframes(contentID string, keyframes []string, logger *slog.Logger) []string {
	if len(keyframes) == 0 {
		return nil
	}

	var archived []string
	targetDir := ""
	if o.artifactsDir != "" {
		targetDir = filepath.Join(o.artifactsDir, contentID)
		if err := os.MkdirAll(targetDir, 0o755); err != nil {
			logger.Warn("create artifacts dir failed", logging.Error(err))
			targetDir = ""
		}
	}

	for _, frame := range keyframes {
		name := filepath.Base(frame)
		if targetDir == "" {
			archived = append(archived, name)
			continue
		}
		dst := filepath.Join(targetDir, name)
		if err := fileutil.CopyFileVerified(frame, dst); err != nil {
			logger.Warn("archive keyframe failed",
				logging.String("frame", name),
				logging.Error(err))
			archived = append(archived, name)
			continue
		}
		archived = append(archived, dst)
	}
	return archived
}

// recognizeFrames runs OCR over every keyframe. The stage is skipped when no
// backend is configured, and a failed frame is logged and dropped rather
// than failing the job.
func (o *Orchestrator) recognizeFrames(ctx context.Context, keyframes []string, logger *slog.Logger) []string {
	if o.ocr == nil || !o.ocr.Configured() || len(keyframes) == 0 {
		return nil
	}

	ctx = services.WithStage(ctx, StageOCR)
	var lines []string
	var fingerprints []*textutil.Fingerprint
	seen := make(map[string]struct{})
	for _, frame := range keyframes {
		text, err := o.ocr.RecognizeFrame(ctx, frame)
		if err != nil {
			logger.Warn("frame ocr failed",
				logging.String("frame", filepath.Base(frame)),
				logging.Error(err),
				logging.String(logging.FieldErrorClass, services.Class(err)),
				logging.String(logging.FieldEventType, "ocr_frame_failed"),
			)
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if _, duplicate := seen[text]; duplicate {
			continue
		}
		fingerprint := textutil.NewFingerprint(text)
		if nearDuplicate(fingerprint, fingerprints) {
			continue
		}
		seen[text] = struct{}{}
		if fingerprint != nil {
			fingerprints = append(fingerprints, fingerprint)
		}
		lines = append(lines, text)
	}
	return lines
}

// Overlays persist across many frames, so successive captures differ only
// in OCR noise. Anything this close to an earlier line is the same overlay.
const ocrDuplicateThreshold = 0.9

func nearDuplicate(fingerprint *textutil.Fingerprint, previous []*textutil.Fingerprint) bool {
	if fingerprint == nil {
		return false
	}
	for _, candidate := range previous {
		if textutil.CosineSimilarity(fingerprint, candidate) >= ocrDuplicateThreshold {
			return true
		}
	}
	return false
}

// recognizeCover downloads a static cover image and runs OCR on it.
func (o *Orchestrator) recognizeCover(ctx context.Context, coverURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, coverURL, nil)
	if err != nil {
		return "", fmt.Errorf("cover request: %w", err)
	}
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch cover: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch cover: http %d", resp.StatusCode)
	}

	temp, err := os.CreateTemp("", "cover-*.jpg")
	if err != nil {
		return "", fmt.Errorf("cover temp file: %w", err)
	}
	defer os.Remove(temp.Name())
	if _, err := io.Copy(temp, resp.Body); err != nil {
		temp.Close()
		return "", fmt.Errorf("save cover: %w", err)
	}
	if err := temp.Close(); err != nil {
		return "", fmt.Errorf("save cover: %w", err)
	}

	return o.ocr.RecognizeFrame(ctx, temp.Name())
}

// persistFailure records the failed status and whatever partial result
// exists. Persistence problems here are logged, not returned, so the
// original stage error survives for the queue's retry accounting.
func (o *Orchestrator) persistFailure(ctx context.Context, job *queue.Job, partial *store.Result, cause error, logger *slog.Logger) {
	logger.Warn("analysis failed",
		logging.Error(cause),
		logging.String(logging.FieldErrorClass, services.Class(cause)),
		logging.Int("attempt", job.Attempts),
		logging.String(logging.FieldEventType, "analysis_failed"),
	)

	// The stage error may be the job context expiring, so the failure
	// writes must survive that cancellation.
	persistCtx := context.WithoutCancel(ctx)
	if partial != nil {
		partial.Status = queue.StatusFailed
		if err := o.results.UpsertResult(persistCtx, partial); err != nil {
			logger.Error("persist partial result failed", logging.Error(err))
		}
	}
	if err := o.results.SetStatus(persistCtx, job.ContentID, queue.StatusFailed); err != nil {
		logger.Error("persist failed status failed", logging.Error(err))
	}

	// Notify only once the retry budget is spent, not on every attempt.
	if o.notifier != nil && job.Attempts >= job.MaxAttempts {
		if err := o.notifier.NotifyAnalysisFailed(persistCtx, job.ContentID, cause.Error()); err != nil {
			logger.Warn("failure notification failed", logging.Error(err))
		}
	}
}
