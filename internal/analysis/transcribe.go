package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jcrowe85/tiktok-analytics-sub000/internal/config"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/logging"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/services"
)

// Segment is one timed span of transcribed speech.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcript is the output of the transcription stage.
type Transcript struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
	Language string    `json:"language"`
}

// Transcriber sends extracted audio to a Whisper-style transcription API.
// Audio below the configured byte threshold is treated as silent or
// music-only and short-circuits to an empty transcript without any network
// call.
type Transcriber struct {
	cfg        config.Transcription
	httpClient *http.Client
	logger     *slog.Logger
}

// TranscriberOption customizes the transcriber.
type TranscriberOption func(*Transcriber)

// WithTranscriberHTTPClient overrides the default HTTP client.
func WithTranscriberHTTPClient(client *http.Client) TranscriberOption {
	return func(t *Transcriber) {
		if client != nil {
			t.httpClient = client
		}
	}
}

// NewTranscriber constructs a transcription client.
func NewTranscriber(cfg config.Transcription, logger *slog.Logger, opts ...TranscriberOption) *Transcriber {
	if logger == nil {
		logger = logging.NewNop()
	}
	transcriber := &Transcriber{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		logger: logging.NewComponentLogger(logger, "transcription"),
	}
	for _, opt := range opts {
		opt(transcriber)
	}
	return transcriber
}

// Configured reports whether the transcription backend is reachable.
func (t *Transcriber) Configured() bool {
	return strings.TrimSpace(t.cfg.BaseURL) != "" && strings.TrimSpace(t.cfg.APIKey) != ""
}

// Transcribe converts the audio file at audioPath into a transcript. An
// empty path (no audio track) and sub-threshold audio both return an empty
// transcript without contacting the service.
func (t *Transcriber) Transcribe(ctx context.Context, audioPath string) (Transcript, error) {
	var empty Transcript

	if strings.TrimSpace(audioPath) == "" {
		return empty, nil
	}

	info, err := os.Stat(audioPath)
	if err != nil {
		return empty, services.Wrap(services.ErrExternalTool, "transcribe", "stat", "audio file unavailable", err)
	}
	if info.Size() < t.cfg.MinAudioBytes {
		logging.WithContext(ctx, t.logger).Debug("audio below threshold; skipping transcription",
			logging.Int64("audio_bytes", info.Size()),
			logging.Int64("threshold_bytes", t.cfg.MinAudioBytes),
		)
		return empty, nil
	}

	if !t.Configured() {
		return empty, services.Wrap(services.ErrConfiguration, "transcribe", "", "transcription service not configured", nil)
	}

	body, contentType, err := t.encodeRequest(audioPath)
	if err != nil {
		return empty, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.BaseURL, body)
	if err != nil {
		return empty, fmt.Errorf("transcribe request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.cfg.APIKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return empty, services.Wrap(services.ErrTransient, "transcribe", "post", "transcription request failed", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return empty, services.Wrap(services.ErrTransient, "transcribe", "read", "read transcription response", err)
	}
	if resp.StatusCode != http.StatusOK {
		marker := services.ErrExternalTool
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			marker = services.ErrTransient
		}
		return empty, services.Wrap(marker, "transcribe", "post",
			fmt.Sprintf("transcription http %d: %s", resp.StatusCode, strings.TrimSpace(string(payload))), nil)
	}

	var transcript Transcript
	if err := json.Unmarshal(payload, &transcript); err != nil {
		return empty, fmt.Errorf("decode transcription response: %w", err)
	}
	transcript.Text = strings.TrimSpace(transcript.Text)
	return transcript, nil
}

func (t *Transcriber) encodeRequest(audioPath string) (*bytes.Buffer, string, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return nil, "", fmt.Errorf("open audio file: %w", err)
	}
	defer file.Close()

	var buffer bytes.Buffer
	writer := multipart.NewWriter(&buffer)

	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("copy audio into form: %w", err)
	}
	if model := strings.TrimSpace(t.cfg.Model); model != "" {
		if err := writer.WriteField("model", model); err != nil {
			return nil, "", fmt.Errorf("write model field: %w", err)
		}
	}
	if err := writer.WriteField("response_format", "verbose_json"); err != nil {
		return nil, "", fmt.Errorf("write response format field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("finalize form: %w", err)
	}
	return &buffer, writer.FormDataContentType(), nil
}
