package analysis_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/jcrowe85/tiktok-analytics-sub000/internal/analysis"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/config"
)

func transcriptionConfig(baseURL string) config.Transcription {
	return config.Transcription{
		BaseURL:        baseURL,
		APIKey:         "test-key",
		Model:          "whisper-1",
		MinAudioBytes:  1000,
		TimeoutSeconds: 5,
	}
}

func writeAudio(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.wav")
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	return path
}

func TestTranscribeShortCircuitsBelowThreshold(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	transcriber := analysis.NewTranscriber(transcriptionConfig(server.URL), nil)
	transcript, err := transcriber.Transcribe(context.Background(), writeAudio(t, 500))
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if transcript.Text != "" || len(transcript.Segments) != 0 {
		t.Fatalf("expected empty transcript, got %+v", transcript)
	}
	if hits.Load() != 0 {
		t.Fatalf("transcription service must not be contacted, got %d hits", hits.Load())
	}
}

func TestTranscribeEmptyPathIsSoft(t *testing.T) {
	transcriber := analysis.NewTranscriber(transcriptionConfig("http://127.0.0.1:0"), nil)
	transcript, err := transcriber.Transcribe(context.Background(), "")
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if transcript.Text != "" {
		t.Fatalf("expected empty transcript, got %+v", transcript)
	}
}

func TestTranscribeSendsMultipartAndDecodes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			t.Fatalf("expected multipart request, got %s", r.Header.Get("Content-Type"))
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if r.FormValue("model") != "whisper-1" {
			t.Fatalf("expected model field, got %q", r.FormValue("model"))
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Fatalf("expected file part: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"text":     "hello world ",
			"language": "english",
			"segments": []map[string]any{
				{"start": 0.0, "end": 1.2, "text": "hello world"},
			},
		})
	}))
	defer server.Close()

	transcriber := analysis.NewTranscriber(transcriptionConfig(server.URL), nil)
	transcript, err := transcriber.Transcribe(context.Background(), writeAudio(t, 2048))
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if transcript.Text != "hello world" {
		t.Fatalf("unexpected text %q", transcript.Text)
	}
	if len(transcript.Segments) != 1 || transcript.Segments[0].End != 1.2 {
		t.Fatalf("unexpected segments %+v", transcript.Segments)
	}
	if transcript.Language != "english" {
		t.Fatalf("unexpected language %q", transcript.Language)
	}
}

func TestTranscribeRequiresConfigurationAboveThreshold(t *testing.T) {
	cfg := transcriptionConfig("")
	cfg.APIKey = ""
	transcriber := analysis.NewTranscriber(cfg, nil)
	if _, err := transcriber.Transcribe(context.Background(), writeAudio(t, 2048)); err == nil {
		t.Fatal("expected configuration error")
	}
}
