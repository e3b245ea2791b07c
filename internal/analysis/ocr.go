package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jcrowe85/tiktok-analytics-sub000/internal/config"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/services"
)

// OCRClient extracts on-screen text from still frames. The service is
// optional: when unconfigured the OCR stage is skipped entirely, and a
// failure on one frame never fails the job.
type OCRClient struct {
	cfg        config.OCR
	httpClient *http.Client
}

// OCROption customizes the OCR client.
type OCROption func(*OCRClient)

// WithOCRHTTPClient overrides the default HTTP client.
func WithOCRHTTPClient(client *http.Client) OCROption {
	return func(c *OCRClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewOCRClient constructs an OCR client.
func NewOCRClient(cfg config.OCR, opts ...OCROption) *OCRClient {
	client := &OCRClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Configured reports whether an OCR backend is available.
func (c *OCRClient) Configured() bool {
	return strings.TrimSpace(c.cfg.BaseURL) != ""
}

// RecognizeFrame extracts text from the image at framePath.
func (c *OCRClient) RecognizeFrame(ctx context.Context, framePath string) (string, error) {
	if !c.Configured() {
		return "", services.Wrap(services.ErrConfiguration, "ocr", "", "ocr service not configured", nil)
	}

	file, err := os.Open(framePath)
	if err != nil {
		return "", fmt.Errorf("open frame: %w", err)
	}
	defer file.Close()

	var buffer bytes.Buffer
	writer := multipart.NewWriter(&buffer)
	part, err := writer.CreateFormFile("image", filepath.Base(framePath))
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("copy frame into form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, &buffer)
	if err != nil {
		return "", fmt.Errorf("ocr request: %w", err)
	}
	if key := strings.TrimSpace(c.cfg.APIKey); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "ocr", "post", "ocr request failed", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "ocr", "read", "read ocr response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", services.Wrap(services.ErrExternalTool, "ocr", "post",
			fmt.Sprintf("ocr http %d: %s", resp.StatusCode, strings.TrimSpace(string(payload))), nil)
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return "", fmt.Errorf("decode ocr response: %w", err)
	}
	return strings.TrimSpace(parsed.Text), nil
}
