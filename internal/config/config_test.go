package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jcrowe85/tiktok-analytics-sub000/internal/config"
)

func TestDefaultMatchesDocumentedBudget(t *testing.T) {
	cfg := config.Default()
	if cfg.Workers.Count != 3 {
		t.Fatalf("expected 3 workers, got %d", cfg.Workers.Count)
	}
	if cfg.Workers.MaxAttempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", cfg.Workers.MaxAttempts)
	}
	if cfg.Resolver.BreakerThreshold != 3 {
		t.Fatalf("expected breaker threshold 3, got %d", cfg.Resolver.BreakerThreshold)
	}
	if cfg.Resolver.BreakerCooldownSeconds != 300 {
		t.Fatalf("expected 5 minute cooldown, got %d", cfg.Resolver.BreakerCooldownSeconds)
	}
	if cfg.Transcription.MinAudioBytes != 1000 {
		t.Fatalf("expected 1000 byte audio floor, got %d", cfg.Transcription.MinAudioBytes)
	}
}

func TestLoadAppliesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := strings.Join([]string{
		"[paths]",
		`data_dir = "` + filepath.Join(dir, "data") + `"`,
		`log_dir = "` + filepath.Join(dir, "logs") + `"`,
		`work_dir = "` + filepath.Join(dir, "work") + `"`,
		"[workers]",
		"count = 5",
		"[resolver]",
		`fallback_base_url = "https://fallback.example/api/"`,
		"[llm]",
		`api_key = "file-key"`,
		"",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("LLM_API_KEY", "env-key")
	t.Setenv("APIFY_API_TOKEN", "")

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected config at %s, got %s (exists=%v)", path, resolved, exists)
	}
	if cfg.Workers.Count != 5 {
		t.Fatalf("expected 5 workers, got %d", cfg.Workers.Count)
	}
	if cfg.LLM.APIKey != "env-key" {
		t.Fatalf("env secret should win, got %q", cfg.LLM.APIKey)
	}
	if cfg.Resolver.FallbackBaseURL != "https://fallback.example/api" {
		t.Fatalf("fallback url not normalized: %q", cfg.Resolver.FallbackBaseURL)
	}
	if cfg.Workers.JobTimeoutSeconds != 300 {
		t.Fatalf("missing job timeout default, got %d", cfg.Workers.JobTimeoutSeconds)
	}
}

func TestValidateRejectsMissingLLMKey(t *testing.T) {
	cfg := config.Default()
	cfg.Resolver.ApifyToken = "token"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for missing llm key")
	}
}

func TestValidateRejectsMissingResolvers(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.APIKey = "key"
	cfg.Resolver.FallbackBaseURL = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error when no resolver is configured")
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(dir, "data")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	cfg.Paths.WorkDir = filepath.Join(dir, "work")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, p := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir, cfg.Paths.WorkDir} {
		if info, err := os.Stat(p); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s", p)
		}
	}
}
