package main

import (
	"log/slog"
	"path/filepath"
	"time"

	"github.com/jcrowe85/tiktok-analytics-sub000/internal/analysis"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/config"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/media"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/notifications"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/resolve"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/services/llm"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/store"
)

// buildPipeline assembles the analysis stages into an orchestrator. The
// returned breaker is the resolver's, shared so the daemon can report
// its state.
func buildPipeline(cfg *config.Config, results *store.SQLiteStore, logger *slog.Logger) (*analysis.Orchestrator, *resolve.Breaker) {
	breaker := resolve.NewBreaker(
		cfg.Resolver.BreakerThreshold,
		time.Duration(cfg.Resolver.BreakerCooldownSeconds)*time.Second,
	)
	resolver := resolve.NewService(cfg.Resolver, breaker, logger)
	extractor := media.NewExtractor(cfg, logger)
	transcriber := analysis.NewTranscriber(cfg.Transcription, logger)
	ocr := analysis.NewOCRClient(cfg.OCR)

	scoringClient := llm.NewClient(llmClientConfig(cfg.ScoringLLM()))
	visionClient := llm.NewClient(llmClientConfig(cfg.VisionLLM()))
	scorer := analysis.NewScorer(scoringClient)
	vision := analysis.NewVisionAnalyzer(visionClient)

	engines := analysis.Engines{
		Transcription: cfg.Transcription.Model,
		Vision:        visionClient.Model(),
		Scoring:       scoringClient.Model(),
	}

	orchestrator := analysis.NewOrchestrator(
		resolver,
		extractor,
		transcriber,
		ocr,
		vision,
		scorer,
		results,
		cfg.Analysis.RulesVersion,
		engines,
		logger,
		analysis.WithArtifactsDir(filepath.Join(cfg.Paths.DataDir, "artifacts")),
		analysis.WithNotifier(notifications.NewService(cfg)),
	)
	return orchestrator, breaker
}

func llmClientConfig(src config.LLMConfig) llm.Config {
	return llm.Config{
		APIKey:         src.APIKey,
		BaseURL:        src.BaseURL,
		Model:          src.Model,
		Referer:        src.Referer,
		Title:          src.Title,
		TimeoutSeconds: src.TimeoutSeconds,
	}
}
