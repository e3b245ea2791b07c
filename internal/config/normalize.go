package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeWorkers()
	c.normalizeResolver()
	c.normalizeTranscription()
	c.normalizeLLM()
	c.normalizeLogging()
	if strings.TrimSpace(c.Analysis.RulesVersion) == "" {
		c.Analysis.RulesVersion = defaultRulesVersion
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeWorkers() {
	if c.Workers.Count <= 0 {
		c.Workers.Count = defaultWorkerCount
	}
	if c.Workers.MaxAttempts <= 0 {
		c.Workers.MaxAttempts = defaultMaxAttempts
	}
	if c.Workers.BackoffBaseSeconds <= 0 {
		c.Workers.BackoffBaseSeconds = defaultBackoffBaseSeconds
	}
	if c.Workers.BackoffFactor < 1 {
		c.Workers.BackoffFactor = defaultBackoffFactor
	}
	if c.Workers.PollIntervalSeconds <= 0 {
		c.Workers.PollIntervalSeconds = defaultPollIntervalSeconds
	}
	if c.Workers.HeartbeatIntervalSeconds <= 0 {
		c.Workers.HeartbeatIntervalSeconds = defaultHeartbeatInterval
	}
	if c.Workers.HeartbeatTimeoutSeconds <= 0 {
		c.Workers.HeartbeatTimeoutSeconds = defaultHeartbeatTimeout
	}
	if c.Workers.JobTimeoutSeconds <= 0 {
		c.Workers.JobTimeoutSeconds = defaultJobTimeoutSeconds
	}
}

func (c *Config) normalizeResolver() {
	c.Resolver.ApifyBaseURL = strings.TrimRight(strings.TrimSpace(c.Resolver.ApifyBaseURL), "/")
	if c.Resolver.ApifyBaseURL == "" {
		c.Resolver.ApifyBaseURL = defaultApifyBaseURL
	}
	c.Resolver.FallbackBaseURL = strings.TrimRight(strings.TrimSpace(c.Resolver.FallbackBaseURL), "/")
	if c.Resolver.BreakerThreshold <= 0 {
		c.Resolver.BreakerThreshold = defaultBreakerThreshold
	}
	if c.Resolver.BreakerCooldownSeconds <= 0 {
		c.Resolver.BreakerCooldownSeconds = defaultBreakerCooldownSeconds
	}
	if c.Resolver.RequestTimeoutSeconds <= 0 {
		c.Resolver.RequestTimeoutSeconds = defaultResolverTimeoutSeconds
	}
	if c.Resolver.PollIntervalSeconds <= 0 {
		c.Resolver.PollIntervalSeconds = defaultResolverPollSeconds
	}
}

func (c *Config) normalizeTranscription() {
	if strings.TrimSpace(c.Transcription.BaseURL) == "" {
		c.Transcription.BaseURL = defaultTranscriptionBaseURL
	}
	if strings.TrimSpace(c.Transcription.Model) == "" {
		c.Transcription.Model = defaultTranscriptionModel
	}
	if c.Transcription.MinAudioBytes <= 0 {
		c.Transcription.MinAudioBytes = defaultMinAudioBytes
	}
	if c.Transcription.TimeoutSeconds <= 0 {
		c.Transcription.TimeoutSeconds = defaultTranscriptionTimeout
	}
	if c.OCR.TimeoutSeconds <= 0 {
		c.OCR.TimeoutSeconds = defaultOCRTimeoutSeconds
	}
}

func (c *Config) normalizeLLM() {
	if strings.TrimSpace(c.LLM.BaseURL) == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
