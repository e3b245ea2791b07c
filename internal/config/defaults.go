package config

const (
	defaultDataDir                 = "~/.local/share/analyzer/data"
	defaultLogDir                  = "~/.local/share/analyzer/logs"
	defaultWorkDir                 = "~/.local/share/analyzer/work"
	defaultWorkerCount             = 3
	defaultMaxAttempts             = 3
	defaultBackoffBaseSeconds      = 5
	defaultBackoffFactor           = 2.0
	defaultPollIntervalSeconds     = 2
	defaultHeartbeatInterval       = 15
	defaultHeartbeatTimeout        = 120
	defaultJobTimeoutSeconds       = 300
	defaultApifyBaseURL            = "https://api.apify.com/v2"
	defaultApifyActorID            = "clockworks~tiktok-scraper"
	defaultFallbackBaseURL         = "https://www.tikwm.com/api"
	defaultBreakerThreshold        = 3
	defaultBreakerCooldownSeconds  = 300
	defaultResolverTimeoutSeconds  = 60
	defaultResolverPollSeconds     = 3
	defaultTranscriptionBaseURL    = "https://api.openai.com/v1/audio/transcriptions"
	defaultTranscriptionModel      = "whisper-1"
	defaultMinAudioBytes           = 1000
	defaultTranscriptionTimeout    = 120
	defaultOCRTimeoutSeconds       = 30
	defaultLLMBaseURL              = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel                = "google/gemini-3-flash-preview"
	defaultLLMTitle                = "Content Analyzer"
	defaultLLMTimeoutSeconds       = 60
	defaultRulesVersion            = "v1"
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			WorkDir: defaultWorkDir,
		},
		Workers: Workers{
			Count:                    defaultWorkerCount,
			MaxAttempts:              defaultMaxAttempts,
			BackoffBaseSeconds:       defaultBackoffBaseSeconds,
			BackoffFactor:            defaultBackoffFactor,
			PollIntervalSeconds:      defaultPollIntervalSeconds,
			HeartbeatIntervalSeconds: defaultHeartbeatInterval,
			HeartbeatTimeoutSeconds:  defaultHeartbeatTimeout,
			JobTimeoutSeconds:        defaultJobTimeoutSeconds,
		},
		Resolver: Resolver{
			ApifyBaseURL:           defaultApifyBaseURL,
			ApifyActorID:           defaultApifyActorID,
			FallbackBaseURL:        defaultFallbackBaseURL,
			BreakerThreshold:       defaultBreakerThreshold,
			BreakerCooldownSeconds: defaultBreakerCooldownSeconds,
			RequestTimeoutSeconds:  defaultResolverTimeoutSeconds,
			PollIntervalSeconds:    defaultResolverPollSeconds,
		},
		Transcription: Transcription{
			BaseURL:        defaultTranscriptionBaseURL,
			Model:          defaultTranscriptionModel,
			MinAudioBytes:  defaultMinAudioBytes,
			TimeoutSeconds: defaultTranscriptionTimeout,
		},
		OCR: OCR{
			TimeoutSeconds: defaultOCRTimeoutSeconds,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Analysis: Analysis{
			RulesVersion: defaultRulesVersion,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
