package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWorkers(); err != nil {
		return err
	}
	if err := c.validateResolver(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateWorkers() error {
	if c.Workers.Count > 32 {
		return errors.New("workers.count must be 32 or fewer")
	}
	if c.Workers.MaxAttempts > 10 {
		return errors.New("workers.max_attempts must be 10 or fewer")
	}
	if c.Workers.HeartbeatTimeoutSeconds <= c.Workers.HeartbeatIntervalSeconds {
		return errors.New("workers.heartbeat_timeout_seconds must exceed workers.heartbeat_interval_seconds")
	}
	return nil
}

func (c *Config) validateResolver() error {
	if c.Resolver.ApifyToken == "" && c.Resolver.FallbackBaseURL == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/analyzer/config.toml"
		}
		return fmt.Errorf("resolver requires apify_token or fallback_base_url. Set APIFY_API_TOKEN env var or edit %s (create with 'analyzer config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateLLM() error {
	if c.LLM.APIKey == "" {
		return errors.New("llm.api_key is required for the scoring stage. Set LLM_API_KEY env var or add it to the config file")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
