package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateGemini(); err != nil {
		return err
	}
	if err := c.validateRetry(); err != nil {
		return err
	}
	if err := c.validateChunking(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateGemini() error {
	if c.Gemini.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/llmcall/config.toml"
		}
		return fmt.Errorf("gemini.api_key is required. Set GEMINI_API_KEY env var or edit %s (create with 'llmcall config init')", defaultPath)
	}
	if c.Gemini.BaseURL == "" {
		return errors.New("gemini.base_url must be set")
	}
	return nil
}

func (c *Config) validateRetry() error {
	if c.Retry.MaxWaitSeconds < c.Retry.BaseWaitSeconds {
		return errors.New("retry.max_wait_seconds must be >= retry.base_wait_seconds")
	}
	return nil
}

func (c *Config) validateChunking() error {
	if c.Chunking.MaxChunkSize < 1000 {
		return errors.New("chunking.max_chunk_size must be at least 1000 characters")
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
