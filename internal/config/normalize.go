package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeGemini()
	c.normalizeRetry()
	c.normalizeChunking()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CacheFile) == "" {
		c.Paths.CacheFile = defaultCacheFile
	}
	if c.Paths.CacheFile, err = expandPath(c.Paths.CacheFile); err != nil {
		return fmt.Errorf("paths.cache_file: %w", err)
	}
	if strings.TrimSpace(c.Paths.HistoryDB) == "" {
		c.Paths.HistoryDB = filepath.Join(c.Paths.LogDir, "history.db")
	}
	if c.Paths.HistoryDB, err = expandPath(c.Paths.HistoryDB); err != nil {
		return fmt.Errorf("paths.history_db: %w", err)
	}
	return nil
}

func (c *Config) normalizeGemini() {
	c.Gemini.APIKey = strings.TrimSpace(c.Gemini.APIKey)
	c.Gemini.BaseURL = strings.TrimSuffix(strings.TrimSpace(c.Gemini.BaseURL), "/")
	if c.Gemini.BaseURL == "" {
		c.Gemini.BaseURL = defaultGeminiBaseURL
	}
	c.Gemini.Model = strings.TrimSpace(c.Gemini.Model)
	if c.Gemini.Model == "" {
		c.Gemini.Model = defaultGeminiModel
	}
	if !strings.Contains(c.Gemini.Model, "/") {
		c.Gemini.Model = "models/" + c.Gemini.Model
	}
	if c.Gemini.TimeoutSeconds <= 0 {
		c.Gemini.TimeoutSeconds = defaultGeminiTimeoutSeconds
	}
}

func (c *Config) normalizeRetry() {
	if c.Retry.MaxRetries <= 0 {
		c.Retry.MaxRetries = defaultMaxRetries
	}
	if c.Retry.BaseWaitSeconds <= 0 {
		c.Retry.BaseWaitSeconds = defaultBaseWaitSeconds
	}
	if c.Retry.MaxWaitSeconds <= 0 {
		c.Retry.MaxWaitSeconds = defaultMaxWaitSeconds
	}
	if c.Retry.ConnectionErrorThreshold <= 0 {
		c.Retry.ConnectionErrorThreshold = defaultConnectionErrorThreshold
	}
	if c.Retry.ConnectionCooldownSeconds <= 0 {
		c.Retry.ConnectionCooldownSeconds = defaultConnectionCooldownSeconds
	}
}

func (c *Config) normalizeChunking() {
	if c.Chunking.MaxChunkSize <= 0 {
		c.Chunking.MaxChunkSize = defaultMaxChunkSize
	}
	if c.Chunking.ChunkTimeoutSeconds <= 0 {
		c.Chunking.ChunkTimeoutSeconds = defaultChunkTimeoutSeconds
	}
	if c.Chunking.ChunkRetries <= 0 {
		c.Chunking.ChunkRetries = defaultChunkRetries
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
}
