package main

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"llmcall/internal/auditlog"
	"llmcall/internal/backoff"
	"llmcall/internal/config"
	"llmcall/internal/gemini"
	"llmcall/internal/history"
	"llmcall/internal/logging"
	"llmcall/internal/promptcache"
	"llmcall/internal/relay"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// buildLogger writes to stderr plus the log file so the model response on
// stdout stays clean.
func (c *commandContext) buildLogger(cfg *config.Config) (*slog.Logger, error) {
	outputs := []string{"stderr"}
	if strings.TrimSpace(cfg.Paths.LogDir) != "" {
		outputs = append(outputs, filepath.Join(cfg.Paths.LogDir, "llmcall.log"))
	}
	return logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: outputs,
	})
}

// acquireLock enforces a single in-flight call per installation. The cache
// file has no cross-process locking, so overlapping writers could silently
// lose updates.
func (c *commandContext) acquireLock(cfg *config.Config) (func(), error) {
	lockPath := filepath.Join(cfg.Paths.LogDir, "llmcall.lock")
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", lockPath, err)
	}
	if !ok {
		return nil, errors.New("another llmcall invocation is already running")
	}
	return func() { _ = lock.Unlock() }, nil
}

func (c *commandContext) buildRelay(cfg *config.Config, logger *slog.Logger) (*relay.Client, func(), error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	upstream := gemini.NewClient(gemini.Config{
		APIKey:         cfg.Gemini.APIKey,
		BaseURL:        cfg.Gemini.BaseURL,
		Model:          cfg.Gemini.Model,
		TimeoutSeconds: cfg.Gemini.TimeoutSeconds,
	})
	cache := promptcache.New(cfg.Paths.CacheFile, logging.NewComponentLogger(logger, "cache"))
	audit := auditlog.New(cfg.Paths.LogDir)

	store, err := history.Open(cfg.Paths.HistoryDB)
	if err != nil {
		// History is observability only; a broken database must not block
		// calls.
		logger.Warn("call history unavailable", logging.Error(err))
		store = nil
	}

	policy := backoff.Default()
	policy.MaxRetries = cfg.Retry.MaxRetries
	policy.BaseWait = time.Duration(cfg.Retry.BaseWaitSeconds) * time.Second
	policy.MaxWait = time.Duration(cfg.Retry.MaxWaitSeconds) * time.Second
	policy.ConnectionErrorThreshold = cfg.Retry.ConnectionErrorThreshold
	policy.ConnectionCooldown = time.Duration(cfg.Retry.ConnectionCooldownSeconds) * time.Second

	client := relay.New(upstream, cache, relay.Options{
		MaxChunkSize: cfg.Chunking.MaxChunkSize,
		ChunkTimeout: time.Duration(cfg.Chunking.ChunkTimeoutSeconds) * time.Second,
		ChunkRetries: cfg.Chunking.ChunkRetries,
		Model:        upstream.Model(),
		Policy:       policy,
		Audit:        audit,
		History:      store,
		Logger:       logging.NewComponentLogger(logger, "relay"),
	})

	cleanup := func() {
		_ = audit.Close()
		_ = store.Close()
	}
	return client, cleanup, nil
}
