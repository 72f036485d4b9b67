package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v10"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains file and directory locations.
type Paths struct {
	LogDir    string `toml:"log_dir" env:"LOG_DIR"`
	CacheFile string `toml:"cache_file"`
	HistoryDB string `toml:"history_db"`
}

// Gemini contains upstream API connection settings.
type Gemini struct {
	APIKey         string `toml:"api_key" env:"GEMINI_API_KEY"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Retry contains per-attempt backoff tunables.
type Retry struct {
	MaxRetries                int `toml:"max_retries"`
	BaseWaitSeconds           int `toml:"base_wait_seconds"`
	MaxWaitSeconds            int `toml:"max_wait_seconds"`
	ConnectionErrorThreshold  int `toml:"connection_error_threshold"`
	ConnectionCooldownSeconds int `toml:"connection_cooldown_seconds"`
}

// Chunking contains oversized-prompt handling tunables.
type Chunking struct {
	MaxChunkSize        int `toml:"max_chunk_size"`
	ChunkTimeoutSeconds int `toml:"chunk_timeout_seconds"`
	ChunkRetries        int `toml:"chunk_retries"`
}

// Logging contains log output settings.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config is the root configuration for llmcall.
type Config struct {
	Paths    Paths    `toml:"paths"`
	Gemini   Gemini   `toml:"gemini"`
	Retry    Retry    `toml:"retry"`
	Chunking Chunking `toml:"chunking"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the standard location of the config file.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "llmcall", "config.toml"), nil
}

// Load reads the config file at path, applies environment overrides, and
// normalizes the result. A missing file is not an error; defaults plus
// environment are used instead.
func Load(path string) (*Config, error) {
	cfg := Default()

	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		trimmed = defaultPath
	}

	data, err := os.ReadFile(trimmed)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", trimmed, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// fall through to defaults + environment
	default:
		return nil, fmt.Errorf("read config %s: %w", trimmed, err)
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("apply environment overrides: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// WriteSample writes the embedded sample config to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return errors.New("config path required")
	}
	if _, err := os.Stat(trimmed); err == nil {
		return fmt.Errorf("config file already exists at %s", trimmed)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config %s: %w", trimmed, err)
	}
	if err := os.MkdirAll(filepath.Dir(trimmed), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(trimmed, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// EnsureDirectories creates the directories the tool writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Paths.LogDir,
		filepath.Dir(c.Paths.CacheFile),
		filepath.Dir(c.Paths.HistoryDB),
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		return filepath.Join(home, trimmed[2:]), nil
	}
	return trimmed, nil
}
