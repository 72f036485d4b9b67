package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"llmcall/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Gemini.APIKey = "test"
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.CacheFile = filepath.Join(base, "cache.json")
	cfg.Paths.HistoryDB = filepath.Join(base, "history.db")

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithAPIKey sets the Gemini API key on the test config.
func WithAPIKey(key string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Gemini.APIKey = key
	}
}

// WithChunkSize overrides the chunk threshold on the test config.
func WithChunkSize(size int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Chunking.MaxChunkSize = size
	}
}

// WriteConfigFile persists cfg as a TOML file and returns its path. The API
// key is left out so tests control it through the environment.
func WriteConfigFile(t testing.TB, cfg *config.Config) string {
	t.Helper()

	redacted := *cfg
	redacted.Gemini.APIKey = ""
	data, err := toml.Marshal(redacted)
	if err != nil {
		t.Fatalf("marshal test config: %v", err)
	}
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write test config: %v", err)
	}
	return path
}
