package promptcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"llmcall/internal/logging"
)

// Cache is a flat prompt-text to response-text map persisted as a single
// JSON object on disk. Every Lookup and Store re-reads the file so that
// writes from a previous invocation of the tool are always visible; Store
// rewrites the whole map. There is no cross-process locking: when two
// processes race, the last writer wins.
type Cache struct {
	path   string
	logger *slog.Logger
}

// New creates a cache backed by the JSON file at path. If path is empty the
// cache is non-functional: lookups miss and stores are no-ops.
func New(path string, logger *slog.Logger) *Cache {
	return &Cache{
		path:   strings.TrimSpace(path),
		logger: logging.NewComponentLogger(logger, "promptcache"),
	}
}

// Path returns the on-disk location backing the cache.
func (c *Cache) Path() string {
	if c == nil {
		return ""
	}
	return c.path
}

// Lookup returns the cached response for key, if present. Keys are compared
// byte-exact; no normalization is applied.
func (c *Cache) Lookup(key string) (string, bool) {
	if c == nil || c.path == "" || key == "" {
		return "", false
	}
	entries := c.load()
	value, found := entries[key]
	return value, found
}

// Store persists the key/value pair, overwriting any previous value. The
// returned error reports persistence failure only; callers are expected to
// treat it as non-fatal since the response itself is already in hand.
func (c *Cache) Store(key, value string) error {
	if c == nil || c.path == "" {
		return nil
	}
	if key == "" {
		return errors.New("cache key cannot be empty")
	}

	entries := c.load()
	entries[key] = value

	if err := c.save(entries); err != nil {
		return fmt.Errorf("persist cache: %w", err)
	}

	c.logger.Debug("cached response",
		logging.Int("key_chars", len(key)),
		logging.Int("value_chars", len(value)),
		logging.Int("entry_count", len(entries)))
	return nil
}

// Entry pairs a cache key with its stored response.
type Entry struct {
	Key   string
	Value string
}

// List returns all entries sorted by key for deterministic CLI output.
func (c *Cache) List() []Entry {
	if c == nil || c.path == "" {
		return nil
	}
	entries := c.load()
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]Entry, 0, len(keys))
	for _, key := range keys {
		out = append(out, Entry{Key: key, Value: entries[key]})
	}
	return out
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	if c == nil || c.path == "" {
		return 0
	}
	return len(c.load())
}

// Clear removes all entries and persists the empty map.
func (c *Cache) Clear() error {
	if c == nil || c.path == "" {
		return nil
	}
	if err := c.save(map[string]string{}); err != nil {
		return fmt.Errorf("persist cache: %w", err)
	}
	return nil
}

// load reads the persisted map. A missing file yields an empty map; a
// corrupt file logs a warning and also yields an empty map, never an error.
func (c *Cache) load() map[string]string {
	entries := make(map[string]string)

	data, err := os.ReadFile(c.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.logger.Warn("failed to read cache, starting with empty cache",
				logging.String("path", c.path),
				logging.Error(err))
		}
		return entries
	}
	if len(data) == 0 {
		return entries
	}

	if err := json.Unmarshal(data, &entries); err != nil {
		c.logger.Warn("failed to parse cache, starting with empty cache",
			logging.String("path", c.path),
			logging.Error(err))
		return make(map[string]string)
	}
	return entries
}

// save writes the map to disk atomically via a temp file rename.
func (c *Cache) save(entries map[string]string) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
