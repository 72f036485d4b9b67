package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"llmcall/internal/testsupport"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	return testsupport.WriteConfigFile(t, testsupport.NewConfig(t))
}

func runCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCachePathCommand(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	cfgPath := writeTestConfig(t)

	out, err := runCommand(t, "", "--config", cfgPath, "cache", "path")
	if err != nil {
		t.Fatalf("cache path: %v", err)
	}
	if !strings.Contains(out, "cache.json") {
		t.Fatalf("expected cache file path, got %q", out)
	}
}

func TestCacheListEmpty(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	cfgPath := writeTestConfig(t)

	out, err := runCommand(t, "", "--config", cfgPath, "cache", "list")
	if err != nil {
		t.Fatalf("cache list: %v", err)
	}
	if !strings.Contains(out, "Cache is empty") {
		t.Fatalf("expected empty cache notice, got %q", out)
	}
}

func TestHistoryCommandEmpty(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	cfgPath := writeTestConfig(t)

	out, err := runCommand(t, "", "--config", cfgPath, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "No calls recorded") {
		t.Fatalf("expected empty history notice, got %q", out)
	}
}

func TestConfigInitWritesSampleOnce(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	target := filepath.Join(t.TempDir(), "config.toml")

	out, err := runCommand(t, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("expected init output to name %s, got %q", target, out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected sample config written: %v", err)
	}

	// init refuses to overwrite
	if _, err := runCommand(t, "", "config", "init", "--path", target); err == nil {
		t.Fatalf("expected overwrite refusal")
	}
}

func TestConfigValidateRequiresKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	cfgPath := writeTestConfig(t)

	_, err := runCommand(t, "", "--config", cfgPath, "config", "validate")
	if err == nil || !strings.Contains(err.Error(), "GEMINI_API_KEY") {
		t.Fatalf("expected missing key error, got %v", err)
	}
}

func TestConfigShowRedactsKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "super-secret")
	cfgPath := writeTestConfig(t)

	out, err := runCommand(t, "", "--config", cfgPath, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "super-secret") {
		t.Fatalf("expected api key redacted, got %q", out)
	}
	if !strings.Contains(out, "<set>") {
		t.Fatalf("expected redaction placeholder, got %q", out)
	}
}

func TestReadPrompt(t *testing.T) {
	if _, err := readPrompt(strings.NewReader(""), []string{"p"}, "file"); err == nil {
		t.Fatalf("expected mutual exclusion error")
	}
	if _, err := readPrompt(strings.NewReader("   "), nil, ""); err == nil {
		t.Fatalf("expected empty prompt error")
	}

	got, err := readPrompt(strings.NewReader(""), []string{"from arg"}, "")
	if err != nil || got != "from arg" {
		t.Fatalf("arg prompt: %q %v", got, err)
	}

	got, err = readPrompt(strings.NewReader("from stdin"), nil, "")
	if err != nil || got != "from stdin" {
		t.Fatalf("stdin prompt: %q %v", got, err)
	}

	path := filepath.Join(t.TempDir(), "prompt.txt")
	if err := os.WriteFile(path, []byte("from file"), 0o644); err != nil {
		t.Fatalf("write prompt file: %v", err)
	}
	got, err = readPrompt(strings.NewReader(""), nil, path)
	if err != nil || got != "from file" {
		t.Fatalf("file prompt: %q %v", got, err)
	}
}

func TestPreviewSanitizesAndTruncates(t *testing.T) {
	if got := preview("line\none", 40); got != "line one" {
		t.Fatalf("expected newline replaced, got %q", got)
	}
	long := strings.Repeat("a", 50)
	if got := preview(long, 10); got != strings.Repeat("a", 10)+"…" {
		t.Fatalf("unexpected truncation %q", got)
	}
}
