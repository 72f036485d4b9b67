package relay

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"llmcall/internal/auditlog"
	"llmcall/internal/backoff"
	"llmcall/internal/chunker"
	"llmcall/internal/history"
	"llmcall/internal/logging"
	"llmcall/internal/promptcache"
)

type fakeGenerator struct {
	mu    sync.Mutex
	calls int
	fn    func(call int, prompt string) (string, error)
}

func (g *fakeGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.calls++
	call := g.calls
	g.mu.Unlock()
	return g.fn(call, prompt)
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type testClient struct {
	*Client
	gen    *fakeGenerator
	sleeps *[]time.Duration
}

func newTestClient(t *testing.T, gen *fakeGenerator, opts Options) testClient {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	cache := promptcache.New(filepath.Join(t.TempDir(), "cache.json"), logging.NewNop())
	c := New(gen, cache, opts)

	sleeps := &[]time.Duration{}
	c.sleep = func(_ context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return nil
	}
	c.randFloat = func() float64 { return 0 }
	return testClient{Client: c, gen: gen, sleeps: sleeps}
}

func TestSecondCallHitsCache(t *testing.T) {
	gen := &fakeGenerator{fn: func(_ int, prompt string) (string, error) {
		return "echo:" + prompt, nil
	}}
	c := newTestClient(t, gen, Options{})

	first, err := c.Call(context.Background(), "hello", true)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := c.Call(context.Background(), "hello", true)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if first != second {
		t.Fatalf("expected identical responses, got %q and %q", first, second)
	}
	if gen.callCount() != 1 {
		t.Fatalf("expected one remote call, got %d", gen.callCount())
	}
}

func TestCacheBypassedWhenDisabled(t *testing.T) {
	gen := &fakeGenerator{fn: func(call int, _ string) (string, error) {
		return fmt.Sprintf("response %d", call), nil
	}}
	c := newTestClient(t, gen, Options{})

	if _, err := c.Call(context.Background(), "p", false); err != nil {
		t.Fatalf("call: %v", err)
	}
	if _, err := c.Call(context.Background(), "p", false); err != nil {
		t.Fatalf("call: %v", err)
	}
	if gen.callCount() != 2 {
		t.Fatalf("expected two remote calls, got %d", gen.callCount())
	}
}

func TestRetriesTransientFailureThenSucceeds(t *testing.T) {
	gen := &fakeGenerator{fn: func(call int, _ string) (string, error) {
		if call < 3 {
			return "", errors.New("got status 429 RESOURCE_EXHAUSTED")
		}
		return "recovered", nil
	}}
	c := newTestClient(t, gen, Options{})

	got, err := c.Call(context.Background(), "p", true)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if got != "recovered" {
		t.Fatalf("unexpected response %q", got)
	}
	if gen.callCount() != 3 {
		t.Fatalf("expected 3 attempts, got %d", gen.callCount())
	}
	if len(*c.sleeps) != 2 {
		t.Fatalf("expected 2 backoff sleeps, got %v", *c.sleeps)
	}
	// Cached after recovery.
	if _, err := c.Call(context.Background(), "p", true); err != nil {
		t.Fatalf("cached call: %v", err)
	}
	if gen.callCount() != 3 {
		t.Fatalf("expected cache hit, got %d remote calls", gen.callCount())
	}
}

func TestRetriesExhaustedIsTerminal(t *testing.T) {
	gen := &fakeGenerator{fn: func(int, string) (string, error) {
		return "", errors.New("connection reset by peer")
	}}
	policy := backoff.Default()
	policy.MaxRetries = 3
	c := newTestClient(t, gen, Options{Policy: policy})

	_, err := c.Call(context.Background(), "p", true)
	if !errors.Is(err, backoff.ErrRetriesExhausted) {
		t.Fatalf("expected ErrRetriesExhausted, got %v", err)
	}
	if gen.callCount() != 3 {
		t.Fatalf("expected 3 attempts, got %d", gen.callCount())
	}
}

func TestNonRetryableErrorStopsImmediately(t *testing.T) {
	gen := &fakeGenerator{fn: func(int, string) (string, error) {
		return "", fmt.Errorf("call aborted: %w", context.Canceled)
	}}
	c := newTestClient(t, gen, Options{})

	_, err := c.Call(context.Background(), "p", true)
	if err == nil {
		t.Fatalf("expected error")
	}
	if gen.callCount() != 1 {
		t.Fatalf("expected a single attempt, got %d", gen.callCount())
	}
	if len(*c.sleeps) != 0 {
		t.Fatalf("expected no sleeps, got %v", *c.sleeps)
	}
}

func chunkedPrompt(paragraphs int) string {
	parts := make([]string, paragraphs)
	for i := range parts {
		parts[i] = fmt.Sprintf("paragraph %d %s", i, strings.Repeat("x", 30))
	}
	return strings.Join(parts, "\n\n")
}

func TestChunkedCallPreservesOrder(t *testing.T) {
	gen := &fakeGenerator{fn: func(_ int, prompt string) (string, error) {
		return "resp(" + prompt[:11] + ")", nil
	}}
	c := newTestClient(t, gen, Options{MaxChunkSize: 60})

	prompt := chunkedPrompt(4)
	got, err := c.Call(context.Background(), prompt, true)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	parts := strings.Split(got, "\n\n")
	if len(parts) < 2 {
		t.Fatalf("expected multiple chunk results, got %q", got)
	}
	want := chunker.Chunk(prompt, 60)
	if len(parts) != len(want) {
		t.Fatalf("expected %d results, got %d", len(want), len(parts))
	}
	for i, part := range parts {
		if part != "resp("+want[i][:11]+")" {
			t.Fatalf("result %d out of order: %q", i, part)
		}
	}
}

func TestChunkFailureLeavesMarkerAndContinues(t *testing.T) {
	gen := &fakeGenerator{fn: func(_ int, prompt string) (string, error) {
		if strings.Contains(prompt, "paragraph 0") {
			return "", errors.New("boom")
		}
		return "ok", nil
	}}
	policy := backoff.Default()
	policy.MaxRetries = 1
	c := newTestClient(t, gen, Options{MaxChunkSize: 60, ChunkRetries: 2, Policy: policy})

	got, err := c.Call(context.Background(), chunkedPrompt(4), true)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	parts := strings.Split(got, "\n\n")
	if parts[0] != "[failed to process chunk 1 after 2 attempts]" {
		t.Fatalf("expected failure marker first, got %q", parts[0])
	}
	for i, part := range parts[1:] {
		if part != "ok" {
			t.Fatalf("expected later chunk %d to succeed, got %q", i+2, part)
		}
	}
}

func TestChunkRetryBackoffDoubles(t *testing.T) {
	gen := &fakeGenerator{fn: func(int, string) (string, error) {
		return "", errors.New("boom")
	}}
	policy := backoff.Default()
	policy.MaxRetries = 1
	c := newTestClient(t, gen, Options{MaxChunkSize: 60, Policy: policy})

	if _, err := c.Call(context.Background(), chunkedPrompt(2), true); err != nil {
		t.Fatalf("call: %v", err)
	}
	var chunkWaits []time.Duration
	for _, d := range *c.sleeps {
		if d == 30*time.Second || d == 60*time.Second {
			chunkWaits = append(chunkWaits, d)
		}
	}
	if len(chunkWaits) < 2 || chunkWaits[0] != 30*time.Second || chunkWaits[1] != 60*time.Second {
		t.Fatalf("expected 30s then 60s chunk backoff, got %v", *c.sleeps)
	}
}

func TestInterChunkPauseSkippedOnCacheHit(t *testing.T) {
	gen := &fakeGenerator{fn: func(int, string) (string, error) {
		return "", errors.New("should not be called")
	}}
	c := newTestClient(t, gen, Options{MaxChunkSize: 60})

	prompt := chunkedPrompt(4)
	for _, chunk := range chunker.Chunk(prompt, 60) {
		if err := c.cache.Store(chunk, "cached:"+chunk[:11]); err != nil {
			t.Fatalf("prewarm cache: %v", err)
		}
	}

	got, err := c.Call(context.Background(), prompt, true)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if gen.callCount() != 0 {
		t.Fatalf("expected no remote calls, got %d", gen.callCount())
	}
	if len(*c.sleeps) != 0 {
		t.Fatalf("expected no inter-chunk pauses on cache hits, got %v", *c.sleeps)
	}
	if !strings.Contains(got, "cached:") {
		t.Fatalf("expected cached chunk responses, got %q", got)
	}
}

func TestInterChunkPauseOnRemoteCalls(t *testing.T) {
	gen := &fakeGenerator{fn: func(int, string) (string, error) {
		return "ok", nil
	}}
	c := newTestClient(t, gen, Options{MaxChunkSize: 60})

	if _, err := c.Call(context.Background(), chunkedPrompt(3), true); err != nil {
		t.Fatalf("call: %v", err)
	}
	var pauses int
	for _, d := range *c.sleeps {
		if d == 30*time.Second {
			pauses++
		}
	}
	if pauses == 0 {
		t.Fatalf("expected at least one inter-chunk pause, got %v", *c.sleeps)
	}
}

func TestHistoryRecordsPartialOutcome(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	defer store.Close()

	gen := &fakeGenerator{fn: func(_ int, prompt string) (string, error) {
		if strings.Contains(prompt, "paragraph 0") {
			return "", errors.New("boom")
		}
		return "ok", nil
	}}
	policy := backoff.Default()
	policy.MaxRetries = 1
	c := newTestClient(t, gen, Options{MaxChunkSize: 60, ChunkRetries: 2, Policy: policy, History: store, Model: "models/test"})

	if _, err := c.Call(context.Background(), chunkedPrompt(3), true); err != nil {
		t.Fatalf("call: %v", err)
	}

	records, err := store.Recent(context.Background(), 1)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec.Outcome != history.OutcomePartial {
		t.Fatalf("expected partial outcome, got %q", rec.Outcome)
	}
	if rec.Chunks < 2 {
		t.Fatalf("expected chunk count recorded, got %d", rec.Chunks)
	}
	if rec.Model != "models/test" {
		t.Fatalf("expected model recorded, got %q", rec.Model)
	}
}

func TestAuditLogReceivesPromptAndResponse(t *testing.T) {
	dir := t.TempDir()
	audit := auditlog.New(dir)
	defer audit.Close()

	gen := &fakeGenerator{fn: func(int, string) (string, error) {
		return "the answer", nil
	}}
	c := newTestClient(t, gen, Options{Audit: audit})

	if _, err := c.Call(context.Background(), "the question", true); err != nil {
		t.Fatalf("call: %v", err)
	}

	data, err := os.ReadFile(audit.Path())
	if err != nil {
		t.Fatalf("read audit log: %v", err)
	}
	if !strings.Contains(string(data), "the question") || !strings.Contains(string(data), "the answer") {
		t.Fatalf("expected prompt and response in audit log, got %q", string(data))
	}
}
