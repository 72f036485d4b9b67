package relay

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"llmcall/internal/auditlog"
	"llmcall/internal/backoff"
	"llmcall/internal/chunker"
	"llmcall/internal/history"
	"llmcall/internal/logging"
)

// Generator produces a model response for a prompt. Implementations surface
// failures as errors that the backoff package can classify.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Cache is the prompt-keyed response store consulted before any remote call.
type Cache interface {
	Lookup(key string) (string, bool)
	Store(key, value string) error
}

// Options configures a Client. Zero values fall back to the defaults the
// service has always shipped with.
type Options struct {
	MaxChunkSize     int
	ChunkTimeout     time.Duration
	ChunkRetries     int
	ChunkBackoff     time.Duration
	PauseBase        time.Duration
	PauseJitter      time.Duration
	ProgressInterval time.Duration

	Model   string
	Policy  backoff.Policy
	Audit   *auditlog.Log
	History *history.Store
	Logger  *slog.Logger
}

// Client drives end-to-end calls: cache lookup, chunk-or-not decision,
// retry-wrapped remote calls, and result concatenation.
type Client struct {
	gen     Generator
	cache   Cache
	policy  backoff.Policy
	audit   *auditlog.Log
	history *history.Store
	logger  *slog.Logger

	model            string
	maxChunkSize     int
	chunkTimeout     time.Duration
	chunkRetries     int
	chunkBackoff     time.Duration
	pauseBase        time.Duration
	pauseJitter      time.Duration
	progressInterval time.Duration

	sleep     func(context.Context, time.Duration) error
	randFloat func() float64
	now       func() time.Time
	newID     func() string
}

// New creates a Client around a generator and cache. The cache may be nil,
// which disables caching entirely.
func New(gen Generator, cache Cache, opts Options) *Client {
	c := &Client{
		gen:              gen,
		cache:            cache,
		policy:           opts.Policy,
		audit:            opts.Audit,
		history:          opts.History,
		logger:           opts.Logger,
		model:            opts.Model,
		maxChunkSize:     opts.MaxChunkSize,
		chunkTimeout:     opts.ChunkTimeout,
		chunkRetries:     opts.ChunkRetries,
		chunkBackoff:     opts.ChunkBackoff,
		pauseBase:        opts.PauseBase,
		pauseJitter:      opts.PauseJitter,
		progressInterval: opts.ProgressInterval,
		sleep:            sleepContext,
		randFloat:        rand.Float64,
		now:              time.Now,
		newID:            uuid.NewString,
	}
	if c.policy.MaxRetries == 0 {
		c.policy = backoff.Default()
	}
	if c.logger == nil {
		c.logger = logging.NewNop()
	}
	if c.maxChunkSize <= 0 {
		c.maxChunkSize = 200000
	}
	if c.chunkTimeout <= 0 {
		c.chunkTimeout = 180 * time.Second
	}
	if c.chunkRetries <= 0 {
		c.chunkRetries = 3
	}
	if c.chunkBackoff <= 0 {
		c.chunkBackoff = 30 * time.Second
	}
	if c.pauseBase <= 0 {
		c.pauseBase = 30 * time.Second
	}
	if c.pauseJitter <= 0 {
		c.pauseJitter = 15 * time.Second
	}
	if c.progressInterval <= 0 {
		c.progressInterval = time.Minute
	}
	return c
}

// Call submits a prompt and returns the model response. Oversized prompts
// are split into chunks processed sequentially; a chunk that exhausts its
// retries contributes a failure marker instead of aborting the whole call.
func (c *Client) Call(ctx context.Context, prompt string, useCache bool) (string, error) {
	requestID := c.newID()
	start := c.now()
	log := c.logger.With(logging.String(logging.FieldRequestID, requestID))

	c.audit.Prompt(requestID, prompt)

	rec := history.Record{
		ID:          requestID,
		CreatedAt:   start,
		Model:       c.model,
		PromptChars: len(prompt),
	}

	var (
		text string
		err  error
	)
	if len(prompt) > c.maxChunkSize {
		text, err = c.callChunked(ctx, log, prompt, useCache, &rec)
	} else {
		log.Info("processing prompt", logging.Int("prompt_chars", len(prompt)))
		var hit bool
		var attempts int
		text, hit, attempts, err = c.callDirect(ctx, log, prompt, useCache)
		rec.CacheHit = hit
		rec.Attempts = attempts
		if err == nil {
			rec.Outcome = history.OutcomeSuccess
		}
	}

	rec.Duration = c.now().Sub(start)
	if err != nil {
		rec.Outcome = history.OutcomeFailed
		rec.ErrorText = err.Error()
		c.audit.Failure(requestID, err)
	} else {
		rec.ResponseChars = len(text)
		c.audit.Response(requestID, text)
	}
	if histErr := c.history.Append(ctx, rec); histErr != nil {
		log.Warn("failed to record call history", logging.Error(histErr))
	}
	if err != nil {
		return "", err
	}
	return text, nil
}

// callDirect runs the cache-check, retry-wrapped remote call, cache-write
// flow for a single piece of text. It reports whether the result came from
// cache and how many remote attempts were made.
func (c *Client) callDirect(ctx context.Context, log *slog.Logger, prompt string, useCache bool) (string, bool, int, error) {
	if useCache && c.cache != nil {
		if cached, ok := c.cache.Lookup(prompt); ok {
			log.Info("using cached response", logging.Int("response_chars", len(cached)))
			return cached, true, 0, nil
		}
	}

	var state backoff.State
	attempts := 0
	for {
		text, err := c.generate(ctx, log, prompt)
		attempts++
		if err == nil {
			if useCache && c.cache != nil {
				if storeErr := c.cache.Store(prompt, text); storeErr != nil {
					log.Warn("failed to persist response to cache", logging.Error(storeErr))
				}
			}
			return text, false, attempts, nil
		}
		if !backoff.Retryable(err) {
			return "", false, attempts, err
		}

		failure := backoff.Classify(err)
		decision, next := c.policy.Next(state, failure)
		state = next

		log.Warn("model call failed",
			logging.String("failure_class", decision.Class.String()),
			logging.Int("retries", state.Retries),
			logging.Duration("wait", decision.Wait),
			logging.Error(err),
		)
		if failure.QuotaDimension != "" {
			log.Info("quota exceeded", logging.String("quota", failure.QuotaDimension))
		}
		if !decision.Retry {
			return "", false, attempts, fmt.Errorf("%w after %d attempts: %w", backoff.ErrRetriesExhausted, state.Retries, err)
		}
		if sleepErr := c.sleep(ctx, decision.Wait); sleepErr != nil {
			return "", false, attempts, sleepErr
		}
		if decision.Cooldown > 0 {
			log.Warn("repeated connection errors, entering extended cooldown",
				logging.Duration("cooldown", decision.Cooldown))
			if sleepErr := c.sleep(ctx, decision.Cooldown); sleepErr != nil {
				return "", false, attempts, sleepErr
			}
		}
	}
}

// callChunked splits the prompt and processes each piece sequentially.
// Sequential processing is deliberate: it keeps the shared rate-limit
// budget intact instead of amplifying 429s.
func (c *Client) callChunked(ctx context.Context, log *slog.Logger, prompt string, useCache bool, rec *history.Record) (string, error) {
	chunks := chunker.Chunk(prompt, c.maxChunkSize)
	log.Info("prompt exceeds chunk threshold, splitting",
		logging.Int("prompt_chars", len(prompt)),
		logging.Int("chunks", len(chunks)),
	)
	rec.Chunks = len(chunks)

	results := make([]string, len(chunks))
	failed := 0
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		text, hit, attempts, err := c.processChunk(ctx, log, chunk, i+1, len(chunks), useCache)
		rec.Attempts += attempts
		if err != nil {
			return "", err
		}
		results[i] = text
		if strings.HasPrefix(text, failureMarkerPrefix) {
			failed++
		}
		if hit {
			rec.CacheHit = true
		}

		if i < len(chunks)-1 && !hit {
			pause := c.pauseBase + time.Duration(c.randFloat()*float64(c.pauseJitter))
			log.Info("pausing between chunks", logging.Duration("pause", pause))
			if sleepErr := c.sleep(ctx, pause); sleepErr != nil {
				return "", sleepErr
			}
		}
	}

	if failed > 0 {
		rec.Outcome = history.OutcomePartial
		rec.ErrorText = fmt.Sprintf("%d of %d chunks failed", failed, len(chunks))
		log.Warn("call completed with failed chunks",
			logging.Int("failed_chunks", failed),
			logging.Int("chunks", len(chunks)),
		)
	} else {
		rec.Outcome = history.OutcomeSuccess
	}
	return strings.Join(results, "\n\n"), nil
}

const failureMarkerPrefix = "[failed to process chunk "

// failureMarker is the in-place substitute for a chunk that exhausted its
// retries. It keeps the combined output's chunk order intact and visibly
// flags the gap.
func failureMarker(index, attempts int) string {
	return fmt.Sprintf("%s%d after %d attempts]", failureMarkerPrefix, index, attempts)
}

// processChunk runs one chunk through the direct flow under a wall-clock
// timeout, retrying the whole chunk with exponential backoff. Exhausting
// the chunk retries yields a failure marker, not an error: one bad chunk
// never aborts a multi-chunk request.
func (c *Client) processChunk(ctx context.Context, log *slog.Logger, chunk string, index, total int, useCache bool) (string, bool, int, error) {
	chunkLog := log.With(logging.Int("chunk", index), logging.Int("chunks", total))
	attempts := 0
	for attempt := 1; attempt <= c.chunkRetries; attempt++ {
		chunkCtx, cancel := context.WithTimeout(ctx, c.chunkTimeout)
		text, hit, callAttempts, err := c.callDirect(chunkCtx, chunkLog, chunk, useCache)
		cancel()
		attempts += callAttempts
		if err == nil {
			return text, hit, attempts, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", false, attempts, ctxErr
		}

		chunkLog.Warn("chunk attempt failed",
			logging.Int("attempt", attempt),
			logging.Error(err),
		)
		if attempt < c.chunkRetries {
			wait := c.chunkBackoff << (attempt - 1)
			chunkLog.Info("retrying chunk", logging.Duration("wait", wait))
			if sleepErr := c.sleep(ctx, wait); sleepErr != nil {
				return "", false, attempts, sleepErr
			}
		}
	}
	chunkLog.Error("chunk failed after all attempts, substituting marker")
	return failureMarker(index, c.chunkRetries), false, attempts, nil
}

// generate performs one remote attempt with a progress ticker running for
// its duration. The ticker is stopped on every exit path.
func (c *Client) generate(ctx context.Context, log *slog.Logger, prompt string) (string, error) {
	progressCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go c.emitProgress(progressCtx, log)
	return c.gen.GenerateContent(ctx, prompt)
}

func (c *Client) emitProgress(ctx context.Context, log *slog.Logger) {
	ticker := time.NewTicker(c.progressInterval)
	defer ticker.Stop()
	start := c.now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			log.Info("still waiting for model response",
				logging.Duration("elapsed", c.now().Sub(start).Round(time.Second)))
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
