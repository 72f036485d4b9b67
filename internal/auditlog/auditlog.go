package auditlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Event is one audit record. Prompts and responses are stored verbatim, so
// the audit log is a durable record of potentially sensitive data; that is
// deliberate and documented behavior, not an accident.
type Event struct {
	Timestamp time.Time `json:"ts"`
	Kind      string    `json:"kind"` // PROMPT, RESPONSE, or ERROR
	RequestID string    `json:"request_id,omitempty"`
	Text      string    `json:"text"`
}

// Log appends call events to a per-day file (llm_calls_YYYYMMDD.log) in the
// configured directory, one JSON object per line. Append failures are
// swallowed: auditing must never fail a call.
type Log struct {
	dir string
	now func() time.Time

	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
	day  string
}

// New creates an audit log writing into dir. An empty dir disables auditing.
func New(dir string) *Log {
	return &Log{dir: strings.TrimSpace(dir), now: time.Now}
}

// Prompt records the submitted prompt text.
func (l *Log) Prompt(requestID, text string) {
	l.append("PROMPT", requestID, text)
}

// Response records the returned response text.
func (l *Log) Response(requestID, text string) {
	l.append("RESPONSE", requestID, text)
}

// Failure records a terminal call failure.
func (l *Log) Failure(requestID string, err error) {
	if err == nil {
		return
	}
	l.append("ERROR", requestID, err.Error())
}

// Path returns the file the next event would be appended to.
func (l *Log) Path() string {
	if l == nil || l.dir == "" {
		return ""
	}
	return filepath.Join(l.dir, fileNameFor(l.now()))
}

// Close releases the current file handle.
func (l *Log) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	var err error
	if l.file != nil {
		err = l.file.Close()
	}
	l.file = nil
	l.enc = nil
	l.day = ""
	return err
}

func (l *Log) append(kind, requestID, text string) {
	if l == nil || l.dir == "" {
		return
	}
	now := l.now().UTC()

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.ensureWriter(now); err != nil {
		return
	}
	_ = l.enc.Encode(Event{Timestamp: now, Kind: kind, RequestID: requestID, Text: text})
}

// ensureWriter opens the day's file, rolling over at midnight.
func (l *Log) ensureWriter(now time.Time) error {
	day := now.Format("20060102")
	if l.file != nil && l.enc != nil && l.day == day {
		return nil
	}
	if l.file != nil {
		_ = l.file.Close()
		l.file = nil
		l.enc = nil
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("ensure audit dir: %w", err)
	}
	path := filepath.Join(l.dir, fileNameFor(now))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log %s: %w", path, err)
	}
	l.file = file
	l.enc = json.NewEncoder(file)
	l.day = day
	return nil
}

func fileNameFor(now time.Time) string {
	return "llm_calls_" + now.UTC().Format("20060102") + ".log"
}
