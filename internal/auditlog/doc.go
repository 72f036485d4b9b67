// Package auditlog keeps an append-only record of every prompt and response
// that crosses the LLM boundary, one JSON line per event, in per-day files.
package auditlog
