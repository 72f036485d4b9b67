// Package history records per-call metadata (sizes, attempts, outcome) in a
// local SQLite database for later inspection. It stores no prompt or
// response text.
package history
