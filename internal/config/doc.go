// Package config loads, normalizes, and validates llmcall configuration.
//
// Configuration comes from a TOML file (default ~/.config/llmcall/config.toml)
// layered with environment overrides (GEMINI_API_KEY, LOG_DIR). Load never
// fails on a missing file; defaults plus environment are enough to run.
package config
