package gemini

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// APIError is a structured Gemini API failure. It exposes the fields the
// retry policy classifies on (HTTP status, API status, server retry hint)
// so no caller ever has to parse error text.
type APIError struct {
	StatusCode int
	Status     string // e.g. RESOURCE_EXHAUSTED
	Message    string
	// RetryDelay is the server-suggested wait from a RetryInfo detail;
	// zero when absent.
	RetryDelay time.Duration
	// QuotaID and QuotaValue come from a QuotaFailure detail; empty when
	// absent or unparseable. Observability only.
	QuotaID    string
	QuotaValue string
}

func (e *APIError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = "request failed"
	}
	if e.Status != "" {
		return fmt.Sprintf("gemini api: http %d %s: %s", e.StatusCode, e.Status, msg)
	}
	return fmt.Sprintf("gemini api: http %d: %s", e.StatusCode, msg)
}

func (e *APIError) HTTPStatus() int { return e.StatusCode }

func (e *APIError) APIStatus() string { return e.Status }

func (e *APIError) RetryHint() time.Duration { return e.RetryDelay }

// QuotaDimension renders the exhausted quota as a human-readable label,
// e.g. "input tokens (per-minute, free tier)". Empty when no quota detail
// was present.
func (e *APIError) QuotaDimension() string {
	if e.QuotaID == "" {
		return ""
	}

	window := "unknown time period"
	switch {
	case strings.Contains(e.QuotaID, "PerMinute"):
		window = "per-minute"
	case strings.Contains(e.QuotaID, "PerDay"):
		window = "per-day (daily quota)"
	}

	resource := "unknown resource"
	switch {
	case strings.Contains(e.QuotaID, "InputTokens"):
		resource = "input tokens"
	case strings.Contains(e.QuotaID, "OutputTokens"):
		resource = "output tokens"
	case strings.Contains(e.QuotaID, "Requests"):
		resource = "requests"
	}

	tier := "unknown tier"
	switch {
	case strings.Contains(e.QuotaID, "FreeTier"):
		tier = "free tier"
	case strings.Contains(e.QuotaID, "PaidTier"):
		tier = "paid tier"
	}

	return fmt.Sprintf("%s (%s, %s)", resource, window, tier)
}

type errorEnvelope struct {
	Error struct {
		Code    int               `json:"code"`
		Message string            `json:"message"`
		Status  string            `json:"status"`
		Details []json.RawMessage `json:"details"`
	} `json:"error"`
}

type retryInfoDetail struct {
	Type       string `json:"@type"`
	RetryDelay string `json:"retryDelay"`
}

type quotaFailureDetail struct {
	Type       string `json:"@type"`
	Violations []struct {
		QuotaID    string `json:"quotaId"`
		QuotaValue string `json:"quotaValue"`
	} `json:"violations"`
}

// parseAPIError builds an APIError from a non-2xx response body. Detail
// parsing is best-effort: a payload that is not the documented error
// envelope still produces a usable APIError with the raw body as message.
func parseAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode}

	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error.Message == "" && envelope.Error.Status == "" {
		apiErr.Message = strings.TrimSpace(string(body))
		return apiErr
	}

	apiErr.Status = envelope.Error.Status
	apiErr.Message = envelope.Error.Message

	for _, raw := range envelope.Error.Details {
		var retryInfo retryInfoDetail
		if err := json.Unmarshal(raw, &retryInfo); err == nil && strings.HasSuffix(retryInfo.Type, "RetryInfo") {
			if delay, err := parseRetryDelay(retryInfo.RetryDelay); err == nil {
				apiErr.RetryDelay = delay
			}
			continue
		}
		var quotaFailure quotaFailureDetail
		if err := json.Unmarshal(raw, &quotaFailure); err == nil && strings.HasSuffix(quotaFailure.Type, "QuotaFailure") {
			if len(quotaFailure.Violations) > 0 {
				apiErr.QuotaID = quotaFailure.Violations[0].QuotaID
				apiErr.QuotaValue = quotaFailure.Violations[0].QuotaValue
			}
		}
	}

	return apiErr
}

// parseRetryDelay parses protobuf duration strings such as "12s" or "1.5s".
func parseRetryDelay(value string) (time.Duration, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, fmt.Errorf("empty retry delay")
	}
	delay, err := time.ParseDuration(trimmed)
	if err != nil {
		return 0, fmt.Errorf("parse retry delay %q: %w", value, err)
	}
	if delay < 0 {
		return 0, fmt.Errorf("negative retry delay %q", value)
	}
	return delay, nil
}
