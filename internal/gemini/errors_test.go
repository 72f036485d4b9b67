package gemini

import (
	"testing"
	"time"
)

func TestParseRetryDelay(t *testing.T) {
	cases := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"12s", 12 * time.Second, false},
		{"1.5s", 1500 * time.Millisecond, false},
		{"0s", 0, false},
		{"", 0, true},
		{"soon", 0, true},
		{"-3s", 0, true},
	}
	for _, tc := range cases {
		got, err := parseRetryDelay(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("parseRetryDelay(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("parseRetryDelay(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("parseRetryDelay(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestQuotaDimensionLabels(t *testing.T) {
	cases := []struct {
		quotaID string
		want    string
	}{
		{"GenerateContentInputTokensPerModelPerMinute-FreeTier", "input tokens (per-minute, free tier)"},
		{"GenerateContentOutputTokensPerModelPerDay-PaidTier", "output tokens (per-day (daily quota), paid tier)"},
		{"GenerateRequestsPerMinutePerProjectPerModel-FreeTier", "requests (per-minute, free tier)"},
		{"SomethingUnrecognized", "unknown resource (unknown time period, unknown tier)"},
		{"", ""},
	}
	for _, tc := range cases {
		err := &APIError{QuotaID: tc.quotaID}
		if got := err.QuotaDimension(); got != tc.want {
			t.Fatalf("QuotaDimension(%q) = %q, want %q", tc.quotaID, got, tc.want)
		}
	}
}

func TestParseAPIErrorMalformedDetailIsNonFatal(t *testing.T) {
	body := []byte(`{"error":{"code":429,"message":"slow down","status":"RESOURCE_EXHAUSTED","details":[{"@type":"type.googleapis.com/google.rpc.RetryInfo","retryDelay":"not-a-duration"},"garbage"]}}`)
	apiErr := parseAPIError(429, body)
	if apiErr.Status != "RESOURCE_EXHAUSTED" || apiErr.Message != "slow down" {
		t.Fatalf("unexpected parse result: %+v", apiErr)
	}
	if apiErr.RetryDelay != 0 {
		t.Fatalf("unparseable delay must stay zero, got %v", apiErr.RetryDelay)
	}
}
