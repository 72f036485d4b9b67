package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestGenerateContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models/demo-model:generateContent" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("x-goog-api-key"); got != "test-key" {
			t.Fatalf("unexpected api key header %q", got)
		}
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Contents) != 1 || req.Contents[0].Parts[0].Text != "hello" {
			t.Fatalf("unexpected request payload: %+v", req)
		}
		payload := map[string]any{
			"candidates": []any{
				map[string]any{
					"content": map[string]any{
						"parts": []any{map[string]any{"text": "world"}},
					},
				},
			},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test-key", BaseURL: server.URL, Model: "models/demo-model"})
	text, err := client.GenerateContent(context.Background(), "hello")
	if err != nil {
		t.Fatalf("GenerateContent returned error: %v", err)
	}
	if text != "world" {
		t.Fatalf("expected %q, got %q", "world", text)
	}
}

func TestGenerateContentJoinsParts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"candidates": []any{
				map[string]any{
					"content": map[string]any{
						"parts": []any{
							map[string]any{"text": "first "},
							map[string]any{"text": "second"},
						},
					},
				},
			},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL, Model: "models/m"})
	text, err := client.GenerateContent(context.Background(), "p")
	if err != nil {
		t.Fatalf("GenerateContent returned error: %v", err)
	}
	if text != "first second" {
		t.Fatalf("expected joined parts, got %q", text)
	}
}

func TestGenerateContentRateLimitError(t *testing.T) {
	errorBody := `{
		"error": {
			"code": 429,
			"message": "Quota exceeded for requests per minute.",
			"status": "RESOURCE_EXHAUSTED",
			"details": [
				{
					"@type": "type.googleapis.com/google.rpc.RetryInfo",
					"retryDelay": "12s"
				},
				{
					"@type": "type.googleapis.com/google.rpc.QuotaFailure",
					"violations": [
						{
							"quotaId": "GenerateRequestsPerMinutePerProjectPerModel-FreeTier",
							"quotaValue": "10"
						}
					]
				}
			]
		}
	}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(errorBody))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL, Model: "models/m"})
	_, err := client.GenerateContent(context.Background(), "p")
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", apiErr.StatusCode)
	}
	if apiErr.Status != "RESOURCE_EXHAUSTED" {
		t.Fatalf("expected RESOURCE_EXHAUSTED, got %q", apiErr.Status)
	}
	if apiErr.RetryDelay != 12*time.Second {
		t.Fatalf("expected 12s retry hint, got %v", apiErr.RetryDelay)
	}
	if apiErr.QuotaID != "GenerateRequestsPerMinutePerProjectPerModel-FreeTier" {
		t.Fatalf("unexpected quota id %q", apiErr.QuotaID)
	}
	if apiErr.QuotaValue != "10" {
		t.Fatalf("unexpected quota value %q", apiErr.QuotaValue)
	}
	if got := apiErr.QuotaDimension(); got != "requests (per-minute, free tier)" {
		t.Fatalf("unexpected quota dimension %q", got)
	}
}

func TestGenerateContentNonJSONError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL, Model: "models/m"})
	_, err := client.GenerateContent(context.Background(), "p")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusBadGateway || apiErr.Message != "upstream exploded" {
		t.Fatalf("unexpected error: %+v", apiErr)
	}
	if apiErr.RetryDelay != 0 {
		t.Fatalf("expected no retry hint, got %v", apiErr.RetryDelay)
	}
}

func TestGenerateContentEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"candidates": []any{
				map[string]any{
					"content":      map[string]any{"parts": []any{}},
					"finishReason": "SAFETY",
				},
			},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL, Model: "models/m"})
	_, err := client.GenerateContent(context.Background(), "p")
	if err == nil || !strings.Contains(err.Error(), "SAFETY") {
		t.Fatalf("expected empty-response error with finish reason, got %v", err)
	}
}

func TestGenerateContentRequiresKeyAndPrompt(t *testing.T) {
	client := NewClient(Config{APIKey: "", Model: "models/m"})
	if _, err := client.GenerateContent(context.Background(), "p"); err == nil {
		t.Fatal("expected error without api key")
	}
	client = NewClient(Config{APIKey: "k", Model: "models/m"})
	if _, err := client.GenerateContent(context.Background(), ""); err == nil {
		t.Fatal("expected error without prompt")
	}
}

func TestListModelsFollowsPagination(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path != "/v1beta/models" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		switch r.URL.Query().Get("pageToken") {
		case "":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"models": []any{
					map[string]any{"name": "models/gemini-2.5-pro", "displayName": "Gemini 2.5 Pro"},
				},
				"nextPageToken": "page-2",
			})
		case "page-2":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"models": []any{
					map[string]any{"name": "models/gemini-2.5-flash", "displayName": "Gemini 2.5 Flash"},
				},
			})
		default:
			t.Fatalf("unexpected page token %q", r.URL.Query().Get("pageToken"))
		}
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL, Model: "models/m"})
	models, err := client.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels returned error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 pages fetched, got %d", calls)
	}
	if len(models) != 2 || models[1].Name != "models/gemini-2.5-flash" {
		t.Fatalf("unexpected models: %+v", models)
	}
}
