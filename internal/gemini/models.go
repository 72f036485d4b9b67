package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// ModelInfo describes one model available to the configured API key.
type ModelInfo struct {
	Name             string `json:"name"`
	DisplayName      string `json:"displayName"`
	InputTokenLimit  int    `json:"inputTokenLimit"`
	OutputTokenLimit int    `json:"outputTokenLimit"`
}

type listModelsResponse struct {
	Models        []ModelInfo `json:"models"`
	NextPageToken string      `json:"nextPageToken"`
}

// ListModels returns every model the API key can see, following pagination.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	if c.cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini models: api key required")
	}

	var models []ModelInfo
	pageToken := ""
	for {
		page, next, err := c.listModelsPage(ctx, pageToken)
		if err != nil {
			return nil, err
		}
		models = append(models, page...)
		if next == "" {
			return models, nil
		}
		pageToken = next
	}
}

func (c *Client) listModelsPage(ctx context.Context, pageToken string) ([]ModelInfo, string, error) {
	endpoint := c.cfg.BaseURL + "/v1beta/models?pageSize=200"
	if pageToken != "" {
		endpoint += "&pageToken=" + url.QueryEscape(pageToken)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, "", fmt.Errorf("gemini models: new request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("gemini models: http error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("gemini models: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("gemini models: %w", parseAPIError(resp.StatusCode, body))
	}

	var decoded listModelsResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, "", fmt.Errorf("gemini models: decode response: %w", err)
	}
	return decoded.Models, decoded.NextPageToken, nil
}
