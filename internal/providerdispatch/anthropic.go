package providerdispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const anthropicMessagesURL = "https://api.anthropic.com/v1/messages"
const anthropicVersion = "2023-06-01"

// ErrAnthropicDisabled is returned by AnthropicPlanner.Plan when no API key
// is configured. The router dispatches every planner model id that is
// neither a Codex nor a Gemini id (every claude-* id in its allow-list) to
// the planner registered as "anthropic", so an unconfigured planner fails
// closed with this error, distinct from a network failure, rather than
// silently falling back.
var ErrAnthropicDisabled = fmt.Errorf("anthropic planner: no API key configured")

// AnthropicPlanner dispatches planner calls directly to the Anthropic
// Messages API using a static API key, independent of any account in the
// Codex store.
type AnthropicPlanner struct {
	APIKey     string
	HTTPClient *http.Client
	APIURL     string // defaults to anthropicMessagesURL
}

func (p AnthropicPlanner) Name() string { return "anthropic" }

func (p AnthropicPlanner) Plan(ctx context.Context, model, prompt string) (string, error) {
	if p.APIKey == "" {
		return "", ErrAnthropicDisabled
	}

	body := map[string]any{
		"model":      model,
		"max_tokens": 256,
		"system":     "Return ONLY JSON.",
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encoding anthropic router request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL(), bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building anthropic router request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := p.httpClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("anthropic router request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("anthropic router invalid response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("anthropic router error %d: %s", resp.StatusCode, string(raw))
	}

	var parsed struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("anthropic router invalid response: %w", err)
	}
	if len(parsed.Content) == 0 {
		return "", fmt.Errorf("anthropic router missing content")
	}
	return parsed.Content[0].Text, nil
}

func (p AnthropicPlanner) httpClient() *http.Client {
	if p.HTTPClient != nil {
		return p.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}
