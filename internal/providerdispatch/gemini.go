package providerdispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// geminiGenerateContentURL is the Cloud Code Private API host the Gemini
// CLI's OAuth mode actually talks to, not the public generativelanguage
// endpoint that serves API-key requests.
const geminiGenerateContentURL = "https://cloudcode-pa.googleapis.com/v1internal:generateContent"

// GeminiPlanner dispatches planner calls through the internal Cloud Code
// relay, authenticated via a TokenSource rather than owning any OAuth state
// itself.
type GeminiPlanner struct {
	Tokens     TokenSource
	HTTPClient *http.Client
	Endpoint   string // defaults to geminiGenerateContentURL
}

func (p GeminiPlanner) Name() string { return "gemini" }

func (p GeminiPlanner) Plan(ctx context.Context, model, prompt string) (string, error) {
	accessToken, projectID, err := p.Tokens.Token(ctx, "agent", model)
	if err != nil {
		return "", fmt.Errorf("gemini router token unavailable: %w", err)
	}

	body := map[string]any{
		"project":   projectID,
		"requestId": "pm-router-" + uuid.NewString(),
		"request": map[string]any{
			"contents": []map[string]any{
				{
					"role":  "user",
					"parts": []map[string]string{{"text": prompt}},
				},
			},
			"generationConfig": map[string]any{
				"temperature":     0.2,
				"maxOutputTokens": 256,
			},
		},
		"model":       model,
		"userAgent":   "antigravity",
		"requestType": "agent",
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encoding gemini router request: %w", err)
	}

	endpoint := p.Endpoint
	if endpoint == "" {
		endpoint = geminiGenerateContentURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building gemini router request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini router request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("gemini router invalid response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("gemini router error %d: %s", resp.StatusCode, string(raw))
	}

	var parsed struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("gemini router invalid response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini router missing content")
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

func (p GeminiPlanner) httpClient() *http.Client {
	if p.HTTPClient != nil {
		return p.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}
