package providerdispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/majorcontext/codexrelay/internal/upstream"
)

// CodexPlanner dispatches planner calls to the Codex chat-completions
// endpoint through upstream.Caller, the same path the direct Codex chat
// proxy uses: the store's active account, or the first stored account when
// none is active, whatever its auth mode.
type CodexPlanner struct {
	Caller *upstream.Caller
}

func (p CodexPlanner) Name() string { return "codex" }

func (p CodexPlanner) Plan(ctx context.Context, model, prompt string) (string, error) {
	body := map[string]any{
		"model": model,
		"messages": []map[string]string{
			{"role": "system", "content": "Return ONLY JSON."},
			{"role": "user", "content": prompt},
		},
		"temperature": 0.2,
		"max_tokens":  256,
	}

	result, err := p.Caller.ChatCompletion(ctx, body)
	if err != nil {
		return "", fmt.Errorf("codex router request failed: %w", err)
	}
	if result.Status < 200 || result.Status >= 300 {
		return "", fmt.Errorf("codex router error %d: %s", result.Status, string(result.Body))
	}

	var payload struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(result.Body, &payload); err != nil {
		return "", fmt.Errorf("codex router invalid response: %w", err)
	}
	if len(payload.Choices) == 0 {
		return "", fmt.Errorf("codex router missing content")
	}
	return payload.Choices[0].Message.Content, nil
}
