// Package router implements the PM Router: given an already-parsed
// Claude-shape request, it asks a planner model to pick the best model to
// actually serve the request, then validates and (when needed) escalates
// and coerces that choice.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/majorcontext/codexrelay/internal/codexaccount"
	"github.com/majorcontext/codexrelay/internal/providerdispatch"
	"github.com/majorcontext/codexrelay/internal/upstream"
)

type routerResponse struct {
	SelectedModel string `json:"selected_model"`
	TaskType      string `json:"task_type"`
	NeedsPro      bool   `json:"needs_pro"`
	Reason        string `json:"reason"`
}

// Decide runs the full PM Router pipeline for req and returns the model to
// serve it with. Callers are expected to have already gated on
// Config.ShouldApply.
func Decide(ctx context.Context, cfg Config, req Request, userAgent string) (codexaccount.RouterDecision, error) {
	recentContext := buildContext(req.Messages, cfg.MaxContextChars)
	prompt := buildPrompt(promptFields{
		RequestedModel: req.Model,
		UserAgent:      userAgent,
		HasImages:      hasAnyImage(req.Messages),
		HasTools:       len(req.Tools) > 0,
		SystemPrompt:   req.System.Render(),
		RecentMessages: recentContext,
	})

	liteResponse, usedLiteModel, err := callWithFallback(ctx, cfg, cfg.PMLiteModel, prompt)
	if err != nil {
		return codexaccount.RouterDecision{}, fmt.Errorf("pm-router lite stage: %w", err)
	}

	parsedLite, err := parseRouterResponse(liteResponse)
	if err != nil {
		return codexaccount.RouterDecision{}, fmt.Errorf("pm-router lite stage: %w", err)
	}

	selected := validateModel(parsedLite.SelectedModel, cfg.FallbackModel)
	usedRouterModel := usedLiteModel
	usedPro := false

	if parsedLite.NeedsPro || cfg.shouldEscalateToPro(recentContext) {
		if proResponse, usedProModel, ok := tryProStage(ctx, cfg, prompt); ok {
			if parsedPro, err := parseRouterResponse(proResponse); err == nil {
				selected = validateModel(parsedPro.SelectedModel, cfg.FallbackModel)
				usedRouterModel = usedProModel
				usedPro = true
			}
		}
	}

	if upstream.ShouldUseCodex(selected) {
		slog.Warn("pm-router: selected codex model unsupported for claude protocol, falling back",
			"selected", selected, "fallback", cfg.FallbackModel)
		selected = cfg.FallbackModel
	}

	return codexaccount.RouterDecision{
		SelectedModel:   selected,
		Reason:          parsedLite.Reason,
		TaskType:        parsedLite.TaskType,
		UsedRouterModel: usedRouterModel,
		UsedPro:         usedPro,
	}, nil
}

// tryProStage invokes the pro planner and reports whether a usable response
// was obtained. A pro failure degrades gracefully to the lite decision
// rather than failing the whole request — it is logged, not returned.
func tryProStage(ctx context.Context, cfg Config, prompt string) (response, usedModel string, ok bool) {
	response, usedModel, err := callWithFallback(ctx, cfg, cfg.PMProModel, prompt)
	if err != nil {
		slog.Warn("pm-router: pro stage failed, degrading to lite decision", "error", err)
		return "", "", false
	}
	return response, usedModel, true
}

// callWithFallback calls model with prompt; if model is a Codex model and
// the call fails because no Codex token is available, it retries once
// against the configured fallback model instead of failing outright.
func callWithFallback(ctx context.Context, cfg Config, model, prompt string) (response, usedModel string, err error) {
	response, err = callRouterModel(ctx, model, prompt)
	if err == nil {
		return response, model, nil
	}
	if upstream.ShouldUseCodex(model) && isCodexTokenUnavailable(err) {
		slog.Info("pm-router: codex router unavailable, using fallback router", "model", model, "fallback", cfg.FallbackModel)
		response, err = callRouterModel(ctx, cfg.FallbackModel, prompt)
		if err != nil {
			return "", "", err
		}
		return response, cfg.FallbackModel, nil
	}
	return "", "", err
}

func callRouterModel(ctx context.Context, model, prompt string) (string, error) {
	name := plannerNameFor(model)
	canonical := providerdispatch.ResolveName(name)
	planner := providerdispatch.Get(canonical)
	if planner == nil {
		return "", providerdispatch.ErrPlannerNotFound{Name: canonical}
	}
	return planner.Plan(ctx, model, prompt)
}

// plannerNameFor maps a model id onto the planner family that serves it.
func plannerNameFor(model string) string {
	switch {
	case upstream.ShouldUseCodex(model):
		return "codex"
	case strings.HasPrefix(model, "gemini"):
		return "gemini"
	default:
		return "anthropic"
	}
}

// isCodexTokenUnavailable reports whether err indicates the Codex planner
// couldn't run for lack of a usable token, as opposed to a transient
// upstream failure — the trigger for retrying against the fallback router
// rather than failing the whole request.
func isCodexTokenUnavailable(err error) bool {
	if errors.Is(err, upstream.ErrNoAccounts) {
		return true
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "token pool is empty") ||
		strings.Contains(lower, "provider: codex") ||
		strings.Contains(lower, "token error") ||
		strings.Contains(lower, "no codex accounts")
}

func validateModel(selected, fallback string) string {
	trimmed := strings.TrimSpace(selected)
	if isAllowedModel(trimmed) {
		return trimmed
	}
	return fallback
}

func parseRouterResponse(raw string) (routerResponse, error) {
	cleaned := strings.TrimSpace(raw)
	jsonStr := cleaned
	if start := strings.Index(cleaned, "{"); start >= 0 {
		if end := strings.LastIndex(cleaned, "}"); end >= start {
			jsonStr = cleaned[start : end+1]
		}
	}

	var resp routerResponse
	if err := json.Unmarshal([]byte(jsonStr), &resp); err != nil {
		return routerResponse{}, fmt.Errorf("router JSON parse error: %w", err)
	}
	return resp, nil
}
