package router

import "strings"

// AllowedModels is the closed set of model ids the PM Router may select.
// Anything else is coerced to the configured fallback model.
var AllowedModels = []string{
	"gpt-5.2-codex",
	"gpt-5.1-codex-max",
	"gpt-5.1-codex-mini",
	"claude-sonnet-4-5",
	"claude-sonnet-4-5-thinking",
	"claude-opus-4-5-thinking",
	"gemini-2.5-pro",
	"gemini-2.5-flash",
	"gemini-2.5-flash-thinking",
	"gemini-2.5-flash-lite",
	"gemini-3-flash",
	"gemini-3-pro-high",
	"gemini-3-pro-low",
	"gemini-3-pro-image",
}

// promptTemplate is the PM Router's prompt contract, reproduced verbatim.
// The nine numbered rules are the planner's only instructions; the model is
// trained-by-prompt against this exact text, so it must not be reworded.
const promptTemplate = `You are the PM Router agent for Antigravity.
Your job is to choose the BEST model for the task and return strict JSON.

RULES (priority):
1) Code implementation quality/CLI workflows -> prefer gpt-5.2-codex, fallback claude-sonnet-4-5, then gemini-2.5-pro.
2) Deep debugging/root cause analysis -> prefer claude-sonnet-4-5-thinking, fallback gpt-5.1-codex-max, then gemini-2.5-pro.
3) Code review/security/testing -> prefer claude-sonnet-4-5, fallback gpt-5.2-codex, then gemini-2.5-pro.
4) Architecture/ADR/high-risk changes -> prefer claude-opus-4-5-thinking, fallback gpt-5.1-codex-max, then claude-sonnet-4-5-thinking.
5) Docs/PRD/summary -> prefer claude-sonnet-4-5, fallback gpt-5.1-codex-mini, then gemini-2.5-flash.
6) Research/comparison -> prefer gemini-2.5-pro, fallback claude-sonnet-4-5, then gpt-5.1-codex-mini.
7) Image/UI/diagram -> prefer gemini-3-pro-image, fallback gemini-2.5-pro, then gpt-5.2-codex.
8) High-volume low-risk -> prefer gemini-2.5-flash or gemini-3-flash.
9) Avoid thinking/max unless needed. If you choose a thinking/max model, set needs_pro=true.

Available model ids:
{{model_list}}

Task context:
- requested_model: {{requested_model}}
- client_user_agent: {{user_agent}}
- has_images: {{has_images}}
- has_tools: {{has_tools}}
- system_prompt: {{system_prompt}}
- recent_messages: {{recent_messages}}

Return ONLY valid JSON:
{
  "selected_model": "model-id",
  "task_type": "coding|debugging|review|architecture|docs|research|image|general",
  "needs_pro": true|false,
  "reason": "short reason"
}
`

// promptFields carries the substitutions for promptTemplate.
type promptFields struct {
	RequestedModel string
	UserAgent      string
	HasImages      bool
	HasTools       bool
	SystemPrompt   string
	RecentMessages string
}

func buildPrompt(f promptFields) string {
	userAgent := f.UserAgent
	if userAgent == "" {
		userAgent = "-"
	}
	systemPrompt := f.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = "-"
	}

	replacer := strings.NewReplacer(
		"{{model_list}}", strings.Join(AllowedModels, ", "),
		"{{requested_model}}", f.RequestedModel,
		"{{user_agent}}", userAgent,
		"{{has_images}}", boolString(f.HasImages),
		"{{has_tools}}", boolString(f.HasTools),
		"{{system_prompt}}", systemPrompt,
		"{{recent_messages}}", f.RecentMessages,
	)
	return replacer.Replace(promptTemplate)
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// isAllowedModel reports whether model is one of AllowedModels.
func isAllowedModel(model string) bool {
	for _, m := range AllowedModels {
		if m == model {
			return true
		}
	}
	return false
}
