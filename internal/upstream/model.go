// Package upstream calls the OpenAI chat-completions and ChatGPT usage
// endpoints on behalf of the active Codex account, refreshing and retrying
// once on an expired access token.
package upstream

import "strings"

// codexModels are the model ids Codex serves unmodified. Anything else
// routed here is coerced to codexDefaultModel.
var codexModels = []string{"gpt-5.2-codex", "gpt-5.1-codex-max", "gpt-5.1-codex-mini"}

const codexDefaultModel = "gpt-5.2-codex"

const openAIAPIBase = "https://api.openai.com/v1"
const chatGPTBackendAPI = "https://chatgpt.com/backend-api"
const codexUserAgent = "codex-cli/1.0.0"

// ShouldUseCodex reports whether a requested model name should be routed
// to the Codex upstream rather than another provider.
func ShouldUseCodex(model string) bool {
	for _, m := range codexModels {
		if m == model {
			return true
		}
	}
	lower := strings.ToLower(model)
	if strings.HasPrefix(lower, "gpt-5") && strings.Contains(lower, "codex") {
		return true
	}
	return strings.HasPrefix(lower, "codex")
}

// ResolveModel maps a requested model name onto one of codexModels,
// falling back to codexDefaultModel when it isn't an exact match.
func ResolveModel(requested string) string {
	for _, m := range codexModels {
		if m == requested {
			return m
		}
	}
	return codexDefaultModel
}
