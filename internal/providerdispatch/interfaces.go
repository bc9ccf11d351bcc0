package providerdispatch

import "context"

// Planner is a capability, not a credential: given a model id and a plain
// text prompt, produce the model's raw text response. The router package
// expects that response to be (or contain) a JSON object, but parsing it is
// the router's job, not the planner's.
type Planner interface {
	// Name returns the planner identifier (e.g. "codex", "gemini", "anthropic").
	Name() string

	// Plan sends prompt to model and returns the model's raw text response.
	Plan(ctx context.Context, model, prompt string) (string, error)
}

// TokenSource is the interface this module calls the generic, non-Codex
// token manager through. Its implementation lives outside this module; only
// the shape it is called through is defined here.
type TokenSource interface {
	// Token returns a bearer token for provider (e.g. "agent" for the Gemini
	// Cloud Code relay) usable with model. projectID is non-empty only when
	// the provider requires a GCP project scope (Gemini's Cloud Code Private
	// API). AnthropicPlanner uses its static APIKey and does not call it.
	Token(ctx context.Context, provider, model string) (token, projectID string, err error)
}
