package router

import "strings"

// Scope controls which inbound requests the PM Router runs for.
type Scope string

const (
	ScopeAllRequests Scope = "all-requests"
	ScopeCLIOnly     Scope = "cli-only"
)

// Config carries the PM Router's tunables. The zero value is inert
// (Enabled defaults to false), so a Config must be explicitly populated
// before Decide is called. internal/config's RouterConfig carries the same
// tunables; nothing in this module converts one into the other.
type Config struct {
	Enabled         bool
	Scope           Scope
	PMLiteModel     string
	PMProModel      string
	FallbackModel   string
	ProKeywords     []string
	CLIUserAgents   []string
	MaxContextChars int
}

// ShouldApply reports whether the router should run at all for a request
// carrying the given user-agent header value.
func (c Config) ShouldApply(userAgent string) bool {
	if !c.Enabled {
		return false
	}
	switch c.Scope {
	case ScopeCLIOnly:
		lower := strings.ToLower(userAgent)
		for _, needle := range c.CLIUserAgents {
			if strings.Contains(lower, strings.ToLower(needle)) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// shouldEscalateToPro reports whether context contains a configured
// pro-escalation keyword.
func (c Config) shouldEscalateToPro(context string) bool {
	if len(c.ProKeywords) == 0 {
		return false
	}
	lower := strings.ToLower(context)
	for _, kw := range c.ProKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
