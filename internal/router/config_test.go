package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigShouldApplyDisabled(t *testing.T) {
	cfg := Config{Enabled: false, Scope: ScopeAllRequests}
	assert.False(t, cfg.ShouldApply("anything"))
}

func TestConfigShouldApplyAllRequests(t *testing.T) {
	cfg := Config{Enabled: true, Scope: ScopeAllRequests}
	assert.True(t, cfg.ShouldApply(""))
}

func TestConfigShouldApplyCLIOnly(t *testing.T) {
	cfg := Config{Enabled: true, Scope: ScopeCLIOnly, CLIUserAgents: []string{"Codex-CLI", "claude-code"}}

	assert.True(t, cfg.ShouldApply("codex-cli/1.0.0"))
	assert.True(t, cfg.ShouldApply("my-app claude-code/2.0"))
	assert.False(t, cfg.ShouldApply("mozilla/5.0"))
}

func TestConfigShouldEscalateToPro(t *testing.T) {
	cfg := Config{ProKeywords: []string{"architecture", "SECURITY"}}

	assert.True(t, cfg.shouldEscalateToPro("this is an Architecture decision"))
	assert.True(t, cfg.shouldEscalateToPro("review for security issues"))
	assert.False(t, cfg.shouldEscalateToPro("just a docs update"))
}

func TestConfigShouldEscalateToProEmptyKeywords(t *testing.T) {
	cfg := Config{}
	assert.False(t, cfg.shouldEscalateToPro("architecture review"))
}
