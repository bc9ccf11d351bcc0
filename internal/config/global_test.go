package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadGlobalConfigFromFile(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	configDir := filepath.Join(tmpHome, ".codexrelay")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	content := `
router:
  enabled: true
  scope: cli-only
  lite_model: gemini-2.5-flash
  pro_model: claude-opus-4-5-thinking
  fallback_model: claude-sonnet-4-5
  max_context_chars: 9000
debug:
  enabled: true
  retention_days: 30
`
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadGlobal()
	if err != nil {
		t.Fatalf("LoadGlobal: %v", err)
	}
	if cfg.Router.Scope != "cli-only" {
		t.Errorf("Router.Scope = %q, want cli-only", cfg.Router.Scope)
	}
	if cfg.Router.MaxContextChars != 9000 {
		t.Errorf("Router.MaxContextChars = %d, want 9000", cfg.Router.MaxContextChars)
	}
	if cfg.Debug.RetentionDays != 30 {
		t.Errorf("Debug.RetentionDays = %d, want 30", cfg.Debug.RetentionDays)
	}
}

func TestLoadGlobalConfigDefaults(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	cfg, err := LoadGlobal()
	if err != nil {
		t.Fatalf("LoadGlobal: %v", err)
	}
	if cfg.Router.Scope != "all-requests" {
		t.Errorf("Router.Scope = %q, want all-requests", cfg.Router.Scope)
	}
	if cfg.Router.FallbackModel != "claude-sonnet-4-5" {
		t.Errorf("Router.FallbackModel = %q, want claude-sonnet-4-5", cfg.Router.FallbackModel)
	}
	if cfg.Debug.Enabled {
		t.Errorf("Debug.Enabled = true, want false by default")
	}
}

func TestLoadGlobalConfigEnvOverride(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)
	t.Setenv("CODEXRELAY_ROUTER_SCOPE", "cli-only")
	t.Setenv("CODEXRELAY_ROUTER_MAX_CONTEXT_CHARS", "1234")
	t.Setenv("CODEXRELAY_ROUTER_PRO_KEYWORDS", "alpha, beta ,gamma")
	t.Setenv("CODEXRELAY_DEBUG_ENABLED", "true")

	cfg, err := LoadGlobal()
	if err != nil {
		t.Fatalf("LoadGlobal: %v", err)
	}
	if cfg.Router.Scope != "cli-only" {
		t.Errorf("Router.Scope = %q, want cli-only", cfg.Router.Scope)
	}
	if cfg.Router.MaxContextChars != 1234 {
		t.Errorf("Router.MaxContextChars = %d, want 1234", cfg.Router.MaxContextChars)
	}
	want := []string{"alpha", "beta", "gamma"}
	if len(cfg.Router.ProKeywords) != len(want) {
		t.Fatalf("Router.ProKeywords = %v, want %v", cfg.Router.ProKeywords, want)
	}
	for i, w := range want {
		if cfg.Router.ProKeywords[i] != w {
			t.Errorf("Router.ProKeywords[%d] = %q, want %q", i, cfg.Router.ProKeywords[i], w)
		}
	}
	if !cfg.Debug.Enabled {
		t.Errorf("Debug.Enabled = false, want true from env")
	}
}

func TestGlobalConfigDir(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	dir := GlobalConfigDir()
	if dir != filepath.Join(tmpHome, ".codexrelay") {
		t.Errorf("GlobalConfigDir = %q, want %s", dir, filepath.Join(tmpHome, ".codexrelay"))
	}
}
