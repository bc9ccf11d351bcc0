package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// GlobalConfig holds settings read from ~/.codexrelay/config.yaml.
type GlobalConfig struct {
	Router RouterConfig `yaml:"router"`
	Debug  DebugConfig  `yaml:"debug"`
}

// RouterConfig carries the PM-Router's tunables.
type RouterConfig struct {
	Enabled         bool     `yaml:"enabled"`
	Scope           string   `yaml:"scope"` // "all-requests" or "cli-only"
	LiteModel       string   `yaml:"lite_model"`
	ProModel        string   `yaml:"pro_model"`
	FallbackModel   string   `yaml:"fallback_model"`
	ProKeywords     []string `yaml:"pro_keywords"`
	CLIUserAgents   []string `yaml:"cli_user_agents"`
	MaxContextChars int      `yaml:"max_context_chars"`
}

// DebugConfig controls the rotating JSONL debug log.
type DebugConfig struct {
	Enabled       bool `yaml:"enabled"`
	RetentionDays int  `yaml:"retention_days"`
}

// DefaultGlobalConfig returns the built-in defaults, matching pm_router's
// own hardcoded defaults.
func DefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		Router: RouterConfig{
			Enabled:         true,
			Scope:           "all-requests",
			LiteModel:       "gemini-2.5-flash",
			ProModel:        "claude-opus-4-5-thinking",
			FallbackModel:   "claude-sonnet-4-5",
			ProKeywords:     []string{"architecture", "security", "production"},
			CLIUserAgents:   []string{"codex-cli", "claude-code"},
			MaxContextChars: 4000,
		},
		Debug: DebugConfig{
			Enabled:       false,
			RetentionDays: 14,
		},
	}
}

// LoadGlobal reads ~/.codexrelay/config.yaml over the defaults, then
// applies CODEXRELAY_* environment overrides. A missing or malformed file
// is not an error; it just leaves the defaults in place.
func LoadGlobal() (*GlobalConfig, error) {
	cfg := DefaultGlobalConfig()

	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, ".codexrelay", "config.yaml")
		if data, err := os.ReadFile(path); err == nil {
			_ = yaml.Unmarshal(data, cfg)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *GlobalConfig) {
	if v := os.Getenv("CODEXRELAY_ROUTER_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Router.Enabled = b
		}
	}
	if v := os.Getenv("CODEXRELAY_ROUTER_SCOPE"); v != "" {
		cfg.Router.Scope = v
	}
	if v := os.Getenv("CODEXRELAY_ROUTER_LITE_MODEL"); v != "" {
		cfg.Router.LiteModel = v
	}
	if v := os.Getenv("CODEXRELAY_ROUTER_PRO_MODEL"); v != "" {
		cfg.Router.ProModel = v
	}
	if v := os.Getenv("CODEXRELAY_ROUTER_FALLBACK_MODEL"); v != "" {
		cfg.Router.FallbackModel = v
	}
	if v := os.Getenv("CODEXRELAY_ROUTER_PRO_KEYWORDS"); v != "" {
		cfg.Router.ProKeywords = splitCSV(v)
	}
	if v := os.Getenv("CODEXRELAY_ROUTER_MAX_CONTEXT_CHARS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Router.MaxContextChars = n
		}
	}
	if v := os.Getenv("CODEXRELAY_DEBUG_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Debug.Enabled = b
		}
	}
	if v := os.Getenv("CODEXRELAY_DEBUG_RETENTION_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Debug.RetentionDays = n
		}
	}
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// GlobalConfigDir returns ~/.codexrelay, falling back to a relative path
// if the home directory can't be resolved.
func GlobalConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".codexrelay")
	}
	return filepath.Join(home, ".codexrelay")
}
