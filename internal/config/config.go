package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Config is the engine configuration.
//
// Notes:
//   - Secrets (api keys) should come from the environment in production; the
//     api_key field exists for local development only.
//   - Field names are snake_case to match the agents file surface.
type Config struct {
	// WorkspaceRoot is the directory all relative tool paths resolve against.
	WorkspaceRoot string `json:"workspace_root"`

	// Provider selects and configures the model backend.
	Provider ProviderConfig `json:"provider"`

	// CachingEnabled toggles the tool result cache. Defaults to true.
	CachingEnabled *bool `json:"caching_enabled,omitempty"`

	// MaxConcurrency caps parallel tool execution in batches. Defaults to 10.
	MaxConcurrency int `json:"max_concurrency,omitempty"`

	// DefaultTimeoutMS applies to tools whose schema declares no timeout.
	DefaultTimeoutMS int `json:"default_timeout_ms,omitempty"`

	// AgentsFile points at the YAML subagent definitions.
	AgentsFile string `json:"agents_file,omitempty"`

	// AuditLogDir enables the JSONL run audit log when set.
	AuditLogDir string `json:"audit_log_dir,omitempty"`

	// TraceDBPath enables the SQLite tool-call trace store when set.
	TraceDBPath string `json:"trace_db_path,omitempty"`

	// LogLevel is "debug|info|warn|error".
	LogLevel string `json:"log_level,omitempty"`
}

type ProviderConfig struct {
	// Type is one of: "openai" | "anthropic" | "openai_compatible".
	Type string `json:"type"`

	// APIKeyEnv names the environment variable holding the key. Checked
	// before APIKey.
	APIKeyEnv string `json:"api_key_env,omitempty"`

	APIKey  string `json:"api_key,omitempty"`
	BaseURL string `json:"base_url,omitempty"`
}

// ResolveAPIKey prefers the configured environment variable over the inline
// key.
func (p ProviderConfig) ResolveAPIKey() string {
	if name := strings.TrimSpace(p.APIKeyEnv); name != "" {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return strings.TrimSpace(p.APIKey)
}

// Load reads and validates a JSON config file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the fields the engine cannot default.
func (c Config) Validate() error {
	if strings.TrimSpace(c.WorkspaceRoot) == "" {
		return errors.New("workspace_root is required")
	}
	switch strings.ToLower(strings.TrimSpace(c.Provider.Type)) {
	case "openai", "anthropic", "openai_compatible":
	case "":
		return errors.New("provider.type is required")
	default:
		return fmt.Errorf("unsupported provider.type %q", c.Provider.Type)
	}
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported log_level %q", c.LogLevel)
	}
	if c.MaxConcurrency < 0 {
		return errors.New("max_concurrency must not be negative")
	}
	return nil
}

// Caching reports the effective cache toggle.
func (c Config) Caching() bool {
	if c.CachingEnabled == nil {
		return true
	}
	return *c.CachingEnabled
}
