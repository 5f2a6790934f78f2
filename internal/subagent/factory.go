package subagent

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/harborml/agent-engine/internal/runtime"
	"github.com/harborml/agent-engine/internal/schema"
)

const (
	minSystemPromptLen = 20
	maxIterationsFloor = 1
	maxIterationsCeil  = 50
	maxTokensFloor     = 100
	maxTokensCeil      = 100000

	defaultMaxIterations = 10
)

// ModelBinding is an explicit (provider, model) pair resolved once at
// configuration time.
type ModelBinding struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

var defaultModelBinding = ModelBinding{Provider: "anthropic", Model: "claude-sonnet-4-5"}

// exactModelBindings maps configured model identifiers to their binding.
var exactModelBindings = map[string]ModelBinding{
	"claude-sonnet-4-5": {Provider: "anthropic", Model: "claude-sonnet-4-5"},
	"claude-opus-4-1":   {Provider: "anthropic", Model: "claude-opus-4-1"},
	"claude-haiku-4-5":  {Provider: "anthropic", Model: "claude-haiku-4-5"},
	"gpt-5":             {Provider: "openai", Model: "gpt-5"},
	"gpt-5-mini":        {Provider: "openai", Model: "gpt-5-mini"},
	"gpt-4.1":           {Provider: "openai", Model: "gpt-4.1"},
	"o3":                {Provider: "openai", Model: "o3"},
}

// substring inference keyed by family keyword, checked in order.
var modelFamilyHints = []struct {
	keyword string
	binding ModelBinding
}{
	{"claude", ModelBinding{Provider: "anthropic", Model: "claude-sonnet-4-5"}},
	{"opus", ModelBinding{Provider: "anthropic", Model: "claude-opus-4-1"}},
	{"sonnet", ModelBinding{Provider: "anthropic", Model: "claude-sonnet-4-5"}},
	{"haiku", ModelBinding{Provider: "anthropic", Model: "claude-haiku-4-5"}},
	{"gpt", ModelBinding{Provider: "openai", Model: "gpt-5"}},
	{"o3", ModelBinding{Provider: "openai", Model: "o3"}},
	{"o4", ModelBinding{Provider: "openai", Model: "gpt-5"}},
}

// resolveModelBinding tries the exact table, then substring inference.
func resolveModelBinding(model string) (ModelBinding, bool) {
	model = strings.ToLower(strings.TrimSpace(model))
	if model == "" {
		return ModelBinding{}, false
	}
	if binding, ok := exactModelBindings[model]; ok {
		return binding, true
	}
	for _, hint := range modelFamilyHints {
		if strings.Contains(model, hint.keyword) {
			return hint.binding, true
		}
	}
	return ModelBinding{}, false
}

// Descriptor is a validated agent ready to hand to the runtime.
type Descriptor struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	SystemPrompt string            `json:"system_prompt"`
	Binding      ModelBinding      `json:"binding"`
	Tools        []runtime.ToolDef `json:"tools"`

	MaxIterations int      `json:"max_iterations"`
	Temperature   *float64 `json:"temperature,omitempty"`
	MaxTokens     *int     `json:"max_tokens,omitempty"`
}

// ValidationResult collects all problems instead of short-circuiting on the
// first. Warnings never block construction.
type ValidationResult struct {
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func (v ValidationResult) Valid() bool { return len(v.Errors) == 0 }

// ConfigError is the fail-fast construction error; everything downstream of
// the factory converts failures to result data instead.
type ConfigError struct {
	AgentID string
	Errors  []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid subagent config %q: %s", e.AgentID, strings.Join(e.Errors, "; "))
}

// Factory validates configs and builds agent descriptors.
type Factory struct {
	schemas *schema.Registry
	log     *slog.Logger
}

func NewFactory(schemas *schema.Registry, logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{schemas: schemas, log: logger}
}

// Validate runs every structural check and returns the full list of errors
// and warnings.
func (f *Factory) Validate(cfg Config) ValidationResult {
	var result ValidationResult
	fail := func(format string, args ...any) {
		result.Errors = append(result.Errors, fmt.Sprintf(format, args...))
	}
	warn := func(format string, args ...any) {
		result.Warnings = append(result.Warnings, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(cfg.ID) == "" {
		fail("missing agent id")
	}
	if strings.TrimSpace(cfg.Name) == "" {
		fail("missing agent name")
	}
	if len(strings.TrimSpace(cfg.SystemPrompt)) < minSystemPromptLen {
		fail("system prompt must be at least %d characters", minSystemPromptLen)
	}

	for _, tool := range cfg.Tools {
		tool = strings.TrimSpace(tool)
		if tool == "all" {
			continue
		}
		if !f.schemas.Has(tool) {
			fail("unknown tool: %s", tool)
		}
	}

	if _, ok := resolveModelBinding(cfg.Model); !ok {
		if strings.TrimSpace(cfg.Model) == "" {
			warn("no model configured; the default binding %s/%s will be used", defaultModelBinding.Provider, defaultModelBinding.Model)
		} else {
			warn("model %q not recognized; the default binding %s/%s will be used", cfg.Model, defaultModelBinding.Provider, defaultModelBinding.Model)
		}
	}

	if cfg.MaxIterations != 0 && (cfg.MaxIterations < maxIterationsFloor || cfg.MaxIterations > maxIterationsCeil) {
		fail("max_iterations must be in [%d,%d], got %d", maxIterationsFloor, maxIterationsCeil, cfg.MaxIterations)
	}
	if cfg.Temperature != nil && (*cfg.Temperature < 0 || *cfg.Temperature > 2) {
		fail("temperature must be in [0,2], got %g", *cfg.Temperature)
	}
	if cfg.MaxTokens != nil && (*cfg.MaxTokens < maxTokensFloor || *cfg.MaxTokens > maxTokensCeil) {
		fail("max_tokens must be in [%d,%d], got %d", maxTokensFloor, maxTokensCeil, *cfg.MaxTokens)
	}

	for _, pattern := range cfg.RoutePatterns {
		if _, err := regexp.Compile(pattern); err != nil {
			fail("routing pattern %q does not compile: %v", pattern, err)
		}
	}
	if len(cfg.RouteKeywords) == 0 && len(cfg.RoutePatterns) == 0 {
		warn("agent %q defines no routing keywords or patterns", cfg.ID)
	}

	return result
}

// Create re-validates, expands the tool grant, resolves the model binding
// and returns the descriptor. The only error is a failed validation; an
// unresolvable model falls back to the default binding with a logged
// warning instead.
func (f *Factory) Create(cfg Config) (Descriptor, error) {
	result := f.Validate(cfg)
	if !result.Valid() {
		return Descriptor{}, &ConfigError{AgentID: cfg.ID, Errors: result.Errors}
	}

	var defs []schema.FunctionDef
	if cfg.GrantsAllTools() {
		defs = f.schemas.FunctionDefs()
	} else {
		defs = f.schemas.FunctionDefsFor(cfg.Tools)
	}
	tools := make([]runtime.ToolDef, 0, len(defs))
	for _, def := range defs {
		tools = append(tools, runtime.ToolDef{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.Parameters,
		})
	}

	binding, ok := resolveModelBinding(cfg.Model)
	if !ok {
		binding = defaultModelBinding
		f.log.Warn("model not recognized, using default binding",
			"agent", cfg.ID, "model", cfg.Model,
			"provider", binding.Provider, "resolved", binding.Model)
	}

	maxIterations := cfg.MaxIterations
	if maxIterations == 0 {
		maxIterations = defaultMaxIterations
	}

	return Descriptor{
		ID:            cfg.ID,
		Name:          cfg.Name,
		Description:   strings.TrimSpace(cfg.Description),
		SystemPrompt:  strings.TrimSpace(cfg.SystemPrompt),
		Binding:       binding,
		Tools:         tools,
		MaxIterations: maxIterations,
		Temperature:   cfg.Temperature,
		MaxTokens:     cfg.MaxTokens,
	}, nil
}
