package subagent

import (
	"errors"
	"strings"
	"testing"

	"github.com/harborml/agent-engine/internal/schema"
)

func validConfig() Config {
	return Config{
		ID:            "reviewer",
		Name:          "Code Reviewer",
		Description:   "Reviews changes for defects",
		SystemPrompt:  "You review code changes and report defects with file and line references.",
		Model:         "claude-sonnet-4-5",
		Tools:         []string{"read_file", "search_files", "git_diff"},
		RouteKeywords: []string{"review"},
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	t.Parallel()

	f := NewFactory(schema.NewRegistry(), nil)
	cfg := validConfig()
	cfg.SystemPrompt = "short"
	cfg.Tools = []string{"read_file", "no_such_tool"}
	cfg.MaxIterations = 99
	cfg.RoutePatterns = []string{"("}

	result := f.Validate(cfg)
	if result.Valid() {
		t.Fatalf("expected validation errors")
	}
	if len(result.Errors) != 4 {
		t.Fatalf("errors=%v, want 4 collected (prompt, tool, iterations, pattern)", result.Errors)
	}
}

func TestValidate_WarningsDoNotBlock(t *testing.T) {
	t.Parallel()

	f := NewFactory(schema.NewRegistry(), nil)
	cfg := validConfig()
	cfg.Model = "totally-novel-model"
	cfg.RouteKeywords = nil

	result := f.Validate(cfg)
	if !result.Valid() {
		t.Fatalf("errors=%v, want none", result.Errors)
	}
	if len(result.Warnings) != 2 {
		t.Fatalf("warnings=%v, want model and routing warnings", result.Warnings)
	}
}

func TestValidate_BoundsChecks(t *testing.T) {
	t.Parallel()

	f := NewFactory(schema.NewRegistry(), nil)

	temp := 2.5
	cfg := validConfig()
	cfg.Temperature = &temp
	if f.Validate(cfg).Valid() {
		t.Fatalf("temperature 2.5 should fail")
	}

	tokens := 50
	cfg = validConfig()
	cfg.MaxTokens = &tokens
	if f.Validate(cfg).Valid() {
		t.Fatalf("max_tokens 50 should fail")
	}

	cfg = validConfig()
	cfg.MaxIterations = 50
	if !f.Validate(cfg).Valid() {
		t.Fatalf("max_iterations 50 is in range")
	}
}

func TestResolveModelBinding(t *testing.T) {
	t.Parallel()

	binding, ok := resolveModelBinding("claude-opus-4-1")
	if !ok || binding.Provider != "anthropic" {
		t.Fatalf("binding=%+v ok=%v, want exact anthropic match", binding, ok)
	}

	binding, ok = resolveModelBinding("my-custom-claude-build")
	if !ok || binding.Provider != "anthropic" {
		t.Fatalf("binding=%+v ok=%v, want substring inference", binding, ok)
	}

	binding, ok = resolveModelBinding("GPT-5-MINI")
	if !ok || binding.Provider != "openai" {
		t.Fatalf("binding=%+v ok=%v, want case-insensitive exact match", binding, ok)
	}

	if _, ok = resolveModelBinding("mystery-9000"); ok {
		t.Fatalf("unmappable model should not resolve")
	}
}

func TestCreate_ExpandsAllAndResolvesTools(t *testing.T) {
	t.Parallel()

	reg := schema.NewRegistry()
	f := NewFactory(reg, nil)

	cfg := validConfig()
	cfg.Tools = []string{"all"}
	desc, err := f.Create(cfg)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(desc.Tools) != len(reg.Names()) {
		t.Fatalf("tools=%d, want full catalog of %d", len(desc.Tools), len(reg.Names()))
	}

	cfg = validConfig()
	desc, err = f.Create(cfg)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(desc.Tools) != 3 {
		t.Fatalf("tools=%d, want=3", len(desc.Tools))
	}
	for _, tool := range desc.Tools {
		if len(tool.InputSchema) == 0 {
			t.Fatalf("tool %q missing input schema", tool.Name)
		}
	}
}

func TestCreate_FallsBackOnUnknownModel(t *testing.T) {
	t.Parallel()

	f := NewFactory(schema.NewRegistry(), nil)
	cfg := validConfig()
	cfg.Model = "mystery-9000"

	desc, err := f.Create(cfg)
	if err != nil {
		t.Fatalf("unknown model must not fail create: %v", err)
	}
	if desc.Binding != defaultModelBinding {
		t.Fatalf("binding=%+v, want default %+v", desc.Binding, defaultModelBinding)
	}
}

func TestCreate_FailsFastOnInvalidConfig(t *testing.T) {
	t.Parallel()

	f := NewFactory(schema.NewRegistry(), nil)
	cfg := validConfig()
	cfg.Tools = []string{"no_such_tool"}

	_, err := f.Create(cfg)
	if err == nil {
		t.Fatalf("expected config error")
	}
	var cerr *ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("err=%T, want *ConfigError", err)
	}
	if !strings.Contains(cerr.Error(), "no_such_tool") {
		t.Fatalf("error=%q, want offending tool named", cerr.Error())
	}
}
