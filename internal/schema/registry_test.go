package schema

import (
	"encoding/json"
	"testing"
)

func TestRegistry_LookupExact(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	s, ok := r.Lookup("read_file")
	if !ok {
		t.Fatalf("expected read_file in catalog")
	}
	if s.Category != CategoryRead {
		t.Fatalf("category=%q, want=%q", s.Category, CategoryRead)
	}
	if !s.Cacheable || s.CacheTimeoutMS <= 0 {
		t.Fatalf("read_file should be cacheable with a TTL")
	}
}

func TestRegistry_LookupMissReturnsFalse(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if _, ok := r.Lookup("does_not_exist"); ok {
		t.Fatalf("expected miss for unknown tool")
	}
	if _, ok := r.Lookup(""); ok {
		t.Fatalf("expected miss for empty name")
	}
}

func TestRegistry_AliasResolvesToOneCanonicalName(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	canonical, ok := r.Resolve("list_files")
	if !ok {
		t.Fatalf("expected alias list_files to resolve")
	}
	if canonical != "list_directory" {
		t.Fatalf("canonical=%q, want=%q", canonical, "list_directory")
	}

	aliased, ok := r.Lookup("list_files")
	if !ok {
		t.Fatalf("expected alias lookup to succeed")
	}
	direct, _ := r.Lookup("list_directory")
	if aliased.Name != direct.Name || aliased.Category != direct.Category {
		t.Fatalf("alias lookup diverged from canonical lookup")
	}
}

func TestRegistry_NamesAreUnique(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	seen := map[string]struct{}{}
	for _, name := range r.Names() {
		if _, dup := seen[name]; dup {
			t.Fatalf("duplicate tool name %q", name)
		}
		seen[name] = struct{}{}
	}
}

func TestRegistry_CategoryAndCapabilityFilters(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	for _, s := range r.ByCategory(CategoryVersionControl) {
		if s.Category != CategoryVersionControl {
			t.Fatalf("tool %q leaked into version-control filter", s.Name)
		}
	}
	for _, s := range r.Parallelizable() {
		if !s.Parallel {
			t.Fatalf("tool %q is not parallel", s.Name)
		}
	}
	for _, s := range r.CacheableTools() {
		if !s.Cacheable {
			t.Fatalf("tool %q is not cacheable", s.Name)
		}
	}
}

func TestFunctionDefs_ParametersAreValidJSONSchema(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	defs := r.FunctionDefs()
	if len(defs) == 0 {
		t.Fatalf("expected non-empty function defs")
	}
	for _, def := range defs {
		var schema map[string]any
		if err := json.Unmarshal(def.Parameters, &schema); err != nil {
			t.Fatalf("tool %q parameters are not valid JSON: %v", def.Name, err)
		}
		if schema["type"] != "object" {
			t.Fatalf("tool %q schema type=%v, want object", def.Name, schema["type"])
		}
	}
}

func TestOpenAIFunctions_Shape(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	for _, fn := range r.OpenAIFunctions() {
		if fn.Type != "function" {
			t.Fatalf("type=%q, want=%q", fn.Type, "function")
		}
		if fn.Function.Name == "" {
			t.Fatalf("missing function name")
		}
	}
}

func TestFunctionDefsFor_SkipsUnknown(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	defs := r.FunctionDefsFor([]string{"read_file", "nope", "git_status"})
	if len(defs) != 2 {
		t.Fatalf("len=%d, want=2", len(defs))
	}
}

func TestEditFileSchema_RequiredParams(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	s, ok := r.Lookup("edit_file")
	if !ok {
		t.Fatalf("expected edit_file in catalog")
	}
	required := map[string]bool{}
	for _, p := range s.Params {
		if p.Required {
			required[p.Name] = true
		}
	}
	for _, want := range []string{"path", "old_string", "new_string"} {
		if !required[want] {
			t.Fatalf("edit_file missing required param %q", want)
		}
	}
}
