package schema

import (
	"sort"
	"strings"
	"sync"
)

// Registry is the static tool catalog. It is pure and side-effect free:
// lookups that miss return a zero value and false, never an error.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]ToolSchema
	aliases map[string]string
}

// NewRegistry returns a registry pre-populated with the builtin catalog.
func NewRegistry() *Registry {
	r := &Registry{
		schemas: make(map[string]ToolSchema, len(builtinSchemas)),
		aliases: make(map[string]string, len(builtinAliases)),
	}
	for _, s := range builtinSchemas {
		r.schemas[s.Name] = s
	}
	for alias, canonical := range builtinAliases {
		if _, ok := r.schemas[canonical]; ok {
			r.aliases[alias] = canonical
		}
	}
	return r
}

// Resolve maps a tool name or alias to its canonical name.
func (r *Registry) Resolve(name string) (string, bool) {
	if r == nil {
		return "", false
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.schemas[name]; ok {
		return name, true
	}
	if canonical, ok := r.aliases[name]; ok {
		return canonical, true
	}
	return "", false
}

// Lookup returns the schema for an exact or aliased name.
func (r *Registry) Lookup(name string) (ToolSchema, bool) {
	canonical, ok := r.Resolve(name)
	if !ok {
		return ToolSchema{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[canonical]
	return s, ok
}

// Has reports whether a name or alias is known.
func (r *Registry) Has(name string) bool {
	_, ok := r.Resolve(name)
	return ok
}

// Names returns all canonical tool names, sorted.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// All returns every schema, sorted by name.
func (r *Registry) All() []ToolSchema {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ToolSchema, 0, len(r.schemas))
	for _, s := range r.schemas {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ByCategory filters the catalog to one category.
func (r *Registry) ByCategory(cat Category) []ToolSchema {
	out := make([]ToolSchema, 0, 8)
	for _, s := range r.All() {
		if s.Category == cat {
			out = append(out, s)
		}
	}
	return out
}

// Parallelizable returns the tools eligible for concurrent execution.
func (r *Registry) Parallelizable() []ToolSchema {
	out := make([]ToolSchema, 0, 8)
	for _, s := range r.All() {
		if s.Parallel {
			out = append(out, s)
		}
	}
	return out
}

// CacheableTools returns the tools whose results may be cached.
func (r *Registry) CacheableTools() []ToolSchema {
	out := make([]ToolSchema, 0, 8)
	for _, s := range r.All() {
		if s.Cacheable {
			out = append(out, s)
		}
	}
	return out
}
