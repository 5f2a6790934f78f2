package subagent

import "strings"

// Config defines one subagent. Authored in YAML or JSON, validated by the
// factory before use, and immutable during a run.
type Config struct {
	ID           string   `json:"id" yaml:"id"`
	Name         string   `json:"name" yaml:"name"`
	Description  string   `json:"description" yaml:"description"`
	SystemPrompt string   `json:"system_prompt" yaml:"system_prompt"`
	Model        string   `json:"model" yaml:"model"`
	Tools        []string `json:"tools" yaml:"tools"`

	MaxIterations int      `json:"max_iterations,omitempty" yaml:"max_iterations,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxTokens     *int     `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`

	RouteKeywords []string `json:"route_keywords,omitempty" yaml:"route_keywords,omitempty"`
	RoutePatterns []string `json:"route_patterns,omitempty" yaml:"route_patterns,omitempty"`
}

// GrantsAllTools reports whether the config carries the wildcard grant.
func (c Config) GrantsAllTools() bool {
	for _, tool := range c.Tools {
		if strings.TrimSpace(tool) == "all" {
			return true
		}
	}
	return false
}
