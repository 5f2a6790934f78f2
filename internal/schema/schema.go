package schema

import (
	"encoding/json"
	"strings"
)

// Category groups tools by the kind of effect they have on the workspace.
type Category string

const (
	CategoryRead           Category = "read"
	CategoryWrite          Category = "write"
	CategoryExecute        Category = "execute"
	CategoryVersionControl Category = "version-control"
	CategoryAnalysis       Category = "analysis"
)

// Venue declares where a tool is allowed to run.
type Venue string

const (
	VenueHost          Venue = "host"
	VenueOrchestration Venue = "orchestration"
	VenueEither        Venue = "either"
)

// Param describes one named parameter of a tool, including nested item
// shapes for arrays and objects.
type Param struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"` // string|number|boolean|array|object
	Description string   `json:"description,omitempty"`
	Required    bool     `json:"required,omitempty"`
	Enum        []string `json:"enum,omitempty"`
	Items       *Param   `json:"items,omitempty"`
	Properties  []Param  `json:"properties,omitempty"`
}

// ToolSchema is the static description of one tool capability.
//
// Notes:
// - Name is globally unique within the registry.
// - Parallel marks tools that may run concurrently with other parallel tools.
// - TimeoutMS of 0 means "use the executor default".
// - CacheTimeoutMS is only meaningful when Cacheable is true.
type ToolSchema struct {
	Name           string   `json:"name"`
	Description    string   `json:"description,omitempty"`
	Category       Category `json:"category"`
	Venue          Venue    `json:"venue,omitempty"`
	Parallel       bool     `json:"parallel,omitempty"`
	TimeoutMS      int64    `json:"timeout_ms,omitempty"`
	Retryable      bool     `json:"retryable,omitempty"`
	Cacheable      bool     `json:"cacheable,omitempty"`
	CacheTimeoutMS int64    `json:"cache_timeout_ms,omitempty"`
	Params         []Param  `json:"params,omitempty"`
}

// ParamsJSONSchema renders the parameter shape as a JSON-schema object
// suitable for provider tool declarations.
func (s ToolSchema) ParamsJSONSchema() json.RawMessage {
	b, _ := json.Marshal(paramsToSchemaMap(s.Params))
	return b
}

func paramsToSchemaMap(params []Param) map[string]any {
	properties := map[string]any{}
	required := []string{}
	for _, p := range params {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			continue
		}
		properties[name] = paramToSchema(p)
		if p.Required {
			required = append(required, name)
		}
	}
	out := map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

func paramToSchema(p Param) map[string]any {
	out := map[string]any{"type": normalizeParamType(p.Type)}
	if desc := strings.TrimSpace(p.Description); desc != "" {
		out["description"] = desc
	}
	if len(p.Enum) > 0 {
		out["enum"] = append([]string(nil), p.Enum...)
	}
	if p.Items != nil {
		out["items"] = paramToSchema(*p.Items)
	}
	if len(p.Properties) > 0 {
		nested := paramsToSchemaMap(p.Properties)
		out["properties"] = nested["properties"]
		if req, ok := nested["required"]; ok {
			out["required"] = req
		}
	}
	return out
}

func normalizeParamType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	switch t {
	case "string", "number", "integer", "boolean", "array", "object":
		return t
	default:
		return "string"
	}
}
