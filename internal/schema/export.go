package schema

import "encoding/json"

// FunctionDef is the generic function-call view of a tool, used to
// advertise tools to the external runtime.
type FunctionDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
}

// OpenAIFunction is the OpenAI-style wrapper around a function definition.
type OpenAIFunction struct {
	Type     string      `json:"type"`
	Function FunctionDef `json:"function"`
}

// FunctionDefs exports the whole catalog in the generic function-call view.
func (r *Registry) FunctionDefs() []FunctionDef {
	all := r.All()
	out := make([]FunctionDef, 0, len(all))
	for _, s := range all {
		out = append(out, FunctionDef{
			Name:        s.Name,
			Description: s.Description,
			Parameters:  s.ParamsJSONSchema(),
		})
	}
	return out
}

// FunctionDefsFor exports only the named tools, skipping unknown names.
func (r *Registry) FunctionDefsFor(names []string) []FunctionDef {
	out := make([]FunctionDef, 0, len(names))
	for _, name := range names {
		s, ok := r.Lookup(name)
		if !ok {
			continue
		}
		out = append(out, FunctionDef{
			Name:        s.Name,
			Description: s.Description,
			Parameters:  s.ParamsJSONSchema(),
		})
	}
	return out
}

// OpenAIFunctions exports the catalog in the OpenAI function-tool shape.
func (r *Registry) OpenAIFunctions() []OpenAIFunction {
	defs := r.FunctionDefs()
	out := make([]OpenAIFunction, 0, len(defs))
	for _, def := range defs {
		out = append(out, OpenAIFunction{Type: "function", Function: def})
	}
	return out
}
