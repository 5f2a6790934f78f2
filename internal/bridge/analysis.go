package bridge

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Import/export extraction is pattern matching over source text, good
// enough for dependency overviews. It is not a parser.

var importPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^\s*import\s+(?:[\w*{},\s]+\s+from\s+)?["']([^"']+)["']`), // js/ts
	regexp.MustCompile(`(?m)^\s*(?:import|from)\s+([\w.]+)`),                          // python
	regexp.MustCompile(`(?m)^\s*"([^"]+)"\s*$`),                                       // go import block line
	regexp.MustCompile(`(?m)^\s*\w+\s+"([^"]+)"\s*$`),                                 // go aliased import
	regexp.MustCompile(`(?m)^\s*use\s+([\w:]+)`),                                      // rust
}

var exportPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^\s*export\s+(?:default\s+)?(?:async\s+)?(?:function|class|const|let|var|interface|type|enum)\s+(\w+)`),
	regexp.MustCompile(`(?m)^func\s+([A-Z]\w*)\s*\(`),
	regexp.MustCompile(`(?m)^type\s+([A-Z]\w*)\s+`),
	regexp.MustCompile(`(?m)^(?:var|const)\s+([A-Z]\w*)\b`),
	regexp.MustCompile(`(?m)^\s*pub\s+(?:fn|struct|enum|trait|const)\s+(\w+)`),
}

func (b *Bridge) extractMatches(args map[string]any, patterns []*regexp.Regexp) ([]string, error) {
	p, err := b.resolvePath(stringArg(args, "path"))
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", stringArg(args, "path"), err)
	}
	content := string(data)
	seen := map[string]struct{}{}
	out := make([]string, 0, 16)
	for _, re := range patterns {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			if len(m) < 2 {
				continue
			}
			name := strings.TrimSpace(m[1])
			if name == "" {
				continue
			}
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out, nil
}

func (b *Bridge) extractImports(_ context.Context, args map[string]any) (any, error) {
	imports, err := b.extractMatches(args, importPatterns)
	if err != nil {
		return nil, err
	}
	return map[string]any{"path": stringArg(args, "path"), "imports": imports}, nil
}

func (b *Bridge) extractExports(_ context.Context, args map[string]any) (any, error) {
	exports, err := b.extractMatches(args, exportPatterns)
	if err != nil {
		return nil, err
	}
	return map[string]any{"path": stringArg(args, "path"), "exports": exports}, nil
}

// getDiagnostics returns an empty set until a language service is wired in.
func (b *Bridge) getDiagnostics(_ context.Context, args map[string]any) (any, error) {
	return map[string]any{"path": stringArg(args, "path"), "diagnostics": []any{}}, nil
}
