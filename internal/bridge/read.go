package bridge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

const (
	defaultMaxReadBytes = 256 * 1024
	truncationMarker    = "\n... [truncated]"

	maxSearchResults  = 200
	maxSearchFileSize = 1 << 20
)

// ignoredDirs are skipped by recursive traversals (tree, search, symbols).
var ignoredDirs = map[string]struct{}{
	".git":         {},
	"node_modules": {},
	"vendor":       {},
	"dist":         {},
	"build":        {},
	"target":       {},
	"__pycache__":  {},
	".venv":        {},
	".idea":        {},
	".vscode":      {},
}

func (b *Bridge) readFile(_ context.Context, args map[string]any) (any, error) {
	p, err := b.resolvePath(stringArg(args, "path"))
	if err != nil {
		return nil, err
	}
	maxBytes := intArg(args, "max_bytes")
	if maxBytes <= 0 || maxBytes > defaultMaxReadBytes {
		maxBytes = defaultMaxReadBytes
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", stringArg(args, "path"), err)
	}
	truncated := false
	if len(data) > maxBytes {
		data = data[:maxBytes]
		truncated = true
	}
	content := string(data)
	if truncated {
		content += truncationMarker
	}
	return map[string]any{
		"path":      stringArg(args, "path"),
		"content":   content,
		"size":      len(data),
		"truncated": truncated,
	}, nil
}

func (b *Bridge) readMultipleFiles(ctx context.Context, args map[string]any) (any, error) {
	paths := stringSliceArg(args, "paths")
	if len(paths) == 0 {
		return nil, fmt.Errorf("missing required field: paths")
	}
	out := make(map[string]any, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := b.readFile(ctx, map[string]any{"path": p})
		if err != nil {
			out[p] = map[string]any{"error": err.Error()}
			continue
		}
		out[p] = data
	}
	return out, nil
}

func (b *Bridge) listDirectory(_ context.Context, args map[string]any) (any, error) {
	raw := stringArg(args, "path")
	if raw == "" {
		raw = "."
	}
	p, err := b.resolvePath(raw)
	if err != nil {
		return nil, err
	}
	ents, err := os.ReadDir(p)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", raw, err)
	}
	showHidden := boolArg(args, "show_hidden")
	out := make([]map[string]any, 0, len(ents))
	for _, e := range ents {
		name := e.Name()
		if !showHidden && strings.HasPrefix(name, ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, map[string]any{
			"name":         name,
			"is_directory": info.IsDir(),
			"size":         info.Size(),
			"modified_at":  info.ModTime().UnixMilli(),
		})
	}
	return map[string]any{"path": raw, "entries": out}, nil
}

type treeNode struct {
	Name     string      `json:"name"`
	Dir      bool        `json:"dir,omitempty"`
	Children []*treeNode `json:"children,omitempty"`
}

func (b *Bridge) directoryTree(ctx context.Context, args map[string]any) (any, error) {
	raw := stringArg(args, "path")
	if raw == "" {
		raw = "."
	}
	p, err := b.resolvePath(raw)
	if err != nil {
		return nil, err
	}
	depth := intArg(args, "depth")
	if depth < 1 {
		depth = 3
	}
	if depth > 5 {
		depth = 5
	}
	root, err := b.buildTree(ctx, p, depth)
	if err != nil {
		return nil, err
	}
	return map[string]any{"path": raw, "depth": depth, "tree": root}, nil
}

func (b *Bridge) buildTree(ctx context.Context, dir string, depth int) (*treeNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	node := &treeNode{Name: filepath.Base(dir), Dir: true}
	if depth <= 0 {
		return node, nil
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() {
			if _, skip := ignoredDirs[name]; skip {
				continue
			}
			child, err := b.buildTree(ctx, filepath.Join(dir, name), depth-1)
			if err != nil {
				continue
			}
			node.Children = append(node.Children, child)
			continue
		}
		node.Children = append(node.Children, &treeNode{Name: name})
	}
	return node, nil
}

type searchMatch struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

func (b *Bridge) searchFiles(ctx context.Context, args map[string]any) (any, error) {
	pattern := stringArg(args, "pattern")
	if pattern == "" {
		return nil, fmt.Errorf("missing required field: pattern")
	}
	raw := stringArg(args, "path")
	if raw == "" {
		raw = "."
	}
	dir, err := b.resolvePath(raw)
	if err != nil {
		return nil, err
	}
	limit := intArg(args, "max_results")
	if limit <= 0 || limit > maxSearchResults {
		limit = maxSearchResults
	}

	var matcher func(line string) bool
	if boolArg(args, "regex") {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern: %w", err)
		}
		matcher = re.MatchString
	} else {
		matcher = func(line string) bool { return strings.Contains(line, pattern) }
	}

	matches, err := b.scanLines(ctx, dir, limit, matcher)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"pattern":   pattern,
		"matches":   matches,
		"truncated": len(matches) >= limit,
	}, nil
}

func (b *Bridge) scanLines(ctx context.Context, dir string, limit int, match func(string) bool) ([]searchMatch, error) {
	matches := make([]searchMatch, 0, 32)
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if d.IsDir() {
			if _, skip := ignoredDirs[d.Name()]; skip && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if len(matches) >= limit {
			return filepath.SkipAll
		}
		info, err := d.Info()
		if err != nil || info.Size() > maxSearchFileSize {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil || !isProbablyText(data) {
			return nil
		}
		rel, _ := filepath.Rel(b.root, path)
		for i, line := range strings.Split(string(data), "\n") {
			if !match(line) {
				continue
			}
			matches = append(matches, searchMatch{Path: rel, Line: i + 1, Text: strings.TrimRight(line, "\r")})
			if len(matches) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

func isProbablyText(data []byte) bool {
	n := len(data)
	if n > 8000 {
		n = 8000
	}
	for _, c := range data[:n] {
		if c == 0 {
			return false
		}
	}
	return true
}

// symbolPatterns builds per-kind regexes for the heuristic symbol search.
// This is pattern matching over source text, not a parser.
func symbolPatterns(kind string, name string) []*regexp.Regexp {
	quoted := regexp.QuoteMeta(name)
	fn := []string{
		`\bfunc\s+(\(\s*\w+\s+\*?\w+\s*\)\s*)?` + quoted + `\s*\(`,
		`\bfunction\s+` + quoted + `\s*\(`,
		`\bdef\s+` + quoted + `\s*\(`,
		`\bconst\s+` + quoted + `\s*=\s*(async\s*)?\(`,
	}
	cls := []string{
		`\bclass\s+` + quoted + `\b`,
		`\btype\s+` + quoted + `\s+struct\b`,
	}
	iface := []string{
		`\binterface\s+` + quoted + `\b`,
		`\btype\s+` + quoted + `\s+interface\b`,
	}

	var raw []string
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "function":
		raw = fn
	case "class":
		raw = cls
	case "interface":
		raw = iface
	default:
		raw = append(append(fn, cls...), iface...)
	}
	out := make([]*regexp.Regexp, 0, len(raw))
	for _, r := range raw {
		if re, err := regexp.Compile(r); err == nil {
			out = append(out, re)
		}
	}
	return out
}

func (b *Bridge) searchSymbols(ctx context.Context, args map[string]any) (any, error) {
	name := stringArg(args, "name")
	if name == "" {
		return nil, fmt.Errorf("missing required field: name")
	}
	kind := stringArg(args, "kind")
	patterns := symbolPatterns(kind, name)

	matches, err := b.scanLines(ctx, b.root, maxSearchResults, func(line string) bool {
		for _, re := range patterns {
			if re.MatchString(line) {
				return true
			}
		}
		return false
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Path == matches[j].Path {
			return matches[i].Line < matches[j].Line
		}
		return matches[i].Path < matches[j].Path
	})
	return map[string]any{"name": name, "kind": kind, "matches": matches}, nil
}
