package bridge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (b *Bridge) createFile(_ context.Context, args map[string]any) (any, error) {
	p, err := b.resolvePath(stringArg(args, "path"))
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(p); err == nil {
		return nil, fmt.Errorf("file already exists: %s", stringArg(args, "path"))
	}
	content, _ := args["content"].(string)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		return nil, err
	}
	return map[string]any{"path": stringArg(args, "path"), "created": true, "bytes": len(content)}, nil
}

func (b *Bridge) writeFile(_ context.Context, args map[string]any) (any, error) {
	p, err := b.resolvePath(stringArg(args, "path"))
	if err != nil {
		return nil, err
	}
	content, _ := args["content"].(string)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		return nil, err
	}
	return map[string]any{"path": stringArg(args, "path"), "bytes": len(content)}, nil
}

// editFile replaces one unique occurrence of old_string. Ambiguity is an
// error naming the occurrence count, and the file is left unmodified.
func (b *Bridge) editFile(_ context.Context, args map[string]any) (any, error) {
	p, err := b.resolvePath(stringArg(args, "path"))
	if err != nil {
		return nil, err
	}
	oldStr, _ := args["old_string"].(string)
	newStr, _ := args["new_string"].(string)
	if oldStr == "" {
		return nil, fmt.Errorf("missing required field: old_string")
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", stringArg(args, "path"), err)
	}
	content := string(data)
	count := strings.Count(content, oldStr)
	if count == 0 {
		return nil, fmt.Errorf("old_string not found in %s", stringArg(args, "path"))
	}
	if count > 1 {
		return nil, fmt.Errorf("old_string occurs %d times in %s; it must be unique", count, stringArg(args, "path"))
	}
	next := strings.Replace(content, oldStr, newStr, 1)
	if err := os.WriteFile(p, []byte(next), 0o644); err != nil {
		return nil, err
	}
	return map[string]any{"path": stringArg(args, "path"), "replaced": true}, nil
}

type fileEdit struct {
	OldString   string
	NewString   string
	StartLine   int
	EndLine     int
	Replacement string
}

func parseEdits(raw any) ([]fileEdit, error) {
	items, ok := raw.([]any)
	if !ok || len(items) == 0 {
		return nil, fmt.Errorf("missing required field: edits")
	}
	out := make([]fileEdit, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("edits[%d] is not an object", i)
		}
		e := fileEdit{
			StartLine: intArg(m, "start_line"),
			EndLine:   intArg(m, "end_line"),
		}
		e.OldString, _ = m["old_string"].(string)
		e.NewString, _ = m["new_string"].(string)
		e.Replacement, _ = m["replacement"].(string)
		if e.OldString == "" && e.StartLine <= 0 {
			return nil, fmt.Errorf("edits[%d] needs old_string or start_line", i)
		}
		out = append(out, e)
	}
	return out, nil
}

// multiEditFile applies an ordered list of edits to one file. All edits are
// applied to an in-memory copy; the file is written once, so a failing edit
// leaves the file untouched.
func (b *Bridge) multiEditFile(ctx context.Context, args map[string]any) (any, error) {
	p, err := b.resolvePath(stringArg(args, "path"))
	if err != nil {
		return nil, err
	}
	edits, err := parseEdits(args["edits"])
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", stringArg(args, "path"), err)
	}
	content := string(data)

	for i, e := range edits {
		if e.OldString != "" {
			count := strings.Count(content, e.OldString)
			if count == 0 {
				return nil, fmt.Errorf("edits[%d]: old_string not found", i)
			}
			if count > 1 {
				return nil, fmt.Errorf("edits[%d]: old_string occurs %d times; it must be unique", i, count)
			}
			content = strings.Replace(content, e.OldString, e.NewString, 1)
			continue
		}
		lines := strings.Split(content, "\n")
		start, end := e.StartLine, e.EndLine
		if end < start {
			end = start
		}
		if start < 1 || end > len(lines) {
			return nil, fmt.Errorf("edits[%d]: line range %d-%d out of bounds (%d lines)", i, start, end, len(lines))
		}
		next := make([]string, 0, len(lines))
		next = append(next, lines[:start-1]...)
		if e.Replacement != "" {
			next = append(next, strings.Split(e.Replacement, "\n")...)
		}
		next = append(next, lines[end:]...)
		content = strings.Join(next, "\n")
	}

	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		return nil, err
	}

	out := map[string]any{"path": stringArg(args, "path"), "edits_applied": len(edits)}
	if boolArg(args, "verify") {
		verification, err := b.verifyChanges(ctx, map[string]any{})
		if err != nil {
			out["verification_error"] = err.Error()
		} else {
			out["verification"] = verification
		}
	}
	return out, nil
}

func (b *Bridge) deleteFile(_ context.Context, args map[string]any) (any, error) {
	p, err := b.resolvePath(stringArg(args, "path"))
	if err != nil {
		return nil, err
	}
	if err := os.Remove(p); err != nil {
		return nil, fmt.Errorf("delete %s: %w", stringArg(args, "path"), err)
	}
	return map[string]any{"path": stringArg(args, "path"), "deleted": true}, nil
}
