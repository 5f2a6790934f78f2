package bridge

import (
	"context"
	"fmt"
	"strings"
)

// Version-control handlers are thin wrappers over runCommand; the exit-code
// contract of runCommand applies to them unchanged.

func (b *Bridge) gitStatus(ctx context.Context, _ map[string]any) (any, error) {
	return b.runCommand(ctx, map[string]any{"command": "git status --porcelain=v1 --branch"})
}

func (b *Bridge) gitDiff(ctx context.Context, args map[string]any) (any, error) {
	parts := []string{"git", "diff"}
	if boolArg(args, "staged") {
		parts = append(parts, "--cached")
	}
	if p := stringArg(args, "path"); p != "" {
		if _, err := b.resolvePath(p); err != nil {
			return nil, err
		}
		parts = append(parts, "--", shellQuote(p))
	}
	return b.runCommand(ctx, map[string]any{"command": strings.Join(parts, " ")})
}

func (b *Bridge) gitAdd(ctx context.Context, args map[string]any) (any, error) {
	paths := stringSliceArg(args, "paths")
	if len(paths) == 0 {
		paths = []string{"."}
	}
	quoted := make([]string, 0, len(paths))
	for _, p := range paths {
		if p != "." {
			if _, err := b.resolvePath(p); err != nil {
				return nil, err
			}
		}
		quoted = append(quoted, shellQuote(p))
	}
	return b.runCommand(ctx, map[string]any{"command": "git add -- " + strings.Join(quoted, " ")})
}

func (b *Bridge) gitCommit(ctx context.Context, args map[string]any) (any, error) {
	message := stringArg(args, "message")
	if message == "" {
		return nil, fmt.Errorf("missing required field: message")
	}
	return b.runCommand(ctx, map[string]any{"command": "git commit -m " + shellQuote(message)})
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
