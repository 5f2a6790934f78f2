package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrOutsideRoot = errors.New("path escapes workspace root")
	ErrEmptyPath   = errors.New("missing path")
)

// HandlerFunc performs one tool's effect against the host. A nil error
// means the invocation succeeded; the returned value is the tool's data
// payload.
type HandlerFunc func(ctx context.Context, args map[string]any) (any, error)

// Bridge resolves tool names to handlers rooted at one workspace.
//
// The workspace root is carried by the Bridge value itself, not by process
// state, so two bridges over different workspaces never interfere.
type Bridge struct {
	root     string
	log      *slog.Logger
	handlers map[string]HandlerFunc
}

type Options struct {
	Root   string
	Logger *slog.Logger
}

func New(opts Options) (*Bridge, error) {
	root := strings.TrimSpace(opts.Root)
	if root == "" {
		return nil, errors.New("missing workspace root")
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	root = filepath.Clean(root)
	if st, err := os.Stat(root); err != nil || !st.IsDir() {
		return nil, fmt.Errorf("workspace root %q is not a directory", root)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	b := &Bridge{root: root, log: logger}
	b.handlers = map[string]HandlerFunc{
		"read_file":           b.readFile,
		"read_multiple_files": b.readMultipleFiles,
		"list_directory":      b.listDirectory,
		"directory_tree":      b.directoryTree,
		"search_files":        b.searchFiles,
		"search_symbols":      b.searchSymbols,
		"get_project_context": b.projectContext,
		"create_file":         b.createFile,
		"write_file":          b.writeFile,
		"edit_file":           b.editFile,
		"multi_edit_file":     b.multiEditFile,
		"delete_file":         b.deleteFile,
		"run_command":         b.runCommand,
		"run_tests":           b.runTests,
		"format_code":         b.formatCode,
		"verify_changes":      b.verifyChanges,
		"git_status":          b.gitStatus,
		"git_diff":            b.gitDiff,
		"git_add":             b.gitAdd,
		"git_commit":          b.gitCommit,
		"extract_imports":     b.extractImports,
		"extract_exports":     b.extractExports,
		"get_diagnostics":     b.getDiagnostics,
	}
	return b, nil
}

// Root returns the workspace root this bridge is bound to.
func (b *Bridge) Root() string {
	if b == nil {
		return ""
	}
	return b.root
}

// Handler resolves a canonical tool name to its handler. The return type
// is the bare function form so callers can consume it through their own
// resolver interfaces.
func (b *Bridge) Handler(name string) (func(ctx context.Context, args map[string]any) (any, error), bool) {
	if b == nil {
		return nil, false
	}
	h, ok := b.handlers[strings.TrimSpace(name)]
	if !ok {
		return nil, false
	}
	return h, true
}

// resolvePath joins a relative path to the workspace root. Absolute paths
// are accepted only when they stay inside the root; everything else is
// rejected rather than passed through.
func (b *Bridge) resolvePath(raw string) (string, error) {
	p := strings.TrimSpace(raw)
	if p == "" {
		return "", ErrEmptyPath
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(b.root, p)
	}
	p = filepath.Clean(p)
	ok, err := isWithinRoot(p, b.root)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrOutsideRoot
	}
	return p, nil
}

func isWithinRoot(path string, root string) (bool, error) {
	path = filepath.Clean(path)
	root = filepath.Clean(root)
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false, err
	}
	rel = filepath.Clean(rel)
	if rel == "." {
		return true, nil
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return false, nil
	}
	return true, nil
}

func stringArg(args map[string]any, key string) string {
	if args == nil {
		return ""
	}
	s, _ := args[key].(string)
	return strings.TrimSpace(s)
}

func boolArg(args map[string]any, key string) bool {
	if args == nil {
		return false
	}
	v, _ := args[key].(bool)
	return v
}

func intArg(args map[string]any, key string) int {
	if args == nil {
		return 0
	}
	switch v := args[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func stringSliceArg(args map[string]any, key string) []string {
	if args == nil {
		return nil
	}
	switch v := args[key].(type) {
	case []string:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s := strings.TrimSpace(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, _ := item.(string)
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
