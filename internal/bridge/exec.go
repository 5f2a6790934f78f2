package bridge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const (
	defaultCommandTimeout = 30 * time.Second
	maxCommandTimeout     = 120 * time.Second
)

// runCommand executes a shell command in the workspace.
//
// Contract: a process that terminates is a SUCCESSFUL invocation regardless
// of its exit code. The exit code is data for the caller to interpret (a
// linter reporting findings is not a tool failure). Only a spawn failure or
// a timeout makes the invocation itself fail.
func (b *Bridge) runCommand(ctx context.Context, args map[string]any) (any, error) {
	command := stringArg(args, "command")
	if command == "" {
		return nil, fmt.Errorf("missing required field: command")
	}

	cwd := b.root
	if raw := stringArg(args, "cwd"); raw != "" {
		resolved, err := b.resolvePath(raw)
		if err != nil {
			return nil, err
		}
		cwd = resolved
	}

	timeout := defaultCommandTimeout
	if ms := intArg(args, "timeout_ms"); ms > 0 {
		timeout = time.Duration(ms) * time.Millisecond
	}
	if timeout > maxCommandTimeout {
		timeout = maxCommandTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "sh", "-c", command)
	cmd.Dir = cwd
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if runCtx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("command timed out after %s", timeout)
	}

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			// The process never ran (spawn failure); this is a tool failure.
			return nil, fmt.Errorf("spawn failed: %w", err)
		}
	}

	return map[string]any{
		"command":     command,
		"exit_code":   exitCode,
		"stdout":      stdout.String(),
		"stderr":      stderr.String(),
		"combined":    stdout.String() + stderr.String(),
		"duration_ms": elapsed.Milliseconds(),
	}, nil
}

type buildSystem struct {
	Name       string
	TestCmd    string
	FormatCmd  string
	LintCmd    string
	TypeCmd    string
	BuildCmd   string
	ErrorRE    string
	WarningRE  string
	DetectFile string
}

var buildSystems = []buildSystem{
	{
		Name:       "go",
		DetectFile: "go.mod",
		TestCmd:    "go test ./...",
		FormatCmd:  "gofmt -w .",
		LintCmd:    "go vet ./...",
		TypeCmd:    "go build ./...",
		BuildCmd:   "go build ./...",
		ErrorRE:    `(?m)^.+\.go:\d+:\d+:`,
		WarningRE:  `(?mi)\bwarning\b`,
	},
	{
		Name:       "node",
		DetectFile: "package.json",
		TestCmd:    "npm test --silent",
		FormatCmd:  "npx prettier --write .",
		LintCmd:    "npx eslint .",
		TypeCmd:    "npx tsc --noEmit",
		BuildCmd:   "npm run build --if-present",
		ErrorRE:    `(?mi)\berror\b`,
		WarningRE:  `(?mi)\bwarning\b`,
	},
	{
		Name:       "rust",
		DetectFile: "Cargo.toml",
		TestCmd:    "cargo test",
		FormatCmd:  "cargo fmt",
		LintCmd:    "cargo clippy",
		TypeCmd:    "cargo check",
		BuildCmd:   "cargo build",
		ErrorRE:    `(?m)^error(\[|:)`,
		WarningRE:  `(?m)^warning(\[|:)`,
	},
	{
		Name:       "python",
		DetectFile: "pyproject.toml",
		TestCmd:    "python -m pytest",
		FormatCmd:  "python -m black .",
		LintCmd:    "python -m ruff check .",
		TypeCmd:    "python -m mypy .",
		BuildCmd:   "python -m compileall -q .",
		ErrorRE:    `(?mi)\berror\b`,
		WarningRE:  `(?mi)\bwarning\b`,
	},
	{
		Name:       "make",
		DetectFile: "Makefile",
		TestCmd:    "make test",
		FormatCmd:  "make fmt",
		LintCmd:    "make lint",
		TypeCmd:    "make check",
		BuildCmd:   "make",
		ErrorRE:    `(?mi)\berror\b`,
		WarningRE:  `(?mi)\bwarning\b`,
	},
}

func (b *Bridge) detectBuildSystem() (buildSystem, bool) {
	for _, bs := range buildSystems {
		if _, err := os.Stat(filepath.Join(b.root, bs.DetectFile)); err == nil {
			return bs, true
		}
	}
	return buildSystem{}, false
}

func (b *Bridge) runTests(ctx context.Context, args map[string]any) (any, error) {
	bs, ok := b.detectBuildSystem()
	if !ok {
		return nil, errors.New("no recognized build system in workspace")
	}
	command := bs.TestCmd
	if filter := stringArg(args, "filter"); filter != "" && bs.Name == "go" {
		command = fmt.Sprintf("go test -run %q ./...", filter)
	}
	out, err := b.runCommand(ctx, map[string]any{"command": command, "timeout_ms": 120_000})
	if err != nil {
		return nil, err
	}
	result, _ := out.(map[string]any)
	result["build_system"] = bs.Name
	return result, nil
}

func (b *Bridge) formatCode(ctx context.Context, args map[string]any) (any, error) {
	bs, ok := b.detectBuildSystem()
	if !ok {
		return nil, errors.New("no recognized build system in workspace")
	}
	out, err := b.runCommand(ctx, map[string]any{"command": bs.FormatCmd, "timeout_ms": 60_000})
	if err != nil {
		return nil, err
	}
	result, _ := out.(map[string]any)
	result["build_system"] = bs.Name
	_ = stringArg(args, "path") // formatter runs repo-wide; per-path narrowing varies by tool
	return result, nil
}

// verifyChanges runs a configurable subset of typecheck/lint/test/build and
// parses error/warning counts from the combined output.
func (b *Bridge) verifyChanges(ctx context.Context, args map[string]any) (any, error) {
	bs, ok := b.detectBuildSystem()
	if !ok {
		return nil, errors.New("no recognized build system in workspace")
	}
	checks := stringSliceArg(args, "checks")
	if len(checks) == 0 {
		checks = []string{"typecheck", "test"}
	}

	errRE := regexp.MustCompile(bs.ErrorRE)
	warnRE := regexp.MustCompile(bs.WarningRE)

	steps := make([]map[string]any, 0, len(checks))
	totalErrors, totalWarnings := 0, 0
	for _, check := range checks {
		var command string
		switch strings.ToLower(strings.TrimSpace(check)) {
		case "typecheck":
			command = bs.TypeCmd
		case "lint":
			command = bs.LintCmd
		case "test":
			command = bs.TestCmd
		case "build":
			command = bs.BuildCmd
		default:
			continue
		}
		out, err := b.runCommand(ctx, map[string]any{"command": command, "timeout_ms": 120_000})
		if err != nil {
			steps = append(steps, map[string]any{"check": check, "error": err.Error()})
			continue
		}
		result, _ := out.(map[string]any)
		combined, _ := result["combined"].(string)
		errs := len(errRE.FindAllString(combined, -1))
		warns := len(warnRE.FindAllString(combined, -1))
		totalErrors += errs
		totalWarnings += warns
		steps = append(steps, map[string]any{
			"check":     check,
			"exit_code": result["exit_code"],
			"errors":    errs,
			"warnings":  warns,
		})
	}
	return map[string]any{
		"build_system": bs.Name,
		"steps":        steps,
		"errors":       totalErrors,
		"warnings":     totalWarnings,
		"clean":        totalErrors == 0,
	}, nil
}
