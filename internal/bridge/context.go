package bridge

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
)

const readmeExcerptRunes = 1500

var manifestFiles = []string{"go.mod", "package.json", "Cargo.toml", "pyproject.toml", "requirements.txt", "pom.xml", "Makefile"}

var entryPointCandidates = []string{
	"main.go", "cmd", "src/main.ts", "src/index.ts", "index.js", "src/main.rs", "main.py", "app.py",
}

// projectContext bundles workspace identity, directory summary, dependency
// manifest, git status, README excerpt, detected entry points, and host
// info into one response.
func (b *Bridge) projectContext(ctx context.Context, _ map[string]any) (any, error) {
	out := map[string]any{
		"workspace_root": b.root,
		"workspace_name": filepath.Base(b.root),
	}

	if listing, err := b.listDirectory(ctx, map[string]any{"path": "."}); err == nil {
		out["directory"] = listing
	}

	for _, name := range manifestFiles {
		p := filepath.Join(b.root, name)
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		out["manifest"] = map[string]any{
			"file":    name,
			"content": truncateRunes(string(data), 4000),
		}
		break
	}

	if status, err := b.gitStatus(ctx, nil); err == nil {
		out["git_status"] = status
	}

	for _, name := range []string{"README.md", "README.rst", "README.txt", "README"} {
		data, err := os.ReadFile(filepath.Join(b.root, name))
		if err != nil {
			continue
		}
		out["readme_excerpt"] = truncateRunes(strings.TrimSpace(string(data)), readmeExcerptRunes)
		break
	}

	entries := make([]string, 0, 4)
	for _, candidate := range entryPointCandidates {
		if _, err := os.Stat(filepath.Join(b.root, candidate)); err == nil {
			entries = append(entries, candidate)
		}
	}
	out["entry_points"] = entries

	out["host"] = hostInfo(ctx)
	return out, nil
}

// hostInfo is best-effort: a section that fails to probe is simply absent.
func hostInfo(ctx context.Context) map[string]any {
	out := map[string]any{}
	if info, err := host.InfoWithContext(ctx); err == nil && info != nil {
		out["os"] = info.OS
		out["platform"] = info.Platform
		out["platform_version"] = info.PlatformVersion
		out["kernel_arch"] = info.KernelArch
	}
	if cores, err := cpu.CountsWithContext(ctx, true); err == nil {
		out["cpu_cores"] = cores
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil && vm != nil {
		out["memory_total_mb"] = vm.Total / (1 << 20)
		out["memory_available_mb"] = vm.Available / (1 << 20)
	}
	return out
}

func truncateRunes(in string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(in)
	if len(runes) <= max {
		return in
	}
	return string(runes[:max]) + truncationMarker
}
