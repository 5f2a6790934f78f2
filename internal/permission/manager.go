package permission

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/harborml/agent-engine/internal/schema"
)

const usageRingCap = 100

// AllTools is the wildcard grant: an agent whose tool list contains it may
// call every registered tool.
const AllTools = "all"

// Decision is the outcome of one permission check. Suggestion is non-empty
// iff the call was denied.
type Decision struct {
	Allowed    bool   `json:"allowed"`
	Suggestion string `json:"suggestion,omitempty"`
}

// UsageRecord is one observed tool invocation attempt for an agent.
type UsageRecord struct {
	Tool      string    `json:"tool"`
	Allowed   bool      `json:"allowed"`
	Risk      RiskLevel `json:"risk"`
	Timestamp time.Time `json:"timestamp"`
}

// UsageStats aggregates an agent's usage history.
type UsageStats struct {
	Allowed int               `json:"allowed"`
	Denied  int               `json:"denied"`
	ByRisk  map[RiskLevel]int `json:"by_risk"`
}

// ValidationReport separates blocking problems from advisories.
type ValidationReport struct {
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func (r ValidationReport) Valid() bool { return len(r.Errors) == 0 }

// Manager enforces per-agent tool grants and keeps a bounded usage history.
// The history is observability only; allow/deny decisions never consult it.
type Manager struct {
	schemas *schema.Registry
	log     *slog.Logger

	mu    sync.Mutex
	usage map[string][]UsageRecord
}

func NewManager(schemas *schema.Registry, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		schemas: schemas,
		log:     logger,
		usage:   make(map[string][]UsageRecord),
	}
}

// CheckPermission decides whether an agent holding the given tool grants may
// call toolName. Grants and the requested tool are alias-resolved, so an
// agent granted "read_file" may call it as "read".
func (m *Manager) CheckPermission(agentID string, grantedTools []string, toolName string) Decision {
	name := strings.TrimSpace(toolName)
	canonical := name
	if resolved, ok := m.schemas.Resolve(name); ok {
		canonical = resolved
	}

	allowed := false
	for _, granted := range grantedTools {
		granted = strings.TrimSpace(granted)
		if granted == AllTools {
			allowed = true
			break
		}
		if resolved, ok := m.schemas.Resolve(granted); ok {
			granted = resolved
		}
		if granted == canonical {
			allowed = true
			break
		}
	}

	m.record(agentID, canonical, allowed)
	if allowed {
		return Decision{Allowed: true}
	}
	return Decision{
		Allowed:    false,
		Suggestion: fmt.Sprintf("Tool %q is not granted to agent %q; add it to the agent's tools list or grant %q.", canonical, agentID, AllTools),
	}
}

// ValidateToolList checks a grant list against the catalog. Unknown names
// are errors; an empty list and the presence of destructive-risk tools are
// warnings only.
func (m *Manager) ValidateToolList(agentID string, grantedTools []string) ValidationReport {
	var report ValidationReport
	if len(grantedTools) == 0 {
		report.Warnings = append(report.Warnings, fmt.Sprintf("agent %q grants no tools; it will be unable to act", agentID))
		return report
	}
	for _, granted := range grantedTools {
		granted = strings.TrimSpace(granted)
		if granted == AllTools {
			report.Warnings = append(report.Warnings, fmt.Sprintf("agent %q is granted all tools, including destructive ones", agentID))
			continue
		}
		sc, ok := m.schemas.Lookup(granted)
		if !ok {
			report.Errors = append(report.Errors, fmt.Sprintf("unknown tool in grant list: %s", granted))
			continue
		}
		if ToolRisk(sc) == RiskDangerous {
			report.Warnings = append(report.Warnings, fmt.Sprintf("tool %q can destroy or mutate workspace state irreversibly", sc.Name))
		}
	}
	return report
}

// keyword buckets for SuggestTools. Order matters: suggestions come out in
// bucket order so read tools lead and destructive tools trail.
var suggestionBuckets = []struct {
	keywords []string
	tools    []string
}{
	{
		keywords: []string{"read", "analyze", "analyse", "understand", "review", "inspect", "explore", "summarize"},
		tools:    []string{"read_file", "list_directory", "search_files", "get_project_context"},
	},
	{
		keywords: []string{"write", "create", "edit", "fix", "implement", "refactor", "update", "modify"},
		tools:    []string{"read_file", "write_file", "edit_file", "multi_edit_file"},
	},
	{
		keywords: []string{"run", "execute", "test", "build", "verify", "format"},
		tools:    []string{"run_command", "run_tests", "verify_changes"},
	},
	{
		keywords: []string{"git", "commit", "branch", "stage", "diff"},
		tools:    []string{"git_status", "git_diff", "git_add", "git_commit"},
	},
	{
		keywords: []string{"import", "export", "dependency", "dependencies", "diagnostic"},
		tools:    []string{"extract_imports", "extract_exports", "get_diagnostics"},
	},
}

// SuggestTools proposes a tool grant list from a free-text task description.
// Best effort: it seeds a config, it does not guarantee completeness.
func (m *Manager) SuggestTools(description string) []string {
	lower := strings.ToLower(description)
	seen := make(map[string]struct{})
	var out []string
	for _, bucket := range suggestionBuckets {
		matched := false
		for _, kw := range bucket.keywords {
			if strings.Contains(lower, kw) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		for _, tool := range bucket.tools {
			if _, dup := seen[tool]; dup {
				continue
			}
			seen[tool] = struct{}{}
			out = append(out, tool)
		}
	}
	return out
}

// record appends one usage entry, dropping the oldest past the ring cap.
func (m *Manager) record(agentID, canonical string, allowed bool) {
	risk := RiskMutating
	if sc, ok := m.schemas.Lookup(canonical); ok {
		risk = ToolRisk(sc)
	}
	entry := UsageRecord{Tool: canonical, Allowed: allowed, Risk: risk, Timestamp: time.Now()}

	m.mu.Lock()
	defer m.mu.Unlock()
	records := append(m.usage[agentID], entry)
	if len(records) > usageRingCap {
		records = records[len(records)-usageRingCap:]
	}
	m.usage[agentID] = records

	if !allowed {
		m.log.Warn("tool call denied", "agent", agentID, "tool", canonical, "risk", string(risk))
	}
}

// Usage returns a copy of the agent's retained usage records, oldest first.
func (m *Manager) Usage(agentID string) []UsageRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	records := m.usage[agentID]
	out := make([]UsageRecord, len(records))
	copy(out, records)
	return out
}

// Stats aggregates the retained usage records for one agent.
func (m *Manager) Stats(agentID string) UsageStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := UsageStats{ByRisk: make(map[RiskLevel]int)}
	for _, record := range m.usage[agentID] {
		if record.Allowed {
			stats.Allowed++
		} else {
			stats.Denied++
		}
		stats.ByRisk[record.Risk]++
	}
	return stats
}

// TrackedAgents lists agent ids with retained usage, sorted for stable output.
func (m *Manager) TrackedAgents() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.usage))
	for id := range m.usage {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
