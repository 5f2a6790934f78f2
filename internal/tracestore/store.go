// Package tracestore persists per-run tool-call records in a local SQLite
// database.
package tracestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store is a local SQLite-backed persistence layer for subagent runs and
// their tool-call traces.
//
// WAL is enabled so readers (stats queries, CLI inspection) do not block the
// writer.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	p := filepath.Clean(strings.TrimSpace(path))
	if p == "" {
		return nil, errors.New("missing db path")
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Run is one persisted subagent execution.
type Run struct {
	RunID           string `json:"run_id"`
	AgentID         string `json:"agent_id"`
	AgentName       string `json:"agent_name"`
	Task            string `json:"task"`
	Model           string `json:"model"`
	Success         bool   `json:"success"`
	Output          string `json:"output,omitempty"`
	Error           string `json:"error,omitempty"`
	Iterations      int    `json:"iterations"`
	ExecutionTimeMS int64  `json:"execution_time_ms"`
	CreatedAtUnixMs int64  `json:"created_at_unix_ms"`
}

// Call is one tool invocation within a run, in invocation order.
type Call struct {
	ID        int64  `json:"id"`
	RunID     string `json:"run_id"`
	Seq       int    `json:"seq"`
	CallID    string `json:"call_id,omitempty"`
	Tool      string `json:"tool"`
	InputJSON string `json:"input_json,omitempty"`
	Output    string `json:"output,omitempty"`
}

// SaveRun persists a run and its calls in one transaction.
func (s *Store) SaveRun(ctx context.Context, run Run, calls []Call) error {
	if s == nil || s.db == nil {
		return errors.New("store closed")
	}
	runID := strings.TrimSpace(run.RunID)
	if runID == "" {
		return errors.New("missing run id")
	}
	if run.CreatedAtUnixMs <= 0 {
		run.CreatedAtUnixMs = time.Now().UnixMilli()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
INSERT INTO agent_runs (run_id, agent_id, agent_name, task, model, success, output, error, iterations, execution_time_ms, created_at_unix_ms)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, runID, run.AgentID, run.AgentName, run.Task, run.Model, boolToInt(run.Success), run.Output, run.Error, run.Iterations, run.ExecutionTimeMS, run.CreatedAtUnixMs); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, call := range calls {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO agent_run_calls (run_id, seq, call_id, tool, input_json, output)
VALUES (?, ?, ?, ?, ?, ?)
`, runID, i, call.CallID, call.Tool, call.InputJSON, call.Output); err != nil {
			return fmt.Errorf("insert call %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// GetRun loads one run; nil when absent.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store closed")
	}
	row := s.db.QueryRowContext(ctx, `
SELECT run_id, agent_id, agent_name, task, model, success, output, error, iterations, execution_time_ms, created_at_unix_ms
FROM agent_runs
WHERE run_id = ?
`, strings.TrimSpace(runID))

	var run Run
	var success int
	err := row.Scan(&run.RunID, &run.AgentID, &run.AgentName, &run.Task, &run.Model, &success, &run.Output, &run.Error, &run.Iterations, &run.ExecutionTimeMS, &run.CreatedAtUnixMs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	run.Success = success != 0
	return &run, nil
}

// ListRuns returns the most recent runs for an agent, newest first. An empty
// agentID lists across agents.
func (s *Store) ListRuns(ctx context.Context, agentID string, limit int) ([]Run, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store closed")
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	query := `
SELECT run_id, agent_id, agent_name, task, model, success, output, error, iterations, execution_time_ms, created_at_unix_ms
FROM agent_runs
`
	args := []any{}
	if strings.TrimSpace(agentID) != "" {
		query += `WHERE agent_id = ?
`
		args = append(args, strings.TrimSpace(agentID))
	}
	query += `ORDER BY created_at_unix_ms DESC, run_id DESC
LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var run Run
		var success int
		if err := rows.Scan(&run.RunID, &run.AgentID, &run.AgentName, &run.Task, &run.Model, &success, &run.Output, &run.Error, &run.Iterations, &run.ExecutionTimeMS, &run.CreatedAtUnixMs); err != nil {
			return nil, err
		}
		run.Success = success != 0
		out = append(out, run)
	}
	return out, rows.Err()
}

// ListCalls returns a run's tool calls in invocation order.
func (s *Store) ListCalls(ctx context.Context, runID string) ([]Call, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store closed")
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, run_id, seq, call_id, tool, input_json, output
FROM agent_run_calls
WHERE run_id = ?
ORDER BY seq ASC
`, strings.TrimSpace(runID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Call
	for rows.Next() {
		var call Call
		if err := rows.Scan(&call.ID, &call.RunID, &call.Seq, &call.CallID, &call.Tool, &call.InputJSON, &call.Output); err != nil {
			return nil, err
		}
		out = append(out, call)
	}
	return out, rows.Err()
}

// EncodeInput serializes a tool input map for storage; empty input stores as
// the empty string.
func EncodeInput(input map[string]any) string {
	if len(input) == 0 {
		return ""
	}
	b, err := json.Marshal(input)
	if err != nil {
		return ""
	}
	return string(b)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func initSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("nil db")
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		return fmt.Errorf("pragma journal_mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout=3000;`); err != nil {
		return fmt.Errorf("pragma busy_timeout: %w", err)
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS agent_runs (
	run_id TEXT PRIMARY KEY,
	agent_id TEXT NOT NULL,
	agent_name TEXT NOT NULL DEFAULT '',
	task TEXT NOT NULL DEFAULT '',
	model TEXT NOT NULL DEFAULT '',
	success INTEGER NOT NULL DEFAULT 0,
	output TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT '',
	iterations INTEGER NOT NULL DEFAULT 0,
	execution_time_ms INTEGER NOT NULL DEFAULT 0,
	created_at_unix_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_agent_runs_agent ON agent_runs (agent_id, created_at_unix_ms DESC);

CREATE TABLE IF NOT EXISTS agent_run_calls (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	call_id TEXT NOT NULL DEFAULT '',
	tool TEXT NOT NULL,
	input_json TEXT NOT NULL DEFAULT '',
	output TEXT NOT NULL DEFAULT '',
	FOREIGN KEY (run_id) REFERENCES agent_runs (run_id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_agent_run_calls_run ON agent_run_calls (run_id, seq);
`); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}
