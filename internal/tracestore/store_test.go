package tracestore

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "trace.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndGetRun(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	run := Run{
		RunID:           "run-1",
		AgentID:         "reviewer",
		AgentName:       "Code Reviewer",
		Task:            "review the diff",
		Model:           "claude-sonnet-4-5",
		Success:         true,
		Output:          "Looks fine.",
		Iterations:      2,
		ExecutionTimeMS: 1200,
	}
	calls := []Call{
		{CallID: "c1", Tool: "git_diff", InputJSON: `{"staged":false}`, Output: `{"success":true}`},
		{CallID: "c2", Tool: "read_file", InputJSON: `{"path":"main.go"}`, Output: `{"success":true}`},
	}
	if err := s.SaveRun(ctx, run, calls); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.AgentID != "reviewer" || !got.Success || got.Output != "Looks fine." {
		t.Fatalf("run=%+v", got)
	}
	if got.CreatedAtUnixMs <= 0 {
		t.Fatalf("created_at not stamped")
	}

	stored, err := s.ListCalls(ctx, "run-1")
	if err != nil {
		t.Fatalf("list calls: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("calls=%d, want=2", len(stored))
	}
	if stored[0].Tool != "git_diff" || stored[0].Seq != 0 || stored[1].Seq != 1 {
		t.Fatalf("calls=%+v, want invocation order preserved", stored)
	}
}

func TestGetRun_Missing(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	got, err := s.GetRun(context.Background(), "nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("run=%+v, want nil for missing id", got)
	}
}

func TestListRuns_FilterAndOrder(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c"} {
		agent := "reviewer"
		if id == "b" {
			agent = "fixer"
		}
		run := Run{RunID: "run-" + id, AgentID: agent, CreatedAtUnixMs: int64(1000 + i)}
		if err := s.SaveRun(ctx, run, nil); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	runs, err := s.ListRuns(ctx, "reviewer", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs=%d, want=2", len(runs))
	}
	if runs[0].RunID != "run-c" || runs[1].RunID != "run-a" {
		t.Fatalf("runs=%+v, want newest first", runs)
	}

	all, err := s.ListRuns(ctx, "", 10)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("all=%d, want=3", len(all))
	}
}

func TestEncodeInput(t *testing.T) {
	t.Parallel()

	if got := EncodeInput(nil); got != "" {
		t.Fatalf("encoded=%q, want empty for nil input", got)
	}
	got := EncodeInput(map[string]any{"path": "a.txt"})
	if got != `{"path":"a.txt"}` {
		t.Fatalf("encoded=%q", got)
	}
}
