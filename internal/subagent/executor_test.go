package subagent

import (
	"context"
	"strings"
	"testing"
	"time"

	toolexec "github.com/harborml/agent-engine/internal/executor"
	"github.com/harborml/agent-engine/internal/permission"
	"github.com/harborml/agent-engine/internal/runtime"
	"github.com/harborml/agent-engine/internal/schema"
)

// scriptedRuntime replays a fixed sequence of replies.
type scriptedRuntime struct {
	replies []runtime.Reply
	calls   int
}

func (s *scriptedRuntime) Turn(ctx context.Context, _ runtime.Request) (runtime.Reply, error) {
	if err := ctx.Err(); err != nil {
		return runtime.Reply{}, err
	}
	if s.calls >= len(s.replies) {
		return runtime.Reply{}, nil
	}
	reply := s.replies[s.calls]
	s.calls++
	return reply, nil
}

// blockingRuntime never answers until the context expires.
type blockingRuntime struct{}

func (blockingRuntime) Turn(ctx context.Context, _ runtime.Request) (runtime.Reply, error) {
	<-ctx.Done()
	return runtime.Reply{}, ctx.Err()
}

type echoHandlers struct{}

func (echoHandlers) Handler(name string) (func(context.Context, map[string]any) (any, error), bool) {
	return func(_ context.Context, args map[string]any) (any, error) {
		return map[string]any{"tool": name, "args": args}, nil
	}, true
}

func newTestSubagentExecutor(t *testing.T, rt runtime.Runtime, observers ...RunObserver) *Executor {
	t.Helper()
	reg := schema.NewRegistry()
	return NewExecutor(ExecutorOptions{
		Factory:   NewFactory(reg, nil),
		Tools:     toolexec.New(toolexec.Options{Schemas: reg, Handlers: echoHandlers{}}),
		Perms:     permission.NewManager(reg, nil),
		Runtime:   rt,
		Observers: observers,
	})
}

func assistantText(text string) runtime.Reply {
	return runtime.Reply{
		Messages:   []runtime.Message{runtime.TextMessage("assistant", text)},
		StopReason: "stop",
	}
}

func toolUseReply(uses ...runtime.ToolUse) runtime.Reply {
	return runtime.Reply{
		Messages:   []runtime.Message{{Role: "assistant", Type: runtime.MessageToolUse, ToolUses: uses}},
		ToolUses:   uses,
		StopReason: "tool_calls",
	}
}

func TestExecuteTask_HappyPath(t *testing.T) {
	t.Parallel()

	e := newTestSubagentExecutor(t, &scriptedRuntime{replies: []runtime.Reply{assistantText("Done.")}})
	result, err := e.ExecuteTask(context.Background(), validConfig(), "say done", TaskOptions{})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.Success {
		t.Fatalf("result=%+v, want success", result)
	}
	if result.Output != "Done." {
		t.Fatalf("output=%q, want=%q", result.Output, "Done.")
	}
	if result.AgentID != "reviewer" || result.Model == "" {
		t.Fatalf("result=%+v, want agent id and model stamped", result)
	}
}

func TestExecuteTask_EmptyReplyYieldsEmptyOutput(t *testing.T) {
	t.Parallel()

	e := newTestSubagentExecutor(t, &scriptedRuntime{})
	result, err := e.ExecuteTask(context.Background(), validConfig(), "anything", TaskOptions{})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.Success || result.Output != "" {
		t.Fatalf("result=%+v, want success with empty output", result)
	}
}

func TestExecuteTask_ToolLoop(t *testing.T) {
	t.Parallel()

	rt := &scriptedRuntime{replies: []runtime.Reply{
		toolUseReply(runtime.ToolUse{ID: "call_1", Name: "read_file", Input: map[string]any{"path": "a.txt"}}),
		assistantText("Saw the file."),
	}}
	e := newTestSubagentExecutor(t, rt)

	result, err := e.ExecuteTask(context.Background(), validConfig(), "read a.txt", TaskOptions{IncludeToolCalls: true})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.Success || result.Output != "Saw the file." {
		t.Fatalf("result=%+v", result)
	}
	if rt.calls != 2 {
		t.Fatalf("turns=%d, want=2", rt.calls)
	}
	if len(result.ToolCalls) != 1 {
		t.Fatalf("trace=%v, want one entry", result.ToolCalls)
	}
	entry := result.ToolCalls[0]
	if entry.CallID != "call_1" || entry.Tool != "read_file" {
		t.Fatalf("entry=%+v", entry)
	}
	if !strings.Contains(entry.Output, `"success":true`) {
		t.Fatalf("output=%q, want executed result attached", entry.Output)
	}
}

func TestExecuteTask_PermissionDenied(t *testing.T) {
	t.Parallel()

	rt := &scriptedRuntime{replies: []runtime.Reply{
		toolUseReply(runtime.ToolUse{ID: "call_1", Name: "write_file", Input: map[string]any{"path": "a.txt", "content": "x"}}),
		assistantText("Could not write."),
	}}
	e := newTestSubagentExecutor(t, rt)

	cfg := validConfig()
	cfg.Tools = []string{"read_file"}
	result, err := e.ExecuteTask(context.Background(), cfg, "write something", TaskOptions{IncludeToolCalls: true})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(result.ToolCalls) != 1 {
		t.Fatalf("trace=%v, want one entry", result.ToolCalls)
	}
	if !strings.Contains(result.ToolCalls[0].Output, "write_file") || !strings.Contains(result.ToolCalls[0].Output, `"success":false`) {
		t.Fatalf("output=%q, want denial with suggestion", result.ToolCalls[0].Output)
	}
}

func TestExecuteTask_Timeout(t *testing.T) {
	t.Parallel()

	e := newTestSubagentExecutor(t, blockingRuntime{})
	start := time.Now()
	result, err := e.ExecuteTask(context.Background(), validConfig(), "hang", TaskOptions{Timeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("timeout is result data, not an error: %v", err)
	}
	if result.Success {
		t.Fatalf("result=%+v, want failure", result)
	}
	if result.Error != "Execution timed out" {
		t.Fatalf("error=%q, want=%q", result.Error, "Execution timed out")
	}
	if result.ExecutionTimeMS < 40 {
		t.Fatalf("execution_time_ms=%d, want elapsed time preserved", result.ExecutionTimeMS)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("timeout did not cancel the runtime call")
	}
}

func TestExecuteTask_IterationBound(t *testing.T) {
	t.Parallel()

	// A runtime that always wants another tool call must be stopped by the
	// iteration bound.
	replies := make([]runtime.Reply, 10)
	for i := range replies {
		replies[i] = toolUseReply(runtime.ToolUse{ID: "call", Name: "read_file", Input: map[string]any{"path": "a"}})
	}
	rt := &scriptedRuntime{replies: replies}
	e := newTestSubagentExecutor(t, rt)

	_, err := e.ExecuteTask(context.Background(), validConfig(), "loop forever", TaskOptions{MaxIterations: 3})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if rt.calls != 3 {
		t.Fatalf("turns=%d, want bounded at 3", rt.calls)
	}
}

func TestExecuteTask_InvalidConfigFailsFast(t *testing.T) {
	t.Parallel()

	e := newTestSubagentExecutor(t, &scriptedRuntime{})
	cfg := validConfig()
	cfg.SystemPrompt = "x"
	if _, err := e.ExecuteTask(context.Background(), cfg, "anything", TaskOptions{}); err == nil {
		t.Fatalf("expected config validation error")
	}
}

type captureObserver struct {
	records []RunRecord
}

func (c *captureObserver) RunCompleted(_ context.Context, record RunRecord) {
	c.records = append(c.records, record)
}

func TestExecuteTask_NotifiesObservers(t *testing.T) {
	t.Parallel()

	obs := &captureObserver{}
	e := newTestSubagentExecutor(t, &scriptedRuntime{replies: []runtime.Reply{assistantText("Done.")}}, obs)

	if _, err := e.ExecuteTask(context.Background(), validConfig(), "say done", TaskOptions{}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(obs.records) != 1 {
		t.Fatalf("records=%d, want=1", len(obs.records))
	}
	record := obs.records[0]
	if !record.Success || record.Task != "say done" || record.Iterations != 1 {
		t.Fatalf("record=%+v", record)
	}
}
