package subagent

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	toolexec "github.com/harborml/agent-engine/internal/executor"
	"github.com/harborml/agent-engine/internal/permission"
	"github.com/harborml/agent-engine/internal/runtime"
)

const defaultTaskTimeout = 2 * time.Minute

// TaskOptions bounds one task execution. Zero values take the descriptor's
// (or package) defaults.
type TaskOptions struct {
	Timeout          time.Duration
	MaxIterations    int
	IncludeToolCalls bool
}

// Result is the outcome of one subagent run. Failures are data: only config
// validation surfaces as an error from ExecuteTask.
type Result struct {
	Success         bool         `json:"success"`
	AgentID         string       `json:"agent_id"`
	AgentName       string       `json:"agent_name"`
	Output          string       `json:"output"`
	Model           string       `json:"model"`
	ExecutionTimeMS int64        `json:"execution_time_ms"`
	ToolCalls       []TraceEntry `json:"tool_calls,omitempty"`
	Error           string       `json:"error,omitempty"`
}

// RunRecord is the observer view of a completed run.
type RunRecord struct {
	AgentID         string       `json:"agent_id"`
	AgentName       string       `json:"agent_name"`
	Task            string       `json:"task"`
	Model           string       `json:"model"`
	Success         bool         `json:"success"`
	Output          string       `json:"output,omitempty"`
	Error           string       `json:"error,omitempty"`
	Iterations      int          `json:"iterations"`
	ExecutionTimeMS int64        `json:"execution_time_ms"`
	ToolCalls       []TraceEntry `json:"tool_calls,omitempty"`
	StartedAt       time.Time    `json:"started_at"`
}

// RunObserver receives completed runs. Observers are best-effort: their
// failures never affect the run result.
type RunObserver interface {
	RunCompleted(ctx context.Context, record RunRecord)
}

// Executor drives a single-agent loop: ask the runtime to continue, execute
// the tool calls it requests, feed results back, until a round produces no
// tool calls or a bound is hit.
type Executor struct {
	factory   *Factory
	tools     *toolexec.Executor
	perms     *permission.Manager
	rt        runtime.Runtime
	log       *slog.Logger
	observers []RunObserver
}

type ExecutorOptions struct {
	Factory   *Factory
	Tools     *toolexec.Executor
	Perms     *permission.Manager
	Runtime   runtime.Runtime
	Logger    *slog.Logger
	Observers []RunObserver
}

func NewExecutor(opts ExecutorOptions) *Executor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		factory:   opts.Factory,
		tools:     opts.Tools,
		perms:     opts.Perms,
		rt:        opts.Runtime,
		log:       logger,
		observers: opts.Observers,
	}
}

// ExecuteTask runs one task to completion. The timeout is enforced through
// context cancellation, so a losing runtime call is actually stopped; the
// reported result is a failed Result with "Execution timed out" and the
// elapsed time preserved.
func (e *Executor) ExecuteTask(ctx context.Context, cfg Config, task string, opts TaskOptions) (Result, error) {
	desc, err := e.factory.Create(cfg)
	if err != nil {
		return Result{}, err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTaskTimeout
	}
	maxIterations := opts.MaxIterations
	if maxIterations <= 0 {
		maxIterations = desc.MaxIterations
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	messages := []runtime.Message{runtime.TextMessage("user", task)}
	iterations := 0

	finish := func(result Result) (Result, error) {
		result.AgentID = desc.ID
		result.AgentName = desc.Name
		result.Model = desc.Binding.Model
		result.ExecutionTimeMS = time.Since(start).Milliseconds()
		if opts.IncludeToolCalls {
			result.ToolCalls = ExtractTrace(messages)
		}
		e.notify(ctx, task, desc, result, iterations)
		return result, nil
	}

	maxTokens := 0
	if desc.MaxTokens != nil {
		maxTokens = *desc.MaxTokens
	}

	for iterations < maxIterations {
		if runCtx.Err() != nil {
			return finish(Result{Success: false, Error: "Execution timed out"})
		}
		iterations++

		reply, err := e.rt.Turn(runCtx, runtime.Request{
			Model:       desc.Binding.Model,
			System:      desc.SystemPrompt,
			Messages:    messages,
			Tools:       desc.Tools,
			MaxTokens:   maxTokens,
			Temperature: desc.Temperature,
		})
		if err != nil {
			if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
				return finish(Result{Success: false, Error: "Execution timed out"})
			}
			e.log.Error("runtime turn failed", "agent", desc.ID, "iteration", iterations, "err", err)
			return finish(Result{Success: false, Error: err.Error()})
		}
		messages = append(messages, reply.Messages...)

		// Router: a round with no tool calls means the agent is done.
		if len(reply.ToolUses) == 0 {
			break
		}
		for _, use := range reply.ToolUses {
			messages = append(messages, runtime.ToolResultMessage(use.ID, e.runTool(runCtx, cfg, use)))
		}
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return finish(Result{Success: false, Error: "Execution timed out"})
	}
	return finish(Result{Success: true, Output: ExtractOutput(messages)})
}

// runTool enforces permissions then executes, returning the JSON payload
// fed back to the model.
func (e *Executor) runTool(ctx context.Context, cfg Config, use runtime.ToolUse) string {
	decision := e.perms.CheckPermission(cfg.ID, cfg.Tools, use.Name)
	if !decision.Allowed {
		return encodeToolPayload(toolexec.ToolResult{Success: false, Error: decision.Suggestion})
	}
	result := e.tools.Execute(ctx, toolexec.ToolCall{
		ID:        use.ID,
		Tool:      use.Name,
		Args:      use.Input,
		Timestamp: time.Now(),
	})
	return encodeToolPayload(result)
}

func encodeToolPayload(result toolexec.ToolResult) string {
	b, err := json.Marshal(result)
	if err != nil {
		return `{"success":false,"error":"unencodable tool result"}`
	}
	return string(b)
}

func (e *Executor) notify(ctx context.Context, task string, desc Descriptor, result Result, iterations int) {
	if len(e.observers) == 0 {
		return
	}
	record := RunRecord{
		AgentID:         desc.ID,
		AgentName:       desc.Name,
		Task:            task,
		Model:           desc.Binding.Model,
		Success:         result.Success,
		Output:          result.Output,
		Error:           result.Error,
		Iterations:      iterations,
		ExecutionTimeMS: result.ExecutionTimeMS,
		ToolCalls:       result.ToolCalls,
		StartedAt:       time.Now().Add(-time.Duration(result.ExecutionTimeMS) * time.Millisecond),
	}
	// The run context may already be expired; observers get a detached one.
	obsCtx := context.WithoutCancel(ctx)
	for _, obs := range e.observers {
		obs.RunCompleted(obsCtx, record)
	}
}
