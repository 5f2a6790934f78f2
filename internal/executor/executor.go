package executor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harborml/agent-engine/internal/schema"
)

const (
	defaultHandlerTimeout = 30 * time.Second
	defaultMaxConcurrency = 10
	defaultReadChunkSize  = 10
)

// ExecutionStatus is the lifecycle state of one tool execution.
type ExecutionStatus string

const (
	StatusPending ExecutionStatus = "pending"
	StatusRunning ExecutionStatus = "running"
	StatusSuccess ExecutionStatus = "success"
	StatusError   ExecutionStatus = "error"
	// StatusCancelled is a defined terminal state. It is currently only
	// reachable through caller-side context cancellation.
	StatusCancelled ExecutionStatus = "cancelled"
)

// ToolCall is one immutable tool invocation request.
type ToolCall struct {
	ID        string         `json:"id"`
	Tool      string         `json:"tool"`
	Args      map[string]any `json:"args,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewToolCall stamps an id and timestamp onto a tool invocation.
func NewToolCall(tool string, args map[string]any) ToolCall {
	return ToolCall{
		ID:        uuid.NewString(),
		Tool:      strings.TrimSpace(tool),
		Args:      args,
		Timestamp: time.Now(),
	}
}

// ToolResult is the outcome of one tool invocation. Success and Error are
// mutually consistent: Error is empty iff Success is true.
type ToolResult struct {
	Success    bool      `json:"success"`
	Data       any       `json:"data,omitempty"`
	Error      string    `json:"error,omitempty"`
	Code       ErrorCode `json:"code,omitempty"`
	DurationMS int64     `json:"duration_ms,omitempty"`
	Cached     bool      `json:"cached,omitempty"`
}

// ToolExecution pairs a call with its lifecycle state and result.
type ToolExecution struct {
	Call      ToolCall        `json:"call"`
	Status    ExecutionStatus `json:"status"`
	Result    *ToolResult     `json:"result,omitempty"`
	StartedAt time.Time       `json:"started_at,omitempty"`
	EndedAt   time.Time       `json:"ended_at,omitempty"`
}

// HandlerResolver locates the handler for a canonical tool name.
type HandlerResolver interface {
	Handler(name string) (func(ctx context.Context, args map[string]any) (any, error), bool)
}

// Executor runs tool calls against the schema registry and handler bridge,
// with caching, timeout enforcement, and bounded-concurrency batches.
type Executor struct {
	schemas        *schema.Registry
	handlers       HandlerResolver
	cache          *resultCache
	cachingEnabled bool
	defaultTimeout time.Duration
	log            *slog.Logger
}

type Options struct {
	Schemas        *schema.Registry
	Handlers       HandlerResolver
	CachingEnabled bool
	CacheCapacity  int
	DefaultTimeout time.Duration
	Logger         *slog.Logger
}

func New(opts Options) *Executor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.DefaultTimeout
	if timeout <= 0 {
		timeout = defaultHandlerTimeout
	}
	return &Executor{
		schemas:        opts.Schemas,
		handlers:       opts.Handlers,
		cache:          newResultCache(opts.CacheCapacity),
		cachingEnabled: opts.CachingEnabled,
		defaultTimeout: timeout,
		log:            logger,
	}
}

// ClearCache drops all cached results. Invalidation is deliberately coarse;
// there is no per-key or pattern form.
func (e *Executor) ClearCache() {
	if e == nil {
		return
	}
	e.cache.clear()
}

// Execute runs one tool call. Failures are returned as data, never raised:
// unknown tools, missing handlers, handler errors, timeouts, and panics all
// produce a failed ToolResult.
func (e *Executor) Execute(ctx context.Context, call ToolCall) ToolResult {
	if e == nil || e.schemas == nil {
		return ToolResult{Success: false, Error: "executor unavailable"}
	}
	name := strings.TrimSpace(call.Tool)
	sc, ok := e.schemas.Lookup(name)
	if !ok {
		return ToolResult{Success: false, Error: fmt.Sprintf("Unknown tool: %s", name), Code: CodeUnknownTool}
	}

	// Alias transparency: the cache and the handler both see the canonical
	// name, so an alias and its canonical form share results.
	canonical := sc.Name
	key := ""
	cacheable := sc.Cacheable && e.cachingEnabled
	if cacheable {
		key = cacheKey(canonical, call.Args)
		if value, hit := e.cache.get(key); hit {
			return ToolResult{Success: true, Data: value, Cached: true}
		}
	}

	if e.handlers == nil {
		return ToolResult{Success: false, Error: fmt.Sprintf("No handler registered for tool: %s", canonical), Code: CodeNoHandler}
	}
	handler, ok := e.handlers.Handler(canonical)
	if !ok {
		return ToolResult{Success: false, Error: fmt.Sprintf("No handler registered for tool: %s", canonical), Code: CodeNoHandler}
	}

	timeout := e.defaultTimeout
	if sc.TimeoutMS > 0 {
		timeout = time.Duration(sc.TimeoutMS) * time.Millisecond
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	data, err := e.invoke(runCtx, handler, call.Args)
	elapsed := time.Since(start)

	if runCtx.Err() == context.DeadlineExceeded {
		e.log.Warn("tool timed out", "tool", canonical, "timeout", timeout)
		return ToolResult{
			Success:    false,
			Error:      fmt.Sprintf("Tool %s timed out after %s", canonical, timeout),
			Code:       CodeTimeout,
			DurationMS: elapsed.Milliseconds(),
		}
	}
	if err != nil {
		return ToolResult{Success: false, Error: err.Error(), Code: classifyError(err.Error()), DurationMS: elapsed.Milliseconds()}
	}

	if cacheable {
		ttl := time.Duration(sc.CacheTimeoutMS) * time.Millisecond
		e.cache.put(key, data, ttl)
	}
	return ToolResult{Success: true, Data: data, DurationMS: elapsed.Milliseconds()}
}

// invoke runs the handler under the timeout context. The handler receives
// the context, so a losing branch is cancelled rather than abandoned; the
// select still guards against handlers that ignore cancellation.
func (e *Executor) invoke(ctx context.Context, handler func(context.Context, map[string]any) (any, error), args map[string]any) (data any, err error) {
	type outcome struct {
		data any
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("handler panic: %v", r)}
			}
		}()
		d, herr := handler(ctx, args)
		done <- outcome{data: d, err: herr}
	}()
	select {
	case out := <-done:
		return out.data, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// BatchOptions controls Batch execution.
type BatchOptions struct {
	Parallel       bool
	StopOnError    bool
	MaxConcurrency int
}

// Batch executes calls and returns results in the original input order.
//
// In parallel mode, calls whose schema marks them parallel-eligible run
// through a bounded worker pool; everything else runs strictly in input
// order afterward. The index correspondence between calls[i] and
// results[i] is guaranteed either way — callers depend on it.
func (e *Executor) Batch(ctx context.Context, calls []ToolCall, opts BatchOptions) []ToolResult {
	if len(calls) == 0 {
		return nil
	}
	results := make([]ToolResult, len(calls))

	if !opts.Parallel {
		for i, call := range calls {
			results[i] = e.Execute(ctx, call)
			if opts.StopOnError && !results[i].Success {
				for j := i + 1; j < len(calls); j++ {
					results[j] = ToolResult{Success: false, Error: "skipped: batch stopped on earlier error"}
				}
				break
			}
		}
		return results
	}

	limit := opts.MaxConcurrency
	if limit <= 0 {
		limit = defaultMaxConcurrency
	}

	parallelIdx := make([]int, 0, len(calls))
	serialIdx := make([]int, 0, len(calls))
	for i, call := range calls {
		if sc, ok := e.schemas.Lookup(call.Tool); ok && sc.Parallel {
			parallelIdx = append(parallelIdx, i)
		} else {
			serialIdx = append(serialIdx, i)
		}
	}

	if len(parallelIdx) > 0 {
		sem := make(chan struct{}, limit)
		var wg sync.WaitGroup
		for _, idx := range parallelIdx {
			idx := idx
			wg.Add(1)
			go func() {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()
				results[idx] = e.Execute(ctx, calls[idx])
			}()
		}
		wg.Wait()
	}

	// Non-parallel tools mutate shared workspace state and must not
	// interleave; they run strictly in input order.
	for _, idx := range serialIdx {
		results[idx] = e.Execute(ctx, calls[idx])
	}
	return results
}

// BatchRead reads many paths through the canonical read tool in fixed-size
// chunks, bounding concurrent file handles and memory.
func (e *Executor) BatchRead(ctx context.Context, paths []string, chunkSize int) map[string]ToolResult {
	if chunkSize <= 0 {
		chunkSize = defaultReadChunkSize
	}
	out := make(map[string]ToolResult, len(paths))
	for start := 0; start < len(paths); start += chunkSize {
		end := start + chunkSize
		if end > len(paths) {
			end = len(paths)
		}
		chunk := paths[start:end]
		calls := make([]ToolCall, 0, len(chunk))
		for _, p := range chunk {
			calls = append(calls, NewToolCall("read_file", map[string]any{"path": p}))
		}
		results := e.Batch(ctx, calls, BatchOptions{Parallel: true})
		for i, result := range results {
			out[chunk[i]] = result
		}
	}
	return out
}
