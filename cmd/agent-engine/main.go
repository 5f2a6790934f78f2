package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/term"

	"github.com/harborml/agent-engine/internal/auditlog"
	"github.com/harborml/agent-engine/internal/bridge"
	"github.com/harborml/agent-engine/internal/config"
	toolexec "github.com/harborml/agent-engine/internal/executor"
	"github.com/harborml/agent-engine/internal/permission"
	"github.com/harborml/agent-engine/internal/runtime"
	"github.com/harborml/agent-engine/internal/schema"
	"github.com/harborml/agent-engine/internal/subagent"
	"github.com/harborml/agent-engine/internal/tracestore"
)

var (
	// Version is set via -ldflags at build time.
	Version = "dev"
	// Commit is set via -ldflags at build time.
	Commit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "run":
		runCmd(os.Args[2:])
	case "tools":
		toolsCmd(os.Args[2:])
	case "agents":
		agentsCmd(os.Args[2:])
	case "version":
		fmt.Printf("agent-engine %s (%s)\n", Version, Commit)
	default:
		printUsage()
		os.Exit(2)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `agent-engine

Usage:
  agent-engine run -config <path> -agent <id> -task <text> [flags]
  agent-engine tools [-category <name>]
  agent-engine agents -config <path> [-validate]
  agent-engine version

Commands:
  run       Execute one task with the named subagent.
  tools     List the tool catalog.
  agents    List (and optionally validate) the configured subagents.
  version   Print build information.

`)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	// Text for humans at a terminal, JSON for collectors.
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func runCmd(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "config.json", "Config file path")
	agentID := fs.String("agent", "", "Subagent id from the agents file")
	task := fs.String("task", "", "Task text")
	timeout := fs.Duration("timeout", 2*time.Minute, "Task timeout")
	includeCalls := fs.Bool("trace", false, "Include the tool-call trace in the output")
	_ = fs.Parse(args)

	if strings.TrimSpace(*agentID) == "" || strings.TrimSpace(*task) == "" {
		fs.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(filepath.Clean(*cfgPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := newLogger(cfg.LogLevel)
	slog.SetDefault(log)

	agents, err := config.LoadAgents(cfg.AgentsFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load agents: %v\n", err)
		os.Exit(1)
	}
	var agentCfg *subagent.Config
	for i := range agents {
		if agents[i].ID == strings.TrimSpace(*agentID) {
			agentCfg = &agents[i]
			break
		}
	}
	if agentCfg == nil {
		fmt.Fprintf(os.Stderr, "unknown agent %q\n", *agentID)
		os.Exit(1)
	}

	executor, cleanup, err := buildExecutor(cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init engine: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown on SIGINT/SIGTERM.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		cancel()
	}()

	result, err := executor.ExecuteTask(ctx, *agentCfg, *task, subagent.TaskOptions{
		Timeout:          *timeout,
		IncludeToolCalls: *includeCalls,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid agent config: %v\n", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
	if !result.Success {
		os.Exit(1)
	}
}

// buildExecutor wires the engine: schema registry, workspace bridge, tool
// executor, permission manager, provider runtime, and the optional audit and
// trace observers.
func buildExecutor(cfg config.Config, log *slog.Logger) (*subagent.Executor, func(), error) {
	registry := schema.NewRegistry()

	br, err := bridge.New(bridge.Options{Root: cfg.WorkspaceRoot, Logger: log})
	if err != nil {
		return nil, nil, fmt.Errorf("bridge: %w", err)
	}

	tools := toolexec.New(toolexec.Options{
		Schemas:        registry,
		Handlers:       br,
		CachingEnabled: cfg.Caching(),
		DefaultTimeout: time.Duration(cfg.DefaultTimeoutMS) * time.Millisecond,
		Logger:         log,
	})

	rt, err := runtime.New(cfg.Provider.Type, runtime.Options{
		APIKey:  cfg.Provider.ResolveAPIKey(),
		BaseURL: cfg.Provider.BaseURL,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("runtime: %w", err)
	}

	var observers []subagent.RunObserver
	cleanup := func() {}

	if dir := strings.TrimSpace(cfg.AuditLogDir); dir != "" {
		audit, err := auditlog.New(auditlog.Options{Dir: dir, Logger: log})
		if err != nil {
			return nil, nil, fmt.Errorf("auditlog: %w", err)
		}
		observers = append(observers, &auditObserver{store: audit})
	}
	if path := strings.TrimSpace(cfg.TraceDBPath); path != "" {
		traces, err := tracestore.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("tracestore: %w", err)
		}
		observers = append(observers, &traceObserver{store: traces, log: log})
		cleanup = func() { _ = traces.Close() }
	}

	executor := subagent.NewExecutor(subagent.ExecutorOptions{
		Factory:   subagent.NewFactory(registry, log),
		Tools:     tools,
		Perms:     permission.NewManager(registry, log),
		Runtime:   rt,
		Logger:    log,
		Observers: observers,
	})
	return executor, cleanup, nil
}

func toolsCmd(args []string) {
	fs := flag.NewFlagSet("tools", flag.ExitOnError)
	category := fs.String("category", "", "Filter by category (read|write|execute|version-control|analysis)")
	_ = fs.Parse(args)

	registry := schema.NewRegistry()
	schemas := registry.All()
	if strings.TrimSpace(*category) != "" {
		schemas = registry.ByCategory(schema.Category(strings.TrimSpace(*category)))
	}
	for _, sc := range schemas {
		flags := make([]string, 0, 2)
		if sc.Parallel {
			flags = append(flags, "parallel")
		}
		if sc.Cacheable {
			flags = append(flags, "cacheable")
		}
		suffix := ""
		if len(flags) > 0 {
			suffix = " [" + strings.Join(flags, ",") + "]"
		}
		fmt.Printf("%-22s %-16s %s%s\n", sc.Name, sc.Category, sc.Description, suffix)
	}
}

func agentsCmd(args []string) {
	fs := flag.NewFlagSet("agents", flag.ExitOnError)
	cfgPath := fs.String("config", "config.json", "Config file path")
	validate := fs.Bool("validate", false, "Validate every agent config")
	_ = fs.Parse(args)

	cfg, err := config.Load(filepath.Clean(*cfgPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	agents, err := config.LoadAgents(cfg.AgentsFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load agents: %v\n", err)
		os.Exit(1)
	}

	factory := subagent.NewFactory(schema.NewRegistry(), newLogger(cfg.LogLevel))
	exitCode := 0
	for _, agent := range agents {
		fmt.Printf("%-16s %s (model=%s, tools=%d)\n", agent.ID, agent.Name, agent.Model, len(agent.Tools))
		if !*validate {
			continue
		}
		result := factory.Validate(agent)
		for _, msg := range result.Errors {
			fmt.Printf("  error: %s\n", msg)
			exitCode = 1
		}
		for _, msg := range result.Warnings {
			fmt.Printf("  warning: %s\n", msg)
		}
	}
	os.Exit(exitCode)
}

// auditObserver appends one audit entry per completed run.
type auditObserver struct {
	store *auditlog.Store
}

func (o *auditObserver) RunCompleted(_ context.Context, record subagent.RunRecord) {
	status := "success"
	if !record.Success {
		status = "failure"
	}
	o.store.Append(auditlog.Entry{
		Action:          "subagent_run",
		Status:          status,
		Error:           record.Error,
		AgentID:         record.AgentID,
		AgentName:       record.AgentName,
		Task:            record.Task,
		Model:           record.Model,
		Iterations:      record.Iterations,
		ExecutionTimeMS: record.ExecutionTimeMS,
		ToolCallCount:   len(record.ToolCalls),
	})
}

// traceObserver persists the run and its tool calls.
type traceObserver struct {
	store *tracestore.Store
	log   *slog.Logger
}

func (o *traceObserver) RunCompleted(ctx context.Context, record subagent.RunRecord) {
	calls := make([]tracestore.Call, 0, len(record.ToolCalls))
	for _, entry := range record.ToolCalls {
		calls = append(calls, tracestore.Call{
			CallID:    entry.CallID,
			Tool:      entry.Tool,
			InputJSON: tracestore.EncodeInput(entry.Input),
			Output:    entry.Output,
		})
	}
	run := tracestore.Run{
		RunID:           uuid.NewString(),
		AgentID:         record.AgentID,
		AgentName:       record.AgentName,
		Task:            record.Task,
		Model:           record.Model,
		Success:         record.Success,
		Output:          record.Output,
		Error:           record.Error,
		Iterations:      record.Iterations,
		ExecutionTimeMS: record.ExecutionTimeMS,
		CreatedAtUnixMs: record.StartedAt.UnixMilli(),
	}
	if err := o.store.SaveRun(ctx, run, calls); err != nil {
		o.log.Warn("trace persist failed", "run", run.RunID, "err", err)
	}
}
