package schema

// builtinSchemas is the static tool catalog. Timeouts are per-tool upper
// bounds in milliseconds; cache TTLs only apply to read-only tools whose
// output is stable between workspace mutations.
var builtinSchemas = []ToolSchema{
	{
		Name:           "read_file",
		Description:    "Read the contents of a file. Large files are truncated with a visible marker.",
		Category:       CategoryRead,
		Venue:          VenueHost,
		Parallel:       true,
		TimeoutMS:      10_000,
		Retryable:      true,
		Cacheable:      true,
		CacheTimeoutMS: 30_000,
		Params: []Param{
			{Name: "path", Type: "string", Description: "File path, relative to the workspace root.", Required: true},
			{Name: "max_bytes", Type: "integer", Description: "Optional read cap in bytes."},
		},
	},
	{
		Name:           "read_multiple_files",
		Description:    "Read several files in one call. Returns a path-keyed result map.",
		Category:       CategoryRead,
		Venue:          VenueHost,
		Parallel:       true,
		TimeoutMS:      30_000,
		Retryable:      true,
		Cacheable:      false,
		Params: []Param{
			{Name: "paths", Type: "array", Required: true, Items: &Param{Name: "path", Type: "string"}},
		},
	},
	{
		Name:           "list_directory",
		Description:    "List the immediate entries of a directory (one level).",
		Category:       CategoryRead,
		Venue:          VenueHost,
		Parallel:       true,
		TimeoutMS:      5_000,
		Retryable:      true,
		Cacheable:      true,
		CacheTimeoutMS: 15_000,
		Params: []Param{
			{Name: "path", Type: "string", Description: "Directory path. Defaults to the workspace root."},
			{Name: "show_hidden", Type: "boolean"},
		},
	},
	{
		Name:           "directory_tree",
		Description:    "Recursive directory tree, depth-bounded. Skips build and vendor directories.",
		Category:       CategoryRead,
		Venue:          VenueHost,
		Parallel:       true,
		TimeoutMS:      15_000,
		Retryable:      true,
		Cacheable:      true,
		CacheTimeoutMS: 15_000,
		Params: []Param{
			{Name: "path", Type: "string"},
			{Name: "depth", Type: "integer", Description: "Tree depth, clamped to 1-5."},
		},
	},
	{
		Name:        "search_files",
		Description: "Line-oriented text/regex search across the workspace. Result count is capped.",
		Category:    CategoryRead,
		Venue:       VenueHost,
		Parallel:    true,
		TimeoutMS:   20_000,
		Retryable:   true,
		Params: []Param{
			{Name: "pattern", Type: "string", Required: true},
			{Name: "path", Type: "string", Description: "Subdirectory to search. Defaults to the workspace root."},
			{Name: "regex", Type: "boolean", Description: "Treat pattern as a regular expression."},
			{Name: "max_results", Type: "integer"},
		},
	},
	{
		Name:        "search_symbols",
		Description: "Heuristic symbol search by kind (function, class, interface).",
		Category:    CategoryRead,
		Venue:       VenueHost,
		Parallel:    true,
		TimeoutMS:   20_000,
		Retryable:   true,
		Params: []Param{
			{Name: "name", Type: "string", Required: true},
			{Name: "kind", Type: "string", Enum: []string{"function", "class", "interface"}},
		},
	},
	{
		Name:           "get_project_context",
		Description:    "Consolidated project overview: workspace identity, directory summary, dependency manifest, git status, README excerpt, entry points, host info.",
		Category:       CategoryRead,
		Venue:          VenueHost,
		Parallel:       true,
		TimeoutMS:      30_000,
		Retryable:      true,
		Cacheable:      true,
		CacheTimeoutMS: 60_000,
	},
	{
		Name:        "create_file",
		Description: "Create a new file. Fails if the file already exists.",
		Category:    CategoryWrite,
		Venue:       VenueHost,
		TimeoutMS:   10_000,
		Params: []Param{
			{Name: "path", Type: "string", Required: true},
			{Name: "content", Type: "string", Required: true},
		},
	},
	{
		Name:        "write_file",
		Description: "Write a file, creating or overwriting it.",
		Category:    CategoryWrite,
		Venue:       VenueHost,
		TimeoutMS:   10_000,
		Params: []Param{
			{Name: "path", Type: "string", Required: true},
			{Name: "content", Type: "string", Required: true},
		},
	},
	{
		Name:        "edit_file",
		Description: "Replace a unique text occurrence in a file. Fails if the search text is absent or appears more than once.",
		Category:    CategoryWrite,
		Venue:       VenueHost,
		TimeoutMS:   10_000,
		Params: []Param{
			{Name: "path", Type: "string", Required: true},
			{Name: "old_string", Type: "string", Required: true},
			{Name: "new_string", Type: "string", Required: true},
		},
	},
	{
		Name:        "multi_edit_file",
		Description: "Apply an ordered list of edits to one file atomically, with optional post-edit verification.",
		Category:    CategoryWrite,
		Venue:       VenueHost,
		TimeoutMS:   20_000,
		Params: []Param{
			{Name: "path", Type: "string", Required: true},
			{Name: "edits", Type: "array", Required: true, Items: &Param{
				Name: "edit", Type: "object", Properties: []Param{
					{Name: "old_string", Type: "string"},
					{Name: "new_string", Type: "string"},
					{Name: "start_line", Type: "integer"},
					{Name: "end_line", Type: "integer"},
					{Name: "replacement", Type: "string"},
				},
			}},
			{Name: "verify", Type: "boolean"},
		},
	},
	{
		Name:        "delete_file",
		Description: "Delete a file.",
		Category:    CategoryWrite,
		Venue:       VenueHost,
		TimeoutMS:   5_000,
		Params: []Param{
			{Name: "path", Type: "string", Required: true},
		},
	},
	{
		Name:        "run_command",
		Description: "Run a shell command in the workspace. A completed process is a successful invocation regardless of exit code; the exit code is returned as data.",
		Category:    CategoryExecute,
		Venue:       VenueHost,
		TimeoutMS:   30_000,
		Params: []Param{
			{Name: "command", Type: "string", Required: true},
			{Name: "cwd", Type: "string"},
			{Name: "timeout_ms", Type: "integer", Description: "Capped at 120000."},
		},
	},
	{
		Name:        "run_tests",
		Description: "Detect the project build system and run its test suite.",
		Category:    CategoryExecute,
		Venue:       VenueHost,
		TimeoutMS:   120_000,
		Params: []Param{
			{Name: "filter", Type: "string", Description: "Optional test name filter."},
		},
	},
	{
		Name:        "format_code",
		Description: "Detect the project build system and run its formatter.",
		Category:    CategoryExecute,
		Venue:       VenueHost,
		TimeoutMS:   60_000,
		Params: []Param{
			{Name: "path", Type: "string"},
		},
	},
	{
		Name:        "verify_changes",
		Description: "Run type-check, lint, test, or build depending on project type; parses error and warning counts from the output.",
		Category:    CategoryExecute,
		Venue:       VenueHost,
		TimeoutMS:   120_000,
		Params: []Param{
			{Name: "checks", Type: "array", Items: &Param{Name: "check", Type: "string", Enum: []string{"typecheck", "lint", "test", "build"}}},
		},
	},
	{
		Name:        "git_status",
		Description: "Show working tree status.",
		Category:    CategoryVersionControl,
		Venue:       VenueHost,
		Parallel:    true,
		TimeoutMS:   10_000,
		Retryable:   true,
	},
	{
		Name:        "git_diff",
		Description: "Show staged or unstaged changes, optionally filtered to a path.",
		Category:    CategoryVersionControl,
		Venue:       VenueHost,
		Parallel:    true,
		TimeoutMS:   15_000,
		Retryable:   true,
		Params: []Param{
			{Name: "staged", Type: "boolean"},
			{Name: "path", Type: "string"},
		},
	},
	{
		Name:        "git_add",
		Description: "Stage files for commit.",
		Category:    CategoryVersionControl,
		Venue:       VenueHost,
		TimeoutMS:   10_000,
		Params: []Param{
			{Name: "paths", Type: "array", Items: &Param{Name: "path", Type: "string"}},
		},
	},
	{
		Name:        "git_commit",
		Description: "Commit staged changes with a message.",
		Category:    CategoryVersionControl,
		Venue:       VenueHost,
		TimeoutMS:   15_000,
		Params: []Param{
			{Name: "message", Type: "string", Required: true},
		},
	},
	{
		Name:           "extract_imports",
		Description:    "Extract import statements from a source file by pattern matching (not a full parser).",
		Category:       CategoryAnalysis,
		Venue:          VenueEither,
		Parallel:       true,
		TimeoutMS:      10_000,
		Retryable:      true,
		Cacheable:      true,
		CacheTimeoutMS: 30_000,
		Params: []Param{
			{Name: "path", Type: "string", Required: true},
		},
	},
	{
		Name:           "extract_exports",
		Description:    "Extract exported declarations from a source file by pattern matching.",
		Category:       CategoryAnalysis,
		Venue:          VenueEither,
		Parallel:       true,
		TimeoutMS:      10_000,
		Retryable:      true,
		Cacheable:      true,
		CacheTimeoutMS: 30_000,
		Params: []Param{
			{Name: "path", Type: "string", Required: true},
		},
	},
	{
		Name:        "get_diagnostics",
		Description: "Language diagnostics for a file. Currently returns an empty set pending language-service integration.",
		Category:    CategoryAnalysis,
		Venue:       VenueOrchestration,
		Parallel:    true,
		TimeoutMS:   5_000,
		Params: []Param{
			{Name: "path", Type: "string"},
		},
	},
}

// builtinAliases maps informal tool names to canonical catalog names.
// Every alias resolves to exactly one canonical name.
var builtinAliases = map[string]string{
	"read":        "read_file",
	"cat_file":    "read_file",
	"list_files":  "list_directory",
	"ls":          "list_directory",
	"tree":        "directory_tree",
	"grep":        "search_files",
	"search":      "search_files",
	"write":       "write_file",
	"edit":        "edit_file",
	"replace":     "edit_file",
	"remove_file": "delete_file",
	"exec":        "run_command",
	"shell":       "run_command",
	"bash":        "run_command",
	"test":        "run_tests",
	"format":      "format_code",
	"status":      "git_status",
	"diff":        "git_diff",
}
