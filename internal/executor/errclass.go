package executor

import "strings"

// ErrorCode classifies a failed result so callers can branch without
// parsing message text.
type ErrorCode string

const (
	CodeUnknownTool     ErrorCode = "unknown_tool"
	CodeNoHandler       ErrorCode = "no_handler"
	CodeTimeout         ErrorCode = "timeout"
	CodeInvalidArgs     ErrorCode = "invalid_args"
	CodePathOutsideRoot ErrorCode = "path_outside_root"
	CodeNotFound        ErrorCode = "not_found"
	CodeExecutionFailed ErrorCode = "execution_failed"
)

// classifyError maps a handler error message to a code. Handlers return
// plain errors, so classification reads the message; the stable phrases
// below are produced by this package and the handler bridge.
func classifyError(message string) ErrorCode {
	msg := strings.ToLower(message)
	switch {
	case strings.Contains(msg, "timed out"):
		return CodeTimeout
	case strings.Contains(msg, "missing required field"), strings.Contains(msg, "missing path"):
		return CodeInvalidArgs
	case strings.Contains(msg, "escapes workspace root"):
		return CodePathOutsideRoot
	case strings.Contains(msg, "no such file"), strings.Contains(msg, "not found"):
		return CodeNotFound
	default:
		return CodeExecutionFailed
	}
}

// SuggestFix returns a short remediation hint for a code; empty when
// there is nothing actionable to say.
func SuggestFix(code ErrorCode) string {
	switch code {
	case CodeUnknownTool:
		return "check the tool name against the catalog (aliases are accepted)"
	case CodeNoHandler:
		return "the tool is defined but not wired to a handler in this workspace"
	case CodeTimeout:
		return "retry with a smaller scope or raise the tool's timeout"
	case CodeInvalidArgs:
		return "supply the missing required field"
	case CodePathOutsideRoot:
		return "use a path inside the workspace root"
	case CodeNotFound:
		return "verify the path exists (list_directory helps)"
	default:
		return ""
	}
}
