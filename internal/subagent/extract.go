package subagent

import (
	"strings"

	"github.com/harborml/agent-engine/internal/runtime"
)

// TraceEntry is one tool invocation recorded during a run, paired with the
// result that came back for it.
type TraceEntry struct {
	CallID string         `json:"call_id,omitempty"`
	Tool   string         `json:"tool"`
	Input  map[string]any `json:"input,omitempty"`
	Output string         `json:"output,omitempty"`
}

// ExtractOutput pulls the final answer out of a transcript. Providers emit
// different message shapes, so extraction is an ordered priority list:
//  1. last assistant message with non-empty text;
//  2. last text-typed or untagged message with non-empty text;
//  3. whatever text coerces out of the very last message;
//  4. the empty string.
func ExtractOutput(messages []runtime.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		if strings.ToLower(strings.TrimSpace(msg.Role)) != "assistant" {
			continue
		}
		if msg.Type != runtime.MessageText {
			continue
		}
		if txt := strings.TrimSpace(msg.JoinedText()); txt != "" {
			return txt
		}
	}

	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		if msg.Type != runtime.MessageText && msg.Type != "" {
			continue
		}
		if txt := strings.TrimSpace(msg.JoinedText()); txt != "" {
			return txt
		}
	}

	if len(messages) > 0 {
		last := messages[len(messages)-1]
		if txt := strings.TrimSpace(last.JoinedText()); txt != "" {
			return txt
		}
		if txt := strings.TrimSpace(last.Content); txt != "" {
			return txt
		}
	}
	return ""
}

// ExtractTrace walks the transcript pairing tool uses with their results.
// Correlation is by call id when the result carries one; a result without a
// matching id attaches positionally to the most recent unpaired entry.
func ExtractTrace(messages []runtime.Message) []TraceEntry {
	var entries []TraceEntry
	byCallID := make(map[string]int)
	for _, msg := range messages {
		switch msg.Type {
		case runtime.MessageToolUse:
			for _, use := range msg.ToolUses {
				entries = append(entries, TraceEntry{CallID: use.ID, Tool: use.Name, Input: use.Input})
				if id := strings.TrimSpace(use.ID); id != "" {
					byCallID[id] = len(entries) - 1
				}
			}
		case runtime.MessageToolResult:
			if id := strings.TrimSpace(msg.ToolUseID); id != "" {
				if idx, ok := byCallID[id]; ok {
					entries[idx].Output = msg.Content
					continue
				}
			}
			for i := len(entries) - 1; i >= 0; i-- {
				if entries[i].Output == "" {
					entries[i].Output = msg.Content
					break
				}
			}
		}
	}
	return entries
}
