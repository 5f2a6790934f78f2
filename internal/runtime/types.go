package runtime

import "encoding/json"

// MessageType tags transcript entries. Consumers switch on the tag instead
// of duck-typing the payload.
type MessageType string

const (
	MessageText       MessageType = "text"
	MessageToolUse    MessageType = "tool_use"
	MessageToolResult MessageType = "tool_result"
)

// Part is one fragment of a multi-part text message.
type Part struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ToolUse is one tool invocation requested by the model.
type ToolUse struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input,omitempty"`
}

// Message is one transcript entry. Exactly one payload group is meaningful
// per Type: Text/Parts for text, ToolUses for tool_use, ToolUseID/Content
// for tool_result.
type Message struct {
	Role      string      `json:"role"`
	Type      MessageType `json:"type"`
	Text      string      `json:"text,omitempty"`
	Parts     []Part      `json:"parts,omitempty"`
	ToolUses  []ToolUse   `json:"tool_uses,omitempty"`
	ToolUseID string      `json:"tool_use_id,omitempty"`
	Content   string      `json:"content,omitempty"`
}

// TextMessage builds a plain text entry.
func TextMessage(role, text string) Message {
	return Message{Role: role, Type: MessageText, Text: text}
}

// ToolResultMessage builds the user-side reply to one tool use.
func ToolResultMessage(toolUseID, content string) Message {
	return Message{Role: "user", Type: MessageToolResult, ToolUseID: toolUseID, Content: content}
}

// JoinedText collapses a text message's content into one string: Text when
// set, otherwise the newline join of its text parts.
func (m Message) JoinedText() string {
	if m.Text != "" {
		return m.Text
	}
	out := ""
	for _, part := range m.Parts {
		if part.Type != "" && part.Type != "text" {
			continue
		}
		if part.Text == "" {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += part.Text
	}
	return out
}

// ToolDef describes one callable tool to the provider.
type ToolDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
}

// Request is one model turn: the system prompt, the transcript so far, and
// the tools the model may call.
type Request struct {
	Model       string    `json:"model"`
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
	Tools       []ToolDef `json:"tools,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
}

// Reply is what the model produced in one turn. Messages carries the
// assistant entries in transcript form so the caller can append them
// directly; ToolUses repeats the requested calls for convenience.
type Reply struct {
	Messages   []Message `json:"messages"`
	ToolUses   []ToolUse `json:"tool_uses,omitempty"`
	StopReason string    `json:"stop_reason,omitempty"`
	Usage      Usage     `json:"usage"`
}

// Usage is the provider-reported token accounting for one turn.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}
