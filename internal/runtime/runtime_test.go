package runtime

import (
	"encoding/json"
	"testing"
)

func TestJoinedText(t *testing.T) {
	t.Parallel()

	msg := Message{Role: "assistant", Type: MessageText, Parts: []Part{
		{Type: "text", Text: "first"},
		{Type: "image"},
		{Type: "text", Text: "second"},
	}}
	if got := msg.JoinedText(); got != "first\nsecond" {
		t.Fatalf("joined=%q, want=%q", got, "first\nsecond")
	}

	msg = Message{Role: "assistant", Type: MessageText, Text: "direct", Parts: []Part{{Type: "text", Text: "ignored"}}}
	if got := msg.JoinedText(); got != "direct" {
		t.Fatalf("joined=%q, want=%q (Text wins over Parts)", got, "direct")
	}
}

func TestSanitizeProviderToolName(t *testing.T) {
	t.Parallel()

	cases := []struct{ in, want string }{
		{"read_file", "read_file"},
		{"fs.read", "fs_read"},
		{"  spaced name  ", "spaced_name"},
		{"___", "tool"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := sanitizeProviderToolName(tc.in); got != tc.want {
			t.Fatalf("sanitize(%q)=%q, want=%q", tc.in, got, tc.want)
		}
	}
}

func TestNew_RejectsMissingKey(t *testing.T) {
	t.Parallel()

	if _, err := New("anthropic", Options{}); err == nil {
		t.Fatalf("expected missing api key error")
	}
	if _, err := New("smoke-signals", Options{APIKey: "k"}); err == nil {
		t.Fatalf("expected unsupported provider error")
	}
	if _, err := New("anthropic", Options{APIKey: "k"}); err != nil {
		t.Fatalf("anthropic: %v", err)
	}
	if _, err := New("openai_compatible", Options{APIKey: "k", BaseURL: "http://localhost:8000/v1"}); err != nil {
		t.Fatalf("openai_compatible: %v", err)
	}
}

func TestBuildAnthropicMessages_SkipsSystemAndEmpty(t *testing.T) {
	t.Parallel()

	out := buildAnthropicMessages([]Message{
		TextMessage("system", "sys"),
		TextMessage("user", "hello"),
		{Role: "assistant", Type: MessageText},
	})
	if len(out) != 1 {
		t.Fatalf("messages=%d, want=1", len(out))
	}
}

func TestBuildAnthropicMessages_EmptyTranscriptFallback(t *testing.T) {
	t.Parallel()

	out := buildAnthropicMessages(nil)
	if len(out) != 1 {
		t.Fatalf("messages=%d, want placeholder", len(out))
	}
}

func TestBuildOpenAIInput_ToolRoundTrip(t *testing.T) {
	t.Parallel()

	items := buildOpenAIInput([]Message{
		TextMessage("user", "do the thing"),
		{Role: "assistant", Type: MessageToolUse, ToolUses: []ToolUse{
			{ID: "call_1", Name: "read_file", Input: map[string]any{"path": "a.txt"}},
		}},
		ToolResultMessage("call_1", `{"content":"x"}`),
	})
	if len(items) != 3 {
		t.Fatalf("items=%d, want=3", len(items))
	}
}

func TestBuildAnthropicTools_AliasMap(t *testing.T) {
	t.Parallel()

	schema, _ := json.Marshal(map[string]any{
		"type":       "object",
		"properties": map[string]any{"path": map[string]any{"type": "string"}},
		"required":   []string{"path"},
	})
	tools, aliasToReal := buildAnthropicTools([]ToolDef{
		{Name: "read_file", Description: "Read a file", InputSchema: schema},
		{Name: ""},
	})
	if len(tools) != 1 {
		t.Fatalf("tools=%d, want=1 (empty name skipped)", len(tools))
	}
	if aliasToReal["read_file"] != "read_file" {
		t.Fatalf("aliasToReal=%v, want read_file mapped", aliasToReal)
	}
}

func TestMapStopReasons(t *testing.T) {
	t.Parallel()

	if got := mapAnthropicStopReason("tool_use"); got != "tool_calls" {
		t.Fatalf("got=%q, want=%q", got, "tool_calls")
	}
	if got := mapAnthropicStopReason("end_turn"); got != "stop" {
		t.Fatalf("got=%q, want=%q", got, "stop")
	}
	if got := mapOpenAIStatus("completed"); got != "stop" {
		t.Fatalf("got=%q, want=%q", got, "stop")
	}
	if got := mapOpenAIStatus("incomplete"); got != "length" {
		t.Fatalf("got=%q, want=%q", got, "length")
	}
}
