package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	aoption "github.com/anthropics/anthropic-sdk-go/option"
)

type anthropicRuntime struct {
	client anthropic.Client
}

func newAnthropicRuntime(opts Options) *anthropicRuntime {
	clientOpts := []aoption.RequestOption{aoption.WithAPIKey(strings.TrimSpace(opts.APIKey))}
	if strings.TrimSpace(opts.BaseURL) != "" {
		clientOpts = append(clientOpts, aoption.WithBaseURL(strings.TrimSpace(opts.BaseURL)))
	}
	return &anthropicRuntime{client: anthropic.NewClient(clientOpts...)}
}

func (r *anthropicRuntime) Turn(ctx context.Context, req Request) (Reply, error) {
	if r == nil {
		return Reply{}, errors.New("nil runtime")
	}
	if strings.TrimSpace(req.Model) == "" {
		return Reply{}, errors.New("missing model")
	}

	tools, aliasToReal := buildAnthropicTools(req.Tools)
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(strings.TrimSpace(req.Model)),
		MaxTokens: defaultMaxOutputTokens,
		Messages:  buildAnthropicMessages(req.Messages),
		Tools:     tools,
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = int64(req.MaxTokens)
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}
	if system := strings.TrimSpace(req.System); system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	msg, err := r.client.Messages.New(ctx, params)
	if err != nil {
		return Reply{}, err
	}

	reply := Reply{
		StopReason: mapAnthropicStopReason(msg.StopReason),
		Usage: Usage{
			InputTokens:  msg.Usage.InputTokens,
			OutputTokens: msg.Usage.OutputTokens,
		},
	}
	var textParts []Part
	for _, block := range msg.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			if txt := strings.TrimSpace(variant.Text); txt != "" {
				textParts = append(textParts, Part{Type: "text", Text: txt})
			}
		case anthropic.ToolUseBlock:
			input := map[string]any{}
			if len(variant.Input) > 0 {
				_ = json.Unmarshal(variant.Input, &input)
			}
			name := strings.TrimSpace(variant.Name)
			if real, ok := aliasToReal[name]; ok {
				name = real
			}
			reply.ToolUses = append(reply.ToolUses, ToolUse{
				ID:    strings.TrimSpace(variant.ID),
				Name:  name,
				Input: input,
			})
		}
	}
	if len(textParts) > 0 {
		reply.Messages = append(reply.Messages, Message{Role: "assistant", Type: MessageText, Parts: textParts})
	}
	if len(reply.ToolUses) > 0 {
		reply.Messages = append(reply.Messages, Message{Role: "assistant", Type: MessageToolUse, ToolUses: reply.ToolUses})
		reply.StopReason = "tool_calls"
	}
	return reply, nil
}

func buildAnthropicTools(defs []ToolDef) ([]anthropic.ToolUnionParam, map[string]string) {
	out := make([]anthropic.ToolUnionParam, 0, len(defs))
	aliasToReal := make(map[string]string, len(defs))
	for _, def := range defs {
		name := strings.TrimSpace(def.Name)
		if name == "" {
			continue
		}
		schemaMap := map[string]any{}
		if len(def.InputSchema) > 0 {
			_ = json.Unmarshal(def.InputSchema, &schemaMap)
		}
		required := toStringSlice(schemaMap["required"])
		param := anthropic.ToolParam{
			Name:        sanitizeProviderToolName(name),
			Description: anthropic.String(strings.TrimSpace(def.Description)),
			InputSchema: anthropic.ToolInputSchemaParam{Type: "object", Properties: schemaMap["properties"], Required: required},
		}
		aliasToReal[sanitizeProviderToolName(name)] = name
		out = append(out, anthropic.ToolUnionParam{OfTool: &param})
	}
	return out, aliasToReal
}

// buildAnthropicMessages converts the transcript, replaying assistant
// tool_use blocks and pairing tool_result blocks by call id.
func buildAnthropicMessages(messages []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages)+1)
	for _, msg := range messages {
		role := strings.ToLower(strings.TrimSpace(msg.Role))
		if role == "system" {
			continue
		}
		var blocks []anthropic.ContentBlockParamUnion
		switch msg.Type {
		case MessageToolUse:
			for _, use := range msg.ToolUses {
				if strings.TrimSpace(use.ID) == "" {
					continue
				}
				input := use.Input
				if input == nil {
					input = map[string]any{}
				}
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						ID:    use.ID,
						Name:  sanitizeProviderToolName(use.Name),
						Input: input,
					},
				})
			}
		case MessageToolResult:
			if strings.TrimSpace(msg.ToolUseID) == "" {
				continue
			}
			blocks = append(blocks, anthropic.NewToolResultBlock(msg.ToolUseID, msg.Content, false))
		default:
			if txt := strings.TrimSpace(msg.JoinedText()); txt != "" {
				blocks = append(blocks, anthropic.NewTextBlock(txt))
			}
		}
		if len(blocks) == 0 {
			continue
		}
		if role == "assistant" {
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		} else {
			out = append(out, anthropic.NewUserMessage(blocks...))
		}
	}
	if len(out) == 0 {
		out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock("Continue.")))
	}
	return out
}

func mapAnthropicStopReason(reason anthropic.StopReason) string {
	switch strings.TrimSpace(strings.ToLower(string(reason))) {
	case "tool_use":
		return "tool_calls"
	case "end_turn", "stop_sequence":
		return "stop"
	case "max_tokens":
		return "length"
	case "refusal":
		return "content_filter"
	default:
		return "unknown"
	}
}

func toStringSlice(raw any) []string {
	switch v := raw.(type) {
	case []string:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s := strings.TrimSpace(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, _ := item.(string)
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
