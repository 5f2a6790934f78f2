package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	openai "github.com/openai/openai-go"
	ooption "github.com/openai/openai-go/option"
	oresponses "github.com/openai/openai-go/responses"
	oshared "github.com/openai/openai-go/shared"
)

type openAIRuntime struct {
	client           openai.Client
	strictToolSchema bool
}

func newOpenAIRuntime(opts Options, strict bool) *openAIRuntime {
	clientOpts := []ooption.RequestOption{ooption.WithAPIKey(strings.TrimSpace(opts.APIKey))}
	if strings.TrimSpace(opts.BaseURL) != "" {
		clientOpts = append(clientOpts, ooption.WithBaseURL(strings.TrimSpace(opts.BaseURL)))
	}
	return &openAIRuntime{client: openai.NewClient(clientOpts...), strictToolSchema: strict}
}

func (r *openAIRuntime) Turn(ctx context.Context, req Request) (Reply, error) {
	if r == nil {
		return Reply{}, errors.New("nil runtime")
	}
	if strings.TrimSpace(req.Model) == "" {
		return Reply{}, errors.New("missing model")
	}

	params := oresponses.ResponseNewParams{
		Model:           oshared.ResponsesModel(strings.TrimSpace(req.Model)),
		MaxOutputTokens: openai.Int(defaultMaxOutputTokens),
	}
	if req.MaxTokens > 0 {
		params.MaxOutputTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if system := strings.TrimSpace(req.System); system != "" {
		params.Instructions = openai.String(system)
	}

	items := buildOpenAIInput(req.Messages)
	if len(items) == 0 {
		items = append(items, oresponses.ResponseInputItemParamOfMessage("Continue.", oresponses.EasyInputMessageRoleUser))
	}
	params.Input = oresponses.ResponseNewParamsInputUnion{OfInputItemList: items}

	tools, aliasToReal := buildOpenAITools(req.Tools, r.strictToolSchema)
	if len(tools) > 0 {
		params.Tools = tools
	}

	resp, err := r.client.Responses.New(ctx, params)
	if err != nil {
		return Reply{}, err
	}

	reply := Reply{
		StopReason: mapOpenAIStatus(resp.Status),
		Usage: Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
	}
	var textParts []Part
	for _, item := range resp.Output {
		switch strings.TrimSpace(item.Type) {
		case "message":
			msg := item.AsMessage()
			for _, part := range msg.Content {
				if strings.TrimSpace(part.Type) != "output_text" {
					continue
				}
				if txt := strings.TrimSpace(part.Text); txt != "" {
					textParts = append(textParts, Part{Type: "text", Text: txt})
				}
			}
		case "function_call":
			callID := strings.TrimSpace(item.CallID)
			if callID == "" {
				callID = strings.TrimSpace(item.ID)
			}
			name := strings.TrimSpace(item.Name)
			if real, ok := aliasToReal[name]; ok {
				name = real
			}
			input := map[string]any{}
			if raw := strings.TrimSpace(item.Arguments); raw != "" {
				_ = json.Unmarshal([]byte(raw), &input)
			}
			reply.ToolUses = append(reply.ToolUses, ToolUse{ID: callID, Name: name, Input: input})
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

func buildOpenAITools(defs []ToolDef, strict bool) ([]oresponses.ToolUnionParam, map[string]string) {
	out := make([]oresponses.ToolUnionParam, 0, len(defs))
	aliasToReal := make(map[string]string, len(defs))
	for _, def := range defs {
		if strings.TrimSpace(def.Name) == "" {
			continue
		}
		schemaMap := map[string]any{}
		if len(def.InputSchema) > 0 {
			_ = json.Unmarshal(def.InputSchema, &schemaMap)
		}
		alias := sanitizeProviderToolName(def.Name)
		out = append(out, oresponses.ToolParamOfFunction(alias, schemaMap, strict))
		aliasToReal[alias] = def.Name
	}
	return out, aliasToReal
}

// buildOpenAIInput converts the transcript to Responses input items.
// Assistant tool_use entries replay as function_call items so the provider
// can pair them with the function_call_output items that follow.
func buildOpenAIInput(messages []Message) oresponses.ResponseInputParam {
	items := make(oresponses.ResponseInputParam, 0, len(messages))
	for _, msg := range messages {
		role := strings.ToLower(strings.TrimSpace(msg.Role))
		if role == "system" {
			continue
		}
		switch msg.Type {
		case MessageToolUse:
			for _, use := range msg.ToolUses {
				callID := strings.TrimSpace(use.ID)
				name := sanitizeProviderToolName(use.Name)
				if callID == "" || name == "" {
					continue
				}
				argsRaw := "{}"
				if len(use.Input) > 0 {
					if b, err := json.Marshal(use.Input); err == nil {
						argsRaw = string(b)
					}
				}
				items = append(items, oresponses.ResponseInputItemParamOfFunctionCall(argsRaw, callID, name))
			}
		case MessageToolResult:
			callID := strings.TrimSpace(msg.ToolUseID)
			if callID == "" {
				continue
			}
			items = append(items, oresponses.ResponseInputItemParamOfFunctionCallOutput(callID, msg.Content))
		default:
			txt := strings.TrimSpace(msg.JoinedText())
			if txt == "" {
				continue
			}
			uiRole := oresponses.EasyInputMessageRoleUser
			if role == "assistant" {
				uiRole = oresponses.EasyInputMessageRoleAssistant
			}
			items = append(items, oresponses.ResponseInputItemParamOfMessage(txt, uiRole))
		}
	}
	return items
}

func mapOpenAIStatus(status oresponses.ResponseStatus) string {
	switch strings.TrimSpace(strings.ToLower(string(status))) {
	case "completed":
		return "stop"
	case "incomplete":
		return "length"
	case "failed", "cancelled":
		return "error"
	default:
		return "unknown"
	}
}
