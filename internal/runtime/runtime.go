package runtime

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const defaultMaxOutputTokens = 4096

// Runtime is one model provider. Turn is synchronous: it sends the full
// request and returns the complete reply.
type Runtime interface {
	Turn(ctx context.Context, req Request) (Reply, error)
}

// Options configures a provider adapter.
type Options struct {
	APIKey  string
	BaseURL string
}

// New builds the adapter for a provider type. Supported: "anthropic",
// "openai", "openai_compatible".
func New(providerType string, opts Options) (Runtime, error) {
	providerType = strings.ToLower(strings.TrimSpace(providerType))
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("missing provider api key")
	}
	switch providerType {
	case "anthropic":
		return newAnthropicRuntime(opts), nil
	case "openai", "openai_compatible":
		return newOpenAIRuntime(opts, providerType == "openai"), nil
	default:
		return nil, fmt.Errorf("unsupported provider type %q", providerType)
	}
}

// sanitizeProviderToolName maps a tool name onto the charset providers
// accept for function names.
func sanitizeProviderToolName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	var sb strings.Builder
	for _, ch := range name {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9', ch == '_', ch == '-':
			sb.WriteRune(ch)
		default:
			sb.WriteRune('_')
		}
	}
	out := strings.Trim(sb.String(), "_-")
	if out == "" {
		return "tool"
	}
	return out
}
