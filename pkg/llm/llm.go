// Package llm provides minimal non-streaming generate clients for the chat
// and reflection features. A CallFunc takes a prompt and returns the model's
// text reply; engram never records or replays the provider wire protocol.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// CallFunc sends a single prompt to a model and returns its text reply.
type CallFunc func(ctx context.Context, prompt string) (string, error)

// Config selects a provider and model for New.
type Config struct {
	// Provider is "ollama", "openai", or "anthropic".
	Provider string

	// Target overrides the provider base URL.
	Target string

	// Model names the model to generate with.
	Model string

	// APIKey authenticates hosted providers. Ollama ignores it.
	APIKey string
}

// Generation can take a while on local models, so the shared client
// timeout is generous. Callers bound individual requests via ctx.
var httpClient = &http.Client{Timeout: 2 * time.Minute}

// New creates a CallFunc from the given configuration.
func New(cfg Config) (CallFunc, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))

	switch provider {
	case "ollama", "":
		target := cfg.Target
		if target == "" {
			target = "http://localhost:11434"
		}
		model := cfg.Model
		if model == "" {
			model = "llama3.2"
		}
		return NewOllamaCall(target, model), nil

	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai requires an API key (set llm.api_key)")
		}
		target := cfg.Target
		if target == "" {
			target = "https://api.openai.com"
		}
		model := cfg.Model
		if model == "" {
			model = "gpt-4o-mini"
		}
		return NewOpenAICall(target, cfg.APIKey, model), nil

	case "anthropic":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic requires an API key (set llm.api_key)")
		}
		target := cfg.Target
		if target == "" {
			target = "https://api.anthropic.com"
		}
		model := cfg.Model
		if model == "" {
			model = "claude-sonnet-4-5"
		}
		return NewAnthropicCall(target, cfg.APIKey, model), nil

	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}
