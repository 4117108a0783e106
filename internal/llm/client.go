package llm

import (
	"context"
	"fmt"

	"github.com/jwhitt/kindred/internal/config"
)

// Message is one conversation turn sent to a provider.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// Request is a chat completion request. System carries the persona and
// context block; Messages carry the conversation turns.
type Request struct {
	System      string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// Response holds the result of an LLM completion.
type Response struct {
	Content    string
	Provider   string
	TokensUsed int
}

// Client is the interface for LLM providers.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Disabled returns a Client that fails every request. It lets the
// server run without a configured provider: callers fall back to
// canned replies.
func Disabled() Client {
	return disabled{}
}

type disabled struct{}

func (disabled) Complete(ctx context.Context, req Request) (*Response, error) {
	return nil, fmt.Errorf("no LLM provider configured")
}

// NewClient creates an LLM client based on the config provider setting.
func NewClient(cfg config.LLMConfig) (Client, error) {
	switch cfg.Provider {
	case "anthropic":
		if cfg.AnthropicKey == "" {
			return nil, fmt.Errorf("anthropic provider requires ANTHROPIC_API_KEY or config")
		}
		model := cfg.Model
		if model == "" {
			model = "claude-haiku-4-5-20251001"
		}
		return NewAnthropic(cfg.AnthropicKey, model), nil
	case "ollama":
		url := cfg.OllamaURL
		if url == "" {
			url = "http://localhost:11434"
		}
		model := cfg.OllamaModel
		if model == "" {
			model = "llama3.2"
		}
		return NewOllama(url, model), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
}
