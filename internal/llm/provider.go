package llm

import "fmt"

// Provider names a model vendor
type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderClaude Provider = "claude"
)

// New returns the Completer for provider.
func New(provider Provider, cfg Config) (Completer, error) {
	switch provider {
	case ProviderGemini, "":
		return NewGeminiClient(cfg), nil
	case ProviderClaude:
		return NewClient(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %q", provider)
	}
}
