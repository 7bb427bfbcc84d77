package llm

import (
	"fmt"

	"arbor/internal/config"
	llmsvc "arbor/internal/domain/services/llm"
	"arbor/internal/service/llm/providers/anthropic"
	"arbor/internal/service/llm/providers/lorem"
)

// ProviderFactory creates LLM provider instances.
type ProviderFactory struct {
	config *config.Config
}

// NewProviderFactory creates a new provider factory.
func NewProviderFactory(cfg *config.Config) *ProviderFactory {
	return &ProviderFactory{
		config: cfg,
	}
}

// GetProvider returns a provider instance for the given provider name.
//
// Supported providers:
//   - "anthropic" - Claude models via the Anthropic API
//   - "lorem" - local mock provider (no API key required)
func (f *ProviderFactory) GetProvider(providerName string) (llmsvc.LLMProvider, error) {
	switch providerName {
	case "anthropic":
		return f.createAnthropicProvider()

	case "lorem":
		return lorem.NewProvider(), nil

	default:
		return nil, fmt.Errorf("unsupported provider: %s", providerName)
	}
}

// createAnthropicProvider creates an Anthropic provider instance.
func (f *ProviderFactory) createAnthropicProvider() (llmsvc.LLMProvider, error) {
	if f.config.AnthropicAPIKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
	}

	provider, err := anthropic.NewProvider(f.config.AnthropicAPIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create Anthropic provider: %w", err)
	}

	return provider, nil
}
