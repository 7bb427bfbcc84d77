package llm

import (
	"fmt"
	"log/slog"

	"arbor/internal/config"
)

// SetupProviders initializes the provider factory and registry for
// model routing. Returns a configured ProviderRegistry or an error if
// setup fails.
func SetupProviders(cfg *config.Config, logger *slog.Logger) (*ProviderRegistry, error) {
	// Provider factory manages API keys and creates providers on demand
	providerFactory := NewProviderFactory(cfg)
	registry := NewProviderRegistry(providerFactory)

	if err := registry.Validate(); err != nil {
		return nil, fmt.Errorf("provider registry validation failed: %w", err)
	}

	if cfg.AnthropicAPIKey != "" {
		logger.Info("provider available", "name", "anthropic", "models", "claude-*")
	} else {
		logger.Warn("ANTHROPIC_API_KEY not set - Anthropic provider not available")
	}
	logger.Info("provider available", "name", "lorem", "models", "lorem-*")

	return registry, nil
}
