package llm

import (
	"fmt"
	"sync"

	llmsvc "arbor/internal/domain/services/llm"
)

// ProviderRegistry routes model requests to the appropriate provider.
// Uses ParseModel to extract the provider from a model string, then the
// ProviderFactory to create instances on first use.
type ProviderRegistry struct {
	factory *ProviderFactory
	cache   map[string]llmsvc.LLMProvider
	mu      sync.RWMutex
}

// NewProviderRegistry creates a new provider registry.
func NewProviderRegistry(factory *ProviderFactory) *ProviderRegistry {
	return &ProviderRegistry{
		factory: factory,
		cache:   make(map[string]llmsvc.LLMProvider),
	}
}

// GetProvider returns the provider for the given provider name,
// creating and caching it on first use.
func (r *ProviderRegistry) GetProvider(provider string) (llmsvc.LLMProvider, error) {
	if provider == "" {
		return nil, fmt.Errorf("provider cannot be empty")
	}

	// Fast path: check cache with read lock
	r.mu.RLock()
	if cached, exists := r.cache[provider]; exists {
		r.mu.RUnlock()
		return cached, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring the write lock; another goroutine may
	// have created the provider while we waited.
	if cached, exists := r.cache[provider]; exists {
		return cached, nil
	}

	created, err := r.factory.GetProvider(provider)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider '%s': %w", provider, err)
	}

	r.cache[provider] = created

	return created, nil
}

// GetProviderForModel resolves a model string to its provider and the
// provider-local model id.
func (r *ProviderRegistry) GetProviderForModel(model string) (llmsvc.LLMProvider, string, error) {
	info, err := ParseModel(model)
	if err != nil {
		return nil, "", err
	}

	provider, err := r.GetProvider(info.Provider)
	if err != nil {
		return nil, "", err
	}

	return provider, info.Model, nil
}

// Validate checks if the registry is properly configured.
// Should be called at startup to fail fast if misconfigured.
func (r *ProviderRegistry) Validate() error {
	if r.factory == nil {
		return fmt.Errorf("provider factory is not configured")
	}
	return nil
}
