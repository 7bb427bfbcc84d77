// Package catalog is the embedded model registry: which models exist,
// who serves them, and what inputs they accept. The HTTP layer serves
// it at /api/models and the streaming service consults it when
// resolving the model for a turn.
package catalog

import (
	"embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed config/*.yaml
var configFiles embed.FS

// providerOrder fixes the order providers appear in aggregated
// listings; real models first, the local filler provider last.
var providerOrder = []string{"anthropic", "lorem"}

// Registry manages model metadata across all providers.
type Registry struct {
	providers map[string]*ProviderModels
	mu        sync.RWMutex
}

// NewRegistry creates a model registry and loads the embedded YAML
// files.
func NewRegistry() (*Registry, error) {
	r := &Registry{
		providers: make(map[string]*ProviderModels),
	}

	for _, provider := range providerOrder {
		if err := r.loadProviderFile(provider); err != nil {
			return nil, fmt.Errorf("failed to load %s models: %w", provider, err)
		}
	}

	return r, nil
}

// loadProviderFile loads a provider's model YAML file.
func (r *Registry) loadProviderFile(provider string) error {
	filename := fmt.Sprintf("config/%s.yaml", provider)
	data, err := configFiles.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filename, err)
	}

	var models ProviderModels
	if err := yaml.Unmarshal(data, &models); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", filename, err)
	}

	for i := range models.Models {
		models.Models[i].Provider = models.Provider
	}

	r.mu.Lock()
	r.providers[provider] = &models
	r.mu.Unlock()

	return nil
}

// GetModel returns the metadata for a model id, searching providers in
// listing order.
func (r *Registry) GetModel(modelID string) (*ModelInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, provider := range providerOrder {
		providerModels, ok := r.providers[provider]
		if !ok {
			continue
		}
		for i := range providerModels.Models {
			if providerModels.Models[i].ID == modelID {
				return &providerModels.Models[i], nil
			}
		}
	}

	return nil, fmt.Errorf("unknown model: %s", modelID)
}

// HasModel reports whether a model id is in the catalog.
func (r *Registry) HasModel(modelID string) bool {
	_, err := r.GetModel(modelID)
	return err == nil
}

// ListProviderModels returns all models for a provider (ordered as
// defined in YAML).
func (r *Registry) ListProviderModels(provider string) ([]ModelInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providerModels, ok := r.providers[provider]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}

	return providerModels.Models, nil
}

// AllModels returns every model across providers, providers in listing
// order, models in YAML order within each provider.
func (r *Registry) AllModels() []ModelInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []ModelInfo
	for _, provider := range providerOrder {
		if providerModels, ok := r.providers[provider]; ok {
			all = append(all, providerModels.Models...)
		}
	}
	return all
}

// Providers returns all registered provider names in listing order.
func (r *Registry) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providers := make([]string, 0, len(r.providers))
	for _, provider := range providerOrder {
		if _, ok := r.providers[provider]; ok {
			providers = append(providers, provider)
		}
	}
	return providers
}
