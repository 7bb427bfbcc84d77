package handler

import (
	"log/slog"
	"net/http"

	"arbor/internal/catalog"
	"arbor/internal/config"
	"arbor/internal/httputil"
)

// ModelsHandler serves the model catalog.
type ModelsHandler struct {
	config   *config.Config
	registry *catalog.Registry
	logger   *slog.Logger
}

// NewModelsHandler creates a new models handler.
func NewModelsHandler(cfg *config.Config, registry *catalog.Registry, logger *slog.Logger) *ModelsHandler {
	return &ModelsHandler{
		config:   cfg,
		registry: registry,
		logger:   logger,
	}
}

// ProviderResponse represents a provider with its models.
type ProviderResponse struct {
	ID     string              `json:"id"`
	Models []catalog.ModelInfo `json:"models"`
}

// List handles GET /api/models
// Returns the models of every provider the server can actually serve:
// lorem always, anthropic only when an API key is configured.
func (h *ModelsHandler) List(w http.ResponseWriter, r *http.Request) {
	var providers []ProviderResponse

	for _, providerID := range h.registry.Providers() {
		if providerID == "anthropic" && h.config.AnthropicAPIKey == "" {
			continue
		}
		models, err := h.registry.ListProviderModels(providerID)
		if err != nil {
			h.logger.Warn("failed to list provider models", "provider", providerID, "error", err)
			continue
		}
		providers = append(providers, ProviderResponse{
			ID:     providerID,
			Models: models,
		})
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"providers":     providers,
		"default_model": h.config.DefaultModel,
	})
}
