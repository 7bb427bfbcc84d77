package handler

import (
	"log/slog"
	"net/http"

	"arbor/internal/domain/models"
	"arbor/internal/domain/services"
	"arbor/internal/httputil"
)

// UserPreferencesHandler handles user preferences HTTP requests
type UserPreferencesHandler struct {
	service services.UserPreferencesService
	logger  *slog.Logger
}

// NewUserPreferencesHandler creates a new user preferences handler
func NewUserPreferencesHandler(service services.UserPreferencesService, logger *slog.Logger) *UserPreferencesHandler {
	return &UserPreferencesHandler{
		service: service,
		logger:  logger,
	}
}

// GetPreferences retrieves user preferences
// GET /api/users/me/preferences
func (h *UserPreferencesHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.service.GetPreferences(r.Context(), httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, prefs)
}

// updatePreferencesBody is the PATCH wire shape. OptionalString keeps
// a null system_instructions (clear) distinguishable from absence.
type updatePreferencesBody struct {
	Models             *models.ModelsPreferences `json:"models"`
	UI                 *models.UIPreferences     `json:"ui"`
	SystemInstructions httputil.OptionalString   `json:"system_instructions"`
}

// UpdatePreferences updates user preferences
// PATCH /api/users/me/preferences
func (h *UserPreferencesHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var body updatePreferencesBody
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req := models.UpdatePreferencesRequest{
		Models: body.Models,
		UI:     body.UI,
		SystemInstructions: models.OptionalSystemInstructions{
			Present: body.SystemInstructions.Present,
			Value:   body.SystemInstructions.Value,
		},
	}

	prefs, err := h.service.UpdatePreferences(r.Context(), httputil.GetUserID(r), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, prefs)
}
