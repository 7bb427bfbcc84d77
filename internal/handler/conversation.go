package handler

import (
	"log/slog"
	"net/http"

	chatSvc "arbor/internal/domain/services/chat"
	"arbor/internal/httputil"
)

// ConversationHandler handles conversation CRUD HTTP requests.
type ConversationHandler struct {
	service chatSvc.ConversationService
	logger  *slog.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(service chatSvc.ConversationService, logger *slog.Logger) *ConversationHandler {
	return &ConversationHandler{
		service: service,
		logger:  logger,
	}
}

// Create handles POST /api/conversations
func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req chatSvc.CreateConversationRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.UserID = httputil.GetUserID(r)

	conv, err := h.service.CreateConversation(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, conv)
}

// List handles GET /api/conversations
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	convs, err := h.service.ListConversations(r.Context(), httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"conversations": convs,
	})
}

// Get handles GET /api/conversations/{id}
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, err := h.service.GetConversation(r.Context(), id, httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, conv)
}

// updateConversationBody is the PATCH wire shape. OptionalString keeps
// absent and null distinguishable for the nullable columns.
type updateConversationBody struct {
	Title        *string                 `json:"title"`
	SystemPrompt httputil.OptionalString `json:"system_prompt"`
	DefaultModel httputil.OptionalString `json:"default_model"`
}

// Update handles PATCH /api/conversations/{id}
func (h *ConversationHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var body updateConversationBody
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req := chatSvc.UpdateConversationRequest{
		Title:        body.Title,
		SystemPrompt: chatSvc.OptionalText{Present: body.SystemPrompt.Present, Value: body.SystemPrompt.Value},
		DefaultModel: chatSvc.OptionalText{Present: body.DefaultModel.Present, Value: body.DefaultModel.Value},
	}

	conv, err := h.service.UpdateConversation(r.Context(), id, httputil.GetUserID(r), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, conv)
}

// Delete handles DELETE /api/conversations/{id}
func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, err := h.service.DeleteConversation(r.Context(), id, httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, conv)
}
