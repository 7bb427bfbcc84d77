package handler

import (
	"log/slog"
	"net/http"

	chatSvc "arbor/internal/domain/services/chat"
	"arbor/internal/httputil"
)

// MessageHandler handles message-tree HTTP requests: flat lists,
// derived paths, sibling navigation, submission, edit, regenerate,
// thread drafts and deletion.
type MessageHandler struct {
	messages  chatSvc.MessageService
	streaming chatSvc.StreamingService
	logger    *slog.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(
	messages chatSvc.MessageService,
	streaming chatSvc.StreamingService,
	logger *slog.Logger,
) *MessageHandler {
	return &MessageHandler{
		messages:  messages,
		streaming: streaming,
		logger:    logger,
	}
}

// List handles GET /api/conversations/{id}/messages
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	conversationID, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	messages, err := h.messages.ListMessages(r.Context(), conversationID, httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"messages": messages,
	})
}

// Submit handles POST /api/conversations/{id}/messages
// Persists the user turn and responds 201 with the stream to follow.
func (h *MessageHandler) Submit(w http.ResponseWriter, r *http.Request) {
	conversationID, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req chatSvc.SubmitRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.ConversationID = conversationID
	req.UserID = httputil.GetUserID(r)

	resp, err := h.streaming.Submit(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, resp)
}

// ResolvePath handles POST /api/conversations/{id}/path
// Derives the linear path visible under the submitted branch selections.
func (h *MessageHandler) ResolvePath(w http.ResponseWriter, r *http.Request) {
	conversationID, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req chatSvc.PathRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	path, err := h.messages.ResolvePath(r.Context(), conversationID, httputil.GetUserID(r), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"messages": path,
	})
}

// Siblings handles GET /api/messages/{id}/siblings
func (h *MessageHandler) Siblings(w http.ResponseWriter, r *http.Request) {
	messageID, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.messages.GetSiblings(r.Context(), messageID, httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, resp)
}

// Edit handles POST /api/messages/{id}/edit
// Creates an edited sibling of a user message and streams a new reply.
func (h *MessageHandler) Edit(w http.ResponseWriter, r *http.Request) {
	messageID, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req chatSvc.EditRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.streaming.Edit(r.Context(), messageID, httputil.GetUserID(r), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, resp)
}

// Regenerate handles POST /api/messages/{id}/regenerate
func (h *MessageHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	messageID, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.streaming.Regenerate(r.Context(), messageID, httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, resp)
}

// threadDraftBody is the PUT wire shape; a null or absent draft clears.
type threadDraftBody struct {
	Draft *string `json:"draft"`
}

// UpdateThreadDraft handles PUT /api/messages/{id}/thread-draft
func (h *MessageHandler) UpdateThreadDraft(w http.ResponseWriter, r *http.Request) {
	messageID, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var body threadDraftBody
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.messages.UpdateThreadDraft(r.Context(), messageID, httputil.GetUserID(r), body.Draft); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /api/messages/{id}
// The store cascades to the message's entire subtree.
func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	messageID, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.messages.DeleteMessage(r.Context(), messageID, httputil.GetUserID(r)); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
