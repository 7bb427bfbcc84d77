package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"arbor/internal/domain/models/chat"
	"arbor/internal/handler/sse"
	"arbor/internal/service/chat/streaming"
)

// StreamHandler serves assistant response streams over SSE.
type StreamHandler struct {
	registry *streaming.Registry
	config   *sse.Config
	logger   *slog.Logger
}

// NewStreamHandler creates a new SSE stream handler.
func NewStreamHandler(registry *streaming.Registry, cfg *sse.Config, logger *slog.Logger) *StreamHandler {
	if cfg == nil {
		cfg = sse.DefaultConfig()
	}
	return &StreamHandler{
		registry: registry,
		config:   cfg,
		logger:   logger,
	}
}

// Stream handles GET /api/streams/{id}
// Subscribes the client to a stream's events. A reconnecting client
// first receives a catchup event with everything accumulated so far.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	streamID := r.PathValue("id")
	if _, err := uuid.Parse(streamID); err != nil {
		h.logger.Warn("invalid stream id format", "stream_id", streamID)
		http.Error(w, "invalid stream ID format", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	clientID := uuid.New().String()

	executor := h.registry.Get(streamID)
	if executor == nil {
		// Stream unknown or already expired: tell the client over the
		// established SSE connection so EventSource handlers fire
		event, _ := chat.NewMessageErrorEvent("streaming not active for this stream")
		fmt.Fprint(w, event)
		flusher.Flush()
		h.logger.Info("stream not found, sent error event",
			"stream_id", streamID, "client_id", clientID)
		return
	}

	eventChan := executor.AddClient(clientID)
	defer executor.RemoveClient(clientID)

	h.logger.Debug("SSE client registered",
		"stream_id", streamID, "client_id", clientID)

	// Guards interleaving between the event loop and keepalive pings
	var writeMu sync.Mutex

	if err := executor.HandleReconnection(r.Context(), clientID); err != nil {
		h.logger.Warn("catchup failed, client will receive live events only",
			"stream_id", streamID, "client_id", clientID, "error", err)
	}

	keepAlive := sse.NewTickerKeepAlive(h.config.KeepAliveInterval)
	keepAliveWriter := sse.NewSSEKeepAliveWriter(w, flusher, &writeMu, streamID, clientID)
	keepAliveStopped := keepAlive.Start(keepAliveWriter, h.logger)
	defer keepAlive.Stop()

	for {
		select {
		case event, ok := <-eventChan:
			if !ok {
				// Terminal event delivered, stream over
				h.logger.Debug("event channel closed, ending stream",
					"stream_id", streamID, "client_id", clientID)
				return
			}

			writeMu.Lock()
			_, err := fmt.Fprint(w, event)
			if err == nil {
				flusher.Flush()
			}
			writeMu.Unlock()
			if err != nil {
				h.logger.Info("client disconnected during event write",
					"stream_id", streamID, "client_id", clientID, "error", err)
				return
			}

		case <-keepAliveStopped:
			// Keepalive detected a dead connection
			return

		case <-r.Context().Done():
			h.logger.Debug("SSE client disconnected",
				"stream_id", streamID, "client_id", clientID)
			return
		}
	}
}
