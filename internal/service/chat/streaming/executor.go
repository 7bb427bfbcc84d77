package streaming

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"arbor/internal/domain/models/chat"
	chatRepo "arbor/internal/domain/repositories/chat"
	llmsvc "arbor/internal/domain/services/llm"
)

// Execution status values.
const (
	StatusStreaming = "streaming"
	StatusComplete  = "complete"
	StatusError     = "error"
)

// StreamExecutor orchestrates one assistant response stream.
//
// Responsibilities:
//   - Consume the provider event channel
//   - Accumulate deltas for catchup on reconnection
//   - Broadcast SSE events to all connected clients
//   - Persist the assistant row only after the stream completes; on any
//     failure nothing is written and the tree keeps just the user turn
//
// Thread-safety: methods are safe for concurrent use. Multiple SSE
// clients can attach and detach while the producer goroutine runs.
type StreamExecutor struct {
	streamID string
	pending  chat.Message // assistant row template, persisted on success
	provider llmsvc.LLMProvider
	msgRepo  chatRepo.MessageRepository
	convRepo chatRepo.ConversationRepository
	logger   *slog.Logger

	ctx         context.Context
	accumulator *TextAccumulator

	// SSE client management
	clients   map[string]chan string // clientID -> event channel
	clientsMu sync.RWMutex

	status    string
	statusErr error
	statusMu  sync.RWMutex

	// Populated on successful completion
	result   *chat.Message
	metadata *llmsvc.StreamMetadata
	resultMu sync.RWMutex
}

// NewStreamExecutor creates an executor for one pending assistant
// message. pending carries the row template (conversation, parent,
// model, thread flag); its content is filled from the stream.
func NewStreamExecutor(
	ctx context.Context,
	streamID string,
	pending chat.Message,
	provider llmsvc.LLMProvider,
	msgRepo chatRepo.MessageRepository,
	convRepo chatRepo.ConversationRepository,
	logger *slog.Logger,
) *StreamExecutor {
	return &StreamExecutor{
		streamID:    streamID,
		pending:     pending,
		provider:    provider,
		msgRepo:     msgRepo,
		convRepo:    convRepo,
		logger:      logger,
		ctx:         ctx,
		accumulator: NewTextAccumulator(),
		clients:     make(map[string]chan string),
		status:      StatusStreaming,
	}
}

// StreamID returns the executor's stream identifier.
func (e *StreamExecutor) StreamID() string {
	return e.streamID
}

// Start begins streaming execution (non-blocking).
func (e *StreamExecutor) Start(req *llmsvc.GenerateRequest) {
	go e.run(req)
}

// Fail terminates the stream before the provider was reached, e.g. when
// history assembly fails in the background goroutine. Connected clients
// receive a message_error event.
func (e *StreamExecutor) Fail(err error) {
	e.handleError(err)
}

// AddClient registers a new SSE client and returns its event channel.
// The client reads until the channel closes.
func (e *StreamExecutor) AddClient(clientID string) <-chan string {
	e.clientsMu.Lock()
	defer e.clientsMu.Unlock()

	// Buffered so a slow reader does not stall the producer
	eventChan := make(chan string, 20)
	e.clients[clientID] = eventChan
	return eventChan
}

// RemoveClient unregisters an SSE client and closes its channel.
// Safe to call more than once.
func (e *StreamExecutor) RemoveClient(clientID string) {
	e.clientsMu.Lock()
	defer e.clientsMu.Unlock()

	if ch, exists := e.clients[clientID]; exists {
		close(ch)
		delete(e.clients, clientID)
	}
}

// GetStatus returns "streaming", "complete", or "error".
func (e *StreamExecutor) GetStatus() string {
	e.statusMu.RLock()
	defer e.statusMu.RUnlock()
	return e.status
}

// GetError returns the terminal error when status is "error".
func (e *StreamExecutor) GetError() error {
	e.statusMu.RLock()
	defer e.statusMu.RUnlock()
	return e.statusErr
}

// GetResult returns the persisted assistant message and stream metadata
// after successful completion, nil before.
func (e *StreamExecutor) GetResult() (*chat.Message, *llmsvc.StreamMetadata) {
	e.resultMu.RLock()
	defer e.resultMu.RUnlock()
	return e.result, e.metadata
}

// HandleReconnection brings a newly attached client up to date. While
// streaming it replays the accumulated text as one catchup event; after
// a terminal state it sends the final event and detaches the client so
// the SSE connection ends.
func (e *StreamExecutor) HandleReconnection(ctx context.Context, clientID string) error {
	clientChan := e.getClientChannel(clientID)
	if clientChan == nil {
		return fmt.Errorf("unknown stream client: %s", clientID)
	}

	switch e.GetStatus() {
	case StatusStreaming:
		text := e.accumulator.Text()
		if text == "" {
			return nil
		}
		event, err := chat.NewMessageCatchupEvent(text)
		if err != nil {
			return fmt.Errorf("failed to create catchup event: %w", err)
		}
		return e.send(ctx, clientChan, event)

	case StatusComplete:
		msg, metadata := e.GetResult()
		if msg != nil && metadata != nil {
			event, err := chat.NewMessageCompleteEvent(*msg, metadata.StopReason, metadata.InputTokens, metadata.OutputTokens)
			if err != nil {
				return fmt.Errorf("failed to create completion event: %w", err)
			}
			if err := e.send(ctx, clientChan, event); err != nil {
				return err
			}
		}
		e.RemoveClient(clientID)
		return nil

	case StatusError:
		errorMsg := "unknown error"
		if statusErr := e.GetError(); statusErr != nil {
			errorMsg = statusErr.Error()
		}
		event, err := chat.NewMessageErrorEvent(errorMsg)
		if err != nil {
			return fmt.Errorf("failed to create error event: %w", err)
		}
		if err := e.send(ctx, clientChan, event); err != nil {
			return err
		}
		e.RemoveClient(clientID)
		return nil
	}

	return nil
}

// run is the producer loop (runs in a goroutine).
func (e *StreamExecutor) run(req *llmsvc.GenerateRequest) {
	var parentID int64
	if e.pending.ParentMessageID != nil {
		parentID = *e.pending.ParentMessageID
	}
	var model string
	if e.pending.Model != nil {
		model = *e.pending.Model
	}

	startEvent, _ := chat.NewMessageStartEvent(e.streamID, parentID, model)
	e.broadcast(startEvent)

	streamChan, err := e.provider.StreamResponse(e.ctx, req)
	if err != nil {
		e.handleError(fmt.Errorf("failed to start provider stream: %w", err))
		return
	}

	for streamEvent := range streamChan {
		if streamEvent.Error != nil {
			e.handleError(streamEvent.Error)
			return
		}

		if streamEvent.Delta != nil {
			e.accumulator.Append(streamEvent.Delta.Text)
			deltaEvent, _ := chat.NewMessageDeltaEvent(streamEvent.Delta.Text)
			e.broadcast(deltaEvent)
		}

		if streamEvent.Metadata != nil {
			e.handleCompletion(streamEvent.Metadata)
			return
		}
	}

	// Provider closed the channel without a terminal event
	e.handleError(fmt.Errorf("stream closed without metadata"))
}

// handleCompletion persists the assistant row and finalizes the stream.
// Persistence happens here and nowhere else: the row exists only once
// the full response does.
func (e *StreamExecutor) handleCompletion(metadata *llmsvc.StreamMetadata) {
	msg := e.pending
	msg.Content = e.accumulator.Text()
	if metadata.Model != "" {
		model := metadata.Model
		msg.Model = &model
	}

	if err := e.msgRepo.CreateMessage(e.ctx, &msg); err != nil {
		e.handleError(fmt.Errorf("failed to persist assistant message: %w", err))
		return
	}

	if err := e.convRepo.TouchConversation(e.ctx, msg.ConversationID); err != nil {
		e.logger.Warn("failed to touch conversation after stream",
			"conversation_id", msg.ConversationID, "error", err)
	}

	e.resultMu.Lock()
	e.result = &msg
	e.metadata = metadata
	e.resultMu.Unlock()

	e.statusMu.Lock()
	e.status = StatusComplete
	e.statusMu.Unlock()

	e.logger.Info("stream complete",
		"stream_id", e.streamID,
		"message_id", msg.ID,
		"conversation_id", msg.ConversationID,
		"output_tokens", metadata.OutputTokens,
	)

	completeEvent, _ := chat.NewMessageCompleteEvent(msg, metadata.StopReason, metadata.InputTokens, metadata.OutputTokens)
	e.broadcast(completeEvent)
	e.closeClients()
}

// handleError finalizes a failed stream. No assistant row is written;
// the accumulated partial text is discarded with the executor.
func (e *StreamExecutor) handleError(err error) {
	e.statusMu.Lock()
	if e.status != StatusStreaming {
		// Already terminal
		e.statusMu.Unlock()
		return
	}
	e.status = StatusError
	e.statusErr = err
	e.statusMu.Unlock()

	e.logger.Error("stream failed",
		"stream_id", e.streamID,
		"conversation_id", e.pending.ConversationID,
		"error", err,
	)

	errorEvent, _ := chat.NewMessageErrorEvent(err.Error())
	e.broadcast(errorEvent)
	e.closeClients()
}

// broadcast sends an SSE event to all connected clients. A client whose
// buffer is full is skipped; it resynchronizes via catchup on reconnect.
func (e *StreamExecutor) broadcast(event string) {
	e.clientsMu.RLock()
	defer e.clientsMu.RUnlock()

	for clientID, ch := range e.clients {
		select {
		case ch <- event:
		default:
			e.logger.Warn("dropping event for slow stream client",
				"stream_id", e.streamID, "client_id", clientID)
		}
	}
}

// closeClients closes every client channel so SSE connections end.
func (e *StreamExecutor) closeClients() {
	e.clientsMu.Lock()
	defer e.clientsMu.Unlock()

	for clientID, ch := range e.clients {
		close(ch)
		delete(e.clients, clientID)
	}
}

func (e *StreamExecutor) getClientChannel(clientID string) chan string {
	e.clientsMu.RLock()
	defer e.clientsMu.RUnlock()
	return e.clients[clientID]
}

func (e *StreamExecutor) send(ctx context.Context, ch chan string, event string) error {
	select {
	case ch <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
