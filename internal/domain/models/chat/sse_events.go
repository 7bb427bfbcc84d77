package chat

import (
	"encoding/json"
	"fmt"
)

// SSE event type constants
const (
	SSEEventMessageStart    = "message_start"    // assistant response streaming has begun
	SSEEventMessageDelta    = "message_delta"    // incremental assistant text
	SSEEventMessageCatchup  = "message_catchup"  // replay of accumulated text (reconnection)
	SSEEventMessageComplete = "message_complete" // response finished; carries the persisted message
	SSEEventMessageError    = "message_error"    // upstream or internal failure; nothing was persisted
)

// MessageStartEvent signals that streaming has begun for a submitted turn.
type MessageStartEvent struct {
	StreamID        string `json:"stream_id"`
	ParentMessageID int64  `json:"parent_message_id"`
	Model           string `json:"model"`
}

// MessageDeltaEvent carries an incremental text fragment.
type MessageDeltaEvent struct {
	Text string `json:"text"`
}

// MessageCatchupEvent replays everything accumulated so far, so a
// reconnecting client can resynchronize with a single event.
type MessageCatchupEvent struct {
	Text string `json:"text"`
}

// MessageCompleteEvent signals successful completion. Message is the
// assistant row as persisted, so clients can splice it into their local
// tree without refetching.
type MessageCompleteEvent struct {
	Message      Message `json:"message"`
	StopReason   string  `json:"stop_reason,omitempty"`
	InputTokens  int     `json:"input_tokens,omitempty"`
	OutputTokens int     `json:"output_tokens,omitempty"`
}

// MessageErrorEvent signals that the stream failed. No assistant
// message exists; the conversation tree is unchanged since the user
// turn was accepted.
type MessageErrorEvent struct {
	Error string `json:"error"`
}

// FormatSSE renders an event in wire format:
//
//	event: message_delta
//	data: {"text": "..."}
func FormatSSE(eventType string, data interface{}) (string, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal SSE event data: %w", err)
	}
	return fmt.Sprintf("event: %s\ndata: %s\n\n", eventType, string(jsonData)), nil
}

// NewMessageStartEvent creates a message_start SSE event.
func NewMessageStartEvent(streamID string, parentMessageID int64, model string) (string, error) {
	return FormatSSE(SSEEventMessageStart, MessageStartEvent{
		StreamID:        streamID,
		ParentMessageID: parentMessageID,
		Model:           model,
	})
}

// NewMessageDeltaEvent creates a message_delta SSE event.
func NewMessageDeltaEvent(text string) (string, error) {
	return FormatSSE(SSEEventMessageDelta, MessageDeltaEvent{Text: text})
}

// NewMessageCatchupEvent creates a message_catchup SSE event.
func NewMessageCatchupEvent(text string) (string, error) {
	return FormatSSE(SSEEventMessageCatchup, MessageCatchupEvent{Text: text})
}

// NewMessageCompleteEvent creates a message_complete SSE event.
func NewMessageCompleteEvent(msg Message, stopReason string, inputTokens, outputTokens int) (string, error) {
	return FormatSSE(SSEEventMessageComplete, MessageCompleteEvent{
		Message:      msg,
		StopReason:   stopReason,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
	})
}

// NewMessageErrorEvent creates a message_error SSE event.
func NewMessageErrorEvent(errMsg string) (string, error) {
	return FormatSSE(SSEEventMessageError, MessageErrorEvent{Error: errMsg})
}
