package llm

import (
	"context"

	"arbor/internal/domain/models/chat"
)

// LLMProvider defines the interface that all model providers implement.
// The abstraction keeps the streaming orchestration independent of
// which remote API serves the completion.
type LLMProvider interface {
	// StreamResponse opens one streaming completion for the request and
	// returns a channel of stream events. The channel is closed by the
	// provider when the stream ends; a terminal Metadata event precedes
	// the close on success, a terminal Error event on failure.
	StreamResponse(ctx context.Context, req *GenerateRequest) (<-chan StreamEvent, error)

	// Name returns the provider name (e.g. "anthropic", "lorem").
	Name() string

	// SupportsModel returns true if the provider serves the given model.
	SupportsModel(model string) bool
}

// GenerateRequest contains the parameters for one model request.
type GenerateRequest struct {
	// Messages is the assembled conversation history, oldest first.
	Messages []Message

	// Model is the model identifier (e.g. "claude-haiku-4-5-20251001").
	Model string

	// Params carries the tunable request parameters. nil means provider
	// defaults.
	Params *RequestParams
}

// Message is a single turn of the model-bound conversation. Content is
// the ordered block list from the content block builder; a turn without
// attachments is a single text block, the plain-string wire shape.
type Message struct {
	Role    string
	Content []chat.ContentBlock
}

// RequestParams carries the tunable parameters of a model request.
type RequestParams struct {
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	System      *string  `json:"system,omitempty"`
}

// GetMaxTokens returns the configured max token limit or the given
// default.
func (p *RequestParams) GetMaxTokens(defaultTokens int) int {
	if p == nil || p.MaxTokens == nil || *p.MaxTokens <= 0 {
		return defaultTokens
	}
	return *p.MaxTokens
}

// StreamEvent is one event from a provider stream. Exactly one field is
// set: Delta for incremental content, Metadata for the terminal summary
// on success, Error for a terminal failure. Empty events are ignored by
// consumers.
type StreamEvent struct {
	Delta    *StreamDelta
	Metadata *StreamMetadata
	Error    error
}

// StreamDelta carries an incremental text fragment.
type StreamDelta struct {
	Text string
}

// StreamMetadata summarizes a completed stream.
type StreamMetadata struct {
	Model        string
	InputTokens  int
	OutputTokens int
	StopReason   string

	// ResponseMetadata carries provider-specific response data
	// (stop_sequence, cache token counts, ...).
	ResponseMetadata map[string]interface{}
}
