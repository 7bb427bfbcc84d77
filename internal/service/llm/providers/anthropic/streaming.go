package anthropic

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	llmsvc "arbor/internal/domain/services/llm"
)

// StreamResponse opens a streaming completion against the Messages API.
// Returns a channel that emits StreamEvents as deltas arrive; the final
// event carries usage metadata assembled from the accumulated message.
func (p *Provider) StreamResponse(ctx context.Context, req *llmsvc.GenerateRequest) (<-chan llmsvc.StreamEvent, error) {
	if !p.SupportsModel(req.Model) {
		return nil, fmt.Errorf("model '%s' is not supported by Anthropic provider", req.Model)
	}

	apiParams, err := buildParams(req)
	if err != nil {
		return nil, err
	}

	// Buffered so SDK reads don't block on a slow consumer
	eventChan := make(chan llmsvc.StreamEvent, 10)

	go func() {
		defer close(eventChan)

		stream := p.client.Messages.NewStreaming(ctx, apiParams)

		// Accumulator for final message metadata
		message := anthropic.Message{}

		for stream.Next() {
			event := stream.Current()

			if err := message.Accumulate(event); err != nil {
				eventChan <- llmsvc.StreamEvent{
					Error: fmt.Errorf("failed to accumulate message: %w", err),
				}
				return
			}

			streamEvent := transformStreamEvent(event)
			if streamEvent.Delta == nil {
				// Bookkeeping event (message_start, block boundaries),
				// nothing for consumers.
				continue
			}

			select {
			case <-ctx.Done():
				eventChan <- llmsvc.StreamEvent{Error: ctx.Err()}
				return
			case eventChan <- streamEvent:
			}
		}

		if err := stream.Err(); err != nil {
			eventChan <- llmsvc.StreamEvent{
				Error: fmt.Errorf("anthropic streaming error: %w", err),
			}
			return
		}

		metadata := &llmsvc.StreamMetadata{
			Model:        string(message.Model),
			InputTokens:  int(message.Usage.InputTokens),
			OutputTokens: int(message.Usage.OutputTokens),
			StopReason:   string(message.StopReason),
		}

		responseMetadata := make(map[string]interface{})
		if message.StopSequence != "" {
			responseMetadata["stop_sequence"] = message.StopSequence
		}
		if message.Usage.CacheCreationInputTokens > 0 {
			responseMetadata["cache_creation_input_tokens"] = int(message.Usage.CacheCreationInputTokens)
		}
		if message.Usage.CacheReadInputTokens > 0 {
			responseMetadata["cache_read_input_tokens"] = int(message.Usage.CacheReadInputTokens)
		}
		metadata.ResponseMetadata = responseMetadata

		eventChan <- llmsvc.StreamEvent{Metadata: metadata}
	}()

	return eventChan, nil
}

// transformStreamEvent maps an API stream event to a domain StreamEvent.
// Only text deltas carry content for consumers; block boundaries and
// message lifecycle events return an empty event.
func transformStreamEvent(event anthropic.MessageStreamEventUnion) llmsvc.StreamEvent {
	switch e := event.AsAny().(type) {
	case anthropic.ContentBlockDeltaEvent:
		if e.Delta.Type == "text_delta" {
			return llmsvc.StreamEvent{Delta: &llmsvc.StreamDelta{Text: e.Delta.Text}}
		}
		return llmsvc.StreamEvent{}

	default:
		// message_start, content_block_start/stop, message_delta,
		// message_stop: final metadata is assembled from the accumulated
		// message once the stream drains.
		return llmsvc.StreamEvent{}
	}
}
