// Package lorem is a mock LLM provider that streams lorem ipsum text.
// Used for development and tests without real API keys.
package lorem

import (
	"context"
	"fmt"
	"strings"
	"time"

	loremgen "github.com/bozaro/golorem"

	"arbor/internal/domain/models/chat"
	llmsvc "arbor/internal/domain/services/llm"
)

// Provider generates lorem ipsum responses.
type Provider struct {
	generator *loremgen.Lorem
}

// NewProvider creates a new lorem ipsum provider.
func NewProvider() *Provider {
	return &Provider{
		generator: loremgen.New(),
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "lorem"
}

// SupportsModel returns true if the model name starts with "lorem-".
// Example models: "lorem-fast", "lorem-slow", "lorem-medium"
func (p *Provider) SupportsModel(model string) bool {
	return strings.HasPrefix(model, "lorem-")
}

// getStreamDelay returns the delay between words based on the model name.
// - lorem-slow: 2 words/second
// - lorem-fast: 30 words/second
// - lorem-medium and default: 10 words/second
func getStreamDelay(model string) time.Duration {
	if strings.Contains(model, "slow") {
		return 500 * time.Millisecond
	}
	if strings.Contains(model, "fast") {
		return 33 * time.Millisecond
	}
	return 100 * time.Millisecond
}

// isCutoffModel returns true if the model should simulate a max_tokens
// cutoff.
func isCutoffModel(model string) bool {
	return strings.Contains(model, "cutoff") || strings.Contains(model, "small")
}

// StreamResponse generates a streaming lorem ipsum response. Speed
// varies by model name (lorem-slow, lorem-fast, lorem-medium); models
// containing "cutoff" or "small" stop mid-response with a max_tokens
// stop reason.
func (p *Provider) StreamResponse(ctx context.Context, req *llmsvc.GenerateRequest) (<-chan llmsvc.StreamEvent, error) {
	if !p.SupportsModel(req.Model) {
		return nil, fmt.Errorf("model '%s' is not supported by lorem provider", req.Model)
	}

	params := req.Params
	if params == nil {
		params = &llmsvc.RequestParams{}
	}
	maxTokens := params.GetMaxTokens(4096)

	eventChan := make(chan llmsvc.StreamEvent, 10)

	go func() {
		defer close(eventChan)

		outputTokens, cutoff, err := p.streamText(ctx, eventChan, maxTokens, req.Model)
		if err != nil {
			eventChan <- llmsvc.StreamEvent{Error: err}
			return
		}

		stopReason := "end_turn"
		if cutoff {
			stopReason = "max_tokens"
		}

		eventChan <- llmsvc.StreamEvent{
			Metadata: &llmsvc.StreamMetadata{
				Model:        req.Model,
				InputTokens:  p.estimateTokens(req.Messages),
				OutputTokens: outputTokens,
				StopReason:   stopReason,
				ResponseMetadata: map[string]interface{}{
					"mock":     true,
					"provider": "lorem",
				},
			},
		}
	}()

	return eventChan, nil
}

// streamText streams generated words one delta at a time. Returns
// (word count, cutoff flag, error). Cutoff models generate 50% extra
// words and stop at the maxTokens limit; plain models run to the end
// of their generated text.
func (p *Provider) streamText(ctx context.Context, eventChan chan<- llmsvc.StreamEvent, maxTokens int, model string) (int, bool, error) {
	cutoffModel := isCutoffModel(model)

	targetWords := maxTokens
	if cutoffModel {
		targetWords = maxTokens + maxTokens/2
	}

	text := p.generateTextWords(targetWords)
	words := strings.Fields(text)
	delay := getStreamDelay(model)

	wordsSent := 0
	for _, word := range words {
		select {
		case <-ctx.Done():
			return wordsSent, false, ctx.Err()
		default:
		}

		if cutoffModel && wordsSent >= maxTokens {
			return wordsSent, true, nil
		}

		eventChan <- llmsvc.StreamEvent{
			Delta: &llmsvc.StreamDelta{Text: word + " "},
		}

		time.Sleep(delay)
		wordsSent++
	}

	return wordsSent, false, nil
}

// generateTextWords generates lorem ipsum text with approximately
// targetWords words, broken into paragraphs.
func (p *Provider) generateTextWords(targetWords int) string {
	var sb strings.Builder
	wordCount := 0

	for wordCount < targetWords {
		// Sentences of 5-15 words
		sentence := p.generator.Sentence(5, 15)
		sb.WriteString(sentence)
		sb.WriteString(" ")

		wordCount += len(strings.Fields(sentence))

		// Paragraph break every ~50 words
		if wordCount%50 == 0 {
			sb.WriteString("\n\n")
		}
	}

	return strings.TrimSpace(sb.String())
}

// estimateTokens estimates the input token count for a list of
// messages. Uses word count as a rough approximation.
func (p *Provider) estimateTokens(messages []llmsvc.Message) int {
	totalWords := 0
	for _, msg := range messages {
		for _, block := range msg.Content {
			if block.Type == chat.BlockTypeText {
				totalWords += len(strings.Fields(block.Text))
			}
		}
	}
	return totalWords
}
