package lorem

import (
	"context"
	"strings"
	"testing"
	"time"

	"arbor/internal/domain/models/chat"
	llmsvc "arbor/internal/domain/services/llm"
)

func userTurn(text string) llmsvc.Message {
	return llmsvc.Message{
		Role:    chat.RoleUser,
		Content: []chat.ContentBlock{chat.NewTextBlock(text)},
	}
}

func collectEvents(t *testing.T, events <-chan llmsvc.StreamEvent) (deltas []string, metadata *llmsvc.StreamMetadata) {
	t.Helper()
	for event := range events {
		switch {
		case event.Error != nil:
			t.Fatalf("unexpected stream error: %v", event.Error)
		case event.Delta != nil:
			deltas = append(deltas, event.Delta.Text)
		case event.Metadata != nil:
			metadata = event.Metadata
		}
	}
	return deltas, metadata
}

func TestStreamResponse_EmitsDeltasThenMetadata(t *testing.T) {
	p := NewProvider()
	maxTokens := 5

	events, err := p.StreamResponse(context.Background(), &llmsvc.GenerateRequest{
		Model:    "lorem-fast",
		Messages: []llmsvc.Message{userTurn("tell me a story about databases")},
		Params:   &llmsvc.RequestParams{MaxTokens: &maxTokens},
	})
	if err != nil {
		t.Fatalf("StreamResponse failed: %v", err)
	}

	deltas, metadata := collectEvents(t, events)
	if len(deltas) < maxTokens {
		t.Errorf("expected at least %d deltas, got %d", maxTokens, len(deltas))
	}
	if metadata == nil {
		t.Fatal("expected final metadata event")
	}
	if metadata.StopReason != "end_turn" {
		t.Errorf("expected end_turn, got %s", metadata.StopReason)
	}
	if metadata.OutputTokens != len(deltas) {
		t.Errorf("output tokens %d does not match %d deltas", metadata.OutputTokens, len(deltas))
	}
	if metadata.InputTokens != 6 {
		t.Errorf("expected 6 estimated input tokens, got %d", metadata.InputTokens)
	}
	if metadata.ResponseMetadata["mock"] != true {
		t.Error("expected mock flag in response metadata")
	}
}

func TestStreamResponse_CutoffModelStopsAtLimit(t *testing.T) {
	p := NewProvider()
	maxTokens := 5

	events, err := p.StreamResponse(context.Background(), &llmsvc.GenerateRequest{
		Model:    "lorem-fast-cutoff",
		Messages: []llmsvc.Message{userTurn("hi")},
		Params:   &llmsvc.RequestParams{MaxTokens: &maxTokens},
	})
	if err != nil {
		t.Fatalf("StreamResponse failed: %v", err)
	}

	deltas, metadata := collectEvents(t, events)
	if len(deltas) != maxTokens {
		t.Errorf("expected exactly %d deltas, got %d", maxTokens, len(deltas))
	}
	if metadata == nil {
		t.Fatal("expected final metadata event")
	}
	if metadata.StopReason != "max_tokens" {
		t.Errorf("expected max_tokens, got %s", metadata.StopReason)
	}
}

func TestStreamResponse_RejectsForeignModel(t *testing.T) {
	p := NewProvider()

	_, err := p.StreamResponse(context.Background(), &llmsvc.GenerateRequest{
		Model:    "claude-sonnet-4-5",
		Messages: []llmsvc.Message{userTurn("hi")},
	})
	if err == nil {
		t.Error("expected error for non-lorem model")
	}
}

func TestStreamResponse_ContextCancellation(t *testing.T) {
	p := NewProvider()
	ctx, cancel := context.WithCancel(context.Background())
	maxTokens := 50

	events, err := p.StreamResponse(ctx, &llmsvc.GenerateRequest{
		Model:    "lorem-slow",
		Messages: []llmsvc.Message{userTurn("hi")},
		Params:   &llmsvc.RequestParams{MaxTokens: &maxTokens},
	})
	if err != nil {
		t.Fatalf("StreamResponse failed: %v", err)
	}

	// Receive one delta, then cancel mid-stream.
	<-events
	cancel()

	var gotErr error
	deadline := time.After(5 * time.Second)
	for gotErr == nil {
		select {
		case event, ok := <-events:
			if !ok {
				t.Fatal("stream closed without an error event")
			}
			gotErr = event.Error
		case <-deadline:
			t.Fatal("timed out waiting for cancellation error")
		}
	}
	if !strings.Contains(gotErr.Error(), "context canceled") {
		t.Errorf("expected context cancellation, got %v", gotErr)
	}
}
