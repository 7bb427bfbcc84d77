package streaming

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"arbor/internal/domain/models/chat"
	llmsvc "arbor/internal/domain/services/llm"
)

func testExecutor(t *testing.T, provider *scriptedProvider) (*StreamExecutor, *fakeMsgRepo, *fakeConvRepo) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	convRepo := newFakeConvRepo()
	conv := &chat.Conversation{UserID: "user-1", Title: "t"}
	if err := convRepo.CreateConversation(context.Background(), conv); err != nil {
		t.Fatalf("failed to create conversation: %v", err)
	}

	msgRepo := newFakeMsgRepo()
	userMsg := &chat.Message{ConversationID: conv.ID, Role: chat.RoleUser, Content: "q"}
	if err := msgRepo.CreateMessage(context.Background(), userMsg); err != nil {
		t.Fatalf("failed to create user message: %v", err)
	}

	model := "lorem-fast"
	pending := chat.Message{
		ConversationID:  conv.ID,
		ParentMessageID: &userMsg.ID,
		Role:            chat.RoleAssistant,
		Model:           &model,
	}
	executor := NewStreamExecutor(context.Background(), "stream-1", pending, provider, msgRepo, convRepo, logger)
	return executor, msgRepo, convRepo
}

func waitStatus(t *testing.T, executor *StreamExecutor, want string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if executor.GetStatus() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("executor never reached status %q, stuck at %q", want, executor.GetStatus())
}

func drainEvents(ch <-chan string) []string {
	var events []string
	for event := range ch {
		events = append(events, event)
	}
	return events
}

func TestExecutor_PersistsAssistantRowOnCompletion(t *testing.T) {
	executor, msgRepo, convRepo := testExecutor(t, okProvider("The ", "answer"))

	events := executor.AddClient("c1")
	executor.Start(&llmsvc.GenerateRequest{Model: "lorem-fast"})

	received := drainEvents(events)
	waitStatus(t, executor, StatusComplete)

	msg, metadata := executor.GetResult()
	if msg == nil || metadata == nil {
		t.Fatal("expected persisted result after completion")
	}
	if msg.Content != "The answer" {
		t.Errorf("persisted content = %q", msg.Content)
	}
	if msg.ID == 0 {
		t.Error("assistant row was never written")
	}
	if msgRepo.count(msg.ConversationID) != 2 {
		t.Errorf("expected user turn + assistant row, got %d messages", msgRepo.count(msg.ConversationID))
	}
	if convRepo.touchCount() == 0 {
		t.Error("completion should bump the conversation's updated_at")
	}

	var sawDelta, sawComplete bool
	for _, event := range received {
		if strings.Contains(event, chat.SSEEventMessageDelta) {
			sawDelta = true
		}
		if strings.Contains(event, chat.SSEEventMessageComplete) {
			sawComplete = true
		}
	}
	if !sawDelta || !sawComplete {
		t.Errorf("client missed events: delta=%v complete=%v", sawDelta, sawComplete)
	}
}

func TestExecutor_ErrorPersistsNothing(t *testing.T) {
	provider := &scriptedProvider{
		deltas: []string{"partial"},
		err:    errors.New("upstream failed"),
	}
	executor, msgRepo, _ := testExecutor(t, provider)

	events := executor.AddClient("c1")
	executor.Start(&llmsvc.GenerateRequest{Model: "lorem-fast"})

	received := drainEvents(events)
	waitStatus(t, executor, StatusError)

	if msg, _ := executor.GetResult(); msg != nil {
		t.Error("failed stream must not produce a result")
	}
	if msgRepo.count(1) != 1 {
		t.Errorf("failed stream must not persist an assistant row, got %d messages", msgRepo.count(1))
	}

	last := received[len(received)-1]
	if !strings.Contains(last, chat.SSEEventMessageError) {
		t.Errorf("expected terminal message_error event, got %q", last)
	}
}

func TestExecutor_StreamWithoutMetadataFails(t *testing.T) {
	// Provider closes the channel with no terminal event
	provider := &scriptedProvider{deltas: []string{"text"}}
	executor, msgRepo, _ := testExecutor(t, provider)

	executor.Start(&llmsvc.GenerateRequest{Model: "lorem-fast"})
	waitStatus(t, executor, StatusError)

	if msgRepo.count(1) != 1 {
		t.Error("truncated stream must not persist an assistant row")
	}
}

func TestExecutor_ReconnectionCatchupWhileStreaming(t *testing.T) {
	executor, _, _ := testExecutor(t, okProvider("unused"))

	// Simulate mid-stream state without racing the producer
	executor.accumulator.Append("accumulated so far")

	events := executor.AddClient("late")
	if err := executor.HandleReconnection(context.Background(), "late"); err != nil {
		t.Fatalf("HandleReconnection failed: %v", err)
	}

	select {
	case event := <-events:
		if !strings.Contains(event, chat.SSEEventMessageCatchup) {
			t.Errorf("expected catchup event, got %q", event)
		}
		if !strings.Contains(event, "accumulated so far") {
			t.Errorf("catchup missing accumulated text: %q", event)
		}
	case <-time.After(time.Second):
		t.Fatal("no catchup event delivered")
	}
}

func TestExecutor_ReconnectionAfterCompletionReplaysFinalEvent(t *testing.T) {
	executor, _, _ := testExecutor(t, okProvider("done"))
	executor.Start(&llmsvc.GenerateRequest{Model: "lorem-fast"})
	waitStatus(t, executor, StatusComplete)

	events := executor.AddClient("late")
	if err := executor.HandleReconnection(context.Background(), "late"); err != nil {
		t.Fatalf("HandleReconnection failed: %v", err)
	}

	received := drainEvents(events)
	if len(received) == 0 {
		t.Fatal("late client received nothing")
	}
	if !strings.Contains(received[0], chat.SSEEventMessageComplete) {
		t.Errorf("expected replayed completion, got %q", received[0])
	}
}

func TestExecutor_FailIsIdempotent(t *testing.T) {
	executor, _, _ := testExecutor(t, okProvider("unused"))

	executor.Fail(errors.New("first"))
	executor.Fail(errors.New("second"))

	if got := executor.GetError().Error(); got != "first" {
		t.Errorf("terminal error overwritten: %q", got)
	}
}

func TestExecutor_RemoveClientTwiceIsSafe(t *testing.T) {
	executor, _, _ := testExecutor(t, okProvider("unused"))
	executor.AddClient("c1")
	executor.RemoveClient("c1")
	executor.RemoveClient("c1")
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	registry := NewRegistry(time.Minute, 10*time.Minute)
	executor, _, _ := testExecutor(t, okProvider("unused"))

	if !registry.Register(executor) {
		t.Fatal("first registration should succeed")
	}
	if registry.Register(executor) {
		t.Error("duplicate registration should be rejected")
	}
	if registry.Get(executor.StreamID()) != executor {
		t.Error("lookup returned a different executor")
	}
	if registry.Get("missing") != nil {
		t.Error("unknown stream id should resolve to nil")
	}
	if registry.Count() != 1 {
		t.Errorf("expected 1 registered stream, got %d", registry.Count())
	}

	registry.Remove(executor.StreamID())
	if registry.Get(executor.StreamID()) != nil {
		t.Error("removed stream still resolves")
	}
}
