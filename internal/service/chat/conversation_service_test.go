package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"arbor/internal/config"
	"arbor/internal/domain"
	chatModels "arbor/internal/domain/models/chat"
	chatSvc "arbor/internal/domain/services/chat"
)

// --- in-memory fakes shared by the service tests in this package ---

type memConvRepo struct {
	convs  map[int64]*chatModels.Conversation
	nextID int64
}

func newMemConvRepo() *memConvRepo {
	return &memConvRepo{convs: map[int64]*chatModels.Conversation{}, nextID: 1}
}

func (r *memConvRepo) CreateConversation(ctx context.Context, conv *chatModels.Conversation) error {
	conv.ID = r.nextID
	r.nextID++
	copied := *conv
	r.convs[conv.ID] = &copied
	return nil
}

func (r *memConvRepo) GetConversation(ctx context.Context, conversationID int64, userID string) (*chatModels.Conversation, error) {
	conv, ok := r.convs[conversationID]
	if !ok || conv.UserID != userID {
		return nil, fmt.Errorf("conversation %d: %w", conversationID, domain.ErrNotFound)
	}
	copied := *conv
	return &copied, nil
}

func (r *memConvRepo) GetConversationByIDOnly(ctx context.Context, conversationID int64) (*chatModels.Conversation, error) {
	conv, ok := r.convs[conversationID]
	if !ok {
		return nil, fmt.Errorf("conversation %d: %w", conversationID, domain.ErrNotFound)
	}
	copied := *conv
	return &copied, nil
}

func (r *memConvRepo) ListConversations(ctx context.Context, userID string) ([]chatModels.Conversation, error) {
	var out []chatModels.Conversation
	for _, conv := range r.convs {
		if conv.UserID == userID {
			out = append(out, *conv)
		}
	}
	return out, nil
}

func (r *memConvRepo) UpdateConversation(ctx context.Context, conv *chatModels.Conversation) error {
	stored, ok := r.convs[conv.ID]
	if !ok {
		return fmt.Errorf("conversation %d: %w", conv.ID, domain.ErrNotFound)
	}
	*stored = *conv
	return nil
}

func (r *memConvRepo) TouchConversation(ctx context.Context, conversationID int64) error {
	stored, ok := r.convs[conversationID]
	if !ok {
		return fmt.Errorf("conversation %d: %w", conversationID, domain.ErrNotFound)
	}
	stored.UpdatedAt = time.Now()
	return nil
}

func (r *memConvRepo) DeleteConversation(ctx context.Context, conversationID int64, userID string) (*chatModels.Conversation, error) {
	conv, ok := r.convs[conversationID]
	if !ok || conv.UserID != userID {
		return nil, fmt.Errorf("conversation %d: %w", conversationID, domain.ErrNotFound)
	}
	delete(r.convs, conversationID)
	return conv, nil
}

type memMsgRepo struct {
	messages []chatModels.Message
	nextID   int64
	clock    time.Time
	drafts   map[int64]*string
}

func newMemMsgRepo() *memMsgRepo {
	return &memMsgRepo{nextID: 1, clock: time.Now(), drafts: map[int64]*string{}}
}

func (r *memMsgRepo) CreateMessage(ctx context.Context, msg *chatModels.Message) error {
	msg.ID = r.nextID
	r.nextID++
	r.clock = r.clock.Add(time.Millisecond)
	msg.CreatedAt = r.clock
	r.messages = append(r.messages, *msg)
	return nil
}

func (r *memMsgRepo) GetMessage(ctx context.Context, messageID int64) (*chatModels.Message, error) {
	for _, m := range r.messages {
		if m.ID == messageID {
			copied := m
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("message %d: %w", messageID, domain.ErrNotFound)
}

func (r *memMsgRepo) ListMessages(ctx context.Context, conversationID int64) ([]chatModels.Message, error) {
	var out []chatModels.Message
	for _, m := range r.messages {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memMsgRepo) DeleteMessage(ctx context.Context, messageID int64) error {
	for i, m := range r.messages {
		if m.ID == messageID {
			r.messages = append(r.messages[:i], r.messages[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("message %d: %w", messageID, domain.ErrNotFound)
}

func (r *memMsgRepo) UpdateThreadDraft(ctx context.Context, messageID int64, draft *string) error {
	for i, m := range r.messages {
		if m.ID == messageID {
			r.messages[i].ThreadDraft = draft
			r.drafts[messageID] = draft
			return nil
		}
	}
	return fmt.Errorf("message %d: %w", messageID, domain.ErrNotFound)
}

type memFileRepo struct {
	files map[int64][]chatModels.MessageFile
}

func newMemFileRepo() *memFileRepo {
	return &memFileRepo{files: map[int64][]chatModels.MessageFile{}}
}

func (r *memFileRepo) CreateMessageFiles(ctx context.Context, files []chatModels.MessageFile) error {
	for _, f := range files {
		r.files[f.MessageID] = append(r.files[f.MessageID], f)
	}
	return nil
}

func (r *memFileRepo) GetFilesForMessages(ctx context.Context, messageIDs []int64) (map[int64][]chatModels.MessageFile, error) {
	out := map[int64][]chatModels.MessageFile{}
	for _, id := range messageIDs {
		if fs, ok := r.files[id]; ok {
			out[id] = fs
		}
	}
	return out, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- conversation service tests ---

func TestCreateConversation_TrimsTitle(t *testing.T) {
	svc := NewConversationService(newMemConvRepo(), testLogger())

	conv, err := svc.CreateConversation(context.Background(), &chatSvc.CreateConversationRequest{
		UserID: "user-1",
		Title:  "  My trip  ",
	})
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}
	if conv.Title != "My trip" {
		t.Errorf("title = %q, want trimmed", conv.Title)
	}
	if conv.ID == 0 {
		t.Error("conversation was not persisted")
	}
}

func TestCreateConversation_AllowsEmptyTitle(t *testing.T) {
	svc := NewConversationService(newMemConvRepo(), testLogger())

	conv, err := svc.CreateConversation(context.Background(), &chatSvc.CreateConversationRequest{UserID: "user-1"})
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}
	if conv.Title != "" {
		t.Errorf("empty title should be kept for later derivation, got %q", conv.Title)
	}
}

func TestCreateConversation_RejectsOversizedFields(t *testing.T) {
	svc := NewConversationService(newMemConvRepo(), testLogger())

	longTitle := strings.Repeat("a", config.MaxConversationTitleLength+1)
	_, err := svc.CreateConversation(context.Background(), &chatSvc.CreateConversationRequest{
		UserID: "user-1",
		Title:  longTitle,
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error for long title, got %v", err)
	}

	longPrompt := strings.Repeat("a", config.MaxSystemPromptLength+1)
	_, err = svc.CreateConversation(context.Background(), &chatSvc.CreateConversationRequest{
		UserID:       "user-1",
		SystemPrompt: &longPrompt,
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error for long system prompt, got %v", err)
	}
}

func TestUpdateConversation_PartialUpdateSemantics(t *testing.T) {
	repo := newMemConvRepo()
	svc := NewConversationService(repo, testLogger())

	prompt := "be brief"
	model := "lorem-fast"
	conv, err := svc.CreateConversation(context.Background(), &chatSvc.CreateConversationRequest{
		UserID:       "user-1",
		Title:        "Original",
		SystemPrompt: &prompt,
		DefaultModel: &model,
	})
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	// Absent fields stay untouched
	newTitle := "Renamed"
	updated, err := svc.UpdateConversation(context.Background(), conv.ID, "user-1", &chatSvc.UpdateConversationRequest{
		Title: &newTitle,
	})
	if err != nil {
		t.Fatalf("UpdateConversation failed: %v", err)
	}
	if updated.Title != "Renamed" {
		t.Errorf("title = %q", updated.Title)
	}
	if updated.SystemPrompt == nil || *updated.SystemPrompt != prompt {
		t.Error("absent system prompt field must stay untouched")
	}

	// Explicit null clears
	updated, err = svc.UpdateConversation(context.Background(), conv.ID, "user-1", &chatSvc.UpdateConversationRequest{
		SystemPrompt: chatSvc.OptionalText{Present: true, Value: nil},
	})
	if err != nil {
		t.Fatalf("UpdateConversation failed: %v", err)
	}
	if updated.SystemPrompt != nil {
		t.Error("explicit null should clear the system prompt")
	}
	if updated.DefaultModel == nil || *updated.DefaultModel != model {
		t.Error("untouched default model changed")
	}
}

func TestUpdateConversation_WrongOwner(t *testing.T) {
	svc := NewConversationService(newMemConvRepo(), testLogger())

	conv, err := svc.CreateConversation(context.Background(), &chatSvc.CreateConversationRequest{
		UserID: "user-1",
		Title:  "Mine",
	})
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	title := "Stolen"
	_, err = svc.UpdateConversation(context.Background(), conv.ID, "intruder", &chatSvc.UpdateConversationRequest{Title: &title})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found for foreign update, got %v", err)
	}
}

func TestDeleteConversation_ReturnsDeletedRow(t *testing.T) {
	repo := newMemConvRepo()
	svc := NewConversationService(repo, testLogger())

	conv, err := svc.CreateConversation(context.Background(), &chatSvc.CreateConversationRequest{
		UserID: "user-1",
		Title:  "Doomed",
	})
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	deleted, err := svc.DeleteConversation(context.Background(), conv.ID, "user-1")
	if err != nil {
		t.Fatalf("DeleteConversation failed: %v", err)
	}
	if deleted.Title != "Doomed" {
		t.Errorf("deleted row title = %q", deleted.Title)
	}

	if _, err := svc.GetConversation(context.Background(), conv.ID, "user-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found after delete, got %v", err)
	}
}
