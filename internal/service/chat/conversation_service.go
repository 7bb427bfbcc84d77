package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"arbor/internal/config"
	"arbor/internal/domain"
	chatModels "arbor/internal/domain/models/chat"
	chatRepo "arbor/internal/domain/repositories/chat"
	chatSvc "arbor/internal/domain/services/chat"
)

// ConversationService implements conversation session management
// (CRUD). Message-tree reads live in MessageService, submission in the
// streaming service.
type ConversationService struct {
	convRepo chatRepo.ConversationRepository
	logger   *slog.Logger
}

// NewConversationService creates a new conversation CRUD service.
func NewConversationService(
	convRepo chatRepo.ConversationRepository,
	logger *slog.Logger,
) chatSvc.ConversationService {
	return &ConversationService{
		convRepo: convRepo,
		logger:   logger,
	}
}

// CreateConversation creates a new conversation. An empty title is
// kept: it is derived from the first submitted message.
func (s *ConversationService) CreateConversation(ctx context.Context, req *chatSvc.CreateConversationRequest) (*chatModels.Conversation, error) {
	if err := s.validateCreateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	conv := &chatModels.Conversation{
		UserID:       req.UserID,
		Title:        strings.TrimSpace(req.Title),
		SystemPrompt: req.SystemPrompt,
		DefaultModel: req.DefaultModel,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := s.convRepo.CreateConversation(ctx, conv); err != nil {
		return nil, err
	}

	s.logger.Info("conversation created",
		"id", conv.ID,
		"title", conv.Title,
		"user_id", req.UserID,
	)

	return conv, nil
}

// GetConversation retrieves a conversation by ID (owner-scoped).
func (s *ConversationService) GetConversation(ctx context.Context, conversationID int64, userID string) (*chatModels.Conversation, error) {
	return s.convRepo.GetConversation(ctx, conversationID, userID)
}

// ListConversations retrieves a user's conversations, most recently
// updated first.
func (s *ConversationService) ListConversations(ctx context.Context, userID string) ([]chatModels.Conversation, error) {
	return s.convRepo.ListConversations(ctx, userID)
}

// UpdateConversation applies a partial update. Absent fields stay
// untouched; explicit nulls clear the nullable fields.
func (s *ConversationService) UpdateConversation(ctx context.Context, conversationID int64, userID string, req *chatSvc.UpdateConversationRequest) (*chatModels.Conversation, error) {
	if err := s.validateUpdateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	conv, err := s.convRepo.GetConversation(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		conv.Title = strings.TrimSpace(*req.Title)
	}
	if req.SystemPrompt.Present {
		conv.SystemPrompt = req.SystemPrompt.Value
	}
	if req.DefaultModel.Present {
		conv.DefaultModel = req.DefaultModel.Value
	}
	conv.UpdatedAt = time.Now()

	if err := s.convRepo.UpdateConversation(ctx, conv); err != nil {
		return nil, err
	}

	s.logger.Info("conversation updated", "id", conv.ID, "user_id", userID)

	return conv, nil
}

// DeleteConversation deletes a conversation; the store cascades to all
// messages and attachments under it.
func (s *ConversationService) DeleteConversation(ctx context.Context, conversationID int64, userID string) (*chatModels.Conversation, error) {
	conv, err := s.convRepo.DeleteConversation(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("conversation deleted", "id", conversationID, "user_id", userID)

	return conv, nil
}

func (s *ConversationService) validateCreateRequest(req *chatSvc.CreateConversationRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Title, validation.Length(0, config.MaxConversationTitleLength)),
		validation.Field(&req.SystemPrompt, validation.By(optionalLength(config.MaxSystemPromptLength))),
	)
}

func (s *ConversationService) validateUpdateRequest(req *chatSvc.UpdateConversationRequest) error {
	if req.Title != nil && len(*req.Title) > config.MaxConversationTitleLength {
		return fmt.Errorf("title must be at most %d characters", config.MaxConversationTitleLength)
	}
	if req.SystemPrompt.Present {
		if err := optionalLength(config.MaxSystemPromptLength)(req.SystemPrompt.Value); err != nil {
			return err
		}
	}
	return nil
}

// optionalLength validates the length of a nullable string field.
func optionalLength(max int) validation.RuleFunc {
	return func(value interface{}) error {
		s, ok := value.(*string)
		if !ok || s == nil {
			return nil
		}
		if len(*s) > max {
			return fmt.Errorf("must be at most %d characters", max)
		}
		return nil
	}
}
