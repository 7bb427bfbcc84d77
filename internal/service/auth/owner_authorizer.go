package auth

import (
	"context"
	"errors"
	"fmt"

	"arbor/internal/domain"
	chatRepo "arbor/internal/domain/repositories/chat"
	"arbor/internal/domain/services"
)

// OwnerBasedAuthorizer implements ResourceAuthorizer using ownership
// checks: a user can access a resource if they own the conversation
// that contains it.
//
// This is the simplest authorization model. For future extensibility:
// - RoleBasedAuthorizer: check user's role on the conversation
// - SharingAuthorizer: check if the conversation is shared with user
type OwnerBasedAuthorizer struct {
	convRepo chatRepo.ConversationRepository
	msgRepo  chatRepo.MessageRepository
}

// NewOwnerBasedAuthorizer creates a new ownership-based authorizer.
func NewOwnerBasedAuthorizer(
	convRepo chatRepo.ConversationRepository,
	msgRepo chatRepo.MessageRepository,
) services.ResourceAuthorizer {
	return &OwnerBasedAuthorizer{
		convRepo: convRepo,
		msgRepo:  msgRepo,
	}
}

// CanAccessConversation checks if user owns the conversation.
func (a *OwnerBasedAuthorizer) CanAccessConversation(ctx context.Context, userID string, conversationID int64) error {
	conv, err := a.convRepo.GetConversationByIDOnly(ctx, conversationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("check conversation access: %w", err)
	}

	if conv.UserID != userID {
		return fmt.Errorf("access denied to conversation %d: %w", conversationID, domain.ErrForbidden)
	}
	return nil
}

// CanAccessMessage checks if user can access a message (via its
// owning conversation).
func (a *OwnerBasedAuthorizer) CanAccessMessage(ctx context.Context, userID string, messageID int64) error {
	msg, err := a.msgRepo.GetMessage(ctx, messageID)
	if err != nil {
		return err
	}
	return a.CanAccessConversation(ctx, userID, msg.ConversationID)
}
