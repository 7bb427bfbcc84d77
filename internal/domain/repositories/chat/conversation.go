package chat

import (
	"context"

	"arbor/internal/domain/models/chat"
)

// ConversationRepository defines the interface for conversation data access
type ConversationRepository interface {
	// CreateConversation creates a new conversation
	CreateConversation(ctx context.Context, conv *chat.Conversation) error

	// GetConversation retrieves a conversation by ID (scoped to user)
	// Returns domain.ErrNotFound if not found
	GetConversation(ctx context.Context, conversationID int64, userID string) (*chat.Conversation, error)

	// GetConversationByIDOnly retrieves a conversation by ID without user
	// scoping. Used by the resource authorizer, which checks ownership
	// separately. Returns domain.ErrNotFound if not found
	GetConversationByIDOnly(ctx context.Context, conversationID int64) (*chat.Conversation, error)

	// ListConversations retrieves all conversations owned by a user,
	// most recently updated first. Returns empty slice if none found
	ListConversations(ctx context.Context, userID string) ([]chat.Conversation, error)

	// UpdateConversation updates a conversation's mutable fields
	// (title, system_prompt, default_model, updated_at)
	// Returns domain.ErrNotFound if not found
	UpdateConversation(ctx context.Context, conv *chat.Conversation) error

	// TouchConversation bumps updated_at, keeping recently active
	// conversations at the top of the list
	TouchConversation(ctx context.Context, conversationID int64) error

	// DeleteConversation hard-deletes a conversation; the database
	// cascades to its messages and their files
	// Returns domain.ErrNotFound if not found
	DeleteConversation(ctx context.Context, conversationID int64, userID string) (*chat.Conversation, error)
}
