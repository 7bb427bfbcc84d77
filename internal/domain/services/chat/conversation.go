// Package chat defines the service contracts of the conversation
// domain: session CRUD, message-tree reads, and streaming submission.
package chat

import (
	"context"

	"arbor/internal/domain/models/chat"
)

// ConversationService defines the business logic for conversation
// session management (CRUD). For message-tree reads see MessageService;
// for submitting turns see StreamingService.
type ConversationService interface {
	// CreateConversation creates a new conversation for a user. An empty
	// title is allowed; it is derived from the first submitted message.
	CreateConversation(ctx context.Context, req *CreateConversationRequest) (*chat.Conversation, error)

	// GetConversation retrieves a conversation by ID (owner-scoped)
	GetConversation(ctx context.Context, conversationID int64, userID string) (*chat.Conversation, error)

	// ListConversations retrieves all of a user's conversations,
	// most recently updated first
	ListConversations(ctx context.Context, userID string) ([]chat.Conversation, error)

	// UpdateConversation applies a partial update (title, system prompt,
	// default model). Absent fields are untouched; null fields clear
	UpdateConversation(ctx context.Context, conversationID int64, userID string, req *UpdateConversationRequest) (*chat.Conversation, error)

	// DeleteConversation deletes a conversation; the store cascades to
	// every message and attachment under it
	DeleteConversation(ctx context.Context, conversationID int64, userID string) (*chat.Conversation, error)
}

// CreateConversationRequest is the DTO for creating a conversation
type CreateConversationRequest struct {
	UserID       string  `json:"-"` // set by handler from auth context
	Title        string  `json:"title"`
	SystemPrompt *string `json:"system_prompt,omitempty"`
	DefaultModel *string `json:"default_model,omitempty"`
}

// OptionalText tracks tri-state PATCH semantics (RFC 7396) without
// binding the domain layer to a transport encoding. The handler maps
// from httputil.OptionalString.
//   - Present=false: field absent (don't change)
//   - Present=true, Value=nil: field is null (clear)
//   - Present=true, Value=&"text": field has value
type OptionalText struct {
	Present bool
	Value   *string
}

// UpdateConversationRequest is the DTO for a partial conversation
// update. Transport-agnostic (no JSON tags); the handler maps fields.
type UpdateConversationRequest struct {
	Title        *string
	SystemPrompt OptionalText
	DefaultModel OptionalText
}
