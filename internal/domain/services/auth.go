package services

import "context"

// ResourceAuthorizer checks if a user can access resources.
// Current implementation: ownership-based (user owns the conversation).
// Future: roles, permissions, sharing, etc.
//
// Design principle: Services call the authorizer before operating on
// resources. This separates authorization (who can access) from
// identification (which resource).
type ResourceAuthorizer interface {
	// CanAccessConversation checks if user owns a conversation
	CanAccessConversation(ctx context.Context, userID string, conversationID int64) error

	// CanAccessMessage checks if user can access a message (via its
	// owning conversation)
	CanAccessMessage(ctx context.Context, userID string, messageID int64) error
}
