package chat

import (
	"context"

	"arbor/internal/domain/models/chat"
)

// MessageRepository defines the interface for message-tree data access.
// The store is append-only: rows are created and deleted (with cascade),
// never mutated, except for the thread-draft column which is a cached
// UI convenience rather than conversation content.
type MessageRepository interface {
	// CreateMessage persists a new message row and fills in its
	// generated id and created_at. The parent, when set, must belong to
	// the same conversation. Returns domain.ErrNotFound (wrapped) when
	// the conversation or parent row is missing
	CreateMessage(ctx context.Context, msg *chat.Message) error

	// GetMessage retrieves one message by id
	// Returns domain.ErrNotFound if not found
	GetMessage(ctx context.Context, messageID int64) (*chat.Message, error)

	// ListMessages retrieves the full flat message list of a
	// conversation ordered by (created_at, id). Returns empty slice for
	// an empty conversation
	ListMessages(ctx context.Context, conversationID int64) ([]chat.Message, error)

	// DeleteMessage hard-deletes a message; the self-referencing
	// cascade removes all descendants and their files
	// Returns domain.ErrNotFound if not found
	DeleteMessage(ctx context.Context, messageID int64) error

	// UpdateThreadDraft sets or clears (nil) the cached thread draft on
	// a thread-root message. Returns domain.ErrNotFound if not found
	UpdateThreadDraft(ctx context.Context, messageID int64, draft *string) error
}

// MessageFileRepository defines the interface for attachment data access
type MessageFileRepository interface {
	// CreateMessageFiles persists attachment rows for a message,
	// filling in generated ids
	CreateMessageFiles(ctx context.Context, files []chat.MessageFile) error

	// GetFilesForMessages batch-loads the attachments of many messages
	// in one query, keyed by message id. Messages without attachments
	// are absent from the map
	GetFilesForMessages(ctx context.Context, messageIDs []int64) (map[int64][]chat.MessageFile, error)
}
