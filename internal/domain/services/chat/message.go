package chat

import (
	"context"

	"arbor/internal/domain/models/chat"
)

// MessageService defines the read-and-navigate surface of the message
// tree: the flat list, derived paths, sibling groups, thread drafts,
// and cascading deletion. All operations are owner-scoped.
type MessageService interface {
	// ListMessages retrieves a conversation's full flat message list in
	// (created_at, id) order with attachments filled in. The client
	// derives its tree views from this snapshot
	ListMessages(ctx context.Context, conversationID int64, userID string) ([]chat.Message, error)

	// ResolvePath derives the linear path currently visible under the
	// given branch selections: the main active path, or a thread's path
	// when ThreadRootID is set
	ResolvePath(ctx context.Context, conversationID int64, userID string, req *PathRequest) ([]chat.Message, error)

	// GetSiblings returns a message's ordered sibling group and its
	// zero-based position within it, for branch prev/next navigation
	GetSiblings(ctx context.Context, messageID int64, userID string) (*SiblingsResponse, error)

	// DeleteMessage deletes a message and, via cascade, its entire
	// subtree including any threads rooted inside it
	DeleteMessage(ctx context.Context, messageID int64, userID string) error

	// UpdateThreadDraft saves (or clears, with nil) the unsent draft
	// cached on a thread-root message
	UpdateThreadDraft(ctx context.Context, messageID int64, userID string, draft *string) error
}

// PathRequest selects which derived path to resolve.
type PathRequest struct {
	// BranchSelections is the client's ephemeral branch state; missing
	// entries default to the oldest child, out-of-range entries clamp.
	BranchSelections chat.BranchSelections `json:"branch_selections,omitempty"`

	// ThreadRootID switches to thread-path resolution rooted at this
	// assistant message.
	ThreadRootID *int64 `json:"thread_root_id,omitempty"`
}

// SiblingsResponse carries a sibling group and the queried message's
// position in it.
type SiblingsResponse struct {
	Siblings []chat.Message `json:"siblings"`
	Index    int            `json:"index"`
}
