package chat

import (
	"context"

	"arbor/internal/domain/models/chat"
)

// StreamingService defines the submission surface of the message tree:
// every operation persists a user message, opens one streaming model
// completion, and defers the assistant row until the stream succeeds.
// The response carries a stream id; clients follow it over SSE.
type StreamingService interface {
	// Submit persists a new user turn attached at the given parent and
	// starts the assistant response stream. A ThreadRootID submits into
	// the thread rooted at that assistant message instead of the main
	// tree
	Submit(ctx context.Context, req *SubmitRequest) (*SubmitResponse, error)

	// Edit creates a new sibling of an existing user message carrying
	// the edited content (the original row is never mutated), then
	// streams a fresh assistant child under it
	Edit(ctx context.Context, messageID int64, userID string, req *EditRequest) (*SubmitResponse, error)

	// Regenerate re-submits an assistant message's parent user turn
	// (identical content and stored attachments) as a new user-message
	// sibling under the grandparent, then streams a new assistant child.
	// It never creates an assistant-only sibling
	Regenerate(ctx context.Context, messageID int64, userID string) (*SubmitResponse, error)
}

// SubmitRequest is the DTO for submitting a user turn.
type SubmitRequest struct {
	ConversationID  int64              `json:"-"` // from the URL path
	UserID          string             `json:"-"` // from auth context
	Content         string             `json:"content"`
	ParentMessageID *int64             `json:"parent_message_id,omitempty"`
	Model           *string            `json:"model,omitempty"`
	Files           []chat.MessageFile `json:"files,omitempty"`
	ThreadRootID    *int64             `json:"thread_root_id,omitempty"`
}

// EditRequest is the DTO for editing a user message.
type EditRequest struct {
	Content string             `json:"content"`
	Model   *string            `json:"model,omitempty"`
	Files   []chat.MessageFile `json:"files,omitempty"`
}

// SubmitResponse is returned by every submission operation. BranchIndex
// is the position the new user message occupies in its sibling group,
// so the client can select the new branch without refetching.
type SubmitResponse struct {
	UserMessage *chat.Message `json:"user_message"`
	BranchIndex int           `json:"branch_index"`
	StreamID    string        `json:"stream_id"`
	StreamURL   string        `json:"stream_url"`
}
