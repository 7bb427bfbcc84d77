package chat

import (
	"strconv"
	"time"
)

// Role values for messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// RootKey is the sentinel parent key for messages attached at the
// conversation root (parent_message_id IS NULL). Branch-selection maps
// and forest indexes use it so root-level siblings are addressable like
// any other sibling group.
const RootKey = "root"

// Message is one node in a conversation's append-only message forest.
// Messages link to their parent via ParentMessageID; edits and
// regenerations create new siblings instead of mutating rows, so the
// structure is acyclic by construction. IDs are assigned in creation
// order and serve as the tiebreaker when two siblings share a
// created_at timestamp.
type Message struct {
	ID              int64     `json:"id" db:"id"`
	ConversationID  int64     `json:"conversation_id" db:"conversation_id"`
	ParentMessageID *int64    `json:"parent_message_id,omitempty" db:"parent_message_id"`
	Role            string    `json:"role" db:"role"`
	Content         string    `json:"content" db:"content"`
	Model           *string   `json:"model,omitempty" db:"model"` // set on assistant messages only
	IsThreadMessage bool      `json:"is_thread_message" db:"is_thread_message"`
	ThreadDraft     *string   `json:"thread_draft,omitempty" db:"thread_draft"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`

	// Computed fields (not stored in the messages table)
	Files []MessageFile `json:"files,omitempty"`
}

// ParentKey normalizes a nullable parent id into the string key used by
// branch-selection maps and forest indexes.
func ParentKey(parentID *int64) string {
	if parentID == nil {
		return RootKey
	}
	return strconv.FormatInt(*parentID, 10)
}

// Key returns the message's own id as a parent key, for looking up the
// sibling group of its children.
func (m *Message) Key() string {
	return strconv.FormatInt(m.ID, 10)
}

// BranchSelections maps a normalized parent key to the chosen child
// index within that parent's sibling group. The state is ephemeral and
// client-held; missing entries default to 0 (oldest child) and
// out-of-range entries are clamped, never rejected.
type BranchSelections map[string]int
