package chat

import (
	"time"
)

// Conversation is a chat session owned by a single user. Its messages
// form a forest rooted at parent_message_id = NULL; deleting the
// conversation cascades to every message and attachment under it.
type Conversation struct {
	ID           int64     `json:"id" db:"id"`
	UserID       string    `json:"user_id" db:"user_id"`
	Title        string    `json:"title" db:"title"`
	SystemPrompt *string   `json:"system_prompt,omitempty" db:"system_prompt"`
	DefaultModel *string   `json:"default_model,omitempty" db:"default_model"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
