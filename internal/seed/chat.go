package seed

import (
	"context"
	"fmt"
	"log/slog"

	loremgen "github.com/bozaro/golorem"

	chatModels "arbor/internal/domain/models/chat"
	chatRepo "arbor/internal/domain/repositories/chat"
)

// ChatSeeder populates a demo conversation exercising the full message
// forest: sibling branches from an edit, a regeneration, and a side
// thread hanging off a main-tree assistant message.
type ChatSeeder struct {
	conversations chatRepo.ConversationRepository
	messages      chatRepo.MessageRepository
	lorem         *loremgen.Lorem
	logger        *slog.Logger
}

// NewChatSeeder creates a seeder backed by the given repositories.
func NewChatSeeder(conversations chatRepo.ConversationRepository, messages chatRepo.MessageRepository, logger *slog.Logger) *ChatSeeder {
	return &ChatSeeder{
		conversations: conversations,
		messages:      messages,
		lorem:         loremgen.New(),
		logger:        logger,
	}
}

const seedModel = "lorem-fast"

// SeedDemoConversation creates one conversation for userID with this shape:
//
//	U1 "Help me plan a three-day trip to Kyoto"
//	 └─ A1 (regenerated: A1' is a sibling under U1)
//	     ├─ [thread] TU1 ─ TA1          side thread rooted at A1
//	     └─ U2 follow-up
//	          └─ A2
//	U1' edited sibling of U1 (own root branch)
//	 └─ A1e
//
// A1 also carries an unsent thread draft.
func (s *ChatSeeder) SeedDemoConversation(ctx context.Context, userID string) (*chatModels.Conversation, error) {
	conv := &chatModels.Conversation{
		UserID: userID,
		Title:  "Three days in Kyoto",
	}
	if err := s.conversations.CreateConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	u1, err := s.userMessage(ctx, conv.ID, nil, false,
		"Help me plan a three-day trip to Kyoto. I like temples, food markets and walking.")
	if err != nil {
		return nil, err
	}

	a1, err := s.assistantReply(ctx, conv.ID, &u1.ID, false)
	if err != nil {
		return nil, err
	}

	// Regeneration: a second assistant answer under the same user message.
	if _, err := s.assistantReply(ctx, conv.ID, &u1.ID, false); err != nil {
		return nil, err
	}

	// Side thread rooted at A1.
	tu1, err := s.userMessage(ctx, conv.ID, &a1.ID, true,
		"Quick aside: is the Philosopher's Path walkable in an afternoon?")
	if err != nil {
		return nil, err
	}
	if _, err := s.assistantReply(ctx, conv.ID, &tu1.ID, true); err != nil {
		return nil, err
	}

	// Unsent thread draft on the thread root.
	draft := "Also, what about renting bikes for"
	if err := s.messages.UpdateThreadDraft(ctx, a1.ID, &draft); err != nil {
		return nil, fmt.Errorf("set thread draft: %w", err)
	}

	// Main-tree follow-up under A1.
	u2, err := s.userMessage(ctx, conv.ID, &a1.ID, false,
		"Great. Can you swap day two for a day trip to Nara?")
	if err != nil {
		return nil, err
	}
	if _, err := s.assistantReply(ctx, conv.ID, &u2.ID, false); err != nil {
		return nil, err
	}

	// Edited first message: a root-level sibling of U1 with its own reply.
	u1Edit, err := s.userMessage(ctx, conv.ID, nil, false,
		"Help me plan a three-day trip to Kyoto in late November, built around autumn foliage.")
	if err != nil {
		return nil, err
	}
	if _, err := s.assistantReply(ctx, conv.ID, &u1Edit.ID, false); err != nil {
		return nil, err
	}

	s.logger.Info("seeded demo conversation",
		"conversation_id", conv.ID,
		"user_id", userID)
	return conv, nil
}

func (s *ChatSeeder) userMessage(ctx context.Context, conversationID int64, parentID *int64, inThread bool, content string) (*chatModels.Message, error) {
	msg := &chatModels.Message{
		ConversationID:  conversationID,
		ParentMessageID: parentID,
		Role:            chatModels.RoleUser,
		Content:         content,
		IsThreadMessage: inThread,
	}
	if err := s.messages.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("create user message: %w", err)
	}
	return msg, nil
}

func (s *ChatSeeder) assistantReply(ctx context.Context, conversationID int64, parentID *int64, inThread bool) (*chatModels.Message, error) {
	model := seedModel
	msg := &chatModels.Message{
		ConversationID:  conversationID,
		ParentMessageID: parentID,
		Role:            chatModels.RoleAssistant,
		Content:         s.fillerText(),
		Model:           &model,
		IsThreadMessage: inThread,
	}
	if err := s.messages.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("create assistant message: %w", err)
	}
	return msg, nil
}

func (s *ChatSeeder) fillerText() string {
	text := ""
	for i := 0; i < 3; i++ {
		if i > 0 {
			text += "\n\n"
		}
		for j := 0; j < 4; j++ {
			if j > 0 {
				text += " "
			}
			text += s.lorem.Sentence(6, 14)
		}
	}
	return text
}
