package chat

import (
	"context"
	"fmt"
	"log/slog"

	"arbor/internal/config"
	"arbor/internal/domain"
	chatModels "arbor/internal/domain/models/chat"
	chatRepo "arbor/internal/domain/repositories/chat"
	"arbor/internal/domain/services"
	chatSvc "arbor/internal/domain/services/chat"
	"arbor/internal/service/chat/tree"
)

// MessageService implements the read-and-navigate surface of the
// message tree: flat lists, derived paths, sibling groups, thread
// drafts and cascading deletes.
type MessageService struct {
	msgRepo    chatRepo.MessageRepository
	fileRepo   chatRepo.MessageFileRepository
	authorizer services.ResourceAuthorizer
	logger     *slog.Logger
}

// NewMessageService creates a new message service.
func NewMessageService(
	msgRepo chatRepo.MessageRepository,
	fileRepo chatRepo.MessageFileRepository,
	authorizer services.ResourceAuthorizer,
	logger *slog.Logger,
) chatSvc.MessageService {
	return &MessageService{
		msgRepo:    msgRepo,
		fileRepo:   fileRepo,
		authorizer: authorizer,
		logger:     logger,
	}
}

// ListMessages retrieves a conversation's full flat message list with
// attachments filled in. The client derives its tree views from this.
func (s *MessageService) ListMessages(ctx context.Context, conversationID int64, userID string) ([]chatModels.Message, error) {
	if err := s.authorizer.CanAccessConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	messages, err := s.msgRepo.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	return s.attachFiles(ctx, messages)
}

// ResolvePath derives the linear path visible under the given branch
// selections: main active path, or a thread path when ThreadRootID is
// set. Selections are client-held and ephemeral; stale indices clamp.
func (s *MessageService) ResolvePath(ctx context.Context, conversationID int64, userID string, req *chatSvc.PathRequest) ([]chatModels.Message, error) {
	if err := s.authorizer.CanAccessConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	messages, err := s.msgRepo.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	var path []chatModels.Message
	if req.ThreadRootID != nil {
		path = tree.ThreadPath(messages, *req.ThreadRootID, req.BranchSelections)
	} else {
		path = tree.ActivePath(messages, req.BranchSelections)
	}

	return s.attachFiles(ctx, path)
}

// GetSiblings returns a message's ordered sibling group and its
// position within it, for branch prev/next navigation.
func (s *MessageService) GetSiblings(ctx context.Context, messageID int64, userID string) (*chatSvc.SiblingsResponse, error) {
	if err := s.authorizer.CanAccessMessage(ctx, userID, messageID); err != nil {
		return nil, err
	}

	msg, err := s.msgRepo.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}

	messages, err := s.msgRepo.ListMessages(ctx, msg.ConversationID)
	if err != nil {
		return nil, err
	}

	siblings, index := tree.Siblings(messages, *msg)
	return &chatSvc.SiblingsResponse{Siblings: siblings, Index: index}, nil
}

// DeleteMessage deletes a message; the store cascades to its entire
// subtree including threads rooted inside it.
func (s *MessageService) DeleteMessage(ctx context.Context, messageID int64, userID string) error {
	if err := s.authorizer.CanAccessMessage(ctx, userID, messageID); err != nil {
		return err
	}

	if err := s.msgRepo.DeleteMessage(ctx, messageID); err != nil {
		return err
	}

	s.logger.Info("message deleted", "id", messageID, "user_id", userID)
	return nil
}

// UpdateThreadDraft saves (or clears, with nil) the unsent draft
// cached on a thread-root message.
func (s *MessageService) UpdateThreadDraft(ctx context.Context, messageID int64, userID string, draft *string) error {
	if err := s.authorizer.CanAccessMessage(ctx, userID, messageID); err != nil {
		return err
	}

	if draft != nil && len(*draft) > config.MaxThreadDraftLength {
		return fmt.Errorf("%w: thread draft must be at most %d characters", domain.ErrValidation, config.MaxThreadDraftLength)
	}

	msg, err := s.msgRepo.GetMessage(ctx, messageID)
	if err != nil {
		return err
	}
	// Drafts hang off thread roots: main-tree assistant messages
	if msg.Role != chatModels.RoleAssistant || msg.IsThreadMessage {
		return fmt.Errorf("%w: thread drafts can only be saved on a thread-root assistant message", domain.ErrValidation)
	}

	return s.msgRepo.UpdateThreadDraft(ctx, messageID, draft)
}

// attachFiles batch-loads attachments for a message slice in one query.
func (s *MessageService) attachFiles(ctx context.Context, messages []chatModels.Message) ([]chatModels.Message, error) {
	if len(messages) == 0 {
		return messages, nil
	}

	ids := make([]int64, len(messages))
	for i, m := range messages {
		ids[i] = m.ID
	}

	filesByMessage, err := s.fileRepo.GetFilesForMessages(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range messages {
		messages[i].Files = filesByMessage[messages[i].ID]
	}
	return messages, nil
}
