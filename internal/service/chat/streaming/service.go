package streaming

import (
	"context"
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"arbor/internal/catalog"
	"arbor/internal/config"
	"arbor/internal/domain"
	"arbor/internal/domain/models/chat"
	"arbor/internal/domain/repositories"
	chatRepo "arbor/internal/domain/repositories/chat"
	attachSvc "arbor/internal/domain/services/attach"
	chatSvc "arbor/internal/domain/services/chat"
	llmsvc "arbor/internal/domain/services/llm"
	"arbor/internal/service/chat/conversation"
	"arbor/internal/service/chat/tree"
)

// ProviderResolver resolves the provider serving a model.
type ProviderResolver interface {
	GetProviderForModel(model string) (llmsvc.LLMProvider, string, error)
}

// Service implements the streaming submission surface: every
// operation persists a user turn, registers a stream executor, and
// defers the assistant row to the executor's successful completion.
type Service struct {
	convRepo  chatRepo.ConversationRepository
	msgRepo   chatRepo.MessageRepository
	fileRepo  chatRepo.MessageFileRepository
	prefsRepo repositories.UserPreferencesRepository
	txManager repositories.TransactionManager

	attachments attachSvc.AttachmentService
	assembler   *conversation.Assembler
	providers   ProviderResolver
	catalog     *catalog.Registry
	registry    *Registry
	config      *config.Config
	logger      *slog.Logger
}

// NewService creates a new streaming service.
func NewService(
	convRepo chatRepo.ConversationRepository,
	msgRepo chatRepo.MessageRepository,
	fileRepo chatRepo.MessageFileRepository,
	prefsRepo repositories.UserPreferencesRepository,
	txManager repositories.TransactionManager,
	attachments attachSvc.AttachmentService,
	assembler *conversation.Assembler,
	providers ProviderResolver,
	modelCatalog *catalog.Registry,
	registry *Registry,
	cfg *config.Config,
	logger *slog.Logger,
) chatSvc.StreamingService {
	return &Service{
		convRepo:    convRepo,
		msgRepo:     msgRepo,
		fileRepo:    fileRepo,
		prefsRepo:   prefsRepo,
		txManager:   txManager,
		attachments: attachments,
		assembler:   assembler,
		providers:   providers,
		catalog:     modelCatalog,
		registry:    registry,
		config:      cfg,
		logger:      logger,
	}
}

// Submit persists a user turn and starts the assistant stream.
// The executor is registered before this returns, so the stream id in
// the response always resolves for SSE subscribers.
func (s *Service) Submit(ctx context.Context, req *chatSvc.SubmitRequest) (*chatSvc.SubmitResponse, error) {
	if err := s.validateSubmit(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	// Owner-scoped fetch doubles as the authorization check
	conv, err := s.convRepo.GetConversation(ctx, req.ConversationID, req.UserID)
	if err != nil {
		return nil, err
	}

	files, err := s.attachments.Prepare(ctx, req.Files)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.msgRepo.ListMessages(ctx, req.ConversationID)
	if err != nil {
		return nil, err
	}

	parentID := req.ParentMessageID
	isThread := req.ThreadRootID != nil
	if isThread {
		// A thread without an explicit parent attaches at its root
		if parentID == nil {
			parentID = req.ThreadRootID
		}
		if err := validateThreadTarget(snapshot, *req.ThreadRootID, parentID); err != nil {
			return nil, err
		}
	} else if parentID != nil {
		if _, ok := findMessage(snapshot, *parentID); !ok {
			return nil, fmt.Errorf("%w: parent message %d not in conversation", domain.ErrNotFound, *parentID)
		}
	}

	model, err := s.resolveModel(ctx, req.Model, conv)
	if err != nil {
		return nil, err
	}

	branchIndex := tree.BranchIndexForNew(snapshot, parentID, isThread)

	userMsg := &chat.Message{
		ConversationID:  req.ConversationID,
		ParentMessageID: parentID,
		Role:            chat.RoleUser,
		Content:         req.Content,
		IsThreadMessage: isThread,
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.msgRepo.CreateMessage(txCtx, userMsg); err != nil {
			return err
		}
		if len(files) > 0 {
			for i := range files {
				files[i].MessageID = userMsg.ID
			}
			if err := s.fileRepo.CreateMessageFiles(txCtx, files); err != nil {
				return err
			}
		}
		if conv.Title == "" {
			if title := conversation.DeriveTitle(req.Content); title != "" {
				conv.Title = title
				return s.convRepo.UpdateConversation(txCtx, conv)
			}
		}
		return s.convRepo.TouchConversation(txCtx, conv.ID)
	})
	if err != nil {
		return nil, err
	}
	userMsg.Files = files

	s.logger.Info("user message created",
		"id", userMsg.ID,
		"conversation_id", req.ConversationID,
		"parent_message_id", parentID,
		"thread", isThread,
		"files", len(files),
		"branch_index", branchIndex,
	)

	provider, _, err := s.providers.GetProviderForModel(model)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve provider for model %q: %w", model, err)
	}

	// The executor is created and registered synchronously so a client
	// can open the SSE stream the moment it has our response.
	streamID := uuid.NewString()
	pending := chat.Message{
		ConversationID:  req.ConversationID,
		ParentMessageID: &userMsg.ID,
		Role:            chat.RoleAssistant,
		Model:           &model,
		IsThreadMessage: isThread,
	}
	executor := NewStreamExecutor(context.Background(), streamID, pending, provider, s.msgRepo, s.convRepo, s.logger)
	if !s.registry.Register(executor) {
		return nil, &domain.ConflictError{
			Message:      fmt.Sprintf("stream %s already registered", streamID),
			ResourceType: "stream",
			ResourceID:   streamID,
		}
	}

	s.logger.Info("stream registered, starting background streaming",
		"stream_id", streamID,
		"user_message_id", userMsg.ID,
		"model", model,
	)

	// Detached from the HTTP request: a client disconnect must not
	// abort the in-flight model call.
	go s.startStreamingExecution(context.Background(), conv, userMsg, files, req.ThreadRootID, executor, model)

	return &chatSvc.SubmitResponse{
		UserMessage: userMsg,
		BranchIndex: branchIndex,
		StreamID:    streamID,
		StreamURL:   fmt.Sprintf("/api/streams/%s", streamID),
	}, nil
}

// Edit resubmits edited content as a new sibling of the edited user
// message: same parent, same thread flag, fresh assistant stream.
func (s *Service) Edit(ctx context.Context, messageID int64, userID string, req *chatSvc.EditRequest) (*chatSvc.SubmitResponse, error) {
	msg, err := s.msgRepo.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if _, err := s.convRepo.GetConversation(ctx, msg.ConversationID, userID); err != nil {
		return nil, err
	}
	if msg.Role != chat.RoleUser {
		return nil, fmt.Errorf("%w: only user messages can be edited", domain.ErrValidation)
	}

	var threadRootID *int64
	if msg.IsThreadMessage {
		rootID, err := s.resolveThreadRoot(ctx, msg)
		if err != nil {
			return nil, err
		}
		threadRootID = &rootID
	}

	return s.Submit(ctx, &chatSvc.SubmitRequest{
		ConversationID:  msg.ConversationID,
		UserID:          userID,
		Content:         req.Content,
		ParentMessageID: msg.ParentMessageID,
		Model:           req.Model,
		Files:           req.Files,
		ThreadRootID:    threadRootID,
	})
}

// Regenerate resubmits an assistant message's parent user turn as a
// new user sibling under the grandparent and streams a fresh response.
// An assistant-only sibling is never created.
func (s *Service) Regenerate(ctx context.Context, messageID int64, userID string) (*chatSvc.SubmitResponse, error) {
	msg, err := s.msgRepo.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if _, err := s.convRepo.GetConversation(ctx, msg.ConversationID, userID); err != nil {
		return nil, err
	}
	if msg.Role != chat.RoleAssistant {
		return nil, fmt.Errorf("%w: only assistant messages can be regenerated", domain.ErrValidation)
	}
	if msg.ParentMessageID == nil {
		return nil, fmt.Errorf("%w: assistant message has no parent user turn to resubmit", domain.ErrValidation)
	}

	parent, err := s.msgRepo.GetMessage(ctx, *msg.ParentMessageID)
	if err != nil {
		return nil, err
	}
	if parent.Role != chat.RoleUser {
		return nil, fmt.Errorf("%w: parent of regenerated message is not a user turn", domain.ErrValidation)
	}

	// Copy the stored attachments onto the resubmitted turn as fresh rows
	filesByMsg, err := s.fileRepo.GetFilesForMessages(ctx, []int64{parent.ID})
	if err != nil {
		return nil, err
	}
	var files []chat.MessageFile
	for _, f := range filesByMsg[parent.ID] {
		files = append(files, chat.MessageFile{
			FileName:      f.FileName,
			MimeType:      f.MimeType,
			SizeBytes:     f.SizeBytes,
			Data:          f.Data,
			ExtractedText: f.ExtractedText,
		})
	}

	var threadRootID *int64
	if msg.IsThreadMessage {
		rootID, err := s.resolveThreadRoot(ctx, msg)
		if err != nil {
			return nil, err
		}
		threadRootID = &rootID
	}

	return s.Submit(ctx, &chatSvc.SubmitRequest{
		ConversationID:  msg.ConversationID,
		UserID:          userID,
		Content:         parent.Content,
		ParentMessageID: parent.ParentMessageID,
		Model:           msg.Model,
		Files:           files,
		ThreadRootID:    threadRootID,
	})
}

// startStreamingExecution prepares the provider request in the
// background and hands it to the already-registered executor. Any
// failure here fails the stream; nothing further is persisted.
func (s *Service) startStreamingExecution(
	ctx context.Context,
	conv *chat.Conversation,
	userMsg *chat.Message,
	files []chat.MessageFile,
	threadRootID *int64,
	executor *StreamExecutor,
	model string,
) {
	// Fresh snapshot: the submitted turn is committed by now
	snapshot, err := s.msgRepo.ListMessages(ctx, conv.ID)
	if err != nil {
		executor.Fail(fmt.Errorf("failed to load conversation history: %w", err))
		return
	}

	// Ancestor turns rebuild their attachments from storage. The target
	// turn uses the live payload, so its id is excluded.
	historyIDs := make([]int64, 0, len(snapshot))
	for _, m := range snapshot {
		if m.ID != userMsg.ID {
			historyIDs = append(historyIDs, m.ID)
		}
	}
	filesByMessage := map[int64][]chat.MessageFile{}
	if len(historyIDs) > 0 {
		filesByMessage, err = s.fileRepo.GetFilesForMessages(ctx, historyIDs)
		if err != nil {
			executor.Fail(fmt.Errorf("failed to load message attachments: %w", err))
			return
		}
	}

	messages, err := s.assembler.Assemble(ctx, snapshot, filesByMessage, conversation.Request{
		TargetID:     userMsg.ID,
		ThreadRootID: threadRootID,
		LiveContent:  userMsg.Content,
		LiveFiles:    files,
	})
	if err != nil {
		executor.Fail(fmt.Errorf("failed to assemble conversation: %w", err))
		return
	}

	params := &llmsvc.RequestParams{
		System: s.resolveSystemPrompt(ctx, conv),
	}
	if info, err := s.catalog.GetModel(model); err == nil {
		maxTokens := info.MaxOutput
		params.MaxTokens = &maxTokens
	}

	executor.Start(&llmsvc.GenerateRequest{
		Messages: messages,
		Model:    model,
		Params:   params,
	})

	s.logger.Info("streaming execution started",
		"stream_id", executor.StreamID(),
		"model", model,
		"history_turns", len(messages),
	)
}

// resolveModel picks the streaming model: request > conversation
// default > user preference > server default, and checks the result
// against the catalog.
func (s *Service) resolveModel(ctx context.Context, requested *string, conv *chat.Conversation) (string, error) {
	model := s.config.DefaultModel

	if prefs, err := s.prefsRepo.GetByUserID(ctx, conv.UserID); err == nil && prefs != nil {
		if mp, err := prefs.GetModels(); err == nil && mp != nil && mp.Default != nil && *mp.Default != "" {
			model = *mp.Default
		}
	}
	if conv.DefaultModel != nil && *conv.DefaultModel != "" {
		model = *conv.DefaultModel
	}
	if requested != nil && *requested != "" {
		model = *requested
	}

	if !s.catalog.HasModel(model) {
		return "", fmt.Errorf("%w: unknown model %q", domain.ErrValidation, model)
	}
	return model, nil
}

// resolveSystemPrompt prefers the conversation's system prompt, then
// the user's saved system instructions. nil means none.
func (s *Service) resolveSystemPrompt(ctx context.Context, conv *chat.Conversation) *string {
	if conv.SystemPrompt != nil && *conv.SystemPrompt != "" {
		return conv.SystemPrompt
	}
	prefs, err := s.prefsRepo.GetByUserID(ctx, conv.UserID)
	if err != nil || prefs == nil {
		return nil
	}
	return prefs.GetSystemInstructions()
}

// resolveThreadRoot walks parent links up from a thread message to the
// non-thread assistant message the thread is rooted at.
func (s *Service) resolveThreadRoot(ctx context.Context, msg *chat.Message) (int64, error) {
	snapshot, err := s.msgRepo.ListMessages(ctx, msg.ConversationID)
	if err != nil {
		return 0, err
	}
	byID := make(map[int64]chat.Message, len(snapshot))
	for _, m := range snapshot {
		byID[m.ID] = m
	}

	current := *msg
	for range snapshot {
		if current.ParentMessageID == nil {
			break
		}
		parent, ok := byID[*current.ParentMessageID]
		if !ok {
			break
		}
		if !parent.IsThreadMessage {
			return parent.ID, nil
		}
		current = parent
	}
	return 0, fmt.Errorf("%w: thread root not found for message %d", domain.ErrNotFound, msg.ID)
}

func (s *Service) validateSubmit(req *chatSvc.SubmitRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Content,
			validation.Required.When(len(req.Files) == 0).Error("content or files required"),
			validation.Length(0, config.MaxMessageContentLength),
		),
		validation.Field(&req.Files,
			validation.Length(0, config.MaxAttachmentsPerMessage),
		),
	)
}

// validateThreadTarget checks that a thread submission is rooted at a
// non-thread assistant message and attaches inside that thread.
func validateThreadTarget(snapshot []chat.Message, rootID int64, parentID *int64) error {
	root, ok := findMessage(snapshot, rootID)
	if !ok {
		return fmt.Errorf("%w: thread root %d not in conversation", domain.ErrNotFound, rootID)
	}
	if root.Role != chat.RoleAssistant || root.IsThreadMessage {
		return fmt.Errorf("%w: thread root must be a main-tree assistant message", domain.ErrValidation)
	}
	if parentID != nil && *parentID != rootID {
		parent, ok := findMessage(snapshot, *parentID)
		if !ok {
			return fmt.Errorf("%w: parent message %d not in conversation", domain.ErrNotFound, *parentID)
		}
		if !parent.IsThreadMessage {
			return fmt.Errorf("%w: thread parent must belong to the thread", domain.ErrValidation)
		}
	}
	return nil
}

func findMessage(snapshot []chat.Message, id int64) (chat.Message, bool) {
	for _, m := range snapshot {
		if m.ID == id {
			return m, true
		}
	}
	return chat.Message{}, false
}
