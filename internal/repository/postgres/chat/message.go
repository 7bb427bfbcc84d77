package chat

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"arbor/internal/domain"
	chatModels "arbor/internal/domain/models/chat"
	chatRepo "arbor/internal/domain/repositories/chat"
	"arbor/internal/repository/postgres"
)

// PostgresMessageRepository implements MessageRepository using PostgreSQL
type PostgresMessageRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewMessageRepository creates a new PostgresMessageRepository
func NewMessageRepository(config *postgres.RepositoryConfig) chatRepo.MessageRepository {
	return &PostgresMessageRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// CreateMessage persists a new message row. Parents are validated to
// exist within the same conversation before the insert so a stale
// client cannot graft a branch onto another conversation's tree.
func (r *PostgresMessageRepository) CreateMessage(ctx context.Context, msg *chatModels.Message) error {
	if msg.ParentMessageID != nil {
		exists, err := r.messageInConversation(ctx, *msg.ParentMessageID, msg.ConversationID)
		if err != nil {
			return fmt.Errorf("validate parent message: %w", err)
		}
		if !exists {
			return fmt.Errorf("parent message %d: %w", *msg.ParentMessageID, domain.ErrNotFound)
		}
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (
			conversation_id, parent_message_id, role, content, model,
			is_thread_message, thread_draft, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id, created_at
	`, r.tables.Messages)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		msg.ConversationID,
		msg.ParentMessageID,
		msg.Role,
		msg.Content,
		msg.Model,
		msg.IsThreadMessage,
		msg.ThreadDraft,
	).Scan(&msg.ID, &msg.CreatedAt)

	if err != nil {
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("conversation %d: %w", msg.ConversationID, domain.ErrNotFound)
		}
		if postgres.IsPgCheckViolation(err) {
			return fmt.Errorf("invalid message role %q: %w", msg.Role, domain.ErrValidation)
		}
		return fmt.Errorf("create message: %w", err)
	}

	return nil
}

// messageInConversation checks that a message exists inside the given
// conversation.
func (r *PostgresMessageRepository) messageInConversation(ctx context.Context, messageID, conversationID int64) (bool, error) {
	query := fmt.Sprintf(`
		SELECT EXISTS(SELECT 1 FROM %s WHERE id = $1 AND conversation_id = $2)
	`, r.tables.Messages)

	var exists bool
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, messageID, conversationID).Scan(&exists)
	if err != nil {
		return false, err
	}

	return exists, nil
}

// scanner defines the interface for row scanning (implemented by both
// pgx.Row and pgx.Rows)
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanMessageRow scans a database row into a Message struct
func (r *PostgresMessageRepository) scanMessageRow(row scanner) (*chatModels.Message, error) {
	var msg chatModels.Message
	err := row.Scan(
		&msg.ID,
		&msg.ConversationID,
		&msg.ParentMessageID,
		&msg.Role,
		&msg.Content,
		&msg.Model,
		&msg.IsThreadMessage,
		&msg.ThreadDraft,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

const messageColumns = `id, conversation_id, parent_message_id, role, content, model, is_thread_message, thread_draft, created_at`

// GetMessage retrieves one message by id
func (r *PostgresMessageRepository) GetMessage(ctx context.Context, messageID int64) (*chatModels.Message, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s WHERE id = $1
	`, messageColumns, r.tables.Messages)

	executor := postgres.GetExecutor(ctx, r.pool)
	msg, err := r.scanMessageRow(executor.QueryRow(ctx, query, messageID))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("message %d: %w", messageID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get message: %w", err)
	}

	return msg, nil
}

// ListMessages retrieves the conversation's full flat message list in
// (created_at, id) order, the same ordering the tree derivations use.
func (r *PostgresMessageRepository) ListMessages(ctx context.Context, conversationID int64) ([]chatModels.Message, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE conversation_id = $1
		ORDER BY created_at, id
	`, messageColumns, r.tables.Messages)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var messages []chatModels.Message
	for rows.Next() {
		msg, err := r.scanMessageRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, *msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	// Return empty slice instead of nil
	if messages == nil {
		messages = []chatModels.Message{}
	}

	return messages, nil
}

// DeleteMessage hard-deletes a message; the self-referencing foreign key
// cascades to every descendant and their attachment rows
func (r *PostgresMessageRepository) DeleteMessage(ctx context.Context, messageID int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Messages)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, messageID)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("message %d: %w", messageID, domain.ErrNotFound)
	}

	return nil
}

// UpdateThreadDraft sets or clears the cached thread draft on a message
func (r *PostgresMessageRepository) UpdateThreadDraft(ctx context.Context, messageID int64, draft *string) error {
	query := fmt.Sprintf(`UPDATE %s SET thread_draft = $1 WHERE id = $2`, r.tables.Messages)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, draft, messageID)
	if err != nil {
		return fmt.Errorf("update thread draft: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("message %d: %w", messageID, domain.ErrNotFound)
	}

	return nil
}
