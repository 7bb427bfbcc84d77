// Package chat contains the PostgreSQL implementations of the
// conversation, message, attachment, and preferences repositories.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"arbor/internal/domain"
	chatModels "arbor/internal/domain/models/chat"
	chatRepo "arbor/internal/domain/repositories/chat"
	"arbor/internal/repository/postgres"
)

// PostgresConversationRepository implements ConversationRepository using PostgreSQL
type PostgresConversationRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewConversationRepository creates a new PostgresConversationRepository
func NewConversationRepository(config *postgres.RepositoryConfig) chatRepo.ConversationRepository {
	return &PostgresConversationRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// CreateConversation creates a new conversation
func (r *PostgresConversationRepository) CreateConversation(ctx context.Context, conv *chatModels.Conversation) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, title, system_prompt, default_model, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`, r.tables.Conversations)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		conv.UserID,
		conv.Title,
		conv.SystemPrompt,
		conv.DefaultModel,
	).Scan(&conv.ID, &conv.CreatedAt, &conv.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}

	return nil
}

// GetConversation retrieves a conversation by ID, scoped to its owner
func (r *PostgresConversationRepository) GetConversation(ctx context.Context, conversationID int64, userID string) (*chatModels.Conversation, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, title, system_prompt, default_model, created_at, updated_at
		FROM %s
		WHERE id = $1 AND user_id = $2
	`, r.tables.Conversations)

	var conv chatModels.Conversation
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, conversationID, userID).Scan(
		&conv.ID,
		&conv.UserID,
		&conv.Title,
		&conv.SystemPrompt,
		&conv.DefaultModel,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)

	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("conversation %d: %w", conversationID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}

	return &conv, nil
}

// GetConversationByIDOnly retrieves a conversation without user scoping;
// the resource authorizer checks ownership separately
func (r *PostgresConversationRepository) GetConversationByIDOnly(ctx context.Context, conversationID int64) (*chatModels.Conversation, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, title, system_prompt, default_model, created_at, updated_at
		FROM %s
		WHERE id = $1
	`, r.tables.Conversations)

	var conv chatModels.Conversation
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, conversationID).Scan(
		&conv.ID,
		&conv.UserID,
		&conv.Title,
		&conv.SystemPrompt,
		&conv.DefaultModel,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)

	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("conversation %d: %w", conversationID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}

	return &conv, nil
}

// ListConversations retrieves all conversations owned by a user
func (r *PostgresConversationRepository) ListConversations(ctx context.Context, userID string) ([]chatModels.Conversation, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, title, system_prompt, default_model, created_at, updated_at
		FROM %s
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`, r.tables.Conversations)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var conversations []chatModels.Conversation
	for rows.Next() {
		var conv chatModels.Conversation
		err := rows.Scan(
			&conv.ID,
			&conv.UserID,
			&conv.Title,
			&conv.SystemPrompt,
			&conv.DefaultModel,
			&conv.CreatedAt,
			&conv.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		conversations = append(conversations, conv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}

	// Return empty slice instead of nil
	if conversations == nil {
		conversations = []chatModels.Conversation{}
	}

	return conversations, nil
}

// UpdateConversation updates a conversation's mutable fields
func (r *PostgresConversationRepository) UpdateConversation(ctx context.Context, conv *chatModels.Conversation) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET title = $1, system_prompt = $2, default_model = $3, updated_at = $4
		WHERE id = $5 AND user_id = $6
	`, r.tables.Conversations)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		conv.Title,
		conv.SystemPrompt,
		conv.DefaultModel,
		time.Now(),
		conv.ID,
		conv.UserID,
	)

	if err != nil {
		return fmt.Errorf("update conversation: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("conversation %d: %w", conv.ID, domain.ErrNotFound)
	}

	return nil
}

// TouchConversation bumps updated_at so active conversations sort first
func (r *PostgresConversationRepository) TouchConversation(ctx context.Context, conversationID int64) error {
	query := fmt.Sprintf(`
		UPDATE %s SET updated_at = NOW() WHERE id = $1
	`, r.tables.Conversations)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, conversationID); err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	return nil
}

// DeleteConversation hard-deletes a conversation; message and file rows
// go with it via ON DELETE CASCADE
func (r *PostgresConversationRepository) DeleteConversation(ctx context.Context, conversationID int64, userID string) (*chatModels.Conversation, error) {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE id = $1 AND user_id = $2
		RETURNING id, user_id, title, system_prompt, default_model, created_at, updated_at
	`, r.tables.Conversations)

	executor := postgres.GetExecutor(ctx, r.pool)
	row := executor.QueryRow(ctx, query, conversationID, userID)

	var conv chatModels.Conversation
	err := row.Scan(
		&conv.ID,
		&conv.UserID,
		&conv.Title,
		&conv.SystemPrompt,
		&conv.DefaultModel,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("conversation %d: %w", conversationID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("delete conversation: %w", err)
	}

	return &conv, nil
}
