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

// PostgresMessageFileRepository implements MessageFileRepository using PostgreSQL
type PostgresMessageFileRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewMessageFileRepository creates a new PostgresMessageFileRepository
func NewMessageFileRepository(config *postgres.RepositoryConfig) chatRepo.MessageFileRepository {
	return &PostgresMessageFileRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// CreateMessageFiles persists the attachment rows of a message. Callers
// run this inside the same transaction as the message insert so a
// failed upload never leaves a message missing its files.
func (r *PostgresMessageFileRepository) CreateMessageFiles(ctx context.Context, files []chatModels.MessageFile) error {
	if len(files) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (message_id, file_name, mime_type, size_bytes, data, extracted_text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, created_at
	`, r.tables.MessageFiles)

	executor := postgres.GetExecutor(ctx, r.pool)
	for i := range files {
		f := &files[i]
		err := executor.QueryRow(ctx, query,
			f.MessageID,
			f.FileName,
			f.MimeType,
			f.SizeBytes,
			f.Data,
			f.ExtractedText,
		).Scan(&f.ID, &f.CreatedAt)

		if err != nil {
			if postgres.IsPgForeignKeyError(err) {
				return fmt.Errorf("message %d: %w", f.MessageID, domain.ErrNotFound)
			}
			return fmt.Errorf("create message file %q: %w", f.FileName, err)
		}
	}

	return nil
}

// GetFilesForMessages retrieves attachments for many messages in a
// single query, eliminating N+1 loads when reconstructing a
// conversation path.
func (r *PostgresMessageFileRepository) GetFilesForMessages(ctx context.Context, messageIDs []int64) (map[int64][]chatModels.MessageFile, error) {
	// Return empty map if no message IDs provided
	if len(messageIDs) == 0 {
		return map[int64][]chatModels.MessageFile{}, nil
	}

	query := fmt.Sprintf(`
		SELECT id, message_id, file_name, mime_type, size_bytes, data, extracted_text, created_at
		FROM %s
		WHERE message_id = ANY($1)
		ORDER BY message_id, id
	`, r.tables.MessageFiles)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, messageIDs)
	if err != nil {
		return nil, fmt.Errorf("get files for messages: %w", err)
	}
	defer rows.Close()

	filesByMessage := make(map[int64][]chatModels.MessageFile)
	for rows.Next() {
		var f chatModels.MessageFile
		err := rows.Scan(
			&f.ID,
			&f.MessageID,
			&f.FileName,
			&f.MimeType,
			&f.SizeBytes,
			&f.Data,
			&f.ExtractedText,
			&f.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan message file: %w", err)
		}

		filesByMessage[f.MessageID] = append(filesByMessage[f.MessageID], f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate message files: %w", err)
	}

	return filesByMessage, nil
}
