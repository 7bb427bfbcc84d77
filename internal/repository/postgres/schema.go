package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the chat tables and their indexes if they don't
// exist. The seed command runs it unconditionally; the server runs it on
// startup in dev environments so a fresh database works out of the box.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames, tablePrefix string) error {
	createConversations := `
		CREATE TABLE IF NOT EXISTS ` + tables.Conversations + ` (
			id BIGSERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL,
			system_prompt TEXT,
			default_model TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createConversations); err != nil {
		return err
	}

	// parent_message_id is self-referential: deleting a message takes its
	// entire subtree with it.
	createMessages := `
		CREATE TABLE IF NOT EXISTS ` + tables.Messages + ` (
			id BIGSERIAL PRIMARY KEY,
			conversation_id BIGINT NOT NULL REFERENCES ` + tables.Conversations + `(id) ON DELETE CASCADE,
			parent_message_id BIGINT REFERENCES ` + tables.Messages + `(id) ON DELETE CASCADE,
			role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
			content TEXT NOT NULL,
			model TEXT,
			is_thread_message BOOLEAN NOT NULL DEFAULT FALSE,
			thread_draft TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createMessages); err != nil {
		return err
	}

	createMessageFiles := `
		CREATE TABLE IF NOT EXISTS ` + tables.MessageFiles + ` (
			id BIGSERIAL PRIMARY KEY,
			message_id BIGINT NOT NULL REFERENCES ` + tables.Messages + `(id) ON DELETE CASCADE,
			file_name TEXT NOT NULL,
			mime_type TEXT NOT NULL,
			size_bytes BIGINT NOT NULL DEFAULT 0,
			data TEXT,
			extracted_text TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createMessageFiles); err != nil {
		return err
	}

	createUserPreferences := `
		CREATE TABLE IF NOT EXISTS ` + tables.UserPreferences + ` (
			user_id TEXT PRIMARY KEY,
			preferences JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createUserPreferences); err != nil {
		return err
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `messages_conversation ON ` + tables.Messages + `(conversation_id, created_at, id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `messages_parent ON ` + tables.Messages + `(parent_message_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `message_files_message ON ` + tables.MessageFiles + `(message_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `conversations_user_updated ON ` + tables.Conversations + `(user_id, updated_at DESC)`,
	}

	for _, indexSQL := range indexes {
		if _, err := pool.Exec(ctx, indexSQL); err != nil {
			return err
		}
	}

	return nil
}

// DropTables drops all chat tables in reverse dependency order.
func DropTables(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	tableNames := []string{
		tables.MessageFiles,
		tables.Messages,
		tables.Conversations,
		tables.UserPreferences,
	}

	for _, table := range tableNames {
		dropSQL := "DROP TABLE IF EXISTS " + table + " CASCADE"
		if _, err := pool.Exec(ctx, dropSQL); err != nil {
			return err
		}
	}

	return nil
}
