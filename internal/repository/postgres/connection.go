package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"arbor/internal/domain/repositories"
)

// RepositoryConfig holds configuration for repository implementations
type RepositoryConfig struct {
	Pool   *pgxpool.Pool
	Tables *TableNames
	Logger *slog.Logger
}

// TableNames holds dynamically prefixed table names
type TableNames struct {
	Conversations   string
	Messages        string
	MessageFiles    string
	UserPreferences string
}

// NewTableNames creates table names with the given prefix
func NewTableNames(prefix string) *TableNames {
	return &TableNames{
		Conversations:   fmt.Sprintf("%sconversations", prefix),
		Messages:        fmt.Sprintf("%smessages", prefix),
		MessageFiles:    fmt.Sprintf("%smessage_files", prefix),
		UserPreferences: fmt.Sprintf("%suser_preferences", prefix),
	}
}

// CreateConnectionPool creates a pgx connection pool with automatic
// PgBouncer compatibility.
//
// pgx defaults to prepared statements (QueryExecModeCacheStatement),
// which PgBouncer's transaction pooling mode (port 6543 on Supabase)
// does not support: connections fail with "prepared statement already
// exists". When port 6543 is detected and the user has not overridden
// the mode in the connection string, the pool switches to
// QueryExecModeCacheDescribe: it keeps the extended protocol (required
// for JSONB encoding of map values) while caching only statement
// descriptions, which poolers tolerate. Direct connections on 5432 keep
// the prepared-statement default.
//
// Dynamic table prefixes (dev_/test_/prod_) are interpolated into the
// SQL string before it reaches the database, so each environment gets
// its own statements; the prefix never rides in as a parameter.
func CreateConnectionPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5

	if config.ConnConfig.Port == 6543 && config.ConnConfig.DefaultQueryExecMode == pgx.QueryExecModeCacheStatement {
		config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheDescribe
		slog.Debug("auto-configured cache_describe mode for PgBouncer compatibility", "port", 6543)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// GetExecutor returns the query executor for the context: the
// in-context transaction when one exists, the pool otherwise. This is
// how repositories participate in transactions without carrying them
// explicitly.
func GetExecutor(ctx context.Context, pool *pgxpool.Pool) repositories.DBTX {
	if tx := repositories.GetTx(ctx); tx != nil {
		return tx
	}
	return pool
}
