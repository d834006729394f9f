// Package postgres implements thread persistence on PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smallnest/decisionflow/pipeline"
	"github.com/smallnest/decisionflow/store"
)

// DBPool defines the interface for database connection pool
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresThreadStore implements store.ThreadStore using PostgreSQL.
type PostgresThreadStore struct {
	pool      DBPool
	tableName string
}

// PostgresOptions configuration for Postgres connection
type PostgresOptions struct {
	ConnString string
	TableName  string // Default "threads"
}

// NewPostgresThreadStore creates a new Postgres thread store.
func NewPostgresThreadStore(ctx context.Context, opts PostgresOptions) (*PostgresThreadStore, error) {
	pool, err := pgxpool.New(ctx, opts.ConnString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "threads"
	}

	return &PostgresThreadStore{
		pool:      pool,
		tableName: tableName,
	}, nil
}

// NewPostgresThreadStoreWithPool creates a new Postgres thread store with an
// existing pool. Useful for testing with mocks.
func NewPostgresThreadStoreWithPool(pool DBPool, tableName string) *PostgresThreadStore {
	if tableName == "" {
		tableName = "threads"
	}
	return &PostgresThreadStore{
		pool:      pool,
		tableName: tableName,
	}
}

// InitSchema creates the necessary table if it doesn't exist
func (s *PostgresThreadStore) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			messages JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
	`, s.tableName)

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the connection pool
func (s *PostgresThreadStore) Close() {
	s.pool.Close()
}

// SaveThread stores or replaces a thread.
func (s *PostgresThreadStore) SaveThread(ctx context.Context, thread *store.Thread) error {
	messagesJSON, err := json.Marshal(thread.Messages)
	if err != nil {
		return fmt.Errorf("failed to marshal messages: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, messages, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			messages = EXCLUDED.messages,
			updated_at = EXCLUDED.updated_at
	`, s.tableName)

	if _, err := s.pool.Exec(ctx, query, thread.ID, messagesJSON, thread.UpdatedAt); err != nil {
		return fmt.Errorf("failed to save thread: %w", err)
	}
	return nil
}

// LoadThread retrieves a thread by ID.
func (s *PostgresThreadStore) LoadThread(ctx context.Context, threadID string) (*store.Thread, error) {
	query := fmt.Sprintf(`
		SELECT id, messages, updated_at
		FROM %s
		WHERE id = $1
	`, s.tableName)

	var thread store.Thread
	var messagesJSON []byte

	err := s.pool.QueryRow(ctx, query, threadID).Scan(
		&thread.ID,
		&messagesJSON,
		&thread.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrThreadNotFound, threadID)
		}
		return nil, fmt.Errorf("failed to load thread: %w", err)
	}

	var messages []pipeline.Message
	if err := json.Unmarshal(messagesJSON, &messages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal messages: %w", err)
	}
	thread.Messages = messages

	return &thread, nil
}

// DeleteThread removes a thread.
func (s *PostgresThreadStore) DeleteThread(ctx context.Context, threadID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", s.tableName)
	if _, err := s.pool.Exec(ctx, query, threadID); err != nil {
		return fmt.Errorf("failed to delete thread: %w", err)
	}
	return nil
}
