// Package sqlite implements thread persistence on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/smallnest/decisionflow/pipeline"
	"github.com/smallnest/decisionflow/store"
)

// SqliteThreadStore implements store.ThreadStore using SQLite.
type SqliteThreadStore struct {
	db        *sql.DB
	tableName string
}

// SqliteOptions configuration for SQLite connection
type SqliteOptions struct {
	Path      string
	TableName string // Default "threads"
}

// NewSqliteThreadStore creates a new SQLite thread store.
func NewSqliteThreadStore(opts SqliteOptions) (*SqliteThreadStore, error) {
	db, err := sql.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "threads"
	}

	s := &SqliteThreadStore{
		db:        db,
		tableName: tableName,
	}
	if err := s.InitSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// InitSchema creates the necessary table if it doesn't exist
func (s *SqliteThreadStore) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			messages TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		);
	`, s.tableName)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SqliteThreadStore) Close() error {
	return s.db.Close()
}

// SaveThread stores or replaces a thread.
func (s *SqliteThreadStore) SaveThread(ctx context.Context, thread *store.Thread) error {
	messagesJSON, err := json.Marshal(thread.Messages)
	if err != nil {
		return fmt.Errorf("failed to marshal messages: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, messages, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			messages = excluded.messages,
			updated_at = excluded.updated_at
	`, s.tableName)

	if _, err := s.db.ExecContext(ctx, query, thread.ID, string(messagesJSON), thread.UpdatedAt); err != nil {
		return fmt.Errorf("failed to save thread: %w", err)
	}
	return nil
}

// LoadThread retrieves a thread by ID.
func (s *SqliteThreadStore) LoadThread(ctx context.Context, threadID string) (*store.Thread, error) {
	query := fmt.Sprintf(`
		SELECT id, messages, updated_at
		FROM %s
		WHERE id = ?
	`, s.tableName)

	var thread store.Thread
	var messagesJSON string

	err := s.db.QueryRowContext(ctx, query, threadID).Scan(
		&thread.ID,
		&messagesJSON,
		&thread.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrThreadNotFound, threadID)
		}
		return nil, fmt.Errorf("failed to load thread: %w", err)
	}

	var messages []pipeline.Message
	if err := json.Unmarshal([]byte(messagesJSON), &messages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal messages: %w", err)
	}
	thread.Messages = messages

	return &thread, nil
}

// DeleteThread removes a thread.
func (s *SqliteThreadStore) DeleteThread(ctx context.Context, threadID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", s.tableName)
	if _, err := s.db.ExecContext(ctx, query, threadID); err != nil {
		return fmt.Errorf("failed to delete thread: %w", err)
	}
	return nil
}
