// Package store persists conversation threads: the short-term message
// history a client can resume a session from. Backends exist for memory,
// SQLite, Redis and PostgreSQL.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/smallnest/decisionflow/pipeline"
)

// ErrThreadNotFound is returned when no thread exists for the given ID.
var ErrThreadNotFound = errors.New("thread not found")

// Thread is a persisted conversation: the message history of one or more
// pipeline runs under the same session.
type Thread struct {
	ID        string             `json:"id"`
	Messages  []pipeline.Message `json:"messages"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// ThreadStore defines the interface for thread persistence.
type ThreadStore interface {
	// SaveThread stores or replaces a thread
	SaveThread(ctx context.Context, thread *Thread) error

	// LoadThread retrieves a thread by ID
	LoadThread(ctx context.Context, threadID string) (*Thread, error)

	// DeleteThread removes a thread
	DeleteThread(ctx context.Context, threadID string) error
}
