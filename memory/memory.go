// Package memory is the long-term decision memory: a SQLite log of finished
// decision records plus an optional vector index for retrieving similar past
// decisions by semantic similarity.
package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"

	"github.com/smallnest/decisionflow/pipeline"
)

// ErrDecisionNotFound is returned when no decision exists for the given ID.
var ErrDecisionNotFound = errors.New("decision not found")

// Options configures the decision memory.
type Options struct {
	// Path is the SQLite database path
	Path string

	// TableName defaults to "decisions"
	TableName string

	// Index is an optional vector store for similarity lookups. Without it
	// SimilarDecisions always returns empty.
	Index vectorstores.VectorStore
}

// Store persists finished decision records and serves similarity lookups.
// It implements the pipeline's Memory boundary.
type Store struct {
	db        *sql.DB
	tableName string
	index     vectorstores.VectorStore
}

// Open opens the decision memory, creating the schema if needed.
func Open(opts Options) (*Store, error) {
	db, err := sql.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "decisions"
	}

	s := &Store{
		db:        db,
		tableName: tableName,
		index:     opts.Index,
	}
	if err := s.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			question TEXT NOT NULL,
			decision TEXT NOT NULL,
			confidence REAL NOT NULL,
			attempts INTEGER NOT NULL,
			forced INTEGER NOT NULL,
			record TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%s_created_at ON %s (created_at);
	`, s.tableName, s.tableName, s.tableName)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveDecision persists a finished record and, when an index is configured,
// makes it retrievable by similarity. Returns the record ID.
func (s *Store) SaveDecision(ctx context.Context, rec *pipeline.DecisionRecord) (string, error) {
	recordJSON, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("failed to marshal record: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, question, decision, confidence, attempts, forced, record, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			question = excluded.question,
			decision = excluded.decision,
			confidence = excluded.confidence,
			attempts = excluded.attempts,
			forced = excluded.forced,
			record = excluded.record
	`, s.tableName)

	_, err = s.db.ExecContext(ctx, query,
		rec.ID,
		rec.Question,
		string(rec.Decision),
		rec.Confidence,
		rec.Attempts,
		rec.ForcedTermination,
		string(recordJSON),
		rec.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to save decision: %w", err)
	}

	if s.index != nil {
		doc := schema.Document{
			PageContent: indexContent(rec),
			Metadata:    map[string]any{"decision_id": rec.ID},
		}
		if _, err := s.index.AddDocuments(ctx, []schema.Document{doc}); err != nil {
			return "", fmt.Errorf("failed to index decision: %w", err)
		}
	}

	return rec.ID, nil
}

// indexContent is the text embedded for similarity lookups: the question and
// outcome, not the full conversational trace.
func indexContent(rec *pipeline.DecisionRecord) string {
	return fmt.Sprintf("Question: %s\nDecision: %s\nConfidence: %.2f\nFactors: %s",
		rec.Question, rec.Decision, rec.Confidence, rec.ContextFactors)
}

// SimilarDecisions returns up to k past decisions semantically similar to
// the question, most similar first. Without a configured index it returns
// empty.
func (s *Store) SimilarDecisions(ctx context.Context, question string, k int) ([]pipeline.SimilarDecision, error) {
	if s.index == nil {
		return nil, nil
	}
	if k <= 0 {
		k = 3
	}

	docs, err := s.index.SimilaritySearch(ctx, question, k)
	if err != nil {
		return nil, fmt.Errorf("similarity lookup: %w", err)
	}

	similar := make([]pipeline.SimilarDecision, 0, len(docs))
	for _, doc := range docs {
		id := ""
		if v, ok := doc.Metadata["decision_id"]; ok {
			id = fmt.Sprintf("%v", v)
		}
		similar = append(similar, pipeline.SimilarDecision{
			ID:         id,
			Content:    doc.PageContent,
			Similarity: float64(doc.Score),
		})
	}
	return similar, nil
}

// Summary is one row of the decision history listing.
type Summary struct {
	ID                string    `json:"id"`
	Question          string    `json:"question"`
	Decision          string    `json:"decision"`
	Confidence        float64   `json:"confidence"`
	Attempts          int       `json:"attempts"`
	ForcedTermination bool      `json:"forced_termination"`
	CreatedAt         time.Time `json:"created_at"`
}

// ListDecisions returns the most recent decisions, newest first.
func (s *Store) ListDecisions(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(`
		SELECT id, question, decision, confidence, attempts, forced, created_at
		FROM %s
		ORDER BY created_at DESC
		LIMIT ?
	`, s.tableName)

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.ID, &sum.Question, &sum.Decision, &sum.Confidence,
			&sum.Attempts, &sum.ForcedTermination, &sum.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan decision row: %w", err)
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating decision rows: %w", err)
	}
	return summaries, nil
}

// GetDecision loads the full record for an ID.
func (s *Store) GetDecision(ctx context.Context, id string) (*pipeline.DecisionRecord, error) {
	query := fmt.Sprintf(`SELECT record FROM %s WHERE id = ?`, s.tableName)

	var recordJSON string
	err := s.db.QueryRowContext(ctx, query, id).Scan(&recordJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrDecisionNotFound, id)
		}
		return nil, fmt.Errorf("failed to load decision: %w", err)
	}

	var rec pipeline.DecisionRecord
	if err := json.Unmarshal([]byte(recordJSON), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return &rec, nil
}
