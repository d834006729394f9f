package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"

	"github.com/smallnest/decisionflow/pipeline"
	"github.com/smallnest/decisionflow/store"
)

func testThread() *store.Thread {
	return &store.Thread{
		ID: "thread-1",
		Messages: []pipeline.Message{
			{Role: pipeline.RoleUser, Content: "Should we migrate?"},
			{Role: pipeline.RoleAssistant, Content: "Decision: No"},
		},
		UpdatedAt: time.Now().UTC(),
	}
}

func TestPostgresThreadStore_Save(t *testing.T) {
	mock, err := pgxmock.NewPool()
	assert.NoError(t, err)
	defer mock.Close()

	s := NewPostgresThreadStoreWithPool(mock, "threads")

	thread := testThread()
	messagesJSON, _ := json.Marshal(thread.Messages)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO threads")).
		WithArgs(thread.ID, messagesJSON, thread.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = s.SaveThread(context.Background(), thread)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresThreadStore_Load(t *testing.T) {
	mock, err := pgxmock.NewPool()
	assert.NoError(t, err)
	defer mock.Close()

	s := NewPostgresThreadStoreWithPool(mock, "threads")

	thread := testThread()
	messagesJSON, _ := json.Marshal(thread.Messages)

	rows := pgxmock.NewRows([]string{"id", "messages", "updated_at"}).
		AddRow(thread.ID, messagesJSON, thread.UpdatedAt)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, messages, updated_at FROM threads WHERE id = $1")).
		WithArgs(thread.ID).
		WillReturnRows(rows)

	loaded, err := s.LoadThread(context.Background(), thread.ID)
	assert.NoError(t, err)
	assert.Equal(t, thread.ID, loaded.ID)
	assert.Equal(t, thread.Messages, loaded.Messages)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresThreadStore_Load_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	assert.NoError(t, err)
	defer mock.Close()

	s := NewPostgresThreadStoreWithPool(mock, "threads")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, messages, updated_at FROM threads WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	loaded, err := s.LoadThread(context.Background(), "missing")
	assert.Error(t, err)
	assert.Nil(t, loaded)
	assert.ErrorIs(t, err, store.ErrThreadNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresThreadStore_Load_InvalidJSON(t *testing.T) {
	mock, err := pgxmock.NewPool()
	assert.NoError(t, err)
	defer mock.Close()

	s := NewPostgresThreadStoreWithPool(mock, "threads")

	rows := pgxmock.NewRows([]string{"id", "messages", "updated_at"}).
		AddRow("thread-1", []byte("{invalid json"), time.Now())

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, messages, updated_at FROM threads WHERE id = $1")).
		WithArgs("thread-1").
		WillReturnRows(rows)

	loaded, err := s.LoadThread(context.Background(), "thread-1")
	assert.Error(t, err)
	assert.Nil(t, loaded)
	assert.Contains(t, err.Error(), "failed to unmarshal messages")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresThreadStore_Delete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	assert.NoError(t, err)
	defer mock.Close()

	s := NewPostgresThreadStoreWithPool(mock, "threads")

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM threads WHERE id = $1")).
		WithArgs("thread-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	err = s.DeleteThread(context.Background(), "thread-1")
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresThreadStore_Save_DatabaseError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	assert.NoError(t, err)
	defer mock.Close()

	s := NewPostgresThreadStoreWithPool(mock, "threads")

	thread := testThread()
	messagesJSON, _ := json.Marshal(thread.Messages)

	dbError := errors.New("database connection failed")
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO threads")).
		WithArgs(thread.ID, messagesJSON, thread.UpdatedAt).
		WillReturnError(dbError)

	err = s.SaveThread(context.Background(), thread)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save thread")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresThreadStore_InitSchema(t *testing.T) {
	mock, err := pgxmock.NewPool()
	assert.NoError(t, err)
	defer mock.Close()

	s := NewPostgresThreadStoreWithPool(mock, "threads")

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS threads")).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	err = s.InitSchema(context.Background())
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewPostgresThreadStoreWithPool_DefaultTableName(t *testing.T) {
	mock, err := pgxmock.NewPool()
	assert.NoError(t, err)
	defer mock.Close()

	s := NewPostgresThreadStoreWithPool(mock, "")
	assert.NotNil(t, s)
	assert.Equal(t, "threads", s.tableName)
}
