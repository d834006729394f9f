package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/decisionflow/pipeline"
	"github.com/smallnest/decisionflow/store"
)

func TestRedisThreadStore(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	s := NewRedisThreadStore(RedisOptions{
		Addr: mr.Addr(),
	})
	defer s.Close()

	ctx := context.Background()

	thread := &store.Thread{
		ID: "thread-1",
		Messages: []pipeline.Message{
			{Role: pipeline.RoleUser, Content: "Should we migrate?"},
			{Role: pipeline.RoleAssistant, Content: "Decision: No"},
		},
		UpdatedAt: time.Now().UTC(),
	}

	// Save and load round-trip
	require.NoError(t, s.SaveThread(ctx, thread))

	loaded, err := s.LoadThread(ctx, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, thread.ID, loaded.ID)
	assert.Equal(t, thread.Messages, loaded.Messages)

	// Delete removes the thread
	require.NoError(t, s.DeleteThread(ctx, "thread-1"))

	_, err = s.LoadThread(ctx, "thread-1")
	assert.ErrorIs(t, err, store.ErrThreadNotFound)
}

func TestRedisThreadStoreTTL(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	s := NewRedisThreadStore(RedisOptions{
		Addr: mr.Addr(),
		TTL:  time.Minute,
	})
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.SaveThread(ctx, &store.Thread{ID: "t"}))

	// Past the TTL the thread is gone.
	mr.FastForward(2 * time.Minute)

	_, err = s.LoadThread(ctx, "t")
	assert.ErrorIs(t, err, store.ErrThreadNotFound)
}
