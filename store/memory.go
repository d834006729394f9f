package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/smallnest/decisionflow/pipeline"
)

// MemoryThreadStore keeps threads in process memory. The default backend for
// single-process deployments and tests.
type MemoryThreadStore struct {
	mu      sync.RWMutex
	threads map[string]*Thread
}

// NewMemoryThreadStore creates an empty in-memory thread store.
func NewMemoryThreadStore() *MemoryThreadStore {
	return &MemoryThreadStore{threads: make(map[string]*Thread)}
}

// SaveThread stores or replaces a thread.
func (s *MemoryThreadStore) SaveThread(ctx context.Context, thread *Thread) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *thread
	stored.Messages = append([]pipeline.Message(nil), thread.Messages...)
	s.threads[thread.ID] = &stored
	return nil
}

// LoadThread retrieves a thread by ID.
func (s *MemoryThreadStore) LoadThread(ctx context.Context, threadID string) (*Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	thread, ok := s.threads[threadID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrThreadNotFound, threadID)
	}

	out := *thread
	out.Messages = append([]pipeline.Message(nil), thread.Messages...)
	return &out, nil
}

// DeleteThread removes a thread.
func (s *MemoryThreadStore) DeleteThread(ctx context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.threads, threadID)
	return nil
}
