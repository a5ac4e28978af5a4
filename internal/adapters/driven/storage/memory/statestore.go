package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-events/internal/core/domain"
	"github.com/custodia-labs/sercha-events/internal/core/ports/driven"
)

// Ensure StateStore implements the interface.
var _ driven.StateStore = (*StateStore)(nil)

// StateStore is an in-memory implementation of driven.StateStore.
type StateStore struct {
	mu     sync.RWMutex
	states map[string]domain.SourceState
}

// NewStateStore creates a new in-memory state store.
func NewStateStore() *StateStore {
	return &StateStore{
		states: make(map[string]domain.SourceState),
	}
}

// Save stores or updates state.
func (s *StateStore) Save(_ context.Context, state domain.SourceState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.SourceKey] = state
	return nil
}

// Get retrieves state for a source.
func (s *StateStore) Get(_ context.Context, sourceKey string) (*domain.SourceState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[sourceKey]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &state, nil
}

// Delete removes state for a source.
func (s *StateStore) Delete(_ context.Context, sourceKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, sourceKey)
	return nil
}
