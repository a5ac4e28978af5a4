package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-events/internal/core/domain"
	"github.com/custodia-labs/sercha-events/internal/core/ports/driven"
)

// Ensure SourceStore implements the interface.
var _ driven.SourceStore = (*SourceStore)(nil)

// SourceStore is an in-memory implementation of driven.SourceStore.
type SourceStore struct {
	mu      sync.RWMutex
	sources map[string]domain.SourceConfig
}

// NewSourceStore creates a new in-memory source store.
func NewSourceStore() *SourceStore {
	return &SourceStore{
		sources: make(map[string]domain.SourceConfig),
	}
}

// Save stores or updates a source configuration.
func (s *SourceStore) Save(_ context.Context, cfg domain.SourceConfig) error {
	if cfg.Key == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[cfg.Key] = cfg.Clone()
	return nil
}

// Get retrieves a source configuration by key.
func (s *SourceStore) Get(_ context.Context, key string) (*domain.SourceConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.sources[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := cfg.Clone()
	return &clone, nil
}

// Delete removes a source configuration.
func (s *SourceStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sources, key)
	return nil
}

// List returns all stored source configurations ordered by key.
func (s *SourceStore) List(_ context.Context) ([]domain.SourceConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.SourceConfig, 0, len(s.sources))
	for _, cfg := range s.sources {
		result = append(result, cfg.Clone())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result, nil
}
