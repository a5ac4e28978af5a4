package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-events/internal/core/domain"
	"github.com/custodia-labs/sercha-events/internal/core/ports/driven"
)

// Ensure CycleStore implements the interface.
var _ driven.CycleStore = (*CycleStore)(nil)

// CycleStore is an in-memory implementation of driven.CycleStore.
type CycleStore struct {
	mu      sync.RWMutex
	results map[string][]domain.CycleResult
}

// NewCycleStore creates a new in-memory cycle store.
func NewCycleStore() *CycleStore {
	return &CycleStore{
		results: make(map[string][]domain.CycleResult),
	}
}

// RecordCycle logs a cycle result.
func (s *CycleStore) RecordCycle(_ context.Context, result *domain.CycleResult) error {
	if result == nil {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.SourceKey] = append(s.results[result.SourceKey], *result)
	return nil
}

// History returns recent results for a source, most recent first.
func (s *CycleStore) History(_ context.Context, sourceKey string, limit int) ([]domain.CycleResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := append([]domain.CycleResult(nil), s.results[sourceKey]...)
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].StartedAt.After(results[j].StartedAt)
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Prune keeps the most recent 'keep' results per source.
func (s *CycleStore) Prune(_ context.Context, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, results := range s.results {
		if len(results) > keep {
			s.results[key] = append([]domain.CycleResult(nil), results[len(results)-keep:]...)
		}
	}
	return nil
}
