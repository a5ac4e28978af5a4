package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-events/internal/core/domain"
	"github.com/custodia-labs/sercha-events/internal/core/ports/driven"
)

// Ensure DedupStore implements the interface.
var _ driven.DedupStore = (*DedupStore)(nil)

// DedupStore is an in-memory implementation of driven.DedupStore.
// Each source key owns a partition with its own lock; the store-level lock
// only guards the partition map.
type DedupStore struct {
	mu         sync.RWMutex
	partitions map[string]*partition
}

// partition holds one source's records ordered by first-seen time.
type partition struct {
	mu    sync.Mutex
	order []domain.DedupRecord
	index map[string]time.Time
}

// NewDedupStore creates a new in-memory dedup store.
func NewDedupStore() *DedupStore {
	return &DedupStore{
		partitions: make(map[string]*partition),
	}
}

func (s *DedupStore) partition(sourceKey string, create bool) *partition {
	s.mu.RLock()
	p, ok := s.partitions[sourceKey]
	s.mu.RUnlock()
	if ok || !create {
		return p
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok = s.partitions[sourceKey]; ok {
		return p
	}
	p = &partition{index: make(map[string]time.Time)}
	s.partitions[sourceKey] = p
	return p
}

// Has reports whether identity has been recorded for the source.
func (s *DedupStore) Has(_ context.Context, sourceKey, identity string) (bool, error) {
	p := s.partition(sourceKey, false)
	if p == nil {
		return false, nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.index[identity]
	return ok, nil
}

// Record adds identity to the source's partition.
func (s *DedupStore) Record(_ context.Context, record domain.DedupRecord) error {
	p := s.partition(record.SourceKey, true)
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.index[record.Identity]; ok {
		return nil
	}
	p.index[record.Identity] = record.FirstSeen

	// Records almost always arrive in time order; fall back to a sorted insert otherwise.
	n := len(p.order)
	if n == 0 || !record.FirstSeen.Before(p.order[n-1].FirstSeen) {
		p.order = append(p.order, record)
		return nil
	}
	i := sort.Search(n, func(i int) bool {
		return p.order[i].FirstSeen.After(record.FirstSeen)
	})
	p.order = append(p.order, domain.DedupRecord{})
	copy(p.order[i+1:], p.order[i:])
	p.order[i] = record
	return nil
}

// Evict removes records outside the retention policy, oldest first.
func (s *DedupStore) Evict(_ context.Context, sourceKey string, policy domain.RetentionPolicy, now time.Time) (int, error) {
	p := s.partition(sourceKey, false)
	if p == nil || policy.IsZero() {
		return 0, nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	cut := 0
	for cut < len(p.order) && p.order[cut].Expired(policy, now) {
		cut++
	}
	if policy.MaxRecords > 0 && len(p.order)-cut > policy.MaxRecords {
		cut = len(p.order) - policy.MaxRecords
	}
	if cut == 0 {
		return 0, nil
	}

	for _, rec := range p.order[:cut] {
		delete(p.index, rec.Identity)
	}
	p.order = append([]domain.DedupRecord(nil), p.order[cut:]...)
	return cut, nil
}

// Count returns the number of records held for the source.
func (s *DedupStore) Count(_ context.Context, sourceKey string) (int, error) {
	p := s.partition(sourceKey, false)
	if p == nil {
		return 0, nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.order), nil
}

// Forget drops the source's partition.
func (s *DedupStore) Forget(_ context.Context, sourceKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.partitions, sourceKey)
	return nil
}
