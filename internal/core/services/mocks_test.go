package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-events/internal/core/domain"
	"github.com/custodia-labs/sercha-events/internal/core/ports/driven"
)

// --- Mock implementations shared by the services tests ---

// mockProvider resolves identity from "ref", falling back to "name", and
// only emits items whose ref_type is absent or "branch".
type mockProvider struct {
	typ       string
	supported []string
}

var _ driven.Provider = (*mockProvider)(nil)

func (m *mockProvider) Type() string                  { return m.typ }
func (m *mockProvider) SupportedEventTypes() []string { return m.supported }

func (m *mockProvider) Identity(item domain.RawItem) (string, error) {
	if ref := item.String("ref"); ref != "" {
		return ref, nil
	}
	if name := item.String("name"); name != "" {
		return name, nil
	}
	return "", errors.New("no ref or name")
}

func (m *mockProvider) Summary(item domain.RawItem) (string, error) {
	id, err := m.Identity(item)
	if err != nil {
		return "", err
	}
	return "New branch: " + id, nil
}

func (m *mockProvider) ShouldEmit(item domain.RawItem) bool {
	refType := item.String("ref_type")
	return refType == "" || refType == "branch"
}

func (m *mockProvider) SampleTimerEvent() domain.RawItem {
	return domain.RawItem{Payload: map[string]any{"name": "sample-branch"}}
}

func (m *mockProvider) SampleWebhookEvent() domain.RawItem {
	return domain.RawItem{
		EventType: "create",
		Payload:   map[string]any{"ref": "sample-branch", "ref_type": "branch"},
	}
}

// mockFetcher is a polling-capable provider serving scripted batches.
type mockFetcher struct {
	mockProvider

	mu      sync.Mutex
	items   []domain.RawItem
	next    string
	err     error
	calls   int
	cursors []string
	block   chan struct{}
	entered chan struct{}
}

var _ driven.Fetcher = (*mockFetcher)(nil)

func newMockFetcher(items ...domain.RawItem) *mockFetcher {
	return &mockFetcher{mockProvider: mockProvider{typ: "mock"}, items: items}
}

func (m *mockFetcher) FetchBatch(ctx context.Context, cursor string) ([]domain.RawItem, string, error) {
	m.mu.Lock()
	m.calls++
	m.cursors = append(m.cursors, cursor)
	block, entered := m.block, m.entered
	items, next, err := m.items, m.next, m.err
	m.mu.Unlock()

	if entered != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, "", ctx.Err()
		}
	}
	return items, next, err
}

func (m *mockFetcher) setItems(items ...domain.RawItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = items
}

func (m *mockFetcher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockSubscriber is a polling and webhook provider recording subscriptions.
type mockSubscriber struct {
	*mockFetcher

	mu           sync.Mutex
	subscribeErr error
	subscribed   [][]string
	unsubscribed []string
	seq          int
}

var _ driven.Subscriber = (*mockSubscriber)(nil)

func newMockSubscriber(items ...domain.RawItem) *mockSubscriber {
	return &mockSubscriber{mockFetcher: newMockFetcher(items...)}
}

func (m *mockSubscriber) Subscribe(_ context.Context, eventTypes []string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subscribeErr != nil {
		return "", m.subscribeErr
	}
	m.seq++
	m.subscribed = append(m.subscribed, eventTypes)
	return fmt.Sprintf("hook-%d", m.seq), nil
}

func (m *mockSubscriber) Unsubscribe(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unsubscribed = append(m.unsubscribed, id)
	return nil
}

func (m *mockSubscriber) unsubscribedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.unsubscribed...)
}

// mockIssuer is a subscriber whose provider issues signing secrets.
type mockIssuer struct {
	*mockSubscriber
}

var _ driven.SecretIssuer = (*mockIssuer)(nil)

func (m *mockIssuer) SigningSecret(id string) string { return "secret-" + id }

// mockSink collects emitted events and can be made to fail.
type mockSink struct {
	mu     sync.Mutex
	events []domain.EmittedEvent
	err    error
}

var _ driven.EmissionSink = (*mockSink)(nil)

func (s *mockSink) Emit(_ context.Context, event domain.EmittedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func (s *mockSink) ids() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.events))
	for _, e := range s.events {
		ids = append(ids, e.Identity)
	}
	return ids
}

func (s *mockSink) all() []domain.EmittedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.EmittedEvent(nil), s.events...)
}

// brokenDedupStore fails every operation.
type brokenDedupStore struct{}

var _ driven.DedupStore = brokenDedupStore{}

var errStoreDown = errors.New("store down")

func (brokenDedupStore) Has(context.Context, string, string) (bool, error) { return false, errStoreDown }
func (brokenDedupStore) Record(context.Context, domain.DedupRecord) error  { return errStoreDown }
func (brokenDedupStore) Count(context.Context, string) (int, error)        { return 0, errStoreDown }
func (brokenDedupStore) Forget(context.Context, string) error              { return errStoreDown }
func (brokenDedupStore) Evict(context.Context, string, domain.RetentionPolicy, time.Time) (int, error) {
	return 0, errStoreDown
}

// recordingMetrics counts metric calls.
type recordingMetrics struct {
	driven.NopMetrics

	mu           sync.Mutex
	emitted      int
	deduplicated int
	dropped      map[string]int
	cycleErrors  map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{dropped: map[string]int{}, cycleErrors: map[string]int{}}
}

func (m *recordingMetrics) Emitted(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emitted++
}

func (m *recordingMetrics) Deduplicated(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deduplicated++
}

func (m *recordingMetrics) Dropped(_, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped[reason]++
}

func (m *recordingMetrics) CycleError(_, kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cycleErrors[kind]++
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// --- helpers ---

func branch(name string, at time.Time) domain.RawItem {
	return domain.RawItem{Payload: map[string]any{"name": name}, OrderKey: at}
}

func pollingConfig(key string, dedupe domain.DedupeStrategy) domain.SourceConfig {
	return domain.SourceConfig{
		Key:      key,
		Provider: "mock",
		Mode:     domain.ModePolling,
		Dedupe:   dedupe,
		Interval: time.Minute,
	}
}

func webhookConfig(key string, dedupe domain.DedupeStrategy) domain.SourceConfig {
	return domain.SourceConfig{
		Key:               key,
		Provider:          "mock",
		Mode:              domain.ModeWebhook,
		Dedupe:            dedupe,
		WebhookEventTypes: []string{"create"},
	}
}
