package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-events/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-events/internal/core/domain"
)

func TestPollingDriver_EmitsOldestFirst(t *testing.T) {
	clock := newFakeClock()
	base := clock.Now()
	fetcher := newMockFetcher(
		branch("c", base.Add(3*time.Minute)),
		branch("a", base.Add(1*time.Minute)),
		branch("b", base.Add(2*time.Minute)),
	)
	sink := &mockSink{}
	driver := NewPollingDriver(memory.NewDedupStore(), sink, nil, Options{Now: clock.Now})
	cfg := pollingConfig("src", domain.DedupeUnique)

	result, err := driver.Run(context.Background(), &cfg, fetcher, domain.TriggerManual)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, sink.ids())
	assert.Equal(t, 3, result.Fetched)
	assert.Equal(t, 3, result.Emitted)
	assert.True(t, result.Success())
	assert.NotEmpty(t, result.ID)
	assert.Equal(t, domain.TriggerManual, result.Trigger)
}

func TestPollingDriver_Idempotent(t *testing.T) {
	fetcher := newMockFetcher(branch("a", time.Time{}), branch("b", time.Time{}))
	sink := &mockSink{}
	driver := NewPollingDriver(memory.NewDedupStore(), sink, nil, Options{})
	cfg := pollingConfig("src", domain.DedupeUnique)

	_, err := driver.Run(context.Background(), &cfg, fetcher, domain.TriggerTimer)
	require.NoError(t, err)

	result, err := driver.Run(context.Background(), &cfg, fetcher, domain.TriggerTimer)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, sink.ids())
	assert.Equal(t, 0, result.Emitted)
	assert.Equal(t, 2, result.Skipped)
}

func TestPollingDriver_InBatchDuplicates(t *testing.T) {
	fetcher := newMockFetcher(branch("a", time.Time{}), branch("a", time.Time{}))
	sink := &mockSink{}
	driver := NewPollingDriver(memory.NewDedupStore(), sink, nil, Options{})

	cfg := pollingConfig("src", domain.DedupeUnique)
	_, err := driver.Run(context.Background(), &cfg, fetcher, domain.TriggerTimer)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, sink.ids())
}

func TestPollingDriver_DedupeNoneEmitsEverything(t *testing.T) {
	fetcher := newMockFetcher(branch("a", time.Time{}), branch("a", time.Time{}))
	sink := &mockSink{}
	dedup := memory.NewDedupStore()
	driver := NewPollingDriver(dedup, sink, nil, Options{})
	cfg := pollingConfig("src", domain.DedupeNone)

	_, err := driver.Run(context.Background(), &cfg, fetcher, domain.TriggerTimer)
	require.NoError(t, err)
	_, err = driver.Run(context.Background(), &cfg, fetcher, domain.TriggerTimer)
	require.NoError(t, err)

	assert.Len(t, sink.ids(), 4)
	count, err := dedup.Count(context.Background(), "src")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestPollingDriver_VolatileWindow(t *testing.T) {
	clock := newFakeClock()
	fetcher := newMockFetcher(
		branch("A", clock.Now()),
		branch("B", clock.Now().Add(time.Second)),
		branch("C", clock.Now().Add(2*time.Second)),
	)
	sink := &mockSink{}
	driver := NewPollingDriver(memory.NewDedupStore(), sink, nil, Options{Now: clock.Now})
	cfg := pollingConfig("src", domain.DedupeUniqueVolatile)
	cfg.Retention = domain.RetentionPolicy{MaxRecords: 2}

	_, err := driver.Run(context.Background(), &cfg, fetcher, domain.TriggerTimer)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, sink.ids())

	// A has fallen out of the window; C is still inside it.
	clock.Advance(time.Minute)
	fetcher.setItems(branch("A", clock.Now()), branch("C", clock.Now()))
	result, err := driver.Run(context.Background(), &cfg, fetcher, domain.TriggerTimer)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "C", "A"}, sink.ids())
	assert.Equal(t, 1, result.Emitted)
	assert.Equal(t, 1, result.Skipped)
}

func TestPollingDriver_VolatileMaxAge(t *testing.T) {
	clock := newFakeClock()
	fetcher := newMockFetcher(branch("A", time.Time{}))
	sink := &mockSink{}
	driver := NewPollingDriver(memory.NewDedupStore(), sink, nil, Options{Now: clock.Now})
	cfg := pollingConfig("src", domain.DedupeUniqueVolatile)
	cfg.Retention = domain.RetentionPolicy{MaxAge: time.Hour}

	_, err := driver.Run(context.Background(), &cfg, fetcher, domain.TriggerTimer)
	require.NoError(t, err)
	_, err = driver.Run(context.Background(), &cfg, fetcher, domain.TriggerTimer)
	require.NoError(t, err)
	assert.Len(t, sink.ids(), 1)

	clock.Advance(2 * time.Hour)
	_, err = driver.Run(context.Background(), &cfg, fetcher, domain.TriggerTimer)
	require.NoError(t, err)
	assert.Len(t, sink.ids(), 2)
}

func TestPollingDriver_FetchFailureRecordsNothing(t *testing.T) {
	fetcher := newMockFetcher(branch("a", time.Time{}))
	fetcher.err = errors.New("connection reset")
	sink := &mockSink{}
	dedup := memory.NewDedupStore()
	metrics := newRecordingMetrics()
	driver := NewPollingDriver(dedup, sink, nil, Options{Metrics: metrics})
	cfg := pollingConfig("src", domain.DedupeUnique)

	result, err := driver.Run(context.Background(), &cfg, fetcher, domain.TriggerTimer)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTransientFetch))
	assert.Contains(t, result.Error, "connection reset")
	assert.Empty(t, sink.ids())

	count, err := dedup.Count(context.Background(), "src")
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Equal(t, 1, metrics.cycleErrors["transient_fetch"])

	// The next cycle retries the same items.
	fetcher.err = nil
	_, err = driver.Run(context.Background(), &cfg, fetcher, domain.TriggerTimer)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, sink.ids())
}

func TestPollingDriver_FetchTimeout(t *testing.T) {
	fetcher := newMockFetcher(branch("a", time.Time{}))
	fetcher.block = make(chan struct{})
	driver := NewPollingDriver(memory.NewDedupStore(), &mockSink{}, nil, Options{FetchTimeout: 20 * time.Millisecond})
	cfg := pollingConfig("src", domain.DedupeUnique)

	_, err := driver.Run(context.Background(), &cfg, fetcher, domain.TriggerTimer)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTransientFetch))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestPollingDriver_SkipsMalformedItems(t *testing.T) {
	fetcher := newMockFetcher(
		branch("a", time.Time{}),
		domain.RawItem{Payload: map[string]any{"unrelated": true}},
		domain.RawItem{},
		branch("b", time.Time{}),
	)
	sink := &mockSink{}
	metrics := newRecordingMetrics()
	driver := NewPollingDriver(memory.NewDedupStore(), sink, nil, Options{Metrics: metrics})
	cfg := pollingConfig("src", domain.DedupeUnique)

	result, err := driver.Run(context.Background(), &cfg, fetcher, domain.TriggerTimer)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, sink.ids())
	assert.Equal(t, 2, result.Malformed)
	assert.Equal(t, 2, metrics.dropped[DropMalformed])
}

func TestPollingDriver_DedupStoreUnavailable(t *testing.T) {
	fetcher := newMockFetcher(branch("a", time.Time{}))
	sink := &mockSink{}
	driver := NewPollingDriver(brokenDedupStore{}, sink, nil, Options{})
	cfg := pollingConfig("src", domain.DedupeUnique)

	_, err := driver.Run(context.Background(), &cfg, fetcher, domain.TriggerTimer)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDedupStoreUnavailable))
	assert.Empty(t, sink.ids())
}

func TestPollingDriver_SinkFailureLeavesItemUnrecorded(t *testing.T) {
	fetcher := newMockFetcher(branch("a", time.Time{}))
	sink := &mockSink{err: errors.New("sink closed")}
	dedup := memory.NewDedupStore()
	driver := NewPollingDriver(dedup, sink, nil, Options{})
	cfg := pollingConfig("src", domain.DedupeUnique)

	_, err := driver.Run(context.Background(), &cfg, fetcher, domain.TriggerTimer)
	require.Error(t, err)

	has, err := dedup.Has(context.Background(), "src", "a")
	require.NoError(t, err)
	assert.False(t, has)

	sink.err = nil
	_, err = driver.Run(context.Background(), &cfg, fetcher, domain.TriggerTimer)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, sink.ids())
}

func TestPollingDriver_PersistsCursor(t *testing.T) {
	fetcher := newMockFetcher(branch("a", time.Time{}))
	fetcher.next = "page-2"
	states := memory.NewStateStore()
	driver := NewPollingDriver(memory.NewDedupStore(), &mockSink{}, states, Options{})
	cfg := pollingConfig("src", domain.DedupeUnique)

	_, err := driver.Run(context.Background(), &cfg, fetcher, domain.TriggerTimer)
	require.NoError(t, err)
	_, err = driver.Run(context.Background(), &cfg, fetcher, domain.TriggerTimer)
	require.NoError(t, err)

	assert.Equal(t, []string{"", "page-2"}, fetcher.cursors)
	state, err := states.Get(context.Background(), "src")
	require.NoError(t, err)
	assert.Equal(t, "page-2", state.Cursor)
	assert.False(t, state.LastSuccess.IsZero())
}

func TestPollingDriver_RejectsWebhookOnlySource(t *testing.T) {
	driver := NewPollingDriver(memory.NewDedupStore(), &mockSink{}, nil, Options{})
	cfg := webhookConfig("src", domain.DedupeUnique)

	_, err := driver.Run(context.Background(), &cfg, newMockFetcher(), domain.TriggerTimer)
	assert.True(t, errors.Is(err, domain.ErrModeNotAllowed))
}

func TestPollingDriver_SourcesArePartitioned(t *testing.T) {
	dedup := memory.NewDedupStore()
	sink := &mockSink{}
	driver := NewPollingDriver(dedup, sink, nil, Options{})
	fetcher := newMockFetcher(branch("a", time.Time{}))

	one := pollingConfig("one", domain.DedupeUnique)
	two := pollingConfig("two", domain.DedupeUnique)
	_, err := driver.Run(context.Background(), &one, fetcher, domain.TriggerTimer)
	require.NoError(t, err)
	_, err = driver.Run(context.Background(), &two, fetcher, domain.TriggerTimer)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "a"}, sink.ids())
}
