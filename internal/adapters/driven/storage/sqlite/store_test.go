package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-events/internal/core/domain"
)

// setupTestStore creates a SQLite store in a temporary directory.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, store)
	t.Cleanup(func() { assert.NoError(t, store.Close()) })
	return store
}

// ==================== Store Creation Tests ====================

func TestNewStore_CreatesDatabase(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, filepath.Join(dir, DatabaseFile), store.Path())
	assert.FileExists(t, store.Path())
}

func TestNewStore_ReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.DedupStore().Record(ctx, domain.DedupRecord{
		SourceKey: "src", Identity: "a", FirstSeen: time.Now(),
	}))
	require.NoError(t, store.Close())

	// Migrations must not re-run on an existing database.
	store, err = NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	has, err := store.DedupStore().Has(ctx, "src", "a")
	require.NoError(t, err)
	assert.True(t, has)
}

// ==================== Source Store Tests ====================

func TestSourceStore_SaveGet(t *testing.T) {
	store := setupTestStore(t)
	sources := store.SourceStore()
	ctx := context.Background()

	cfg := domain.SourceConfig{
		Key:               "github-new-branch",
		Provider:          "github",
		Name:              "New Branch",
		Version:           "0.0.1",
		Mode:              domain.ModeBoth,
		Dedupe:            domain.DedupeUnique,
		Interval:          5 * time.Minute,
		WebhookEventTypes: []string{"create"},
		Overlap:           domain.OverlapQueue,
		Retention:         domain.RetentionPolicy{MaxRecords: 50, MaxAge: time.Hour},
		Settings:          map[string]string{"repo": "octo/hello"},
	}
	require.NoError(t, sources.Save(ctx, cfg))

	got, err := sources.Get(ctx, cfg.Key)
	require.NoError(t, err)
	assert.Equal(t, cfg, *got)

	cfg.Name = "Renamed"
	cfg.Settings = nil
	cfg.WebhookEventTypes = nil
	require.NoError(t, sources.Save(ctx, cfg))

	got, err = sources.Get(ctx, cfg.Key)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Nil(t, got.Settings)
	assert.Nil(t, got.WebhookEventTypes)
}

func TestSourceStore_NotFoundAndDelete(t *testing.T) {
	store := setupTestStore(t)
	sources := store.SourceStore()
	ctx := context.Background()

	_, err := sources.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, sources.Save(ctx, domain.SourceConfig{}), domain.ErrInvalidInput)

	require.NoError(t, sources.Save(ctx, domain.SourceConfig{Key: "b", Provider: "p", Mode: domain.ModeWebhook, Dedupe: domain.DedupeNone}))
	require.NoError(t, sources.Save(ctx, domain.SourceConfig{Key: "a", Provider: "p", Mode: domain.ModeWebhook, Dedupe: domain.DedupeNone}))

	list, err := sources.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Key)

	require.NoError(t, sources.Delete(ctx, "a"))
	list, err = sources.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

// ==================== State Store Tests ====================

func TestStateStore(t *testing.T) {
	store := setupTestStore(t)
	states := store.StateStore()
	ctx := context.Background()

	_, err := states.Get(ctx, "src")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	now := time.Date(2024, 3, 1, 10, 0, 0, 123, time.UTC)
	require.NoError(t, states.Save(ctx, domain.SourceState{
		SourceKey: "src", Cursor: "etag-1", SubscriptionID: "42", SigningSecret: "whsec", LastSuccess: now,
	}))

	got, err := states.Get(ctx, "src")
	require.NoError(t, err)
	assert.Equal(t, "etag-1", got.Cursor)
	assert.Equal(t, "42", got.SubscriptionID)
	assert.Equal(t, "whsec", got.SigningSecret)
	assert.True(t, now.Equal(got.LastSuccess))

	require.NoError(t, states.Save(ctx, domain.SourceState{SourceKey: "src"}))
	got, err = states.Get(ctx, "src")
	require.NoError(t, err)
	assert.Empty(t, got.SubscriptionID)
	assert.Empty(t, got.SigningSecret)
	assert.True(t, got.LastSuccess.IsZero())

	require.NoError(t, states.Delete(ctx, "src"))
	_, err = states.Get(ctx, "src")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
