package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-events/internal/core/domain"
	"github.com/custodia-labs/sercha-events/internal/core/ports/driven"
)

// ==================== Source Store ====================

// sourceStore implements driven.SourceStore.
type sourceStore struct {
	store *Store
}

var _ driven.SourceStore = (*sourceStore)(nil)

const sourceColumns = `key, provider, name, version, mode, dedupe, interval_seconds,
	webhook_event_types, overlap, retention_max_records, retention_max_age_seconds, settings`

// Save stores or replaces a source configuration.
func (s *sourceStore) Save(ctx context.Context, cfg domain.SourceConfig) error {
	if cfg.Key == "" {
		return fmt.Errorf("%w: source key is required", domain.ErrInvalidInput)
	}

	eventTypes := cfg.WebhookEventTypes
	if eventTypes == nil {
		eventTypes = []string{}
	}
	typesJSON, err := json.Marshal(eventTypes)
	if err != nil {
		return fmt.Errorf("marshalling event types: %w", err)
	}
	settings := cfg.Settings
	if settings == nil {
		settings = map[string]string{}
	}
	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshalling settings: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO sources (`+sourceColumns+`, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			provider = excluded.provider,
			name = excluded.name,
			version = excluded.version,
			mode = excluded.mode,
			dedupe = excluded.dedupe,
			interval_seconds = excluded.interval_seconds,
			webhook_event_types = excluded.webhook_event_types,
			overlap = excluded.overlap,
			retention_max_records = excluded.retention_max_records,
			retention_max_age_seconds = excluded.retention_max_age_seconds,
			settings = excluded.settings,
			updated_at = CURRENT_TIMESTAMP
	`, cfg.Key, cfg.Provider, cfg.Name, cfg.Version, string(cfg.Mode), string(cfg.Dedupe),
		int64(cfg.Interval/time.Second), string(typesJSON), string(cfg.Overlap),
		cfg.Retention.MaxRecords, int64(cfg.Retention.MaxAge/time.Second), string(settingsJSON))
	if err != nil {
		return fmt.Errorf("saving source: %w", err)
	}
	return nil
}

// Get retrieves a source configuration by key.
func (s *sourceStore) Get(ctx context.Context, key string) (*domain.SourceConfig, error) {
	row := s.store.db.QueryRowContext(ctx, `SELECT `+sourceColumns+` FROM sources WHERE key = ?`, key)
	cfg, err := scanSource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Delete removes a source configuration.
func (s *sourceStore) Delete(ctx context.Context, key string) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM sources WHERE key = ?", key); err != nil {
		return fmt.Errorf("deleting source: %w", err)
	}
	return nil
}

// List returns all source configurations ordered by key.
func (s *sourceStore) List(ctx context.Context) ([]domain.SourceConfig, error) {
	rows, err := s.store.db.QueryContext(ctx, `SELECT `+sourceColumns+` FROM sources ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("querying sources: %w", err)
	}
	defer rows.Close()

	var configs []domain.SourceConfig //nolint:prealloc // size unknown from query
	for rows.Next() {
		cfg, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, *cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sources: %w", err)
	}
	return configs, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSource(row scanner) (*domain.SourceConfig, error) {
	var cfg domain.SourceConfig
	var mode, dedupe, overlap, typesJSON, settingsJSON string
	var intervalSeconds, maxAgeSeconds int64

	err := row.Scan(&cfg.Key, &cfg.Provider, &cfg.Name, &cfg.Version, &mode, &dedupe,
		&intervalSeconds, &typesJSON, &overlap, &cfg.Retention.MaxRecords, &maxAgeSeconds, &settingsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning source: %w", err)
	}

	cfg.Mode = domain.DeliveryMode(mode)
	cfg.Dedupe = domain.DedupeStrategy(dedupe)
	cfg.Overlap = domain.OverlapPolicy(overlap)
	cfg.Interval = time.Duration(intervalSeconds) * time.Second
	cfg.Retention.MaxAge = time.Duration(maxAgeSeconds) * time.Second

	if err := json.Unmarshal([]byte(typesJSON), &cfg.WebhookEventTypes); err != nil {
		return nil, fmt.Errorf("unmarshalling event types: %w", err)
	}
	if len(cfg.WebhookEventTypes) == 0 {
		cfg.WebhookEventTypes = nil
	}
	if err := json.Unmarshal([]byte(settingsJSON), &cfg.Settings); err != nil {
		return nil, fmt.Errorf("unmarshalling settings: %w", err)
	}
	if len(cfg.Settings) == 0 {
		cfg.Settings = nil
	}
	return &cfg, nil
}

// ==================== State Store ====================

// stateStore implements driven.StateStore.
type stateStore struct {
	store *Store
}

var _ driven.StateStore = (*stateStore)(nil)

// Save stores or replaces a source's runtime state.
func (s *stateStore) Save(ctx context.Context, state domain.SourceState) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO source_state (source_key, cursor, subscription_id, signing_secret, last_success)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(source_key) DO UPDATE SET
			cursor = excluded.cursor,
			subscription_id = excluded.subscription_id,
			signing_secret = excluded.signing_secret,
			last_success = excluded.last_success
	`, state.SourceKey, state.Cursor, state.SubscriptionID, state.SigningSecret,
		formatNullableTime(state.LastSuccess))
	if err != nil {
		return fmt.Errorf("saving source state: %w", err)
	}
	return nil
}

// Get retrieves a source's runtime state.
func (s *stateStore) Get(ctx context.Context, key string) (*domain.SourceState, error) {
	var state domain.SourceState
	var lastSuccess sql.NullString

	err := s.store.db.QueryRowContext(ctx, `
		SELECT source_key, cursor, subscription_id, signing_secret, last_success
		FROM source_state WHERE source_key = ?
	`, key).Scan(&state.SourceKey, &state.Cursor, &state.SubscriptionID, &state.SigningSecret, &lastSuccess)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting source state: %w", err)
	}

	state.LastSuccess = parseNullableTime(lastSuccess)
	return &state, nil
}

// Delete removes a source's runtime state.
func (s *stateStore) Delete(ctx context.Context, key string) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM source_state WHERE source_key = ?", key); err != nil {
		return fmt.Errorf("deleting source state: %w", err)
	}
	return nil
}
