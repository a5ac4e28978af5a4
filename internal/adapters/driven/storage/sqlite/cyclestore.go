package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/custodia-labs/sercha-events/internal/core/domain"
	"github.com/custodia-labs/sercha-events/internal/core/ports/driven"
)

// cycleStore implements driven.CycleStore.
type cycleStore struct {
	store *Store
}

var _ driven.CycleStore = (*cycleStore)(nil)

// RecordCycle stores a cycle result.
func (s *cycleStore) RecordCycle(ctx context.Context, result *domain.CycleResult) error {
	if result == nil {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO cycle_results (id, source_key, trigger_kind, started_at, ended_at, fetched, emitted, skipped, malformed, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, result.ID, result.SourceKey, string(result.Trigger),
		unixNano(result.StartedAt), unixNano(result.EndedAt),
		result.Fetched, result.Emitted, result.Skipped, result.Malformed,
		nullString(result.Error))
	if err != nil {
		return fmt.Errorf("recording cycle result: %w", err)
	}
	return nil
}

// History returns recent results for a source, most recent first.
func (s *cycleStore) History(ctx context.Context, sourceKey string, limit int) ([]domain.CycleResult, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, source_key, trigger_kind, started_at, ended_at, fetched, emitted, skipped, malformed, error
		FROM cycle_results
		WHERE source_key = ?
		ORDER BY started_at DESC
		LIMIT ?
	`, sourceKey, limit)
	if err != nil {
		return nil, fmt.Errorf("querying cycle history: %w", err)
	}
	defer rows.Close()

	var results []domain.CycleResult //nolint:prealloc // size unknown from query
	for rows.Next() {
		var result domain.CycleResult
		var trigger string
		var startedAt, endedAt int64
		var errMsg sql.NullString

		if err := rows.Scan(&result.ID, &result.SourceKey, &trigger, &startedAt, &endedAt,
			&result.Fetched, &result.Emitted, &result.Skipped, &result.Malformed, &errMsg); err != nil {
			return nil, fmt.Errorf("scanning cycle result: %w", err)
		}
		result.Trigger = domain.Trigger(trigger)
		result.StartedAt = fromUnixNano(startedAt)
		result.EndedAt = fromUnixNano(endedAt)
		if errMsg.Valid {
			result.Error = errMsg.String
		}
		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating cycle history: %w", err)
	}
	return results, nil
}

// Prune keeps the most recent 'keep' results per source.
func (s *cycleStore) Prune(ctx context.Context, keep int) error {
	_, err := s.store.db.ExecContext(ctx, `
		DELETE FROM cycle_results
		WHERE id NOT IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (PARTITION BY source_key ORDER BY started_at DESC) AS rn
				FROM cycle_results
			) WHERE rn <= ?
		)
	`, keep)
	if err != nil {
		return fmt.Errorf("pruning cycle history: %w", err)
	}
	return nil
}
