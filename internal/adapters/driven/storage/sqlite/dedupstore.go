package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-events/internal/core/domain"
	"github.com/custodia-labs/sercha-events/internal/core/ports/driven"
)

// dedupStore implements driven.DedupStore.
type dedupStore struct {
	store *Store
}

var _ driven.DedupStore = (*dedupStore)(nil)

// Has reports whether identity is recorded for the source.
func (s *dedupStore) Has(ctx context.Context, sourceKey, identity string) (bool, error) {
	var exists int
	err := s.store.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM dedup_records WHERE source_key = ? AND identity = ?)
	`, sourceKey, identity).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking dedup record: %w", err)
	}
	return exists == 1, nil
}

// Record stores an identity. Recording an existing identity keeps its
// original first-seen time.
func (s *dedupStore) Record(ctx context.Context, record domain.DedupRecord) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO dedup_records (source_key, identity, first_seen)
		VALUES (?, ?, ?)
		ON CONFLICT(source_key, identity) DO NOTHING
	`, record.SourceKey, record.Identity, unixNano(record.FirstSeen))
	if err != nil {
		return fmt.Errorf("recording dedup record: %w", err)
	}
	return nil
}

// Evict removes records outside the retention policy, oldest first.
func (s *dedupStore) Evict(ctx context.Context, sourceKey string, policy domain.RetentionPolicy, now time.Time) (int, error) {
	if policy.IsZero() {
		return 0, nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning eviction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var removed int64
	if policy.MaxAge > 0 {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM dedup_records WHERE source_key = ? AND first_seen < ?
		`, sourceKey, unixNano(now.Add(-policy.MaxAge)))
		if err != nil {
			return 0, fmt.Errorf("evicting expired records: %w", err)
		}
		n, _ := res.RowsAffected()
		removed += n
	}

	if policy.MaxRecords > 0 {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM dedup_records WHERE seq IN (
				SELECT seq FROM dedup_records
				WHERE source_key = ?
				ORDER BY first_seen ASC, seq ASC
				LIMIT MAX((SELECT COUNT(*) FROM dedup_records WHERE source_key = ?) - ?, 0)
			)
		`, sourceKey, sourceKey, policy.MaxRecords)
		if err != nil {
			return 0, fmt.Errorf("evicting surplus records: %w", err)
		}
		n, _ := res.RowsAffected()
		removed += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing eviction: %w", err)
	}
	return int(removed), nil
}

// Count returns the number of records held for the source.
func (s *dedupStore) Count(ctx context.Context, sourceKey string) (int, error) {
	var n int
	err := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM dedup_records WHERE source_key = ?", sourceKey).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting dedup records: %w", err)
	}
	return n, nil
}

// Forget drops every record for the source.
func (s *dedupStore) Forget(ctx context.Context, sourceKey string) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM dedup_records WHERE source_key = ?", sourceKey); err != nil {
		return fmt.Errorf("forgetting dedup records: %w", err)
	}
	return nil
}
