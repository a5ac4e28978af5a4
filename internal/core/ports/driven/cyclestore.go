package driven

import (
	"context"

	"github.com/custodia-labs/sercha-events/internal/core/domain"
)

// CycleStore keeps a history of cycle results for inspection and crash recovery.
type CycleStore interface {
	// RecordCycle logs a cycle result.
	RecordCycle(ctx context.Context, result *domain.CycleResult) error

	// History returns recent results for a source.
	// Results are ordered by start time descending (most recent first).
	History(ctx context.Context, sourceKey string, limit int) ([]domain.CycleResult, error)

	// Prune removes old results beyond the retention limit.
	// Keeps the most recent 'keep' results per source.
	Prune(ctx context.Context, keep int) error
}
