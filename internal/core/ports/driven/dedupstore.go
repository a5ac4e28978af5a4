package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-events/internal/core/domain"
)

// DedupStore is a set of previously emitted identities, partitioned by
// source key. Partitions are independent: operations on one source never
// contend with another.
//
// Any failure must be returned as a *domain.DedupStoreUnavailableError so
// callers can abort the cycle without emitting.
type DedupStore interface {
	// Has reports whether identity has been recorded for the source.
	Has(ctx context.Context, sourceKey, identity string) (bool, error)

	// Record adds identity to the source's partition with its first-seen time.
	// Recording an identity that is already present keeps the original time.
	Record(ctx context.Context, record domain.DedupRecord) error

	// Evict removes records outside the retention policy: anything older than
	// MaxAge, then the oldest records beyond MaxRecords (FIFO by first-seen).
	// Returns the number of records removed.
	Evict(ctx context.Context, sourceKey string, policy domain.RetentionPolicy, now time.Time) (int, error)

	// Count returns the number of records held for the source.
	Count(ctx context.Context, sourceKey string) (int, error)

	// Forget drops the source's whole partition.
	Forget(ctx context.Context, sourceKey string) error
}
