package driven

import (
	"context"

	"github.com/custodia-labs/sercha-events/internal/core/domain"
)

// SourceStore persists source configurations.
type SourceStore interface {
	// Save stores or updates a source configuration.
	Save(ctx context.Context, cfg domain.SourceConfig) error

	// Get retrieves a source configuration by key.
	// Returns domain.ErrNotFound if the source does not exist.
	Get(ctx context.Context, key string) (*domain.SourceConfig, error)

	// Delete removes a source configuration.
	Delete(ctx context.Context, key string) error

	// List returns all stored source configurations.
	List(ctx context.Context) ([]domain.SourceConfig, error)
}

// StateStore persists per-source bookkeeping: cursor hints and
// provider subscription ids.
type StateStore interface {
	// Save stores or updates state.
	Save(ctx context.Context, state domain.SourceState) error

	// Get retrieves state for a source.
	// Returns domain.ErrNotFound if no state has been saved.
	Get(ctx context.Context, sourceKey string) (*domain.SourceState, error)

	// Delete removes state for a source.
	Delete(ctx context.Context, sourceKey string) error
}
