package driving

import (
	"context"

	"github.com/custodia-labs/sercha-events/internal/core/domain"
)

// SourceRuntime activates sources and routes triggers to the polling and
// webhook drivers.
type SourceRuntime interface {
	// Activate validates cfg, builds its provider, subscribes webhook sources
	// and arms the polling timer. On a subscription failure the source is
	// left deactivated and a *domain.SubscriptionError is returned.
	Activate(ctx context.Context, cfg domain.SourceConfig) error

	// Deactivate cancels the timer, waits for any in-flight cycle and
	// revokes the provider subscription.
	Deactivate(ctx context.Context, key string) error

	// Reconfigure replaces an active source's configuration. Interval changes
	// re-arm the timer; event type changes re-subscribe.
	Reconfigure(ctx context.Context, cfg domain.SourceConfig) error

	// Tick runs one polling cycle now. Returns domain.ErrCycleInProgress if
	// a cycle is already running and the overlap policy skips.
	Tick(ctx context.Context, key string) (*domain.CycleResult, error)

	// Deliver hands one authenticated webhook delivery to the source.
	// Returns whether an event was emitted.
	Deliver(ctx context.Context, key, eventType string, payload map[string]any) (bool, error)

	// Status returns the runtime state of one source.
	Status(ctx context.Context, key string) (*domain.SourceStatus, error)

	// List returns the status of every active source, ordered by key.
	List(ctx context.Context) []domain.SourceStatus

	// Errors streams steady-state errors from timer-driven cycles.
	Errors() <-chan error

	// Close deactivates every source.
	Close(ctx context.Context) error
}

// DryRunner validates a source's pipeline against generated samples.
type DryRunner interface {
	// DryRun feeds the provider's sample events through the normalizer and
	// drivers without contacting the provider.
	DryRun(ctx context.Context, cfg domain.SourceConfig) ([]domain.SampleEvent, error)
}
