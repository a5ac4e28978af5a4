package driven

import (
	"context"

	"github.com/custodia-labs/sercha-events/internal/core/domain"
)

// EmissionSink is the downstream consumer of emitted events.
// Events carry their identity so the sink may apply its own secondary dedup.
type EmissionSink interface {
	// Emit hands one event downstream. An error aborts the remainder of the
	// cycle; the event's identity is not recorded.
	Emit(ctx context.Context, event domain.EmittedEvent) error
}
