package sink

import (
	"context"
	"errors"

	"github.com/custodia-labs/sercha-events/internal/core/domain"
	"github.com/custodia-labs/sercha-events/internal/core/ports/driven"
)

// Ensure FanOut implements the interface.
var _ driven.EmissionSink = FanOut(nil)

// FanOut emits every event to each sink in order. Every sink is tried;
// the emit fails if any sink failed.
type FanOut []driven.EmissionSink

// Emit sends the event to all sinks.
func (f FanOut) Emit(ctx context.Context, event domain.EmittedEvent) error {
	var errs []error
	for _, s := range f {
		if err := s.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
