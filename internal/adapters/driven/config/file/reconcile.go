package file

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/custodia-labs/sercha-events/internal/core/domain"
	"github.com/custodia-labs/sercha-events/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-events/internal/logger"
)

// Reconcile brings the runtime from the previous set of source configs to
// next: removed sources are deactivated, new ones activated and changed ones
// reconfigured. It returns the configs that are now in effect, which differ
// from next when an operation fails; the failures are joined in the error.
func Reconcile(
	ctx context.Context,
	rt driving.SourceRuntime,
	previous, next []domain.SourceConfig,
) ([]domain.SourceConfig, error) {
	before := indexByKey(previous)
	after := indexByKey(next)
	applied := make(map[string]domain.SourceConfig, len(after))

	var errs []error
	for key, cfg := range before {
		if _, keep := after[key]; keep {
			continue
		}
		if err := rt.Deactivate(ctx, key); err != nil && !errors.Is(err, domain.ErrNotActive) {
			errs = append(errs, fmt.Errorf("deactivate %s: %w", key, err))
			applied[key] = cfg
		}
	}

	for _, cfg := range next {
		old, existed := before[cfg.Key]
		switch {
		case !existed:
			if err := rt.Activate(ctx, cfg); err != nil {
				errs = append(errs, fmt.Errorf("activate %s: %w", cfg.Key, err))
				continue
			}
		case !reflect.DeepEqual(old, cfg):
			if err := rt.Reconfigure(ctx, cfg); err != nil {
				errs = append(errs, fmt.Errorf("reconfigure %s: %w", cfg.Key, err))
				applied[cfg.Key] = old
				continue
			}
		}
		applied[cfg.Key] = cfg
	}

	result := make([]domain.SourceConfig, 0, len(applied))
	for _, cfg := range next {
		if c, ok := applied[cfg.Key]; ok {
			result = append(result, c)
			delete(applied, cfg.Key)
		}
	}
	for _, cfg := range previous {
		if c, ok := applied[cfg.Key]; ok {
			result = append(result, c)
		}
	}

	if len(errs) > 0 {
		logger.Warn("sources reconciled with %d error(s)", len(errs))
	}
	return result, errors.Join(errs...)
}

func indexByKey(configs []domain.SourceConfig) map[string]domain.SourceConfig {
	m := make(map[string]domain.SourceConfig, len(configs))
	for _, cfg := range configs {
		m[cfg.Key] = cfg
	}
	return m
}
