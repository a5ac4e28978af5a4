package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-events/internal/core/domain"
	"github.com/custodia-labs/sercha-events/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-events/internal/logger"
)

// PollState is a step of the polling state machine.
type PollState string

const (
	PollIdle      PollState = "idle"
	PollFetching  PollState = "fetching"
	PollFiltering PollState = "filtering"
	PollEmitting  PollState = "emitting"
)

// PollingDriver runs one fetch, filter, emit cycle for a source.
// It holds no per-source state between cycles; overlap control lives in Runtime.
type PollingDriver struct {
	emitter *emitter
	states  driven.StateStore
	opts    Options
}

// NewPollingDriver creates a polling driver.
// states may be nil, in which case cursor hints are not persisted.
func NewPollingDriver(dedup driven.DedupStore, sink driven.EmissionSink, states driven.StateStore, opts Options) *PollingDriver {
	opts = opts.withDefaults()
	return &PollingDriver{
		emitter: newEmitter(dedup, sink, opts, nil),
		states:  states,
		opts:    opts,
	}
}

// candidate is a filtered raw item awaiting emission.
type candidate struct {
	item     domain.RawItem
	identity string
}

// Run executes one cycle and returns its result. The returned error is the
// cycle-level failure, if any; it is also recorded in the result.
// Items already emitted and recorded before a failure stay recorded.
func (d *PollingDriver) Run(
	ctx context.Context,
	cfg *domain.SourceConfig,
	provider driven.Provider,
	trigger domain.Trigger,
) (*domain.CycleResult, error) {
	result := &domain.CycleResult{
		ID:        uuid.NewString(),
		SourceKey: cfg.Key,
		Trigger:   trigger,
		StartedAt: d.opts.Now(),
	}

	err := d.run(ctx, cfg, provider, result)

	result.EndedAt = d.opts.Now()
	if err != nil {
		result.Error = err.Error()
		d.opts.Metrics.CycleError(cfg.Key, domain.ErrorKind(err))
	}
	d.opts.Metrics.ObserveCycle(cfg.Key, result.Duration())
	d.transition(cfg, PollIdle)
	return result, err
}

//nolint:gocognit // Sequential state machine steps
func (d *PollingDriver) run(
	ctx context.Context,
	cfg *domain.SourceConfig,
	provider driven.Provider,
	result *domain.CycleResult,
) error {
	if !cfg.Mode.AllowsPolling() {
		return fmt.Errorf("%w: %s is %s", domain.ErrModeNotAllowed, cfg.Key, cfg.Mode)
	}
	fetcher, ok := provider.(driven.Fetcher)
	if !ok {
		return fmt.Errorf("%w: provider %s cannot poll", domain.ErrModeNotAllowed, provider.Type())
	}

	cursor, err := d.loadCursor(ctx, cfg.Key)
	if err != nil {
		return err
	}

	// Fetching
	d.transition(cfg, PollFetching)
	items, nextCursor, err := d.fetch(ctx, cfg, fetcher, cursor)
	if err != nil {
		return err
	}
	result.Fetched = len(items)

	// Filtering
	d.transition(cfg, PollFiltering)
	if err := d.emitter.evict(ctx, cfg); err != nil {
		return err
	}

	normalizer := NewNormalizer(cfg, provider)
	candidates := make([]candidate, 0, len(items))
	inBatch := make(map[string]struct{}, len(items))
	for _, item := range items {
		id, err := normalizer.Identity(item)
		if err != nil {
			result.Malformed++
			d.opts.Metrics.Dropped(cfg.Key, DropMalformed)
			logger.Warn("%s: skipping item: %v", cfg.Key, err)
			continue
		}
		if _, dup := inBatch[id]; dup && cfg.Dedupe != domain.DedupeNone {
			result.Skipped++
			d.opts.Metrics.Deduplicated(cfg.Key)
			continue
		}
		inBatch[id] = struct{}{}

		seen, err := d.emitter.seen(ctx, cfg, id)
		if err != nil {
			return err
		}
		if seen {
			result.Skipped++
			d.opts.Metrics.Deduplicated(cfg.Key)
			continue
		}
		candidates = append(candidates, candidate{item: item, identity: id})
	}

	// Oldest first; items without an ordering field keep fetch order.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].item.OrderKey.Before(candidates[j].item.OrderKey)
	})

	// Emitting
	d.transition(cfg, PollEmitting)
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return err
		}
		event := normalizer.Event(c.item, c.identity, result.Trigger, d.opts.Now())
		emitted, err := d.emitter.emitOnce(ctx, cfg, event)
		if emitted {
			result.Emitted++
		}
		if err != nil {
			return err
		}
		if !emitted {
			// Recorded by a concurrent webhook delivery since filtering.
			result.Skipped++
		}
	}

	if cfg.Dedupe == domain.DedupeUnique {
		if err := d.emitter.evict(ctx, cfg); err != nil {
			return err
		}
	}

	return d.saveCursor(ctx, cfg.Key, nextCursor)
}

func (d *PollingDriver) fetch(
	ctx context.Context,
	cfg *domain.SourceConfig,
	fetcher driven.Fetcher,
	cursor string,
) ([]domain.RawItem, string, error) {
	fctx, cancel := context.WithTimeout(ctx, d.opts.FetchTimeout)
	defer cancel()

	items, next, err := fetcher.FetchBatch(fctx, cursor)
	if err != nil {
		var fetchErr *domain.TransientFetchError
		if errors.As(err, &fetchErr) {
			return nil, "", err
		}
		return nil, "", &domain.TransientFetchError{SourceKey: cfg.Key, Err: err}
	}
	logger.Debug("%s: fetched %d items", cfg.Key, len(items))
	return items, next, nil
}

func (d *PollingDriver) loadCursor(ctx context.Context, key string) (string, error) {
	if d.states == nil {
		return "", nil
	}
	sctx, cancel := context.WithTimeout(ctx, d.opts.StoreTimeout)
	defer cancel()
	state, err := d.states.Get(sctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load state for %s: %w", key, err)
	}
	return state.Cursor, nil
}

func (d *PollingDriver) saveCursor(ctx context.Context, key, cursor string) error {
	if d.states == nil {
		return nil
	}
	sctx, cancel := context.WithTimeout(ctx, d.opts.StoreTimeout)
	defer cancel()

	state, err := d.states.Get(sctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		state = &domain.SourceState{SourceKey: key}
	} else if err != nil {
		return fmt.Errorf("load state for %s: %w", key, err)
	}
	state.Cursor = cursor
	state.LastSuccess = d.opts.Now()
	if err := d.states.Save(sctx, *state); err != nil {
		return fmt.Errorf("save state for %s: %w", key, err)
	}
	return nil
}

func (d *PollingDriver) transition(cfg *domain.SourceConfig, state PollState) {
	logger.Debug("%s: %s", cfg.Key, state)
}
