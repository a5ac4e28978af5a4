package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-events/internal/core/domain"
	"github.com/custodia-labs/sercha-events/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-events/internal/logger"
)

const (
	// DefaultFetchTimeout bounds one provider fetch.
	DefaultFetchTimeout = 30 * time.Second

	// DefaultStoreTimeout bounds one dedup or state store operation.
	DefaultStoreTimeout = 5 * time.Second
)

// Options tunes the drivers. Zero values select defaults.
type Options struct {
	// FetchTimeout bounds each provider fetch.
	FetchTimeout time.Duration

	// StoreTimeout bounds each dedup store operation.
	StoreTimeout time.Duration

	// Metrics receives counters. Nil means driven.NopMetrics.
	Metrics driven.Metrics

	// Now returns the current time. Nil means time.Now.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = DefaultFetchTimeout
	}
	if o.StoreTimeout <= 0 {
		o.StoreTimeout = DefaultStoreTimeout
	}
	if o.Metrics == nil {
		o.Metrics = driven.NopMetrics{}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// emitter is the check, emit, record sequence shared by both drivers.
// Identity locks make the sequence atomic per (source, identity), so a
// webhook delivery racing a polling cycle cannot emit the same item twice.
type emitter struct {
	dedup driven.DedupStore
	sink  driven.EmissionSink
	opts  Options
	locks *identityLocks
}

func newEmitter(dedup driven.DedupStore, sink driven.EmissionSink, opts Options, locks *identityLocks) *emitter {
	if locks == nil {
		locks = newIdentityLocks()
	}
	return &emitter{dedup: dedup, sink: sink, opts: opts.withDefaults(), locks: locks}
}

// seen consults the dedup store for a source, honouring the strategy.
func (e *emitter) seen(ctx context.Context, cfg *domain.SourceConfig, identity string) (bool, error) {
	if cfg.Dedupe == domain.DedupeNone {
		return false, nil
	}
	sctx, cancel := context.WithTimeout(ctx, e.opts.StoreTimeout)
	defer cancel()
	has, err := e.dedup.Has(sctx, cfg.Key, identity)
	if err != nil {
		return false, asStoreError("has", err)
	}
	return has, nil
}

// evict applies the source's retention policy.
func (e *emitter) evict(ctx context.Context, cfg *domain.SourceConfig) error {
	if cfg.Dedupe == domain.DedupeNone {
		return nil
	}
	sctx, cancel := context.WithTimeout(ctx, e.opts.StoreTimeout)
	defer cancel()
	n, err := e.dedup.Evict(sctx, cfg.Key, cfg.EffectiveRetention(), e.opts.Now())
	if err != nil {
		return asStoreError("evict", err)
	}
	if n > 0 {
		logger.Debug("%s: evicted %d dedup records", cfg.Key, n)
	}
	return nil
}

// emitOnce emits event unless its identity is already recorded, then
// records it. The identity is recorded only after the sink accepted the
// event. Returns whether the event was emitted.
func (e *emitter) emitOnce(ctx context.Context, cfg *domain.SourceConfig, event domain.EmittedEvent) (bool, error) {
	unlock := e.locks.lock(cfg.Key, event.Identity)
	defer unlock()

	has, err := e.seen(ctx, cfg, event.Identity)
	if err != nil {
		return false, err
	}
	if has {
		e.opts.Metrics.Deduplicated(cfg.Key)
		return false, nil
	}

	if err := e.sink.Emit(ctx, event); err != nil {
		return false, fmt.Errorf("emit %s/%s: %w", cfg.Key, event.Identity, err)
	}
	e.opts.Metrics.Emitted(cfg.Key)

	if cfg.Dedupe == domain.DedupeNone {
		return true, nil
	}

	sctx, cancel := context.WithTimeout(ctx, e.opts.StoreTimeout)
	defer cancel()
	err = e.dedup.Record(sctx, domain.DedupRecord{
		SourceKey: cfg.Key,
		Identity:  event.Identity,
		FirstSeen: event.EmittedAt,
	})
	if err != nil {
		return true, asStoreError("record", err)
	}

	// The volatile window is a sliding one: trim after every record.
	if cfg.Dedupe == domain.DedupeUniqueVolatile {
		if err := e.evict(ctx, cfg); err != nil {
			return true, err
		}
	}
	return true, nil
}

func asStoreError(op string, err error) error {
	var storeErr *domain.DedupStoreUnavailableError
	if errors.As(err, &storeErr) {
		return err
	}
	return &domain.DedupStoreUnavailableError{Op: op, Err: err}
}

// identityLocks hands out one mutex per (source, identity) and frees it
// when the last holder releases it.
type identityLocks struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	mu   sync.Mutex
	refs int
}

func newIdentityLocks() *identityLocks {
	return &identityLocks{locks: make(map[string]*refLock)}
}

func (l *identityLocks) lock(sourceKey, identity string) func() {
	key := sourceKey + "\x00" + identity

	l.mu.Lock()
	rl, ok := l.locks[key]
	if !ok {
		rl = &refLock{}
		l.locks[key] = rl
	}
	rl.refs++
	l.mu.Unlock()

	rl.mu.Lock()
	return func() {
		rl.mu.Unlock()
		l.mu.Lock()
		rl.refs--
		if rl.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}
