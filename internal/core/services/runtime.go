package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-events/internal/core/domain"
	"github.com/custodia-labs/sercha-events/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-events/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-events/internal/logger"
)

// Ensure Runtime implements the interface.
var _ driving.SourceRuntime = (*Runtime)(nil)

const (
	// DefaultSubscribeTimeout bounds provider subscribe and unsubscribe calls.
	DefaultSubscribeTimeout = 30 * time.Second

	// DefaultHistoryKeep is the number of cycle results kept per source.
	DefaultHistoryKeep = 100

	errorBuffer = 64
)

// RuntimeConfig wires the runtime's collaborators.
type RuntimeConfig struct {
	// Registry builds providers. Required.
	Registry driving.ProviderRegistry

	// Dedup is the shared, source-partitioned dedup store. Required.
	Dedup driven.DedupStore

	// Sink receives emitted events. Required.
	Sink driven.EmissionSink

	// Sources persists active configurations. Optional.
	Sources driven.SourceStore

	// States persists cursor hints and subscription ids. Optional.
	States driven.StateStore

	// Cycles keeps cycle history. Optional.
	Cycles driven.CycleStore

	// Options tunes the drivers.
	Options Options

	// RunOnActivate fires the first polling tick immediately on activation.
	RunOnActivate bool

	// SubscribeTimeout bounds subscription calls.
	SubscribeTimeout time.Duration

	// HistoryKeep is the number of cycle results kept per source.
	HistoryKeep int
}

// Runtime drives every active source. Each source reacts to timer ticks
// and webhook deliveries independently; the dedup store is the only state
// shared between sources.
type Runtime struct {
	cfg       RuntimeConfig
	polling   *PollingDriver
	webhook   *WebhookDriver
	scheduler *Scheduler

	// lifecycle serialises Activate, Deactivate, Reconfigure and Close.
	lifecycle sync.Mutex

	mu     sync.RWMutex
	active map[string]*activeSource
	closed bool

	errCh     chan error
	closeOnce sync.Once
}

// activeSource is the runtime state of one activated source.
type activeSource struct {
	mu             sync.RWMutex
	cfg            domain.SourceConfig
	provider       driven.Provider
	subscriptionID string
	last           *domain.CycleResult

	// cycle bookkeeping, guarded by cycleMu
	cycleMu  sync.Mutex
	running  bool
	pending  bool
	stopping bool
	inflight sync.WaitGroup
}

func (a *activeSource) snapshot() (domain.SourceConfig, driven.Provider) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg, a.provider
}

// NewRuntime creates a runtime. Collaborators marked required must be set.
func NewRuntime(cfg RuntimeConfig) (*Runtime, error) {
	if cfg.Registry == nil || cfg.Dedup == nil || cfg.Sink == nil {
		return nil, fmt.Errorf("%w: runtime needs a registry, dedup store and sink", domain.ErrInvalidInput)
	}
	if cfg.SubscribeTimeout <= 0 {
		cfg.SubscribeTimeout = DefaultSubscribeTimeout
	}
	if cfg.HistoryKeep <= 0 {
		cfg.HistoryKeep = DefaultHistoryKeep
	}
	cfg.Options = cfg.Options.withDefaults()

	r := &Runtime{
		cfg:     cfg,
		polling: NewPollingDriver(cfg.Dedup, cfg.Sink, cfg.States, cfg.Options),
		webhook: NewWebhookDriver(cfg.Dedup, cfg.Sink, cfg.Options),
		active:  make(map[string]*activeSource),
		errCh:   make(chan error, errorBuffer),
	}
	r.webhook.shareLocks(r.polling)
	r.scheduler = NewScheduler(r.onTimer)
	return r, nil
}

// Activate validates cfg, builds its provider, subscribes and arms the timer.
func (r *Runtime) Activate(ctx context.Context, cfg domain.SourceConfig) error {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	if r.isClosed() {
		return domain.ErrRuntimeClosed
	}
	if _, err := r.get(cfg.Key); err == nil {
		return fmt.Errorf("%w: %s", domain.ErrAlreadyActive, cfg.Key)
	}

	cfg = cfg.Clone()
	if err := cfg.Validate(); err != nil {
		return err
	}
	provider, err := r.cfg.Registry.Build(cfg)
	if err != nil {
		return err
	}
	if err := checkCapabilities(&cfg, provider); err != nil {
		return err
	}

	src := &activeSource{cfg: cfg, provider: provider}

	if cfg.Mode.AllowsWebhook() {
		r.revokeStale(ctx, &cfg, provider)
		id, err := r.subscribe(ctx, &cfg, provider)
		if err != nil {
			return err
		}
		src.subscriptionID = id
	}

	if r.cfg.Sources != nil {
		if err := r.cfg.Sources.Save(ctx, cfg); err != nil {
			r.unsubscribe(ctx, &cfg, provider, src.subscriptionID)
			return fmt.Errorf("save source %s: %w", cfg.Key, err)
		}
	}

	r.mu.Lock()
	r.active[cfg.Key] = src
	r.mu.Unlock()

	if cfg.Mode.AllowsPolling() {
		if err := r.scheduler.Arm(cfg.Key, cfg.Interval, r.cfg.RunOnActivate); err != nil {
			r.mu.Lock()
			delete(r.active, cfg.Key)
			r.mu.Unlock()
			r.unsubscribe(ctx, &cfg, provider, src.subscriptionID)
			return err
		}
	}

	logger.Info("activated %s (%s, %s, dedupe=%s)", cfg.Key, cfg.Provider, cfg.Mode, cfg.Dedupe)
	return nil
}

// Deactivate stops the source's timer, lets an in-flight cycle finish and
// revokes its provider subscription. The dedup partition is kept so a later
// reactivation does not re-emit history.
func (r *Runtime) Deactivate(ctx context.Context, key string) error {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()
	return r.deactivate(ctx, key)
}

func (r *Runtime) deactivate(ctx context.Context, key string) error {
	r.mu.Lock()
	src, ok := r.active[key]
	if ok {
		delete(r.active, key)
	}
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrNotActive, key)
	}

	r.scheduler.Disarm(key)

	// No cycle starts or re-runs once stopping is set; the in-flight one
	// finishes.
	src.cycleMu.Lock()
	src.stopping = true
	src.pending = false
	src.cycleMu.Unlock()
	src.inflight.Wait()

	cfg, provider := src.snapshot()
	if err := r.unsubscribe(ctx, &cfg, provider, src.subscriptionID); err != nil {
		return err
	}

	logger.Info("deactivated %s", key)
	return nil
}

// Reconfigure replaces an active source's configuration.
//
//nolint:gocognit // Each branch handles one kind of change
func (r *Runtime) Reconfigure(ctx context.Context, cfg domain.SourceConfig) error {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	src, err := r.get(cfg.Key)
	if err != nil {
		return err
	}

	cfg = cfg.Clone()
	if err := cfg.Validate(); err != nil {
		return err
	}
	provider, err := r.cfg.Registry.Build(cfg)
	if err != nil {
		return err
	}
	if err := checkCapabilities(&cfg, provider); err != nil {
		return err
	}

	oldCfg, oldProvider := src.snapshot()

	// Subscribe the new set before revoking the old one so a failure leaves
	// the source running on its previous configuration.
	subscriptionID := src.subscriptionID
	resubscribe := !oldCfg.SameSubscription(&cfg) || oldCfg.Settings["callback_url"] != cfg.Settings["callback_url"]
	if resubscribe {
		newID := ""
		if cfg.Mode.AllowsWebhook() {
			newID, err = r.subscribe(ctx, &cfg, provider)
			if err != nil {
				return err
			}
		}
		if err := r.unsubscribe(ctx, &oldCfg, oldProvider, subscriptionID); err != nil {
			logger.Warn("%s: revoking previous subscription: %v", cfg.Key, err)
		}
		subscriptionID = newID
	}

	retime := oldCfg.Mode.AllowsPolling() != cfg.Mode.AllowsPolling() || oldCfg.Interval != cfg.Interval
	if retime {
		r.scheduler.Disarm(cfg.Key)
	}

	src.mu.Lock()
	src.cfg = cfg
	src.provider = provider
	src.subscriptionID = subscriptionID
	src.mu.Unlock()

	if retime && cfg.Mode.AllowsPolling() {
		if err := r.scheduler.Arm(cfg.Key, cfg.Interval, false); err != nil {
			return err
		}
	}

	if r.cfg.Sources != nil {
		if err := r.cfg.Sources.Save(ctx, cfg); err != nil {
			return fmt.Errorf("save source %s: %w", cfg.Key, err)
		}
	}

	logger.Info("reconfigured %s", cfg.Key)
	return nil
}

// Tick runs one polling cycle now.
func (r *Runtime) Tick(ctx context.Context, key string) (*domain.CycleResult, error) {
	return r.runCycle(ctx, key, domain.TriggerManual)
}

func (r *Runtime) onTimer(ctx context.Context, key string) {
	_, err := r.runCycle(ctx, key, domain.TriggerTimer)
	if err != nil && !errors.Is(err, domain.ErrCycleInProgress) && !errors.Is(err, domain.ErrNotActive) {
		r.report(fmt.Errorf("source %s: %w", key, err))
	}
}

// runCycle enforces the overlap policy: at most one cycle per source is in
// flight. With OverlapQueue a tick that arrives mid-cycle schedules exactly
// one re-run when the current cycle finishes.
func (r *Runtime) runCycle(ctx context.Context, key string, trigger domain.Trigger) (*domain.CycleResult, error) {
	src, err := r.get(key)
	if err != nil {
		return nil, err
	}
	cfg, _ := src.snapshot()
	if !cfg.Mode.AllowsPolling() {
		return nil, fmt.Errorf("%w: %s is %s", domain.ErrModeNotAllowed, key, cfg.Mode)
	}

	src.cycleMu.Lock()
	if src.stopping {
		src.cycleMu.Unlock()
		return nil, fmt.Errorf("%w: %s", domain.ErrNotActive, key)
	}
	if src.running {
		if cfg.EffectiveOverlap() == domain.OverlapQueue {
			src.pending = true
		}
		src.cycleMu.Unlock()
		logger.Debug("%s: cycle already running, tick %s", key, cfg.EffectiveOverlap())
		return nil, fmt.Errorf("%w: %s", domain.ErrCycleInProgress, key)
	}
	src.running = true
	src.inflight.Add(1)
	src.cycleMu.Unlock()

	defer src.inflight.Done()

	for {
		cfg, provider := src.snapshot()
		result, err := r.polling.Run(ctx, &cfg, provider, trigger)
		r.record(ctx, src, result)
		if err != nil {
			logger.Error("%s: cycle %s failed: %v", key, result.ID, err)
		} else {
			logger.Info("%s: cycle %s emitted %d of %d items", key, result.ID, result.Emitted, result.Fetched)
		}

		src.cycleMu.Lock()
		if src.pending && !src.stopping {
			src.pending = false
			src.cycleMu.Unlock()
			if err != nil {
				r.report(fmt.Errorf("source %s: %w", key, err))
			}
			continue
		}
		src.running = false
		src.cycleMu.Unlock()
		return result, err
	}
}

// Deliver hands a webhook delivery to the source.
func (r *Runtime) Deliver(ctx context.Context, key, eventType string, payload map[string]any) (bool, error) {
	src, err := r.get(key)
	if err != nil {
		return false, err
	}
	cfg, provider := src.snapshot()

	start := r.cfg.Options.Now()
	emitted, err := r.webhook.Deliver(ctx, &cfg, provider, eventType, payload)

	result := &domain.CycleResult{
		ID:        uuid.NewString(),
		SourceKey: key,
		Trigger:   domain.TriggerWebhook,
		StartedAt: start,
		EndedAt:   r.cfg.Options.Now(),
		Fetched:   1,
	}
	switch {
	case err != nil && errors.Is(err, domain.ErrMalformedPayload):
		result.Malformed = 1
	case err != nil:
		result.Error = err.Error()
		if emitted {
			result.Emitted = 1
		}
	case emitted:
		result.Emitted = 1
	default:
		result.Skipped = 1
	}
	r.record(ctx, src, result)
	return emitted, err
}

// Status returns the runtime state of one source.
func (r *Runtime) Status(_ context.Context, key string) (*domain.SourceStatus, error) {
	src, err := r.get(key)
	if err != nil {
		return nil, err
	}
	status := r.status(key, src)
	return &status, nil
}

// List returns the status of every active source, ordered by key.
func (r *Runtime) List(_ context.Context) []domain.SourceStatus {
	r.mu.RLock()
	keys := make([]string, 0, len(r.active))
	sources := make(map[string]*activeSource, len(r.active))
	for key, src := range r.active {
		keys = append(keys, key)
		sources[key] = src
	}
	r.mu.RUnlock()

	sort.Strings(keys)
	statuses := make([]domain.SourceStatus, 0, len(keys))
	for _, key := range keys {
		statuses = append(statuses, r.status(key, sources[key]))
	}
	return statuses
}

func (r *Runtime) status(key string, src *activeSource) domain.SourceStatus {
	cfg, _ := src.snapshot()

	src.cycleMu.Lock()
	running := src.running
	src.cycleMu.Unlock()

	src.mu.RLock()
	var last *domain.CycleResult
	if src.last != nil {
		copied := *src.last
		last = &copied
	}
	src.mu.RUnlock()

	status := domain.SourceStatus{
		Key:       key,
		Name:      cfg.DisplayName(),
		Mode:      cfg.Mode,
		Active:    true,
		Running:   running,
		LastCycle: last,
	}
	if cfg.Mode.AllowsPolling() {
		status.Interval = cfg.Interval
		status.NextRun, _ = r.scheduler.NextRun(key)
	}
	return status
}

// Errors streams steady-state errors from timer-driven cycles.
// The channel is closed by Close.
func (r *Runtime) Errors() <-chan error {
	return r.errCh
}

// Close deactivates every source and stops the scheduler.
func (r *Runtime) Close(ctx context.Context) error {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	keys := make([]string, 0, len(r.active))
	for key := range r.active {
		keys = append(keys, key)
	}
	r.mu.Unlock()

	var errs []error
	for _, key := range keys {
		if err := r.deactivate(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	r.scheduler.Stop()
	r.closeOnce.Do(func() { close(r.errCh) })

	return errors.Join(errs...)
}

func (r *Runtime) get(key string) (*activeSource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src, ok := r.active[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotActive, key)
	}
	return src, nil
}

func (r *Runtime) isClosed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}

// report publishes a steady-state error without blocking the cycle.
func (r *Runtime) report(err error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.errCh <- err:
	default:
		logger.Warn("error channel full, dropping: %v", err)
	}
}

func (r *Runtime) record(ctx context.Context, src *activeSource, result *domain.CycleResult) {
	src.mu.Lock()
	src.last = result
	src.mu.Unlock()

	if r.cfg.Cycles == nil {
		return
	}
	// History is best effort and must not fail a cycle.
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.Options.StoreTimeout)
	defer cancel()
	if err := r.cfg.Cycles.RecordCycle(rctx, result); err != nil {
		logger.Warn("%s: recording cycle: %v", result.SourceKey, err)
		return
	}
	if err := r.cfg.Cycles.Prune(rctx, r.cfg.HistoryKeep); err != nil {
		logger.Warn("pruning cycle history: %v", err)
	}
}
