package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/sercha-events/internal/core/domain"
	"github.com/custodia-labs/sercha-events/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-events/internal/core/ports/driving"
)

// Ensure DryRunner implements the interface.
var _ driving.DryRunner = (*DryRunner)(nil)

// DryRunner feeds provider-generated samples through the real drivers
// against a throwaway dedup store and a collecting sink. It never calls
// the provider's network operations.
type DryRunner struct {
	registry driving.ProviderRegistry
	newStore func() driven.DedupStore
	opts     Options
}

// NewDryRunner creates a dry runner. newStore supplies a fresh, empty dedup
// store for each run.
func NewDryRunner(registry driving.ProviderRegistry, newStore func() driven.DedupStore, opts Options) *DryRunner {
	return &DryRunner{registry: registry, newStore: newStore, opts: opts.withDefaults()}
}

// DryRun returns the events a source would emit for its sample payloads:
// the timer sample when the mode allows polling and the webhook sample when
// it allows webhooks. A webhook sample rejected by the emission predicate
// is reported as an error, since it means the generator and predicate disagree.
func (r *DryRunner) DryRun(ctx context.Context, cfg domain.SourceConfig) ([]domain.SampleEvent, error) {
	cfg = cfg.Clone()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	provider, err := r.registry.Build(cfg)
	if err != nil {
		return nil, err
	}
	if err := checkCapabilities(&cfg, provider); err != nil {
		return nil, err
	}

	// Samples always pass dedup so repeated dry runs show output.
	cfg.Dedupe = domain.DedupeNone

	sink := &collectingSink{}
	var samples []domain.SampleEvent

	if cfg.Mode.AllowsPolling() {
		raw := provider.SampleTimerEvent()
		raw.Sample = true

		driver := NewPollingDriver(r.newStore(), sink, nil, r.opts)
		fetcher := &sampleFetcher{Provider: provider, items: []domain.RawItem{raw}}
		if _, err := driver.Run(ctx, &cfg, fetcher, domain.TriggerSample); err != nil {
			return nil, fmt.Errorf("timer sample: %w", err)
		}
		for _, event := range sink.drain() {
			samples = append(samples, domain.SampleEvent{Raw: raw, Event: event})
		}
	}

	if cfg.Mode.AllowsWebhook() {
		raw := provider.SampleWebhookEvent()
		raw.Sample = true
		if raw.EventType == "" && len(cfg.WebhookEventTypes) > 0 {
			raw.EventType = cfg.WebhookEventTypes[0]
		}

		driver := NewWebhookDriver(r.newStore(), sink, r.opts)
		emitted, err := driver.deliver(ctx, &cfg, provider, raw, domain.TriggerSample)
		if err != nil {
			return nil, fmt.Errorf("webhook sample: %w", err)
		}
		if !emitted {
			return nil, &domain.MalformedPayloadError{
				SourceKey: cfg.Key,
				Reason:    fmt.Sprintf("webhook sample of type %q was not emitted", raw.EventType),
			}
		}
		for _, event := range sink.drain() {
			samples = append(samples, domain.SampleEvent{Raw: raw, Event: event})
		}
	}

	return samples, nil
}

// sampleFetcher serves fixed items in place of the provider's fetch.
type sampleFetcher struct {
	driven.Provider
	items []domain.RawItem
}

func (f *sampleFetcher) FetchBatch(context.Context, string) ([]domain.RawItem, string, error) {
	return f.items, "", nil
}

type collectingSink struct {
	mu     sync.Mutex
	events []domain.EmittedEvent
}

func (s *collectingSink) Emit(_ context.Context, event domain.EmittedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *collectingSink) drain() []domain.EmittedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := s.events
	s.events = nil
	return events
}
