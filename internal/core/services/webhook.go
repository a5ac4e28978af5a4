package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/sercha-events/internal/core/domain"
	"github.com/custodia-labs/sercha-events/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-events/internal/logger"
)

// Drop reasons reported to metrics.
const (
	DropUnsubscribed = "unsubscribed"
	DropPredicate    = "predicate"
	DropMalformed    = "malformed"
)

// WebhookDriver handles one webhook delivery at a time. It keeps no state
// between deliveries; dedup applies exactly as for polling since providers
// retry deliveries.
type WebhookDriver struct {
	emitter *emitter
	opts    Options
}

// NewWebhookDriver creates a webhook driver.
func NewWebhookDriver(dedup driven.DedupStore, sink driven.EmissionSink, opts Options) *WebhookDriver {
	opts = opts.withDefaults()
	return &WebhookDriver{
		emitter: newEmitter(dedup, sink, opts, nil),
		opts:    opts,
	}
}

// shareLocks makes the driver use the same identity locks as a polling
// driver, so deliveries and cycles for one source serialise per identity.
func (d *WebhookDriver) shareLocks(p *PollingDriver) {
	d.emitter.locks = p.emitter.locks
}

// Deliver processes one delivery. Unsubscribed event types and deliveries
// rejected by the emission predicate are dropped silently: the result is
// (false, nil) and the transport should still acknowledge the delivery.
func (d *WebhookDriver) Deliver(
	ctx context.Context,
	cfg *domain.SourceConfig,
	provider driven.Provider,
	eventType string,
	payload map[string]any,
) (bool, error) {
	item := domain.RawItem{Payload: payload, EventType: eventType}
	return d.deliver(ctx, cfg, provider, item, domain.TriggerWebhook)
}

func (d *WebhookDriver) deliver(
	ctx context.Context,
	cfg *domain.SourceConfig,
	provider driven.Provider,
	item domain.RawItem,
	trigger domain.Trigger,
) (bool, error) {
	if !cfg.Mode.AllowsWebhook() {
		return false, fmt.Errorf("%w: %s is %s", domain.ErrModeNotAllowed, cfg.Key, cfg.Mode)
	}

	if !cfg.Subscribes(item.EventType) {
		d.opts.Metrics.Dropped(cfg.Key, DropUnsubscribed)
		logger.Debug("%s: ignoring unsubscribed event type %q", cfg.Key, item.EventType)
		return false, nil
	}

	normalizer := NewNormalizer(cfg, provider)
	if item.Payload == nil {
		d.opts.Metrics.Dropped(cfg.Key, DropMalformed)
		return false, &domain.MalformedPayloadError{SourceKey: cfg.Key, Reason: "empty payload"}
	}

	if !provider.ShouldEmit(item) {
		d.opts.Metrics.Dropped(cfg.Key, DropPredicate)
		logger.Debug("%s: %s delivery rejected by emission predicate", cfg.Key, item.EventType)
		return false, nil
	}

	id, err := normalizer.Identity(item)
	if err != nil {
		d.opts.Metrics.Dropped(cfg.Key, DropMalformed)
		return false, err
	}

	if err := d.emitter.evict(ctx, cfg); err != nil {
		d.opts.Metrics.CycleError(cfg.Key, domain.ErrorKind(err))
		return false, err
	}

	event := normalizer.Event(item, id, trigger, d.opts.Now())
	emitted, err := d.emitter.emitOnce(ctx, cfg, event)
	if err != nil {
		d.opts.Metrics.CycleError(cfg.Key, domain.ErrorKind(err))
		return emitted, err
	}
	if emitted && cfg.Dedupe == domain.DedupeUnique {
		if err := d.emitter.evict(ctx, cfg); err != nil {
			return true, err
		}
	}
	if !emitted {
		logger.Debug("%s: duplicate delivery %s", cfg.Key, id)
	}
	return emitted, nil
}
