package services

import (
	"context"
	"errors"

	"github.com/custodia-labs/sercha-events/internal/core/domain"
	"github.com/custodia-labs/sercha-events/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-events/internal/logger"
)

// subscribe registers the source's event types with the provider and
// persists the returned subscription id. Providers without a Subscriber
// rely on externally configured webhooks and yield an empty id.
func (r *Runtime) subscribe(ctx context.Context, cfg *domain.SourceConfig, provider driven.Provider) (string, error) {
	subscriber, ok := provider.(driven.Subscriber)
	if !ok {
		return "", nil
	}

	sctx, cancel := context.WithTimeout(ctx, r.cfg.SubscribeTimeout)
	defer cancel()

	id, err := subscriber.Subscribe(sctx, cfg.WebhookEventTypes)
	if err != nil {
		var subErr *domain.SubscriptionError
		if errors.As(err, &subErr) {
			return "", err
		}
		return "", &domain.SubscriptionError{SourceKey: cfg.Key, EventTypes: cfg.WebhookEventTypes, Err: err}
	}
	logger.Debug("%s: subscribed to %v as %q", cfg.Key, cfg.WebhookEventTypes, id)

	var secret string
	if issuer, ok := provider.(driven.SecretIssuer); ok {
		secret = issuer.SigningSecret(id)
	}
	r.saveSubscription(ctx, cfg.Key, id, secret)
	return id, nil
}

// unsubscribe revokes a subscription. An empty id is a no-op.
func (r *Runtime) unsubscribe(ctx context.Context, cfg *domain.SourceConfig, provider driven.Provider, id string) error {
	if id == "" {
		return nil
	}
	subscriber, ok := provider.(driven.Subscriber)
	if !ok {
		return nil
	}

	sctx, cancel := context.WithTimeout(ctx, r.cfg.SubscribeTimeout)
	defer cancel()

	if err := subscriber.Unsubscribe(sctx, id); err != nil {
		return &domain.SubscriptionError{SourceKey: cfg.Key, EventTypes: cfg.WebhookEventTypes, Err: err}
	}
	logger.Debug("%s: unsubscribed %q", cfg.Key, id)

	r.clearSubscription(ctx, cfg.Key, id)
	return nil
}

// revokeStale removes a subscription left behind by a previous run that
// exited without deactivating the source.
func (r *Runtime) revokeStale(ctx context.Context, cfg *domain.SourceConfig, provider driven.Provider) {
	if r.cfg.States == nil {
		return
	}
	state, err := r.cfg.States.Get(ctx, cfg.Key)
	if err != nil || state.SubscriptionID == "" {
		return
	}
	if err := r.unsubscribe(ctx, cfg, provider, state.SubscriptionID); err != nil {
		logger.Warn("%s: revoking stale subscription %q: %v", cfg.Key, state.SubscriptionID, err)
	}
}

func (r *Runtime) saveSubscription(ctx context.Context, key, id, secret string) {
	r.updateState(ctx, key, func(state *domain.SourceState) bool {
		state.SubscriptionID = id
		state.SigningSecret = secret
		return true
	})
}

// clearSubscription forgets the persisted subscription only while it is
// still id. A reconfiguration persists its replacement before revoking id.
func (r *Runtime) clearSubscription(ctx context.Context, key, id string) {
	r.updateState(ctx, key, func(state *domain.SourceState) bool {
		if state.SubscriptionID != id {
			return false
		}
		state.SubscriptionID = ""
		state.SigningSecret = ""
		return true
	})
}

func (r *Runtime) updateState(ctx context.Context, key string, update func(*domain.SourceState) bool) {
	if r.cfg.States == nil {
		return
	}
	sctx, cancel := context.WithTimeout(ctx, r.cfg.Options.StoreTimeout)
	defer cancel()

	state, err := r.cfg.States.Get(sctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		state = &domain.SourceState{SourceKey: key}
	} else if err != nil {
		logger.Warn("%s: loading state: %v", key, err)
		return
	}
	if !update(state) {
		return
	}
	if err := r.cfg.States.Save(sctx, *state); err != nil {
		logger.Warn("%s: saving subscription: %v", key, err)
	}
}
