package driven

import (
	"context"

	"github.com/custodia-labs/sercha-events/internal/core/domain"
)

// Provider is the capability every source implementation supplies.
// A Provider is bound to one SourceConfig when it is built; the runtime is
// written once against this interface.
type Provider interface {
	// Type returns the provider type identifier (e.g., "github").
	Type() string

	// SupportedEventTypes returns the webhook event types the provider can
	// deliver. Nil means the provider does not restrict event types.
	SupportedEventTypes() []string

	// Identity derives the stable event identity from a raw item.
	// It must depend only on stable payload fields, never on ingestion time.
	Identity(item domain.RawItem) (string, error)

	// Summary returns a short human-readable description of the item.
	Summary(item domain.RawItem) (string, error)

	// ShouldEmit is the emission predicate applied to webhook deliveries
	// whose event type is subscribed.
	ShouldEmit(item domain.RawItem) bool

	SampleGenerator
}

// SampleGenerator produces deterministic, provider-shaped payloads without
// contacting the provider.
type SampleGenerator interface {
	// SampleTimerEvent returns an item shaped like one element of a polled batch.
	SampleTimerEvent() domain.RawItem

	// SampleWebhookEvent returns an item shaped like a webhook delivery body.
	SampleWebhookEvent() domain.RawItem
}

// Fetcher is implemented by providers that support polling.
type Fetcher interface {
	// FetchBatch returns the current batch of raw items. Pagination is handled
	// internally. cursorHint is the value returned by the previous successful
	// cycle (empty on the first) and the returned hint is persisted only if the
	// whole cycle succeeds.
	FetchBatch(ctx context.Context, cursorHint string) (items []domain.RawItem, nextHint string, err error)
}

// Subscriber is implemented by providers that manage a provider-side webhook
// subscription.
type Subscriber interface {
	// Subscribe registers the event types with the provider and returns an
	// opaque subscription id used to revoke it.
	Subscribe(ctx context.Context, eventTypes []string) (subscriptionID string, err error)

	// Unsubscribe revokes a subscription created by Subscribe.
	Unsubscribe(ctx context.Context, subscriptionID string) error
}

// SecretIssuer is implemented by subscribers whose provider generates the
// webhook signing secret when a subscription is created.
type SecretIssuer interface {
	// SigningSecret returns the secret issued for subscriptionID, or "" if
	// none is known.
	SigningSecret(subscriptionID string) string
}

// ProviderBuilder creates a Provider bound to a source configuration.
// TokenProvider may be nil for providers that don't require authentication.
type ProviderBuilder func(cfg domain.SourceConfig, tokens TokenProvider) (Provider, error)
