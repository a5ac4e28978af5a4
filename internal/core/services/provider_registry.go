package services

import (
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-events/internal/core/domain"
	"github.com/custodia-labs/sercha-events/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-events/internal/core/ports/driving"
)

// Ensure ProviderRegistry implements the interface.
var _ driving.ProviderRegistry = (*ProviderRegistry)(nil)

// TokenResolver returns the token provider for a source.
// It may return nil for sources that need no authentication.
type TokenResolver func(cfg domain.SourceConfig) driven.TokenProvider

// ProviderRegistry maps provider types to builders. It is populated at
// process start; there is no package-level catalog.
type ProviderRegistry struct {
	mu       sync.RWMutex
	builders map[string]driven.ProviderBuilder
	tokens   TokenResolver
}

// NewProviderRegistry creates an empty registry.
// tokens may be nil when no provider needs authentication.
func NewProviderRegistry(tokens TokenResolver) *ProviderRegistry {
	return &ProviderRegistry{
		builders: make(map[string]driven.ProviderBuilder),
		tokens:   tokens,
	}
}

// Register adds a provider builder for the given type, replacing any previous one.
func (r *ProviderRegistry) Register(providerType string, builder driven.ProviderBuilder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders[providerType] = builder
}

// Build returns a Provider bound to cfg.
func (r *ProviderRegistry) Build(cfg domain.SourceConfig) (driven.Provider, error) {
	r.mu.RLock()
	builder, ok := r.builders[cfg.Provider]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: provider %q", domain.ErrUnsupportedType, cfg.Provider)
	}

	var tokens driven.TokenProvider
	if r.tokens != nil {
		tokens = r.tokens(cfg)
	}

	provider, err := builder(cfg.Clone(), tokens)
	if err != nil {
		return nil, fmt.Errorf("build provider %s for %s: %w", cfg.Provider, cfg.Key, err)
	}
	return provider, nil
}

// Types returns all registered provider types, sorted.
func (r *ProviderRegistry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.builders))
	for t := range r.builders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// checkCapabilities verifies that a provider can serve the configured
// delivery mode and event types.
func checkCapabilities(cfg *domain.SourceConfig, provider driven.Provider) error {
	if cfg.Mode.AllowsPolling() {
		if _, ok := provider.(driven.Fetcher); !ok {
			return fmt.Errorf("%w: provider %s does not support polling", domain.ErrInvalidInput, provider.Type())
		}
	}

	supported := provider.SupportedEventTypes()
	if !cfg.Mode.AllowsWebhook() || supported == nil {
		return nil
	}
	known := make(map[string]struct{}, len(supported))
	for _, t := range supported {
		known[t] = struct{}{}
	}
	for _, t := range cfg.WebhookEventTypes {
		if _, ok := known[t]; !ok {
			return fmt.Errorf("%w: provider %s does not deliver event type %q", domain.ErrInvalidInput, provider.Type(), t)
		}
	}
	return nil
}
