package driving

import (
	"github.com/custodia-labs/sercha-events/internal/core/domain"
	"github.com/custodia-labs/sercha-events/internal/core/ports/driven"
)

// ProviderRegistry maps provider types to their builders.
type ProviderRegistry interface {
	// Register adds a provider builder for the given type.
	Register(providerType string, builder driven.ProviderBuilder)

	// Build returns a Provider bound to cfg.
	// Returns domain.ErrUnsupportedType if cfg.Provider is unknown.
	Build(cfg domain.SourceConfig) (driven.Provider, error)

	// Types returns all registered provider types, sorted.
	Types() []string
}
