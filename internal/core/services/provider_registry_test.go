package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-events/internal/core/domain"
	"github.com/custodia-labs/sercha-events/internal/core/ports/driven"
)

type staticToken string

func (s staticToken) GetToken(context.Context) (string, error) { return string(s), nil }
func (s staticToken) IsAuthenticated() bool                    { return s != "" }

func TestProviderRegistry_Build(t *testing.T) {
	var gotTokens driven.TokenProvider
	var gotCfg domain.SourceConfig

	r := NewProviderRegistry(func(domain.SourceConfig) driven.TokenProvider { return staticToken("t") })
	r.Register("mock", func(cfg domain.SourceConfig, tokens driven.TokenProvider) (driven.Provider, error) {
		gotCfg, gotTokens = cfg, tokens
		return newMockFetcher(), nil
	})

	cfg := pollingConfig("src", domain.DedupeUnique)
	cfg.Settings = map[string]string{"repo": "a/b"}
	p, err := r.Build(cfg)
	require.NoError(t, err)
	assert.Equal(t, "mock", p.Type())
	assert.Equal(t, "src", gotCfg.Key)
	assert.True(t, gotTokens.IsAuthenticated())

	// The builder receives its own copy of the settings.
	gotCfg.Settings["repo"] = "changed"
	assert.Equal(t, "a/b", cfg.Settings["repo"])
}

func TestProviderRegistry_UnknownType(t *testing.T) {
	r := NewProviderRegistry(nil)
	_, err := r.Build(pollingConfig("src", domain.DedupeUnique))
	assert.True(t, errors.Is(err, domain.ErrUnsupportedType))
}

func TestProviderRegistry_BuilderError(t *testing.T) {
	r := NewProviderRegistry(nil)
	r.Register("mock", func(domain.SourceConfig, driven.TokenProvider) (driven.Provider, error) {
		return nil, domain.ErrInvalidInput
	})
	_, err := r.Build(pollingConfig("src", domain.DedupeUnique))
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestProviderRegistry_Types(t *testing.T) {
	r := NewProviderRegistry(nil)
	noop := func(domain.SourceConfig, driven.TokenProvider) (driven.Provider, error) { return nil, nil }
	r.Register("zeta", noop)
	r.Register("alpha", noop)
	assert.Equal(t, []string{"alpha", "zeta"}, r.Types())
}

func TestCheckCapabilities(t *testing.T) {
	webhookOnly := &mockProvider{typ: "hooks", supported: []string{"create", "delete"}}

	tests := []struct {
		name     string
		cfg      domain.SourceConfig
		provider driven.Provider
		wantErr  bool
	}{
		{"polling with fetcher", pollingConfig("a", domain.DedupeUnique), newMockFetcher(), false},
		{"polling without fetcher", pollingConfig("a", domain.DedupeUnique), webhookOnly, true},
		{"supported event type", webhookConfig("a", domain.DedupeUnique), webhookOnly, false},
		{"unrestricted provider", webhookConfig("a", domain.DedupeUnique), &mockProvider{typ: "any"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkCapabilities(&tt.cfg, tt.provider)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	cfg := webhookConfig("a", domain.DedupeUnique)
	cfg.WebhookEventTypes = []string{"push"}
	assert.ErrorIs(t, checkCapabilities(&cfg, webhookOnly), domain.ErrInvalidInput)
}
