package github

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/sercha-events/internal/core/domain"
	"github.com/custodia-labs/sercha-events/internal/core/ports/driven"
)

const (
	// ProviderType is the registry key for the new-branch provider.
	ProviderType = "github"

	// EventCreate is the webhook event GitHub sends for new branches and tags.
	EventCreate = "create"

	refTypeBranch = "branch"
)

// Ensure Provider implements the driven interfaces.
var (
	_ driven.Provider   = (*Provider)(nil)
	_ driven.Fetcher    = (*Provider)(nil)
	_ driven.Subscriber = (*Provider)(nil)
)

// Provider emits an event for each new branch of one repository.
type Provider struct {
	sourceKey string
	config    *Config
	client    *Client
}

// New creates a provider bound to cfg.
func New(cfg domain.SourceConfig, tokens driven.TokenProvider) (*Provider, error) {
	config, err := ParseConfig(cfg)
	if err != nil {
		return nil, err
	}
	return &Provider{
		sourceKey: cfg.Key,
		config:    config,
		client:    NewClient(tokens, config.BaseURL),
	}, nil
}

// Builder is the driven.ProviderBuilder for the registry.
func Builder(cfg domain.SourceConfig, tokens driven.TokenProvider) (driven.Provider, error) {
	return New(cfg, tokens)
}

// Type returns the provider type.
func (p *Provider) Type() string { return ProviderType }

// SupportedEventTypes returns the webhook events the provider understands.
func (p *Provider) SupportedEventTypes() []string {
	return []string{EventCreate}
}

// Identity is the branch ref from a webhook body or the name from a
// listed branch.
func (p *Provider) Identity(item domain.RawItem) (string, error) {
	if ref := item.String("ref"); ref != "" {
		return ref, nil
	}
	if name := item.String("name"); name != "" {
		return name, nil
	}
	return "", errors.New("payload has neither ref nor name")
}

// Summary returns "New branch: <name>".
func (p *Provider) Summary(item domain.RawItem) (string, error) {
	name, err := p.Identity(item)
	if err != nil {
		return "", err
	}
	return "New branch: " + name, nil
}

// ShouldEmit keeps branch creations and drops tag creations.
func (p *Provider) ShouldEmit(item domain.RawItem) bool {
	return item.String("ref_type") == refTypeBranch
}

// FetchBatch lists the repository's branches. The cursor hint is unused
// because the branches endpoint has no change feed; dedup filters branches
// already emitted.
func (p *Provider) FetchBatch(ctx context.Context, _ string) ([]domain.RawItem, string, error) {
	branches, err := p.client.ListBranches(ctx, p.config.Owner, p.config.Repo, p.config.MaxPages)
	if err != nil {
		return nil, "", asFetchError(p.sourceKey, err)
	}

	items := make([]domain.RawItem, 0, len(branches))
	for _, b := range branches {
		payload := map[string]any{
			"name":       b.GetName(),
			"protected":  b.GetProtected(),
			"repository": p.config.FullName(),
		}
		if sha := b.GetCommit().GetSHA(); sha != "" {
			payload["commit"] = map[string]any{"sha": sha}
		}
		items = append(items, domain.RawItem{Payload: payload})
	}
	return items, "", nil
}

// Subscribe creates a repository hook for eventTypes and returns its id.
func (p *Provider) Subscribe(ctx context.Context, eventTypes []string) (string, error) {
	if p.config.CallbackURL == "" {
		return "", ErrNoCallbackURL
	}
	id, err := p.client.CreateHook(ctx, p.config.Owner, p.config.Repo,
		p.config.CallbackURL, p.config.WebhookSecret, eventTypes)
	if err != nil {
		return "", fmt.Errorf("create hook on %s: %w", p.config.FullName(), err)
	}
	return formatHookID(id), nil
}

// Unsubscribe deletes the repository hook created by Subscribe.
func (p *Provider) Unsubscribe(ctx context.Context, subscriptionID string) error {
	id, err := parseHookID(subscriptionID)
	if err != nil {
		return err
	}
	if err := p.client.DeleteHook(ctx, p.config.Owner, p.config.Repo, id); err != nil {
		return fmt.Errorf("delete hook %d on %s: %w", id, p.config.FullName(), err)
	}
	return nil
}
