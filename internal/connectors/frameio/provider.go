package frameio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/custodia-labs/sercha-events/internal/core/domain"
	"github.com/custodia-labs/sercha-events/internal/core/ports/driven"
)

// ProviderType is the registry key for the Frame.io provider.
const ProviderType = "frameio"

// Setting keys read from domain.SourceConfig.Settings.
const (
	SettingTeamID      = "team_id"
	SettingCallbackURL = "callback_url"
	SettingHookName    = "hook_name"
	SettingBaseURL     = "base_url"
)

var (
	// ErrNoTeam indicates the team_id setting is missing.
	ErrNoTeam = errors.New("frameio: team_id is required")

	// ErrNoCallbackURL indicates the callback_url setting is missing.
	ErrNoCallbackURL = errors.New("frameio: callback_url is required")
)

var (
	_ driven.Provider     = (*Provider)(nil)
	_ driven.Subscriber   = (*Provider)(nil)
	_ driven.SecretIssuer = (*Provider)(nil)
)

// Provider turns Frame.io webhook deliveries into events.
type Provider struct {
	sourceKey   string
	teamID      string
	callbackURL string
	hookName    string
	client      *Client

	mu      sync.Mutex
	secrets map[string]string
}

// New creates a provider bound to cfg.
func New(cfg domain.SourceConfig, tokens driven.TokenProvider) (*Provider, error) {
	p := &Provider{
		sourceKey:   cfg.Key,
		teamID:      cfg.Setting(SettingTeamID, ""),
		callbackURL: cfg.Setting(SettingCallbackURL, ""),
		hookName:    cfg.Setting(SettingHookName, cfg.Key),
		client:      NewClient(tokens, cfg.Setting(SettingBaseURL, "")),
		secrets:     make(map[string]string),
	}
	if p.teamID == "" {
		return nil, ErrNoTeam
	}
	if p.callbackURL == "" {
		return nil, ErrNoCallbackURL
	}
	return p, nil
}

// Builder is the driven.ProviderBuilder for the registry.
func Builder(cfg domain.SourceConfig, tokens driven.TokenProvider) (driven.Provider, error) {
	return New(cfg, tokens)
}

// Type returns the provider type.
func (p *Provider) Type() string { return ProviderType }

// SupportedEventTypes returns the Frame.io event catalog.
func (p *Provider) SupportedEventTypes() []string { return EventTypes() }

// Identity is "<resource.id>:<type>".
func (p *Provider) Identity(item domain.RawItem) (string, error) {
	resourceID, eventType := resourceID(item), eventType(item)
	if resourceID == "" {
		return "", errors.New("payload has no resource.id")
	}
	if eventType == "" {
		return "", errors.New("payload has no event type")
	}
	return resourceID + ":" + eventType, nil
}

// Summary is "<type>: <resource.id>".
func (p *Provider) Summary(item domain.RawItem) (string, error) {
	resourceID, eventType := resourceID(item), eventType(item)
	if resourceID == "" || eventType == "" {
		return "", errors.New("payload has no resource")
	}
	return fmt.Sprintf("%s: %s", eventType, resourceID), nil
}

// ShouldEmit accepts every subscribed delivery that names a resource.
func (p *Provider) ShouldEmit(item domain.RawItem) bool {
	return resourceID(item) != ""
}

// Subscribe creates a team hook for eventTypes.
func (p *Provider) Subscribe(ctx context.Context, eventTypes []string) (string, error) {
	hook, err := p.client.CreateHook(ctx, p.teamID, Hook{
		Name:   p.hookName,
		URL:    p.callbackURL,
		Events: eventTypes,
		Active: true,
	})
	if err != nil {
		return "", err
	}
	if hook.ID == "" {
		return "", errors.New("frameio: created hook has no id")
	}
	if hook.Secret != "" {
		p.mu.Lock()
		p.secrets[hook.ID] = hook.Secret
		p.mu.Unlock()
	}
	return hook.ID, nil
}

// Unsubscribe deletes the team hook.
func (p *Provider) Unsubscribe(ctx context.Context, subscriptionID string) error {
	if err := p.client.DeleteHook(ctx, subscriptionID); err != nil {
		return err
	}
	p.mu.Lock()
	delete(p.secrets, subscriptionID)
	p.mu.Unlock()
	return nil
}

// SigningSecret returns the secret Frame.io issued for a hook created by
// Subscribe. Deliveries from the hook are signed with it.
func (p *Provider) SigningSecret(subscriptionID string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.secrets[subscriptionID]
}

func resourceID(item domain.RawItem) string {
	id, _ := item.Map("resource")["id"].(string)
	return id
}

func eventType(item domain.RawItem) string {
	if t := item.String("type"); t != "" {
		return t
	}
	return item.EventType
}
