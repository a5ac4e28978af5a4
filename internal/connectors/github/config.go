package github

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/custodia-labs/sercha-events/internal/core/domain"
)

// Setting keys read from domain.SourceConfig.Settings.
const (
	SettingRepo          = "repo"
	SettingCallbackURL   = "callback_url"
	SettingWebhookSecret = "webhook_secret"
	SettingMaxPages      = "max_pages"
	SettingBaseURL       = "base_url"
)

// DefaultMaxPages bounds the branches listed per poll.
const DefaultMaxPages = 10

// Config holds the parsed settings for a GitHub source.
type Config struct {
	Owner         string
	Repo          string
	CallbackURL   string
	WebhookSecret string
	MaxPages      int
	BaseURL       string
}

// ParseConfig extracts the provider settings from a source configuration.
func ParseConfig(cfg domain.SourceConfig) (*Config, error) {
	owner, repo, err := splitRepo(cfg.Setting(SettingRepo, ""))
	if err != nil {
		return nil, err
	}

	c := &Config{
		Owner:         owner,
		Repo:          repo,
		CallbackURL:   cfg.Setting(SettingCallbackURL, ""),
		WebhookSecret: cfg.Setting(SettingWebhookSecret, ""),
		MaxPages:      DefaultMaxPages,
		BaseURL:       cfg.Setting(SettingBaseURL, ""),
	}

	if v := cfg.Setting(SettingMaxPages, ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: max_pages must be a positive integer", domain.ErrInvalidInput)
		}
		c.MaxPages = n
	}

	if cfg.Mode.AllowsWebhook() && c.CallbackURL == "" {
		return nil, ErrNoCallbackURL
	}
	return c, nil
}

// FullName returns owner/name.
func (c *Config) FullName() string {
	return c.Owner + "/" + c.Repo
}

func splitRepo(s string) (owner, repo string, err error) {
	owner, repo, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidRepo, s)
	}
	return owner, repo, nil
}
