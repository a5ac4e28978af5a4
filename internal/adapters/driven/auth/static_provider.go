package auth

import (
	"context"
	"errors"

	"github.com/custodia-labs/sercha-events/internal/core/ports/driven"
)

// Ensure StaticTokenProvider implements the TokenProvider interface.
var _ driven.TokenProvider = (*StaticTokenProvider)(nil)

// ErrNoToken is returned when a static provider holds no token.
var ErrNoToken = errors.New("no token configured")

// StaticTokenProvider serves a personal access token or API key.
// Static tokens don't expire and need no refresh.
type StaticTokenProvider struct {
	token string
}

// NewStaticTokenProvider creates a provider for token.
func NewStaticTokenProvider(token string) *StaticTokenProvider {
	return &StaticTokenProvider{token: token}
}

// GetToken returns the token.
func (p *StaticTokenProvider) GetToken(context.Context) (string, error) {
	if p.token == "" {
		return "", ErrNoToken
	}
	return p.token, nil
}

// IsAuthenticated reports whether a token is present.
func (p *StaticTokenProvider) IsAuthenticated() bool {
	return p.token != ""
}
