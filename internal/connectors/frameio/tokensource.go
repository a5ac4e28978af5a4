package frameio

import (
	"context"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/sercha-events/internal/core/ports/driven"
)

// tokenSource adapts a driven.TokenProvider to oauth2.TokenSource so the
// hooks client can use oauth2.NewClient for bearer authentication.
type tokenSource struct {
	provider driven.TokenProvider
	ctx      context.Context
}

func newTokenSource(ctx context.Context, provider driven.TokenProvider) oauth2.TokenSource {
	return &tokenSource{provider: provider, ctx: ctx}
}

// Token implements oauth2.TokenSource.
func (t *tokenSource) Token() (*oauth2.Token, error) {
	accessToken, err := t.provider.GetToken(t.ctx)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}, nil
}
