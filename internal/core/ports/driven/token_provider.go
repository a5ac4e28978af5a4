package driven

import "context"

// TokenProvider provides access tokens for authenticated provider API calls.
// Credential storage itself lives outside the runtime.
type TokenProvider interface {
	// GetToken returns a valid access token.
	// Returns empty string for no-auth providers.
	GetToken(ctx context.Context) (string, error)

	// IsAuthenticated returns true if a token is available.
	IsAuthenticated() bool
}
