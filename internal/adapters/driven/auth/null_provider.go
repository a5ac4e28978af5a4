package auth

import (
	"context"

	"github.com/custodia-labs/sercha-events/internal/core/ports/driven"
)

// Ensure NullTokenProvider implements the TokenProvider interface.
var _ driven.TokenProvider = (*NullTokenProvider)(nil)

// NullTokenProvider is for sources whose provider needs no credentials,
// such as public repositories polled anonymously.
type NullTokenProvider struct{}

// GetToken returns an empty string.
func (NullTokenProvider) GetToken(context.Context) (string, error) {
	return "", nil
}

// IsAuthenticated returns false: callers fall back to anonymous access.
func (NullTokenProvider) IsAuthenticated() bool {
	return false
}
