package github

import (
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-events/internal/core/domain"
)

// GitHub-specific errors.
var (
	// ErrInvalidRepo indicates the repo setting is not in owner/name form.
	ErrInvalidRepo = errors.New("github: repo must be owner/name")

	// ErrNoCallbackURL indicates a webhook subscription without a callback URL.
	ErrNoCallbackURL = errors.New("github: callback_url is required for webhook delivery")

	// ErrInvalidHookID indicates a stored subscription id is not a hook id.
	ErrInvalidHookID = errors.New("github: invalid hook id")
)

// RateLimitError represents an exhausted rate limit with its reset time.
type RateLimitError struct {
	ResetAt   time.Time
	Remaining int
	Limit     int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("github: rate limit exceeded, resets at %s", e.ResetAt.Format(time.RFC3339))
}

// APIError represents a GitHub API error response.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github: API error %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

// IsNotFound checks if the error indicates a resource was not found.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 404
}

// IsRateLimited checks if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	var rateLimitErr *RateLimitError
	return errors.As(err, &rateLimitErr)
}

// IsUnauthorized checks if the error indicates an authentication failure.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 401
}

// asFetchError marks a polling failure as transient for the runtime.
func asFetchError(sourceKey string, err error) error {
	if err == nil {
		return nil
	}
	return &domain.TransientFetchError{SourceKey: sourceKey, Err: err}
}
