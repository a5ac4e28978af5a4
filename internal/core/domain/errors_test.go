package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrUnsupportedType", ErrUnsupportedType},
		{"ErrAlreadyActive", ErrAlreadyActive},
		{"ErrNotActive", ErrNotActive},
		{"ErrCycleInProgress", ErrCycleInProgress},
		{"ErrModeNotAllowed", ErrModeNotAllowed},
		{"ErrRuntimeClosed", ErrRuntimeClosed},
		{"ErrTransientFetch", ErrTransientFetch},
		{"ErrMalformedPayload", ErrMalformedPayload},
		{"ErrDedupStoreUnavailable", ErrDedupStoreUnavailable},
		{"ErrSubscription", ErrSubscription},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestTypedErrors_MatchSentinels(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name     string
		err      error
		sentinel error
		kind     string
	}{
		{"transient fetch", &TransientFetchError{SourceKey: "s", Err: cause}, ErrTransientFetch, "transient_fetch"},
		{"malformed", &MalformedPayloadError{SourceKey: "s", Reason: "no id"}, ErrMalformedPayload, "malformed_payload"},
		{"dedup store", &DedupStoreUnavailableError{Op: "has", Err: cause}, ErrDedupStoreUnavailable, "dedup_store"},
		{"subscription", &SubscriptionError{SourceKey: "s", Err: cause}, ErrSubscription, "subscription"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("cycle: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.sentinel)
			assert.Equal(t, tt.kind, ErrorKind(wrapped))
		})
	}
}

func TestTypedErrors_UnwrapCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := &TransientFetchError{SourceKey: "github-new-branch", Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "github-new-branch")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "", ErrorKind(nil))
	assert.Equal(t, "other", ErrorKind(errors.New("x")))
	assert.False(t, errors.Is(ErrNotFound, ErrTransientFetch))
}
