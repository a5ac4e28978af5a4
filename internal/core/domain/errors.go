package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown provider type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrAlreadyActive indicates the source is already activated.
	ErrAlreadyActive = errors.New("source already active")

	// ErrNotActive indicates the source has not been activated.
	ErrNotActive = errors.New("source not active")

	// ErrCycleInProgress indicates a polling cycle is already running for the source.
	ErrCycleInProgress = errors.New("cycle in progress")

	// ErrModeNotAllowed indicates a trigger that the source's delivery mode forbids,
	// e.g. a polling tick on a webhook-only source.
	ErrModeNotAllowed = errors.New("trigger not allowed by delivery mode")

	// ErrRuntimeClosed indicates the runtime has been shut down.
	ErrRuntimeClosed = errors.New("runtime closed")

	// Cycle error taxonomy.

	// ErrTransientFetch indicates the provider could not be reached.
	// The cycle is retried on the next tick.
	ErrTransientFetch = errors.New("transient fetch error")

	// ErrMalformedPayload indicates a raw item could not be normalized.
	// The item is skipped and the cycle continues.
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrDedupStoreUnavailable indicates the dedup store could not be consulted.
	// Nothing is emitted without a dedup decision.
	ErrDedupStoreUnavailable = errors.New("dedup store unavailable")

	// ErrSubscription indicates the provider webhook subscription failed.
	// The source is left deactivated.
	ErrSubscription = errors.New("subscription error")
)

// TransientFetchError wraps a provider fetch failure.
type TransientFetchError struct {
	SourceKey string
	Err       error
}

func (e *TransientFetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.SourceKey, e.Err)
}

func (e *TransientFetchError) Unwrap() error { return e.Err }

// Is reports whether target is ErrTransientFetch.
func (e *TransientFetchError) Is(target error) bool { return target == ErrTransientFetch }

// MalformedPayloadError describes a raw item that could not be normalized.
type MalformedPayloadError struct {
	SourceKey string
	Reason    string
	Err       error
}

func (e *MalformedPayloadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed payload for %s: %s: %v", e.SourceKey, e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed payload for %s: %s", e.SourceKey, e.Reason)
}

func (e *MalformedPayloadError) Unwrap() error { return e.Err }

// Is reports whether target is ErrMalformedPayload.
func (e *MalformedPayloadError) Is(target error) bool { return target == ErrMalformedPayload }

// DedupStoreUnavailableError wraps a dedup store failure.
type DedupStoreUnavailableError struct {
	Op  string
	Err error
}

func (e *DedupStoreUnavailableError) Error() string {
	return fmt.Sprintf("dedup store unavailable during %s: %v", e.Op, e.Err)
}

func (e *DedupStoreUnavailableError) Unwrap() error { return e.Err }

// Is reports whether target is ErrDedupStoreUnavailable.
func (e *DedupStoreUnavailableError) Is(target error) bool {
	return target == ErrDedupStoreUnavailable
}

// SubscriptionError wraps a failed subscribe or unsubscribe call.
type SubscriptionError struct {
	SourceKey  string
	EventTypes []string
	Err        error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("subscribe %s to %v: %v", e.SourceKey, e.EventTypes, e.Err)
}

func (e *SubscriptionError) Unwrap() error { return e.Err }

// Is reports whether target is ErrSubscription.
func (e *SubscriptionError) Is(target error) bool { return target == ErrSubscription }

// ErrorKind classifies an error into the cycle taxonomy for metrics and logs.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTransientFetch):
		return "transient_fetch"
	case errors.Is(err, ErrDedupStoreUnavailable):
		return "dedup_store"
	case errors.Is(err, ErrMalformedPayload):
		return "malformed_payload"
	case errors.Is(err, ErrSubscription):
		return "subscription"
	default:
		return "other"
	}
}
