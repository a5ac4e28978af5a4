package domain

import "time"

// CycleResult is the outcome of one polling cycle or webhook delivery.
type CycleResult struct {
	// ID uniquely identifies the cycle.
	ID string

	// SourceKey identifies which source ran.
	SourceKey string

	// Trigger is what started the cycle.
	Trigger Trigger

	// StartedAt is when the cycle started.
	StartedAt time.Time

	// EndedAt is when the cycle completed.
	EndedAt time.Time

	// Fetched is the number of raw items received.
	Fetched int

	// Emitted is the number of events handed to the sink.
	Emitted int

	// Skipped is the number of items suppressed by dedup or the emission predicate.
	Skipped int

	// Malformed is the number of items that could not be normalized.
	Malformed int

	// Error contains the error message if the cycle failed.
	Error string
}

// Success reports whether the cycle completed without a cycle-level error.
func (r *CycleResult) Success() bool {
	return r.Error == ""
}

// Duration returns how long the cycle took.
func (r *CycleResult) Duration() time.Duration {
	if r.EndedAt.IsZero() {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

// SourceStatus reports the runtime state of one source.
type SourceStatus struct {
	// Key identifies the source.
	Key string

	// Name is the display name.
	Name string

	// Mode is the configured delivery mode.
	Mode DeliveryMode

	// Active indicates the source is activated.
	Active bool

	// Running indicates a polling cycle is in flight.
	Running bool

	// Interval is the polling cadence, zero for webhook-only sources.
	Interval time.Duration

	// NextRun is when the next timer tick is due.
	NextRun time.Time

	// LastCycle is the most recent cycle, if any.
	LastCycle *CycleResult
}

// SourceState is the persisted per-source bookkeeping that survives restarts.
type SourceState struct {
	// SourceKey links to the source.
	SourceKey string

	// Cursor is the opaque hint passed to the next fetch.
	Cursor string

	// SubscriptionID is the provider-side id of the webhook subscription, if any.
	SubscriptionID string

	// SigningSecret is the webhook signing secret the provider issued with
	// the subscription, if it issues one.
	SigningSecret string

	// LastSuccess is when the last cycle completed without error.
	LastSuccess time.Time
}
