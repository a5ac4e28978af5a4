package domain

import "time"

// RawItem is an opaque provider payload: one element of a polled batch or
// the body of one webhook delivery. The runtime borrows it for the duration
// of normalization and emission.
type RawItem struct {
	// Payload is the decoded provider payload.
	Payload map[string]any

	// EventType is the declared webhook event type. Empty for polled items.
	EventType string

	// OrderKey is the provider-native chronological ordering field.
	// Items with a zero OrderKey keep their fetch order.
	OrderKey time.Time

	// Sample marks synthetically generated items.
	Sample bool
}

// String returns a string field from the payload, or "" when absent or not a string.
func (r RawItem) String(field string) string {
	if r.Payload == nil {
		return ""
	}
	s, _ := r.Payload[field].(string)
	return s
}

// Map returns a nested object from the payload, or nil.
func (r RawItem) Map(field string) map[string]any {
	if r.Payload == nil {
		return nil
	}
	m, _ := r.Payload[field].(map[string]any)
	return m
}

// Trigger identifies what caused a cycle to run.
type Trigger string

const (
	// TriggerTimer is a scheduled polling tick.
	TriggerTimer Trigger = "timer"

	// TriggerManual is a tick requested through the CLI or API.
	TriggerManual Trigger = "manual"

	// TriggerWebhook is a provider webhook delivery.
	TriggerWebhook Trigger = "webhook"

	// TriggerSample is a dry run over generated sample events.
	TriggerSample Trigger = "sample"
)

// EmittedEvent is a normalized event handed to the emission sink.
// It is never mutated after emission.
type EmittedEvent struct {
	// SourceKey is the source that produced the event.
	SourceKey string `json:"source"`

	// Identity is the stable event identity used for dedup.
	Identity string `json:"id"`

	// Summary is a short human-readable description.
	Summary string `json:"summary"`

	// Payload is the original provider payload.
	Payload map[string]any `json:"payload"`

	// EmittedAt is when the event was emitted.
	EmittedAt time.Time `json:"ts"`

	// Trigger is the path the event arrived through.
	Trigger Trigger `json:"trigger"`

	// Sample marks events built from generated sample payloads.
	Sample bool `json:"sample,omitempty"`
}

// SampleEvent pairs a generated raw item with its normalized form.
type SampleEvent struct {
	Raw   RawItem
	Event EmittedEvent
}
