package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// DeliveryMode determines which driver may be invoked for a source.
type DeliveryMode string

const (
	// ModePolling sources are driven by timer ticks only.
	ModePolling DeliveryMode = "polling"

	// ModeWebhook sources are driven by provider webhook deliveries only.
	ModeWebhook DeliveryMode = "webhook"

	// ModeBoth sources accept ticks and deliveries.
	ModeBoth DeliveryMode = "both"
)

// AllowsPolling reports whether timer ticks are legal for the mode.
func (m DeliveryMode) AllowsPolling() bool {
	return m == ModePolling || m == ModeBoth
}

// AllowsWebhook reports whether webhook deliveries are legal for the mode.
func (m DeliveryMode) AllowsWebhook() bool {
	return m == ModeWebhook || m == ModeBoth
}

// Valid reports whether m is a known delivery mode.
func (m DeliveryMode) Valid() bool {
	switch m {
	case ModePolling, ModeWebhook, ModeBoth:
		return true
	}
	return false
}

// DedupeStrategy governs whether and how repeated identities are suppressed.
type DedupeStrategy string

const (
	// DedupeUnique never re-emits a recorded identity (subject to eviction).
	DedupeUnique DedupeStrategy = "unique"

	// DedupeUniqueVolatile only suppresses identities within a bounded recent window.
	DedupeUniqueVolatile DedupeStrategy = "unique_volatile"

	// DedupeNone emits every observed item.
	DedupeNone DedupeStrategy = "none"
)

// Valid reports whether s is a known dedupe strategy.
func (s DedupeStrategy) Valid() bool {
	switch s {
	case DedupeUnique, DedupeUniqueVolatile, DedupeNone:
		return true
	}
	return false
}

// OverlapPolicy decides what happens to a tick that arrives mid-cycle.
type OverlapPolicy string

const (
	// OverlapSkip drops the tick.
	OverlapSkip OverlapPolicy = "skip"

	// OverlapQueue re-runs the cycle once, immediately after the current one.
	OverlapQueue OverlapPolicy = "queue"
)

// RetentionPolicy bounds the dedup history kept for a source.
// A zero field means that bound is not applied.
type RetentionPolicy struct {
	// MaxRecords is the maximum number of identities kept.
	MaxRecords int

	// MaxAge is how long an identity is remembered after it was first seen.
	MaxAge time.Duration
}

// IsZero reports whether no bound is configured.
func (p RetentionPolicy) IsZero() bool {
	return p.MaxRecords == 0 && p.MaxAge == 0
}

// DefaultRetention returns the retention applied when a source configures none.
func DefaultRetention(strategy DedupeStrategy) RetentionPolicy {
	switch strategy {
	case DedupeUniqueVolatile:
		return RetentionPolicy{MaxRecords: 100, MaxAge: 24 * time.Hour}
	case DedupeUnique:
		return RetentionPolicy{MaxRecords: 10000}
	default:
		return RetentionPolicy{}
	}
}

// MinInterval is the shortest polling cadence accepted.
const MinInterval = time.Second

// SourceConfig is the immutable configuration of one source instance.
// It is validated at activation time and never mutated afterwards;
// reconfiguration replaces it wholesale.
type SourceConfig struct {
	// Key uniquely identifies the source (e.g., "github-new-branch").
	Key string

	// Provider selects the provider implementation (e.g., "github").
	Provider string

	// Name is the human-readable name.
	Name string

	// Version is the semantic version of the source definition.
	Version string

	// Mode is the delivery mode.
	Mode DeliveryMode

	// Dedupe is the dedupe strategy.
	Dedupe DedupeStrategy

	// Interval is the polling cadence. Required for polling modes.
	Interval time.Duration

	// WebhookEventTypes are the subscribed webhook event type names.
	// Required for webhook modes.
	WebhookEventTypes []string

	// Overlap is the tick overlap policy. Empty means OverlapSkip.
	Overlap OverlapPolicy

	// Retention bounds the dedup history. Zero means DefaultRetention(Dedupe).
	Retention RetentionPolicy

	// Settings holds provider-specific options (repository, callback URL, ...).
	Settings map[string]string
}

// Validate checks the configuration for internal consistency.
func (c *SourceConfig) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Key) == "" {
		problems = append(problems, "key is required")
	}
	if strings.TrimSpace(c.Provider) == "" {
		problems = append(problems, "provider is required")
	}
	if !c.Mode.Valid() {
		problems = append(problems, fmt.Sprintf("unknown mode %q", c.Mode))
	}
	if !c.Dedupe.Valid() {
		problems = append(problems, fmt.Sprintf("unknown dedupe strategy %q", c.Dedupe))
	}
	if c.Overlap != "" && c.Overlap != OverlapSkip && c.Overlap != OverlapQueue {
		problems = append(problems, fmt.Sprintf("unknown overlap policy %q", c.Overlap))
	}
	if c.Mode.AllowsPolling() && c.Interval < MinInterval {
		problems = append(problems, fmt.Sprintf("interval must be at least %s for polling sources", MinInterval))
	}
	if c.Mode.AllowsWebhook() && len(c.WebhookEventTypes) == 0 {
		problems = append(problems, "webhook sources need at least one event type")
	}
	if c.Retention.MaxRecords < 0 || c.Retention.MaxAge < 0 {
		problems = append(problems, "retention bounds must not be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: source %q: %s", ErrInvalidInput, c.Key, strings.Join(problems, "; "))
	}
	return nil
}

// EffectiveOverlap returns the overlap policy, defaulting to OverlapSkip.
func (c *SourceConfig) EffectiveOverlap() OverlapPolicy {
	if c.Overlap == "" {
		return OverlapSkip
	}
	return c.Overlap
}

// EffectiveRetention returns the retention policy, falling back to the strategy default.
func (c *SourceConfig) EffectiveRetention() RetentionPolicy {
	if c.Retention.IsZero() {
		return DefaultRetention(c.Dedupe)
	}
	return c.Retention
}

// Subscribes reports whether eventType is one of the subscribed webhook types.
func (c *SourceConfig) Subscribes(eventType string) bool {
	return slices.Contains(c.WebhookEventTypes, eventType)
}

// DisplayName returns the name, or the key when no name is configured.
func (c *SourceConfig) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Key
}

// Setting returns a provider setting, or def when unset.
func (c *SourceConfig) Setting(key, def string) string {
	if v, ok := c.Settings[key]; ok && v != "" {
		return v
	}
	return def
}

// Clone returns a deep copy so callers cannot mutate shared slices or maps.
func (c SourceConfig) Clone() SourceConfig {
	c.WebhookEventTypes = slices.Clone(c.WebhookEventTypes)
	if c.Settings != nil {
		settings := make(map[string]string, len(c.Settings))
		for k, v := range c.Settings {
			settings[k] = v
		}
		c.Settings = settings
	}
	return c
}

// SameSubscription reports whether two configs subscribe to the same event types,
// ignoring order.
func (c *SourceConfig) SameSubscription(other *SourceConfig) bool {
	if len(c.WebhookEventTypes) != len(other.WebhookEventTypes) {
		return false
	}
	a := slices.Sorted(slices.Values(c.WebhookEventTypes))
	b := slices.Sorted(slices.Values(other.WebhookEventTypes))
	return slices.Equal(a, b) && c.Mode.AllowsWebhook() == other.Mode.AllowsWebhook()
}
