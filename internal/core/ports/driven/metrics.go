package driven

import "time"

// Metrics receives runtime counters. Implementations must be safe for
// concurrent use.
type Metrics interface {
	// Emitted counts an event handed to the sink.
	Emitted(sourceKey string)

	// Deduplicated counts an item suppressed because its identity was recorded.
	Deduplicated(sourceKey string)

	// Dropped counts an item not emitted for another reason
	// (predicate, unsubscribed type, malformed).
	Dropped(sourceKey, reason string)

	// CycleError counts a failed cycle by error kind.
	CycleError(sourceKey, kind string)

	// ObserveCycle records the duration of a completed cycle.
	ObserveCycle(sourceKey string, d time.Duration)
}

// NopMetrics discards everything.
type NopMetrics struct{}

var _ Metrics = NopMetrics{}

func (NopMetrics) Emitted(string)                     {}
func (NopMetrics) Deduplicated(string)                {}
func (NopMetrics) Dropped(string, string)             {}
func (NopMetrics) CycleError(string, string)          {}
func (NopMetrics) ObserveCycle(string, time.Duration) {}
