// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - Provider: Identity, summary, emission predicate and samples for one provider capability
//   - DedupStore: Partitioned set of previously emitted identities
//   - EmissionSink: Downstream consumer of emitted events
//   - SourceStore: Source configuration persistence
//   - StateStore: Cursor hints and subscription ids per source
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - Fetcher: Implemented by providers that support polling
//   - Subscriber: Implemented by providers that manage webhook subscriptions
//   - CycleStore: Cycle history. Without it, results are only logged.
//   - Metrics: Runtime counters. Without it, NopMetrics is used.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
