// Package domain defines the core business entities of the event source runtime.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - SourceConfig: A configured, validated event source instance
//   - RawItem: An opaque provider payload from a poll batch or webhook delivery
//   - EmittedEvent: A normalized event handed to the emission sink
//   - DedupRecord: A previously emitted identity and when it was first seen
//   - CycleResult: The outcome of one polling cycle or webhook delivery
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
