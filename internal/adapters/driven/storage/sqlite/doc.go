// Package sqlite provides a SQLite-backed implementation of the runtime's
// persistence ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. One database file holds:
//
//   - SourceStore: active source configurations
//   - StateStore: cursor hints and webhook subscription ids
//   - DedupStore: emitted identities per source, in first-seen order
//   - CycleStore: recent polling cycle and delivery results
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory.
//
// # Data Location
//
// By default, the database is stored at ~/.sercha-events/data/events.db
//
// # Thread Safety
//
// All operations are safe for concurrent use. The store relies on SQLite's
// WAL mode and busy timeout for locking.
package sqlite
