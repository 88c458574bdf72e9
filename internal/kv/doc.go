// Package kv provides the persistent key-value storage that backs the shared
// events and notifications collections, the demo seeding flags and the
// session cache.
//
// Three backends are available:
//   - MemoryStore: process-local map, used by tests and --ephemeral runs (with --as)
//   - FileStore: one JSON document per key in a data directory
//   - PostgresStore: one row per key in a jsonb table, reachable through
//     a pgx pool or a sqlx database handle
//
// Values are opaque bytes to every backend; callers encode and decode them.
package kv
