// Package store provides SQLite-backed durable storage for collected events.
//
// The store is an append-only table with two secondary indexes:
//   - idx_events_ts: time-range scans
//   - idx_events_event_ts: kind equality and prefix scans within a window
//
// No update or delete operation is exposed.
//
// # Ordering
//
// Ids come from INTEGER PRIMARY KEY AUTOINCREMENT and reflect the order in
// which appends committed. Timestamps are caller data and carry no ordering
// guarantee; queries that sort by ts always break ties by id.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes, crash-atomic commits
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks held by other processes up to 5 seconds
//   - one open connection: in-process writers are serialized
//
// Filters are expressed with internal/filter and compiled to parameterized SQL.
package store
