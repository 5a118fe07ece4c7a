// Package store persists rundowns, custom field definitions and the playback
// restore point in SQLite.
//
// Rundowns are stored as canonical JSON documents keyed by id, next to the
// content hash of the document. The engine only ever writes through the
// cache's persister goroutine, so the store sees a single writer.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
