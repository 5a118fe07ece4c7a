// Package cache holds the committed rundown, its derived metadata and the
// custom-field definitions, and hands out transactions for editing them.
//
// A Transaction is a private deep copy of the current rundown. Edits to it
// are invisible until Commit, which either applies the copy as is or runs
// the metadata engine over it first. Every commit bumps the rundown revision
// by one and schedules an asynchronous write to the RundownStore; the commit
// never waits for the write. When two transactions are open at once the last
// commit wins.
//
// The cache tracks whether its metadata is Fresh, Stale or Rebuilding.
// Stale metadata is re-derived synchronously on the next read.
//
// Persistence runs on its own goroutine (RunPersister). Pending writes for the
// same rundown coalesce, so only the newest revision reaches the store, and a
// write whose content hash matches the last one written is skipped. Failed
// writes are logged and counted; the in-memory state is never rolled back.
package cache
