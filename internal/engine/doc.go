// Package engine runs the show: it owns the playback machine and applies
// rundown edits through the cache.
//
// ARCHITECTURE:
//
// Single-Writer Loop:
// One goroutine (Engine.Run) performs every mutation. Adapters submit
// commands with Engine.Do, which queues them on an unbounded FIFO and waits
// on a reply channel. The loop interleaves queued commands with ticks from
// the Clock.
//
// Command Flow:
//  1. Do enqueues the command
//  2. Run dequeues it and hands it to Core.Execute
//  3. Edits open a cache transaction, mutate the copy and commit; the
//     machine then re-reads the playlist without restarting its timer
//  4. The new Snapshot is published through an atomic pointer and the
//     Notifier is called
//
// Core holds the synchronous part and has no goroutines of its own; the
// scenario harness drives it directly with a fake clock.
//
// Persistence never blocks the loop. Rundown writes go through the cache's
// persister; restore points go through a writer that keeps only the newest.
package engine
