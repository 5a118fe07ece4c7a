// Package metadata derives aggregate and per-entry schedule data from a
// rundown.
//
// Process is a pure function of (rundown, custom field definitions,
// changelog). It never mutates its input and running it on its own output
// yields identical metadata. The cache layer is the only caller that
// replaces committed entries with the normalised ones Process returns.
//
// The walk is a single forward pass over the top-level order:
//   - a delay accumulator adds every Delay entry and is assigned to each
//     Event; crossing a Group resets it, and the group's members use an
//     accumulator scoped to that group
//   - a previous-timed-event pointer drives midnight detection (DayOffset),
//     gaps, and linked starts
//   - groups roll up duration and schedule from their playable members
package metadata
