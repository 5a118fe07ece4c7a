// Package rundown defines the cueline data model: the rundown, its entries,
// and the custom-field definitions that decorate them.
//
// ENTRY VARIANTS:
//
// Entry is a sealed interface. Only *Event, *Group, *Delay and *Milestone
// implement it. Code that inspects entries switches over these four types and
// treats anything else as a programming error, so adding a variant fails
// loudly everywhere it is not yet handled.
//
// OWNERSHIP:
//
// A Rundown owns every entry through its Entries map. Groups hold member ids,
// never pointers, and members point back through ParentID. Order lists the
// top-level ids; FlatOrder is the depth-first expansion including group
// members.
//
// TIME:
//
// All schedule values are int64 milliseconds from midnight. Values may reach
// or exceed DayMs only after day offsets are applied; stored TimeStart and
// TimeEnd stay within a single day and an event whose end is not after its
// start crosses midnight.
package rundown
