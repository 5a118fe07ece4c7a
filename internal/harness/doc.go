// Package harness runs show scenarios against the engine core.
//
// A scenario names a rundown document, a wall-clock start time and a flow
// of steps. Each step either sends a console command to the core or moves
// the fake clock, ticking once per second of simulated time so end actions
// and roll mode fire as they would live. Every step appends one event to
// the trace; ticks that finish an event or move roll mode append their own.
//
// # Scenario Format
//
//	name: play_next_chain
//	description: "Opening hands over to the keynote on its own"
//	rundown: ../rundowns/show.yaml
//	start: "09:59:00"
//	flow:
//	  - do: load id opening
//	  - do: start
//	  - advance: 10m
//	  - do: pause
//	    expect:
//	      case: ok
//	      state:
//	        state:
//	          eventNow: { id: keynote }
//	assertions:
//	  - type: trace_contains
//	    command: start
//	  - type: trace_count
//	    trace_type: tick
//	    count: 1
//	  - type: final_state
//	    expect:
//	      state:
//	        timer: { playback: pause }
//
// Step outcomes are "ok" or a command error code such as NOT_PLAYING.
// State expectations are subset matches against the JSON form of the
// engine snapshot.
//
// # Assertion Types
//
//   - trace_contains: a trace event with the command (and outcome) exists
//   - trace_order: commands appear in the given order
//   - trace_count: events matching command or trace_type appear N times
//   - final_state: the final snapshot contains the expected values
//
// # Determinism
//
// Each run uses a fresh in-memory store, a testutil.FakeClock on a fixed
// day and sequential entry ids, so traces are stable and can be compared
// against golden files with RunWithGolden.
package harness
