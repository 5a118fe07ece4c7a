package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runFile(t *testing.T, path string) *Result {
	t.Helper()
	s, err := LoadScenario(path)
	require.NoError(t, err)
	res, err := Run(s)
	require.NoError(t, err)
	return res
}

func TestRun_Scenarios(t *testing.T) {
	paths, err := FindScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			res := runFile(t, path)
			assert.True(t, res.Pass, "errors: %v", res.Errors)
		})
	}
}

func TestRun_PlayNextTrace(t *testing.T) {
	res := runFile(t, "testdata/scenarios/play_next_chain.yaml")
	require.True(t, res.Pass, res.Errors)
	require.Len(t, res.Trace, 5)

	tick := res.Trace[2]
	assert.Equal(t, TraceTick, tick.Type)
	assert.Equal(t, "10:10:00", tick.At)
	assert.Equal(t, "play-next", tick.EndAction)
	assert.Equal(t, "keynote", tick.EventID)
	assert.Equal(t, "play", tick.Playback)

	for i, ev := range res.Trace {
		assert.Equal(t, int64(i+1), ev.Seq)
	}
}

func TestRun_UnexpectedOutcomeFails(t *testing.T) {
	path := writeScenario(t, `
name: wrong_case
description: "Expects pause to work with nothing loaded"
rundown: show.yaml
start: "10:00:00"
flow:
  - do: pause
  - do: load id opening
    expect: { case: NOT_FOUND }
`)
	res := runFile(t, path)
	assert.False(t, res.Pass)
	require.Len(t, res.Errors, 2)
	assert.Contains(t, res.Errors[0], "expected ok, got NOT_PLAYING")
	assert.Contains(t, res.Errors[1], "expected NOT_FOUND, got ok")
}

func TestRun_StateMismatchReportsPath(t *testing.T) {
	path := writeScenario(t, `
name: wrong_state
description: "Expects the wrong event"
rundown: show.yaml
start: "10:00:00"
flow:
  - do: load id opening
    expect:
      state:
        state:
          eventNow: { id: keynote }
`)
	res := runFile(t, path)
	assert.False(t, res.Pass)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "state.eventNow.id")
}

func TestRun_ReportsDroppedEntries(t *testing.T) {
	dir := t.TempDir()
	path := writeScenarioIn(t, dir, "broken.yaml", `
id: broken
entries:
  - id: good
    type: event
    timeStart: "10:00:00"
    duration: "00:05:00"
  - id: bad
    type: event
    timeStart: "31:00:00"
`, `
name: dropped
description: "Rundown has an invalid entry"
rundown: broken.yaml
start: "10:00:00"
flow:
  - do: load id good
`)
	res := runFile(t, path)
	assert.False(t, res.Pass)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], `"bad"`)
}

func TestRun_SetJumpsWithoutTicking(t *testing.T) {
	path := writeScenario(t, `
name: set_jump
description: "Jumping past the end finishes the event on the next tick only"
rundown: show.yaml
start: "10:10:00"
flow:
  - do: load id keynote
  - do: start
  - set: "10:31:00"
assertions:
  - type: trace_count
    trace_type: tick
    count: 1
  - type: final_state
    expect:
      state:
        eventNow: null
        timer: { playback: stop }
`)
	res := runFile(t, path)
	assert.True(t, res.Pass, res.Errors)
}
