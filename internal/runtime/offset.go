package runtime

import (
	"github.com/roach88/cueline/internal/rundown"
)

// MaxAddTime bounds a single AddTime call.
const MaxAddTime int64 = 3_600_000

// startOffset is the offset fixed at the first start of an event: positive
// when it started ahead of plan, negative when late. Compared on the short
// way round the clock face so a start just after midnight is not a day late.
func startOffset(plannedStart, actualStart int64) int64 {
	return rundown.WrapDiff(plannedStart, actualStart)
}

// expectedEnd projects the show end from the plan and the current offset.
func expectedEnd(plannedEnd, offset int64) int64 {
	return plannedEnd - offset
}

// refreshOffset recomputes the expected end. It is called after every
// playback transition and on every tick.
func (m *Machine) refreshOffset() {
	rt := &m.state.Runtime
	if rt.ActualStart == nil || rt.PlannedEnd == nil {
		rt.ExpectedEnd = nil
		return
	}
	rt.ExpectedEnd = ptr(expectedEnd(*rt.PlannedEnd, rt.Offset))
}

// resetOffset clears the offset state on stop.
func (m *Machine) resetOffset() {
	rt := &m.state.Runtime
	rt.ActualStart = nil
	rt.Offset = 0
	rt.ExpectedEnd = nil
}
