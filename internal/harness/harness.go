package harness

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/roach88/cueline/internal/cache"
	"github.com/roach88/cueline/internal/engine"
	"github.com/roach88/cueline/internal/rundown"
	"github.com/roach88/cueline/internal/store"
	"github.com/roach88/cueline/internal/testutil"
)

// tickStep is the simulated tick interval used while advancing the clock.
const tickStep = time.Second

// Harness executes one scenario.
type Harness struct {
	store  *store.Store
	cache  *cache.Cache
	core   *engine.Core
	clock  *testutil.FakeClock
	logger *slog.Logger
	seq    int64
	result *Result
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database. Execution flow:
//  1. Parse the rundown document and load it into the cache
//  2. Build a core on a fake clock set to the scenario start
//  3. Execute the flow, checking expect clauses
//  4. Evaluate assertions against the trace and final state
func Run(scenario *Scenario) (*Result, error) {
	data, err := os.ReadFile(scenario.Rundown)
	if err != nil {
		return nil, fmt.Errorf("failed to read rundown: %w", err)
	}
	var dropped []error
	r, defs, err := rundown.Parse(data, func(e error) { dropped = append(dropped, e) })
	if err != nil {
		return nil, fmt.Errorf("failed to parse rundown: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := cache.New(st, cache.WithLogger(logger), cache.WithStrict(scenario.Strict))
	c.Init(r, defs)

	clock := testutil.NewFakeClockAt(scenario.startMs)
	h := &Harness{
		store:  st,
		cache:  c,
		clock:  clock,
		logger: logger,
		result: NewResult(),
	}
	h.core = engine.NewCore(c, clock,
		engine.WithCoreLogger(logger),
		engine.WithIDGenerator(rundown.NewSequenceGenerator("entry")))

	for _, e := range dropped {
		h.result.AddError(fmt.Sprintf("rundown: %v", e))
	}

	for i, step := range scenario.Flow {
		h.executeStep(i, step)
	}

	state, err := snapshotMap(h.core.Snapshot())
	if err != nil {
		return nil, err
	}
	h.result.State = state

	for _, msg := range EvaluateAssertions(h.result, scenario.Assertions) {
		h.result.AddError(msg)
	}
	return h.result, nil
}

func (h *Harness) executeStep(i int, step FlowStep) {
	switch {
	case step.Do != "":
		res := h.core.Execute(step.cmd)
		outcome := outcomeOf(res.Err)
		ev := h.trace(TraceCommand)
		ev.Command = string(step.cmd.Kind)
		ev.Outcome = outcome
		ev.Value = res.Value
		h.append(ev)

		want := "ok"
		if step.Expect != nil && step.Expect.Case != "" {
			want = step.Expect.Case
		}
		if outcome != want {
			detail := ""
			if res.Err != nil {
				detail = ": " + res.Err.Error()
			}
			h.result.AddError(fmt.Sprintf("flow[%d] %q: expected %s, got %s%s", i, step.Do, want, outcome, detail))
		}

	case step.advance > 0:
		h.advance(step.advance)
		h.append(h.trace(TraceAdvance))

	default:
		h.clock.Set(step.set)
		h.tick()
		h.append(h.trace(TraceSet))
	}

	if step.Expect != nil && len(step.Expect.State) > 0 {
		state, err := snapshotMap(h.core.Snapshot())
		if err != nil {
			h.result.AddError(fmt.Sprintf("flow[%d]: %v", i, err))
			return
		}
		if path, ok := matchSubset(state, normalise(step.Expect.State), ""); !ok {
			h.result.AddError(fmt.Sprintf("flow[%d]: state mismatch at %s", i, path))
		}
	}
}

// advance moves the clock by ms, ticking once per tickStep as the engine
// loop would.
func (h *Harness) advance(ms int64) {
	step := tickStep.Milliseconds()
	for ms > 0 {
		d := min(step, ms)
		h.clock.Advance(time.Duration(d) * time.Millisecond)
		ms -= d
		h.tick()
	}
}

func (h *Harness) tick() {
	res := h.core.Tick()
	if !res.Finished && !res.RollChanged {
		return
	}
	ev := h.trace(TraceTick)
	ev.EndAction = string(res.EndAction)
	h.append(ev)
}

// trace builds an event summarising the current state.
func (h *Harness) trace(typ string) TraceEvent {
	st := h.core.Snapshot().State
	ev := TraceEvent{
		Type:     typ,
		At:       rundown.FormatClock(h.clock.NowMsOfDay()),
		Playback: string(st.Timer.Playback),
		Phase:    string(st.Timer.Phase),
		Mode:     string(st.Mode),
		Current:  st.Timer.Current,
		Offset:   st.Runtime.Offset,
	}
	if st.EventNow != nil {
		ev.EventID = st.EventNow.ID
	}
	return ev
}

func (h *Harness) append(ev TraceEvent) {
	h.seq++
	ev.Seq = h.seq
	h.result.Trace = append(h.result.Trace, ev)
}

func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	if code := engine.CodeOf(err); code != "" {
		return string(code)
	}
	return "error"
}

// snapshotMap converts a snapshot to its generic JSON form.
func snapshotMap(s engine.Snapshot) (map[string]any, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return m, nil
}
