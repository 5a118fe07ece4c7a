package engine

import (
	"time"

	"github.com/roach88/cueline/internal/rundown"
)

// Clock is the wall clock the engine runs on.
//
// Implemented by SystemClock (production) and testutil.FakeClock (tests).
// NewTicker returns the tick channel and a stop function so that fakes do
// not need to construct a *time.Ticker.
type Clock interface {
	// NowMsOfDay returns milliseconds since local midnight.
	NowMsOfDay() int64
	// NowEpochMs returns milliseconds since the Unix epoch.
	NowEpochMs() int64
	// NewTicker delivers ticks every d until stop is called.
	NewTicker(d time.Duration) (ticks <-chan time.Time, stop func())
}

// SystemClock reads time.Now in Location (time.Local when nil).
//
// Thread-safety: SystemClock is stateless and safe for concurrent use.
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) now() time.Time {
	if c.Location != nil {
		return time.Now().In(c.Location)
	}
	return time.Now()
}

// NowMsOfDay returns milliseconds since midnight in the clock's location.
func (c SystemClock) NowMsOfDay() int64 {
	t := c.now()
	ms := int64(t.Hour())*3_600_000 +
		int64(t.Minute())*60_000 +
		int64(t.Second())*1000 +
		int64(t.Nanosecond())/int64(time.Millisecond)
	return ms % rundown.DayMs
}

// NowEpochMs returns milliseconds since the Unix epoch.
func (c SystemClock) NowEpochMs() int64 {
	return time.Now().UnixMilli()
}

// NewTicker wraps time.NewTicker.
func (SystemClock) NewTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}
