package testutil

import (
	"sync"
	"time"
)

// Epoch is the default start of a FakeClock: midnight UTC on a fixed day.
var Epoch = time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)

// FakeClock is a wall clock that only moves when told to.
//
// It satisfies engine.Clock and runtime.Clock. Tickers created through
// NewTicker fire during Advance, once per elapsed interval, dropping ticks
// when the consumer falls behind (matching time.Ticker).
//
// Thread-safety: All methods are safe for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
	changed *sync.Cond
}

type fakeTicker struct {
	ch       chan time.Time
	interval time.Duration
	next     time.Time
	stopped  bool
}

// NewFakeClock creates a clock reading start.
func NewFakeClock(start time.Time) *FakeClock {
	c := &FakeClock{now: start}
	c.changed = sync.NewCond(&c.mu)
	return c
}

// NewFakeClockAt creates a clock reading msOfDay on the Epoch day.
func NewFakeClockAt(msOfDay int64) *FakeClock {
	return NewFakeClock(Epoch.Add(time.Duration(msOfDay) * time.Millisecond))
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// NowEpochMs returns the fake time as Unix milliseconds.
func (c *FakeClock) NowEpochMs() int64 {
	return c.Now().UnixMilli()
}

// NowMsOfDay returns milliseconds since midnight in the clock's location.
func (c *FakeClock) NowMsOfDay() int64 {
	now := c.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return now.Sub(midnight).Milliseconds()
}

// NewTicker registers a ticker that fires every d of fake time. The
// returned func stops it.
func (c *FakeClock) NewTicker(d time.Duration) (<-chan time.Time, func()) {
	if d <= 0 {
		panic("testutil: non-positive interval for NewTicker")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTicker{
		ch:       make(chan time.Time, 1),
		interval: d,
		next:     c.now.Add(d),
	}
	c.tickers = append(c.tickers, t)
	c.changed.Broadcast()
	return t.ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		t.stopped = true
	}
}

// Advance moves the clock forward by d and fires due tickers.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	for _, t := range c.tickers {
		for !t.stopped && !t.next.After(c.now) {
			select {
			case t.ch <- t.next:
			default:
			}
			t.next = t.next.Add(t.interval)
		}
	}
}

// Set jumps the clock to msOfDay on the current day without firing tickers.
func (c *FakeClock) Set(msOfDay int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	midnight := time.Date(c.now.Year(), c.now.Month(), c.now.Day(), 0, 0, 0, 0, c.now.Location())
	c.now = midnight.Add(time.Duration(msOfDay) * time.Millisecond)
	for _, t := range c.tickers {
		t.next = c.now.Add(t.interval)
	}
}

// WaitForTickers blocks until at least n tickers are running. Use it to
// avoid advancing the clock before a goroutine has created its ticker.
func (c *FakeClock) WaitForTickers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.activeLocked() < n {
		c.changed.Wait()
	}
}

func (c *FakeClock) activeLocked() int {
	n := 0
	for _, t := range c.tickers {
		if !t.stopped {
			n++
		}
	}
	return n
}
