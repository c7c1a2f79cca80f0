package live

import (
	"sync"
	"time"
)

// Timer is a pending scheduled call.
type Timer interface {
	// Stop cancels the call. It reports false when the call already ran or
	// was stopped.
	Stop() bool
}

// Clock tells the time and schedules calls. Tests swap in a manual clock.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

// RealClock uses the wall clock and time.AfterFunc.
var RealClock Clock = realClock{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// MidnightBuffer is how long after local midnight a live query recompiles,
// so "today" has moved on by the time filters are rebuilt.
const MidnightBuffer = time.Second

// untilMidnight returns the wait from now until the next local midnight plus
// buffer.
func untilMidnight(now time.Time, buffer time.Duration) time.Duration {
	y, m, d := now.Date()
	next := time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
	return next.Sub(now) + buffer
}

// Debouncer coalesces rapid change notifications into a single call
type Debouncer struct {
	mu       sync.Mutex
	clock    Clock
	timer    Timer
	duration time.Duration
}

// NewDebouncer creates a new debouncer with the given delay duration
func NewDebouncer(clock Clock, d time.Duration) *Debouncer {
	if clock == nil {
		clock = RealClock
	}
	return &Debouncer{clock: clock, duration: d}
}

// Trigger starts or resets the debounce timer. Only the f of the last
// trigger within the window runs.
func (d *Debouncer) Trigger(f func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = d.clock.AfterFunc(d.duration, f)
}

// Stop cancels a pending call.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
