package live

import (
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elcuervo/otq/internal/date"
	"github.com/elcuervo/otq/internal/query"
	"github.com/elcuervo/otq/internal/task"
)

type manualTimer struct {
	at      time.Time
	f       func()
	stopped bool
	fired   bool
	clock   *manualClock
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

func newManualClock(now time.Time) *manualClock {
	return &manualClock{now: now}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{at: c.now.Add(d), f: f, clock: c}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward and runs due timers in order, including timers
// armed by the ones that ran.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var next *manualTimer
		for _, t := range c.timers {
			if t.stopped || t.fired || t.at.After(target) {
				continue
			}
			if next == nil || t.at.Before(next.at) {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		next.fired = true
		c.now = next.at
		c.mu.Unlock()

		next.f()
	}
}

func (c *manualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type recorder struct {
	mu      sync.Mutex
	results []*query.Result
}

func (r *recorder) record(res *query.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results)
}

func (r *recorder) last() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.results) == 0 {
		return nil
	}
	var out []string
	for _, t := range r.results[len(r.results)-1].Tasks {
		out = append(out, t.Description)
	}
	return out
}

func dueTask(desc, due string) *task.Task {
	return &task.Task{
		Location:    task.Location{Path: "daily.md", Line: 1},
		Status:      task.Todo,
		Description: desc,
		DueDate:     date.MustParse(due),
	}
}

var lateEvening = time.Date(2025, time.January, 15, 23, 0, 0, 0, time.UTC)

func TestStartEvaluatesImmediately(t *testing.T) {
	bus := NewBus()
	bus.Publish([]*task.Task{dueTask("a", "2025-01-15"), dueTask("b", "2025-01-20")})

	rec := &recorder{}
	q := New("due today", nil, bus, Options{Clock: newManualClock(lateEvening), OnRender: rec.record})
	defer q.Close()

	assert.Equal(t, 0, rec.count(), "nothing runs before Start")

	q.Start()
	require.Equal(t, 1, rec.count())
	assert.Equal(t, []string{"a"}, rec.last())
	assert.Equal(t, 1, bus.Len())

	q.Start()
	assert.Equal(t, 1, rec.count())
	assert.Equal(t, 1, bus.Len())
}

func TestNotificationsRecompute(t *testing.T) {
	bus := NewBus()
	rec := &recorder{}
	q := New("not done", nil, bus, Options{Clock: newManualClock(lateEvening), OnRender: rec.record})
	defer q.Close()

	q.Start()
	assert.Empty(t, rec.last())

	bus.Publish([]*task.Task{dueTask("a", "2025-01-15")})
	bus.Publish([]*task.Task{dueTask("a", "2025-01-15"), dueTask("b", "2025-01-16")})

	assert.Equal(t, 3, rec.count())
	assert.Equal(t, []string{"a", "b"}, rec.last())
	assert.Equal(t, []string{"a", "b"}, descriptionsOf(q.Last()))
}

func TestMidnightRecompilesRelativeDates(t *testing.T) {
	bus := NewBus()
	bus.Publish([]*task.Task{dueTask("today", "2025-01-15"), dueTask("tomorrow", "2025-01-16")})

	clock := newManualClock(lateEvening)
	rec := &recorder{}
	q := New("due today", nil, bus, Options{Clock: clock, OnRender: rec.record})
	defer q.Close()

	q.Start()
	assert.Equal(t, []string{"today"}, rec.last())
	assert.Equal(t, 1, clock.Pending())

	clock.Advance(time.Hour)
	assert.Equal(t, 1, rec.count(), "midnight buffer has not passed yet")

	clock.Advance(time.Second)
	require.Equal(t, 2, rec.count())
	assert.Equal(t, []string{"tomorrow"}, rec.last())
	assert.Equal(t, "2025-01-16", q.Compiled().Today().String())
	assert.Equal(t, 1, clock.Pending(), "timer is re-armed for the next day")

	clock.Advance(24 * time.Hour)
	assert.Equal(t, 3, rec.count())
	assert.Empty(t, rec.last())
}

func TestCloseStopsEverything(t *testing.T) {
	bus := NewBus()
	clock := newManualClock(lateEvening)
	rec := &recorder{}
	q := New("not done", nil, bus, Options{Clock: clock, OnRender: rec.record})

	q.Start()
	require.Equal(t, 1, rec.count())

	q.Close()
	assert.Equal(t, 0, bus.Len())
	assert.Equal(t, 0, clock.Pending())

	bus.Publish([]*task.Task{dueTask("a", "2025-01-15")})
	clock.Advance(72 * time.Hour)
	assert.Equal(t, 1, rec.count())

	q.Close()
	q.Start()
	assert.Equal(t, 0, bus.Len())
}

func TestDebounceCoalescesNotifications(t *testing.T) {
	bus := NewBus()
	clock := newManualClock(lateEvening)
	rec := &recorder{}
	q := New("not done", nil, bus, Options{Clock: clock, Debounce: 100 * time.Millisecond, OnRender: rec.record})
	defer q.Close()

	q.Start()
	require.Equal(t, 1, rec.count())

	bus.Publish([]*task.Task{dueTask("a", "2025-01-15")})
	bus.Publish([]*task.Task{dueTask("b", "2025-01-15")})
	bus.Publish([]*task.Task{dueTask("c", "2025-01-15")})
	assert.Equal(t, 1, rec.count())

	clock.Advance(100 * time.Millisecond)
	assert.Equal(t, 2, rec.count())
	assert.Equal(t, []string{"c"}, rec.last())
}

func TestNotificationDuringEvaluationIsProcessedAfter(t *testing.T) {
	bus := NewBus()
	var versions []uint64
	var q *Query

	q = New("not done", nil, bus, Options{
		Clock: newManualClock(lateEvening),
		OnRender: func(res *query.Result) {
			versions = append(versions, uint64(len(res.Tasks)))
			if len(versions) == 1 {
				// Arrives while the first pass is still rendering.
				bus.Publish([]*task.Task{dueTask("a", "2025-01-15")})
				bus.Publish([]*task.Task{dueTask("a", "2025-01-15"), dueTask("b", "2025-01-15")})
				assert.Len(t, versions, 1, "nested notifications wait for the running pass")
			}
		},
	})
	defer q.Close()

	q.Start()
	assert.Equal(t, []uint64{0, 2}, versions, "only the latest queued snapshot is evaluated")
}

func TestSetFileRecompilesOnChange(t *testing.T) {
	bus := NewBus()
	bus.Publish([]*task.Task{
		{Location: task.Location{Path: "work/a.md"}, Status: task.Todo, Description: "work"},
		{Location: task.Location{Path: "home/b.md"}, Status: task.Todo, Description: "home"},
	})

	rec := &recorder{}
	file := task.NewFile("work/index.md", map[string]any{"area": "work"})
	q := New("path includes {{query.file.property('area')}}", file, bus, Options{
		Clock:    newManualClock(lateEvening),
		OnRender: rec.record,
	})
	defer q.Close()

	q.Start()
	assert.Equal(t, []string{"work"}, rec.last())

	q.SetFile(task.NewFile("work/index.md", map[string]any{"area": "work"}))
	assert.Equal(t, 1, rec.count(), "identical file is ignored")

	q.SetFile(task.NewFile("work/index.md", map[string]any{"area": "home"}))
	assert.Equal(t, 2, rec.count())
	assert.Equal(t, []string{"home"}, rec.last())
}

func TestEachQueryHasItsOwnID(t *testing.T) {
	bus := NewBus()
	a := New("", nil, bus, Options{})
	b := New("", nil, bus, Options{})
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestUntilMidnight(t *testing.T) {
	assert.Equal(t, time.Hour+time.Second, untilMidnight(lateEvening, time.Second))

	loc := time.FixedZone("UTC-3", -3*60*60)
	now := time.Date(2025, time.March, 1, 0, 0, 0, 0, loc)
	assert.Equal(t, 24*time.Hour, untilMidnight(now, 0))
}

func TestBusDeliversInSubscriptionOrder(t *testing.T) {
	bus := NewBus()
	var order []string
	h1 := bus.Subscribe(func(Snapshot) { order = append(order, "first") })
	bus.Subscribe(func(Snapshot) { order = append(order, "second") })

	snap := bus.Publish(nil)
	assert.Equal(t, uint64(1), snap.Version)
	assert.Equal(t, []string{"first", "second"}, order)

	bus.Unsubscribe(h1)
	bus.Publish(nil)
	assert.Equal(t, []string{"first", "second", "second"}, order)
	assert.Equal(t, uint64(2), bus.Current().Version)
}

func descriptionsOf(res *query.Result) []string {
	if res == nil {
		return nil
	}
	out := make([]string, 0, len(res.Tasks))
	for _, t := range res.Tasks {
		out = append(out, t.Description)
	}
	return slices.Clip(out)
}
