// Package live keeps a compiled query's result current as the vault changes
// and as days roll over.
//
// A Query evaluates once when started, again for every snapshot its
// ChangeFeed delivers and again shortly after each local midnight, when
// relative dates such as "today" are recompiled. Evaluations are serialized:
// a snapshot that arrives while one is running is held, newer ones replace
// it, and the latest is evaluated as soon as the running pass finishes.
package live

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/elcuervo/otq/internal/query"
	"github.com/elcuervo/otq/internal/task"
)

// Options configure a live query.
type Options struct {
	GlobalQuery string
	// Debounce delays evaluation after a notification; zero evaluates at once.
	Debounce time.Duration
	Clock    Clock
	Logger   *zap.Logger
	// OnRender receives every result. It must not call Close.
	OnRender func(*query.Result)
}

// Query is a query bound to a ChangeFeed.
type Query struct {
	id     uuid.UUID
	source string
	feed   ChangeFeed
	opts   Options
	clock  Clock
	logger *zap.Logger

	mu       sync.Mutex
	file     *task.File
	compiled *query.Query
	handle   Handle
	started  bool
	closed   bool
	midnight Timer
	debounce *Debouncer
	last     *query.Result

	// eval guards running and pending; pending holds the latest snapshot
	// that arrived while a pass was running.
	eval    sync.Mutex
	running bool
	pending *Snapshot

	render sync.Mutex
}

// New compiles source for file. The query does nothing until Start.
func New(source string, file *task.File, feed ChangeFeed, opts Options) *Query {
	clock := opts.Clock
	if clock == nil {
		clock = RealClock
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	q := &Query{
		id:     uuid.New(),
		source: source,
		feed:   feed,
		opts:   opts,
		clock:  clock,
		file:   file,
	}
	q.logger = logger.With(zap.String("query_id", q.id.String()))
	if opts.Debounce > 0 {
		q.debounce = NewDebouncer(clock, opts.Debounce)
	}
	q.compiled = q.compile()
	return q
}

func (q *Query) ID() uuid.UUID {
	return q.id
}

// Start evaluates against the current snapshot, subscribes to changes and
// arms the midnight timer. Calling Start twice has no effect.
func (q *Query) Start() {
	q.mu.Lock()
	if q.started || q.closed {
		q.mu.Unlock()
		return
	}
	q.started = true
	q.handle = q.feed.Subscribe(q.onChange)
	q.armMidnight()
	q.mu.Unlock()

	q.logger.Debug("live query started", zap.String("path", q.file.Path()))
	q.feed.RequestUpdate(q.process)
}

// Close unsubscribes and cancels pending timers. It waits for a running
// evaluation to finish, and no OnRender call happens after it returns.
func (q *Query) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	if q.started {
		q.feed.Unsubscribe(q.handle)
	}
	if q.midnight != nil {
		q.midnight.Stop()
		q.midnight = nil
	}
	if q.debounce != nil {
		q.debounce.Stop()
	}
	q.mu.Unlock()

	q.eval.Lock()
	q.pending = nil
	q.eval.Unlock()

	// Wait out a render that passed the closed check before we set it.
	q.render.Lock()
	defer q.render.Unlock()

	q.logger.Debug("live query closed")
}

// SetFile moves the query to another file, or picks up changed frontmatter.
// Placeholders are expanded again and the query re-evaluated only when the
// path or properties differ.
func (q *Query) SetFile(file *task.File) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	if q.file.Path() == file.Path() && q.file.PropertiesIdenticalTo(file) {
		q.mu.Unlock()
		return
	}
	q.file = file
	q.compiled = q.compile()
	started := q.started
	q.mu.Unlock()

	q.logger.Debug("query file changed", zap.String("path", file.Path()))
	if started {
		q.feed.RequestUpdate(q.process)
	}
}

// Compiled returns the instructions currently in effect.
func (q *Query) Compiled() *query.Query {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.compiled
}

// Last returns the most recent result, or nil before the first evaluation.
func (q *Query) Last() *query.Result {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.last
}

// compile builds the query for the current file and day. Callers hold mu or
// own q exclusively.
func (q *Query) compile() *query.Query {
	compiled := query.Parse(q.source, query.Options{
		Now:         q.clock.Now(),
		File:        q.file,
		GlobalQuery: q.opts.GlobalQuery,
	})
	for _, err := range compiled.Errors() {
		q.logger.Warn("query line ignored", zap.Error(err))
	}
	return compiled
}

// armMidnight schedules the next day rollover. Callers hold mu.
func (q *Query) armMidnight() {
	wait := untilMidnight(q.clock.Now(), MidnightBuffer)
	q.midnight = q.clock.AfterFunc(wait, q.onMidnight)
}

func (q *Query) onMidnight() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.compiled = q.compile()
	q.armMidnight()
	q.mu.Unlock()

	q.logger.Debug("day rolled over, recomputing")
	q.feed.RequestUpdate(q.process)
}

func (q *Query) onChange(s Snapshot) {
	if q.debounce == nil {
		q.process(s)
		return
	}
	q.debounce.Trigger(func() { q.process(s) })
}

// process evaluates s, or queues it when a pass is already running on
// another goroutine or further up this one.
func (q *Query) process(s Snapshot) {
	q.eval.Lock()
	if q.running {
		q.pending = &s
		q.eval.Unlock()
		return
	}
	q.running = true
	q.eval.Unlock()

	for {
		q.evaluate(s)

		q.eval.Lock()
		if q.pending == nil {
			q.running = false
			q.eval.Unlock()
			return
		}
		s = *q.pending
		q.pending = nil
		q.eval.Unlock()
	}
}

func (q *Query) evaluate(s Snapshot) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	compiled := q.compiled
	q.mu.Unlock()

	res := compiled.Evaluate(s.Tasks)

	q.render.Lock()
	defer q.render.Unlock()

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.last = res
	q.mu.Unlock()

	q.logger.Debug("query evaluated",
		zap.Uint64("version", s.Version),
		zap.Int("matched", res.TotalMatched),
		zap.Int("shown", len(res.Tasks)),
		zap.Stringer("state", res.State))

	if q.opts.OnRender != nil {
		q.opts.OnRender(res)
	}
}
