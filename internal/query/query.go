// Package query compiles the task query language and evaluates it against
// a snapshot of tasks.
//
// A query is parsed once into an immutable set of instructions. Lines that
// fail to compile are reported and skipped; the remaining instructions still
// apply. Evaluation is a pure function of the instructions, the tasks and the
// SearchInfo built for the pass:
//
//	filters (all must match) → stable sort → group → group limit → limit
package query

import (
	"errors"
	"slices"
	"time"

	"github.com/elcuervo/otq/internal/date"
	"github.com/elcuervo/otq/internal/task"
)

// State is the pipeline stage a query is in.
type State int

const (
	StateIdle State = iota
	StateParsing
	StateCompiled
	StateEvaluating
	StateRendered
	StateError
)

var stateNames = []string{"idle", "parsing", "compiled", "evaluating", "rendered", "error"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Options configure compilation.
type Options struct {
	// Now resolves relative dates such as "today". Defaults to time.Now.
	Now time.Time
	// File is the file the query is written in, used for placeholders.
	File *task.File
	// GlobalQuery is prepended to the query source.
	GlobalQuery string
}

// Query is a compiled query.
type Query struct {
	source  string
	file    *task.File
	today   date.Date
	state   State
	errs    []*LineError
	explain bool
	layout  Layout

	filters    []*Filter
	sorters    []*Sorter
	groupers   []*Grouper
	limit      int
	groupLimit int
	statements []Statement
}

// Parse compiles source. It never fails as a whole: per-line errors are
// available from Errors, and a query where every instruction failed is in
// StateError.
func Parse(source string, opts Options) *Query {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	q := &Query{
		source:     source,
		file:       opts.File,
		today:      date.FromTime(now),
		state:      StateParsing,
		limit:      -1,
		groupLimit: -1,
	}

	statements := append(
		ParseStatements(opts.GlobalQuery, OriginGlobal),
		ParseStatements(source, OriginQuery)...,
	)
	q.statements = statements

	ctx := compileContext{today: q.today, file: opts.File}
	compiled := 0

	for _, stmt := range statements {
		expanded, err := ExpandPlaceholders(stmt.Raw, opts.File)
		if err != nil {
			q.errs = append(q.errs, &LineError{Statement: stmt, Err: err})
			continue
		}
		stmt.Expanded = expanded

		ins, err := classify(stmt, ctx)
		if err != nil {
			q.errs = append(q.errs, &LineError{Statement: stmt, Err: err})
			continue
		}

		q.add(ins)
		compiled++
	}

	switch {
	case compiled == 0 && len(statements) > 0:
		q.state = StateError
		q.errs = append(q.errs, &LineError{Err: ErrNoInstructions})
	default:
		q.state = StateCompiled
	}

	return q
}

func (q *Query) add(ins *Instruction) {
	switch ins.Kind {
	case KindFilter:
		q.filters = append(q.filters, ins.Filter)
	case KindSort:
		q.sorters = append(q.sorters, ins.Sorter)
	case KindGroup:
		q.groupers = append(q.groupers, ins.Grouper)
	case KindLimit:
		q.limit = ins.Limit
	case KindGroupLimit:
		q.groupLimit = ins.Limit
	case KindLayout:
		ins.Layout.apply(&q.layout)
	case KindExplain:
		q.explain = true
	}
}

// Source returns the query text as given to Parse.
func (q *Query) Source() string {
	return q.source
}

// File returns the file the query was compiled for.
func (q *Query) File() *task.File {
	return q.file
}

// Today returns the day relative dates were resolved against.
func (q *Query) Today() date.Date {
	return q.today
}

func (q *Query) State() State {
	return q.state
}

// Errors returns the line errors recorded while compiling.
func (q *Query) Errors() []*LineError {
	return slices.Clone(q.errs)
}

// Err joins every line error, or returns nil.
func (q *Query) Err() error {
	errs := make([]error, len(q.errs))
	for i, e := range q.errs {
		errs[i] = e
	}
	return errors.Join(errs...)
}

func (q *Query) Filters() []*Filter {
	return slices.Clone(q.filters)
}

func (q *Query) Sorters() []*Sorter {
	return slices.Clone(q.sorters)
}

func (q *Query) Groupers() []*Grouper {
	return slices.Clone(q.groupers)
}

// Limit returns the task limit, or -1 when unlimited.
func (q *Query) Limit() int {
	return q.limit
}

// GroupLimit returns the per group limit, or -1 when unlimited.
func (q *Query) GroupLimit() int {
	return q.groupLimit
}

func (q *Query) Layout() Layout {
	return q.layout
}

// Result is the outcome of one evaluation pass.
type Result struct {
	// Groups holds the grouped tasks. An ungrouped query has one group
	// without names.
	Groups []Group
	// Tasks is every task in Groups, in display order. A task in several
	// groups appears once per group.
	Tasks []*task.Task
	// TotalMatched counts tasks that passed the filters, before limits.
	TotalMatched int
	Errors       []*LineError
	Explanation  string
	Layout       Layout
	State        State
}

// Evaluate runs the query over tasks. The query is not modified and can be
// evaluated again with another snapshot.
func (q *Query) Evaluate(tasks []*task.Task) *Result {
	res := &Result{
		Errors: q.Errors(),
		Layout: q.layout,
	}
	if q.explain {
		res.Explanation = q.Explain()
	}
	if q.state == StateError {
		res.State = StateError
		return res
	}

	si := NewSearchInfo(tasks, q.file, q.today)

	matched := make([]*task.Task, 0, len(tasks))
	for _, t := range tasks {
		if q.matches(t, si) {
			matched = append(matched, t)
		}
	}
	res.TotalMatched = len(matched)

	if len(q.sorters) > 0 {
		compare := composeSorters(q.sorters)
		slices.SortStableFunc(matched, func(a, b *task.Task) int {
			return compare(a, b, si)
		})
	}

	groups := groupTasks(matched, q.groupers, si)
	if q.groupLimit >= 0 {
		for i := range groups {
			if len(groups[i].Tasks) > q.groupLimit {
				groups[i].Tasks = groups[i].Tasks[:q.groupLimit]
			}
		}
	}
	if q.limit >= 0 {
		groups = limitGroups(groups, q.limit)
	}

	res.Groups = groups
	for _, g := range groups {
		res.Tasks = append(res.Tasks, g.Tasks...)
	}
	res.State = StateRendered
	return res
}

func (q *Query) matches(t *task.Task, si *SearchInfo) bool {
	for _, f := range q.filters {
		if !f.Matches(t, si) {
			return false
		}
	}
	return true
}

// limitGroups keeps the first n tasks walking groups in order. Groups left
// empty are dropped unless the result is ungrouped.
func limitGroups(groups []Group, n int) []Group {
	if len(groups) == 1 && len(groups[0].Names) == 0 {
		g := groups[0]
		if len(g.Tasks) > n {
			g.Tasks = g.Tasks[:n]
		}
		return []Group{g}
	}

	var out []Group
	remaining := n
	for _, g := range groups {
		if remaining <= 0 {
			break
		}
		if len(g.Tasks) > remaining {
			g.Tasks = g.Tasks[:remaining]
		}
		remaining -= len(g.Tasks)
		if len(g.Tasks) > 0 {
			out = append(out, g)
		}
	}
	return out
}
