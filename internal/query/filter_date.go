package query

import (
	"regexp"
	"strings"

	"github.com/elcuervo/otq/internal/date"
	"github.com/elcuervo/otq/internal/task"
)

var (
	dateFieldRe   = regexp.MustCompile(`(?i)^(due|scheduled|start|starts|created|done|cancelled|happens)\s+(on or before|on or after|before|after|on|in)?\s*(.+)$`)
	hasDateRe     = regexp.MustCompile(`(?i)^(has|no)\s+(due|scheduled|start|created|done|cancelled|happens)\s+dates?$`)
	invalidDateRe = regexp.MustCompile(`(?i)^(due|scheduled|start|created|done|cancelled)\s+date\s+is\s+invalid$`)
)

// datesOf returns the dates a date field looks at. "happens" covers start,
// scheduled and due.
func datesOf(field string) func(t *task.Task) []date.Date {
	switch field {
	case "due":
		return func(t *task.Task) []date.Date { return []date.Date{t.DueDate} }
	case "scheduled":
		return func(t *task.Task) []date.Date { return []date.Date{t.ScheduledDate} }
	case "start", "starts":
		return func(t *task.Task) []date.Date { return []date.Date{t.StartDate} }
	case "created":
		return func(t *task.Task) []date.Date { return []date.Date{t.CreatedDate} }
	case "done":
		return func(t *task.Task) []date.Date { return []date.Date{t.DoneDate} }
	case "cancelled":
		return func(t *task.Task) []date.Date { return []date.Date{t.CancelledDate} }
	default:
		return func(t *task.Task) []date.Date { return []date.Date{t.StartDate, t.ScheduledDate, t.DueDate} }
	}
}

func parseDateFilter(line string, ctx compileContext) (*Filter, error) {
	if m := hasDateRe.FindStringSubmatch(line); m != nil {
		dates := datesOf(strings.ToLower(m[2]))
		want := strings.EqualFold(m[1], "has")
		return newFilter(lowerFirst(line), func(t *task.Task, _ *SearchInfo) bool {
			return anyDate(dates(t), date.Date.IsSet) == want
		}), nil
	}

	if m := invalidDateRe.FindStringSubmatch(line); m != nil {
		dates := datesOf(strings.ToLower(m[1]))
		return newFilter(lowerFirst(line), func(t *task.Task, _ *SearchInfo) bool {
			return anyDate(dates(t), func(d date.Date) bool { return d.IsSet() && !d.IsValid() })
		}), nil
	}

	m := dateFieldRe.FindStringSubmatch(line)
	if m == nil {
		return nil, nil
	}

	field := strings.ToLower(m[1])
	op := strings.ToLower(m[2])
	expr := strings.TrimSpace(m[3])

	r, ok := parseDateExpression(expr, ctx.today)
	if !ok && op == "in" {
		// "due in 3 days" is a single day, not a span.
		r, ok = parseDateExpression("in "+expr, ctx.today)
		op = "on"
	}
	if !ok {
		return nil, parseErrorf("cannot read date %q", expr)
	}

	var test func(d date.Date) bool
	switch op {
	case "before":
		test = func(d date.Date) bool { return d.Before(r.start) }
	case "after":
		test = func(d date.Date) bool { return d.After(r.end) }
	case "on or before":
		test = func(d date.Date) bool { return !d.After(r.end) }
	case "on or after":
		test = func(d date.Date) bool { return !d.Before(r.start) }
	default:
		test = r.contains
		if op == "" {
			op = "on"
		}
	}

	dates := datesOf(field)
	explanation := field + " date is " + op + " " + r.String()
	if field == "happens" {
		explanation = "due, start or scheduled date is " + op + " " + r.String()
	}

	return newFilter(explanation, func(t *task.Task, _ *SearchInfo) bool {
		return anyDate(dates(t), func(d date.Date) bool { return d.IsValid() && test(d) })
	}), nil
}

func anyDate(dates []date.Date, f func(date.Date) bool) bool {
	for _, d := range dates {
		if f(d) {
			return true
		}
	}
	return false
}
