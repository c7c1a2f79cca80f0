package query

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/elcuervo/otq/internal/date"
)

var (
	relativeSpanRe = regexp.MustCompile(`^(this|next|last)\s+(week|month|quarter|year)$`)
	inDaysRe       = regexp.MustCompile(`^in\s+(\d+)\s+(days?|weeks?|months?)$`)
	agoRe          = regexp.MustCompile(`^(\d+)\s+(days?|weeks?|months?)\s+ago$`)
	rangeRe        = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})\s+(\d{4}-\d{2}-\d{2})$`)
)

// dateRange is an inclusive span of days. Single days have start == end.
type dateRange struct {
	start date.Date
	end   date.Date
}

func singleDay(d date.Date) dateRange {
	return dateRange{start: d, end: d}
}

func (r dateRange) contains(d date.Date) bool {
	return !d.Before(r.start) && !d.After(r.end)
}

func (r dateRange) String() string {
	if r.start.Equal(r.end) {
		return r.start.String()
	}
	return r.start.String() + " " + r.end.String()
}

// parseDateExpression resolves a date expression relative to today.
// Relative expressions are fixed at compile time; queries are recompiled
// after midnight to move them on.
func parseDateExpression(expr string, today date.Date) (dateRange, bool) {
	expr = strings.ToLower(strings.TrimSpace(expr))

	switch expr {
	case "today":
		return singleDay(today), true
	case "tomorrow":
		return singleDay(today.AddDays(1)), true
	case "yesterday":
		return singleDay(today.AddDays(-1)), true
	}

	if m := rangeRe.FindStringSubmatch(expr); m != nil {
		start, end := date.MustParse(m[1]), date.MustParse(m[2])
		if !start.IsValid() || !end.IsValid() {
			return dateRange{}, false
		}
		if end.Before(start) {
			start, end = end, start
		}
		return dateRange{start: start, end: end}, true
	}

	if d, err := date.Parse(expr); err == nil {
		if !d.IsValid() {
			return dateRange{}, false
		}
		return singleDay(d), true
	}

	if m := relativeSpanRe.FindStringSubmatch(expr); m != nil {
		return relativeSpan(m[1], m[2], today), true
	}

	if m := inDaysRe.FindStringSubmatch(expr); m != nil {
		n, _ := strconv.Atoi(m[1])
		return singleDay(shift(today, n, m[2])), true
	}

	if m := agoRe.FindStringSubmatch(expr); m != nil {
		n, _ := strconv.Atoi(m[1])
		return singleDay(shift(today, -n, m[2])), true
	}

	return dateRange{}, false
}

func shift(d date.Date, n int, unit string) date.Date {
	switch strings.TrimSuffix(unit, "s") {
	case "week":
		return d.AddDays(7 * n)
	case "month":
		return d.AddMonths(n)
	default:
		return d.AddDays(n)
	}
}

// relativeSpan returns the calendar week (Monday first), month, quarter or
// year containing today, or the one before or after it.
func relativeSpan(which, unit string, today date.Date) dateRange {
	step := 0
	switch which {
	case "next":
		step = 1
	case "last":
		step = -1
	}

	switch unit {
	case "week":
		offset := (int(today.Weekday()) + 6) % 7
		monday := today.AddDays(-offset + 7*step)
		return dateRange{start: monday, end: monday.AddDays(6)}
	case "month":
		first := today.WithDay(1).AddMonths(step)
		return dateRange{start: first, end: first.EndOfMonth()}
	case "quarter":
		q := (int(today.Month()) - 1) / 3
		first := date.New(today.Year(), time.Month(q*3+1), 1).AddMonths(3 * step)
		return dateRange{start: first, end: first.AddMonths(2).EndOfMonth()}
	default:
		first := date.New(today.Year()+step, time.January, 1)
		return dateRange{start: first, end: date.New(today.Year()+step, time.December, 31)}
	}
}
