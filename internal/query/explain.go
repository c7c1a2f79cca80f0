package query

import (
	"fmt"
	"strings"
)

// Explain describes the compiled query in plain text, with relative dates
// shown as the days they resolved to.
func (q *Query) Explain() string {
	var b strings.Builder

	if q.state == StateError {
		b.WriteString("Query has no valid instructions.\n")
		for _, e := range q.errs {
			if e.Statement.Raw != "" {
				fmt.Fprintf(&b, "\n  %v", e)
			}
		}
		return strings.TrimRight(b.String(), "\n")
	}

	if len(q.filters) == 0 {
		b.WriteString("No filters supplied. All tasks will match the query.\n")
	}
	for _, f := range q.filters {
		b.WriteString("\n")
		for _, line := range strings.Split(f.Explanation, "\n") {
			b.WriteString("  " + line + "\n")
		}
	}

	if len(q.sorters) > 0 || len(q.groupers) > 0 || q.limit >= 0 || q.groupLimit >= 0 {
		b.WriteString("\n")
	}
	for _, s := range q.sorters {
		fmt.Fprintf(&b, "sort by %s%s\n", s.Property, reverseSuffix(s.Reverse))
	}
	for _, g := range q.groupers {
		fmt.Fprintf(&b, "group by %s%s\n", g.Property, reverseSuffix(g.Reverse))
	}
	if q.groupLimit >= 0 {
		fmt.Fprintf(&b, "At most %s per group.\n", taskCount(q.groupLimit))
	}
	if q.limit >= 0 {
		fmt.Fprintf(&b, "At most %s.\n", taskCount(q.limit))
	}

	return strings.Trim(b.String(), "\n")
}

func reverseSuffix(reverse bool) string {
	if reverse {
		return " reverse"
	}
	return ""
}

func taskCount(n int) string {
	if n == 1 {
		return "1 task"
	}
	return fmt.Sprintf("%d tasks", n)
}
