package query

import (
	"cmp"
	"hash/fnv"
	"regexp"
	"strconv"
	"strings"

	"github.com/elcuervo/otq/internal/date"
	"github.com/elcuervo/otq/internal/task"
)

// Comparator orders two tasks. It returns a negative number when a sorts
// first, zero on a tie and a positive number when b sorts first.
type Comparator func(a, b *task.Task, si *SearchInfo) int

// Sorter is a compiled sort instruction.
type Sorter struct {
	Statement  Statement
	Property   string
	Reverse    bool
	Comparator Comparator
}

// NewSorter builds a sorter. With reverse set the comparator is negated, so
// ties stay ties and a stable sort keeps their input order.
func NewSorter(property string, c Comparator, reverse bool) *Sorter {
	if reverse {
		c = reversed(c)
	}
	return &Sorter{Property: property, Reverse: reverse, Comparator: c}
}

func reversed(c Comparator) Comparator {
	return func(a, b *task.Task, si *SearchInfo) int {
		return -sign(c(a, b, si))
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}

// composeSorters chains sorters left to right; later sorters only break ties.
func composeSorters(sorters []*Sorter) Comparator {
	return func(a, b *task.Task, si *SearchInfo) int {
		for _, s := range sorters {
			if c := s.Comparator(a, b, si); c != 0 {
				return c
			}
		}
		return 0
	}
}

var sortRe = regexp.MustCompile(`(?i)^sort\s+by\s+([a-z.]+)(?:\s+(\d+))?(\s+reverse)?$`)

func compileSorter(line string) (*Sorter, error) {
	m := sortRe.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return nil, parseErrorf("malformed sort instruction")
	}

	property := strings.ToLower(m[1])
	reverse := m[3] != ""

	if property == "tag" {
		n := 1
		if m[2] != "" {
			n, _ = strconv.Atoi(m[2])
		}
		if n < 1 {
			return nil, parseErrorf("tag number must be at least 1")
		}
		return NewSorter("tag", byTag(n), reverse), nil
	}
	if m[2] != "" {
		return nil, parseErrorf("sort by %s does not take a number", property)
	}

	c, ok := comparators[property]
	if !ok {
		return nil, parseErrorf("cannot sort by %q", property)
	}
	return NewSorter(property, c, reverse), nil
}

var statusTypeRank = map[task.StatusType]int{
	task.StatusInProgress: 1,
	task.StatusTodo:       2,
	task.StatusDone:       3,
	task.StatusCancelled:  4,
	task.StatusNonTask:    5,
}

var comparators = map[string]Comparator{
	"status": func(a, b *task.Task, _ *SearchInfo) int {
		return compareBool(!a.IsDone(), !b.IsDone())
	},
	"status.type": func(a, b *task.Task, _ *SearchInfo) int {
		return cmp.Compare(statusTypeRank[a.Status.Type], statusTypeRank[b.Status.Type])
	},
	"status.name": func(a, b *task.Task, _ *SearchInfo) int {
		return compareText(a.Status.Name, b.Status.Name)
	},
	"priority": func(a, b *task.Task, _ *SearchInfo) int {
		return cmp.Compare(b.Priority, a.Priority)
	},
	"urgency": func(a, b *task.Task, si *SearchInfo) int {
		return cmp.Compare(b.Urgency(si.Today), a.Urgency(si.Today))
	},
	"due":       byDate(func(t *task.Task) date.Date { return t.DueDate }),
	"scheduled": byDate(func(t *task.Task) date.Date { return t.ScheduledDate }),
	"start":     byDate(func(t *task.Task) date.Date { return t.StartDate }),
	"created":   byDate(func(t *task.Task) date.Date { return t.CreatedDate }),
	"done":      byDate(func(t *task.Task) date.Date { return t.DoneDate }),
	"cancelled": byDate(func(t *task.Task) date.Date { return t.CancelledDate }),
	"happens":   byDate(happensDate),
	"description": func(a, b *task.Task, _ *SearchInfo) int {
		return compareText(a.DescriptionWithoutTags(), b.DescriptionWithoutTags())
	},
	"path": func(a, b *task.Task, _ *SearchInfo) int {
		return compareText(a.Path, b.Path)
	},
	"filename": func(a, b *task.Task, _ *SearchInfo) int {
		return compareText(a.File.Filename(), b.File.Filename())
	},
	"heading": func(a, b *task.Task, _ *SearchInfo) int {
		return compareMissingLast(a.Heading, b.Heading)
	},
	"id": func(a, b *task.Task, _ *SearchInfo) int {
		return compareMissingLast(a.ID, b.ID)
	},
	"recurring": func(a, b *task.Task, _ *SearchInfo) int {
		return compareBool(a.IsRecurring(), b.IsRecurring())
	},
	"random": func(a, b *task.Task, si *SearchInfo) int {
		return cmp.Compare(randomKey(a, si.Today), randomKey(b, si.Today))
	},
}

// compareBool sorts true before false.
func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return -1
	default:
		return 1
	}
}

func compareText(a, b string) int {
	return cmp.Compare(strings.ToLower(a), strings.ToLower(b))
}

func compareMissingLast(a, b string) int {
	switch {
	case a == "" && b == "":
		return 0
	case a == "":
		return 1
	case b == "":
		return -1
	default:
		return compareText(a, b)
	}
}

// dateRank puts valid dates first, then invalid ones, then absent ones.
func dateRank(d date.Date) int {
	switch {
	case d.IsValid():
		return 0
	case d.IsSet():
		return 1
	default:
		return 2
	}
}

func byDate(get func(t *task.Task) date.Date) Comparator {
	return func(a, b *task.Task, _ *SearchInfo) int {
		da, db := get(a), get(b)
		if c := cmp.Compare(dateRank(da), dateRank(db)); c != 0 {
			return c
		}
		if !da.IsValid() {
			return 0
		}
		return da.Compare(db)
	}
}

// happensDate is the earliest valid of start, scheduled and due.
func happensDate(t *task.Task) date.Date {
	var earliest date.Date
	for _, d := range []date.Date{t.StartDate, t.ScheduledDate, t.DueDate} {
		if d.IsValid() && (!earliest.IsSet() || d.Before(earliest)) {
			earliest = d
		}
	}
	return earliest
}

func byTag(n int) Comparator {
	nth := func(t *task.Task) string {
		if len(t.Tags) < n {
			return ""
		}
		return t.Tags[n-1]
	}
	return func(a, b *task.Task, _ *SearchInfo) int {
		return compareMissingLast(nth(a), nth(b))
	}
}

// randomKey shuffles tasks in an order that holds for the whole day.
func randomKey(t *task.Task, today date.Date) uint64 {
	h := fnv.New64a()
	h.Write([]byte(today.String()))
	h.Write([]byte(t.Description))
	return h.Sum64()
}
