package query

import (
	"regexp"
	"slices"
	"strings"

	"github.com/elcuervo/otq/internal/date"
	"github.com/elcuervo/otq/internal/task"
)

// Predicate decides whether a task is kept. Predicates must be pure: the
// same task and SearchInfo always give the same answer.
type Predicate func(t *task.Task, si *SearchInfo) bool

// Filter is a compiled filter instruction.
type Filter struct {
	Statement Statement
	Predicate Predicate
	// Explanation describes the filter for explain output. Boolean filters
	// span several lines.
	Explanation string
}

func (f *Filter) Matches(t *task.Task, si *SearchInfo) bool {
	return f.Predicate(t, si)
}

// compileContext carries what compilation needs besides the line itself.
type compileContext struct {
	today date.Date
	file  *task.File
}

// filterParser recognizes one family of filters. It returns a nil filter and
// nil error when the line belongs to another family.
type filterParser func(line string, ctx compileContext) (*Filter, error)

var filterParsers []filterParser

func init() {
	filterParsers = []filterParser{
		parseFilterBy,
		parseBooleanFilter,
		parseStatusFilter,
		parseRecurringFilter,
		parseDependencyFilter,
		parsePriorityFilter,
		parseDateFilter,
		parseTextFilter,
		parseTagFilter,
		parsePropertyFilter,
	}
}

// compileFilter turns one instruction line into a filter.
func compileFilter(line string, ctx compileContext) (*Filter, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, parseErrorf("empty filter")
	}

	for _, parse := range filterParsers {
		f, err := parse(line, ctx)
		if err != nil {
			return nil, err
		}
		if f != nil {
			return f, nil
		}
	}

	return nil, parseErrorf("unknown instruction")
}

func newFilter(explanation string, p Predicate) *Filter {
	return &Filter{Predicate: p, Explanation: explanation}
}

var filterByRe = regexp.MustCompile(`(?i)^filter\s+by\s+(.+)$`)

func parseFilterBy(line string, ctx compileContext) (*Filter, error) {
	m := filterByRe.FindStringSubmatch(line)
	if m == nil {
		return nil, nil
	}
	if strings.HasPrefix(strings.ToLower(m[1]), "function") {
		return nil, parseErrorf("scripted filters are not supported")
	}
	return compileFilter(m[1], ctx)
}

var (
	statusTypeRe = regexp.MustCompile(`(?i)^status\.type\s+(is not|is)\s+(.+)$`)
	statusNameRe = regexp.MustCompile(`(?i)^status\.name\s+(is not|is|includes|does not include)\s+(.+)$`)
)

func parseStatusFilter(line string, _ compileContext) (*Filter, error) {
	switch strings.ToLower(line) {
	case "done":
		return newFilter("done", func(t *task.Task, _ *SearchInfo) bool { return t.IsDone() }), nil
	case "not done":
		return newFilter("not done", func(t *task.Task, _ *SearchInfo) bool { return !t.IsDone() }), nil
	}

	if m := statusTypeRe.FindStringSubmatch(line); m != nil {
		want, ok := task.ParseStatusType(m[2])
		if !ok {
			return nil, parseErrorf("unknown status type %q", m[2])
		}
		negate := strings.EqualFold(m[1], "is not")
		return newFilter(lowerFirst(line), func(t *task.Task, _ *SearchInfo) bool {
			return (t.Status.Type == want) != negate
		}), nil
	}

	if m := statusNameRe.FindStringSubmatch(line); m != nil {
		want := strings.TrimSpace(m[2])
		op := strings.ToLower(m[1])
		negate := strings.Contains(op, "not")
		if strings.HasPrefix(op, "is") {
			return newFilter(lowerFirst(line), func(t *task.Task, _ *SearchInfo) bool {
				return strings.EqualFold(t.Status.Name, want) != negate
			}), nil
		}
		needle := strings.ToLower(want)
		return newFilter(lowerFirst(line), func(t *task.Task, _ *SearchInfo) bool {
			return strings.Contains(strings.ToLower(t.Status.Name), needle) != negate
		}), nil
	}

	return nil, nil
}

func parseRecurringFilter(line string, _ compileContext) (*Filter, error) {
	switch strings.ToLower(line) {
	case "is recurring":
		return newFilter("is recurring", func(t *task.Task, _ *SearchInfo) bool { return t.IsRecurring() }), nil
	case "is not recurring":
		return newFilter("is not recurring", func(t *task.Task, _ *SearchInfo) bool { return !t.IsRecurring() }), nil
	}
	return nil, nil
}

func parseDependencyFilter(line string, _ compileContext) (*Filter, error) {
	switch strings.ToLower(line) {
	case "is blocked":
		return newFilter("is blocked", func(t *task.Task, si *SearchInfo) bool { return si.IsBlocked(t) }), nil
	case "is not blocked":
		return newFilter("is not blocked", func(t *task.Task, si *SearchInfo) bool { return !si.IsBlocked(t) }), nil
	case "is blocking":
		return newFilter("is blocking", func(t *task.Task, si *SearchInfo) bool { return si.IsBlocking(t) }), nil
	case "is not blocking":
		return newFilter("is not blocking", func(t *task.Task, si *SearchInfo) bool { return !si.IsBlocking(t) }), nil
	case "has id":
		return newFilter("has id", func(t *task.Task, _ *SearchInfo) bool { return t.ID != "" }), nil
	case "no id":
		return newFilter("no id", func(t *task.Task, _ *SearchInfo) bool { return t.ID == "" }), nil
	case "description is duplicated":
		return newFilter("description is duplicated", func(t *task.Task, si *SearchInfo) bool {
			return len(si.TasksWithDescription(t.Description)) > 1
		}), nil
	}
	return nil, nil
}

var priorityRe = regexp.MustCompile(`(?i)^priority\s+is\s+(?:(above|below|not)\s+)?(\w+)$`)

func parsePriorityFilter(line string, _ compileContext) (*Filter, error) {
	m := priorityRe.FindStringSubmatch(line)
	if m == nil {
		if strings.HasPrefix(strings.ToLower(line), "priority ") {
			return nil, parseErrorf("malformed priority filter")
		}
		return nil, nil
	}

	want, ok := task.ParsePriority(m[2])
	if !ok {
		return nil, parseErrorf("unknown priority %q", m[2])
	}

	var p Predicate
	switch strings.ToLower(m[1]) {
	case "above":
		p = func(t *task.Task, _ *SearchInfo) bool { return t.Priority > want }
	case "below":
		p = func(t *task.Task, _ *SearchInfo) bool { return t.Priority < want }
	case "not":
		p = func(t *task.Task, _ *SearchInfo) bool { return t.Priority != want }
	default:
		p = func(t *task.Task, _ *SearchInfo) bool { return t.Priority == want }
	}
	return newFilter(lowerFirst(line), p), nil
}

var (
	tagFilterRe = regexp.MustCompile(`(?i)^tags?\s+(includes?|does not include|do not include)\s+(.+)$`)
	tagRegexRe  = regexp.MustCompile(`(?i)^tags?\s+(regex matches|regex does not match)\s+(.+)$`)
)

func parseTagFilter(line string, _ compileContext) (*Filter, error) {
	switch strings.ToLower(line) {
	case "has tags", "has tag":
		return newFilter("has tags", func(t *task.Task, _ *SearchInfo) bool { return len(t.Tags) > 0 }), nil
	case "no tags", "no tag":
		return newFilter("no tags", func(t *task.Task, _ *SearchInfo) bool { return len(t.Tags) == 0 }), nil
	}

	if m := tagRegexRe.FindStringSubmatch(line); m != nil {
		re, err := parseRegexLiteral(m[2])
		if err != nil {
			return nil, err
		}
		negate := strings.Contains(strings.ToLower(m[1]), "not")
		return newFilter(lowerFirst(line), func(t *task.Task, _ *SearchInfo) bool {
			return slices.ContainsFunc(t.Tags, re.MatchString) != negate
		}), nil
	}

	m := tagFilterRe.FindStringSubmatch(line)
	if m == nil {
		return nil, nil
	}
	needle := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(m[2]), "#"))
	negate := strings.Contains(strings.ToLower(m[1]), "not")

	return newFilter(lowerFirst(line), func(t *task.Task, _ *SearchInfo) bool {
		found := slices.ContainsFunc(t.Tags, func(tag string) bool {
			return strings.Contains(strings.ToLower(strings.TrimPrefix(tag, "#")), needle)
		})
		return found != negate
	}), nil
}

var (
	hasPropertyRe = regexp.MustCompile(`(?i)^(has|no)\s+property\s+(\S+)$`)
	propertyRe    = regexp.MustCompile(`(?i)^property\s+(\S+)\s+(is not|is|includes|does not include)\s+(.+)$`)
)

// parsePropertyFilter matches against frontmatter of the file each task
// lives in.
func parsePropertyFilter(line string, _ compileContext) (*Filter, error) {
	if m := hasPropertyRe.FindStringSubmatch(line); m != nil {
		name := m[2]
		want := strings.EqualFold(m[1], "has")
		return newFilter(lowerFirst(line), func(t *task.Task, _ *SearchInfo) bool {
			return t.File.HasProperty(name) == want
		}), nil
	}

	m := propertyRe.FindStringSubmatch(line)
	if m == nil {
		return nil, nil
	}
	name, op, value := m[1], strings.ToLower(m[2]), strings.TrimSpace(m[3])
	needle := strings.ToLower(value)

	var p Predicate
	switch op {
	case "is", "is not":
		negate := op == "is not"
		p = func(t *task.Task, _ *SearchInfo) bool {
			match := slices.ContainsFunc(t.File.PropertyStrings(name), func(v string) bool {
				return strings.EqualFold(v, value)
			})
			return match != negate
		}
	default:
		negate := op == "does not include"
		p = func(t *task.Task, _ *SearchInfo) bool {
			match := slices.ContainsFunc(t.File.PropertyStrings(name), func(v string) bool {
				return strings.Contains(strings.ToLower(v), needle)
			})
			return match != negate
		}
	}
	return newFilter(lowerFirst(line), p), nil
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
