package query

import (
	"regexp"
	"strconv"
	"strings"
)

// Kind tags the variants an instruction line can compile to.
type Kind int

const (
	KindFilter Kind = iota
	KindSort
	KindGroup
	KindLimit
	KindGroupLimit
	KindLayout
	KindExplain
)

var kindNames = []string{"filter", "sort", "group", "limit", "group limit", "layout", "explain"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Instruction is one compiled statement. Exactly one payload is set,
// matching Kind.
type Instruction struct {
	Kind      Kind
	Statement Statement

	Filter  *Filter
	Sorter  *Sorter
	Grouper *Grouper
	Limit   int
	Layout  LayoutChange
}

// Layout controls what a renderer shows. It does not change which tasks
// match.
type Layout struct {
	ShortMode bool
	Hidden    map[string]bool
}

// IsHidden reports whether a component was turned off with "hide".
func (l Layout) IsHidden(component string) bool {
	return l.Hidden[component]
}

// LayoutChange is the payload of a layout instruction.
type LayoutChange struct {
	Component string
	Hide      bool
	ShortMode *bool
}

func (c LayoutChange) apply(l *Layout) {
	if c.ShortMode != nil {
		l.ShortMode = *c.ShortMode
		return
	}
	if l.Hidden == nil {
		l.Hidden = make(map[string]bool)
	}
	l.Hidden[c.Component] = c.Hide
}

// Layout components accepted by hide and show.
var layoutComponents = []string{
	"backlink", "edit button", "postpone button", "urgency", "tree", "tags",
	"task count", "priority", "recurrence rule", "id", "depends on",
	"created date", "start date", "scheduled date", "due date",
	"done date", "cancelled date",
}

var (
	limitRe      = regexp.MustCompile(`(?i)^limit\s+(?:to\s+)?(\d+)(?:\s+tasks?)?$`)
	groupLimitRe = regexp.MustCompile(`(?i)^limit\s+groups\s+(?:to\s+)?(\d+)(?:\s+tasks?)?$`)
	layoutRe     = regexp.MustCompile(`(?i)^(hide|show)\s+(.+)$`)
	modeRe       = regexp.MustCompile(`(?i)^(short|full)(?:\s+mode)?$`)
)

// classify decides which variant a line is and compiles its payload.
func classify(stmt Statement, ctx compileContext) (*Instruction, error) {
	line := strings.TrimSpace(stmt.Expanded)
	lower := strings.ToLower(line)

	ins := &Instruction{Statement: stmt}

	switch {
	case lower == "explain":
		ins.Kind = KindExplain

	case strings.HasPrefix(lower, "limit groups"):
		m := groupLimitRe.FindStringSubmatch(line)
		if m == nil {
			return nil, parseErrorf("malformed group limit")
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, parseErrorf("group limit out of range")
		}
		ins.Kind, ins.Limit = KindGroupLimit, n

	case strings.HasPrefix(lower, "limit"):
		m := limitRe.FindStringSubmatch(line)
		if m == nil {
			return nil, parseErrorf("malformed limit")
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, parseErrorf("limit out of range")
		}
		ins.Kind, ins.Limit = KindLimit, n

	case strings.HasPrefix(lower, "sort by"):
		s, err := compileSorter(line)
		if err != nil {
			return nil, err
		}
		s.Statement = stmt
		ins.Kind, ins.Sorter = KindSort, s

	case strings.HasPrefix(lower, "group by"):
		g, err := compileGrouper(line)
		if err != nil {
			return nil, err
		}
		g.Statement = stmt
		ins.Kind, ins.Grouper = KindGroup, g

	case modeRe.MatchString(line):
		short := strings.HasPrefix(lower, "short")
		ins.Kind, ins.Layout = KindLayout, LayoutChange{ShortMode: &short}

	case layoutRe.MatchString(line):
		change, err := parseLayout(line)
		if err != nil {
			return nil, err
		}
		ins.Kind, ins.Layout = KindLayout, change

	default:
		f, err := compileFilter(line, ctx)
		if err != nil {
			return nil, err
		}
		f.Statement = stmt
		ins.Kind, ins.Filter = KindFilter, f
	}

	return ins, nil
}

func parseLayout(line string) (LayoutChange, error) {
	m := layoutRe.FindStringSubmatch(line)
	component := strings.ToLower(strings.TrimSpace(m[2]))

	// Both "hide tags" and "hide tag" are accepted.
	for _, c := range layoutComponents {
		if component == c || component+"s" == c || component == c+"s" {
			return LayoutChange{Component: c, Hide: strings.EqualFold(m[1], "hide")}, nil
		}
	}
	return LayoutChange{}, parseErrorf("unknown layout component %q", component)
}
