package query

import (
	"cmp"
	"regexp"
	"slices"
	"strings"

	"github.com/elcuervo/otq/internal/date"
	"github.com/elcuervo/otq/internal/task"
)

// GroupKeys returns the group names a task belongs to at one level. Tasks
// with several keys, such as several tags, appear in each group.
type GroupKeys func(t *task.Task, si *SearchInfo) []string

// Grouper is a compiled group instruction. Each grouper adds one heading
// level.
type Grouper struct {
	Statement Statement
	Property  string
	Reverse   bool
	Keys      GroupKeys
}

// Group is one bucket of a grouped result. Names holds one heading per
// grouping level.
type Group struct {
	Names []string
	Tasks []*task.Task
}

// OrderedMap maintains insertion order for keys
type OrderedMap[K cmp.Ordered, V any] struct {
	data  map[K]V
	order []K
}

func NewOrderedMap[K cmp.Ordered, V any]() *OrderedMap[K, V] {
	return &OrderedMap[K, V]{
		data: make(map[K]V),
	}
}

func (m *OrderedMap[K, V]) Set(key K, value V) {
	if _, exists := m.data[key]; !exists {
		m.order = append(m.order, key)
	}
	m.data[key] = value
}

func (m *OrderedMap[K, V]) Get(key K) (V, bool) {
	v, ok := m.data[key]
	return v, ok
}

func (m *OrderedMap[K, V]) Keys() []K {
	return m.order
}

func (m *OrderedMap[K, V]) Len() int {
	return len(m.order)
}

var groupRe = regexp.MustCompile(`(?i)^group\s+by\s+(property\s+\S+|[a-z.]+)(\s+reverse)?$`)

func compileGrouper(line string) (*Grouper, error) {
	m := groupRe.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return nil, parseErrorf("malformed group instruction")
	}

	property := m[1]
	reverse := m[2] != ""

	if name, ok := strings.CutPrefix(strings.ToLower(property), "property"); ok && name != "" {
		name = strings.TrimSpace(property[len("property"):])
		return &Grouper{Property: "property " + name, Reverse: reverse, Keys: byProperty(name)}, nil
	}

	property = strings.ToLower(property)
	keys, ok := groupKeys[property]
	if !ok {
		return nil, parseErrorf("cannot group by %q", property)
	}
	return &Grouper{Property: property, Reverse: reverse, Keys: keys}, nil
}

func one(s string) []string { return []string{s} }

var groupKeys = map[string]GroupKeys{
	"status": func(t *task.Task, _ *SearchInfo) []string {
		if t.IsDone() {
			return one("Done")
		}
		return one("Todo")
	},
	"status.type": func(t *task.Task, _ *SearchInfo) []string {
		return one(t.Status.Type.String())
	},
	"status.name": func(t *task.Task, _ *SearchInfo) []string {
		return one(t.Status.Name)
	},
	"priority": func(t *task.Task, _ *SearchInfo) []string {
		if t.Priority == task.PriorityNone {
			return one("No priority")
		}
		name := t.Priority.String()
		return one(strings.ToUpper(name[:1]) + name[1:] + " priority")
	},
	"due":       dateKeys("due", func(t *task.Task) date.Date { return t.DueDate }),
	"scheduled": dateKeys("scheduled", func(t *task.Task) date.Date { return t.ScheduledDate }),
	"start":     dateKeys("start", func(t *task.Task) date.Date { return t.StartDate }),
	"created":   dateKeys("created", func(t *task.Task) date.Date { return t.CreatedDate }),
	"done":      dateKeys("done", func(t *task.Task) date.Date { return t.DoneDate }),
	"cancelled": dateKeys("cancelled", func(t *task.Task) date.Date { return t.CancelledDate }),
	"happens":   dateKeys("happens", happensDate),
	"filename": func(t *task.Task, _ *SearchInfo) []string {
		return one(t.File.FilenameWithoutExtension())
	},
	"folder": func(t *task.Task, _ *SearchInfo) []string {
		return one(t.File.Folder())
	},
	"path": func(t *task.Task, _ *SearchInfo) []string {
		return one(t.Path)
	},
	"root": func(t *task.Task, _ *SearchInfo) []string {
		return one(t.File.Root())
	},
	"heading": func(t *task.Task, _ *SearchInfo) []string {
		if t.Heading == "" {
			return one("(No heading)")
		}
		return one(t.Heading)
	},
	"backlink": func(t *task.Task, _ *SearchInfo) []string {
		name := t.File.FilenameWithoutExtension()
		if t.Heading != "" && t.Heading != name {
			name += " > " + t.Heading
		}
		return one(name)
	},
	"tags": func(t *task.Task, _ *SearchInfo) []string {
		if len(t.Tags) == 0 {
			return one("(No tags)")
		}
		var keys []string
		for _, tag := range t.Tags {
			if !slices.Contains(keys, tag) {
				keys = append(keys, tag)
			}
		}
		return keys
	},
	"recurring": func(t *task.Task, _ *SearchInfo) []string {
		if t.IsRecurring() {
			return one("Recurring")
		}
		return one("Not Recurring")
	},
	"recurrence": func(t *task.Task, _ *SearchInfo) []string {
		if t.Recurrence == nil {
			return one("None")
		}
		return one(t.Recurrence.String())
	},
	"id": func(t *task.Task, _ *SearchInfo) []string {
		if t.ID == "" {
			return one("No id")
		}
		return one(t.ID)
	},
}

func dateKeys(field string, get func(t *task.Task) date.Date) GroupKeys {
	return func(t *task.Task, _ *SearchInfo) []string {
		d := get(t)
		switch {
		case d.IsValid():
			return one(d.String())
		case d.IsSet():
			return one("Invalid " + field + " date")
		default:
			return one("No " + field + " date")
		}
	}
}

func byProperty(name string) GroupKeys {
	return func(t *task.Task, _ *SearchInfo) []string {
		values := t.File.PropertyStrings(name)
		if len(values) == 0 {
			return one("No " + name)
		}
		return values
	}
}

// groupTasks partitions sorted tasks. Groups are ordered level by level in
// the order their key was first seen, with reverse flipping a level, and
// tasks keep their sorted order inside each group.
func groupTasks(tasks []*task.Task, groupers []*Grouper, si *SearchInfo) []Group {
	if len(groupers) == 0 {
		return []Group{{Tasks: tasks}}
	}

	ranks := make([]*OrderedMap[string, int], len(groupers))
	for i := range ranks {
		ranks[i] = NewOrderedMap[string, int]()
	}

	buckets := NewOrderedMap[string, *Group]()

	for _, t := range tasks {
		for _, names := range groupPaths(t, groupers, si) {
			for level, name := range names {
				if _, seen := ranks[level].Get(name); !seen {
					ranks[level].Set(name, ranks[level].Len())
				}
			}

			key := strings.Join(names, "\x00")
			g, ok := buckets.Get(key)
			if !ok {
				g = &Group{Names: names}
				buckets.Set(key, g)
			}
			g.Tasks = append(g.Tasks, t)
		}
	}

	groups := make([]Group, 0, buckets.Len())
	for _, key := range buckets.Keys() {
		g, _ := buckets.Get(key)
		groups = append(groups, *g)
	}

	slices.SortStableFunc(groups, func(a, b Group) int {
		for level, g := range groupers {
			ra, _ := ranks[level].Get(a.Names[level])
			rb, _ := ranks[level].Get(b.Names[level])
			c := cmp.Compare(ra, rb)
			if g.Reverse {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})

	return groups
}

// groupPaths returns every combination of keys a task has across levels.
func groupPaths(t *task.Task, groupers []*Grouper, si *SearchInfo) [][]string {
	paths := [][]string{nil}
	for _, g := range groupers {
		keys := g.Keys(t, si)
		next := make([][]string, 0, len(paths)*len(keys))
		for _, p := range paths {
			for _, k := range keys {
				next = append(next, append(slices.Clone(p), k))
			}
		}
		paths = next
	}
	return paths
}
