package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elcuervo/otq/internal/date"
	"github.com/elcuervo/otq/internal/recurrence"
)

func TestToggleOpenTask(t *testing.T) {
	open := &Task{Status: Todo, Description: "write report"}
	today := date.MustParse("2025-01-15")

	out := open.Toggle(ToggleOptions{Today: today})
	require.Len(t, out, 1)
	assert.Equal(t, StatusDone, out[0].Status.Type)
	assert.Equal(t, today, out[0].DoneDate)
	assert.Equal(t, StatusTodo, open.Status.Type, "receiver is not modified")

	back := out[0].Toggle(ToggleOptions{Today: today})
	require.Len(t, back, 1)
	assert.Equal(t, StatusTodo, back[0].Status.Type)
	assert.False(t, back[0].DoneDate.IsSet())
}

func TestToggleRecurringTask(t *testing.T) {
	due := date.MustParse("2022-01-31")
	rec, err := recurrence.FromText("every month", recurrence.Occurrence{Due: due})
	require.NoError(t, err)

	open := &Task{
		Status:      Todo,
		Description: "pay rent",
		DueDate:     due,
		CreatedDate: date.MustParse("2022-01-01"),
		Recurrence:  rec,
	}
	today := date.MustParse("2022-02-01")

	out := open.Toggle(ToggleOptions{Today: today})
	require.Len(t, out, 2)

	next, done := out[0], out[1]
	assert.Equal(t, StatusTodo, next.Status.Type)
	assert.Equal(t, "2022-02-28", next.DueDate.String())
	assert.Equal(t, today, next.CreatedDate)
	assert.Equal(t, "2022-02-28", next.Recurrence.Occurrence().Due.String())

	assert.Equal(t, StatusDone, done.Status.Type)
	assert.Equal(t, due, done.DueDate)
	assert.Equal(t, today, done.DoneDate)
}

func TestToggleRecurringTaskWithInvalidReferenceDate(t *testing.T) {
	due := date.MustParse("2022-02-30")
	rec, err := recurrence.FromText("every day", recurrence.Occurrence{Due: due})
	require.NoError(t, err)

	open := &Task{Status: Todo, DueDate: due, Recurrence: rec}
	out := open.Toggle(ToggleOptions{Today: date.MustParse("2022-02-01")})

	require.Len(t, out, 1, "the recurrence is dropped for this completion")
	assert.True(t, out[0].IsDone())
}

func TestStatusAndPriority(t *testing.T) {
	assert.True(t, StatusFromSymbol("X").IsDone())
	assert.True(t, StatusFromSymbol("-").IsDone())
	assert.False(t, StatusFromSymbol("/").IsDone())
	assert.False(t, StatusFromSymbol("?").IsDone())

	st, ok := ParseStatusType("in progress")
	assert.True(t, ok)
	assert.Equal(t, StatusInProgress, st)

	assert.Less(t, PriorityNone, PriorityLowest)
	p, ok := PriorityFromSymbol("⏫")
	assert.True(t, ok)
	assert.Equal(t, PriorityHigh, p)
	assert.Equal(t, "high", p.String())
}

func TestFilePaths(t *testing.T) {
	f := NewFile("projects/work/plan.md", map[string]any{"Project": "apollo", "tags": []any{"a", "b"}})

	assert.Equal(t, "projects/work/", f.Folder())
	assert.Equal(t, "projects/", f.Root())
	assert.Equal(t, "plan.md", f.Filename())
	assert.Equal(t, "plan", f.FilenameWithoutExtension())

	v, ok := f.PropertyString("project")
	assert.True(t, ok)
	assert.Equal(t, "apollo", v)
	assert.Equal(t, []string{"a", "b"}, f.PropertyStrings("tags"))

	top := NewFile("inbox.md", nil)
	assert.Equal(t, "/", top.Folder())
	assert.Equal(t, "/", top.Root())

	assert.True(t, f.PropertiesIdenticalTo(NewFile("other.md", map[string]any{"Project": "apollo", "tags": []any{"a", "b"}})))
	assert.False(t, f.PropertiesIdenticalTo(top))
}

func TestUrgency(t *testing.T) {
	today := date.MustParse("2025-01-15")

	overdue := &Task{DueDate: today.AddDays(-10)}
	dueToday := &Task{DueDate: today}
	farOut := &Task{DueDate: today.AddDays(60)}

	assert.InDelta(t, 1.95+12.0, overdue.Urgency(today), 0.001)
	assert.Greater(t, overdue.Urgency(today), dueToday.Urgency(today))
	assert.Greater(t, dueToday.Urgency(today), farOut.Urgency(today))
	assert.InDelta(t, 1.95+0.2*12, farOut.Urgency(today), 0.001)
}

func TestHasTag(t *testing.T) {
	tk := &Task{Description: "call #Home #errand", Tags: []string{"#Home", "#errand"}}
	assert.True(t, tk.HasTag("home"))
	assert.True(t, tk.HasTag("#ERRAND"))
	assert.False(t, tk.HasTag("work"))
	assert.Equal(t, "call", tk.DescriptionWithoutTags())
}
