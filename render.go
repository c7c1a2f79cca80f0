package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/elcuervo/otq/internal/date"
	"github.com/elcuervo/otq/internal/query"
	"github.com/elcuervo/otq/internal/task"
)

const defaultTheme = "dracula"

var glamourRenderer *glamour.TermRenderer

func init() {
	initRenderer(defaultTheme)
}

func initRenderer(theme string) {
	if theme == "" {
		theme = defaultTheme
	}
	glamourRenderer, _ = glamour.NewTermRenderer(
		glamour.WithStandardStyle(theme),
		glamour.WithWordWrap(0),
	)
}

// renderTask renders a full task line with checkbox using Glamour
func renderTask(t *task.Task, layout query.Layout) string {
	taskLine := fmt.Sprintf("- [%s] %s", checkboxSymbol(t), taskText(t, layout))

	if glamourRenderer == nil {
		return taskLine
	}

	rendered, err := glamourRenderer.Render(taskLine)
	if err != nil {
		return taskLine
	}

	// Keep as single line
	rendered = strings.TrimSpace(rendered)
	return rendered
}

func checkboxSymbol(t *task.Task) string {
	if t.Status.Symbol == "" {
		return " "
	}
	return t.Status.Symbol
}

// taskText is the description followed by the fields the layout shows.
// Short mode keeps only the markers of dates, not their values.
func taskText(t *task.Task, layout query.Layout) string {
	parts := []string{t.Description}
	if layout.IsHidden("tags") {
		parts[0] = t.DescriptionWithoutTags()
	}

	show := func(component string) bool { return !layout.IsHidden(component) }

	if s := t.Priority.Symbol(); s != "" && show("priority") {
		parts = append(parts, s)
	}
	if t.Recurrence != nil && show("recurrence rule") {
		if layout.ShortMode {
			parts = append(parts, "🔁")
		} else {
			parts = append(parts, "🔁 "+t.Recurrence.String())
		}
	}

	dates := []struct {
		component string
		marker    string
		value     date.Date
	}{
		{"created date", "➕", t.CreatedDate},
		{"start date", "🛫", t.StartDate},
		{"scheduled date", "⏳", t.ScheduledDate},
		{"due date", "📅", t.DueDate},
		{"cancelled date", "❌", t.CancelledDate},
		{"done date", "✅", t.DoneDate},
	}
	for _, d := range dates {
		if !d.value.IsSet() || !show(d.component) {
			continue
		}
		if layout.ShortMode {
			parts = append(parts, d.marker)
			continue
		}
		parts = append(parts, d.marker+" "+d.value.String())
	}

	if len(t.DependsOn) > 0 && show("depends on") {
		parts = append(parts, "⛔ "+strings.Join(t.DependsOn, ","))
	}
	if t.ID != "" && show("id") {
		parts = append(parts, "🆔 "+t.ID)
	}

	return strings.Join(parts, " ")
}

// groupHeading joins the names of every grouping level.
func groupHeading(g query.Group) string {
	return strings.Join(g.Names, " / ")
}
