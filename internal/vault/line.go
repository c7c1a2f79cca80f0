package vault

import (
	"regexp"
	"strings"

	"github.com/elcuervo/otq/internal/date"
	"github.com/elcuervo/otq/internal/recurrence"
	"github.com/elcuervo/otq/internal/task"
)

// Field markers written after the description.
const (
	startMarker     = "🛫"
	scheduledMarker = "⏳"
	dueMarker       = "📅"
	createdMarker   = "➕"
	doneMarker      = "✅"
	cancelledMarker = "❌"
	recurMarker     = "🔁"
	idMarker        = "🆔"
	dependsMarker   = "⛔"
)

var (
	taskLineRe   = regexp.MustCompile(`^(\s*(?:[-*+]|\d+[.)])\s+)\[(.)\]\s?(.*)$`)
	dateFieldRe  = regexp.MustCompile(`(🛫|⏳|📅|➕|✅|❌)️?\s*(\d{4}-\d{2}-\d{2})`)
	recurFieldRe = regexp.MustCompile(`🔁️?\s*([^🛫⏳📅➕✅❌🆔⛔🔺⏫🔼🔽⏬]+)`)
	idFieldRe    = regexp.MustCompile(`🆔️?\s*([\w-]+)`)
	dependsRe    = regexp.MustCompile(`⛔️?\s*([\w-]+(?:\s*,\s*[\w-]+)*)`)
	markerRe     = regexp.MustCompile(`🔺|⏫|🔼|🔽|⏬|🛫|⏳|📅|➕|✅|❌|🔁|🆔|⛔`)
	tagRe        = regexp.MustCompile(`(?:^|\s)(#[\p{L}\p{N}_/-]+)`)
)

// IsTaskLine reports whether line is a markdown checklist item.
func IsTaskLine(line string) bool {
	return taskLineRe.MatchString(line)
}

// ParseLine reads a checklist line. It returns false for lines that are not
// tasks. A recurrence rule that does not parse leaves the task not
// recurring; its text is kept for FormatLine.
func ParseLine(line string, loc task.Location, file *task.File) (*task.Task, bool) {
	m := taskLineRe.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}

	body := strings.TrimSpace(m[3])
	t := &task.Task{
		Location:         loc,
		File:             file,
		Indent:           m[1],
		Status:           task.StatusFromSymbol(m[2]),
		OriginalMarkdown: line,
	}

	description := body
	if i := markerRe.FindStringIndex(body); i != nil {
		description = strings.TrimSpace(body[:i[0]])
		readFields(t, body[i[0]:])
	}
	t.Description = description

	for _, tm := range tagRe.FindAllStringSubmatch(description, -1) {
		t.Tags = append(t.Tags, tm[1])
	}

	return t, true
}

func readFields(t *task.Task, fields string) {
	for _, m := range dateFieldRe.FindAllStringSubmatch(fields, -1) {
		d, _ := date.Parse(m[2])
		switch m[1] {
		case startMarker:
			t.StartDate = d
		case scheduledMarker:
			t.ScheduledDate = d
		case dueMarker:
			t.DueDate = d
		case createdMarker:
			t.CreatedDate = d
		case doneMarker:
			t.DoneDate = d
		case cancelledMarker:
			t.CancelledDate = d
		}
	}

	for _, symbol := range task.PrioritySymbols() {
		if strings.Contains(fields, symbol) {
			t.Priority, _ = task.PriorityFromSymbol(symbol)
			break
		}
	}

	if m := idFieldRe.FindStringSubmatch(fields); m != nil {
		t.ID = m[1]
	}
	if m := dependsRe.FindStringSubmatch(fields); m != nil {
		for _, id := range strings.Split(m[1], ",") {
			t.DependsOn = append(t.DependsOn, strings.TrimSpace(id))
		}
	}

	if m := recurFieldRe.FindStringSubmatch(fields); m != nil {
		text := strings.TrimSpace(m[1])
		rec, err := recurrence.FromText(text, t.Occurrence())
		if err != nil {
			t.RecurrenceText = text
		} else {
			t.Recurrence = rec
		}
	}
}

// FormatLine renders t as a checklist line. Fields follow the description
// in a fixed order: priority, recurrence, created, start, scheduled, due,
// cancelled, done, depends on, id.
func FormatLine(t *task.Task) string {
	indent := t.Indent
	if indent == "" {
		indent = "- "
	}

	var b strings.Builder
	b.WriteString(indent)
	b.WriteString("[" + symbolOf(t.Status) + "] ")
	b.WriteString(t.Description)

	if s := t.Priority.Symbol(); s != "" {
		b.WriteString(" " + s)
	}
	if t.Recurrence != nil {
		b.WriteString(" " + recurMarker + " " + t.Recurrence.String())
	} else if t.RecurrenceText != "" {
		b.WriteString(" " + recurMarker + " " + t.RecurrenceText)
	}
	writeDate(&b, createdMarker, t.CreatedDate)
	writeDate(&b, startMarker, t.StartDate)
	writeDate(&b, scheduledMarker, t.ScheduledDate)
	writeDate(&b, dueMarker, t.DueDate)
	writeDate(&b, cancelledMarker, t.CancelledDate)
	writeDate(&b, doneMarker, t.DoneDate)
	if len(t.DependsOn) > 0 {
		b.WriteString(" " + dependsMarker + " " + strings.Join(t.DependsOn, ","))
	}
	if t.ID != "" {
		b.WriteString(" " + idMarker + " " + t.ID)
	}

	return b.String()
}

func symbolOf(s task.Status) string {
	if s.Symbol == "" {
		return " "
	}
	return s.Symbol
}

func writeDate(b *strings.Builder, marker string, d date.Date) {
	if d.IsSet() {
		b.WriteString(" " + marker + " " + d.String())
	}
}
