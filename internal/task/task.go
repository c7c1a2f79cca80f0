// Package task holds the task record evaluated by queries and changed by
// completion.
//
// Tasks are values: the query engine only reads them, and state changes
// such as Toggle return new tasks instead of mutating the receiver.
package task

import (
	"fmt"
	"slices"
	"strings"

	"github.com/elcuervo/otq/internal/date"
	"github.com/elcuervo/otq/internal/recurrence"
)

// Location identifies where a task was read from.
type Location struct {
	Path string
	// Line is 1-based.
	Line int
	// Heading is the closest markdown heading above the task, if any.
	Heading string
}

// Task represents a single checklist item from a markdown file.
type Task struct {
	Location
	File *File

	// Indent is everything before the checkbox, e.g. "  - ".
	Indent      string
	Status      Status
	Description string
	Priority    Priority
	Tags        []string

	// ID and DependsOn link tasks for blocking relationships.
	ID        string
	DependsOn []string

	StartDate     date.Date
	ScheduledDate date.Date
	DueDate       date.Date
	CreatedDate   date.Date
	DoneDate      date.Date
	CancelledDate date.Date

	Recurrence *recurrence.Recurrence
	// RecurrenceText holds a 🔁 rule that did not parse, so it survives a
	// rewrite of the line.
	RecurrenceText string

	// OriginalMarkdown is the line as read from the file.
	OriginalMarkdown string
}

// Key identifies a task within a vault snapshot.
func (t *Task) Key() string {
	return fmt.Sprintf("%s:%d", t.Path, t.Line)
}

func (t *Task) IsDone() bool {
	return t.Status.IsDone()
}

func (t *Task) IsRecurring() bool {
	return t.Recurrence != nil
}

// Occurrence returns the task's start, scheduled and due dates.
func (t *Task) Occurrence() recurrence.Occurrence {
	return recurrence.Occurrence{Start: t.StartDate, Scheduled: t.ScheduledDate, Due: t.DueDate}
}

// HasTag reports whether the task carries tag, compared case-insensitively
// and with or without the leading '#'.
func (t *Task) HasTag(tag string) bool {
	want := strings.ToLower(strings.TrimPrefix(tag, "#"))
	return slices.ContainsFunc(t.Tags, func(have string) bool {
		return strings.ToLower(strings.TrimPrefix(have, "#")) == want
	})
}

// DescriptionWithoutTags strips tags, for sorting and grouping.
func (t *Task) DescriptionWithoutTags() string {
	desc := t.Description
	for _, tag := range t.Tags {
		desc = strings.ReplaceAll(desc, tag, "")
	}
	return strings.Join(strings.Fields(desc), " ")
}

// Clone returns a shallow copy whose slices can be changed independently.
func (t *Task) Clone() *Task {
	c := *t
	c.Tags = slices.Clone(t.Tags)
	c.DependsOn = slices.Clone(t.DependsOn)
	return &c
}

// ToggleOptions control what completing a task produces.
type ToggleOptions struct {
	// Today is the completion day written as the done date.
	Today date.Date
	// RemoveScheduledDate drops the scheduled date on the next occurrence.
	RemoveScheduledDate bool
}

// Toggle flips the task between open and done. Completing a recurring task
// returns the next occurrence followed by the completed task. When the next
// occurrence cannot be computed the completed task is returned alone and the
// recurrence is not carried on.
func (t *Task) Toggle(opts ToggleOptions) []*Task {
	toggled := t.Clone()

	if t.IsDone() {
		toggled.Status = StatusFromSymbol(t.Status.NextSymbol)
		toggled.DoneDate = date.Date{}
		toggled.CancelledDate = date.Date{}
		return []*Task{toggled}
	}

	toggled.Status = StatusFromSymbol(t.Status.NextSymbol)
	if toggled.Status.Type == StatusDone {
		toggled.DoneDate = opts.Today
	}

	if !t.IsRecurring() || !toggled.IsDone() {
		return []*Task{toggled}
	}

	next, err := t.Recurrence.Next(recurrence.Options{
		Today:               opts.Today,
		RemoveScheduledDate: opts.RemoveScheduledDate,
	})
	if err != nil {
		return []*Task{toggled}
	}

	nextTask := t.Clone()
	nextTask.Status = Todo
	nextTask.StartDate = next.Start
	nextTask.ScheduledDate = next.Scheduled
	nextTask.DueDate = next.Due
	nextTask.DoneDate = date.Date{}
	nextTask.CancelledDate = date.Date{}
	if t.CreatedDate.IsSet() {
		nextTask.CreatedDate = opts.Today
	}
	nextTask.Recurrence = t.Recurrence.WithOccurrence(next)
	nextTask.OriginalMarkdown = ""

	return []*Task{nextTask, toggled}
}
