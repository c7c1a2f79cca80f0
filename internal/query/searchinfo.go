package query

import (
	"github.com/elcuervo/otq/internal/date"
	"github.com/elcuervo/otq/internal/task"
)

// SearchInfo is the read-only context of one evaluation pass. It is built
// once per pass, so filters and comparators see the same data for every
// pair of tasks.
type SearchInfo struct {
	AllTasks  []*task.Task
	QueryFile *task.File
	Today     date.Date

	byID          map[string]*task.Task
	dependents    map[string][]*task.Task
	byDescription map[string][]*task.Task
}

// NewSearchInfo indexes tasks for lookups made during the pass.
func NewSearchInfo(tasks []*task.Task, queryFile *task.File, today date.Date) *SearchInfo {
	si := &SearchInfo{
		AllTasks:      tasks,
		QueryFile:     queryFile,
		Today:         today,
		byID:          make(map[string]*task.Task),
		dependents:    make(map[string][]*task.Task),
		byDescription: make(map[string][]*task.Task),
	}

	for _, t := range tasks {
		if t.ID != "" {
			if _, dup := si.byID[t.ID]; !dup {
				si.byID[t.ID] = t
			}
		}
		for _, dep := range t.DependsOn {
			si.dependents[dep] = append(si.dependents[dep], t)
		}
		si.byDescription[t.Description] = append(si.byDescription[t.Description], t)
	}

	return si
}

// TaskByID returns the first task carrying id.
func (si *SearchInfo) TaskByID(id string) (*task.Task, bool) {
	t, ok := si.byID[id]
	return t, ok
}

// TasksWithDescription returns every task whose description equals desc.
func (si *SearchInfo) TasksWithDescription(desc string) []*task.Task {
	return si.byDescription[desc]
}

// IsBlocked reports whether t is open and depends on an open task.
func (si *SearchInfo) IsBlocked(t *task.Task) bool {
	if t.IsDone() {
		return false
	}
	for _, id := range t.DependsOn {
		if dep, ok := si.byID[id]; ok && !dep.IsDone() {
			return true
		}
	}
	return false
}

// IsBlocking reports whether t is open and an open task depends on it.
func (si *SearchInfo) IsBlocking(t *task.Task) bool {
	if t.IsDone() || t.ID == "" {
		return false
	}
	for _, dependent := range si.dependents[t.ID] {
		if !dependent.IsDone() {
			return true
		}
	}
	return false
}
