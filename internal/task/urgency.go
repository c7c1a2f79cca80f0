package task

import "github.com/elcuervo/otq/internal/date"

const (
	dueWeight       = 12.0
	scheduledWeight = 5.0
	startWeight     = -3.0
)

var priorityUrgency = map[Priority]float64{
	PriorityHighest: 9.0,
	PriorityHigh:    6.0,
	PriorityMedium:  3.9,
	PriorityNone:    1.95,
	PriorityLow:     0.0,
	PriorityLowest:  -1.8,
}

// Urgency scores how pressing the task is on today. Higher is more urgent.
// Overdue tasks saturate after a week; tasks due more than two weeks out
// keep a small floor.
func (t *Task) Urgency(today date.Date) float64 {
	score := priorityUrgency[t.Priority]

	if t.DueDate.IsValid() {
		overdue := float64(t.DueDate.DaysUntil(today))
		var due float64
		switch {
		case overdue >= 7:
			due = 1.0
		case overdue >= -14:
			due = (overdue+14)*0.8/21 + 0.2
		default:
			due = 0.2
		}
		score += due * dueWeight
	}

	if t.ScheduledDate.IsValid() && !t.ScheduledDate.After(today) {
		score += scheduledWeight
	}

	if t.StartDate.IsValid() && t.StartDate.After(today) {
		score += startWeight
	}

	return score
}
