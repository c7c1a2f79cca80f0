package task

import "strings"

// StatusType is the behavioural kind of a status symbol.
type StatusType int

const (
	StatusTodo StatusType = iota
	StatusInProgress
	StatusDone
	StatusCancelled
	StatusNonTask
)

var statusTypeNames = []string{"TODO", "IN_PROGRESS", "DONE", "CANCELLED", "NON_TASK"}

func (s StatusType) String() string {
	if int(s) < len(statusTypeNames) {
		return statusTypeNames[s]
	}
	return "TODO"
}

// ParseStatusType accepts names such as "done", "IN_PROGRESS" or "in progress".
func ParseStatusType(name string) (StatusType, bool) {
	name = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), " ", "_"))
	for i, n := range statusTypeNames {
		if n == name {
			return StatusType(i), true
		}
	}
	return StatusTodo, false
}

// Status describes the checkbox symbol of a task.
type Status struct {
	Symbol     string
	Name       string
	Type       StatusType
	NextSymbol string
}

var (
	Todo       = Status{Symbol: " ", Name: "Todo", Type: StatusTodo, NextSymbol: "x"}
	InProgress = Status{Symbol: "/", Name: "In Progress", Type: StatusInProgress, NextSymbol: "x"}
	Done       = Status{Symbol: "x", Name: "Done", Type: StatusDone, NextSymbol: " "}
	Cancelled  = Status{Symbol: "-", Name: "Cancelled", Type: StatusCancelled, NextSymbol: " "}
)

// StatusFromSymbol maps a checkbox symbol to a Status. Unknown symbols are
// treated as open tasks but keep their symbol.
func StatusFromSymbol(symbol string) Status {
	switch symbol {
	case " ", "":
		return Todo
	case "/":
		return InProgress
	case "x", "X":
		s := Done
		s.Symbol = symbol
		return s
	case "-":
		return Cancelled
	default:
		return Status{Symbol: symbol, Name: "Unknown", Type: StatusTodo, NextSymbol: "x"}
	}
}

// IsDone reports whether the status counts as finished for "done" filters.
func (s Status) IsDone() bool {
	return s.Type == StatusDone || s.Type == StatusCancelled || s.Type == StatusNonTask
}
