package task

import "strings"

// Priority is ordered from PriorityNone (lowest) to PriorityHighest.
type Priority int

const (
	PriorityNone Priority = iota
	PriorityLowest
	PriorityLow
	PriorityMedium
	PriorityHigh
	PriorityHighest
)

var priorityNames = []string{"none", "lowest", "low", "medium", "high", "highest"}

var prioritySymbols = []string{"", "⏬", "🔽", "🔼", "⏫", "🔺"}

func (p Priority) String() string {
	if p < PriorityNone || p > PriorityHighest {
		return "none"
	}
	return priorityNames[p]
}

// Symbol returns the emoji marker written in task lines.
func (p Priority) Symbol() string {
	if p < PriorityNone || p > PriorityHighest {
		return ""
	}
	return prioritySymbols[p]
}

func ParsePriority(name string) (Priority, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range priorityNames {
		if n == name {
			return Priority(i), true
		}
	}
	return PriorityNone, false
}

// PriorityFromSymbol maps an emoji marker to its Priority.
func PriorityFromSymbol(symbol string) (Priority, bool) {
	for i, s := range prioritySymbols {
		if s != "" && s == symbol {
			return Priority(i), true
		}
	}
	return PriorityNone, false
}

// PrioritySymbols lists every emoji marker, highest first.
func PrioritySymbols() []string {
	return []string{"🔺", "⏫", "🔼", "🔽", "⏬"}
}
