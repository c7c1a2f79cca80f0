package recurrence

import "github.com/elcuervo/otq/internal/date"

// Occurrence is one point in a recurrence timeline. Each date may be absent.
type Occurrence struct {
	Start     date.Date
	Scheduled date.Date
	Due       date.Date
}

// ReferenceDate returns the first set date in priority order
// due, scheduled, start. The result may be set but invalid; callers decide
// what an invalid reference means. An absent result means no dates are set.
func (o Occurrence) ReferenceDate() date.Date {
	for _, d := range []date.Date{o.Due, o.Scheduled, o.Start} {
		if d.IsSet() {
			return d
		}
	}
	return date.Date{}
}

// Count returns how many of the three dates are set, valid or not.
func (o Occurrence) Count() int {
	n := 0
	for _, d := range []date.Date{o.Start, o.Scheduled, o.Due} {
		if d.IsSet() {
			n++
		}
	}
	return n
}

func (o Occurrence) IsEmpty() bool {
	return o.Count() == 0
}

// IdenticalTo reports whether every slot is either absent in both or set to
// the same day in both.
func (o Occurrence) IdenticalTo(other Occurrence) bool {
	return o.Start.Equal(other.Start) &&
		o.Scheduled.Equal(other.Scheduled) &&
		o.Due.Equal(other.Due)
}

// realign moves slot by the same number of days that separated it from the
// old reference date. Invalid slots take the new reference value.
func realign(slot, oldRef, newRef date.Date) date.Date {
	switch {
	case !slot.IsSet():
		return date.Date{}
	case !slot.IsValid():
		return newRef
	default:
		return newRef.AddDays(oldRef.DaysUntil(slot))
	}
}
