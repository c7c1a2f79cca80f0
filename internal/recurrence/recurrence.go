// Package recurrence computes the next occurrence of a repeating task.
//
// The reference date of an occurrence is its due date, or else its
// scheduled date, or else its start date. The rule advances the reference
// date; the other dates keep their distance from it.
package recurrence

import (
	"time"

	"github.com/elcuervo/otq/internal/date"
)

// Options tune a single Next computation.
type Options struct {
	// Today is the completion day. "when done" rules count from it.
	// The zero value means the current local day.
	Today date.Date
	// RemoveScheduledDate drops the scheduled date from the next occurrence,
	// unless it is the only date the task has.
	RemoveScheduledDate bool
}

// Next computes the occurrence that follows occ under rule.
//
// An occurrence without dates yields an empty occurrence. A set but invalid
// reference date yields ErrNoValidReferenceDate.
func Next(occ Occurrence, rule Rule, opts Options) (Occurrence, error) {
	ref := occ.ReferenceDate()
	if !ref.IsSet() {
		return Occurrence{}, nil
	}
	if !ref.IsValid() {
		return Occurrence{}, ErrNoValidReferenceDate
	}

	base := ref
	if rule.WhenDone {
		base = opts.Today
		if !base.IsValid() {
			base = date.FromTime(time.Now())
		}
	}
	nextRef := rule.advance(base)

	next := Occurrence{
		Start:     realign(occ.Start, ref, nextRef),
		Scheduled: realign(occ.Scheduled, ref, nextRef),
		Due:       realign(occ.Due, ref, nextRef),
	}

	if opts.RemoveScheduledDate && occ.Count() > 1 {
		next.Scheduled = date.Date{}
	}

	return next, nil
}

// Recurrence binds a rule to the occurrence it was written on.
type Recurrence struct {
	rule       Rule
	occurrence Occurrence
}

// New returns a Recurrence for an already parsed rule.
func New(rule Rule, occ Occurrence) *Recurrence {
	return &Recurrence{rule: rule, occurrence: occ}
}

// FromText parses text and binds it to occ.
func FromText(text string, occ Occurrence) (*Recurrence, error) {
	rule, err := ParseRule(text)
	if err != nil {
		return nil, err
	}
	return New(rule, occ), nil
}

func (r *Recurrence) Rule() Rule { return r.rule }

func (r *Recurrence) Occurrence() Occurrence { return r.occurrence }

func (r *Recurrence) WhenDone() bool { return r.rule.WhenDone }

// Next returns the following occurrence.
func (r *Recurrence) Next(opts Options) (Occurrence, error) {
	return Next(r.occurrence, r.rule, opts)
}

// WithOccurrence returns a copy of r bound to occ.
func (r *Recurrence) WithOccurrence(occ Occurrence) *Recurrence {
	return New(r.rule, occ)
}

func (r *Recurrence) String() string {
	return r.rule.String()
}

// IdenticalTo reports whether r and other have the same rule text, the same
// "when done" flag and the same occurrence dates.
func (r *Recurrence) IdenticalTo(other *Recurrence) bool {
	if r == nil || other == nil {
		return r == nil && other == nil
	}
	return r.rule.Text == other.rule.Text &&
		r.rule.WhenDone == other.rule.WhenDone &&
		r.occurrence.IdenticalTo(other.occurrence)
}
