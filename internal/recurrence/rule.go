package recurrence

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/elcuervo/otq/internal/date"
)

var (
	ErrInvalidRule          = errors.New("invalid recurrence rule")
	ErrNoValidReferenceDate = errors.New("cannot compute recurrence: no valid reference date")
)

var (
	ruleRe     = regexp.MustCompile(`^every\s+(?:(\d+)\s+|(other)\s+)?(days?|weeks?|months?|years?|weekday)(?:\s+on\s+(.+?))?$`)
	whenDoneRe = regexp.MustCompile(`(?i)\s+when\s+done\s*$`)
	monthDayRe = regexp.MustCompile(`^the\s+(?:(\d{1,2})(?:st|nd|rd|th)?|(last)(?:\s+day)?)$`)
	listSepRe  = regexp.MustCompile(`\s*(?:,|\band\b)\s*`)
)

// Unit is the calendar step of a rule.
type Unit int

const (
	Day Unit = iota
	Week
	Month
	Year
)

func (u Unit) String() string {
	switch u {
	case Week:
		return "week"
	case Month:
		return "month"
	case Year:
		return "year"
	default:
		return "day"
	}
}

// LastDayOfMonth is the MonthDay value for "on the last".
const LastDayOfMonth = -1

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

var workingDays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}

// Rule is a parsed "every N unit[s] [on ...] [when done]" phrase.
type Rule struct {
	Interval int
	Unit     Unit
	// Weekdays, when set, moves the raw next date forward to the first
	// listed weekday on or after it.
	Weekdays []time.Weekday
	// MonthDay pins monthly rules to a day of month, or LastDayOfMonth.
	MonthDay int
	WhenDone bool
	// Text is the rule as written, without the "when done" suffix.
	Text string
}

// ParseRule parses rule text such as "every 2 weeks on Monday when done".
func ParseRule(text string) (Rule, error) {
	text = strings.TrimSpace(text)
	rule := Rule{Interval: 1}

	if loc := whenDoneRe.FindStringIndex(text); loc != nil {
		rule.WhenDone = true
		text = text[:loc[0]]
	}
	rule.Text = strings.TrimSpace(text)

	m := ruleRe.FindStringSubmatch(strings.ToLower(rule.Text))
	if m == nil {
		return Rule{}, fmt.Errorf("%w: %q", ErrInvalidRule, rule.Text)
	}

	if m[1] != "" {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 {
			return Rule{}, fmt.Errorf("%w: interval must be a positive integer: %q", ErrInvalidRule, rule.Text)
		}
		rule.Interval = n
	}
	if m[2] != "" {
		rule.Interval = 2
	}

	unit := strings.TrimSuffix(m[3], "s")
	switch unit {
	case "weekday":
		if m[1] != "" || m[2] != "" || m[4] != "" {
			return Rule{}, fmt.Errorf("%w: %q", ErrInvalidRule, rule.Text)
		}
		rule.Unit = Day
		rule.Weekdays = slices.Clone(workingDays)
		return rule, nil
	case "day":
		rule.Unit = Day
	case "week":
		rule.Unit = Week
	case "month":
		rule.Unit = Month
	case "year":
		rule.Unit = Year
	}

	if on := strings.TrimSpace(m[4]); on != "" {
		if err := rule.parseOn(on); err != nil {
			return Rule{}, fmt.Errorf("%w: %q: %w", ErrInvalidRule, rule.Text, err)
		}
	}

	return rule, nil
}

func (r *Rule) parseOn(on string) error {
	if m := monthDayRe.FindStringSubmatch(on); m != nil {
		if r.Unit != Month {
			return errors.New(`"on the ..." needs a monthly rule`)
		}
		if m[2] != "" {
			r.MonthDay = LastDayOfMonth
			return nil
		}
		n, _ := strconv.Atoi(m[1])
		if n < 1 || n > 31 {
			return fmt.Errorf("day of month out of range: %d", n)
		}
		r.MonthDay = n
		return nil
	}

	if r.Unit != Week {
		return errors.New(`weekdays need a weekly rule`)
	}
	for _, name := range listSepRe.Split(on, -1) {
		if name == "" {
			continue
		}
		wd, ok := weekdayNames[name]
		if !ok {
			return fmt.Errorf("unknown weekday %q", name)
		}
		if !slices.Contains(r.Weekdays, wd) {
			r.Weekdays = append(r.Weekdays, wd)
		}
	}
	if len(r.Weekdays) == 0 {
		return errors.New("missing weekday")
	}
	return nil
}

// String returns the rule text, with " when done" appended when set.
func (r Rule) String() string {
	if r.WhenDone {
		return r.Text + " when done"
	}
	return r.Text
}

// advance returns the next reference date after from.
func (r Rule) advance(from date.Date) date.Date {
	var next date.Date
	switch r.Unit {
	case Week:
		next = from.AddDays(7 * r.Interval)
	case Month:
		next = from.AddMonths(r.Interval)
		switch {
		case r.MonthDay == LastDayOfMonth:
			next = next.EndOfMonth()
		case r.MonthDay > 0:
			next = next.WithDay(r.MonthDay)
		}
	case Year:
		next = from.AddYears(r.Interval)
	default:
		next = from.AddDays(r.Interval)
	}

	if len(r.Weekdays) == 0 {
		return next
	}
	for i := 0; i < 7; i++ {
		if slices.Contains(r.Weekdays, next.Weekday()) {
			break
		}
		next = next.AddDays(1)
	}
	return next
}
