// Package date provides a calendar day value used for task dates.
//
// A Date has no time of day and no zone. Unlike time.Time, a Date can hold a
// calendar-invalid value such as 2022-02-30: markdown may contain such text,
// and callers need to tell "absent" apart from "present but invalid".
package date

import (
	"cmp"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Layout is the ISO day format used in task lines and queries.
const Layout = "2006-01-02"

var isoRe = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)

// ErrMalformed is returned by Parse when the text is not shaped like YYYY-MM-DD.
var ErrMalformed = errors.New("malformed date")

// Date is a calendar day. The zero value is an absent date.
type Date struct {
	year  int
	month time.Month
	day   int
	set   bool
}

// New returns a set Date. It is not normalized, so New(2022, 2, 30) is invalid.
func New(year int, month time.Month, day int) Date {
	return Date{year: year, month: month, day: day, set: true}
}

// FromTime returns the calendar day of t in t's location.
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return New(y, m, d)
}

// Parse reads an ISO day. Well-shaped but impossible days parse without
// error and report IsValid() == false.
func Parse(s string) (Date, error) {
	m := isoRe.FindStringSubmatch(s)
	if m == nil {
		return Date{}, fmt.Errorf("%w: %q", ErrMalformed, s)
	}

	y, _ := strconv.Atoi(m[1])
	mo, _ := strconv.Atoi(m[2])
	d, _ := strconv.Atoi(m[3])

	return New(y, time.Month(mo), d), nil
}

// MustParse is Parse for literals in tests and tables.
func MustParse(s string) Date {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (d Date) IsSet() bool { return d.set }

// IsValid reports whether d is set and names a real calendar day.
func (d Date) IsValid() bool {
	if !d.set || d.month < time.January || d.month > time.December || d.day < 1 {
		return false
	}
	return d.day <= DaysIn(d.year, d.month)
}

func (d Date) Year() int { return d.year }

func (d Date) Month() time.Month { return d.month }

func (d Date) Day() int { return d.day }

func (d Date) Weekday() time.Weekday { return d.Time().Weekday() }

// Time returns midnight UTC of d. Invalid dates are normalized by time.Date.
func (d Date) Time() time.Time {
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.UTC)
}

// AddDays moves d by n days. Absent and invalid dates are returned unchanged.
func (d Date) AddDays(n int) Date {
	if !d.IsValid() {
		return d
	}
	return FromTime(d.Time().AddDate(0, 0, n))
}

// AddMonths moves d by n months, clamping to the last day of the target
// month when the day does not exist there (Jan 31 + 1 month = Feb 28/29).
func (d Date) AddMonths(n int) Date {
	if !d.IsValid() {
		return d
	}

	total := int(d.month) - 1 + n
	year := d.year + floorDiv(total, 12)
	month := time.Month(total-floorDiv(total, 12)*12 + 1)

	return New(year, month, min(d.day, DaysIn(year, month)))
}

// AddYears is AddMonths(12*n), so Feb 29 clamps to Feb 28 in common years.
func (d Date) AddYears(n int) Date {
	return d.AddMonths(12 * n)
}

// WithDay returns d moved to the given day of its month, clamped to the
// month's last day.
func (d Date) WithDay(day int) Date {
	if !d.IsValid() {
		return d
	}
	return New(d.year, d.month, max(1, min(day, DaysIn(d.year, d.month))))
}

// EndOfMonth returns the last day of d's month.
func (d Date) EndOfMonth() Date {
	return d.WithDay(31)
}

// DaysUntil returns the whole number of days from d to other.
func (d Date) DaysUntil(other Date) int {
	return int(other.Time().Sub(d.Time()).Hours() / 24)
}

// Compare orders set dates chronologically. It does not look at validity.
func (d Date) Compare(other Date) int {
	switch {
	case d.year != other.year:
		return cmp.Compare(d.year, other.year)
	case d.month != other.month:
		return cmp.Compare(d.month, other.month)
	default:
		return cmp.Compare(d.day, other.day)
	}
}

// Equal reports whether both dates are absent, or both set to the same day.
func (d Date) Equal(other Date) bool {
	if d.set != other.set {
		return false
	}
	return !d.set || d.Compare(other) == 0
}

func (d Date) Before(other Date) bool { return d.Compare(other) < 0 }

func (d Date) After(other Date) bool { return d.Compare(other) > 0 }

// String returns the ISO form, or "" for an absent date.
func (d Date) String() string {
	if !d.set {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.year, int(d.month), d.day)
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
