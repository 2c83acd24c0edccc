package core

import (
	"strings"
	"time"
)

const (
	// DateLayout is how transaction dates are stored, e.g. "15 January 2024".
	DateLayout = "02 January 2006"

	// parseLayout also accepts single-digit days.
	parseLayout = "2 January 2006"
)

// Date is a calendar day in UTC.
type Date struct {
	time.Time
}

// NewDate creates a new Date from year, month, day
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// ParseDate reads a stored "DD Month YYYY" string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(parseLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// FormatDate renders t the way transactions store dates.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// String returns the stored representation.
func (d Date) String() string {
	return FormatDate(d.Time)
}

// In reports whether d falls inside the given calendar month.
func (d Date) In(year int, month time.Month) bool {
	return d.Year() == year && d.Month() == month
}

// AddMonths moves d by n calendar months, clamping to the last day of the
// target month: 31 January + 1 month is 29 February in a leap year.
func (d Date) AddMonths(n int) Date {
	return Date{Time: AddMonths(d.Time, n)}
}

// AddMonths is the time.Time form of Date.AddMonths. Clock and location are kept.
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := DaysIn(first.Year(), first.Month()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// DaysIn returns the number of days in month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
