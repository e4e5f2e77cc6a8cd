package gnureport

import (
	"fmt"
	"strings"
	"time"
)

// DateFormat is the format used to represent dates as strings in ISO-8601 format.
const DateFormat = "2006-01-02"

const readDateFormat = "2006-1-2" // permissive read format (allows single-digit month/day)

// Date represents a date with day-level granularity.
type Date struct {
	y int
	m time.Month
	d int
}

// NewDate returns a normalized Date for the given year, month, and day.
// Out-of-range values roll over the way [time.Date] does, so day 0 is the
// last day of the previous month.
func NewDate(year int, month time.Month, day int) Date {
	d := Date{year, month, day}
	d.y, d.m, d.d = d.time().Date()
	return d
}

// Today returns the current date.
func Today() Date { return NewDate(time.Now().Date()) }

// Year returns the year of the date.
func (d Date) Year() int { return d.y }

// Month returns the month of the date.
func (d Date) Month() time.Month { return d.m }

// Day returns the day of the month.
func (d Date) Day() int { return d.d }

// IsZero returns true if the date is the zero value.
func (d Date) IsZero() bool { return d.y == 0 && d.m == 0 && d.d == 0 }

// Before reports whether the day d is before x.
func (d Date) Before(x Date) bool { return d.time().Before(x.time()) }

// After reports whether the day d is after x.
func (d Date) After(x Date) bool { return d.time().After(x.time()) }

// Add returns a new Date with the given number of days added.
func (d Date) Add(i int) Date { return NewDate(d.y, d.m, d.d+i) }

// Format returns a textual representation of the date value formatted
// according to the layout defined by the argument. See [time.Format].
func (d Date) Format(format string) string { return d.time().Format(format) }

// String formats the date in ISO-8601.
func (d Date) String() string { return d.time().Format(DateFormat) }

// time returns a canonical time.Time for that day (midnight UTC), so that
// two equal dates always compare equal.
func (d Date) time() time.Time { return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, time.UTC) }

// ParseDate parses a Date from a string. It is lenient and accepts formats
// like "2025-7-1".
func ParseDate(str string) (Date, error) {
	on, err := time.Parse(readDateFormat, strings.TrimSpace(str))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q want format %q: %w", str, DateFormat, err)
	}
	return NewDate(on.Date()), nil
}

// Month identifies one calendar month. It is a comparable value type usable
// as a map key.
type Month struct {
	y int
	m time.Month
}

// NewMonth returns a normalized Month, rolling out-of-range month numbers
// over year boundaries.
func NewMonth(year int, month time.Month) Month {
	return MonthOf(NewDate(year, month, 1))
}

// MonthOf returns the calendar month containing d.
func MonthOf(d Date) Month { return Month{d.y, d.m} }

// Year returns the year of the month.
func (m Month) Year() int { return m.y }

// Month returns the month number.
func (m Month) Month() time.Month { return m.m }

// Next returns the following calendar month.
func (m Month) Next() Month { return NewMonth(m.y, m.m+1) }

// Previous returns the preceding calendar month.
func (m Month) Previous() Month { return NewMonth(m.y, m.m-1) }

// Before reports whether m is strictly before x.
func (m Month) Before(x Month) bool { return m.y < x.y || (m.y == x.y && m.m < x.m) }

// After reports whether m is strictly after x.
func (m Month) After(x Month) bool { return x.Before(m) }

// InFuture reports whether m is strictly after the month containing ref.
// The reference date is explicit so that callers control "now".
func (m Month) InFuture(ref Date) bool { return m.After(MonthOf(ref)) }

// Start returns the first day of the month.
func (m Month) Start() Date { return NewDate(m.y, m.m, 1) }

// End returns the last calendar day of the month.
func (m Month) End() Date { return m.Next().Start().Add(-1) }

// String formats the month like "March 2024".
func (m Month) String() string { return m.Start().Format("January 2006") }
