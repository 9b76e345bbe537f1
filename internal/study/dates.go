package study

import (
	"strconv"
	"strings"
	"time"
)

// Date layouts seen in REDCap exports. Timestamps are truncated to the date.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDate parses a REDCap date cell. Blank or malformed cells report false
// instead of an error: an unusable date means "not applicable" to every rule.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// ParseInt parses a categorical cell. REDCap exports code values both as
// integers and as floats ("1.0").
func ParseInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f), true
	}
	return 0, false
}

// Day truncates a timestamp to midnight UTC so that day arithmetic between a
// snapshot date and "today" is exact.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns to − from in whole days. Both arguments are expected
// to be midnight-truncated dates.
func DaysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

// AgeMonths computes age in calendar months at the given date: the year and
// month components only, ignoring the day of month.
func AgeMonths(dob, today time.Time) int {
	return (today.Year()-dob.Year())*12 + int(today.Month()) - int(dob.Month())
}

// AddMonths advances a date by n calendar months, clamping to the last day
// of the target month when the source day does not exist there: Aug 31 plus
// six months is Feb 28 (or 29), never Mar 2. The clock is truncated to
// midnight like Day.
func AddMonths(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	day := t.Day()
	if last := first.AddDate(0, 1, -1).Day(); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

// DaysToBirthday returns the number of days until the participant turns
// `months` months old. Negative once the birthday has passed.
func DaysToBirthday(dob time.Time, months int, today time.Time) int {
	return DaysBetween(Day(today), AddMonths(dob, months))
}

// WholeMonthsSince returns the calendar-month distance from a past date to
// today, the same year*12+month arithmetic as AgeMonths.
func WholeMonthsSince(from, today time.Time) int {
	return AgeMonths(from, today)
}
