// Package schoolcal provides school-calendar utilities for the Kigali timezone
// (UTC+2, no DST). All EduGuard schools operate on the Rwandan academic
// calendar: three terms per calendar year and a Monday-Friday school week.
// No external dependencies - uses only standard library.
package schoolcal

import (
	"fmt"
	"time"
)

// KigaliTZ is the Kigali timezone (UTC+2, no DST).
// Rwanda does not observe daylight saving time, so this is constant year-round.
var KigaliTZ = time.FixedZone("Africa/Kigali", 2*60*60)

// Clock supplies the current time. Evaluators and the reconciler take a Clock
// instead of calling time.Now directly so tests can pin the calendar position.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock backed by time.Now.
type SystemClock struct{}

// Now returns the current time in Kigali timezone.
func (SystemClock) Now() time.Time {
	return time.Now().In(KigaliTZ)
}

// FixedClock is a Clock pinned to a single instant, for tests.
type FixedClock struct {
	Instant time.Time
}

// Now returns the pinned instant.
func (c FixedClock) Now() time.Time {
	return c.Instant
}

// ToKigali converts a time to Kigali timezone.
func ToKigali(t time.Time) time.Time {
	return t.In(KigaliTZ)
}

// Date creates a time in Kigali timezone with the given date.
func Date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, KigaliTZ)
}

// StartOfDay returns the start of the day (00:00:00) in Kigali timezone.
func StartOfDay(t time.Time) time.Time {
	local := ToKigali(t)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, KigaliTZ)
}

// EndOfDay returns the end of the day (23:59:59.999999999) in Kigali timezone.
func EndOfDay(t time.Time) time.Time {
	local := ToKigali(t)
	return time.Date(local.Year(), local.Month(), local.Day(), 23, 59, 59, 999999999, KigaliTZ)
}

// SchoolWeek is a Monday-Friday attendance window.
type SchoolWeek struct {
	Monday time.Time // start of Monday (00:00:00)
	Friday time.Time // end of Friday (23:59:59.999...)
}

// Contains reports whether the given time falls inside the school week.
func (w SchoolWeek) Contains(t time.Time) bool {
	return !t.Before(w.Monday) && !t.After(w.Friday)
}

// SchoolDays returns the number of school days in the window (always 5).
func (w SchoolWeek) SchoolDays() int {
	return 5
}

// CurrentSchoolWeek returns the Monday-Friday window containing t.
// For a Saturday or Sunday, the window of the week just ended is returned,
// which is what the weekly attendance scan wants when it runs on weekends.
func CurrentSchoolWeek(t time.Time) SchoolWeek {
	local := ToKigali(t)
	weekday := int(local.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	monday := StartOfDay(local.AddDate(0, 0, -(weekday - 1)))
	friday := EndOfDay(monday.AddDate(0, 0, 4))
	return SchoolWeek{Monday: monday, Friday: friday}
}

// Term is an academic term (1, 2 or 3) within a calendar year.
type Term int

const (
	Term1 Term = 1 // January - April
	Term2 Term = 2 // May - August
	Term3 Term = 3 // September - December
)

// IsValid checks if the term number is valid.
func (t Term) IsValid() bool {
	return t >= Term1 && t <= Term3
}

// String returns the canonical term label, e.g. "Term 2".
func (t Term) String() string {
	return fmt.Sprintf("Term %d", int(t))
}

// CurrentTerm returns the academic term the given time falls in.
func CurrentTerm(t time.Time) Term {
	switch ToKigali(t).Month() {
	case time.January, time.February, time.March, time.April:
		return Term1
	case time.May, time.June, time.July, time.August:
		return Term2
	default:
		return Term3
	}
}

// AcademicYear returns the academic year label for the given time.
// The Rwandan school year follows the calendar year.
func AcademicYear(t time.Time) string {
	return fmt.Sprintf("%d", ToKigali(t).Year())
}

// IsSchoolDay reports whether t falls on a Monday-Friday.
func IsSchoolDay(t time.Time) bool {
	wd := ToKigali(t).Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// SameSchoolDay reports whether two times fall on the same calendar day
// in Kigali timezone. Used to enforce one attendance record per day.
func SameSchoolDay(a, b time.Time) bool {
	la, lb := ToKigali(a), ToKigali(b)
	return la.Year() == lb.Year() && la.YearDay() == lb.YearDay()
}

// DaysSince returns the number of whole days between t and now.
func DaysSince(now, t time.Time) int {
	d := now.Sub(t)
	if d < 0 {
		return 0
	}
	return int(d.Hours() / 24)
}

// FormatDate formats a time as "2006-01-02" in Kigali timezone.
func FormatDate(t time.Time) string {
	return ToKigali(t).Format("2006-01-02")
}
