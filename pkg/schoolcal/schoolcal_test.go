package schoolcal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCurrentSchoolWeek(t *testing.T) {
	// Wednesday 2025-03-12.
	week := CurrentSchoolWeek(Date(2025, 3, 12))
	assert.Equal(t, Date(2025, 3, 10), week.Monday)
	assert.Equal(t, EndOfDay(Date(2025, 3, 14)), week.Friday)

	// Monday itself belongs to its own week.
	week = CurrentSchoolWeek(Date(2025, 3, 10))
	assert.Equal(t, Date(2025, 3, 10), week.Monday)

	// Saturday and Sunday map to the week that just ended, so a weekend
	// sweep scans the finished week.
	week = CurrentSchoolWeek(Date(2025, 3, 15))
	assert.Equal(t, Date(2025, 3, 10), week.Monday)
	week = CurrentSchoolWeek(Date(2025, 3, 16))
	assert.Equal(t, Date(2025, 3, 10), week.Monday)

	// Next Monday starts a new week.
	week = CurrentSchoolWeek(Date(2025, 3, 17))
	assert.Equal(t, Date(2025, 3, 17), week.Monday)
}

func TestSchoolWeekContains(t *testing.T) {
	week := CurrentSchoolWeek(Date(2025, 3, 12))

	assert.True(t, week.Contains(Date(2025, 3, 10)))
	assert.True(t, week.Contains(Date(2025, 3, 14).Add(17*time.Hour)))
	assert.False(t, week.Contains(Date(2025, 3, 9)))
	assert.False(t, week.Contains(Date(2025, 3, 15)))
	assert.Equal(t, 5, week.SchoolDays())
}

func TestCurrentTerm(t *testing.T) {
	assert.Equal(t, Term1, CurrentTerm(Date(2025, 1, 15)))
	assert.Equal(t, Term1, CurrentTerm(Date(2025, 4, 30)))
	assert.Equal(t, Term2, CurrentTerm(Date(2025, 5, 1)))
	assert.Equal(t, Term2, CurrentTerm(Date(2025, 8, 31)))
	assert.Equal(t, Term3, CurrentTerm(Date(2025, 9, 1)))
	assert.Equal(t, Term3, CurrentTerm(Date(2025, 12, 31)))
}

func TestTerm(t *testing.T) {
	assert.True(t, Term1.IsValid())
	assert.True(t, Term3.IsValid())
	assert.False(t, Term(0).IsValid())
	assert.False(t, Term(4).IsValid())
	assert.Equal(t, "Term 2", Term2.String())
}

func TestAcademicYear(t *testing.T) {
	assert.Equal(t, "2025", AcademicYear(Date(2025, 6, 1)))

	// 23:30 UTC on Dec 31 is already Jan 1 in Kigali.
	newYearEveUTC := time.Date(2025, 12, 31, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "2026", AcademicYear(newYearEveUTC))
}

func TestStartAndEndOfDay(t *testing.T) {
	noon := Date(2025, 3, 12).Add(12 * time.Hour)

	start := StartOfDay(noon)
	assert.Equal(t, Date(2025, 3, 12), start)

	end := EndOfDay(noon)
	assert.Equal(t, 23, end.Hour())
	assert.True(t, end.After(noon))
	assert.True(t, SameSchoolDay(start, end))
}

func TestIsSchoolDay(t *testing.T) {
	assert.True(t, IsSchoolDay(Date(2025, 3, 10)))  // Monday
	assert.True(t, IsSchoolDay(Date(2025, 3, 14)))  // Friday
	assert.False(t, IsSchoolDay(Date(2025, 3, 15))) // Saturday
	assert.False(t, IsSchoolDay(Date(2025, 3, 16))) // Sunday
}

func TestDaysSince(t *testing.T) {
	now := Date(2025, 3, 12).Add(12 * time.Hour)

	assert.Equal(t, 0, DaysSince(now, now))
	assert.Equal(t, 2, DaysSince(now, Date(2025, 3, 10).Add(12*time.Hour)))
	assert.Equal(t, 30, DaysSince(now, now.AddDate(0, 0, -30)))

	// Future timestamps never count negative.
	assert.Equal(t, 0, DaysSince(now, now.Add(time.Hour)))
}

func TestSameSchoolDay(t *testing.T) {
	morning := Date(2025, 3, 12).Add(8 * time.Hour)
	evening := Date(2025, 3, 12).Add(20 * time.Hour)
	assert.True(t, SameSchoolDay(morning, evening))
	assert.False(t, SameSchoolDay(morning, Date(2025, 3, 13)))

	// 22:30 UTC is 00:30 the next day in Kigali.
	lateUTC := time.Date(2025, 3, 12, 22, 30, 0, 0, time.UTC)
	assert.False(t, SameSchoolDay(morning, lateUTC))
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "2025-03-12", FormatDate(Date(2025, 3, 12)))

	// Formatting normalizes to Kigali local time first.
	lateUTC := time.Date(2025, 3, 12, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025-03-13", FormatDate(lateUTC))
}

func TestFixedClock(t *testing.T) {
	instant := Date(2025, 3, 12)
	clock := FixedClock{Instant: instant}
	assert.Equal(t, instant, clock.Now())
}
