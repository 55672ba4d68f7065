package academics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduguard/eduguard-backend/internal/domain/shared"
	"github.com/eduguard/eduguard-backend/pkg/schoolcal"
)

func TestNewPerformanceRecord(t *testing.T) {
	now := schoolcal.Date(2025, 3, 20)
	assessedAt := schoolcal.Date(2025, 3, 18)

	rec, err := NewPerformanceRecord("perf-1", "st-1", "sch-1", SubjectOverall,
		schoolcal.Term1, "2025", 42, 60, assessedAt, "teacher-1", now)
	require.NoError(t, err)

	assert.Equal(t, SubjectOverall, rec.Subject)
	assert.True(t, rec.IsOverall())
	assert.InDelta(t, 70.0, rec.Percentage(), 0.001)
	assert.Equal(t, GradeC, rec.Grade)
}

func TestNewPerformanceRecord_Validation(t *testing.T) {
	now := schoolcal.Date(2025, 3, 20)

	_, err := NewPerformanceRecord("", "st-1", "sch-1", "Math", schoolcal.Term1, "2025", 10, 20, now, "t", now)
	assert.ErrorIs(t, err, shared.ErrInvalidID)

	_, err = NewPerformanceRecord("p", "st-1", "sch-1", "", schoolcal.Term1, "2025", 10, 20, now, "t", now)
	assert.ErrorIs(t, err, shared.ErrEmptyValue)

	_, err = NewPerformanceRecord("p", "st-1", "sch-1", "Math", schoolcal.Term(4), "2025", 10, 20, now, "t", now)
	assert.ErrorIs(t, err, shared.ErrValueOutOfRange)

	_, err = NewPerformanceRecord("p", "st-1", "sch-1", "Math", schoolcal.Term1, "", 10, 20, now, "t", now)
	assert.ErrorIs(t, err, shared.ErrEmptyValue)

	_, err = NewPerformanceRecord("p", "st-1", "sch-1", "Math", schoolcal.Term1, "2025", 25, 20, now, "t", now)
	assert.ErrorIs(t, err, shared.ErrInvalidScore)

	_, err = NewPerformanceRecord("p", "st-1", "sch-1", "Math", schoolcal.Term1, "2025", 10, 0, now, "t", now)
	assert.ErrorIs(t, err, shared.ErrInvalidScore)
}

func TestGradeForPercentage(t *testing.T) {
	cases := []struct {
		pct  float64
		want LetterGrade
	}{
		{95, GradeA},
		{90, GradeA},
		{85, GradeB},
		{72, GradeC},
		{60, GradeD},
		{55, GradeE},
		{49, GradeF},
		{0, GradeF},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, GradeForPercentage(tc.pct), "pct=%.1f", tc.pct)
	}
}

func TestIsOverall(t *testing.T) {
	now := schoolcal.Date(2025, 3, 20)
	rec, err := NewPerformanceRecord("p", "st-1", "sch-1", "Mathematics",
		schoolcal.Term1, "2025", 10, 20, now, "t", now)
	require.NoError(t, err)
	assert.False(t, rec.IsOverall())
}
