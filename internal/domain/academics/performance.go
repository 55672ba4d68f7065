package academics

import (
	"time"

	"github.com/eduguard/eduguard-backend/internal/domain/shared"
	"github.com/eduguard/eduguard-backend/pkg/schoolcal"
)

// SubjectOverall is the aggregate "subject" the term evaluator reads.
// Schools record per-subject assessments plus one Overall record per term.
const SubjectOverall = "Overall"

// LetterGrade is the derived grade band for an assessment.
type LetterGrade string

const (
	GradeA LetterGrade = "A"
	GradeB LetterGrade = "B"
	GradeC LetterGrade = "C"
	GradeD LetterGrade = "D"
	GradeE LetterGrade = "E"
	GradeF LetterGrade = "F"
)

// GradeForPercentage derives the letter grade from a score percentage.
// The bands are fixed nationally: A >=90, B >=80, C >=70, D >=60, E >=50,
// everything below is F.
func GradeForPercentage(pct float64) LetterGrade {
	switch {
	case pct >= 90:
		return GradeA
	case pct >= 80:
		return GradeB
	case pct >= 70:
		return GradeC
	case pct >= 60:
		return GradeD
	case pct >= 50:
		return GradeE
	default:
		return GradeF
	}
}

// PerformanceRecord is one (student, subject, term, academic year) assessment.
// The letter grade is computed deterministically at write time from
// Score/MaxScore and is never independently mutated.
type PerformanceRecord struct {
	ID        string
	StudentID string
	SchoolID  string

	Subject      string
	Term         schoolcal.Term
	AcademicYear string

	Score    float64
	MaxScore float64
	Grade    LetterGrade

	// AssessedAt is when the assessment was taken; the term evaluator
	// picks the most recent Overall record per term by this timestamp.
	AssessedAt time.Time

	RecordedBy string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewPerformanceRecord validates the inputs and derives the letter grade.
func NewPerformanceRecord(id, studentID, schoolID, subject string, term schoolcal.Term, academicYear string, score, maxScore float64, assessedAt time.Time, recordedBy string, now time.Time) (*PerformanceRecord, error) {
	if id == "" || studentID == "" || schoolID == "" {
		return nil, shared.NewDomainError("academics", "NewPerformance", shared.ErrInvalidID, "id, student ID and school ID are required")
	}
	if subject == "" {
		return nil, shared.NewDomainError("academics", "NewPerformance", shared.ErrEmptyValue, "subject is required")
	}
	if !term.IsValid() {
		return nil, shared.NewDomainError("academics", "NewPerformance", shared.ErrValueOutOfRange, "term must be 1, 2 or 3")
	}
	if academicYear == "" {
		return nil, shared.NewDomainError("academics", "NewPerformance", shared.ErrEmptyValue, "academic year is required")
	}
	if maxScore <= 0 || score < 0 || score > maxScore {
		return nil, shared.ErrInvalidScore
	}

	rec := &PerformanceRecord{
		ID:           id,
		StudentID:    studentID,
		SchoolID:     schoolID,
		Subject:      subject,
		Term:         term,
		AcademicYear: academicYear,
		Score:        score,
		MaxScore:     maxScore,
		AssessedAt:   assessedAt,
		RecordedBy:   recordedBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	rec.Grade = GradeForPercentage(rec.Percentage())
	return rec, nil
}

// Percentage returns the score as a percentage of the maximum.
func (r *PerformanceRecord) Percentage() float64 {
	if r.MaxScore <= 0 {
		return 0
	}
	return r.Score / r.MaxScore * 100
}

// IsOverall reports whether this is the aggregate per-term record the
// performance evaluator reads.
func (r *PerformanceRecord) IsOverall() bool {
	return r.Subject == SubjectOverall
}
