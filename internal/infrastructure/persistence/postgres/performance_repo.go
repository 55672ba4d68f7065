// Package postgres implements the PostgreSQL persistence layer for EduGuard.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/eduguard/eduguard-backend/pkg/schoolcal"

	"github.com/eduguard/eduguard-backend/internal/domain/academics"
	"github.com/eduguard/eduguard-backend/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PERFORMANCE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// PerformanceRepository implements academics.PerformanceRepository for PostgreSQL.
type PerformanceRepository struct {
	conn *Connection
}

// NewPerformanceRepository creates a new PerformanceRepository.
func NewPerformanceRepository(conn *Connection) *PerformanceRepository {
	return &PerformanceRepository{conn: conn}
}

const performanceColumns = `
	id, student_id, school_id, subject, term, academic_year, score, max_score,
	grade, assessed_at, recorded_by, created_at, updated_at
`

// Create stores a new performance record.
func (r *PerformanceRepository) Create(ctx context.Context, rec *academics.PerformanceRecord) error {
	query := `
		INSERT INTO performance_records (` + performanceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.conn.Exec(ctx, query,
		rec.ID,
		rec.StudentID,
		rec.SchoolID,
		rec.Subject,
		int(rec.Term),
		rec.AcademicYear,
		rec.Score,
		rec.MaxScore,
		string(rec.Grade),
		rec.AssessedAt,
		rec.RecordedBy,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return shared.ErrStudentNotFound
		}
		return fmt.Errorf("failed to create performance record: %w", err)
	}

	return nil
}

// GetByStudent returns the student's records matching the filter, most
// recent assessment first.
func (r *PerformanceRepository) GetByStudent(ctx context.Context, studentID string, f academics.PerformanceFilter) ([]*academics.PerformanceRecord, error) {
	query := `
		SELECT ` + performanceColumns + `
		FROM performance_records
		WHERE student_id = $1
	`
	args := []interface{}{studentID}

	if f.AcademicYear != "" {
		args = append(args, f.AcademicYear)
		query += fmt.Sprintf(" AND academic_year = $%d", len(args))
	}
	if f.Term != 0 {
		args = append(args, int(f.Term))
		query += fmt.Sprintf(" AND term = $%d", len(args))
	}
	if f.Subject != "" {
		args = append(args, f.Subject)
		query += fmt.Sprintf(" AND subject = $%d", len(args))
	}
	query += " ORDER BY assessed_at DESC"

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query performance records: %w", err)
	}
	defer rows.Close()

	var records []*academics.PerformanceRecord
	for rows.Next() {
		rec, err := scanPerformance(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// LatestOverall returns the most recent Overall record for the given
// academic year and term.
func (r *PerformanceRepository) LatestOverall(ctx context.Context, studentID, academicYear string, term schoolcal.Term) (*academics.PerformanceRecord, error) {
	query := `
		SELECT ` + performanceColumns + `
		FROM performance_records
		WHERE student_id = $1 AND academic_year = $2 AND term = $3 AND subject = $4
		ORDER BY assessed_at DESC
		LIMIT 1
	`

	row := r.conn.QueryRow(ctx, query, studentID, academicYear, int(term), academics.SubjectOverall)
	rec, err := scanPerformance(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrPerformanceNotFound
		}
		return nil, err
	}
	return rec, nil
}

// scanPerformance scans a row into a PerformanceRecord.
func scanPerformance(row pgx.Row) (*academics.PerformanceRecord, error) {
	var (
		rec   academics.PerformanceRecord
		term  int
		grade string
	)

	err := row.Scan(
		&rec.ID,
		&rec.StudentID,
		&rec.SchoolID,
		&rec.Subject,
		&term,
		&rec.AcademicYear,
		&rec.Score,
		&rec.MaxScore,
		&grade,
		&rec.AssessedAt,
		&rec.RecordedBy,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrPerformanceNotFound
		}
		return nil, fmt.Errorf("failed to scan performance record: %w", err)
	}

	rec.Term = schoolcal.Term(term)
	rec.Grade = academics.LetterGrade(grade)
	return &rec, nil
}
