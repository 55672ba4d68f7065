// Package postgres implements the PostgreSQL persistence layer for EduGuard.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/eduguard/eduguard-backend/internal/domain/academics"
	"github.com/eduguard/eduguard-backend/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ATTENDANCE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// AttendanceRepository implements academics.AttendanceRepository for PostgreSQL.
type AttendanceRepository struct {
	conn *Connection
}

// NewAttendanceRepository creates a new AttendanceRepository.
func NewAttendanceRepository(conn *Connection) *AttendanceRepository {
	return &AttendanceRepository{conn: conn}
}

const attendanceColumns = `
	id, student_id, school_id, date, status, recorded_by, created_at, updated_at
`

// Create stores a new attendance record. The unique constraint on
// (student_id, date) rejects a second register entry for the same day.
func (r *AttendanceRepository) Create(ctx context.Context, rec *academics.AttendanceRecord) error {
	query := `
		INSERT INTO attendance_records (` + attendanceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.conn.Exec(ctx, query,
		rec.ID,
		rec.StudentID,
		rec.SchoolID,
		rec.Date,
		string(rec.Status),
		rec.RecordedBy,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrAttendanceDuplicate
		}
		if IsForeignKeyViolation(err) {
			return shared.ErrStudentNotFound
		}
		return fmt.Errorf("failed to create attendance record: %w", err)
	}

	return nil
}

// Correct applies an administrative status correction.
func (r *AttendanceRepository) Correct(ctx context.Context, id string, status academics.AttendanceStatus) error {
	query := `UPDATE attendance_records SET status = $2, updated_at = NOW() WHERE id = $1`

	tag, err := r.conn.Exec(ctx, query, id, string(status))
	if err != nil {
		return fmt.Errorf("failed to correct attendance record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrAttendanceNotFound
	}

	return nil
}

// GetByStudent returns the student's records inside the date range, oldest
// first.
func (r *AttendanceRepository) GetByStudent(ctx context.Context, studentID string, dr academics.DateRange) ([]*academics.AttendanceRecord, error) {
	query := `
		SELECT ` + attendanceColumns + `
		FROM attendance_records
		WHERE student_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC
	`

	rows, err := r.conn.Query(ctx, query, studentID, dr.From, dr.To)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance records: %w", err)
	}
	defer rows.Close()

	var records []*academics.AttendanceRecord
	for rows.Next() {
		rec, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// scanAttendance scans a row into an AttendanceRecord.
func scanAttendance(row pgx.Row) (*academics.AttendanceRecord, error) {
	var (
		rec    academics.AttendanceRecord
		status string
	)

	err := row.Scan(
		&rec.ID,
		&rec.StudentID,
		&rec.SchoolID,
		&rec.Date,
		&status,
		&rec.RecordedBy,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrAttendanceNotFound
		}
		return nil, fmt.Errorf("failed to scan attendance record: %w", err)
	}

	rec.Status = academics.AttendanceStatus(status)
	return &rec, nil
}
