// Package postgres implements the PostgreSQL persistence layer for EduGuard.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/eduguard/eduguard-backend/internal/domain/shared"
	"github.com/eduguard/eduguard-backend/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// StudentRepository implements student.Repository for PostgreSQL.
type StudentRepository struct {
	conn *Connection
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(conn *Connection) *StudentRepository {
	return &StudentRepository{conn: conn}
}

const studentColumns = `
	id, school_id, first_name, last_name, class_name, status, risk_level,
	last_all_flags_resolved_at, ubudehe_level, has_parents, family_stable,
	distance_to_school_km, guardians, enrolled_at, created_at, updated_at
`

// guardianRecord is the JSONB shape stored in the guardians column.
type guardianRecord struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	Phone        string `json:"phone,omitempty"`
	Email        string `json:"email,omitempty"`
}

func guardiansToJSON(gs []student.Guardian) ([]byte, error) {
	records := make([]guardianRecord, 0, len(gs))
	for _, g := range gs {
		records = append(records, guardianRecord{
			Name:         g.Name,
			Relationship: g.Relationship,
			Phone:        string(g.Phone),
			Email:        string(g.Email),
		})
	}
	return json.Marshal(records)
}

func guardiansFromJSON(data []byte) ([]student.Guardian, error) {
	var records []guardianRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal guardians: %w", err)
	}
	gs := make([]student.Guardian, 0, len(records))
	for _, r := range records {
		gs = append(gs, student.Guardian{
			Name:         r.Name,
			Relationship: r.Relationship,
			Phone:        shared.PhoneNumber(r.Phone),
			Email:        shared.Email(r.Email),
		})
	}
	return gs, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// CRUD Operations
// ─────────────────────────────────────────────────────────────────────────────

// Create creates a new student.
func (r *StudentRepository) Create(ctx context.Context, s *student.Student) error {
	query := `
		INSERT INTO students (` + studentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	guardiansJSON, err := guardiansToJSON(s.Guardians)
	if err != nil {
		return fmt.Errorf("failed to marshal guardians: %w", err)
	}

	_, err = r.conn.Exec(ctx, query,
		s.ID,
		s.SchoolID,
		s.FirstName,
		s.LastName,
		s.ClassName,
		string(s.Status),
		string(s.RiskLevel),
		s.LastAllFlagsResolvedAt,
		int(s.Profile.UbudeheLevel),
		s.Profile.HasParents,
		s.Profile.FamilyStable,
		s.Profile.DistanceToSchoolKm,
		guardiansJSON,
		s.EnrolledAt,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrStudentAlreadyExists
		}
		return fmt.Errorf("failed to create student: %w", err)
	}

	return nil
}

// GetByID returns a student by internal ID.
func (r *StudentRepository) GetByID(ctx context.Context, id string) (*student.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1`

	row := r.conn.QueryRow(ctx, query, id)
	return r.scanStudent(row)
}

// Update persists changes to a student. The aggregator-owned columns
// (risk_level, last_all_flags_resolved_at) are deliberately excluded; they
// only move through UpdateRiskLevel.
func (r *StudentRepository) Update(ctx context.Context, s *student.Student) error {
	query := `
		UPDATE students SET
			first_name = $2,
			last_name = $3,
			class_name = $4,
			status = $5,
			ubudehe_level = $6,
			has_parents = $7,
			family_stable = $8,
			distance_to_school_km = $9,
			guardians = $10,
			updated_at = $11
		WHERE id = $1
	`

	guardiansJSON, err := guardiansToJSON(s.Guardians)
	if err != nil {
		return fmt.Errorf("failed to marshal guardians: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query,
		s.ID,
		s.FirstName,
		s.LastName,
		s.ClassName,
		string(s.Status),
		int(s.Profile.UbudeheLevel),
		s.Profile.HasParents,
		s.Profile.FamilyStable,
		s.Profile.DistanceToSchoolKm,
		guardiansJSON,
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update student: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrStudentNotFound
	}

	return nil
}

// UpdateRiskLevel persists only the aggregator-owned columns.
func (r *StudentRepository) UpdateRiskLevel(ctx context.Context, s *student.Student) error {
	query := `
		UPDATE students SET
			risk_level = $2,
			last_all_flags_resolved_at = $3,
			updated_at = $4
		WHERE id = $1
	`

	tag, err := r.conn.Exec(ctx, query,
		s.ID,
		string(s.RiskLevel),
		s.LastAllFlagsResolvedAt,
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update risk level: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrStudentNotFound
	}

	return nil
}

// GetBySchool returns the enrolled students of a school, paginated.
func (r *StudentRepository) GetBySchool(ctx context.Context, schoolID string, opts student.ListOptions) ([]*student.Student, error) {
	if opts.Limit <= 0 {
		opts = student.DefaultListOptions()
	}

	query := `SELECT ` + studentColumns + `
		FROM students
		WHERE school_id = $1`
	if !opts.IncludeInactive {
		query += ` AND status IN ('active')`
	}
	query += `
		ORDER BY last_name, first_name, id
		LIMIT $2 OFFSET $3
	`

	rows, err := r.conn.Query(ctx, query, schoolID, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query students: %w", err)
	}
	defer rows.Close()

	var students []*student.Student
	for rows.Next() {
		s, err := r.scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, s)
	}

	return students, rows.Err()
}

// CountBySchool returns the number of enrolled students in a school.
func (r *StudentRepository) CountBySchool(ctx context.Context, schoolID string) (int, error) {
	query := `SELECT COUNT(*) FROM students WHERE school_id = $1 AND status = 'active'`

	var count int
	if err := r.conn.QueryRow(ctx, query, schoolID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count students: %w", err)
	}

	return count, nil
}

// Deactivate marks a student inactive.
func (r *StudentRepository) Deactivate(ctx context.Context, id string) error {
	query := `UPDATE students SET status = 'inactive', updated_at = NOW() WHERE id = $1`

	tag, err := r.conn.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate student: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrStudentNotFound
	}

	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Scanning
// ─────────────────────────────────────────────────────────────────────────────

// scanStudent scans a row into a Student entity.
func (r *StudentRepository) scanStudent(row pgx.Row) (*student.Student, error) {
	var (
		s             student.Student
		status        string
		riskLevel     string
		ubudehe       int
		guardiansJSON []byte
	)

	err := row.Scan(
		&s.ID,
		&s.SchoolID,
		&s.FirstName,
		&s.LastName,
		&s.ClassName,
		&status,
		&riskLevel,
		&s.LastAllFlagsResolvedAt,
		&ubudehe,
		&s.Profile.HasParents,
		&s.Profile.FamilyStable,
		&s.Profile.DistanceToSchoolKm,
		&guardiansJSON,
		&s.EnrolledAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to scan student: %w", err)
	}

	s.Status = student.Status(status)
	s.RiskLevel = student.RiskLevel(riskLevel)
	s.Profile.UbudeheLevel = student.UbudeheLevel(ubudehe)

	s.Guardians, err = guardiansFromJSON(guardiansJSON)
	if err != nil {
		return nil, err
	}

	return &s, nil
}
