// Package postgres implements the PostgreSQL persistence layer for EduGuard.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/eduguard/eduguard-backend/internal/domain/risk"
	"github.com/eduguard/eduguard-backend/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RISK FLAG REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// FlagRepository implements risk.FlagRepository for PostgreSQL.
type FlagRepository struct {
	conn *Connection
}

// NewFlagRepository creates a new FlagRepository.
func NewFlagRepository(conn *Connection) *FlagRepository {
	return &FlagRepository{conn: conn}
}

const flagColumns = `
	id, student_id, school_id, type, severity, title, description, evidence,
	auto_generated, is_active, is_resolved, resolved_at, resolved_by,
	resolution_notes, created_at, updated_at
`

// Create stores a new flag. The partial unique index on open
// (student_id, type) pairs turns a duplicate-creating race into a unique
// violation instead of a second open flag.
func (r *FlagRepository) Create(ctx context.Context, flag *risk.RiskFlag) error {
	query := `
		INSERT INTO risk_flags (` + flagColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	evidenceJSON, err := json.Marshal(flag.Evidence)
	if err != nil {
		return fmt.Errorf("failed to marshal evidence: %w", err)
	}

	_, err = r.conn.Exec(ctx, query,
		flag.ID,
		flag.StudentID,
		flag.SchoolID,
		string(flag.Type),
		string(flag.Severity),
		flag.Title,
		flag.Description,
		evidenceJSON,
		flag.AutoGenerated,
		flag.IsActive,
		flag.IsResolved,
		flag.ResolvedAt,
		nullIfEmpty(flag.ResolvedBy),
		nullIfEmpty(flag.ResolutionNotes),
		flag.CreatedAt,
		flag.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrFlagAlreadyOpen
		}
		if IsForeignKeyViolation(err) {
			return shared.ErrStudentNotFound
		}
		return fmt.Errorf("failed to create risk flag: %w", err)
	}

	return nil
}

// Update persists in-place changes to a flag.
func (r *FlagRepository) Update(ctx context.Context, flag *risk.RiskFlag) error {
	query := `
		UPDATE risk_flags SET
			severity = $2,
			title = $3,
			description = $4,
			evidence = $5,
			is_active = $6,
			is_resolved = $7,
			resolved_at = $8,
			resolved_by = $9,
			resolution_notes = $10,
			updated_at = $11
		WHERE id = $1
	`

	evidenceJSON, err := json.Marshal(flag.Evidence)
	if err != nil {
		return fmt.Errorf("failed to marshal evidence: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query,
		flag.ID,
		string(flag.Severity),
		flag.Title,
		flag.Description,
		evidenceJSON,
		flag.IsActive,
		flag.IsResolved,
		flag.ResolvedAt,
		nullIfEmpty(flag.ResolvedBy),
		nullIfEmpty(flag.ResolutionNotes),
		flag.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update risk flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrFlagNotFound
	}

	return nil
}

// GetByID returns a flag by ID.
func (r *FlagRepository) GetByID(ctx context.Context, id string) (*risk.RiskFlag, error) {
	query := `SELECT ` + flagColumns + ` FROM risk_flags WHERE id = $1`

	return scanFlag(r.conn.QueryRow(ctx, query, id))
}

// FindOpen returns the canonical open flag for (student, type): the oldest
// one, so concurrent duplicates resolve deterministically.
func (r *FlagRepository) FindOpen(ctx context.Context, studentID string, t risk.RiskType) (*risk.RiskFlag, error) {
	query := `
		SELECT ` + flagColumns + `
		FROM risk_flags
		WHERE student_id = $1 AND type = $2 AND is_active AND NOT is_resolved
		ORDER BY created_at ASC
		LIMIT 1
	`

	return scanFlag(r.conn.QueryRow(ctx, query, studentID, string(t)))
}

// ListOpenByStudent returns every open flag of a student.
func (r *FlagRepository) ListOpenByStudent(ctx context.Context, studentID string) ([]*risk.RiskFlag, error) {
	query := `
		SELECT ` + flagColumns + `
		FROM risk_flags
		WHERE student_id = $1 AND is_active AND NOT is_resolved
		ORDER BY created_at ASC
	`

	return r.queryFlags(ctx, query, studentID)
}

// ListByStudent returns the student's full flag history, newest first.
func (r *FlagRepository) ListByStudent(ctx context.Context, studentID string, limit int) ([]*risk.RiskFlag, error) {
	query := `
		SELECT ` + flagColumns + `
		FROM risk_flags
		WHERE student_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	return r.queryFlags(ctx, query, studentID, limit)
}

// ListOpenBySchool returns open flags across a school, newest first.
func (r *FlagRepository) ListOpenBySchool(ctx context.Context, schoolID string, limit int) ([]*risk.RiskFlag, error) {
	query := `
		SELECT ` + flagColumns + `
		FROM risk_flags
		WHERE school_id = $1 AND is_active AND NOT is_resolved
		ORDER BY created_at DESC
		LIMIT $2
	`

	return r.queryFlags(ctx, query, schoolID, limit)
}

// BulkResolve force-resolves every open flag matching the filter.
func (r *FlagRepository) BulkResolve(ctx context.Context, f risk.OpenFlagFilter, res risk.Resolution) (int, error) {
	query := `
		UPDATE risk_flags SET
			is_active = FALSE,
			is_resolved = TRUE,
			resolved_at = $1,
			resolved_by = $2,
			resolution_notes = $3,
			updated_at = $1
		WHERE student_id = $4 AND is_active AND NOT is_resolved
	`
	args := []interface{}{res.At, string(res.By), res.Notes, f.StudentID}

	if f.Type != "" {
		args = append(args, string(f.Type))
		query += fmt.Sprintf(" AND type = $%d", len(args))
	}
	if f.ExcludeID != "" {
		args = append(args, f.ExcludeID)
		query += fmt.Sprintf(" AND id != $%d", len(args))
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk resolve flags: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

// CountOpenBySchool returns open-flag counts grouped by severity.
func (r *FlagRepository) CountOpenBySchool(ctx context.Context, schoolID string) (map[risk.Severity]int, error) {
	query := `
		SELECT severity, COUNT(*)
		FROM risk_flags
		WHERE school_id = $1 AND is_active AND NOT is_resolved
		GROUP BY severity
	`

	rows, err := r.conn.Query(ctx, query, schoolID)
	if err != nil {
		return nil, fmt.Errorf("failed to count flags: %w", err)
	}
	defer rows.Close()

	counts := make(map[risk.Severity]int)
	for rows.Next() {
		var (
			severity string
			count    int
		)
		if err := rows.Scan(&severity, &count); err != nil {
			return nil, fmt.Errorf("failed to scan flag count: %w", err)
		}
		counts[risk.Severity(severity)] = count
	}

	return counts, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Scanning
// ─────────────────────────────────────────────────────────────────────────────

func (r *FlagRepository) queryFlags(ctx context.Context, query string, args ...interface{}) ([]*risk.RiskFlag, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query risk flags: %w", err)
	}
	defer rows.Close()

	var flags []*risk.RiskFlag
	for rows.Next() {
		flag, err := scanFlag(rows)
		if err != nil {
			return nil, err
		}
		flags = append(flags, flag)
	}

	return flags, rows.Err()
}

// scanFlag scans a row into a RiskFlag.
func scanFlag(row pgx.Row) (*risk.RiskFlag, error) {
	var (
		flag         risk.RiskFlag
		flagType     string
		severity     string
		evidenceJSON []byte
		resolvedBy   *string
		notes        *string
	)

	err := row.Scan(
		&flag.ID,
		&flag.StudentID,
		&flag.SchoolID,
		&flagType,
		&severity,
		&flag.Title,
		&flag.Description,
		&evidenceJSON,
		&flag.AutoGenerated,
		&flag.IsActive,
		&flag.IsResolved,
		&flag.ResolvedAt,
		&resolvedBy,
		&notes,
		&flag.CreatedAt,
		&flag.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrFlagNotFound
		}
		return nil, fmt.Errorf("failed to scan risk flag: %w", err)
	}

	flag.Type = risk.RiskType(flagType)
	flag.Severity = risk.Severity(severity)
	if resolvedBy != nil {
		flag.ResolvedBy = *resolvedBy
	}
	if notes != nil {
		flag.ResolutionNotes = *notes
	}
	if err := json.Unmarshal(evidenceJSON, &flag.Evidence); err != nil {
		return nil, fmt.Errorf("failed to unmarshal evidence: %w", err)
	}

	return &flag, nil
}

// nullIfEmpty maps "" to SQL NULL for nullable text columns.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
