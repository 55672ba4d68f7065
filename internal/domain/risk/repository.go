package risk

import (
	"context"
	"time"

	"github.com/eduguard/eduguard-backend/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Resolution carries the audit fields written when flags are closed.
type Resolution struct {
	By    shared.ActorID
	Notes string
	At    time.Time
}

// OpenFlagFilter selects open (active and unresolved) flags.
type OpenFlagFilter struct {
	StudentID string
	Type      RiskType // empty = any type
	ExcludeID string   // flag to keep open (the canonical one)
}

// FlagRepository defines persistence for risk flags.
type FlagRepository interface {
	// Create stores a new flag.
	Create(ctx context.Context, flag *RiskFlag) error

	// Update persists in-place changes to a flag.
	// Returns shared.ErrFlagNotFound if no flag matches.
	Update(ctx context.Context, flag *RiskFlag) error

	// GetByID returns a flag by ID, or shared.ErrFlagNotFound.
	GetByID(ctx context.Context, id string) (*RiskFlag, error)

	// FindOpen returns the canonical open flag for (student, type): the
	// oldest open flag, so duplicate races resolve deterministically.
	// Returns shared.ErrFlagNotFound when none is open.
	FindOpen(ctx context.Context, studentID string, t RiskType) (*RiskFlag, error)

	// ListOpenByStudent returns every open flag of a student.
	ListOpenByStudent(ctx context.Context, studentID string) ([]*RiskFlag, error)

	// ListByStudent returns the student's full flag history, newest first.
	ListByStudent(ctx context.Context, studentID string, limit int) ([]*RiskFlag, error)

	// ListOpenBySchool returns open flags across a school, newest first.
	ListOpenBySchool(ctx context.Context, schoolID string, limit int) ([]*RiskFlag, error)

	// BulkResolve force-resolves every open flag matching the filter and
	// returns how many were closed. Used by the reconciler's safety sweep
	// to recover from duplicate-creating races.
	BulkResolve(ctx context.Context, f OpenFlagFilter, res Resolution) (int, error)

	// CountOpenBySchool returns open-flag counts grouped by severity.
	CountOpenBySchool(ctx context.Context, schoolID string) (map[Severity]int, error)
}

// SettingsRepository defines persistence for per-school rule settings.
type SettingsRepository interface {
	// GetOrCreate returns the school's settings, creating them with
	// DefaultSettings on first access. Never fails for a missing row.
	GetOrCreate(ctx context.Context, schoolID string) (*RiskRuleSettings, error)

	// Update persists changed settings.
	Update(ctx context.Context, s *RiskRuleSettings) error
}
