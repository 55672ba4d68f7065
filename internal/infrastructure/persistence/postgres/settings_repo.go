// Package postgres implements the PostgreSQL persistence layer for EduGuard.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/eduguard/eduguard-backend/internal/domain/risk"
	"github.com/eduguard/eduguard-backend/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RISK RULE SETTINGS REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// SettingsRepository implements risk.SettingsRepository for PostgreSQL.
// The rule thresholds live in a single JSONB column: thresholds change shape
// more often than the rest of the schema, and schools read them whole.
type SettingsRepository struct {
	conn *Connection
}

// NewSettingsRepository creates a new SettingsRepository.
func NewSettingsRepository(conn *Connection) *SettingsRepository {
	return &SettingsRepository{conn: conn}
}

// settingsDocument is the JSONB payload stored per school.
type settingsDocument struct {
	Attendance    risk.AttendanceRules    `json:"attendance"`
	Performance   risk.PerformanceRules   `json:"performance"`
	SocioEconomic risk.SocioEconomicRules `json:"socio_economic"`
	Distance      risk.DistanceRules      `json:"distance"`
	Combined      risk.CombinedRules      `json:"combined"`
}

// GetOrCreate returns the school's settings, inserting the defaults on first
// access. The upsert keeps concurrent first readers from racing the insert.
func (r *SettingsRepository) GetOrCreate(ctx context.Context, schoolID string) (*risk.RiskRuleSettings, error) {
	now := time.Now().UTC()
	defaults := risk.DefaultSettings(schoolID, now)

	defaultsJSON, err := json.Marshal(settingsDocument{
		Attendance:    defaults.Attendance,
		Performance:   defaults.Performance,
		SocioEconomic: defaults.SocioEconomic,
		Distance:      defaults.Distance,
		Combined:      defaults.Combined,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal default settings: %w", err)
	}

	query := `
		INSERT INTO risk_rule_settings (school_id, settings, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (school_id) DO UPDATE SET school_id = EXCLUDED.school_id
		RETURNING settings, created_at, updated_at
	`

	var (
		doc       []byte
		createdAt time.Time
		updatedAt time.Time
	)
	err = r.conn.QueryRow(ctx, query, schoolID, defaultsJSON, now).Scan(&doc, &createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	var stored settingsDocument
	if err := json.Unmarshal(doc, &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}

	return &risk.RiskRuleSettings{
		SchoolID:      schoolID,
		Attendance:    stored.Attendance,
		Performance:   stored.Performance,
		SocioEconomic: stored.SocioEconomic,
		Distance:      stored.Distance,
		Combined:      stored.Combined,
		CreatedAt:     createdAt,
		UpdatedAt:     updatedAt,
	}, nil
}

// Update persists changed settings.
func (r *SettingsRepository) Update(ctx context.Context, s *risk.RiskRuleSettings) error {
	doc, err := json.Marshal(settingsDocument{
		Attendance:    s.Attendance,
		Performance:   s.Performance,
		SocioEconomic: s.SocioEconomic,
		Distance:      s.Distance,
		Combined:      s.Combined,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	query := `
		UPDATE risk_rule_settings
		SET settings = $2, updated_at = NOW()
		WHERE school_id = $1
	`

	tag, err := r.conn.Exec(ctx, query, s.SchoolID, doc)
	if err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrSettingsNotFound
	}

	return nil
}
