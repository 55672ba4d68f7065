package risk

import (
	"time"

	"github.com/eduguard/eduguard-backend/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// RISK RULE SETTINGS
// Per-school configuration of the detection thresholds. Each category can be
// enabled independently. Settings are created on first access with the
// defaults below; malformed or missing settings never fail a detection run.
// ══════════════════════════════════════════════════════════════════════════════

// AttendanceRules configures the attendance evaluators.
type AttendanceRules struct {
	Enabled bool `json:"enabled"`

	// Weekly thresholds: ABSENT days inside the Monday-Friday window.
	WeeklyMediumAbsences   int `json:"weekly_medium_absences"`
	WeeklyHighAbsences     int `json:"weekly_high_absences"`
	WeeklyCriticalAbsences int `json:"weekly_critical_absences"`

	// Legacy rolling-window thresholds (absences per trailing days).
	// Kept for schools still on the monthly detection cadence; the weekly
	// evaluator is the system of record.
	MediumAbsences     int `json:"medium_absences"`
	MediumWindowDays   int `json:"medium_window_days"`
	HighAbsences       int `json:"high_absences"`
	HighWindowDays     int `json:"high_window_days"`
	CriticalAbsences   int `json:"critical_absences"`
	CriticalWindowDays int `json:"critical_window_days"`

	// UseLegacyRolling switches the full detection path to the rolling
	// window evaluator instead of the weekly one. Default off.
	UseLegacyRolling bool `json:"use_legacy_rolling"`
}

// MaxWindowDays returns the widest configured rolling window. Callers
// fetching attendance for the legacy evaluator must cover at least this
// many trailing days.
func (r AttendanceRules) MaxWindowDays() int {
	days := r.MediumWindowDays
	if r.HighWindowDays > days {
		days = r.HighWindowDays
	}
	if r.CriticalWindowDays > days {
		days = r.CriticalWindowDays
	}
	return days
}

// PerformanceRules configures the term performance evaluator.
// Thresholds are maximum percentages (inclusive) for each band.
type PerformanceRules struct {
	Enabled bool `json:"enabled"`

	CriticalMaxPct float64 `json:"critical_max_pct"`
	HighMaxPct     float64 `json:"high_max_pct"`
	MediumMaxPct   float64 `json:"medium_max_pct"`

	// Score-drop thresholds between consecutive terms, used by the
	// school dashboard's trend view.
	MediumScoreDrop   float64 `json:"medium_score_drop"`
	HighScoreDrop     float64 `json:"high_score_drop"`
	CriticalScoreDrop float64 `json:"critical_score_drop"`
}

// SocioEconomicRules configures the household factor evaluator.
type SocioEconomicRules struct {
	Enabled bool `json:"enabled"`

	// UbudeheLevelAtOrBelow marks the poverty factor when the household
	// classification is at or below this level (and assessed).
	UbudeheLevelAtOrBelow student.UbudeheLevel `json:"ubudehe_level_at_or_below"`

	// FlagNoParents counts absence of parents as a factor.
	FlagNoParents bool `json:"flag_no_parents"`

	// FlagFamilyInstability counts household instability as a factor.
	FlagFamilyInstability bool `json:"flag_family_instability"`
}

// DistanceRules configures the distance-to-school evaluator.
// Bands are lower bounds in kilometers.
type DistanceRules struct {
	Enabled bool `json:"enabled"`

	MediumKm   float64 `json:"medium_km"`
	HighKm     float64 `json:"high_km"`
	CriticalKm float64 `json:"critical_km"`
}

// CombinedRules configures the combined risk escalator.
type CombinedRules struct {
	Enabled bool `json:"enabled"`

	// MediumCountThreshold emits a COMBINED/HIGH candidate when at least
	// this many MEDIUM candidates co-occur in one detection pass.
	MediumCountThreshold int `json:"medium_count_threshold"`

	// AttendanceAndPerformance emits a COMBINED/HIGH candidate when both
	// an attendance and a performance candidate are present.
	AttendanceAndPerformance bool `json:"attendance_and_performance"`
}

// RiskRuleSettings is the per-school rule configuration.
type RiskRuleSettings struct {
	SchoolID string

	Attendance    AttendanceRules
	Performance   PerformanceRules
	SocioEconomic SocioEconomicRules
	Distance      DistanceRules
	Combined      CombinedRules

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DefaultSettings returns the documented defaults a school starts with on
// first access.
func DefaultSettings(schoolID string, now time.Time) *RiskRuleSettings {
	return &RiskRuleSettings{
		SchoolID: schoolID,
		Attendance: AttendanceRules{
			Enabled:                true,
			WeeklyMediumAbsences:   2,
			WeeklyHighAbsences:     3,
			WeeklyCriticalAbsences: 4,
			MediumAbsences:         3,
			MediumWindowDays:       7,
			HighAbsences:           5,
			HighWindowDays:         7,
			CriticalAbsences:       7,
			CriticalWindowDays:     14,
			UseLegacyRolling:       false,
		},
		Performance: PerformanceRules{
			Enabled:           true,
			CriticalMaxPct:    29.9,
			HighMaxPct:        39.9,
			MediumMaxPct:      49.9,
			MediumScoreDrop:   15,
			HighScoreDrop:     25,
			CriticalScoreDrop: 35,
		},
		SocioEconomic: SocioEconomicRules{
			Enabled:               true,
			UbudeheLevelAtOrBelow: 1,
			FlagNoParents:         true,
			FlagFamilyInstability: true,
		},
		Distance: DistanceRules{
			Enabled:    true,
			MediumKm:   3,
			HighKm:     5,
			CriticalKm: 7,
		},
		Combined: CombinedRules{
			Enabled:                  true,
			MediumCountThreshold:     2,
			AttendanceAndPerformance: true,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Normalize fills zero-valued thresholds with defaults so a partially
// populated settings row can never disable detection by accident.
func (s *RiskRuleSettings) Normalize(now time.Time) {
	def := DefaultSettings(s.SchoolID, now)

	if s.Attendance.WeeklyMediumAbsences <= 0 {
		s.Attendance.WeeklyMediumAbsences = def.Attendance.WeeklyMediumAbsences
	}
	if s.Attendance.WeeklyHighAbsences <= 0 {
		s.Attendance.WeeklyHighAbsences = def.Attendance.WeeklyHighAbsences
	}
	if s.Attendance.WeeklyCriticalAbsences <= 0 {
		s.Attendance.WeeklyCriticalAbsences = def.Attendance.WeeklyCriticalAbsences
	}
	if s.Attendance.MediumWindowDays <= 0 {
		s.Attendance.MediumAbsences = def.Attendance.MediumAbsences
		s.Attendance.MediumWindowDays = def.Attendance.MediumWindowDays
	}
	if s.Attendance.HighWindowDays <= 0 {
		s.Attendance.HighAbsences = def.Attendance.HighAbsences
		s.Attendance.HighWindowDays = def.Attendance.HighWindowDays
	}
	if s.Attendance.CriticalWindowDays <= 0 {
		s.Attendance.CriticalAbsences = def.Attendance.CriticalAbsences
		s.Attendance.CriticalWindowDays = def.Attendance.CriticalWindowDays
	}
	if s.Performance.CriticalMaxPct <= 0 {
		s.Performance.CriticalMaxPct = def.Performance.CriticalMaxPct
	}
	if s.Performance.HighMaxPct <= 0 {
		s.Performance.HighMaxPct = def.Performance.HighMaxPct
	}
	if s.Performance.MediumMaxPct <= 0 {
		s.Performance.MediumMaxPct = def.Performance.MediumMaxPct
	}
	if s.Distance.MediumKm <= 0 {
		s.Distance.MediumKm = def.Distance.MediumKm
	}
	if s.Distance.HighKm <= 0 {
		s.Distance.HighKm = def.Distance.HighKm
	}
	if s.Distance.CriticalKm <= 0 {
		s.Distance.CriticalKm = def.Distance.CriticalKm
	}
	if s.Combined.MediumCountThreshold <= 0 {
		s.Combined.MediumCountThreshold = def.Combined.MediumCountThreshold
	}
}
