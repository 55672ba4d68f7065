package risk

import (
	"time"

	"github.com/eduguard/eduguard-backend/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// EVIDENCE
// One variant per risk type. A flag's evidence snapshot is replaced wholesale
// whenever a fresher candidate updates the flag.
// ══════════════════════════════════════════════════════════════════════════════

// AttendanceEvidence snapshots the school-week absence data that produced an
// attendance candidate.
type AttendanceEvidence struct {
	AbsenceCount int       `json:"absence_count"`
	ObservedDays int       `json:"observed_days"`
	AbsenceRate  float64   `json:"absence_rate"`
	WindowStart  time.Time `json:"window_start"`
	WindowEnd    time.Time `json:"window_end"`
	AbsentDates  []string  `json:"absent_dates"`
}

// PerformanceEvidence snapshots the term assessment behind a performance
// candidate.
type PerformanceEvidence struct {
	AcademicYear string  `json:"academic_year"`
	Term         int     `json:"term"`
	Subject      string  `json:"subject"`
	Score        float64 `json:"score"`
	MaxScore     float64 `json:"max_score"`
	Percentage   float64 `json:"percentage"`
	Grade        string  `json:"grade"`
}

// SocioEconomicEvidence lists the household factors that matched the rules.
type SocioEconomicEvidence struct {
	Factors      []string `json:"factors"`
	UbudeheLevel int      `json:"ubudehe_level"`
	HasParents   bool     `json:"has_parents"`
	FamilyStable bool     `json:"family_stable"`
}

// DistanceEvidence records the home-to-school distance and matched band.
type DistanceEvidence struct {
	DistanceKm float64 `json:"distance_km"`
	BandKm     float64 `json:"band_km"` // lower bound of the matched band
}

// CombinedEvidence records which escalation rule fired and what fed it.
type CombinedEvidence struct {
	Rule              string   `json:"rule"` // "medium_count" or "attendance_and_performance"
	ContributingTypes []string `json:"contributing_types"`
	MediumCount       int      `json:"medium_count,omitempty"`
}

// Evidence is the tagged union of per-type evidence snapshots. Exactly one
// variant is set, and it must match the owning candidate/flag's risk type.
type Evidence struct {
	Attendance    *AttendanceEvidence    `json:"attendance,omitempty"`
	Performance   *PerformanceEvidence   `json:"performance,omitempty"`
	SocioEconomic *SocioEconomicEvidence `json:"socio_economic,omitempty"`
	Distance      *DistanceEvidence      `json:"distance,omitempty"`
	Combined      *CombinedEvidence      `json:"combined,omitempty"`
}

// MatchesType reports whether the populated variant agrees with the risk type.
func (e Evidence) MatchesType(t RiskType) bool {
	switch t {
	case RiskTypeAttendance:
		return e.Attendance != nil
	case RiskTypePerformance:
		return e.Performance != nil
	case RiskTypeSocioEconomic:
		return e.SocioEconomic != nil
	case RiskTypeDistance:
		return e.Distance != nil
	case RiskTypeCombined:
		return e.Combined != nil
	default:
		return false
	}
}

// IsEmpty reports whether no variant is populated.
func (e Evidence) IsEmpty() bool {
	return e.Attendance == nil && e.Performance == nil &&
		e.SocioEconomic == nil && e.Distance == nil && e.Combined == nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CANDIDATE RISK
// ══════════════════════════════════════════════════════════════════════════════

// CandidateRisk is an evaluator's transient output: an assessment that a
// student currently exhibits a category of risk, before the reconciler
// decides whether to create or update a flag.
type CandidateRisk struct {
	Type        RiskType
	Severity    Severity
	Title       string
	Description string
	Evidence    Evidence
}

// Validate checks internal consistency of the candidate.
func (c CandidateRisk) Validate() error {
	if !c.Type.IsValid() {
		return shared.ErrInvalidRiskType
	}
	if !c.Severity.IsValid() {
		return shared.ErrInvalidSeverity
	}
	if c.Title == "" {
		return shared.NewDomainError("risk", "ValidateCandidate", shared.ErrEmptyValue, "candidate title is required")
	}
	if !c.Evidence.MatchesType(c.Type) {
		return shared.ErrEvidenceMismatch
	}
	return nil
}

// SelectWorstPerType groups candidates by type and keeps the most severe
// candidate of each type, breaking ties in favor of the first seen.
// The returned slice preserves first-seen type order.
func SelectWorstPerType(candidates []CandidateRisk) []CandidateRisk {
	order := make([]RiskType, 0, len(candidates))
	best := make(map[RiskType]CandidateRisk, len(candidates))

	for _, c := range candidates {
		cur, ok := best[c.Type]
		if !ok {
			best[c.Type] = c
			order = append(order, c.Type)
			continue
		}
		if c.Severity.WorseThan(cur.Severity) {
			best[c.Type] = c
		}
	}

	out := make([]CandidateRisk, 0, len(order))
	for _, t := range order {
		out = append(out, best[t])
	}
	return out
}
