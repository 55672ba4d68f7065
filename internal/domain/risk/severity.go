// Package risk contains the dropout-risk model: risk flags, candidate risks
// with typed evidence, per-school rule settings, and the pure rule evaluators.
// The reconciliation and aggregation workflows live in application/command;
// this package holds the entities and the classification logic itself.
package risk

import (
	"github.com/eduguard/eduguard-backend/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// SEVERITY
// ══════════════════════════════════════════════════════════════════════════════

// Severity is the ordinal risk intensity of a flag or candidate.
// Ordering: LOW < MEDIUM < HIGH < CRITICAL.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// IsValid checks that the severity is one of the known values.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	default:
		return false
	}
}

// Rank returns the ordinal position (LOW=0 .. CRITICAL=3).
func (s Severity) Rank() int {
	switch s {
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	default:
		return 0
	}
}

// WorseThan reports whether s is strictly more severe than other.
func (s Severity) WorseThan(other Severity) bool {
	return s.Rank() > other.Rank()
}

// AtLeastHigh reports whether the severity is HIGH or CRITICAL - the band
// that triggers guardian alerting.
func (s Severity) AtLeastHigh() bool {
	return s.Rank() >= SeverityHigh.Rank()
}

// RiskLevel maps a severity onto the student's overall risk level scale.
// The two scales share names on purpose: the aggregator sets the student's
// level to the worst severity among their open flags.
func (s Severity) RiskLevel() student.RiskLevel {
	switch s {
	case SeverityMedium:
		return student.RiskLevelMedium
	case SeverityHigh:
		return student.RiskLevelHigh
	case SeverityCritical:
		return student.RiskLevelCritical
	default:
		return student.RiskLevelLow
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// RISK TYPE
// ══════════════════════════════════════════════════════════════════════════════

// RiskType is the category of dropout risk a flag asserts.
type RiskType string

const (
	RiskTypeAttendance    RiskType = "ATTENDANCE"
	RiskTypePerformance   RiskType = "PERFORMANCE"
	RiskTypeSocioEconomic RiskType = "SOCIOECONOMIC"
	RiskTypeDistance      RiskType = "DISTANCE"
	RiskTypeCombined      RiskType = "COMBINED"
)

// IsValid checks that the type is one of the known values.
func (t RiskType) IsValid() bool {
	switch t {
	case RiskTypeAttendance, RiskTypePerformance, RiskTypeSocioEconomic,
		RiskTypeDistance, RiskTypeCombined:
		return true
	default:
		return false
	}
}

// AllRiskTypes lists every risk type, in a stable order.
func AllRiskTypes() []RiskType {
	return []RiskType{
		RiskTypeAttendance,
		RiskTypePerformance,
		RiskTypeSocioEconomic,
		RiskTypeDistance,
		RiskTypeCombined,
	}
}
