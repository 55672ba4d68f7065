package risk

import "fmt"

// Escalate inspects one detection pass's candidate list and emits at most one
// COMBINED/HIGH candidate when correlated risks co-occur. The first matching
// rule wins:
//
//  1. at least MediumCountThreshold MEDIUM-severity candidates, or
//  2. an ATTENDANCE and a PERFORMANCE candidate are both present and the
//     attendance-and-performance escalation is enabled.
//
// Only the full detection path invokes the escalator; the narrow weekly/term
// paths never do.
func Escalate(candidates []CandidateRisk, rules CombinedRules) *CandidateRisk {
	if !rules.Enabled || len(candidates) == 0 {
		return nil
	}

	mediumCount := 0
	hasAttendance := false
	hasPerformance := false
	types := make([]string, 0, len(candidates))
	for _, c := range candidates {
		types = append(types, string(c.Type))
		if c.Severity == SeverityMedium {
			mediumCount++
		}
		switch c.Type {
		case RiskTypeAttendance:
			hasAttendance = true
		case RiskTypePerformance:
			hasPerformance = true
		}
	}

	if rules.MediumCountThreshold > 0 && mediumCount >= rules.MediumCountThreshold {
		return &CandidateRisk{
			Type:     RiskTypeCombined,
			Severity: SeverityHigh,
			Title:    "Multiple Concurrent Risks",
			Description: fmt.Sprintf("%d medium-severity risks detected in one evaluation",
				mediumCount),
			Evidence: Evidence{
				Combined: &CombinedEvidence{
					Rule:              "medium_count",
					ContributingTypes: types,
					MediumCount:       mediumCount,
				},
			},
		}
	}

	if rules.AttendanceAndPerformance && hasAttendance && hasPerformance {
		return &CandidateRisk{
			Type:        RiskTypeCombined,
			Severity:    SeverityHigh,
			Title:       "Attendance and Performance Risk",
			Description: "Attendance and performance risks detected together",
			Evidence: Evidence{
				Combined: &CombinedEvidence{
					Rule:              "attendance_and_performance",
					ContributingTypes: types,
				},
			},
		}
	}

	return nil
}
