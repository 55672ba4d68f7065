package risk

import (
	"fmt"
	"time"

	"github.com/eduguard/eduguard-backend/internal/domain/academics"
	"github.com/eduguard/eduguard-backend/internal/domain/student"
	"github.com/eduguard/eduguard-backend/pkg/schoolcal"
)

// ══════════════════════════════════════════════════════════════════════════════
// RULE EVALUATORS
//
// Each evaluator is a pure function: current data + rules in, at most one
// candidate out. Missing input data is insufficient evidence, not risk -
// every evaluator returns nil rather than assuming the worst case.
// ══════════════════════════════════════════════════════════════════════════════

// EvaluateWeeklyAttendance classifies the current school week's absences.
// The caller supplies the student's attendance records for the Monday-Friday
// window; records outside the window are ignored defensively.
func EvaluateWeeklyAttendance(records []*academics.AttendanceRecord, rules AttendanceRules, week schoolcal.SchoolWeek) *CandidateRisk {
	if !rules.Enabled || len(records) == 0 {
		return nil
	}

	observed := 0
	absences := 0
	absentDates := make([]string, 0, week.SchoolDays())
	for _, rec := range records {
		if !week.Contains(rec.Date) {
			continue
		}
		observed++
		if rec.Status.CountsAsAbsence() {
			absences++
			absentDates = append(absentDates, schoolcal.FormatDate(rec.Date))
		}
	}
	if observed == 0 {
		return nil
	}

	var severity Severity
	switch {
	case absences >= rules.WeeklyCriticalAbsences:
		severity = SeverityCritical
	case absences >= rules.WeeklyHighAbsences:
		severity = SeverityHigh
	case absences >= rules.WeeklyMediumAbsences:
		severity = SeverityMedium
	default:
		return nil
	}

	return &CandidateRisk{
		Type:     RiskTypeAttendance,
		Severity: severity,
		Title:    "High Weekly Absence",
		Description: fmt.Sprintf("%d of %d school days absent in the week of %s",
			absences, observed, schoolcal.FormatDate(week.Monday)),
		Evidence: Evidence{
			Attendance: &AttendanceEvidence{
				AbsenceCount: absences,
				ObservedDays: observed,
				AbsenceRate:  float64(absences) / float64(observed),
				WindowStart:  week.Monday,
				WindowEnd:    week.Friday,
				AbsentDates:  absentDates,
			},
		},
	}
}

// EvaluateRollingAttendance is the legacy rolling-window classifier. It
// checks the critical, high and medium windows in that order against the
// trailing records, using the settings thresholds (defaults 7/14d, 5/7d,
// 3/7d). Only consulted when AttendanceRules.UseLegacyRolling is set.
func EvaluateRollingAttendance(records []*academics.AttendanceRecord, rules AttendanceRules, now time.Time) *CandidateRisk {
	if !rules.Enabled || len(records) == 0 {
		return nil
	}

	type band struct {
		severity  Severity
		absences  int
		windowDay int
	}
	bands := []band{
		{SeverityCritical, rules.CriticalAbsences, rules.CriticalWindowDays},
		{SeverityHigh, rules.HighAbsences, rules.HighWindowDays},
		{SeverityMedium, rules.MediumAbsences, rules.MediumWindowDays},
	}

	for _, b := range bands {
		if b.absences <= 0 || b.windowDay <= 0 {
			continue
		}
		from := schoolcal.StartOfDay(now.AddDate(0, 0, -b.windowDay))
		observed := 0
		absences := 0
		absentDates := make([]string, 0, b.absences)
		for _, rec := range records {
			if rec.Date.Before(from) || rec.Date.After(now) {
				continue
			}
			observed++
			if rec.Status.CountsAsAbsence() {
				absences++
				absentDates = append(absentDates, schoolcal.FormatDate(rec.Date))
			}
		}
		if observed == 0 || absences < b.absences {
			continue
		}

		return &CandidateRisk{
			Type:     RiskTypeAttendance,
			Severity: b.severity,
			Title:    "Repeated Absence",
			Description: fmt.Sprintf("%d absences in the last %d days",
				absences, b.windowDay),
			Evidence: Evidence{
				Attendance: &AttendanceEvidence{
					AbsenceCount: absences,
					ObservedDays: observed,
					AbsenceRate:  float64(absences) / float64(observed),
					WindowStart:  from,
					WindowEnd:    schoolcal.EndOfDay(now),
					AbsentDates:  absentDates,
				},
			},
		}
	}
	return nil
}

// EvaluateTermPerformance classifies the most recent Overall assessment of
// the current term. A nil record means no assessment exists for the term yet,
// which is not a risk signal.
func EvaluateTermPerformance(rec *academics.PerformanceRecord, rules PerformanceRules) *CandidateRisk {
	if !rules.Enabled || rec == nil {
		return nil
	}

	pct := rec.Percentage()
	var severity Severity
	switch {
	case pct <= rules.CriticalMaxPct:
		severity = SeverityCritical
	case pct <= rules.HighMaxPct:
		severity = SeverityHigh
	case pct <= rules.MediumMaxPct:
		severity = SeverityMedium
	default:
		return nil
	}

	return &CandidateRisk{
		Type:     RiskTypePerformance,
		Severity: severity,
		Title:    "Low Term Performance",
		Description: fmt.Sprintf("Overall score %.1f%% (grade %s) in %s %s",
			pct, rec.Grade, rec.Term, rec.AcademicYear),
		Evidence: Evidence{
			Performance: &PerformanceEvidence{
				AcademicYear: rec.AcademicYear,
				Term:         int(rec.Term),
				Subject:      rec.Subject,
				Score:        rec.Score,
				MaxScore:     rec.MaxScore,
				Percentage:   pct,
				Grade:        string(rec.Grade),
			},
		},
	}
}

// EvaluateSocioEconomic collects household risk factors from the student's
// profile. Two or more matched factors grade HIGH, exactly one grades MEDIUM.
func EvaluateSocioEconomic(st *student.Student, rules SocioEconomicRules) *CandidateRisk {
	if !rules.Enabled || st == nil {
		return nil
	}

	p := st.Profile
	factors := make([]string, 0, 3)
	if p.UbudeheLevel.IsAssessed() && p.UbudeheLevel <= rules.UbudeheLevelAtOrBelow {
		factors = append(factors, fmt.Sprintf("ubudehe level %d", p.UbudeheLevel))
	}
	if rules.FlagNoParents && !p.HasParents {
		factors = append(factors, "no parents present")
	}
	if rules.FlagFamilyInstability && !p.FamilyStable {
		factors = append(factors, "family instability")
	}
	if len(factors) == 0 {
		return nil
	}

	severity := SeverityMedium
	title := "Socioeconomic Risk Factor"
	if len(factors) >= 2 {
		severity = SeverityHigh
		title = "Multiple Socioeconomic Risk Factors"
	}

	return &CandidateRisk{
		Type:        RiskTypeSocioEconomic,
		Severity:    severity,
		Title:       title,
		Description: fmt.Sprintf("%d household risk factor(s) identified", len(factors)),
		Evidence: Evidence{
			SocioEconomic: &SocioEconomicEvidence{
				Factors:      factors,
				UbudeheLevel: int(p.UbudeheLevel),
				HasParents:   p.HasParents,
				FamilyStable: p.FamilyStable,
			},
		},
	}
}

// EvaluateDistance classifies the home-to-school distance against the
// kilometer bands. A missing distance measurement is insufficient evidence.
func EvaluateDistance(st *student.Student, rules DistanceRules) *CandidateRisk {
	if !rules.Enabled || st == nil || st.Profile.DistanceToSchoolKm == nil {
		return nil
	}

	km := *st.Profile.DistanceToSchoolKm
	var severity Severity
	var band float64
	switch {
	case km >= rules.CriticalKm:
		severity, band = SeverityCritical, rules.CriticalKm
	case km >= rules.HighKm:
		severity, band = SeverityHigh, rules.HighKm
	case km >= rules.MediumKm:
		severity, band = SeverityMedium, rules.MediumKm
	default:
		return nil
	}

	return &CandidateRisk{
		Type:        RiskTypeDistance,
		Severity:    severity,
		Title:       "Long Distance to School",
		Description: fmt.Sprintf("Home is %.1f km from school", km),
		Evidence: Evidence{
			Distance: &DistanceEvidence{
				DistanceKm: km,
				BandKm:     band,
			},
		},
	}
}
