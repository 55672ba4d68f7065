package config

import (
	"hash/fnv"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FeatureFlags manages feature toggles for the detection engine.
// Supports gradual per-school rollout so a new rule family can be
// enabled for a subset of schools before going district-wide.
type FeatureFlags struct {
	mu sync.RWMutex

	features map[string]*Feature

	// Override rules (for piloting/debugging)
	schoolOverrides map[string]map[string]bool // schoolID -> feature -> enabled
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Rollout percentage (0-100)
	// Schools are assigned based on hash of their ID
	RolloutPercent int

	// Time-based activation, e.g. enable a scan only once a term starts
	EnabledFrom  *time.Time
	EnabledUntil *time.Time
}

// FeatureContext provides context for feature flag evaluation.
type FeatureContext struct {
	SchoolID string
}

// Predefined feature flag names.
const (
	// === Detection rule families ===
	FeatureDetectAttendance    = "detect.attendance"    // Weekly attendance evaluator
	FeatureDetectPerformance   = "detect.performance"   // Term performance evaluator
	FeatureDetectSocioEconomic = "detect.socioeconomic" // Household vulnerability evaluator
	FeatureDetectDistance      = "detect.distance"      // Distance-to-school evaluator
	FeatureDetectEscalation    = "detect.escalation"    // Combined attendance+performance escalator

	// === Notification surfaces ===
	FeatureNotifyAdminInApp   = "notify.admin_inapp"   // In-app rows for school staff
	FeatureNotifyGuardianSMS  = "notify.guardian_sms"  // SMS to guardians on HIGH/CRITICAL
	FeatureNotifyOnDowngrade  = "notify.on_downgrade"  // Alert when a risk level improves
	FeatureNotifyOnResolution = "notify.on_resolution" // Alert when a flag is resolved

	// === Scheduled sweeps ===
	FeatureSweepFullDetection   = "sweep.full_detection"
	FeatureSweepAttendanceScan  = "sweep.attendance_scan"
	FeatureSweepPerformanceScan = "sweep.performance_scan"
	FeatureSweepSocioEconomic   = "sweep.socioeconomic_scan"
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features:        make(map[string]*Feature),
		schoolOverrides: make(map[string]map[string]bool),
	}

	ff.initializeDefaults()
	ff.loadFromEnvironment()

	return ff
}

// initializeDefaults sets up all features with default values.
func (ff *FeatureFlags) initializeDefaults() {
	// Rule families - the core engine, enabled everywhere by default
	ff.features[FeatureDetectAttendance] = &Feature{
		Name:           FeatureDetectAttendance,
		Description:    "Weekly attendance-rate evaluator",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureDetectPerformance] = &Feature{
		Name:           FeatureDetectPerformance,
		Description:    "Term performance evaluator",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureDetectSocioEconomic] = &Feature{
		Name:           FeatureDetectSocioEconomic,
		Description:    "Household vulnerability evaluator",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureDetectDistance] = &Feature{
		Name:           FeatureDetectDistance,
		Description:    "Distance-to-school evaluator",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureDetectEscalation] = &Feature{
		Name:           FeatureDetectEscalation,
		Description:    "Escalate combined attendance and performance risk",
		Enabled:        true,
		RolloutPercent: 100,
	}

	// Notification surfaces - SMS costs money, rolled out gradually
	ff.features[FeatureNotifyAdminInApp] = &Feature{
		Name:           FeatureNotifyAdminInApp,
		Description:    "Persist in-app notifications for school staff",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureNotifyGuardianSMS] = &Feature{
		Name:           FeatureNotifyGuardianSMS,
		Description:    "SMS guardians when a student reaches HIGH or CRITICAL",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureNotifyOnDowngrade] = &Feature{
		Name:           FeatureNotifyOnDowngrade,
		Description:    "Notify when a student's risk level improves",
		Enabled:        false, // Downgrades stay quiet by default
		RolloutPercent: 0,
	}

	ff.features[FeatureNotifyOnResolution] = &Feature{
		Name:           FeatureNotifyOnResolution,
		Description:    "Notify when a flag is manually resolved",
		Enabled:        false,
		RolloutPercent: 0,
	}

	// Scheduled sweeps
	ff.features[FeatureSweepFullDetection] = &Feature{
		Name:           FeatureSweepFullDetection,
		Description:    "Nightly full detection pass",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureSweepAttendanceScan] = &Feature{
		Name:           FeatureSweepAttendanceScan,
		Description:    "Periodic weekly-attendance scan",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureSweepPerformanceScan] = &Feature{
		Name:           FeatureSweepPerformanceScan,
		Description:    "Periodic term-performance scan",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureSweepSocioEconomic] = &Feature{
		Name:           FeatureSweepSocioEconomic,
		Description:    "Weekly socio-economic scan",
		Enabled:        true,
		RolloutPercent: 100,
	}
}

// loadFromEnvironment loads feature flag overrides from env vars.
// Format: FEATURE_<NAME>=true|false|<percent>
// Example: FEATURE_DETECT_DISTANCE=false
// Example: FEATURE_NOTIFY_GUARDIAN_SMS=25 (25% of schools)
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		envKey := featureNameToEnvKey(name)
		if val := os.Getenv(envKey); val != "" {
			// Try parsing as boolean
			if b, err := strconv.ParseBool(val); err == nil {
				feature.Enabled = b
				if b {
					feature.RolloutPercent = 100
				} else {
					feature.RolloutPercent = 0
				}
				continue
			}

			// Try parsing as percentage
			if p, err := strconv.Atoi(val); err == nil && p >= 0 && p <= 100 {
				feature.Enabled = p > 0
				feature.RolloutPercent = p
			}
		}
	}
}

// featureNameToEnvKey converts feature name to environment variable key.
// "detect.socioeconomic" -> "FEATURE_DETECT_SOCIOECONOMIC"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled checks if a feature is enabled for the given context.
func (ff *FeatureFlags) IsEnabled(featureName string, ctx *FeatureContext) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	// Check school overrides first
	if ctx != nil && ctx.SchoolID != "" {
		if overrides, ok := ff.schoolOverrides[ctx.SchoolID]; ok {
			if enabled, ok := overrides[featureName]; ok {
				return enabled
			}
		}
	}

	feature, ok := ff.features[featureName]
	if !ok {
		return false
	}

	if !feature.Enabled {
		return false
	}

	// Check time-based activation
	now := time.Now()
	if feature.EnabledFrom != nil && now.Before(*feature.EnabledFrom) {
		return false
	}
	if feature.EnabledUntil != nil && now.After(*feature.EnabledUntil) {
		return false
	}

	// Check rollout percentage
	if feature.RolloutPercent < 100 && ctx != nil && ctx.SchoolID != "" {
		return ff.isInRollout(ctx.SchoolID, featureName, feature.RolloutPercent)
	}

	return feature.RolloutPercent > 0
}

// isInRollout determines if a school is in the rollout percentage.
// Uses consistent hashing so schools stay in their bucket.
func (ff *FeatureFlags) isInRollout(schoolID, featureName string, percent int) bool {
	h := fnv.New32a()
	h.Write([]byte(featureName))
	h.Write([]byte(schoolID))
	hash := h.Sum32()

	// Map to 0-99 range
	bucket := int(hash % 100)

	return bucket < percent
}

// SetSchoolOverride sets a feature override for a specific school.
// Useful for pilots and debugging.
func (ff *FeatureFlags) SetSchoolOverride(schoolID, featureName string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if _, ok := ff.schoolOverrides[schoolID]; !ok {
		ff.schoolOverrides[schoolID] = make(map[string]bool)
	}
	ff.schoolOverrides[schoolID][featureName] = enabled
}

// ClearSchoolOverrides removes all overrides for a school.
func (ff *FeatureFlags) ClearSchoolOverrides(schoolID string) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	delete(ff.schoolOverrides, schoolID)
}

// SetRolloutPercent updates the rollout percentage for a feature.
// Thread-safe for live updates.
func (ff *FeatureFlags) SetRolloutPercent(featureName string, percent int) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}

	if percent < 0 || percent > 100 {
		return ErrInvalidRolloutPercent
	}

	feature.RolloutPercent = percent
	feature.Enabled = percent > 0

	return nil
}

// EnableFeature enables a feature at 100% rollout.
func (ff *FeatureFlags) EnableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 100)
}

// DisableFeature disables a feature completely.
func (ff *FeatureFlags) DisableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 0)
}

// GetAllFeatures returns a copy of all feature configurations.
func (ff *FeatureFlags) GetAllFeatures() map[string]*Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	result := make(map[string]*Feature, len(ff.features))
	for k, v := range ff.features {
		featureCopy := *v
		result[k] = &featureCopy
	}
	return result
}

// EnabledSchools filters schoolIDs down to those the feature is enabled
// for, honoring overrides and rollout buckets.
func (ff *FeatureFlags) EnabledSchools(featureName string, schoolIDs []string) []string {
	result := make([]string, 0, len(schoolIDs))
	for _, id := range schoolIDs {
		if ff.IsEnabled(featureName, &FeatureContext{SchoolID: id}) {
			result = append(result, id)
		}
	}
	return result
}

// --- Errors ---

var (
	ErrFeatureNotFound       = &FeatureFlagError{Message: "feature not found"}
	ErrInvalidRolloutPercent = &FeatureFlagError{Message: "rollout percent must be 0-100"}
)

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
