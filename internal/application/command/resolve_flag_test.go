package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduguard/eduguard-backend/internal/domain/notification"
	"github.com/eduguard/eduguard-backend/internal/domain/risk"
	"github.com/eduguard/eduguard-backend/internal/domain/shared"
	"github.com/eduguard/eduguard-backend/internal/domain/student"
	"github.com/eduguard/eduguard-backend/pkg/schoolcal"
)

func newResolveHandler(env *reconcilerEnv) *ResolveFlagHandler {
	return NewResolveFlagHandler(env.flagRepo, env.level, env.publisher,
		schoolcal.FixedClock{Instant: testNow}, testLogger())
}

func TestResolveFlag_ClosesFlagAndLowersLevel(t *testing.T) {
	st := enrolledStudent(t, "st-1")
	st.RiskLevel = student.RiskLevelHigh
	env := newReconcilerEnv(t, st)
	openFlag(t, env, "f-1", risk.SeverityHigh)
	handler := newResolveHandler(env)

	res, err := handler.Handle(context.Background(), ResolveFlagCommand{
		FlagID:     "f-1",
		ResolvedBy: "admin-1",
		Notes:      "family counselling in place",
	})
	require.NoError(t, err)

	assert.True(t, res.Flag.IsResolved)
	assert.Equal(t, "admin-1", res.Flag.ResolvedBy)
	assert.Equal(t, "family counselling in place", res.Flag.ResolutionNotes)
	require.NotNil(t, res.Flag.ResolvedAt)
	assert.Equal(t, testNow, *res.Flag.ResolvedAt)

	// It was the last open flag, so the level falls back to LOW with the
	// resolution timestamp stamped on the student.
	require.NotNil(t, res.RiskLevel)
	assert.Equal(t, student.RiskLevelLow, res.RiskLevel.Level)
	assert.True(t, res.RiskLevel.Changed)
	require.NotNil(t, st.LastAllFlagsResolvedAt)

	assert.Contains(t, env.admin.kinds(), notification.TypeRiskReduced)
}

func TestResolveFlag_RemainingFlagsKeepTheLevelUp(t *testing.T) {
	st := enrolledStudent(t, "st-1")
	st.RiskLevel = student.RiskLevelCritical
	env := newReconcilerEnv(t, st)
	openFlag(t, env, "f-1", risk.SeverityCritical)
	other := openFlag(t, env, "f-2", risk.SeverityMedium)
	other.Type = risk.RiskTypeSocioEconomic
	other.Evidence = risk.Evidence{SocioEconomic: &risk.SocioEconomicEvidence{Factors: []string{"f"}}}
	handler := newResolveHandler(env)

	res, err := handler.Handle(context.Background(), ResolveFlagCommand{
		FlagID:     "f-1",
		ResolvedBy: "admin-1",
	})
	require.NoError(t, err)

	assert.Equal(t, student.RiskLevelMedium, res.RiskLevel.Level)
	assert.Equal(t, 1, res.RiskLevel.OpenFlags)
	assert.Nil(t, st.LastAllFlagsResolvedAt)
}

func TestResolveFlag_ResolutionIsTerminal(t *testing.T) {
	st := enrolledStudent(t, "st-1")
	env := newReconcilerEnv(t, st)
	openFlag(t, env, "f-1", risk.SeverityHigh)
	handler := newResolveHandler(env)
	ctx := context.Background()

	_, err := handler.Handle(ctx, ResolveFlagCommand{FlagID: "f-1", ResolvedBy: "admin-1"})
	require.NoError(t, err)

	_, err = handler.Handle(ctx, ResolveFlagCommand{FlagID: "f-1", ResolvedBy: "admin-2"})
	assert.ErrorIs(t, err, shared.ErrFlagAlreadyResolved)

	// The original resolution is untouched.
	flag, err := env.flagRepo.GetByID(ctx, "f-1")
	require.NoError(t, err)
	assert.Equal(t, "admin-1", flag.ResolvedBy)
}

func TestResolveFlag_Validation(t *testing.T) {
	env := newReconcilerEnv(t)
	handler := newResolveHandler(env)
	ctx := context.Background()

	_, err := handler.Handle(ctx, ResolveFlagCommand{ResolvedBy: "admin-1"})
	assert.ErrorIs(t, err, shared.ErrInvalidID)

	_, err = handler.Handle(ctx, ResolveFlagCommand{FlagID: "f-1"})
	assert.ErrorIs(t, err, shared.ErrEmptyValue)

	_, err = handler.Handle(ctx, ResolveFlagCommand{FlagID: "missing", ResolvedBy: "admin-1"})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
