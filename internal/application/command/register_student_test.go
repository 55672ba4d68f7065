package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduguard/eduguard-backend/internal/domain/risk"
	"github.com/eduguard/eduguard-backend/internal/domain/shared"
	"github.com/eduguard/eduguard-backend/internal/domain/student"
	"github.com/eduguard/eduguard-backend/pkg/schoolcal"
)

func newRegisterHandler(env *detectorEnv) *RegisterStudentHandler {
	return NewRegisterStudentHandler(env.studentRepo, env.detector,
		env.publisher, env.idGen, schoolcal.FixedClock{Instant: testNow}, testLogger())
}

func TestRegisterStudent(t *testing.T) {
	env := newDetectorEnv(t)
	handler := newRegisterHandler(env)

	res, err := handler.Handle(context.Background(), RegisterStudentCommand{
		SchoolID:  "sch-1",
		FirstName: "Aline",
		LastName:  "Uwase",
		ClassName: "P5 A",
		Profile:   student.SocioEconomicProfile{UbudeheLevel: 3, HasParents: true, FamilyStable: true},
		Guardians: []student.Guardian{
			{Name: "Mama Aline", Relationship: "mother", Phone: "+250788123456"},
		},
	})
	require.NoError(t, err)

	st := res.Student
	assert.Equal(t, "Aline Uwase", st.FullName())
	assert.Equal(t, student.StatusActive, st.Status)
	assert.Equal(t, student.RiskLevelLow, st.RiskLevel)
	assert.Len(t, st.Guardians, 1)

	// Stable household: the enrollment pass found nothing.
	require.NotNil(t, res.Detection)
	assert.Equal(t, PathSocioEconomic, res.Detection.Path)
	assert.Empty(t, res.Detection.Candidates)

	stored, err := env.studentRepo.GetByID(context.Background(), st.ID)
	require.NoError(t, err)
	assert.Equal(t, st.ID, stored.ID)
	assert.NotEmpty(t, env.publisher.published())
}

func TestRegisterStudent_VulnerableHouseholdFlaggedAtEnrollment(t *testing.T) {
	env := newDetectorEnv(t)
	handler := newRegisterHandler(env)

	res, err := handler.Handle(context.Background(), RegisterStudentCommand{
		SchoolID:  "sch-1",
		FirstName: "Eric",
		LastName:  "Mugisha",
		Profile:   student.SocioEconomicProfile{UbudeheLevel: 1, HasParents: false, FamilyStable: false},
	})
	require.NoError(t, err)

	require.NotNil(t, res.Detection)
	assert.Equal(t, 1, res.Detection.FlagsCreated)

	flags, err := env.flagRepo.ListOpenByStudent(context.Background(), res.Student.ID)
	require.NoError(t, err)
	require.Len(t, flags, 1)
	assert.Equal(t, risk.RiskTypeSocioEconomic, flags[0].Type)
	assert.Equal(t, risk.SeverityHigh, flags[0].Severity)

	// The aggregator already lifted the brand-new student.
	assert.Equal(t, student.RiskLevelHigh, res.Student.RiskLevel)
}

func TestRegisterStudent_Validation(t *testing.T) {
	env := newDetectorEnv(t)
	handler := newRegisterHandler(env)
	ctx := context.Background()

	_, err := handler.Handle(ctx, RegisterStudentCommand{FirstName: "Aline", LastName: "Uwase"})
	assert.ErrorIs(t, err, shared.ErrInvalidID)

	_, err = handler.Handle(ctx, RegisterStudentCommand{SchoolID: "sch-1", FirstName: "Aline"})
	assert.ErrorIs(t, err, shared.ErrEmptyValue)

	_, err = handler.Handle(ctx, RegisterStudentCommand{
		SchoolID: "sch-1", FirstName: "Aline", LastName: "Uwase",
		Profile: student.SocioEconomicProfile{UbudeheLevel: 9},
	})
	assert.ErrorIs(t, err, shared.ErrValueOutOfRange)
}

func TestKeyedMutex(t *testing.T) {
	km := newKeyedMutex()

	unlock := km.Lock("a")
	done := make(chan struct{})
	go func() {
		u := km.Lock("a")
		u()
		close(done)
	}()

	// An unrelated key is not blocked.
	other := km.Lock("b")
	other()

	time.Sleep(20 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("second lock on the same key acquired while held")
	default:
	}

	unlock()
	<-done
}
