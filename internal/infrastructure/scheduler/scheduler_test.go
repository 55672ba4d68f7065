package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name   string
	runErr error
	runs   atomic.Int64
}

func (j *countingJob) Name() string        { return j.name }
func (j *countingJob) Description() string { return "counting test job" }

func (j *countingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	return j.runErr
}

func newTestScheduler() *Scheduler {
	return New(Config{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
}

func TestScheduler_RegisterRejectsDuplicates(t *testing.T) {
	s := newTestScheduler()
	job := &countingJob{name: "sweep"}

	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Hour)))

	err := s.Register(&countingJob{name: "sweep"}, NewIntervalSchedule(time.Hour))
	assert.ErrorIs(t, err, ErrJobAlreadyExists)
}

func TestScheduler_RegisterValidatesInputs(t *testing.T) {
	s := newTestScheduler()

	assert.ErrorIs(t, s.Register(nil, NewIntervalSchedule(time.Hour)), ErrNilJob)
	assert.ErrorIs(t, s.Register(&countingJob{name: "sweep"}, nil), ErrNilSchedule)
}

func TestScheduler_Unregister(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.Register(&countingJob{name: "sweep"}, NewIntervalSchedule(time.Hour)))

	require.NoError(t, s.Unregister("sweep"))
	assert.Empty(t, s.ListJobs())

	assert.ErrorIs(t, s.Unregister("sweep"), ErrJobNotFound)
}

func TestScheduler_EnableDisable(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.Register(&countingJob{name: "sweep"}, NewIntervalSchedule(time.Hour)))

	require.NoError(t, s.DisableJob("sweep"))
	jobs := s.ListJobs()
	require.Len(t, jobs, 1)
	assert.False(t, jobs[0].Enabled)

	require.NoError(t, s.EnableJob("sweep"))
	jobs = s.ListJobs()
	assert.True(t, jobs[0].Enabled)

	assert.ErrorIs(t, s.EnableJob("missing"), ErrJobNotFound)
	assert.ErrorIs(t, s.DisableJob("missing"), ErrJobNotFound)
}

func TestScheduler_RunNow(t *testing.T) {
	s := newTestScheduler()
	job := &countingJob{name: "sweep"}
	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Hour)))

	result, err := s.RunNow(context.Background(), "sweep")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "sweep", result.JobName)
	assert.Equal(t, int64(1), job.runs.Load())

	jobs := s.ListJobs()
	require.Len(t, jobs, 1)
	require.NotNil(t, jobs[0].LastResult)
	assert.True(t, jobs[0].LastResult.Success)
}

func TestScheduler_RunNowReportsFailure(t *testing.T) {
	s := newTestScheduler()
	jobErr := errors.New("sweep exploded")
	require.NoError(t, s.Register(&countingJob{name: "sweep", runErr: jobErr}, NewIntervalSchedule(time.Hour)))

	result, err := s.RunNow(context.Background(), "sweep")
	assert.ErrorIs(t, err, jobErr)
	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.ErrorIs(t, result.Error, jobErr)
}

func TestScheduler_RunNowUnknownJob(t *testing.T) {
	s := newTestScheduler()
	_, err := s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestScheduler_StartStopLifecycle(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.Register(&countingJob{name: "sweep"}, NewIntervalSchedule(time.Hour)))

	assert.False(t, s.IsRunning())
	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerAlreadyRunning)

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
}
