package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDown = errors.New("gateway down")

func failing(context.Context) error    { return errDown }
func succeeding(context.Context) error { return nil }

func trip(t *testing.T, cb *CircuitBreaker, failures int) {
	t.Helper()
	for i := 0; i < failures; i++ {
		_ = cb.Execute(context.Background(), failing)
	}
	require.Equal(t, StateOpen, cb.State())
}

func TestExecute_ClosedPassesThrough(t *testing.T) {
	cb := New("sms")

	require.NoError(t, cb.Execute(context.Background(), succeeding))
	assert.ErrorIs(t, cb.Execute(context.Background(), failing), errDown)

	counts := cb.Counts()
	assert.Equal(t, 2, counts.Requests)
	assert.Equal(t, 1, counts.TotalSuccesses)
	assert.Equal(t, 1, counts.TotalFailures)
	assert.Equal(t, StateClosed, cb.State())
}

func TestExecute_OpensAfterConsecutiveFailures(t *testing.T) {
	cb := New("sms", WithFailureThreshold(3), WithTimeout(time.Hour))

	trip(t, cb, 3)

	err := cb.Execute(context.Background(), succeeding)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	// The blocked call never ran, so counts are unchanged.
	assert.Equal(t, 3, cb.Counts().Requests)
}

func TestExecute_SuccessResetsFailureStreak(t *testing.T) {
	cb := New("sms", WithFailureThreshold(3), WithTimeout(time.Hour))

	_ = cb.Execute(context.Background(), failing)
	_ = cb.Execute(context.Background(), failing)
	require.NoError(t, cb.Execute(context.Background(), succeeding))
	_ = cb.Execute(context.Background(), failing)
	_ = cb.Execute(context.Background(), failing)

	assert.Equal(t, StateClosed, cb.State())
}

func TestExecute_HalfOpenClosesAfterSuccesses(t *testing.T) {
	cb := New("sms",
		WithFailureThreshold(1),
		WithSuccessThreshold(2),
		WithTimeout(time.Millisecond),
	)

	trip(t, cb, 1)
	time.Sleep(5 * time.Millisecond)

	require.NoError(t, cb.Execute(context.Background(), succeeding))
	assert.Equal(t, StateHalfOpen, cb.State())

	require.NoError(t, cb.Execute(context.Background(), succeeding))
	assert.Equal(t, StateClosed, cb.State())
}

func TestExecute_HalfOpenFailureReopens(t *testing.T) {
	cb := New("sms", WithFailureThreshold(1), WithTimeout(time.Millisecond))

	trip(t, cb, 1)
	time.Sleep(5 * time.Millisecond)

	assert.ErrorIs(t, cb.Execute(context.Background(), failing), errDown)
	assert.Equal(t, StateOpen, cb.State())
}

func TestExecute_CustomIsFailure(t *testing.T) {
	benign := errors.New("already delivered")
	cb := New("sms",
		WithFailureThreshold(1),
		WithTimeout(time.Hour),
		WithIsFailure(func(err error) bool { return !errors.Is(err, benign) }),
	)

	assert.ErrorIs(t, cb.Execute(context.Background(), func(context.Context) error { return benign }), benign)
	assert.Equal(t, StateClosed, cb.State())

	_ = cb.Execute(context.Background(), failing)
	assert.Equal(t, StateOpen, cb.State())
}

func TestOnStateChange(t *testing.T) {
	type transition struct{ from, to State }
	var transitions []transition

	cb := New("sms",
		WithFailureThreshold(1),
		WithSuccessThreshold(1),
		WithTimeout(time.Millisecond),
		WithOnStateChange(func(name string, from, to State) {
			assert.Equal(t, "sms", name)
			transitions = append(transitions, transition{from, to})
		}),
	)

	trip(t, cb, 1)
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, cb.Execute(context.Background(), succeeding))

	require.Len(t, transitions, 3)
	assert.Equal(t, transition{StateClosed, StateOpen}, transitions[0])
	assert.Equal(t, transition{StateOpen, StateHalfOpen}, transitions[1])
	assert.Equal(t, transition{StateHalfOpen, StateClosed}, transitions[2])
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(99).String())
}
