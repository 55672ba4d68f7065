package messaging

import (
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduguard/eduguard-backend/internal/domain/shared"
)

func newSyncBus() *InMemoryEventBus {
	return NewInMemoryEventBus(InMemoryEventBusConfig{
		AsyncMode: false,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestEventBus_DeliversToTypedSubscribers(t *testing.T) {
	bus := newSyncBus()

	var got []shared.EventType
	require.NoError(t, bus.Subscribe(shared.EventStudentRegistered, func(e shared.Event) error {
		got = append(got, e.EventType())
		return nil
	}))
	require.NoError(t, bus.Subscribe(shared.EventRiskLevelChanged, func(e shared.Event) error {
		got = append(got, e.EventType())
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewStudentRegisteredEvent("st-1", "sch-1", "Aline Uwase")))

	require.Len(t, got, 1)
	assert.Equal(t, shared.EventStudentRegistered, got[0])
}

func TestEventBus_DeliversToAllSubscribers(t *testing.T) {
	bus := newSyncBus()

	var count int
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		count++
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewStudentRegisteredEvent("st-1", "sch-1", "Aline Uwase")))
	require.NoError(t, bus.Publish(shared.NewRiskLevelChangedEvent("st-1", "sch-1", "LOW", "HIGH")))

	assert.Equal(t, 2, count)
}

func TestEventBus_HandlerErrorDoesNotSurface(t *testing.T) {
	bus := newSyncBus()
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		return errors.New("listener broken")
	}))

	assert.NoError(t, bus.Publish(shared.NewStudentRegisteredEvent("st-1", "sch-1", "Aline Uwase")))
}

func TestEventBus_HandlerPanicIsIsolated(t *testing.T) {
	bus := newSyncBus()
	var afterPanic bool
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		panic("listener exploded")
	}))
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		afterPanic = true
		return nil
	}))

	assert.NoError(t, bus.Publish(shared.NewStudentRegisteredEvent("st-1", "sch-1", "Aline Uwase")))
	assert.True(t, afterPanic)
}

func TestEventBus_AsyncDeliveryCompletesBeforeClose(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{
		AsyncMode:      true,
		WorkerPoolSize: 2,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	var count atomic.Int64
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		count.Add(1)
		return nil
	}))

	for i := 0; i < 10; i++ {
		require.NoError(t, bus.Publish(shared.NewStudentRegisteredEvent("st-1", "sch-1", "Aline Uwase")))
	}
	require.NoError(t, bus.Close())

	assert.Equal(t, int64(10), count.Load())
}

func TestEventBus_ClosedBusRejectsUse(t *testing.T) {
	bus := newSyncBus()
	require.NoError(t, bus.Close())

	assert.ErrorIs(t, bus.Publish(shared.NewStudentRegisteredEvent("st-1", "sch-1", "Aline Uwase")), ErrEventBusClosed)
	assert.ErrorIs(t, bus.Subscribe(shared.EventStudentRegistered, func(shared.Event) error { return nil }), ErrEventBusClosed)
	assert.ErrorIs(t, bus.SubscribeAll(func(shared.Event) error { return nil }), ErrEventBusClosed)

	// Closing twice is a no-op.
	assert.NoError(t, bus.Close())
}

func TestEventBus_RejectsNilInputs(t *testing.T) {
	bus := newSyncBus()

	assert.Error(t, bus.Subscribe(shared.EventStudentRegistered, nil))
	assert.Error(t, bus.SubscribeAll(nil))
	assert.Error(t, bus.Publish(nil))
}
