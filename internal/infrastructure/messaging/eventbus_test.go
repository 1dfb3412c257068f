package messaging

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/shared"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/pkg/logger"
)

type countingObserver struct {
	mu        sync.Mutex
	published map[string]int
	failed    map[string]int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{published: map[string]int{}, failed: map[string]int{}}
}

func (o *countingObserver) EventPublished(t string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.published[t]++
}

func (o *countingObserver) HandlerFailed(t string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed[t]++
}

func newSyncBus(obs Observer) *InMemoryEventBus {
	return NewInMemoryEventBus(InMemoryEventBusConfig{Logger: logger.Discard(), Observer: obs})
}

func TestPublish_SyncRunsHandlersBeforeReturn(t *testing.T) {
	bus := newSyncBus(nil)

	var got []shared.EventType
	require.NoError(t, bus.Subscribe(shared.EventAttendanceRecorded, func(_ context.Context, e shared.Event) error {
		got = append(got, e.EventType())
		return nil
	}))
	require.NoError(t, bus.SubscribeAll(func(_ context.Context, e shared.Event) error {
		got = append(got, "all:"+e.EventType())
		return nil
	}))

	err := bus.Publish(context.Background(), shared.NewCollaboratorChangedEvent(shared.EventAttendanceRecorded, "s-1", "att-1"))
	require.NoError(t, err)

	assert.Equal(t, []shared.EventType{shared.EventAttendanceRecorded, "all:" + shared.EventAttendanceRecorded}, got)
}

func TestPublish_ReturnsHandlerErrors(t *testing.T) {
	obs := newCountingObserver()
	bus := newSyncBus(obs)
	boom := errors.New("recompute failed")

	require.NoError(t, bus.Subscribe(shared.EventQuizSubmitted, func(context.Context, shared.Event) error { return boom }))
	require.NoError(t, bus.Subscribe(shared.EventQuizSubmitted, func(context.Context, shared.Event) error { panic("bad handler") }))

	err := bus.Publish(context.Background(), shared.NewCollaboratorChangedEvent(shared.EventQuizSubmitted, "s-1", "q-1"))

	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, ErrHandlerPanic)
	assert.Equal(t, 1, obs.published[string(shared.EventQuizSubmitted)])
	assert.Equal(t, 2, obs.failed[string(shared.EventQuizSubmitted)])
}

func TestPublish_NestedPublishDoesNotDeadlock(t *testing.T) {
	bus := newSyncBus(nil)

	var recalculated bool
	require.NoError(t, bus.Subscribe(shared.EventPlanSaved, func(ctx context.Context, e shared.Event) error {
		return bus.Publish(ctx, shared.NewRankingRecalculatedEvent("snap", 1, 0, e.EventType(), time.Millisecond))
	}))
	require.NoError(t, bus.Subscribe(shared.EventRankingRecalculated, func(context.Context, shared.Event) error {
		recalculated = true
		return nil
	}))

	require.NoError(t, bus.Publish(context.Background(), shared.NewCollaboratorChangedEvent(shared.EventPlanSaved, "s-1", "p-1")))
	assert.True(t, recalculated)
}

func TestPublish_Async(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{AsyncMode: true, WorkerPoolSize: 2, Logger: logger.Discard()})

	var calls atomic.Int32
	require.NoError(t, bus.SubscribeAll(func(context.Context, shared.Event) error {
		calls.Add(1)
		return nil
	}))

	for i := 0; i < 5; i++ {
		require.NoError(t, bus.Publish(context.Background(), shared.NewCollaboratorChangedEvent(shared.EventStudentSaved, "s-1", "")))
	}

	assert.Eventually(t, func() bool { return calls.Load() == 5 }, time.Second, 5*time.Millisecond)
	require.NoError(t, bus.Close())
}

func TestClosedBus(t *testing.T) {
	bus := newSyncBus(nil)
	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())

	err := bus.Publish(context.Background(), shared.NewCollaboratorChangedEvent(shared.EventStudentSaved, "s-1", ""))
	assert.ErrorIs(t, err, ErrEventBusClosed)
	assert.ErrorIs(t, bus.Subscribe(shared.EventStudentSaved, func(context.Context, shared.Event) error { return nil }), ErrEventBusClosed)
}
