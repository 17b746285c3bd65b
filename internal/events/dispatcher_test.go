package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherRunsAllHandlersAndJoinsErrors(t *testing.T) {
	d := NewInMemoryDispatcher()
	var calls []string
	boom := errors.New("boom")
	d.Subscribe(EventReservationCreated, func(context.Context, Event) error {
		calls = append(calls, "first")
		return boom
	})
	d.Subscribe(EventReservationCreated, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(EventReservationCancelled, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventReservationCreated})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestSubscribeAll(t *testing.T) {
	d := NewInMemoryDispatcher()
	seen := map[EventType]int{}
	SubscribeAll(d, func(_ context.Context, e Event) error {
		seen[e.Type]++
		return nil
	})
	for _, et := range AllEventTypes {
		require.NoError(t, d.Publish(context.Background(), Event{Type: et}))
	}
	assert.Len(t, seen, len(AllEventTypes))
}

func TestRoutingKey(t *testing.T) {
	assert.Equal(t, "reservation.created", RoutingKey(EventReservationCreated))
	assert.Equal(t, "reservation.status_overridden", RoutingKey(EventReservationStatusOverride))
	assert.Equal(t, "reservation.resource_changed", RoutingKey(EventResourceChanged))
}

func TestNilPublisherIsNoop(t *testing.T) {
	var p *AMQPPublisher
	assert.NoError(t, p.Handle(context.Background(), Event{Type: EventReservationCreated}))
	p.Close()
}
