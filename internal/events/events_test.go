package events

import (
	"encoding/json"
	"testing"

	"barbershop/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_PublishJSON(t *testing.T) {
	bus := NewEventBus()

	var received []*Event
	bus.Subscribe(EventReservationCreated, func(e *Event) error {
		received = append(received, e)
		return nil
	})

	payload := ReservationEventPayload{
		Reservation: models.Reservation{ID: "res-1", Status: models.StatusPending},
	}
	require.NoError(t, bus.PublishJSON(EventReservationCreated, payload))

	require.Len(t, received, 1)
	assert.Equal(t, EventReservationCreated, received[0].Type)
	assert.False(t, received[0].CreatedAt.IsZero())

	var decoded ReservationEventPayload
	require.NoError(t, json.Unmarshal(received[0].Payload, &decoded))
	assert.Equal(t, "res-1", decoded.Reservation.ID)
}

func TestEventBus_TypeIsolation(t *testing.T) {
	bus := NewEventBus()

	var created, changed int
	bus.Subscribe(EventReservationCreated, func(e *Event) error {
		created++
		return nil
	})
	bus.Subscribe(EventReservationStatusChanged, func(e *Event) error {
		changed++
		return nil
	})

	require.NoError(t, bus.PublishJSON(EventReservationCreated, ReservationEventPayload{}))

	assert.Equal(t, 1, created)
	assert.Equal(t, 0, changed)
}

func TestEventBus_NoSubscribers(t *testing.T) {
	bus := NewEventBus()
	assert.NoError(t, bus.PublishJSON(EventReservationStatusChanged, ReservationEventPayload{}))
}

func TestEventBus_MultipleHandlers(t *testing.T) {
	bus := NewEventBus()

	calls := 0
	handler := func(e *Event) error {
		calls++
		return nil
	}
	bus.Subscribe(EventReservationCreated, handler)
	bus.Subscribe(EventReservationCreated, handler)

	require.NoError(t, bus.PublishJSON(EventReservationCreated, ReservationEventPayload{}))
	assert.Equal(t, 2, calls)
}
