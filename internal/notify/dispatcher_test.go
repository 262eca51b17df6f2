package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"barbershop/internal/database"
	"barbershop/internal/events"
	"barbershop/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSubStore struct {
	mock.Mock
}

func (m *mockSubStore) UpsertSubscription(ctx context.Context, s *models.PushSubscription) error {
	return m.Called(ctx, s).Error(0)
}
func (m *mockSubStore) DeactivateSubscription(ctx context.Context, userID, endpoint string) error {
	return m.Called(ctx, userID, endpoint).Error(0)
}
func (m *mockSubStore) DeactivateSubscriptionByID(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
func (m *mockSubStore) ListUserSubscriptions(ctx context.Context, userID string) ([]*models.PushSubscription, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PushSubscription), args.Error(1)
}
func (m *mockSubStore) ListActiveSubscriptions(ctx context.Context) ([]*models.PushSubscription, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PushSubscription), args.Error(1)
}

type mockDeliverer struct {
	mock.Mock
}

func (m *mockDeliverer) Deliver(ctx context.Context, sub *models.PushSubscription, payload []byte) error {
	return m.Called(ctx, sub, payload).Error(0)
}

func activeSubs(ids ...string) []*models.PushSubscription {
	subs := make([]*models.PushSubscription, 0, len(ids))
	for _, id := range ids {
		subs = append(subs, &models.PushSubscription{
			ID:       id,
			UserID:   "admin-1",
			Endpoint: "https://push.example/" + id,
			P256dh:   "key",
			Auth:     "secret",
			IsActive: true,
		})
	}
	return subs
}

func TestBroadcastToAdmins_AllDelivered(t *testing.T) {
	store := new(mockSubStore)
	deliverer := new(mockDeliverer)
	d := NewDispatcher(store, deliverer, time.Second, 8, nil)

	store.On("ListActiveSubscriptions", mock.Anything).Return(activeSubs("a", "b", "c"), nil)
	deliverer.On("Deliver", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	receipt, err := d.BroadcastToAdmins(context.Background(), TestNotification("Hello", "world"))
	require.NoError(t, err)
	assert.Equal(t, Receipt{Sent: 3, Failed: 0}, receipt)
	deliverer.AssertNumberOfCalls(t, "Deliver", 3)
}

func TestBroadcastToAdmins_PartialFailure(t *testing.T) {
	store := new(mockSubStore)
	deliverer := new(mockDeliverer)
	d := NewDispatcher(store, deliverer, time.Second, 8, nil)

	subs := activeSubs("ok-1", "ok-2", "broken")
	store.On("ListActiveSubscriptions", mock.Anything).Return(subs, nil)
	deliverer.On("Deliver", mock.Anything, subs[0], mock.Anything).Return(nil)
	deliverer.On("Deliver", mock.Anything, subs[1], mock.Anything).Return(nil)
	deliverer.On("Deliver", mock.Anything, subs[2], mock.Anything).Return(fmt.Errorf("push service rejected delivery: status 500"))

	receipt, err := d.BroadcastToAdmins(context.Background(), TestNotification("Hello", "world"))
	require.NoError(t, err)
	assert.Equal(t, Receipt{Sent: 2, Failed: 1}, receipt)
	// Transient failure: the subscription stays active.
	store.AssertNotCalled(t, "DeactivateSubscriptionByID", mock.Anything, mock.Anything)
}

func TestBroadcastToAdmins_PermanentFailureDeactivates(t *testing.T) {
	store := new(mockSubStore)
	deliverer := new(mockDeliverer)
	d := NewDispatcher(store, deliverer, time.Second, 8, nil)

	subs := activeSubs("ok", "gone")
	store.On("ListActiveSubscriptions", mock.Anything).Return(subs, nil)
	deliverer.On("Deliver", mock.Anything, subs[0], mock.Anything).Return(nil)
	deliverer.On("Deliver", mock.Anything, subs[1], mock.Anything).
		Return(fmt.Errorf("%w: status 410", ErrEndpointGone))
	store.On("DeactivateSubscriptionByID", mock.Anything, "gone").Return(nil).Once()

	receipt, err := d.BroadcastToAdmins(context.Background(), TestNotification("Hello", "world"))
	require.NoError(t, err)
	assert.Equal(t, Receipt{Sent: 1, Failed: 1}, receipt)
	store.AssertExpectations(t)
	// One attempt per subscription, no retry.
	deliverer.AssertNumberOfCalls(t, "Deliver", 2)
}

func TestBroadcastToAdmins_NoSubscriptions(t *testing.T) {
	store := new(mockSubStore)
	deliverer := new(mockDeliverer)
	d := NewDispatcher(store, deliverer, time.Second, 8, nil)

	store.On("ListActiveSubscriptions", mock.Anything).Return([]*models.PushSubscription{}, nil)

	receipt, err := d.BroadcastToAdmins(context.Background(), TestNotification("Hello", "world"))
	require.NoError(t, err)
	assert.Equal(t, Receipt{}, receipt)
	deliverer.AssertNotCalled(t, "Deliver", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleEvent_QueueFullDropsEvent(t *testing.T) {
	store := new(mockSubStore)
	deliverer := new(mockDeliverer)
	d := NewDispatcher(store, deliverer, time.Second, 1, nil)

	e := &events.Event{Type: events.EventReservationCreated, Payload: []byte(`{}`)}
	require.NoError(t, d.HandleEvent(e))
	// Queue of one is full now; the second enqueue must not block.
	require.NoError(t, d.HandleEvent(e))
}

func TestRun_DispatchesQueuedEvents(t *testing.T) {
	store := new(mockSubStore)
	deliverer := new(mockDeliverer)
	d := NewDispatcher(store, deliverer, time.Second, 8, nil)

	delivered := make(chan []byte, 1)
	store.On("ListActiveSubscriptions", mock.Anything).Return(activeSubs("a"), nil)
	deliverer.On("Deliver", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			delivered <- args.Get(2).([]byte)
		}).Return(nil)

	payload, err := json.Marshal(events.ReservationEventPayload{
		Reservation: models.Reservation{
			ID:         "res-1",
			ClientName: "Test Client",
			BarberName: "Dany",
			Date:       time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC),
			StartTime:  "10:00",
			Status:     models.StatusPending,
			Services: []models.ServiceSnapshot{
				{ServiceID: "svc-cut", Name: "Haircut", Duration: 45, Price: 25},
			},
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	require.NoError(t, d.HandleEvent(&events.Event{
		Type:    events.EventReservationCreated,
		Payload: payload,
	}))

	select {
	case raw := <-delivered:
		var n Notification
		require.NoError(t, json.Unmarshal(raw, &n))
		assert.Equal(t, "New Reservation", n.Title)
		assert.Contains(t, n.Body, "Test Client")
		assert.Contains(t, n.Body, "Haircut")
		assert.Contains(t, n.Body, "Dany")
	case <-time.After(2 * time.Second):
		t.Fatal("event was not dispatched")
	}
}

func TestSubscribe(t *testing.T) {
	store := new(mockSubStore)
	deliverer := new(mockDeliverer)
	d := NewDispatcher(store, deliverer, time.Second, 8, nil)

	store.On("UpsertSubscription", mock.Anything, mock.MatchedBy(func(s *models.PushSubscription) bool {
		return s.UserID == "admin-1" && s.Endpoint == "https://push.example/ep" && s.IsActive
	})).Return(nil)

	sub, err := d.Subscribe(context.Background(), "admin-1", "https://push.example/ep", "key", "secret", "Pixel", "Mozilla/5.0")
	require.NoError(t, err)
	assert.NotEmpty(t, sub.ID)
	store.AssertExpectations(t)
}

func TestSubscribe_MissingFields(t *testing.T) {
	store := new(mockSubStore)
	deliverer := new(mockDeliverer)
	d := NewDispatcher(store, deliverer, time.Second, 8, nil)

	_, err := d.Subscribe(context.Background(), "admin-1", "", "key", "secret", "", "")
	assert.ErrorIs(t, err, database.ErrInvalidRequest)

	_, err = d.Subscribe(context.Background(), "admin-1", "https://push.example/ep", "", "secret", "", "")
	assert.ErrorIs(t, err, database.ErrInvalidRequest)

	store.AssertNotCalled(t, "UpsertSubscription", mock.Anything, mock.Anything)
}
