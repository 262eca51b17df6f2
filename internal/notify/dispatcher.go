package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"barbershop/internal/database"
	"barbershop/internal/domain"
	"barbershop/internal/events"
	"barbershop/internal/metrics"
	"barbershop/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrEndpointGone marks a permanent delivery failure: the endpoint no longer
// exists and the subscription must not be retried.
var ErrEndpointGone = errors.New("push endpoint gone")

// Receipt is the aggregate outcome of one broadcast. No per-subscriber
// detail is exposed.
type Receipt struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// Dispatcher fans reservation events out to subscribed admin devices.
// Broadcast failures never propagate to the booking path: events arrive
// through a buffered queue and a dropped or failed broadcast is simply lost.
type Dispatcher struct {
	subs            domain.SubscriptionStore
	deliverer       domain.Deliverer
	deliveryTimeout time.Duration
	queue           chan *events.Event
	log             zerolog.Logger
}

func NewDispatcher(subs domain.SubscriptionStore, deliverer domain.Deliverer, deliveryTimeout time.Duration, queueSize int, logger *zerolog.Logger) *Dispatcher {
	if deliveryTimeout <= 0 {
		deliveryTimeout = models.DefaultDeliveryTimeoutSeconds * time.Second
	}
	if queueSize <= 0 {
		queueSize = models.DefaultDispatchQueueSize
	}
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "dispatcher").Logger()
	}

	return &Dispatcher{
		subs:            subs,
		deliverer:       deliverer,
		deliveryTimeout: deliveryTimeout,
		queue:           make(chan *events.Event, queueSize),
		log:             base,
	}
}

// HandleEvent enqueues a reservation event for background dispatch. It never
// blocks: when the queue is full the event is dropped and logged.
func (d *Dispatcher) HandleEvent(e *events.Event) error {
	select {
	case d.queue <- e:
	default:
		d.log.Warn().Str("event_type", e.Type).Msg("dispatch queue full, event dropped")
	}
	return nil
}

// Run consumes the event queue until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	d.log.Info().Msg("notification dispatcher started")
	for {
		select {
		case <-ctx.Done():
			d.log.Info().Msg("notification dispatcher stopped")
			return
		case e := <-d.queue:
			d.dispatch(ctx, e)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, e *events.Event) {
	var payload events.ReservationEventPayload
	if err := json.Unmarshal(e.Payload, &payload); err != nil {
		d.log.Error().Err(err).Str("event_type", e.Type).Msg("decode event payload")
		return
	}

	var n Notification
	switch e.Type {
	case events.EventReservationCreated:
		n = NewReservationNotification(&payload.Reservation)
	case events.EventReservationStatusChanged:
		n = StatusChangeNotification(&payload.Reservation, payload.OldStatus)
	default:
		d.log.Warn().Str("event_type", e.Type).Msg("unknown event type")
		return
	}

	receipt, err := d.BroadcastToAdmins(ctx, n)
	if err != nil {
		d.log.Error().Err(err).Str("event_type", e.Type).Msg("broadcast failed")
		return
	}
	d.log.Info().
		Str("event_type", e.Type).
		Str("reservation_id", payload.Reservation.ID).
		Int("sent", receipt.Sent).
		Int("failed", receipt.Failed).
		Msg("broadcast complete")
}

// BroadcastToAdmins delivers the notification to every active subscription
// concurrently. Deliveries are independent: one failure never blocks the
// rest. A permanent failure deactivates its subscription so the next
// broadcast skips it; transient failures leave the subscription active.
// Each event is attempted exactly once per subscription, without retry.
func (d *Dispatcher) BroadcastToAdmins(ctx context.Context, n Notification) (Receipt, error) {
	subs, err := d.subs.ListActiveSubscriptions(ctx)
	if err != nil {
		return Receipt{}, fmt.Errorf("load subscriptions: %w", err)
	}
	if len(subs) == 0 {
		d.log.Debug().Msg("no active subscriptions")
		return Receipt{}, nil
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return Receipt{}, fmt.Errorf("encode notification: %w", err)
	}

	var (
		mu      sync.Mutex
		receipt Receipt
		wg      sync.WaitGroup
	)
	for _, sub := range subs {
		wg.Add(1)
		go func(sub *models.PushSubscription) {
			defer wg.Done()
			ok := d.deliverOne(ctx, sub, payload)
			mu.Lock()
			if ok {
				receipt.Sent++
			} else {
				receipt.Failed++
			}
			mu.Unlock()
		}(sub)
	}
	wg.Wait()

	return receipt, nil
}

func (d *Dispatcher) deliverOne(ctx context.Context, sub *models.PushSubscription, payload []byte) bool {
	deliveryCtx, cancel := context.WithTimeout(ctx, d.deliveryTimeout)
	defer cancel()

	err := d.deliverer.Deliver(deliveryCtx, sub, payload)
	if err == nil {
		metrics.IncNotificationSent()
		return true
	}

	metrics.IncNotificationFailed()
	if errors.Is(err, ErrEndpointGone) {
		if derr := d.subs.DeactivateSubscriptionByID(ctx, sub.ID); derr != nil {
			d.log.Error().Err(derr).Str("subscription_id", sub.ID).Msg("deactivate subscription")
		} else {
			metrics.IncSubscriptionDeactivated()
			d.log.Info().Str("subscription_id", sub.ID).Msg("subscription deactivated after permanent failure")
		}
	} else {
		d.log.Warn().Err(err).Str("subscription_id", sub.ID).Msg("transient delivery failure")
	}
	return false
}

// Subscribe registers or refreshes a push subscription for the user.
// Repeating the call with the same (user, endpoint) updates the key material
// instead of duplicating the record.
func (d *Dispatcher) Subscribe(ctx context.Context, userID, endpoint, p256dh, auth, deviceName, userAgent string) (*models.PushSubscription, error) {
	if userID == "" || endpoint == "" || p256dh == "" || auth == "" {
		return nil, fmt.Errorf("%w: user id, endpoint and keys are required", database.ErrInvalidRequest)
	}

	sub := &models.PushSubscription{
		ID:         uuid.NewString(),
		UserID:     userID,
		Endpoint:   endpoint,
		P256dh:     p256dh,
		Auth:       auth,
		IsActive:   true,
		DeviceName: deviceName,
		UserAgent:  userAgent,
	}
	if err := d.subs.UpsertSubscription(ctx, sub); err != nil {
		return nil, err
	}

	d.log.Info().Str("user_id", userID).Str("subscription_id", sub.ID).Msg("subscription registered")
	return sub, nil
}

// Unsubscribe deactivates the matching subscription. Idempotent.
func (d *Dispatcher) Unsubscribe(ctx context.Context, userID, endpoint string) error {
	return d.subs.DeactivateSubscription(ctx, userID, endpoint)
}

// ListSubscriptions returns the user's active subscriptions.
func (d *Dispatcher) ListSubscriptions(ctx context.Context, userID string) ([]*models.PushSubscription, error) {
	return d.subs.ListUserSubscriptions(ctx, userID)
}
