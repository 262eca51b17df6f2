package domain

import (
	"context"

	"barbershop/internal/models"
)

type ReservationStore interface {
	// CreateReservation persists the reservation after checking it against
	// existing active reservations for the same barber and date. The check
	// and the insert run in one storage transaction.
	CreateReservation(ctx context.Context, r *models.Reservation) error
	GetReservation(ctx context.Context, id string) (*models.Reservation, error)
	// UpdateReservation replaces all mutable fields. When the reservation is
	// active it re-checks the slot against other active reservations.
	UpdateReservation(ctx context.Context, r *models.Reservation) error
	DeleteReservation(ctx context.Context, id string) error
	ListReservations(ctx context.Context, f models.ReservationFilter) ([]*models.Reservation, error)
}

type ServiceCatalog interface {
	// ResolveServices returns one service per id, in input order.
	// Any unknown id fails the whole resolution.
	ResolveServices(ctx context.Context, ids []string) ([]*models.Service, error)
	ListServices(ctx context.Context, activeOnly bool) ([]*models.Service, error)
}

type SubscriptionStore interface {
	// UpsertSubscription inserts or refreshes the (user, endpoint) record and
	// reactivates it. Idempotent under repeated identical calls.
	UpsertSubscription(ctx context.Context, s *models.PushSubscription) error
	// DeactivateSubscription is a no-op when no matching record exists.
	DeactivateSubscription(ctx context.Context, userID, endpoint string) error
	DeactivateSubscriptionByID(ctx context.Context, id string) error
	ListUserSubscriptions(ctx context.Context, userID string) ([]*models.PushSubscription, error)
	// ListActiveSubscriptions returns every active record. Scoping the
	// subscribe surface to administrators is the caller's concern.
	ListActiveSubscriptions(ctx context.Context) ([]*models.PushSubscription, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// Deliverer is the push transport. A permanent failure (endpoint gone) is
// signalled by an error matching notify.ErrEndpointGone; anything else is
// treated as transient.
type Deliverer interface {
	Deliver(ctx context.Context, sub *models.PushSubscription, payload []byte) error
}
