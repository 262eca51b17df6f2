package service

import (
	"context"
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

// ReservationService validates and persists reservations against the known
// barber set and the service catalog, and emits events for every mutation
// that interests the notification dispatcher.
type ReservationService struct {
	store    domain.ReservationStore
	catalog  domain.ServiceCatalog
	eventBus domain.EventPublisher
	barbers  map[string]struct{}
	now      func() time.Time
	log      zerolog.Logger

	// slots serializes CreateReservation/UpdateReservation per (barber, date)
	// so the storage-level conflict guarantee holds for any store
	// implementation, not only the sqlite one.
	slots sync.Map // map[string]*sync.Mutex
}

func NewReservationService(store domain.ReservationStore, catalog domain.ServiceCatalog, eventBus domain.EventPublisher, barbers []string, logger *zerolog.Logger) *ReservationService {
	set := make(map[string]struct{}, len(barbers))
	for _, b := range barbers {
		set[b] = struct{}{}
	}
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "reservations").Logger()
	}
	return &ReservationService{
		store:    store,
		catalog:  catalog,
		eventBus: eventBus,
		barbers:  set,
		now:      time.Now,
		log:      base,
	}
}

type CreateReservationRequest struct {
	ClientName  string    `json:"client_name"`
	ClientPhone string    `json:"client_phone,omitempty"`
	ServiceID   string    `json:"service_id,omitempty"`
	ServiceIDs  []string  `json:"service_ids,omitempty"`
	BarberName  string    `json:"barber_name"`
	Date        time.Time `json:"date"`
	StartTime   string    `json:"start_time"`
	Notes       string    `json:"notes,omitempty"`
}

// CreateReservation validates the request, snapshots the referenced catalog
// services, computes the derived duration/price/end time, and persists the
// reservation unless it overlaps an active one for the same barber and date.
// On success a reservation_created event is emitted; event delivery failures
// are logged and never affect the returned reservation.
func (s *ReservationService) CreateReservation(ctx context.Context, req CreateReservationRequest, clientID string) (*models.Reservation, error) {
	if _, ok := s.barbers[req.BarberName]; !ok {
		return nil, fmt.Errorf("%w: %q", database.ErrUnknownBarber, req.BarberName)
	}

	today := startOfDay(s.now())
	if req.Date.Before(today) {
		return nil, database.ErrPastDate
	}

	ids := req.ServiceIDs
	if len(ids) == 0 && req.ServiceID != "" {
		ids = []string{req.ServiceID}
	}
	if len(ids) == 0 {
		return nil, database.ErrNoServices
	}

	services, err := s.catalog.ResolveServices(ctx, ids)
	if err != nil {
		return nil, err
	}

	snapshots := make([]models.ServiceSnapshot, 0, len(services))
	totalDuration := 0
	totalPrice := 0.0
	for _, svc := range services {
		snapshots = append(snapshots, svc.Snapshot())
		totalDuration += svc.Duration
		totalPrice += svc.Price
	}

	startMin, err := models.ParseClock(req.StartTime)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", database.ErrInvalidRequest, err)
	}
	endMin := startMin + totalDuration
	if endMin <= startMin {
		return nil, database.ErrBadTimeRange
	}
	if endMin > models.MinutesPerDay {
		return nil, fmt.Errorf("%w: reservation would cross midnight", database.ErrInvalidRequest)
	}

	reservation := &models.Reservation{
		ID:            uuid.NewString(),
		ClientID:      clientID,
		ClientName:    req.ClientName,
		ClientPhone:   req.ClientPhone,
		BarberName:    req.BarberName,
		Date:          req.Date,
		StartTime:     models.FormatClock(startMin),
		EndTime:       models.FormatClock(endMin),
		Services:      snapshots,
		Status:        models.StatusPending,
		Notes:         req.Notes,
		TotalDuration: totalDuration,
		TotalPrice:    totalPrice,
	}

	unlock := s.lockSlot(req.BarberName, req.Date)
	err = s.store.CreateReservation(ctx, reservation)
	unlock()
	if err != nil {
		if errors.Is(err, database.ErrSlotConflict) {
			metrics.IncSlotConflict()
		}
		return nil, err
	}

	metrics.IncReservationCreated()
	s.publishEvent(events.EventReservationCreated, *reservation, "")

	return reservation, nil
}

// ReservationPatch is a partial update; nil fields are left untouched.
// Supplying ServiceIDs re-snapshots the services and recomputes the totals.
type ReservationPatch struct {
	ClientName  *string    `json:"client_name,omitempty"`
	ClientPhone *string    `json:"client_phone,omitempty"`
	ServiceIDs  []string   `json:"service_ids,omitempty"`
	BarberName  *string    `json:"barber_name,omitempty"`
	Date        *time.Time `json:"date,omitempty"`
	StartTime   *string    `json:"start_time,omitempty"`
	Status      *string    `json:"status,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
}

// UpdateReservation applies the patch and persists the result. A change to
// the barber, date, start time, or services re-runs the slot conflict check
// against the other active reservations. A status transition emits a
// reservation_status_changed event carrying the previous status.
func (s *ReservationService) UpdateReservation(ctx context.Context, id string, patch ReservationPatch) (*models.Reservation, error) {
	reservation, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	oldStatus := reservation.Status

	if patch.ClientName != nil {
		reservation.ClientName = *patch.ClientName
	}
	if patch.ClientPhone != nil {
		reservation.ClientPhone = *patch.ClientPhone
	}
	if patch.Notes != nil {
		reservation.Notes = *patch.Notes
	}
	if patch.BarberName != nil {
		if _, ok := s.barbers[*patch.BarberName]; !ok {
			return nil, fmt.Errorf("%w: %q", database.ErrUnknownBarber, *patch.BarberName)
		}
		reservation.BarberName = *patch.BarberName
	}
	if patch.Date != nil {
		reservation.Date = *patch.Date
	}
	if patch.Status != nil {
		if !models.ValidStatus(*patch.Status) {
			return nil, fmt.Errorf("%w: unknown status %q", database.ErrInvalidRequest, *patch.Status)
		}
		reservation.Status = *patch.Status
	}

	if len(patch.ServiceIDs) > 0 {
		services, err := s.catalog.ResolveServices(ctx, patch.ServiceIDs)
		if err != nil {
			return nil, err
		}
		snapshots := make([]models.ServiceSnapshot, 0, len(services))
		totalDuration := 0
		totalPrice := 0.0
		for _, svc := range services {
			snapshots = append(snapshots, svc.Snapshot())
			totalDuration += svc.Duration
			totalPrice += svc.Price
		}
		reservation.Services = snapshots
		reservation.TotalDuration = totalDuration
		reservation.TotalPrice = totalPrice
	}

	startMin, err := models.ParseClock(valueOr(patch.StartTime, reservation.StartTime))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", database.ErrInvalidRequest, err)
	}
	endMin := startMin + reservation.TotalDuration
	if endMin <= startMin {
		return nil, database.ErrBadTimeRange
	}
	if endMin > models.MinutesPerDay {
		return nil, fmt.Errorf("%w: reservation would cross midnight", database.ErrInvalidRequest)
	}
	reservation.StartTime = models.FormatClock(startMin)
	reservation.EndTime = models.FormatClock(endMin)

	unlock := s.lockSlot(reservation.BarberName, reservation.Date)
	err = s.store.UpdateReservation(ctx, reservation)
	unlock()
	if err != nil {
		if errors.Is(err, database.ErrSlotConflict) {
			metrics.IncSlotConflict()
		}
		return nil, err
	}

	if patch.Status != nil && *patch.Status != oldStatus {
		s.publishEvent(events.EventReservationStatusChanged, *reservation, oldStatus)
	}

	return reservation, nil
}

// GetReservations returns the caller's reservations when clientID is set, or
// every reservation matching the filter otherwise (administrative and
// availability-lookup contexts). Order is storage order; callers must not
// attach meaning to it.
func (s *ReservationService) GetReservations(ctx context.Context, clientID string, f models.ReservationFilter) ([]*models.Reservation, error) {
	if clientID != "" {
		f.ClientID = clientID
	}
	return s.store.ListReservations(ctx, f)
}

func (s *ReservationService) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	return s.store.GetReservation(ctx, id)
}

// DeleteReservation removes the reservation permanently. Distinct from
// cancellation, which is a status update.
func (s *ReservationService) DeleteReservation(ctx context.Context, id string) error {
	return s.store.DeleteReservation(ctx, id)
}

func (s *ReservationService) lockSlot(barber string, date time.Time) func() {
	key := barber + "|" + date.Format(models.DateFormat)
	v, _ := s.slots.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *ReservationService) publishEvent(eventType string, reservation models.Reservation, oldStatus string) {
	if s.eventBus == nil {
		return
	}

	payload := events.ReservationEventPayload{
		Reservation: reservation,
		OldStatus:   oldStatus,
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.log.Error().Err(err).Str("event_type", eventType).Str("reservation_id", reservation.ID).Msg("publish event error")
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func valueOr(p *string, fallback string) string {
	if p != nil {
		return *p
	}
	return fallback
}
