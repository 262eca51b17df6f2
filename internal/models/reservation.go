package models

import "time"

// ServiceSnapshot is the frozen-at-booking copy of a catalog service.
// Later catalog edits never change already persisted reservations.
type ServiceSnapshot struct {
	ServiceID string  `json:"service_id"`
	Name      string  `json:"name"`
	Duration  int     `json:"duration"`
	Price     float64 `json:"price"`
}

type Reservation struct {
	ID            string            `json:"id"`
	ClientID      string            `json:"client_id"`
	ClientName    string            `json:"client_name"`
	ClientPhone   string            `json:"client_phone,omitempty"`
	BarberName    string            `json:"barber_name"`
	Date          time.Time         `json:"date"`
	StartTime     string            `json:"start_time"` // "HH:MM"
	EndTime       string            `json:"end_time"`   // "HH:MM", always start + total duration
	Services      []ServiceSnapshot `json:"services"`
	Status        string            `json:"status"` // pending, confirmed, cancelled, completed
	Notes         string            `json:"notes,omitempty"`
	TotalDuration int               `json:"total_duration"`
	TotalPrice    float64           `json:"total_price"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// IsActive reports whether the reservation counts toward slot conflicts.
func (r *Reservation) IsActive() bool {
	return r.Status == StatusPending || r.Status == StatusConfirmed
}

// ServiceNames returns snapshot names in booking order.
func (r *Reservation) ServiceNames() []string {
	names := make([]string, 0, len(r.Services))
	for _, s := range r.Services {
		names = append(names, s.Name)
	}
	return names
}

// ReservationFilter narrows ListReservations. Zero values mean "any".
type ReservationFilter struct {
	ClientID   string
	BarberName string
	Status     string
	Date       time.Time
	DateFrom   time.Time
	DateTo     time.Time
}
