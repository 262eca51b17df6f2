package models

import "time"

// Service is a catalog entry (e.g. "Haircut", "Beard Trim").
type Service struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Duration  int       `json:"duration"` // minutes
	Price     float64   `json:"price"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot copies the fields a reservation freezes at booking time.
func (s *Service) Snapshot() ServiceSnapshot {
	return ServiceSnapshot{
		ServiceID: s.ID,
		Name:      s.Name,
		Duration:  s.Duration,
		Price:     s.Price,
	}
}
