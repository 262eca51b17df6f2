package notify

import (
	"fmt"
	"strings"
	"time"

	"barbershop/internal/models"
)

const (
	defaultIcon  = "/icon-192x192.png"
	defaultBadge = "/badge-72x72.png"
)

// Notification is the payload handed to the delivery transport.
type Notification struct {
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	Icon      string         `json:"icon"`
	Badge     string         `json:"badge"`
	Tag       string         `json:"tag"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp int64          `json:"timestamp"`
}

// NewReservationNotification builds the broadcast payload for a freshly
// created reservation. Pure transformation, no side effects.
func NewReservationNotification(r *models.Reservation) Notification {
	services := strings.Join(r.ServiceNames(), ", ")
	if services == "" {
		services = "Services"
	}

	return Notification{
		Title: "New Reservation",
		Body: fmt.Sprintf("%s booked %s with %s on %s at %s",
			r.ClientName, services, r.BarberName, r.Date.Format(models.DateFormat), r.StartTime),
		Icon:  defaultIcon,
		Badge: defaultBadge,
		Tag:   "new-reservation",
		Data: map[string]any{
			"type":           "new_reservation",
			"reservation_id": r.ID,
			"client_name":    r.ClientName,
			"barber_name":    r.BarberName,
			"date":           r.Date.Format(models.DateFormat),
			"start_time":     r.StartTime,
			"services":       services,
		},
		Timestamp: time.Now().UnixMilli(),
	}
}

// StatusChangeNotification builds the broadcast payload for a status
// transition. Pure transformation, no side effects.
func StatusChangeNotification(r *models.Reservation, oldStatus string) Notification {
	return Notification{
		Title: fmt.Sprintf("Reservation %s", capitalize(r.Status)),
		Body: fmt.Sprintf("%s's reservation with %s has been %s",
			r.ClientName, r.BarberName, r.Status),
		Icon:  defaultIcon,
		Badge: defaultBadge,
		Tag:   "reservation-status",
		Data: map[string]any{
			"type":           "status_change",
			"reservation_id": r.ID,
			"client_name":    r.ClientName,
			"barber_name":    r.BarberName,
			"old_status":     oldStatus,
			"new_status":     r.Status,
			"date":           r.Date.Format(models.DateFormat),
			"start_time":     r.StartTime,
		},
		Timestamp: time.Now().UnixMilli(),
	}
}

// TestNotification builds an ad-hoc payload for verifying the push
// pipeline end to end.
func TestNotification(title, body string) Notification {
	return Notification{
		Title:     title,
		Body:      body,
		Icon:      defaultIcon,
		Badge:     defaultBadge,
		Tag:       "test",
		Timestamp: time.Now().UnixMilli(),
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
