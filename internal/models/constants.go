package models

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

// ValidStatus reports membership in the reservation status set.
// No transition graph is enforced beyond membership.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	default:
		return false
	}
}

const (
	// DateFormat is the calendar-day key used across storage and the API.
	DateFormat = "2006-01-02"

	// MinutesPerDay bounds a reservation: crossing midnight is rejected.
	MinutesPerDay = 24 * 60
)

const (
	// DefaultDispatchQueueSize is the buffered event queue of the notification dispatcher.
	DefaultDispatchQueueSize = 128

	// DefaultDeliveryTimeoutSeconds bounds a single push delivery attempt.
	DefaultDeliveryTimeoutSeconds = 10

	// DefaultCatalogCacheTTL is the redis TTL for cached catalog entries, in seconds.
	DefaultCatalogCacheTTL = 30 * 60

	// RateLimitRPS and RateLimitBurst are the API rate limiter defaults.
	RateLimitRPS   = 10
	RateLimitBurst = 20
)
