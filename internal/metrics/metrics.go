package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "barbershop",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	reservationsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "barbershop",
			Name:      "reservations_created_total",
			Help:      "Successfully created reservations.",
		},
	)

	slotConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "barbershop",
			Name:      "slot_conflicts_total",
			Help:      "Bookings rejected because the slot was taken.",
		},
	)

	notificationsDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "barbershop",
			Name:      "notifications_delivered_total",
			Help:      "Push delivery attempts by result (sent, failed).",
		},
		[]string{"result"},
	)

	subscriptionsDeactivated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "barbershop",
			Name:      "subscriptions_deactivated_total",
			Help:      "Subscriptions deactivated after permanent delivery failures.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			reservationsCreated,
			slotConflicts,
			notificationsDelivered,
			subscriptionsDeactivated,
		)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncReservationCreated() {
	reservationsCreated.Inc()
}

func IncSlotConflict() {
	slotConflicts.Inc()
}

func IncNotificationSent() {
	notificationsDelivered.WithLabelValues("sent").Inc()
}

func IncNotificationFailed() {
	notificationsDelivered.WithLabelValues("failed").Inc()
}

func IncSubscriptionDeactivated() {
	subscriptionsDeactivated.Inc()
}
