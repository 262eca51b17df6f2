package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"barbershop/internal/models"
	"barbershop/internal/notify"
	"barbershop/internal/service"

	"github.com/google/uuid"
)

func (s *HTTPServer) handleServices(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		activeOnly := r.URL.Query().Get("all") == ""
		services, err := s.db.ListServices(r.Context(), activeOnly)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"services": services})

	case http.MethodPost:
		if _, ok := requireAdmin(w, r); !ok {
			return
		}
		var body struct {
			Name     string  `json:"name"`
			Duration int     `json:"duration"`
			Price    float64 `json:"price"`
		}
		if decodeJSON(w, r, &body) {
			return
		}
		if body.Name == "" || body.Duration <= 0 || body.Price < 0 {
			writeError(w, http.StatusBadRequest, "name, positive duration and non-negative price are required")
			return
		}
		svc := &models.Service{
			ID:       uuid.NewString(),
			Name:     body.Name,
			Duration: body.Duration,
			Price:    body.Price,
			IsActive: true,
		}
		if err := s.db.CreateService(r.Context(), svc); err != nil {
			writeDomainError(w, err)
			return
		}
		if s.catalogCache != nil {
			s.catalogCache.Invalidate(r.Context(), svc.ID)
		}
		writeJSON(w, http.StatusCreated, svc)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleServiceByID(w http.ResponseWriter, r *http.Request) {
	const prefix = "/api/v1/services/"
	id := strings.TrimPrefix(r.URL.Path, prefix)
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	if err := s.db.DeactivateService(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	if s.catalogCache != nil {
		s.catalogCache.Invalidate(r.Context(), id)
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "service deactivated"})
}

func (s *HTTPServer) handleReservations(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing identity")
		return
	}

	switch r.Method {
	case http.MethodGet:
		filter, err := filterFromQuery(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		// Clients see only their own reservations; admins see everything
		// matching the filter.
		clientID := identity.UserID
		if identity.IsAdmin() {
			clientID = ""
		}
		reservations, err := s.reservations.GetReservations(r.Context(), clientID, filter)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"reservations": reservations})

	case http.MethodPost:
		var body struct {
			service.CreateReservationRequest
			Date string `json:"date"`
		}
		if decodeJSON(w, r, &body) {
			return
		}
		date, err := time.Parse(models.DateFormat, body.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
			return
		}
		req := body.CreateReservationRequest
		req.Date = date

		reservation, err := s.reservations.CreateReservation(r.Context(), req, identity.UserID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, reservation)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleReservationByID(w http.ResponseWriter, r *http.Request) {
	const prefix = "/api/v1/reservations/"
	id := strings.TrimPrefix(r.URL.Path, prefix)
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing identity")
			return
		}
		reservation, err := s.reservations.GetReservation(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if !identity.IsAdmin() && reservation.ClientID != identity.UserID {
			writeError(w, http.StatusForbidden, "not your reservation")
			return
		}
		writeJSON(w, http.StatusOK, reservation)

	case http.MethodPatch, http.MethodPut:
		if _, ok := requireAdmin(w, r); !ok {
			return
		}
		var body struct {
			service.ReservationPatch
			Date string `json:"date"`
		}
		if decodeJSON(w, r, &body) {
			return
		}
		patch := body.ReservationPatch
		if body.Date != "" {
			date, err := time.Parse(models.DateFormat, body.Date)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
				return
			}
			patch.Date = &date
		}

		reservation, err := s.reservations.UpdateReservation(r.Context(), id, patch)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, reservation)

	case http.MethodDelete:
		if _, ok := requireAdmin(w, r); !ok {
			return
		}
		if err := s.reservations.DeleteReservation(r.Context(), id); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"message": "reservation deleted"})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	start, err := time.Parse(models.DateFormat, r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "from is required as YYYY-MM-DD")
		return
	}
	end, err := time.Parse(models.DateFormat, r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "to is required as YYYY-MM-DD")
		return
	}

	path, err := s.reservations.ExportReservations(r.Context(), start, end, s.cfg.Exports.Path)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"file": path})
}

func (s *HTTPServer) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	identity, ok := requireAdmin(w, r)
	if !ok {
		return
	}

	var body struct {
		Endpoint string `json:"endpoint"`
		Keys     struct {
			P256dh string `json:"p256dh"`
			Auth   string `json:"auth"`
		} `json:"keys"`
		DeviceName string `json:"device_name"`
	}
	if decodeJSON(w, r, &body) {
		return
	}

	sub, err := s.dispatcher.Subscribe(r.Context(), identity.UserID,
		body.Endpoint, body.Keys.P256dh, body.Keys.Auth, body.DeviceName, r.UserAgent())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (s *HTTPServer) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	identity, ok := requireAdmin(w, r)
	if !ok {
		return
	}

	var body struct {
		Endpoint string `json:"endpoint"`
	}
	if decodeJSON(w, r, &body) {
		return
	}

	if err := s.dispatcher.Unsubscribe(r.Context(), identity.UserID, body.Endpoint); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "unsubscribed"})
}

func (s *HTTPServer) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	identity, ok := requireAdmin(w, r)
	if !ok {
		return
	}

	subs, err := s.dispatcher.ListSubscriptions(r.Context(), identity.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"subscriptions": subs})
}

func (s *HTTPServer) handleVAPIDPublicKey(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"public_key": s.cfg.Push.VAPIDPublicKey})
}

// handleTestBroadcast lets an admin verify the push pipeline end to end.
func (s *HTTPServer) handleTestBroadcast(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	var body struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	}
	if decodeJSON(w, r, &body) {
		return
	}
	if body.Title == "" {
		body.Title = "Test Notification"
	}

	receipt, err := s.dispatcher.BroadcastToAdmins(r.Context(), notify.TestNotification(body.Title, body.Body))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func filterFromQuery(r *http.Request) (models.ReservationFilter, error) {
	var f models.ReservationFilter
	q := r.URL.Query()
	f.BarberName = q.Get("barber")
	f.Status = q.Get("status")

	for _, pair := range []struct {
		key  string
		dest *time.Time
	}{
		{"date", &f.Date},
		{"from", &f.DateFrom},
		{"to", &f.DateTo},
	} {
		if raw := q.Get(pair.key); raw != "" {
			t, err := time.Parse(models.DateFormat, raw)
			if err != nil {
				return f, err
			}
			*pair.dest = t
		}
	}
	return f, nil
}

// decodeJSON reports true when decoding failed and the error was written.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return true
	}
	return false
}
