package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"barbershop/internal/config"
	"barbershop/internal/database"
	"barbershop/internal/metrics"
	"barbershop/internal/notify"
	"barbershop/internal/repository"
	"barbershop/internal/service"

	"github.com/rs/zerolog"
)

// HTTPServer exposes the reservation engine and notification dispatcher over
// HTTP. Authentication translates API keys into an already-validated caller
// identity; the services below never re-check credentials.
type HTTPServer struct {
	cfg          *config.Config
	reservations *service.ReservationService
	dispatcher   *notify.Dispatcher
	db           *database.DB
	catalogCache *repository.CachedCatalog
	server       *http.Server
	auth         *HTTPAuth
	log          zerolog.Logger
}

func NewHTTPServer(
	cfg *config.Config,
	reservations *service.ReservationService,
	dispatcher *notify.Dispatcher,
	db *database.DB,
	catalogCache *repository.CachedCatalog,
	logger *zerolog.Logger,
) *HTTPServer {
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "http").Logger()
	}

	srv := &HTTPServer{
		cfg:          cfg,
		reservations: reservations,
		dispatcher:   dispatcher,
		db:           db,
		catalogCache: catalogCache,
		log:          base,
	}
	srv.auth = NewHTTPAuth(cfg.API)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", srv.handleHealth)
	mux.HandleFunc("/api/v1/services", srv.handleServices)
	mux.HandleFunc("/api/v1/services/", srv.handleServiceByID)
	mux.HandleFunc("/api/v1/reservations", srv.handleReservations)
	mux.HandleFunc("/api/v1/reservations/export", srv.handleExport)
	mux.HandleFunc("/api/v1/reservations/", srv.handleReservationByID)
	mux.HandleFunc("/api/v1/notifications/subscribe", srv.handleSubscribe)
	mux.HandleFunc("/api/v1/notifications/unsubscribe", srv.handleUnsubscribe)
	mux.HandleFunc("/api/v1/notifications/subscriptions", srv.handleListSubscriptions)
	mux.HandleFunc("/api/v1/notifications/vapid-public-key", srv.handleVAPIDPublicKey)
	mux.HandleFunc("/api/v1/notifications/test", srv.handleTestBroadcast)

	handler := srv.loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		metrics.IncHTTP(r.URL.Path)
		next.ServeHTTP(w, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote", r.RemoteAddr).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

// writeDomainError maps the error taxonomy onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, database.ErrSlotConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, database.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
