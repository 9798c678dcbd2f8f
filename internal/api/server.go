// Package api exposes the one-off scheduled-event surface: creating,
// inspecting, and cancelling events, plus health and readiness probes.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/edvin/triggerd/internal/api/handler"
	"github.com/edvin/triggerd/internal/store"
)

type Server struct {
	router chi.Router
	logger zerolog.Logger
	pool   *pgxpool.Pool
}

func NewServer(logger zerolog.Logger, pool *pgxpool.Pool, eventStore *store.EventStore) *Server {
	s := &Server{
		router: chi.NewRouter(),
		logger: logger.With().Str("component", "api").Logger(),
		pool:   pool,
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	event := handler.NewEvent(eventStore)
	s.router.Route("/v1", func(r chi.Router) {
		r.Post("/events", event.Create)
		r.Get("/events/{eventID}", event.Get)
		r.Delete("/events/{eventID}", event.Cancel)
		r.Get("/events/{eventID}/invocations", event.ListInvocations)
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := s.pool.Ping(r.Context()); err != nil {
		s.logger.Error().Err(err).Msg("readiness probe failed")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("database unreachable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
