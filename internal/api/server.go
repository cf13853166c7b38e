package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/marit/provisioner/internal/api/handler"
	mw "github.com/marit/provisioner/internal/api/middleware"
	"github.com/marit/provisioner/internal/invite"
	"github.com/marit/provisioner/internal/provision"
)

type Server struct {
	router  chi.Router
	logger  zerolog.Logger
	svc     *provision.Service
	invites *invite.Log
}

func NewServer(logger zerolog.Logger, svc *provision.Service, invites *invite.Log) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		logger:  logger,
		svc:     svc,
		invites: invites,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)
}

func (s *Server) setupRoutes() {
	// Prometheus metrics endpoint
	s.router.Handle("/metrics", promhttp.Handler())

	// Health check endpoint
	s.router.Get("/healthz", s.handleHealthz)

	s.router.Route("/api/v1", func(r chi.Router) {
		site := handler.NewSite(s.svc)
		r.Post("/sites", site.Create)
		r.Get("/sites/{host}/status", site.Status)
		r.Delete("/sites/{name}", site.Delete)

		invitation := handler.NewInvitation(s.invites)
		r.Post("/invitations", invitation.Create)
		r.Get("/invitations", invitation.List)
		r.Delete("/invitations/{id}", invitation.Delete)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
