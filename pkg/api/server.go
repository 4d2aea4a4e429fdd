package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/hyperdxio/switchboard/pkg/agent"
	"github.com/hyperdxio/switchboard/pkg/bootstrap"
	"github.com/hyperdxio/switchboard/pkg/events"
	"github.com/hyperdxio/switchboard/pkg/log"
	"github.com/hyperdxio/switchboard/pkg/metrics"
	"github.com/hyperdxio/switchboard/pkg/registry"
	"github.com/hyperdxio/switchboard/pkg/storage"
)

// Server is the control-plane REST API. Team-scoped routes are gated
// on the X-Team-ID header; operator routes (teams, shards, agents,
// events) are open to the platform.
type Server struct {
	store    storage.Store
	registry *registry.Registry
	teams    *bootstrap.Orchestrator
	agents   *agent.Registry
	broker   *events.Broker
	logger   zerolog.Logger

	httpServer *http.Server
}

// NewServer creates the API server
func NewServer(store storage.Store, reg *registry.Registry, teams *bootstrap.Orchestrator, agents *agent.Registry, broker *events.Broker) *Server {
	return &Server{
		store:    store,
		registry: reg,
		teams:    teams,
		agents:   agents,
		broker:   broker,
		logger:   log.WithComponent("api"),
	}
}

// Router builds the HTTP route table
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(s.instrument)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", teamHeader},
		MaxAge:         300,
	}))

	r.Get("/healthz", metrics.HealthHandler())
	r.Get("/readyz", metrics.ReadyHandler())
	r.Handle("/metrics", metrics.Handler())

	r.Post("/teams", s.handleCreateTeam)
	r.Get("/teams", s.handleListTeams)
	r.Get("/teams/{id}", s.handleGetTeam)
	r.Get("/shards", s.handleListShards)
	r.Get("/agents", s.handleListAgents)
	r.Get("/events", s.handleEvents)

	r.Group(func(r chi.Router) {
		r.Use(s.requireTeam)
		r.Get("/team", s.handleCurrentTeam)
		r.Get("/ingestion-tokens", s.handleListTokens)
		r.Post("/ingestion-tokens", s.handleCreateToken)
		r.Post("/ingestion-tokens/{id}/rotate", s.handleRotateToken)
		r.Delete("/ingestion-tokens/{id}", s.handleRevokeToken)
		r.Patch("/ingestion-tokens/{id}/shard", s.handleAssignShard)
		r.Get("/sources", s.handleListSources)
		r.Delete("/sources/{id}", s.handleDeleteSource)
	})

	return r
}

// Start runs the API server until Shutdown is called
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info().Str("addr", addr).Msg("api server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the API server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
