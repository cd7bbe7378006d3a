package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/edvin/siteinstaller/internal/api/handler"
	mw "github.com/edvin/siteinstaller/internal/api/middleware"
	"github.com/edvin/siteinstaller/internal/config"
	"github.com/edvin/siteinstaller/internal/history"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the API serves.
type Deps struct {
	Batcher  handler.Batcher
	Sessions handler.SessionFunc
	History  history.Lister
	// Checks are pinged by /readyz, keyed by name.
	Checks map[string]Pinger
}

type Server struct {
	router chi.Router
	logger zerolog.Logger
	cfg    *config.Config
	deps   Deps
}

func NewServer(logger zerolog.Logger, cfg *config.Config, deps Deps) *Server {
	if deps.History == nil {
		deps.History = history.NopRecorder{}
	}

	s := &Server{
		router: chi.NewRouter(),
		logger: logger,
		cfg:    cfg,
		deps:   deps,
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

	// Health check endpoints
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	provision := handler.NewProvision(s.deps.Batcher, s.deps.Sessions, handler.ProvisionConfig{
		StagingDir:     s.cfg.StagingDir,
		MaxUploadBytes: s.cfg.MaxUploadBytes,
		MaxBatches:     int64(s.cfg.MaxConcurrentBatches),
	})
	provisions := handler.NewHistory(s.deps.History)

	// Legacy root endpoints kept for existing upload clients.
	s.router.Get("/", s.handleRoot)
	s.router.Post("/", provision.Create)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/provisions", provision.Create)
		r.Get("/provisions", provisions.List)
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("Hello World!"))
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	for name, p := range s.deps.Checks {
		if err := p.Ping(ctx); err != nil {
			checks[name] = err.Error()
			healthy = false
		} else {
			checks[name] = "ok"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(checks)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
