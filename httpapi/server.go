// Package httpapi exposes an Engine's health, stats and Prometheus
// metrics over HTTP, grounded on the chi-router-plus-zap-logger handler
// shape used throughout the rest of the corpus (e.g. compliance.APIHandler)
// rather than the bare net/http mux the core engine otherwise has no need
// for.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/streamforge/dataloader/dataloader"
)

// Server wraps an Engine with introspection endpoints:
//
//	GET /healthz  -- 200 while the engine is Running or Stopping, 503 once Stopped
//	GET /stats    -- JSON dataloader.Stats snapshot
//	GET /metrics  -- Prometheus exposition format
type Server struct {
	engine   *dataloader.Engine
	logger   *zap.Logger
	router   chi.Router
	registry *prometheus.Registry
}

// NewServer builds a Server for engine. logger defaults to zap.NewNop() if
// nil.
func NewServer(engine *dataloader.Engine, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		engine:   engine,
		logger:   logger,
		registry: prometheus.NewRegistry(),
	}
	s.registry.MustRegister(newStatsCollector(engine))

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealthz)
	r.Get("/stats", s.handleStats)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	s.router = r

	return s
}

// Handler returns the server's http.Handler, ready to pass to http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	state := s.engine.State()
	if state == dataloader.StateStopped {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_, _ = w.Write([]byte(state.String()))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.engine.Stats()); err != nil {
		s.logger.Error("encode stats response", zap.Error(err))
	}
}
