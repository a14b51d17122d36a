package monitoring

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// NewRouter exposes GET /metrics and, when health is set, GET /health
func NewRouter(health *HealthChecker) *mux.Router {
	router := mux.NewRouter()
	router.Handle("/metrics", NewMetricsHandler()).Methods("GET")
	if health != nil {
		router.Handle("/health", health).Methods("GET")
	}
	return router
}

// Server serves metrics while a long batch such as a sweep is running
type Server struct {
	router *mux.Router
	server *http.Server
	logger zerolog.Logger
}

// NewServer creates a metrics server listening on addr
func NewServer(addr string, health *HealthChecker, logger zerolog.Logger) *Server {
	router := NewRouter(health)
	return &Server{
		router: router,
		server: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// Start serves in the background; listen errors are logged
func (s *Server) Start() {
	go func() {
		s.logger.Info().Str("addr", s.server.Addr).Msg("Metrics server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Str("addr", s.server.Addr).Msg("Metrics server failed")
		}
	}()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
