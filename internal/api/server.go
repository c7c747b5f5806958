package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ayumi-support/kiroku-engine/internal/config"
	"github.com/ayumi-support/kiroku-engine/internal/limiter"
)

// Handlers bundles the route handlers the server mounts.
type Handlers struct {
	Audio     *AudioHandler
	Documents *DocumentsHandler
	Database  *DatabaseHandler
	Health    *HealthHandler
}

type Server struct {
	http *http.Server
	log  zerolog.Logger
}

func NewServer(cfg *config.Config, h Handlers, rl *limiter.RateLimiter, log zerolog.Logger) *Server {
	r := chi.NewRouter()

	// Global middleware
	r.Use(RequestID)
	r.Use(Recoverer)
	r.Use(Logger(log))
	r.Use(CORS)
	r.Use(Metrics)

	// Health and metrics, no auth and no rate limit
	r.Get("/api/v1/health", h.Health.ServeHTTP)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Authenticated, rate limited API
	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(cfg.AuthToken))
		r.Use(RateLimit(rl))

		r.Route("/api/v1/audio", h.Audio.Routes)
		r.Route("/api/v1/documents", h.Documents.Routes)
		r.Route("/api/v1/database", h.Database.Routes)
	})

	return &Server{
		http: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      r,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		log: log,
	}
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("http server starting")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.http.Shutdown(ctx)
}

// ShutdownTimeout is how long in-flight requests get before forced exit.
const ShutdownTimeout = 10 * time.Second
