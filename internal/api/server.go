package api

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/amaumene/redman/internal/api/handlers"
	"github.com/amaumene/redman/internal/api/middleware"
	"github.com/amaumene/redman/internal/telemetry"
)

// Server is the read-only HTTP surface over the pool
type Server struct {
	app     *fiber.App
	addr    string
	stats   handlers.StatsSource
	metrics *telemetry.Metrics
	logger  *zerolog.Logger
}

// NewServer creates a new HTTP server listening on port
func NewServer(port string, stats handlers.StatsSource, metrics *telemetry.Metrics, logger *zerolog.Logger) *Server {
	s := &Server{
		app: fiber.New(fiber.Config{
			AppName:               "redman",
			DisableStartupMessage: true,
			ReadTimeout:           15 * time.Second,
			WriteTimeout:          15 * time.Second,
			IdleTimeout:           60 * time.Second,
		}),
		addr:    ":" + port,
		stats:   stats,
		metrics: metrics,
		logger:  logger,
	}

	s.app.Use(middleware.Logging(logger))
	s.setupRoutes()

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.app.Get("/health", handlers.NewHealthHandler(s.logger).Handle)
	s.app.Get("/stats", handlers.NewStatsHandler(s.stats, s.logger).Handle)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})))
}

// App exposes the fiber app, mainly for tests
func (s *Server) App() *fiber.App {
	return s.app
}

// Start serves until ctx is cancelled or the listener fails
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info().Str("addr", s.addr).Msg("Starting HTTP server")

	errChan := make(chan error, 1)
	go func() {
		if err := s.app.Listen(s.addr); err != nil {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.app.ShutdownWithContext(shutdownCtx)
}
