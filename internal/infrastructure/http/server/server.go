// Package server provides the operations HTTP server: health, readiness,
// liveness and Prometheus metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/alchemorsel/planner/internal/infrastructure/config"
	"github.com/alchemorsel/planner/internal/infrastructure/http/middleware"
	"github.com/alchemorsel/planner/pkg/healthcheck"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const (
	LivenessPath = "/live"
	MetricsPath  = "/metrics"
)

// Server is the operations server
type Server struct {
	config *config.Config
	logger *zap.Logger
	handler http.Handler
	server  *http.Server
}

// NewServer builds the router. registry may be nil when metrics are disabled.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	health *healthcheck.HealthCheck,
	registry *prometheus.Registry,
) (*Server, error) {
	if cfg.App.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		config: cfg,
		logger: logger.Named("ops-server"),
	}

	var httpMetrics *middleware.Metrics
	if registry != nil {
		m, err := middleware.NewMetrics(registry)
		if err != nil {
			return nil, fmt.Errorf("failed to register http metrics: %w", err)
		}
		httpMetrics = m
	}

	mw := middleware.New(s.logger, httpMetrics,
		cfg.Monitoring.HealthCheckPath,
		cfg.Monitoring.ReadinessPath,
		LivenessPath,
		MetricsPath,
	)

	router := gin.New()
	router.Use(mw.Recovery(), mw.RequestID(), mw.Tracing(), mw.Logger())

	router.GET(cfg.Monitoring.HealthCheckPath, health.Handler())
	router.GET(cfg.Monitoring.ReadinessPath, health.ReadinessHandler())
	router.GET(LivenessPath, health.LivenessHandler())
	if registry != nil && cfg.Monitoring.EnableMetrics {
		router.GET(MetricsPath, gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{
			Registry: registry,
		})))
	}

	s.handler = otelhttp.NewHandler(router, "ops",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
	s.server = &http.Server{
		Addr:              net.JoinHostPort(cfg.Monitoring.OpsHost, fmt.Sprintf("%d", cfg.Monitoring.OpsPort)),
		Handler:           s.handler,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s, nil
}

// Handler exposes the instrumented router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.server.Addr
}

// Start listens in the background. A bind failure is returned synchronously.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}

	s.logger.Info("Starting ops server",
		zap.String("address", ln.Addr().String()),
		zap.String("environment", s.config.App.Environment),
	)

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Ops server stopped", zap.Error(err))
		}
	}()
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down ops server")
	return s.server.Shutdown(ctx)
}
