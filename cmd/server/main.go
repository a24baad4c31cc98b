package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/copyleftdev/gradfit/internal/config"
	apperrors "github.com/copyleftdev/gradfit/internal/errors"
	"github.com/copyleftdev/gradfit/internal/logging"
	"github.com/copyleftdev/gradfit/internal/metrics"
	"github.com/copyleftdev/gradfit/internal/server"
)

const (
	serviceName    = "gradfit-server"
	serviceVersion = "1.0.0"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(&logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	serviceLogger := logger.WithFields(map[string]interface{}{
		"service": serviceName,
		"version": serviceVersion,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg, serviceLogger); err != nil {
		serviceLogger.Error("Server stopped with error", map[string]interface{}{"error": err})
		logger.Sync()
		os.Exit(1)
	}
	serviceLogger.Info("Server exited properly")
}

// serve runs the HTTP server until ctx is done, then drains requests and
// cancels running fits within the shutdown timeout.
func serve(ctx context.Context, cfg *config.Config, logger *logging.Logger) error {
	handler, fits := newRouter(cfg, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	logger.Info("Starting server", map[string]interface{}{
		"address":     httpServer.Addr,
		"environment": cfg.Environment,
		"metrics":     cfg.Metrics.Enabled,
	})
	listenErr := make(chan error, 1)
	go func() { listenErr <- httpServer.ListenAndServe() }()

	select {
	case err := <-listenErr:
		fits.Close()
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", map[string]interface{}{"error": err})
	}

	closed := make(chan error, 1)
	go func() { closed <- fits.Close() }()
	select {
	case err := <-closed:
		if err != nil {
			return fmt.Errorf("close fit server: %w", err)
		}
	case <-time.After(cfg.HTTP.ShutdownTimeout):
		logger.Error("Timed out waiting for fits to stop")
	}

	if err := <-listenErr; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// newRouter wires the middleware chain, health and metrics endpoints and the
// fit API. The returned server owns the background fits.
func newRouter(cfg *config.Config, logger *logging.Logger) (http.Handler, *server.Server) {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware(logger))
	r.Use(apperrors.RecoveryMiddleware(logger))
	r.Use(middleware.Timeout(cfg.HTTP.WriteTimeout))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		logging.FromContext(r.Context()).Debug("Health check")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	var opts []server.Option
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		opts = append(opts, server.WithMetrics(metrics.NewRecorder(reg)))
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	}

	fits := server.NewServer(cfg, logger, opts...)
	fits.RegisterRoutes(r)
	return r, fits
}
