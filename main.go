package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	appLogger "github.com/FACorreiaa/go-tour-itinerary-studio/app/logger"
	"github.com/FACorreiaa/go-tour-itinerary-studio/app/observability/metrics"
	"github.com/FACorreiaa/go-tour-itinerary-studio/app/tracer"
	"github.com/FACorreiaa/go-tour-itinerary-studio/config"
	"github.com/FACorreiaa/go-tour-itinerary-studio/internal/container"
	"github.com/FACorreiaa/go-tour-itinerary-studio/internal/router"
)

func main() {
	// Use standard log until slog is configured, in case godotenv fails
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("FATAL: Error initializing config: %v", err)
	}

	logger := appLogger.New(cfg.Mode, os.Stdout)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --- Observability ---
	providers, err := tracer.InitTracingAndMetrics()
	if err != nil {
		logger.Error("Failed to initialize tracing and metrics", slog.Any("error", err))
		os.Exit(1)
	}
	metrics.InitAppMetrics()

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		metricsSrv = tracer.NewMetricsServer(cfg.Metrics.Port, logger)
		go tracer.ServeMetrics(metricsSrv, logger)
	}

	// --- Dependencies ---
	c := container.NewContainer(&cfg, logger)
	logger.Info("Credential status", slog.String("state", string(c.Credentials.Status().State)))

	// --- Router Setup ---
	mainRouter := router.SetupRouter(c.RouterConfig())

	r := chi.NewMux()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appLogger.StructuredLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(middleware.Timeout(cfg.Server.Timeout))
	r.Use(middleware.Compress(5, "application/json", "text/html"))
	r.Mount("/", mainRouter)

	// --- HTTP Server Setup ---
	serverAddress := fmt.Sprintf(":%s", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:    serverAddress,
		Handler: otelhttp.NewHandler(r, "tour-itinerary-studio"),
		// Plan generation and image fan-out can take minutes
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.Server.Timeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	go func() {
		logger.Info("Starting HTTP server", slog.String("address", serverAddress))
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server ListenAndServe error", slog.Any("error", err))
			cancel()
		}
	}()

	<-ctx.Done()

	logger.Info("Shutdown signal received, starting graceful shutdown...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server graceful shutdown failed", slog.Any("error", err))
	} else {
		logger.Info("HTTP server gracefully stopped")
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Metrics server shutdown failed", slog.Any("error", err))
		}
	}
	if err := providers.Tracer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Tracer provider shutdown failed", slog.Any("error", err))
	}
	if err := providers.Meter.Shutdown(shutdownCtx); err != nil {
		logger.Error("Meter provider shutdown failed", slog.Any("error", err))
	}
	logger.Info("Application shut down complete.")
}
