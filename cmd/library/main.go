package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/joao-fontenele/gamestore-otel-demo/internal/config"
	"github.com/joao-fontenele/gamestore-otel-demo/internal/library"
	"github.com/joao-fontenele/gamestore-otel-demo/internal/logging"
	"github.com/joao-fontenele/gamestore-otel-demo/internal/telemetry"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load("library")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := logging.New("library", cfg.LogFile)

	if cfg.PostgresURL == "" {
		logger.Error("postgres_url is required")
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "library", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider("library", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize meter provider", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	db, err := telemetry.OpenDB(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	repo := library.NewReceiptRepository(db)
	handler := library.NewHandler(repo, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /receipts", telemetry.WithHTTPRoute(handler.HandleRecord))
	mux.HandleFunc("GET /receipts", telemetry.WithHTTPRoute(handler.HandleList))
	mux.HandleFunc("GET /receipts/{id}", telemetry.WithHTTPRoute(handler.HandleGet))
	mux.HandleFunc("GET /owned", telemetry.WithHTTPRoute(handler.HandleOwned))
	mux.Handle("GET /metrics", metricsHandler)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      telemetry.WrapHandler(mux, "library"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting library service", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
