package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joao-fontenele/gamestore-otel-demo/internal/config"
	"github.com/joao-fontenele/gamestore-otel-demo/internal/logging"
	"github.com/joao-fontenele/gamestore-otel-demo/internal/messaging"
	"github.com/joao-fontenele/gamestore-otel-demo/internal/telemetry"
	"github.com/joao-fontenele/gamestore-otel-demo/internal/worker"
)

func main() {
	cfg, err := config.Load("worker")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := logging.New("worker", cfg.LogFile)

	if len(cfg.KafkaBrokers) == 0 {
		logger.Error("kafka_brokers is required")
		os.Exit(1)
	}
	if cfg.EmailServiceURL == "" {
		logger.Error("email_service_url is required")
		os.Exit(1)
	}
	if cfg.LibraryServiceURL == "" {
		logger.Error("library_service_url is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "worker", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	consumer := messaging.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID,
		messaging.WithRetry(3, 500*time.Millisecond),
	)
	defer func() { _ = consumer.Close() }()

	receiptHandler := worker.NewReceiptHandler(
		cfg.EmailServiceURL,
		cfg.LibraryServiceURL,
		telemetry.NewHTTPClient(10*time.Second),
		logger,
	)

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		logger.Info("shutting down")
		cancel()
	}()

	logger.Info("starting receipt worker", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)

	if err := consumer.Consume(ctx, receiptHandler.Handle); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("consumer stopped")
			return
		}
		logger.Error("consumer error", "error", err)
		os.Exit(1)
	}
}
