package main

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/joao-fontenele/gamestore-otel-demo/internal/cart"
	"github.com/joao-fontenele/gamestore-otel-demo/internal/catalog"
	"github.com/joao-fontenele/gamestore-otel-demo/internal/config"
	"github.com/joao-fontenele/gamestore-otel-demo/internal/domain"
	"github.com/joao-fontenele/gamestore-otel-demo/internal/idempotency"
	"github.com/joao-fontenele/gamestore-otel-demo/internal/logging"
	"github.com/joao-fontenele/gamestore-otel-demo/internal/messaging"
	"github.com/joao-fontenele/gamestore-otel-demo/internal/store"
	"github.com/joao-fontenele/gamestore-otel-demo/internal/telemetry"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load("store")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := logging.New("store", cfg.LogFile)

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "store", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider("store", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize meter provider", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	if err := telemetry.StartRuntimeMetrics(); err != nil {
		logger.Error("failed to start runtime metrics", "error", err)
	}

	var games []domain.Game
	if cfg.PostgresURL != "" {
		db, err := telemetry.OpenDB(ctx, cfg.PostgresURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		games, err = catalog.Load(ctx, catalog.NewRepository(db))
		_ = db.Close()
		if err != nil {
			logger.Error("failed to load catalog", "error", err)
			os.Exit(1)
		}
	} else {
		games = catalog.Defaults()
	}

	var publisher store.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		producer := messaging.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer func() { _ = producer.Close() }()
		publisher = producer
	}

	var idem idempotency.Store
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		idem = idempotency.NewRedisStore(rdb, cfg.IdempotencyTTL)
	}

	metrics, err := store.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		logger.Error("failed to create metrics", "error", err)
		os.Exit(1)
	}

	rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64()))
	session := store.NewSession(cart.NewEngine(games), cfg.StartingBalance, rng)
	if deal, err := session.Deal(); err == nil {
		logger.Info("daily deal drawn", "key", deal.Key, "new_price", deal.NewPrice, "percent", deal.Percent)
	}

	handler := store.NewHandler(session, publisher, idem, metrics, logger)

	mux := http.NewServeMux()
	handler.Routes(mux, telemetry.WithHTTPRoute)
	mux.Handle("GET /metrics", metricsHandler)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      telemetry.WrapHandler(mux, "store"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting store service", "port", cfg.Port, "balance", cfg.StartingBalance, "games", len(games))
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
