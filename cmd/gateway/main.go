package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joao-fontenele/gamestore-otel-demo/internal/config"
	"github.com/joao-fontenele/gamestore-otel-demo/internal/gateway"
	"github.com/joao-fontenele/gamestore-otel-demo/internal/logging"
	"github.com/joao-fontenele/gamestore-otel-demo/internal/telemetry"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load("gateway")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := logging.New("gateway", cfg.LogFile)

	if cfg.StoreServiceURL == "" {
		logger.Error("store_service_url is required")
		os.Exit(1)
	}
	if cfg.LibraryServiceURL == "" {
		logger.Error("library_service_url is required")
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "gateway", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	httpClient := telemetry.NewHTTPClient(10 * time.Second)

	storeProxy := gateway.NewServiceProxy(cfg.StoreServiceURL, httpClient)
	libraryProxy := gateway.NewServiceProxy(cfg.LibraryServiceURL, httpClient)
	handler := gateway.NewHandler(storeProxy, libraryProxy, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /store/catalog", telemetry.WithHTTPRoute(handler.HandleStore))
	mux.HandleFunc("PUT /store/catalog/{key}/price", telemetry.WithHTTPRoute(handler.HandleStore))
	mux.HandleFunc("GET /store/deal", telemetry.WithHTTPRoute(handler.HandleStore))
	mux.HandleFunc("POST /store/deal/apply", telemetry.WithHTTPRoute(handler.HandleStore))
	mux.HandleFunc("GET /store/cart", telemetry.WithHTTPRoute(handler.HandleStore))
	mux.HandleFunc("POST /store/cart/items", telemetry.WithHTTPRoute(handler.HandleStore))
	mux.HandleFunc("POST /store/cart/items/remove", telemetry.WithHTTPRoute(handler.HandleStore))
	mux.HandleFunc("PUT /store/voucher", telemetry.WithHTTPRoute(handler.HandleStore))
	mux.HandleFunc("DELETE /store/voucher", telemetry.WithHTTPRoute(handler.HandleStore))
	mux.HandleFunc("POST /store/checkout/quote", telemetry.WithHTTPRoute(handler.HandleStore))
	mux.HandleFunc("POST /store/checkout", telemetry.WithHTTPRoute(handler.HandleStore))
	mux.HandleFunc("POST /store/spin", telemetry.WithHTTPRoute(handler.HandleStore))
	mux.HandleFunc("GET /store/wallet", telemetry.WithHTTPRoute(handler.HandleStore))
	mux.HandleFunc("GET /library/receipts", telemetry.WithHTTPRoute(handler.HandleLibrary))
	mux.HandleFunc("GET /library/receipts/{id}", telemetry.WithHTTPRoute(handler.HandleLibrary))
	mux.HandleFunc("GET /library/owned", telemetry.WithHTTPRoute(handler.HandleLibrary))

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      telemetry.WrapHandler(mux, "gateway"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting gateway service", "port", cfg.Port)
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
