// Command clausecop starts the ClauseCop HTTP API.
//
// Uploaded PDFs are stored under the storage root, recorded in PostgreSQL
// and run through partitioning and clause reconstruction before the upload
// request returns. Prometheus metrics are served on a separate port.
//
// Usage:
//
//	go run ./cmd/clausecop [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/clausecop/internal/api/handler"
	"github.com/Adithya-Monish-Kumar-K/clausecop/internal/api/router"
	"github.com/Adithya-Monish-Kumar-K/clausecop/internal/app"
	"github.com/Adithya-Monish-Kumar-K/clausecop/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/clausecop/internal/ingestion/storage"
	"github.com/Adithya-Monish-Kumar-K/clausecop/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/clausecop/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/clausecop/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting clausecop api", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)
	a, err := app.New(ctx, cfg, m)
	if err != nil {
		slog.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := a.Store.Migrate(ctx); err != nil {
		slog.Error("failed to apply schema", "error", err)
		os.Exit(1)
	}

	svc := ingestion.NewService(storage.NewFileStore(cfg.Storage.Root), a.Store, a.Processor)
	var clauseCache handler.ClauseCache
	if a.Cache != nil {
		clauseCache = a.Cache
	}
	h := handler.New(handler.Config{MaxUploadBytes: cfg.Storage.MaxUploadBytes}, svc, a.Store, clauseCache)

	server := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router.New(h, router.Options{
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			RequestTimeout: cfg.Server.WriteTimeout,
			Metrics:        m,
			Health:         a.Health,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	var shutdownMetrics func(context.Context) error
	if cfg.Metrics.Enabled {
		shutdownMetrics = metrics.StartServer(cfg.Metrics.Port)
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
		if shutdownMetrics != nil {
			if err := shutdownMetrics(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}
	}()

	slog.Info("clausecop api listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("clausecop api stopped")
}
