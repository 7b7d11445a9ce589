// Command clausecop-worker consumes reprocess requests from Kafka and runs
// the processing pipeline for each requested document.
//
// Usage:
//
//	go run ./cmd/clausecop-worker [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/clausecop/internal/app"
	"github.com/Adithya-Monish-Kumar-K/clausecop/internal/events"
	"github.com/Adithya-Monish-Kumar-K/clausecop/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/clausecop/pkg/kafka"
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
	if !cfg.Kafka.Enabled {
		slog.Error("worker requires kafka.enabled")
		os.Exit(1)
	}
	slog.Info("starting clausecop worker", "topic", cfg.Kafka.Topics.DocumentReprocess)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)
	a, err := app.New(ctx, cfg, m)
	if err != nil {
		slog.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	var shutdownMetrics func(context.Context) error
	if cfg.Metrics.Enabled {
		shutdownMetrics = metrics.StartServer(cfg.Metrics.Port)
	}

	consumer := kafka.NewConsumer(
		cfg.Kafka,
		cfg.Kafka.Topics.DocumentReprocess,
		events.ReprocessHandler(a.Store, a.Processor),
	)
	defer consumer.Close()

	slog.Info("worker ready, consuming from kafka",
		"topic", cfg.Kafka.Topics.DocumentReprocess,
		"group", cfg.Kafka.ConsumerGroup,
	)
	if err := consumer.Start(ctx); err != nil {
		slog.Error("consumer error", "error", err)
	}

	if shutdownMetrics != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdownMetrics(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown error", "error", err)
		}
	}
	slog.Info("clausecop worker stopped")
}
