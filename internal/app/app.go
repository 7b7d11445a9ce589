// Package app assembles the components shared by the ClauseCop binaries
// from a loaded Config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/clausecop/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/clausecop/internal/document"
	"github.com/Adithya-Monish-Kumar-K/clausecop/internal/events"
	"github.com/Adithya-Monish-Kumar-K/clausecop/internal/partition"
	"github.com/Adithya-Monish-Kumar-K/clausecop/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/clausecop/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/clausecop/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/clausecop/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/clausecop/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/clausecop/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/clausecop/pkg/redis"
)

// App holds connected clients and the processor built on them. Cache and
// Producer are nil when the corresponding backend is disabled.
type App struct {
	Config    *config.Config
	DB        *postgres.Client
	Store     *document.Store
	Redis     *pkgredis.Client
	Cache     *cache.ClauseCache
	Producer  *kafka.Producer
	Processor *pipeline.Processor
	Metrics   *metrics.Metrics
	Health    *health.Checker
}

// New connects to PostgreSQL and, when enabled, Redis and Kafka. A Redis
// connection failure disables caching rather than failing startup.
func New(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*App, error) {
	db, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	slog.Info("connected to postgres", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)

	a := &App{
		Config:  cfg,
		DB:      db,
		Store:   document.NewStore(db),
		Metrics: m,
		Health:  health.NewChecker(),
	}
	a.Health.Register("postgres", health.PingCheck(db.Ping, true))

	if cfg.Redis.Enabled {
		rc, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, clause cache disabled", "addr", cfg.Redis.Addr, "error", err)
		} else {
			a.Redis = rc
			a.Cache = cache.New(rc, cfg.Redis.CacheTTL, m)
			a.Health.Register("redis", health.PingCheck(rc.Ping, false))
			slog.Info("clause cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	if cfg.Kafka.Enabled {
		a.Producer = kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.DocumentProcessed)
		slog.Info("kafka producer initialized", "topic", cfg.Kafka.Topics.DocumentProcessed)
	}

	pcfg := pipeline.Config{
		Store:       a.Store,
		Partitioner: partition.NewClient(cfg.Partition, m),
		Metrics:     m,
	}
	if a.Cache != nil {
		pcfg.Cache = a.Cache
	}
	if a.Producer != nil {
		pcfg.Notifier = events.NewNotifier(a.Producer)
	}
	a.Processor = pipeline.New(pcfg)
	return a, nil
}

// Close releases every client, returning the joined errors.
func (a *App) Close() error {
	var errs []error
	if a.Producer != nil {
		errs = append(errs, a.Producer.Close())
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	errs = append(errs, a.DB.Close())
	return errors.Join(errs...)
}
