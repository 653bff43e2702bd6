// Package app wires the forecasting stack shared by the HTTP server, the SSH dashboard and the CLI.
package app

import (
	"context"
	"fmt"
	"time"

	"crude-outlook/internal/cache"
	"crude-outlook/internal/config"
	"crude-outlook/internal/db"
	"crude-outlook/internal/indices"
	"crude-outlook/internal/metrics"
	"crude-outlook/internal/ml/training"
	"crude-outlook/internal/pipeline"
	"crude-outlook/internal/provider"
	"crude-outlook/internal/repository"
	"crude-outlook/internal/service"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

var (
	loadPagesFunc = config.LoadPages
	openDatabase  = func(ctx context.Context, dsn string) (repository.PgxPool, func(), error) {
		pool, err := db.InitPostgres(ctx, dsn)
		if err != nil || pool == nil {
			return nil, nil, err
		}
		return pool, pool.Close, nil
	}
	openRedisStore = func(ctx context.Context, addr string) (cache.Store, func(), error) {
		client, err := cache.InitRedis(ctx, addr)
		if err != nil {
			return nil, nil, err
		}
		return cache.NewRedisStore(client), func() { _ = client.Close() }, nil
	}
)

// App is the wired stack. Prices and Runs are nil when no database is configured.
type App struct {
	Config   *config.Config
	Pages    *config.Pages
	Tracer   trace.Tracer
	Metrics  *metrics.Recorder
	Store    cache.Store
	Series   *service.SeriesService
	Trainer  *training.Service
	Pipeline *pipeline.Pipeline
	Indices  *indices.Service
	Prices   *repository.PriceRepository
	Runs     *repository.RunRepository

	closers []func()
}

// Build connects the optional backing stores and assembles the services. Postgres and Redis
// failures degrade to running without persistence and with the in-process cache; a broken
// pages file or a failed migration is fatal.
func Build(ctx context.Context, cfg *config.Config, tracer trace.Tracer) (*App, error) {
	pages, err := loadPagesFunc(cfg.PagesFile)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:  cfg,
		Pages:   pages,
		Tracer:  tracer,
		Metrics: metrics.New(),
	}

	a.Store = a.openStore(ctx)

	var (
		archive  service.PriceArchive
		recorder pipeline.RunRecorder
	)
	pool, closePool, err := openDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Warn().Err(err).Msg("postgres unavailable, continuing without persistence")
	} else if pool != nil {
		a.closers = append(a.closers, closePool)
		a.Prices = repository.NewPriceRepository(pool, tracer)
		a.Runs = repository.NewRunRepository(pool, tracer)
		if err := a.Prices.RunMigrations(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("price history migrations: %w", err)
		}
		if err := a.Runs.RunMigrations(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("forecast run migrations: %w", err)
		}
		archive = a.Prices
		recorder = a.Runs
	}

	yahoo := provider.NewYahooProvider(tracer, cfg.YahooBaseURL)
	a.Series = service.NewSeriesService(tracer, yahoo, a.Store, archive, a.Metrics, cfg.CacheTTL)
	a.Trainer = training.NewService(tracer, a.Store, cfg.CacheTTL)
	a.Pipeline = pipeline.New(tracer, a.Series, a.Trainer, recorder, a.Metrics)
	a.Indices = indices.NewService(tracer, a.Series, provider.NewCSVIndexProvider(tracer, cfg.TASICSVURL))

	log.Info().
		Int("pages", len(pages.List())).
		Bool("persistence", a.Runs != nil).
		Dur("cache_ttl", cfg.CacheTTL).
		Msg("forecast stack ready")
	return a, nil
}

func (a *App) openStore(ctx context.Context) cache.Store {
	if a.Config.RedisURL != "" {
		store, closeFn, err := openRedisStore(ctx, a.Config.RedisURL)
		if err == nil {
			a.closers = append(a.closers, closeFn)
			return store
		}
		log.Warn().Err(err).Msg("redis unavailable, falling back to in-process cache")
	}
	return cache.NewMemoryStore(time.Now)
}

// Close releases the backing stores in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
