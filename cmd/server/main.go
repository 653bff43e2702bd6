package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crude-outlook/internal/app"
	"crude-outlook/internal/config"
	"crude-outlook/internal/handler"
	"crude-outlook/internal/job"
	"crude-outlook/pkg/logger"
	"crude-outlook/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "crude-outlook/docs"
)

const (
	serviceName   = "crude-outlook-api"
	warmupSession = "anonymous"
)

var (
	loadEnvFunc            = godotenv.Load
	loadConfigFunc         = config.Load
	initLoggerFunc         = logger.Init
	initTracerFunc         = tracing.InitTracer
	buildAppFunc           = app.Build
	startSyncFunc          = func(j *job.HistorySync, ctx context.Context) { go j.Start(ctx) }
	startWarmupFunc        = func(j *job.ModelWarmupJob, ctx context.Context) { go j.Start(ctx) }
	newRouterFunc          = gin.Default
	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           Crude Outlook API
// @version         1.0
// @description     Brent crude price history, index comparison and gradient-boosted forecasts.

// @host      localhost:8080
// @BasePath  /
func main() {
	_ = loadEnvFunc()

	cfg := loadConfigFunc()
	if err := initLoggerFunc(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize logger")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, tracer, err := initTracerFunc(ctx, serviceName)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracer")
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Error().Err(err).Msg("error shutting down tracer provider")
		}
	}()

	a, err := buildAppFunc(ctx, cfg, tracer)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build forecast stack")
	}
	defer a.Close()

	// Background jobs, stopped by ctx cancel
	if cfg.SyncEnabled && a.Prices != nil {
		syncJob := job.NewHistorySync(tracer, a.Series, cfg.SyncTickers, cfg.SyncPeriod)
		if err := syncJob.Register(ctx, cfg.SyncCron); err != nil {
			log.Fatal().Err(err).Msg("invalid SYNC_CRON")
		}
		startSyncFunc(syncJob, ctx)
	}
	if cfg.WarmupHour >= 0 {
		warmup := job.NewModelWarmupJob(tracer, a.Pipeline, a.Pages, warmupSession, cfg.WarmupHour)
		startWarmupFunc(warmup, ctx)
	}

	h := handler.New(tracer, a.Pages, a.Pipeline, a.Series, a.Indices)
	h.SetMetrics(a.Metrics)
	h.SetAPIKey(cfg.APIKey)
	if a.Runs != nil {
		h.SetRunLister(a.Runs)
	}

	r := newRouterFunc()
	r.Use(otelgin.Middleware(serviceName))

	h.RegisterRoutes(r)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Info().Msg("shutting down server")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exiting")
}
