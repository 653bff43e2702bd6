package handler

import (
	"context"

	"crude-outlook/internal/config"
	"crude-outlook/internal/domain"
	"crude-outlook/internal/indices"
	"crude-outlook/internal/metrics"
	"crude-outlook/internal/pipeline"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

type Forecaster interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
	Refresh(ctx context.Context, session string) (int, error)
}

type SeriesLoader interface {
	Load(ctx context.Context, session, ticker string, window domain.Window) (*domain.PriceSeries, error)
}

type IndexBuilder interface {
	Build(ctx context.Context, session string) (*indices.Dataset, error)
}

type RunLister interface {
	ListRuns(ctx context.Context, session string, limit int) ([]domain.ForecastRun, error)
}

type Handler struct {
	tracer     trace.Tracer
	pages      *config.Pages
	forecaster Forecaster
	series     SeriesLoader
	indices    IndexBuilder
	runs       RunLister
	metrics    *metrics.Recorder
	apiKey     string
}

func New(tracer trace.Tracer, pages *config.Pages, forecaster Forecaster, series SeriesLoader, idx IndexBuilder) *Handler {
	return &Handler{
		tracer:     tracer,
		pages:      pages,
		forecaster: forecaster,
		series:     series,
		indices:    idx,
	}
}

// SetRunLister enables /api/runs. Without it the endpoint answers 503.
func (h *Handler) SetRunLister(r RunLister) {
	h.runs = r
}

func (h *Handler) SetMetrics(m *metrics.Recorder) {
	h.metrics = m
}

// SetAPIKey guards the mutating endpoints. An empty key leaves them open.
func (h *Handler) SetAPIKey(key string) {
	h.apiKey = key
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	if h.metrics != nil {
		r.Use(h.metrics.Middleware())
		r.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}
	r.GET("/health", h.Health)

	api := r.Group("/api", SessionID())
	api.GET("/pages", h.ListPages)
	api.GET("/series/:ticker", h.GetSeries)
	api.GET("/series/:ticker/indicators", h.GetIndicators)
	api.GET("/indices", h.GetIndices)
	api.GET("/runs", h.ListRuns)

	guarded := api.Group("", APIKeyAuth(h.apiKey))
	guarded.POST("/pages/:page/forecast", h.Forecast)
	guarded.POST("/refresh", h.Refresh)
}
