package job

import (
	"context"
	"time"

	"crude-outlook/internal/config"
	"crude-outlook/internal/pipeline"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type ForecastRunner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// ModelWarmupJob runs every page at its default horizon once a day so the shared session finds its
// series and models already cached.
type ModelWarmupJob struct {
	tracer  trace.Tracer
	runner  ForecastRunner
	pages   *config.Pages
	session string
	hour    int
	now     func() time.Time
}

func NewModelWarmupJob(tracer trace.Tracer, runner ForecastRunner, pages *config.Pages, session string, hourUTC int) *ModelWarmupJob {
	if hourUTC < 0 || hourUTC > 23 {
		hourUTC = 0
	}
	return &ModelWarmupJob{
		tracer:  tracer,
		runner:  runner,
		pages:   pages,
		session: session,
		hour:    hourUTC,
		now:     time.Now,
	}
}

func (j *ModelWarmupJob) Start(ctx context.Context) {
	for {
		wait := time.Until(nextRunUTC(j.now().UTC(), j.hour))
		if wait < time.Second {
			wait = time.Second
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			j.RunOnce(ctx)
		}
	}
}

// RunOnce warms every page and returns how many succeeded.
func (j *ModelWarmupJob) RunOnce(ctx context.Context) int {
	ctx, span := j.tracer.Start(ctx, "job.model-warmup")
	defer span.End()

	ok := 0
	for _, page := range j.pages.List() {
		req, err := page.Request(j.session, page.DefaultHorizon, config.Overrides{})
		if err != nil {
			log.Warn().Err(err).Str("page", page.Name).Msg("warmup request rejected")
			continue
		}
		res, err := j.runner.Run(ctx, req)
		if err != nil {
			log.Warn().Err(err).Str("page", page.Name).Msg("warmup run failed")
			continue
		}
		ok++
		log.Info().Str("page", page.Name).Float64("mape", res.Evaluation.MAPE).Bool("cache_hit", res.Model.CacheHit).Msg("page warmed")
	}
	span.SetAttributes(attribute.Int("pages.warmed", ok))
	return ok
}

func nextRunUTC(now time.Time, hour int) time.Time {
	run := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.UTC)
	if !run.After(now) {
		run = run.Add(24 * time.Hour)
	}
	return run
}
