// Package pipeline runs load -> features -> train/evaluate -> forecast as one configurable unit.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crude-outlook/internal/domain"
	"crude-outlook/internal/metrics"
	"crude-outlook/internal/ml/features"
	"crude-outlook/internal/ml/forecast"
	"crude-outlook/internal/ml/training"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type SeriesSource interface {
	Load(ctx context.Context, session, ticker string, window domain.Window) (*domain.PriceSeries, error)
	Refresh(ctx context.Context, session string) (int, error)
}

type Trainer interface {
	TrainAndEvaluate(ctx context.Context, ds training.Dataset, h int, hp domain.Hyperparameters) (*training.Outcome, error)
}

// RunRecorder persists a summary of each successful run.
type RunRecorder interface {
	InsertRun(ctx context.Context, run domain.ForecastRun) error
}

// Request is the full configuration of one run.
type Request struct {
	Session     string                 `json:"session"`
	Page        string                 `json:"page"`
	Ticker      string                 `json:"ticker"`
	Window      domain.Window          `json:"window"`
	Horizon     int                    `json:"horizon"`
	Hyper       domain.Hyperparameters `json:"hyperparameters"`
	LagStrategy domain.LagStrategy     `json:"lag_strategy"`
	LagFill     domain.LagFill         `json:"lag_fill"`
	Origin      domain.Origin          `json:"origin"`
}

// Validate rejects requests that must never reach the loader.
func (r Request) Validate() error {
	if r.Horizon < 1 {
		return fmt.Errorf("%w: horizon %d must be >= 1", domain.ErrInvalidHorizon, r.Horizon)
	}
	if err := r.Hyper.Validate(); err != nil {
		return err
	}
	if !r.LagStrategy.Valid() {
		return fmt.Errorf("unsupported lag strategy %q", r.LagStrategy)
	}
	if !r.LagFill.Valid() {
		return fmt.Errorf("unsupported lag fill %q", r.LagFill)
	}
	if !r.Origin.Valid() {
		return fmt.Errorf("unsupported origin %q", r.Origin)
	}
	return r.Window.Validate()
}

type ModelInfo struct {
	Rounds         int     `json:"rounds"`
	EarlyStopped   bool    `json:"early_stopped"`
	ValidationRMSE float64 `json:"validation_rmse,omitempty"`
	TrainRows      int     `json:"train_rows"`
	CacheHit       bool    `json:"cache_hit"`
}

type Result struct {
	RunID          string                  `json:"run_id"`
	Request        Request                 `json:"request"`
	Series         *domain.PriceSeries     `json:"-"`
	Evaluation     domain.EvaluationResult `json:"evaluation"`
	EvalRows       []domain.EvaluationRow  `json:"evaluation_rows"`
	Forecast       []domain.ForecastRow    `json:"forecast"`
	LastPrice      float64                 `json:"last_price"`
	LastDate       time.Time               `json:"last_date"`
	TransitionDate time.Time               `json:"transition_date"`
	Model          ModelInfo               `json:"model"`
	Elapsed        time.Duration           `json:"elapsed_ns"`
}

type Pipeline struct {
	tracer   trace.Tracer
	series   SeriesSource
	trainer  Trainer
	recorder RunRecorder
	metrics  *metrics.Recorder
	locks    *sessionLocks
	now      func() time.Time
	newID    func() string
}

// New wires a pipeline. recorder and rec may be nil.
func New(tracer trace.Tracer, series SeriesSource, trainer Trainer, recorder RunRecorder, rec *metrics.Recorder) *Pipeline {
	return &Pipeline{
		tracer:   tracer,
		series:   series,
		trainer:  trainer,
		recorder: recorder,
		metrics:  rec,
		locks:    newSessionLocks(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Run executes one forecast. Runs for the same session never overlap.
func (p *Pipeline) Run(ctx context.Context, req Request) (res *Result, err error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("session", req.Session),
		attribute.String("page", req.Page),
		attribute.Int("horizon", req.Horizon),
	)

	start := p.now()
	defer func() {
		outcome := Outcome(err)
		p.metrics.RecordRun(req.Page, outcome)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
			log.Info().Err(err).Str("session", req.Session).Str("page", req.Page).Str("outcome", outcome).Msg("forecast run failed")
		}
	}()

	if req.Ticker == "" {
		req.Ticker = domain.DefaultTicker
	}
	if req.Window.Period == "" && !req.Window.IsRange() {
		req.Window = domain.PeriodWindow(domain.DefaultPeriod)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	unlock, err := p.locks.lock(ctx, req.Session)
	if err != nil {
		return nil, err
	}
	defer unlock()

	stepStart := p.now()
	series, err := p.series.Load(ctx, req.Session, req.Ticker, req.Window)
	if err != nil {
		return nil, err
	}
	p.metrics.ObserveStep("load", p.now().Sub(stepStart))

	stepStart = p.now()
	rows, err := features.Build(series, req.LagFill)
	if err != nil {
		return nil, err
	}
	p.metrics.ObserveStep("features", p.now().Sub(stepStart))
	log.Debug().Str("session", req.Session).Int("points", series.Len()).Int("rows", len(rows)).Msg("features built")

	stepStart = p.now()
	outcome, err := p.trainer.TrainAndEvaluate(ctx, training.Dataset{
		Session: req.Session,
		Series:  series,
		Fill:    req.LagFill,
		Rows:    rows,
	}, req.Horizon, req.Hyper)
	if err != nil {
		return nil, err
	}
	p.metrics.RecordCache("model", outcome.CacheHit)
	p.metrics.ObserveStep("train", p.now().Sub(stepStart))

	stepStart = p.now()
	last, _ := series.Last()
	origin := forecast.ResolveOrigin(req.Origin, last.Date, p.now())
	projected, err := forecast.Project(outcome.Model, last.Price, origin, req.Horizon, req.LagStrategy)
	if err != nil {
		return nil, err
	}
	p.metrics.ObserveStep("forecast", p.now().Sub(stepStart))
	p.metrics.SetReliability(req.Page, outcome.Evaluation.Reliability)

	res = &Result{
		RunID:          p.newID(),
		Request:        req,
		Series:         series,
		Evaluation:     outcome.Evaluation,
		EvalRows:       outcome.EvalRows,
		Forecast:       projected,
		LastPrice:      last.Price,
		LastDate:       last.Date,
		TransitionDate: last.Date,
		Model: ModelInfo{
			Rounds:         outcome.Model.Rounds(),
			EarlyStopped:   outcome.Model.EarlyStopped(),
			ValidationRMSE: outcome.Model.ValidationRMSE(),
			TrainRows:      outcome.TrainRows,
			CacheHit:       outcome.CacheHit,
		},
		Elapsed: p.now().Sub(start),
	}
	span.SetAttributes(attribute.String("run_id", res.RunID), attribute.Float64("mape", res.Evaluation.MAPE))

	p.record(ctx, res)
	log.Info().
		Str("run_id", res.RunID).
		Str("session", req.Session).
		Str("page", req.Page).
		Int("horizon", req.Horizon).
		Float64("mape", res.Evaluation.MAPE).
		Bool("model_cache_hit", outcome.CacheHit).
		Dur("elapsed", res.Elapsed).
		Msg("forecast run complete")
	return res, nil
}

// Refresh clears the session's cached series and models once any in-flight run finishes.
func (p *Pipeline) Refresh(ctx context.Context, session string) (int, error) {
	unlock, err := p.locks.lock(ctx, session)
	if err != nil {
		return 0, err
	}
	defer unlock()
	return p.series.Refresh(ctx, session)
}

func (p *Pipeline) record(ctx context.Context, res *Result) {
	if p.recorder == nil {
		return
	}
	run := domain.ForecastRun{
		ID:          res.RunID,
		Session:     res.Request.Session,
		Page:        res.Request.Page,
		Ticker:      res.Request.Ticker,
		Window:      res.Request.Window.Key(),
		Horizon:     res.Request.Horizon,
		LagStrategy: res.Request.LagStrategy,
		Hyper:       res.Request.Hyper,
		Evaluation:  res.Evaluation,
		Forecast:    res.Forecast,
		LastPrice:   res.LastPrice,
		LastDate:    res.LastDate,
		CreatedAt:   p.now().UTC(),
	}
	if err := p.recorder.InsertRun(ctx, run); err != nil {
		log.Warn().Err(err).Str("run_id", run.ID).Msg("failed to record forecast run")
	}
}

// Outcome classifies a run error into a stable metric label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInvalidHorizon), errors.Is(err, domain.ErrInvalidHyperparameters), errors.Is(err, domain.ErrUnknownPage):
		return "invalid"
	case errors.Is(err, domain.ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, domain.ErrDataUnavailable):
		return "data_unavailable"
	case errors.Is(err, domain.ErrModelTraining):
		return "training_failure"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
