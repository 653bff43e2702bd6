package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"crude-outlook/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const createForecastRunsTable = `
CREATE TABLE IF NOT EXISTS forecast_runs (
    id           TEXT        PRIMARY KEY,
    session      TEXT        NOT NULL,
    page         TEXT        NOT NULL,
    ticker       TEXT        NOT NULL,
    window_key   TEXT        NOT NULL,
    horizon      INTEGER     NOT NULL,
    lag_strategy TEXT        NOT NULL,
    hyper        JSONB       NOT NULL,
    mae          DOUBLE PRECISION NOT NULL,
    mse          DOUBLE PRECISION NOT NULL,
    rmse         DOUBLE PRECISION NOT NULL,
    mape         DOUBLE PRECISION NOT NULL,
    reliability  DOUBLE PRECISION NOT NULL,
    eval_count   INTEGER     NOT NULL,
    forecast     JSONB       NOT NULL,
    last_price   DOUBLE PRECISION NOT NULL,
    last_date    DATE        NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_forecast_runs_session_created
    ON forecast_runs (session, created_at DESC);
`

const (
	defaultRunLimit = 20
	maxRunLimit     = 200
)

type RunRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewRunRepository(pool PgxPool, tracer trace.Tracer) *RunRepository {
	return &RunRepository{pool: pool, tracer: tracer}
}

func (r *RunRepository) RunMigrations(ctx context.Context) error {
	ctx, span := r.tracer.Start(ctx, "run-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, createForecastRunsTable)
	return err
}

func (r *RunRepository) InsertRun(ctx context.Context, run domain.ForecastRun) error {
	ctx, span := r.tracer.Start(ctx, "run-repo.insert-run")
	defer span.End()
	span.SetAttributes(attribute.String("run.id", run.ID), attribute.String("run.page", run.Page))

	hyper, err := json.Marshal(run.Hyper)
	if err != nil {
		return fmt.Errorf("encode hyperparameters: %w", err)
	}
	forecast, err := json.Marshal(run.Forecast)
	if err != nil {
		return fmt.Errorf("encode forecast: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO forecast_runs (
		     id, session, page, ticker, window_key, horizon, lag_strategy, hyper,
		     mae, mse, rmse, mape, reliability, eval_count, forecast, last_price, last_date, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		run.ID, run.Session, run.Page, run.Ticker, run.Window, run.Horizon, string(run.LagStrategy), hyper,
		run.Evaluation.MAE, run.Evaluation.MSE, run.Evaluation.RMSE, run.Evaluation.MAPE,
		run.Evaluation.Reliability, run.Evaluation.Count, forecast, run.LastPrice, run.LastDate, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert forecast run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first. An empty session lists every session.
func (r *RunRepository) ListRuns(ctx context.Context, session string, limit int) ([]domain.ForecastRun, error) {
	ctx, span := r.tracer.Start(ctx, "run-repo.list-runs")
	defer span.End()

	if limit <= 0 {
		limit = defaultRunLimit
	}
	if limit > maxRunLimit {
		limit = maxRunLimit
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, session, page, ticker, window_key, horizon, lag_strategy, hyper,
		        mae, mse, rmse, mape, reliability, eval_count, forecast, last_price, last_date, created_at
		 FROM forecast_runs
		 WHERE ($1 = '' OR session = $1)
		 ORDER BY created_at DESC
		 LIMIT $2`,
		session, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []domain.ForecastRun
	for rows.Next() {
		var (
			run      domain.ForecastRun
			strategy string
			hyper    []byte
			forecast []byte
		)
		if err := rows.Scan(
			&run.ID, &run.Session, &run.Page, &run.Ticker, &run.Window, &run.Horizon, &strategy, &hyper,
			&run.Evaluation.MAE, &run.Evaluation.MSE, &run.Evaluation.RMSE, &run.Evaluation.MAPE,
			&run.Evaluation.Reliability, &run.Evaluation.Count, &forecast, &run.LastPrice, &run.LastDate, &run.CreatedAt,
		); err != nil {
			return nil, err
		}
		run.LagStrategy = domain.LagStrategy(strategy)
		if err := json.Unmarshal(hyper, &run.Hyper); err != nil {
			return nil, fmt.Errorf("decode hyperparameters for run %s: %w", run.ID, err)
		}
		if err := json.Unmarshal(forecast, &run.Forecast); err != nil {
			return nil, fmt.Errorf("decode forecast for run %s: %w", run.ID, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
