package repository

import (
	"context"
	"fmt"
	"time"

	"crude-outlook/internal/domain"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const createPriceHistoryTable = `
CREATE TABLE IF NOT EXISTS price_history (
    ticker      TEXT        NOT NULL,
    day         DATE        NOT NULL,
    close       NUMERIC     NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (ticker, day)
);

CREATE INDEX IF NOT EXISTS idx_price_history_ticker_day
    ON price_history (ticker, day DESC);
`

type PriceRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewPriceRepository(pool PgxPool, tracer trace.Tracer) *PriceRepository {
	return &PriceRepository{pool: pool, tracer: tracer}
}

func (r *PriceRepository) RunMigrations(ctx context.Context) error {
	ctx, span := r.tracer.Start(ctx, "price-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, createPriceHistoryTable)
	return err
}

// UpsertPrices archives daily closes for ticker, overwriting existing days.
func (r *PriceRepository) UpsertPrices(ctx context.Context, ticker string, points []domain.PricePoint) (int, error) {
	if len(points) == 0 {
		return 0, nil
	}

	ctx, span := r.tracer.Start(ctx, "price-repo.upsert-prices")
	defer span.End()
	span.SetAttributes(attribute.String("ticker", ticker), attribute.Int("points", len(points)))

	batch := &pgx.Batch{}
	for _, p := range points {
		batch.Queue(
			`INSERT INTO price_history (ticker, day, close)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (ticker, day) DO UPDATE SET
			     close = EXCLUDED.close,
			     updated_at = NOW()`,
			ticker, p.Date, p.Price,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range points {
		if _, err := br.Exec(); err != nil {
			return i, fmt.Errorf("upsert %s %s: %w", ticker, points[i].Date.Format(time.DateOnly), err)
		}
	}
	return len(points), nil
}

// History returns archived closes for ticker in [from, to], oldest first.
func (r *PriceRepository) History(ctx context.Context, ticker string, from, to time.Time) ([]domain.PricePoint, error) {
	ctx, span := r.tracer.Start(ctx, "price-repo.history")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT day, close
		 FROM price_history
		 WHERE ticker = $1 AND day >= $2 AND day <= $3
		 ORDER BY day ASC`,
		ticker, from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []domain.PricePoint
	for rows.Next() {
		var p domain.PricePoint
		if err := rows.Scan(&p.Date, &p.Price); err != nil {
			return nil, err
		}
		p.Date = domain.TruncateDay(p.Date)
		points = append(points, p)
	}
	return points, rows.Err()
}
