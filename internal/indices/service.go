package indices

import (
	"context"
	"fmt"
	"time"

	"crude-outlook/internal/domain"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type SeriesLoader interface {
	Load(ctx context.Context, session, ticker string, window domain.Window) (*domain.PriceSeries, error)
}

type CSVSource interface {
	FetchSeries(ctx context.Context) ([]domain.PricePoint, error)
}

// Dataset is the payload of the index page.
type Dataset struct {
	Rows        []Row     `json:"rows"`
	Normalized  []Row     `json:"normalized"`
	Correlation Matrix    `json:"correlation"`
	Missing     []string  `json:"missing,omitempty"`
	BuiltAt     time.Time `json:"built_at"`
}

type Service struct {
	tracer trace.Tracer
	loader SeriesLoader
	tasi   CSVSource
	window domain.Window
	now    func() time.Time
}

func NewService(tracer trace.Tracer, loader SeriesLoader, tasi CSVSource) *Service {
	return &Service{
		tracer: tracer,
		loader: loader,
		tasi:   tasi,
		window: domain.PeriodWindow("max"),
		now:    time.Now,
	}
}

// Build loads every series for the session and derives the index views. Brent is required; any
// other source that fails is reported in Missing and left out.
func (s *Service) Build(ctx context.Context, session string) (*Dataset, error) {
	ctx, span := s.tracer.Start(ctx, "indices.Build")
	defer span.End()

	brent, err := s.loader.Load(ctx, session, Tickers[Brent], s.window)
	if err != nil {
		return nil, fmt.Errorf("load brent: %w", err)
	}

	ds := &Dataset{BuiltAt: s.now().UTC()}
	others := make(map[string][]domain.PricePoint, 3)
	for _, col := range []string{SP500, Gold, DXY} {
		series, err := s.loader.Load(ctx, session, Tickers[col], s.window)
		if err != nil {
			log.Warn().Err(err).Str("index", col).Msg("index series unavailable")
			ds.Missing = append(ds.Missing, col)
			continue
		}
		others[col] = series.Points
	}

	var tasi []domain.PricePoint
	if s.tasi != nil {
		tasi, err = s.tasi.FetchSeries(ctx)
		if err != nil {
			log.Warn().Err(err).Str("index", TASI).Msg("index series unavailable")
			ds.Missing = append(ds.Missing, TASI)
		}
	} else {
		ds.Missing = append(ds.Missing, TASI)
	}

	rows, err := Merge(brent.Points, others, tasi)
	if err != nil {
		return nil, fmt.Errorf("merge indices: %w", domain.ErrInsufficientData)
	}
	ds.Rows = rows
	ds.Normalized = Normalize(rows)
	ds.Correlation = Correlation(rows)

	span.SetAttributes(
		attribute.Int("indices.rows", len(rows)),
		attribute.Int("indices.missing", len(ds.Missing)),
	)
	log.Debug().Int("rows", len(rows)).Strs("missing", ds.Missing).Msg("index dataset built")
	return ds, nil
}
