package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"crude-outlook/internal/cache"
	"crude-outlook/internal/domain"
	"crude-outlook/internal/metrics"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type SeriesProvider interface {
	FetchDailyCloses(ctx context.Context, ticker string, window domain.Window) ([]domain.PricePoint, error)
}

// PriceArchive stores fetched closes outside the session cache.
type PriceArchive interface {
	UpsertPrices(ctx context.Context, ticker string, points []domain.PricePoint) (int, error)
}

// SeriesService loads daily close series and caches them per session.
type SeriesService struct {
	tracer   trace.Tracer
	provider SeriesProvider
	store    cache.Store
	archive  PriceArchive
	metrics  *metrics.Recorder
	ttl      time.Duration
}

func NewSeriesService(
	tracer trace.Tracer,
	provider SeriesProvider,
	store cache.Store,
	archive PriceArchive,
	recorder *metrics.Recorder,
	ttl time.Duration,
) *SeriesService {
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	return &SeriesService{
		tracer:   tracer,
		provider: provider,
		store:    store,
		archive:  archive,
		metrics:  recorder,
		ttl:      ttl,
	}
}

// Load returns the series for (session, ticker, window), fetching upstream on a cache miss.
// Upstream failures and empty results wrap domain.ErrDataUnavailable.
func (s *SeriesService) Load(ctx context.Context, session, ticker string, window domain.Window) (*domain.PriceSeries, error) {
	ctx, span := s.tracer.Start(ctx, "series-service.load")
	defer span.End()

	ticker = strings.TrimSpace(ticker)
	if ticker == "" {
		ticker = domain.DefaultTicker
	}
	if err := window.Validate(); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("ticker", ticker), attribute.String("window", window.Key()))

	key := cache.SeriesKey(session, ticker, window.Key())
	if s.store != nil {
		var cached domain.PriceSeries
		ok, err := s.store.Get(ctx, key, &cached)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("series cache read failed")
		}
		s.metrics.RecordCache("series", ok)
		if ok && cached.Len() > 0 {
			span.SetAttributes(attribute.Bool("cache_hit", true))
			return &cached, nil
		}
	}

	series, err := s.fetch(ctx, ticker, window)
	if err != nil {
		return nil, err
	}

	if s.store != nil {
		if err := s.store.Set(ctx, key, series, s.ttl); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("series cache write failed")
		}
	}
	return series, nil
}

// Refresh drops every cached series and model of the session.
func (s *SeriesService) Refresh(ctx context.Context, session string) (int, error) {
	ctx, span := s.tracer.Start(ctx, "series-service.refresh")
	defer span.End()

	if s.store == nil {
		return 0, nil
	}
	n, err := s.store.DeletePrefix(ctx, cache.SessionPrefix(session))
	if err != nil {
		return n, fmt.Errorf("clear session cache: %w", err)
	}
	log.Info().Str("session", session).Int("keys", n).Msg("session cache cleared")
	return n, nil
}

// Sync fetches the series bypassing the cache and writes it to the archive.
func (s *SeriesService) Sync(ctx context.Context, ticker string, window domain.Window) (int, error) {
	ctx, span := s.tracer.Start(ctx, "series-service.sync")
	defer span.End()

	if s.archive == nil {
		return 0, nil
	}
	series, err := s.fetch(ctx, ticker, window)
	if err != nil {
		return 0, err
	}
	n, err := s.archive.UpsertPrices(ctx, series.Ticker, series.Points)
	if err != nil {
		return n, fmt.Errorf("archive %s: %w", ticker, err)
	}
	return n, nil
}

func (s *SeriesService) fetch(ctx context.Context, ticker string, window domain.Window) (*domain.PriceSeries, error) {
	points, err := s.provider.FetchDailyCloses(ctx, ticker, window)
	s.metrics.RecordUpstream("yahoo", err)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDataUnavailable, err)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: no rows for %s over %s", domain.ErrDataUnavailable, ticker, window.Key())
	}
	series := &domain.PriceSeries{Ticker: ticker, Window: window, Points: points}
	last, _ := series.Last()
	s.metrics.SetLastPrice(ticker, last.Price)
	log.Debug().Str("ticker", ticker).Str("window", window.Key()).Int("points", len(points)).Msg("series fetched")
	return series, nil
}
