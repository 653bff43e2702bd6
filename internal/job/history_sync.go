package job

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"crude-outlook/internal/domain"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const syncTimeout = 2 * time.Minute

type HistorySyncer interface {
	Sync(ctx context.Context, ticker string, window domain.Window) (int, error)
}

// HistorySync archives the recent daily closes of each configured ticker on a cron schedule.
type HistorySync struct {
	tracer  trace.Tracer
	syncer  HistorySyncer
	tickers []string
	window  domain.Window
	cron    *cron.Cron

	mu      sync.Mutex
	lastRun time.Time
	lastErr error
}

func NewHistorySync(tracer trace.Tracer, syncer HistorySyncer, tickers []string, period string) *HistorySync {
	return &HistorySync{
		tracer:  tracer,
		syncer:  syncer,
		tickers: tickers,
		window:  domain.PeriodWindow(period),
		cron:    cron.New(cron.WithSeconds()),
	}
}

// Register schedules the sync with a six-field (seconds first) cron expression.
func (h *HistorySync) Register(ctx context.Context, spec string) error {
	if _, err := h.cron.AddFunc(spec, func() { h.runScheduled(ctx) }); err != nil {
		return fmt.Errorf("register history sync %q: %w", spec, err)
	}
	return nil
}

// Start runs one sync immediately, then hands over to the schedule. Blocks until ctx is cancelled.
func (h *HistorySync) Start(ctx context.Context) {
	log.Info().Strs("tickers", h.tickers).Str("window", h.window.Key()).Msg("history sync starting")
	h.runScheduled(ctx)

	h.cron.Start()
	<-ctx.Done()
	<-h.cron.Stop().Done()
	log.Info().Msg("history sync stopped")
}

func (h *HistorySync) runScheduled(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	runCtx, cancel := context.WithTimeout(ctx, syncTimeout)
	defer cancel()

	if _, err := h.RunOnce(runCtx); err != nil {
		log.Warn().Err(err).Msg("history sync run failed")
	}
}

// RunOnce syncs every ticker and returns how many rows were archived. A failing ticker does not
// stop the others.
func (h *HistorySync) RunOnce(ctx context.Context) (int, error) {
	ctx, span := h.tracer.Start(ctx, "job.history-sync")
	defer span.End()

	total := 0
	var errs []error
	for _, ticker := range h.tickers {
		n, err := h.syncer.Sync(ctx, ticker, h.window)
		total += n
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ticker, err))
			continue
		}
		log.Debug().Str("ticker", ticker).Int("rows", n).Msg("history synced")
	}
	err := errors.Join(errs...)
	span.SetAttributes(attribute.Int("rows", total), attribute.Int("failures", len(errs)))

	h.mu.Lock()
	h.lastRun = time.Now()
	h.lastErr = err
	h.mu.Unlock()
	return total, err
}

// LastRun reports when the most recent run finished and how it ended.
func (h *HistorySync) LastRun() (time.Time, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastRun, h.lastErr
}
