package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"crude-outlook/internal/domain"
	"crude-outlook/internal/ta"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// GetSeries godoc
// @Summary      Get daily closes
// @Description  Returns the cleaned daily close series for a ticker, by named period or explicit date range
// @Tags         series
// @Produce      json
// @Param        ticker        path    string  true   "Yahoo ticker (e.g., BZ=F)"
// @Param        period        query   string  false  "Named period (1mo ... 20y, max)"  default(20y)
// @Param        start         query   string  false  "Range start (YYYY-MM-DD), overrides period"
// @Param        end           query   string  false  "Range end (YYYY-MM-DD)"
// @Param        X-Session-ID  header  string  false  "Caller session"
// @Success      200  {object}  domain.PriceSeries
// @Failure      400  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/series/{ticker} [get]
func (h *Handler) GetSeries(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-series")
	defer span.End()

	series, ok := h.loadSeries(ctx, c, span)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, series)
}

// GetIndicators godoc
// @Summary      Technical indicators
// @Description  EMA 20/50, RSI 14, MACD, Bollinger bands and 20-day annualized volatility at the last close
// @Tags         series
// @Produce      json
// @Param        ticker        path    string  true   "Yahoo ticker (e.g., BZ=F)"
// @Param        period        query   string  false  "Named period (1mo ... 20y, max)"  default(20y)
// @Param        start         query   string  false  "Range start (YYYY-MM-DD), overrides period"
// @Param        end           query   string  false  "Range end (YYYY-MM-DD)"
// @Param        X-Session-ID  header  string  false  "Caller session"
// @Success      200  {object}  ta.Snapshot
// @Failure      400  {object}  map[string]string
// @Failure      422  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/series/{ticker}/indicators [get]
func (h *Handler) GetIndicators(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-indicators")
	defer span.End()

	series, ok := h.loadSeries(ctx, c, span)
	if !ok {
		return
	}
	snap, err := ta.Summarize(series)
	if err != nil {
		writeError(c, span, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// loadSeries resolves the ticker and window of the request and loads the series, writing the
// error response itself when it fails.
func (h *Handler) loadSeries(ctx context.Context, c *gin.Context, span trace.Span) (*domain.PriceSeries, bool) {
	ticker := strings.ToUpper(strings.TrimSpace(c.Param("ticker")))
	span.SetAttributes(attribute.String("ticker", ticker))

	window, err := windowFromQuery(c)
	if err == nil {
		err = window.Validate()
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             err.Error(),
			"supported_periods": domain.SupportedPeriods,
		})
		return nil, false
	}

	series, err := h.series.Load(ctx, sessionFrom(c), ticker, window)
	if err != nil {
		writeError(c, span, err)
		return nil, false
	}
	return series, true
}

func windowFromQuery(c *gin.Context) (domain.Window, error) {
	start := strings.TrimSpace(c.Query("start"))
	if start == "" {
		return domain.PeriodWindow(c.DefaultQuery("period", "20y")), nil
	}
	from, err := time.Parse(time.DateOnly, start)
	if err != nil {
		return domain.Window{}, fmt.Errorf("invalid start %q", start)
	}
	var to time.Time
	if end := strings.TrimSpace(c.Query("end")); end != "" {
		if to, err = time.Parse(time.DateOnly, end); err != nil {
			return domain.Window{}, fmt.Errorf("invalid end %q", end)
		}
	}
	return domain.RangeWindow(from, to), nil
}
