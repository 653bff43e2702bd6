// Package report shapes a pipeline result into what the dashboard shows: a metrics line, a chart
// payload and a forecast table.
package report

import (
	"fmt"
	"math"
	"time"

	"crude-outlook/internal/domain"
	"crude-outlook/internal/pipeline"

	"github.com/shopspring/decimal"
)

// ChartHistory is how many trailing actual observations the chart overlays on the forecast.
const ChartHistory = 30

// chartPadding widens the y-range around the plotted values.
const chartPadding = 5.0

type Report struct {
	RunID       string                  `json:"run_id"`
	Page        string                  `json:"page"`
	Ticker      string                  `json:"ticker"`
	Horizon     int                     `json:"horizon"`
	Summary     string                  `json:"summary"`
	LastPrice   decimal.Decimal         `json:"last_price"`
	LastDate    string                  `json:"last_date"`
	Reliability decimal.Decimal         `json:"reliability"`
	Evaluation  domain.EvaluationResult `json:"evaluation"`
	Chart       Chart                   `json:"chart"`
	Table       []TableRow              `json:"table"`
	Model       pipeline.ModelInfo      `json:"model"`
	ElapsedMS   int64                   `json:"elapsed_ms"`
}

type ChartPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

type Chart struct {
	Actual         []ChartPoint `json:"actual"`
	Forecast       []ChartPoint `json:"forecast"`
	TransitionDate time.Time    `json:"transition_date"`
	YMin           float64      `json:"y_min"`
	YMax           float64      `json:"y_max"`
}

type TableRow struct {
	Date           string          `json:"date"`
	PredictedPrice decimal.Decimal `json:"predicted_price"`
}

// Summary formats the four error metrics the way the dashboard prints them.
func Summary(e domain.EvaluationResult) string {
	return fmt.Sprintf("MAE: %.4f, MSE: %.4f, RMSE: %.4f, MAPE: %.2f%%", e.MAE, e.MSE, e.RMSE, e.MAPE)
}

func Build(res *pipeline.Result) Report {
	r := Report{
		RunID:       res.RunID,
		Page:        res.Request.Page,
		Ticker:      res.Request.Ticker,
		Horizon:     res.Request.Horizon,
		Summary:     Summary(res.Evaluation),
		LastPrice:   cents(res.LastPrice),
		LastDate:    res.LastDate.Format(time.DateOnly),
		Reliability: cents(res.Evaluation.Reliability),
		Evaluation:  res.Evaluation,
		Model:       res.Model,
		ElapsedMS:   res.Elapsed.Milliseconds(),
	}
	r.Chart = buildChart(res)
	r.Table = make([]TableRow, len(res.Forecast))
	for i, row := range res.Forecast {
		r.Table[i] = TableRow{Date: row.Date.Format(time.DateOnly), PredictedPrice: cents(row.PredictedPrice)}
	}
	return r
}

func buildChart(res *pipeline.Result) Chart {
	c := Chart{TransitionDate: res.TransitionDate}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range res.Series.Tail(ChartHistory) {
		c.Actual = append(c.Actual, ChartPoint{Date: p.Date, Value: p.Price})
		lo, hi = math.Min(lo, p.Price), math.Max(hi, p.Price)
	}
	for _, row := range res.Forecast {
		c.Forecast = append(c.Forecast, ChartPoint{Date: row.Date, Value: row.PredictedPrice})
		lo, hi = math.Min(lo, row.PredictedPrice), math.Max(hi, row.PredictedPrice)
	}
	if !math.IsInf(lo, 0) {
		c.YMin = lo - chartPadding
		c.YMax = hi + chartPadding
	}
	return c
}

func cents(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}
