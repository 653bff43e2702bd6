// Package forecast projects a trained model forward one calendar day at a time.
package forecast

import (
	"fmt"
	"math"
	"time"

	"crude-outlook/internal/domain"
)

// Predictor is satisfied by *gbrt.Model.
type Predictor interface {
	Predict(sample []float64) float64
}

// Project returns h rows dated origin+1 through origin+h. The first lag is lastPrice; after that
// LagRecursive feeds back each prediction while LagHold keeps lastPrice. Predictions are not
// clamped.
func Project(model Predictor, lastPrice float64, origin time.Time, h int, strategy domain.LagStrategy) ([]domain.ForecastRow, error) {
	if h < 1 {
		return nil, fmt.Errorf("%w: horizon %d must be >= 1", domain.ErrInvalidHorizon, h)
	}
	if !strategy.Valid() {
		return nil, fmt.Errorf("unsupported lag strategy %q", strategy)
	}
	if model == nil {
		return nil, fmt.Errorf("%w: no model", domain.ErrModelTraining)
	}

	origin = domain.TruncateDay(origin)
	rows := make([]domain.ForecastRow, 0, h)
	lag := lastPrice
	for i := 1; i <= h; i++ {
		cal := domain.CalendarRow(origin.AddDate(0, 0, i), lag)
		pred := model.Predict(cal.Vector())
		if math.IsNaN(pred) || math.IsInf(pred, 0) {
			return nil, fmt.Errorf("%w: non-finite forecast for %s", domain.ErrModelTraining, cal.Date.Format(time.DateOnly))
		}
		rows = append(rows, domain.ForecastRow{
			Date:             cal.Date,
			Year:             cal.Year,
			Month:            cal.Month,
			Day:              cal.Day,
			WeekdayIndex:     cal.WeekdayIndex,
			PreviousDayPrice: lag,
			PredictedPrice:   pred,
		})
		if strategy == domain.LagRecursive {
			lag = pred
		}
	}
	return rows, nil
}

// ResolveOrigin picks the date forecasts start after.
func ResolveOrigin(origin domain.Origin, lastObservation, now time.Time) time.Time {
	if origin == domain.OriginWallClock {
		return domain.TruncateDay(now)
	}
	return domain.TruncateDay(lastObservation)
}
