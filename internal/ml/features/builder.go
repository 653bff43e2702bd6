// Package features turns a daily close series into the calendar + lag rows the regressor trains on.
package features

import (
	"fmt"

	"crude-outlook/internal/domain"
)

// Build emits one row per point. The first point has no previous day: LagFillDrop discards it,
// LagFillBackfill reuses its own price as the lag.
func Build(series *domain.PriceSeries, fill domain.LagFill) ([]domain.FeatureRow, error) {
	if !fill.Valid() {
		return nil, fmt.Errorf("unsupported lag fill %q", fill)
	}
	if series.Len() == 0 {
		return nil, fmt.Errorf("%w: empty series", domain.ErrInsufficientData)
	}
	points := series.Points
	for i := range points {
		if points[i].Price <= 0 {
			return nil, fmt.Errorf("non-positive price %.4f on %s", points[i].Price, points[i].Date.Format("2006-01-02"))
		}
		if i > 0 && !points[i].Date.After(points[i-1].Date) {
			return nil, fmt.Errorf("dates not strictly increasing at %s", points[i].Date.Format("2006-01-02"))
		}
	}

	rows := make([]domain.FeatureRow, 0, len(points))
	for i := range points {
		var prev float64
		switch {
		case i > 0:
			prev = points[i-1].Price
		case fill == domain.LagFillBackfill:
			prev = points[0].Price
		default:
			continue
		}
		row := domain.CalendarRow(points[i].Date, prev)
		row.Price = points[i].Price
		rows = append(rows, row)
	}
	return rows, nil
}

// Matrix splits rows into model inputs and targets.
func Matrix(rows []domain.FeatureRow) ([][]float64, []float64) {
	samples := make([][]float64, len(rows))
	targets := make([]float64, len(rows))
	for i := range rows {
		samples[i] = rows[i].Vector()
		targets[i] = rows[i].Price
	}
	return samples, targets
}
