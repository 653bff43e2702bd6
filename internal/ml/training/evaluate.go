// Package training splits feature tables chronologically, fits the booster and scores it.
package training

import (
	"fmt"
	"math"

	"crude-outlook/internal/domain"

	"gonum.org/v1/gonum/stat"
)

// mapeFloor keeps the percentage error finite when an actual price is zero.
const mapeFloor = 1e-8

// Split returns the training prefix rows[:len-h] and the evaluation suffix rows[len-h:].
func Split(rows []domain.FeatureRow, h int) ([]domain.FeatureRow, []domain.FeatureRow, error) {
	if h < 1 {
		return nil, nil, fmt.Errorf("%w: horizon %d must be >= 1", domain.ErrInvalidHorizon, h)
	}
	cut := len(rows) - h
	if cut < 1 {
		return nil, nil, fmt.Errorf("%w: %d feature rows cannot hold out %d days and still train", domain.ErrInsufficientData, len(rows), h)
	}
	return rows[:cut], rows[cut:], nil
}

// Evaluate scores predictions against actuals. Reliability is 100 - MAPE floored at zero.
func Evaluate(actual, predicted []float64) (domain.EvaluationResult, error) {
	if len(actual) == 0 {
		return domain.EvaluationResult{}, fmt.Errorf("%w: empty evaluation window", domain.ErrInsufficientData)
	}
	if len(actual) != len(predicted) {
		return domain.EvaluationResult{}, fmt.Errorf("evaluation length mismatch: %d actuals, %d predictions", len(actual), len(predicted))
	}

	abs := make([]float64, len(actual))
	sq := make([]float64, len(actual))
	pct := make([]float64, len(actual))
	for i := range actual {
		d := actual[i] - predicted[i]
		abs[i] = math.Abs(d)
		sq[i] = d * d
		pct[i] = abs[i] / math.Max(math.Abs(actual[i]), mapeFloor)
	}

	mse := stat.Mean(sq, nil)
	mape := stat.Mean(pct, nil) * 100
	return domain.EvaluationResult{
		MAE:         stat.Mean(abs, nil),
		MSE:         mse,
		RMSE:        math.Sqrt(mse),
		MAPE:        mape,
		Reliability: Reliability(mape),
		Count:       len(actual),
	}, nil
}

func Reliability(mape float64) float64 {
	return math.Max(0, 100-mape)
}
