package domain

import (
	"fmt"
	"time"
)

// Slider bounds exposed to users on tunable pages.
const (
	MinTrees        = 5
	MaxTrees        = 1000
	MinLearningRate = 0.01
	MaxLearningRate = 0.8
	MinMaxDepth     = 1
	MaxMaxDepth     = 12
)

// LagStrategy controls how the lag feature is propagated across the forecast horizon.
type LagStrategy string

const (
	// LagRecursive feeds each prediction back as the next day's lag.
	LagRecursive LagStrategy = "recursive"
	// LagHold repeats the last known actual price for every future day.
	LagHold LagStrategy = "hold"
)

func (s LagStrategy) Valid() bool {
	return s == LagRecursive || s == LagHold
}

// Origin selects the date forecasts start after.
type Origin string

const (
	OriginLastObservation Origin = "last_observation"
	OriginWallClock       Origin = "wall_clock"
)

func (o Origin) Valid() bool {
	return o == OriginLastObservation || o == OriginWallClock
}

// Hyperparameters configures the gradient-boosted regressor.
type Hyperparameters struct {
	Trees              int     `json:"trees" yaml:"trees" default:"300" validate:"gte=5,lte=1000"`
	LearningRate       float64 `json:"learning_rate" yaml:"learning_rate" default:"0.1" validate:"gte=0.01,lte=0.8"`
	MaxDepth           int     `json:"max_depth" yaml:"max_depth" default:"6" validate:"gte=1,lte=12"`
	L2                 float64 `json:"l2" yaml:"l2" default:"1" validate:"gte=0"`
	EarlyStopping      bool    `json:"early_stopping" yaml:"early_stopping"`
	Patience           int     `json:"patience" yaml:"patience" default:"10" validate:"gte=1"`
	ValidationFraction float64 `json:"validation_fraction" yaml:"validation_fraction" default:"0.2" validate:"gt=0,lt=1"`
}

// Validate applies the user-facing slider bounds.
func (h Hyperparameters) Validate() error {
	if h.Trees < MinTrees || h.Trees > MaxTrees {
		return fmt.Errorf("%w: trees %d outside [%d, %d]", ErrInvalidHyperparameters, h.Trees, MinTrees, MaxTrees)
	}
	if h.LearningRate < MinLearningRate || h.LearningRate > MaxLearningRate {
		return fmt.Errorf("%w: learning rate %.4f outside [%.2f, %.2f]", ErrInvalidHyperparameters, h.LearningRate, MinLearningRate, MaxLearningRate)
	}
	if h.MaxDepth < MinMaxDepth || h.MaxDepth > MaxMaxDepth {
		return fmt.Errorf("%w: max depth %d outside [%d, %d]", ErrInvalidHyperparameters, h.MaxDepth, MinMaxDepth, MaxMaxDepth)
	}
	if h.L2 < 0 {
		return fmt.Errorf("%w: l2 must be >= 0", ErrInvalidHyperparameters)
	}
	if h.EarlyStopping {
		if h.Patience < 1 {
			return fmt.Errorf("%w: patience must be >= 1", ErrInvalidHyperparameters)
		}
		if h.ValidationFraction <= 0 || h.ValidationFraction >= 1 {
			return fmt.Errorf("%w: validation fraction must be in (0, 1)", ErrInvalidHyperparameters)
		}
	}
	return nil
}

// Key encodes every hyperparameter so cached models never outlive a parameter change.
func (h Hyperparameters) Key() string {
	return fmt.Sprintf("t%d-lr%g-d%d-l2%g-es%t-p%d-vf%g",
		h.Trees, h.LearningRate, h.MaxDepth, h.L2, h.EarlyStopping, h.Patience, h.ValidationFraction)
}

// EvaluationResult holds error metrics over the evaluation window.
type EvaluationResult struct {
	MAE         float64 `json:"mae"`
	MSE         float64 `json:"mse"`
	RMSE        float64 `json:"rmse"`
	MAPE        float64 `json:"mape"`
	Reliability float64 `json:"reliability"`
	Count       int     `json:"count"`
}

// EvaluationRow pairs an actual close with the model's held-out prediction.
type EvaluationRow struct {
	Date      time.Time `json:"date"`
	Actual    float64   `json:"actual"`
	Predicted float64   `json:"predicted"`
}

// ForecastRow is a single projected day.
type ForecastRow struct {
	Date             time.Time `json:"date"`
	Year             int       `json:"year"`
	Month            int       `json:"month"`
	Day              int       `json:"day"`
	WeekdayIndex     int       `json:"weekday_index"`
	PreviousDayPrice float64   `json:"previous_day_price"`
	PredictedPrice   float64   `json:"predicted_price"`
}

// ForecastRun is the persisted summary of one pipeline execution.
type ForecastRun struct {
	ID          string           `json:"id"`
	Session     string           `json:"session"`
	Page        string           `json:"page"`
	Ticker      string           `json:"ticker"`
	Window      string           `json:"window"`
	Horizon     int              `json:"horizon"`
	LagStrategy LagStrategy      `json:"lag_strategy"`
	Hyper       Hyperparameters  `json:"hyperparameters"`
	Evaluation  EvaluationResult `json:"evaluation"`
	Forecast    []ForecastRow    `json:"forecast"`
	LastPrice   float64          `json:"last_price"`
	LastDate    time.Time        `json:"last_date"`
	CreatedAt   time.Time        `json:"created_at"`
}
