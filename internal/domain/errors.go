package domain

import "errors"

var (
	// ErrDataUnavailable means the upstream source failed or returned no rows.
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrInsufficientData means the requested horizon leaves nothing to train or evaluate on.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrModelTraining means the regression fit produced a numerical failure.
	ErrModelTraining = errors.New("model training failure")
	// ErrInvalidHorizon means the horizon is outside the page bounds.
	ErrInvalidHorizon = errors.New("invalid horizon")
	// ErrInvalidHyperparameters means a hyperparameter is outside its slider bounds.
	ErrInvalidHyperparameters = errors.New("invalid hyperparameters")
	// ErrUnknownPage means no page preset exists under the requested name.
	ErrUnknownPage = errors.New("unknown page")
)
