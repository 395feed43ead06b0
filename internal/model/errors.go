package model

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyResult means the provider answered but returned no rows. Callers surface it as a warning.
	ErrEmptyResult = errors.New("no data returned")
	// ErrInsufficientData means too few aligned observations to compute a statistic.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrEmptyForecast means a model produced no usable forecast rows.
	ErrEmptyForecast = errors.New("forecast is empty, try another model or ticker")
)

// FetchError wraps a provider failure for one ticker.
type FetchError struct {
	Ticker string
	Err    error
}

func (e *FetchError) Error() string { return fmt.Sprintf("fetch %s: %v", e.Ticker, e.Err) }

func (e *FetchError) Unwrap() error { return e.Err }

// ModelFitError reports that a forecasting model failed to fit or predict.
type ModelFitError struct {
	Model string
	Err   error
}

func (e *ModelFitError) Error() string { return fmt.Sprintf("%s model failed: %v", e.Model, e.Err) }

func (e *ModelFitError) Unwrap() error { return e.Err }

// ValidationError reports a rejected user input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason) }

func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
