package model

import "time"

// RegressionResult is an ordinary least squares fit of y = alpha + beta*x with inference.
type RegressionResult struct {
	Alpha       float64
	Beta        float64
	RSquared    float64
	PValue      float64 // two-sided p-value of beta
	StdErrAlpha float64
	StdErrBeta  float64
	TAlpha      float64
	TBeta       float64
	PAlpha      float64
	AlphaCI     [2]float64
	BetaCI      [2]float64
	N           int
	DF          int
	ResidualStd float64
}

// ForecastResult is one row per future business day.
type ForecastResult struct {
	Model    string
	Dates    []time.Time
	Forecast []float64
	Lower    []float64
	Upper    []float64
}

func (r *ForecastResult) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Forecast)
}

// BacktestResult scores a model against a held-out tail of the history.
type BacktestResult struct {
	Model    string
	Holdout  int
	RMSE     float64
	RSquared float64
	Actual   []float64
	Predict  []float64
}
