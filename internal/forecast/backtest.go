package forecast

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"StockLens/internal/model"
)

// Backtest refits m on all but the last holdout points and scores the forecast
// against them with RMSE and R².
func Backtest(m Model, dates []time.Time, values []float64, holdout int) (*model.BacktestResult, error) {
	if holdout <= 0 || len(values) < 2*holdout {
		return nil, fmt.Errorf("backtest needs at least %d observations, got %d: %w", 2*holdout, len(values), model.ErrInsufficientData)
	}
	cut := len(values) - holdout
	fc, err := Run(m, dates[:cut], values[:cut], holdout)
	if err != nil {
		return nil, err
	}

	actual := values[cut:]
	var sse float64
	for i, a := range actual {
		e := a - fc.Forecast[i]
		sse += e * e
	}
	mean := stat.Mean(actual, nil)
	var sst float64
	for _, a := range actual {
		sst += (a - mean) * (a - mean)
	}
	r2 := math.NaN()
	if sst > 0 {
		r2 = 1 - sse/sst
	}

	return &model.BacktestResult{
		Model:    m.Name(),
		Holdout:  holdout,
		RMSE:     math.Sqrt(sse / float64(holdout)),
		RSquared: r2,
		Actual:   append([]float64(nil), actual...),
		Predict:  fc.Forecast,
	}, nil
}
