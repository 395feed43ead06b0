package calculator

import (
	"errors"
	"math"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"

	"StockLens/internal/model"
)

// CalculateSMA computes the simple moving average of the most recent period prices.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// CalculateLatestSMA returns the latest period-day simple moving average of closes.
func CalculateLatestSMA(bars []model.Bar, period int) (float64, error) {
	return CalculateSMA(extractCloses(bars), period)
}

// SMA returns the trailing simple moving average aligned with values.
// The first window-1 entries are NaN.
func SMA(values []float64, window int) []float64 {
	if window <= 0 || len(values) < window {
		return nanSlice(len(values))
	}
	sma := trend.NewSmaWithPeriod[float64](window)
	result := helper.ChanToSlice(sma.Compute(helper.SliceToChan(values)))
	return padFront(result, len(values))
}

// EMA returns the exponential moving average with alpha = 2/(span+1), seeded
// with the first value and without bias adjustment.
func EMA(values []float64, span int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 || span <= 0 {
		return out
	}
	alpha := 2.0 / (float64(span) + 1.0)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// Bollinger returns the mid band (SMA) and mid ± k * rolling sample standard deviation.
func Bollinger(values []float64, window int, k float64) (mid, upper, lower []float64) {
	n := len(values)
	mid = SMA(values, window)
	upper = nanSlice(n)
	lower = nanSlice(n)
	if window < 2 {
		return mid, upper, lower
	}
	for i := window - 1; i < n; i++ {
		mean := mid[i]
		var ss float64
		for j := i - window + 1; j <= i; j++ {
			d := values[j] - mean
			ss += d * d
		}
		std := math.Sqrt(ss / float64(window-1))
		upper[i] = mean + k*std
		lower[i] = mean - k*std
	}
	return mid, upper, lower
}

func extractCloses(bars []model.Bar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// padFront left-pads an indicator result with NaN up to length n.
func padFront(result []float64, n int) []float64 {
	if len(result) >= n {
		return result[len(result)-n:]
	}
	out := nanSlice(n - len(result))
	return append(out, result...)
}
