package calculator

import (
	"errors"
	"math"

	"StockLens/internal/model"
)

// TradingDaysPerYear is the 52-week window length in rows.
const TradingDaysPerYear = 252

// Calculate52WeekRange scans the most recent 252 trading days of bar highs and lows.
func Calculate52WeekRange(bars []model.Bar) (high, low float64, err error) {
	if len(bars) == 0 {
		return 0, 0, errors.New("no daily bars provided")
	}
	n := len(bars)
	start := n - TradingDaysPerYear
	if start < 0 {
		start = 0
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for i := start; i < n; i++ {
		if bars[i].High > high {
			high = bars[i].High
		}
		if bars[i].Low < low {
			low = bars[i].Low
		}
	}
	return high, low, nil
}

// RollingMax returns the trailing window maximum; the first window-1 rows are NaN.
func RollingMax(values []float64, window int) []float64 {
	return rolling(values, window, math.Max)
}

// RollingMin returns the trailing window minimum; the first window-1 rows are NaN.
func RollingMin(values []float64, window int) []float64 {
	return rolling(values, window, math.Min)
}

func rolling(values []float64, window int, pick func(a, b float64) float64) []float64 {
	out := nanSlice(len(values))
	if window <= 0 {
		return out
	}
	for i := window - 1; i < len(values); i++ {
		v := values[i-window+1]
		for j := i - window + 2; j <= i; j++ {
			v = pick(v, values[j])
		}
		out[i] = v
	}
	return out
}

// Last52WeekRange returns the last rolling 252-row high and low of closes.
// Both are NaN when fewer than 252 rows exist.
func Last52WeekRange(closes []float64) (high, low float64) {
	n := len(closes)
	if n < TradingDaysPerYear {
		return math.NaN(), math.NaN()
	}
	hi := RollingMax(closes[n-TradingDaysPerYear:], TradingDaysPerYear)
	lo := RollingMin(closes[n-TradingDaysPerYear:], TradingDaysPerYear)
	return hi[len(hi)-1], lo[len(lo)-1]
}

// Calculate52WeekPosition returns where the current price sits within the 52-week range (0.0~1.0).
func Calculate52WeekPosition(current, high, low float64) (float64, error) {
	if high == low {
		return 0.5, nil
	}
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	pos := (current - low) / (high - low)
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	return pos, nil
}
