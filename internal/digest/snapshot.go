package digest

import (
	"context"
	"fmt"
	"math"

	"StockLens/internal/calculator"
	"StockLens/internal/model"
)

const snapshotPeriod = "1y"

// Snapshot is the latest technical picture of one ticker.
// SMA values are NaN when the history is shorter than their window.
type Snapshot struct {
	Close    float64
	SMA50    float64
	SMA200   float64
	RSI      float64
	High52   float64
	Low52    float64
	Position float64 // 0 at the 52-week low, 1 at the high
}

// Deviation returns the close's percentage distance from sma, NaN when sma is.
func (s *Snapshot) Deviation(sma float64) float64 {
	if math.IsNaN(sma) || sma == 0 {
		return math.NaN()
	}
	return (s.Close - sma) / sma * 100
}

// Snapshot computes the latest indicators from one year of daily bars.
func (b *Builder) Snapshot(ctx context.Context, ticker string) (*Snapshot, error) {
	series, err := b.history.FetchHistory(ctx, ticker, model.PeriodRange(snapshotPeriod))
	if err != nil {
		return nil, err
	}
	if series.Empty() {
		return nil, fmt.Errorf("no history for %s: %w", ticker, model.ErrEmptyResult)
	}
	return NewSnapshot(series.Bars)
}

// NewSnapshot derives a Snapshot from ascending bars.
func NewSnapshot(bars []model.Bar) (*Snapshot, error) {
	high, low, err := calculator.Calculate52WeekRange(bars)
	if err != nil {
		return nil, err
	}
	s := &Snapshot{
		Close:  bars[len(bars)-1].Close,
		SMA50:  latestSMA(bars, 50),
		SMA200: latestSMA(bars, 200),
		High52: high,
		Low52:  low,
	}
	if s.RSI, err = calculator.CalculateRSI(bars, 14); err != nil {
		return nil, err
	}
	if s.Position, err = calculator.Calculate52WeekPosition(s.Close, high, low); err != nil {
		return nil, err
	}
	return s, nil
}

func latestSMA(bars []model.Bar, period int) float64 {
	v, err := calculator.CalculateLatestSMA(bars, period)
	if err != nil {
		return math.NaN()
	}
	return v
}
