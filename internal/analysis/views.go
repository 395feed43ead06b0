package analysis

import (
	"time"

	"StockLens/internal/chart"
	"StockLens/internal/model"
)

// overlayNames maps indicator columns to their legend names on the price chart.
var overlayNames = map[string]string{
	model.ColSMA20:   "SMA 20",
	model.ColSMA50:   "SMA 50",
	model.ColEMA20:   "EMA 20",
	model.ColBBUpper: "BB Upper",
	model.ColBBLower: "BB Lower",
}

// PriceFigure draws close plus overlays, or plain OHLC candles.
func PriceFigure(ticker, kind string, bars []model.Bar, set *model.IndicatorSet) *chart.Figure {
	dates := make([]time.Time, len(bars))
	open := make([]float64, len(bars))
	high := make([]float64, len(bars))
	low := make([]float64, len(bars))
	closes := make([]float64, len(bars))
	for i, b := range bars {
		dates[i], open[i], high[i], low[i], closes[i] = b.Date, b.Open, b.High, b.Low, b.Close
	}

	fig := chart.New(ticker+" Price", "Date", "Price")
	if kind == ChartCandlestick {
		return fig.Candlestick("Candlestick", dates, open, high, low, closes)
	}
	fig.Line("Close", dates, closes, chart.DashSolid)
	for _, col := range set.Order {
		name, ok := overlayNames[col]
		if !ok {
			continue
		}
		dash := chart.DashSolid
		if col == model.ColBBUpper || col == model.ColBBLower {
			dash = chart.DashDot
		}
		fig.Line(name, dates, set.Columns[col], dash)
	}
	return fig
}

// RSIFigure is the oscillator with dotted 70/30 guides.
func RSIFigure(dates []time.Time, rsi []float64) *chart.Figure {
	return chart.New("RSI (Relative Strength Index)", "Date", "RSI").
		Line("RSI", dates, rsi, chart.DashSolid).
		HLine(70, chart.DashDot).
		HLine(30, chart.DashDot)
}

// RecentTable is the last n rows with every indicator column.
func RecentTable(bars []model.Bar, set *model.IndicatorSet, n int) chart.Table {
	start := len(bars) - n
	if start < 0 {
		start = 0
	}
	cols := append([]string{"Date", "Open", "High", "Low", "Close", "Volume"}, set.Order...)
	rows := make([][]any, 0, len(bars)-start)
	for i := start; i < len(bars); i++ {
		b := bars[i]
		row := []any{b.Date.Format("2006-01-02"), b.Open, b.High, b.Low, b.Close, b.Volume}
		for _, col := range set.Order {
			row = append(row, set.Columns[col][i])
		}
		rows = append(rows, row)
	}
	return chart.Table{Columns: cols, Rows: rows}
}
