package analysis

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockLens/internal/chart"
	"StockLens/internal/collector"
	"StockLens/internal/logging"
	"StockLens/internal/model"
)

func newService(mock *collector.MockFetcher) *Service {
	c := collector.NewCollector(mock, nil, nil, logging.Discard(), mock)
	return NewService(c, logging.Discard())
}

func TestValidate(t *testing.T) {
	req := Request{Ticker: " msft ", Indicators: []string{"rsi", "SMA (20)", "RSI"}}
	require.NoError(t, Validate(&req))
	assert.Equal(t, "MSFT", req.Ticker)
	assert.Equal(t, DefaultPeriod, req.Period)
	assert.Equal(t, ChartLine, req.Chart)
	assert.Equal(t, []string{IndicatorRSI, IndicatorSMA20}, req.Indicators)

	bad := []Request{
		{Ticker: ""},
		{Ticker: "AAPL", Period: "2y"},
		{Ticker: "AAPL", Chart: "bar"},
		{Ticker: "AAPL", Indicators: []string{"MACD"}},
	}
	for _, r := range bad {
		var ve *model.ValidationError
		assert.ErrorAs(t, Validate(&r), &ve, "%+v", r)
	}
}

func TestAnalyze_LineWithAllIndicators(t *testing.T) {
	svc := newService(&collector.MockFetcher{Days: 300})
	res, err := svc.Analyze(context.Background(), Request{Ticker: "AAPL", Indicators: Indicators})
	require.NoError(t, err)

	// close, SMA 20, SMA 50, EMA 20, BB upper, BB lower
	require.Len(t, res.Figure.Traces, 6)
	assert.Equal(t, "Close", res.Figure.Traces[0].Name)
	assert.Equal(t, chart.DashDot, res.Figure.Traces[4].Dash)
	for _, tr := range res.Figure.Traces {
		assert.Len(t, tr.Y, 300)
	}

	require.NotNil(t, res.RSI)
	require.Len(t, res.RSI.HLines, 2)
	assert.Equal(t, 70.0, res.RSI.HLines[0].Y)

	require.Len(t, res.Recent.Rows, recentRows)
	assert.Len(t, res.Recent.Columns, 6+7)
	assert.Equal(t, "USD", res.Currency)
	assert.Equal(t, "$100.00 B", res.Fundamentals[0].Value)
	assert.Equal(t, "25.00", res.Fundamentals[1].Value)
	assert.Equal(t, missing, res.Fundamentals[2].Value)
}

func TestAnalyze_Candlestick(t *testing.T) {
	svc := newService(&collector.MockFetcher{Days: 30})
	res, err := svc.Analyze(context.Background(), Request{Ticker: "AAPL", Chart: "Candlestick", Indicators: []string{IndicatorSMA20}})
	require.NoError(t, err)
	require.Len(t, res.Figure.Traces, 1)
	assert.Equal(t, chart.KindCandlestick, res.Figure.Traces[0].Kind)
	assert.Nil(t, res.RSI)
}

func TestAnalyze_EmptyHistory(t *testing.T) {
	svc := newService(&collector.MockFetcher{Data: map[string][]model.Bar{}})
	_, err := svc.Analyze(context.Background(), Request{Ticker: "ZZZZ"})
	assert.True(t, errors.Is(err, model.ErrEmptyResult))
}

func TestRoundBars(t *testing.T) {
	got := RoundBars([]model.Bar{{Open: 1.005, High: 2.3456, Low: 0.111, Close: 1.999}})
	assert.Equal(t, 2.35, got[0].High)
	assert.Equal(t, 0.11, got[0].Low)
	assert.Equal(t, 2.0, got[0].Close)
}

func TestComputeIndicators_Lengths(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i%7)
	}
	set := ComputeIndicators(closes, []string{IndicatorBollinger, IndicatorSMA50})
	assert.Equal(t, []string{model.ColBBMid, model.ColBBUpper, model.ColBBLower, model.ColSMA50}, set.Order)
	for _, col := range set.Order {
		assert.Len(t, set.Columns[col], 60)
	}
	assert.True(t, math.IsNaN(set.Columns[model.ColSMA50][48]))
	assert.False(t, math.IsNaN(set.Columns[model.ColSMA50][49]))
}

func TestPriceMetrics(t *testing.T) {
	m := PriceMetrics([]float64{100, 95})
	assert.Equal(t, "95.00", m[0].Value)
	assert.Equal(t, "🔴 -5.00 (-5.00%)", m[0].Delta)
	assert.Equal(t, missing, m[1].Value)

	single := PriceMetrics([]float64{1234.5})
	assert.Equal(t, "1,234.50", single[0].Value)
	assert.Equal(t, "🟢 +0.00 (+0.00%)", single[0].Delta)

	year := make([]float64, 260)
	for i := range year {
		year[i] = float64(i)
	}
	m = PriceMetrics(year)
	assert.Equal(t, "259.00", m[1].Value)
	assert.Equal(t, "8.00", m[2].Value)
}

func TestCurrencyFor(t *testing.T) {
	assert.Equal(t, "INR", CurrencyFor("RELIANCE.NS", ""))
	assert.Equal(t, "INR", CurrencyFor("TCS.BO", "USD"))
	assert.Equal(t, "INR", CurrencyFor("X", "INR"))
	assert.Equal(t, "USD", CurrencyFor("AAPL", "EUR"))
	assert.Equal(t, "₹", CurrencySymbol("INR"))
	assert.Equal(t, "$", CurrencySymbol("USD"))
}

func TestFormatMarketCap(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	assert.Equal(t, "$3.45 T", FormatMarketCap(f(3.449e12), "$"))
	assert.Equal(t, "₹12.50 B", FormatMarketCap(f(12.5e9), "₹"))
	assert.Equal(t, "$7.00 M", FormatMarketCap(f(7e6), "$"))
	assert.Equal(t, "$12,345.00", FormatMarketCap(f(12345), "$"))
	assert.Equal(t, missing, FormatMarketCap(f(0), "$"))
	assert.Equal(t, missing, FormatMarketCap(nil, "$"))
}

func TestFundamentalMetrics(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	ex := time.Date(2024, 2, 9, 0, 0, 0, 0, time.UTC)
	got := FundamentalMetrics(model.Fundamentals{
		Beta:          f(0),
		DividendYield: f(0.44),
		ExDividend:    &ex,
	}, "USD")
	byLabel := map[string]string{}
	for _, m := range got {
		byLabel[m.Label] = m.Value
	}
	assert.Equal(t, "0.00", byLabel["Beta (5Y Monthly)"])
	assert.Equal(t, "— (0.44%)", byLabel["Forward Dividend & Yield"])
	assert.Equal(t, "Feb 09, 2024", byLabel["Ex-Dividend Date"])
	assert.Equal(t, missing, byLabel["1y Target Est"])

	empty := FundamentalMetrics(model.EmptyFundamentals("X"), "USD")
	for _, m := range empty {
		assert.Equal(t, missing, m.Value, m.Label)
	}
}
