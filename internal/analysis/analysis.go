// Package analysis builds the stock analysis view: price history with optional
// technical overlays, headline metrics, a fundamentals snapshot and recent rows.
package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"StockLens/internal/calculator"
	"StockLens/internal/chart"
	"StockLens/internal/model"
)

// Periods accepted by the view, in display order.
var Periods = []string{"1y", "5y", "10y", "max"}

const DefaultPeriod = "5y"

// Indicator names as offered to the user.
const (
	IndicatorSMA20     = "SMA (20)"
	IndicatorSMA50     = "SMA (50)"
	IndicatorEMA20     = "EMA (20)"
	IndicatorBollinger = "Bollinger Bands"
	IndicatorRSI       = "RSI"
)

var Indicators = []string{IndicatorSMA20, IndicatorSMA50, IndicatorEMA20, IndicatorBollinger, IndicatorRSI}

// Chart types.
const (
	ChartLine        = "line"
	ChartCandlestick = "candlestick"
)

const (
	rsiWindow      = 14
	bollingerWidth = 20
	bollingerK     = 2
	recentRows     = 10
)

// DataSource is the slice of the collector the analysis view needs.
type DataSource interface {
	FetchHistory(ctx context.Context, ticker string, r model.Range) (*model.PriceSeries, error)
	FetchFundamentals(ctx context.Context, ticker string) model.Fundamentals
}

// Request is one press of "Search Stock".
type Request struct {
	Ticker     string
	Period     string
	Indicators []string
	Chart      string
}

// Metric is a labelled display value with an optional change annotation.
type Metric struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Delta string `json:"delta,omitempty"`
	Up    *bool  `json:"up,omitempty"`
}

// Result is everything the analysis page shows.
type Result struct {
	Ticker       string        `json:"ticker"`
	Period       string        `json:"period"`
	Chart        string        `json:"chart"`
	Indicators   []string      `json:"indicators"`
	Currency     string        `json:"currency"`
	Metrics      []Metric      `json:"metrics"`
	Fundamentals []Metric      `json:"fundamentals"`
	Figure       *chart.Figure `json:"figure"`
	RSI          *chart.Figure `json:"rsi,omitempty"`
	Recent       chart.Table   `json:"recent"`
}

// Service assembles analysis results.
type Service struct {
	data DataSource
	log  *logrus.Entry
}

func NewService(data DataSource, logger logrus.FieldLogger) *Service {
	return &Service{data: data, log: logger.WithField("component", "analysis")}
}

// Validate normalizes the request in place.
func Validate(req *Request) error {
	req.Ticker = model.NormalizeTicker(req.Ticker)
	if req.Ticker == "" {
		return model.Invalid("ticker", "please enter a ticker symbol")
	}

	req.Period = strings.ToLower(strings.TrimSpace(req.Period))
	if req.Period == "" {
		req.Period = DefaultPeriod
	}
	if !contains(Periods, req.Period) {
		return model.Invalid("period", "must be one of %s", strings.Join(Periods, ", "))
	}

	req.Chart = strings.ToLower(strings.TrimSpace(req.Chart))
	switch req.Chart {
	case "":
		req.Chart = ChartLine
	case ChartLine, ChartCandlestick:
	default:
		return model.Invalid("chart", "must be line or candlestick")
	}

	seen := make(map[string]bool, len(req.Indicators))
	var picked []string
	for _, raw := range req.Indicators {
		name, ok := lookupIndicator(raw)
		if !ok {
			return model.Invalid("indicators", "unknown indicator %q", strings.TrimSpace(raw))
		}
		if !seen[name] {
			seen[name] = true
			picked = append(picked, name)
		}
	}
	req.Indicators = picked
	return nil
}

func lookupIndicator(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	for _, name := range Indicators {
		if strings.EqualFold(name, raw) {
			return name, true
		}
	}
	return "", false
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// Analyze fetches history and fundamentals and builds the view.
func (s *Service) Analyze(ctx context.Context, req Request) (*Result, error) {
	if err := Validate(&req); err != nil {
		return nil, err
	}
	series, err := s.data.FetchHistory(ctx, req.Ticker, model.PeriodRange(req.Period))
	if err != nil {
		return nil, err
	}
	if series.Empty() {
		return nil, fmt.Errorf("no data found for %s: %w", req.Ticker, model.ErrEmptyResult)
	}
	fund := s.data.FetchFundamentals(ctx, req.Ticker)

	bars := RoundBars(series.Bars)
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	set := ComputeIndicators(closes, req.Indicators)

	cur := CurrencyFor(req.Ticker, fund.Currency)
	res := &Result{
		Ticker:       req.Ticker,
		Period:       req.Period,
		Chart:        req.Chart,
		Indicators:   req.Indicators,
		Currency:     cur,
		Metrics:      PriceMetrics(closes),
		Fundamentals: FundamentalMetrics(fund, cur),
		Figure:       PriceFigure(req.Ticker, req.Chart, bars, set),
		Recent:       RecentTable(bars, set, recentRows),
	}
	if set.Has(model.ColRSI) {
		res.RSI = RSIFigure(series.Dates(), set.Columns[model.ColRSI])
	}

	s.log.WithFields(logrus.Fields{
		"ticker":     req.Ticker,
		"period":     req.Period,
		"rows":       len(bars),
		"indicators": len(req.Indicators),
		"fund_src":   fund.Source,
	}).Info("analysis built")
	return res, nil
}

// RoundBars rounds OHLC to cents before anything is derived from them.
func RoundBars(bars []model.Bar) []model.Bar {
	out := make([]model.Bar, len(bars))
	for i, b := range bars {
		b.Open = chart.Round(b.Open, 2)
		b.High = chart.Round(b.High, 2)
		b.Low = chart.Round(b.Low, 2)
		b.Close = chart.Round(b.Close, 2)
		out[i] = b
	}
	return out
}

// ComputeIndicators adds one or more columns per selected indicator. Every
// column has len(closes) rows.
func ComputeIndicators(closes []float64, selected []string) *model.IndicatorSet {
	set := model.NewIndicatorSet()
	for _, name := range selected {
		switch name {
		case IndicatorSMA20:
			set.Add(model.ColSMA20, calculator.SMA(closes, 20))
		case IndicatorSMA50:
			set.Add(model.ColSMA50, calculator.SMA(closes, 50))
		case IndicatorEMA20:
			set.Add(model.ColEMA20, calculator.EMA(closes, 20))
		case IndicatorBollinger:
			mid, upper, lower := calculator.Bollinger(closes, bollingerWidth, bollingerK)
			set.Add(model.ColBBMid, mid)
			set.Add(model.ColBBUpper, upper)
			set.Add(model.ColBBLower, lower)
		case IndicatorRSI:
			set.Add(model.ColRSI, calculator.RSI(closes, rsiWindow))
		}
	}
	return set
}
