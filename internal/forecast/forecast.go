// Package forecast implements the prediction view: four forecasting models
// behind one interface, output normalization onto a business-day index, a
// holdout backtest and the forecast figure.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"StockLens/internal/chart"
	"StockLens/internal/model"
)

const (
	MinHorizon     = 7
	MaxHorizon     = 60
	DefaultHorizon = 30
	historyPeriod  = "2y"
	historyTail    = 200
)

// HistorySource is the slice of the collector the prediction view needs.
type HistorySource interface {
	FetchHistory(ctx context.Context, ticker string, r model.Range) (*model.PriceSeries, error)
}

// Request is one press of "Run Forecast".
type Request struct {
	Ticker   string
	Horizon  int
	Model    string
	Backtest bool
}

// Result is everything the prediction view renders.
type Result struct {
	Ticker   string                `json:"ticker"`
	Model    string                `json:"model"`
	Horizon  int                   `json:"horizon"`
	LastDate time.Time             `json:"last_date"`
	Forecast *model.ForecastResult `json:"-"`
	Backtest *model.BacktestResult `json:"-"`
	Figure   *chart.Figure         `json:"figure"`
	Table    chart.Table           `json:"table"`
}

// Service runs forecasts against a history source.
type Service struct {
	data     HistorySource
	registry *Registry
	log      *logrus.Entry
}

func NewService(data HistorySource, registry *Registry, logger logrus.FieldLogger) *Service {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Service{data: data, registry: registry, log: logger.WithField("component", "forecast")}
}

func (s *Service) Models() []string { return s.registry.Names() }

// Validate applies defaults and checks the request.
func (s *Service) Validate(req *Request) (Model, error) {
	req.Ticker = model.NormalizeTicker(req.Ticker)
	if req.Ticker == "" {
		return nil, model.Invalid("ticker", "please enter a stock ticker")
	}
	if req.Horizon == 0 {
		req.Horizon = DefaultHorizon
	}
	if req.Horizon < MinHorizon || req.Horizon > MaxHorizon {
		return nil, model.Invalid("horizon", "must be between %d and %d, got %d", MinHorizon, MaxHorizon, req.Horizon)
	}
	if req.Model == "" {
		req.Model = HoltWintersName
	}
	m, ok := s.registry.Lookup(req.Model)
	if !ok {
		return nil, model.Invalid("model", "unknown model %q", req.Model)
	}
	req.Model = m.Name()
	return m, nil
}

// Predict fetches two years of closes, fits the chosen model and normalizes the output.
func (s *Service) Predict(ctx context.Context, req Request) (*Result, error) {
	m, err := s.Validate(&req)
	if err != nil {
		return nil, err
	}

	series, err := s.data.FetchHistory(ctx, req.Ticker, model.PeriodRange(historyPeriod))
	if err != nil {
		return nil, err
	}
	dates, closes := finiteCloses(series)
	if len(closes) == 0 {
		return nil, fmt.Errorf("no price data for %s: %w", req.Ticker, model.ErrEmptyResult)
	}

	log := s.log.WithFields(logrus.Fields{"ticker": req.Ticker, "model": m.Name(), "horizon": req.Horizon})
	start := time.Now()
	fc, err := Run(m, dates, closes, req.Horizon)
	if err != nil {
		log.WithError(err).Warn("forecast failed")
		return nil, err
	}
	log.WithField("elapsed", time.Since(start).String()).Info("forecast complete")

	res := &Result{
		Ticker:   req.Ticker,
		Model:    m.Name(),
		Horizon:  req.Horizon,
		LastDate: dates[len(dates)-1],
		Forecast: fc,
		Figure:   Figure(req.Ticker, dates, closes, fc),
		Table:    Table(fc),
	}
	if req.Backtest {
		bt, err := Backtest(m, dates, closes, req.Horizon)
		if err != nil {
			log.WithError(err).Warn("backtest skipped")
		} else {
			res.Backtest = bt
		}
	}
	return res, nil
}

// Run fits m and normalizes its output onto the business days after the last date.
func Run(m Model, dates []time.Time, values []float64, horizon int) (*model.ForecastResult, error) {
	raw, err := fit(m, dates, values, horizon)
	if err != nil {
		return nil, err
	}
	return Normalize(m.Name(), raw, dates[len(dates)-1], horizon)
}

// fit converts model errors and panics into ModelFitError.
func fit(m Model, dates []time.Time, values []float64, horizon int) (raw *Raw, err error) {
	defer func() {
		if r := recover(); r != nil {
			raw, err = nil, &model.ModelFitError{Model: m.Name(), Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	raw, err = m.Fit(dates, values, horizon)
	if err != nil {
		return nil, &model.ModelFitError{Model: m.Name(), Err: err}
	}
	return raw, nil
}

// Normalize coerces a model's output to exactly horizon rows on consecutive
// business days after last. Missing interval columns become NaN.
func Normalize(name string, raw *Raw, last time.Time, horizon int) (*model.ForecastResult, error) {
	if raw == nil || countFinite(raw.Forecast) == 0 {
		return nil, model.ErrEmptyForecast
	}
	if len(raw.Forecast) < horizon {
		return nil, &model.ModelFitError{Model: name, Err: fmt.Errorf("produced %d of %d forecast rows", len(raw.Forecast), horizon)}
	}

	out := &model.ForecastResult{
		Model:    name,
		Dates:    BusinessDays(last, horizon),
		Forecast: append([]float64(nil), raw.Forecast[:horizon]...),
		Lower:    column(raw.Lower, horizon),
		Upper:    column(raw.Upper, horizon),
	}
	for i := range out.Lower {
		if out.Lower[i] > out.Upper[i] {
			out.Lower[i], out.Upper[i] = out.Upper[i], out.Lower[i]
		}
	}
	return out, nil
}

func column(v []float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		if i < len(v) {
			out[i] = v[i]
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

func countFinite(v []float64) int {
	n := 0
	for _, x := range v {
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			n++
		}
	}
	return n
}

func finiteCloses(series *model.PriceSeries) ([]time.Time, []float64) {
	var dates []time.Time
	var closes []float64
	for _, b := range series.Bars {
		if math.IsNaN(b.Close) {
			continue
		}
		dates = append(dates, b.Date)
		closes = append(closes, b.Close)
	}
	return dates, closes
}

// Figure plots the last 200 closes, the dotted forecast and its interval band.
func Figure(ticker string, dates []time.Time, closes []float64, fc *model.ForecastResult) *chart.Figure {
	start := len(closes) - historyTail
	if start < 0 {
		start = 0
	}
	return chart.New(ticker+" Historical vs Forecast", "Date", "Price").
		Line("Historical", dates[start:], closes[start:], chart.DashSolid).
		Line("Forecast", fc.Dates, fc.Forecast, chart.DashDot).
		Band(intervalLabel(fc.Model), fc.Dates, fc.Lower, fc.Upper)
}

func intervalLabel(name string) string {
	if name == ProphetName {
		return "80% Confidence Interval"
	}
	return "95% Confidence Interval"
}

// Table lists the forecast rounded to three decimals.
func Table(fc *model.ForecastResult) chart.Table {
	t := chart.Table{Columns: []string{"Date", "Forecast", "Lower CI", "Upper CI"}}
	for i, d := range fc.Dates {
		t.Rows = append(t.Rows, []any{
			d.Format("2006-01-02"),
			chart.Round(fc.Forecast[i], 3),
			chart.Round(fc.Lower[i], 3),
			chart.Round(fc.Upper[i], 3),
		})
	}
	return t
}

// IsModelFailure reports whether err came from fitting rather than data access.
func IsModelFailure(err error) bool {
	var mfe *model.ModelFitError
	return errors.As(err, &mfe) || errors.Is(err, model.ErrEmptyForecast)
}
