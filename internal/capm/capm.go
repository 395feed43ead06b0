// Package capm regresses a stock's daily returns on a benchmark's and reports
// CAPM statistics with the scatter, returns and normalized-price views.
package capm

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"StockLens/internal/calculator"
	"StockLens/internal/chart"
	"StockLens/internal/model"
)

const (
	DefaultRiskFreeRate = 2.0 // percent
	window              = "5y"
	tradingDays         = 252
)

// Source says which collector call serves a benchmark.
type Source int

const (
	SourcePrice Source = iota
	SourceMacro
)

// Benchmark is one selectable index.
type Benchmark struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Source Source `json:"-"`
}

// Benchmarks lists the selectable indices in display order.
var Benchmarks = []Benchmark{
	{Name: "S&P 500 (US)", Symbol: "^GSPC"},
	{Name: "Nasdaq 100 (US)", Symbol: "^NDX"},
	{Name: "Dow Jones (US)", Symbol: "^DJI"},
	{Name: "Nifty 50 (India)", Symbol: "^NSEI"},
	{Name: "Sensex (India)", Symbol: "^BSESN"},
	{Name: "S&P 500 (FRED)", Symbol: "SP500", Source: SourceMacro},
}

// LookupBenchmark matches a display name or symbol, case-insensitively.
func LookupBenchmark(key string) (Benchmark, bool) {
	key = strings.TrimSpace(key)
	for _, b := range Benchmarks {
		if strings.EqualFold(b.Name, key) || strings.EqualFold(b.Symbol, key) {
			return b, true
		}
	}
	return Benchmark{}, false
}

// DataSource is the slice of the collector the CAPM view needs.
type DataSource interface {
	FetchHistory(ctx context.Context, ticker string, r model.Range) (*model.PriceSeries, error)
	FetchBenchmark(ctx context.Context, ticker string, r model.Range) (*model.BenchmarkSeries, error)
	FetchMacro(ctx context.Context, seriesKey string, r model.Range) (*model.BenchmarkSeries, error)
}

// Request is one press of "Run CAPM Analysis".
type Request struct {
	Ticker       string
	Benchmark    string
	RiskFreeRate float64 // percent
}

// Aligned holds the inner-joined prices and their returns. Returns[i] is the
// change from Dates[i] to Dates[i+1].
type Aligned struct {
	Dates       []time.Time
	Stock       []float64
	Bench       []float64
	StockReturn []float64
	BenchReturn []float64
}

// Result carries the CAPM statistics and views.
type Result struct {
	Ticker         string                  `json:"ticker"`
	Benchmark      Benchmark               `json:"benchmark"`
	RiskFreeRate   float64                 `json:"risk_free_rate"`
	Regression     *model.RegressionResult `json:"-"`
	ExpectedReturn float64                 `json:"-"` // annual, percent
	Metrics        Metrics                 `json:"metrics"`
	Observations   int                     `json:"observations"`
	Interpretation []string                `json:"interpretation"`
	Scatter        *chart.Figure           `json:"scatter"`
	Returns        *chart.Figure           `json:"returns"`
	Normalized     *chart.Figure           `json:"normalized"`
	Summary        chart.Table             `json:"summary"`
}

// Metrics are the headline numbers, rounded for display.
type Metrics struct {
	Alpha          chart.Num `json:"alpha"`
	Beta           chart.Num `json:"beta"`
	ExpectedReturn chart.Num `json:"expected_return_pct"`
	RSquared       chart.Num `json:"r_squared"`
	BetaPValue     chart.Num `json:"beta_p_value"`
}

func newMetrics(reg *model.RegressionResult, expected float64) Metrics {
	return Metrics{
		Alpha:          chart.Num(chart.Round(reg.Alpha, 4)),
		Beta:           chart.Num(chart.Round(reg.Beta, 4)),
		ExpectedReturn: chart.Num(chart.Round(expected, 2)),
		RSquared:       chart.Num(chart.Round(reg.RSquared, 4)),
		BetaPValue:     chart.Num(chart.Round(reg.PValue, 4)),
	}
}

// Service computes CAPM results.
type Service struct {
	data DataSource
	log  *logrus.Entry
}

func NewService(data DataSource, logger logrus.FieldLogger) *Service {
	return &Service{data: data, log: logger.WithField("component", "capm")}
}

// Validate applies defaults and resolves the benchmark.
func Validate(req *Request) (Benchmark, error) {
	req.Ticker = model.NormalizeTicker(req.Ticker)
	if req.Ticker == "" {
		return Benchmark{}, model.Invalid("ticker", "please enter a stock ticker")
	}
	if req.Benchmark == "" {
		req.Benchmark = Benchmarks[0].Name
	}
	b, ok := LookupBenchmark(req.Benchmark)
	if !ok {
		return Benchmark{}, model.Invalid("benchmark", "unknown benchmark %q", req.Benchmark)
	}
	return b, nil
}

// Run fetches five years of both series, aligns them and fits the regression.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	bench, err := Validate(&req)
	if err != nil {
		return nil, err
	}
	r := model.PeriodRange(window)

	stock, err := s.data.FetchHistory(ctx, req.Ticker, r)
	if err != nil {
		return nil, err
	}
	var index *model.BenchmarkSeries
	if bench.Source == SourceMacro {
		index, err = s.data.FetchMacro(ctx, bench.Symbol, r)
	} else {
		index, err = s.data.FetchBenchmark(ctx, bench.Symbol, r)
	}
	if err != nil {
		return nil, err
	}
	if stock.Empty() || index.Empty() {
		return nil, fmt.Errorf("one of the datasets is empty, cannot compute CAPM: %w", model.ErrEmptyResult)
	}

	aligned, err := Align(stock.Benchmark(), index)
	if err != nil {
		return nil, err
	}
	reg, err := calculator.OLS(aligned.BenchReturn, aligned.StockReturn)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Ticker:         req.Ticker,
		Benchmark:      bench,
		RiskFreeRate:   req.RiskFreeRate,
		Regression:     reg,
		ExpectedReturn: ExpectedReturn(req.RiskFreeRate, reg.Beta, aligned.BenchReturn),
		Observations:   reg.N,
		Interpretation: Interpretation(reg.Beta),
	}
	res.Metrics = newMetrics(reg, res.ExpectedReturn)
	res.Scatter = ScatterFigure(req.Ticker, bench.Name, aligned, reg)
	res.Returns = ReturnsFigure(req.Ticker, bench.Name, aligned)
	res.Normalized = NormalizedFigure(req.Ticker, bench.Name, aligned)
	res.Summary = Summary(reg)

	s.log.WithFields(logrus.Fields{
		"ticker":    req.Ticker,
		"benchmark": bench.Symbol,
		"beta":      reg.Beta,
		"n":         reg.N,
	}).Info("capm regression complete")
	return res, nil
}

// Align inner-joins the two price series on date and computes daily returns,
// dropping the first row. Rows with a non-positive or infinite price on
// either side are left out of the join.
func Align(stock, bench *model.BenchmarkSeries) (*Aligned, error) {
	byDate := make(map[time.Time]float64, bench.Len())
	for _, p := range bench.Points {
		if usable(p.Close) {
			byDate[p.Date] = p.Close
		}
	}
	a := &Aligned{}
	for _, p := range stock.Points {
		if !usable(p.Close) {
			continue
		}
		if b, ok := byDate[p.Date]; ok {
			a.Dates = append(a.Dates, p.Date)
			a.Stock = append(a.Stock, p.Close)
			a.Bench = append(a.Bench, b)
		}
	}
	if len(a.Dates) < 2 {
		return nil, fmt.Errorf("only %d aligned dates between stock and benchmark: %w", len(a.Dates), model.ErrInsufficientData)
	}
	a.StockReturn = calculator.DailyReturns(a.Stock)
	a.BenchReturn = calculator.DailyReturns(a.Bench)
	return a, nil
}

// usable rejects prices a percentage change cannot be taken from.
func usable(price float64) bool {
	return price > 0 && !math.IsInf(price, 0)
}

// ExpectedReturn is rf + beta × annualized mean benchmark return, in percent.
func ExpectedReturn(rfPercent, beta float64, benchReturns []float64) float64 {
	annual := stat.Mean(benchReturns, nil) * tradingDays
	return rfPercent + beta*annual*100
}

// Interpretation explains the beta value in plain words.
func Interpretation(beta float64) []string {
	lines := []string{
		"Beta > 1: stock is more volatile than the market",
		"Beta < 1: stock is less volatile than the market",
		"Beta < 0: stock moves inversely to the market",
	}
	switch {
	case beta < 0:
		return append(lines, fmt.Sprintf("With beta %.2f this stock tends to move against the market.", beta))
	case beta > 1:
		return append(lines, fmt.Sprintf("With beta %.2f this stock amplifies market moves.", beta))
	default:
		return append(lines, fmt.Sprintf("With beta %.2f this stock moves less than the market.", beta))
	}
}
