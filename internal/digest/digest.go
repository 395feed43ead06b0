// Package digest runs the CAPM and forecast views over a watchlist and
// collects the results into one report.
package digest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"StockLens/internal/capm"
	"StockLens/internal/chart"
	"StockLens/internal/forecast"
	"StockLens/internal/model"
)

// HistorySource is satisfied by *collector.Collector.
type HistorySource interface {
	FetchHistory(ctx context.Context, ticker string, r model.Range) (*model.PriceSeries, error)
}

// CAPMRunner is satisfied by *capm.Service.
type CAPMRunner interface {
	Run(ctx context.Context, req capm.Request) (*capm.Result, error)
}

// Forecaster is satisfied by *forecast.Service.
type Forecaster interface {
	Predict(ctx context.Context, req forecast.Request) (*forecast.Result, error)
}

// Options fixes the benchmark and model used for every ticker.
type Options struct {
	Benchmark    string
	RiskFreeRate float64
	Model        string
	Horizon      int
}

// Entry is one ticker's outcome. Either result may be nil with its error set.
type Entry struct {
	Ticker      string
	Snapshot    *Snapshot
	CAPM        *capm.Result
	CAPMErr     error
	Forecast    *forecast.Result
	ForecastErr error
	Chart       []byte
}

func (e *Entry) Failed() bool { return e.CAPM == nil && e.Forecast == nil }

// Report is one digest run.
type Report struct {
	GeneratedAt time.Time
	Options     Options
	Entries     []*Entry
	Commentary  string
}

// Builder produces reports.
type Builder struct {
	history  HistorySource
	capm     CAPMRunner
	forecast Forecaster
	opts     Options
	log      *logrus.Entry
	now      func() time.Time
}

func NewBuilder(h HistorySource, c CAPMRunner, f Forecaster, opts Options, logger logrus.FieldLogger) *Builder {
	return &Builder{history: h, capm: c, forecast: f, opts: opts, log: logger.WithField("component", "digest"), now: time.Now}
}

func (b *Builder) Options() Options { return b.opts }

// Build evaluates tickers sequentially. Per-ticker failures are kept in the
// entry; only context cancellation aborts the run.
func (b *Builder) Build(ctx context.Context, tickers []string) (*Report, error) {
	r := &Report{GeneratedAt: b.now(), Options: b.opts}
	for _, t := range tickers {
		if err := ctx.Err(); err != nil {
			return r, err
		}
		r.Entries = append(r.Entries, b.Entry(ctx, t))
	}
	return r, nil
}

// CAPM runs the regression for ticker against the digest benchmark.
func (b *Builder) CAPM(ctx context.Context, ticker string) (*capm.Result, error) {
	return b.capm.Run(ctx, capm.Request{
		Ticker:       ticker,
		Benchmark:    b.opts.Benchmark,
		RiskFreeRate: b.opts.RiskFreeRate,
	})
}

// Entry evaluates a single ticker.
func (b *Builder) Entry(ctx context.Context, ticker string) *Entry {
	e := &Entry{Ticker: strings.ToUpper(strings.TrimSpace(ticker))}
	log := b.log.WithField("ticker", e.Ticker)

	snap, err := b.Snapshot(ctx, e.Ticker)
	if err != nil {
		log.WithError(err).Warn("digest snapshot unavailable")
	}
	e.Snapshot = snap

	e.CAPM, e.CAPMErr = b.CAPM(ctx, e.Ticker)
	if e.CAPMErr != nil {
		log.WithError(e.CAPMErr).Warn("digest capm failed")
	}

	e.Forecast, e.ForecastErr = b.forecast.Predict(ctx, forecast.Request{
		Ticker:  e.Ticker,
		Model:   b.opts.Model,
		Horizon: b.opts.Horizon,
	})
	if e.ForecastErr != nil {
		log.WithError(e.ForecastErr).Warn("digest forecast failed")
		return e
	}
	img, err := chart.RenderPNG(e.Forecast.Figure)
	if err != nil {
		log.WithError(err).Warn("forecast chart not rendered")
	} else {
		e.Chart = img
	}
	return e
}

// Summary is a plain-text rendering of the numbers, used as model input for
// commentary.
func (r *Report) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Digest %s, benchmark %s, model %s, horizon %d business days.\n",
		r.GeneratedAt.Format("2006-01-02"), r.Options.Benchmark, r.Options.Model, r.Options.Horizon)
	for _, e := range r.Entries {
		fmt.Fprintf(&sb, "%s:", e.Ticker)
		if e.CAPM != nil {
			reg := e.CAPM.Regression
			fmt.Fprintf(&sb, " beta %.3f, alpha %.5f, R² %.3f, expected return %.2f%%;",
				reg.Beta, reg.Alpha, reg.RSquared, e.CAPM.ExpectedReturn)
		}
		if e.Forecast != nil && e.Forecast.Forecast.Len() > 0 {
			fc := e.Forecast.Forecast
			last := fc.Len() - 1
			fmt.Fprintf(&sb, " history ends %s, forecast %.2f on %s;",
				e.Forecast.LastDate.Format("2006-01-02"), fc.Forecast[last], fc.Dates[last].Format("2006-01-02"))
		}
		if sn := e.Snapshot; sn != nil {
			fmt.Fprintf(&sb, " close %.2f, RSI %.0f, %.0f%% of 52-week range;", sn.Close, sn.RSI, sn.Position*100)
		}
		if e.Failed() {
			sb.WriteString(" no data;")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
