package forecast

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Prophet is a decomposable trend + seasonality regression: a piecewise-linear
// trend with evenly placed changepoints plus Fourier seasonalities, fitted as a
// ridge (Gaussian-prior MAP) least-squares problem. Future dates follow the
// business-day calendar.
type Prophet struct {
	Changepoints    int
	ChangepointSpan float64 // share of history eligible for changepoints
	ChangepointTau  float64 // prior scale of trend changes
	SeasonalityTau  float64 // prior scale of Fourier coefficients
	WeeklyOrder     int
	YearlyOrder     int
	DailyOrder      int // 0 disables daily seasonality; ignored for daily bars
	IntervalWidth   float64
}

// NewProphet returns the default configuration. Daily seasonality only takes
// effect for intraday observations; on daily bars it is dropped from the design.
func NewProphet() Prophet {
	return Prophet{
		Changepoints:    25,
		ChangepointSpan: 0.8,
		ChangepointTau:  0.05,
		SeasonalityTau:  10,
		WeeklyOrder:     3,
		YearlyOrder:     10,
		DailyOrder:      4,
		IntervalWidth:   0.8,
	}
}

func (p Prophet) Name() string { return ProphetName }

type seasonality struct {
	period float64 // days
	order  int
}

// design holds the scaling needed to build regressor rows for any date.
type design struct {
	start   time.Time
	span    float64 // days covered by history
	cps     []float64
	seasons []seasonality
}

func (d design) scaledTime(t time.Time) float64 {
	return t.Sub(d.start).Hours() / 24 / d.span
}

func (d design) columns() int {
	n := 2 + len(d.cps)
	for _, s := range d.seasons {
		n += 2 * s.order
	}
	return n
}

// row fills the regressors: intercept, slope, changepoint hinges, Fourier terms.
func (d design) row(t time.Time, dst []float64) {
	ts := d.scaledTime(t)
	dst[0] = 1
	dst[1] = ts
	col := 2
	for _, c := range d.cps {
		dst[col] = math.Max(0, ts-c)
		col++
	}
	days := float64(t.Unix()) / 86400
	for _, s := range d.seasons {
		for k := 1; k <= s.order; k++ {
			x := 2 * math.Pi * float64(k) * days / s.period
			dst[col] = math.Sin(x)
			dst[col+1] = math.Cos(x)
			col += 2
		}
	}
}

// design places changepoints over the first ChangepointSpan of history and
// picks the seasonalities the data can identify.
func (p Prophet) design(dates []time.Time, span float64) design {
	n := len(dates)
	d := design{start: dates[0], span: span}
	cpRows := int(math.Floor(float64(n) * p.ChangepointSpan))
	if k := p.Changepoints; k > 0 && cpRows > k {
		for i := 1; i <= k; i++ {
			idx := int(math.Round(float64(i) * float64(cpRows-1) / float64(k)))
			d.cps = append(d.cps, d.scaledTime(dates[idx]))
		}
	}
	if p.WeeklyOrder > 0 {
		d.seasons = append(d.seasons, seasonality{period: 7, order: p.WeeklyOrder})
	}
	if p.YearlyOrder > 0 && span >= 730 {
		d.seasons = append(d.seasons, seasonality{period: 365.25, order: p.YearlyOrder})
	}
	if p.DailyOrder > 0 && intraday(dates) {
		d.seasons = append(d.seasons, seasonality{period: 1, order: p.DailyOrder})
	}
	return d
}

// intraday reports whether observations differ in time of day. Daily bars all
// share one stamp, so a period-one Fourier term would be constant there.
func intraday(dates []time.Time) bool {
	for _, t := range dates[1:] {
		if t.Sub(dates[0])%(24*time.Hour) != 0 {
			return true
		}
	}
	return false
}

func (p Prophet) Fit(dates []time.Time, y []float64, horizon int) (*Raw, error) {
	n := len(y)
	if n < 10 || len(dates) != n {
		return nil, fmt.Errorf("need at least 10 dated observations, got %d", n)
	}
	span := dates[n-1].Sub(dates[0]).Hours() / 24
	if span <= 0 {
		return nil, errors.New("history spans no time")
	}

	scale := 0.0
	for _, v := range y {
		scale = math.Max(scale, math.Abs(v))
	}
	if scale == 0 {
		scale = 1
	}

	d := p.design(dates, span)

	cols := d.columns()
	X := mat.NewDense(n, cols, nil)
	ys := mat.NewVecDense(n, nil)
	buf := make([]float64, cols)
	for i := 0; i < n; i++ {
		d.row(dates[i], buf)
		X.SetRow(i, buf)
		ys.SetVec(i, y[i]/scale)
	}

	// first pass with weak priors to estimate noise, second with priors scaled by it
	w, err := p.solve(X, ys, d, 1e-6, 1e-6)
	if err != nil {
		return nil, err
	}
	sigma2 := residualVariance(X, ys, w)
	w, err = p.solve(X, ys, d, sigma2/(p.ChangepointTau*p.ChangepointTau), sigma2/(p.SeasonalityTau*p.SeasonalityTau))
	if err != nil {
		return nil, err
	}
	sigma2 = residualVariance(X, ys, w)

	// expected variance of future trend changes: Poisson arrivals at the
	// fitted changepoint rate with Laplace magnitudes of the mean fitted size
	var meanAbs float64
	for i := range d.cps {
		meanAbs += math.Abs(w.AtVec(2 + i))
	}
	rate := 0.0
	if len(d.cps) > 0 {
		meanAbs /= float64(len(d.cps))
		rate = float64(len(d.cps))
	}
	meanAbs += 1e-8

	z := distuv.UnitNormal.Quantile(0.5 + p.IntervalWidth/2)
	future := BusinessDays(dates[n-1], horizon)
	out := &Raw{
		Forecast: make([]float64, horizon),
		Lower:    make([]float64, horizon),
		Upper:    make([]float64, horizon),
	}
	for h, t := range future {
		d.row(t, buf)
		yhat := mat.Dot(mat.NewVecDense(cols, buf), w)
		dt := d.scaledTime(t) - 1
		trendVar := rate * 2 * meanAbs * meanAbs * dt * dt * dt / 3
		sd := math.Sqrt(sigma2 + trendVar)
		out.Forecast[h] = yhat * scale
		out.Lower[h] = (yhat - z*sd) * scale
		out.Upper[h] = (yhat + z*sd) * scale
	}
	return out, nil
}

// solve minimises ||y - Xw||² + λδ·Σδ² + λβ·Σβ² by least squares on the
// penalty-augmented system.
func (p Prophet) solve(X *mat.Dense, y *mat.VecDense, d design, lambdaDelta, lambdaBeta float64) (*mat.VecDense, error) {
	n, cols := X.Dims()
	aug := mat.NewDense(n+cols, cols, nil)
	aug.Slice(0, n, 0, cols).(*mat.Dense).Copy(X)
	target := mat.NewVecDense(n+cols, nil)
	for i := 0; i < n; i++ {
		target.SetVec(i, y.AtVec(i))
	}
	for j := 0; j < cols; j++ {
		lambda := lambdaBeta
		switch {
		case j < 2:
			lambda = 1e-8
		case j < 2+len(d.cps):
			lambda = lambdaDelta
		}
		aug.Set(n+j, j, math.Sqrt(lambda))
	}
	var w mat.VecDense
	if err := w.SolveVec(aug, target); err != nil {
		return nil, fmt.Errorf("least squares: %w", err)
	}
	return &w, nil
}

func residualVariance(X *mat.Dense, y, w *mat.VecDense) float64 {
	var fitted mat.VecDense
	fitted.MulVec(X, w)
	n := y.Len()
	var sse float64
	for i := 0; i < n; i++ {
		e := y.AtVec(i) - fitted.AtVec(i)
		sse += e * e
	}
	return sse / float64(n)
}
