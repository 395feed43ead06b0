package forecast

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

// HoltWinters is additive-trend exponential smoothing without seasonality.
// The interval is the point forecast ± 1.96 population std of the one-step
// in-sample residuals, a constant-width band.
type HoltWinters struct{}

func (HoltWinters) Name() string { return HoltWintersName }

func (HoltWinters) Fit(_ []time.Time, y []float64, horizon int) (*Raw, error) {
	if len(y) < 3 {
		return nil, fmt.Errorf("need at least 3 observations, got %d", len(y))
	}

	sse := func(x []float64) float64 {
		s, _, _, _ := holtPass(y, logistic(x[0]), logistic(x[1]))
		return s
	}
	x0 := []float64{0, logit(0.1)}
	res, err := optimize.Minimize(optimize.Problem{Func: sse}, x0, nil, &optimize.NelderMead{})
	if res == nil {
		if err == nil {
			err = errors.New("optimizer returned no result")
		}
		return nil, err
	}
	alpha, beta := logistic(res.X[0]), logistic(res.X[1])

	_, level, trend, resid := holtPass(y, alpha, beta)
	if math.IsNaN(level) || math.IsNaN(trend) {
		return nil, errors.New("smoothing diverged")
	}
	_, variance := stat.PopMeanVariance(resid, nil)
	band := 1.96 * math.Sqrt(variance)

	out := &Raw{
		Forecast: make([]float64, horizon),
		Lower:    make([]float64, horizon),
		Upper:    make([]float64, horizon),
	}
	for h := 1; h <= horizon; h++ {
		p := level + float64(h)*trend
		out.Forecast[h-1] = p
		out.Lower[h-1] = p - band
		out.Upper[h-1] = p + band
	}
	return out, nil
}

// holtPass runs the smoothing recursion from l0 = y0, b0 = y1 - y0 and returns
// the one-step SSE, final state and residuals.
func holtPass(y []float64, alpha, beta float64) (sse, level, trend float64, resid []float64) {
	level = y[0]
	trend = y[1] - y[0]
	resid = make([]float64, 0, len(y)-1)
	for t := 1; t < len(y); t++ {
		fitted := level + trend
		e := y[t] - fitted
		resid = append(resid, e)
		sse += e * e
		prev := level
		level = alpha*y[t] + (1-alpha)*fitted
		trend = beta*(level-prev) + (1-beta)*trend
	}
	return sse, level, trend, resid
}

func logistic(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

func logit(p float64) float64 { return math.Log(p / (1 - p)) }
